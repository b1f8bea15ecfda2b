package email

import (
	"encoding/base64"
	"mime"
	netmail "net/mail"
	"strings"
)

const mimeBoundary = "boundary_sheetmail_email"

// buildMIMEMessage renders msg as multipart/alternative with a single HTML part.
// Both the SMTP and the Gmail API transports send this document.
func buildMIMEMessage(msg Message) string {
	from := msg.From
	if msg.FromName != "" {
		from = (&netmail.Address{Name: msg.FromName, Address: msg.From}).String()
	}

	return strings.Join([]string{
		"From: " + from,
		"To: " + msg.To,
		"Subject: " + mime.BEncoding.Encode("UTF-8", msg.Subject),
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=" + mimeBoundary,
		"",
		"--" + mimeBoundary,
		"Content-Type: text/html; charset=UTF-8",
		"Content-Transfer-Encoding: base64",
		"",
		wrapBase64(msg.HTMLBody),
		"--" + mimeBoundary + "--",
		"",
	}, "\r\n")
}

// wrapBase64 encodes s in base64 lines of 76 characters
func wrapBase64(s string) string {
	enc := base64.StdEncoding.EncodeToString([]byte(s))
	var b strings.Builder
	for len(enc) > 76 {
		b.WriteString(enc[:76])
		b.WriteString("\r\n")
		enc = enc[76:]
	}
	b.WriteString(enc)
	return b.String()
}
