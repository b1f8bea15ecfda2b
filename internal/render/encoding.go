package render

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// FixEncoding repairs UTF-8 text that was decoded as Latin-1 upstream, such
// as "JosÃ©" for "José". The string is encoded back to Latin-1 bytes and
// reread as UTF-8; when either step is not a clean round trip s is
// returned unchanged.
func FixEncoding(s string) string {
	raw, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil || !utf8.ValidString(raw) {
		return s
	}
	return raw
}
