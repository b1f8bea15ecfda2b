package email

import "errors"

var (
	// ErrConnect indicates the session could not be opened or authenticated.
	ErrConnect = errors.New("failed to connect to email server")

	// ErrSend indicates a message was rejected or lost in transit.
	ErrSend = errors.New("failed to send email")

	// ErrCooldown indicates the reconnect after a cooldown wait failed, so the send was abandoned.
	ErrCooldown = errors.New("rate limit cooldown")

	// ErrNotConnected indicates Send was called without an open session.
	ErrNotConnected = errors.New("no active session")
)
