package campaign

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoData is returned when the sheet could not be read or has no rows
	ErrNoData = errors.New("no data found in Google Sheets")
	// ErrDuplicateData is returned when the sheet lists an address more than once
	ErrDuplicateData = errors.New("duplicate emails found")
	// ErrRowNotFound is returned by Preview for an out of range row number
	ErrRowNotFound = errors.New("row not found")
)

// DuplicateEmailsError lists the normalized addresses that appear more than once.
type DuplicateEmailsError struct {
	Emails []string
}

func (e *DuplicateEmailsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDuplicateData, strings.Join(e.Emails, ", "))
}

func (e *DuplicateEmailsError) Unwrap() error {
	return ErrDuplicateData
}
