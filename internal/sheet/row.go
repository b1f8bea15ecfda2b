package sheet

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// ErrFetch is returned when the spreadsheet could not be downloaded or parsed
var ErrFetch = errors.New("failed to fetch sheet data")

// EmailField is the column every processed row must carry
const EmailField = "email"

// Row is one spreadsheet line keyed by column header
type Row map[string]string

// Get returns the value of field, or an empty string when the column is missing
func (r Row) Get(field string) string {
	return r[field]
}

// Email returns the row's recipient address with surrounding whitespace removed
func (r Row) Email() string {
	return strings.TrimSpace(r.Get(EmailField))
}

// Reader loads the rows of a spreadsheet.
type Reader interface {
	Fetch(ctx context.Context) ([]Row, error)
}

// rowsFromRecords turns a header record plus data records into rows.
// Headers are trimmed, a leading UTF-8 BOM is dropped and repeated headers
// get a numeric suffix (email, email.1, ...). Short records leave the
// missing columns absent; cells beyond the header are ignored.
func rowsFromRecords(records [][]string) []Row {
	if len(records) == 0 {
		return nil
	}

	headers := normalizeHeaders(records[0])
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make(Row, len(headers))
		for i, value := range rec {
			if i >= len(headers) {
				break
			}
			row[headers[i]] = value
		}
		rows = append(rows, row)
	}
	return rows
}

func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if n, ok := seen[h]; ok {
			seen[h] = n + 1
			h = h + "." + strconv.Itoa(n+1)
		} else {
			seen[h] = 0
		}
		headers[i] = h
	}
	return headers
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
