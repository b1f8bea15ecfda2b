package sheet

import "strings"

// NormalizeEmail trims and lower-cases an address for comparison
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindDuplicateEmails returns every normalized email that appears on more
// than one row, once each, in the order the repetition was first seen.
// Rows without an email are ignored.
func FindDuplicateEmails(rows []Row) []string {
	seen := make(map[string]bool, len(rows))
	var duplicates []string
	for _, row := range rows {
		email := NormalizeEmail(row.Get(EmailField))
		if email == "" {
			continue
		}
		reported, ok := seen[email]
		switch {
		case !ok:
			seen[email] = false
		case !reported:
			seen[email] = true
			duplicates = append(duplicates, email)
		}
	}
	return duplicates
}
