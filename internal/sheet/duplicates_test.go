package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ann@example.com", NormalizeEmail("  Ann@Example.COM \t"))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestFindDuplicateEmails(t *testing.T) {
	tests := []struct {
		name string
		rows []Row
		want []string
	}{
		{
			name: "no rows",
			rows: nil,
			want: nil,
		},
		{
			name: "unique emails",
			rows: []Row{
				{"email": "a@example.com"},
				{"email": "b@example.com"},
				{"email": "c@example.com"},
			},
			want: nil,
		},
		{
			name: "case and whitespace variants collide",
			rows: []Row{
				{"email": "a"},
				{"email": "A "},
			},
			want: []string{"a"},
		},
		{
			name: "reported once per address",
			rows: []Row{
				{"email": "a@example.com"},
				{"email": "a@example.com"},
				{"email": "A@example.com"},
			},
			want: []string{"a@example.com"},
		},
		{
			name: "order of first repetition",
			rows: []Row{
				{"email": "b@example.com"},
				{"email": "a@example.com"},
				{"email": "a@example.com"},
				{"email": "b@example.com"},
			},
			want: []string{"a@example.com", "b@example.com"},
		},
		{
			name: "empty emails ignored",
			rows: []Row{
				{"email": ""},
				{"email": "   "},
				{"name": "no email column"},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindDuplicateEmails(tt.rows))
		})
	}
}
