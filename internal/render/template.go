package render

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sheetmail/sheetmail/internal/sheet"
)

// ErrTemplateLoad is returned when the template file cannot be read
var ErrTemplateLoad = errors.New("failed to load email template")

// Template is an HTML document with {{field}} tokens for a fixed set of row columns.
type Template struct {
	text   string
	fields []string
}

// New creates a Template from text. Only the listed fields are ever substituted.
func New(text string, fields []string) *Template {
	return &Template{
		text:   text,
		fields: append([]string(nil), fields...),
	}
}

// Load reads the template file at path
func Load(path string, fields []string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplateLoad, err)
	}
	return New(string(data), fields), nil
}

// Fields returns the placeholder names in substitution order
func (t *Template) Fields() []string {
	return append([]string(nil), t.fields...)
}

// Render substitutes every configured {{field}} token with the row's trimmed
// value, in field order. Values are inserted as-is without HTML escaping.
func (t *Template) Render(row sheet.Row) string {
	out := t.text
	for _, field := range t.fields {
		value := FixEncoding(strings.TrimSpace(row.Get(field)))
		out = strings.ReplaceAll(out, Token(field), value)
	}
	return out
}

// Token returns the placeholder text for field
func Token(field string) string {
	return "{{" + field + "}}"
}
