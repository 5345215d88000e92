package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sitepulse/internal/query"
)

func TestEscapeLiteral(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Plain string",
			input:    "pricing",
			expected: "'pricing'",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "''",
		},
		{
			name:     "Single quote",
			input:    "O'Reilly",
			expected: `'O\'Reilly'`,
		},
		{
			name:     "Backslash",
			input:    `a\b`,
			expected: `'a\\b'`,
		},
		{
			name:     "Double quote",
			input:    `say "hi"`,
			expected: `'say \"hi\"'`,
		},
		{
			name:     "Newline and tab",
			input:    "a\nb\tc",
			expected: `'a\nb\tc'`,
		},
		{
			name:     "NUL byte",
			input:    "a\x00b",
			expected: `'a\0b'`,
		},
		{
			name:     "Injection attempt stays inert",
			input:    "'; DROP TABLE events; --",
			expected: `'\'; DROP TABLE events; --'`,
		},
		{
			name:     "Unicode passes through",
			input:    "münchen/straße",
			expected: "'münchen/straße'",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, query.EscapeLiteral(tc.input))
		})
	}
}
