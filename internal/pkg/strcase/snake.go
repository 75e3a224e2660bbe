// Package strcase converts Go identifiers to the snake_case keys used in
// JSON error payloads.
package strcase

import (
	"strings"
	"unicode"
)

// ToLowerSnake converts a string to snake_case (initialism-safe).
//
//	CSVFile   -> csv_file
//	userID    -> user_id
//	Addresses -> addresses
func ToLowerSnake(s string) string {
	runes := []rune(s)

	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && wordStarts(runes, i) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}

// wordStarts reports whether the upper-case rune at i opens a new word: after
// a lower-case letter or digit, or as the last capital of an acronym that is
// followed by a lower-case letter (HTTPServer -> HTTP_Server).
func wordStarts(runes []rune, i int) bool {
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	return unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
