// Package postcode normalises and validates UK postcodes.
package postcode

import (
	"regexp"
	"strings"
	"unicode"
)

var pattern = regexp.MustCompile(`^(GIR 0AA|[A-Z]{1,2}[0-9][A-Z0-9]? [0-9][A-Z]{2})$`)

// Compact uppercases the postcode and strips all whitespace.
func Compact(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, value)
}

// Normalize returns the canonical form: uppercase with a single space
// before the three-character inward code.
func Normalize(value string) string {
	compact := Compact(value)
	if len(compact) < 5 {
		return compact
	}
	return compact[:len(compact)-3] + " " + compact[len(compact)-3:]
}

func Valid(value string) bool {
	return pattern.MatchString(Normalize(value))
}
