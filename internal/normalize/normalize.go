// Package normalize canonicalizes user-supplied phone numbers and
// application names into the stable forms used as lookup keys.
package normalize

import (
	"strings"
	"unicode"
)

// Phone reduces a phone number to E.164-ish digits with a leading "+".
// A bare 10-digit number is assumed to be US/Canada and gets a "1" prefix.
func Phone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 {
		digits = "1" + digits
	}
	return "+" + digits
}

// Application lowercases an application name, trims surrounding whitespace
// and collapses internal runs of whitespace to a single space. The result is
// stable across cosmetic variations of the same name and safe to embed in an
// object key.
func Application(application string) string {
	lowered := strings.ToLower(strings.TrimSpace(application))
	return strings.Join(strings.Fields(lowered), " ")
}
