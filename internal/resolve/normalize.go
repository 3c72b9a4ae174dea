// Package resolve matches human-entered names against dataset records.
package resolve

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize standardizes text for identity comparison by:
//  1. Case folding
//  2. Decomposing and removing combining marks (accents, tildes, cedillas)
//  3. Trimming surrounding whitespace
//
// Folding runs before mark removal so that folds which introduce combining
// marks are stripped too, which keeps Normalize idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = cases.Fold().String(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}

	return strings.TrimSpace(s)
}

// SameIdentity reports whether a and b name the same entity. Values that
// normalize to the empty string never match, not even each other.
func SameIdentity(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}
