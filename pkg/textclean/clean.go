// Package textclean normalizes free text before it is sent to the search
// backend as a query or autocomplete prefix.
package textclean

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Func is the signature of a text cleaner. Clean is the default.
type Func func(string) string

// Clean normalizes text for query matching:
//
//   - diacritics are removed ("Café" -> "Cafe")
//   - case is folded
//   - apostrophes are dropped ("don't" -> "dont")
//   - any other rune that is not a letter, digit or space becomes a space
//   - runs of whitespace collapse to one space, leading and trailing space is trimmed
//
// Clean is pure and safe for concurrent use.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	// Transformers and casers are stateful; build them per call.
	strip := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(strip, text)
	if err != nil {
		stripped = text
	}
	folded := cases.Fold().String(stripped)

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		switch {
		case isApostrophe(r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		default:
			pendingSpace = true
		}
	}
	return b.String()
}

func isApostrophe(r rune) bool {
	switch r {
	case '\'', '’', 'ʼ':
		return true
	}
	return false
}
