package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes text for matching: Turkish-aware lower-casing, NFC,
// punctuation stripped except '?', whitespace runs collapsed, trimmed.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	// Casers are stateful; build one per call so Normalize stays goroutine safe.
	s := cases.Lower(language.Turkish).String(norm.NFC.String(text))
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		switch {
		case r == '?':
			// "gelir ?" and "gelir?" normalize the same
			pending = false
			b.WriteRune(r)
		case r == '\'' || r == '’' || r == '`':
			// apostrophes glue suffixes in Turkish ("işaret'i")
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			pending = b.Len() > 0
		case unicode.IsControl(r):
		default:
			if pending {
				b.WriteByte(' ')
				pending = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Fold normalizes text and then strips diacritics so that comparison keys are
// ASCII for Turkish input (ş->s, ğ->g, ı->i, ...).
func Fold(text string) string {
	s := Normalize(text)
	if s == "" {
		return ""
	}
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(func(r rune) rune {
			if r == 'ı' {
				return 'i'
			}
			return r
		}),
		norm.NFC,
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// FirstWord returns the first token of the normalized text.
func FirstWord(text string) string {
	s := Normalize(text)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
