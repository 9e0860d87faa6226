// Package slug derives URL-safe ASCII identifiers from book and genre names.
//
// Slugs intentionally strip diacritics ("Quỷ Bí Chi Chủ" -> "quy-bi-chi-chu");
// they are routing keys, not search keys. The search index keeps diacritics.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// đ has no NFD decomposition, so it is mapped by hand before normalization.
var dStroke = strings.NewReplacer("đ", "d", "Đ", "D")

// From converts an arbitrary Unicode string into a lowercase ASCII slug:
// NFD-decompose, drop combining marks, lowercase, then collapse every
// non-alphanumeric run into a single hyphen.
func From(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, dStroke.Replace(s))
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	prevHyphen := true // swallow leading separators
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen {
				b.WriteRune('-')
				prevHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
