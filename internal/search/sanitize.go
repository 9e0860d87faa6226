package search

import "strings"

// stripper removes every FTS5 query control character before tokenizing,
// including the curly typographic lookalikes phones autocorrect into.
// Anything that survives is quoted below, so no user input can act as a
// match operator.
var stripper = strings.NewReplacer(
	`"`, "", "“", "", "”", "",
	`'`, "", "‘", "", "’", "",
	"(", "", ")", "",
	"*", "", "^", "", ":", "",
)

// Sanitize converts raw user text into a safe FTS5 match expression: each
// whitespace-separated token is double-quoted (exact-token match) and tokens
// are joined with spaces (implicit AND). Returns "" when nothing survives;
// callers must treat that as "no query", never as "match everything".
func Sanitize(raw string) string {
	tokens := strings.Fields(stripper.Replace(raw))
	if len(tokens) == 0 {
		return ""
	}

	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte('"')
		b.WriteString(tok)
		b.WriteByte('"')
	}
	return b.String()
}
