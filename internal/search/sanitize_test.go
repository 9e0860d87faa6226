package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain words", "quy bi chi chu", `"quy" "bi" "chi" "chu"`},
		{"diacritics preserved", "Quỷ Bí", `"Quỷ" "Bí"`},
		{"empty", "", ""},
		{"whitespace only", " \t\n ", ""},
		{"all operators", `"'()*^:“”‘’`, ""},
		{"embedded quotes", `ma "đạo" tổ`, `"ma" "đạo" "tổ"`},
		{"boolean injection", `a OR b`, `"a" "OR" "b"`},
		{"prefix star stripped", "tien*", `"tien"`},
		{"column filter stripped", "name:tien", `"nametien"`},
		{"grouping stripped", "(a b) ^c", `"a" "b" "c"`},
		{"mixed whitespace runs", "  đấu \t phá  ", `"đấu" "phá"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sanitize(tc.in))
		})
	}
}

func TestSanitize_NeverEmitsControlCharacters(t *testing.T) {
	inputs := []string{
		`"""`, "'''", "((((", "****", "^^", "::", "“”‘’",
		`normal "mixed' (with) *every^ :operator`,
		"tiên nghịch",
	}
	for _, in := range inputs {
		out := Sanitize(in)
		for _, bad := range []string{"(", ")", "*", "^", ":", "“", "”", "‘", "’", "'"} {
			assert.NotContains(t, out, bad, "input %q", in)
		}
		if out != "" {
			// Only quoted tokens joined by single spaces.
			for _, tok := range strings.Split(out, " ") {
				assert.True(t, strings.HasPrefix(tok, `"`) && strings.HasSuffix(tok, `"`),
					"token %q of %q not quoted", tok, out)
			}
		}
	}
}
