package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestBuildMatchExpression(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace", " \t\n ", ""},
		{"single term", "admin", `"admin"*`},
		{"two terms", "global admin", `"global"* "admin"*`},
		{"collapses whitespace", "  global \t admin  ", `"global"* "admin"*`},
		{"embedded quote doubled", `say"hi`, `"say""hi"*`},
		{"operators are quoted", "user OR NOT", `"user"* "OR"* "NOT"*`},
		{"hyphenated name", "Set-GlobalAdmin", `"Set-GlobalAdmin"*`},
		{"punctuation only dropped", "- ** admin", `"admin"*`},
		{"digits kept", "365", `"365"*`},
		{"unicode letters kept", "Gerät", `"Gerät"*`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildMatchExpression(tt.query))
		})
	}
}

func TestBuildMatchExpressionQuotesBalance(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		query := rapid.String().Draw(t, "query")
		expr := BuildMatchExpression(query)
		if expr == "" {
			return
		}

		terms := strings.Split(expr, `"* `)
		terms[len(terms)-1] = strings.TrimSuffix(terms[len(terms)-1], `"*`)
		for _, term := range terms {
			if !strings.HasPrefix(term, `"`) {
				t.Fatalf("term %q of %q is not quoted", term, expr)
			}
			inner := strings.ReplaceAll(term[1:], `""`, "")
			if strings.Contains(inner, `"`) {
				t.Fatalf("unescaped quote in %q", term)
			}
		}

		if got, max := len(terms), len(strings.Fields(query)); got > max {
			t.Fatalf("%d terms from %d fields", got, max)
		}
	})
}
