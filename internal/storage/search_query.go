package storage

import (
	"strings"
	"unicode"
)

// BuildMatchExpression turns raw user input into an FTS5 MATCH expression.
// Each whitespace-delimited term is quoted (embedded quotes doubled) and
// marked as a prefix, and terms are joined with spaces so all must match.
// Terms without any letter or digit cannot produce an index token and are
// dropped. An empty result means there is nothing to search for.
func BuildMatchExpression(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		if !hasTokenChar(term) {
			continue
		}
		quoted = append(quoted, `"`+strings.ReplaceAll(term, `"`, `""`)+`"*`)
	}
	return strings.Join(quoted, " ")
}

func hasTokenChar(term string) bool {
	for _, r := range term {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
