package param

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	needsQuotes = regexp.MustCompile(`[\s:/"]`)
	rangeQuery  = regexp.MustCompile(`[\[{]\S+ TO \S+[\]}]`)
	wrapped     = regexp.MustCompile(`(?s)^["(].*[")]$`)
)

// EscapeValue quotes a field value that contains whitespace, a colon, quote
// or slash, unless it is a range query or already quoted/grouped.
// Backslashes and quotes inside are backslash-escaped.
func EscapeValue(v string) string {
	if !needsQuotes.MatchString(v) || rangeQuery.MatchString(v) || wrapped.MatchString(v) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// ParseStringList splits a space separated group into tokens, keeping quoted
// tokens (quotes and escapes included) intact. It is the inverse of joining
// EscapeValue outputs with spaces.
func ParseStringList(s string) []string {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote && c == '\\' && i+1 < len(s):
			cur.WriteByte(c)
			cur.WriteByte(s[i+1])
			i++
		case c == '"':
			inQuote = !inQuote
			cur.WriteByte(c)
		case !inQuote && c < unicode.MaxASCII && unicode.IsSpace(rune(c)):
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
