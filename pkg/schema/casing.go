// ABOUTME: Property name casing normalization for generated schemas.
// ABOUTME: The merged schema always presents camelCase names regardless of host casing.

package schema

import (
	"strings"
	"unicode"
)

// CamelCase lowers the leading word of a name: "Name" -> "name",
// "OrderID" stays "orderID"-shaped by keeping the last letter of a leading
// acronym as the start of the next word, and "ID" -> "id". Names already in
// camelCase or snake_case pass through unchanged.
func CamelCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)

	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	switch {
	case n == 0:
		return s
	case n == len(runes):
		return strings.ToLower(s)
	case n == 1:
		runes[0] = unicode.ToLower(runes[0])
	default:
		// Leading acronym: lower all but its last letter, which starts the
		// following word ("HTTPStatus" -> "httpStatus").
		for i := 0; i < n-1; i++ {
			runes[i] = unicode.ToLower(runes[i])
		}
	}
	return string(runes)
}

// recased returns the candidate spellings used to find the original property
// for a normalized name: the exact name first, then upper-first and
// lower-first variants.
func recased(name string) []string {
	if name == "" {
		return []string{name}
	}
	upper := string(unicode.ToUpper(rune(name[0]))) + name[1:]
	lower := string(unicode.ToLower(rune(name[0]))) + name[1:]
	out := []string{name}
	if upper != name {
		out = append(out, upper)
	}
	if lower != name {
		out = append(out, lower)
	}
	return out
}
