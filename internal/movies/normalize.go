package movies

import "strings"

// Normalize reduces a title or query to its canonical sort/match form:
// trimmed and lowercased. No locale-aware folding.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
