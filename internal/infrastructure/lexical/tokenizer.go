package lexical

import "strings"

// Tokenize lowercases s and returns maximal runs of ASCII letters, digits and
// Malayalam-block runes (U+0D00-U+0D7F). Index build and query share it.
func Tokenize(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ToLower(s)

	out := make([]string, 0, 24)
	start := -1
	for i, r := range s {
		if isTokenRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, s[start:i])
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

func isTokenRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || (r >= 0x0D00 && r <= 0x0D7F)
}
