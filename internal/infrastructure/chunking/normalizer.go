package chunking

import (
	"regexp"
	"strings"
)

var (
	lineEndingReplacer  = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	horizontalSpaceRuns = regexp.MustCompile(`[ \t]+`)
)

// Normalize canonicalizes line endings to LF, collapses runs of spaces and tabs
// and trims the result. Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	text = lineEndingReplacer.Replace(text)
	text = horizontalSpaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
