package usecase

import (
	"regexp"
	"strings"
)

const maxAnswerWords = 120

var (
	answerStopPattern = regexp.MustCompile(`(Problem\s*\d*:|Option\s*[A-D]:|क्या|प्रश्न|Answer\s*:)`)
	horizontalSpace   = regexp.MustCompile(`[^\S\r\n]+`)
)

// cleanAnswer strips echoed prompt text and the exam-style continuations small
// generators tend to append, then caps the answer length.
func cleanAnswer(raw string) string {
	text := raw
	if i := strings.LastIndex(text, "Answer:"); i >= 0 {
		text = text[i+len("Answer:"):]
	}
	text = strings.TrimSpace(text)

	if loc := answerStopPattern.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	text = strings.TrimSpace(horizontalSpace.ReplaceAllString(strings.TrimSpace(text), " "))

	if words := strings.Fields(text); len(words) > maxAnswerWords {
		text = strings.Join(words[:maxAnswerWords], " ")
	}
	return text
}
