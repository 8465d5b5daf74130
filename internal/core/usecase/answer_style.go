package usecase

import (
	"strings"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

// answerStyle is the length/tone budget picked from the question wording.
type answerStyle struct {
	Tone        string
	MaxTokens   int
	Temperature float64
}

func (s answerStyle) options() domain.GenerateOptions {
	return domain.GenerateOptions{MaxTokens: s.MaxTokens, Temperature: s.Temperature}
}

var (
	factualKeywords  = []string{"who", "when", "where", "name", "which", "ആരാണ്"}
	detailedKeywords = []string{"explain", "describe", "discuss", "വിശദമായി"}
)

// selectAnswerStyle matches keywords as substrings of the lowercased question,
// factual first.
func selectAnswerStyle(question string) answerStyle {
	q := strings.ToLower(question)
	if containsAny(q, factualKeywords) {
		return answerStyle{Tone: "a single short factual sentence.", MaxTokens: 80, Temperature: 0.0}
	}
	if containsAny(q, detailedKeywords) {
		return answerStyle{Tone: "a detailed paragraph (5-6 sentences) ONLY from the context.", MaxTokens: 300, Temperature: 0.2}
	}
	return answerStyle{Tone: "a short and clean 1-2 sentence answer.", MaxTokens: 160, Temperature: 0.1}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
