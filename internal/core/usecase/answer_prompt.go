package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

func buildAnswerPrompt(style answerStyle, question string, passages []domain.ScoredCandidate) string {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	return fmt.Sprintf(`You are a strict, factual assistant.
RULES:
- Use ONLY the context provided below.
- Provide %s
- DO NOT output anything except the final answer.
- DO NOT add explanations, options, MCQs, Hindi text, or unrelated information.
- If you don't find the answer in context, say exactly: "%s"

Context:
%s

Question:
%s

Answer:`, style.Tone, domain.NoAnswerText, strings.Join(texts, "\n"), question)
}
