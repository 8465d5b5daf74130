// Package langdetect identifies the language of a question from its script.
// Only the languages the pipeline can serve are distinguished.
package langdetect

import (
	"errors"
	"unicode"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

var ErrNoLetters = errors.New("langdetect: no letters in text")

// Undetermined is returned for text written in a script other than Latin or Malayalam.
const Undetermined = "und"

type Detector struct{}

func (Detector) Detect(text string) (string, error) {
	var malayalam, latin, other int
	for _, r := range text {
		switch {
		case r >= 0x0D00 && r <= 0x0D7F:
			// Vowel signs are marks, not letters, but still belong to the script.
			malayalam++
		case !unicode.IsLetter(r):
		case unicode.Is(unicode.Latin, r):
			latin++
		default:
			other++
		}
	}

	switch {
	case malayalam == 0 && latin == 0 && other == 0:
		return "", ErrNoLetters
	case malayalam >= latin && malayalam >= other:
		return domain.LanguageMalayalam, nil
	case latin >= other:
		return domain.LanguageEnglish, nil
	default:
		return Undetermined, nil
	}
}
