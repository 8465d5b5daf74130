package ollama

import (
	"fmt"
	"unicode/utf8"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

var languageNames = map[string]string{
	domain.LanguageEnglish:   "English",
	domain.LanguageMalayalam: "Malayalam",
}

func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

func buildTranslationPrompt(text, srcLang, tgtLang string) string {
	return fmt.Sprintf(`Translate the text below from %s to %s.
Return only the translation. No notes, no quotes, no transliteration.

Text:
%s
`, languageName(srcLang), languageName(tgtLang), text)
}

// translationMaxTokens leaves headroom for scripts that tokenize into many pieces.
func translationMaxTokens(text string) int {
	n := utf8.RuneCountInString(text) * 3
	if n < 64 {
		return 64
	}
	if n > 1024 {
		return 1024
	}
	return n
}
