package consultation

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Language selects the output language of the SOAP note.
type Language string

const (
	LanguageEnglish            Language = "en"
	LanguageTraditionalChinese Language = "zh-TW"
)

var supportedTags = []language.Tag{
	language.English,
	language.MustParse("zh-TW"),
}

var languageMatcher = language.NewMatcher(supportedTags)

// ParseLanguage maps a BCP 47 tag (or a close variant such as "zh_TW" or
// "zh-Hant") onto the supported note languages.
func ParseLanguage(raw string) (Language, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "_", "-"))
	if raw == "" {
		return LanguageEnglish, nil
	}

	tag, err := language.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse language %q: %w", raw, err)
	}

	_, index, confidence := languageMatcher.Match(tag)
	if confidence < language.High {
		return "", fmt.Errorf("unsupported note language %q (supported: en, zh-TW)", raw)
	}

	switch index {
	case 0:
		return LanguageEnglish, nil
	default:
		return LanguageTraditionalChinese, nil
	}
}

// PromptName is the language phrase used in model instructions.
func (l Language) PromptName() string {
	if l == LanguageTraditionalChinese {
		return "Traditional Chinese (繁體中文)"
	}
	return "Professional English"
}
