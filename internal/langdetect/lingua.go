package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// Languages published by the configured feeds.
var supportedLanguages = []lingua.Language{
	lingua.Hebrew,
	lingua.English,
	lingua.Arabic,
	lingua.Russian,
}

const minLetters = 6

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectISO6391 returns a two-letter code, or "" when the text is too short
// or ambiguous.
func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if countLetters(sample) < minLetters {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

// DisplayName maps a detected code to the English language name used in
// classifier prompts.
func DisplayName(code string) string {
	switch NormalizeCode(code) {
	case "he":
		return "Hebrew"
	case "en":
		return "English"
	case "ar":
		return "Arabic"
	case "ru":
		return "Russian"
	default:
		return ""
	}
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(supportedLanguages...).
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
