package agent

import "unicode"

// Language is the answer language for a turn.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageChinese Language = "zh"
)

const chineseRatioThreshold = 0.3

// Detect picks the turn language from the question text: when more than 30%
// of its non-space runes are Han characters the turn is Chinese, otherwise
// English.
func Detect(text string) Language {
	total := 0
	han := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.Is(unicode.Han, r) {
			han++
		}
	}
	if total == 0 {
		return LanguageEnglish
	}
	if float64(han)/float64(total) > chineseRatioThreshold {
		return LanguageChinese
	}
	return LanguageEnglish
}
