package sentiment

import (
	"strings"
	"unicode"
)

// Truncate keeps the leading maxTokens tokens of text and reports whether
// anything was dropped. Tokens approximate the model's tokenizer: every CJK
// character and every punctuation or symbol character is one token, any
// other run of non-space characters is one token.
//
// Callers that want the whole entry scored should summarize text to fit
// before classifying.
func Truncate(text string, maxTokens int) (string, bool) {
	end, total := scan(text, maxTokens)
	if total <= maxTokens {
		return text, false
	}
	return strings.TrimRightFunc(text[:end], unicode.IsSpace), true
}

// CountTokens returns the number of tokens Truncate would see in text.
func CountTokens(text string) int {
	_, total := scan(text, -1)
	return total
}

// scan counts tokens in text. When limit >= 0 it stops at the first token
// past limit and returns that token's byte offset.
func scan(text string, limit int) (end, count int) {
	inWord := false
	for i, r := range text {
		switch {
		case unicode.IsSpace(r):
			inWord = false
			continue
		case isCJK(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			inWord = false
		case inWord:
			continue
		default:
			inWord = true
		}
		count++
		if limit >= 0 && count > limit {
			return i, count
		}
	}
	return len(text), count
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}
