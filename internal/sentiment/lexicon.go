package sentiment

import (
	"context"
	"strings"
)

var (
	defaultPositive = []string{
		"楽し", "嬉し", "うれし", "幸せ", "最高", "良かった", "よかった", "好き",
		"感謝", "ありがと", "美味し", "おいし", "素敵", "面白", "笑",
		"happy", "glad", "great", "good", "love", "fun", "nice", "enjoy", "wonderful",
	}
	defaultNegative = []string{
		"悲し", "辛い", "つらい", "疲れ", "最悪", "嫌", "怒", "不安", "寂し",
		"さみし", "痛", "残念", "退屈", "泣",
		"sad", "bad", "tired", "angry", "hate", "awful", "terrible", "worried", "lonely",
	}
)

// LexiconClassifier scores text by counting positive and negative keywords.
// It needs no model and is deterministic, which makes it the development
// default and a convenient substitute in tests.
type LexiconClassifier struct {
	positive []string
	negative []string
}

// NewLexiconClassifier creates a classifier with the built-in Japanese and
// English keyword lists.
func NewLexiconClassifier() *LexiconClassifier {
	return &LexiconClassifier{
		positive: defaultPositive,
		negative: defaultNegative,
	}
}

// Classify scores the truncated text. The score is the Laplace-smoothed share
// of positive hits, so text without keywords scores 50 and is neutral.
func (c *LexiconClassifier) Classify(ctx context.Context, text string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	input, truncated := Truncate(text, MaxInputTokens)
	input = strings.ToLower(input)

	pos := countHits(input, c.positive)
	neg := countHits(input, c.negative)

	label := Neutral
	switch {
	case pos > neg:
		label = Positive
	case neg > pos:
		label = Negative
	}
	p := float64(pos+1) / float64(pos+neg+2)
	return Result{
		Label:     label,
		Score:     ScoreFromProbability(p),
		Truncated: truncated,
	}, nil
}

func countHits(text string, words []string) int {
	n := 0
	for _, w := range words {
		n += strings.Count(text, w)
	}
	return n
}
