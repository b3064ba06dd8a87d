// Package sentiment scores diary text. A Classifier turns text into a
// categorical label and a 0-100 positivity score; the model behind it is
// interchangeable.
package sentiment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Label is the categorical sentiment of a text.
type Label string

const (
	Positive Label = "positive"
	Neutral  Label = "neutral"
	Negative Label = "negative"
)

// Valid reports whether l belongs to the fixed label set.
func (l Label) Valid() bool {
	switch l {
	case Positive, Neutral, Negative:
		return true
	}
	return false
}

const (
	// TokenBudget is the model's maximum sequence length, special tokens included.
	TokenBudget = 30
	// MaxInputTokens is the number of text tokens that reach the model.
	// Anything after it is dropped before scoring; see Truncate.
	MaxInputTokens = TokenBudget - 2
)

// Result is the outcome of a classification.
type Result struct {
	Label Label `json:"label"`
	// Score is the probability of the positive class scaled to 0..100.
	Score int `json:"score"`
	// Truncated is set when only the leading MaxInputTokens tokens were scored.
	Truncated bool `json:"truncated"`
}

// Classifier scores text. Implementations must honor ctx cancellation.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// ScoreFromProbability converts a positive-class probability to a score.
func ScoreFromProbability(p float64) int {
	if math.IsNaN(p) || p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return int(math.Round(p * 100))
}

// fromDistribution picks the most probable label and scores the positive class.
func fromDistribution(probs map[string]float64) (Result, error) {
	var (
		best     Label
		bestProb = -1.0
		positive = -1.0
	)
	for name, p := range probs {
		label := Label(strings.ToLower(strings.TrimSpace(name)))
		if label == Positive {
			positive = p
		}
		if p > bestProb {
			best, bestProb = label, p
		}
	}
	if positive < 0 {
		return Result{}, fmt.Errorf("model output has no %q label", Positive)
	}
	if !best.Valid() {
		return Result{}, fmt.Errorf("model returned unknown label %q", best)
	}
	return Result{Label: best, Score: ScoreFromProbability(positive)}, nil
}

type timeoutClassifier struct {
	next    Classifier
	timeout time.Duration
}

// WithTimeout bounds every call to c by d.
func WithTimeout(c Classifier, d time.Duration) Classifier {
	return &timeoutClassifier{next: c, timeout: d}
}

func (t *timeoutClassifier) Classify(ctx context.Context, text string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Classify(ctx, text)
}
