// Package sentiment rates the overall tone of an agent's turns by normalizing
// the polarity reported by a pluggable Scorer into (0, 1).
package sentiment

import (
	"context"
	"math"
	"strings"

	"github.com/zhouzirui/convo-eval/internal/model/transcript"
)

// Scorer reports the polarity of a text, typically in [-1, 1] where negative
// is unfavorable. An empty text must yield a defined polarity.
type Scorer interface {
	Polarity(ctx context.Context, text string) (float64, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, text string) (float64, error)

// Polarity calls f.
func (f ScorerFunc) Polarity(ctx context.Context, text string) (float64, error) {
	return f(ctx, text)
}

// Normalize maps a polarity onto (0, 1) with the logistic function; 0 maps to 0.5.
func Normalize(polarity float64) float64 {
	return 1 / (1 + math.Exp(-polarity))
}

// Score joins the utterances with single spaces, asks scorer for the polarity
// of the result and normalizes it. Scorer errors are returned as is.
func Score(ctx context.Context, scorer Scorer, utterances []string) (float64, error) {
	normalized, _, err := scoreUtterances(ctx, scorer, utterances)
	return normalized, err
}

func scoreUtterances(ctx context.Context, scorer Scorer, utterances []string) (score, polarity float64, err error) {
	polarity, err = scorer.Polarity(ctx, strings.Join(utterances, " "))
	if err != nil {
		return 0, 0, err
	}
	return Normalize(polarity), polarity, nil
}

// FromTranscript scores the agent turns of t and also returns the raw polarity.
func FromTranscript(ctx context.Context, scorer Scorer, t transcript.Transcript) (score, polarity float64, err error) {
	return scoreUtterances(ctx, scorer, t.AgentUtterances())
}
