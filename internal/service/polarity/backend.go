package polarity

import (
	"context"
	"fmt"

	"github.com/zhouzirui/convo-eval/internal/analysis/sentiment"
	"github.com/zhouzirui/convo-eval/internal/config"
	"github.com/zhouzirui/convo-eval/internal/observability"
)

// NewScorer picks the polarity backend named by backend. Asking for the LLM
// without Ark credentials logs a warning and keeps the lexicon; a configured
// model that fails to initialise is an error.
func NewScorer(ctx context.Context, ai config.AIConfig, backend string) (sentiment.Scorer, error) {
	logger := observability.WithComponent("polarity")

	switch backend {
	case "", config.SentimentLexicon:
		return sentiment.NewLexicon(), nil
	case config.SentimentLLM:
		if !ai.Enabled() {
			logger.Warn("llm sentiment requested but Ark credentials are missing, using lexicon")
			return sentiment.NewLexicon(), nil
		}
		chatModel, err := ai.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("init chat model: %w", err)
		}
		svc, err := NewService(ctx, chatModel)
		if err != nil {
			return nil, err
		}
		logger.WithField("model", ai.Model).Info("llm sentiment scorer enabled")
		return svc, nil
	default:
		return nil, fmt.Errorf("unknown sentiment backend %q", backend)
	}
}
