package evaluation

import (
	"context"
	"errors"
	"fmt"

	"github.com/zhouzirui/convo-eval/internal/analysis/recovery"
	"github.com/zhouzirui/convo-eval/internal/analysis/sentiment"
	"github.com/zhouzirui/convo-eval/internal/analysis/similarity"
	"github.com/zhouzirui/convo-eval/internal/analysis/timing"
	"github.com/zhouzirui/convo-eval/internal/config"
	"github.com/zhouzirui/convo-eval/internal/model/transcript"
)

// MetricName identifies a metric in requests, weights and results.
type MetricName string

const (
	RecoveryRate MetricName = "recovery_rate"
	Similarity   MetricName = "similarity"
	Sentiment    MetricName = "sentiment_analysis"
	ResponseTime MetricName = "response_time"
	MessageCount MetricName = "message_count"
)

// ErrUnknownMetric is returned for names outside the registry.
var ErrUnknownMetric = errors.New("unknown metric")

// ParseMetricName validates a user supplied metric name.
func ParseMetricName(raw string) (MetricName, error) {
	name := MetricName(raw)
	for _, known := range order {
		if known == name {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, raw)
}

// order is the registry order used by EvaluateAll and Metrics.
var order = []MetricName{RecoveryRate, Similarity, Sentiment, ResponseTime, MessageCount}

// defaultBounds anchor min-max normalization for metrics whose raw value is
// not already a [0, 1] score.
var defaultBounds = map[MetricName]config.Bounds{
	ResponseTime: {Worst: 60000, Best: 0},
	MessageCount: {Worst: 50, Best: 0},
}

// calculator returns the raw metric value and its normalized counterpart.
type calculator func(ctx context.Context, s *Service, t transcript.Transcript) (raw, value float64, err error)

var calculators = map[MetricName]calculator{
	RecoveryRate: func(_ context.Context, s *Service, t transcript.Transcript) (float64, float64, error) {
		rate := recovery.Rate(t, s.opts.RecoveryWindow)
		return rate, rate, nil
	},
	Similarity: func(_ context.Context, s *Service, t transcript.Transcript) (float64, float64, error) {
		avg, err := similarity.FromTranscript(t, s.opts.NGramOrder)
		if err != nil {
			return 0, 0, err
		}
		return avg, clamp01(1 - avg), nil
	},
	Sentiment: func(ctx context.Context, s *Service, t transcript.Transcript) (float64, float64, error) {
		score, polarity, err := sentiment.FromTranscript(ctx, s.opts.Scorer, t)
		if err != nil {
			return 0, 0, err
		}
		return polarity, score, nil
	},
	ResponseTime: func(_ context.Context, s *Service, t transcript.Transcript) (float64, float64, error) {
		raw := float64(timing.AverageResponseTime(t).Milliseconds())
		return raw, s.normalize(ResponseTime, raw), nil
	},
	MessageCount: func(_ context.Context, s *Service, t transcript.Transcript) (float64, float64, error) {
		raw := float64(timing.MessageCount(t))
		return raw, s.normalize(MessageCount, raw), nil
	},
}

// MinMax maps raw onto [0, 1] so that Worst becomes 0 and Best becomes 1.
// Values beyond either anchor are clamped.
func MinMax(raw float64, b config.Bounds) float64 {
	if b.Best == b.Worst {
		return 0
	}
	return clamp01((raw - b.Worst) / (b.Best - b.Worst))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
