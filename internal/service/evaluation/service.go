package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/zhouzirui/convo-eval/internal/analysis/recovery"
	"github.com/zhouzirui/convo-eval/internal/analysis/sentiment"
	"github.com/zhouzirui/convo-eval/internal/analysis/similarity"
	"github.com/zhouzirui/convo-eval/internal/config"
	"github.com/zhouzirui/convo-eval/internal/model/transcript"
	"github.com/zhouzirui/convo-eval/internal/observability"
)

// Result is the outcome of one metric. Value is normalized to [0, 1] with
// higher meaning better; RawValue is what the metric itself measures.
type Result struct {
	Name     MetricName `json:"name"`
	Value    float64    `json:"value"`
	RawValue float64    `json:"rawValue"`
	Weight   float64    `json:"weight"`
}

// MetricInfo describes a registered metric.
type MetricInfo struct {
	Name   MetricName `json:"name"`
	Weight float64    `json:"weight"`
}

// Options tune the metric calculators.
type Options struct {
	RecoveryWindow time.Duration
	NGramOrder     int
	Scorer         sentiment.Scorer
	// Weights override the default equal weighting. Metrics left out weigh 0.
	Weights map[MetricName]float64
	Bounds  map[MetricName]config.Bounds
}

// DefaultOptions uses a five minute recovery window, unigrams and the
// lexicon polarity scorer.
func DefaultOptions() Options {
	return Options{
		RecoveryWindow: recovery.DefaultWindow,
		NGramOrder:     similarity.DefaultOrder,
		Scorer:         sentiment.NewLexicon(),
	}
}

// OptionsFromConfig converts loaded configuration. scorer may be nil to keep
// the lexicon.
func OptionsFromConfig(cfg config.EvalConfig, scorer sentiment.Scorer) Options {
	opts := DefaultOptions()
	if cfg.RecoveryWindow > 0 {
		opts.RecoveryWindow = cfg.RecoveryWindow
	}
	if cfg.NGramOrder > 0 {
		opts.NGramOrder = cfg.NGramOrder
	}
	if scorer != nil {
		opts.Scorer = scorer
	}
	if cfg.Metrics != nil {
		if len(cfg.Metrics.Weights) > 0 {
			opts.Weights = make(map[MetricName]float64, len(cfg.Metrics.Weights))
			for name, w := range cfg.Metrics.Weights {
				opts.Weights[MetricName(name)] = w
			}
		}
		if len(cfg.Metrics.Normalization) > 0 {
			opts.Bounds = make(map[MetricName]config.Bounds, len(cfg.Metrics.Normalization))
			for name, b := range cfg.Metrics.Normalization {
				opts.Bounds[MetricName(name)] = b
			}
		}
	}
	return opts
}

// Service computes metrics over transcripts. It holds no per-transcript
// state and is safe for concurrent use.
type Service struct {
	opts    Options
	weights map[MetricName]float64
	bounds  map[MetricName]config.Bounds
}

// NewService validates opts and resolves weights and normalization bounds.
func NewService(opts Options) (*Service, error) {
	if opts.RecoveryWindow <= 0 {
		return nil, fmt.Errorf("recovery window must be positive, got %s", opts.RecoveryWindow)
	}
	if opts.NGramOrder < 1 {
		return nil, similarity.ErrInvalidOrder
	}
	if opts.Scorer == nil {
		opts.Scorer = sentiment.NewLexicon()
	}

	weights := make(map[MetricName]float64, len(order))
	if len(opts.Weights) == 0 {
		for _, name := range order {
			weights[name] = 1 / float64(len(order))
		}
	} else {
		for name, w := range opts.Weights {
			if _, err := ParseMetricName(string(name)); err != nil {
				return nil, fmt.Errorf("weights: %w", err)
			}
			if w < 0 {
				return nil, fmt.Errorf("weights: negative weight for %s", name)
			}
			weights[name] = w
		}
	}

	bounds := make(map[MetricName]config.Bounds, len(defaultBounds))
	for name, b := range defaultBounds {
		bounds[name] = b
	}
	for name, b := range opts.Bounds {
		if _, ok := defaultBounds[name]; !ok {
			return nil, fmt.Errorf("normalization: %w: %q has no bounds", ErrUnknownMetric, name)
		}
		if b.Worst == b.Best {
			return nil, fmt.Errorf("normalization: bounds for %s must differ", name)
		}
		bounds[name] = b
	}

	return &Service{opts: opts, weights: weights, bounds: bounds}, nil
}

// Metrics lists the registered metrics with their weights.
func (s *Service) Metrics() []MetricInfo {
	out := make([]MetricInfo, 0, len(order))
	for _, name := range order {
		out = append(out, MetricInfo{Name: name, Weight: s.weights[name]})
	}
	return out
}

// Evaluate computes a single metric.
func (s *Service) Evaluate(ctx context.Context, t transcript.Transcript, name MetricName) (Result, error) {
	calc, ok := calculators[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}

	started := time.Now()
	raw, value, err := calc(ctx, s, t)
	observability.RecordEvaluation(string(name), time.Since(started), err)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", name, err)
	}

	observability.FromContext(ctx, "evaluation").
		WithField("metric", name).
		WithField("raw", raw).
		WithField("value", value).
		Debug("metric computed")

	return Result{Name: name, Value: value, RawValue: raw, Weight: s.weights[name]}, nil
}

// EvaluateEach computes every metric in registry order and hands each result
// to fn as soon as it is ready. An error from fn stops the run.
func (s *Service) EvaluateEach(ctx context.Context, t transcript.Transcript, fn func(Result) error) error {
	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := s.Evaluate(ctx, t, name)
		if err != nil {
			return err
		}
		if err := fn(result); err != nil {
			return err
		}
	}
	return nil
}

// EvaluateAll computes every registered metric.
func (s *Service) EvaluateAll(ctx context.Context, t transcript.Transcript) ([]Result, error) {
	results := make([]Result, 0, len(order))
	err := s.EvaluateEach(ctx, t, func(r Result) error {
		results = append(results, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) normalize(name MetricName, raw float64) float64 {
	return MinMax(raw, s.bounds[name])
}
