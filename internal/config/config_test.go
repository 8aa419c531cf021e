package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEvalEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "EVAL_RECOVERY_WINDOW", "EVAL_NGRAM_ORDER", "EVAL_SENTIMENT_BACKEND",
		"EVAL_METRICS_FILE", "LOG_LEVEL", "LOG_JSON", "ARK_API_KEY", "Model",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEvalEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Eval.RecoveryWindow)
	assert.Equal(t, 1, cfg.Eval.NGramOrder)
	assert.Equal(t, SentimentLexicon, cfg.Eval.SentimentBackend)
	assert.Nil(t, cfg.Eval.Metrics)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.AI.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	clearEvalEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("EVAL_RECOVERY_WINDOW", "90s")
	t.Setenv("EVAL_NGRAM_ORDER", "2")
	t.Setenv("EVAL_SENTIMENT_BACKEND", "LLM")
	t.Setenv("LOG_JSON", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 90*time.Second, cfg.Eval.RecoveryWindow)
	assert.Equal(t, 2, cfg.Eval.NGramOrder)
	assert.Equal(t, SentimentLLM, cfg.Eval.SentimentBackend)
	assert.True(t, cfg.Log.JSON)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"EVAL_RECOVERY_WINDOW":   "-1s",
		"EVAL_NGRAM_ORDER":       "0",
		"EVAL_SENTIMENT_BACKEND": "vader",
		"PORT":                   "80 80",
		"LOG_JSON":               "maybe",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEvalEnv(t)
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadMetricsFile(t *testing.T) {
	clearEvalEnv(t)
	path := filepath.Join(t.TempDir(), "metrics.yaml")
	doc := `
weights:
  recovery_rate: 0.5
  similarity: 0.25
normalization:
  response_time:
    worst: 30000
    best: 0
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	t.Setenv("EVAL_METRICS_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.Eval.Metrics)

	assert.Equal(t, 0.5, cfg.Eval.Metrics.Weights["recovery_rate"])
	assert.Equal(t, Bounds{Worst: 30000, Best: 0}, cfg.Eval.Metrics.Normalization["response_time"])
}

func TestLoadMetricsFileValidation(t *testing.T) {
	dir := t.TempDir()

	negative := filepath.Join(dir, "negative.yaml")
	require.NoError(t, os.WriteFile(negative, []byte("weights:\n  similarity: -1\n"), 0o600))
	_, err := LoadMetricsFile(negative)
	assert.Error(t, err)

	flat := filepath.Join(dir, "flat.yaml")
	require.NoError(t, os.WriteFile(flat, []byte("normalization:\n  message_count: {worst: 5, best: 5}\n"), 0o600))
	_, err = LoadMetricsFile(flat)
	assert.Error(t, err)

	_, err = LoadMetricsFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
