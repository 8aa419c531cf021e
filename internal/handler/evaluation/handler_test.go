package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/convo-eval/internal/analysis/sentiment"
	evaluationService "github.com/zhouzirui/convo-eval/internal/service/evaluation"
)

const sampleTranscript = `{"Conversation": {"Messages": [
	{"message": {"user": "USER", "timestamp": "2024-05-02T14:00:00Z", "text": "my parcel is late"}},
	{"message": {"user": "AGENT", "timestamp": "2024-05-02T14:00:20Z", "text": "sorry, let me check"}},
	{"message": {"user": "AGENT", "timestamp": "2024-05-02T14:01:00Z", "text": "it arrives tomorrow"}}
]}}`

func setupRouter(t *testing.T, scorer sentiment.Scorer) *chi.Mux {
	t.Helper()
	opts := evaluationService.DefaultOptions()
	if scorer != nil {
		opts.Scorer = scorer
	}
	svc, err := evaluationService.NewService(opts)
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	r := chi.NewRouter()
	New(svc).RegisterRoutes(r)
	return r
}

func TestEvaluateAllMetrics(t *testing.T) {
	r := setupRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(sampleTranscript))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var summary evaluationService.Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(summary.Results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(summary.Results))
	}
	if summary.Results[0].Name != evaluationService.RecoveryRate || summary.Results[0].Value != 1.0 {
		t.Fatalf("unexpected recovery result: %+v", summary.Results[0])
	}
}

func TestEvaluateSingleMetric(t *testing.T) {
	r := setupRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/evaluate?metric=similarity", strings.NewReader(sampleTranscript))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var summary evaluationService.Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(summary.Results) != 1 || summary.Results[0].Name != evaluationService.Similarity {
		t.Fatalf("unexpected results: %+v", summary.Results)
	}
	// "sorry, let me check" and "it arrives tomorrow" share no tokens.
	if summary.Results[0].RawValue != 0 {
		t.Fatalf("expected raw similarity 0, got %v", summary.Results[0].RawValue)
	}
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	r := setupRouter(t, nil)

	tests := []struct {
		name string
		url  string
		body string
	}{
		{"unknown metric", "/evaluate?metric=success", sampleTranscript},
		{"not json", "/evaluate", "hello"},
		{"bad sender", "/evaluate", `[{"sender": "bot", "timestamp": "2024-05-02T14:00:00Z", "text": "x"}]`},
		{"missing timestamp", "/evaluate", `[{"sender": "User", "text": "x"}]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.url, strings.NewReader(tc.body))
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)

			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.Code)
			}
		})
	}
}

func TestEvaluateScorerFailure(t *testing.T) {
	failing := sentiment.ScorerFunc(func(context.Context, string) (float64, error) {
		return 0, errors.New("backend down")
	})
	r := setupRouter(t, failing)

	req := httptest.NewRequest(http.MethodPost, "/evaluate?metric=sentiment_analysis", strings.NewReader(sampleTranscript))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}

func TestListMetrics(t *testing.T) {
	r := setupRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Metrics []evaluationService.MetricInfo `json:"metrics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Metrics) != 5 {
		t.Fatalf("expected 5 metrics, got %d", len(body.Metrics))
	}
}
