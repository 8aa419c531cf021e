package evaluation

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/convo-eval/internal/model/transcript"
	"github.com/zhouzirui/convo-eval/internal/observability"
	evaluationService "github.com/zhouzirui/convo-eval/internal/service/evaluation"
	"github.com/zhouzirui/convo-eval/pkg/utils"
)

// Handler 评估接口的HTTP处理器，直接对请求体中的对话打分。
type Handler struct {
	evalSvc *evaluationService.Service
}

// New 创建评估处理器
func New(evalSvc *evaluationService.Service) *Handler {
	return &Handler{evalSvc: evalSvc}
}

// RegisterRoutes 注册评估相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/evaluate", h.handleEvaluate)
	r.Get("/metrics", h.handleListMetrics)
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	utils.LimitBody(w, r)

	t, err := transcript.Decode(r.Body)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := Run(r.Context(), h.evalSvc, t, r.URL.Query().Get("metric"))
	if err != nil {
		observability.FromContext(r.Context(), "evaluation").WithError(err).Warn("evaluate request failed")
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleListMetrics(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{"metrics": h.evalSvc.Metrics()})
}

// Run evaluates one named metric, or all of them when metric is empty.
func Run(ctx context.Context, svc *evaluationService.Service, t transcript.Transcript, metric string) (evaluationService.Summary, error) {
	if metric == "" {
		results, err := svc.EvaluateAll(ctx, t)
		if err != nil {
			return evaluationService.Summary{}, err
		}
		return evaluationService.Summarize(results), nil
	}

	name, err := evaluationService.ParseMetricName(metric)
	if err != nil {
		return evaluationService.Summary{}, err
	}
	result, err := svc.Evaluate(ctx, t, name)
	if err != nil {
		return evaluationService.Summary{}, err
	}
	return evaluationService.Summarize([]evaluationService.Result{result}), nil
}

// StatusFor maps evaluation errors onto HTTP status codes. Anything it does
// not recognise is a failure of the polarity backend or the server itself.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, evaluationService.ErrUnknownMetric):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
