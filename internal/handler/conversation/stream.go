package conversation

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/convo-eval/internal/observability"
	evaluationService "github.com/zhouzirui/convo-eval/internal/service/evaluation"
	"github.com/zhouzirui/convo-eval/pkg/utils"
)

// handleMetricsStream 以SSE逐个推送指标结果，最后发送汇总。
// 每个指标仍只在完整对话上计算一次。
func (h *Handler) handleMetricsStream(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	t, err := h.convSvc.LoadTranscript(r.Context(), conversationID)
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	defer observability.TrackStream("sse")()
	logger := observability.FromContext(r.Context(), "sse").WithField("conversation_id", conversationID)
	logger.Debug("opening metrics stream")

	results := make([]evaluationService.Result, 0, len(h.evalSvc.Metrics()))
	err = h.evalSvc.EvaluateEach(r.Context(), t, func(result evaluationService.Result) error {
		results = append(results, result)
		return utils.SendSSEEvent(w, flusher, "metric", result)
	})
	if err != nil {
		logger.WithError(err).Warn("metrics stream aborted")
		if sendErr := utils.SendSSEEvent(w, flusher, "error", map[string]string{"error": err.Error()}); sendErr != nil {
			logger.WithError(sendErr).Debug("client gone before error event")
		}
		return
	}

	if err := utils.SendSSEEvent(w, flusher, "summary", evaluationService.Summarize(results)); err != nil {
		logger.WithError(err).Debug("client gone before summary")
	}
}
