package conversation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	evaluationHandler "github.com/zhouzirui/convo-eval/internal/handler/evaluation"
	"github.com/zhouzirui/convo-eval/internal/model/transcript"
	"github.com/zhouzirui/convo-eval/internal/observability"
	conversationService "github.com/zhouzirui/convo-eval/internal/service/conversation"
	evaluationService "github.com/zhouzirui/convo-eval/internal/service/evaluation"
	"github.com/zhouzirui/convo-eval/pkg/utils"
)

// Handler 对话存储与评估的HTTP处理器
type Handler struct {
	convSvc *conversationService.Service
	evalSvc *evaluationService.Service
}

// New 创建对话处理器
func New(convSvc *conversationService.Service, evalSvc *evaluationService.Service) *Handler {
	return &Handler{convSvc: convSvc, evalSvc: evalSvc}
}

// RegisterRoutes 注册对话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/conversations", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Post("/import", h.handleImport)
		r.Post("/{conversationID}/messages", h.handleAppend)
		r.Get("/{conversationID}/messages", h.handleTranscript)
		r.Get("/{conversationID}/metrics", h.handleMetrics)
		r.Get("/{conversationID}/metrics/stream", h.handleMetricsStream)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	utils.LimitBody(w, r)

	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.convSvc.CreateConversation(r.Context(), payload.Title)
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, conv)
}

// handleImport 接收完整的对话导出文件，标题通过 ?title= 传入。
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	utils.LimitBody(w, r)

	t, err := transcript.Decode(r.Body)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.convSvc.ImportTranscript(r.Context(), r.URL.Query().Get("title"), t)
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	observability.FromContext(r.Context(), "conversation").
		WithField("conversation_id", conv.ID).
		WithField("messages", conv.MessageCount).
		Info("transcript imported")

	utils.RespondJSON(w, http.StatusCreated, conv)
}

func (h *Handler) handleAppend(w http.ResponseWriter, r *http.Request) {
	utils.LimitBody(w, r)

	var rec transcript.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := rec.ToMessage()
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.convSvc.AppendMessage(r.Context(), chi.URLParam(r, "conversationID"), msg)
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, conv)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	conv, err := h.convSvc.GetConversation(r.Context(), conversationID)
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}
	t, err := h.convSvc.LoadTranscript(r.Context(), conversationID)
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}
	if t == nil {
		t = transcript.Transcript{}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"conversation": conv,
		"messages":     t,
	})
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	t, err := h.convSvc.LoadTranscript(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	summary, err := evaluationHandler.Run(r.Context(), h.evalSvc, t, r.URL.Query().Get("metric"))
	if err != nil {
		observability.FromContext(r.Context(), "conversation").WithError(err).Warn("evaluation failed")
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, summary)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, conversationService.ErrConversationNotFound):
		return http.StatusNotFound
	case errors.Is(err, conversationService.ErrTitleTooLong):
		return http.StatusBadRequest
	default:
		return evaluationHandler.StatusFor(err)
	}
}
