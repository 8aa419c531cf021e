package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/convo-eval/internal/handler/conversation"
	"github.com/zhouzirui/convo-eval/internal/handler/evaluation"
	"github.com/zhouzirui/convo-eval/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/convo-eval/internal/middleware"
	"github.com/zhouzirui/convo-eval/internal/observability"
	conversationService "github.com/zhouzirui/convo-eval/internal/service/conversation"
	evaluationService "github.com/zhouzirui/convo-eval/internal/service/evaluation"
	"github.com/zhouzirui/convo-eval/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(convSvc *conversationService.Service, evalSvc *evaluationService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Method(http.MethodGet, "/debug/metrics", observability.MetricsHandler())

	r.Route("/api", func(api chi.Router) {
		evaluation.New(evalSvc).RegisterRoutes(api)
		conversation.New(convSvc, evalSvc).RegisterRoutes(api)
		ws.New(convSvc, evalSvc).RegisterRoutes(api)
	})

	return r
}
