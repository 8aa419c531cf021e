package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/convo-eval/internal/config"
	"github.com/zhouzirui/convo-eval/internal/handler"
	"github.com/zhouzirui/convo-eval/internal/observability"
	"github.com/zhouzirui/convo-eval/internal/service/conversation"
	"github.com/zhouzirui/convo-eval/internal/service/evaluation"
	"github.com/zhouzirui/convo-eval/internal/service/polarity"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := observability.WithComponent("main")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Warnf("failed to load .env file: %v", err)
		logger.Info("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load configuration: %v", err)
	}

	if cfg.Log.JSON {
		observability.UseJSON()
	}
	if err := observability.SetLevel(cfg.Log.Level); err != nil {
		logger.Warnf("invalid LOG_LEVEL %q, keeping info: %v", cfg.Log.Level, err)
	}

	scorer, err := polarity.NewScorer(ctx, cfg.AI, cfg.Eval.SentimentBackend)
	if err != nil {
		logger.Fatalf("failed to initialize sentiment backend: %v", err)
	}

	evalService, err := evaluation.NewService(evaluation.OptionsFromConfig(cfg.Eval, scorer))
	if err != nil {
		logger.Fatalf("failed to initialize evaluation service: %v", err)
	}
	conversationService := conversation.NewService()

	logger.WithField("recovery_window", cfg.Eval.RecoveryWindow).
		WithField("ngram_order", cfg.Eval.NGramOrder).
		WithField("sentiment_backend", cfg.Eval.SentimentBackend).
		Info("evaluation service initialized")

	router := handler.NewRouter(conversationService, evalService)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	logger := observability.WithComponent("main")

	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Infof("conversation evaluator listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		logger.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
