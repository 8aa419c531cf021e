package observability

import (
	"context"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Logger returns the process-wide logger.
func Logger() *logrus.Logger {
	return logger
}

// SetLevel adjusts verbosity, e.g. "debug" or "warn". An empty level keeps the current one.
func SetLevel(level string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		return nil
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(parsed)
	return nil
}

// UseJSON switches the output to one JSON object per line.
func UseJSON() {
	logger.SetFormatter(&logrus.JSONFormatter{})
}

// WithComponent tags entries with the subsystem emitting them.
func WithComponent(name string) *logrus.Entry {
	return logger.WithField("component", name)
}

// FromContext adds the chi request id when ctx carries one.
func FromContext(ctx context.Context, component string) *logrus.Entry {
	entry := WithComponent(component)
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		entry = entry.WithField("request_id", reqID)
	}
	return entry
}
