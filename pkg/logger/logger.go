// Package logger configures the process-wide slog logger and carries
// request-scoped loggers through contexts.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/config"
)

type contextKey struct{}

func Setup(cfg config.LoggingConfig) {
	SetupWriter(os.Stdout, cfg)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, cfg config.LoggingConfig) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKey{}, requestID)
}

func RequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(contextKey{}).(string)
	return requestID
}

func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if requestID := RequestID(ctx); requestID != "" {
		logger = logger.With("request_id", requestID)
	}
	return logger
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// Progress returns a build-progress observer that logs each stage at most
// once per interval, plus always on the final step.
func Progress(log *slog.Logger, interval time.Duration) func(stage string, done, total int) {
	var (
		mu   sync.Mutex
		last = make(map[string]time.Time)
	)
	return func(stage string, done, total int) {
		mu.Lock()
		now := time.Now()
		due := done >= total || now.Sub(last[stage]) >= interval
		if due {
			last[stage] = now
		}
		mu.Unlock()
		if !due {
			return
		}
		var pct float64
		if total > 0 {
			pct = float64(done) / float64(total) * 100
		}
		log.Info("build progress",
			"stage", stage,
			"done", done,
			"total", total,
			"percent", int(pct),
		)
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
