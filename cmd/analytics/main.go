// Command analytics runs the analytics aggregator as its own service.
//
// It consumes search and index-build events from Kafka, aggregates them in
// memory and serves GET /api/v1/analytics. Searchers publish to the same
// topic when analytics is enabled and Kafka brokers are configured.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 8090, "HTTP port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging)
	slog.Info("starting analytics service", "port", *port, "topic", cfg.Kafka.Topics.AnalyticsEvents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A separate group so the searchers' own aggregators keep receiving
	// every event as well.
	kafkaCfg := cfg.Kafka
	kafkaCfg.ConsumerGroup += "-analytics"

	aggregator := analytics.NewAggregator()
	consumer := kafka.NewConsumer(kafkaCfg, cfg.Kafka.Topics.AnalyticsEvents, aggregator.HandleMessage)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()

	checker := health.NewChecker()
	checker.Register("kafka", health.Critical(func(ctx context.Context) error {
		return kafka.Ping(ctx, cfg.Kafka.Brokers)
	}))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator, nil).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
