package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/searcher/router"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/newsrank/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"source", cfg.Collection.Source,
		"prune_top_n", cfg.Index.PruneTopN,
		"champion_k", cfg.Index.ChampionK,
		"champion_mode", cfg.Search.UseChampionLists,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	var (
		queryCache  *cache.QueryCache
		redisClient *pkgredis.Client
	)
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis).WithMetrics(m)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := analytics.NewAggregator()
	var collector *analytics.Collector
	if cfg.Analytics.Enabled {
		var publisher analytics.Publisher = aggregator
		if len(cfg.Kafka.Brokers) > 0 {
			topic := cfg.Kafka.Topics.AnalyticsEvents
			producer := kafka.NewProducer(cfg.Kafka, topic)
			defer producer.Close()
			publisher = producer

			consumer := kafka.NewConsumer(cfg.Kafka, topic, aggregator.HandleMessage)
			go func() {
				if err := consumer.Start(ctx); err != nil {
					slog.Error("analytics consumer error", "error", err)
				}
			}()
			slog.Info("analytics routed through kafka", "topic", topic, "brokers", cfg.Kafka.Brokers)
		}
		collector = analytics.NewCollector(publisher, cfg.Analytics.BufferSize)
		collector.Start(ctx)
		defer collector.Close()
	}

	tok := tokenizer.New()
	exec := executor.New(tok, cfg.Search).WithMetrics(m)

	go func() {
		snap, err := buildSnapshot(ctx, cfg, tok, m)
		if err != nil {
			slog.Error("index build failed", "error", err)
			stop()
			return
		}
		exec.Load(snap)
		if queryCache != nil {
			if _, err := queryCache.Invalidate(ctx); err != nil {
				slog.Warn("stale cache entries kept", "error", err)
			}
		}
		if collector != nil {
			collector.TrackIndex(analytics.NewIndexEvent(snap))
		}
	}()

	checker := health.NewChecker()
	checker.Register("index", health.Critical(func(context.Context) error {
		if !exec.Ready() {
			return errors.New("index is still building")
		}
		return nil
	}))
	if redisClient != nil {
		checker.Register("redis", health.Optional(redisClient.Ping))
	}

	h := handler.New(exec, queryCache, collector, cfg.Search).WithMetrics(m)
	routes := router.New(router.Deps{
		Search:    h,
		Analytics: analytics.NewHandler(aggregator, collector),
		Health:    checker,
		Metrics:   m,
		Timeout:   cfg.Server.WriteTimeout,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      routes,
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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}

func buildSnapshot(ctx context.Context, cfg *config.Config, tok tokenizer.Tokenizer, m *metrics.Metrics) (*indexer.Snapshot, error) {
	source, closeSource, err := ingestion.OpenSource(ctx, cfg.Collection, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	defer closeSource()

	docs, err := source.Load(ctx)
	if err != nil {
		return nil, err
	}

	engine := indexer.NewEngine(cfg.Index, tok).
		WithMetrics(m).
		WithProgress(logger.Progress(logger.WithComponent("indexer"), 2*time.Second))
	return engine.Build(ctx, docs)
}
