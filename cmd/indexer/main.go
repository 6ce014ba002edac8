package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	collectionPath := flag.String("collection", "", "override collection.path")
	publish := flag.Bool("publish", false, "publish an index_built event to kafka")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *collectionPath != "" {
		cfg.Collection.Source = config.SourceFile
		cfg.Collection.Path = *collectionPath
	}

	logger.Setup(cfg.Logging)
	slog.Info("starting index build",
		"source", cfg.Collection.Source,
		"prune_top_n", cfg.Index.PruneTopN,
		"champion_k", cfg.Index.ChampionK,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, closeSource, err := ingestion.OpenSource(ctx, cfg.Collection, cfg.Postgres)
	if err != nil {
		slog.Error("failed to open collection", "error", err)
		os.Exit(1)
	}
	docs, err := source.Load(ctx)
	closeSource()
	if err != nil {
		slog.Error("failed to load collection", "error", err)
		os.Exit(1)
	}

	engine := indexer.NewEngine(cfg.Index, tokenizer.New()).
		WithMetrics(metrics.New()).
		WithProgress(logger.Progress(logger.WithComponent("indexer"), time.Second))
	snap, err := engine.Build(ctx, docs)
	if err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}

	for _, ts := range snap.Pruned {
		slog.Info("pruned term", "term", ts.Term, "document_frequency", ts.DocumentFrequency)
	}

	event := analytics.NewIndexEvent(snap)
	if *publish {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		err := producer.Publish(ctx, kafka.Event{
			Key:   string(analytics.EventIndexBuilt),
			Type:  string(analytics.EventIndexBuilt),
			Value: event,
		})
		producer.Close()
		if err != nil {
			slog.Error("failed to publish index event", "error", err)
			os.Exit(1)
		}
		slog.Info("index event published", "topic", cfg.Kafka.Topics.AnalyticsEvents)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap.Stats); err != nil {
		slog.Error("failed to write stats", "error", err)
		os.Exit(1)
	}
}
