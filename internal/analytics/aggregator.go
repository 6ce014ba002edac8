package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/kafka"
)

// latencyWindow bounds how many recent latencies feed the percentiles.
const latencyWindow = 10000

type AggregatedStats struct {
	TotalSearches     int64        `json:"total_searches"`
	ChampionSearches  int64        `json:"champion_searches"`
	FullSearches      int64        `json:"full_searches"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      int64        `json:"p50_latency_ms"`
	P95LatencyMs      int64        `json:"p95_latency_ms"`
	P99LatencyMs      int64        `json:"p99_latency_ms"`
	AvgCandidates     float64      `json:"avg_candidates"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
	IndexBuilds       int64        `json:"index_builds"`
	LastBuild         *IndexEvent  `json:"last_build,omitempty"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps running totals over search and index events. It can be
// fed by a Kafka consumer through HandleMessage or in-process by using it
// as a Collector's Publisher.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     int64
	championSearches  int64
	cacheHits         int64
	zeroResults       int64
	candidateSum      int64
	latencies         []int64
	next              int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	indexBuilds       int64
	lastBuild         *IndexEvent
	startTime         time.Time
	now               func() time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		now:               time.Now,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleMessage is a kafka.MessageHandler. Malformed or unknown events are
// logged and skipped so they do not block the partition.
func (a *Aggregator) HandleMessage(_ context.Context, msg kafka.Message) error {
	switch EventType(msg.Type) {
	case EventSearch:
		event, err := kafka.DecodeJSON[SearchEvent](msg.Value)
		if err != nil {
			a.logger.Error("failed to decode search event", "error", err)
			return nil
		}
		a.RecordSearch(event)
	case EventIndexBuilt:
		event, err := kafka.DecodeJSON[IndexEvent](msg.Value)
		if err != nil {
			a.logger.Error("failed to decode index event", "error", err)
			return nil
		}
		a.RecordIndex(event)
	default:
		a.logger.Warn("ignoring unknown analytics event", "type", msg.Type)
	}
	return nil
}

// PublishBatch records events directly, for deployments without Kafka.
func (a *Aggregator) PublishBatch(_ context.Context, events []kafka.Event) error {
	for _, e := range events {
		switch v := e.Value.(type) {
		case SearchEvent:
			a.RecordSearch(v)
		case IndexEvent:
			a.RecordIndex(v)
		default:
			data, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encoding %s event: %w", e.Type, err)
			}
			if err := a.HandleMessage(context.Background(), kafka.Message{Type: e.Type, Value: data}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Aggregator) RecordSearch(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalSearches++
	if event.ChampionMode {
		a.championSearches++
	}
	if event.CacheHit {
		a.cacheHits++
	}
	a.candidateSum += int64(event.Candidates)
	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % latencyWindow
	}
	a.queryCounts[event.Query]++
	if event.Returned == 0 {
		a.zeroResults++
		a.zeroResultQueries[event.Query]++
	}
}

func (a *Aggregator) RecordIndex(event IndexEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.indexBuilds++
	e := event
	a.lastBuild = &e
	a.logger.Info("index build recorded",
		"terms", event.Terms,
		"indexed_documents", event.IndexedDocuments,
		"pruned_terms", len(event.PrunedTerms),
	)
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:    a.totalSearches,
		ChampionSearches: a.championSearches,
		FullSearches:     a.totalSearches - a.championSearches,
		CacheHits:        a.cacheHits,
		CacheMisses:      a.totalSearches - a.cacheHits,
		ZeroResultCount:  a.zeroResults,
		IndexBuilds:      a.indexBuilds,
		LastBuild:        a.lastBuild,
	}
	if a.totalSearches > 0 {
		stats.AvgCandidates = float64(a.candidateSum) / float64(a.totalSearches)
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	elapsed := a.now().Sub(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
