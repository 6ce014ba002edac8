// Package handler exposes the search service over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/newsrank/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/metrics"
)

type SearchExecutor interface {
	Execute(ctx context.Context, plan *parser.QueryPlan, limit int, useChampions bool) (*executor.SearchResult, error)
	Snapshot() *indexer.Snapshot
	Tokenizer() tokenizer.Tokenizer
}

type Handler struct {
	executor  SearchExecutor
	cache     *cache.QueryCache
	collector *analytics.Collector
	cfg       config.SearchConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New builds the handler. queryCache and collector may be nil.
func New(exec SearchExecutor, queryCache *cache.QueryCache, collector *analytics.Collector, cfg config.SearchConfig) *Handler {
	return &Handler{
		executor:  exec,
		cache:     queryCache,
		collector: collector,
		cfg:       cfg,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

func (h *Handler) WithMetrics(m *metrics.Metrics) *Handler {
	h.metrics = m
	return h
}

// Search handles GET /api/v1/search?q=&limit=&champions=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	if len(query) > parser.MaxQueryLength {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("query exceeds %d bytes", parser.MaxQueryLength))
		return
	}

	limit := h.cfg.DefaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, h.cfg.MaxResults)
	}

	champions := h.cfg.UseChampionLists
	if v := r.URL.Query().Get("champions"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "champions must be a boolean")
			return
		}
		champions = parsed
	}

	if h.executor.Snapshot() == nil {
		h.writeError(w, http.StatusServiceUnavailable, "index is still building")
		return
	}

	plan := parser.Parse(query, h.executor.Tokenizer())

	var (
		result   *executor.SearchResult
		err      error
		cacheHit bool
	)
	if h.cache != nil && len(plan.Terms) > 0 {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, plan, limit, champions, func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, plan, limit, champions)
		})
	} else {
		result, err = h.executor.Execute(ctx, plan, limit, champions)
	}

	mode := metrics.Mode(champions)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("search failed", "query", query, "mode", mode, "status", status, "error", err)
		h.writeError(w, status, searchErrorMessage(err))
		return
	}

	elapsed := time.Since(start)
	if h.metrics != nil {
		cacheStatus := "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
		h.metrics.SearchLatency.WithLabelValues(mode, cacheStatus).Observe(elapsed.Seconds())
	}

	log.Info("search completed",
		"query", query,
		"mode", mode,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", elapsed.Milliseconds(),
	)

	if h.collector != nil {
		h.collector.TrackSearch(analytics.SearchEvent{
			Query:        query,
			Terms:        plan.Terms,
			ChampionMode: champions,
			Candidates:   result.TotalHits,
			Returned:     len(result.Results),
			LatencyMs:    elapsed.Milliseconds(),
			CacheHit:     cacheHit,
			Timestamp:    time.Now().UTC(),
			RequestID:    logger.RequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, result)
}

func searchErrorMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrTimeout):
		return "search timed out"
	case errors.Is(err, apperrors.ErrIndexNotReady):
		return "index is still building"
	default:
		return "search failed"
	}
}

type indexStatsResponse struct {
	indexer.BuildStats
	Pruned []index.TermStat `json:"pruned"`
}

// IndexStats handles GET /api/v1/index/stats.
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	snap := h.executor.Snapshot()
	if snap == nil {
		h.writeError(w, http.StatusServiceUnavailable, "index is still building")
		return
	}
	pruned := snap.Pruned
	if pruned == nil {
		pruned = []index.TermStat{}
	}
	h.writeJSON(w, http.StatusOK, indexStatsResponse{BuildStats: snap.Stats, Pruned: pruned})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusBadGateway, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
