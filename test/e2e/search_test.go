// Package e2e exercises the search service end to end in-process: a JSON
// collection on disk is loaded, indexed and served through the same router
// and middleware chain the searcher binary uses.
//
// Run with:
//
//	go test -v ./test/e2e/...
package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/searcher/router"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/middleware"
)

const collection = `{
	"0": {"title": "Oil prices climb", "content": "Oil prices climbed again as oil supply tightened and oil traders reacted", "tags": ["economy"], "url": "https://example.com/0"},
	"1": {"title": "Markets", "content": "Stock markets fell while oil was flat", "tags": ["economy"]},
	"2": {"title": "Derby", "content": "The football derby ended in a draw", "tags": ["sport"]},
	"3": {"title": "Cup final", "content": "A late goal decided the cup final", "tags": ["sport"]}
}`

// ---------------------------------------------------------------------------
// Stack
// ---------------------------------------------------------------------------

type stack struct {
	server     *httptest.Server
	exec       *executor.Executor
	collector  *analytics.Collector
	aggregator *analytics.Aggregator
	cfg        *config.Config
}

func newStack(t *testing.T) *stack {
	t.Helper()
	cfg := config.Default()
	cfg.Index.PruneTopN = 0
	cfg.Index.ChampionK = 1
	cfg.Collection.Path = filepath.Join(t.TempDir(), "collection.json")
	require.NoError(t, os.WriteFile(cfg.Collection.Path, []byte(collection), 0o644))

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	exec := executor.New(tokenizer.New(), cfg.Search).WithMetrics(m)

	aggregator := analytics.NewAggregator()
	collector := analytics.NewCollector(aggregator, 64)
	collector.Start(context.Background())

	checker := health.NewChecker()
	checker.Register("index", health.Critical(func(context.Context) error {
		if !exec.Ready() {
			return errors.New("index is still building")
		}
		return nil
	}))

	srv := httptest.NewServer(router.New(router.Deps{
		Search:    handler.New(exec, nil, collector, cfg.Search).WithMetrics(m),
		Analytics: analytics.NewHandler(aggregator, collector),
		Health:    checker,
		Metrics:   m,
		Timeout:   5 * time.Second,
	}))
	t.Cleanup(func() {
		srv.Close()
		collector.Close()
	})
	return &stack{server: srv, exec: exec, collector: collector, aggregator: aggregator, cfg: cfg}
}

func (s *stack) build(t *testing.T) *indexer.Snapshot {
	t.Helper()
	ctx := context.Background()
	src, closeSource, err := ingestion.OpenSource(ctx, s.cfg.Collection, s.cfg.Postgres)
	require.NoError(t, err)
	defer closeSource()

	docs, err := src.Load(ctx)
	require.NoError(t, err)
	snap, err := indexer.NewEngine(s.cfg.Index, s.exec.Tokenizer()).Build(ctx, docs)
	require.NoError(t, err)
	s.exec.Load(snap)
	s.collector.TrackIndex(analytics.NewIndexEvent(snap))
	return snap
}

func (s *stack) get(t *testing.T, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(s.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestReadinessFollowsIndexBuild(t *testing.T) {
	s := newStack(t)

	resp := s.get(t, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp = s.get(t, "/api/v1/search?q=oil", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	s.build(t)

	var report health.Report
	resp = s.get(t, "/health/ready", &report)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, health.StatusUp, report.Status)

	resp = s.get(t, "/health/live", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSearchEndToEnd(t *testing.T) {
	s := newStack(t)
	s.build(t)

	var full executor.SearchResult
	resp := s.get(t, "/api/v1/search?q=oil+prices&champions=false", &full)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))

	require.Len(t, full.Results, 2)
	assert.Equal(t, "0", full.Results[0].DocID)
	assert.Equal(t, "Oil prices climb", full.Results[0].Title)
	assert.Equal(t, "1", full.Results[1].DocID)
	assert.Greater(t, full.Results[0].Score, full.Results[1].Score)
	assert.NotEmpty(t, full.Results[0].Snippets)
	for _, r := range full.Results {
		assert.LessOrEqual(t, r.Score, 1.0+1e-9)
	}

	var champ executor.SearchResult
	resp = s.get(t, "/api/v1/search?q=oil&champions=true", &champ)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, champ.ChampionMode)
	require.Len(t, champ.Results, 1)
	assert.Equal(t, "0", champ.Results[0].DocID)

	var none executor.SearchResult
	resp = s.get(t, "/api/v1/search?q=volcano", &none)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, none.Results)
	assert.NotNil(t, none.Results)
}

func TestIndexStatsAndAnalytics(t *testing.T) {
	s := newStack(t)
	snap := s.build(t)

	var stats map[string]any
	resp := s.get(t, "/api/v1/index/stats", &stats)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 4, stats["documents"])
	assert.EqualValues(t, snap.Stats.Terms, stats["terms"])

	s.get(t, "/api/v1/search?q=oil&champions=false", nil)
	s.get(t, "/api/v1/search?q=volcano", nil)
	s.collector.Close()

	var agg map[string]any
	resp = s.get(t, "/api/v1/analytics", &agg)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, agg["total_searches"])
	assert.EqualValues(t, 1, agg["zero_result_count"])
	assert.EqualValues(t, 1, agg["index_builds"])
}
