// Package executor runs parsed queries against the current index snapshot.
package executor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/newsrank/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/resilience"
)

type SearchResult struct {
	Query        string          `json:"query"`
	Terms        []string        `json:"terms"`
	ChampionMode bool            `json:"champion_mode"`
	TotalHits    int             `json:"total_hits"`
	Results      []ranker.Result `json:"results"`
	// TermStats maps each query term to its document frequency; 0 for
	// terms that are unknown or pruned.
	TermStats map[string]int `json:"term_stats"`
}

// Executor evaluates queries against an immutable indexer.Snapshot. The
// snapshot is swapped atomically, so queries never observe a partial build.
type Executor struct {
	snapshot atomic.Pointer[indexer.Snapshot]
	tok      tokenizer.Tokenizer
	cfg      config.SearchConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(tok tokenizer.Tokenizer, cfg config.SearchConfig) *Executor {
	return &Executor{
		tok:    tok,
		cfg:    cfg,
		logger: slog.Default().With("component", "query-executor"),
	}
}

// WithMetrics records query metrics into m.
func (e *Executor) WithMetrics(m *metrics.Metrics) *Executor {
	e.metrics = m
	return e
}

// Load publishes snap to subsequent queries.
func (e *Executor) Load(snap *indexer.Snapshot) {
	e.snapshot.Store(snap)
	e.logger.Info("index snapshot loaded",
		"terms", snap.Stats.Terms,
		"documents", snap.Stats.IndexedDocs,
	)
}

// Snapshot returns the current snapshot, or nil before the first Load.
func (e *Executor) Snapshot() *indexer.Snapshot {
	return e.snapshot.Load()
}

// Ready reports whether a snapshot has been loaded.
func (e *Executor) Ready() bool {
	return e.snapshot.Load() != nil
}

// Tokenizer returns the tokenizer queries are parsed with.
func (e *Executor) Tokenizer() tokenizer.Tokenizer {
	return e.tok
}

// Execute ranks plan against the current snapshot. Ranking runs as a single
// unit under the configured query timeout; a timed-out query yields no
// partial results.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int, useChampions bool) (*SearchResult, error) {
	snap := e.snapshot.Load()
	if snap == nil {
		return nil, apperrors.ErrIndexNotReady
	}
	mode := metrics.Mode(useChampions)
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}

	result := &SearchResult{
		Query:        plan.RawQuery,
		Terms:        plan.Terms,
		ChampionMode: useChampions,
		Results:      []ranker.Result{},
		TermStats:    make(map[string]int),
	}
	for _, term := range plan.Distinct() {
		result.TermStats[term] = snap.Index.DocumentFrequency(term)
	}
	if len(plan.Terms) == 0 {
		e.observe(mode, "zero_result", 0, 0)
		return result, nil
	}

	var eval ranker.Evaluation
	err := resilience.WithTimeout(ctx, e.cfg.QueryTimeout, "rank", func(context.Context) error {
		eval = ranker.Evaluate(snap.Index, snap.Documents, e.tok, plan.Terms, ranker.Options{
			Limit:            limit,
			Champions:        snap.Champions,
			UseChampionLists: useChampions,
			Window:           ranker.Window{Before: e.cfg.SnippetBefore, After: e.cfg.SnippetAfter},
		})
		return nil
	})
	if err != nil {
		resultType := "error"
		if errors.Is(err, apperrors.ErrTimeout) {
			resultType = "timeout"
		}
		e.observe(mode, resultType, 0, 0)
		return nil, err
	}

	result.Results = eval.Results
	result.TotalHits = eval.Candidates
	resultType := "hit"
	if len(eval.Results) == 0 {
		resultType = "zero_result"
	}
	e.observe(mode, resultType, len(eval.Results), eval.Candidates)

	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"mode", mode,
		"candidates", eval.Candidates,
		"results", len(eval.Results),
	)
	return result, nil
}

func (e *Executor) observe(mode, resultType string, results, candidates int) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(mode, resultType).Inc()
	if resultType == "hit" || resultType == "zero_result" {
		e.metrics.SearchResultsCount.WithLabelValues(mode).Observe(float64(results))
		e.metrics.SearchCandidates.WithLabelValues(mode).Observe(float64(candidates))
	}
}
