package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/metrics"
)

// Build stages reported to the progress observer and metrics.
const (
	StageTokenize  = "tokenize"
	StageMerge     = "merge"
	StagePrune     = "prune"
	StageChampions = "champions"
)

// ProgressFunc observes build progress. It may be called from several
// goroutines at once.
type ProgressFunc func(stage string, done, total int)

// Snapshot is everything the searcher needs, built once and never mutated.
type Snapshot struct {
	Index     *index.InvertedIndex
	Champions *index.ChampionLists
	Documents ingestion.Collection
	Pruned    []index.TermStat
	Stats     BuildStats
}

// BuildStats summarises a completed build.
type BuildStats struct {
	Documents     int           `json:"documents"`
	IndexedDocs   int           `json:"indexed_documents"`
	Terms         int           `json:"terms"`
	Postings      int           `json:"postings"`
	PrunedTerms   int           `json:"pruned_terms"`
	ChampionK     int           `json:"champion_k"`
	ChampionTerms int           `json:"champion_terms"`
	Duration      time.Duration `json:"duration"`
	BuiltAt       time.Time     `json:"built_at"`
}

type Engine struct {
	cfg      config.IndexConfig
	tok      tokenizer.Tokenizer
	logger   *slog.Logger
	metrics  *metrics.Metrics
	progress ProgressFunc
}

func NewEngine(cfg config.IndexConfig, tok tokenizer.Tokenizer) *Engine {
	if cfg.ChampionK <= 0 {
		cfg.ChampionK = index.DefaultChampionK
	}
	if cfg.BuildWorkers <= 0 {
		cfg.BuildWorkers = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		cfg:    cfg,
		tok:    tok,
		logger: slog.Default().With("component", "indexer"),
	}
}

// WithMetrics records build metrics into m.
func (e *Engine) WithMetrics(m *metrics.Metrics) *Engine {
	e.metrics = m
	return e
}

// WithProgress reports build progress to fn.
func (e *Engine) WithProgress(fn ProgressFunc) *Engine {
	e.progress = fn
	return e
}

// BuildIndex tokenizes every document, builds the inverted index and prunes
// the pruneTopN most frequent terms. The collection is returned unchanged
// alongside the index for result presentation.
func BuildIndex(ctx context.Context, docs ingestion.Collection, tok tokenizer.Tokenizer, pruneTopN int) (*index.InvertedIndex, ingestion.Collection, error) {
	e := NewEngine(config.IndexConfig{PruneTopN: pruneTopN}, tok)
	ix, _, err := e.buildIndex(ctx, docs)
	if err != nil {
		return nil, nil, err
	}
	return ix, docs, nil
}

// Build produces a complete Snapshot: pruned index plus champion lists.
func (e *Engine) Build(ctx context.Context, docs ingestion.Collection) (*Snapshot, error) {
	start := time.Now()
	e.logger.Info("building inverted index",
		"documents", len(docs),
		"prune_top_n", e.cfg.PruneTopN,
		"champion_k", e.cfg.ChampionK,
		"workers", e.cfg.BuildWorkers,
	)

	ix, pruned, err := e.buildIndex(ctx, docs)
	if err != nil {
		return nil, err
	}

	stageStart := time.Now()
	champions, err := index.BuildChampionLists(ctx, ix, e.cfg.ChampionK, e.cfg.BuildWorkers)
	if err != nil {
		return nil, err
	}
	e.observeStage(StageChampions, stageStart)
	e.report(StageChampions, champions.Len(), ix.Len())

	snap := &Snapshot{
		Index:     ix,
		Champions: champions,
		Documents: docs,
		Pruned:    pruned,
		Stats: BuildStats{
			Documents:     len(docs),
			IndexedDocs:   ix.TotalDocs(),
			Terms:         ix.Len(),
			Postings:      ix.PostingCount(),
			PrunedTerms:   len(pruned),
			ChampionK:     champions.K(),
			ChampionTerms: champions.Len(),
			Duration:      time.Since(start),
			BuiltAt:       time.Now().UTC(),
		},
	}
	if e.metrics != nil {
		e.metrics.IndexTerms.Set(float64(snap.Stats.Terms))
		e.metrics.IndexDocuments.Set(float64(snap.Stats.IndexedDocs))
		e.metrics.IndexPostings.Set(float64(snap.Stats.Postings))
		e.metrics.PrunedTerms.Set(float64(snap.Stats.PrunedTerms))
		e.metrics.ChampionListTerms.Set(float64(snap.Stats.ChampionTerms))
	}
	e.logger.Info("inverted index built",
		"terms", snap.Stats.Terms,
		"postings", snap.Stats.Postings,
		"indexed_documents", snap.Stats.IndexedDocs,
		"pruned_terms", snap.Stats.PrunedTerms,
		"champion_terms", snap.Stats.ChampionTerms,
		"duration", snap.Stats.Duration,
	)
	return snap, nil
}

// buildIndex tokenizes documents in parallel and merges their local
// postings into a single Builder. The merge runs on one goroutine in
// ingestion order, which keeps posting order identical across runs.
func (e *Engine) buildIndex(ctx context.Context, docs ingestion.Collection) (*index.InvertedIndex, []index.TermStat, error) {
	ids := docs.IDs()
	locals := make([]map[string]index.Posting, len(ids))

	stageStart := time.Now()
	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.BuildWorkers)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tokens := e.tok.Tokenize(docs[id].Content)
			locals[i] = index.LocalPostings(id, tokens)
			e.report(StageTokenize, int(done.Add(1)), len(ids))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("tokenizing documents: %w", err)
	}
	e.observeStage(StageTokenize, stageStart)
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Add(float64(len(ids)))
	}

	stageStart = time.Now()
	builder := index.NewBuilder()
	for i, id := range ids {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, fmt.Errorf("merging postings: %w", err)
			}
		}
		builder.AddLocal(id, locals[i])
		locals[i] = nil
		e.report(StageMerge, i+1, len(ids))
	}
	e.observeStage(StageMerge, stageStart)

	stageStart = time.Now()
	ix, pruned := builder.Build(e.cfg.PruneTopN)
	e.observeStage(StagePrune, stageStart)
	e.report(StagePrune, len(pruned), e.cfg.PruneTopN)
	for _, ts := range pruned {
		e.logger.Debug("pruned term", "term", ts.Term, "document_frequency", ts.DocumentFrequency)
	}
	return ix, pruned, nil
}

func (e *Engine) report(stage string, done, total int) {
	if e.progress != nil {
		e.progress(stage, done, total)
	}
}

func (e *Engine) observeStage(stage string, start time.Time) {
	if e.metrics != nil {
		e.metrics.BuildStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}
