// Package analytics records what the engine is asked and how it answers.
// Events are buffered by a Collector, published in batches (to Kafka or
// straight into an in-process Aggregator) and summarised by the Aggregator.
package analytics

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer"
)

type EventType string

const (
	EventSearch     EventType = "search"
	EventIndexBuilt EventType = "index_built"
)

type SearchEvent struct {
	Query        string    `json:"query"`
	Terms        []string  `json:"terms"`
	ChampionMode bool      `json:"champion_mode"`
	Candidates   int       `json:"candidates"`
	Returned     int       `json:"returned"`
	LatencyMs    int64     `json:"latency_ms"`
	CacheHit     bool      `json:"cache_hit"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
}

// IndexEvent describes a completed index build.
type IndexEvent struct {
	Documents        int       `json:"documents"`
	IndexedDocuments int       `json:"indexed_documents"`
	Terms            int       `json:"terms"`
	Postings         int       `json:"postings"`
	PrunedTerms      []string  `json:"pruned_terms"`
	ChampionK        int       `json:"champion_k"`
	DurationMs       int64     `json:"duration_ms"`
	Timestamp        time.Time `json:"timestamp"`
}

// NewIndexEvent summarises a built snapshot.
func NewIndexEvent(snap *indexer.Snapshot) IndexEvent {
	pruned := make([]string, len(snap.Pruned))
	for i, ts := range snap.Pruned {
		pruned[i] = ts.Term
	}
	return IndexEvent{
		Documents:        snap.Stats.Documents,
		IndexedDocuments: snap.Stats.IndexedDocs,
		Terms:            snap.Stats.Terms,
		Postings:         snap.Stats.Postings,
		PrunedTerms:      pruned,
		ChampionK:        snap.Stats.ChampionK,
		DurationMs:       snap.Stats.Duration.Milliseconds(),
		Timestamp:        snap.Stats.BuiltAt,
	}
}
