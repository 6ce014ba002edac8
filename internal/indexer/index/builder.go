package index

import (
	"sort"
)

// DefaultPruneTopN is the number of highest document-frequency terms removed
// from the index after construction.
const DefaultPruneTopN = 50

// Builder owns the mutable working structure used while an index is being
// constructed. A Builder is not safe for concurrent use; callers that
// tokenize in parallel must funnel their LocalPostings through a single
// goroutine calling AddLocal.
type Builder struct {
	terms  map[string]*PostingList
	seen   map[string]struct{}
	frozen bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		terms: make(map[string]*PostingList),
		seen:  make(map[string]struct{}),
	}
}

// Add merges the tokenized content of a document into the index, one
// Posting per distinct token.
func (b *Builder) Add(docID string, tokens []string) {
	b.AddLocal(docID, LocalPostings(docID, tokens))
}

// AddLocal merges a document's term->posting grouping into the index. A
// document that was already added is ignored so every document contributes
// at most one Posting per term.
func (b *Builder) AddLocal(docID string, local map[string]Posting) {
	if b.frozen {
		panic("index: AddLocal called on a frozen builder")
	}
	if _, dup := b.seen[docID]; dup {
		return
	}
	b.seen[docID] = struct{}{}

	// Sorted so that the merge order is independent of map iteration.
	terms := make([]string, 0, len(local))
	for term := range local {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	for _, term := range terms {
		pl, exists := b.terms[term]
		if !exists {
			pl = &PostingList{Postings: make([]Posting, 0, 1)}
			b.terms[term] = pl
		}
		pl.DocumentFrequency++
		pl.Postings = append(pl.Postings, local[term])
	}
}

// Len returns the number of distinct terms added so far.
func (b *Builder) Len() int {
	return len(b.terms)
}

// Build prunes the topN terms with the highest document frequency and
// freezes the result. Pruned terms are returned in removal order. The
// Builder cannot be used after Build.
//
// Ranking for pruning is document frequency descending, then term
// ascending, so the boundary is deterministic when frequencies tie.
func (b *Builder) Build(topN int) (*InvertedIndex, []TermStat) {
	if b.frozen {
		panic("index: Build called twice")
	}
	b.frozen = true

	pruned := topTerms(b.terms, topN)
	for _, ts := range pruned {
		delete(b.terms, ts.Term)
	}

	terms := make(map[string]PostingList, len(b.terms))
	docs := make(map[string]struct{})
	for term, pl := range b.terms {
		terms[term] = *pl
		for _, p := range pl.Postings {
			docs[p.DocID] = struct{}{}
		}
	}
	b.terms = nil
	b.seen = nil

	return &InvertedIndex{
		terms:     terms,
		totalDocs: len(docs),
	}, pruned
}

func topTerms(terms map[string]*PostingList, n int) []TermStat {
	if n <= 0 || len(terms) == 0 {
		return nil
	}
	stats := make([]TermStat, 0, len(terms))
	for term, pl := range terms {
		stats = append(stats, TermStat{Term: term, DocumentFrequency: pl.DocumentFrequency})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].DocumentFrequency != stats[j].DocumentFrequency {
			return stats[i].DocumentFrequency > stats[j].DocumentFrequency
		}
		return stats[i].Term < stats[j].Term
	})
	if len(stats) > n {
		stats = stats[:n]
	}
	return stats
}
