package index

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// DefaultChampionK is the number of postings kept per term in a champion list.
const DefaultChampionK = 10

// ChampionLists maps each term to at most K of its postings, highest term
// frequency first. Every entry is a member of the term's full PostingList.
// Like InvertedIndex it is immutable once built.
type ChampionLists struct {
	lists map[string][]Posting
	k     int
}

// Lookup returns the champion postings for term.
func (c *ChampionLists) Lookup(term string) ([]Posting, bool) {
	if c == nil {
		return nil, false
	}
	postings, ok := c.lists[term]
	return postings, ok
}

// K returns the per-term bound the lists were built with.
func (c *ChampionLists) K() int {
	return c.k
}

// Len returns the number of terms with a champion list.
func (c *ChampionLists) Len() int {
	if c == nil {
		return 0
	}
	return len(c.lists)
}

// BuildChampionLists derives a champion list for every term in ix. Terms
// are processed in parallel by up to workers goroutines (GOMAXPROCS when
// workers <= 0).
//
// Postings are ordered by term frequency descending; ties keep the order in
// which documents were merged into the index (a stable sort), so the lists
// are identical across runs.
func BuildChampionLists(ctx context.Context, ix *InvertedIndex, k int, workers int) (*ChampionLists, error) {
	if k <= 0 {
		return nil, fmt.Errorf("champion list size must be positive, got %d", k)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	terms := ix.Terms()
	results := make([][]Posting, len(terms))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	chunk := (len(terms) + workers - 1) / workers
	if chunk == 0 {
		chunk = 1
	}
	for start := 0; start < len(terms); start += chunk {
		end := min(start+chunk, len(terms))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				pl, _ := ix.Lookup(terms[i])
				results[i] = topByTermFreq(pl.Postings, k)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building champion lists: %w", err)
	}

	lists := make(map[string][]Posting, len(terms))
	for i, term := range terms {
		lists[term] = results[i]
	}
	return &ChampionLists{lists: lists, k: k}, nil
}

func topByTermFreq(postings []Posting, k int) []Posting {
	sorted := make([]Posting, len(postings))
	copy(sorted, postings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TermFreq > sorted[j].TermFreq
	})
	if len(sorted) > k {
		sorted = sorted[:k:k]
	}
	return sorted
}
