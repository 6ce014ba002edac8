package index

import (
	"sort"
)

// InvertedIndex is the frozen term -> PostingList mapping produced by
// Builder.Build. It has no mutating methods and is safe to share between
// any number of concurrent readers. Slices returned from it must be
// treated as read-only.
type InvertedIndex struct {
	terms     map[string]PostingList
	totalDocs int
}

// Lookup returns the posting list for term.
func (ix *InvertedIndex) Lookup(term string) (PostingList, bool) {
	pl, ok := ix.terms[term]
	return pl, ok
}

// DocumentFrequency returns the number of documents containing term, or 0
// when the term is absent (never indexed or pruned).
func (ix *InvertedIndex) DocumentFrequency(term string) int {
	return ix.terms[term].DocumentFrequency
}

// TotalDocs is the number of distinct documents that appear in at least one
// remaining posting list. It is derived from the pruned index, not from the
// size of the source collection, so a document whose every term was pruned
// is not counted.
func (ix *InvertedIndex) TotalDocs() int {
	return ix.totalDocs
}

// Len returns the number of terms in the index.
func (ix *InvertedIndex) Len() int {
	return len(ix.terms)
}

// Terms returns all indexed terms in ascending order.
func (ix *InvertedIndex) Terms() []string {
	terms := make([]string, 0, len(ix.terms))
	for term := range ix.terms {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// Snapshot returns every term with its posting list, sorted by term.
func (ix *InvertedIndex) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(ix.terms))
	for term, pl := range ix.terms {
		entries = append(entries, TermEntry{Term: term, PostingList: pl})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// PostingCount returns the total number of postings across all terms.
func (ix *InvertedIndex) PostingCount() int {
	n := 0
	for _, pl := range ix.terms {
		n += len(pl.Postings)
	}
	return n
}

// TermEntry is one row of an index snapshot.
type TermEntry struct {
	Term string
	PostingList
}
