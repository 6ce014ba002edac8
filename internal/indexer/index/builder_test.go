package index

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPostings(t *testing.T) {
	local := LocalPostings("7", strings.Fields("a b a c a"))

	require.Len(t, local, 3)
	assert.Equal(t, Posting{DocID: "7", Positions: []int{0, 2, 4}, TermFreq: 3}, local["a"])
	assert.Equal(t, []int{1}, local["b"].Positions)
	assert.Equal(t, []int{3}, local["c"].Positions)
}

func TestLocalPostingsEmpty(t *testing.T) {
	assert.Empty(t, LocalPostings("1", nil))
}

func TestBuilderInvariants(t *testing.T) {
	b := NewBuilder()
	b.Add("0", strings.Fields("news about football and football clubs"))
	b.Add("1", strings.Fields("football league news"))
	b.Add("2", strings.Fields("weather report"))
	b.Add("3", nil)
	assert.Equal(t, 8, b.Len())

	ix, pruned := b.Build(0)
	require.Empty(t, pruned)

	for _, entry := range ix.Snapshot() {
		assert.Equal(t, len(entry.Postings), entry.DocumentFrequency, "term %q", entry.Term)
		docs := make(map[string]struct{})
		for _, p := range entry.Postings {
			assert.Equal(t, len(p.Positions), p.TermFreq, "term %q doc %s", entry.Term, p.DocID)
			_, dup := docs[p.DocID]
			assert.False(t, dup, "duplicate posting for %s in %q", p.DocID, entry.Term)
			docs[p.DocID] = struct{}{}
		}
	}

	football, ok := ix.Lookup("football")
	require.True(t, ok)
	assert.Equal(t, 2, football.DocumentFrequency)
	assert.Equal(t, []int{2, 4}, football.Postings[0].Positions)
	assert.Equal(t, "1", football.Postings[1].DocID)

	assert.Equal(t, 3, ix.TotalDocs(), "document without content contributes no postings")
}

func TestBuilderIgnoresDuplicateDocument(t *testing.T) {
	b := NewBuilder()
	b.Add("1", strings.Fields("alpha beta"))
	b.Add("1", strings.Fields("alpha gamma"))

	ix, _ := b.Build(0)
	alpha, _ := ix.Lookup("alpha")
	assert.Equal(t, 1, alpha.DocumentFrequency)
	_, ok := ix.Lookup("gamma")
	assert.False(t, ok)
}

func TestBuilderFrozenAfterBuild(t *testing.T) {
	b := NewBuilder()
	b.Add("1", []string{"x"})
	b.Build(0)

	assert.Panics(t, func() { b.Add("2", []string{"y"}) })
	assert.Panics(t, func() { b.Build(0) })
}

// pruneCorpus returns a builder where term t<i> appears in exactly i
// documents, for i in 1..terms.
func pruneCorpus(terms int) *Builder {
	docs := make([][]string, terms)
	for i := 1; i <= terms; i++ {
		for d := 0; d < i; d++ {
			docs[d] = append(docs[d], fmt.Sprintf("t%d", i))
		}
	}
	b := NewBuilder()
	for d, tokens := range docs {
		b.Add(fmt.Sprint(d), tokens)
	}
	return b
}

func TestBuildPrunesTopTerms(t *testing.T) {
	ix, pruned := pruneCorpus(60).Build(DefaultPruneTopN)

	require.Len(t, pruned, DefaultPruneTopN)
	assert.Equal(t, TermStat{Term: "t60", DocumentFrequency: 60}, pruned[0])
	assert.Equal(t, TermStat{Term: "t11", DocumentFrequency: 11}, pruned[49])

	_, ok := ix.Lookup("t11")
	assert.False(t, ok, "50th most frequent term must be pruned")
	pl, ok := ix.Lookup("t10")
	assert.True(t, ok, "51st most frequent term must remain")
	assert.Equal(t, 10, pl.DocumentFrequency)
	assert.Equal(t, 10, ix.Len())
	assert.Zero(t, ix.DocumentFrequency("t60"))
}

func TestBuildPruneTieBreakIsLexical(t *testing.T) {
	b := NewBuilder()
	b.Add("1", []string{"b", "a", "c"})
	b.Add("2", []string{"b", "a", "c"})
	b.Add("3", []string{"z"})

	ix, pruned := b.Build(2)
	assert.Equal(t, []TermStat{{"a", 2}, {"b", 2}}, pruned)
	assert.Equal(t, []string{"c", "z"}, ix.Terms())
}

func TestTotalDocsCountsOnlyDocumentsLeftAfterPruning(t *testing.T) {
	build := func(topN int) *InvertedIndex {
		b := NewBuilder()
		b.Add("1", []string{"common", "rare"})
		b.Add("2", []string{"common"})
		b.Add("3", []string{"common", "other"})
		ix, _ := b.Build(topN)
		return ix
	}

	assert.Equal(t, 3, build(0).TotalDocs())
	assert.Equal(t, 2, build(1).TotalDocs(), "doc 2 only held the pruned term")
}

func TestBuildIsIdempotent(t *testing.T) {
	build := func() *InvertedIndex {
		ix, _ := pruneCorpus(30).Build(5)
		return ix
	}
	first, second := build(), build()

	assert.Equal(t, first.Terms(), second.Terms())
	assert.Equal(t, first.Snapshot(), second.Snapshot())
	assert.Equal(t, first.PostingCount(), second.PostingCount())
}
