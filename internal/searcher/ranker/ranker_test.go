package ranker

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/ingestion"
)

type fixture struct {
	ix   *index.InvertedIndex
	docs ingestion.Collection
}

// build indexes contents keyed by id with the whitespace tokenizer and no
// pruning. ids are added in the order given.
func build(t *testing.T, ids []string, contents []string) fixture {
	t.Helper()
	require.Len(t, contents, len(ids))
	docs := make(ingestion.Collection, len(ids))
	b := index.NewBuilder()
	for i, id := range ids {
		docs[id] = ingestion.Document{ID: id, Title: "title " + id, Content: contents[i]}
		b.Add(id, tokenizer.Whitespace.Tokenize(contents[i]))
	}
	ix, _ := b.Build(0)
	return fixture{ix: ix, docs: docs}
}

func docIDs(results []Result) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.DocID
	}
	return ids
}

func TestRankSingleTermOrdersByTermFrequency(t *testing.T) {
	f := build(t,
		[]string{"A", "B", "C"},
		[]string{"foo foo foo foo foo", "foo bar", "bar baz"},
	)

	results := Rank(f.ix, f.docs, tokenizer.Whitespace, []string{"foo"}, Options{Limit: 10})

	assert.Equal(t, []string{"A", "B"}, docIDs(results))
	assert.Equal(t, "title A", results[0].Title)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestRankDuplicateQueryTermsRaiseWeight(t *testing.T) {
	f := build(t, []string{"1", "2", "3"}, []string{"foo", "bar", "baz"})

	results := Rank(f.ix, f.docs, tokenizer.Whitespace, []string{"foo", "bar", "foo"}, Options{})

	require.Equal(t, []string{"1", "2"}, docIDs(results))
	assert.InDelta(t, 2/math.Sqrt(5), results[0].Score, 1e-9)
	assert.InDelta(t, 1/math.Sqrt(5), results[1].Score, 1e-9)
}

func TestRankUnknownTermsYieldNothing(t *testing.T) {
	f := build(t, []string{"1", "2"}, []string{"alpha beta", "gamma"})

	for _, query := range [][]string{nil, {}, {"zeta"}, {"zeta", "omega", "zeta"}} {
		eval := Evaluate(f.ix, f.docs, tokenizer.Whitespace, query, Options{})
		assert.NotNil(t, eval.Results)
		assert.Empty(t, eval.Results, "query %v", query)
		assert.Zero(t, eval.Candidates)
	}
}

func TestRankIgnoresUnknownTermsAlongsideKnownOnes(t *testing.T) {
	f := build(t, []string{"1", "2"}, []string{"alpha beta", "gamma"})

	results := Rank(f.ix, f.docs, tokenizer.Whitespace, []string{"zeta", "alpha"}, Options{})
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].DocID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestSimilarityIsBounded(t *testing.T) {
	contents := []string{
		"the market rose as oil prices fell",
		"oil oil oil exports and the market",
		"football league results and the cup final",
		"the cup the cup the cup",
		"prices of football tickets rose",
		"",
	}
	ids := make([]string, len(contents))
	for i := range ids {
		ids[i] = fmt.Sprint(i)
	}
	f := build(t, ids, contents)

	queries := [][]string{
		{"the"},
		{"oil", "market"},
		{"cup", "cup", "final", "league"},
		{"prices", "rose", "football", "oil", "the"},
	}
	for _, q := range queries {
		for _, r := range Rank(f.ix, f.docs, tokenizer.Whitespace, q, Options{Limit: 100}) {
			assert.GreaterOrEqual(t, r.Score, 0.0, "query %v doc %s", q, r.DocID)
			assert.LessOrEqual(t, r.Score, 1.0+1e-9, "query %v doc %s", q, r.DocID)
		}
	}
}

func TestRankResultsSortedAndLimited(t *testing.T) {
	contents := make([]string, 15)
	ids := make([]string, 15)
	for i := range contents {
		ids[i] = fmt.Sprint(i)
		contents[i] = strings.Repeat("news ", i+1) + strings.Repeat("sport ", 15-i)
	}
	f := build(t, ids, contents)

	eval := Evaluate(f.ix, f.docs, tokenizer.Whitespace, []string{"news", "news", "sport"}, Options{Limit: 0})

	assert.Equal(t, 15, eval.Candidates)
	require.Len(t, eval.Results, DefaultLimit)
	for i := 1; i < len(eval.Results); i++ {
		assert.GreaterOrEqual(t, eval.Results[i-1].Score, eval.Results[i].Score)
	}

	three := Rank(f.ix, f.docs, tokenizer.Whitespace, []string{"news", "news", "sport"}, Options{Limit: 3})
	assert.Equal(t, docIDs(eval.Results[:3]), docIDs(three))
}

// championFixture has term "goal" in 20 documents, document i holding it
// i+1 times. Document 5 also holds "keeper".
func championFixture(t *testing.T) (fixture, *index.ChampionLists) {
	t.Helper()
	ids := make([]string, 20)
	contents := make([]string, 20)
	for i := range ids {
		ids[i] = fmt.Sprint(i)
		contents[i] = strings.TrimSpace(strings.Repeat("goal ", i+1))
	}
	contents[5] += " keeper"
	f := build(t, ids, contents)
	champions, err := index.BuildChampionLists(context.Background(), f.ix, 10, 2)
	require.NoError(t, err)
	return f, champions
}

func TestChampionModeRestrictsCandidates(t *testing.T) {
	f, champions := championFixture(t)
	opts := Options{Limit: 20, Champions: champions, UseChampionLists: true}

	eval := Evaluate(f.ix, f.docs, tokenizer.Whitespace, []string{"goal"}, opts)
	assert.Equal(t, 10, eval.Candidates)
	assert.ElementsMatch(t,
		[]string{"10", "11", "12", "13", "14", "15", "16", "17", "18", "19"},
		docIDs(eval.Results))
	assert.NotContains(t, docIDs(eval.Results), "5", "15th by term frequency")

	full := Evaluate(f.ix, f.docs, tokenizer.Whitespace, []string{"goal"}, Options{Limit: 20, Champions: champions})
	assert.Equal(t, 20, full.Candidates)
	assert.Len(t, full.Results, 20)
}

func TestChampionModeAdmitsDocumentsThroughOtherTerms(t *testing.T) {
	f, champions := championFixture(t)
	opts := Options{Limit: 20, Champions: champions, UseChampionLists: true}

	results := Rank(f.ix, f.docs, tokenizer.Whitespace, []string{"goal", "keeper"}, opts)

	assert.Contains(t, docIDs(results), "5")
	assert.Len(t, results, 11)
}

func TestChampionModeKeepsFullDocumentFrequency(t *testing.T) {
	f, champions := championFixture(t)
	query := []string{"goal", "keeper"}

	champ := Rank(f.ix, f.docs, tokenizer.Whitespace, query, Options{Limit: 20, Champions: champions, UseChampionLists: true})
	full := Rank(f.ix, f.docs, tokenizer.Whitespace, query, Options{Limit: 20})

	scoreOf := func(results []Result, id string) float64 {
		for _, r := range results {
			if r.DocID == id {
				return r.Score
			}
		}
		t.Fatalf("doc %s not ranked", id)
		return 0
	}

	// N=20, df(goal)=20 gives idf 1; df(keeper)=1 gives ln(21/2)+1.
	idfKeeper := math.Log(21.0/2.0) + 1
	want := 1 / math.Sqrt(1+idfKeeper*idfKeeper)
	assert.InDelta(t, want, scoreOf(champ, "19"), 1e-9)
	assert.InDelta(t, scoreOf(full, "19"), scoreOf(champ, "19"), 1e-12)
}

func TestChampionModeWithoutListsFallsBack(t *testing.T) {
	f, _ := championFixture(t)

	results := Rank(f.ix, f.docs, tokenizer.Whitespace, []string{"goal"}, Options{Limit: 20, UseChampionLists: true})
	assert.Len(t, results, 20)
}

func TestRankTieBreakIsDeterministic(t *testing.T) {
	f := build(t, []string{"b", "a", "c"}, []string{"foo", "foo", "foo"})

	for i := 0; i < 5; i++ {
		results := Rank(f.ix, f.docs, tokenizer.Whitespace, []string{"foo"}, Options{})
		assert.Equal(t, []string{"a", "b", "c"}, docIDs(results))
	}
}

func TestSnippetAroundMatch(t *testing.T) {
	f := build(t, []string{"1"}, []string{"a b c foo d e f"})

	results := Rank(f.ix, f.docs, tokenizer.Whitespace, []string{"foo"}, Options{})
	require.Len(t, results, 1)
	assert.Equal(t, []string{"a b c foo d e f"}, results[0].Snippets)
}

func TestSnippetWindowIsClipped(t *testing.T) {
	words := make([]string, 21)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	words[10] = "foo"
	words[0] = "foo"
	f := build(t, []string{"1"}, []string{strings.Join(words, " ")})

	results := Rank(f.ix, f.docs, tokenizer.Whitespace, []string{"foo"}, Options{})
	require.Len(t, results, 1)
	assert.Equal(t, []string{
		"foo w1 w2 w3 w4 w5",
		"w5 w6 w7 w8 w9 foo w11 w12 w13 w14 w15",
	}, results[0].Snippets)

	narrow := Rank(f.ix, f.docs, tokenizer.Whitespace, []string{"foo"}, Options{Window: Window{Before: 1, After: 2}})
	assert.Equal(t, []string{"foo w1", "w9 foo w11"}, narrow[0].Snippets)
}

func TestSnippetSkippedOnTokenMismatch(t *testing.T) {
	f := build(t, []string{"1"}, []string{"x foo y"})
	upper := tokenizer.Func(func(text string) []string {
		return strings.Fields(strings.ToUpper(text))
	})

	results := Rank(f.ix, f.docs, upper, []string{"foo"}, Options{})
	require.Len(t, results, 1, "the document still ranks")
	assert.Empty(t, results[0].Snippets)
}

func TestSnippetUsesRawSplitPositions(t *testing.T) {
	// The tokenizer splits hyphenated words, so token offsets run ahead of
	// the raw whitespace split. The window is still cut from the raw words.
	hyphens := tokenizer.Func(func(text string) []string {
		return strings.Fields(strings.ReplaceAll(text, "-", " "))
	})
	docs := ingestion.Collection{"1": {ID: "1", Content: "well-known foo bar"}}
	b := index.NewBuilder()
	b.Add("1", hyphens.Tokenize(docs["1"].Content))
	ix, _ := b.Build(0)

	results := Rank(ix, docs, hyphens, []string{"foo"}, Options{Window: Window{Before: 0, After: 1}})
	require.Len(t, results, 1)
	assert.Equal(t, []string{"bar"}, results[0].Snippets)
}

func TestExtractSnippetsOutOfRangePositions(t *testing.T) {
	acc := &accumulator{
		docID:        "1",
		positions:    map[string][]int{"foo": {-1, 3, 100}},
		matchedTerms: []string{"foo"},
	}

	assert.NotPanics(t, func() {
		snippets := extractSnippets("a b c foo", tokenizer.Whitespace, acc, DefaultWindow)
		assert.Equal(t, []string{"a b c foo"}, snippets)
	})
	assert.Empty(t, extractSnippets("", tokenizer.Whitespace, acc, DefaultWindow))
}

func TestRankConcurrentReaders(t *testing.T) {
	f, champions := championFixture(t)
	want := Rank(f.ix, f.docs, tokenizer.Whitespace, []string{"goal", "keeper"}, Options{Champions: champions, UseChampionLists: true})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := Rank(f.ix, f.docs, tokenizer.Whitespace, []string{"goal", "keeper"}, Options{Champions: champions, UseChampionLists: true})
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestWeights(t *testing.T) {
	assert.InDelta(t, math.Log(4.0/2.0)+1, inverseDocumentFrequency(3, 1), 1e-12)
	assert.InDelta(t, 1.0, inverseDocumentFrequency(9, 9), 1e-12)
	assert.InDelta(t, 3.0, termWeight(4, 1), 1e-12)
	assert.Zero(t, termWeight(0, 2))
	assert.Zero(t, cosine(1, 0, 1))
	assert.Zero(t, cosine(1, 1, 0))
}

// Pruning a term can remove documents from the index entirely, which shrinks
// the document count the idf is computed from.
func TestTotalDocsFollowsPrunedIndex(t *testing.T) {
	contents := map[string]string{"A": "foo x", "B": "bar x", "C": "bar x", "D": "x"}
	docs := make(ingestion.Collection, len(contents))
	full, pruned := index.NewBuilder(), index.NewBuilder()
	for _, id := range []string{"A", "B", "C", "D"} {
		docs[id] = ingestion.Document{ID: id, Content: contents[id]}
		full.Add(id, tokenizer.Whitespace.Tokenize(contents[id]))
		pruned.Add(id, tokenizer.Whitespace.Tokenize(contents[id]))
	}
	fullIx, _ := full.Build(0)
	prunedIx, removed := pruned.Build(1)
	require.Len(t, removed, 1)
	assert.Equal(t, "x", removed[0].Term)

	assert.Equal(t, 4, fullIx.TotalDocs())
	assert.Equal(t, 3, prunedIx.TotalDocs(), "D only contained the pruned term")

	expected := func(n int) float64 {
		foo := inverseDocumentFrequency(n, 1)
		bar := inverseDocumentFrequency(n, 2)
		return foo / math.Sqrt(foo*foo+bar*bar)
	}
	query := []string{"foo", "bar"}

	fullTop := Rank(fullIx, docs, tokenizer.Whitespace, query, Options{Limit: 1})
	prunedTop := Rank(prunedIx, docs, tokenizer.Whitespace, query, Options{Limit: 1})
	require.Len(t, fullTop, 1)
	require.Len(t, prunedTop, 1)
	assert.Equal(t, "A", fullTop[0].DocID)
	assert.Equal(t, "A", prunedTop[0].DocID)
	assert.InDelta(t, expected(4), fullTop[0].Score, 1e-9)
	assert.InDelta(t, expected(3), prunedTop[0].Score, 1e-9)
	assert.NotEqual(t, fullTop[0].Score, prunedTop[0].Score)
}
