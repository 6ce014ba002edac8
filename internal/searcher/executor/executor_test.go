package executor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/newsrank/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/metrics"
)

func testSnapshot(t *testing.T, tok tokenizer.Tokenizer) *indexer.Snapshot {
	t.Helper()
	docs := ingestion.Collection{
		"0": {ID: "0", Title: "Five foos", Content: "foo foo foo foo foo"},
		"1": {ID: "1", Title: "One foo", Content: "a b c foo d e f"},
		"2": {ID: "2", Title: "No foo", Content: "bar baz"},
	}
	snap, err := indexer.NewEngine(config.IndexConfig{ChampionK: 1}, tok).Build(context.Background(), docs)
	require.NoError(t, err)
	return snap
}

func searchConfig() config.SearchConfig {
	return config.Default().Search
}

func TestExecuteBeforeLoad(t *testing.T) {
	e := New(tokenizer.Whitespace, searchConfig())
	assert.False(t, e.Ready())
	assert.Nil(t, e.Snapshot())

	_, err := e.Execute(context.Background(), parser.Parse("foo", tokenizer.Whitespace), 10, false)
	assert.ErrorIs(t, err, apperrors.ErrIndexNotReady)
}

func TestExecute(t *testing.T) {
	e := New(tokenizer.Whitespace, searchConfig()).WithMetrics(metrics.NewWithRegistry(prometheus.NewRegistry()))
	e.Load(testSnapshot(t, tokenizer.Whitespace))
	require.True(t, e.Ready())

	res, err := e.Execute(context.Background(), parser.Parse("foo", e.Tokenizer()), 10, false)
	require.NoError(t, err)

	assert.Equal(t, "foo", res.Query)
	assert.Equal(t, []string{"foo"}, res.Terms)
	assert.False(t, res.ChampionMode)
	assert.Equal(t, 2, res.TotalHits)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "0", res.Results[0].DocID)
	assert.Equal(t, "Five foos", res.Results[0].Title)
	assert.Equal(t, "1", res.Results[1].DocID)
	assert.Equal(t, []string{"a b c foo d e f"}, res.Results[1].Snippets)
	assert.Equal(t, map[string]int{"foo": 2}, res.TermStats)
}

func TestExecuteChampionMode(t *testing.T) {
	e := New(tokenizer.Whitespace, searchConfig())
	e.Load(testSnapshot(t, tokenizer.Whitespace))

	res, err := e.Execute(context.Background(), parser.Parse("foo", tokenizer.Whitespace), 10, true)
	require.NoError(t, err)

	assert.True(t, res.ChampionMode)
	require.Len(t, res.Results, 1, "champion list of size 1")
	assert.Equal(t, "0", res.Results[0].DocID)
	assert.Equal(t, 2, res.TermStats["foo"], "statistics still come from the full posting list")
}

func TestExecuteEmptyAndUnknownQueries(t *testing.T) {
	e := New(tokenizer.Whitespace, searchConfig())
	e.Load(testSnapshot(t, tokenizer.Whitespace))

	empty, err := e.Execute(context.Background(), parser.Parse("  ", tokenizer.Whitespace), 10, false)
	require.NoError(t, err)
	assert.Empty(t, empty.Results)
	assert.NotNil(t, empty.Results)

	unknown, err := e.Execute(context.Background(), parser.Parse("zzz", tokenizer.Whitespace), 10, false)
	require.NoError(t, err)
	assert.Empty(t, unknown.Results)
	assert.Equal(t, map[string]int{"zzz": 0}, unknown.TermStats)
}

func TestExecuteDefaultLimit(t *testing.T) {
	cfg := searchConfig()
	cfg.DefaultLimit = 1
	e := New(tokenizer.Whitespace, cfg)
	e.Load(testSnapshot(t, tokenizer.Whitespace))

	res, err := e.Execute(context.Background(), parser.Parse("foo", tokenizer.Whitespace), 0, false)
	require.NoError(t, err)
	assert.Len(t, res.Results, 1)
}

func TestExecuteTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	// Snippet extraction re-tokenizes documents; blocking there keeps the
	// ranking call running past the deadline.
	building := true
	slow := tokenizer.Func(func(text string) []string {
		if !building {
			<-release
		}
		return strings.Fields(text)
	})
	snap := testSnapshot(t, slow)
	building = false

	cfg := searchConfig()
	cfg.QueryTimeout = 20 * time.Millisecond
	e := New(slow, cfg)
	e.Load(snap)

	_, err := e.Execute(context.Background(), &parser.QueryPlan{RawQuery: "foo", Terms: []string{"foo"}}, 10, false)
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
}
