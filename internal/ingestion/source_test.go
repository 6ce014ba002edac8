package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/newsrank/pkg/errors"
)

func writeCollection(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collection.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestFileSourceLoad(t *testing.T) {
	path := writeCollection(t, `{
		"0": {"title": "Derby", "content": "football derby tonight", "tags": ["sport"], "date": "2024-01-01", "url": "https://example.com/0", "category": "sports"},
		"1": {"title": "Weather"}
	}`)

	docs, err := FileSource{Path: path}.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, Document{
		ID:       "0",
		Title:    "Derby",
		Content:  "football derby tonight",
		Tags:     []string{"sport"},
		Date:     "2024-01-01",
		URL:      "https://example.com/0",
		Category: "sports",
	}, docs["0"])

	weather := docs["1"]
	assert.Equal(t, "1", weather.ID)
	assert.Equal(t, "", weather.Content)
	assert.NotNil(t, weather.Tags)
	assert.Empty(t, weather.Tags)
}

func TestFileSourceMissingFile(t *testing.T) {
	_, err := FileSource{Path: filepath.Join(t.TempDir(), "absent.json")}.Load(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrCollectionUnavailable)
}

func TestDecodeMalformed(t *testing.T) {
	for _, body := range []string{`[1, 2]`, `{"0": {"tags": "sport"}}`, `{"0":`, `null`} {
		_, err := Decode([]byte(body))
		assert.ErrorIs(t, err, apperrors.ErrMalformedCollection, "body %s", body)
	}
}

func TestFileSourceCancelled(t *testing.T) {
	path := writeCollection(t, `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FileSource{Path: path}.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPostgresSourceRejectsBadTableName(t *testing.T) {
	_, err := PostgresSource{Table: "documents; DROP TABLE x"}.Load(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestOpenSource(t *testing.T) {
	path := writeCollection(t, `{"0": {"title": "Derby"}}`)
	src, closeFn, err := OpenSource(context.Background(), config.CollectionConfig{Source: config.SourceFile, Path: path}, config.PostgresConfig{})
	require.NoError(t, err)
	defer closeFn()

	docs, err := src.Load(context.Background())
	require.NoError(t, err)
	doc, ok := docs.Get("0")
	require.True(t, ok)
	assert.Equal(t, "Derby", doc.Title)

	_, _, err = OpenSource(context.Background(), config.CollectionConfig{Source: "s3"}, config.PostgresConfig{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
