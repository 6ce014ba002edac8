package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"regexp"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/newsrank/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/resilience"
)

// Source loads a complete document collection.
type Source interface {
	Load(ctx context.Context) (Collection, error)
}

// record mirrors one entry of the JSON collection. Absent fields decode to
// their zero value, which is the documented default.
type record struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Date     string   `json:"date"`
	URL      string   `json:"url"`
	Category string   `json:"category"`
}

func (r record) document(id string) Document {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return Document{
		ID:       id,
		Title:    r.Title,
		Content:  r.Content,
		Tags:     tags,
		Date:     r.Date,
		URL:      r.URL,
		Category: r.Category,
	}
}

// FileSource reads a JSON object keyed by document id:
//
//	{"0": {"title": "...", "content": "...", "tags": ["..."], "date": "...", "url": "...", "category": "..."}}
type FileSource struct {
	Path string
}

// Load reads and decodes the file. A missing or unreadable file yields
// ErrCollectionUnavailable; anything that is not a JSON object of records
// yields ErrMalformedCollection.
func (s FileSource) Load(ctx context.Context) (Collection, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCollectionUnavailable, err, s.Path)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Decode(data)
}

// Decode parses a JSON collection held in memory.
func Decode(data []byte) (Collection, error) {
	var records map[string]record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedCollection, err, "decoding collection")
	}
	if records == nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedCollection, fmt.Errorf("null document"), "decoding collection")
	}
	docs := make(Collection, len(records))
	for id, r := range records {
		docs[id] = r.document(id)
	}
	return docs, nil
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresSource reads the collection from a table with the columns
// id, title, content, tags (text[]), date, url and category:
//
//	CREATE TABLE documents (
//	    id       BIGINT PRIMARY KEY,
//	    title    TEXT,
//	    content  TEXT,
//	    tags     TEXT[],
//	    date     TEXT,
//	    url      TEXT,
//	    category TEXT
//	);
type PostgresSource struct {
	Client *postgres.Client
	Table  string
	Retry  resilience.RetryConfig
}

// Load queries every row, retrying transient failures with backoff. Rows
// that cannot be scanned are not retried.
func (s PostgresSource) Load(ctx context.Context) (Collection, error) {
	if !tableName.MatchString(s.Table) {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid table name %q", s.Table)
	}
	logger := slog.Default().With("component", "postgres-source", "table", s.Table)

	var docs Collection
	err := resilience.Retry(ctx, "load-collection", s.Retry, func() error {
		var err error
		docs, err = s.query(ctx)
		return err
	})
	if errors.Is(err, apperrors.ErrMalformedCollection) {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCollectionUnavailable, err, s.Table)
	}
	logger.Info("collection loaded", "documents", len(docs))
	return docs, nil
}

func (s PostgresSource) query(ctx context.Context) (Collection, error) {
	rows, err := s.Client.DB.QueryContext(ctx, fmt.Sprintf(
		`SELECT id::text, COALESCE(title, ''), COALESCE(content, ''), COALESCE(tags, '{}'),
		        COALESCE(date, ''), COALESCE(url, ''), COALESCE(category, '')
		   FROM %s ORDER BY id`, s.Table))
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := make(Collection)
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, pq.Array(&doc.Tags),
			&doc.Date, &doc.URL, &doc.Category); err != nil {
			return nil, resilience.Permanent(apperrors.Wrap(apperrors.ErrMalformedCollection, err, "scanning document row"))
		}
		if doc.Tags == nil {
			doc.Tags = []string{}
		}
		docs[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}
	return docs, nil
}

// OpenSource returns the source selected by coll. The close function
// releases whatever connection the source holds and is never nil.
func OpenSource(ctx context.Context, coll config.CollectionConfig, pg config.PostgresConfig) (Source, func() error, error) {
	switch coll.Source {
	case config.SourceFile, "":
		return FileSource{Path: coll.Path}, func() error { return nil }, nil
	case config.SourcePostgres:
		client, err := postgres.New(ctx, pg)
		if err != nil {
			return nil, nil, apperrors.Wrap(apperrors.ErrCollectionUnavailable, err, "connecting to postgres")
		}
		return PostgresSource{Client: client, Table: coll.Table}, client.Close, nil
	default:
		return nil, nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown collection source %q", coll.Source)
	}
}
