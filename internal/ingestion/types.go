// Package ingestion defines the document record consumed by the indexer and
// the sources that load a static document collection, either from a JSON
// file or from a PostgreSQL table.
package ingestion

import (
	"sort"
	"strconv"
)

// Document is one record of the collection. It is immutable once loaded.
type Document struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Date     string   `json:"date"`
	URL      string   `json:"url"`
	Category string   `json:"category"`
}

// Collection maps document id to Document. It is built once by a Source and
// only read afterwards.
type Collection map[string]Document

// Get returns the document with the given id.
func (c Collection) Get(id string) (Document, bool) {
	doc, ok := c[id]
	return doc, ok
}

// IDs returns every document id in ingestion order: numeric ascending when
// all ids are decimal integers, lexicographic otherwise.
func (c Collection) IDs() []string {
	ids := make([]string, 0, len(c))
	numeric := make(map[string]int64, len(c))
	allNumeric := true
	for id := range c {
		ids = append(ids, id)
		if !allNumeric {
			continue
		}
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			allNumeric = false
			continue
		}
		numeric[id] = n
	}
	sort.Slice(ids, func(i, j int) bool {
		if allNumeric && numeric[ids[i]] != numeric[ids[j]] {
			return numeric[ids[i]] < numeric[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}
