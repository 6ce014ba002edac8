// Package benchmark contains Go benchmarks for index construction, champion
// list selection, ranking and tokenization over synthetic news corpora.
package benchmark

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/ingestion"
)

var corpusSizes = []int{1000, 10000}

// syntheticCorpus returns n documents whose words follow a Zipf
// distribution over a fixed vocabulary, so a few terms are very common and
// most are rare, as in a news collection. The corpus is deterministic.
func syntheticCorpus(n, wordsPerDoc int) ingestion.Collection {
	const vocabulary = 20000
	r := rand.New(rand.NewSource(42))
	zipf := rand.NewZipf(r, 1.1, 1, vocabulary-1)

	docs := make(ingestion.Collection, n)
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.Reset()
		for w := 0; w < wordsPerDoc; w++ {
			if w > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(word(zipf.Uint64()))
		}
		id := strconv.Itoa(i)
		docs[id] = ingestion.Document{
			ID:      id,
			Title:   fmt.Sprintf("article %d", i),
			Content: sb.String(),
		}
	}
	return docs
}

func word(rank uint64) string {
	return "w" + strconv.FormatUint(rank, 10)
}
