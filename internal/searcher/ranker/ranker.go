// Package ranker scores documents against a query with TF-IDF weighted
// cosine similarity. Ranking is a pure function of the frozen index, the
// champion lists and the document collection, so any number of queries may
// be evaluated concurrently against the same inputs.
package ranker

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/ingestion"
)

// DefaultLimit is used when Options.Limit is not positive.
const DefaultLimit = 10

type Result struct {
	DocID    string   `json:"doc_id"`
	Title    string   `json:"title"`
	Score    float64  `json:"score"`
	Snippets []string `json:"snippets"`
}

// Options controls a single ranking call.
type Options struct {
	Limit int
	// Champions is consulted only when UseChampionLists is set. Terms
	// without a champion list fall back to their full postings.
	Champions        *index.ChampionLists
	UseChampionLists bool
	// Window is the snippet context; the zero value selects DefaultWindow.
	Window Window
}

// Evaluation is the outcome of ranking a query.
type Evaluation struct {
	Results []Result
	// Candidates is the number of distinct documents that were scored
	// before the limit was applied.
	Candidates int
}

type accumulator struct {
	docID        string
	dotProduct   float64
	magnitudeSq  float64
	positions    map[string][]int
	matchedTerms []string
}

// Rank returns at most opts.Limit results for the tokenized query, highest
// similarity first.
func Rank(ix *index.InvertedIndex, docs ingestion.Collection, tok tokenizer.Tokenizer, query []string, opts Options) []Result {
	return Evaluate(ix, docs, tok, query, opts).Results
}

// Evaluate ranks the query and also reports how many documents were scored.
//
// The idf of a term always comes from its full posting list. Champion mode
// only narrows which postings are visited, never the statistics.
func Evaluate(ix *index.InvertedIndex, docs ingestion.Collection, tok tokenizer.Tokenizer, query []string, opts Options) Evaluation {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	weights, order, queryMagnitude := queryVector(ix, query)
	if len(order) == 0 {
		return Evaluation{Results: []Result{}}
	}

	totalDocs := ix.TotalDocs()
	byDoc := make(map[string]*accumulator)
	for _, term := range order {
		pl, _ := ix.Lookup(term)
		idf := inverseDocumentFrequency(totalDocs, pl.DocumentFrequency)
		queryWeight := weights[term]

		postings := pl.Postings
		if opts.UseChampionLists {
			if champions, ok := opts.Champions.Lookup(term); ok {
				postings = champions
			}
		}
		for _, p := range postings {
			acc, ok := byDoc[p.DocID]
			if !ok {
				acc = &accumulator{docID: p.DocID, positions: make(map[string][]int)}
				byDoc[p.DocID] = acc
			}
			docWeight := termWeight(p.TermFreq, idf)
			acc.dotProduct += queryWeight * docWeight
			acc.magnitudeSq += docWeight * docWeight
			if _, seen := acc.positions[term]; !seen {
				acc.matchedTerms = append(acc.matchedTerms, term)
			}
			acc.positions[term] = append(acc.positions[term], p.Positions...)
		}
	}

	top := newTopK(limit)
	for _, acc := range byDoc {
		top.offer(scored{
			acc:   acc,
			score: cosine(acc.dotProduct, queryMagnitude, math.Sqrt(acc.magnitudeSq)),
		})
	}

	window := opts.Window
	if window == (Window{}) {
		window = DefaultWindow
	}
	ranked := top.sorted()
	results := make([]Result, 0, len(ranked))
	for _, s := range ranked {
		doc, _ := docs.Get(s.acc.docID)
		results = append(results, Result{
			DocID:    s.acc.docID,
			Title:    doc.Title,
			Score:    s.score,
			Snippets: extractSnippets(doc.Content, tok, s.acc, window),
		})
	}
	return Evaluation{Results: results, Candidates: len(byDoc)}
}

// queryVector weights each distinct query term present in the index. order
// keeps the first-occurrence order of those terms.
func queryVector(ix *index.InvertedIndex, query []string) (weights map[string]float64, order []string, magnitude float64) {
	counts := make(map[string]int, len(query))
	for _, term := range query {
		if counts[term] == 0 {
			order = append(order, term)
		}
		counts[term]++
	}

	weights = make(map[string]float64, len(counts))
	present := order[:0]
	totalDocs := ix.TotalDocs()
	var sumSq float64
	for _, term := range order {
		df := ix.DocumentFrequency(term)
		if df == 0 {
			continue
		}
		w := termWeight(counts[term], inverseDocumentFrequency(totalDocs, df))
		weights[term] = w
		sumSq += w * w
		present = append(present, term)
	}
	return weights, present, math.Sqrt(sumSq)
}

// inverseDocumentFrequency is the smoothed idf ln((1+N)/(1+df)) + 1.
func inverseDocumentFrequency(totalDocs, df int) float64 {
	return math.Log(float64(1+totalDocs)/float64(1+df)) + 1
}

// termWeight applies sublinear tf scaling: (log2(tf) + 1) * idf.
func termWeight(tf int, idf float64) float64 {
	if tf <= 0 {
		return 0
	}
	return (math.Log2(float64(tf)) + 1) * idf
}

func cosine(dot, queryMagnitude, docMagnitude float64) float64 {
	if queryMagnitude == 0 || docMagnitude == 0 {
		return 0
	}
	return dot / (queryMagnitude * docMagnitude)
}
