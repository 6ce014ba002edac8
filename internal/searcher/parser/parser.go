// Package parser turns a raw query string into the term sequence the ranker
// consumes, using the same tokenizer that built the index.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer/tokenizer"
)

// MaxQueryLength bounds the raw query, in bytes, accepted by Parse.
const MaxQueryLength = 1024

type QueryPlan struct {
	RawQuery string
	// Terms keeps query order and duplicates; repeated terms weigh more.
	Terms []string
}

// Distinct returns the terms with duplicates removed, in first-occurrence
// order.
func (p *QueryPlan) Distinct() []string {
	seen := make(map[string]struct{}, len(p.Terms))
	out := make([]string, 0, len(p.Terms))
	for _, t := range p.Terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Parse tokenizes query. A blank query, or one that normalises to nothing,
// yields a plan with no terms.
func Parse(query string, tok tokenizer.Tokenizer) *QueryPlan {
	plan := &QueryPlan{
		RawQuery: query,
		Terms:    make([]string, 0),
	}
	if strings.TrimSpace(query) == "" {
		return plan
	}
	for _, term := range tok.Tokenize(query) {
		if term != "" {
			plan.Terms = append(plan.Terms, term)
		}
	}
	return plan
}
