package ranker

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/indexer/tokenizer"
)

// Window is the snippet context around a matched position p: raw words
// [p-Before, p+After) of the document, clipped to its bounds.
type Window struct {
	Before int
	After  int
}

// DefaultWindow yields five words either side of the match.
var DefaultWindow = Window{Before: 5, After: 6}

// extractSnippets returns one snippet per recorded (term, position) pair
// whose token in the re-tokenized content is exactly that term.
//
// Positions index the tokenizer's output while the window is cut from the
// raw whitespace split. When normalization changes the word count the two
// disagree; such positions are verified against the token stream and
// skipped on mismatch rather than realigned.
func extractSnippets(content string, tok tokenizer.Tokenizer, acc *accumulator, w Window) []string {
	snippets := []string{}
	if content == "" || len(acc.matchedTerms) == 0 {
		return snippets
	}
	tokens := tok.Tokenize(content)
	raw := strings.Fields(content)
	for _, term := range acc.matchedTerms {
		for _, pos := range acc.positions[term] {
			if pos < 0 || pos >= len(tokens) || tokens[pos] != term {
				continue
			}
			start := max(pos-w.Before, 0)
			end := min(pos+w.After, len(raw))
			if start >= end {
				continue
			}
			snippets = append(snippets, strings.Join(raw[start:end], " "))
		}
	}
	return snippets
}
