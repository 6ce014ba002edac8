package index

// Posting records every occurrence of one term inside one document.
// Positions are token offsets into the tokenizer output, ascending.
type Posting struct {
	DocID     string `json:"doc_id"`
	Positions []int  `json:"positions"`
	TermFreq  int    `json:"term_freq"`
}

// PostingList holds all postings for a term. DocumentFrequency always
// equals len(Postings); postings are unique by DocID and kept in the
// order documents were merged into the index.
type PostingList struct {
	DocumentFrequency int       `json:"document_frequency"`
	Postings          []Posting `json:"postings"`
}

// TermStat pairs a term with its document frequency. It is used to report
// which terms were pruned.
type TermStat struct {
	Term              string `json:"term"`
	DocumentFrequency int    `json:"document_frequency"`
}

// LocalPostings groups a document's token offsets by token value. The
// returned map holds one Posting per distinct token.
func LocalPostings(docID string, tokens []string) map[string]Posting {
	local := make(map[string]Posting)
	for pos, token := range tokens {
		p, exists := local[token]
		if !exists {
			p = Posting{
				DocID:     docID,
				Positions: make([]int, 0, 4),
			}
		}
		p.Positions = append(p.Positions, pos)
		p.TermFreq++
		local[token] = p
	}
	return local
}
