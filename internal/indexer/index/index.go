// Package index implements the in-memory inverted index over the message
// store. Posting lists are append-only and mirror store order, so an index
// built incrementally message-by-message is identical to one rebuilt
// wholesale from the same store.
package index

import (
	"github.com/aiteacher/chat-search-service/internal/indexer/tokenizer"
)

// Posting records one occurrence of a term in a message: the message ID, the
// message's 0-based position in the store, and the offsets of the term
// within the message's token sequence.
//
// One Posting is appended per token occurrence, each carrying the full
// offset list for its term in that message. Repeated terms therefore appear
// as repeated postings; PostingCount counts occurrences, not messages.
type Posting struct {
	MessageID     string `json:"message_id"`
	Position      int    `json:"position"`
	WordPositions []int  `json:"word_positions"`
}

// Index maps terms to their posting lists.
type Index struct {
	postings map[string][]Posting
}

// New creates an empty Index.
func New() *Index {
	return &Index{
		postings: make(map[string][]Posting),
	}
}

// Add indexes one message's content at the given store position, appending
// to existing posting lists.
func (idx *Index) Add(messageID string, content string, position int) {
	tokens := tokenizer.Tokenize(content)

	offsets := make(map[string][]int)
	for _, tok := range tokens {
		offsets[tok.Term] = append(offsets[tok.Term], tok.Position)
	}

	for _, tok := range tokens {
		idx.postings[tok.Term] = append(idx.postings[tok.Term], Posting{
			MessageID:     messageID,
			Position:      position,
			WordPositions: offsets[tok.Term],
		})
	}
}

// Reset drops all posting lists.
func (idx *Index) Reset() {
	idx.postings = make(map[string][]Posting)
}

// Postings returns the posting list for a term, or nil if the term is not
// indexed. Callers must not mutate the returned slice.
func (idx *Index) Postings(term string) []Posting {
	return idx.postings[term]
}

// Has reports whether the term is indexed.
func (idx *Index) Has(term string) bool {
	_, ok := idx.postings[term]
	return ok
}

// Terms returns all indexed terms in map order.
func (idx *Index) Terms() []string {
	terms := make([]string, 0, len(idx.postings))
	for term := range idx.postings {
		terms = append(terms, term)
	}
	return terms
}

// TermCount returns the number of distinct indexed terms.
func (idx *Index) TermCount() int {
	return len(idx.postings)
}

// PostingCount returns the total number of postings for a term, counting
// every occurrence in every message.
func (idx *Index) PostingCount(term string) int {
	return len(idx.postings[term])
}
