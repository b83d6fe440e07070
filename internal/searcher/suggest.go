package searcher

import (
	"sort"
	"strings"
)

// minPartialLen is the shortest partial query that yields suggestions.
const minPartialLen = 2

// Suggestions returns indexed terms containing the partial query (which
// subsumes prefix matches), sorted lexicographically and truncated to limit.
// Partials shorter than two characters yield nothing.
func (s *Service) Suggestions(partial string, limit int) []string {
	if len(partial) < minPartialLen {
		return []string{}
	}
	partial = strings.ToLower(partial)

	s.mu.RLock()
	defer s.mu.RUnlock()

	suggestions := make([]string, 0)
	for _, term := range s.idx.Terms() {
		if strings.Contains(term, partial) {
			suggestions = append(suggestions, term)
		}
	}
	sort.Strings(suggestions)
	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

// Popular ranks indexed terms by total posting count (every occurrence in
// every message) descending, ties broken lexicographically for determinism.
//
// Content frequency stands in for real query popularity here: the service
// does not track what users actually search for.
func (s *Service) Popular(limit int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := s.idx.Terms()
	sort.Slice(terms, func(i, j int) bool {
		ci, cj := s.idx.PostingCount(terms[i]), s.idx.PostingCount(terms[j])
		if ci != cj {
			return ci > cj
		}
		return terms[i] < terms[j]
	})
	if limit > 0 && len(terms) > limit {
		terms = terms[:limit]
	}
	return terms
}
