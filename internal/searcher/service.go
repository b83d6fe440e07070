// Package searcher implements the query engine over the message store and
// inverted index: filtered relevance-ranked search with highlights, plus
// autocomplete suggestions, popular terms, and corpus stats.
package searcher

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aiteacher/chat-search-service/internal/indexer/index"
	"github.com/aiteacher/chat-search-service/internal/store"
	apperrors "github.com/aiteacher/chat-search-service/pkg/errors"
)

// Service owns the message store and its derived inverted index. A single
// RWMutex guards both: IndexMessage takes the write lock for the duration of
// persist-and-commit, reads (Search, Suggestions, Popular, Stats) share the
// read lock. A search issued after IndexMessage returns is guaranteed to see
// the new message.
type Service struct {
	mu     sync.RWMutex
	store  *store.FileStore
	idx    *index.Index
	logger *slog.Logger

	// now is swapped out in tests to make recency scoring deterministic.
	now func() time.Time
}

// New creates a Service over the given store and rebuilds the index from it.
func New(st *store.FileStore) *Service {
	s := &Service{
		store:  st,
		idx:    index.New(),
		logger: slog.Default().With("component", "searcher"),
		now:    time.Now,
	}
	s.rebuild()
	s.logger.Info("index built",
		"messages", st.Len(),
		"terms", s.idx.TermCount(),
	)
	return s
}

// rebuild reconstructs the index from the store in store order. The result
// is identical to incremental Add calls for the same message sequence.
func (s *Service) rebuild() {
	s.idx.Reset()
	for i, m := range s.store.Messages() {
		s.idx.Add(m.ID, m.Content, i)
	}
}

// IndexMessage validates, persists, and indexes one message. Re-submitting
// an existing ID is treated as a client retry and rejected with a conflict
// rather than double-indexed.
func (s *Service) IndexMessage(msg store.Message) error {
	if strings.TrimSpace(msg.ID) == "" {
		return apperrors.New(apperrors.ErrInvalidInput, 400, "message id is required")
	}
	if msg.Content == "" {
		return apperrors.New(apperrors.ErrInvalidInput, 400, "message content is required")
	}
	if _, err := msg.ParsedTimestamp(); err != nil {
		return apperrors.Newf(apperrors.ErrInvalidInput, 400, "invalid timestamp: %v", err)
	}
	if msg.Type == "" {
		msg.Type = store.DefaultType
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Contains(msg.ID) {
		return apperrors.Newf(apperrors.ErrMessageExists, 409, "message %q is already indexed", msg.ID)
	}

	position := s.store.Len()
	if err := s.store.Append(msg); err != nil {
		return err
	}
	s.idx.Add(msg.ID, msg.Content, position)

	s.logger.Debug("message indexed",
		"message_id", msg.ID,
		"position", position,
		"terms", s.idx.TermCount(),
	)
	return nil
}

// Stats describes the current corpus for the stats endpoint.
type Stats struct {
	TotalMessages    int            `json:"total_messages"`
	IndexedWords     int            `json:"indexed_words"`
	RoleDistribution map[string]int `json:"role_distribution"`
	TypeDistribution map[string]int `json:"type_distribution"`
}

// Stats returns message and term counts plus role/type distributions.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles, types := s.store.Distributions()
	return Stats{
		TotalMessages:    s.store.Len(),
		IndexedWords:     s.idx.TermCount(),
		RoleDistribution: roles,
		TypeDistribution: types,
	}
}

// TermCount returns the number of distinct indexed terms.
func (s *Service) TermCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx.TermCount()
}
