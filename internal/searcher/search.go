package searcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aiteacher/chat-search-service/internal/store"
	apperrors "github.com/aiteacher/chat-search-service/pkg/errors"
	"github.com/aiteacher/chat-search-service/pkg/tracing"
)

// Scoring weights. A result's score is the sum of the exact-phrase bonus,
// per-occurrence term weight, a linearly decaying recency boost, and a flat
// bonus for assistant messages.
const (
	phraseBonus       = 10.0
	occurrenceWeight  = 2.0
	assistantBonus    = 1.0
	recencyWindowDays = 30
)

// Filters narrows a search structurally before scoring. Date bounds are
// ISO-8601 strings; DateFrom is inclusive, DateTo exclusive.
type Filters struct {
	Role     string `json:"role,omitempty"`
	Type     string `json:"type,omitempty"`
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
	Language string `json:"language,omitempty"`
}

// Request is a search query with filters and pagination.
type Request struct {
	Query   string
	Filters Filters
	Limit   int
	Offset  int
}

// Result is one scored, highlighted search hit.
type Result struct {
	ID         string   `json:"id"`
	Content    string   `json:"content"`
	Role       string   `json:"role"`
	Timestamp  string   `json:"timestamp"`
	Type       string   `json:"type"`
	Score      float64  `json:"score"`
	Highlights []string `json:"highlights"`
}

// Response is one page of results plus the pre-pagination total.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Message string   `json:"message"`
}

// dateRange holds parsed filter bounds; nil means unbounded.
type dateRange struct {
	from *time.Time
	to   *time.Time
}

// Search answers a query against the current index.
//
// Matching is OR across query tokens: a message matches if it contains any
// of them. This mirrors the observable behaviour of the service being
// replaced; callers depend on it.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	_, span := tracing.StartChildSpan(ctx, "searcher.search")
	defer func() {
		span.End()
		span.Log()
	}()
	span.SetAttr("query", req.Query)

	queryWords := strings.Fields(strings.ToLower(req.Query))
	dates, err := parseDateRange(req.Filters)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make(map[string]struct{})
	for _, word := range queryWords {
		for _, p := range s.idx.Postings(word) {
			matched[p.MessageID] = struct{}{}
		}
	}

	now := s.now()
	results := make([]Result, 0, len(matched))
	for _, msg := range s.store.Messages() {
		if _, ok := matched[msg.ID]; !ok {
			continue
		}
		ts, tsErr := msg.ParsedTimestamp()
		if !passesFilters(msg, req.Filters, dates, ts, tsErr) {
			continue
		}
		results = append(results, Result{
			ID:         msg.ID,
			Content:    msg.Content,
			Role:       msg.Role,
			Timestamp:  msg.Timestamp,
			Type:       msg.EffectiveType(),
			Score:      scoreMessage(msg, queryWords, ts, tsErr, now),
			Highlights: Highlights(msg.Content, queryWords),
		})
	}

	// Stable sort: equal scores keep store order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	total := len(results)
	span.SetAttr("total", total)
	return &Response{
		Results: paginate(results, req.Offset, req.Limit),
		Total:   total,
		Query:   req.Query,
		Message: fmt.Sprintf("Found %d results for '%s'", total, req.Query),
	}, nil
}

// parseDateRange validates the date filters up front so a malformed bound
// fails the whole call with a typed error instead of a generic failure.
func parseDateRange(f Filters) (dateRange, error) {
	var r dateRange
	if f.DateFrom != "" {
		t, err := store.ParseTimestamp(f.DateFrom)
		if err != nil {
			return r, apperrors.Newf(apperrors.ErrInvalidFilter, 400, "date_from: %v", err)
		}
		r.from = &t
	}
	if f.DateTo != "" {
		t, err := store.ParseTimestamp(f.DateTo)
		if err != nil {
			return r, apperrors.Newf(apperrors.ErrInvalidFilter, 400, "date_to: %v", err)
		}
		r.to = &t
	}
	return r, nil
}

// passesFilters applies role/type/date/language filters. A message whose
// own timestamp does not parse is excluded whenever a date bound is set.
func passesFilters(msg store.Message, f Filters, dates dateRange, ts time.Time, tsErr error) bool {
	if f.Role != "" && msg.Role != f.Role {
		return false
	}
	if f.Type != "" && msg.EffectiveType() != f.Type {
		return false
	}
	if dates.from != nil || dates.to != nil {
		if tsErr != nil {
			return false
		}
		if dates.from != nil && ts.Before(*dates.from) {
			return false
		}
		if dates.to != nil && !ts.Before(*dates.to) {
			return false
		}
	}
	if f.Language != "" && msg.Language != f.Language {
		return false
	}
	return true
}

// scoreMessage computes the relevance score described above. Term
// occurrences are counted as substring hits in the lowercased content, so
// "motion" also credits "motions"; this matches the contract being
// preserved, not a tokenised count.
func scoreMessage(msg store.Message, queryWords []string, ts time.Time, tsErr error, now time.Time) float64 {
	content := strings.ToLower(msg.Content)
	var score float64

	if len(queryWords) > 0 && strings.Contains(content, strings.Join(queryWords, " ")) {
		score += phraseBonus
	}
	for _, word := range queryWords {
		score += float64(strings.Count(content, word)) * occurrenceWeight
	}
	if tsErr == nil {
		score += recencyBoost(ts, now)
	}
	if msg.Role == "assistant" {
		score += assistantBonus
	}
	return score
}

// recencyBoost decays linearly from 1.0 today to 0.0 at the window edge,
// measured in whole days.
func recencyBoost(ts time.Time, now time.Time) float64 {
	days := int(now.Sub(ts).Hours() / 24)
	boost := 1.0 - float64(days)/recencyWindowDays
	if boost < 0 {
		return 0
	}
	if boost > 1 {
		return 1
	}
	return boost
}

// paginate slices results by offset/limit, keeping the empty page non-nil
// so it serialises as [] rather than null.
func paginate(results []Result, offset, limit int) []Result {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return []Result{}
	}
	end := len(results)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return results[offset:end]
}
