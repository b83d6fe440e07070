package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventSuggest    EventType = "suggest"
	EventIndexMsg   EventType = "index_message"
	EventZeroResult EventType = "zero_result"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Words     []string  `json:"words"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

type IndexEvent struct {
	Type       EventType `json:"type"`
	MessageID  string    `json:"message_id"`
	Role       string    `json:"role"`
	TokenCount int       `json:"token_count"`
	SizeBytes  int       `json:"size_bytes"`
	LatencyMs  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
}
