// Package store implements the durable, append-only chat-message store
// backing the search index. Messages are persisted as a JSON array in
// messages.json; the inverted index is derived state and is rebuilt from the
// store at startup, never persisted.
package store

import (
	"fmt"
	"time"
)

// DefaultType is assumed for messages that carry no explicit content kind.
const DefaultType = "text"

// Message is a single chat message as persisted in messages.json. Timestamp
// is kept as the raw ISO-8601 string the caller supplied so the wire format
// round-trips unchanged; ParsedTimestamp yields the time.Time view.
type Message struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Role      string `json:"role"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Language  string `json:"language,omitempty"`
}

// EffectiveType returns the message type, defaulting to "text".
func (m Message) EffectiveType() string {
	if m.Type == "" {
		return DefaultType
	}
	return m.Type
}

// ParsedTimestamp parses the message timestamp as ISO-8601.
func (m Message) ParsedTimestamp() (time.Time, error) {
	return ParseTimestamp(m.Timestamp)
}

// timestampLayouts are tried in order. RFC 3339 with offset first, then the
// zone-less forms produced by most chat clients.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp string, accepting full
// RFC 3339, zone-less date-times, and bare dates.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q is not ISO-8601", s)
}
