package cache

import (
	"strings"
	"testing"

	"github.com/aiteacher/chat-search-service/internal/searcher"
)

func TestBuildKeyPreservesWordOrder(t *testing.T) {
	var c QueryCache

	ab := c.buildKey(searcher.Request{Query: "alpha beta", Limit: 10})
	ba := c.buildKey(searcher.Request{Query: "beta alpha", Limit: 10})
	if ab == ba {
		t.Fatalf("distinct queries share a key: %q", ab)
	}
}

func TestBuildKeyNormalisesCaseAndWhitespace(t *testing.T) {
	var c QueryCache

	base := c.buildKey(searcher.Request{Query: "alpha beta", Limit: 10})
	for _, query := range []string{"Alpha Beta", "  alpha   beta  ", "ALPHA\tbeta"} {
		got := c.buildKey(searcher.Request{Query: query, Limit: 10})
		if got != base {
			t.Errorf("buildKey(%q) = %q, want %q", query, got, base)
		}
	}
}

func TestBuildKeyVariesByFiltersAndPage(t *testing.T) {
	var c QueryCache

	base := searcher.Request{Query: "alpha beta", Limit: 10}
	variants := []searcher.Request{
		{Query: "alpha beta", Limit: 10, Filters: searcher.Filters{Role: "assistant"}},
		{Query: "alpha beta", Limit: 10, Filters: searcher.Filters{Type: "code"}},
		{Query: "alpha beta", Limit: 10, Filters: searcher.Filters{DateFrom: "2026-01-01"}},
		{Query: "alpha beta", Limit: 10, Filters: searcher.Filters{Language: "go"}},
		{Query: "alpha beta", Limit: 20},
		{Query: "alpha beta", Limit: 10, Offset: 10},
	}

	baseKey := c.buildKey(base)
	seen := map[string]struct{}{baseKey: {}}
	for _, req := range variants {
		key := c.buildKey(req)
		if _, dup := seen[key]; dup {
			t.Errorf("request %+v collides with another key %q", req, key)
		}
		seen[key] = struct{}{}
	}
}

func TestBuildKeyShape(t *testing.T) {
	var c QueryCache

	key := c.buildKey(searcher.Request{Query: "alpha"})
	if !strings.HasPrefix(key, keyPrefix) {
		t.Errorf("key %q missing prefix %q", key, keyPrefix)
	}
	if len(key) != len(keyPrefix)+32 {
		t.Errorf("key %q has length %d, want %d", key, len(key), len(keyPrefix)+32)
	}
}
