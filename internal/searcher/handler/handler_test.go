package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aiteacher/chat-search-service/internal/analytics"
	"github.com/aiteacher/chat-search-service/internal/searcher"
	"github.com/aiteacher/chat-search-service/internal/store"
	"github.com/aiteacher/chat-search-service/pkg/metrics"
)

func newTestHandler(t *testing.T) (*Handler, *http.ServeMux) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc := searcher.New(st)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	h := New(svc, nil, nil, m, 50, 200)
	mux := http.NewServeMux()
	h.Register(mux)
	return h, mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response %q is not JSON: %v", rec.Body.String(), err)
	}
	return rec, decoded
}

func indexMessage(t *testing.T, mux *http.ServeMux, body string) {
	t.Helper()
	rec, _ := doJSON(t, mux, http.MethodPost, "/search/index", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("index returned %d: %s", rec.Code, rec.Body.String())
	}
}

func TestIndexEndpoint(t *testing.T) {
	_, mux := newTestHandler(t)

	rec, body := doJSON(t, mux, http.MethodPost, "/search/index",
		`{"id":"m1","content":"hello world","role":"user","timestamp":"2026-01-15T10:00:00Z"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if body["message"] != "Message indexed successfully" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestIndexEndpointErrors(t *testing.T) {
	_, mux := newTestHandler(t)
	indexMessage(t, mux, `{"id":"m1","content":"hello","role":"user","timestamp":"2026-01-15T10:00:00Z"}`)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"duplicate id", `{"id":"m1","content":"again","role":"user","timestamp":"2026-01-16T10:00:00Z"}`, http.StatusConflict},
		{"missing id", `{"content":"x","role":"user","timestamp":"2026-01-15T10:00:00Z"}`, http.StatusBadRequest},
		{"missing content", `{"id":"m2","role":"user","timestamp":"2026-01-15T10:00:00Z"}`, http.StatusBadRequest},
		{"bad timestamp", `{"id":"m2","content":"x","role":"user","timestamp":"tuesday"}`, http.StatusBadRequest},
		{"unknown field", `{"id":"m2","content":"x","timestamp":"2026-01-15","extra":true}`, http.StatusBadRequest},
		{"malformed json", `{"id":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := doJSON(t, mux, http.MethodPost, "/search/index", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if body["success"] != false {
				t.Errorf("success = %v, want false", body["success"])
			}
			if _, ok := body["error"]; !ok {
				t.Error("error field missing from failure envelope")
			}
		})
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, mux := newTestHandler(t)
	indexMessage(t, mux, `{"id":"m1","content":"the laws of motion","role":"user","timestamp":"2026-01-15T10:00:00Z"}`)
	indexMessage(t, mux, `{"id":"m2","content":"chemical reactions","role":"assistant","timestamp":"2026-01-16T10:00:00Z"}`)

	rec, body := doJSON(t, mux, http.MethodPost, "/search/search", `{"query":"motion"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if body["total"] != float64(1) {
		t.Errorf("total = %v, want 1", body["total"])
	}
	if body["query"] != "motion" {
		t.Errorf("query = %v, want motion", body["query"])
	}
	if !strings.Contains(body["message"].(string), "Found 1 results") {
		t.Errorf("message = %v", body["message"])
	}

	results, ok := body["results"].([]any)
	if !ok || len(results) != 1 {
		t.Fatalf("results = %v, want one element", body["results"])
	}
	hit := results[0].(map[string]any)
	for _, field := range []string{"id", "content", "role", "timestamp", "type", "score", "highlights"} {
		if _, ok := hit[field]; !ok {
			t.Errorf("result missing field %q", field)
		}
	}
}

func TestSearchEndpointZeroResults(t *testing.T) {
	_, mux := newTestHandler(t)

	rec, body := doJSON(t, mux, http.MethodPost, "/search/search", `{"query":"nothing"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for zero matches", rec.Code)
	}
	if body["total"] != float64(0) {
		t.Errorf("total = %v, want 0", body["total"])
	}
	if results, ok := body["results"].([]any); !ok || len(results) != 0 {
		t.Errorf("results = %v, want empty array (not null)", body["results"])
	}
}

func TestSearchEndpointEmptyQuery(t *testing.T) {
	_, mux := newTestHandler(t)
	indexMessage(t, mux, `{"id":"m1","content":"hello world","role":"user","timestamp":"2026-01-15T10:00:00Z"}`)

	for _, body := range []string{`{}`, `{"query":""}`} {
		rec, resp := doJSON(t, mux, http.MethodPost, "/search/search", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status for %s = %d, want 200", body, rec.Code)
		}
		if resp["total"] != float64(0) {
			t.Errorf("total = %v, want 0", resp["total"])
		}
		if results, ok := resp["results"].([]any); !ok || len(results) != 0 {
			t.Errorf("results = %v, want empty array", resp["results"])
		}
		if resp["message"] != "Found 0 results for ''" {
			t.Errorf("message = %v", resp["message"])
		}
	}
}

func TestSearchEndpointValidation(t *testing.T) {
	_, mux := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"zero limit", `{"query":"x","limit":0}`},
		{"negative offset", `{"query":"x","offset":-1}`},
		{"unknown field", `{"query":"x","sort":"desc"}`},
		{"bad date filter", `{"query":"x","filters":{"date_from":"next week"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := doJSON(t, mux, http.MethodPost, "/search/search", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
			if body["success"] != false {
				t.Errorf("success = %v, want false", body["success"])
			}
		})
	}
}

func TestSearchEndpointFilters(t *testing.T) {
	_, mux := newTestHandler(t)
	indexMessage(t, mux, `{"id":"m1","content":"shared topic","role":"user","timestamp":"2026-01-10T00:00:00Z"}`)
	indexMessage(t, mux, `{"id":"m2","content":"shared topic","role":"assistant","timestamp":"2026-01-15T00:00:00Z"}`)

	_, body := doJSON(t, mux, http.MethodPost, "/search/search",
		`{"query":"shared","filters":{"role":"assistant"}}`)
	if body["total"] != float64(1) {
		t.Errorf("total = %v, want 1 after role filter", body["total"])
	}
	results := body["results"].([]any)
	if id := results[0].(map[string]any)["id"]; id != "m2" {
		t.Errorf("filtered result = %v, want m2", id)
	}
}

func TestSearchEndpointPagination(t *testing.T) {
	_, mux := newTestHandler(t)
	indexMessage(t, mux, `{"id":"m1","content":"same words","role":"user","timestamp":"2026-01-15T00:00:00Z"}`)
	indexMessage(t, mux, `{"id":"m2","content":"same words","role":"user","timestamp":"2026-01-15T00:00:00Z"}`)
	indexMessage(t, mux, `{"id":"m3","content":"same words","role":"user","timestamp":"2026-01-15T00:00:00Z"}`)

	_, body := doJSON(t, mux, http.MethodPost, "/search/search", `{"query":"words","limit":2,"offset":2}`)
	if body["total"] != float64(3) {
		t.Errorf("total = %v, want 3 (pre-pagination)", body["total"])
	}
	results := body["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("page size = %d, want 1", len(results))
	}
}

func TestSuggestionsEndpoint(t *testing.T) {
	_, mux := newTestHandler(t)
	indexMessage(t, mux, `{"id":"m1","content":"derivative derivation","role":"user","timestamp":"2026-01-15T00:00:00Z"}`)

	rec, body := doJSON(t, mux, http.MethodGet, "/search/suggestions?q=deriv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["success"] != true || body["query"] != "deriv" {
		t.Errorf("envelope = %v", body)
	}
	suggestions, ok := body["suggestions"].([]any)
	if !ok || len(suggestions) != 2 {
		t.Errorf("suggestions = %v, want two terms", body["suggestions"])
	}

	// Short partials yield an empty list, still success.
	_, body = doJSON(t, mux, http.MethodGet, "/search/suggestions?q=d", "")
	if s := body["suggestions"].([]any); len(s) != 0 {
		t.Errorf("suggestions for one-char partial = %v, want none", s)
	}

	rec, _ = doJSON(t, mux, http.MethodGet, "/search/suggestions?q=deriv&limit=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestSuggestionsEndpointTracksEvent(t *testing.T) {
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc := searcher.New(st)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	collector := analytics.NewCollector(nil, 8)

	h := New(svc, nil, collector, m, 50, 200)
	mux := http.NewServeMux()
	h.Register(mux)

	rec, _ := doJSON(t, mux, http.MethodGet, "/search/suggestions?q=deriv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := collector.Pending(); got != 1 {
		t.Errorf("buffered events = %d, want 1 suggest event", got)
	}
}

func TestPopularEndpoint(t *testing.T) {
	_, mux := newTestHandler(t)
	indexMessage(t, mux, `{"id":"m1","content":"beta beta alpha","role":"user","timestamp":"2026-01-15T00:00:00Z"}`)

	rec, body := doJSON(t, mux, http.MethodGet, "/search/popular?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	popular, ok := body["popular_searches"].([]any)
	if !ok || len(popular) != 1 || popular[0] != "beta" {
		t.Errorf("popular_searches = %v, want [beta]", body["popular_searches"])
	}
}

func TestStatsEndpoint(t *testing.T) {
	_, mux := newTestHandler(t)
	indexMessage(t, mux, `{"id":"m1","content":"alpha beta","role":"user","timestamp":"2026-01-15T00:00:00Z"}`)

	rec, body := doJSON(t, mux, http.MethodGet, "/search/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	stats, ok := body["stats"].(map[string]any)
	if !ok {
		t.Fatalf("stats missing: %v", body)
	}
	if stats["total_messages"] != float64(1) {
		t.Errorf("total_messages = %v, want 1", stats["total_messages"])
	}
	if stats["indexed_words"] != float64(2) {
		t.Errorf("indexed_words = %v, want 2", stats["indexed_words"])
	}
	roles, _ := stats["role_distribution"].(map[string]any)
	if roles["user"] != float64(1) {
		t.Errorf("role_distribution = %v", stats["role_distribution"])
	}
}

func TestDefaultTypeApplied(t *testing.T) {
	_, mux := newTestHandler(t)
	indexMessage(t, mux, `{"id":"m1","content":"untyped message","role":"user","timestamp":"2026-01-15T00:00:00Z"}`)

	_, body := doJSON(t, mux, http.MethodPost, "/search/search", `{"query":"untyped"}`)
	results := body["results"].([]any)
	if typ := results[0].(map[string]any)["type"]; typ != "text" {
		t.Errorf("type = %v, want default text", typ)
	}
}
