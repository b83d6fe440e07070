package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatsHandlerEnvelope(t *testing.T) {
	agg := NewAggregator(nil)
	agg.recordSearchEvent(SearchEvent{Type: EventSearch, Query: "motion", TotalHits: 2, LatencyMs: 7})
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response %q is not JSON: %v", rec.Body.String(), err)
	}
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	stats, ok := body["stats"].(map[string]any)
	if !ok {
		t.Fatalf("stats missing: %v", body)
	}
	if stats["total_searches"] != float64(1) {
		t.Errorf("total_searches = %v, want 1", stats["total_searches"])
	}
}
