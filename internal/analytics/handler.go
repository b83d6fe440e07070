package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handler serves the aggregated analytics over HTTP with the same
// {"success": true, ...} envelope as the search endpoints.
type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	body := map[string]any{
		"success": true,
		"stats":   h.aggregator.Stats(),
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
