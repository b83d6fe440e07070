// Package handler exposes the search service over HTTP. Every response
// carries a success flag alongside its payload; errors are returned as
// {"success": false, "error": "..."} with a status mapped from the
// underlying error.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aiteacher/chat-search-service/internal/analytics"
	"github.com/aiteacher/chat-search-service/internal/searcher"
	"github.com/aiteacher/chat-search-service/internal/searcher/cache"
	"github.com/aiteacher/chat-search-service/internal/store"
	apperrors "github.com/aiteacher/chat-search-service/pkg/errors"
	"github.com/aiteacher/chat-search-service/pkg/logger"
	"github.com/aiteacher/chat-search-service/pkg/metrics"
	"github.com/aiteacher/chat-search-service/pkg/tracing"
)

const (
	defaultSuggestionLimit = 10
	maxSuggestionLimit     = 50
)

type Handler struct {
	service      *searcher.Service
	cache        *cache.QueryCache
	collector    *analytics.Collector
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

func New(service *searcher.Service, queryCache *cache.QueryCache, collector *analytics.Collector, m *metrics.Metrics, defaultLimit, maxResults int) *Handler {
	return &Handler{
		service:      service,
		cache:        queryCache,
		collector:    collector,
		metrics:      m,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Register wires the search routes onto a mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /search/search", h.Search)
	mux.HandleFunc("POST /search/index", h.Index)
	mux.HandleFunc("GET /search/suggestions", h.Suggestions)
	mux.HandleFunc("GET /search/popular", h.Popular)
	mux.HandleFunc("GET /search/stats", h.Stats)
	mux.HandleFunc("GET /search/cache/stats", h.CacheStats)
}

type searchRequest struct {
	Query   string           `json:"query"`
	Filters searcher.Filters `json:"filters"`
	Limit   *int             `json:"limit"`
	Offset  *int             `json:"offset"`
}

type searchResponse struct {
	Success bool              `json:"success"`
	Results []searcher.Result `json:"results"`
	Total   int               `json:"total"`
	Query   string            `json:"query"`
	Message string            `json:"message"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.StartSpan(r.Context(), "http.search", logger.RequestID(r.Context()))
	defer span.End()
	log := logger.FromContext(ctx)

	var body searchRequest
	if err := decodeStrict(r.Body, &body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	// An empty query is not an error. It tokenises to nothing and takes
	// the usual zero-result path.
	req := searcher.Request{
		Query:   body.Query,
		Filters: body.Filters,
		Limit:   h.defaultLimit,
	}
	if body.Limit != nil {
		if *body.Limit < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		req.Limit = min(*body.Limit, h.maxResults)
	}
	if body.Offset != nil {
		if *body.Offset < 0 {
			h.writeError(w, http.StatusBadRequest, "offset must not be negative")
			return
		}
		req.Offset = *body.Offset
	}

	var resp *searcher.Response
	var err error
	cacheHit := false

	if h.cache != nil {
		resp, cacheHit, err = h.cache.GetOrCompute(ctx, req, func() (*searcher.Response, error) {
			return h.service.Search(ctx, req)
		})
	} else {
		resp, err = h.service.Search(ctx, req)
	}
	if err != nil {
		log.Error("search failed", "query", body.Query, "error", err)
		h.writeAppError(w, err)
		h.metrics.SearchesTotal.WithLabelValues("error").Inc()
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("search completed",
		"query", body.Query,
		"total", resp.Total,
		"returned", len(resp.Results),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)

	resultType := "hit"
	if resp.Total == 0 {
		resultType = "zero_result"
	}
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
		h.metrics.CacheHitsTotal.Inc()
	} else {
		h.metrics.CacheMissesTotal.Inc()
	}
	h.metrics.SearchesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	h.metrics.SearchResultsCount.Observe(float64(resp.Total))

	if h.collector != nil {
		eventType := analytics.EventSearch
		if resp.Total == 0 {
			eventType = analytics.EventZeroResult
		}
		h.collector.Track(analytics.SearchEvent{
			Type:      eventType,
			Query:     body.Query,
			Words:     strings.Fields(strings.ToLower(body.Query)),
			TotalHits: resp.Total,
			Returned:  len(resp.Results),
			LatencyMs: latencyMs,
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: logger.RequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, searchResponse{
		Success: true,
		Results: resp.Results,
		Total:   resp.Total,
		Query:   resp.Query,
		Message: resp.Message,
	})
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.StartSpan(r.Context(), "http.index", logger.RequestID(r.Context()))
	defer span.End()
	log := logger.FromContext(ctx)

	var msg store.Message
	if err := decodeStrict(r.Body, &msg); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.service.IndexMessage(msg); err != nil {
		log.Error("indexing failed", "message_id", msg.ID, "error", err)
		h.writeAppError(w, err)
		return
	}

	h.metrics.MessagesIndexedTotal.Inc()
	h.metrics.IndexLatency.Observe(time.Since(start).Seconds())
	h.metrics.StoredMessages.Set(float64(h.service.Stats().TotalMessages))
	h.metrics.IndexedTerms.Set(float64(h.service.TermCount()))

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			log.Warn("cache invalidation after index failed", "error", err)
		}
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("message indexed", "message_id", msg.ID, "latency_ms", latencyMs)

	if h.collector != nil {
		h.collector.Track(analytics.IndexEvent{
			Type:       analytics.EventIndexMsg,
			MessageID:  msg.ID,
			Role:       msg.Role,
			TokenCount: len(strings.Fields(msg.Content)),
			SizeBytes:  len(msg.Content),
			LatencyMs:  latencyMs,
			Timestamp:  time.Now().UTC(),
			RequestID:  logger.RequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Message indexed successfully",
	})
}

func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query().Get("q")
	limit, err := parseLimit(r.URL.Query().Get("limit"), defaultSuggestionLimit, maxSuggestionLimit)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	suggestions := h.service.Suggestions(q, limit)
	h.metrics.SuggestionsTotal.Inc()

	if h.collector != nil {
		h.collector.Track(analytics.SearchEvent{
			Type:      analytics.EventSuggest,
			Query:     q,
			TotalHits: len(suggestions),
			Returned:  len(suggestions),
			LatencyMs: time.Since(start).Milliseconds(),
			Timestamp: time.Now().UTC(),
			RequestID: logger.RequestID(r.Context()),
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"suggestions": suggestions,
		"query":       q,
	})
}

func (h *Handler) Popular(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"), defaultSuggestionLimit, maxSuggestionLimit)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"popular_searches": h.service.Popular(limit),
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   h.service.Stats(),
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": hitRate,
	})
}

// decodeStrict decodes JSON rejecting unknown fields and trailing garbage.
func decodeStrict(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}

// parseLimit parses an optional limit query parameter, clamping to [1, max].
func parseLimit(raw string, def, max int) (int, error) {
	if raw == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	if parsed > max {
		parsed = max
	}
	return parsed, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}
