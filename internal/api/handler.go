// Package api exposes the movie engine over HTTP: indexing, view tracking,
// and ranked autocomplete.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/eventura/movie-autocomplete/internal/movies"
	"github.com/eventura/movie-autocomplete/internal/views"
	pkgerrors "github.com/eventura/movie-autocomplete/pkg/errors"
	"github.com/eventura/movie-autocomplete/pkg/logger"
	"github.com/eventura/movie-autocomplete/pkg/metrics"
)

// Handler serves the movie API. collector may be nil, in which case view
// events apply popularity increments synchronously.
type Handler struct {
	svc       *movies.Service
	collector *views.Collector
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates a Handler.
func New(svc *movies.Service, collector *views.Collector, m *metrics.Metrics) *Handler {
	return &Handler{
		svc:       svc,
		collector: collector,
		metrics:   m,
		logger:    slog.Default().With("component", "api"),
	}
}

// IndexMovie handles POST /api/v1/movies.
func (h *Handler) IndexMovie(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var movie movies.Movie
	if err := json.NewDecoder(r.Body).Decode(&movie); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid movie payload")
		return
	}
	indexed, err := h.svc.IndexBatch(r.Context(), []movies.Movie{movie})
	if err != nil {
		logger.FromContext(r.Context()).Error("index failed", "id", movie.ID, "error", err)
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "indexed": indexed})
}

// IndexBatch handles POST /api/v1/movies/batch. Invalid movies in the batch
// are skipped individually; an empty batch is rejected.
func (h *Handler) IndexBatch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		Movies []movies.Movie `json:"movies"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid batch payload")
		return
	}
	if len(body.Movies) == 0 {
		h.writeError(w, http.StatusBadRequest, "movies must be a non-empty array")
		return
	}
	indexed, err := h.svc.IndexBatch(r.Context(), body.Movies)
	if err != nil {
		logger.FromContext(r.Context()).Error("batch index failed", "count", len(body.Movies), "error", err)
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("%d movies indexed successfully", indexed),
		"indexed": indexed,
		"skipped": len(body.Movies) - indexed,
	})
}

// GetMovie handles GET /api/v1/movies/:id.
func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	movie, err := h.svc.GetMovie(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, movie)
}

// View handles POST /api/v1/views/:id. With Kafka enabled the event is
// queued and 202 returned; otherwise the increment is applied inline.
func (h *Handler) View(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	ctx := r.Context()
	if h.collector != nil {
		h.collector.Track(views.Event{
			MovieID:   id,
			Timestamp: time.Now().UTC(),
			RequestID: logger.RequestID(ctx),
		})
		if h.metrics != nil {
			h.metrics.ViewsTotal.WithLabelValues("kafka").Inc()
		}
		h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
		return
	}
	if err := h.svc.IncrementPopularity(ctx, id); err != nil {
		logger.FromContext(ctx).Error("popularity increment failed", "id", id, "error", err)
		h.writeErr(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ViewsTotal.WithLabelValues("direct").Inc()
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Autocomplete handles GET /api/v1/autocomplete?q=&limit=.
func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	suggestions, cacheHit, err := h.svc.Autocomplete(ctx, query, limit)
	if err != nil {
		log.Error("autocomplete failed", "query", query, "error", err)
		h.writeErr(w, err)
		return
	}

	latency := time.Since(start)
	if h.metrics != nil {
		status := "miss"
		if cacheHit {
			status = "hit"
		}
		h.metrics.AutocompleteLatency.WithLabelValues(status).Observe(latency.Seconds())
	}
	log.Info("autocomplete completed",
		"query", query,
		"returned", len(suggestions),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	hits, misses := h.svc.CacheStats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// Reindex handles POST /api/v1/reindex, rebuilding the store indexes from
// the archive.
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	count, err := h.svc.Reindex(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("reindex failed", "error", err)
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"reindexed": count})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	status := pkgerrors.HTTPStatusCode(err)
	message := "internal error"
	switch status {
	case http.StatusNotFound:
		message = "movie not found"
	case http.StatusBadRequest:
		message = "invalid input"
	case http.StatusNotImplemented:
		message = "archive is not enabled"
	case http.StatusServiceUnavailable:
		message = "store unavailable"
	}
	h.writeError(w, status, message)
}
