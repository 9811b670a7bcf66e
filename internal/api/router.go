package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/eventura/movie-autocomplete/pkg/config"
	"github.com/eventura/movie-autocomplete/pkg/health"
	"github.com/eventura/movie-autocomplete/pkg/metrics"
)

// NewRouter builds the HTTP routing table and wraps it in the middleware
// chain: request ID, metrics, CORS, per-IP rate limiting, request timeout.
func NewRouter(h *Handler, checker *health.Checker, m *metrics.Metrics, cfg config.ServerConfig) http.Handler {
	router := httprouter.New()

	router.POST("/api/v1/movies", h.IndexMovie)
	router.POST("/api/v1/movies/batch", h.IndexBatch)
	router.GET("/api/v1/movies/:id", h.GetMovie)
	router.POST("/api/v1/views/:id", h.View)
	router.GET("/api/v1/autocomplete", h.Autocomplete)
	router.GET("/api/v1/cache/stats", h.CacheStats)
	router.POST("/api/v1/reindex", h.Reindex)

	router.HandlerFunc(http.MethodGet, "/health/live", checker.LiveHandler())
	router.HandlerFunc(http.MethodGet, "/health/ready", checker.ReadyHandler())

	var chain http.Handler = router
	if cfg.WriteTimeout > 0 {
		chain = Timeout(cfg.WriteTimeout)(chain)
	}
	chain = RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)(chain)
	chain = CORS(cfg.CORSOrigin)(chain)
	if m != nil {
		chain = Metrics(m)(chain)
	}
	chain = RequestID(chain)
	return chain
}
