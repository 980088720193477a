package api

import (
	"net/http"

	"github.com/lnup/eventscout/internal/auth"
	"github.com/lnup/eventscout/internal/metrics"
)

// RouterConfig collects the handlers and middleware the router mounts.
type RouterConfig struct {
	Handler   *Handler
	Admin     *AdminHandler
	JWTSecret string
	Metrics   *metrics.Collector
}

// NewRouter wires every route onto a fresh mux. Admin routes require a bearer
// token; the whole mux is wrapped with CORS and request metrics.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	requireAuth := auth.Middleware(cfg.JWTSecret)

	mux.HandleFunc("/healthz", cfg.Handler.HealthHandler)
	mux.HandleFunc("/api/events", cfg.Handler.GetEventsHandler)
	mux.HandleFunc("/api/extract", cfg.Handler.ExtractHandler)

	if cfg.Admin != nil {
		mux.Handle("/api/admin/discover", requireAuth(http.HandlerFunc(cfg.Admin.DiscoverHandler)))
		mux.Handle("/api/admin/discovery-cache", requireAuth(http.HandlerFunc(cfg.Admin.ClearCacheHandler)))
		mux.Handle("/api/admin/inference-logs", requireAuth(http.HandlerFunc(cfg.Admin.ListInferenceLogs)))
	}

	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics.Handler())
		return withCORS(cfg.Metrics.InstrumentHandler(mux))
	}
	return withCORS(mux)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
