package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/lnup/eventscout/internal/models"
)

// CityDiscoverer runs AI discovery for a city and manages its cache.
type CityDiscoverer interface {
	DiscoverLocalEvents(ctx context.Context, city string) ([]models.Event, error)
	ClearCache(city string)
}

// InferenceLogLister reads recorded language-model calls.
type InferenceLogLister interface {
	List(ctx context.Context, query models.InferenceLogQuery) ([]models.InferenceLog, error)
}

// AdminHandler serves operator endpoints behind the auth middleware.
type AdminHandler struct {
	discoverer CityDiscoverer
	logs       InferenceLogLister
	logger     *slog.Logger
}

// NewAdminHandler builds the admin handler. logs may be nil when no
// database is configured.
func NewAdminHandler(discoverer CityDiscoverer, logs InferenceLogLister, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{discoverer: discoverer, logs: logs, logger: logger}
}

// DiscoverHandler handles GET /api/admin/discover?city=
// Unlike the aggregated feed, discovery errors are returned to the caller.
func (h *AdminHandler) DiscoverHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	city := strings.TrimSpace(r.URL.Query().Get("city"))
	events, err := h.discoverer.DiscoverLocalEvents(r.Context(), city)
	if err != nil {
		h.logger.Warn("admin discovery failed", "city", city, "error", err)
		writePipelineError(w, err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}

	writeJSON(w, http.StatusOK, EventsResponse{City: city, Events: events, Count: len(events)})
}

// ClearCacheHandler handles DELETE /api/admin/discovery-cache?city=
// An empty city clears every entry.
func (h *AdminHandler) ClearCacheHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	city := strings.TrimSpace(r.URL.Query().Get("city"))
	h.discoverer.ClearCache(city)
	h.logger.Info("discovery cache cleared", "city", city)

	scope := city
	if scope == "" {
		scope = "all"
	}
	writeJSON(w, http.StatusOK, map[string]string{"cleared": scope})
}

// ListInferenceLogs handles GET /api/admin/inference-logs
func (h *AdminHandler) ListInferenceLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.logs == nil {
		writeError(w, http.StatusServiceUnavailable, "inference logs require a database")
		return
	}

	q := r.URL.Query()
	query := models.InferenceLogQuery{
		Provider:  q.Get("provider"),
		Operation: q.Get("operation"),
		Status:    q.Get("status"),
		Limit:     100,
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			query.Limit = limit
		}
	}

	logs, err := h.logs.List(r.Context(), query)
	if err != nil {
		h.logger.Error("failed to list inference logs", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list inference logs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
	})
}
