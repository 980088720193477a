package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lnup/eventscout/internal/enrichment"
	"github.com/lnup/eventscout/internal/models"
)

const maxRequestBody = 1 << 20

// EventFeed produces the merged event list for a city.
type EventFeed interface {
	FetchEvents(ctx context.Context, city string) ([]models.Event, error)
}

// CandidateExtractor reads event candidates from a page or pasted text.
type CandidateExtractor interface {
	ExtractFromURL(ctx context.Context, pageURL string) ([]enrichment.Candidate, error)
	ExtractFromText(ctx context.Context, text, sourceURL string) ([]enrichment.Candidate, error)
}

// Handler serves the public event endpoints.
type Handler struct {
	feed      EventFeed
	extractor CandidateExtractor
	health    func(ctx context.Context) error
	logger    *slog.Logger
	startTime time.Time
}

// NewHandler builds the public handler. health may be nil when no backing
// store needs checking.
func NewHandler(feed EventFeed, extractor CandidateExtractor, health func(ctx context.Context) error, logger *slog.Logger) *Handler {
	return &Handler{
		feed:      feed,
		extractor: extractor,
		health:    health,
		logger:    logger,
		startTime: time.Now(),
	}
}

// EventsResponse is returned by GET /api/events.
type EventsResponse struct {
	City   string         `json:"city"`
	Events []models.Event `json:"events"`
	Count  int            `json:"count"`
}

// GetEventsHandler handles GET /api/events?city=
func (h *Handler) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		writeError(w, http.StatusBadRequest, "city query parameter is required")
		return
	}

	events, err := h.feed.FetchEvents(r.Context(), city)
	if err != nil {
		h.logger.Error("failed to aggregate events", "city", city, "error", err)
		writePipelineError(w, err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}

	writeJSON(w, http.StatusOK, EventsResponse{City: city, Events: events, Count: len(events)})
}

// ExtractRequest is the body of POST /api/extract. Exactly one of URL and
// Text must be set.
type ExtractRequest struct {
	URL       string `json:"url"`
	Text      string `json:"text"`
	SourceURL string `json:"source_url"`
}

// ExtractResponse lists the candidates read from the input.
type ExtractResponse struct {
	Events []enrichment.Candidate `json:"events"`
	Count  int                    `json:"count"`
}

// ExtractHandler handles POST /api/extract
func (h *Handler) ExtractHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ExtractRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.URL = strings.TrimSpace(req.URL)

	var (
		candidates []enrichment.Candidate
		err        error
	)
	switch {
	case req.URL != "" && req.Text != "":
		writeError(w, http.StatusBadRequest, "provide either url or text, not both")
		return
	case req.URL != "":
		candidates, err = h.extractor.ExtractFromURL(r.Context(), req.URL)
	case strings.TrimSpace(req.Text) != "":
		candidates, err = h.extractor.ExtractFromText(r.Context(), req.Text, strings.TrimSpace(req.SourceURL))
	default:
		writeError(w, http.StatusBadRequest, "url or text is required")
		return
	}
	if err != nil {
		h.logger.Warn("extraction failed", "url", req.URL, "error", err)
		writePipelineError(w, err)
		return
	}
	if candidates == nil {
		candidates = []enrichment.Candidate{}
	}

	writeJSON(w, http.StatusOK, ExtractResponse{Events: candidates, Count: len(candidates)})
}

// HealthHandler handles GET /healthz
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
	}
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.logger.Error("health check failed", "error", err)
			body["status"] = "degraded"
			body["error"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}
	writeJSON(w, http.StatusOK, body)
}
