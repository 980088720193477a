package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lnup/eventscout/internal/models"
	"github.com/lnup/eventscout/internal/retry"
)

const (
	ticketmasterName           = "ticketmaster"
	ticketmasterDescriptionMax = 300
	defaultPriceInfo           = "Keine Angabe"
)

// ErrMissingAPIKey is returned by connectors invoked without credentials.
var ErrMissingAPIKey = errors.New("api key not configured")

// TicketmasterConfig configures the Discovery API connector.
type TicketmasterConfig struct {
	APIKey      string
	BaseURL     string // e.g. https://app.ticketmaster.com/discovery/v2
	CountryCode string
	PageSize    int
	Timeout     time.Duration
	Retry       retry.Policy
}

// TicketmasterConnector fetches events from the Ticketmaster Discovery API.
type TicketmasterConnector struct {
	config TicketmasterConfig
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewTicketmasterConnector creates a new Ticketmaster connector.
func NewTicketmasterConnector(config TicketmasterConfig, logger *slog.Logger) *TicketmasterConnector {
	if logger == nil {
		logger = slog.Default()
	}
	if config.PageSize <= 0 {
		config.PageSize = 50
	}
	if config.Retry.BackoffFactor == 0 && config.Retry.InitialBackoff == 0 {
		config.Retry = retry.DefaultPolicy()
		config.Retry.MaxRetries = 2
		config.Retry.InitialBackoff = time.Second
		config.Retry.Jitter = true
	}
	return &TicketmasterConnector{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
		now:    time.Now,
	}
}

// Name returns the connector identifier.
func (c *TicketmasterConnector) Name() string { return ticketmasterName }

// SourceType returns api_ticketmaster.
func (c *TicketmasterConnector) SourceType() models.SourceType {
	return models.SourceTypeTicketmaster
}

// Enabled reports whether an API key is configured.
func (c *TicketmasterConnector) Enabled() bool {
	return strings.TrimSpace(c.config.APIKey) != ""
}

type tmResponse struct {
	Embedded struct {
		Events []tmEvent `json:"events"`
	} `json:"_embedded"`
}

type tmEvent struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Info       string `json:"info"`
	PleaseNote string `json:"pleaseNote"`
	Images     []struct {
		Ratio string `json:"ratio"`
		URL   string `json:"url"`
		Width int    `json:"width"`
	} `json:"images"`
	Dates struct {
		Start struct {
			LocalDate string `json:"localDate"`
			LocalTime string `json:"localTime"`
		} `json:"start"`
		End struct {
			LocalTime string `json:"localTime"`
		} `json:"end"`
		Status struct {
			Code string `json:"code"`
		} `json:"status"`
	} `json:"dates"`
	Classifications []struct {
		Primary bool `json:"primary"`
		Segment struct {
			Name string `json:"name"`
		} `json:"segment"`
		Genre struct {
			Name string `json:"name"`
		} `json:"genre"`
	} `json:"classifications"`
	PriceRanges []struct {
		Currency string  `json:"currency"`
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
	} `json:"priceRanges"`
	Embedded struct {
		Venues []tmVenue `json:"venues"`
	} `json:"_embedded"`
}

type tmVenue struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	Address struct {
		Line1 string `json:"line1"`
	} `json:"address"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	Location struct {
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"location"`
}

// Fetch retrieves upcoming events for city, earliest first.
func (c *TicketmasterConnector) Fetch(ctx context.Context, city string) ([]models.Event, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%s: %w", ticketmasterName, ErrMissingAPIKey)
	}

	params := url.Values{}
	params.Set("apikey", c.config.APIKey)
	params.Set("city", city)
	if c.config.CountryCode != "" {
		params.Set("countryCode", c.config.CountryCode)
	}
	params.Set("size", strconv.Itoa(c.config.PageSize))
	params.Set("sort", "date,asc")
	params.Set("startDateTime", c.now().UTC().Format("2006-01-02T15:04:05Z"))
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/events.json?" + params.Encode()

	var payload tmResponse
	err := retry.Do(ctx, c.config.Retry, func(attempt int) error {
		if attempt > 0 {
			c.logger.Warn("retrying ticketmaster fetch", "city", city, "attempt", attempt+1)
		}
		return c.get(ctx, endpoint, &payload)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch ticketmaster events for %s: %w", city, err)
	}

	now := c.now()
	events := make([]models.Event, 0, len(payload.Embedded.Events))
	for _, raw := range payload.Embedded.Events {
		event, ok := c.normalize(raw, city, now)
		if !ok {
			continue
		}
		events = append(events, event)
	}

	c.logger.Debug("ticketmaster fetch completed", "city", city, "events", len(events))
	return events, nil
}

func (c *TicketmasterConnector) get(ctx context.Context, endpoint string, out *tmResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return retry.NewRetryableError(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("ticketmaster returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			return retry.NewRetryableErrorWithDelay(statusErr, time.Duration(secs)*time.Second)
		}
		return retry.NewRetryableError(statusErr)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ticketmaster returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	*out = tmResponse{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *TicketmasterConnector) normalize(raw tmEvent, city string, now time.Time) (models.Event, bool) {
	if raw.ID == "" || raw.Name == "" || raw.Dates.Start.LocalDate == "" {
		return models.Event{}, false
	}

	var segment, genre string
	for i, cl := range raw.Classifications {
		if cl.Primary || i == 0 {
			segment, genre = cl.Segment.Name, cl.Genre.Name
		}
		if cl.Primary {
			break
		}
	}

	event := models.Event{
		ID:          "tm-" + raw.ID,
		Title:       strings.TrimSpace(raw.Name),
		Description: truncateRunes(firstNonEmpty(raw.Info, raw.PleaseNote), ticketmasterDescriptionMax),
		EventDate:   raw.Dates.Start.LocalDate,
		TimeStart:   clock(raw.Dates.Start.LocalTime),
		Category:    MapTicketmasterCategory(segment, genre),
		PriceInfo:   priceInfo(raw),
		SourceType:  models.SourceTypeTicketmaster,
		Status:      models.EventStatusActive,
		CreatedAt:   now,
	}
	if end := clock(raw.Dates.End.LocalTime); end != "" {
		event.TimeEnd = &end
	}
	if raw.Dates.Status.Code == "cancelled" {
		event.Status = models.EventStatusCancelled
	}
	if raw.URL != "" {
		u := raw.URL
		event.SourceURL = &u
	}
	if img := bestImage(raw); img != "" {
		event.ImageURL = &img
	}

	if len(raw.Embedded.Venues) > 0 {
		v := raw.Embedded.Venues[0]
		venue := &models.Venue{
			ID:        "tm-venue-" + v.ID,
			Name:      strings.TrimSpace(v.Name),
			Address:   strings.TrimSpace(v.Address.Line1),
			City:      firstNonEmpty(v.City.Name, city),
			CreatedAt: now,
		}
		venue.Lat, _ = strconv.ParseFloat(v.Location.Latitude, 64)
		venue.Lng, _ = strconv.ParseFloat(v.Location.Longitude, 64)
		if v.ID != "" {
			id := v.ID
			venue.TicketmasterID = &id
		}
		if v.URL != "" {
			site := v.URL
			venue.Website = &site
		}
		event.Venue = venue
		event.VenueID = venue.ID
	}

	return event, true
}

// bestImage prefers the widest 16:9 image, falling back to the widest of any ratio.
func bestImage(raw tmEvent) string {
	var best, bestAny string
	var bestWidth, bestAnyWidth int
	for _, img := range raw.Images {
		if img.URL == "" {
			continue
		}
		if img.Ratio == "16_9" && img.Width > bestWidth {
			best, bestWidth = img.URL, img.Width
		}
		if img.Width > bestAnyWidth || bestAny == "" {
			bestAny, bestAnyWidth = img.URL, img.Width
		}
	}
	if best != "" {
		return best
	}
	return bestAny
}

func priceInfo(raw tmEvent) string {
	if len(raw.PriceRanges) == 0 {
		return defaultPriceInfo
	}
	p := raw.PriceRanges[0]
	currency := firstNonEmpty(p.Currency, "EUR")
	minPrice := strconv.FormatFloat(p.Min, 'f', -1, 64)
	if p.Max <= p.Min {
		return minPrice + " " + currency
	}
	return minPrice + "–" + strconv.FormatFloat(p.Max, 'f', -1, 64) + " " + currency
}

// clock trims "HH:MM:SS" to "HH:MM".
func clock(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 5 {
		return raw[:5]
	}
	return raw
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
