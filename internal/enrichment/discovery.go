package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lnup/eventscout/internal/metrics"
	"github.com/lnup/eventscout/internal/models"
)

const (
	defaultPriceInfo     = "Keine Angabe"
	maxDescriptionLength = 300
)

// ErrCityRequired is returned when discovery is invoked without a locality.
var ErrCityRequired = errors.New("city is required")

// DiscoveryConfig tunes the discovery filter.
type DiscoveryConfig struct {
	WindowDays       int
	MinConfidence    float64
	GroundingPenalty float64
	Temperature      float64
	MaxOutputTokens  int
}

// DefaultDiscoveryConfig returns a 14 day window, a 0.7 confidence floor and
// a 0.85 penalty for citations the model did not ground.
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		WindowDays:       14,
		MinConfidence:    0.7,
		GroundingPenalty: 0.85,
		Temperature:      0.2,
		MaxOutputTokens:  8192,
	}
}

// Discoverer finds local events for a city through a web-grounded model call.
type Discoverer struct {
	gen     Generator
	apiKey  string
	cache   DiscoveryCache
	config  DiscoveryConfig
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Collector

	now   func() time.Time
	newID func() string
}

// NewDiscoverer wires a discoverer. A nil cache gets an in-memory one.
func NewDiscoverer(gen Generator, apiKey string, cache DiscoveryCache, config DiscoveryConfig, logger *slog.Logger, m *metrics.Collector) *Discoverer {
	if cache == nil {
		cache = NewMemoryDiscoveryCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{
		gen:     gen,
		apiKey:  apiKey,
		cache:   cache,
		config:  config,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Enabled reports whether an API key is configured.
func (d *Discoverer) Enabled() bool {
	return d != nil && strings.TrimSpace(d.apiKey) != ""
}

// DiscoverLocalEvents returns AI-discovered events for city. The first
// result for a city is cached and served to every later caller; concurrent
// callers for the same city share one model request.
func (d *Discoverer) DiscoverLocalEvents(ctx context.Context, city string) ([]models.Event, error) {
	if !d.Enabled() {
		return nil, ErrNotConfigured
	}
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ErrCityRequired
	}

	key := CityKey(city)
	if events, ok := d.cache.Get(key); ok {
		d.logger.Debug("discovery cache hit", "city", city, "events", len(events))
		return events, nil
	}

	v, err, shared := d.group.Do(key, func() (any, error) {
		if events, ok := d.cache.Get(key); ok {
			return events, nil
		}
		events, err := d.discover(ctx, city)
		if err != nil {
			return nil, err
		}
		d.cache.Set(key, events)
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	events := v.([]models.Event)
	if shared {
		events = append([]models.Event(nil), events...)
	}
	return events, nil
}

// ClearCache drops the cached result for city, or every city when city is empty.
func (d *Discoverer) ClearCache(city string) {
	if strings.TrimSpace(city) == "" {
		d.cache.Clear()
		d.logger.Info("discovery cache cleared")
		return
	}
	d.cache.Delete(CityKey(city))
	d.logger.Info("discovery cache cleared", "city", city)
}

func (d *Discoverer) discover(ctx context.Context, city string) ([]models.Event, error) {
	now := d.now()
	window := NewDiscoveryWindow(now, d.config.WindowDays)

	system := TextContent(DiscoverySystemInstruction(city, window))
	result, err := d.gen.Generate(ctx, Request{
		APIKey:            d.apiKey,
		Operation:         "discovery",
		SystemInstruction: &system,
		Contents:          []Content{TextContent(DiscoveryUserPrompt(city, window))},
		Tools:             []Tool{WebSearchTool()},
		Temperature:       Float(d.config.Temperature),
		MaxOutputTokens:   d.config.MaxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("discover events in %s: %w", city, err)
	}
	if strings.TrimSpace(result.Text) == "" {
		return nil, fmt.Errorf("discover events in %s: %w", city, ErrEmptyResponse)
	}

	candidates := DecodeCandidates(ParseJSONArray(result.Text))
	accepted := d.filter(candidates, result.GroundingURLs, window)

	d.logger.Info("ai discovery completed",
		"city", city,
		"candidates", len(candidates),
		"accepted", len(accepted),
		"grounding_urls", len(result.GroundingURLs))

	events := make([]models.Event, 0, len(accepted))
	for _, c := range accepted {
		events = append(events, d.toEvent(c, city, now))
	}
	return events, nil
}

func (d *Discoverer) filter(candidates []Candidate, groundingURLs []string, window DiscoveryWindow) []Candidate {
	var missing, outside, lowConfidence, penalized int
	accepted := make([]Candidate, 0, len(candidates))

	for _, c := range candidates {
		switch {
		case !c.HasDiscoveryFields():
			missing++
			continue
		case c.Confidence < d.config.MinConfidence:
			lowConfidence++
			continue
		case !window.Contains(c.Date):
			outside++
			continue
		}

		if !IsGrounded(c.SourceURL, groundingURLs) {
			c.Confidence *= d.config.GroundingPenalty
			penalized++
		}
		if c.Confidence < d.config.MinConfidence {
			lowConfidence++
			continue
		}
		accepted = append(accepted, c)
	}

	d.metrics.AddCandidates("accepted", len(accepted))
	d.metrics.AddCandidates("missing_fields", missing)
	d.metrics.AddCandidates("outside_window", outside)
	d.metrics.AddCandidates("low_confidence", lowConfidence)
	d.metrics.AddCandidates("ungrounded", penalized)
	return accepted
}

func (d *Discoverer) toEvent(c Candidate, city string, now time.Time) models.Event {
	venueCity := c.City
	if venueCity == "" {
		venueCity = city
	}
	address := c.VenueAddress
	if address == "" {
		address = c.City
	}

	venue := &models.Venue{
		ID:        "ai-venue-" + d.newID(),
		Name:      c.VenueName,
		Address:   address,
		City:      cases.Title(language.German).String(venueCity),
		CreatedAt: now,
	}

	price := c.PriceInfo
	if price == "" {
		price = defaultPriceInfo
	}
	sourceURL := c.SourceURL
	confidence := c.Confidence

	return models.Event{
		ID:           "ai-" + d.newID(),
		Title:        c.Title,
		Description:  truncate(c.Description, maxDescriptionLength),
		VenueID:      venue.ID,
		Venue:        venue,
		EventDate:    c.Date,
		TimeStart:    c.TimeStart,
		TimeEnd:      optionalClock(c.TimeEnd),
		Category:     c.Category,
		PriceInfo:    price,
		SourceType:   models.SourceTypeAIDiscovered,
		SourceURL:    &sourceURL,
		Status:       models.EventStatusActive,
		AIConfidence: &confidence,
		CreatedAt:    now,
	}
}

func optionalClock(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "null") {
		return nil
	}
	return &raw
}
