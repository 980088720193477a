package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lnup/eventscout/internal/metrics"
	"github.com/lnup/eventscout/internal/models"
)

const (
	discoverySourceName = "ai_discovery"
	localSourceName     = "local"
)

// ErrCityRequired is returned when aggregation is requested without a city.
var ErrCityRequired = errors.New("city is required")

// EventDiscoverer is the AI discovery adapter as seen by the aggregator.
type EventDiscoverer interface {
	Enabled() bool
	DiscoverLocalEvents(ctx context.Context, city string) ([]models.Event, error)
}

// EventStore is the backend holding locally authored and previously
// discovered events.
type EventStore interface {
	ListUpcoming(ctx context.Context, city string, from, to time.Time) ([]models.Event, error)
	SaveDiscovered(ctx context.Context, events []models.Event) error
}

// AggregatorConfig holds aggregation settings.
type AggregatorConfig struct {
	// LocalWindow bounds how far ahead stored events are listed.
	LocalWindow time.Duration
}

// DefaultAggregatorConfig lists stored events up to 14 days ahead.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{LocalWindow: 14 * 24 * time.Hour}
}

// Aggregator merges events from every source for a city.
type Aggregator struct {
	connectors []Connector
	discoverer EventDiscoverer
	gate       *CooldownGate
	store      EventStore
	config     AggregatorConfig
	logger     *slog.Logger
	metrics    *metrics.Collector
	now        func() time.Time
}

// NewAggregator wires the aggregation pipeline. discoverer, gate and store
// may be nil to disable the corresponding stage.
func NewAggregator(
	connectors []Connector,
	discoverer EventDiscoverer,
	gate *CooldownGate,
	store EventStore,
	config AggregatorConfig,
	logger *slog.Logger,
	m *metrics.Collector,
) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		connectors: connectors,
		discoverer: discoverer,
		gate:       gate,
		store:      store,
		config:     config,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
}

type sourceFetch struct {
	name  string
	fetch func(ctx context.Context) ([]models.Event, error)
}

// sourceResult is the outcome of one concurrent fetch.
type sourceResult struct {
	name   string
	events []models.Event
	err    error
}

// FetchEvents returns the deduplicated, date-sorted events for city. Source
// failures are logged and contribute no events; only a missing city is an error.
func (a *Aggregator) FetchEvents(ctx context.Context, city string) ([]models.Event, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ErrCityRequired
	}
	start := a.now()

	runDiscovery := a.discoverer != nil && a.discoverer.Enabled() && a.gate != nil && a.gate.ShouldRun(ctx, city)

	var fetchers []sourceFetch
	for _, conn := range a.connectors {
		if !conn.Enabled() {
			continue
		}
		fetchers = append(fetchers, sourceFetch{name: conn.Name(), fetch: func(ctx context.Context) ([]models.Event, error) {
			return conn.Fetch(ctx, city)
		}})
	}
	if runDiscovery {
		fetchers = append(fetchers, sourceFetch{name: discoverySourceName, fetch: func(ctx context.Context) ([]models.Event, error) {
			return a.discoverer.DiscoverLocalEvents(ctx, city)
		}})
	}
	if a.store != nil {
		fetchers = append(fetchers, sourceFetch{name: localSourceName, fetch: func(ctx context.Context) ([]models.Event, error) {
			return a.store.ListUpcoming(ctx, city, start, start.Add(a.config.LocalWindow))
		}})
	}

	results := make([]sourceResult, len(fetchers))
	var wg sync.WaitGroup
	for i, f := range fetchers {
		wg.Add(1)
		go func(i int, f sourceFetch) {
			defer wg.Done()
			results[i] = f.run(ctx)
		}(i, f)
	}
	wg.Wait()

	var combined []models.Event
	var discovered []models.Event
	for _, res := range results {
		a.metrics.ObserveSourceFetch(res.name, res.err, len(res.events))
		if res.err != nil {
			a.logger.Warn("source fetch failed, continuing without it",
				"source", res.name,
				"city", city,
				"error", res.err)
			continue
		}
		if res.name == discoverySourceName {
			discovered = res.events
		}
		combined = append(combined, res.events...)
	}

	if runDiscovery && len(discovered) > 0 {
		a.gate.MarkScanned(ctx, city)
		if a.store != nil {
			if err := a.store.SaveDiscovered(ctx, discovered); err != nil {
				a.logger.Warn("failed to persist discovered events", "city", city, "error", err)
			}
		}
	}

	merged := Deduplicate(combined)
	a.metrics.AddDuplicates(len(combined) - len(merged))

	a.logger.Info("aggregation completed",
		"city", city,
		"sources", len(fetchers),
		"ai_discovery", runDiscovery,
		"candidates", len(combined),
		"events", len(merged),
		"duration", a.now().Sub(start))

	return merged, nil
}

// run converts a panicking fetch into an error so one source cannot take
// down the aggregation.
func (f sourceFetch) run(ctx context.Context) (res sourceResult) {
	res.name = f.name
	defer func() {
		if r := recover(); r != nil {
			res.events = nil
			res.err = fmt.Errorf("source panicked: %v", r)
		}
	}()
	res.events, res.err = f.fetch(ctx)
	return res
}
