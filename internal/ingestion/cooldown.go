package ingestion

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lnup/eventscout/internal/metrics"
	"github.com/lnup/eventscout/internal/models"
)

// DefaultScanCooldown is the minimum gap between AI discovery runs per city.
const DefaultScanCooldown = time.Hour

// ScanStore persists the per-city last-scanned timestamp. LastScanned
// returns a nil record when the city has never been scanned.
type ScanStore interface {
	LastScanned(ctx context.Context, city string) (*models.ScanRecord, error)
	MarkScanned(ctx context.Context, city string, at time.Time) error
}

// CooldownGate decides whether the AI discovery path may run for a city.
type CooldownGate struct {
	store    ScanStore
	cooldown time.Duration
	enabled  bool
	logger   *slog.Logger
	metrics  *metrics.Collector
	now      func() time.Time
}

// NewCooldownGate builds a gate. enabled is false when no AI backend is configured.
func NewCooldownGate(store ScanStore, cooldown time.Duration, enabled bool, logger *slog.Logger, m *metrics.Collector) *CooldownGate {
	if cooldown <= 0 {
		cooldown = DefaultScanCooldown
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CooldownGate{
		store:    store,
		cooldown: cooldown,
		enabled:  enabled,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// ShouldRun reports whether discovery should run for city. Lookup failures
// fail open.
func (g *CooldownGate) ShouldRun(ctx context.Context, city string) bool {
	key := scanKey(city)
	if !g.enabled || key == "" {
		g.metrics.IncScanDecision("disabled")
		return false
	}

	record, err := g.store.LastScanned(ctx, key)
	if err != nil {
		g.logger.Warn("scan record lookup failed, allowing discovery", "city", city, "error", err)
		g.metrics.IncScanDecision("lookup_failed")
		return true
	}
	if record == nil || record.LastScanned.IsZero() {
		g.metrics.IncScanDecision("never_scanned")
		return true
	}

	if g.now().Sub(record.LastScanned) > g.cooldown {
		g.metrics.IncScanDecision("expired")
		return true
	}
	g.metrics.IncScanDecision("cooling_down")
	return false
}

// MarkScanned records the current time for city. Failures are only logged.
func (g *CooldownGate) MarkScanned(ctx context.Context, city string) {
	key := scanKey(city)
	if key == "" {
		return
	}
	if err := g.store.MarkScanned(ctx, key, g.now()); err != nil {
		g.logger.Warn("failed to record scan", "city", city, "error", err)
	}
}

func scanKey(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// MemoryScanStore keeps scan records in process memory.
type MemoryScanStore struct {
	mu      sync.RWMutex
	records map[string]time.Time
}

// NewMemoryScanStore creates an empty store.
func NewMemoryScanStore() *MemoryScanStore {
	return &MemoryScanStore{records: make(map[string]time.Time)}
}

// LastScanned implements ScanStore.
func (s *MemoryScanStore) LastScanned(_ context.Context, city string) (*models.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.records[city]
	if !ok {
		return nil, nil
	}
	return &models.ScanRecord{City: city, LastScanned: at}, nil
}

// MarkScanned implements ScanStore.
func (s *MemoryScanStore) MarkScanned(_ context.Context, city string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[city] = at
	return nil
}
