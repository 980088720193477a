package enrichment

import (
	"strings"
	"sync"
	"time"

	"github.com/lnup/eventscout/internal/models"
)

// DiscoveryCache stores discovery results per city. Keys are passed through
// CityKey by the caller.
type DiscoveryCache interface {
	Get(city string) ([]models.Event, bool)
	Set(city string, events []models.Event)
	Delete(city string)
	Clear()
}

// CityKey normalizes a locality name for cache and scan-record lookups.
func CityKey(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// MemoryDiscoveryCache keeps results for the lifetime of the process.
// Nothing is evicted; entries leave only through Delete or Clear.
type MemoryDiscoveryCache struct {
	mu      sync.RWMutex
	entries map[string]discoveryEntry
}

type discoveryEntry struct {
	events   []models.Event
	storedAt time.Time
}

// NewMemoryDiscoveryCache creates an empty cache.
func NewMemoryDiscoveryCache() *MemoryDiscoveryCache {
	return &MemoryDiscoveryCache{entries: make(map[string]discoveryEntry)}
}

// Get returns a copy of the cached events for city.
func (c *MemoryDiscoveryCache) Get(city string) ([]models.Event, bool) {
	c.mu.RLock()
	entry, ok := c.entries[city]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return append([]models.Event(nil), entry.events...), true
}

// Set stores events for city, replacing any previous entry.
func (c *MemoryDiscoveryCache) Set(city string, events []models.Event) {
	c.mu.Lock()
	c.entries[city] = discoveryEntry{
		events:   append([]models.Event(nil), events...),
		storedAt: time.Now(),
	}
	c.mu.Unlock()
}

// Delete drops the entry for city.
func (c *MemoryDiscoveryCache) Delete(city string) {
	c.mu.Lock()
	delete(c.entries, city)
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *MemoryDiscoveryCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]discoveryEntry)
	c.mu.Unlock()
}

// Cities lists cached keys with the time each was stored.
func (c *MemoryDiscoveryCache) Cities() map[string]time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]time.Time, len(c.entries))
	for k, e := range c.entries {
		out[k] = e.storedAt
	}
	return out
}
