package ingestion

import (
	"context"

	"github.com/lnup/eventscout/internal/models"
)

// Connector fetches events for a city from one external source.
type Connector interface {
	// Name returns the unique identifier for this connector.
	Name() string

	// SourceType returns the type stamped on every event the connector yields.
	SourceType() models.SourceType

	// Enabled reports whether the connector has the credentials it needs.
	Enabled() bool

	// Fetch returns normalized events for city.
	Fetch(ctx context.Context, city string) ([]models.Event, error)
}
