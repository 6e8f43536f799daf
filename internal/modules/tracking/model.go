// README: Tracking value objects: positions and the live-location row.
package tracking

import (
	"time"

	"fixgo/internal/types"
)

// Position is a single fix from the provider's device.
type Position struct {
	Point      types.Point
	AccuracyM  float64
	RecordedAt time.Time
}

// LiveLocation is the single current position record for a tracked provider.
// One row per provider, overwritten on every tick; absence means "not
// currently tracked".
type LiveLocation struct {
	ProviderID types.ID
	Point      types.Point
	UpdatedAt  time.Time
}
