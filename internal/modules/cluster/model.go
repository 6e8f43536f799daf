// README: Job markers and derived clusters for the jobs-on-map view.
package cluster

import "fixgo/internal/types"

// JobMarker is a map point for one job listing. PreciseLocation is true only
// when the coordinates came from a geocoded street address rather than a
// city/district centroid fallback.
type JobMarker struct {
	ID              types.ID
	Title           string
	City            string
	District        string
	Point           types.Point
	Category        string
	ParentCategory  string
	Budget          int64
	Urgent          bool
	PreciseLocation bool
}

// JobCluster is a derived grouping of markers sharing a city (or
// city+district) key. Never persisted; rebuilt from scratch on every change.
type JobCluster struct {
	Key       string
	City      string
	District  string
	Centroid  types.Point
	Members   []JobMarker
	HasUrgent bool
}

// BubbleSize maps member count to a pixel diameter, monotonic and capped.
func (c *JobCluster) BubbleSize() int {
	size := 28 + 4*len(c.Members)
	if size > 56 {
		size = 56
	}
	return size
}

// Color is red when any member is urgent, purple otherwise.
func (c *JobCluster) Color() string {
	if c.HasUrgent {
		return "red"
	}
	return "purple"
}

type MarkerKind int

const (
	KindSingle MarkerKind = iota
	KindCluster
)

// Marker is the tagged render variant: a cluster of one becomes an
// individual pin, anything larger a numbered bubble. The branch is decided
// once here, not at render time.
type Marker struct {
	Kind    MarkerKind
	Job     *JobMarker  // set when Kind == KindSingle
	Cluster *JobCluster // set when Kind == KindCluster
}
