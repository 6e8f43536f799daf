// README: Job marker store contract plus an in-memory implementation.
package job

import (
	"context"
	"strings"
	"sync"

	"fixgo/internal/modules/cluster"
)

// Filter narrows the marker listing; zero values mean "any".
type Filter struct {
	City       string
	Category   string
	UrgentOnly bool
}

type Store interface {
	ListMarkers(ctx context.Context, f Filter) ([]cluster.JobMarker, error)
}

type MemoryStore struct {
	mu      sync.Mutex
	markers []cluster.JobMarker
}

func NewMemoryStore(markers []cluster.JobMarker) *MemoryStore {
	return &MemoryStore{markers: markers}
}

func (s *MemoryStore) ListMarkers(_ context.Context, f Filter) ([]cluster.JobMarker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]cluster.JobMarker, 0, len(s.markers))
	for _, m := range s.markers {
		if matches(m, f) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) Add(m cluster.JobMarker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers = append(s.markers, m)
}

func matches(m cluster.JobMarker, f Filter) bool {
	if f.City != "" && !strings.EqualFold(m.City, f.City) {
		return false
	}
	if f.Category != "" && m.Category != f.Category && m.ParentCategory != f.Category {
		return false
	}
	if f.UrgentOnly && !m.Urgent {
		return false
	}
	return true
}
