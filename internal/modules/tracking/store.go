// README: Live-location store contract plus an in-memory implementation.
package tracking

import (
	"context"
	"errors"
	"sync"

	"fixgo/internal/types"
)

// ErrNotTracked is returned when no live row exists for a provider. Absence
// is meaningful: the client falls back to the order's last known position.
var ErrNotTracked = errors.New("provider is not tracked")

// LiveStore holds at most one LiveLocation per provider, upsert semantics.
type LiveStore interface {
	Upsert(ctx context.Context, loc LiveLocation) error
	Get(ctx context.Context, providerID types.ID) (*LiveLocation, error)
	Delete(ctx context.Context, providerID types.ID) error
}

type MemoryLiveStore struct {
	mu   sync.Mutex
	rows map[types.ID]LiveLocation
}

func NewMemoryLiveStore() *MemoryLiveStore {
	return &MemoryLiveStore{rows: make(map[types.ID]LiveLocation)}
}

func (s *MemoryLiveStore) Upsert(_ context.Context, loc LiveLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[loc.ProviderID] = loc
	return nil
}

func (s *MemoryLiveStore) Get(_ context.Context, providerID types.ID) (*LiveLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.rows[providerID]
	if !ok {
		return nil, ErrNotTracked
	}
	return &loc, nil
}

func (s *MemoryLiveStore) Delete(_ context.Context, providerID types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, providerID)
	return nil
}

// Len reports the number of tracked providers.
func (s *MemoryLiveStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
