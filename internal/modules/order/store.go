// README: Order store contract plus an in-memory implementation.
package order

import (
	"context"
	"sync"

	"fixgo/internal/types"
)

// Store is the persistence contract for orders. UpdateStatus is a
// compare-and-swap on (status, status_version): it reports false when another
// writer got there first.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error)
	UpdateProviderPosition(ctx context.Context, id types.ID, p types.Point) error
	AppendEvent(ctx context.Context, e *Event) error
	HasActiveByClient(ctx context.Context, clientID types.ID) (bool, error)
}

// MemoryStore keeps orders in a map. It backs tests and exercises the same
// CAS semantics as the Postgres store.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[types.ID]*Order
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[types.ID]*Order)}
}

func (s *MemoryStore) Create(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id types.ID, from, to Status, version int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return false, ErrNotFound
	}
	if o.Status != from || o.StatusVersion != version {
		return false, nil
	}
	o.Status = to
	o.StatusVersion++
	now := nowUTC()
	switch to {
	case StatusAccepted:
		o.AcceptedAt = &now
	case StatusEnRoute:
		o.DepartedAt = &now
	case StatusArrived:
		o.ArrivedAt = &now
	case StatusDone:
		o.CompletedAt = &now
	case StatusCancelled:
		o.CancelledAt = &now
	}
	return true, nil
}

func (s *MemoryStore) UpdateProviderPosition(_ context.Context, id types.ID, p types.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	cp := p
	o.ProviderPos = &cp
	return nil
}

func (s *MemoryStore) AppendEvent(_ context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = int64(len(s.events) + 1)
	s.events = append(s.events, *e)
	return nil
}

func (s *MemoryStore) HasActiveByClient(_ context.Context, clientID types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ClientID == clientID && !Terminal(o.Status) {
			return true, nil
		}
	}
	return false, nil
}

// Events returns a copy of the appended state events, oldest first.
func (s *MemoryStore) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
