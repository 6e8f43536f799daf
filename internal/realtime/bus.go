// README: Change-feed bus: topic publish/subscribe without payloads.
package realtime

import (
	"context"
	"sync"

	"fixgo/internal/types"
)

// Topic names for the two change feeds the clients care about.
func OrderTopic(id types.ID) string    { return "order:" + string(id) }
func ProviderTopic(id types.ID) string { return "provider:" + string(id) }

// Handler is invoked once per received change notification. Notifications
// carry no payload: subscribers re-fetch the aggregate instead of merging.
type Handler func()

// Bus is the change-notification transport. Publish signals that a row
// changed; Subscribe registers a handler until the returned stop func runs.
type Bus interface {
	Publish(ctx context.Context, topic string) error
	Subscribe(ctx context.Context, topic string, h Handler) (func(), error)
}

// MemoryBus is an in-process Bus used in tests and single-node deployments.
type MemoryBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]Handler
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[int]Handler)}
}

func (b *MemoryBus) Publish(_ context.Context, topic string) error {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs[topic]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h()
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, topic string, h Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
		if len(b.subs[topic]) == 0 {
			delete(b.subs, topic)
		}
	}, nil
}
