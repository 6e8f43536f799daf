// README: Subscription bridge: change events trigger a debounced full re-fetch.
package realtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Bridge translates change-feed events into full re-fetches of the affected
// aggregate. Bursts of events inside the debounce window (a jittering GPS
// emits several per second) collapse into a single re-fetch; dropping the
// extras is safe because the re-fetch always reads the latest committed
// state.
type Bridge struct {
	bus      Bus
	debounce time.Duration
	log      *zap.Logger
}

func NewBridge(bus Bus, debounce time.Duration, log *zap.Logger) *Bridge {
	return &Bridge{bus: bus, debounce: debounce, log: log}
}

// Watch subscribes to every topic and invokes refetch after each event
// burst. It returns a stop func that must be called to release the
// subscriptions; Watch also stops when ctx is cancelled.
func (b *Bridge) Watch(ctx context.Context, topics []string, refetch func(context.Context)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	// Capacity 1 plus a non-blocking send coalesces concurrent events.
	events := make(chan struct{}, 1)
	notify := func() {
		select {
		case events <- struct{}{}:
		default:
		}
	}

	stops := make([]func(), 0, len(topics))
	for _, topic := range topics {
		stop, err := b.bus.Subscribe(ctx, topic, notify)
		if err != nil {
			for _, s := range stops {
				s()
			}
			cancel()
			return nil, err
		}
		stops = append(stops, stop)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-events:
				if b.debounce > 0 {
					timer := time.NewTimer(b.debounce)
					select {
					case <-ctx.Done():
						timer.Stop()
						return
					case <-timer.C:
					}
					// Drain anything that arrived during the window.
					select {
					case <-events:
					default:
					}
				}
				refetch(ctx)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			for _, s := range stops {
				s()
			}
			cancel()
		})
	}, nil
}
