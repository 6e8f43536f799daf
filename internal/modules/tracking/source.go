// README: Position sources: the device-watch contract and the HTTP feed implementation.
package tracking

import (
	"context"
	"sync"
	"time"

	"fixgo/internal/types"
)

// WatchOptions bounds position acquisition: a fix older than MaxAge is
// rejected by the source, and acquisition that exceeds Timeout reports an
// error instead of blocking.
type WatchOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaxAge       time.Duration
}

// PositionSource is a push stream of device positions. Watch delivers fixes
// to onPosition until the returned stop func is called or ctx is cancelled;
// acquisition failures go to onError and do not stop the stream unless the
// source is unable to start at all.
type PositionSource interface {
	Watch(ctx context.Context, opts WatchOptions, onPosition func(Position), onError func(error)) (func(), error)
}

// Feed routes positions reported over HTTP to the per-provider watcher, the
// server-side equivalent of the device's continuous-position callback.
type Feed struct {
	mu   sync.Mutex
	subs map[types.ID]*feedSub
}

type feedSub struct {
	opts       WatchOptions
	onPosition func(Position)
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[types.ID]*feedSub)}
}

// Report delivers a position for the provider. It reports false when no
// watcher is subscribed (provider has no en_route order) or the fix is
// staler than the watcher's MaxAge bound.
func (f *Feed) Report(providerID types.ID, p Position) bool {
	f.mu.Lock()
	sub, ok := f.subs[providerID]
	f.mu.Unlock()
	if !ok {
		return false
	}
	if sub.opts.MaxAge > 0 && !p.RecordedAt.IsZero() && time.Since(p.RecordedAt) > sub.opts.MaxAge {
		return false
	}
	sub.onPosition(p)
	return true
}

// SourceFor returns the PositionSource view of the feed for one provider.
func (f *Feed) SourceFor(providerID types.ID) PositionSource {
	return &feedSource{feed: f, providerID: providerID}
}

type feedSource struct {
	feed       *Feed
	providerID types.ID
}

func (s *feedSource) Watch(ctx context.Context, opts WatchOptions, onPosition func(Position), _ func(error)) (func(), error) {
	s.feed.mu.Lock()
	s.feed.subs[s.providerID] = &feedSub{opts: opts, onPosition: onPosition}
	s.feed.mu.Unlock()

	stop := func() {
		s.feed.mu.Lock()
		delete(s.feed.subs, s.providerID)
		s.feed.mu.Unlock()
	}

	go func() {
		<-ctx.Done()
		stop()
	}()

	return stop, nil
}
