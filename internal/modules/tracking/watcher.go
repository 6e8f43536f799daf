// README: Geolocation watcher: position stream to live-location and order writes.
package tracking

import (
	"context"

	"go.uber.org/zap"

	"fixgo/internal/realtime"
	"fixgo/internal/types"
)

// OrderPositions is the slice of the order service the watcher needs: the
// last-write-wins provider position column.
type OrderPositions interface {
	UpdateProviderPosition(ctx context.Context, orderID types.ID, p types.Point) error
}

// Watcher reports the provider's position while an order is en_route. Each
// fix is written twice (LiveLocation upsert and order position update),
// fire-and-forget: a failed write is logged and the sample dropped, because
// only the latest position is ever meaningful.
type Watcher struct {
	source     PositionSource
	live       LiveStore
	orders     OrderPositions
	bus        realtime.Bus
	log        *zap.Logger
	opts       WatchOptions
	orderID    types.ID
	providerID types.ID

	// onPosition, when set, receives every accepted fix (the estimator).
	onPosition func(Position)
	stop       func()
}

type WatcherDeps struct {
	Source     PositionSource
	Live       LiveStore
	Orders     OrderPositions
	Bus        realtime.Bus
	Log        *zap.Logger
	Opts       WatchOptions
	OrderID    types.ID
	ProviderID types.ID
	OnPosition func(Position)
}

func NewWatcher(d WatcherDeps) *Watcher {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		source:     d.Source,
		live:       d.Live,
		orders:     d.Orders,
		bus:        d.Bus,
		log:        log,
		opts:       d.Opts,
		orderID:    d.OrderID,
		providerID: d.ProviderID,
		onPosition: d.OnPosition,
	}
}

// Start subscribes to the position source. A source that cannot start
// (permission denied, no fix) returns the error once; the watcher does not
// retry and the order keeps its current state.
func (w *Watcher) Start(ctx context.Context) error {
	stop, err := w.source.Watch(ctx, w.opts,
		func(p Position) { w.handlePosition(ctx, p) },
		func(err error) {
			w.log.Warn("position source error",
				zap.String("provider_id", string(w.providerID)), zap.Error(err))
		},
	)
	if err != nil {
		return err
	}
	w.stop = stop
	return nil
}

// Stop cancels the position subscription and deletes the LiveLocation row,
// signalling "not tracked" to the client side.
func (w *Watcher) Stop(ctx context.Context) {
	if w.stop != nil {
		w.stop()
		w.stop = nil
	}
	if err := w.live.Delete(ctx, w.providerID); err != nil {
		w.log.Warn("deleting live location",
			zap.String("provider_id", string(w.providerID)), zap.Error(err))
	}
	w.publish(ctx)
}

func (w *Watcher) handlePosition(ctx context.Context, p Position) {
	loc := LiveLocation{
		ProviderID: w.providerID,
		Point:      p.Point,
		UpdatedAt:  p.RecordedAt,
	}
	if err := w.live.Upsert(ctx, loc); err != nil {
		w.log.Warn("upserting live location",
			zap.String("provider_id", string(w.providerID)), zap.Error(err))
	}
	if err := w.orders.UpdateProviderPosition(ctx, w.orderID, p.Point); err != nil {
		w.log.Warn("updating order position",
			zap.String("order_id", string(w.orderID)), zap.Error(err))
	}
	if w.onPosition != nil {
		w.onPosition(p)
	}
	w.publish(ctx)
}

func (w *Watcher) publish(ctx context.Context) {
	if w.bus == nil {
		return
	}
	if err := w.bus.Publish(ctx, realtime.ProviderTopic(w.providerID)); err != nil {
		w.log.Warn("publishing position event",
			zap.String("provider_id", string(w.providerID)), zap.Error(err))
	}
}
