// README: Tracking sessions: watcher + estimator + change-feed glue per order.
package tracking

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"fixgo/internal/config"
	"fixgo/internal/modules/order"
	"fixgo/internal/realtime"
	"fixgo/internal/types"
)

// Orders is the slice of the order service a session needs.
type Orders interface {
	OrderPositions
	Get(ctx context.Context, id types.ID) (*order.Order, error)
}

// View is the aggregate a tracking client renders.
type View struct {
	Order *order.Order
	Live  *LiveLocation
	Route *RouteEstimate
	// ETA is nil until either the server estimate or a computed route exists.
	ETA *time.Duration
}

type session struct {
	watcher    *Watcher
	estimator  *Estimator
	cancel     context.CancelFunc
	stopBridge func()
	providerID types.ID
}

// Manager owns one tracking session per en_route order. Depart starts a
// session, Complete (or an explicit stop) tears it down.
type Manager struct {
	feed   *Feed
	live   LiveStore
	orders Orders
	router Router
	bus    realtime.Bus
	bridge *realtime.Bridge
	cfg    config.TrackingConfig
	log    *zap.Logger

	mu       sync.Mutex
	sessions map[types.ID]*session
}

type ManagerDeps struct {
	Feed   *Feed
	Live   LiveStore
	Orders Orders
	Router Router
	Bus    realtime.Bus
	Bridge *realtime.Bridge
	Cfg    config.TrackingConfig
	Log    *zap.Logger
}

func NewManager(d ManagerDeps) *Manager {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		feed:     d.Feed,
		live:     d.Live,
		orders:   d.Orders,
		router:   d.Router,
		bus:      d.Bus,
		bridge:   d.Bridge,
		cfg:      d.Cfg,
		log:      log,
		sessions: make(map[types.ID]*session),
	}
}

// Start begins tracking for an order that just went en_route. Starting an
// already tracked order is a no-op.
func (m *Manager) Start(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	if _, ok := m.sessions[o.ID]; ok {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	// Sessions outlive the request that triggered the transition.
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	est := NewEstimator(
		m.router,
		o.Destination,
		o.ETASeconds,
		time.Duration(m.cfg.ThrottleSeconds)*time.Second,
		time.Duration(m.cfg.RefreshSeconds)*time.Second,
		m.log,
	)

	w := NewWatcher(WatcherDeps{
		Source:     m.feed.SourceFor(o.ProviderID),
		Live:       m.live,
		Orders:     m.orders,
		Bus:        m.bus,
		Log:        m.log,
		Opts:       m.watchOptions(),
		OrderID:    o.ID,
		ProviderID: o.ProviderID,
		OnPosition: func(p Position) { est.Observe(sctx, p.Point) },
	})
	if err := w.Start(sctx); err != nil {
		cancel()
		return err
	}

	// Keep the server-authoritative ETA fresh: any order change triggers a
	// full re-fetch, never a payload merge.
	var stopBridge func()
	if m.bridge != nil {
		var err error
		stopBridge, err = m.bridge.Watch(sctx, []string{realtime.OrderTopic(o.ID)}, func(ctx context.Context) {
			fresh, err := m.orders.Get(ctx, o.ID)
			if err != nil {
				m.log.Warn("re-fetching order", zap.String("order_id", string(o.ID)), zap.Error(err))
				return
			}
			est.SetServerETA(fresh.ETASeconds)
		})
		if err != nil {
			w.Stop(sctx)
			cancel()
			return err
		}
	}

	go est.Run(sctx)

	m.mu.Lock()
	m.sessions[o.ID] = &session{
		watcher:    w,
		estimator:  est,
		cancel:     cancel,
		stopBridge: stopBridge,
		providerID: o.ProviderID,
	}
	m.mu.Unlock()

	m.log.Info("tracking started",
		zap.String("order_id", string(o.ID)),
		zap.String("provider_id", string(o.ProviderID)))
	return nil
}

// Stop tears the session down and deletes the provider's LiveLocation row.
// Stopping an untracked order is a no-op.
func (m *Manager) Stop(ctx context.Context, orderID types.ID) {
	m.mu.Lock()
	s, ok := m.sessions[orderID]
	if ok {
		delete(m.sessions, orderID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	if s.stopBridge != nil {
		s.stopBridge()
	}
	s.watcher.Stop(context.WithoutCancel(ctx))
	s.cancel()
	m.log.Info("tracking stopped", zap.String("order_id", string(orderID)))
}

// Tracked reports whether a session exists for the order.
func (m *Manager) Tracked(orderID types.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[orderID]
	return ok
}

// Snapshot assembles the current tracking view for an order. The live row
// and route are best-effort: a provider without a session yields a view with
// only the order's last known position.
func (m *Manager) Snapshot(ctx context.Context, orderID types.ID) (*View, error) {
	o, err := m.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	v := &View{Order: o}

	if live, err := m.live.Get(ctx, o.ProviderID); err == nil {
		v.Live = live
	} else if err != ErrNotTracked {
		m.log.Warn("reading live location", zap.String("provider_id", string(o.ProviderID)), zap.Error(err))
	}

	m.mu.Lock()
	s, ok := m.sessions[orderID]
	m.mu.Unlock()
	if ok {
		if route, found := s.estimator.Current(); found {
			v.Route = &route
		}
		if eta, found := s.estimator.ETA(); found {
			v.ETA = &eta
		}
	} else if o.ETASeconds != nil {
		eta := time.Duration(*o.ETASeconds) * time.Second
		v.ETA = &eta
	}

	return v, nil
}

func (m *Manager) watchOptions() WatchOptions {
	return WatchOptions{
		HighAccuracy: true,
		Timeout:      time.Duration(m.cfg.PositionTimeoutSeconds) * time.Second,
		MaxAge:       time.Duration(m.cfg.PositionMaxAgeSeconds) * time.Second,
	}
}
