// README: Manager tests: full depart→track→complete session lifecycle.
package tracking

import (
	"context"
	"testing"
	"time"

	"fixgo/internal/config"
	"fixgo/internal/modules/order"
	"fixgo/internal/realtime"
	"fixgo/internal/types"
)

func testTrackingConfig() config.TrackingConfig {
	return config.TrackingConfig{
		ThrottleSeconds:        0, // route on every fix in tests
		RefreshSeconds:         3600,
		DebounceMillis:         5,
		PositionTimeoutSeconds: 10,
		PositionMaxAgeSeconds:  5,
	}
}

type trackingFixture struct {
	feed    *Feed
	live    *MemoryLiveStore
	orders  *order.Service
	router  *fakeRouter
	manager *Manager
}

func newTrackingFixture(t *testing.T) *trackingFixture {
	t.Helper()

	bus := realtime.NewMemoryBus()
	bridge := realtime.NewBridge(bus, 5*time.Millisecond, nil)
	feed := NewFeed()
	live := NewMemoryLiveStore()
	orderSvc := order.NewService(order.NewMemoryStore(), bus, nil)
	router := &fakeRouter{estimate: &RouteEstimate{
		Polyline: []types.Point{{Lat: 52.0, Lng: 21.0}, {Lat: 52.01, Lng: 21.01}},
		Duration: 5 * time.Minute,
	}}

	manager := NewManager(ManagerDeps{
		Feed:   feed,
		Live:   live,
		Orders: orderSvc,
		Router: router,
		Bus:    bus,
		Bridge: bridge,
		Cfg:    testTrackingConfig(),
	})

	orderSvc.SetHooks(order.Hooks{
		OnDepart: func(ctx context.Context, o *order.Order) {
			if err := manager.Start(ctx, o); err != nil {
				t.Errorf("starting session: %v", err)
			}
		},
		OnComplete: func(ctx context.Context, o *order.Order) {
			manager.Stop(ctx, o.ID)
		},
	})

	return &trackingFixture{feed: feed, live: live, orders: orderSvc, router: router, manager: manager}
}

func (f *trackingFixture) createOrder(t *testing.T, clientID, providerID types.ID, eta *int) types.ID {
	t.Helper()
	id, err := f.orders.Create(context.Background(), order.CreateCommand{
		ClientID:    clientID,
		ProviderID:  providerID,
		Destination: types.Point{Lat: 52.0, Lng: 21.0},
		ETASeconds:  eta,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return id
}

var statusRank = map[order.Status]int{
	order.StatusRequested: 0,
	order.StatusAccepted:  1,
	order.StatusEnRoute:   2,
	order.StatusArrived:   3,
	order.StatusDone:      4,
}

// advanceTo drives the order forward from its current status to the target.
func (f *trackingFixture) advanceTo(t *testing.T, orderID, providerID types.ID, status order.Status) {
	t.Helper()
	ctx := context.Background()
	steps := []struct {
		target order.Status
		run    func() error
	}{
		{order.StatusAccepted, func() error {
			return f.orders.Accept(ctx, order.AcceptCommand{OrderID: orderID, ProviderID: providerID})
		}},
		{order.StatusEnRoute, func() error {
			return f.orders.Depart(ctx, order.DepartCommand{OrderID: orderID, ProviderID: providerID})
		}},
		{order.StatusArrived, func() error {
			return f.orders.Arrive(ctx, order.ArriveCommand{OrderID: orderID, ProviderID: providerID})
		}},
		{order.StatusDone, func() error {
			return f.orders.Complete(ctx, order.CompleteCommand{OrderID: orderID, ProviderID: providerID})
		}},
	}

	o, err := f.orders.Get(ctx, orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	for _, s := range steps {
		if statusRank[s.target] <= statusRank[o.Status] {
			continue
		}
		if err := s.run(); err != nil {
			t.Fatalf("advancing to %s: %v", s.target, err)
		}
		if s.target == status {
			return
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	f := newTrackingFixture(t)
	ctx := context.Background()

	orderID := f.createOrder(t, "client1", "provider1", nil)
	if f.manager.Tracked(orderID) {
		t.Fatal("expected no session before depart")
	}

	f.advanceTo(t, orderID, "provider1", order.StatusEnRoute)
	if !f.manager.Tracked(orderID) {
		t.Fatal("expected session after depart")
	}

	// A position report flows into the live row, the order, and the route.
	delivered := f.feed.Report("provider1", Position{
		Point:      types.Point{Lat: 52.01, Lng: 21.01},
		RecordedAt: time.Now().UTC(),
	})
	if !delivered {
		t.Fatal("expected position to reach the watcher")
	}

	view, err := f.manager.Snapshot(ctx, orderID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if view.Order.Status != order.StatusEnRoute {
		t.Fatalf("expected en_route in view, got %s", view.Order.Status)
	}
	if view.Live == nil || view.Live.Point.Lat != 52.01 {
		t.Fatalf("expected live location in view, got %+v", view.Live)
	}
	if view.Order.ProviderPos == nil || view.Order.ProviderPos.Lat != 52.01 {
		t.Fatalf("expected provider position on order, got %+v", view.Order.ProviderPos)
	}
	if view.Route == nil {
		t.Fatal("expected computed route in view")
	}
	if view.ETA == nil || *view.ETA != 5*time.Minute {
		t.Fatalf("expected computed ETA 5m, got %v", view.ETA)
	}

	// Completing the order tears the session down and clears the live row.
	f.advanceTo(t, orderID, "provider1", order.StatusDone)
	if f.manager.Tracked(orderID) {
		t.Fatal("expected no session after complete")
	}
	if f.live.Len() != 0 {
		t.Fatalf("expected live row deleted, got %d rows", f.live.Len())
	}
	if f.feed.Report("provider1", Position{Point: types.Point{Lat: 52.02, Lng: 21.02}, RecordedAt: time.Now()}) {
		t.Fatal("expected position report after complete to be dropped")
	}
}

func TestSessionServerETAPrecedence(t *testing.T) {
	f := newTrackingFixture(t)
	ctx := context.Background()

	eta := 600
	orderID := f.createOrder(t, "client1", "provider1", &eta)
	f.advanceTo(t, orderID, "provider1", order.StatusEnRoute)

	f.feed.Report("provider1", Position{
		Point:      types.Point{Lat: 52.01, Lng: 21.01},
		RecordedAt: time.Now().UTC(),
	})

	view, err := f.manager.Snapshot(ctx, orderID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	// Router said 5m; the order's authoritative 600s wins.
	if view.ETA == nil || *view.ETA != 10*time.Minute {
		t.Fatalf("expected server ETA 10m, got %v", view.ETA)
	}
}

func TestSessionStartIdempotent(t *testing.T) {
	f := newTrackingFixture(t)
	ctx := context.Background()

	orderID := f.createOrder(t, "client1", "provider1", nil)
	f.advanceTo(t, orderID, "provider1", order.StatusEnRoute)

	o, err := f.orders.Get(ctx, orderID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := f.manager.Start(ctx, o); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if !f.manager.Tracked(orderID) {
		t.Fatal("expected session to remain")
	}

	f.manager.Stop(ctx, orderID)
	if f.manager.Tracked(orderID) {
		t.Fatal("expected session gone after stop")
	}
	// Stopping again is a no-op.
	f.manager.Stop(ctx, orderID)
}

func TestSnapshotWithoutSession(t *testing.T) {
	f := newTrackingFixture(t)
	ctx := context.Background()

	eta := 240
	orderID := f.createOrder(t, "client1", "provider1", &eta)

	view, err := f.manager.Snapshot(ctx, orderID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if view.Live != nil {
		t.Fatalf("expected no live location, got %+v", view.Live)
	}
	if view.Route != nil {
		t.Fatal("expected no route without a session")
	}
	// The order's stored estimate still surfaces.
	if view.ETA == nil || *view.ETA != 4*time.Minute {
		t.Fatalf("expected stored ETA 4m, got %v", view.ETA)
	}
}
