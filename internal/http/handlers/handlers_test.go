// README: HTTP surface tests: auth checks and the full order flow over REST.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fixgo/internal/config"
	httptransport "fixgo/internal/http"
	"fixgo/internal/infra"
	"fixgo/internal/modules/cluster"
	"fixgo/internal/modules/job"
	"fixgo/internal/modules/order"
	"fixgo/internal/modules/tracking"
	"fixgo/internal/realtime"
	"fixgo/internal/types"
)

// stubTokenVerifier resolves raw tokens from a fixed table.
type stubTokenVerifier struct {
	tokens map[string]*infra.AuthToken
}

func (s *stubTokenVerifier) VerifyIDToken(_ context.Context, idToken string) (*infra.AuthToken, error) {
	token, ok := s.tokens[idToken]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return token, nil
}

// stubRouter satisfies tracking.Router without calling out.
type stubRouter struct{}

func (stubRouter) Route(_ context.Context, _, _ types.Point) (*tracking.RouteEstimate, error) {
	return &tracking.RouteEstimate{
		Polyline: []types.Point{{Lat: 52.0, Lng: 21.0}, {Lat: 52.01, Lng: 21.01}},
		Duration: 5 * time.Minute,
	}, nil
}

type apiFixture struct {
	engine *gin.Engine
	feed   *tracking.Feed
}

// newAPIFixture wires the real router against in-memory stores. The verifier
// knows three tokens: client-token, provider-token, and stranger-token.
func newAPIFixture(t *testing.T, markers []cluster.JobMarker) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zap.NewNop()
	bus := realtime.NewMemoryBus()
	bridge := realtime.NewBridge(bus, time.Millisecond, log)
	feed := tracking.NewFeed()
	live := tracking.NewMemoryLiveStore()
	orderSvc := order.NewService(order.NewMemoryStore(), bus, log)

	manager := tracking.NewManager(tracking.ManagerDeps{
		Feed:   feed,
		Live:   live,
		Orders: orderSvc,
		Router: stubRouter{},
		Bus:    bus,
		Bridge: bridge,
		Log:    log,
		Cfg: config.TrackingConfig{
			RefreshSeconds:         3600,
			PositionTimeoutSeconds: 10,
			PositionMaxAgeSeconds:  5,
		},
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

	verifier := &stubTokenVerifier{tokens: map[string]*infra.AuthToken{
		"client-token":   {UID: "client1", Claims: map[string]interface{}{"role": "client"}},
		"provider-token": {UID: "provider1", Claims: map[string]interface{}{"role": "provider"}},
		"stranger-token": {UID: "stranger1", Claims: map[string]interface{}{"role": "client"}},
	}}

	engine := httptransport.NewRouter(httptransport.RouterDeps{
		Order:    orderSvc,
		Jobs:     job.NewService(job.NewMemoryStore(markers)),
		Tracking: manager,
		Feed:     feed,
		Bridge:   bridge,
		Verifier: verifier,
		Log:      log,
	})
	return &apiFixture{engine: engine, feed: feed}
}

func (f *apiFixture) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return out
}

func TestCreate_Unauthenticated(t *testing.T) {
	f := newAPIFixture(t, nil)
	w := f.do(http.MethodPost, "/api/orders", map[string]any{
		"client_id":   "client1",
		"provider_id": "provider1",
	}, "badtoken")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestCreate_MissingHeader(t *testing.T) {
	f := newAPIFixture(t, nil)
	w := f.do(http.MethodPost, "/api/orders", map[string]any{
		"client_id":   "client1",
		"provider_id": "provider1",
	}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestCreate_WrongClientID(t *testing.T) {
	f := newAPIFixture(t, nil)
	w := f.do(http.MethodPost, "/api/orders", map[string]any{
		"client_id":   "someoneelse",
		"provider_id": "provider1",
	}, "client-token")
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestAccept_RequiresProviderRole(t *testing.T) {
	f := newAPIFixture(t, nil)
	w := f.do(http.MethodPost, "/api/orders/some-order/accept", nil, "client-token")
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestUpdateLocation_OtherProviderForbidden(t *testing.T) {
	f := newAPIFixture(t, nil)
	w := f.do(http.MethodPut, "/api/providers/provider2/location", map[string]any{
		"lat": 52.0, "lng": 21.0,
	}, "provider-token")
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestGetOrder_NonPartyForbidden(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodPost, "/api/orders", map[string]any{
		"client_id":   "client1",
		"provider_id": "provider1",
		"client_lat":  52.0,
		"client_lng":  21.0,
	}, "client-token")
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	orderID := decode(t, w)["order_id"].(string)

	w = f.do(http.MethodGet, "/api/orders/"+orderID, nil, "stranger-token")
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-party, got %d", w.Code)
	}
}

func TestOrderFlowOverHTTP(t *testing.T) {
	f := newAPIFixture(t, nil)

	// Client requests the visit.
	w := f.do(http.MethodPost, "/api/orders", map[string]any{
		"client_id":   "client1",
		"provider_id": "provider1",
		"client_lat":  52.0,
		"client_lng":  21.0,
	}, "client-token")
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	orderID := decode(t, w)["order_id"].(string)

	// A second request while the first is active conflicts.
	w = f.do(http.MethodPost, "/api/orders", map[string]any{
		"client_id":   "client1",
		"provider_id": "provider1",
	}, "client-token")
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate create: expected 409, got %d", w.Code)
	}

	// Position reports before depart are acknowledged but not tracked.
	w = f.do(http.MethodPut, "/api/providers/provider1/location", map[string]any{
		"lat": 52.01, "lng": 21.01,
	}, "provider-token")
	if w.Code != http.StatusOK {
		t.Fatalf("location: expected 200, got %d", w.Code)
	}
	if decode(t, w)["tracked"] != false {
		t.Fatal("expected tracked=false before depart")
	}

	// Provider accepts and departs.
	for _, step := range []string{"accept", "depart"} {
		w = f.do(http.MethodPost, "/api/orders/"+orderID+"/"+step, nil, "provider-token")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d (%s)", step, w.Code, w.Body.String())
		}
	}

	// Now a position report is delivered to the watcher.
	w = f.do(http.MethodPut, "/api/providers/provider1/location", map[string]any{
		"lat": 52.01, "lng": 21.01, "recorded_at": time.Now().UTC().Format(time.RFC3339),
	}, "provider-token")
	if w.Code != http.StatusOK {
		t.Fatalf("location: expected 200, got %d", w.Code)
	}
	if decode(t, w)["tracked"] != true {
		t.Fatal("expected tracked=true while en_route")
	}

	// The client's tracking view carries the live position and an ETA.
	w = f.do(http.MethodGet, "/api/orders/"+orderID+"/tracking", nil, "client-token")
	if w.Code != http.StatusOK {
		t.Fatalf("tracking: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	view := decode(t, w)
	if view["tracked"] != true {
		t.Fatalf("expected tracked view, got %v", view)
	}
	if view["live"] == nil {
		t.Fatal("expected live position in tracking view")
	}
	if view["eta_seconds"] == nil {
		t.Fatal("expected eta_seconds in tracking view")
	}

	// Cancel is rejected once the provider is en route.
	w = f.do(http.MethodPost, "/api/orders/"+orderID+"/cancel", nil, "client-token")
	if w.Code != http.StatusConflict {
		t.Fatalf("late cancel: expected 409, got %d", w.Code)
	}

	// Arrive and complete; tracking stops.
	for _, step := range []string{"arrive", "complete"} {
		w = f.do(http.MethodPost, "/api/orders/"+orderID+"/"+step, nil, "provider-token")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d (%s)", step, w.Code, w.Body.String())
		}
	}

	w = f.do(http.MethodPut, "/api/providers/provider1/location", map[string]any{
		"lat": 52.02, "lng": 21.02,
	}, "provider-token")
	if decode(t, w)["tracked"] != false {
		t.Fatal("expected tracked=false after complete")
	}

	w = f.do(http.MethodGet, "/api/orders/"+orderID, nil, "client-token")
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	if decode(t, w)["status"] != string(order.StatusDone) {
		t.Fatalf("expected done, got %v", decode(t, w)["status"])
	}
}

func TestMapJobsEndpoint(t *testing.T) {
	markers := []cluster.JobMarker{
		{ID: "j1", Title: "naprawa kranu", City: "Krakow", Point: types.Point{Lat: 50.06, Lng: 19.95}, Category: "hydraulik", PreciseLocation: true},
		{ID: "j2", Title: "montaz lampy", City: "Krakow", Point: types.Point{Lat: 50.07, Lng: 19.96}, Category: "elektryk", PreciseLocation: true, Urgent: true},
		{ID: "j3", Title: "skrecenie szafy", City: "Gdansk", Point: types.Point{Lat: 54.36, Lng: 18.64}, Category: "zlota raczka", PreciseLocation: true},
	}
	f := newAPIFixture(t, markers)

	w := f.do(http.MethodGet, "/api/map/jobs?zoom=6", nil, "client-token")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	out := decode(t, w)["markers"].([]any)
	if len(out) != 2 {
		t.Fatalf("expected 2 markers (gdansk pin + krakow cluster), got %d", len(out))
	}

	var foundCluster bool
	for _, raw := range out {
		m := raw.(map[string]any)
		if m["type"] != "cluster" {
			continue
		}
		foundCluster = true
		if m["count"].(float64) != 2 {
			t.Fatalf("expected cluster of 2, got %v", m["count"])
		}
		if m["color"] != "red" {
			t.Fatalf("expected red cluster (urgent member), got %v", m["color"])
		}
	}
	if !foundCluster {
		t.Fatal("expected a krakow cluster in the response")
	}

	// City filter narrows to a single pin.
	w = f.do(http.MethodGet, "/api/map/jobs?zoom=6&city=Gdansk", nil, "client-token")
	out = decode(t, w)["markers"].([]any)
	if len(out) != 1 {
		t.Fatalf("expected 1 marker for gdansk, got %d", len(out))
	}
	if out[0].(map[string]any)["type"] != "single" {
		t.Fatal("expected a single pin for gdansk")
	}

	// Bad zoom is rejected.
	w = f.do(http.MethodGet, "/api/map/jobs?zoom=abc", nil, "client-token")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad zoom, got %d", w.Code)
	}
}

func TestHealthIsPublic(t *testing.T) {
	f := newAPIFixture(t, nil)
	w := f.do(http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
