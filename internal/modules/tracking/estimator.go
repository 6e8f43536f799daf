// README: Route/ETA estimator with a wall-clock throttle and periodic refresh.
package tracking

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"fixgo/internal/types"
)

// RouteEstimate is a driving route from the provider to the destination.
type RouteEstimate struct {
	Polyline []types.Point
	Duration time.Duration
}

// Router produces a route estimate between two coordinates.
type Router interface {
	Route(ctx context.Context, from, to types.Point) (*RouteEstimate, error)
}

// Estimator computes the displayed route and ETA for one tracking session.
// Position ticks inside the throttle window are dropped, not queued; a
// periodic refresh re-issues the call regardless of tick frequency. Failed
// routing calls keep the previous estimate.
type Estimator struct {
	router   Router
	dest     types.Point
	throttle time.Duration
	refresh  time.Duration
	log      *zap.Logger
	now      func() time.Time

	mu          sync.Mutex
	lastAttempt time.Time
	lastPos     *types.Point
	current     *RouteEstimate
	serverETA   *int
}

func NewEstimator(router Router, dest types.Point, serverETA *int, throttle, refresh time.Duration, log *zap.Logger) *Estimator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Estimator{
		router:    router,
		dest:      dest,
		throttle:  throttle,
		refresh:   refresh,
		log:       log,
		now:       time.Now,
		serverETA: serverETA,
	}
}

// Observe records a position tick. The routing call happens at most once per
// throttle window, measured from the last attempt, successful or not.
func (e *Estimator) Observe(ctx context.Context, p types.Point) {
	e.mu.Lock()
	e.lastPos = &p
	if e.now().Sub(e.lastAttempt) < e.throttle {
		e.mu.Unlock()
		return
	}
	e.lastAttempt = e.now()
	e.mu.Unlock()

	e.route(ctx, p)
}

// Run re-issues the routing call on a fixed timer while the session is
// mounted, bypassing the throttle, so the route stays fresh even when
// position ticks alone would suppress it. Blocks until ctx is cancelled.
func (e *Estimator) Run(ctx context.Context) {
	ticker := time.NewTicker(e.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.mu.Lock()
			pos := e.lastPos
			e.lastAttempt = e.now()
			e.mu.Unlock()
			if pos == nil {
				continue
			}
			e.route(ctx, *pos)
		}
	}
}

// SetServerETA updates the authoritative estimate carried on the order.
func (e *Estimator) SetServerETA(seconds *int) {
	e.mu.Lock()
	e.serverETA = seconds
	e.mu.Unlock()
}

// Current returns the last successfully computed route, if any.
func (e *Estimator) Current() (RouteEstimate, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return RouteEstimate{}, false
	}
	return *e.current, true
}

// ETA returns the displayed estimate: the server-supplied value when present,
// otherwise the locally computed route duration.
func (e *Estimator) ETA() (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.serverETA != nil {
		return time.Duration(*e.serverETA) * time.Second, true
	}
	if e.current != nil {
		return e.current.Duration, true
	}
	return 0, false
}

func (e *Estimator) route(ctx context.Context, from types.Point) {
	est, err := e.router.Route(ctx, from, e.dest)
	if err != nil {
		// Background path: stale data beats a blocked view.
		e.log.Debug("routing call failed", zap.Error(err))
		return
	}
	e.mu.Lock()
	e.current = est
	e.mu.Unlock()
}
