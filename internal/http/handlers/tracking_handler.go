// README: Tracking handlers: snapshot REST endpoint and websocket stream.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"fixgo/internal/http/middleware"
	"fixgo/internal/modules/tracking"
	"fixgo/internal/realtime"
	"fixgo/internal/types"
)

type TrackingHandler struct {
	manager *tracking.Manager
	bridge  *realtime.Bridge
	log     *zap.Logger
}

func NewTrackingHandler(manager *tracking.Manager, bridge *realtime.Bridge, log *zap.Logger) *TrackingHandler {
	return &TrackingHandler{manager: manager, bridge: bridge, log: log}
}

type trackingView struct {
	Order      orderView    `json:"order"`
	Tracked    bool         `json:"tracked"`
	Live       *liveView    `json:"live,omitempty"`
	Route      [][2]float64 `json:"route,omitempty"`
	ETASeconds *int         `json:"eta_seconds,omitempty"`
}

type liveView struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	UpdatedAt string  `json:"updated_at"`
}

func (h *TrackingHandler) snapshot(c *gin.Context, orderID types.ID) (*trackingView, error) {
	v, err := h.manager.Snapshot(c.Request.Context(), orderID)
	if err != nil {
		return nil, err
	}

	uid := middleware.UID(c)
	if string(v.Order.ClientID) != uid && string(v.Order.ProviderID) != uid {
		return nil, errNotParty
	}

	out := &trackingView{
		Order:   toOrderView(v.Order),
		Tracked: v.Live != nil,
	}
	if v.Live != nil {
		out.Live = &liveView{
			Lat:       v.Live.Point.Lat,
			Lng:       v.Live.Point.Lng,
			UpdatedAt: v.Live.UpdatedAt.UTC().Format(time.RFC3339Nano),
		}
	}
	if v.Route != nil {
		out.Route = make([][2]float64, 0, len(v.Route.Polyline))
		for _, p := range v.Route.Polyline {
			out.Route = append(out.Route, [2]float64{p.Lat, p.Lng})
		}
	}
	if v.ETA != nil {
		secs := int(v.ETA.Seconds())
		out.ETASeconds = &secs
	}
	return out, nil
}

// Get returns the one-shot tracking view for an order.
func (h *TrackingHandler) Get(c *gin.Context) {
	view, err := h.snapshot(c, types.ID(c.Param("id")))
	if err == errNotParty {
		writeError(c, http.StatusForbidden, "not a party to this order")
		return
	}
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The browser client is served from a different origin than the API.
	CheckOrigin: func(*http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Stream pushes a fresh tracking view over a websocket whenever the order or
// the provider's position changes. Events are debounced by the bridge and
// every push is a full re-fetch; the socket closes when the client leaves or
// the subscription stops.
func (h *TrackingHandler) Stream(c *gin.Context) {
	orderID := types.ID(c.Param("id"))

	// Authorize before upgrading.
	first, err := h.snapshot(c, orderID)
	if err == errNotParty {
		writeError(c, http.StatusForbidden, "not a party to this order")
		return
	}
	if err != nil {
		writeOrderError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	providerID := types.ID(first.Order.ProviderID)
	send := make(chan *trackingView, 1)
	send <- first

	topics := []string{
		realtime.OrderTopic(orderID),
		realtime.ProviderTopic(providerID),
	}
	stop, err := h.bridge.Watch(c.Request.Context(), topics, func(context.Context) {
		view, err := h.snapshot(c, orderID)
		if err != nil {
			h.log.Warn("re-fetching tracking view", zap.String("order_id", string(orderID)), zap.Error(err))
			return
		}
		select {
		case send <- view:
		default:
			// A newer view is already queued; this one is obsolete.
		}
	})
	if err != nil {
		h.log.Warn("subscribing tracking stream", zap.Error(err))
		return
	}
	defer stop()

	// Discard client frames but notice the close handshake.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case view := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(view); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
