// README: Provider-facing handlers: lifecycle transitions and position reports.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fixgo/internal/http/middleware"
	"fixgo/internal/modules/order"
	"fixgo/internal/modules/tracking"
	"fixgo/internal/types"
)

type ProviderHandler struct {
	order *order.Service
	feed  *tracking.Feed
}

func NewProviderHandler(orderSvc *order.Service, feed *tracking.Feed) *ProviderHandler {
	return &ProviderHandler{order: orderSvc, feed: feed}
}

// requireProvider enforces the provider role claim and that the caller acts
// as themselves. Returns the provider id or aborts.
func requireProvider(c *gin.Context) (types.ID, bool) {
	if !middleware.HasRole(c, "provider") {
		writeError(c, http.StatusForbidden, "provider role required")
		return "", false
	}
	return types.ID(middleware.UID(c)), true
}

func (h *ProviderHandler) Accept(c *gin.Context) {
	providerID, ok := requireProvider(c)
	if !ok {
		return
	}
	err := h.order.Accept(c.Request.Context(), order.AcceptCommand{
		OrderID:    types.ID(c.Param("id")),
		ProviderID: providerID,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": order.StatusAccepted})
}

func (h *ProviderHandler) Depart(c *gin.Context) {
	providerID, ok := requireProvider(c)
	if !ok {
		return
	}
	err := h.order.Depart(c.Request.Context(), order.DepartCommand{
		OrderID:    types.ID(c.Param("id")),
		ProviderID: providerID,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": order.StatusEnRoute})
}

func (h *ProviderHandler) Arrive(c *gin.Context) {
	providerID, ok := requireProvider(c)
	if !ok {
		return
	}
	err := h.order.Arrive(c.Request.Context(), order.ArriveCommand{
		OrderID:    types.ID(c.Param("id")),
		ProviderID: providerID,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": order.StatusArrived})
}

func (h *ProviderHandler) Complete(c *gin.Context) {
	providerID, ok := requireProvider(c)
	if !ok {
		return
	}
	err := h.order.Complete(c.Request.Context(), order.CompleteCommand{
		OrderID:    types.ID(c.Param("id")),
		ProviderID: providerID,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": order.StatusDone})
}

type positionReq struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	AccuracyM  float64 `json:"accuracy_m"`
	RecordedAt string  `json:"recorded_at"` // RFC3339; empty means "now"
}

// UpdateLocation is the device's position report. Accepted only while the
// provider has an en_route order with a running watcher; otherwise the
// sample is acknowledged and dropped.
func (h *ProviderHandler) UpdateLocation(c *gin.Context) {
	providerID, ok := requireProvider(c)
	if !ok {
		return
	}
	if c.Param("id") != string(providerID) {
		writeError(c, http.StatusForbidden, "cannot report for another provider")
		return
	}

	var req positionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	recordedAt := time.Now().UTC()
	if req.RecordedAt != "" {
		t, err := time.Parse(time.RFC3339, req.RecordedAt)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid recorded_at")
			return
		}
		recordedAt = t.UTC()
	}

	delivered := h.feed.Report(providerID, tracking.Position{
		Point:      types.Point{Lat: req.Lat, Lng: req.Lng},
		AccuracyM:  req.AccuracyM,
		RecordedAt: recordedAt,
	})
	c.JSON(http.StatusOK, gin.H{"tracked": delivered})
}
