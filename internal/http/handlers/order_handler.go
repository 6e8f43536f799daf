// README: Client-facing order handlers: create, get, cancel.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fixgo/internal/http/middleware"
	"fixgo/internal/modules/order"
	"fixgo/internal/types"
)

type OrderHandler struct {
	order *order.Service
}

func NewOrderHandler(svc *order.Service) *OrderHandler {
	return &OrderHandler{order: svc}
}

type createOrderReq struct {
	ClientID   string  `json:"client_id"`
	ProviderID string  `json:"provider_id"`
	ClientLat  float64 `json:"client_lat"`
	ClientLng  float64 `json:"client_lng"`
	ETASeconds *int    `json:"eta_seconds,omitempty"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ClientID == "" || req.ProviderID == "" {
		writeError(c, http.StatusBadRequest, "missing fields")
		return
	}
	if req.ClientID != middleware.UID(c) {
		writeError(c, http.StatusForbidden, "client_id does not match token")
		return
	}

	id, err := h.order.Create(c.Request.Context(), order.CreateCommand{
		ClientID:    types.ID(req.ClientID),
		ProviderID:  types.ID(req.ProviderID),
		Destination: types.Point{Lat: req.ClientLat, Lng: req.ClientLng},
		ETASeconds:  req.ETASeconds,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order_id": id, "status": order.StatusRequested})
}

func (h *OrderHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing order id")
		return
	}
	o, err := h.order.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	uid := middleware.UID(c)
	if string(o.ClientID) != uid && string(o.ProviderID) != uid {
		writeError(c, http.StatusForbidden, "not a party to this order")
		return
	}
	c.JSON(http.StatusOK, toOrderView(o))
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing order id")
		return
	}
	err := h.order.Cancel(c.Request.Context(), order.CancelCommand{
		OrderID:  types.ID(id),
		ClientID: types.ID(middleware.UID(c)),
		Reason:   "user_cancel",
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": order.StatusCancelled})
}
