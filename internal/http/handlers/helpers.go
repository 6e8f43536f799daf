// README: Handler helpers for JSON responses and error mapping.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fixgo/internal/modules/order"
)

// errNotParty marks a caller who is neither the client nor the provider of
// the order they asked about.
var errNotParty = errors.New("not a party to this order")

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func writeOrderError(c *gin.Context, err error) {
	switch err {
	case order.ErrBadRequest:
		writeError(c, http.StatusBadRequest, err.Error())
	case order.ErrNotFound:
		writeError(c, http.StatusNotFound, err.Error())
	case order.ErrForbidden:
		writeError(c, http.StatusForbidden, err.Error())
	case order.ErrInvalidState, order.ErrConflict, order.ErrActiveOrder:
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// orderView is the JSON shape shared by the REST and websocket surfaces.
type orderView struct {
	OrderID     string   `json:"order_id"`
	ClientID    string   `json:"client_id"`
	ProviderID  string   `json:"provider_id"`
	Status      string   `json:"status"`
	ClientLat   float64  `json:"client_lat"`
	ClientLng   float64  `json:"client_lng"`
	ProviderLat *float64 `json:"provider_lat,omitempty"`
	ProviderLng *float64 `json:"provider_lng,omitempty"`
	ETASeconds  *int     `json:"eta_seconds,omitempty"`
}

func toOrderView(o *order.Order) orderView {
	v := orderView{
		OrderID:    string(o.ID),
		ClientID:   string(o.ClientID),
		ProviderID: string(o.ProviderID),
		Status:     string(o.Status),
		ClientLat:  o.Destination.Lat,
		ClientLng:  o.Destination.Lng,
		ETASeconds: o.ETASeconds,
	}
	if o.ProviderPos != nil {
		v.ProviderLat = &o.ProviderPos.Lat
		v.ProviderLng = &o.ProviderPos.Lng
	}
	return v
}
