// README: Route registration and middleware wiring.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fixgo/internal/http/handlers"
	"fixgo/internal/http/middleware"
	"fixgo/internal/infra"
	"fixgo/internal/modules/job"
	"fixgo/internal/modules/order"
	"fixgo/internal/modules/tracking"
	"fixgo/internal/realtime"
)

type RouterDeps struct {
	Order    *order.Service
	Jobs     *job.Service
	Tracking *tracking.Manager
	Feed     *tracking.Feed
	Bridge   *realtime.Bridge
	Verifier infra.TokenVerifier
	Log      *zap.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(d.Log), middleware.Logging(d.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.Auth(d.Verifier))

	orderHandler := handlers.NewOrderHandler(d.Order)
	api.POST("/orders", orderHandler.Create)
	api.GET("/orders/:id", orderHandler.Get)
	api.POST("/orders/:id/cancel", orderHandler.Cancel)

	providerHandler := handlers.NewProviderHandler(d.Order, d.Feed)
	api.POST("/orders/:id/accept", providerHandler.Accept)
	api.POST("/orders/:id/depart", providerHandler.Depart)
	api.POST("/orders/:id/arrive", providerHandler.Arrive)
	api.POST("/orders/:id/complete", providerHandler.Complete)
	api.PUT("/providers/:id/location", providerHandler.UpdateLocation)

	trackingHandler := handlers.NewTrackingHandler(d.Tracking, d.Bridge, d.Log)
	api.GET("/orders/:id/tracking", trackingHandler.Get)
	api.GET("/orders/:id/stream", trackingHandler.Stream)

	mapHandler := handlers.NewMapHandler(d.Jobs)
	api.GET("/map/jobs", mapHandler.Jobs)

	return r
}
