// README: Entry point; loads config, wires services, starts the HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"fixgo/internal/config"
	httptransport "fixgo/internal/http"
	"fixgo/internal/infra"
	"fixgo/internal/logger"
	"fixgo/internal/maps"
	"fixgo/internal/modules/job"
	"fixgo/internal/modules/order"
	"fixgo/internal/modules/tracking"
	"fixgo/internal/realtime"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("FIXGO_FIREBASE_PROJECT_ID is required")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatal("firebase init", zap.Error(err))
	}

	if err := infra.MigrateUp(cfg.DB.DSN, cfg.DB.MigrationsDir); err != nil {
		log.Fatal("migrations", zap.Error(err))
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr, cfg.Redis.Password)
	defer func() { _ = redisClient.Close() }()

	router, err := maps.NewRouteService(cfg.Maps.APIKey)
	if err != nil {
		log.Fatal("maps init", zap.Error(err))
	}

	bus := realtime.NewRedisBus(redisClient, log)
	bridge := realtime.NewBridge(bus, time.Duration(cfg.Tracking.DebounceMillis)*time.Millisecond, log)

	orderStore := order.NewPostgresStore(dbPool)
	orderSvc := order.NewService(orderStore, bus, log)

	feed := tracking.NewFeed()
	liveStore := tracking.NewRedisLiveStore(redisClient)
	manager := tracking.NewManager(tracking.ManagerDeps{
		Feed:   feed,
		Live:   liveStore,
		Orders: orderSvc,
		Router: router,
		Bus:    bus,
		Bridge: bridge,
		Cfg:    cfg.Tracking,
		Log:    log,
	})
	orderSvc.SetHooks(order.Hooks{
		OnDepart: func(ctx context.Context, o *order.Order) {
			if err := manager.Start(ctx, o); err != nil {
				log.Warn("starting tracking", zap.String("order_id", string(o.ID)), zap.Error(err))
			}
		},
		OnComplete: func(ctx context.Context, o *order.Order) {
			manager.Stop(ctx, o.ID)
		},
	})

	jobStore := job.NewPostgresStore(dbPool)
	jobSvc := job.NewService(jobStore)

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Order:    orderSvc,
		Jobs:     jobSvc,
		Tracking: manager,
		Feed:     feed,
		Bridge:   bridge,
		Verifier: verifier,
		Log:      log,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("listening", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server", zap.Error(err))
	}
}
