package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/commercezen/engine/api/routes"
	assistsvc "github.com/commercezen/engine/internal/assist"
	cartsvc "github.com/commercezen/engine/internal/cart"
	"github.com/commercezen/engine/internal/catalog"
	checkoutsvc "github.com/commercezen/engine/internal/checkout"
	"github.com/commercezen/engine/internal/identity"
	orderssvc "github.com/commercezen/engine/internal/orders"
	"github.com/commercezen/engine/internal/recent"
	wishlistsvc "github.com/commercezen/engine/internal/wishlist"
	"github.com/commercezen/engine/pkg/config"
	"github.com/commercezen/engine/pkg/db"
	"github.com/commercezen/engine/pkg/kvstore"
	"github.com/commercezen/engine/pkg/logger"
	"github.com/commercezen/engine/pkg/metrics"
	"github.com/commercezen/engine/pkg/sessionstore"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.Store, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap document store database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing document store database", err)
		}
	}()

	store, err := kvstore.NewGormStore(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to prepare document store", err)
		os.Exit(1)
	}

	var sessions sessionstore.Store
	if cfg.Redis.Enabled() {
		redisSessions, err := sessionstore.NewRedisStore(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis session store", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisSessions.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis session store", err)
			}
		}()
		sessions = redisSessions
	} else {
		logg.Warn(context.Background(), "redis not configured, using in-memory session store")
		sessions = sessionstore.NewMemoryStore()
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	if err := catalogRepo.Migrate(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to migrate catalog", err)
		os.Exit(1)
	}
	if err := catalogRepo.Seed(context.Background(), catalog.DefaultProducts()); err != nil {
		logg.Error(context.Background(), "failed to seed catalog", err)
		os.Exit(1)
	}

	provider := identity.NewProvider()
	identitySvc, err := identity.NewService(identity.ServiceParams{
		Store:    store,
		Provider: provider,
		Password: cfg.Password,
		JWT:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create identity service", err)
		os.Exit(1)
	}

	cartManager, err := cartsvc.NewManager(cartsvc.ManagerParams{
		ProfileID: cfg.App.ProfileID,
		Store:     store,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart manager", err)
		os.Exit(1)
	}

	wishlistManager, detachWishlist, err := wishlistsvc.NewManager(wishlistsvc.ManagerParams{
		Provider: provider,
		Store:    store,
		Catalog:  catalogRepo,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wishlist manager", err)
		os.Exit(1)
	}
	defer detachWishlist()

	tracker, err := recent.NewTracker(recent.TrackerParams{
		ProfileID: cfg.App.ProfileID,
		Capacity:  cfg.Recent.Capacity,
		Store:     store,
		Catalog:   catalogRepo,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create recently viewed tracker", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deliveryMetrics := metrics.NewDeliveryMetrics(registry)

	ordersRepo, err := orderssvc.NewRepo(store, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order repo", err)
		os.Exit(1)
	}
	engine, err := orderssvc.NewEngine(orderssvc.EngineParams{
		Provider: provider,
		Repo:     ordersRepo,
		Policy:   orderssvc.PolicyFromConfig(cfg.Delivery),
		Interval: cfg.Delivery.ReevalInterval,
		Metrics:  deliveryMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order engine", err)
		os.Exit(1)
	}
	defer engine.Close()

	checkoutSvc, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Provider: provider,
		Cart:     cartManager,
		Engine:   engine,
		Sessions: sessions,
		Payment:  cfg.Payment,
		Delivery: cfg.Delivery,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	var assistService *assistsvc.Service
	if cfg.Assist.APIKey != "" {
		assistClient, err := assistsvc.NewClient(cfg.Assist.APIKey,
			assistsvc.WithBaseURL(cfg.Assist.BaseURL),
			assistsvc.WithModel(cfg.Assist.Model),
			assistsvc.WithTimeout(cfg.Assist.Timeout),
		)
		if err != nil {
			logg.Error(context.Background(), "failed to create assist client", err)
			os.Exit(1)
		}
		assistService, err = assistsvc.NewService(assistClient, cfg.Assist.MaxHistory)
		if err != nil {
			logg.Error(context.Background(), "failed to create assist service", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "assist api key not configured, assistant endpoints disabled")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			Registry:    registry,
			Provider:    provider,
			IdentitySvc: identitySvc,
			Catalog:     catalogRepo,
			Cart:        cartManager,
			Wishlist:    wishlistManager,
			Recent:      tracker,
			Orders:      engine,
			Checkout:    checkoutSvc,
			Assist:      assistService,
			StoreCheck:  dbClient.Ping,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var shutdownErr error
		shutdownErr = multierr.Append(shutdownErr, server.Shutdown(shutdownCtx))
		engine.Stop()

		if shutdownErr != nil {
			logg.Error(ctx, "shutdown finished with errors", shutdownErr)
			os.Exit(1)
		}
		logg.Info(ctx, "shutdown complete")
	}
}
