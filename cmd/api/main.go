package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmarceau/storefront-backend/api/controllers"
	"github.com/dmarceau/storefront-backend/api/routes"
	"github.com/dmarceau/storefront-backend/internal/cart"
	"github.com/dmarceau/storefront-backend/internal/cartsync"
	"github.com/dmarceau/storefront-backend/internal/catalog"
	"github.com/dmarceau/storefront-backend/internal/checkout"
	"github.com/dmarceau/storefront-backend/internal/orders"
	pkgauth "github.com/dmarceau/storefront-backend/pkg/auth"
	"github.com/dmarceau/storefront-backend/pkg/config"
	"github.com/dmarceau/storefront-backend/pkg/db"
	"github.com/dmarceau/storefront-backend/pkg/logger"
	"github.com/dmarceau/storefront-backend/pkg/metrics"
	"github.com/dmarceau/storefront-backend/pkg/migrate"
	"github.com/dmarceau/storefront-backend/pkg/redis"
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
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionStore, err := pkgauth.NewSessionStore(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session store", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	syncMetrics := metrics.NewSyncMetrics(registry)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartCache, err := cart.NewRedisCache(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart cache", err)
		os.Exit(1)
	}
	cartRepo := cart.NewRepository(dbClient.DB())

	cartService, err := cart.NewService(cart.ServiceParams{
		Cache:   cartCache,
		Catalog: catalogService,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	reconciler, err := cartsync.NewReconciler(cartsync.ReconcilerParams{
		Cache:     cartCache,
		Repo:      cartRepo,
		Logger:    logg,
		Metrics:   syncMetrics,
		Tolerance: cfg.Sync.Tolerance,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync reconciler", err)
		os.Exit(1)
	}

	syncManager, err := cartsync.NewManager(cartsync.ManagerParams{
		Reconciler: reconciler,
		Logger:     logg,
		Metrics:    syncMetrics,
		Interval:   cfg.Sync.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync manager", err)
		os.Exit(1)
	}
	defer syncManager.StopAll()

	cartValidator, err := checkout.NewValidator(catalogService)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart validator", err)
		os.Exit(1)
	}

	taxRate, err := cfg.Checkout.TaxRate()
	if err != nil {
		logg.Error(context.Background(), "invalid checkout tax rate", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		DB:          dbClient,
		Repo:        checkout.NewRepository(dbClient.DB()),
		CartRepo:    cartRepo,
		CatalogRepo: catalogRepo,
		Cache:       cartCache,
		Syncer:      reconciler,
		Logger:      logg,
		Metrics:     checkoutMetrics,
		Policy: checkout.TotalsPolicy{
			TaxRate:                    taxRate,
			FreeShippingThresholdCents: cfg.Checkout.FreeShippingThresholdCents,
			FlatShippingFeeCents:       cfg.Checkout.FlatShippingFeeCents,
		},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		DB:          dbClient,
		Repo:        orders.NewRepository(dbClient.DB()),
		CatalogRepo: catalogRepo,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
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
			Config: cfg,
			Logger: logg,
			Probes: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
			SessionChecker:  sessionStore,
			CartService:     cartService,
			CartValidator:   cartValidator,
			SyncManager:     syncManager,
			CheckoutService: checkoutService,
			OrdersService:   ordersService,
			Metrics:         registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
