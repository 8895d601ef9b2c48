package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ecomhq/storefront-backend/api/routes"
	"github.com/ecomhq/storefront-backend/internal/accounts"
	"github.com/ecomhq/storefront-backend/internal/cart"
	"github.com/ecomhq/storefront-backend/internal/catalog"
	"github.com/ecomhq/storefront-backend/internal/ledger"
	"github.com/ecomhq/storefront-backend/internal/reports"
	"github.com/ecomhq/storefront-backend/internal/seed"
	"github.com/ecomhq/storefront-backend/pkg/auth/session"
	"github.com/ecomhq/storefront-backend/pkg/config"
	"github.com/ecomhq/storefront-backend/pkg/db"
	"github.com/ecomhq/storefront-backend/pkg/logger"
	"github.com/ecomhq/storefront-backend/pkg/metrics"
	"github.com/ecomhq/storefront-backend/pkg/migrate"
	"github.com/ecomhq/storefront-backend/pkg/redis"
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

	if cfg.Features.SeedDemo && cfg.App.IsDev() {
		if err := seed.Run(context.Background(), cfg, logg, dbClient.DB()); err != nil {
			logg.Error(context.Background(), "failed to seed demo data", err)
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	gdb := dbClient.DB()
	accountsService, err := accounts.NewService(accounts.ServiceParams{
		AccountRepo:    accounts.NewRepository(gdb),
		HostRepo:       accounts.NewHostRepository(gdb),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(gdb)
	productRepo := catalog.NewRepository(gdb)
	purchaseRepo := ledger.NewRepository(gdb)

	catalogService, err := catalog.NewService(productRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartRepo, dbClient, productRepo, purchaseRepo, checkoutMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(purchaseRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	reportsService, err := reports.NewService(reports.NewRepository(gdb))
	if err != nil {
		logg.Error(context.Background(), "failed to create reports service", err)
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
			Config:         cfg,
			Logger:         logg,
			DBPinger:       dbClient,
			RedisClient:    redisClient,
			SessionManager: sessionManager,
			Registry:       registry,
			HTTPMetrics:    httpMetrics,
			Accounts:       accountsService,
			Catalog:        catalogService,
			Cart:           cartService,
			Ledger:         ledgerService,
			Reports:        reportsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
