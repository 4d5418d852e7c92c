package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/prosupplyhq/prosupply-backend/api/routes"
	"github.com/prosupplyhq/prosupply-backend/internal/accounts"
	"github.com/prosupplyhq/prosupply-backend/internal/cart"
	"github.com/prosupplyhq/prosupply-backend/internal/catalog"
	"github.com/prosupplyhq/prosupply-backend/internal/importer"
	"github.com/prosupplyhq/prosupply-backend/internal/orders"
	"github.com/prosupplyhq/prosupply-backend/internal/purchasers"
	"github.com/prosupplyhq/prosupply-backend/pkg/auth/session"
	"github.com/prosupplyhq/prosupply-backend/pkg/config"
	"github.com/prosupplyhq/prosupply-backend/pkg/db"
	"github.com/prosupplyhq/prosupply-backend/pkg/instance"
	"github.com/prosupplyhq/prosupply-backend/pkg/logger"
	"github.com/prosupplyhq/prosupply-backend/pkg/migrate"
	"github.com/prosupplyhq/prosupply-backend/pkg/outbox"
	"github.com/prosupplyhq/prosupply-backend/pkg/redis"
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

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	accountsService, err := accounts.NewService(accounts.ServiceParams{
		UserRepo:       accounts.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}

	registerService, err := accounts.NewRegisterService(accounts.RegisterServiceParams{
		DB:             dbClient,
		Outbox:         outboxService,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	resetService, err := accounts.NewPasswordResetService(accounts.PasswordResetServiceParams{
		DB:             dbClient,
		Outbox:         outboxService,
		SessionManager: sessionManager,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create password reset service", err)
		os.Exit(1)
	}

	supplierRepo := catalog.NewSupplierRepository(dbClient.DB())
	categoryRepo := catalog.NewCategoryRepository(dbClient.DB())
	productRepo := catalog.NewProductRepository(dbClient.DB())
	characteristicRepo := catalog.NewCharacteristicRepository(dbClient.DB())
	stockRepo := catalog.NewStockRepository(dbClient.DB())
	valueRepo := catalog.NewProductCharacteristicRepository(dbClient.DB())

	supplierService, err := catalog.NewSupplierService(supplierRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create supplier service", err)
		os.Exit(1)
	}

	referenceService, err := catalog.NewReferenceService(categoryRepo, productRepo, characteristicRepo, supplierRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create reference service", err)
		os.Exit(1)
	}

	stockService, err := catalog.NewStockService(dbClient, stockRepo, valueRepo, supplierRepo, productRepo, characteristicRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

	purchaserRepo := purchasers.NewRepository(dbClient.DB())
	chainStoreRepo := purchasers.NewChainStoreRepository(dbClient.DB())

	purchaserService, err := purchasers.NewService(dbClient, purchaserRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create purchaser service", err)
		os.Exit(1)
	}

	chainStoreService, err := purchasers.NewChainStoreService(chainStoreRepo, purchaserRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create chain store service", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	cartPositionRepo := cart.NewPositionRepository(dbClient.DB())
	cartStockRepo := cart.NewStockRepository(dbClient.DB())

	cartService, err := cart.NewService(dbClient, cartRepo, cartPositionRepo, cartStockRepo, purchaserRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Client:        dbClient,
		Orders:        orders.NewRepository(dbClient.DB()),
		Positions:     orders.NewPositionRepository(dbClient.DB()),
		Carts:         cartRepo,
		CartPositions: cartPositionRepo,
		Stocks:        cartStockRepo,
		Purchasers:    purchaserRepo,
		ChainStores:   chainStoreRepo,
		Outbox:        outboxService,
		Config:        cfg.Orders,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	importService, err := importer.NewService(importer.NewRepository(dbClient.DB()), supplierRepo, redisClient, cfg.Import)
	if err != nil {
		logg.Error(context.Background(), "failed to create import service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager,
			accountsService, registerService, resetService,
			supplierService, referenceService, stockService,
			purchaserService, chainStoreService,
			cartService, orderService, importService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
