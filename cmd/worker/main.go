package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/prosupplyhq/prosupply-backend/internal/catalog"
	"github.com/prosupplyhq/prosupply-backend/internal/importer"
	"github.com/prosupplyhq/prosupply-backend/pkg/config"
	"github.com/prosupplyhq/prosupply-backend/pkg/db"
	"github.com/prosupplyhq/prosupply-backend/pkg/instance"
	"github.com/prosupplyhq/prosupply-backend/pkg/logger"
	"github.com/prosupplyhq/prosupply-backend/pkg/metrics"
	"github.com/prosupplyhq/prosupply-backend/pkg/migrate"
	"github.com/prosupplyhq/prosupply-backend/pkg/outbox"
	"github.com/prosupplyhq/prosupply-backend/pkg/outbox/idempotency"
	"github.com/prosupplyhq/prosupply-backend/pkg/pubsub"
	"github.com/prosupplyhq/prosupply-backend/pkg/redis"
)

// jobClaimTTL bounds how long a crashed worker keeps an import job
// claimed before another instance may pick it up again.
const jobClaimTTL = 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	applier, err := importer.NewApplier(importer.ApplierParams{
		Client:          dbClient,
		Jobs:            importer.NewRepository(dbClient.DB()),
		Suppliers:       catalog.NewSupplierRepository(dbClient.DB()),
		Categories:      catalog.NewCategoryRepository(dbClient.DB()),
		Products:        catalog.NewProductRepository(dbClient.DB()),
		Characteristics: catalog.NewCharacteristicRepository(dbClient.DB()),
		Stocks:          catalog.NewStockRepository(dbClient.DB()),
		Values:          catalog.NewProductCharacteristicRepository(dbClient.DB()),
		Logger:          logg,
		MaxDocumentMB:   cfg.Import.MaxDocumentMB,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create import applier", err)
		os.Exit(1)
	}

	guard, err := idempotency.NewManager(redisClient, jobClaimTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create redelivery guard", err)
		os.Exit(1)
	}

	importConsumer, err := importer.NewConsumer(redisClient, applier, guard, cfg.Import, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create import consumer", err)
		os.Exit(1)
	}

	sweeper, err := outbox.NewSweeper(outbox.SweeperParams{
		DB:          dbClient,
		Repository:  outbox.NewRepository(dbClient.DB()),
		Publisher:   outbox.NewGCPPublisher(pubsubClient.EmailPublisher()),
		Logger:      logg,
		Sender:      cfg.Notify.SenderAddress,
		BatchSize:   cfg.Outbox.BatchSize,
		MaxAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox sweeper", err)
		os.Exit(1)
	}

	instanceID := instance.GetID()
	service, err := NewService(ServiceParams{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		PubSub:         pubsubClient,
		ImportConsumer: importConsumer,
		Sweeper:        sweeper,
		Jobs:           metrics.NewWorkerJobMetrics(prometheus.DefaultRegisterer),
		InstanceID:     instanceID,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instanceID,
	})
	logg.Info(ctx, "starting worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "worker shutting down gracefully")
}
