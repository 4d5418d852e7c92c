package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prosupplyhq/prosupply-backend/internal/importer"
	"github.com/prosupplyhq/prosupply-backend/pkg/config"
	"github.com/prosupplyhq/prosupply-backend/pkg/db"
	"github.com/prosupplyhq/prosupply-backend/pkg/instance"
	"github.com/prosupplyhq/prosupply-backend/pkg/logger"
	"github.com/prosupplyhq/prosupply-backend/pkg/metrics"
	"github.com/prosupplyhq/prosupply-backend/pkg/outbox"
	"github.com/prosupplyhq/prosupply-backend/pkg/pubsub"
	"github.com/prosupplyhq/prosupply-backend/pkg/redis"
)

const (
	sweepInterval = 5 * time.Second
	sweepLockName = "outbox:sweep"
	sweepLockTTL  = 30 * time.Second
	sweepJobName  = "outbox_sweep"
)

type ServiceParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             *db.Client
	Redis          *redis.Client
	PubSub         *pubsub.Client
	ImportConsumer *importer.Consumer
	Sweeper        *outbox.Sweeper
	Jobs           *metrics.WorkerJobMetrics
	InstanceID     string
}

type Service struct {
	cfg        *config.Config
	logg       *logger.Logger
	db         *db.Client
	redis      *redis.Client
	pubsub     *pubsub.Client
	consumer   *importer.Consumer
	sweeper    *outbox.Sweeper
	jobs       *metrics.WorkerJobMetrics
	instanceID string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.ImportConsumer == nil {
		return nil, errors.New("import consumer is required")
	}
	if params.Sweeper == nil {
		return nil, errors.New("outbox sweeper is required")
	}
	if params.InstanceID == "" {
		params.InstanceID = instance.GetID()
	}

	return &Service{
		cfg:        params.Config,
		logg:       params.Logger,
		db:         params.DB,
		redis:      params.Redis,
		pubsub:     params.PubSub,
		consumer:   params.ImportConsumer,
		sweeper:    params.Sweeper,
		jobs:       params.Jobs,
		instanceID: params.InstanceID,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping); err != nil {
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.consumer.Run(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "worker context canceled")
			return ctx.Err()
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(ctx, "import consumer stopped unexpectedly", err)
				return err
			}
			return err
		case <-ticker.C:
			s.sweepOutbox(ctx)
		}
	}
}

// sweepOutbox runs one outbox batch behind an advisory lock so that
// scaled-out workers do not publish the same rows twice. Losing the
// lock race is not an error; the holder will drain the batch.
func (s *Service) sweepOutbox(ctx context.Context) {
	acquired, err := s.redis.AcquireLock(ctx, sweepLockName, s.instanceID, sweepLockTTL)
	if err != nil {
		s.logg.Warn(ctx, "outbox sweep lock check failed")
		return
	}
	if !acquired {
		return
	}
	defer func() {
		if err := s.redis.ReleaseLock(ctx, sweepLockName); err != nil {
			s.logg.Warn(ctx, "failed to release outbox sweep lock")
		}
	}()

	start := time.Now()
	published, err := s.sweeper.Sweep(ctx)
	s.jobs.ObserveDuration(sweepJobName, time.Since(start))
	if err != nil {
		s.jobs.IncFailure(sweepJobName)
		s.logg.Error(ctx, "outbox sweep failed", err)
		return
	}
	s.jobs.IncSuccess(sweepJobName)
	if published > 0 {
		s.logg.Info(s.logg.WithField(ctx, "published", published), "outbox sweep published messages")
	}
}
