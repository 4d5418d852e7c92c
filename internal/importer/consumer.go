package importer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/prosupplyhq/prosupply-backend/pkg/config"
	"github.com/prosupplyhq/prosupply-backend/pkg/logger"
)

// consumerName scopes the redelivery guard's keys.
const consumerName = "import-apply"

type queuePopper interface {
	QueuePop(ctx context.Context, key string, timeout time.Duration) (string, error)
}

type jobApplier interface {
	Apply(ctx context.Context, jobID uuid.UUID) error
}

type redeliveryGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, jobID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, jobID uuid.UUID) error
}

// Consumer drains the import job queue and feeds each id to the
// applier. A job id queued twice is applied once: the guard claims the
// id before the applier runs, which also keeps two workers from racing
// on the same job. Malformed ids are dropped; applier errors are logged
// and the loop keeps going.
type Consumer struct {
	queue    queuePopper
	applier  jobApplier
	guard    redeliveryGuard
	queueKey string
	poll     time.Duration
	logg     *logger.Logger
}

// NewConsumer constructs a consumer over the configured job queue.
func NewConsumer(queue queuePopper, applier jobApplier, guard redeliveryGuard, cfg config.ImportConfig, logg *logger.Logger) (*Consumer, error) {
	if queue == nil {
		return nil, errors.New("job queue is required")
	}
	if applier == nil {
		return nil, errors.New("applier is required")
	}
	if guard == nil {
		return nil, errors.New("redelivery guard is required")
	}
	if strings.TrimSpace(cfg.QueueKey) == "" {
		return nil, errors.New("import queue key is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}
	return &Consumer{
		queue:    queue,
		applier:  applier,
		guard:    guard,
		queueKey: cfg.QueueKey,
		poll:     poll,
		logg:     logg,
	}, nil
}

// Run pops job ids until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := c.queue.QueuePop(ctx, c.queueKey, c.poll)
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logg.Error(ctx, "import queue pop failed", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.poll):
			}
			continue
		}

		jobID, err := uuid.Parse(raw)
		if err != nil {
			c.logg.Warn(c.logg.WithField(ctx, "payload", raw), "dropping malformed job id")
			continue
		}
		c.handle(ctx, jobID)
	}
}

func (c *Consumer) handle(ctx context.Context, jobID uuid.UUID) {
	logCtx := c.logg.WithJobID(ctx, jobID.String())

	// The guard is advisory; if redis misbehaves the job status check
	// inside Apply still keeps finished jobs from re-running.
	processed, err := c.guard.CheckAndMarkProcessed(ctx, consumerName, jobID)
	if err != nil {
		c.logg.Warn(logCtx, "redelivery check failed, applying anyway")
	} else if processed {
		c.logg.Info(logCtx, "skipping already claimed job")
		return
	}

	if err := c.applier.Apply(ctx, jobID); err != nil {
		c.logg.Error(logCtx, "import job processing failed", err)
		// Release the claim so a re-queued id can retry after an
		// infrastructure failure.
		if delErr := c.guard.Delete(ctx, consumerName, jobID); delErr != nil {
			c.logg.Warn(logCtx, "failed to release job claim")
		}
	}
}
