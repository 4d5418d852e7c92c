package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/logger"
)

const (
	defaultBatchSize      = 50
	defaultMaxAttempts    = 10
	defaultPublishTimeout = 15 * time.Second
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Publisher is the slice of a Pub/Sub topic handle the sweeper needs.
type Publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) PublishResult
}

type PublishResult interface {
	Get(ctx context.Context) (string, error)
}

// SweeperParams groups dependencies for the outbox sweeper.
type SweeperParams struct {
	DB             txRunner
	Repository     *Repository
	Publisher      Publisher
	Logger         *logger.Logger
	Sender         string
	BatchSize      int
	MaxAttempts    int
	PublishTimeout time.Duration
}

// Sweeper drains pending outbox rows and publishes them as email
// envelopes. One sweep is one transaction; rows that fail to publish
// keep their pending status until the attempt cap parks them.
type Sweeper struct {
	db             txRunner
	repo           *Repository
	publisher      Publisher
	logg           *logger.Logger
	sender         string
	batchSize      int
	maxAttempts    int
	publishTimeout time.Duration
}

func NewSweeper(params SweeperParams) (*Sweeper, error) {
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}

	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	timeout := params.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}

	return &Sweeper{
		db:             params.DB,
		repo:           params.Repository,
		publisher:      params.Publisher,
		logg:           params.Logger,
		sender:         params.Sender,
		batchSize:      batch,
		maxAttempts:    maxAttempts,
		publishTimeout: timeout,
	}, nil
}

// Sweep publishes one batch of pending messages and reports how many
// went out. An empty batch returns (0, nil) so callers can idle.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	published := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.FetchPendingTx(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch pending: %w", err)
		}

		for _, row := range rows {
			fields := map[string]any{
				"message_id":    row.ID.String(),
				"recipient":     row.Recipient,
				"attempt_count": row.AttemptCount,
			}

			if err := s.publish(ctx, row); err != nil {
				ctxWithFields := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", err.Error())
				if row.AttemptCount+1 >= s.maxAttempts {
					s.logg.Warn(ctxWithFields, "outbox message exhausted its attempts")
					if markErr := s.repo.MarkTerminalTx(tx, row.ID, err); markErr != nil {
						return fmt.Errorf("mark terminal %s: %w", row.ID, markErr)
					}
					continue
				}
				s.logg.Warn(ctxWithFields, "outbox publish failed")
				if markErr := s.repo.MarkFailedTx(tx, row.ID, err); markErr != nil {
					return fmt.Errorf("mark failure %s: %w", row.ID, markErr)
				}
				continue
			}

			if markErr := s.repo.MarkPublishedTx(tx, row.ID); markErr != nil {
				return fmt.Errorf("mark published %s: %w", row.ID, markErr)
			}
			published++
			s.logg.Info(s.logg.WithFields(ctx, fields), "outbox message published")
		}
		return nil
	})
	return published, err
}

func (s *Sweeper) publish(ctx context.Context, row models.OutboxMessage) error {
	envelope := EmailEnvelope{
		MessageID:  row.ID.String(),
		Recipient:  row.Recipient,
		Sender:     s.sender,
		Subject:    row.Subject,
		Body:       row.Body,
		OccurredAt: row.OccurredAt,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"message_id": envelope.MessageID,
			"recipient":  envelope.Recipient,
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	result := s.publisher.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return err
	}
	return nil
}

// NewGCPPublisher wraps a Pub/Sub topic handle in the Publisher
// interface. A nil handle yields a nil Publisher.
func NewGCPPublisher(p *gcppubsub.Publisher) Publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{publisher: p}
}

type gcpPublisher struct {
	publisher *gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) PublishResult {
	if p == nil || p.publisher == nil {
		return nil
	}
	return p.publisher.Publish(ctx, msg)
}
