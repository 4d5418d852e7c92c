package outbox

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
	"github.com/prosupplyhq/prosupply-backend/pkg/logger"
)

// EmailIntent is a notification recorded alongside the business write that
// produced it. A sweeper publishes intents to the email topic later.
type EmailIntent struct {
	Recipient string
	Subject   string
	Body      string
}

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit stores the intent inside the caller's transaction so the email row
// commits or rolls back together with the triggering change.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, intent EmailIntent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	row, err := s.buildRow(intent)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}
	s.logQueued(ctx, row)
	return nil
}

// NotifyAsync queues an intent for callers that hold no transaction.
func (s *Service) NotifyAsync(ctx context.Context, intent EmailIntent) error {
	row, err := s.buildRow(intent)
	if err != nil {
		return err
	}
	if err := s.repo.InsertDirect(ctx, row); err != nil {
		return err
	}
	s.logQueued(ctx, row)
	return nil
}

func (s *Service) buildRow(intent EmailIntent) (models.OutboxMessage, error) {
	if strings.TrimSpace(intent.Recipient) == "" {
		return models.OutboxMessage{}, errors.New("recipient is required")
	}
	if strings.TrimSpace(intent.Subject) == "" {
		return models.OutboxMessage{}, errors.New("subject is required")
	}
	return models.OutboxMessage{
		ID:        uuid.New(),
		Recipient: intent.Recipient,
		Subject:   intent.Subject,
		Body:      intent.Body,
		Status:    enums.OutboxStatusPending,
	}, nil
}

func (s *Service) logQueued(ctx context.Context, row models.OutboxMessage) {
	if s.logg == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	fields := map[string]any{
		"message_id": row.ID.String(),
		"recipient":  row.Recipient,
		"subject":    row.Subject,
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "email intent queued")
}
