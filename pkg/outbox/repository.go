package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, message models.OutboxMessage) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(&message).Error
}

// InsertDirect writes a message outside any caller transaction.
func (r *Repository) InsertDirect(ctx context.Context, message models.OutboxMessage) error {
	return r.db.WithContext(ctx).Create(&message).Error
}

// FetchPendingTx loads the oldest pending messages that still have attempts left.
func (r *Repository) FetchPendingTx(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxMessage, error) {
	var rows []models.OutboxMessage
	err := tx.Where("status = ? AND attempt_count < ?", enums.OutboxStatusPending, maxAttempts).
		Order("occurred_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Model(&models.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       enums.OutboxStatusPublished,
			"published_at": time.Now(),
		}).Error
}

func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error {
	return tx.Model(&models.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":    cause.Error(),
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}

// MarkTerminalTx parks a message that will never be retried again.
func (r *Repository) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error) error {
	return tx.Model(&models.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.OutboxStatusFailed,
			"last_error":    cause.Error(),
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}
