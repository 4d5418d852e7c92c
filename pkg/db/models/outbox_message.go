package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
)

// OutboxMessage is a queued email intent written in the same
// transaction as the business change that caused it. The worker drains
// pending rows and publishes them; delivery stays best-effort.
type OutboxMessage struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Subject      string             `gorm:"column:subject;not null"`
	Body         string             `gorm:"column:body;not null"`
	Recipient    string             `gorm:"column:recipient;not null"`
	Status       enums.OutboxStatus `gorm:"column:status;type:outbox_status;not null;default:'pending'"`
	AttemptCount int                `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string            `gorm:"column:last_error"`
	OccurredAt   time.Time          `gorm:"column:occurred_at;autoCreateTime"`
	PublishedAt  *time.Time         `gorm:"column:published_at"`
}
