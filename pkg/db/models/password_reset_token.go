package models

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetToken is a single-use opaque token, at most one per user.
type PasswordResetToken struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Token     string    `gorm:"column:token;type:text;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
