package accounts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
)

// ResetTokenRepository persists single-use password reset tokens.
type ResetTokenRepository struct {
	db *gorm.DB
}

// NewResetTokenRepository constructs a reset token repo bound to the provided GORM DB.
func NewResetTokenRepository(db *gorm.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

// Create inserts a new reset token row.
func (r *ResetTokenRepository) Create(ctx context.Context, token *models.PasswordResetToken) (*models.PasswordResetToken, error) {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return nil, err
	}
	return token, nil
}

// FindByUser returns the user's current token, if any.
func (r *ResetTokenRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// FindByToken resolves a token by its opaque value.
func (r *ResetTokenRepository) FindByToken(ctx context.Context, value string) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken
	if err := r.db.WithContext(ctx).Where("token = ?", value).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// DeleteByUser removes the user's token. Deleting a user with no token is a no-op.
func (r *ResetTokenRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.PasswordResetToken{}).Error
}
