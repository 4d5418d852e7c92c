package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/pkg/config"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
	"github.com/prosupplyhq/prosupply-backend/pkg/logger"
	"github.com/prosupplyhq/prosupply-backend/pkg/outbox"
	"github.com/prosupplyhq/prosupply-backend/pkg/security"
)

const invalidResetTokenMessage = "invalid or expired reset token"

// PasswordResetService issues and consumes single-use reset tokens.
// Request never reveals whether the email is registered.
type PasswordResetService interface {
	Request(ctx context.Context, email string) error
	Confirm(ctx context.Context, token, newPassword string) error
}

// PasswordResetServiceParams packages the dependencies for the reset flows.
// DB is satisfied by *db.Client.
type PasswordResetServiceParams struct {
	DB             txRunner
	Outbox         outboxEmitter
	SessionManager sessionManager
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type resetTokenRepository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) (*models.PasswordResetToken, error)
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.PasswordResetToken, error)
	FindByToken(ctx context.Context, value string) (*models.PasswordResetToken, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type resetUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type passwordResetService struct {
	db          txRunner
	outbox      outboxEmitter
	session     sessionManager
	passwordCfg config.PasswordConfig
	logg        *logger.Logger

	userRepo  func(tx *gorm.DB) resetUserRepository
	tokenRepo func(tx *gorm.DB) resetTokenRepository
}

// NewPasswordResetService builds the reset service with the provided dependencies.
func NewPasswordResetService(params PasswordResetServiceParams) (PasswordResetService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	if params.SessionManager == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session manager required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &passwordResetService{
		db:          params.DB,
		outbox:      params.Outbox,
		session:     params.SessionManager,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
		userRepo: func(tx *gorm.DB) resetUserRepository {
			return NewRepository(tx)
		},
		tokenRepo: func(tx *gorm.DB) resetTokenRepository {
			return NewResetTokenRepository(tx)
		},
	}, nil
}

// Request looks up the account and queues a reset email carrying the
// token. The response is identical whether or not the email exists.
func (s *passwordResetService) Request(ctx context.Context, email string) error {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := s.userRepo(tx).FindByEmail(ctx, normalized)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.logg.Info(s.logg.WithField(ctx, "email", normalized), "reset requested for unknown email")
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
		}
		if !user.IsActive {
			return nil
		}

		tokens := s.tokenRepo(tx)
		now := time.Now().UTC()

		token, err := tokens.FindByUser(ctx, user.ID)
		switch {
		case err == nil && now.Before(token.ExpiresAt):
			// Re-send the live token instead of invalidating it.
		case err == nil || errors.Is(err, gorm.ErrRecordNotFound):
			if err == nil {
				if err := tokens.DeleteByUser(ctx, user.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete expired token")
				}
			}
			token, err = tokens.Create(ctx, &models.PasswordResetToken{
				UserID:    user.ID,
				Token:     uuid.NewString(),
				ExpiresAt: now.Add(s.passwordCfg.ResetTokenTTL),
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create reset token")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup reset token")
		}

		return s.outbox.Emit(ctx, tx, outbox.EmailIntent{
			Recipient: user.Email,
			Subject:   "Reset your ProSupply password",
			Body:      "Use this token to set a new password: " + token.Token,
		})
	})
}

// Confirm consumes the token, stores the new credential, and drops every
// live session the user holds.
func (s *passwordResetService) Confirm(ctx context.Context, token, newPassword string) error {
	value := strings.TrimSpace(token)
	if value == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	if err := security.ValidatePasswordStrength(newPassword); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "password strength")
	}
	hash, err := security.HashPassword(newPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var userID uuid.UUID
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		tokens := s.tokenRepo(tx)
		reset, err := tokens.FindByToken(ctx, value)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, invalidResetTokenMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup reset token")
		}
		if time.Now().UTC().After(reset.ExpiresAt) {
			return pkgerrors.New(pkgerrors.CodeValidation, invalidResetTokenMessage)
		}

		userRepo := s.userRepo(tx)
		user, err := userRepo.FindByID(ctx, reset.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}
		if err := userRepo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
		}
		if err := tokens.DeleteByUser(ctx, user.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume reset token")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.EmailIntent{
			Recipient: user.Email,
			Subject:   "Your ProSupply password was changed",
			Body:      "If this wasn't you, request a new reset immediately.",
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue notification")
		}

		userID = user.ID
		return nil
	})
	if err != nil {
		return err
	}

	// The credential change is already durable. A failed revocation only
	// leaves sessions running until their TTL, so it is logged, not returned.
	if err := s.session.RevokeAllForUser(ctx, userID.String()); err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, userID.String()), "revoke sessions after reset", err)
	}
	return nil
}
