package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/internal/authz"
	pkgAuth "github.com/prosupplyhq/prosupply-backend/pkg/auth"
	"github.com/prosupplyhq/prosupply-backend/pkg/auth/session"
	"github.com/prosupplyhq/prosupply-backend/pkg/config"
	"github.com/prosupplyhq/prosupply-backend/pkg/db"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
	"github.com/prosupplyhq/prosupply-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the account behavior needed by the auth and users controllers.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error)
	Logout(ctx context.Context, userID uuid.UUID, accessID string) error
	GetUser(ctx context.Context, actor authz.Actor, id uuid.UUID) (*UserDTO, error)
	ListUsers(ctx context.Context, actor authz.Actor, query UserListQuery) (*UserListResult, error)
	UpdateProfile(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
	DeactivateUser(ctx context.Context, actor authz.Actor, id uuid.UUID) error
}

type service struct {
	users   userRepository
	session sessionManager
	jwtCfg  config.JWTConfig
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindScoped(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, scope authz.Scope, query UserListQuery) ([]models.User, string, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type sessionManager interface {
	Generate(ctx context.Context, userID, accessID string) (string, error)
	Rotate(ctx context.Context, userID, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, userID, accessID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// ServiceParams bundles the dependencies required to build an accounts service.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
}

// NewService constructs an accounts service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		users:   params.UserRepo,
		session: params.SessionManager,
		jwtCfg:  params.JWTConfig,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now, err := s.recordLogin(ctx, user)
	if err != nil {
		return nil, err
	}

	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, user.ID.String(), accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         FromModel(user),
	}, nil
}

func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token pair")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token pair")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token pair")
	}

	newAccessID, refreshToken, err := s.session.Rotate(ctx, user.ID.String(), claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token pair")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}

	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &RefreshResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *service) Logout(ctx context.Context, userID uuid.UUID, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "access id is required")
	}
	if err := s.session.Revoke(ctx, userID.String(), accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	return nil
}

func (s *service) GetUser(ctx context.Context, actor authz.Actor, id uuid.UUID) (*UserDTO, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceUser) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	user, err := s.users.FindScoped(ctx, authz.UserScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) ListUsers(ctx context.Context, actor authz.Actor, query UserListQuery) (*UserListResult, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceUser) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	rows, nextCursor, err := s.users.List(ctx, authz.UserScope(actor), query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}

	users := make([]UserDTO, 0, len(rows))
	for i := range rows {
		users = append(users, *FromModel(&rows[i]))
	}
	return &UserListResult{Users: users, NextCursor: nextCursor}, nil
}

func (s *service) UpdateProfile(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	if !authz.Can(actor, authz.ActionUpdate, authz.ResourceUser) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	if input.Role != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role is immutable")
	}

	target, err := s.users.FindScoped(ctx, authz.UserScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	updates := map[string]any{}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email must not be empty")
		}
		updates["email"] = email
	}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "username must not be empty")
		}
		updates["username"] = username
	}
	if input.FirstName != nil {
		name := strings.TrimSpace(*input.FirstName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "first name must not be empty")
		}
		updates["first_name"] = name
	}
	if input.LastName != nil {
		name := strings.TrimSpace(*input.LastName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "last name must not be empty")
		}
		updates["last_name"] = name
	}
	if len(updates) == 0 {
		return FromModel(target), nil
	}

	if err := s.users.UpdateProfile(ctx, target.ID, updates); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email or username already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}

	updated, err := s.users.FindByID(ctx, target.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload user")
	}
	return FromModel(updated), nil
}

func (s *service) DeactivateUser(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if !authz.Can(actor, authz.ActionDelete, authz.ResourceUser) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	target, err := s.users.FindScoped(ctx, authz.UserScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	if err := s.users.SetActive(ctx, target.ID, false); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate user")
	}
	if err := s.session.RevokeAllForUser(ctx, target.ID.String()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke sessions")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, strings.ToLower(input))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) recordLogin(ctx context.Context, user *models.User) (time.Time, error) {
	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now
	return now, nil
}
