package accounts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/internal/authz"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/pagination"
)

// Repository exposes user persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername retrieves the user matching the provided username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindScoped loads a user through the caller's visibility scope. Rows the
// scope filters out surface as gorm.ErrRecordNotFound.
func (r *Repository) FindScoped(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Scopes(scope).First(&user, "users.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns a cursor-paginated page of users visible through the scope.
func (r *Repository) List(ctx context.Context, scope authz.Scope, query UserListQuery) ([]models.User, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.User{}).Scopes(scope)
	if query.Role != nil {
		qb = qb.Where("users.role = ?", *query.Role)
	}
	if search := strings.TrimSpace(query.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where(
			"(LOWER(users.email) LIKE ? OR LOWER(users.username) LIKE ? OR LOWER(users.last_name) LIKE ?)",
			pattern, pattern, pattern,
		)
	}
	if cursor != nil {
		qb = qb.Where(
			"(users.created_at < ?) OR (users.created_at = ? AND users.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.User
	if err := qb.Order("users.created_at DESC").Order("users.id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// UpdatePasswordHash replaces the stored credential hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error
}

// UpdateProfile applies the provided column updates to the user row.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// SetActive toggles the account's active flag.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}
