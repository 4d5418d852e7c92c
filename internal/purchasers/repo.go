package purchasers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/internal/authz"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/pagination"
)

// Repository handles purchaser persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to purchaser operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create persists a new purchaser row.
func (r *Repository) Create(ctx context.Context, purchaser *models.Purchaser) (*models.Purchaser, error) {
	if err := r.db.WithContext(ctx).Create(purchaser).Error; err != nil {
		return nil, err
	}
	return purchaser, nil
}

// CreateCart persists the purchaser's shopping cart. Registration and
// profile creation call it inside the same transaction as Create so a
// purchaser never exists without a cart.
func (r *Repository) CreateCart(ctx context.Context, cart *models.ShoppingCart) (*models.ShoppingCart, error) {
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// FindByID loads a purchaser with their cart.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Purchaser, error) {
	var purchaser models.Purchaser
	if err := r.db.WithContext(ctx).Preload("Cart").
		First(&purchaser, "purchasers.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &purchaser, nil
}

// FindByUser loads the purchaser profile owned by the user.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Purchaser, error) {
	var purchaser models.Purchaser
	if err := r.db.WithContext(ctx).Preload("Cart").
		Where("user_id = ?", userID).First(&purchaser).Error; err != nil {
		return nil, err
	}
	return &purchaser, nil
}

// FindScoped loads a purchaser the actor's scope can reach.
func (r *Repository) FindScoped(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.Purchaser, error) {
	var purchaser models.Purchaser
	if err := r.db.WithContext(ctx).Scopes(scope).Preload("Cart").
		First(&purchaser, "purchasers.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &purchaser, nil
}

// List returns a cursor-paginated page of purchasers visible to the scope.
func (r *Repository) List(ctx context.Context, scope authz.Scope, query PurchaserListQuery) ([]models.Purchaser, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.Purchaser{}).Scopes(scope).Preload("Cart")
	if search := strings.TrimSpace(query.Query); search != "" {
		qb = qb.Where("LOWER(purchasers.name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if cursor != nil {
		qb = qb.Where(
			"(purchasers.created_at < ?) OR (purchasers.created_at = ? AND purchasers.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Purchaser
	if err := qb.Order("purchasers.created_at DESC").Order("purchasers.id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
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

// Update saves the provided purchaser.
func (r *Repository) Update(ctx context.Context, purchaser *models.Purchaser) error {
	if purchaser == nil {
		return fmt.Errorf("purchaser is required")
	}
	return r.db.WithContext(ctx).Omit("User", "Cart").Save(purchaser).Error
}
