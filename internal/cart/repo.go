package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/internal/authz"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
)

// Repository loads carts with their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByPurchaser loads the purchaser's cart with lines and their stocks.
func (r *Repository) FindByPurchaser(ctx context.Context, purchaserID uuid.UUID) (*models.ShoppingCart, error) {
	var cart models.ShoppingCart
	err := r.db.WithContext(ctx).
		Preload("Positions", func(q *gorm.DB) *gorm.DB {
			return q.Order("cart_positions.created_at ASC")
		}).
		Preload("Positions.Stock").
		Preload("Positions.Stock.Product").
		Preload("Positions.Stock.Supplier").
		First(&cart, "shopping_carts.purchaser_id = ?", purchaserID).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// PositionRepository persists cart lines.
type PositionRepository struct {
	db *gorm.DB
}

func NewPositionRepository(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

func (r *PositionRepository) WithTx(tx *gorm.DB) *PositionRepository {
	if tx == nil {
		return r
	}
	return &PositionRepository{db: tx}
}

func (r *PositionRepository) Create(ctx context.Context, position *models.CartPosition) (*models.CartPosition, error) {
	if err := r.db.WithContext(ctx).Create(position).Error; err != nil {
		return nil, err
	}
	return position, nil
}

func (r *PositionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.CartPosition, error) {
	var position models.CartPosition
	err := r.db.WithContext(ctx).
		Preload("Stock").
		Preload("Stock.Product").
		Preload("Stock.Supplier").
		First(&position, "cart_positions.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &position, nil
}

// FindScoped loads a position visible to the actor's scope.
func (r *PositionRepository) FindScoped(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.CartPosition, error) {
	var position models.CartPosition
	err := r.db.WithContext(ctx).
		Scopes(scope).
		Preload("Stock").
		Preload("Stock.Product").
		Preload("Stock.Supplier").
		First(&position, "cart_positions.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &position, nil
}

func (r *PositionRepository) FindByCartAndStock(ctx context.Context, cartID, stockID uuid.UUID) (*models.CartPosition, error) {
	var position models.CartPosition
	err := r.db.WithContext(ctx).
		Where("cart_positions.cart_id = ? AND cart_positions.stock_id = ?", cartID, stockID).
		First(&position).Error
	if err != nil {
		return nil, err
	}
	return &position, nil
}

func (r *PositionRepository) ListByCart(ctx context.Context, cartID uuid.UUID) ([]models.CartPosition, error) {
	var positions []models.CartPosition
	err := r.db.WithContext(ctx).
		Where("cart_positions.cart_id = ?", cartID).
		Order("cart_positions.created_at ASC").
		Find(&positions).Error
	if err != nil {
		return nil, err
	}
	return positions, nil
}

func (r *PositionRepository) Update(ctx context.Context, position *models.CartPosition) error {
	if position == nil || position.ID == uuid.Nil {
		return gorm.ErrRecordNotFound
	}
	return r.db.WithContext(ctx).
		Omit("Stock").
		Save(position).Error
}

func (r *PositionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.CartPosition{}, "id = ?", id).Error
}

func (r *PositionRepository) DeleteByCart(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.CartPosition{}, "cart_id = ?", cartID).Error
}

// StockRepository covers the quantity side of stocks. Reservation goes
// through a guarded decrement so a race can never take quantity below
// zero; everything else about a stock belongs to the catalog.
type StockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) *StockRepository {
	return &StockRepository{db: db}
}

func (r *StockRepository) WithTx(tx *gorm.DB) *StockRepository {
	if tx == nil {
		return r
	}
	return &StockRepository{db: tx}
}

func (r *StockRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	var stock models.Stock
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		First(&stock, "stocks.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

// Reserve takes quantity out of the stock. It reports false when the
// stock does not exist or holds less than requested; nothing changes in
// that case.
func (r *StockRepository) Reserve(ctx context.Context, stockID uuid.UUID, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Stock{}).
		Where("id = ? AND quantity >= ?", stockID, quantity).
		Update("quantity", gorm.Expr("quantity - ?", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Restock returns quantity to the stock unconditionally.
func (r *StockRepository) Restock(ctx context.Context, stockID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.Stock{}).
		Where("id = ?", stockID).
		Update("quantity", gorm.Expr("quantity + ?", quantity)).Error
}
