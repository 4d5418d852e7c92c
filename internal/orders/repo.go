package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/internal/authz"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
	"github.com/prosupplyhq/prosupply-backend/pkg/pagination"
)

// Repository persists orders.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
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

func (r *Repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func orderPreloads(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Positions", func(q *gorm.DB) *gorm.DB {
			return q.Order("order_positions.created_at ASC")
		}).
		Preload("Positions.Stock").
		Preload("Positions.Stock.Product").
		Preload("Positions.Stock.Supplier").
		Preload("ChainStore")
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := orderPreloads(r.db.WithContext(ctx)).
		First(&order, "orders.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindScoped loads an order visible to the actor's scope.
func (r *Repository) FindScoped(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := orderPreloads(r.db.WithContext(ctx).Scopes(scope)).
		First(&order, "orders.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns a cursor-paginated page of orders visible to the scope.
func (r *Repository) List(ctx context.Context, scope authz.Scope, query OrderListQuery) ([]models.Order, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := orderPreloads(r.db.WithContext(ctx).Model(&models.Order{}).Scopes(scope))
	if query.Status != nil {
		qb = qb.Where("orders.status = ?", *query.Status)
	}
	if cursor != nil {
		qb = qb.Where(
			"(orders.created_at < ?) OR (orders.created_at = ? AND orders.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Order
	if err := qb.Order("orders.created_at DESC").Order("orders.id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
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

// UpdateStatus moves the order's status column only.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// UpdateChainStore repoints the order at another chain store.
func (r *Repository) UpdateChainStore(ctx context.Context, id, chainStoreID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("chain_store_id", chainStoreID).Error
}

// FindUsersByIDs loads the users behind notification recipients.
func (r *Repository) FindUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// PositionRepository persists order lines.
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

func (r *PositionRepository) CreateBatch(ctx context.Context, positions []models.OrderPosition) error {
	if len(positions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&positions).Error
}

func (r *PositionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.OrderPosition, error) {
	var position models.OrderPosition
	err := r.db.WithContext(ctx).
		Preload("Stock").
		Preload("Stock.Product").
		Preload("Stock.Supplier").
		First(&position, "order_positions.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &position, nil
}

// FindScoped loads a line visible to the actor's scope.
func (r *PositionRepository) FindScoped(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.OrderPosition, error) {
	var position models.OrderPosition
	err := r.db.WithContext(ctx).
		Scopes(scope).
		Preload("Stock").
		Preload("Stock.Product").
		Preload("Stock.Supplier").
		First(&position, "order_positions.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &position, nil
}

func (r *PositionRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderPosition, error) {
	var positions []models.OrderPosition
	err := r.db.WithContext(ctx).
		Where("order_positions.order_id = ?", orderID).
		Order("order_positions.created_at ASC").
		Find(&positions).Error
	if err != nil {
		return nil, err
	}
	return positions, nil
}

// ListScoped returns a cursor-paginated page of lines visible to the scope.
func (r *PositionRepository) ListScoped(ctx context.Context, scope authz.Scope, query PositionListQuery) ([]models.OrderPosition, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.OrderPosition{}).Scopes(scope).
		Preload("Stock").
		Preload("Stock.Product").
		Preload("Stock.Supplier")
	if query.OrderID != nil {
		qb = qb.Where("order_positions.order_id = ?", *query.OrderID)
	}
	if cursor != nil {
		qb = qb.Where(
			"(order_positions.created_at < ?) OR (order_positions.created_at = ? AND order_positions.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.OrderPosition
	if err := qb.Order("order_positions.created_at DESC").Order("order_positions.id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
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

// UpdateFlags persists the fulfilment flags on one line.
func (r *PositionRepository) UpdateFlags(ctx context.Context, id uuid.UUID, confirmed, delivered bool) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderPosition{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"confirmed": confirmed,
			"delivered": delivered,
		}).Error
}
