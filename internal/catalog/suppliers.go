package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/internal/authz"
	"github.com/prosupplyhq/prosupply-backend/pkg/db"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
	"github.com/prosupplyhq/prosupply-backend/pkg/pagination"
)

// SupplierRepository handles supplier persistence.
type SupplierRepository struct {
	db *gorm.DB
}

// NewSupplierRepository binds a GORM DB to supplier operations.
func NewSupplierRepository(db *gorm.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *SupplierRepository) WithTx(tx *gorm.DB) *SupplierRepository {
	if tx == nil {
		return r
	}
	return &SupplierRepository{db: tx}
}

// Create persists a new supplier row.
func (r *SupplierRepository) Create(ctx context.Context, supplier *models.Supplier) (*models.Supplier, error) {
	if err := r.db.WithContext(ctx).Create(supplier).Error; err != nil {
		return nil, err
	}
	return supplier, nil
}

// FindByID loads a supplier by its UUID.
func (r *SupplierRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

// FindByUser returns the supplier profile owned by the provided user.
func (r *SupplierRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

// FindByName returns the supplier carrying the exact name.
func (r *SupplierRepository) FindByName(ctx context.Context, name string) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

// FindByIDs loads the suppliers matching the provided ids.
func (r *SupplierRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Supplier, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var suppliers []models.Supplier
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

// FindScoped loads a supplier through the caller's visibility scope.
func (r *SupplierRepository) FindScoped(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).Scopes(scope).First(&supplier, "suppliers.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

// List returns a cursor-paginated page of suppliers visible through the scope.
func (r *SupplierRepository) List(ctx context.Context, scope authz.Scope, query SupplierListQuery) ([]models.Supplier, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.Supplier{}).Scopes(scope)
	if search := strings.TrimSpace(query.Query); search != "" {
		qb = qb.Where("LOWER(suppliers.name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if cursor != nil {
		qb = qb.Where(
			"(suppliers.created_at < ?) OR (suppliers.created_at = ? AND suppliers.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Supplier
	if err := qb.Order("suppliers.created_at DESC").Order("suppliers.id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
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

// Update saves the provided supplier.
func (r *SupplierRepository) Update(ctx context.Context, supplier *models.Supplier) error {
	if supplier == nil {
		return fmt.Errorf("supplier is required")
	}
	return r.db.WithContext(ctx).Save(supplier).Error
}

// SetAcceptingOrders toggles whether the supplier takes new orders.
func (r *SupplierRepository) SetAcceptingOrders(ctx context.Context, id uuid.UUID, accepting bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Supplier{}).
		Where("id = ?", id).
		Update("accepting_orders", accepting).Error
}

// SupplierService exposes supplier profile management.
type SupplierService interface {
	Create(ctx context.Context, actor authz.Actor, input CreateSupplierInput) (*SupplierDTO, error)
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*SupplierDTO, error)
	List(ctx context.Context, actor authz.Actor, query SupplierListQuery) (*SupplierListResult, error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateSupplierInput) (*SupplierDTO, error)
	Retire(ctx context.Context, actor authz.Actor, id uuid.UUID) error
}

type supplierService struct {
	repo *SupplierRepository
}

// NewSupplierService constructs a supplier service instance.
func NewSupplierService(repo *SupplierRepository) (SupplierService, error) {
	if repo == nil {
		return nil, fmt.Errorf("supplier repository required")
	}
	return &supplierService{repo: repo}, nil
}

func (s *supplierService) Create(ctx context.Context, actor authz.Actor, input CreateSupplierInput) (*SupplierDTO, error) {
	if !authz.Can(actor, authz.ActionCreate, authz.ResourceSupplier) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	ownerID := actor.UserID
	if input.UserID != nil {
		if actor.Role != enums.UserRoleAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot create a supplier for another user")
		}
		ownerID = *input.UserID
	}

	if _, err := s.repo.FindByUser(ctx, ownerID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "supplier profile already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check supplier owner")
	}

	supplier, err := s.repo.Create(ctx, &models.Supplier{
		UserID:          ownerID,
		Name:            name,
		Address:         input.Address,
		AcceptingOrders: true,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "suppliers_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "supplier name already taken")
		}
		if db.IsUniqueViolation(err, "suppliers_user_id") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "supplier profile already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert supplier")
	}
	return SupplierFromModel(supplier), nil
}

func (s *supplierService) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*SupplierDTO, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceSupplier) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	supplier, err := s.repo.FindScoped(ctx, authz.SupplierScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}
	return SupplierFromModel(supplier), nil
}

func (s *supplierService) List(ctx context.Context, actor authz.Actor, query SupplierListQuery) (*SupplierListResult, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceSupplier) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	rows, nextCursor, err := s.repo.List(ctx, authz.SupplierScope(actor), query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}

	suppliers := make([]SupplierDTO, 0, len(rows))
	for i := range rows {
		suppliers = append(suppliers, *SupplierFromModel(&rows[i]))
	}
	return &SupplierListResult{Suppliers: suppliers, NextCursor: nextCursor}, nil
}

func (s *supplierService) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateSupplierInput) (*SupplierDTO, error) {
	if !authz.Can(actor, authz.ActionUpdate, authz.ResourceSupplier) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	supplier, err := s.repo.FindScoped(ctx, authz.SupplierScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		supplier.Name = name
	}
	if input.Address != nil {
		supplier.Address = input.Address
	}
	if input.AcceptingOrders != nil {
		supplier.AcceptingOrders = *input.AcceptingOrders
	}

	if err := s.repo.Update(ctx, supplier); err != nil {
		if db.IsUniqueViolation(err, "suppliers_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "supplier name already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update supplier")
	}
	return SupplierFromModel(supplier), nil
}

// Retire clears accepting_orders instead of deleting the row, so
// historical orders keep their supplier reference.
func (s *supplierService) Retire(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if !authz.Can(actor, authz.ActionDelete, authz.ResourceSupplier) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	supplier, err := s.repo.FindScoped(ctx, authz.SupplierScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}
	if err := s.repo.SetAcceptingOrders(ctx, supplier.ID, false); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: retire supplier")
	}
	return nil
}
