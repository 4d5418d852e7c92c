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

// StockRepository handles stock listing persistence.
type StockRepository struct {
	db *gorm.DB
}

// NewStockRepository binds a GORM DB to stock operations.
func NewStockRepository(db *gorm.DB) *StockRepository {
	return &StockRepository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *StockRepository) WithTx(tx *gorm.DB) *StockRepository {
	if tx == nil {
		return r
	}
	return &StockRepository{db: tx}
}

// Create persists a new stock row.
func (r *StockRepository) Create(ctx context.Context, stock *models.Stock) (*models.Stock, error) {
	if err := r.db.WithContext(ctx).Create(stock).Error; err != nil {
		return nil, err
	}
	return stock, nil
}

// FindByID loads a stock with its product and supplier.
func (r *StockRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	var stock models.Stock
	if err := r.db.WithContext(ctx).
		Preload("Product").Preload("Product.Category").Preload("Supplier").
		First(&stock, "stocks.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

// FindScoped loads a stock the actor's scope can reach.
func (r *StockRepository) FindScoped(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.Stock, error) {
	var stock models.Stock
	if err := r.db.WithContext(ctx).Scopes(scope).
		Preload("Product").Preload("Product.Category").Preload("Supplier").
		First(&stock, "stocks.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

// FindByNaturalKey resolves a stock by the (sku, product, supplier)
// triple that identifies a listing.
func (r *StockRepository) FindByNaturalKey(ctx context.Context, sku string, productID, supplierID uuid.UUID) (*models.Stock, error) {
	var stock models.Stock
	if err := r.db.WithContext(ctx).
		Where("sku = ? AND product_id = ? AND supplier_id = ?", sku, productID, supplierID).
		First(&stock).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

// List returns a cursor-paginated page of stocks visible to the scope.
func (r *StockRepository) List(ctx context.Context, scope authz.Scope, query StockListQuery) ([]models.Stock, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.Stock{}).Scopes(scope).
		Preload("Product").Preload("Supplier")

	search := strings.TrimSpace(query.Query)
	if query.CategoryID != nil || search != "" {
		qb = qb.Select("stocks.*").Joins("JOIN products ON products.id = stocks.product_id")
	}
	if query.ProductID != nil {
		qb = qb.Where("stocks.product_id = ?", *query.ProductID)
	}
	if query.SupplierID != nil {
		qb = qb.Where("stocks.supplier_id = ?", *query.SupplierID)
	}
	if query.CategoryID != nil {
		qb = qb.Where("products.category_id = ?", *query.CategoryID)
	}
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		qb = qb.Where(
			"LOWER(stocks.sku) LIKE ? OR LOWER(stocks.model) LIKE ? OR LOWER(products.name) LIKE ?",
			like, like, like,
		)
	}
	if cursor != nil {
		qb = qb.Where(
			"(stocks.created_at < ?) OR (stocks.created_at = ? AND stocks.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Stock
	if err := qb.Order("stocks.created_at DESC").Order("stocks.id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
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

// Update saves the provided stock.
func (r *StockRepository) Update(ctx context.Context, stock *models.Stock) error {
	if stock == nil {
		return fmt.Errorf("stock is required")
	}
	return r.db.WithContext(ctx).Omit("Product", "Supplier").Save(stock).Error
}

// ZeroQuantityBySupplier clears on-hand units across a supplier's whole
// listing set.
func (r *StockRepository) ZeroQuantityBySupplier(ctx context.Context, supplierID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Stock{}).
		Where("supplier_id = ?", supplierID).
		Update("quantity", 0).Error
}

// Delete removes the stock row.
func (r *StockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Stock{}, "id = ?", id).Error
}

// ProductCharacteristicRepository handles per-stock characteristic values.
type ProductCharacteristicRepository struct {
	db *gorm.DB
}

// NewProductCharacteristicRepository binds a GORM DB to value operations.
func NewProductCharacteristicRepository(db *gorm.DB) *ProductCharacteristicRepository {
	return &ProductCharacteristicRepository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *ProductCharacteristicRepository) WithTx(tx *gorm.DB) *ProductCharacteristicRepository {
	if tx == nil {
		return r
	}
	return &ProductCharacteristicRepository{db: tx}
}

// Create persists a new characteristic value.
func (r *ProductCharacteristicRepository) Create(ctx context.Context, value *models.ProductCharacteristic) (*models.ProductCharacteristic, error) {
	if err := r.db.WithContext(ctx).Create(value).Error; err != nil {
		return nil, err
	}
	return value, nil
}

// FindByID loads a value with its characteristic definition.
func (r *ProductCharacteristicRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductCharacteristic, error) {
	var value models.ProductCharacteristic
	if err := r.db.WithContext(ctx).Preload("Characteristic").
		First(&value, "product_characteristics.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &value, nil
}

// FindScoped loads a value the actor's scope can reach.
func (r *ProductCharacteristicRepository) FindScoped(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.ProductCharacteristic, error) {
	var value models.ProductCharacteristic
	if err := r.db.WithContext(ctx).Scopes(scope).Preload("Characteristic").
		First(&value, "product_characteristics.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &value, nil
}

// ListByStock returns every value attached to the stock.
func (r *ProductCharacteristicRepository) ListByStock(ctx context.Context, stockID uuid.UUID) ([]models.ProductCharacteristic, error) {
	var values []models.ProductCharacteristic
	if err := r.db.WithContext(ctx).Preload("Characteristic").
		Where("product_characteristics.stock_id = ?", stockID).
		Order("product_characteristics.created_at ASC").
		Find(&values).Error; err != nil {
		return nil, err
	}
	return values, nil
}

// ListScopedByStock returns the stock's values the actor may see.
func (r *ProductCharacteristicRepository) ListScopedByStock(ctx context.Context, scope authz.Scope, stockID uuid.UUID) ([]models.ProductCharacteristic, error) {
	var values []models.ProductCharacteristic
	if err := r.db.WithContext(ctx).Scopes(scope).Preload("Characteristic").
		Where("product_characteristics.stock_id = ?", stockID).
		Order("product_characteristics.created_at ASC").
		Find(&values).Error; err != nil {
		return nil, err
	}
	return values, nil
}

// Update saves the provided value.
func (r *ProductCharacteristicRepository) Update(ctx context.Context, value *models.ProductCharacteristic) error {
	if value == nil {
		return fmt.Errorf("characteristic value is required")
	}
	return r.db.WithContext(ctx).Omit("Stock", "Characteristic").Save(value).Error
}

// Delete removes the value row.
func (r *ProductCharacteristicRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ProductCharacteristic{}, "id = ?", id).Error
}

// DeleteByStock removes every value attached to the stock.
func (r *ProductCharacteristicRepository) DeleteByStock(ctx context.Context, stockID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ProductCharacteristic{}, "stock_id = ?", stockID).Error
}

// StockService manages supplier listings and their characteristic
// values. Suppliers act on their own listings only; admins may name a
// supplier explicitly.
type StockService interface {
	CreateStock(ctx context.Context, actor authz.Actor, input CreateStockInput) (*StockDTO, error)
	GetStock(ctx context.Context, actor authz.Actor, id uuid.UUID) (*StockDTO, error)
	ListStocks(ctx context.Context, actor authz.Actor, query StockListQuery) (*StockListResult, error)
	UpdateStock(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateStockInput) (*StockDTO, error)
	DeleteStock(ctx context.Context, actor authz.Actor, id uuid.UUID) error

	CreateProductCharacteristic(ctx context.Context, actor authz.Actor, input CreateProductCharacteristicInput) (*ProductCharacteristicDTO, error)
	GetProductCharacteristic(ctx context.Context, actor authz.Actor, id uuid.UUID) (*ProductCharacteristicDTO, error)
	ListProductCharacteristics(ctx context.Context, actor authz.Actor, stockID uuid.UUID) ([]ProductCharacteristicDTO, error)
	UpdateProductCharacteristic(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateProductCharacteristicInput) (*ProductCharacteristicDTO, error)
	DeleteProductCharacteristic(ctx context.Context, actor authz.Actor, id uuid.UUID) error
}

type stockService struct {
	db              *db.Client
	stocks          *StockRepository
	values          *ProductCharacteristicRepository
	suppliers       *SupplierRepository
	products        *ProductRepository
	characteristics *CharacteristicRepository
}

// NewStockService constructs the stock listing service.
func NewStockService(client *db.Client, stocks *StockRepository, values *ProductCharacteristicRepository, suppliers *SupplierRepository, products *ProductRepository, characteristics *CharacteristicRepository) (StockService, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if stocks == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if values == nil {
		return nil, fmt.Errorf("product characteristic repository required")
	}
	if suppliers == nil {
		return nil, fmt.Errorf("supplier repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if characteristics == nil {
		return nil, fmt.Errorf("characteristic repository required")
	}
	return &stockService{
		db:              client,
		stocks:          stocks,
		values:          values,
		suppliers:       suppliers,
		products:        products,
		characteristics: characteristics,
	}, nil
}

// resolveSupplier picks the supplier a write applies to. Suppliers act
// on their own profile; only admins may name another supplier.
func (s *stockService) resolveSupplier(ctx context.Context, actor authz.Actor, override *uuid.UUID) (*models.Supplier, error) {
	if override != nil {
		if actor.Role != enums.UserRoleAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot manage stock for another supplier")
		}
		supplier, err := s.suppliers.FindByID(ctx, *override)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
		}
		return supplier, nil
	}

	supplier, err := s.suppliers.FindByUser(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "supplier profile required")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}
	return supplier, nil
}

func (s *stockService) CreateStock(ctx context.Context, actor authz.Actor, input CreateStockInput) (*StockDTO, error) {
	if !authz.Can(actor, authz.ActionCreate, authz.ResourceStock) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}

	sku := strings.TrimSpace(input.SKU)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if !input.PriceRRC.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_rrc must be positive")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}

	supplier, err := s.resolveSupplier(ctx, actor, input.SupplierID)
	if err != nil {
		return nil, err
	}
	if _, err := s.products.FindByID(ctx, input.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	stock := &models.Stock{
		SKU:         sku,
		ProductID:   input.ProductID,
		SupplierID:  supplier.ID,
		Model:       input.Model,
		Description: input.Description,
		Price:       input.Price,
		PriceRRC:    input.PriceRRC,
		Quantity:    input.Quantity,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.stocks.WithTx(tx).Create(ctx, stock); err != nil {
			if db.IsUniqueViolation(err, "idx_stocks_sku_product_supplier") {
				return pkgerrors.New(pkgerrors.CodeConflict, "sku already listed for this product")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert stock")
		}
		return s.writeCharacteristics(ctx, tx, stock.ID, input.Characteristics)
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stock")
	}

	return s.loadStockDTO(ctx, stock.ID)
}

// writeCharacteristics inserts the given value set for a stock inside
// the caller's transaction.
func (s *stockService) writeCharacteristics(ctx context.Context, tx *gorm.DB, stockID uuid.UUID, inputs []CharacteristicValueInput) error {
	characteristics := s.characteristics.WithTx(tx)
	values := s.values.WithTx(tx)

	for _, cv := range inputs {
		value := strings.TrimSpace(cv.Value)
		if value == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "characteristic value must not be empty")
		}
		if _, err := characteristics.FindByID(ctx, cv.CharacteristicID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "characteristic not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load characteristic")
		}
		if _, err := values.Create(ctx, &models.ProductCharacteristic{
			StockID:          stockID,
			CharacteristicID: cv.CharacteristicID,
			Value:            value,
		}); err != nil {
			if db.IsUniqueViolation(err, "idx_product_characteristics_pair") {
				return pkgerrors.New(pkgerrors.CodeConflict, "characteristic already set for this stock")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert characteristic value")
		}
	}
	return nil
}

func (s *stockService) loadStockDTO(ctx context.Context, id uuid.UUID) (*StockDTO, error) {
	stock, err := s.stocks.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload stock")
	}
	values, err := s.values.ListByStock(ctx, stock.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load characteristic values")
	}
	return StockFromModel(stock, values), nil
}

func (s *stockService) GetStock(ctx context.Context, actor authz.Actor, id uuid.UUID) (*StockDTO, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceStock) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	stock, err := s.stocks.FindScoped(ctx, authz.StockScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	values, err := s.values.ListByStock(ctx, stock.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load characteristic values")
	}
	return StockFromModel(stock, values), nil
}

// ListStocks returns listing summaries. Characteristic values are left
// to the single-stock fetch.
func (s *stockService) ListStocks(ctx context.Context, actor authz.Actor, query StockListQuery) (*StockListResult, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceStock) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	rows, nextCursor, err := s.stocks.List(ctx, authz.StockScope(actor), query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stocks")
	}
	stocks := make([]StockDTO, 0, len(rows))
	for i := range rows {
		stocks = append(stocks, *StockFromModel(&rows[i], nil))
	}
	return &StockListResult{Stocks: stocks, NextCursor: nextCursor}, nil
}

func (s *stockService) UpdateStock(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateStockInput) (*StockDTO, error) {
	if !authz.Can(actor, authz.ActionUpdate, authz.ResourceStock) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	stock, err := s.stocks.FindScoped(ctx, authz.StockScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}

	if input.SKU != nil {
		sku := strings.TrimSpace(*input.SKU)
		if sku == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku must not be empty")
		}
		stock.SKU = sku
	}
	if input.Model != nil {
		stock.Model = input.Model
	}
	if input.Description != nil {
		stock.Description = input.Description
	}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		stock.Price = *input.Price
	}
	if input.PriceRRC != nil {
		if !input.PriceRRC.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_rrc must be positive")
		}
		stock.PriceRRC = *input.PriceRRC
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
		}
		stock.Quantity = *input.Quantity
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.stocks.WithTx(tx).Update(ctx, stock); err != nil {
			if db.IsUniqueViolation(err, "idx_stocks_sku_product_supplier") {
				return pkgerrors.New(pkgerrors.CodeConflict, "sku already listed for this product")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update stock")
		}
		if input.Characteristics != nil {
			if err := s.values.WithTx(tx).DeleteByStock(ctx, stock.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear characteristic values")
			}
			return s.writeCharacteristics(ctx, tx, stock.ID, *input.Characteristics)
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
	}

	return s.loadStockDTO(ctx, stock.ID)
}

func (s *stockService) DeleteStock(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if !authz.Can(actor, authz.ActionDelete, authz.ResourceStock) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	if _, err := s.stocks.FindScoped(ctx, authz.StockScope(actor), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.values.WithTx(tx).DeleteByStock(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear characteristic values")
		}
		if err := s.stocks.WithTx(tx).Delete(ctx, id); err != nil {
			if db.IsForeignKeyViolation(err) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "stock is referenced by carts or orders")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete stock")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete stock")
	}
	return nil
}

func (s *stockService) CreateProductCharacteristic(ctx context.Context, actor authz.Actor, input CreateProductCharacteristicInput) (*ProductCharacteristicDTO, error) {
	if !authz.Can(actor, authz.ActionCreate, authz.ResourceProductCharacteristic) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	value := strings.TrimSpace(input.Value)
	if value == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "value is required")
	}

	// The owning stock must be within the actor's write scope.
	if _, err := s.stocks.FindScoped(ctx, authz.StockScope(actor), input.StockID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	if _, err := s.characteristics.FindByID(ctx, input.CharacteristicID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "characteristic not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load characteristic")
	}

	created, err := s.values.Create(ctx, &models.ProductCharacteristic{
		StockID:          input.StockID,
		CharacteristicID: input.CharacteristicID,
		Value:            value,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "idx_product_characteristics_pair") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "characteristic already set for this stock")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert characteristic value")
	}

	reloaded, err := s.values.FindByID(ctx, created.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload characteristic value")
	}
	return ProductCharacteristicFromModel(reloaded), nil
}

func (s *stockService) GetProductCharacteristic(ctx context.Context, actor authz.Actor, id uuid.UUID) (*ProductCharacteristicDTO, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceProductCharacteristic) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	value, err := s.values.FindScoped(ctx, authz.ProductCharacteristicScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "characteristic value not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load characteristic value")
	}
	return ProductCharacteristicFromModel(value), nil
}

func (s *stockService) ListProductCharacteristics(ctx context.Context, actor authz.Actor, stockID uuid.UUID) ([]ProductCharacteristicDTO, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceProductCharacteristic) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	rows, err := s.values.ListScopedByStock(ctx, authz.ProductCharacteristicScope(actor), stockID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list characteristic values")
	}
	values := make([]ProductCharacteristicDTO, 0, len(rows))
	for i := range rows {
		values = append(values, *ProductCharacteristicFromModel(&rows[i]))
	}
	return values, nil
}

func (s *stockService) UpdateProductCharacteristic(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateProductCharacteristicInput) (*ProductCharacteristicDTO, error) {
	if !authz.Can(actor, authz.ActionUpdate, authz.ResourceProductCharacteristic) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	value, err := s.values.FindScoped(ctx, authz.ProductCharacteristicScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "characteristic value not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load characteristic value")
	}

	next := strings.TrimSpace(input.Value)
	if next == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "value is required")
	}
	value.Value = next

	if err := s.values.Update(ctx, value); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update characteristic value")
	}
	return ProductCharacteristicFromModel(value), nil
}

func (s *stockService) DeleteProductCharacteristic(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if !authz.Can(actor, authz.ActionDelete, authz.ResourceProductCharacteristic) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	if _, err := s.values.FindScoped(ctx, authz.ProductCharacteristicScope(actor), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "characteristic value not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load characteristic value")
	}
	if err := s.values.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete characteristic value")
	}
	return nil
}
