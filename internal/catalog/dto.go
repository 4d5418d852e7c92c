package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/pagination"
)

// SupplierDTO is the transport shape for a supplier profile.
type SupplierDTO struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	Name            string    `json:"name"`
	Address         *string   `json:"address,omitempty"`
	AcceptingOrders bool      `json:"accepting_orders"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func SupplierFromModel(s *models.Supplier) *SupplierDTO {
	if s == nil {
		return nil
	}
	return &SupplierDTO{
		ID:              s.ID,
		UserID:          s.UserID,
		Name:            s.Name,
		Address:         s.Address,
		AcceptingOrders: s.AcceptingOrders,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// CreateSupplierInput holds the payload for opening a supplier profile.
// UserID is honored for admin callers only; everyone else creates their own.
type CreateSupplierInput struct {
	Name    string  `json:"name" validate:"required"`
	Address *string `json:"address,omitempty"`
	UserID  *uuid.UUID
}

// UpdateSupplierInput holds optional mutation values for a supplier.
type UpdateSupplierInput struct {
	Name            *string `json:"name,omitempty"`
	Address         *string `json:"address,omitempty"`
	AcceptingOrders *bool   `json:"accepting_orders,omitempty"`
}

// SupplierListQuery bundles filters and pagination for supplier listings.
type SupplierListQuery struct {
	Query      string
	Pagination pagination.Params
}

// SupplierListResult pairs a supplier page with its next cursor.
type SupplierListResult struct {
	Suppliers  []SupplierDTO `json:"suppliers"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// CategoryDTO is the transport shape for a category, optionally carrying
// the suppliers serving it.
type CategoryDTO struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Suppliers []SupplierDTO `json:"suppliers,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func CategoryFromModel(c *models.Category) *CategoryDTO {
	if c == nil {
		return nil
	}
	dto := &CategoryDTO{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	for i := range c.Suppliers {
		dto.Suppliers = append(dto.Suppliers, *SupplierFromModel(&c.Suppliers[i]))
	}
	return dto
}

// CreateCategoryInput names a new category.
type CreateCategoryInput struct {
	Name string `json:"name" validate:"required"`
}

// UpdateCategoryInput renames a category or replaces its supplier links.
type UpdateCategoryInput struct {
	Name        *string      `json:"name,omitempty"`
	SupplierIDs *[]uuid.UUID `json:"supplier_ids,omitempty"`
}

// ProductDTO is the transport shape for a catalog product.
type ProductDTO struct {
	ID         uuid.UUID    `json:"id"`
	Name       string       `json:"name"`
	CategoryID uuid.UUID    `json:"category_id"`
	Category   *CategoryDTO `json:"category,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func ProductFromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:         p.ID,
		Name:       p.Name,
		CategoryID: p.CategoryID,
		Category:   CategoryFromModel(p.Category),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// CreateProductInput holds the payload to create a product.
type CreateProductInput struct {
	Name       string    `json:"name" validate:"required"`
	CategoryID uuid.UUID `json:"category_id" validate:"required"`
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name       *string    `json:"name,omitempty"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
}

// ProductListQuery bundles filters and pagination for product listings.
type ProductListQuery struct {
	Query      string
	CategoryID *uuid.UUID
	Pagination pagination.Params
}

// ProductListResult pairs a product page with its next cursor.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// CharacteristicDTO is the transport shape for an attribute type.
type CharacteristicDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func CharacteristicFromModel(c *models.Characteristic) *CharacteristicDTO {
	if c == nil {
		return nil
	}
	return &CharacteristicDTO{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// CharacteristicInput names a new or renamed characteristic.
type CharacteristicInput struct {
	Name string `json:"name" validate:"required"`
}

// StockDTO is the transport shape for one supplier listing.
type StockDTO struct {
	ID              uuid.UUID                  `json:"id"`
	SKU             string                     `json:"sku"`
	ProductID       uuid.UUID                  `json:"product_id"`
	SupplierID      uuid.UUID                  `json:"supplier_id"`
	Model           *string                    `json:"model,omitempty"`
	Description     *string                    `json:"description,omitempty"`
	Price           decimal.Decimal            `json:"price"`
	PriceRRC        decimal.Decimal            `json:"price_rrc"`
	Quantity        int                        `json:"quantity"`
	Product         *ProductDTO                `json:"product,omitempty"`
	Supplier        *SupplierDTO               `json:"supplier,omitempty"`
	Characteristics []ProductCharacteristicDTO `json:"characteristics,omitempty"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

func StockFromModel(s *models.Stock, characteristics []models.ProductCharacteristic) *StockDTO {
	if s == nil {
		return nil
	}
	dto := &StockDTO{
		ID:          s.ID,
		SKU:         s.SKU,
		ProductID:   s.ProductID,
		SupplierID:  s.SupplierID,
		Model:       s.Model,
		Description: s.Description,
		Price:       s.Price,
		PriceRRC:    s.PriceRRC,
		Quantity:    s.Quantity,
		Product:     ProductFromModel(s.Product),
		Supplier:    SupplierFromModel(s.Supplier),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	for i := range characteristics {
		dto.Characteristics = append(dto.Characteristics, *ProductCharacteristicFromModel(&characteristics[i]))
	}
	return dto
}

// CharacteristicValueInput pairs a characteristic with its value on a stock.
type CharacteristicValueInput struct {
	CharacteristicID uuid.UUID `json:"characteristic_id" validate:"required"`
	Value            string    `json:"value" validate:"required"`
}

// CreateStockInput holds the payload to create a listing.
type CreateStockInput struct {
	SKU             string                     `json:"sku" validate:"required"`
	ProductID       uuid.UUID                  `json:"product_id" validate:"required"`
	Model           *string                    `json:"model,omitempty"`
	Description     *string                    `json:"description,omitempty"`
	Price           decimal.Decimal            `json:"price" validate:"required"`
	PriceRRC        decimal.Decimal            `json:"price_rrc" validate:"required"`
	Quantity        int                        `json:"quantity"`
	Characteristics []CharacteristicValueInput `json:"characteristics,omitempty"`
	SupplierID      *uuid.UUID
}

// UpdateStockInput holds optional mutation values for a listing. A
// non-nil Characteristics slice replaces the stock's full value set.
type UpdateStockInput struct {
	SKU             *string                     `json:"sku,omitempty"`
	Model           *string                     `json:"model,omitempty"`
	Description     *string                     `json:"description,omitempty"`
	Price           *decimal.Decimal            `json:"price,omitempty"`
	PriceRRC        *decimal.Decimal            `json:"price_rrc,omitempty"`
	Quantity        *int                        `json:"quantity,omitempty"`
	Characteristics *[]CharacteristicValueInput `json:"characteristics,omitempty"`
}

// StockListQuery bundles filters and pagination for listing stocks.
type StockListQuery struct {
	Query      string
	ProductID  *uuid.UUID
	CategoryID *uuid.UUID
	SupplierID *uuid.UUID
	Pagination pagination.Params
}

// StockListResult pairs a stock page with its next cursor.
type StockListResult struct {
	Stocks     []StockDTO `json:"stocks"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ProductCharacteristicDTO is the transport shape for one stock value.
type ProductCharacteristicDTO struct {
	ID                 uuid.UUID `json:"id"`
	StockID            uuid.UUID `json:"stock_id"`
	CharacteristicID   uuid.UUID `json:"characteristic_id"`
	CharacteristicName string    `json:"characteristic_name,omitempty"`
	Value              string    `json:"value"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func ProductCharacteristicFromModel(pc *models.ProductCharacteristic) *ProductCharacteristicDTO {
	if pc == nil {
		return nil
	}
	dto := &ProductCharacteristicDTO{
		ID:               pc.ID,
		StockID:          pc.StockID,
		CharacteristicID: pc.CharacteristicID,
		Value:            pc.Value,
		CreatedAt:        pc.CreatedAt,
		UpdatedAt:        pc.UpdatedAt,
	}
	if pc.Characteristic != nil {
		dto.CharacteristicName = pc.Characteristic.Name
	}
	return dto
}

// CreateProductCharacteristicInput attaches a value to a stock.
type CreateProductCharacteristicInput struct {
	StockID          uuid.UUID `json:"stock_id" validate:"required"`
	CharacteristicID uuid.UUID `json:"characteristic_id" validate:"required"`
	Value            string    `json:"value" validate:"required"`
}

// UpdateProductCharacteristicInput rewrites the stored value. The
// (stock, characteristic) pair itself is fixed at creation.
type UpdateProductCharacteristicInput struct {
	Value string `json:"value" validate:"required"`
}
