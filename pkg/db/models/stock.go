package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stock is one supplier's listing of a product: its own SKU, price and
// on-hand quantity. Quantity only changes through guarded updates so it
// can never go negative.
type Stock struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU         string          `gorm:"column:sku;type:text;not null;index:idx_stocks_sku_product_supplier,unique"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index:idx_stocks_sku_product_supplier,unique"`
	SupplierID  uuid.UUID       `gorm:"column:supplier_id;type:uuid;not null;index:idx_stocks_sku_product_supplier,unique"`
	Model       *string         `gorm:"column:model"`
	Description *string         `gorm:"column:description"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	PriceRRC    decimal.Decimal `gorm:"column:price_rrc;type:numeric(12,2);not null"`
	Quantity    int             `gorm:"column:quantity;not null;default:0"`
	Product     *Product        `gorm:"foreignKey:ProductID"`
	Supplier    *Supplier       `gorm:"foreignKey:SupplierID"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
