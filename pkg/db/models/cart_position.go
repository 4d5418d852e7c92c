package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartPosition is one reserved line in a shopping cart. Price is a
// snapshot of the stock price at add time and is never refreshed.
type CartPosition struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index:idx_cart_positions_cart_stock,unique"`
	StockID   uuid.UUID       `gorm:"column:stock_id;type:uuid;not null;index:idx_cart_positions_cart_stock,unique"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Stock     *Stock          `gorm:"foreignKey:StockID"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Amount is the derived line total.
func (p CartPosition) Amount() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Quantity)))
}
