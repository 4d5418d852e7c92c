package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderPosition is one line copied verbatim from a cart position at
// placement. Confirmed and Delivered move independently and only ever
// from false to true.
type OrderPosition struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index:idx_order_positions_order_stock,unique"`
	StockID   uuid.UUID       `gorm:"column:stock_id;type:uuid;not null;index:idx_order_positions_order_stock,unique"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Confirmed bool            `gorm:"column:confirmed;not null;default:false"`
	Delivered bool            `gorm:"column:delivered;not null;default:false"`
	Stock     *Stock          `gorm:"foreignKey:StockID"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Amount is the derived line total.
func (p OrderPosition) Amount() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Quantity)))
}
