package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prosupplyhq/prosupply-backend/internal/catalog"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
)

// PositionDTO is one reserved cart line. Price is the snapshot taken
// when the line was added, not the stock's current price.
type PositionDTO struct {
	ID        uuid.UUID        `json:"id"`
	CartID    uuid.UUID        `json:"cart_id"`
	StockID   uuid.UUID        `json:"stock_id"`
	Quantity  int              `json:"quantity"`
	Price     decimal.Decimal  `json:"price"`
	Amount    decimal.Decimal  `json:"amount"`
	Stock     *catalog.StockDTO `json:"stock,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func PositionFromModel(p *models.CartPosition) *PositionDTO {
	if p == nil {
		return nil
	}
	return &PositionDTO{
		ID:        p.ID,
		CartID:    p.CartID,
		StockID:   p.StockID,
		Quantity:  p.Quantity,
		Price:     p.Price,
		Amount:    p.Amount(),
		Stock:     catalog.StockFromModel(p.Stock, nil),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// CartDTO is a cart with its lines and derived totals.
type CartDTO struct {
	ID            uuid.UUID       `json:"id"`
	PurchaserID   uuid.UUID       `json:"purchaser_id"`
	Positions     []PositionDTO   `json:"positions"`
	TotalQuantity int             `json:"total_quantity"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func CartFromModel(c *models.ShoppingCart) *CartDTO {
	if c == nil {
		return nil
	}
	dto := &CartDTO{
		ID:          c.ID,
		PurchaserID: c.PurchaserID,
		Positions:   make([]PositionDTO, 0, len(c.Positions)),
		TotalAmount: decimal.Zero,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	for i := range c.Positions {
		position := PositionFromModel(&c.Positions[i])
		dto.Positions = append(dto.Positions, *position)
		dto.TotalQuantity += position.Quantity
		dto.TotalAmount = dto.TotalAmount.Add(position.Amount)
	}
	return dto
}

// AddPositionInput reserves a stock line in the caller's cart.
// PurchaserID is honored for admin callers only.
type AddPositionInput struct {
	StockID     uuid.UUID `json:"stock_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"required,gt=0"`
	PurchaserID *uuid.UUID
}

// UpdatePositionInput replaces a line's quantity. The price snapshot is
// untouched.
type UpdatePositionInput struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}
