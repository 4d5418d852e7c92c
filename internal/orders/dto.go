package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prosupplyhq/prosupply-backend/internal/catalog"
	"github.com/prosupplyhq/prosupply-backend/internal/purchasers"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
	"github.com/prosupplyhq/prosupply-backend/pkg/pagination"
)

// PositionDTO is one order line. Price is the snapshot carried over
// from the cart; Confirmed and Delivered only ever move to true.
type PositionDTO struct {
	ID        uuid.UUID         `json:"id"`
	OrderID   uuid.UUID         `json:"order_id"`
	StockID   uuid.UUID         `json:"stock_id"`
	Quantity  int               `json:"quantity"`
	Price     decimal.Decimal   `json:"price"`
	Amount    decimal.Decimal   `json:"amount"`
	Confirmed bool              `json:"confirmed"`
	Delivered bool              `json:"delivered"`
	Stock     *catalog.StockDTO `json:"stock,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func PositionFromModel(p *models.OrderPosition) *PositionDTO {
	if p == nil {
		return nil
	}
	return &PositionDTO{
		ID:        p.ID,
		OrderID:   p.OrderID,
		StockID:   p.StockID,
		Quantity:  p.Quantity,
		Price:     p.Price,
		Amount:    p.Amount(),
		Confirmed: p.Confirmed,
		Delivered: p.Delivered,
		Stock:     catalog.StockFromModel(p.Stock, nil),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// OrderDTO is an order with its lines and derived rollups. Confirmed
// and Delivered hold only when every line carries the flag; totals are
// recomputed from the lines on every read.
type OrderDTO struct {
	ID            uuid.UUID                 `json:"id"`
	PurchaserID   uuid.UUID                 `json:"purchaser_id"`
	ChainStoreID  uuid.UUID                 `json:"chain_store_id"`
	Status        enums.OrderStatus         `json:"status"`
	Confirmed     bool                      `json:"confirmed"`
	Delivered     bool                      `json:"delivered"`
	Positions     []PositionDTO             `json:"positions"`
	TotalQuantity int                       `json:"total_quantity"`
	TotalAmount   decimal.Decimal           `json:"total_amount"`
	ChainStore    *purchasers.ChainStoreDTO `json:"chain_store,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

// OrderFromModel derives the rollups from the loaded positions. The
// surcharge factor multiplies the total when the lines span more than
// one supplier.
func OrderFromModel(o *models.Order, surcharge decimal.Decimal) *OrderDTO {
	if o == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:           o.ID,
		PurchaserID:  o.PurchaserID,
		ChainStoreID: o.ChainStoreID,
		Status:       o.Status,
		Positions:    make([]PositionDTO, 0, len(o.Positions)),
		TotalAmount:  decimal.Zero,
		ChainStore:   purchasers.ChainStoreFromModel(o.ChainStore),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}

	confirmed := len(o.Positions) > 0
	delivered := len(o.Positions) > 0
	supplierIDs := map[uuid.UUID]struct{}{}
	for i := range o.Positions {
		position := PositionFromModel(&o.Positions[i])
		dto.Positions = append(dto.Positions, *position)
		dto.TotalQuantity += position.Quantity
		dto.TotalAmount = dto.TotalAmount.Add(position.Amount)
		confirmed = confirmed && position.Confirmed
		delivered = delivered && position.Delivered
		if o.Positions[i].Stock != nil {
			supplierIDs[o.Positions[i].Stock.SupplierID] = struct{}{}
		}
	}
	dto.Confirmed = confirmed
	dto.Delivered = delivered
	if len(supplierIDs) > 1 {
		dto.TotalAmount = dto.TotalAmount.Mul(surcharge)
	}
	dto.TotalAmount = dto.TotalAmount.Round(2)
	return dto
}

// PlaceOrderInput turns the caller's cart into an order shipped to one
// of their chain stores. PurchaserID is honored for admin callers only.
type PlaceOrderInput struct {
	ChainStoreID uuid.UUID `json:"chain_store_id" validate:"required"`
	PurchaserID  *uuid.UUID
}

// AmendOrderInput moves an order to another of the purchaser's chain
// stores. Nothing else about an order can change after placement.
type AmendOrderInput struct {
	ChainStoreID uuid.UUID `json:"chain_store_id" validate:"required"`
}

// UpdatePositionInput sets fulfilment flags on one line. Flags only
// move from false to true.
type UpdatePositionInput struct {
	Confirmed *bool `json:"confirmed,omitempty"`
	Delivered *bool `json:"delivered,omitempty"`
}

// OrderListQuery bundles filters and pagination for listing orders.
type OrderListQuery struct {
	Status     *enums.OrderStatus
	Pagination pagination.Params
}

// OrderListResult pairs an order page with its next cursor.
type OrderListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// PositionListQuery bundles filters and pagination for listing lines.
type PositionListQuery struct {
	OrderID    *uuid.UUID
	Pagination pagination.Params
}

// PositionListResult pairs a line page with its next cursor.
type PositionListResult struct {
	Positions  []PositionDTO `json:"positions"`
	NextCursor string        `json:"next_cursor,omitempty"`
}
