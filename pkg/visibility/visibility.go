package visibility

import (
	"fmt"

	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
)

// StockOrderabilityInput drives the shared checks for purchaser-facing
// stock demand (cart adds and quantity increases).
type StockOrderabilityInput struct {
	Stock        *models.Stock
	RequestedQty int
}

// EnsureStockOrderable enforces canonical rules so paused suppliers and
// exhausted stocks never accept new demand.
func EnsureStockOrderable(input StockOrderabilityInput) error {
	if input.Stock == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
	}
	if input.Stock.Supplier == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	if !input.Stock.Supplier.AcceptingOrders {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "supplier is not accepting orders")
	}
	if input.RequestedQty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.Stock.Quantity < input.RequestedQty {
		return pkgerrors.New(
			pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("requested %d units but only %d available", input.RequestedQty, input.Stock.Quantity),
		)
	}
	return nil
}
