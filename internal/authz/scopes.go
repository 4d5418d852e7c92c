package authz

import (
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
)

// Scope narrows a query to the rows the actor may see. Repositories
// chain scopes with db.Scopes(...) so a fetch outside the actor's
// reach surfaces as gorm.ErrRecordNotFound.
type Scope func(*gorm.DB) *gorm.DB

func allRows(q *gorm.DB) *gorm.DB {
	return q
}

func noRows(q *gorm.DB) *gorm.DB {
	return q.Where("1 = 0")
}

// UserScope restricts non-admin actors to their own user row.
func UserScope(actor Actor) Scope {
	if actor.Role == enums.UserRoleAdmin {
		return allRows
	}
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("users.id = ?", actor.UserID)
	}
}

// SupplierScope walks Supplier -> User for suppliers and hides paused
// suppliers from purchasers.
func SupplierScope(actor Actor) Scope {
	switch actor.Role {
	case enums.UserRoleAdmin:
		return allRows
	case enums.UserRoleSupplier:
		return func(q *gorm.DB) *gorm.DB {
			return q.Where("suppliers.user_id = ?", actor.UserID)
		}
	default:
		return func(q *gorm.DB) *gorm.DB {
			return q.Where("suppliers.accepting_orders = ?", true)
		}
	}
}

// StockScope walks Stock -> Supplier -> User for suppliers; purchasers
// see only orderable listings (accepting supplier, units on hand).
func StockScope(actor Actor) Scope {
	switch actor.Role {
	case enums.UserRoleAdmin:
		return allRows
	case enums.UserRoleSupplier:
		return func(q *gorm.DB) *gorm.DB {
			return q.Where("stocks.supplier_id IN (SELECT id FROM suppliers WHERE user_id = ?)", actor.UserID)
		}
	default:
		return func(q *gorm.DB) *gorm.DB {
			return q.Where("stocks.quantity > 0").
				Where("stocks.supplier_id IN (SELECT id FROM suppliers WHERE accepting_orders = ?)", true)
		}
	}
}

// ProductCharacteristicScope follows the owning stock's visibility.
func ProductCharacteristicScope(actor Actor) Scope {
	switch actor.Role {
	case enums.UserRoleAdmin:
		return allRows
	case enums.UserRoleSupplier:
		return func(q *gorm.DB) *gorm.DB {
			return q.Where(`product_characteristics.stock_id IN (
				SELECT stocks.id FROM stocks
				JOIN suppliers ON suppliers.id = stocks.supplier_id
				WHERE suppliers.user_id = ?)`, actor.UserID)
		}
	default:
		return func(q *gorm.DB) *gorm.DB {
			return q.Where(`product_characteristics.stock_id IN (
				SELECT stocks.id FROM stocks
				JOIN suppliers ON suppliers.id = stocks.supplier_id
				WHERE suppliers.accepting_orders = ? AND stocks.quantity > 0)`, true)
		}
	}
}

// PurchaserScope limits purchasers to their own profile. Suppliers have
// no purchaser visibility at all.
func PurchaserScope(actor Actor) Scope {
	switch actor.Role {
	case enums.UserRoleAdmin:
		return allRows
	case enums.UserRolePurchaser:
		return func(q *gorm.DB) *gorm.DB {
			return q.Where("purchasers.user_id = ?", actor.UserID)
		}
	default:
		return noRows
	}
}

// ChainStoreScope walks ChainStore -> Purchaser -> User for purchasers.
// Suppliers reach a chain store only through an order carrying one of
// their lines.
func ChainStoreScope(actor Actor) Scope {
	switch actor.Role {
	case enums.UserRoleAdmin:
		return allRows
	case enums.UserRolePurchaser:
		return func(q *gorm.DB) *gorm.DB {
			return q.Where("chain_stores.purchaser_id IN (SELECT id FROM purchasers WHERE user_id = ?)", actor.UserID)
		}
	default:
		return func(q *gorm.DB) *gorm.DB {
			return q.Where(`EXISTS (
				SELECT 1 FROM orders
				JOIN order_positions ON order_positions.order_id = orders.id
				JOIN stocks ON stocks.id = order_positions.stock_id
				JOIN suppliers ON suppliers.id = stocks.supplier_id
				WHERE orders.chain_store_id = chain_stores.id AND suppliers.user_id = ?)`, actor.UserID)
		}
	}
}

// CartScope gives purchasers their own cart and suppliers the carts
// holding at least one of their lines.
func CartScope(actor Actor) Scope {
	switch actor.Role {
	case enums.UserRoleAdmin:
		return allRows
	case enums.UserRolePurchaser:
		return func(q *gorm.DB) *gorm.DB {
			return q.Where("shopping_carts.purchaser_id IN (SELECT id FROM purchasers WHERE user_id = ?)", actor.UserID)
		}
	default:
		return func(q *gorm.DB) *gorm.DB {
			return q.Where(`EXISTS (
				SELECT 1 FROM cart_positions
				JOIN stocks ON stocks.id = cart_positions.stock_id
				JOIN suppliers ON suppliers.id = stocks.supplier_id
				WHERE cart_positions.cart_id = shopping_carts.id AND suppliers.user_id = ?)`, actor.UserID)
		}
	}
}

// CartPositionScope walks CartPosition -> Cart -> Purchaser -> User for
// purchasers; suppliers see their own lines only.
func CartPositionScope(actor Actor) Scope {
	switch actor.Role {
	case enums.UserRoleAdmin:
		return allRows
	case enums.UserRolePurchaser:
		return func(q *gorm.DB) *gorm.DB {
			return q.Where(`cart_positions.cart_id IN (
				SELECT shopping_carts.id FROM shopping_carts
				JOIN purchasers ON purchasers.id = shopping_carts.purchaser_id
				WHERE purchasers.user_id = ?)`, actor.UserID)
		}
	default:
		return func(q *gorm.DB) *gorm.DB {
			return q.Where(`cart_positions.stock_id IN (
				SELECT stocks.id FROM stocks
				JOIN suppliers ON suppliers.id = stocks.supplier_id
				WHERE suppliers.user_id = ?)`, actor.UserID)
		}
	}
}

// OrderScope walks Order -> Purchaser -> User for purchasers; suppliers
// see orders containing at least one of their lines.
func OrderScope(actor Actor) Scope {
	switch actor.Role {
	case enums.UserRoleAdmin:
		return allRows
	case enums.UserRolePurchaser:
		return func(q *gorm.DB) *gorm.DB {
			return q.Where("orders.purchaser_id IN (SELECT id FROM purchasers WHERE user_id = ?)", actor.UserID)
		}
	default:
		return func(q *gorm.DB) *gorm.DB {
			return q.Where(`EXISTS (
				SELECT 1 FROM order_positions
				JOIN stocks ON stocks.id = order_positions.stock_id
				JOIN suppliers ON suppliers.id = stocks.supplier_id
				WHERE order_positions.order_id = orders.id AND suppliers.user_id = ?)`, actor.UserID)
		}
	}
}

// OrderPositionScope walks OrderPosition -> Order -> Purchaser -> User
// for purchasers; suppliers see the lines backed by their own stocks.
func OrderPositionScope(actor Actor) Scope {
	switch actor.Role {
	case enums.UserRoleAdmin:
		return allRows
	case enums.UserRolePurchaser:
		return func(q *gorm.DB) *gorm.DB {
			return q.Where(`order_positions.order_id IN (
				SELECT orders.id FROM orders
				JOIN purchasers ON purchasers.id = orders.purchaser_id
				WHERE purchasers.user_id = ?)`, actor.UserID)
		}
	default:
		return func(q *gorm.DB) *gorm.DB {
			return q.Where(`order_positions.stock_id IN (
				SELECT stocks.id FROM stocks
				JOIN suppliers ON suppliers.id = stocks.supplier_id
				WHERE suppliers.user_id = ?)`, actor.UserID)
		}
	}
}

// ImportJobScope limits polling to the submitting actor; admins see
// every job.
func ImportJobScope(actor Actor) Scope {
	if actor.Role == enums.UserRoleAdmin {
		return allRows
	}
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("import_jobs.submitted_by = ?", actor.UserID)
	}
}
