package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/internal/authz"
	"github.com/prosupplyhq/prosupply-backend/internal/purchasers"
	"github.com/prosupplyhq/prosupply-backend/pkg/db"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
	"github.com/prosupplyhq/prosupply-backend/pkg/visibility"
)

// Service is the cart engine. Adding and growing a line reserves stock,
// shrinking or dropping one returns it; the line price is frozen at add
// time.
type Service interface {
	Get(ctx context.Context, actor authz.Actor, purchaserID *uuid.UUID) (*CartDTO, error)
	Add(ctx context.Context, actor authz.Actor, input AddPositionInput) (*PositionDTO, error)
	UpdatePosition(ctx context.Context, actor authz.Actor, positionID uuid.UUID, input UpdatePositionInput) (*PositionDTO, error)
	RemovePosition(ctx context.Context, actor authz.Actor, positionID uuid.UUID) error
	Clear(ctx context.Context, actor authz.Actor, purchaserID *uuid.UUID) error
}

type service struct {
	db         *db.Client
	carts      *Repository
	positions  *PositionRepository
	stocks     *StockRepository
	purchasers *purchasers.Repository
}

// NewService builds the cart service backed by the provided stack.
func NewService(client *db.Client, carts *Repository, positions *PositionRepository, stocks *StockRepository, purchaserRepo *purchasers.Repository) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if positions == nil {
		return nil, fmt.Errorf("position repository required")
	}
	if stocks == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if purchaserRepo == nil {
		return nil, fmt.Errorf("purchaser repository required")
	}
	return &service{
		db:         client,
		carts:      carts,
		positions:  positions,
		stocks:     stocks,
		purchasers: purchaserRepo,
	}, nil
}

// resolveCart finds the cart the actor is working in. Admins may name a
// purchaser explicitly; everyone else gets their own cart.
func (s *service) resolveCart(ctx context.Context, actor authz.Actor, override *uuid.UUID) (*models.ShoppingCart, error) {
	purchaserID := uuid.Nil
	if override != nil {
		if actor.Role != enums.UserRoleAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot act on another purchaser's cart")
		}
		purchaserID = *override
	} else {
		purchaser, err := s.purchasers.FindByUser(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "purchaser profile required")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchaser")
		}
		purchaserID = purchaser.ID
	}

	cart, err := s.carts.FindByPurchaser(ctx, purchaserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

// runReserveTx runs fn and retries once when the transaction itself
// failed. A second failure on the reserve path reports the stock as
// contended rather than as an internal error.
func (s *service) runReserveTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := s.db.WithTx(ctx, fn)
	if err == nil || pkgerrors.As(err) != nil {
		return err
	}
	if err = s.db.WithTx(ctx, fn); err == nil || pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInsufficientStock, err, "stock reservation contention")
}

func (s *service) Get(ctx context.Context, actor authz.Actor, purchaserID *uuid.UUID) (*CartDTO, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceCart) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	cart, err := s.resolveCart(ctx, actor, purchaserID)
	if err != nil {
		return nil, err
	}
	return CartFromModel(cart), nil
}

func (s *service) Add(ctx context.Context, actor authz.Actor, input AddPositionInput) (*PositionDTO, error) {
	if !authz.Can(actor, authz.ActionCreate, authz.ResourceCartPosition) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}

	cart, err := s.resolveCart(ctx, actor, input.PurchaserID)
	if err != nil {
		return nil, err
	}

	stock, err := s.stocks.FindByID(ctx, input.StockID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	if err := visibility.EnsureStockOrderable(visibility.StockOrderabilityInput{Stock: stock, RequestedQty: input.Quantity}); err != nil {
		return nil, err
	}

	if _, err := s.positions.FindByCartAndStock(ctx, cart.ID, stock.ID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "stock is already in the cart, update the position instead")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check cart position")
	}

	position := &models.CartPosition{
		CartID:   cart.ID,
		StockID:  stock.ID,
		Quantity: input.Quantity,
		Price:    stock.Price,
	}
	err = s.runReserveTx(ctx, func(tx *gorm.DB) error {
		reserved, err := s.stocks.WithTx(tx).Reserve(ctx, stock.ID, input.Quantity)
		if err != nil {
			return err
		}
		if !reserved {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")
		}
		if _, err := s.positions.WithTx(tx).Create(ctx, position); err != nil {
			if db.IsUniqueViolation(err, "idx_cart_positions_cart_stock") {
				return pkgerrors.New(pkgerrors.CodeConflict, "stock is already in the cart, update the position instead")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := s.positions.FindByID(ctx, position.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart position")
	}
	return PositionFromModel(created), nil
}

func (s *service) UpdatePosition(ctx context.Context, actor authz.Actor, positionID uuid.UUID, input UpdatePositionInput) (*PositionDTO, error) {
	if !authz.Can(actor, authz.ActionUpdate, authz.ResourceCartPosition) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}

	position, err := s.positions.FindScoped(ctx, authz.CartPositionScope(actor), positionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart position not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart position")
	}

	delta := input.Quantity - position.Quantity
	if delta == 0 {
		return PositionFromModel(position), nil
	}

	if delta < 0 {
		// Shrinking always succeeds; the freed quantity goes straight
		// back to the stock.
		err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.stocks.WithTx(tx).Restock(ctx, position.StockID, -delta); err != nil {
				return err
			}
			position.Quantity = input.Quantity
			return s.positions.WithTx(tx).Update(ctx, position)
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart position")
		}
	} else {
		if err := visibility.EnsureStockOrderable(visibility.StockOrderabilityInput{Stock: position.Stock, RequestedQty: delta}); err != nil {
			return nil, err
		}
		err = s.runReserveTx(ctx, func(tx *gorm.DB) error {
			reserved, err := s.stocks.WithTx(tx).Reserve(ctx, position.StockID, delta)
			if err != nil {
				return err
			}
			if !reserved {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")
			}
			position.Quantity = input.Quantity
			return s.positions.WithTx(tx).Update(ctx, position)
		})
		if err != nil {
			return nil, err
		}
	}

	updated, err := s.positions.FindByID(ctx, position.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart position")
	}
	return PositionFromModel(updated), nil
}

func (s *service) RemovePosition(ctx context.Context, actor authz.Actor, positionID uuid.UUID) error {
	if !authz.Can(actor, authz.ActionDelete, authz.ResourceCartPosition) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}

	position, err := s.positions.FindScoped(ctx, authz.CartPositionScope(actor), positionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart position not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart position")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.stocks.WithTx(tx).Restock(ctx, position.StockID, position.Quantity); err != nil {
			return err
		}
		return s.positions.WithTx(tx).Delete(ctx, position.ID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart position")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, actor authz.Actor, purchaserID *uuid.UUID) error {
	if !authz.Can(actor, authz.ActionDelete, authz.ResourceCart) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}

	cart, err := s.resolveCart(ctx, actor, purchaserID)
	if err != nil {
		return err
	}
	if len(cart.Positions) == 0 {
		return nil
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		stocks := s.stocks.WithTx(tx)
		for _, position := range cart.Positions {
			if err := stocks.Restock(ctx, position.StockID, position.Quantity); err != nil {
				return err
			}
		}
		return s.positions.WithTx(tx).DeleteByCart(ctx, cart.ID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}
