package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/internal/authz"
	"github.com/prosupplyhq/prosupply-backend/internal/cart"
	"github.com/prosupplyhq/prosupply-backend/internal/purchasers"
	"github.com/prosupplyhq/prosupply-backend/pkg/config"
	"github.com/prosupplyhq/prosupply-backend/pkg/db"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
	"github.com/prosupplyhq/prosupply-backend/pkg/outbox"
)

type intentEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, intent outbox.EmailIntent) error
}

// Service is the order engine. Placement freezes a cart into an order;
// afterwards only the chain store, the status and the per-line
// fulfilment flags can move.
type Service interface {
	Place(ctx context.Context, actor authz.Actor, input PlaceOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, actor authz.Actor, query OrderListQuery) (*OrderListResult, error)
	Cancel(ctx context.Context, actor authz.Actor, id uuid.UUID) (*OrderDTO, error)
	Amend(ctx context.Context, actor authz.Actor, id uuid.UUID, input AmendOrderInput) (*OrderDTO, error)
	GetPosition(ctx context.Context, actor authz.Actor, id uuid.UUID) (*PositionDTO, error)
	ListPositions(ctx context.Context, actor authz.Actor, query PositionListQuery) (*PositionListResult, error)
	UpdatePosition(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdatePositionInput) (*PositionDTO, error)
}

// ServiceParams groups dependencies for the order service.
type ServiceParams struct {
	Client        *db.Client
	Orders        *Repository
	Positions     *PositionRepository
	Carts         *cart.Repository
	CartPositions *cart.PositionRepository
	Stocks        *cart.StockRepository
	Purchasers    *purchasers.Repository
	ChainStores   *purchasers.ChainStoreRepository
	Outbox        intentEmitter
	Config        config.OrdersConfig
}

type service struct {
	db            *db.Client
	orders        *Repository
	positions     *PositionRepository
	carts         *cart.Repository
	cartPositions *cart.PositionRepository
	stocks        *cart.StockRepository
	purchasers    *purchasers.Repository
	chainStores   *purchasers.ChainStoreRepository
	outbox        intentEmitter
	surcharge     decimal.Decimal
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Positions == nil {
		return nil, fmt.Errorf("position repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.CartPositions == nil {
		return nil, fmt.Errorf("cart position repository required")
	}
	if params.Stocks == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if params.Purchasers == nil {
		return nil, fmt.Errorf("purchaser repository required")
	}
	if params.ChainStores == nil {
		return nil, fmt.Errorf("chain store repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if !params.Config.CombinedSurchargeFactor.IsPositive() {
		return nil, fmt.Errorf("combined surcharge factor must be positive")
	}
	return &service{
		db:            params.Client,
		orders:        params.Orders,
		positions:     params.Positions,
		carts:         params.Carts,
		cartPositions: params.CartPositions,
		stocks:        params.Stocks,
		purchasers:    params.Purchasers,
		chainStores:   params.ChainStores,
		outbox:        params.Outbox,
		surcharge:     params.Config.CombinedSurchargeFactor,
	}, nil
}

// resolvePurchaser picks the purchaser an order belongs to. Admins may
// name one explicitly; everyone else places for themselves.
func (s *service) resolvePurchaser(ctx context.Context, actor authz.Actor, override *uuid.UUID) (*models.Purchaser, error) {
	if override != nil {
		if actor.Role != enums.UserRoleAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot place orders for another purchaser")
		}
		purchaser, err := s.purchasers.FindByID(ctx, *override)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchaser not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchaser")
		}
		return purchaser, nil
	}

	purchaser, err := s.purchasers.FindByUser(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "purchaser profile required")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchaser")
	}
	return purchaser, nil
}

func (s *service) Place(ctx context.Context, actor authz.Actor, input PlaceOrderInput) (*OrderDTO, error) {
	if !authz.Can(actor, authz.ActionCreate, authz.ResourceOrder) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	if input.ChainStoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "chain store id is required")
	}

	purchaser, err := s.resolvePurchaser(ctx, actor, input.PurchaserID)
	if err != nil {
		return nil, err
	}

	cartRecord, err := s.carts.FindByPurchaser(ctx, purchaser.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(cartRecord.Positions) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	store, err := s.chainStores.FindByID(ctx, input.ChainStoreID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chain store")
	}
	if store == nil || store.PurchaserID != purchaser.ID {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "chain store does not belong to the purchaser")
	}

	order := &models.Order{
		PurchaserID:  purchaser.ID,
		ChainStoreID: store.ID,
		Status:       enums.OrderStatusSaved,
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
		}

		// Lines are copied verbatim; the cart already holds the stock
		// reservation, so quantities are not touched here.
		lines := make([]models.OrderPosition, 0, len(cartRecord.Positions))
		for _, position := range cartRecord.Positions {
			lines = append(lines, models.OrderPosition{
				OrderID:  order.ID,
				StockID:  position.StockID,
				Quantity: position.Quantity,
				Price:    position.Price,
			})
		}
		if err := s.positions.WithTx(tx).CreateBatch(ctx, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order positions")
		}
		if err := s.cartPositions.WithTx(tx).DeleteByCart(ctx, cartRecord.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
		}
		return s.queuePlacementIntents(ctx, tx, purchaser, order, cartRecord.Positions)
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place order")
	}

	placed, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return OrderFromModel(placed, s.surcharge), nil
}

// queuePlacementIntents writes one outbox row per distinct supplier and
// a confirmation for the purchaser, inside the placement transaction.
func (s *service) queuePlacementIntents(ctx context.Context, tx *gorm.DB, purchaser *models.Purchaser, order *models.Order, lines []models.CartPosition) error {
	type supplierBatch struct {
		count  int
		amount decimal.Decimal
	}
	batches := map[uuid.UUID]*supplierBatch{}
	supplierIDs := map[uuid.UUID]struct{}{}
	total := decimal.Zero
	for _, line := range lines {
		amount := line.Amount()
		total = total.Add(amount)
		if line.Stock == nil || line.Stock.Supplier == nil {
			continue
		}
		supplierIDs[line.Stock.SupplierID] = struct{}{}
		batch := batches[line.Stock.Supplier.UserID]
		if batch == nil {
			batch = &supplierBatch{amount: decimal.Zero}
			batches[line.Stock.Supplier.UserID] = batch
		}
		batch.count++
		batch.amount = batch.amount.Add(amount)
	}
	if len(supplierIDs) > 1 {
		total = total.Mul(s.surcharge)
	}

	recipientIDs := make([]uuid.UUID, 0, len(batches)+1)
	for userID := range batches {
		recipientIDs = append(recipientIDs, userID)
	}
	recipientIDs = append(recipientIDs, purchaser.UserID)
	users, err := s.orders.WithTx(tx).FindUsersByIDs(ctx, recipientIDs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification recipients")
	}
	emails := make(map[uuid.UUID]string, len(users))
	for _, user := range users {
		emails[user.ID] = user.Email
	}

	for userID, batch := range batches {
		email, ok := emails[userID]
		if !ok {
			continue
		}
		intent := outbox.EmailIntent{
			Recipient: email,
			Subject:   "New order received",
			Body:      fmt.Sprintf("Order %s: %d line(s) totalling %s.", order.ID, batch.count, batch.amount.StringFixed(2)),
		}
		if err := s.outbox.Emit(ctx, tx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue supplier notification")
		}
	}

	if email, ok := emails[purchaser.UserID]; ok {
		intent := outbox.EmailIntent{
			Recipient: email,
			Subject:   "Order confirmation",
			Body:      fmt.Sprintf("Order %s has been placed, total %s.", order.ID, total.Round(2).StringFixed(2)),
		}
		if err := s.outbox.Emit(ctx, tx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue purchaser notification")
		}
	}
	return nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*OrderDTO, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceOrder) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	order, err := s.orders.FindScoped(ctx, authz.OrderScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return OrderFromModel(order, s.surcharge), nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, query OrderListQuery) (*OrderListResult, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceOrder) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	rows, nextCursor, err := s.orders.List(ctx, authz.OrderScope(actor), query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	result := &OrderListResult{Orders: make([]OrderDTO, 0, len(rows)), NextCursor: nextCursor}
	for i := range rows {
		result.Orders = append(result.Orders, *OrderFromModel(&rows[i], s.surcharge))
	}
	return result, nil
}

func (s *service) Cancel(ctx context.Context, actor authz.Actor, id uuid.UUID) (*OrderDTO, error) {
	if !authz.Can(actor, authz.ActionUpdate, authz.ResourceOrder) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	order, err := s.orders.FindScoped(ctx, authz.OrderScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already cancelled")
	}
	for _, position := range order.Positions {
		if position.Confirmed || position.Delivered {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has confirmed or delivered positions")
		}
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		stocks := s.stocks.WithTx(tx)
		for _, position := range order.Positions {
			if err := stocks.Restock(ctx, position.StockID, position.Quantity); err != nil {
				return err
			}
		}
		return s.orders.WithTx(tx).UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}

	cancelled, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return OrderFromModel(cancelled, s.surcharge), nil
}

func (s *service) Amend(ctx context.Context, actor authz.Actor, id uuid.UUID, input AmendOrderInput) (*OrderDTO, error) {
	if !authz.Can(actor, authz.ActionUpdate, authz.ResourceOrder) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	if input.ChainStoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "chain store id is required")
	}
	order, err := s.orders.FindScoped(ctx, authz.OrderScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
	}
	for _, position := range order.Positions {
		if position.Confirmed || position.Delivered {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has confirmed or delivered positions")
		}
	}

	store, err := s.chainStores.FindByID(ctx, input.ChainStoreID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chain store")
	}
	if store == nil || store.PurchaserID != order.PurchaserID {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "chain store does not belong to the purchaser")
	}

	if err := s.orders.UpdateChainStore(ctx, order.ID, store.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order")
	}

	amended, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return OrderFromModel(amended, s.surcharge), nil
}

func (s *service) GetPosition(ctx context.Context, actor authz.Actor, id uuid.UUID) (*PositionDTO, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceOrderPosition) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	position, err := s.positions.FindScoped(ctx, authz.OrderPositionScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order position not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order position")
	}
	return PositionFromModel(position), nil
}

func (s *service) ListPositions(ctx context.Context, actor authz.Actor, query PositionListQuery) (*PositionListResult, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceOrderPosition) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	rows, nextCursor, err := s.positions.ListScoped(ctx, authz.OrderPositionScope(actor), query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order positions")
	}
	result := &PositionListResult{Positions: make([]PositionDTO, 0, len(rows)), NextCursor: nextCursor}
	for i := range rows {
		result.Positions = append(result.Positions, *PositionFromModel(&rows[i]))
	}
	return result, nil
}

func (s *service) UpdatePosition(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdatePositionInput) (*PositionDTO, error) {
	if !authz.Can(actor, authz.ActionConfirm, authz.ResourceOrderPosition) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	if input.Confirmed == nil && input.Delivered == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "confirmed or delivered flag is required")
	}

	position, err := s.positions.FindScoped(ctx, authz.OrderPositionScope(actor), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order position not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order position")
	}

	order, err := s.orders.FindByID(ctx, position.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
	}

	newConfirmed := position.Confirmed
	newDelivered := position.Delivered
	var changed []string
	if input.Confirmed != nil {
		if !*input.Confirmed && position.Confirmed {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "confirmation cannot be revoked")
		}
		if *input.Confirmed && !position.Confirmed {
			newConfirmed = true
			changed = append(changed, "confirmed")
		}
	}
	if input.Delivered != nil {
		if !*input.Delivered && position.Delivered {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivery cannot be revoked")
		}
		if *input.Delivered && !position.Delivered {
			newDelivered = true
			changed = append(changed, "delivered")
		}
	}
	if len(changed) == 0 {
		return PositionFromModel(position), nil
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.positions.WithTx(tx).UpdateFlags(ctx, position.ID, newConfirmed, newDelivered); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order position")
		}

		purchaser, err := s.purchasers.WithTx(tx).FindByID(ctx, order.PurchaserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchaser")
		}
		users, err := s.orders.WithTx(tx).FindUsersByIDs(ctx, []uuid.UUID{purchaser.UserID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification recipient")
		}
		if len(users) == 0 {
			return nil
		}
		intent := outbox.EmailIntent{
			Recipient: users[0].Email,
			Subject:   "Order status update",
			Body:      fmt.Sprintf("Order %s: a position was marked %s.", order.ID, strings.Join(changed, " and ")),
		}
		return s.outbox.Emit(ctx, tx, intent)
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order position")
	}

	updated, err := s.positions.FindByID(ctx, position.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order position")
	}
	return PositionFromModel(updated), nil
}
