package orders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prosupplyhq/prosupply-backend/internal/authz"
	"github.com/prosupplyhq/prosupply-backend/internal/cart"
	"github.com/prosupplyhq/prosupply-backend/internal/purchasers"
	"github.com/prosupplyhq/prosupply-backend/pkg/config"
	"github.com/prosupplyhq/prosupply-backend/pkg/db"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
	"github.com/prosupplyhq/prosupply-backend/pkg/outbox"
	"github.com/prosupplyhq/prosupply-backend/pkg/pagination"
)

func setupOrdersDB(t *testing.T) *db.Client {
	t.Helper()
	ctx := context.Background()

	client, err := db.New(ctx, config.DBConfig{
		Driver: "sqlite",
		DSN:    "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ddl := `
CREATE TABLE users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	first_name TEXT,
	last_name TEXT,
	role TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	last_login_at DATETIME,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE purchasers (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	address TEXT,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE shopping_carts (
	id TEXT PRIMARY KEY,
	purchaser_id TEXT NOT NULL UNIQUE REFERENCES purchasers (id),
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE chain_stores (
	id TEXT PRIMARY KEY,
	purchaser_id TEXT NOT NULL REFERENCES purchasers (id),
	name TEXT NOT NULL,
	address TEXT NOT NULL,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE suppliers (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL UNIQUE,
	address TEXT,
	accepting_orders INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE products (
	id TEXT PRIMARY KEY,
	category_id TEXT,
	name TEXT NOT NULL,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE stocks (
	id TEXT PRIMARY KEY,
	sku TEXT NOT NULL,
	product_id TEXT NOT NULL,
	supplier_id TEXT NOT NULL REFERENCES suppliers (id),
	model TEXT,
	description TEXT,
	price NUMERIC NOT NULL,
	price_rrc NUMERIC NOT NULL,
	quantity INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE cart_positions (
	id TEXT PRIMARY KEY,
	cart_id TEXT NOT NULL REFERENCES shopping_carts (id),
	stock_id TEXT NOT NULL REFERENCES stocks (id),
	quantity INTEGER NOT NULL,
	price NUMERIC NOT NULL,
	created_at DATETIME,
	updated_at DATETIME,
	UNIQUE (cart_id, stock_id)
);
CREATE TABLE orders (
	id TEXT PRIMARY KEY,
	purchaser_id TEXT NOT NULL REFERENCES purchasers (id),
	chain_store_id TEXT NOT NULL REFERENCES chain_stores (id),
	status TEXT NOT NULL DEFAULT 'saved',
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE order_positions (
	id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL REFERENCES orders (id),
	stock_id TEXT NOT NULL REFERENCES stocks (id),
	quantity INTEGER NOT NULL,
	price NUMERIC NOT NULL,
	confirmed INTEGER NOT NULL DEFAULT 0,
	delivered INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME,
	updated_at DATETIME,
	UNIQUE (order_id, stock_id)
);
CREATE TABLE outbox_messages (
	id TEXT PRIMARY KEY,
	subject TEXT NOT NULL,
	body TEXT NOT NULL DEFAULT '',
	recipient TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	attempt_count INTEGER NOT NULL DEFAULT 0,
	last_error TEXT,
	occurred_at DATETIME,
	published_at DATETIME
);`
	require.NoError(t, client.Exec(ctx, ddl).Error)
	return client
}

type orderServices struct {
	orders Service
	cart   cart.Service
}

func buildOrderServices(t *testing.T, client *db.Client) orderServices {
	t.Helper()

	cartSvc, err := cart.NewService(
		client,
		cart.NewRepository(client.DB()),
		cart.NewPositionRepository(client.DB()),
		cart.NewStockRepository(client.DB()),
		purchasers.NewRepository(client.DB()),
	)
	require.NoError(t, err)

	orderSvc, err := NewService(ServiceParams{
		Client:        client,
		Orders:        NewRepository(client.DB()),
		Positions:     NewPositionRepository(client.DB()),
		Carts:         cart.NewRepository(client.DB()),
		CartPositions: cart.NewPositionRepository(client.DB()),
		Stocks:        cart.NewStockRepository(client.DB()),
		Purchasers:    purchasers.NewRepository(client.DB()),
		ChainStores:   purchasers.NewChainStoreRepository(client.DB()),
		Outbox:        outbox.NewService(outbox.NewRepository(client.DB()), nil),
		Config:        config.OrdersConfig{CombinedSurchargeFactor: decimal.RequireFromString("1.1")},
	})
	require.NoError(t, err)

	return orderServices{orders: orderSvc, cart: cartSvc}
}

func adminActor() authz.Actor {
	return authz.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
}

func purchaserActor(userID uuid.UUID) authz.Actor {
	return authz.Actor{UserID: userID, Role: enums.UserRolePurchaser}
}

func supplierActor(userID uuid.UUID) authz.Actor {
	return authz.Actor{UserID: userID, Role: enums.UserRoleSupplier}
}

func mustCreateUser(t *testing.T, client *db.Client, role enums.UserRole) *models.User {
	t.Helper()
	tag := uuid.NewString()[:8]
	user := &models.User{
		ID:           uuid.New(),
		Email:        tag + "@example.com",
		Username:     "user-" + tag,
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, client.DB().Create(user).Error)
	return user
}

// mustCreateBuyer seeds a purchaser user with profile, cart and one
// chain store, the minimum a placement needs.
func mustCreateBuyer(t *testing.T, client *db.Client) (*models.User, *models.Purchaser, *models.ChainStore) {
	t.Helper()
	user := mustCreateUser(t, client, enums.UserRolePurchaser)
	purchaser := &models.Purchaser{ID: uuid.New(), UserID: user.ID, Name: "Buyer " + uuid.NewString()[:8]}
	require.NoError(t, client.DB().Create(purchaser).Error)
	basket := &models.ShoppingCart{ID: uuid.New(), PurchaserID: purchaser.ID}
	require.NoError(t, client.DB().Create(basket).Error)
	store := &models.ChainStore{ID: uuid.New(), PurchaserID: purchaser.ID, Name: "Store " + uuid.NewString()[:8], Address: "1 Pier Lane"}
	require.NoError(t, client.DB().Create(store).Error)
	return user, purchaser, store
}

func mustCreateSupplierWithUser(t *testing.T, client *db.Client) (*models.User, *models.Supplier) {
	t.Helper()
	user := mustCreateUser(t, client, enums.UserRoleSupplier)
	supplier := &models.Supplier{
		ID:              uuid.New(),
		UserID:          user.ID,
		Name:            "Supplier " + uuid.NewString()[:8],
		AcceptingOrders: true,
	}
	require.NoError(t, client.DB().Create(supplier).Error)
	return user, supplier
}

func mustCreateStock(t *testing.T, client *db.Client, supplierID uuid.UUID, quantity int, price int64) *models.Stock {
	t.Helper()
	stock := &models.Stock{
		ID:         uuid.New(),
		SKU:        "SKU-" + uuid.NewString()[:8],
		ProductID:  uuid.New(),
		SupplierID: supplierID,
		Price:      decimal.NewFromInt(price),
		PriceRRC:   decimal.NewFromInt(price + 20),
		Quantity:   quantity,
	}
	require.NoError(t, client.DB().Create(stock).Error)
	return stock
}

func mustAddToCart(t *testing.T, svc cart.Service, userID, stockID uuid.UUID, quantity int) {
	t.Helper()
	_, err := svc.Add(context.Background(), purchaserActor(userID), cart.AddPositionInput{StockID: stockID, Quantity: quantity})
	require.NoError(t, err)
}

func stockQuantity(t *testing.T, client *db.Client, stockID uuid.UUID) int {
	t.Helper()
	var stock models.Stock
	require.NoError(t, client.DB().First(&stock, "id = ?", stockID).Error)
	return stock.Quantity
}

func messagesTo(t *testing.T, client *db.Client, recipient string) []models.OutboxMessage {
	t.Helper()
	var rows []models.OutboxMessage
	require.NoError(t, client.DB().Where("recipient = ?", recipient).Find(&rows).Error)
	return rows
}

func outboxCount(t *testing.T, client *db.Client) int {
	t.Helper()
	var count int64
	require.NoError(t, client.DB().Model(&models.OutboxMessage{}).Count(&count).Error)
	return int(count)
}

func findPosition(t *testing.T, order *OrderDTO, stockID uuid.UUID) *PositionDTO {
	t.Helper()
	for i := range order.Positions {
		if order.Positions[i].StockID == stockID {
			return &order.Positions[i]
		}
	}
	t.Fatalf("no position for stock %s", stockID)
	return nil
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected a typed error, got %v", err)
	require.Equal(t, code, typed.Code())
}

// spreadCreatedAt gives rows distinct whole-second timestamps so cursor
// ordering is stable, oldest id first.
func spreadCreatedAt(t *testing.T, client *db.Client, table string, ids []uuid.UUID) {
	t.Helper()
	base := time.Now().UTC().Truncate(time.Second).Add(-time.Duration(len(ids)) * time.Minute)
	for i, id := range ids {
		res := client.DB().Table(table).Where("id = ?", id).Update("created_at", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, res.Error)
		require.EqualValues(t, 1, res.RowsAffected)
	}
}

func TestPlaceFreezesCartIntoOrder(t *testing.T) {
	t.Parallel()
	client := setupOrdersDB(t)
	svcs := buildOrderServices(t, client)
	ctx := context.Background()

	buyerUser, _, store := mustCreateBuyer(t, client)
	supplierUser, supplier := mustCreateSupplierWithUser(t, client)
	first := mustCreateStock(t, client, supplier.ID, 10, 100)
	second := mustCreateStock(t, client, supplier.ID, 8, 50)
	mustAddToCart(t, svcs.cart, buyerUser.ID, first.ID, 2)
	mustAddToCart(t, svcs.cart, buyerUser.ID, second.ID, 3)

	order, err := svcs.orders.Place(ctx, purchaserActor(buyerUser.ID), PlaceOrderInput{ChainStoreID: store.ID})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusSaved, order.Status)
	assert.Equal(t, store.ID, order.ChainStoreID)
	require.Len(t, order.Positions, 2)
	assert.False(t, order.Confirmed)
	assert.False(t, order.Delivered)
	assert.Equal(t, 5, order.TotalQuantity)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(350)), "got %s", order.TotalAmount)

	line := findPosition(t, order, first.ID)
	assert.Equal(t, 2, line.Quantity)
	assert.True(t, line.Price.Equal(decimal.NewFromInt(100)))

	// The cart already holds the reservation; placement must not move
	// quantities a second time.
	assert.Equal(t, 8, stockQuantity(t, client, first.ID))
	assert.Equal(t, 5, stockQuantity(t, client, second.ID))

	basket, err := svcs.cart.Get(ctx, purchaserActor(buyerUser.ID), nil)
	require.NoError(t, err)
	assert.Empty(t, basket.Positions)

	toSupplier := messagesTo(t, client, supplierUser.Email)
	require.Len(t, toSupplier, 1)
	assert.Equal(t, "New order received", toSupplier[0].Subject)
	assert.Contains(t, toSupplier[0].Body, "350.00")

	toBuyer := messagesTo(t, client, buyerUser.Email)
	require.Len(t, toBuyer, 1)
	assert.Equal(t, "Order confirmation", toBuyer[0].Subject)
	assert.Contains(t, toBuyer[0].Body, "350.00")
}

func TestPlaceCombinedOrderSurcharge(t *testing.T) {
	t.Parallel()
	client := setupOrdersDB(t)
	svcs := buildOrderServices(t, client)
	ctx := context.Background()

	buyerUser, _, store := mustCreateBuyer(t, client)
	firstUser, firstSupplier := mustCreateSupplierWithUser(t, client)
	secondUser, secondSupplier := mustCreateSupplierWithUser(t, client)
	cheap := mustCreateStock(t, client, firstSupplier.ID, 5, 100)
	dear := mustCreateStock(t, client, secondSupplier.ID, 5, 200)
	mustAddToCart(t, svcs.cart, buyerUser.ID, cheap.ID, 1)
	mustAddToCart(t, svcs.cart, buyerUser.ID, dear.ID, 1)

	order, err := svcs.orders.Place(ctx, purchaserActor(buyerUser.ID), PlaceOrderInput{ChainStoreID: store.ID})
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(330)), "got %s", order.TotalAmount)

	// Each supplier hears only about their own lines, without the
	// combined-order surcharge.
	toFirst := messagesTo(t, client, firstUser.Email)
	require.Len(t, toFirst, 1)
	assert.Contains(t, toFirst[0].Body, "100.00")

	toSecond := messagesTo(t, client, secondUser.Email)
	require.Len(t, toSecond, 1)
	assert.Contains(t, toSecond[0].Body, "200.00")

	toBuyer := messagesTo(t, client, buyerUser.Email)
	require.Len(t, toBuyer, 1)
	assert.Contains(t, toBuyer[0].Body, "330.00")

	fetched, err := svcs.orders.Get(ctx, purchaserActor(buyerUser.ID), order.ID)
	require.NoError(t, err)
	assert.True(t, fetched.TotalAmount.Equal(decimal.NewFromInt(330)))
}

func TestPlaceValidation(t *testing.T) {
	t.Parallel()
	client := setupOrdersDB(t)
	svcs := buildOrderServices(t, client)
	ctx := context.Background()

	buyerUser, _, store := mustCreateBuyer(t, client)
	_, _, otherStore := mustCreateBuyer(t, client)
	_, supplier := mustCreateSupplierWithUser(t, client)
	stock := mustCreateStock(t, client, supplier.ID, 10, 100)

	_, err := svcs.orders.Place(ctx, purchaserActor(buyerUser.ID), PlaceOrderInput{ChainStoreID: store.ID})
	requireCode(t, err, pkgerrors.CodeValidation)

	mustAddToCart(t, svcs.cart, buyerUser.ID, stock.ID, 2)

	_, err = svcs.orders.Place(ctx, purchaserActor(buyerUser.ID), PlaceOrderInput{})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svcs.orders.Place(ctx, purchaserActor(buyerUser.ID), PlaceOrderInput{ChainStoreID: otherStore.ID})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = svcs.orders.Place(ctx, purchaserActor(buyerUser.ID), PlaceOrderInput{ChainStoreID: uuid.New()})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = svcs.orders.Place(ctx, supplierActor(supplier.UserID), PlaceOrderInput{ChainStoreID: store.ID})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = svcs.orders.Place(ctx, purchaserActor(uuid.New()), PlaceOrderInput{ChainStoreID: store.ID})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	// Nothing above got far enough to place; the reservation is intact
	// and the cart still holds its position.
	assert.Equal(t, 8, stockQuantity(t, client, stock.ID))
	basket, err := svcs.cart.Get(ctx, purchaserActor(buyerUser.ID), nil)
	require.NoError(t, err)
	assert.Len(t, basket.Positions, 1)
}

func TestPlaceAdminOverride(t *testing.T) {
	t.Parallel()
	client := setupOrdersDB(t)
	svcs := buildOrderServices(t, client)
	ctx := context.Background()

	buyerUser, purchaser, store := mustCreateBuyer(t, client)
	_, supplier := mustCreateSupplierWithUser(t, client)
	stock := mustCreateStock(t, client, supplier.ID, 10, 100)
	mustAddToCart(t, svcs.cart, buyerUser.ID, stock.ID, 1)

	_, err := svcs.orders.Place(ctx, purchaserActor(uuid.New()), PlaceOrderInput{
		ChainStoreID: store.ID,
		PurchaserID:  &purchaser.ID,
	})
	requireCode(t, err, pkgerrors.CodeForbidden)

	order, err := svcs.orders.Place(ctx, adminActor(), PlaceOrderInput{
		ChainStoreID: store.ID,
		PurchaserID:  &purchaser.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, purchaser.ID, order.PurchaserID)

	bogus := uuid.New()
	_, err = svcs.orders.Place(ctx, adminActor(), PlaceOrderInput{ChainStoreID: store.ID, PurchaserID: &bogus})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestCancelRestocksAndIsTerminal(t *testing.T) {
	t.Parallel()
	client := setupOrdersDB(t)
	svcs := buildOrderServices(t, client)
	ctx := context.Background()

	buyerUser, _, store := mustCreateBuyer(t, client)
	_, supplier := mustCreateSupplierWithUser(t, client)
	first := mustCreateStock(t, client, supplier.ID, 10, 100)
	second := mustCreateStock(t, client, supplier.ID, 8, 50)
	mustAddToCart(t, svcs.cart, buyerUser.ID, first.ID, 3)
	mustAddToCart(t, svcs.cart, buyerUser.ID, second.ID, 2)

	order, err := svcs.orders.Place(ctx, purchaserActor(buyerUser.ID), PlaceOrderInput{ChainStoreID: store.ID})
	require.NoError(t, err)
	assert.Equal(t, 7, stockQuantity(t, client, first.ID))
	assert.Equal(t, 6, stockQuantity(t, client, second.ID))

	cancelled, err := svcs.orders.Cancel(ctx, purchaserActor(buyerUser.ID), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 10, stockQuantity(t, client, first.ID))
	assert.Equal(t, 8, stockQuantity(t, client, second.ID))

	_, err = svcs.orders.Cancel(ctx, purchaserActor(buyerUser.ID), order.ID)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = svcs.orders.Amend(ctx, purchaserActor(buyerUser.ID), order.ID, AmendOrderInput{ChainStoreID: store.ID})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestCancelBlockedOnceConfirmed(t *testing.T) {
	t.Parallel()
	client := setupOrdersDB(t)
	svcs := buildOrderServices(t, client)
	ctx := context.Background()

	buyerUser, _, store := mustCreateBuyer(t, client)
	_, supplier := mustCreateSupplierWithUser(t, client)
	stock := mustCreateStock(t, client, supplier.ID, 10, 100)
	mustAddToCart(t, svcs.cart, buyerUser.ID, stock.ID, 2)

	order, err := svcs.orders.Place(ctx, purchaserActor(buyerUser.ID), PlaceOrderInput{ChainStoreID: store.ID})
	require.NoError(t, err)

	yes := true
	line := findPosition(t, order, stock.ID)
	_, err = svcs.orders.UpdatePosition(ctx, supplierActor(supplier.UserID), line.ID, UpdatePositionInput{Confirmed: &yes})
	require.NoError(t, err)

	_, err = svcs.orders.Cancel(ctx, purchaserActor(buyerUser.ID), order.ID)
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Equal(t, 8, stockQuantity(t, client, stock.ID))
}

func TestAmendMovesOrderToSisterStore(t *testing.T) {
	t.Parallel()
	client := setupOrdersDB(t)
	svcs := buildOrderServices(t, client)
	ctx := context.Background()

	buyerUser, purchaser, store := mustCreateBuyer(t, client)
	sister := &models.ChainStore{ID: uuid.New(), PurchaserID: purchaser.ID, Name: "Sister", Address: "2 Pier Lane"}
	require.NoError(t, client.DB().Create(sister).Error)
	_, _, foreignStore := mustCreateBuyer(t, client)

	_, supplier := mustCreateSupplierWithUser(t, client)
	stock := mustCreateStock(t, client, supplier.ID, 10, 100)
	mustAddToCart(t, svcs.cart, buyerUser.ID, stock.ID, 2)

	order, err := svcs.orders.Place(ctx, purchaserActor(buyerUser.ID), PlaceOrderInput{ChainStoreID: store.ID})
	require.NoError(t, err)

	amended, err := svcs.orders.Amend(ctx, purchaserActor(buyerUser.ID), order.ID, AmendOrderInput{ChainStoreID: sister.ID})
	require.NoError(t, err)
	assert.Equal(t, sister.ID, amended.ChainStoreID)

	_, err = svcs.orders.Amend(ctx, purchaserActor(buyerUser.ID), order.ID, AmendOrderInput{ChainStoreID: foreignStore.ID})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	yes := true
	line := findPosition(t, order, stock.ID)
	_, err = svcs.orders.UpdatePosition(ctx, supplierActor(supplier.UserID), line.ID, UpdatePositionInput{Delivered: &yes})
	require.NoError(t, err)

	_, err = svcs.orders.Amend(ctx, purchaserActor(buyerUser.ID), order.ID, AmendOrderInput{ChainStoreID: store.ID})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestOrderVisibility(t *testing.T) {
	t.Parallel()
	client := setupOrdersDB(t)
	svcs := buildOrderServices(t, client)
	ctx := context.Background()

	buyerUser, _, store := mustCreateBuyer(t, client)
	strangerUser, _, _ := mustCreateBuyer(t, client)
	_, supplier := mustCreateSupplierWithUser(t, client)
	_, bystander := mustCreateSupplierWithUser(t, client)
	stock := mustCreateStock(t, client, supplier.ID, 10, 100)
	mustAddToCart(t, svcs.cart, buyerUser.ID, stock.ID, 2)

	order, err := svcs.orders.Place(ctx, purchaserActor(buyerUser.ID), PlaceOrderInput{ChainStoreID: store.ID})
	require.NoError(t, err)

	_, err = svcs.orders.Get(ctx, purchaserActor(buyerUser.ID), order.ID)
	require.NoError(t, err)

	_, err = svcs.orders.Get(ctx, purchaserActor(strangerUser.ID), order.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svcs.orders.Get(ctx, supplierActor(supplier.UserID), order.ID)
	require.NoError(t, err)

	_, err = svcs.orders.Get(ctx, supplierActor(bystander.UserID), order.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svcs.orders.Get(ctx, adminActor(), order.ID)
	require.NoError(t, err)

	mine, err := svcs.orders.List(ctx, purchaserActor(buyerUser.ID), OrderListQuery{Pagination: pagination.Params{Limit: 10}})
	require.NoError(t, err)
	assert.Len(t, mine.Orders, 1)

	theirs, err := svcs.orders.List(ctx, purchaserActor(strangerUser.ID), OrderListQuery{Pagination: pagination.Params{Limit: 10}})
	require.NoError(t, err)
	assert.Empty(t, theirs.Orders)
}

func TestOrderListPagingAndStatusFilter(t *testing.T) {
	t.Parallel()
	client := setupOrdersDB(t)
	svcs := buildOrderServices(t, client)
	ctx := context.Background()

	buyerUser, _, store := mustCreateBuyer(t, client)
	_, supplier := mustCreateSupplierWithUser(t, client)
	stock := mustCreateStock(t, client, supplier.ID, 30, 100)

	ids := make([]uuid.UUID, 0, 3)
	for i := 0; i < 3; i++ {
		mustAddToCart(t, svcs.cart, buyerUser.ID, stock.ID, 1)
		order, err := svcs.orders.Place(ctx, purchaserActor(buyerUser.ID), PlaceOrderInput{ChainStoreID: store.ID})
		require.NoError(t, err)
		ids = append(ids, order.ID)
	}
	spreadCreatedAt(t, client, "orders", ids)

	_, err := svcs.orders.Cancel(ctx, purchaserActor(buyerUser.ID), ids[1])
	require.NoError(t, err)

	// Newest first, two per page.
	page, err := svcs.orders.List(ctx, purchaserActor(buyerUser.ID), OrderListQuery{Pagination: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, ids[2], page.Orders[0].ID)
	assert.Equal(t, ids[1], page.Orders[1].ID)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svcs.orders.List(ctx, purchaserActor(buyerUser.ID), OrderListQuery{Pagination: pagination.Params{Limit: 2, Cursor: page.NextCursor}})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	assert.Equal(t, ids[0], rest.Orders[0].ID)
	assert.Empty(t, rest.NextCursor)

	saved := enums.OrderStatusSaved
	open, err := svcs.orders.List(ctx, purchaserActor(buyerUser.ID), OrderListQuery{Status: &saved, Pagination: pagination.Params{Limit: 10}})
	require.NoError(t, err)
	assert.Len(t, open.Orders, 2)

	cancelledStatus := enums.OrderStatusCancelled
	closed, err := svcs.orders.List(ctx, purchaserActor(buyerUser.ID), OrderListQuery{Status: &cancelledStatus, Pagination: pagination.Params{Limit: 10}})
	require.NoError(t, err)
	require.Len(t, closed.Orders, 1)
	assert.Equal(t, ids[1], closed.Orders[0].ID)
}

func TestPositionFlagsRollUp(t *testing.T) {
	t.Parallel()
	client := setupOrdersDB(t)
	svcs := buildOrderServices(t, client)
	ctx := context.Background()

	buyerUser, _, store := mustCreateBuyer(t, client)
	supplierUser, supplier := mustCreateSupplierWithUser(t, client)
	first := mustCreateStock(t, client, supplier.ID, 10, 100)
	second := mustCreateStock(t, client, supplier.ID, 10, 50)
	mustAddToCart(t, svcs.cart, buyerUser.ID, first.ID, 1)
	mustAddToCart(t, svcs.cart, buyerUser.ID, second.ID, 1)

	order, err := svcs.orders.Place(ctx, purchaserActor(buyerUser.ID), PlaceOrderInput{ChainStoreID: store.ID})
	require.NoError(t, err)

	yes := true
	actor := supplierActor(supplierUser.ID)
	before := outboxCount(t, client)

	updated, err := svcs.orders.UpdatePosition(ctx, actor, findPosition(t, order, first.ID).ID, UpdatePositionInput{Confirmed: &yes})
	require.NoError(t, err)
	assert.True(t, updated.Confirmed)
	assert.False(t, updated.Delivered)

	// One line confirmed is not a confirmed order.
	half, err := svcs.orders.Get(ctx, purchaserActor(buyerUser.ID), order.ID)
	require.NoError(t, err)
	assert.False(t, half.Confirmed)

	_, err = svcs.orders.UpdatePosition(ctx, actor, findPosition(t, order, second.ID).ID, UpdatePositionInput{Confirmed: &yes})
	require.NoError(t, err)

	full, err := svcs.orders.Get(ctx, purchaserActor(buyerUser.ID), order.ID)
	require.NoError(t, err)
	assert.True(t, full.Confirmed)
	assert.False(t, full.Delivered)

	for _, stockID := range []uuid.UUID{first.ID, second.ID} {
		_, err = svcs.orders.UpdatePosition(ctx, actor, findPosition(t, order, stockID).ID, UpdatePositionInput{Delivered: &yes})
		require.NoError(t, err)
	}

	done, err := svcs.orders.Get(ctx, purchaserActor(buyerUser.ID), order.ID)
	require.NoError(t, err)
	assert.True(t, done.Confirmed)
	assert.True(t, done.Delivered)

	// Four flag changes, four notes to the purchaser.
	assert.Equal(t, before+4, outboxCount(t, client))
	var confirmedNotes, deliveredNotes int
	for _, message := range messagesTo(t, client, buyerUser.Email) {
		if message.Subject != "Order status update" {
			continue
		}
		if strings.Contains(message.Body, "confirmed") {
			confirmedNotes++
		}
		if strings.Contains(message.Body, "delivered") {
			deliveredNotes++
		}
	}
	assert.Equal(t, 2, confirmedNotes)
	assert.Equal(t, 2, deliveredNotes)
}

func TestUpdatePositionGuards(t *testing.T) {
	t.Parallel()
	client := setupOrdersDB(t)
	svcs := buildOrderServices(t, client)
	ctx := context.Background()

	buyerUser, _, store := mustCreateBuyer(t, client)
	supplierUser, supplier := mustCreateSupplierWithUser(t, client)
	_, bystander := mustCreateSupplierWithUser(t, client)
	stock := mustCreateStock(t, client, supplier.ID, 10, 100)
	mustAddToCart(t, svcs.cart, buyerUser.ID, stock.ID, 2)

	order, err := svcs.orders.Place(ctx, purchaserActor(buyerUser.ID), PlaceOrderInput{ChainStoreID: store.ID})
	require.NoError(t, err)
	line := findPosition(t, order, stock.ID)

	yes, no := true, false
	actor := supplierActor(supplierUser.ID)

	_, err = svcs.orders.UpdatePosition(ctx, purchaserActor(buyerUser.ID), line.ID, UpdatePositionInput{Confirmed: &yes})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = svcs.orders.UpdatePosition(ctx, actor, line.ID, UpdatePositionInput{})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svcs.orders.UpdatePosition(ctx, actor, uuid.New(), UpdatePositionInput{Confirmed: &yes})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svcs.orders.UpdatePosition(ctx, supplierActor(bystander.UserID), line.ID, UpdatePositionInput{Confirmed: &yes})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svcs.orders.UpdatePosition(ctx, actor, line.ID, UpdatePositionInput{Confirmed: &yes})
	require.NoError(t, err)

	// Confirming twice is a no-op and must not queue another note.
	count := outboxCount(t, client)
	again, err := svcs.orders.UpdatePosition(ctx, actor, line.ID, UpdatePositionInput{Confirmed: &yes})
	require.NoError(t, err)
	assert.True(t, again.Confirmed)
	assert.Equal(t, count, outboxCount(t, client))

	_, err = svcs.orders.UpdatePosition(ctx, actor, line.ID, UpdatePositionInput{Confirmed: &no})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = svcs.orders.UpdatePosition(ctx, actor, line.ID, UpdatePositionInput{Delivered: &yes})
	require.NoError(t, err)
	_, err = svcs.orders.UpdatePosition(ctx, actor, line.ID, UpdatePositionInput{Delivered: &no})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestUpdatePositionOnCancelledOrder(t *testing.T) {
	t.Parallel()
	client := setupOrdersDB(t)
	svcs := buildOrderServices(t, client)
	ctx := context.Background()

	buyerUser, _, store := mustCreateBuyer(t, client)
	_, supplier := mustCreateSupplierWithUser(t, client)
	stock := mustCreateStock(t, client, supplier.ID, 10, 100)
	mustAddToCart(t, svcs.cart, buyerUser.ID, stock.ID, 2)

	order, err := svcs.orders.Place(ctx, purchaserActor(buyerUser.ID), PlaceOrderInput{ChainStoreID: store.ID})
	require.NoError(t, err)
	line := findPosition(t, order, stock.ID)

	_, err = svcs.orders.Cancel(ctx, purchaserActor(buyerUser.ID), order.ID)
	require.NoError(t, err)

	yes := true
	_, err = svcs.orders.UpdatePosition(ctx, supplierActor(supplier.UserID), line.ID, UpdatePositionInput{Confirmed: &yes})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestListPositionsScoped(t *testing.T) {
	t.Parallel()
	client := setupOrdersDB(t)
	svcs := buildOrderServices(t, client)
	ctx := context.Background()

	buyerUser, _, store := mustCreateBuyer(t, client)
	firstUser, firstSupplier := mustCreateSupplierWithUser(t, client)
	_, secondSupplier := mustCreateSupplierWithUser(t, client)
	mine := mustCreateStock(t, client, firstSupplier.ID, 10, 100)
	other := mustCreateStock(t, client, secondSupplier.ID, 10, 200)
	mustAddToCart(t, svcs.cart, buyerUser.ID, mine.ID, 1)
	mustAddToCart(t, svcs.cart, buyerUser.ID, other.ID, 1)

	order, err := svcs.orders.Place(ctx, purchaserActor(buyerUser.ID), PlaceOrderInput{ChainStoreID: store.ID})
	require.NoError(t, err)

	supplierView, err := svcs.orders.ListPositions(ctx, supplierActor(firstUser.ID), PositionListQuery{
		OrderID:    &order.ID,
		Pagination: pagination.Params{Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, supplierView.Positions, 1)
	assert.Equal(t, mine.ID, supplierView.Positions[0].StockID)

	buyerView, err := svcs.orders.ListPositions(ctx, purchaserActor(buyerUser.ID), PositionListQuery{
		OrderID:    &order.ID,
		Pagination: pagination.Params{Limit: 10},
	})
	require.NoError(t, err)
	assert.Len(t, buyerView.Positions, 2)

	adminView, err := svcs.orders.ListPositions(ctx, adminActor(), PositionListQuery{
		OrderID:    &order.ID,
		Pagination: pagination.Params{Limit: 10},
	})
	require.NoError(t, err)
	assert.Len(t, adminView.Positions, 2)

	line, err := svcs.orders.GetPosition(ctx, supplierActor(firstUser.ID), supplierView.Positions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, line.StockID)

	foreign := findPosition(t, &OrderDTO{Positions: buyerView.Positions}, other.ID)
	_, err = svcs.orders.GetPosition(ctx, supplierActor(firstUser.ID), foreign.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}
