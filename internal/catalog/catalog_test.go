package catalog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/prosupplyhq/prosupply-backend/internal/authz"
	"github.com/prosupplyhq/prosupply-backend/pkg/config"
	"github.com/prosupplyhq/prosupply-backend/pkg/db"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
	"github.com/prosupplyhq/prosupply-backend/pkg/pagination"
)

func setupCatalogDB(t *testing.T) *db.Client {
	t.Helper()

	client, err := db.New(context.Background(), config.DBConfig{
		Driver: "sqlite",
		DSN:    "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ddl := `
CREATE TABLE IF NOT EXISTS suppliers (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL UNIQUE,
  address TEXT,
  accepting_orders BOOLEAN NOT NULL DEFAULT TRUE,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS category_suppliers (
  category_id TEXT NOT NULL REFERENCES categories(id),
  supplier_id TEXT NOT NULL REFERENCES suppliers(id),
  PRIMARY KEY (category_id, supplier_id)
);
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  category_id TEXT NOT NULL REFERENCES categories(id),
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (name, category_id)
);
CREATE TABLE IF NOT EXISTS characteristics (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS stocks (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL,
  product_id TEXT NOT NULL REFERENCES products(id),
  supplier_id TEXT NOT NULL REFERENCES suppliers(id),
  model TEXT,
  description TEXT,
  price NUMERIC NOT NULL,
  price_rrc NUMERIC NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (sku, product_id, supplier_id)
);
CREATE TABLE IF NOT EXISTS product_characteristics (
  id TEXT PRIMARY KEY,
  stock_id TEXT NOT NULL REFERENCES stocks(id) ON DELETE CASCADE,
  characteristic_id TEXT NOT NULL REFERENCES characteristics(id),
  value TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (stock_id, characteristic_id)
);`
	require.NoError(t, client.Exec(context.Background(), ddl).Error)
	return client
}

type catalogServices struct {
	suppliers SupplierService
	reference ReferenceService
	stocks    StockService
}

func buildCatalogServices(t *testing.T, client *db.Client) catalogServices {
	t.Helper()

	conn := client.DB()
	supplierRepo := NewSupplierRepository(conn)
	categoryRepo := NewCategoryRepository(conn)
	productRepo := NewProductRepository(conn)
	characteristicRepo := NewCharacteristicRepository(conn)
	stockRepo := NewStockRepository(conn)
	valueRepo := NewProductCharacteristicRepository(conn)

	supplierSvc, err := NewSupplierService(supplierRepo)
	require.NoError(t, err)
	referenceSvc, err := NewReferenceService(categoryRepo, productRepo, characteristicRepo, supplierRepo)
	require.NoError(t, err)
	stockSvc, err := NewStockService(client, stockRepo, valueRepo, supplierRepo, productRepo, characteristicRepo)
	require.NoError(t, err)

	return catalogServices{
		suppliers: supplierSvc,
		reference: referenceSvc,
		stocks:    stockSvc,
	}
}

func adminActor() authz.Actor {
	return authz.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
}

func supplierActor(userID uuid.UUID) authz.Actor {
	return authz.Actor{UserID: userID, Role: enums.UserRoleSupplier}
}

func purchaserActor() authz.Actor {
	return authz.Actor{UserID: uuid.New(), Role: enums.UserRolePurchaser}
}

func mustCreateSupplier(t *testing.T, client *db.Client, userID uuid.UUID, name string, accepting bool) *models.Supplier {
	t.Helper()
	supplier := &models.Supplier{
		ID:              uuid.New(),
		UserID:          userID,
		Name:            name,
		AcceptingOrders: accepting,
	}
	require.NoError(t, client.DB().Create(supplier).Error)
	return supplier
}

func mustCreateCategory(t *testing.T, client *db.Client, name string) *models.Category {
	t.Helper()
	category := &models.Category{ID: uuid.New(), Name: name}
	require.NoError(t, client.DB().Create(category).Error)
	return category
}

func mustCreateProduct(t *testing.T, client *db.Client, name string, categoryID uuid.UUID) *models.Product {
	t.Helper()
	product := &models.Product{ID: uuid.New(), Name: name, CategoryID: categoryID}
	require.NoError(t, client.DB().Create(product).Error)
	return product
}

func mustCreateCharacteristic(t *testing.T, client *db.Client, name string) *models.Characteristic {
	t.Helper()
	characteristic := &models.Characteristic{ID: uuid.New(), Name: name}
	require.NoError(t, client.DB().Create(characteristic).Error)
	return characteristic
}

func mustCreateStock(t *testing.T, client *db.Client, sku string, productID, supplierID uuid.UUID, quantity int) *models.Stock {
	t.Helper()
	stock := &models.Stock{
		ID:         uuid.New(),
		SKU:        sku,
		ProductID:  productID,
		SupplierID: supplierID,
		Price:      decimal.NewFromInt(100),
		PriceRRC:   decimal.NewFromInt(120),
		Quantity:   quantity,
	}
	require.NoError(t, client.DB().Create(stock).Error)
	return stock
}

// seedSupplierWithListing wires supplier -> category -> product -> stock
// in one call for tests that only care about the stock.
func seedSupplierWithListing(t *testing.T, client *db.Client, userID uuid.UUID, quantity int) (*models.Supplier, *models.Product, *models.Stock) {
	t.Helper()
	tag := uuid.NewString()[:8]
	supplier := mustCreateSupplier(t, client, userID, "Supplier "+tag, true)
	category := mustCreateCategory(t, client, "Category "+tag)
	product := mustCreateProduct(t, client, "Product "+tag, category.ID)
	stock := mustCreateStock(t, client, "SKU-"+tag, product.ID, supplier.ID, quantity)
	return supplier, product, stock
}

func paginationParams(limit int, cursor string) pagination.Params {
	return pagination.Params{Limit: limit, Cursor: cursor}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNilf(t, typed, "expected a coded error, got %v", err)
	require.Equal(t, code, typed.Code())
}

// spreadCreatedAt gives rows distinct whole-second timestamps so cursor
// ordering is stable under sqlite's text comparison.
func spreadCreatedAt(t *testing.T, client *db.Client, table string, ids []uuid.UUID) {
	t.Helper()
	base := time.Now().UTC().Truncate(time.Second).Add(-time.Duration(len(ids)) * time.Minute)
	for i, id := range ids {
		ts := base.Add(time.Duration(i) * time.Minute)
		res := client.DB().Table(table).Where("id = ?", id).Update("created_at", ts)
		require.NoError(t, res.Error)
		require.EqualValues(t, 1, res.RowsAffected, fmt.Sprintf("row %s missing in %s", id, table))
	}
}
