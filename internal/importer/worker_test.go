package importer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prosupplyhq/prosupply-backend/internal/catalog"
	"github.com/prosupplyhq/prosupply-backend/pkg/db"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
	"github.com/prosupplyhq/prosupply-backend/pkg/logger"
)

const voltDocument = `
shop: Volt Components
categories:
  - id: 10
    name: Smartphones
  - id: 20
    name: Accessories
goods:
  - id: SKU-100
    category: 10
    model: apple/iphone-15
    name: iPhone 15 128GB
    shop: Volt Components
    price: 64990
    price_rrc: 69990
    quantity: 7
    parameters:
      "Screen size": "6.1"
      "Color": black
  - id: SKU-200
    category: 20
    model: generic/usb-c
    name: USB-C cable
    shop: Volt Components
    price: 490.50
    price_rrc: 590
    quantity: 120
    parameters:
      "Length": 1m
`

const voltDocumentV2 = `
shop: Volt Components
categories:
  - id: 10
    name: Smartphones
goods:
  - id: SKU-100
    category: 10
    model: apple/iphone-15
    name: iPhone 15 128GB
    shop: Volt Components
    price: 59990
    price_rrc: 64990
    quantity: 3
    parameters:
      "Color": blue
`

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func buildApplier(t *testing.T, client *db.Client, maxMB int) *Applier {
	t.Helper()
	conn := client.DB()
	applier, err := NewApplier(ApplierParams{
		Client:          client,
		Jobs:            NewRepository(conn),
		Suppliers:       catalog.NewSupplierRepository(conn),
		Categories:      catalog.NewCategoryRepository(conn),
		Products:        catalog.NewProductRepository(conn),
		Characteristics: catalog.NewCharacteristicRepository(conn),
		Stocks:          catalog.NewStockRepository(conn),
		Values:          catalog.NewProductCharacteristicRepository(conn),
		Logger:          quietLogger(),
		HTTPClient:      &http.Client{Timeout: 5 * time.Second},
		MaxDocumentMB:   maxMB,
	})
	require.NoError(t, err)
	return applier
}

func serveDocument(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// applyURL queues a fresh job for the url, runs it and returns the
// finished row.
func applyURL(t *testing.T, client *db.Client, applier *Applier, url string, acting *uuid.UUID) *models.ImportJob {
	t.Helper()
	ctx := context.Background()
	repo := NewRepository(client.DB())

	job, err := repo.Create(ctx, &models.ImportJob{
		ID:           uuid.New(),
		SubmittedBy:  uuid.New(),
		ActingUserID: acting,
		SourceURL:    url,
		Status:       enums.ImportJobStatusQueued,
	})
	require.NoError(t, err)
	require.NoError(t, applier.Apply(ctx, job.ID))

	reloaded, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	return reloaded
}

func applyDocument(t *testing.T, client *db.Client, applier *Applier, body string, acting *uuid.UUID) *models.ImportJob {
	t.Helper()
	return applyURL(t, client, applier, serveDocument(t, body).URL, acting)
}

func findStock(t *testing.T, client *db.Client, sku string) *models.Stock {
	t.Helper()
	var stock models.Stock
	require.NoError(t, client.DB().First(&stock, "sku = ?", sku).Error)
	return &stock
}

func countRows(t *testing.T, client *db.Client, table string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, client.DB().Table(table).Count(&count).Error)
	return count
}

func TestApplyCreatesCatalogFromDocument(t *testing.T) {
	t.Parallel()
	client := setupImporterDB(t)
	applier := buildApplier(t, client, 0)
	ctx := context.Background()

	supplier := seedSupplier(t, client, uuid.New(), "Volt Components")

	job := applyDocument(t, client, applier, voltDocument, nil)
	assert.Equal(t, enums.ImportJobStatusSucceeded, job.Status)
	assert.Equal(t, 2, job.CategoriesApplied)
	assert.Equal(t, 2, job.StocksApplied)
	assert.Nil(t, job.Detail)
	require.NotNil(t, job.StartedAt)
	require.NotNil(t, job.FinishedAt)

	assert.EqualValues(t, 2, countRows(t, client, "categories"))
	var attached int64
	require.NoError(t, client.DB().Table("category_suppliers").Where("supplier_id = ?", supplier.ID).Count(&attached).Error)
	assert.EqualValues(t, 2, attached, "the supplier serves both document categories")

	category, err := catalog.NewCategoryRepository(client.DB()).FindByName(ctx, "Smartphones")
	require.NoError(t, err)
	product, err := catalog.NewProductRepository(client.DB()).FindByNameAndCategory(ctx, "iPhone 15 128GB", category.ID)
	require.NoError(t, err)

	phone := findStock(t, client, "SKU-100")
	assert.Equal(t, product.ID, phone.ProductID)
	assert.Equal(t, supplier.ID, phone.SupplierID)
	assert.Equal(t, 7, phone.Quantity)
	assert.True(t, phone.Price.Equal(decimal.RequireFromString("64990")), "price %s", phone.Price)
	require.NotNil(t, phone.Model)
	assert.Equal(t, "apple/iphone-15", *phone.Model)

	values, err := catalog.NewProductCharacteristicRepository(client.DB()).ListByStock(ctx, phone.ID)
	require.NoError(t, err)
	require.Len(t, values, 2)

	color, err := catalog.NewCharacteristicRepository(client.DB()).FindByName(ctx, "Color")
	require.NoError(t, err)
	var colorValue models.ProductCharacteristic
	require.NoError(t, client.DB().First(&colorValue, "stock_id = ? AND characteristic_id = ?", phone.ID, color.ID).Error)
	assert.Equal(t, "black", colorValue.Value)

	cable := findStock(t, client, "SKU-200")
	assert.Equal(t, 120, cable.Quantity)
	assert.True(t, cable.Price.Equal(decimal.RequireFromString("490.50")), "price %s", cable.Price)
}

func TestApplyReimportPreservesStockIdentity(t *testing.T) {
	t.Parallel()
	client := setupImporterDB(t)
	applier := buildApplier(t, client, 0)
	ctx := context.Background()

	seedSupplier(t, client, uuid.New(), "Volt Components")

	first := applyDocument(t, client, applier, voltDocument, nil)
	require.Equal(t, enums.ImportJobStatusSucceeded, first.Status)
	phoneBefore := findStock(t, client, "SKU-100")
	cableBefore := findStock(t, client, "SKU-200")

	second := applyDocument(t, client, applier, voltDocumentV2, nil)
	require.Equal(t, enums.ImportJobStatusSucceeded, second.Status)
	assert.Equal(t, 1, second.CategoriesApplied)
	assert.Equal(t, 1, second.StocksApplied)

	phoneAfter := findStock(t, client, "SKU-100")
	assert.Equal(t, phoneBefore.ID, phoneAfter.ID, "re-imports must keep the stock row")
	assert.Equal(t, 3, phoneAfter.Quantity)
	assert.True(t, phoneAfter.Price.Equal(decimal.RequireFromString("59990")), "price %s", phoneAfter.Price)

	values, err := catalog.NewProductCharacteristicRepository(client.DB()).ListByStock(ctx, phoneAfter.ID)
	require.NoError(t, err)
	require.Len(t, values, 1, "characteristics are replaced, not merged")
	assert.Equal(t, "blue", values[0].Value)

	cableAfter := findStock(t, client, "SKU-200")
	assert.Equal(t, cableBefore.ID, cableAfter.ID)
	assert.Equal(t, 0, cableAfter.Quantity, "listings the new document omits stay on file with nothing on hand")
}

func TestApplyActingSupplierIgnoresDocumentShop(t *testing.T) {
	t.Parallel()
	client := setupImporterDB(t)
	applier := buildApplier(t, client, 0)

	userID := uuid.New()
	supplier := seedSupplier(t, client, userID, "Volt Components")

	doc := strings.Replace(voltDocumentV2, "shop: Volt Components", "shop: Somebody Else", 1)
	job := applyDocument(t, client, applier, doc, &userID)
	assert.Equal(t, enums.ImportJobStatusSucceeded, job.Status)

	phone := findStock(t, client, "SKU-100")
	assert.Equal(t, supplier.ID, phone.SupplierID, "the sheet lands on the acting user's supplier")
}

func TestApplyMarksJobFailed(t *testing.T) {
	t.Parallel()
	client := setupImporterDB(t)
	applier := buildApplier(t, client, 0)

	seedSupplier(t, client, uuid.New(), "Volt Components")

	cases := []struct {
		name   string
		body   string
		detail string
	}{
		{
			name:   "unknown shop",
			body:   strings.Replace(voltDocumentV2, "shop: Volt Components", "shop: Ghost Shop", 1),
			detail: `unknown supplier "Ghost Shop"`,
		},
		{
			name: "conflicting category ids",
			body: `
shop: Volt Components
categories:
  - id: 10
    name: Smartphones
  - id: 10
    name: Tablets
`,
			detail: "conflicting names",
		},
		{
			name:   "good without a category",
			body:   strings.Replace(voltDocumentV2, "category: 10", "category: 99", 1),
			detail: "references unknown category 99",
		},
		{
			name:   "price is not a number",
			body:   strings.Replace(voltDocumentV2, "price: 59990", "price: free", 1),
			detail: "price",
		},
		{
			name:   "negative quantity",
			body:   strings.Replace(voltDocumentV2, "quantity: 3", "quantity: -3", 1),
			detail: "negative quantity",
		},
		{
			// Two parameter names collapsing after trimming trip the
			// unique value constraint inside the transaction, so this
			// case proves a mid-apply failure rolls everything back.
			name:   "duplicate characteristic",
			body:   strings.Replace(voltDocumentV2, `      "Color": blue`, "      \"Color\": blue\n      \" Color \": red", 1),
			detail: `characteristic "Color"`,
		},
	}
	for _, tc := range cases {
		job := applyDocument(t, client, applier, tc.body, nil)
		require.Equal(t, enums.ImportJobStatusFailed, job.Status, tc.name)
		require.NotNil(t, job.Detail, tc.name)
		assert.Contains(t, *job.Detail, tc.detail, tc.name)
		require.NotNil(t, job.FinishedAt, tc.name)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	job := applyURL(t, client, applier, srv.URL, nil)
	require.Equal(t, enums.ImportJobStatusFailed, job.Status)
	require.NotNil(t, job.Detail)
	assert.Contains(t, *job.Detail, "fetch returned status 500")

	assert.EqualValues(t, 0, countRows(t, client, "categories"), "failed jobs must not leave catalog rows behind")
	assert.EqualValues(t, 0, countRows(t, client, "stocks"))
}

func TestApplyRejectsOversizedDocument(t *testing.T) {
	t.Parallel()
	client := setupImporterDB(t)
	applier := buildApplier(t, client, 1)

	job := applyDocument(t, client, applier, strings.Repeat("x", 1<<20+1), nil)
	require.Equal(t, enums.ImportJobStatusFailed, job.Status)
	require.NotNil(t, job.Detail)
	assert.Contains(t, *job.Detail, "exceeds the 1 MB limit")
}

func TestApplySkipsFinishedJobs(t *testing.T) {
	t.Parallel()
	client := setupImporterDB(t)
	applier := buildApplier(t, client, 0)
	ctx := context.Background()
	repo := NewRepository(client.DB())

	seedSupplier(t, client, uuid.New(), "Volt Components")
	srv := serveDocument(t, voltDocument)

	job, err := repo.Create(ctx, &models.ImportJob{
		ID:          uuid.New(),
		SubmittedBy: uuid.New(),
		SourceURL:   srv.URL,
		Status:      enums.ImportJobStatusQueued,
	})
	require.NoError(t, err)
	require.NoError(t, repo.MarkSucceeded(ctx, job.ID, 5, 9, time.Now().UTC()))

	require.NoError(t, applier.Apply(ctx, job.ID))

	reloaded, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ImportJobStatusSucceeded, reloaded.Status)
	assert.Equal(t, 5, reloaded.CategoriesApplied)
	assert.Equal(t, 9, reloaded.StocksApplied)
	assert.EqualValues(t, 0, countRows(t, client, "stocks"), "redelivered finished jobs must not re-run")

	require.NoError(t, applier.Apply(ctx, uuid.New()), "unknown job ids are dropped quietly")
}
