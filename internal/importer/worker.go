package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/internal/catalog"
	"github.com/prosupplyhq/prosupply-backend/pkg/db"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/logger"
)

const (
	defaultFetchTimeout  = 30 * time.Second
	defaultMaxDocumentMB = 10
	bytesPerMB           = 1 << 20
)

// ApplierParams collects the dependencies for applying import jobs.
type ApplierParams struct {
	Client          *db.Client
	Jobs            *Repository
	Suppliers       *catalog.SupplierRepository
	Categories      *catalog.CategoryRepository
	Products        *catalog.ProductRepository
	Characteristics *catalog.CharacteristicRepository
	Stocks          *catalog.StockRepository
	Values          *catalog.ProductCharacteristicRepository
	Logger          *logger.Logger
	HTTPClient      *http.Client
	MaxDocumentMB   int
}

// Applier executes one import job end to end: fetch, parse, validate
// and apply inside a single transaction. Document and data problems
// mark the job failed and are not returned; only infrastructure errors
// around the job row itself propagate to the caller.
type Applier struct {
	client          *db.Client
	jobs            *Repository
	suppliers       *catalog.SupplierRepository
	categories      *catalog.CategoryRepository
	products        *catalog.ProductRepository
	characteristics *catalog.CharacteristicRepository
	stocks          *catalog.StockRepository
	values          *catalog.ProductCharacteristicRepository
	logg            *logger.Logger
	httpClient      *http.Client
	maxBytes        int64
	now             func() time.Time
}

// NewApplier validates the wiring and applies defaults for the fetch
// client and the document size cap.
func NewApplier(params ApplierParams) (*Applier, error) {
	if params.Client == nil {
		return nil, errors.New("database client is required")
	}
	if params.Jobs == nil {
		return nil, errors.New("import job repository is required")
	}
	if params.Suppliers == nil {
		return nil, errors.New("supplier repository is required")
	}
	if params.Categories == nil {
		return nil, errors.New("category repository is required")
	}
	if params.Products == nil {
		return nil, errors.New("product repository is required")
	}
	if params.Characteristics == nil {
		return nil, errors.New("characteristic repository is required")
	}
	if params.Stocks == nil {
		return nil, errors.New("stock repository is required")
	}
	if params.Values == nil {
		return nil, errors.New("product characteristic repository is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}

	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultFetchTimeout}
	}
	maxMB := params.MaxDocumentMB
	if maxMB <= 0 {
		maxMB = defaultMaxDocumentMB
	}

	return &Applier{
		client:          params.Client,
		jobs:            params.Jobs,
		suppliers:       params.Suppliers,
		categories:      params.Categories,
		products:        params.Products,
		characteristics: params.Characteristics,
		stocks:          params.Stocks,
		values:          params.Values,
		logg:            params.Logger,
		httpClient:      httpClient,
		maxBytes:        int64(maxMB) * bytesPerMB,
		now:             time.Now,
	}, nil
}

type applyCounts struct {
	categories int
	stocks     int
}

// Apply runs the job with the given id. A job already in a terminal
// state is skipped so queue redeliveries stay harmless.
func (a *Applier) Apply(ctx context.Context, jobID uuid.UUID) error {
	job, err := a.jobs.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			a.logg.Warn(a.logg.WithJobID(ctx, jobID.String()), "import job not found")
			return nil
		}
		return fmt.Errorf("load import job: %w", err)
	}

	logCtx := a.logg.WithFields(ctx, map[string]any{
		"job_id":     job.ID.String(),
		"source_url": job.SourceURL,
	})
	if job.Status.Terminal() {
		a.logg.Info(logCtx, "import job already finished")
		return nil
	}

	if err := a.jobs.MarkRunning(ctx, job.ID, a.now().UTC()); err != nil {
		return fmt.Errorf("mark import job running: %w", err)
	}

	counts, err := a.run(logCtx, job)
	if err != nil {
		a.logg.Error(logCtx, "import job failed", err)
		if markErr := a.jobs.MarkFailed(ctx, job.ID, err.Error(), a.now().UTC()); markErr != nil {
			return fmt.Errorf("mark import job failed: %w", markErr)
		}
		return nil
	}

	if err := a.jobs.MarkSucceeded(ctx, job.ID, counts.categories, counts.stocks, a.now().UTC()); err != nil {
		return fmt.Errorf("mark import job succeeded: %w", err)
	}
	a.logg.Info(a.logg.WithFields(logCtx, map[string]any{
		"categories_applied": counts.categories,
		"stocks_applied":     counts.stocks,
	}), "import job applied")
	return nil
}

func (a *Applier) run(ctx context.Context, job *models.ImportJob) (applyCounts, error) {
	doc, err := a.fetchDocument(ctx, job.SourceURL)
	if err != nil {
		return applyCounts{}, err
	}
	plan, err := buildPlan(doc)
	if err != nil {
		return applyCounts{}, err
	}
	supplier, err := a.resolveSupplier(ctx, job, plan.shop)
	if err != nil {
		return applyCounts{}, err
	}

	var counts applyCounts
	err = a.client.WithTx(ctx, func(tx *gorm.DB) error {
		applied, err := a.applyPlan(ctx, tx, supplier, plan)
		if err != nil {
			return err
		}
		counts = applied
		return nil
	})
	if err != nil {
		return applyCounts{}, err
	}
	return counts, nil
}

func (a *Applier) fetchDocument(ctx context.Context, source string) (*catalogDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if int64(len(body)) > a.maxBytes {
		return nil, fmt.Errorf("document exceeds the %d MB limit", a.maxBytes/bytesPerMB)
	}

	var doc catalogDocument
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &doc, nil
}

// resolveSupplier picks the supplier the document applies to. Jobs
// submitted by a supplier are pinned to that user's profile; unscoped
// jobs trust the document's shop name, which must already exist.
func (a *Applier) resolveSupplier(ctx context.Context, job *models.ImportJob, shop string) (*models.Supplier, error) {
	if job.ActingUserID != nil {
		supplier, err := a.suppliers.FindByUser(ctx, *job.ActingUserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errors.New("no supplier profile for the acting user")
			}
			return nil, fmt.Errorf("load supplier: %w", err)
		}
		return supplier, nil
	}
	if shop == "" {
		return nil, errors.New("document names no shop")
	}
	supplier, err := a.suppliers.FindByName(ctx, shop)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("unknown supplier %q", shop)
		}
		return nil, fmt.Errorf("load supplier: %w", err)
	}
	return supplier, nil
}

func (a *Applier) applyPlan(ctx context.Context, tx *gorm.DB, supplier *models.Supplier, plan *importPlan) (applyCounts, error) {
	categories := a.categories.WithTx(tx)
	products := a.products.WithTx(tx)
	characteristics := a.characteristics.WithTx(tx)
	stocks := a.stocks.WithTx(tx)
	values := a.values.WithTx(tx)

	byDocID := make(map[int]*models.Category, len(plan.categories))
	for _, planned := range plan.categories {
		category, err := ensureCategory(ctx, categories, planned.name)
		if err != nil {
			return applyCounts{}, err
		}
		if err := categories.AttachSupplier(ctx, category, supplier); err != nil {
			return applyCounts{}, fmt.Errorf("attach supplier to category %q: %w", planned.name, err)
		}
		byDocID[planned.docID] = category
	}

	// A re-import replaces the supplier's whole sheet; listings the new
	// document omits stay on file at quantity zero.
	if err := stocks.ZeroQuantityBySupplier(ctx, supplier.ID); err != nil {
		return applyCounts{}, fmt.Errorf("reset supplier quantities: %w", err)
	}

	counts := applyCounts{categories: len(plan.categories)}
	for _, good := range plan.goods {
		category := byDocID[good.categoryID]
		product, err := ensureProduct(ctx, products, good.name, category.ID)
		if err != nil {
			return applyCounts{}, err
		}
		stock, err := upsertStock(ctx, stocks, supplier.ID, product.ID, good)
		if err != nil {
			return applyCounts{}, err
		}
		if err := replaceStockValues(ctx, characteristics, values, stock.ID, good.parameters); err != nil {
			return applyCounts{}, err
		}
		counts.stocks++
	}
	return counts, nil
}

func ensureCategory(ctx context.Context, repo *catalog.CategoryRepository, name string) (*models.Category, error) {
	category, err := repo.FindByName(ctx, name)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load category %q: %w", name, err)
	}
	category, err = repo.Create(ctx, &models.Category{Name: name})
	if err != nil {
		return nil, fmt.Errorf("create category %q: %w", name, err)
	}
	return category, nil
}

func ensureProduct(ctx context.Context, repo *catalog.ProductRepository, name string, categoryID uuid.UUID) (*models.Product, error) {
	product, err := repo.FindByNameAndCategory(ctx, name, categoryID)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load product %q: %w", name, err)
	}
	product, err = repo.Create(ctx, &models.Product{Name: name, CategoryID: categoryID})
	if err != nil {
		return nil, fmt.Errorf("create product %q: %w", name, err)
	}
	return product, nil
}

func ensureCharacteristic(ctx context.Context, repo *catalog.CharacteristicRepository, name string) (*models.Characteristic, error) {
	characteristic, err := repo.FindByName(ctx, name)
	if err == nil {
		return characteristic, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load characteristic %q: %w", name, err)
	}
	characteristic, err = repo.Create(ctx, &models.Characteristic{Name: name})
	if err != nil {
		return nil, fmt.Errorf("create characteristic %q: %w", name, err)
	}
	return characteristic, nil
}

// upsertStock keeps the stock row found by the (sku, product, supplier)
// key so cart positions holding it stay valid across re-imports.
func upsertStock(ctx context.Context, repo *catalog.StockRepository, supplierID, productID uuid.UUID, good plannedGood) (*models.Stock, error) {
	var model *string
	if good.model != "" {
		model = &good.model
	}

	stock, err := repo.FindByNaturalKey(ctx, good.sku, productID, supplierID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load stock %q: %w", good.sku, err)
		}
		created, err := repo.Create(ctx, &models.Stock{
			SKU:        good.sku,
			ProductID:  productID,
			SupplierID: supplierID,
			Model:      model,
			Price:      good.price,
			PriceRRC:   good.priceRRC,
			Quantity:   good.quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("create stock %q: %w", good.sku, err)
		}
		return created, nil
	}

	stock.Model = model
	stock.Price = good.price
	stock.PriceRRC = good.priceRRC
	stock.Quantity = good.quantity
	if err := repo.Update(ctx, stock); err != nil {
		return nil, fmt.Errorf("update stock %q: %w", good.sku, err)
	}
	return stock, nil
}

func replaceStockValues(ctx context.Context, characteristics *catalog.CharacteristicRepository, values *catalog.ProductCharacteristicRepository, stockID uuid.UUID, parameters []plannedParameter) error {
	if err := values.DeleteByStock(ctx, stockID); err != nil {
		return fmt.Errorf("clear stock characteristics: %w", err)
	}
	for _, parameter := range parameters {
		characteristic, err := ensureCharacteristic(ctx, characteristics, parameter.name)
		if err != nil {
			return err
		}
		if _, err := values.Create(ctx, &models.ProductCharacteristic{
			StockID:          stockID,
			CharacteristicID: characteristic.ID,
			Value:            parameter.value,
		}); err != nil {
			return fmt.Errorf("store characteristic %q: %w", parameter.name, err)
		}
	}
	return nil
}

type importPlan struct {
	shop       string
	categories []plannedCategory
	goods      []plannedGood
}

type plannedCategory struct {
	docID int
	name  string
}

type plannedGood struct {
	sku        string
	categoryID int
	name       string
	model      string
	price      decimal.Decimal
	priceRRC   decimal.Decimal
	quantity   int
	parameters []plannedParameter
}

type plannedParameter struct {
	name  string
	value string
}

// buildPlan normalizes the document before anything touches the
// database. The numeric category ids are document-local; they only join
// goods to categories within the same file and are never stored.
func buildPlan(doc *catalogDocument) (*importPlan, error) {
	plan := &importPlan{shop: strings.TrimSpace(doc.Shop)}

	namesByID := make(map[int]string, len(doc.Categories))
	for _, category := range doc.Categories {
		name := strings.TrimSpace(category.Name)
		if name == "" {
			return nil, fmt.Errorf("category %d has no name", category.ID)
		}
		if existing, ok := namesByID[category.ID]; ok {
			if existing != name {
				return nil, fmt.Errorf("category id %d appears with conflicting names %q and %q", category.ID, existing, name)
			}
			continue
		}
		namesByID[category.ID] = name
		plan.categories = append(plan.categories, plannedCategory{docID: category.ID, name: name})
	}

	for i, good := range doc.Goods {
		sku := strings.TrimSpace(good.ID)
		if sku == "" {
			return nil, fmt.Errorf("good %d has no sku", i+1)
		}
		name := strings.TrimSpace(good.Name)
		if name == "" {
			return nil, fmt.Errorf("good %q has no name", sku)
		}
		if _, ok := namesByID[good.Category]; !ok {
			return nil, fmt.Errorf("good %q references unknown category %d", sku, good.Category)
		}
		price, err := parsePositiveDecimal(good.Price)
		if err != nil {
			return nil, fmt.Errorf("good %q price %s", sku, err)
		}
		priceRRC, err := parsePositiveDecimal(good.PriceRRC)
		if err != nil {
			return nil, fmt.Errorf("good %q price_rrc %s", sku, err)
		}
		if good.Quantity < 0 {
			return nil, fmt.Errorf("good %q has a negative quantity", sku)
		}

		planned := plannedGood{
			sku:        sku,
			categoryID: good.Category,
			name:       name,
			model:      strings.TrimSpace(good.Model),
			price:      price,
			priceRRC:   priceRRC,
			quantity:   good.Quantity,
		}
		for paramName, paramValue := range good.Parameters {
			trimmed := strings.TrimSpace(paramName)
			if trimmed == "" {
				return nil, fmt.Errorf("good %q has a characteristic with no name", sku)
			}
			planned.parameters = append(planned.parameters, plannedParameter{
				name:  trimmed,
				value: strings.TrimSpace(paramValue),
			})
		}
		sort.Slice(planned.parameters, func(x, y int) bool {
			return planned.parameters[x].name < planned.parameters[y].name
		})
		plan.goods = append(plan.goods, planned)
	}
	return plan, nil
}

func parsePositiveDecimal(raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%q is not a number", raw)
	}
	if !value.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%s is not positive", value)
	}
	return value, nil
}
