package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prosupplyhq/prosupply-backend/internal/authz"
	"github.com/prosupplyhq/prosupply-backend/pkg/db"
	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
	"github.com/prosupplyhq/prosupply-backend/pkg/pagination"
)

// CategoryRepository handles category persistence.
type CategoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository binds a GORM DB to category operations.
func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *CategoryRepository) WithTx(tx *gorm.DB) *CategoryRepository {
	if tx == nil {
		return r
	}
	return &CategoryRepository{db: tx}
}

// Create persists a new category row.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) (*models.Category, error) {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

// FindByID loads a category with its supplier links.
func (r *CategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Preload("Suppliers").First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// FindByName loads a category by its unique name.
func (r *CategoryRepository) FindByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// List returns all categories ordered by name. Reference data stays
// small enough that offset or cursor paging would be noise.
func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Update saves the provided category.
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	if category == nil {
		return fmt.Errorf("category is required")
	}
	return r.db.WithContext(ctx).Omit("Suppliers").Save(category).Error
}

// ReplaceSuppliers overwrites the category's supplier links.
func (r *CategoryRepository) ReplaceSuppliers(ctx context.Context, category *models.Category, suppliers []models.Supplier) error {
	if category == nil {
		return fmt.Errorf("category is required")
	}
	return r.db.WithContext(ctx).Model(category).Association("Suppliers").Replace(suppliers)
}

// AttachSupplier links the supplier to the category, ignoring duplicates.
func (r *CategoryRepository) AttachSupplier(ctx context.Context, category *models.Category, supplier *models.Supplier) error {
	if category == nil || supplier == nil {
		return fmt.Errorf("category and supplier are required")
	}
	return r.db.WithContext(ctx).Model(category).Association("Suppliers").Append(supplier)
}

// Delete removes the category row.
func (r *CategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Category{}, "id = ?", id).Error
}

// ProductRepository handles product persistence.
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository binds a GORM DB to product operations.
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *ProductRepository) WithTx(tx *gorm.DB) *ProductRepository {
	if tx == nil {
		return r
	}
	return &ProductRepository{db: tx}
}

// Create persists a new product row.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// FindByID loads a product with its category.
func (r *ProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByNameAndCategory resolves a product by its natural key.
func (r *ProductRepository) FindByNameAndCategory(ctx context.Context, name string, categoryID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Where("name = ? AND category_id = ?", name, categoryID).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// List returns a cursor-paginated page of products.
func (r *ProductRepository) List(ctx context.Context, query ProductListQuery) ([]models.Product, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.Product{}).Preload("Category")
	if query.CategoryID != nil {
		qb = qb.Where("products.category_id = ?", *query.CategoryID)
	}
	if search := strings.TrimSpace(query.Query); search != "" {
		qb = qb.Where("LOWER(products.name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if cursor != nil {
		qb = qb.Where(
			"(products.created_at < ?) OR (products.created_at = ? AND products.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Product
	if err := qb.Order("products.created_at DESC").Order("products.id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}

// Update saves the provided product.
func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	if product == nil {
		return fmt.Errorf("product is required")
	}
	return r.db.WithContext(ctx).Omit("Category").Save(product).Error
}

// Delete removes the product row.
func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

// CharacteristicRepository handles characteristic persistence.
type CharacteristicRepository struct {
	db *gorm.DB
}

// NewCharacteristicRepository binds a GORM DB to characteristic operations.
func NewCharacteristicRepository(db *gorm.DB) *CharacteristicRepository {
	return &CharacteristicRepository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *CharacteristicRepository) WithTx(tx *gorm.DB) *CharacteristicRepository {
	if tx == nil {
		return r
	}
	return &CharacteristicRepository{db: tx}
}

// Create persists a new characteristic row.
func (r *CharacteristicRepository) Create(ctx context.Context, characteristic *models.Characteristic) (*models.Characteristic, error) {
	if err := r.db.WithContext(ctx).Create(characteristic).Error; err != nil {
		return nil, err
	}
	return characteristic, nil
}

// FindByID loads a characteristic by its UUID.
func (r *CharacteristicRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Characteristic, error) {
	var characteristic models.Characteristic
	if err := r.db.WithContext(ctx).First(&characteristic, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &characteristic, nil
}

// FindByName loads a characteristic by its unique name.
func (r *CharacteristicRepository) FindByName(ctx context.Context, name string) (*models.Characteristic, error) {
	var characteristic models.Characteristic
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&characteristic).Error; err != nil {
		return nil, err
	}
	return &characteristic, nil
}

// List returns all characteristics ordered by name.
func (r *CharacteristicRepository) List(ctx context.Context) ([]models.Characteristic, error) {
	var characteristics []models.Characteristic
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&characteristics).Error; err != nil {
		return nil, err
	}
	return characteristics, nil
}

// Update saves the provided characteristic.
func (r *CharacteristicRepository) Update(ctx context.Context, characteristic *models.Characteristic) error {
	if characteristic == nil {
		return fmt.Errorf("characteristic is required")
	}
	return r.db.WithContext(ctx).Save(characteristic).Error
}

// Delete removes the characteristic row.
func (r *CharacteristicRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Characteristic{}, "id = ?", id).Error
}

// ReferenceService manages the shared catalog vocabulary. Writes are
// admin-only; any authenticated role may read.
type ReferenceService interface {
	CreateCategory(ctx context.Context, actor authz.Actor, input CreateCategoryInput) (*CategoryDTO, error)
	GetCategory(ctx context.Context, actor authz.Actor, id uuid.UUID) (*CategoryDTO, error)
	ListCategories(ctx context.Context, actor authz.Actor) ([]CategoryDTO, error)
	UpdateCategory(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error)
	DeleteCategory(ctx context.Context, actor authz.Actor, id uuid.UUID) error

	CreateProduct(ctx context.Context, actor authz.Actor, input CreateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, actor authz.Actor, id uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, actor authz.Actor, query ProductListQuery) (*ProductListResult, error)
	UpdateProduct(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, actor authz.Actor, id uuid.UUID) error

	CreateCharacteristic(ctx context.Context, actor authz.Actor, input CharacteristicInput) (*CharacteristicDTO, error)
	GetCharacteristic(ctx context.Context, actor authz.Actor, id uuid.UUID) (*CharacteristicDTO, error)
	ListCharacteristics(ctx context.Context, actor authz.Actor) ([]CharacteristicDTO, error)
	UpdateCharacteristic(ctx context.Context, actor authz.Actor, id uuid.UUID, input CharacteristicInput) (*CharacteristicDTO, error)
	DeleteCharacteristic(ctx context.Context, actor authz.Actor, id uuid.UUID) error
}

type referenceService struct {
	categories      *CategoryRepository
	products        *ProductRepository
	characteristics *CharacteristicRepository
	suppliers       *SupplierRepository
}

// NewReferenceService constructs the reference data service.
func NewReferenceService(categories *CategoryRepository, products *ProductRepository, characteristics *CharacteristicRepository, suppliers *SupplierRepository) (ReferenceService, error) {
	if categories == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if characteristics == nil {
		return nil, fmt.Errorf("characteristic repository required")
	}
	if suppliers == nil {
		return nil, fmt.Errorf("supplier repository required")
	}
	return &referenceService{
		categories:      categories,
		products:        products,
		characteristics: characteristics,
		suppliers:       suppliers,
	}, nil
}

func (s *referenceService) CreateCategory(ctx context.Context, actor authz.Actor, input CreateCategoryInput) (*CategoryDTO, error) {
	if !authz.Can(actor, authz.ActionCreate, authz.ResourceCategory) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	category, err := s.categories.Create(ctx, &models.Category{Name: name})
	if err != nil {
		if db.IsUniqueViolation(err, "categories_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert category")
	}
	return CategoryFromModel(category), nil
}

func (s *referenceService) GetCategory(ctx context.Context, actor authz.Actor, id uuid.UUID) (*CategoryDTO, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceCategory) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return CategoryFromModel(category), nil
}

func (s *referenceService) ListCategories(ctx context.Context, actor authz.Actor) ([]CategoryDTO, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceCategory) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	rows, err := s.categories.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	categories := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		categories = append(categories, *CategoryFromModel(&rows[i]))
	}
	return categories, nil
}

func (s *referenceService) UpdateCategory(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error) {
	if !authz.Can(actor, authz.ActionUpdate, authz.ResourceCategory) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		category.Name = name
		if err := s.categories.Update(ctx, category); err != nil {
			if db.IsUniqueViolation(err, "categories_name") {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update category")
		}
	}

	if input.SupplierIDs != nil {
		suppliers, err := s.suppliers.FindByIDs(ctx, *input.SupplierIDs)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load suppliers")
		}
		if len(suppliers) != len(*input.SupplierIDs) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown supplier id")
		}
		if err := s.categories.ReplaceSuppliers(ctx, category, suppliers); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: replace category suppliers")
		}
	}

	reloaded, err := s.categories.FindByID(ctx, category.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload category")
	}
	return CategoryFromModel(reloaded), nil
}

func (s *referenceService) DeleteCategory(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if !authz.Can(actor, authz.ActionDelete, authz.ResourceCategory) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	if _, err := s.categories.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "category still has products")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete category")
	}
	return nil
}

func (s *referenceService) CreateProduct(ctx context.Context, actor authz.Actor, input CreateProductInput) (*ProductDTO, error) {
	if !authz.Can(actor, authz.ActionCreate, authz.ResourceProduct) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if _, err := s.categories.FindByID(ctx, input.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}

	product, err := s.products.Create(ctx, &models.Product{
		Name:       name,
		CategoryID: input.CategoryID,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "idx_products_name_category") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already exists in this category")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return ProductFromModel(product), nil
}

func (s *referenceService) GetProduct(ctx context.Context, actor authz.Actor, id uuid.UUID) (*ProductDTO, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceProduct) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return ProductFromModel(product), nil
}

func (s *referenceService) ListProducts(ctx context.Context, actor authz.Actor, query ProductListQuery) (*ProductListResult, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceProduct) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	rows, nextCursor, err := s.products.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	products := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		products = append(products, *ProductFromModel(&rows[i]))
	}
	return &ProductListResult{Products: products, NextCursor: nextCursor}, nil
}

func (s *referenceService) UpdateProduct(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if !authz.Can(actor, authz.ActionUpdate, authz.ResourceProduct) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		product.Name = name
	}
	if input.CategoryID != nil {
		if _, err := s.categories.FindByID(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "category not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
		product.CategoryID = *input.CategoryID
	}

	if err := s.products.Update(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "idx_products_name_category") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already exists in this category")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}
	return ProductFromModel(product), nil
}

func (s *referenceService) DeleteProduct(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if !authz.Can(actor, authz.ActionDelete, authz.ResourceProduct) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	if _, err := s.products.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if err := s.products.Delete(ctx, id); err != nil {
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product still has stock listings")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}
	return nil
}

func (s *referenceService) CreateCharacteristic(ctx context.Context, actor authz.Actor, input CharacteristicInput) (*CharacteristicDTO, error) {
	if !authz.Can(actor, authz.ActionCreate, authz.ResourceCharacteristic) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	characteristic, err := s.characteristics.Create(ctx, &models.Characteristic{Name: name})
	if err != nil {
		if db.IsUniqueViolation(err, "characteristics_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "characteristic name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert characteristic")
	}
	return CharacteristicFromModel(characteristic), nil
}

func (s *referenceService) GetCharacteristic(ctx context.Context, actor authz.Actor, id uuid.UUID) (*CharacteristicDTO, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceCharacteristic) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	characteristic, err := s.characteristics.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "characteristic not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load characteristic")
	}
	return CharacteristicFromModel(characteristic), nil
}

func (s *referenceService) ListCharacteristics(ctx context.Context, actor authz.Actor) ([]CharacteristicDTO, error) {
	if !authz.Can(actor, authz.ActionRead, authz.ResourceCharacteristic) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	rows, err := s.characteristics.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list characteristics")
	}
	characteristics := make([]CharacteristicDTO, 0, len(rows))
	for i := range rows {
		characteristics = append(characteristics, *CharacteristicFromModel(&rows[i]))
	}
	return characteristics, nil
}

func (s *referenceService) UpdateCharacteristic(ctx context.Context, actor authz.Actor, id uuid.UUID, input CharacteristicInput) (*CharacteristicDTO, error) {
	if !authz.Can(actor, authz.ActionUpdate, authz.ResourceCharacteristic) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	characteristic, err := s.characteristics.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "characteristic not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load characteristic")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	characteristic.Name = name
	if err := s.characteristics.Update(ctx, characteristic); err != nil {
		if db.IsUniqueViolation(err, "characteristics_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "characteristic name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update characteristic")
	}
	return CharacteristicFromModel(characteristic), nil
}

func (s *referenceService) DeleteCharacteristic(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if !authz.Can(actor, authz.ActionDelete, authz.ResourceCharacteristic) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	if _, err := s.characteristics.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "characteristic not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load characteristic")
	}
	if err := s.characteristics.Delete(ctx, id); err != nil {
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "characteristic is still in use")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete characteristic")
	}
	return nil
}
