package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/prosupplyhq/prosupply-backend/internal/authz"
	"github.com/prosupplyhq/prosupply-backend/internal/catalog"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
)

type stubReferenceService struct {
	product        *catalog.ProductDTO
	category       *catalog.CategoryDTO
	characteristic *catalog.CharacteristicDTO
	err            error
}

func (s stubReferenceService) CreateCategory(ctx context.Context, actor authz.Actor, input catalog.CreateCategoryInput) (*catalog.CategoryDTO, error) {
	return s.category, s.err
}

func (s stubReferenceService) GetCategory(ctx context.Context, actor authz.Actor, id uuid.UUID) (*catalog.CategoryDTO, error) {
	return s.category, s.err
}

func (s stubReferenceService) ListCategories(ctx context.Context, actor authz.Actor) ([]catalog.CategoryDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.category == nil {
		return []catalog.CategoryDTO{}, nil
	}
	return []catalog.CategoryDTO{*s.category}, nil
}

func (s stubReferenceService) UpdateCategory(ctx context.Context, actor authz.Actor, id uuid.UUID, input catalog.UpdateCategoryInput) (*catalog.CategoryDTO, error) {
	return s.category, s.err
}

func (s stubReferenceService) DeleteCategory(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	return s.err
}

func (s stubReferenceService) CreateProduct(ctx context.Context, actor authz.Actor, input catalog.CreateProductInput) (*catalog.ProductDTO, error) {
	return s.product, s.err
}

func (s stubReferenceService) GetProduct(ctx context.Context, actor authz.Actor, id uuid.UUID) (*catalog.ProductDTO, error) {
	return s.product, s.err
}

func (s stubReferenceService) ListProducts(ctx context.Context, actor authz.Actor, query catalog.ProductListQuery) (*catalog.ProductListResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	result := &catalog.ProductListResult{Products: []catalog.ProductDTO{}}
	if s.product != nil {
		result.Products = append(result.Products, *s.product)
	}
	return result, nil
}

func (s stubReferenceService) UpdateProduct(ctx context.Context, actor authz.Actor, id uuid.UUID, input catalog.UpdateProductInput) (*catalog.ProductDTO, error) {
	return s.product, s.err
}

func (s stubReferenceService) DeleteProduct(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	return s.err
}

func (s stubReferenceService) CreateCharacteristic(ctx context.Context, actor authz.Actor, input catalog.CharacteristicInput) (*catalog.CharacteristicDTO, error) {
	return s.characteristic, s.err
}

func (s stubReferenceService) GetCharacteristic(ctx context.Context, actor authz.Actor, id uuid.UUID) (*catalog.CharacteristicDTO, error) {
	return s.characteristic, s.err
}

func (s stubReferenceService) ListCharacteristics(ctx context.Context, actor authz.Actor) ([]catalog.CharacteristicDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.characteristic == nil {
		return []catalog.CharacteristicDTO{}, nil
	}
	return []catalog.CharacteristicDTO{*s.characteristic}, nil
}

func (s stubReferenceService) UpdateCharacteristic(ctx context.Context, actor authz.Actor, id uuid.UUID, input catalog.CharacteristicInput) (*catalog.CharacteristicDTO, error) {
	return s.characteristic, s.err
}

func (s stubReferenceService) DeleteCharacteristic(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	return s.err
}

func TestProductCreateSuccess(t *testing.T) {
	product := &catalog.ProductDTO{
		ID:         uuid.New(),
		Name:       "Wheat Flour 1kg",
		CategoryID: uuid.New(),
	}
	handler := ProductCreate(stubReferenceService{product: product}, nil)

	body := `{"name":"Wheat Flour 1kg","category_id":"` + product.CategoryID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req = withActor(req, enums.UserRoleAdmin)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	var envelope struct {
		Data catalog.ProductDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Name != product.Name {
		t.Fatalf("unexpected name: %s", envelope.Data.Name)
	}
}

func TestProductCreateMissingName(t *testing.T) {
	handler := ProductCreate(stubReferenceService{}, nil)

	body := `{"category_id":"` + uuid.NewString() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req = withActor(req, enums.UserRoleAdmin)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestProductListSuccess(t *testing.T) {
	product := &catalog.ProductDTO{ID: uuid.New(), Name: "Rye Bread"}
	handler := ProductList(stubReferenceService{product: product}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?q=bread", nil)
	req = withActor(req, enums.UserRolePurchaser)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data catalog.ProductListResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Products) != 1 {
		t.Fatalf("expected 1 product got %d", len(envelope.Data.Products))
	}
	if envelope.Data.Products[0].ID != product.ID {
		t.Fatalf("unexpected product id: %s", envelope.Data.Products[0].ID)
	}
}

func TestProductFetchRejectsBadID(t *testing.T) {
	handler := ProductFetch(stubReferenceService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/not-a-uuid", nil)
	req = withActor(req, enums.UserRolePurchaser)
	req = withRouteParam(req, "productID", "not-a-uuid")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
