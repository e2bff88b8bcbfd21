package product_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"lojasocial/internal/api/product"
	"lojasocial/internal/domain"
	apperror "lojasocial/internal/errors"
	"lojasocial/internal/pkg/logger"
)

type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductService) GetProductByID(ctx context.Context, id string) (domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductService) LookupBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	args := m.Called(ctx, barcode)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductService) UpdateProduct(ctx context.Context, id string, p domain.Product) (domain.Product, error) {
	args := m.Called(ctx, id, p)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductService) ListProducts(ctx context.Context, category domain.Category) ([]domain.Product, error) {
	args := m.Called(ctx, category)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func TestCreateProductHandler_Created(t *testing.T) {
	svc := new(MockProductService)
	h := product.NewHandler(svc, logger.NewNopLogger())
	svc.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p domain.Product) bool {
		return p.Name == "Arroz" && p.Category == domain.CategoryAlimentar
	})).Return(domain.Product{ID: "p1", Name: "Arroz"}, nil)

	rec := httptest.NewRecorder()
	h.CreateProductHandler(rec, httptest.NewRequest(http.MethodPost, "/v1/products",
		strings.NewReader(`{"barcode":"560","name":"Arroz","category":"Alimentar"}`)))

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateProductHandler_DuplicateBarcodeIs409(t *testing.T) {
	svc := new(MockProductService)
	h := product.NewHandler(svc, logger.NewNopLogger())
	svc.On("CreateProduct", mock.Anything, mock.Anything).Return(domain.Product{}, apperror.NewConflictError("560"))

	rec := httptest.NewRecorder()
	h.CreateProductHandler(rec, httptest.NewRequest(http.MethodPost, "/v1/products",
		strings.NewReader(`{"barcode":"560","name":"Arroz","category":"Alimentar"}`)))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLookupBarcodeHandler_NotFound(t *testing.T) {
	svc := new(MockProductService)
	h := product.NewHandler(svc, logger.NewNopLogger())
	svc.On("LookupBarcode", mock.Anything, "000").Return(domain.Product{}, apperror.NewNotFoundError("000"))

	req := httptest.NewRequest(http.MethodGet, "/v1/products/barcode/000", nil)
	req.SetPathValue("barcode", "000")
	rec := httptest.NewRecorder()
	h.LookupBarcodeHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListProductsHandler_PassesCategory(t *testing.T) {
	svc := new(MockProductService)
	h := product.NewHandler(svc, logger.NewNopLogger())
	svc.On("ListProducts", mock.Anything, domain.CategoryCasa).Return([]domain.Product{{ID: "p1"}}, nil)

	rec := httptest.NewRecorder()
	h.ListProductsHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/products?category=Casa", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}
