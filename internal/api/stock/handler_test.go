package stock_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lojasocial/internal/api/stock"
	"lojasocial/internal/domain"
	apperror "lojasocial/internal/errors"
	"lojasocial/internal/pkg/logger"
)

type MockStockService struct {
	mock.Mock
}

func (m *MockStockService) ReceiveStock(ctx context.Context, intake domain.StockIntake) (domain.StockItem, error) {
	args := m.Called(ctx, intake)
	return args.Get(0).(domain.StockItem), args.Error(1)
}

func (m *MockStockService) Availability(ctx context.Context, productID string) (domain.ProductAvailability, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(domain.ProductAvailability), args.Error(1)
}

func (m *MockStockService) GetStockItem(ctx context.Context, id string) (domain.StockItem, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.StockItem), args.Error(1)
}

type MockExpiry struct {
	mock.Mock
}

func (m *MockExpiry) Scan(ctx context.Context, days int) ([]domain.ExpiringItemWithProduct, error) {
	args := m.Called(ctx, days)
	return args.Get(0).([]domain.ExpiringItemWithProduct), args.Error(1)
}

func TestExpiringHandler_PassesDays(t *testing.T) {
	expiry := new(MockExpiry)
	h := stock.NewHandler(new(MockStockService), expiry, logger.NewNopLogger())
	expiry.On("Scan", mock.Anything, 3).Return([]domain.ExpiringItemWithProduct{
		{StockItem: domain.StockItem{ID: "s1", Quantity: 5, ReservedQuantity: 2}, DaysUntilExpiration: 2},
	}, nil)

	rec := httptest.NewRecorder()
	h.ExpiringHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/stock/expiring?days=3", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.ExpiringItemWithProduct
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].StockItem.Available())
}

func TestExpiringHandler_DefaultWhenMissing(t *testing.T) {
	expiry := new(MockExpiry)
	h := stock.NewHandler(new(MockStockService), expiry, logger.NewNopLogger())
	expiry.On("Scan", mock.Anything, 0).Return([]domain.ExpiringItemWithProduct{}, nil)

	rec := httptest.NewRecorder()
	h.ExpiringHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/stock/expiring", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	expiry.AssertExpectations(t)
}

func TestExpiringHandler_InvalidDays(t *testing.T) {
	h := stock.NewHandler(new(MockStockService), new(MockExpiry), logger.NewNopLogger())

	for _, q := range []string{"abc", "-1"} {
		rec := httptest.NewRecorder()
		h.ExpiringHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/stock/expiring?days="+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestReceiveStockHandler_Created(t *testing.T) {
	svc := new(MockStockService)
	h := stock.NewHandler(svc, new(MockExpiry), logger.NewNopLogger())
	svc.On("ReceiveStock", mock.Anything, mock.MatchedBy(func(in domain.StockIntake) bool {
		return in.ProductID == "p1" && in.Quantity == 12
	})).Return(domain.StockItem{ID: "s1", ProductID: "p1", Quantity: 12}, nil)

	rec := httptest.NewRecorder()
	h.ReceiveStockHandler(rec, httptest.NewRequest(http.MethodPost, "/v1/stock/items",
		strings.NewReader(`{"product_id":"p1","quantity":12,"expiration_date":"2025-02-01T00:00:00Z"}`)))

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAvailabilityHandler_NotFound(t *testing.T) {
	svc := new(MockStockService)
	h := stock.NewHandler(svc, new(MockExpiry), logger.NewNopLogger())
	svc.On("Availability", mock.Anything, "p-x").Return(domain.ProductAvailability{}, apperror.NewNotFoundError("p-x"))

	req := httptest.NewRequest(http.MethodGet, "/v1/stock/products/p-x/availability", nil)
	req.SetPathValue("productId", "p-x")
	rec := httptest.NewRecorder()
	h.AvailabilityHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
