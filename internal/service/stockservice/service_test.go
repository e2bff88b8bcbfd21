package stockservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lojasocial/internal/domain"
	apperror "lojasocial/internal/errors"
	"lojasocial/internal/pkg/logger"
	"lojasocial/internal/service/stockservice"
)

// MockStockRepository é uma implementação mock da interface StockRepository
type MockStockRepository struct {
	mock.Mock
}

func (m *MockStockRepository) CreateStockItem(ctx context.Context, item domain.StockItem) (domain.StockItem, error) {
	args := m.Called(ctx, item)
	return args.Get(0).(domain.StockItem), args.Error(1)
}

func (m *MockStockRepository) GetStockItem(ctx context.Context, id string) (domain.StockItem, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.StockItem), args.Error(1)
}

func (m *MockStockRepository) Reserve(ctx context.Context, productID string, quantity int, now time.Time) (domain.ReservationPlan, error) {
	args := m.Called(ctx, productID, quantity, now)
	return args.Get(0).(domain.ReservationPlan), args.Error(1)
}

func (m *MockStockRepository) Release(ctx context.Context, planID string, now time.Time) (bool, error) {
	args := m.Called(ctx, planID, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockStockRepository) Commit(ctx context.Context, planID string, now time.Time) (bool, error) {
	args := m.Called(ctx, planID, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockStockRepository) CommitAll(ctx context.Context, planIDs []string, now time.Time) (int, error) {
	args := m.Called(ctx, planIDs, now)
	return args.Int(0), args.Error(1)
}

func (m *MockStockRepository) ExpiringWithin(ctx context.Context, from, to time.Time) ([]domain.StockItem, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]domain.StockItem), args.Error(1)
}

func (m *MockStockRepository) Availability(ctx context.Context, productID string, now time.Time) (domain.ProductAvailability, error) {
	args := m.Called(ctx, productID, now)
	return args.Get(0).(domain.ProductAvailability), args.Error(1)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	args := m.Called(ctx, productID)
	p, _ := args.Get(0).(*domain.Product)
	return p, args.Error(1)
}

type MockCampaigns struct {
	mock.Mock
}

func (m *MockCampaigns) GetCampaignByID(ctx context.Context, id string) (domain.Campaign, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Campaign), args.Error(1)
}

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newService() (*stockservice.Service, *MockStockRepository, *MockCatalog, *MockCampaigns) {
	repo := new(MockStockRepository)
	cat := new(MockCatalog)
	camp := new(MockCampaigns)
	svc := stockservice.NewService(repo, cat, camp, logger.NewNopLogger(),
		stockservice.WithClock(func() time.Time { return fixedNow }))
	return svc, repo, cat, camp
}

func TestReserve_NonPositiveQuantityIsValidation(t *testing.T) {
	svc, repo, _, _ := newService()

	_, err := svc.Reserve(context.Background(), "p1", 0)

	assert.IsType(t, &apperror.ValidationError{}, err)
	repo.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReserve_PassesClockAndReturnsPlan(t *testing.T) {
	svc, repo, _, _ := newService()
	plan := domain.ReservationPlan{ID: "plan-1", ProductID: "p1", Quantity: 3, Status: domain.ReservationHeld,
		Lines: []domain.ReservationLine{{StockItemID: "a", Quantity: 3}}}
	repo.On("Reserve", mock.Anything, "p1", 3, fixedNow).Return(plan, nil)

	got, err := svc.Reserve(context.Background(), "p1", 3)

	require.NoError(t, err)
	assert.Equal(t, plan, got)
	repo.AssertExpectations(t)
}

func TestReserve_InsufficientStockPropagates(t *testing.T) {
	svc, repo, _, _ := newService()
	repo.On("Reserve", mock.Anything, "p1", 5, fixedNow).
		Return(domain.ReservationPlan{}, apperror.NewInsufficientStockError("p1", 5, 2))

	_, err := svc.Reserve(context.Background(), "p1", 5)

	var insufficient *apperror.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2, insufficient.Available)
}

func TestRelease_IdempotentNoOp(t *testing.T) {
	svc, repo, _, _ := newService()
	repo.On("Release", mock.Anything, "plan-1", fixedNow).Return(false, nil)

	assert.NoError(t, svc.Release(context.Background(), "plan-1"))
	assert.NoError(t, svc.Release(context.Background(), "plan-1"))
	repo.AssertNumberOfCalls(t, "Release", 2)
}

func TestCommit_InvariantViolationPropagates(t *testing.T) {
	svc, repo, _, _ := newService()
	repo.On("Commit", mock.Anything, "plan-1", fixedNow).
		Return(false, apperror.NewInvariantViolationError("commit de plano libertado"))

	err := svc.Commit(context.Background(), "plan-1")

	assert.IsType(t, &apperror.InvariantViolationError{}, err)
}

func TestCommitAll_OneCallForAllPlans(t *testing.T) {
	svc, repo, _, _ := newService()
	repo.On("CommitAll", mock.Anything, []string{"plan-1", "plan-2"}, fixedNow).Return(2, nil).Once()

	require.NoError(t, svc.CommitAll(context.Background(), []string{"plan-1", "plan-2"}))
	require.NoError(t, svc.CommitAll(context.Background(), nil))

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything, mock.Anything)
}

func TestExpiringWithin_WindowFromClock(t *testing.T) {
	svc, repo, _, _ := newService()
	repo.On("ExpiringWithin", mock.Anything, fixedNow, fixedNow.AddDate(0, 0, 3)).Return([]domain.StockItem{{ID: "a"}}, nil)

	items, err := svc.ExpiringWithin(context.Background(), 3)

	require.NoError(t, err)
	assert.Len(t, items, 1)
	repo.AssertExpectations(t)
}

func TestExpiringWithin_NegativeDays(t *testing.T) {
	svc, _, _, _ := newService()

	_, err := svc.ExpiringWithin(context.Background(), -1)

	assert.IsType(t, &apperror.ValidationError{}, err)
}

func TestReceiveStock_UnknownProductIsNotFound(t *testing.T) {
	svc, repo, cat, _ := newService()
	cat.On("GetProduct", mock.Anything, "p-x").Return(nil, nil)

	_, err := svc.ReceiveStock(context.Background(), domain.StockIntake{ProductID: "p-x", Quantity: 4})

	assert.IsType(t, &apperror.NotFoundError{}, err)
	repo.AssertNotCalled(t, "CreateStockItem", mock.Anything, mock.Anything)
}

func TestReceiveStock_ExpiredBatchRejected(t *testing.T) {
	svc, _, _, _ := newService()
	yesterday := fixedNow.AddDate(0, 0, -1)

	_, err := svc.ReceiveStock(context.Background(), domain.StockIntake{ProductID: "p1", Quantity: 4, ExpirationDate: &yesterday})

	assert.IsType(t, &apperror.ValidationError{}, err)
}

func TestReceiveStock_UsesProductBarcodeAndCampaign(t *testing.T) {
	svc, repo, cat, camp := newService()
	campaignID := "c1"
	cat.On("GetProduct", mock.Anything, "p1").Return(&domain.Product{ID: "p1", Barcode: "560"}, nil)
	camp.On("GetCampaignByID", mock.Anything, "c1").Return(domain.Campaign{ID: "c1"}, nil)
	repo.On("CreateStockItem", mock.Anything, mock.MatchedBy(func(it domain.StockItem) bool {
		return it.Barcode == "560" && it.Quantity == 4 && it.CampaignID != nil && *it.CampaignID == "c1"
	})).Return(domain.StockItem{ID: "s1", ProductID: "p1", Quantity: 4}, nil)

	item, err := svc.ReceiveStock(context.Background(), domain.StockIntake{ProductID: "p1", Quantity: 4, CampaignID: &campaignID})

	require.NoError(t, err)
	assert.Equal(t, "s1", item.ID)
	repo.AssertExpectations(t)
	camp.AssertExpectations(t)
}

func TestReceiveStock_UnknownCampaign(t *testing.T) {
	svc, repo, cat, camp := newService()
	campaignID := "c-x"
	cat.On("GetProduct", mock.Anything, "p1").Return(&domain.Product{ID: "p1", Barcode: "560"}, nil)
	camp.On("GetCampaignByID", mock.Anything, "c-x").Return(domain.Campaign{}, apperror.NewNotFoundError("c-x"))

	_, err := svc.ReceiveStock(context.Background(), domain.StockIntake{ProductID: "p1", Quantity: 1, CampaignID: &campaignID})

	assert.IsType(t, &apperror.NotFoundError{}, err)
	repo.AssertNotCalled(t, "CreateStockItem", mock.Anything, mock.Anything)
}
