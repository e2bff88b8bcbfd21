package productrepo_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lojasocial/internal/domain"
	"lojasocial/internal/pkg/logger"
	"lojasocial/internal/repository/productrepo"
)

// MockCache é um mock de cache.Client.
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockCache) GetInt(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}

func (m *MockCache) Incr(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

// Com cache HIT o repositório não toca no DB (aqui nil).
func TestFindByID_CacheHitSkipsDatabase(t *testing.T) {
	cached := domain.Product{ID: "p1", Barcode: "560", Name: "Arroz", Category: domain.CategoryAlimentar}
	raw, err := json.Marshal(cached)
	require.NoError(t, err)

	mockCache := new(MockCache)
	mockCache.On("Get", mock.Anything, "product:p1").Return(string(raw), nil)

	repo := productrepo.NewProductRepository(nil, mockCache, time.Second, 5*time.Minute, logger.NewNopLogger())

	got, err := repo.FindByID(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, cached.Name, got.Name)
	assert.Equal(t, domain.CategoryAlimentar, got.Category)
	mockCache.AssertExpectations(t)
}
