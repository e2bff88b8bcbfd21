package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lojasocial/internal/catalog"
	"lojasocial/internal/domain"
	apperror "lojasocial/internal/errors"
	"lojasocial/internal/pkg/logger"
)

// MockProductRepository é uma implementação mock da interface ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Save(ctx context.Context, product domain.Product) (domain.Product, error) {
	args := m.Called(ctx, product)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductRepository) FindByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	args := m.Called(ctx, barcode)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, category domain.Category) ([]domain.Product, error) {
	args := m.Called(ctx, category)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	args := m.Called(ctx, product)
	return args.Get(0).(domain.Product), args.Error(1)
}

type MockLookup struct {
	mock.Mock
}

func (m *MockLookup) Lookup(ctx context.Context, barcode string) (domain.Product, error) {
	args := m.Called(ctx, barcode)
	return args.Get(0).(domain.Product), args.Error(1)
}

func TestGetProduct_MissIsNilWithoutError(t *testing.T) {
	mockRepo := new(MockProductRepository)
	svc := catalog.NewService(mockRepo, nil, logger.NewNopLogger())

	mockRepo.On("FindByID", mock.Anything, "p-x").Return(domain.Product{}, apperror.NewNotFoundError("p-x"))

	product, err := svc.GetProduct(context.Background(), "p-x")

	assert.NoError(t, err)
	assert.Nil(t, product)
	mockRepo.AssertExpectations(t)
}

func TestGetProduct_RepoErrorPropagates(t *testing.T) {
	mockRepo := new(MockProductRepository)
	svc := catalog.NewService(mockRepo, nil, logger.NewNopLogger())

	dbErr := apperror.NewDBError("Falha ao buscar produto no DB", errors.New("connection refused"))
	mockRepo.On("FindByID", mock.Anything, "p1").Return(domain.Product{}, dbErr)

	product, err := svc.GetProduct(context.Background(), "p1")

	assert.Nil(t, product)
	assert.IsType(t, &apperror.InternalError{}, err)
}

func TestGetProductByID_InvalidUUID(t *testing.T) {
	svc := catalog.NewService(new(MockProductRepository), nil, logger.NewNopLogger())

	_, err := svc.GetProductByID(context.Background(), "nao-e-uuid")

	assert.IsType(t, &apperror.ValidationError{}, err)
}

func TestLookupBarcode_LocalHitSkipsExternal(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockLookup := new(MockLookup)
	svc := catalog.NewService(mockRepo, mockLookup, logger.NewNopLogger())

	local := domain.Product{ID: uuid.New().String(), Barcode: "560", Name: "Atum", Category: domain.CategoryAlimentar}
	mockRepo.On("FindByBarcode", mock.Anything, "560").Return(local, nil)

	got, err := svc.LookupBarcode(context.Background(), "560")

	require.NoError(t, err)
	assert.Equal(t, local, got)
	mockLookup.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
}

func TestLookupBarcode_FallsBackToExternal(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockLookup := new(MockLookup)
	svc := catalog.NewService(mockRepo, mockLookup, logger.NewNopLogger())

	mockRepo.On("FindByBarcode", mock.Anything, "789").Return(domain.Product{}, apperror.NewNotFoundError("789"))
	mockLookup.On("Lookup", mock.Anything, "789").Return(domain.Product{Barcode: "789", Name: "Bolachas"}, nil)

	got, err := svc.LookupBarcode(context.Background(), "789")

	require.NoError(t, err)
	assert.Equal(t, "Bolachas", got.Name)
	assert.Equal(t, domain.CategoryAlimentar, got.Category)
	assert.Empty(t, got.ID)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestLookupBarcode_UnknownEverywhere(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockLookup := new(MockLookup)
	svc := catalog.NewService(mockRepo, mockLookup, logger.NewNopLogger())

	mockRepo.On("FindByBarcode", mock.Anything, "000").Return(domain.Product{}, apperror.NewNotFoundError("000"))
	mockLookup.On("Lookup", mock.Anything, "000").Return(domain.Product{}, apperror.NewNotFoundError("000"))

	_, err := svc.LookupBarcode(context.Background(), "000")

	assert.IsType(t, &apperror.NotFoundError{}, err)
}

func TestCreateProduct_Validation(t *testing.T) {
	svc := catalog.NewService(new(MockProductRepository), nil, logger.NewNopLogger())

	cases := map[string]domain.Product{
		"sem nome":           {Barcode: "1", Category: domain.CategoryCasa},
		"sem código":         {Name: "Detergente", Category: domain.CategoryCasa},
		"categoria inválida": {Name: "Detergente", Barcode: "1", Category: "Roupa"},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), p)
			assert.IsType(t, &apperror.ValidationError{}, err)
		})
	}
}

func TestCreateProduct_AssignsID(t *testing.T) {
	mockRepo := new(MockProductRepository)
	svc := catalog.NewService(mockRepo, nil, logger.NewNopLogger())

	mockRepo.On("Save", mock.Anything, mock.MatchedBy(func(p domain.Product) bool {
		_, err := uuid.Parse(p.ID)
		return err == nil && p.Barcode == "560"
	})).Return(domain.Product{ID: "new", Name: "Sabonete", Category: domain.CategoryHigienePessoal}, nil)

	created, err := svc.CreateProduct(context.Background(), domain.Product{Barcode: " 560 ", Name: "Sabonete", Category: domain.CategoryHigienePessoal})

	require.NoError(t, err)
	assert.Equal(t, "new", created.ID)
	mockRepo.AssertExpectations(t)
}

func TestListProducts_InvalidCategory(t *testing.T) {
	svc := catalog.NewService(new(MockProductRepository), nil, logger.NewNopLogger())

	_, err := svc.ListProducts(context.Background(), "Brinquedos")

	assert.IsType(t, &apperror.ValidationError{}, err)
}
