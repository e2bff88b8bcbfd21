package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"lojasocial/internal/domain"
	apperror "lojasocial/internal/errors"
	"lojasocial/internal/pkg/logger"
)

// ProductRepository define o contrato que este Serviço espera da camada de Persistência (DB, Cache).
type ProductRepository interface {
	Save(ctx context.Context, product domain.Product) (domain.Product, error)
	FindByID(ctx context.Context, id string) (domain.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (domain.Product, error)
	List(ctx context.Context, category domain.Category) ([]domain.Product, error)
	Update(ctx context.Context, product domain.Product) (domain.Product, error)
}

// BarcodeLookup consulta uma base externa de produtos (ex: Open Food Facts).
type BarcodeLookup interface {
	Lookup(ctx context.Context, barcode string) (domain.Product, error)
}

// Service é o catálogo de produtos usado pelos pedidos, pelo scanner de validades e pela receção de stock.
type Service struct {
	repo   ProductRepository
	lookup BarcodeLookup
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do catálogo. lookup pode ser nil.
func NewService(repo ProductRepository, lookup BarcodeLookup, logger logger.Logger) *Service {
	return &Service{repo: repo, lookup: lookup, logger: logger}
}

// GetProduct devolve nil (sem erro) quando o produto não existe.
func (s *Service) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		var notFound *apperror.NotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetProductByID é a variante para a API: o produto inexistente é um 404.
func (s *Service) GetProductByID(ctx context.Context, id string) (domain.Product, error) {
	// 1. Validação de Formato
	if _, err := uuid.Parse(id); err != nil {
		return domain.Product{}, apperror.NewValidationError("O ID do produto deve ser um UUID válido.")
	}

	// 2. Delegação para o Repositório
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		var notFound *apperror.NotFoundError
		if errors.As(err, &notFound) {
			return domain.Product{}, apperror.NewNotFoundError(fmt.Sprintf("Produto com ID %s não foi encontrado.", id))
		}
		return domain.Product{}, err
	}
	return product, nil
}

// LookupBarcode procura primeiro no catálogo local e depois na base externa.
// O resultado externo é apenas uma sugestão: não é gravado.
func (s *Service) LookupBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.Product{}, apperror.NewValidationError("O código de barras é obrigatório.")
	}

	product, err := s.repo.FindByBarcode(ctx, barcode)
	if err == nil {
		return product, nil
	}
	var notFound *apperror.NotFoundError
	if !errors.As(err, &notFound) {
		return domain.Product{}, err
	}

	if s.lookup == nil {
		return domain.Product{}, err
	}

	s.logger.Debug("Produto não existe localmente. A consultar catálogo externo.", map[string]interface{}{"barcode": barcode})
	suggestion, err := s.lookup.Lookup(ctx, barcode)
	if err != nil {
		if !errors.As(err, &notFound) {
			s.logger.Warn("Falha na consulta ao catálogo externo.", map[string]interface{}{"barcode": barcode, "error": err.Error()})
		}
		return domain.Product{}, err
	}
	if suggestion.Category == "" {
		suggestion.Category = domain.CategoryAlimentar
	}
	return suggestion, nil
}

// CreateProduct valida e grava um novo produto.
func (s *Service) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if err := validateProduct(product); err != nil {
		return domain.Product{}, err
	}
	if strings.TrimSpace(product.Barcode) == "" {
		return domain.Product{}, apperror.NewValidationError("O código de barras é obrigatório.")
	}
	product.Barcode = strings.TrimSpace(product.Barcode)
	product.ID = uuid.New().String()

	created, err := s.repo.Save(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.logger.Info("Produto adicionado ao catálogo.", map[string]interface{}{"id": created.ID, "category": created.Category})
	return created, nil
}

// UpdateProduct altera nome, marca, categoria e imagem. O código de barras não muda.
func (s *Service) UpdateProduct(ctx context.Context, id string, product domain.Product) (domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Product{}, apperror.NewValidationError("O ID do produto deve ser um UUID válido.")
	}
	if err := validateProduct(product); err != nil {
		return domain.Product{}, err
	}
	product.ID = id
	return s.repo.Update(ctx, product)
}

// ListProducts lista o catálogo; categoria vazia devolve tudo.
func (s *Service) ListProducts(ctx context.Context, category domain.Category) ([]domain.Product, error) {
	if category != "" && !category.Valid() {
		return nil, apperror.NewValidationError(fmt.Sprintf("Categoria inválida: %s.", category))
	}
	return s.repo.List(ctx, category)
}

func validateProduct(product domain.Product) error {
	if strings.TrimSpace(product.Name) == "" {
		return apperror.NewValidationError("O nome do produto é obrigatório.")
	}
	if !product.Category.Valid() {
		return apperror.NewValidationError("A categoria deve ser Alimentar, Casa ou HigienePessoal.")
	}
	return nil
}
