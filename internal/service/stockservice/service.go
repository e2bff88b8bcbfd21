package stockservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"lojasocial/internal/domain"
	apperror "lojasocial/internal/errors"
	"lojasocial/internal/pkg/logger"
	"lojasocial/internal/pkg/telemetry"
)

// StockRepository define o contrato que o ledger espera da camada de Persistência.
// Cada método mutável corre numa única transação.
type StockRepository interface {
	CreateStockItem(ctx context.Context, item domain.StockItem) (domain.StockItem, error)
	GetStockItem(ctx context.Context, id string) (domain.StockItem, error)
	Reserve(ctx context.Context, productID string, quantity int, now time.Time) (domain.ReservationPlan, error)
	Release(ctx context.Context, planID string, now time.Time) (bool, error)
	Commit(ctx context.Context, planID string, now time.Time) (bool, error)
	CommitAll(ctx context.Context, planIDs []string, now time.Time) (int, error)
	ExpiringWithin(ctx context.Context, from, to time.Time) ([]domain.StockItem, error)
	Availability(ctx context.Context, productID string, now time.Time) (domain.ProductAvailability, error)
}

// ProductCatalog é o subconjunto do catálogo usado na receção de stock.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
}

// CampaignFinder valida a campanha associada a um lote.
type CampaignFinder interface {
	GetCampaignByID(ctx context.Context, id string) (domain.Campaign, error)
}

// Service é o Stock Ledger: reservas FEFO, libertação, consumo e receção de lotes.
type Service struct {
	repo      StockRepository
	catalog   ProductCatalog
	campaigns CampaignFinder
	logger    logger.Logger
	now       func() time.Time

	tracer    trace.Tracer
	reserves  metric.Int64Counter
	releases  metric.Int64Counter
	commits   metric.Int64Counter
	shortages metric.Int64Counter
}

// Option configura o Service.
type Option func(*Service)

// WithClock substitui o relógio (testes).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService cria e retorna uma nova instância do Serviço de Estoque.
func NewService(repo StockRepository, catalog ProductCatalog, campaigns CampaignFinder, logger logger.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		catalog:   catalog,
		campaigns: campaigns,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		tracer:    telemetry.Tracer("ledger"),
		reserves:  telemetry.Counter("ledger", "ledger.reservations", "Planos de reserva criados"),
		releases:  telemetry.Counter("ledger", "ledger.releases", "Planos de reserva libertados"),
		commits:   telemetry.Counter("ledger", "ledger.commits", "Planos de reserva consumidos"),
		shortages: telemetry.Counter("ledger", "ledger.insufficient_stock", "Reservas recusadas por falta de stock"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reserve reserva quantity unidades do produto em FEFO. Tudo ou nada.
func (s *Service) Reserve(ctx context.Context, productID string, quantity int) (domain.ReservationPlan, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Reserve", trace.WithAttributes(
		attribute.String("product_id", productID),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	if quantity <= 0 {
		return domain.ReservationPlan{}, apperror.NewValidationError("A quantidade a reservar deve ser positiva.")
	}
	if strings.TrimSpace(productID) == "" {
		return domain.ReservationPlan{}, apperror.NewValidationError("O produto é obrigatório.")
	}

	plan, err := s.repo.Reserve(ctx, productID, quantity, s.now())
	if err != nil {
		telemetry.RecordError(span, err)
		var insufficient *apperror.InsufficientStockError
		if errors.As(err, &insufficient) {
			s.shortages.Add(ctx, 1)
			s.logger.Info("Reserva recusada por falta de stock.", map[string]interface{}{
				"product_id": productID, "requested": quantity, "available": insufficient.Available,
			})
			return domain.ReservationPlan{}, err
		}
		s.logger.Error("Falha ao reservar stock.", err)
		return domain.ReservationPlan{}, err
	}

	s.reserves.Add(ctx, 1)
	s.logger.Debug("Stock reservado.", map[string]interface{}{"plan_id": plan.ID, "product_id": productID, "lines": len(plan.Lines)})
	return plan, nil
}

// Release liberta um plano. É idempotente: planos já fechados não mexem nos contadores.
func (s *Service) Release(ctx context.Context, planID string) error {
	ctx, span := s.tracer.Start(ctx, "ledger.Release", trace.WithAttributes(attribute.String("plan_id", planID)))
	defer span.End()

	released, err := s.repo.Release(ctx, planID, s.now())
	if err != nil {
		telemetry.RecordError(span, err)
		s.logInvariant(err)
		return err
	}
	if released {
		s.releases.Add(ctx, 1)
	}
	return nil
}

// Commit consome um plano: as unidades saem fisicamente do armazém.
func (s *Service) Commit(ctx context.Context, planID string) error {
	ctx, span := s.tracer.Start(ctx, "ledger.Commit", trace.WithAttributes(attribute.String("plan_id", planID)))
	defer span.End()

	committed, err := s.repo.Commit(ctx, planID, s.now())
	if err != nil {
		telemetry.RecordError(span, err)
		s.logInvariant(err)
		return err
	}
	if committed {
		s.commits.Add(ctx, 1)
	}
	return nil
}

// CommitAll consome todos os planos de um pedido numa só transação.
// Se algum falhar nenhum é consumido e o pedido pode voltar ao estado anterior.
func (s *Service) CommitAll(ctx context.Context, planIDs []string) error {
	ctx, span := s.tracer.Start(ctx, "ledger.CommitAll", trace.WithAttributes(attribute.Int("plans", len(planIDs))))
	defer span.End()

	if len(planIDs) == 0 {
		return nil
	}
	committed, err := s.repo.CommitAll(ctx, planIDs, s.now())
	if err != nil {
		telemetry.RecordError(span, err)
		s.logInvariant(err)
		return err
	}
	s.commits.Add(ctx, int64(committed))
	return nil
}

// ExpiringWithin devolve os lotes com disponível > 0 a expirar em [agora, agora+days].
func (s *Service) ExpiringWithin(ctx context.Context, days int) ([]domain.StockItem, error) {
	if days < 0 {
		return nil, apperror.NewValidationError("O número de dias não pode ser negativo.")
	}
	now := s.now()
	return s.repo.ExpiringWithin(ctx, now, now.AddDate(0, 0, days))
}

// ReceiveStock regista a entrada de um novo lote.
func (s *Service) ReceiveStock(ctx context.Context, intake domain.StockIntake) (domain.StockItem, error) {
	s.logger.Debug("Iniciando receção de stock no serviço.", map[string]interface{}{
		"product_id": intake.ProductID,
		"quantity":   intake.Quantity,
	})

	// 1. Validação
	if intake.Quantity <= 0 {
		return domain.StockItem{}, apperror.NewValidationError("A quantidade recebida deve ser positiva.")
	}
	if strings.TrimSpace(intake.ProductID) == "" {
		return domain.StockItem{}, apperror.NewValidationError("O produto é obrigatório.")
	}
	if intake.ExpirationDate != nil && intake.ExpirationDate.Before(s.now()) {
		return domain.StockItem{}, apperror.NewValidationError("Não é possível receber um lote já expirado.")
	}

	// 2. O produto tem de existir no catálogo
	product, err := s.catalog.GetProduct(ctx, intake.ProductID)
	if err != nil {
		return domain.StockItem{}, err
	}
	if product == nil {
		return domain.StockItem{}, apperror.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe no catálogo.", intake.ProductID))
	}

	// 3. Campanha opcional
	if intake.CampaignID != nil && *intake.CampaignID != "" {
		if _, err := s.campaigns.GetCampaignByID(ctx, *intake.CampaignID); err != nil {
			return domain.StockItem{}, err
		}
	} else {
		intake.CampaignID = nil
	}

	barcode := strings.TrimSpace(intake.Barcode)
	if barcode == "" {
		barcode = product.Barcode
	}

	item, err := s.repo.CreateStockItem(ctx, domain.StockItem{
		Barcode:        barcode,
		ProductID:      product.ID,
		CampaignID:     intake.CampaignID,
		Quantity:       intake.Quantity,
		ExpirationDate: intake.ExpirationDate,
	})
	if err != nil {
		s.logger.Error("Falha ao registar lote no repositório.", err)
		return domain.StockItem{}, err
	}

	s.logger.Info("Lote recebido.", map[string]interface{}{"id": item.ID, "product_id": item.ProductID, "quantity": item.Quantity})
	return item, nil
}

// Availability soma o disponível de todos os lotes não expirados do produto.
func (s *Service) Availability(ctx context.Context, productID string) (domain.ProductAvailability, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return domain.ProductAvailability{}, err
	}
	if product == nil {
		return domain.ProductAvailability{}, apperror.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe no catálogo.", productID))
	}
	return s.repo.Availability(ctx, productID, s.now())
}

// GetStockItem devolve um lote.
func (s *Service) GetStockItem(ctx context.Context, id string) (domain.StockItem, error) {
	return s.repo.GetStockItem(ctx, id)
}

// Violações de invariante indicam um bug ou corrupção: são sempre registadas como erro.
func (s *Service) logInvariant(err error) {
	var violation *apperror.InvariantViolationError
	if errors.As(err, &violation) {
		s.logger.Error("Violação de invariante do ledger.", err)
	}
}
