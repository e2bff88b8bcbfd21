package expiryservice

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"lojasocial/internal/domain"
	"lojasocial/internal/notify"
	"lojasocial/internal/pkg/logger"
	"lojasocial/internal/pkg/telemetry"
)

// DefaultThresholdDays é a janela usada quando days <= 0.
const DefaultThresholdDays = 3

// StockSource é o subconjunto do ledger lido pelo scanner.
type StockSource interface {
	ExpiringWithin(ctx context.Context, days int) ([]domain.StockItem, error)
}

// ProductCatalog resolve produtos; nil significa inexistente.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
}

// Service procura lotes perto da validade. Só lê: nunca altera o ledger.
type Service struct {
	stock         StockSource
	catalog       ProductCatalog
	notifier      notify.Notifier
	logger        logger.Logger
	thresholdDays int
	now           func() time.Time
	tracer        trace.Tracer
}

// Option configura o Service.
type Option func(*Service)

// WithThresholdDays altera a janela por omissão.
func WithThresholdDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.thresholdDays = days
		}
	}
}

// WithClock substitui o relógio (testes).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService cria o scanner de validades.
func NewService(stock StockSource, catalog ProductCatalog, notifier notify.Notifier, logger logger.Logger, opts ...Option) *Service {
	s := &Service{
		stock:         stock,
		catalog:       catalog,
		notifier:      notifier,
		logger:        logger,
		thresholdDays: DefaultThresholdDays,
		now:           func() time.Time { return time.Now().UTC() },
		tracer:        telemetry.Tracer("expiry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan devolve os lotes com disponível a expirar nos próximos days dias, juntos com o produto,
// ordenados por dias até expirar, produto e lote.
func (s *Service) Scan(ctx context.Context, days int) ([]domain.ExpiringItemWithProduct, error) {
	if days <= 0 {
		days = s.thresholdDays
	}
	ctx, span := s.tracer.Start(ctx, "expiry.Scan", trace.WithAttributes(attribute.Int("days", days)))
	defer span.End()

	items, err := s.stock.ExpiringWithin(ctx, days)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	now := s.now()
	products := make(map[string]*domain.Product)
	result := make([]domain.ExpiringItemWithProduct, 0, len(items))
	for _, item := range items {
		product, cached := products[item.ProductID]
		if !cached {
			product, err = s.catalog.GetProduct(ctx, item.ProductID)
			if err != nil {
				telemetry.RecordError(span, err)
				return nil, err
			}
			products[item.ProductID] = product
		}
		if product == nil {
			s.logger.Warn("Lote com produto inexistente no catálogo. Ignorado.", map[string]interface{}{
				"stock_item_id": item.ID, "product_id": item.ProductID,
			})
			continue
		}
		result = append(result, domain.ExpiringItemWithProduct{
			StockItem:           item,
			Product:             *product,
			DaysUntilExpiration: item.DaysUntilExpiration(now),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.DaysUntilExpiration != b.DaysUntilExpiration {
			return a.DaysUntilExpiration < b.DaysUntilExpiration
		}
		if a.StockItem.ProductID != b.StockItem.ProductID {
			return a.StockItem.ProductID < b.StockItem.ProductID
		}
		return a.StockItem.ID < b.StockItem.ID
	})

	span.SetAttributes(attribute.Int("found", len(result)))
	return result, nil
}

// Run corre Scan de imediato e depois a cada interval, até ctx terminar.
// Cada varrimento com resultados emite um evento stock.expiring.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	s.logger.Info("Scanner de validades iniciado.", map[string]interface{}{"interval": interval.String(), "days": s.thresholdDays})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.scanAndNotify(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info("Scanner de validades terminado.", nil)
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) scanAndNotify(ctx context.Context) {
	items, err := s.Scan(ctx, s.thresholdDays)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("Falha no varrimento de validades.", err)
		}
		return
	}
	if len(items) == 0 {
		s.logger.Debug("Nenhum lote perto da validade.", nil)
		return
	}

	s.logger.Info("Lotes perto da validade encontrados.", map[string]interface{}{"count": len(items), "days": s.thresholdDays})
	if s.notifier != nil {
		s.notifier.Notify(ctx, domain.EventStockExpiring, domain.ExpiringStockEvent{ThresholdDays: s.thresholdDays, Items: items})
	}
}
