package requestservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"lojasocial/internal/domain"
	apperror "lojasocial/internal/errors"
	"lojasocial/internal/notify"
	"lojasocial/internal/pkg/logger"
	"lojasocial/internal/pkg/telemetry"
)

// DefaultItemCap é o limite de unidades por pedido quando a configuração não indica outro.
const DefaultItemCap = 10

// RequestRepository define o contrato que o Serviço de Pedidos espera da camada de Persistência.
type RequestRepository interface {
	Create(ctx context.Context, req domain.Request) (domain.Request, error)
	Get(ctx context.Context, id string) (domain.Request, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Request, error)
	ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Request, error)
	CompareAndSwapStatus(ctx context.Context, change domain.StatusChange, expectedVersion int) (domain.Request, error)
}

// Ledger é o subconjunto do Stock Ledger usado pelos pedidos.
type Ledger interface {
	Reserve(ctx context.Context, productID string, quantity int) (domain.ReservationPlan, error)
	Release(ctx context.Context, planID string) error
	// CommitAll consome todos os planos numa só transação: ou todos, ou nenhum.
	CommitAll(ctx context.Context, planIDs []string) error
}

// ProductCatalog resolve produtos; nil significa inexistente.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
}

// Service implementa o ciclo de vida de um pedido: carrinho, reserva, aceitação e levantamento.
type Service struct {
	repo     RequestRepository
	ledger   Ledger
	catalog  ProductCatalog
	notifier notify.Notifier
	logger   logger.Logger
	itemCap  int
	now      func() time.Time

	tracer      trace.Tracer
	submitted   metric.Int64Counter
	transitions metric.Int64Counter
	rollbacks   metric.Int64Counter
}

// Option configura o Service.
type Option func(*Service)

// WithItemCap altera o limite de unidades por pedido.
func WithItemCap(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.itemCap = limit
		}
	}
}

// WithClock substitui o relógio (testes).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService cria e retorna uma nova instância do Serviço de Pedidos.
func NewService(repo RequestRepository, ledger Ledger, catalog ProductCatalog, notifier notify.Notifier, logger logger.Logger, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		ledger:      ledger,
		catalog:     catalog,
		notifier:    notifier,
		logger:      logger,
		itemCap:     DefaultItemCap,
		now:         func() time.Time { return time.Now().UTC() },
		tracer:      telemetry.Tracer("requests"),
		submitted:   telemetry.Counter("requests", "requests.submitted", "Pedidos submetidos com sucesso"),
		transitions: telemetry.Counter("requests", "requests.transitions", "Transições de estado aplicadas"),
		rollbacks:   telemetry.Counter("requests", "requests.rollbacks", "Transições revertidas por falha no ledger"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit valida o carrinho, reserva stock por produto e grava o pedido em Submitted.
// Tudo ou nada: qualquer falha liberta as reservas já feitas nesta submissão.
func (s *Service) Submit(ctx context.Context, userID string, items []domain.CartItem) (domain.Request, error) {
	ctx, span := s.tracer.Start(ctx, "requests.Submit", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.Int("lines", len(items)),
	))
	defer span.End()

	// 1. Validação do carrinho
	if strings.TrimSpace(userID) == "" {
		return domain.Request{}, apperror.NewValidationError("O utilizador é obrigatório.")
	}
	if len(items) == 0 {
		return domain.Request{}, apperror.NewEmptyCartError()
	}
	// O total acumulado pára assim que passa o limite, por isso nunca transborda.
	total := 0
	for i, it := range items {
		if strings.TrimSpace(it.ProductID) == "" {
			return domain.Request{}, apperror.NewValidationError(fmt.Sprintf("Linha %d sem produto.", i+1))
		}
		if it.Quantity <= 0 {
			return domain.Request{}, apperror.NewValidationError(fmt.Sprintf("Linha %d com quantidade inválida (%d).", i+1, it.Quantity))
		}
		if it.Quantity > s.itemCap-total {
			return domain.Request{}, apperror.NewCapExceededError(domain.TotalQuantity(items), s.itemCap)
		}
		total += it.Quantity
	}

	// 2. Resolução dos produtos (categoria congelada no pedido)
	lines := domain.AggregateCart(items)
	details := make([]domain.RequestItemDetail, 0, len(lines))
	for _, line := range lines {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			telemetry.RecordError(span, err)
			return domain.Request{}, err
		}
		if product == nil {
			return domain.Request{}, apperror.NewValidationError(fmt.Sprintf("Produto %s não existe no catálogo.", line.ProductID))
		}
		details = append(details, domain.RequestItemDetail{
			ProductID:        line.ProductID,
			Quantity:         line.Quantity,
			CategorySnapshot: product.Category,
		})
	}

	// 3. Uma reserva por produto distinto
	planIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		plan, err := s.ledger.Reserve(ctx, line.ProductID, line.Quantity)
		if err != nil {
			telemetry.RecordError(span, err)
			s.releaseAll(ctx, planIDs)
			return domain.Request{}, err
		}
		planIDs = append(planIDs, plan.ID)
	}

	// 4. Persistência
	now := s.now()
	req := domain.Request{
		ID:             uuid.New().String(),
		UserID:         userID,
		Status:         domain.StatusSubmitted,
		SubmissionDate: now,
		Items:          details,
		ReservationIDs: planIDs,
	}
	created, err := s.repo.Create(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("Falha ao gravar pedido. A libertar reservas.", err)
		s.releaseAll(ctx, planIDs)
		return domain.Request{}, err
	}

	s.submitted.Add(ctx, 1)
	s.logger.Info("Pedido submetido.", map[string]interface{}{"id": created.ID, "user_id": userID, "products": len(lines)})
	s.notify(ctx, domain.EventRequestSubmitted, created)
	return created, nil
}

// Accept aceita o pedido. A data de levantamento é opcional e pode ser marcada depois
// com ReschedulePickup.
func (s *Service) Accept(ctx context.Context, id string, scheduledDate *time.Time) (domain.Request, error) {
	t := stateChange{
		requestID: id,
		to:        domain.StatusPendingPickup,
		event:     domain.EventRequestAccepted,
	}
	if scheduledDate != nil {
		date := *scheduledDate
		t.validate = func() error { return s.validatePickupDate(date) }
		t.apply = func(c *domain.StatusChange) {
			c.ScheduledPickupDate = &date
		}
	}
	return s.transition(ctx, t)
}

// Reject recusa o pedido e liberta as reservas.
func (s *Service) Reject(ctx context.Context, id, reason string) (domain.Request, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Request{}, apperror.NewValidationError("O motivo da recusa é obrigatório.")
	}
	return s.transition(ctx, stateChange{
		requestID: id,
		to:        domain.StatusRejected,
		event:     domain.EventRequestRejected,
		apply: func(c *domain.StatusChange) {
			c.RejectionReason = &reason
		},
		effect: s.releasePlans,
	})
}

// Complete regista o levantamento: as reservas passam a consumo definitivo.
func (s *Service) Complete(ctx context.Context, id string) (domain.Request, error) {
	return s.transition(ctx, stateChange{
		requestID: id,
		to:        domain.StatusCompleted,
		event:     domain.EventRequestCompleted,
		effect:    s.commitPlans,
	})
}

// Cancel só pode ser pedido pelo dono. A posse é verificada antes da transição.
func (s *Service) Cancel(ctx context.Context, id, requestedBy string) (domain.Request, error) {
	return s.transition(ctx, stateChange{
		requestID: id,
		to:        domain.StatusCancelled,
		event:     domain.EventRequestCancelled,
		guard: func(req domain.Request) error {
			if req.UserID != requestedBy {
				return apperror.NewNotOwnerError(fmt.Sprintf("Só o autor pode cancelar o pedido %s.", req.ID))
			}
			return nil
		},
		effect: s.releasePlans,
	})
}

// ReschedulePickup altera a data de levantamento de um pedido já aceite.
func (s *Service) ReschedulePickup(ctx context.Context, id string, scheduledDate time.Time) (domain.Request, error) {
	return s.transition(ctx, stateChange{
		requestID: id,
		from:      domain.StatusPendingPickup,
		to:        domain.StatusPendingPickup,
		event:     domain.EventRequestRescheduled,
		validate:  func() error { return s.validatePickupDate(scheduledDate) },
		apply: func(c *domain.StatusChange) {
			c.ScheduledPickupDate = &scheduledDate
		},
	})
}

// Get devolve o pedido.
func (s *Service) Get(ctx context.Context, id string) (domain.Request, error) {
	return s.repo.Get(ctx, id)
}

// GetForUser devolve o pedido se quem pede for o dono ou da equipa.
func (s *Service) GetForUser(ctx context.Context, id, userID string, role domain.UserRole) (domain.Request, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Request{}, err
	}
	if !role.IsStaff() && req.UserID != userID {
		return domain.Request{}, apperror.NewNotOwnerError(fmt.Sprintf("O pedido %s pertence a outro utilizador.", id))
	}
	return req, nil
}

// ListByUser devolve o histórico de um beneficiário.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Request, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.NewValidationError("O utilizador é obrigatório.")
	}
	return s.repo.ListByUser(ctx, userID)
}

// ListByStatus devolve a fila de trabalho da equipa para um estado.
func (s *Service) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Request, error) {
	if !status.Valid() {
		return nil, apperror.NewValidationError(fmt.Sprintf("Estado inválido: %s.", status))
	}
	return s.repo.ListByStatus(ctx, status)
}

// stateChange descreve uma mudança de estado.
// from vazio significa "o estado atual, desde que a tabela de transições permita to".
type stateChange struct {
	requestID string
	from      domain.RequestStatus
	to        domain.RequestStatus
	event     domain.EventType
	guard     func(domain.Request) error
	validate  func() error
	apply     func(*domain.StatusChange)
	effect    func(ctx context.Context, planIDs []string) error
}

// transition aplica o CAS antes do efeito no ledger. Se o efeito falhar o estado é reposto.
func (s *Service) transition(ctx context.Context, t stateChange) (domain.Request, error) {
	ctx, span := s.tracer.Start(ctx, "requests.Transition", trace.WithAttributes(
		attribute.String("request_id", t.requestID),
		attribute.String("to", string(t.to)),
	))
	defer span.End()

	// 1. Estado atual
	req, err := s.repo.Get(ctx, t.requestID)
	if err != nil {
		telemetry.RecordError(span, err)
		return domain.Request{}, err
	}

	// 2. Regras de negócio
	if t.guard != nil {
		if err := t.guard(req); err != nil {
			return domain.Request{}, err
		}
	}
	if t.from != "" {
		if req.Status != t.from {
			return domain.Request{}, apperror.NewInvalidTransitionError(string(req.Status), string(t.to))
		}
	} else if !req.Status.CanTransitionTo(t.to) {
		return domain.Request{}, apperror.NewInvalidTransitionError(string(req.Status), string(t.to))
	}
	// Os dados da transição só são validados depois de se saber que ela é possível.
	if t.validate != nil {
		if err := t.validate(); err != nil {
			return domain.Request{}, err
		}
	}

	// 3. Compare-and-swap
	change := domain.StatusChange{
		RequestID:           req.ID,
		From:                req.Status,
		To:                  t.to,
		ScheduledPickupDate: req.ScheduledPickupDate,
		RejectionReason:     req.RejectionReason,
	}
	if t.apply != nil {
		t.apply(&change)
	}
	updated, err := s.repo.CompareAndSwapStatus(ctx, change, req.Version)
	if err != nil {
		telemetry.RecordError(span, err)
		return domain.Request{}, err
	}

	// 4. Efeito no ledger
	if t.effect != nil {
		if err := t.effect(ctx, req.ReservationIDs); err != nil {
			telemetry.RecordError(span, err)
			s.revert(ctx, req, updated)
			return domain.Request{}, err
		}
	}

	updated.Items = req.Items
	updated.ReservationIDs = req.ReservationIDs

	s.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("to", string(t.to))))
	s.logger.Info("Pedido mudou de estado.", map[string]interface{}{"id": req.ID, "from": req.Status, "to": t.to})
	s.notify(ctx, t.event, updated)
	return updated, nil
}

// revert repõe o estado anterior depois de uma falha no ledger.
func (s *Service) revert(ctx context.Context, original, updated domain.Request) {
	back := domain.StatusChange{
		RequestID:           original.ID,
		From:                updated.Status,
		To:                  original.Status,
		ScheduledPickupDate: original.ScheduledPickupDate,
		RejectionReason:     original.RejectionReason,
	}
	if _, err := s.repo.CompareAndSwapStatus(context.WithoutCancel(ctx), back, updated.Version); err != nil {
		s.logger.Error(fmt.Sprintf("Falha ao repor o estado %s do pedido %s.", original.Status, original.ID), err)
		return
	}
	s.rollbacks.Add(ctx, 1)
	s.logger.Warn("Transição revertida por falha no ledger.", map[string]interface{}{
		"id": original.ID, "restored": original.Status, "attempted": updated.Status,
	})
}

func (s *Service) releasePlans(ctx context.Context, planIDs []string) error {
	for _, id := range planIDs {
		if err := s.ledger.Release(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// commitPlans consome as reservas de uma vez. Como o ledger não deixa commits parciais,
// repor o estado após uma falha nunca deixa stock consumido num pedido não concluído.
func (s *Service) commitPlans(ctx context.Context, planIDs []string) error {
	if err := s.ledger.CommitAll(ctx, planIDs); err != nil {
		var violation *apperror.InvariantViolationError
		if errors.As(err, &violation) {
			s.logger.Error(fmt.Sprintf("Consumo dos planos %v violou o ledger.", planIDs), err)
		}
		return err
	}
	return nil
}

// releaseAll é a compensação da submissão: erros são registados, nunca devolvidos.
// Corre mesmo que o pedido HTTP tenha sido cancelado.
func (s *Service) releaseAll(ctx context.Context, planIDs []string) {
	ctx = context.WithoutCancel(ctx)
	for _, id := range planIDs {
		if err := s.ledger.Release(ctx, id); err != nil {
			s.logger.Error(fmt.Sprintf("Falha ao libertar reserva %s durante a compensação.", id), err)
		}
	}
}

func (s *Service) validatePickupDate(date time.Time) error {
	if date.IsZero() {
		return apperror.NewValidationError("A data de levantamento é obrigatória.")
	}
	today := s.now().Truncate(24 * time.Hour)
	if date.Before(today) {
		return apperror.NewValidationError("A data de levantamento não pode estar no passado.")
	}
	return nil
}

func (s *Service) notify(ctx context.Context, eventType domain.EventType, req domain.Request) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, eventType, domain.RequestEvent{
		RequestID:           req.ID,
		UserID:              req.UserID,
		Status:              req.Status,
		ScheduledPickupDate: req.ScheduledPickupDate,
		RejectionReason:     req.RejectionReason,
	})
}
