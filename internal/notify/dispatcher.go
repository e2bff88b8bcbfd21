package notify

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"lojasocial/internal/domain"
	"lojasocial/internal/pkg/logger"
	"lojasocial/internal/pkg/telemetry"
)

// Notifier é o colaborador externo que recebe os eventos do domínio. Fire-and-forget:
// uma falha de entrega nunca chega a quem notifica.
type Notifier interface {
	Notify(ctx context.Context, eventType domain.EventType, payload interface{})
}

// Sink entrega um evento a um destino concreto (websocket, push, email...).
type Sink interface {
	Deliver(ctx context.Context, event domain.Event) error
}

// Dispatcher é uma fila limitada drenada por uma única goroutine.
type Dispatcher struct {
	queue   chan domain.Event
	sinks   []Sink
	logger  logger.Logger
	now     func() time.Time
	dropped metric.Int64Counter
}

// NewDispatcher cria a fila com capacidade size.
func NewDispatcher(size int, logger logger.Logger, sinks ...Sink) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		queue:   make(chan domain.Event, size),
		sinks:   sinks,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		dropped: telemetry.Counter("notify", "notify.dropped", "Eventos descartados por fila cheia"),
	}
}

// Notify enfileira o evento sem bloquear. Com a fila cheia o evento é descartado.
func (d *Dispatcher) Notify(ctx context.Context, eventType domain.EventType, payload interface{}) {
	event := domain.Event{Type: eventType, Payload: payload, OccurredAt: d.now()}
	select {
	case d.queue <- event:
	default:
		d.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(eventType))))
		d.logger.Warn("Fila de notificações cheia. Evento descartado.", map[string]interface{}{"type": eventType})
	}
}

// Run drena a fila até ctx terminar; os eventos ainda na fila são entregues antes de sair.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("Dispatcher de notificações iniciado.", map[string]interface{}{"capacity": cap(d.queue), "sinks": len(d.sinks)})
	for {
		select {
		case event := <-d.queue:
			d.deliver(ctx, event)
		case <-ctx.Done():
			d.drain()
			d.logger.Info("Dispatcher de notificações terminado.", nil)
			return
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event := <-d.queue:
			d.deliver(ctx, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event domain.Event) {
	for _, sink := range d.sinks {
		if err := sink.Deliver(ctx, event); err != nil {
			d.logger.Warn("Falha ao entregar notificação.", map[string]interface{}{"type": event.Type, "error": err.Error()})
		}
	}
}

// LogSink regista cada evento no log. Útil quando não há canais ligados.
type LogSink struct {
	Logger logger.Logger
}

// Deliver implementa Sink.
func (s LogSink) Deliver(_ context.Context, event domain.Event) error {
	s.Logger.Info("Notificação emitida.", map[string]interface{}{"type": event.Type, "occurred_at": event.OccurredAt})
	return nil
}
