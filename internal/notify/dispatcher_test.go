package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lojasocial/internal/domain"
	"lojasocial/internal/notify"
	"lojasocial/internal/pkg/logger"
)

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (s *recordingSink) Deliver(_ context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) types() []domain.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EventType, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

func runUntilDrained(t *testing.T, d *notify.Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("o dispatcher não terminou")
	}
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	sink := &recordingSink{}
	d := notify.NewDispatcher(8, logger.NewNopLogger(), sink)

	d.Notify(context.Background(), domain.EventRequestSubmitted, domain.RequestEvent{RequestID: "r1"})
	d.Notify(context.Background(), domain.EventRequestAccepted, domain.RequestEvent{RequestID: "r1"})
	runUntilDrained(t, d)

	assert.Equal(t, []domain.EventType{domain.EventRequestSubmitted, domain.EventRequestAccepted}, sink.types())
}

func TestDispatcher_FullQueueDropsWithoutBlocking(t *testing.T) {
	sink := &recordingSink{}
	d := notify.NewDispatcher(2, logger.NewNopLogger(), sink)

	for i := 0; i < 5; i++ {
		d.Notify(context.Background(), domain.EventRequestSubmitted, nil)
	}
	runUntilDrained(t, d)

	assert.Len(t, sink.types(), 2)
}

func TestDispatcher_SinkErrorDoesNotStopOtherSinks(t *testing.T) {
	failing := &recordingSink{err: errors.New("push indisponível")}
	ok := &recordingSink{}
	d := notify.NewDispatcher(4, logger.NewNopLogger(), failing, ok)

	d.Notify(context.Background(), domain.EventStockExpiring, domain.ExpiringStockEvent{ThresholdDays: 3})
	runUntilDrained(t, d)

	require.Len(t, ok.types(), 1)
	assert.Equal(t, domain.EventStockExpiring, ok.types()[0])
	assert.Len(t, failing.types(), 1)
}
