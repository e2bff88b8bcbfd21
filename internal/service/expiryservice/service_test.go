package expiryservice_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lojasocial/internal/domain"
	"lojasocial/internal/pkg/logger"
	"lojasocial/internal/service/expiryservice"
)

type MockStock struct {
	mock.Mock
}

func (m *MockStock) ExpiringWithin(ctx context.Context, days int) ([]domain.StockItem, error) {
	args := m.Called(ctx, days)
	return args.Get(0).([]domain.StockItem), args.Error(1)
}

type staticCatalog map[string]domain.Product

func (c staticCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	p, ok := c[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	payloads []domain.ExpiringStockEvent
}

func (n *recordingNotifier) Notify(_ context.Context, eventType domain.EventType, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if eventType == domain.EventStockExpiring {
		n.payloads = append(n.payloads, payload.(domain.ExpiringStockEvent))
	}
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.payloads)
}

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func inDays(h int) *time.Time {
	t := fixedNow.Add(time.Duration(h) * time.Hour)
	return &t
}

var catalog = staticCatalog{
	"a": {ID: "a", Name: "Iogurte"},
	"b": {ID: "b", Name: "Fiambre"},
}

func TestScan_SortedByDaysProductAndID(t *testing.T) {
	stock := new(MockStock)
	stock.On("ExpiringWithin", mock.Anything, 3).Return([]domain.StockItem{
		{ID: "s3", ProductID: "b", Quantity: 1, ExpirationDate: inDays(50)},
		{ID: "s2", ProductID: "a", Quantity: 1, ExpirationDate: inDays(60)},
		{ID: "s1", ProductID: "a", Quantity: 1, ExpirationDate: inDays(30)},
		{ID: "s0", ProductID: "b", Quantity: 1, ExpirationDate: inDays(10)},
	}, nil)
	svc := expiryservice.NewService(stock, catalog, nil, logger.NewNopLogger(),
		expiryservice.WithClock(func() time.Time { return fixedNow }))

	got, err := svc.Scan(context.Background(), 3)

	require.NoError(t, err)
	var order []string
	for _, it := range got {
		order = append(order, it.StockItem.ID)
	}
	// s0 tem 0 dias; s1, s2 e s3 têm 1, 2 e 2 dias; s2 (produto a) antes de s3 (produto b).
	assert.Equal(t, []string{"s0", "s1", "s2", "s3"}, order)
	assert.Equal(t, "Iogurte", got[1].Product.Name)
}

func TestScan_DefaultWindowWhenNonPositive(t *testing.T) {
	stock := new(MockStock)
	stock.On("ExpiringWithin", mock.Anything, expiryservice.DefaultThresholdDays).Return([]domain.StockItem{}, nil)
	svc := expiryservice.NewService(stock, catalog, nil, logger.NewNopLogger())

	got, err := svc.Scan(context.Background(), 0)

	require.NoError(t, err)
	assert.Empty(t, got)
	stock.AssertExpectations(t)
}

func TestScan_SkipsItemsWithUnknownProduct(t *testing.T) {
	stock := new(MockStock)
	stock.On("ExpiringWithin", mock.Anything, 3).Return([]domain.StockItem{
		{ID: "s1", ProductID: "ghost", Quantity: 1, ExpirationDate: inDays(10)},
		{ID: "s2", ProductID: "a", Quantity: 1, ExpirationDate: inDays(10)},
	}, nil)
	svc := expiryservice.NewService(stock, catalog, nil, logger.NewNopLogger(),
		expiryservice.WithClock(func() time.Time { return fixedNow }))

	got, err := svc.Scan(context.Background(), 3)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s2", got[0].StockItem.ID)
}

func TestRun_EmitsEventWhenSomethingExpires(t *testing.T) {
	stock := new(MockStock)
	stock.On("ExpiringWithin", mock.Anything, 3).Return([]domain.StockItem{
		{ID: "s1", ProductID: "a", Quantity: 1, ExpirationDate: inDays(10)},
	}, nil)
	notifier := &recordingNotifier{}
	svc := expiryservice.NewService(stock, catalog, notifier, logger.NewNopLogger(),
		expiryservice.WithClock(func() time.Time { return fixedNow }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool { return notifier.count() == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 3, notifier.payloads[0].ThresholdDays)
	assert.Len(t, notifier.payloads[0].Items, 1)
}

func TestRun_NoEventWhenNothingFound(t *testing.T) {
	stock := new(MockStock)
	scanned := make(chan struct{}, 1)
	stock.On("ExpiringWithin", mock.Anything, 3).Return([]domain.StockItem{}, nil).Run(func(mock.Arguments) {
		select {
		case scanned <- struct{}{}:
		default:
		}
	})
	notifier := &recordingNotifier{}
	svc := expiryservice.NewService(stock, catalog, notifier, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, time.Hour)
		close(done)
	}()

	select {
	case <-scanned:
	case <-time.After(time.Second):
		t.Fatal("o scanner não correu")
	}
	cancel()
	<-done

	assert.Equal(t, 0, notifier.count())
}
