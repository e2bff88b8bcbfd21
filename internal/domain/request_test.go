package domain_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lojasocial/internal/domain"
)

func TestRequestStatus_TransitionTable(t *testing.T) {
	all := []domain.RequestStatus{
		domain.StatusSubmitted, domain.StatusPendingPickup, domain.StatusCompleted,
		domain.StatusRejected, domain.StatusCancelled,
	}
	allowed := map[[2]domain.RequestStatus]bool{
		{domain.StatusSubmitted, domain.StatusPendingPickup}:     true,
		{domain.StatusSubmitted, domain.StatusRejected}:          true,
		{domain.StatusSubmitted, domain.StatusCancelled}:         true,
		{domain.StatusPendingPickup, domain.StatusCompleted}:     true,
		{domain.StatusPendingPickup, domain.StatusRejected}:      true,
		{domain.StatusPendingPickup, domain.StatusCancelled}:     true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]domain.RequestStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestRequestStatus_Terminal(t *testing.T) {
	assert.False(t, domain.StatusSubmitted.IsTerminal())
	assert.False(t, domain.StatusPendingPickup.IsTerminal())
	assert.True(t, domain.StatusCompleted.IsTerminal())
	assert.True(t, domain.StatusRejected.IsTerminal())
	assert.True(t, domain.StatusCancelled.IsTerminal())
}

func TestStatusFromCode(t *testing.T) {
	s, ok := domain.StatusFromCode(1)
	assert.True(t, ok)
	assert.Equal(t, domain.StatusPendingPickup, s)

	_, ok = domain.StatusFromCode(9)
	assert.False(t, ok)
}

func TestAggregateCart_FirstAppearanceOrder(t *testing.T) {
	items := []domain.CartItem{
		{ProductID: "b", Quantity: 1},
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 3},
	}

	got := domain.AggregateCart(items)

	assert.Equal(t, []domain.CartItem{{ProductID: "b", Quantity: 4}, {ProductID: "a", Quantity: 2}}, got)
	assert.Equal(t, 6, domain.TotalQuantity(items))
	assert.Equal(t, 1, items[0].Quantity)
}

func TestTotalQuantity_SaturatesInsteadOfWrapping(t *testing.T) {
	items := []domain.CartItem{
		{ProductID: "a", Quantity: math.MaxInt},
		{ProductID: "a", Quantity: math.MaxInt},
		{ProductID: "a", Quantity: 5},
	}

	assert.Equal(t, math.MaxInt, domain.TotalQuantity(items))
	assert.Equal(t, []domain.CartItem{{ProductID: "a", Quantity: math.MaxInt}}, domain.AggregateCart(items))
}

func TestCampaign_IsActive(t *testing.T) {
	start := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)
	c := domain.Campaign{StartDate: start, EndDate: &end}

	assert.False(t, c.IsActive(start.Add(-time.Hour)))
	assert.True(t, c.IsActive(start.AddDate(0, 0, 10)))
	assert.False(t, c.IsActive(end.Add(time.Hour)))
}
