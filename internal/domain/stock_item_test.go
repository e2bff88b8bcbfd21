package domain_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lojasocial/internal/domain"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func days(n int) *time.Time {
	t := now.Add(time.Duration(n) * 24 * time.Hour)
	return &t
}

func batch(id string, qty, reserved int, exp *time.Time) domain.StockItem {
	return domain.StockItem{ID: id, ProductID: "p1", Quantity: qty, ReservedQuantity: reserved, ExpirationDate: exp, CreatedAt: now}
}

func TestAllocateFEFO_EarliestExpiringFirst(t *testing.T) {
	items := []domain.StockItem{
		batch("c", 10, 0, nil),
		batch("b", 4, 0, days(20)),
		batch("a", 3, 1, days(5)),
	}

	lines, available, ok := domain.AllocateFEFO(items, 5, now)

	require.True(t, ok)
	assert.Equal(t, 16, available)
	assert.Equal(t, []domain.ReservationLine{
		{StockItemID: "a", Quantity: 2},
		{StockItemID: "b", Quantity: 3},
	}, lines)
}

func TestAllocateFEFO_UndatedBatchesLast(t *testing.T) {
	items := []domain.StockItem{
		batch("sem-validade", 5, 0, nil),
		batch("com-validade", 1, 0, days(100)),
	}

	lines, _, ok := domain.AllocateFEFO(items, 3, now)

	require.True(t, ok)
	assert.Equal(t, "com-validade", lines[0].StockItemID)
	assert.Equal(t, "sem-validade", lines[1].StockItemID)
	assert.Equal(t, 2, lines[1].Quantity)
}

func TestAllocateFEFO_SkipsExpiredAndEmpty(t *testing.T) {
	items := []domain.StockItem{
		batch("expirado", 10, 0, days(-1)),
		batch("cheio", 4, 4, days(2)),
		batch("ok", 2, 0, days(3)),
	}

	_, available, ok := domain.AllocateFEFO(items, 3, now)

	assert.False(t, ok)
	assert.Equal(t, 2, available)
}

func TestAllocateFEFO_InsufficientReturnsNoLines(t *testing.T) {
	lines, available, ok := domain.AllocateFEFO([]domain.StockItem{batch("a", 2, 0, nil)}, 3, now)

	assert.False(t, ok)
	assert.Nil(t, lines)
	assert.Equal(t, 2, available)
}

func TestAllocateFEFO_LinesSumToQuantity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		var items []domain.StockItem
		for j := 0; j < 1+rng.Intn(6); j++ {
			qty := rng.Intn(8)
			reserved := 0
			if qty > 0 {
				reserved = rng.Intn(qty + 1)
			}
			items = append(items, batch(string(rune('a'+j)), qty, reserved, days(rng.Intn(30)-3)))
		}
		want := 1 + rng.Intn(12)

		lines, available, ok := domain.AllocateFEFO(items, want, now)
		if !ok {
			assert.Less(t, available, want)
			continue
		}
		sum := 0
		for _, l := range lines {
			assert.Positive(t, l.Quantity)
			sum += l.Quantity
		}
		assert.Equal(t, want, sum)
	}
}

func TestLedgerArithmetic_ReserveReleaseRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		qty := 1 + rng.Intn(20)
		item := batch("x", qty, rng.Intn(qty+1), nil)
		before := item
		n := 1 + rng.Intn(qty)

		err := domain.ApplyReserve(&item, n)
		if n > before.Available() {
			assert.ErrorIs(t, err, domain.ErrLedgerInvariant)
			assert.Equal(t, before, item)
			continue
		}
		require.NoError(t, err)
		assert.LessOrEqual(t, item.ReservedQuantity, item.Quantity)

		require.NoError(t, domain.ApplyRelease(&item, n))
		assert.Equal(t, before, item)
	}
}

func TestLedgerArithmetic_ReserveCommit(t *testing.T) {
	item := batch("x", 5, 1, nil)
	availableBefore := item.Available()

	require.NoError(t, domain.ApplyReserve(&item, 3))
	require.NoError(t, domain.ApplyCommit(&item, 3))

	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, 1, item.ReservedQuantity)
	assert.Equal(t, availableBefore-3, item.Available())
}

func TestLedgerArithmetic_CommitAboveReservedFails(t *testing.T) {
	item := batch("x", 5, 1, nil)

	err := domain.ApplyCommit(&item, 2)

	assert.ErrorIs(t, err, domain.ErrLedgerInvariant)
	assert.Equal(t, 5, item.Quantity)
	assert.Equal(t, 1, item.ReservedQuantity)
}

func TestLedgerArithmetic_ReleaseNeverBelowZero(t *testing.T) {
	item := batch("x", 5, 0, nil)

	assert.ErrorIs(t, domain.ApplyRelease(&item, 1), domain.ErrLedgerInvariant)
	assert.Equal(t, 0, item.ReservedQuantity)
}

func TestStockItem_DaysUntilExpiration(t *testing.T) {
	assert.Equal(t, 2, batch("x", 1, 0, days(2)).DaysUntilExpiration(now))
	assert.Equal(t, -1, batch("x", 1, 0, nil).DaysUntilExpiration(now))
	assert.True(t, batch("x", 1, 0, days(-1)).IsExpired(now))
	assert.False(t, batch("x", 1, 0, nil).IsExpired(now))
}
