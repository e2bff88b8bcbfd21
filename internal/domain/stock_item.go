package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrLedgerInvariant sinaliza que uma operação deixaria os contadores de um lote fora de
// 0 <= reserved_quantity <= quantity. O repositório traduz para InvariantViolationError.
var ErrLedgerInvariant = errors.New("invariante do ledger violada")

// StockItem representa um lote físico recebido (código de barras + validade + campanha).
// @Description Lote de stock com contadores de quantidade e reserva.
type StockItem struct {
	ID               string     `json:"id"`
	Barcode          string     `json:"barcode"`
	ProductID        string     `json:"product_id"`
	CampaignID       *string    `json:"campaign_id,omitempty"`
	Quantity         int        `json:"quantity"`
	ReservedQuantity int        `json:"reserved_quantity"`
	ExpirationDate   *time.Time `json:"expiration_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Available é a única definição de stock disponível: quantity - reserved_quantity.
func (s StockItem) Available() int {
	return s.Quantity - s.ReservedQuantity
}

// IsExpired indica se o lote já passou da validade em now. Lotes sem validade nunca expiram.
func (s StockItem) IsExpired(now time.Time) bool {
	return s.ExpirationDate != nil && s.ExpirationDate.Before(now)
}

// DaysUntilExpiration devolve os dias inteiros até à validade (truncado). -1 quando não há validade.
func (s StockItem) DaysUntilExpiration(now time.Time) int {
	if s.ExpirationDate == nil {
		return -1
	}
	return int(s.ExpirationDate.Sub(now).Hours() / 24)
}

// StockIntake é o payload de entrada de um novo lote.
type StockIntake struct {
	Barcode        string     `json:"barcode"`
	ProductID      string     `json:"product_id"`
	CampaignID     *string    `json:"campaign_id,omitempty"`
	Quantity       int        `json:"quantity" example:"12"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

// ProductAvailability resume o stock disponível de um produto em todos os lotes válidos.
type ProductAvailability struct {
	ProductID string `json:"product_id"`
	Available int    `json:"available"`
	Batches   int    `json:"batches"`
}

// ExpiringItemWithProduct é derivado (não persistido): lote + produto + dias até expirar.
type ExpiringItemWithProduct struct {
	StockItem           StockItem `json:"stock_item"`
	Product             Product   `json:"product"`
	DaysUntilExpiration int       `json:"days_until_expiration"`
}

// --- Planos de Reserva ---

// ReservationStatus é o estado de um plano de reserva.
type ReservationStatus string

const (
	ReservationHeld      ReservationStatus = "held"
	ReservationReleased  ReservationStatus = "released"
	ReservationCommitted ReservationStatus = "committed"
)

// ReservationLine indica quanto foi reservado num lote concreto.
type ReservationLine struct {
	StockItemID string `json:"stock_item_id"`
	Quantity    int    `json:"quantity"`
}

// ReservationPlan é o resultado de reserve: as linhas por lote cuja soma é Quantity.
type ReservationPlan struct {
	ID        string            `json:"id"`
	ProductID string            `json:"product_id"`
	Quantity  int               `json:"quantity"`
	Status    ReservationStatus `json:"status"`
	Lines     []ReservationLine `json:"lines"`
	CreatedAt time.Time         `json:"created_at"`
}

// SortFEFO ordena os lotes First-Expire-First-Out: validade ascendente, lotes sem validade
// no fim, depois created_at e id para desempate determinístico.
func SortFEFO(items []StockItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.ExpirationDate != nil && b.ExpirationDate == nil:
			return true
		case a.ExpirationDate == nil && b.ExpirationDate != nil:
			return false
		case a.ExpirationDate != nil && b.ExpirationDate != nil && !a.ExpirationDate.Equal(*b.ExpirationDate):
			return a.ExpirationDate.Before(*b.ExpirationDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// AllocateFEFO escolhe lotes para cobrir quantity, consumindo primeiro os que expiram mais cedo.
// Lotes expirados ou sem disponível são ignorados. Devolve as linhas e o total disponível;
// se o total não chega, ok é false e nenhuma linha é devolvida.
func AllocateFEFO(items []StockItem, quantity int, now time.Time) (lines []ReservationLine, available int, ok bool) {
	candidates := make([]StockItem, 0, len(items))
	for _, it := range items {
		if it.IsExpired(now) || it.Available() <= 0 {
			continue
		}
		candidates = append(candidates, it)
		available += it.Available()
	}
	if quantity <= 0 || available < quantity {
		return nil, available, false
	}

	SortFEFO(candidates)

	remaining := quantity
	for _, it := range candidates {
		if remaining == 0 {
			break
		}
		take := it.Available()
		if take > remaining {
			take = remaining
		}
		lines = append(lines, ReservationLine{StockItemID: it.ID, Quantity: take})
		remaining -= take
	}
	return lines, available, true
}

// --- Aritmética dos contadores (pura, usada pelo repositório dentro da transação) ---

// ApplyReserve aumenta reserved_quantity em qty.
func ApplyReserve(item *StockItem, qty int) error {
	if qty <= 0 || item.Available() < qty {
		return fmt.Errorf("%w: reservar %d no lote %s (disponível %d)", ErrLedgerInvariant, qty, item.ID, item.Available())
	}
	item.ReservedQuantity += qty
	return nil
}

// ApplyRelease devolve qty ao disponível do lote.
func ApplyRelease(item *StockItem, qty int) error {
	if qty <= 0 || item.ReservedQuantity < qty {
		return fmt.Errorf("%w: libertar %d no lote %s (reservado %d)", ErrLedgerInvariant, qty, item.ID, item.ReservedQuantity)
	}
	item.ReservedQuantity -= qty
	return nil
}

// ApplyCommit consome fisicamente qty: decrementa quantity e reserved_quantity.
func ApplyCommit(item *StockItem, qty int) error {
	if qty <= 0 || item.ReservedQuantity < qty || item.Quantity < qty {
		return fmt.Errorf("%w: consumir %d no lote %s (reservado %d, quantidade %d)", ErrLedgerInvariant, qty, item.ID, item.ReservedQuantity, item.Quantity)
	}
	item.Quantity -= qty
	item.ReservedQuantity -= qty
	return nil
}
