package domain

import (
	"math"
	"time"
)

// RequestStatus é o estado de um pedido de um beneficiário.
type RequestStatus string

const (
	StatusSubmitted     RequestStatus = "Submitted"
	StatusPendingPickup RequestStatus = "PendingPickup"
	StatusCompleted     RequestStatus = "Completed"
	StatusRejected      RequestStatus = "Rejected"
	StatusCancelled     RequestStatus = "Cancelled"
)

// transitions é a tabela explícita de transições permitidas. Tudo o resto é inválido.
var transitions = map[RequestStatus][]RequestStatus{
	StatusSubmitted:     {StatusPendingPickup, StatusRejected, StatusCancelled},
	StatusPendingPickup: {StatusCompleted, StatusRejected, StatusCancelled},
}

// CanTransitionTo valida uma mudança de estado contra a tabela de transições.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal indica um estado sem saídas (Completed, Rejected, Cancelled).
func (s RequestStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Valid indica se o estado pertence ao enum.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusPendingPickup, StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// legacyStatusCodes mapeia os códigos inteiros usados nos dados importados (0..3).
var legacyStatusCodes = map[int]RequestStatus{
	0: StatusSubmitted,
	1: StatusPendingPickup,
	2: StatusCompleted,
	3: StatusRejected,
}

// StatusFromCode converte um código legado para o enum.
func StatusFromCode(code int) (RequestStatus, bool) {
	s, ok := legacyStatusCodes[code]
	return s, ok
}

// CartItem é uma linha do carrinho submetido pelo beneficiário.
type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity" example:"2"`
}

// RequestItemDetail é uma linha persistida do pedido, com a categoria congelada no momento da submissão.
type RequestItemDetail struct {
	ProductID        string   `json:"product_id"`
	Quantity         int      `json:"quantity"`
	CategorySnapshot Category `json:"category"`
}

// Request é o agregado do ciclo carrinho → levantamento.
// @Description Pedido de um beneficiário.
type Request struct {
	ID                  string              `json:"id"`
	UserID              string              `json:"user_id"`
	Status              RequestStatus       `json:"status" example:"Submitted"`
	SubmissionDate      time.Time           `json:"submission_date"`
	ScheduledPickupDate *time.Time          `json:"scheduled_pickup_date,omitempty"`
	RejectionReason     *string             `json:"rejection_reason,omitempty"`
	Items               []RequestItemDetail `json:"items"`
	ReservationIDs      []string            `json:"reservation_ids"`
	Version             int                 `json:"version"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// TotalQuantity soma as quantidades de todas as linhas. A soma satura em math.MaxInt.
func TotalQuantity(items []CartItem) int {
	total := 0
	for _, it := range items {
		total = addSaturating(total, it.Quantity)
	}
	return total
}

func addSaturating(a, b int) int {
	if b > 0 && a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

// AggregateCart junta linhas do mesmo produto, preservando a ordem da primeira ocorrência.
func AggregateCart(items []CartItem) []CartItem {
	index := make(map[string]int, len(items))
	out := make([]CartItem, 0, len(items))
	for _, it := range items {
		if i, seen := index[it.ProductID]; seen {
			out[i].Quantity = addSaturating(out[i].Quantity, it.Quantity)
			continue
		}
		index[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out
}

// StatusChange descreve uma transição compare-and-swap: só aplica se o estado atual for From.
type StatusChange struct {
	RequestID           string
	From                RequestStatus
	To                  RequestStatus
	ScheduledPickupDate *time.Time
	RejectionReason     *string
}
