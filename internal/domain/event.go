package domain

import "time"

// EventType identifica um evento enviado ao Notifier.
type EventType string

const (
	EventRequestSubmitted   EventType = "request.submitted"
	EventRequestAccepted    EventType = "request.accepted"
	EventRequestRejected    EventType = "request.rejected"
	EventRequestCompleted   EventType = "request.completed"
	EventRequestCancelled   EventType = "request.cancelled"
	EventRequestRescheduled EventType = "request.rescheduled"
	EventStockExpiring      EventType = "stock.expiring"
)

// Event é o envelope que sai pela fila de notificações.
type Event struct {
	Type       EventType   `json:"type"`
	Payload    interface{} `json:"payload"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// RequestEvent é o payload dos eventos request.*.
type RequestEvent struct {
	RequestID           string        `json:"request_id"`
	UserID              string        `json:"user_id"`
	Status              RequestStatus `json:"status"`
	ScheduledPickupDate *time.Time    `json:"scheduled_pickup_date,omitempty"`
	RejectionReason     *string       `json:"rejection_reason,omitempty"`
}

// ExpiringStockEvent é o payload de stock.expiring.
type ExpiringStockEvent struct {
	ThresholdDays int                       `json:"threshold_days"`
	Items         []ExpiringItemWithProduct `json:"items"`
}
