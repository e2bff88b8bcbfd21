package domain

import (
	"time"
)

// Campaign representa uma campanha de recolha de donativos à qual um lote pode pertencer.
type Campaign struct {
	ID        string     `json:"id"`
	Name      string     `json:"name" example:"Campanha de Natal 2025"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsActive indica se a campanha decorre em now.
func (c Campaign) IsActive(now time.Time) bool {
	if now.Before(c.StartDate) {
		return false
	}
	return c.EndDate == nil || !now.After(*c.EndDate)
}
