package domain

import (
	"time"
)

// Category é a categoria de um produto do catálogo da Loja Social.
type Category string

const (
	CategoryAlimentar      Category = "Alimentar"
	CategoryCasa           Category = "Casa"
	CategoryHigienePessoal Category = "HigienePessoal"
)

// Valid indica se a categoria pertence ao enum conhecido.
func (c Category) Valid() bool {
	switch c {
	case CategoryAlimentar, CategoryCasa, CategoryHigienePessoal:
		return true
	}
	return false
}

// Product representa uma entrada do catálogo (dados de referência partilhados por vários lotes).
// @Description Produto do catálogo.
type Product struct {
	ID        string    `json:"id"`
	Barcode   string    `json:"barcode" example:"5601234567890"`
	Name      string    `json:"name" example:"Arroz Agulha 1kg"`
	Brand     string    `json:"brand" example:"Cigala"`
	Category  Category  `json:"category" example:"Alimentar"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
