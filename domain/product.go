package domain

import (
	"github.com/shopspring/decimal"
)

// Product is an orderable catalog entry. Read-only to the ordering flow.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Spec     string          `json:"spec"`
	Unit     string          `json:"unit"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl,omitempty"`
	IsActive bool            `json:"isActive"`
	MinOrder int             `json:"minOrder"`
	MaxOrder int             `json:"maxOrder"`
	Stock    int             `json:"stock"`
}

// Validate checks the catalog-level invariants of a product.
func (p *Product) Validate() error {
	if p == nil || p.ID == "" {
		return NewValidationError("id", "product id is required")
	}
	if p.Price.IsNegative() {
		return NewValidationError("price", "price cannot be negative")
	}
	if p.MinOrder < 0 || p.MinOrder > p.MaxOrder {
		return NewValidationError("minOrder", "minOrder must be between 0 and maxOrder")
	}
	if p.Stock < 0 {
		return NewValidationError("stock", "stock cannot be negative")
	}
	return nil
}

// AllowsQuantity reports whether qty lies within the ordering bounds.
func (p *Product) AllowsQuantity(qty int) bool {
	return qty >= p.MinOrder && qty <= p.MaxOrder
}
