package models

import "time"

type Product struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Slug            string            `json:"slug"`
	OriginalPrice   float64           `json:"originalPrice"`
	DiscountedPrice float64           `json:"discountedPrice"`
	Image           string            `json:"image"`
	Details         map[string]string `json:"details"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// UnitPrice retourne le prix appliqué au panier (prix remisé s'il existe)
func (p Product) UnitPrice() float64 {
	if p.DiscountedPrice > 0 {
		return p.DiscountedPrice
	}
	return p.OriginalPrice
}
