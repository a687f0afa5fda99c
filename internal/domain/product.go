package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryQuinceanera Category = "15 años"
	CategoryGraduation  Category = "Graduación"
	CategoryWedding     Category = "Boda"
)

var Categories = []Category{CategoryQuinceanera, CategoryGraduation, CategoryWedding}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Product mirrors a row of the hosted product collection.
// FinalPrice is authoritative for every cart and checkout amount.
type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Category        Category        `json:"category"`
	OriginalPrice   decimal.Decimal `json:"original_price"`
	DiscountPercent int             `json:"discount_percent"`
	FinalPrice      decimal.Decimal `json:"final_price"`
	Sizes           []string        `json:"sizes"`
	Colors          []string        `json:"colors"`
	Stock           int             `json:"stock"`
	PhotoURL        string          `json:"photo_url"`
	Description     string          `json:"description"`
	OnSale          bool            `json:"on_sale"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (p *Product) HasSize(size string) bool {
	return contains(p.Sizes, size)
}

func (p *Product) HasColor(color string) bool {
	return contains(p.Colors, color)
}

// UniqueLabels drops blanks and repeated labels, keeping first-seen order.
func UniqueLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
