package domain

import "github.com/shopspring/decimal"

type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
)

func (s SortKey) Valid() bool {
	return s == SortNewest || s == SortPriceAsc || s == SortPriceDesc
}

var (
	PriceFloor   = decimal.Zero
	PriceCeiling = decimal.NewFromInt(500)
)

// Filter is the browsing filter set. The zero value selects everything, newest first.
type Filter struct {
	Category   Category        `json:"category,omitempty"`
	Color      string          `json:"color,omitempty"`
	Size       string          `json:"size,omitempty"`
	PriceMin   decimal.Decimal `json:"price_min"`
	PriceMax   decimal.Decimal `json:"price_max"`
	OnSaleOnly bool            `json:"on_sale_only"`
	Sort       SortKey         `json:"sort"`
}

// DefaultFilter matches the storefront's initial state: full price range, newest first.
func DefaultFilter() Filter {
	return Filter{PriceMin: PriceFloor, PriceMax: PriceCeiling, Sort: SortNewest}
}

// Normalize clamps the price bounds into [0,500], orders them and defaults the sort key.
func (f Filter) Normalize() Filter {
	f.PriceMin = clamp(f.PriceMin)
	f.PriceMax = clamp(f.PriceMax)
	if f.PriceMin.GreaterThan(f.PriceMax) {
		f.PriceMin, f.PriceMax = f.PriceMax, f.PriceMin
	}
	if !f.Sort.Valid() {
		f.Sort = SortNewest
	}
	return f
}

func clamp(d decimal.Decimal) decimal.Decimal {
	if d.LessThan(PriceFloor) {
		return PriceFloor
	}
	if d.GreaterThan(PriceCeiling) {
		return PriceCeiling
	}
	return d
}
