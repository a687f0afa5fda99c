package catalog

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCategory = domain.NewValidation("invalid_category", "unknown category")
	ErrInvalidPrice    = domain.NewValidation("invalid_price", "price bounds must be numbers")
	ErrInvalidSort     = domain.NewValidation("invalid_sort", "sort must be newest, price_asc or price_desc")
)

// ParseFilter reads a filter set from listing query parameters.
// "filtro=rebajas" is the landing-page shortcut for the on-sale listing.
func ParseFilter(v url.Values) (domain.Filter, error) {
	f := domain.DefaultFilter()

	if c := strings.TrimSpace(v.Get("category")); c != "" {
		cat := domain.Category(c)
		if !cat.Valid() {
			return f, ErrInvalidCategory
		}
		f.Category = cat
	}
	f.Color = strings.TrimSpace(v.Get("color"))
	f.Size = strings.TrimSpace(v.Get("size"))

	if s := v.Get("price_min"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return f, ErrInvalidPrice
		}
		f.PriceMin = d
	}
	if s := v.Get("price_max"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return f, ErrInvalidPrice
		}
		f.PriceMax = d
	}

	if s := v.Get("on_sale"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return f, domain.NewValidation("invalid_on_sale", "on_sale must be a boolean")
		}
		f.OnSaleOnly = b
	}
	if v.Get("filtro") == "rebajas" {
		f.OnSaleOnly = true
	}

	if s := v.Get("sort"); s != "" {
		sk := domain.SortKey(s)
		if !sk.Valid() {
			return f, ErrInvalidSort
		}
		f.Sort = sk
	}
	return f.Normalize(), nil
}
