package checkout

import (
	"slices"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	HomeMarket   = "ES"
	OtherCountry = "OTHER"
)

var (
	homeFreeFrom    = decimal.NewFromInt(150)
	partnerFreeFrom = decimal.NewFromInt(200)
	mainlandCost    = decimal.NewFromInt(5)
	canariasCost    = decimal.NewFromInt(10)
	partnerCost     = decimal.NewFromInt(15)
)

type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// PartnerCountries ship at the intermediate rate.
var PartnerCountries = []Country{
	{"DE", "Alemania"}, {"AT", "Austria"}, {"BE", "Bélgica"}, {"BG", "Bulgaria"},
	{"CY", "Chipre"}, {"HR", "Croacia"}, {"DK", "Dinamarca"}, {"SK", "Eslovaquia"},
	{"SI", "Eslovenia"}, {"EE", "Estonia"}, {"FI", "Finlandia"}, {"FR", "Francia"},
	{"GR", "Grecia"}, {"HU", "Hungría"}, {"IE", "Irlanda"}, {"IT", "Italia"},
	{"LV", "Letonia"}, {"LT", "Lituania"}, {"LU", "Luxemburgo"}, {"MT", "Malta"},
	{"NL", "Países Bajos"}, {"PL", "Polonia"}, {"PT", "Portugal"}, {"CZ", "República Checa"},
	{"RO", "Rumanía"}, {"SE", "Suecia"},
}

// Countries lists every choice of the checkout form, home market first.
func Countries() []Country {
	out := make([]Country, 0, len(PartnerCountries)+2)
	out = append(out, Country{HomeMarket, "España"})
	out = append(out, PartnerCountries...)
	return append(out, Country{OtherCountry, "Otro"})
}

func IsPartner(code string) bool {
	code = normalizeCountry(code)
	return slices.ContainsFunc(PartnerCountries, func(c Country) bool { return c.Code == code })
}

// Quote is a shipping cost or, for destinations outside the rate table,
// the quote-required sentinel.
type Quote struct {
	Amount        decimal.Decimal
	QuoteRequired bool
}

func (q Quote) IsFree() bool {
	return !q.QuoteRequired && q.Amount.IsZero()
}

func (q Quote) String() string {
	switch {
	case q.QuoteRequired:
		return "Consultar con proveedor"
	case q.IsFree():
		return "GRATIS"
	default:
		return domain.FormatEUR(q.Amount)
	}
}

// Shipping applies the rate table. Zone only matters for the home market,
// where anything but canarias is charged the mainland rate.
func Shipping(country string, zone domain.Zone, subtotal decimal.Decimal) Quote {
	switch code := normalizeCountry(country); {
	case code == HomeMarket:
		if subtotal.GreaterThanOrEqual(homeFreeFrom) {
			return Quote{Amount: decimal.Zero}
		}
		if zone == domain.ZoneCanarias {
			return Quote{Amount: canariasCost}
		}
		return Quote{Amount: mainlandCost}
	case IsPartner(code):
		if subtotal.GreaterThanOrEqual(partnerFreeFrom) {
			return Quote{Amount: decimal.Zero}
		}
		return Quote{Amount: partnerCost}
	default:
		return Quote{QuoteRequired: true}
	}
}

// GrandTotal adds numeric shipping; a quote-required destination pays the subtotal only.
func GrandTotal(subtotal decimal.Decimal, q Quote) decimal.Decimal {
	if q.QuoteRequired {
		return subtotal
	}
	return subtotal.Add(q.Amount)
}

// FreeShippingHint tells the buyer how much more gets free shipping.
type FreeShippingHint struct {
	Threshold decimal.Decimal `json:"threshold"`
	Remaining decimal.Decimal `json:"remaining"`
}

func freeShippingHint(country string, subtotal decimal.Decimal) *FreeShippingHint {
	var threshold decimal.Decimal
	switch code := normalizeCountry(country); {
	case code == HomeMarket:
		threshold = homeFreeFrom
	case IsPartner(code):
		threshold = partnerFreeFrom
	default:
		return nil
	}
	if subtotal.GreaterThanOrEqual(threshold) {
		return nil
	}
	return &FreeShippingHint{Threshold: threshold, Remaining: threshold.Sub(subtotal)}
}

func normalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
