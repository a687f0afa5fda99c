package checkout

import (
	"github.com/fjod/go_storefront/internal/contact"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type Path string

const (
	PathPayment       Path = "payment"
	PathManualContact Path = "manual_contact"
)

// Summary is everything the checkout page shows for an order and address.
type Summary struct {
	Order        *domain.Order
	Subtotal     decimal.Decimal
	Shipping     Quote
	GrandTotal   decimal.Decimal
	FormComplete bool
	Missing      []string
	PayEnabled   bool
	// Path is empty until a country is chosen.
	Path         Path
	ContactURL   string
	FreeShipping *FreeShippingHint
}

// Evaluate prices the order for the address. Destinations outside the rate
// table only ever get the manual-contact path, and its link is offered once
// the form is complete.
func Evaluate(order *domain.Order, addr domain.Address, linker *contact.Linker) Summary {
	subtotal := order.Subtotal()
	quote := Shipping(addr.Country, addr.Zone, subtotal)
	missing := MissingFields(addr)

	s := Summary{
		Order:        order,
		Subtotal:     subtotal,
		Shipping:     quote,
		GrandTotal:   GrandTotal(subtotal, quote),
		FormComplete: len(missing) == 0,
		Missing:      missing,
		FreeShipping: freeShippingHint(addr.Country, subtotal),
	}
	s.PayEnabled = s.FormComplete

	if normalizeCountry(addr.Country) == "" {
		return s
	}
	s.Path = PathPayment
	if quote.QuoteRequired {
		s.Path = PathManualContact
		if s.FormComplete {
			s.ContactURL = linker.Link(contact.QuoteMessage(order.Items, addr))
		}
	}
	return s
}
