package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderSource string

const (
	SourceCart           OrderSource = "cart"
	SourceDirectPurchase OrderSource = "direct_purchase"
)

// Order is what the checkout page works on: a cart snapshot or one direct purchase.
type Order struct {
	CheckoutID string      `json:"checkout_id"`
	SessionID  string      `json:"session_id"`
	Source     OrderSource `json:"source"`
	Items      []LineItem  `json:"items"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (o *Order) Subtotal() decimal.Decimal {
	return Subtotal(o.Items)
}

const EventCheckoutSubmitted = "checkout.submitted"

// CheckoutSubmitted is emitted when a buyer is sent to the payment gateway.
type CheckoutSubmitted struct {
	CheckoutID  string          `json:"checkout_id"`
	SessionID   string          `json:"session_id"`
	Source      OrderSource     `json:"source"`
	Items       []LineItem      `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Shipping    decimal.Decimal `json:"shipping"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	Currency    string          `json:"currency"`
	Buyer       Address         `json:"buyer"`
	SubmittedAt time.Time       `json:"submitted_at"`
}
