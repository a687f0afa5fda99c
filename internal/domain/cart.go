package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineKey identifies a cart line. Adding an item with an existing key merges quantities.
type LineKey struct {
	ProductID string
	Size      string
	Color     string
}

type LineItem struct {
	ProductID string          `json:"product_id"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Name      string          `json:"name"`
	PhotoURL  string          `json:"photo_url"`
	Category  Category        `json:"category"`
}

func (l LineItem) Key() LineKey {
	return LineKey{ProductID: l.ProductID, Size: l.Size, Color: l.Color}
}

func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	SessionID string     `json:"session_id"`
	Items     []LineItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Total is the unrounded sum of unit price times quantity over all lines.
func (c *Cart) Total() decimal.Decimal {
	return Subtotal(c.Items)
}

// Count is the number of units in the cart, as shown on the header badge.
func (c *Cart) Count() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func Subtotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// DirectPurchase is a single pending "buy now" order that never merges into the cart.
type DirectPurchase struct {
	Item      LineItem  `json:"item"`
	CreatedAt time.Time `json:"created_at"`
}
