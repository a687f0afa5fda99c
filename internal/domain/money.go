package domain

import "github.com/shopspring/decimal"

// FormatEUR renders an amount for display. This is the only place amounts are rounded.
func FormatEUR(d decimal.Decimal) string {
	return "€" + d.StringFixed(2)
}
