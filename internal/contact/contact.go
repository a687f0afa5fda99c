// Package contact builds pre-filled WhatsApp links for the shop's manual
// contact channel.
package contact

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	DefaultPhone = "34664123153"
	shopName     = "Alexa Moda"
)

type Linker struct {
	phone string
}

func NewLinker(phone string) *Linker {
	phone = strings.TrimLeft(strings.TrimSpace(phone), "+")
	if phone == "" {
		phone = DefaultPhone
	}
	return &Linker{phone: phone}
}

// Link returns the wa.me URL opening a chat with message typed in.
func (l *Linker) Link(message string) string {
	// wa.me expects %20 rather than '+' for spaces
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return fmt.Sprintf("https://wa.me/%s?text=%s", l.phone, text)
}

// PurchaseMessage is sent from the cart page to go ahead with the order.
func PurchaseMessage(items []domain.LineItem) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("• %s (Talla %s, Color %s) x%d a %s = %s",
			item.Name, item.Size, item.Color, item.Quantity, domain.FormatEUR(item.UnitPrice), domain.FormatEUR(item.LineTotal()))
	}
	return fmt.Sprintf("Hola %s, me gustaría comprar los siguientes productos:\n\n%s\n\nTOTAL: %s\n\n¿Cuál es el siguiente paso?",
		shopName, strings.Join(lines, "\n"), domain.FormatEUR(domain.Subtotal(items)))
}

// QuoteMessage asks for a shipping quote to a destination outside the rate table.
func QuoteMessage(items []domain.LineItem, addr domain.Address) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("• %s (%s - %s) x%d a %s = %s",
			item.Name, item.Size, item.Color, item.Quantity, domain.FormatEUR(item.UnitPrice), domain.FormatEUR(item.LineTotal()))
	}
	return fmt.Sprintf("Hola %s,\n\nMi nombre es %s y estoy fuera de la Unión Europea. Me gustaría consultar el envío para mi pedido:\n\n%s\n\nSubtotal: %s\n\nMi teléfono: %s\n\n¡Quedo atenta a tu respuesta!",
		shopName, addr.FullName(), strings.Join(lines, "\n"), domain.FormatEUR(domain.Subtotal(items)), strings.TrimSpace(addr.Phone))
}

// EnquiryMessage asks about one dress in a given size and colour.
func EnquiryMessage(name, size, color string, price decimal.Decimal) string {
	return fmt.Sprintf("Hola %s, quisiera consultar sobre el vestido \"%s\" en talla %s color %s. Precio: %s",
		shopName, name, size, color, domain.FormatEUR(price))
}
