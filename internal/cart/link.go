package cart

import (
	"github.com/fjod/go_storefront/internal/contact"
	"github.com/fjod/go_storefront/internal/domain"
)

// ContactLink is the "proceed with purchase" chat link for the cart page.
func ContactLink(l *contact.Linker, c *domain.Cart) (string, error) {
	if len(c.Items) == 0 {
		return "", ErrEmptyCart
	}
	return l.Link(contact.PurchaseMessage(c.Items)), nil
}
