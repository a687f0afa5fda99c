package detail

import (
	"errors"

	"github.com/fjod/go_storefront/internal/domain"
)

// ErrRedirect means the detail page cannot be shown and the buyer goes back to the listing.
var ErrRedirect = errors.New("product unavailable, redirect to catalog")

var (
	ErrOutOfStock        = domain.NewValidation("out_of_stock", "this dress is sold out")
	ErrIncompleteCatalog = domain.NewValidation("incomplete_catalog", "this dress has no sizes or colours listed yet, please contact us")
	ErrUnknownSize       = domain.NewValidation("unknown_size", "the selected size is not available for this dress")
	ErrUnknownColor      = domain.NewValidation("unknown_color", "the selected colour is not available for this dress")
	ErrNotEnoughStock    = domain.NewValidation("not_enough_stock", "not enough units in stock")
)
