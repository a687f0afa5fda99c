package cart

import "errors"

var (
	ErrLineNotFound         = errors.New("cart line not found")
	ErrConfirmationRequired = errors.New("clearing the cart must be confirmed")
	ErrEmptyCart            = errors.New("cart is empty")
)
