package domain

// ValidationError is a user-facing prompt; the requested action is blocked and state is unchanged.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidation(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

var (
	ErrSizeRequired    = NewValidation("size_required", "please select a size")
	ErrColorRequired   = NewValidation("color_required", "please select a colour")
	ErrInvalidQuantity = NewValidation("invalid_quantity", "quantity must be at least 1")
)
