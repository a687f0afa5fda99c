package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/detail"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/repository"
	"go.uber.org/zap"
)

var encodeFailedBody = []byte(`{"error":"internal error","code":"internal_error"}` + "\n")

// respondJSON encodes before writing the header; a value that cannot be
// encoded becomes a 500.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		status = http.StatusInternalServerError
		buf.Reset()
		buf.Write(encodeFailedBody)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError maps service errors to HTTP statuses. Server-side failures are logged.
func handleError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		respondError(w, http.StatusBadRequest, verr.Code, verr.Message)
		return
	}

	var (
		httpStatus int
		code       string
	)
	switch {
	case errors.Is(err, cart.ErrLineNotFound):
		httpStatus, code = http.StatusNotFound, "line_not_found"
	case errors.Is(err, cart.ErrConfirmationRequired):
		httpStatus, code = http.StatusConflict, "confirmation_required"
	case errors.Is(err, cart.ErrEmptyCart), errors.Is(err, checkout.ErrEmptyOrder):
		httpStatus, code = http.StatusConflict, "empty_order"
	case errors.Is(err, checkout.ErrCheckoutNotFound):
		httpStatus, code = http.StatusNotFound, "checkout_not_found"
	case errors.Is(err, catalog.ErrCatalogUnavailable), errors.Is(err, checkout.ErrPaymentUnavailable):
		httpStatus, code = http.StatusServiceUnavailable, "service_unavailable"
	case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, detail.ErrRedirect):
		httpStatus, code = http.StatusNotFound, "product_not_found"
	case errors.Is(err, repository.ErrImageNotFound):
		httpStatus, code = http.StatusNotFound, "image_not_found"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus, code = http.StatusGatewayTimeout, "timeout"
	default:
		httpStatus, code = http.StatusInternalServerError, "internal_error"
	}

	if httpStatus >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err))
		respondError(w, httpStatus, code, strings.ReplaceAll(code, "_", " "))
		return
	}
	respondError(w, httpStatus, code, err.Error())
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
