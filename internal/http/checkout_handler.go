package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const checkoutStartPath = "/api/v1/checkout/start"

type Checkout interface {
	Begin(ctx context.Context, sessionID string) (*domain.Order, error)
	Order(ctx context.Context, sessionID, checkoutID string) (*domain.Order, error)
	Summarize(ctx context.Context, sessionID, checkoutID string, addr domain.Address) (checkout.Summary, error)
	Proceed(ctx context.Context, sessionID, checkoutID string, addr domain.Address) (*checkout.Result, error)
}

type CheckoutHandler struct {
	checkout Checkout
	timeout  time.Duration
	log      *zap.Logger
}

func NewCheckoutHandler(c Checkout, timeout time.Duration, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: c,
		timeout:  timeout,
		log:      log,
	}
}

// Start snapshots what the buyer is about to pay for: a pending direct
// purchase when there is one, the cart otherwise.
func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.checkout.Begin(ctx, SessionID(r.Context()))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, orderResponse(order))
}

func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.checkout.Order(ctx, SessionID(r.Context()), chi.URLParam(r, "checkoutID"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, orderResponse(order))
}

// Summary prices the order for the address typed so far. Partial forms are fine.
func (h *CheckoutHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var addr domain.Address
	if err := decodeJSON(r, &addr); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	summary, err := h.checkout.Summarize(ctx, SessionID(r.Context()), chi.URLParam(r, "checkoutID"), addr)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, summaryResponse(summary))
}

func (h *CheckoutHandler) Proceed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var addr domain.Address
	if err := decodeJSON(r, &addr); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	res, err := h.checkout.Proceed(ctx, SessionID(r.Context()), chi.URLParam(r, "checkoutID"), addr)
	if errors.Is(err, checkout.ErrFormIncomplete) {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   err.Error(),
			Code:    "form_incomplete",
			Details: strings.Join(checkout.MissingFields(addr), ","),
		})
		return
	}
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, ProceedResponse{
		Path:        string(res.Path),
		RedirectURL: res.RedirectURL,
		Summary:     summaryResponse(res.Summary),
	})
}

func (h *CheckoutHandler) Countries(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, checkout.Countries())
}
