package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/detail"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const catalogPath = "/api/v1/products"

type CatalogBrowser interface {
	Browse(ctx context.Context, sessionID string, f domain.Filter) (catalog.Result, error)
}

type ProductPages interface {
	Load(ctx context.Context, id string) (*detail.View, error)
	AddToCart(ctx context.Context, sessionID, productID string, sel detail.Selection) (*domain.Cart, error)
	BuyNow(ctx context.Context, sessionID, productID string, sel detail.Selection, qty int) (*domain.DirectPurchase, error)
}

type ProductHandler struct {
	catalog CatalogBrowser
	pages   ProductPages
	timeout time.Duration
	log     *zap.Logger
}

func NewProductHandler(catalog CatalogBrowser, pages ProductPages, timeout time.Duration, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		pages:   pages,
		timeout: timeout,
		log:     log,
	}
}

type BuyNowRequestDTO struct {
	Size     string `json:"size"`
	Color    string `json:"color"`
	Quantity int    `json:"quantity"`
}

// List runs the filtered catalog query. A backend failure still answers 200
// with the empty state and an error marker, so the page never breaks.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	f, err := catalog.ParseFilter(r.URL.Query())
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	res, err := h.catalog.Browse(ctx, SessionID(r.Context()), f)
	resp := catalogResponse(res)
	if err != nil {
		h.log.Warn("catalog unavailable", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
		resp.Products = []ProductResponse{}
		resp.Empty = true
		resp.Error = "catalog_unavailable"
	}
	respondJSON(w, http.StatusOK, resp)
}

// Get renders the product page or sends the buyer back to the listing.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.pages.Load(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if !errors.Is(err, detail.ErrRedirect) {
			handleError(w, r, h.log, err)
			return
		}
		http.Redirect(w, r, catalogPath, http.StatusSeeOther)
		return
	}
	respondJSON(w, http.StatusOK, detailResponse(view))
}

func (h *ProductHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var sel detail.Selection
	if err := decodeJSON(r, &sel); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	c, err := h.pages.AddToCart(ctx, SessionID(r.Context()), chi.URLParam(r, "id"), sel)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, cartResponse(c))
}

func (h *ProductHandler) BuyNow(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	req := BuyNowRequestDTO{Quantity: 1}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	purchase, err := h.pages.BuyNow(ctx, SessionID(r.Context()), chi.URLParam(r, "id"),
		detail.Selection{Size: req.Size, Color: req.Color}, req.Quantity)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, DirectPurchaseResponse{
		Item:        linesResponse([]domain.LineItem{purchase.Item})[0],
		CheckoutURL: checkoutStartPath,
	})
}
