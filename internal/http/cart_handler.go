package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_storefront/internal/broadcast"
	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/contact"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CartStore interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	Increment(ctx context.Context, sessionID string, index int) (*domain.Cart, error)
	Decrement(ctx context.Context, sessionID string, index int) (*domain.Cart, error)
	Remove(ctx context.Context, sessionID string, index int) (*domain.Cart, error)
	Clear(ctx context.Context, sessionID string, confirmed bool) error
}

type CartHandler struct {
	store     CartStore
	events    broadcast.Subscriber
	linker    *contact.Linker
	timeout   time.Duration
	keepAlive time.Duration
	log       *zap.Logger
}

func NewCartHandler(store CartStore, events broadcast.Subscriber, linker *contact.Linker, timeout time.Duration, log *zap.Logger) *CartHandler {
	return &CartHandler{
		store:     store,
		events:    events,
		linker:    linker,
		timeout:   timeout,
		keepAlive: 25 * time.Second,
		log:       log,
	}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.store.Get(ctx, SessionID(r.Context()))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(c))
}

func (h *CartHandler) Count(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.store.Get(ctx, SessionID(r.Context()))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, CountResponse{Count: c.Count()})
}

func (h *CartHandler) Increment(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, h.store.Increment)
}

func (h *CartHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, h.store.Decrement)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, h.store.Remove)
}

func (h *CartHandler) mutateLine(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, sessionID string, index int) (*domain.Cart, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// Get line index from URL path
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		respondError(w, http.StatusBadRequest, "invalid_index", "index must be a non-negative integer")
		return
	}

	c, err := op(ctx, SessionID(r.Context()), index)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(c))
}

// ClearCart requires ?confirm=true; the destructive action is never silent.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := h.store.Clear(ctx, SessionID(r.Context()), confirmed); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(&domain.Cart{Items: []domain.LineItem{}}))
}

func (h *CartHandler) Contact(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.store.Get(ctx, SessionID(r.Context()))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	link, err := cart.ContactLink(h.linker, c)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, ContactResponse{URL: link})
}

// Events streams the badge count as server-sent events. A change signal
// carries nothing, so every event re-reads the stored cart.
func (h *CartHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming unsupported")
		return
	}
	// the stream outlives the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	sessionID := SessionID(r.Context())
	changes, unsubscribe := h.events.Subscribe(sessionID)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if !h.sendCount(w, r, sessionID) {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case _, open := <-changes:
			if !open || !h.sendCount(w, r, sessionID) {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}

func (h *CartHandler) sendCount(w http.ResponseWriter, r *http.Request, sessionID string) bool {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.store.Get(ctx, sessionID)
	if err != nil {
		h.log.Warn("cart read for event stream failed", zap.String("session_id", sessionID), zap.Error(err))
		_, err = fmt.Fprint(w, "event: error\ndata: {\"code\":\"cart_unavailable\"}\n\n")
		return err == nil
	}
	_, err = fmt.Fprintf(w, "event: cart\ndata: {\"count\":%d,\"total\":%q}\n\n", c.Count(), c.Total().StringFixed(2))
	return err == nil
}
