package http

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/broadcast"
	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/contact"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeMock struct {
	mu        sync.Mutex
	cart      *domain.Cart
	err       error
	index     int
	confirmed bool
}

func (s *storeMock) Get(context.Context, string) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	c := *s.cart
	c.Items = append([]domain.LineItem(nil), s.cart.Items...)
	return &c, nil
}

func (s *storeMock) line(_ context.Context, _ string, index int) (*domain.Cart, error) {
	s.index = index
	if s.err != nil {
		return nil, s.err
	}
	return s.cart, nil
}

func (s *storeMock) Increment(ctx context.Context, id string, index int) (*domain.Cart, error) {
	return s.line(ctx, id, index)
}

func (s *storeMock) Decrement(ctx context.Context, id string, index int) (*domain.Cart, error) {
	return s.line(ctx, id, index)
}

func (s *storeMock) Remove(ctx context.Context, id string, index int) (*domain.Cart, error) {
	return s.line(ctx, id, index)
}

func (s *storeMock) Clear(_ context.Context, _ string, confirmed bool) error {
	s.confirmed = confirmed
	if !confirmed {
		return cart.ErrConfirmationRequired
	}
	return s.err
}

func (s *storeMock) setQuantity(q int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Items[0].Quantity = q
}

func twoDresses() *domain.Cart {
	return &domain.Cart{SessionID: testSession, Items: []domain.LineItem{
		{ProductID: "vestido-aurora", Name: "Aurora", Size: "S", Color: "Rosa", UnitPrice: decimal.RequireFromString("89.95"), Quantity: 2},
		{ProductID: "vestido-lucia", Name: "Lucía", Size: "M", Color: "Negro", UnitPrice: decimal.NewFromInt(180), Quantity: 1},
	}}
}

func newCartHandler(store CartStore) *CartHandler {
	return NewCartHandler(store, broadcast.New(), contact.NewLinker(contact.DefaultPhone), 5*time.Second, nopLogger())
}

func TestGetCart_Success(t *testing.T) {
	handler := newCartHandler(&storeMock{cart: twoDresses()})

	rec := httptest.NewRecorder()
	handler.GetCart(rec, newRequest(t, "GET", "/api/v1/cart", nil, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CartResponse](t, rec)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, "359.90", resp.Total.Amount)
	assert.Equal(t, 1, resp.Items[1].Index)
	assert.Equal(t, "179.90", resp.Items[0].LineTotal.Amount)
}

func TestGetCart_EmptyCartHasItemsArray(t *testing.T) {
	handler := newCartHandler(&storeMock{cart: &domain.Cart{}})

	rec := httptest.NewRecorder()
	handler.GetCart(rec, newRequest(t, "GET", "/api/v1/cart", nil, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":[]`)
}

func TestCount(t *testing.T) {
	handler := newCartHandler(&storeMock{cart: twoDresses()})

	rec := httptest.NewRecorder()
	handler.Count(rec, newRequest(t, "GET", "/api/v1/cart/count", nil, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[CountResponse](t, rec).Count)
}

func TestIncrement_PassesIndex(t *testing.T) {
	store := &storeMock{cart: twoDresses()}
	handler := newCartHandler(store)

	rec := httptest.NewRecorder()
	handler.Increment(rec, newRequest(t, "POST", "/api/v1/cart/items/1/increment", nil, map[string]string{"index": "1"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, store.index)
}

func TestLineOps_InvalidIndex(t *testing.T) {
	handler := newCartHandler(&storeMock{cart: twoDresses()})

	for _, index := range []string{"abc", "-1", ""} {
		rec := httptest.NewRecorder()
		handler.Decrement(rec, newRequest(t, "POST", "/api/v1/cart/items/x/decrement", nil, map[string]string{"index": index}))

		assert.Equal(t, http.StatusBadRequest, rec.Code, index)
		assert.Equal(t, "invalid_index", decode[ErrorResponse](t, rec).Code)
	}
}

func TestRemoveItem_UnknownLine(t *testing.T) {
	handler := newCartHandler(&storeMock{cart: twoDresses(), err: cart.ErrLineNotFound})

	rec := httptest.NewRecorder()
	handler.RemoveItem(rec, newRequest(t, "DELETE", "/api/v1/cart/items/7", nil, map[string]string{"index": "7"}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "line_not_found", decode[ErrorResponse](t, rec).Code)
}

func TestClearCart_RequiresConfirmation(t *testing.T) {
	store := &storeMock{cart: twoDresses()}
	handler := newCartHandler(store)

	rec := httptest.NewRecorder()
	handler.ClearCart(rec, newRequest(t, "DELETE", "/api/v1/cart", nil, nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "confirmation_required", decode[ErrorResponse](t, rec).Code)
	assert.False(t, store.confirmed)
}

func TestClearCart_Confirmed(t *testing.T) {
	store := &storeMock{cart: twoDresses()}
	handler := newCartHandler(store)

	rec := httptest.NewRecorder()
	handler.ClearCart(rec, newRequest(t, "DELETE", "/api/v1/cart?confirm=true", nil, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, store.confirmed)
	resp := decode[CartResponse](t, rec)
	assert.Equal(t, 0, resp.Count)
	assert.Empty(t, resp.Items)
}

func TestContact_BuildsWhatsAppLink(t *testing.T) {
	handler := newCartHandler(&storeMock{cart: twoDresses()})

	rec := httptest.NewRecorder()
	handler.Contact(rec, newRequest(t, "GET", "/api/v1/cart/contact", nil, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	url := decode[ContactResponse](t, rec).URL
	assert.True(t, strings.HasPrefix(url, "https://wa.me/34664123153?text="), url)
}

func TestContact_EmptyCart(t *testing.T) {
	handler := newCartHandler(&storeMock{cart: &domain.Cart{}})

	rec := httptest.NewRecorder()
	handler.Contact(rec, newRequest(t, "GET", "/api/v1/cart/contact", nil, nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "empty_order", decode[ErrorResponse](t, rec).Code)
}

func TestEvents_StreamsCountOnChange(t *testing.T) {
	store := &storeMock{cart: twoDresses()}
	events := broadcast.New()
	handler := NewCartHandler(store, events, contact.NewLinker(contact.DefaultPhone), 5*time.Second, nopLogger())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.Events(w, r.WithContext(WithSession(r.Context(), testSession)))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	lines := bufio.NewScanner(resp.Body)

	next := func() string {
		for lines.Scan() {
			if line := lines.Text(); strings.HasPrefix(line, "data: ") {
				return strings.TrimPrefix(line, "data: ")
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return ""
	}

	assert.Equal(t, `{"count":3,"total":"359.90"}`, next())

	store.setQuantity(5)
	require.NoError(t, events.Publish(ctx, testSession))
	assert.Equal(t, `{"count":6,"total":"629.75"}`, next())
}
