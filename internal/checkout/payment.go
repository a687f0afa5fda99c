package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/fjod/go_storefront/pkg/circuitbreaker"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrPaymentUnavailable = errors.New("payment gateway unavailable")

type PaymentRequest struct {
	CheckoutID string
	Amount     decimal.Decimal
	Currency   string
}

// Gateway opens a hosted payment page for a checkout.
type Gateway interface {
	CreateSession(ctx context.Context, req PaymentRequest) (redirectURL string, err error)
}

// StubGateway stands in for a real provider and points at a fixed hosted page.
type StubGateway struct {
	baseURL string
}

func NewStubGateway(baseURL string) *StubGateway {
	return &StubGateway{baseURL: baseURL}
}

func (g *StubGateway) CreateSession(ctx context.Context, req PaymentRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	u, err := url.Parse(g.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid payment gateway url: %w", err)
	}
	q := u.Query()
	q.Set("checkout_id", req.CheckoutID)
	q.Set("amount", req.Amount.StringFixed(2))
	q.Set("currency", req.Currency)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// breakingGateway stops calling a failing provider for a while.
type breakingGateway struct {
	next    Gateway
	breaker *circuitbreaker.Breaker[string]
}

func withBreaker(next Gateway, log *zap.Logger) Gateway {
	return &breakingGateway{
		next:    next,
		breaker: circuitbreaker.New[string](circuitbreaker.DefaultSettings("payment-gateway"), log),
	}
}

func (g *breakingGateway) CreateSession(ctx context.Context, req PaymentRequest) (string, error) {
	redirect, err := g.breaker.Do(func() (string, error) {
		return g.next.CreateSession(ctx, req)
	}, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPaymentUnavailable, err)
	}
	return redirect, nil
}
