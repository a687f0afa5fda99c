// Package checkout prices orders for a destination and decides whether the
// buyer may pay online or has to be sent to the manual contact channel.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/cache"
	"github.com/fjod/go_storefront/internal/contact"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const Currency = "EUR"

var (
	ErrEmptyOrder       = errors.New("nothing to check out")
	ErrCheckoutNotFound = errors.New("checkout not found")
	ErrFormIncomplete   = domain.NewValidation("form_incomplete", "please fill in every field of the shipping form")
)

type CartReader interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
}

type EventPublisher interface {
	PublishCheckout(ctx context.Context, e domain.CheckoutSubmitted) error
}

type Service struct {
	carts   CartReader
	slot    cache.PurchaseSlot
	drafts  cache.DraftStore
	events  EventPublisher
	gateway Gateway
	linker  *contact.Linker
	log     *zap.Logger
	now     func() time.Time
	newID   func() string
}

func NewService(carts CartReader, slot cache.PurchaseSlot, drafts cache.DraftStore, events EventPublisher,
	gateway Gateway, linker *contact.Linker, log *zap.Logger) *Service {
	return &Service{
		carts:   carts,
		slot:    slot,
		drafts:  drafts,
		events:  events,
		gateway: withBreaker(gateway, log),
		linker:  linker,
		log:     log,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Begin opens a checkout. A pending direct purchase wins over the cart and is
// consumed by this call; otherwise the cart is snapshotted.
func (s *Service) Begin(ctx context.Context, sessionID string) (*domain.Order, error) {
	order := &domain.Order{
		CheckoutID: s.newID(),
		SessionID:  sessionID,
		CreatedAt:  s.now().UTC(),
	}

	purchase, err := s.slot.Take(ctx, sessionID)
	switch {
	case err == nil:
		order.Source = domain.SourceDirectPurchase
		order.Items = []domain.LineItem{purchase.Item}
	case errors.Is(err, cache.ErrSlotEmpty):
		cart, err := s.carts.Get(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to read cart: %w", err)
		}
		order.Source = domain.SourceCart
		order.Items = append([]domain.LineItem(nil), cart.Items...)
	default:
		return nil, fmt.Errorf("failed to read direct purchase: %w", err)
	}

	if len(order.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if err := s.drafts.Save(ctx, order); err != nil {
		return nil, err
	}

	s.log.Info("checkout started",
		zap.String("session_id", sessionID),
		zap.String("checkout_id", order.CheckoutID),
		zap.String("source", string(order.Source)),
		zap.Int("lines", len(order.Items)))
	return order, nil
}

// Order returns an open checkout of the session.
func (s *Service) Order(ctx context.Context, sessionID, checkoutID string) (*domain.Order, error) {
	order, err := s.drafts.Load(ctx, checkoutID)
	if errors.Is(err, cache.ErrDraftNotFound) {
		return nil, ErrCheckoutNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.SessionID != sessionID {
		return nil, ErrCheckoutNotFound
	}
	return order, nil
}

func (s *Service) Summarize(ctx context.Context, sessionID, checkoutID string, addr domain.Address) (Summary, error) {
	order, err := s.Order(ctx, sessionID, checkoutID)
	if err != nil {
		return Summary{}, err
	}
	return Evaluate(order, addr, s.linker), nil
}

type Result struct {
	Path        Path
	RedirectURL string
	Summary     Summary
}

// Proceed continues a complete checkout. Destinations needing a quote get the
// contact link and never reach the payment gateway.
func (s *Service) Proceed(ctx context.Context, sessionID, checkoutID string, addr domain.Address) (*Result, error) {
	summary, err := s.Summarize(ctx, sessionID, checkoutID, addr)
	if err != nil {
		return nil, err
	}
	if !summary.FormComplete {
		return nil, ErrFormIncomplete
	}

	if summary.Path == PathManualContact {
		s.log.Info("checkout routed to manual contact",
			zap.String("session_id", sessionID),
			zap.String("checkout_id", checkoutID),
			zap.String("country", addr.Country))
		return &Result{Path: PathManualContact, RedirectURL: summary.ContactURL, Summary: summary}, nil
	}

	redirect, err := s.gateway.CreateSession(ctx, PaymentRequest{
		CheckoutID: checkoutID,
		Amount:     summary.GrandTotal,
		Currency:   Currency,
	})
	if err != nil {
		s.log.Error("payment session failed", zap.String("checkout_id", checkoutID), zap.Error(err))
		return nil, err
	}

	// the event settles the cart, so it only goes out once a payment session exists
	event := domain.CheckoutSubmitted{
		CheckoutID:  checkoutID,
		SessionID:   sessionID,
		Source:      summary.Order.Source,
		Items:       summary.Order.Items,
		Subtotal:    summary.Subtotal,
		Shipping:    summary.Shipping.Amount,
		GrandTotal:  summary.GrandTotal,
		Currency:    Currency,
		Buyer:       addr,
		SubmittedAt: s.now().UTC(),
	}
	if err := s.events.PublishCheckout(ctx, event); err != nil {
		s.log.Error("failed to publish checkout", zap.String("checkout_id", checkoutID), zap.Error(err))
		return nil, err
	}

	if err := s.drafts.Delete(ctx, checkoutID); err != nil {
		s.log.Warn("failed to drop checkout draft", zap.String("checkout_id", checkoutID), zap.Error(err))
	}

	s.log.Info("checkout sent to payment",
		zap.String("session_id", sessionID),
		zap.String("checkout_id", checkoutID),
		zap.String("grand_total", summary.GrandTotal.StringFixed(2)))
	return &Result{Path: PathPayment, RedirectURL: redirect, Summary: summary}, nil
}
