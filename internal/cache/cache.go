package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_storefront/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	Set(ctx context.Context, sessionID string, cart *domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

// PurchaseSlot holds at most one pending direct purchase per session.
type PurchaseSlot interface {
	Put(ctx context.Context, sessionID string, p *domain.DirectPurchase) error
	Take(ctx context.Context, sessionID string) (*domain.DirectPurchase, error)
}

var (
	ErrCacheMiss = errors.New("cache miss")
	ErrSlotEmpty = errors.New("no pending direct purchase")
)
