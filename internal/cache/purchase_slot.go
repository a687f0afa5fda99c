package cache

import (
	"context"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultSlotTTL bounds how long an abandoned "buy now" waits for checkout.
const DefaultSlotTTL = time.Hour

// RedisPurchaseSlot stores the direct purchase under a per-session key that is
// read and deleted atomically, so a slot is consumed exactly once.
type RedisPurchaseSlot struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPurchaseSlot(client *redis.Client, ttl time.Duration) *RedisPurchaseSlot {
	if ttl <= 0 {
		ttl = DefaultSlotTTL
	}
	return &RedisPurchaseSlot{client: client, ttl: ttl}
}

// Put replaces any pending purchase for the session.
func (s *RedisPurchaseSlot) Put(ctx context.Context, sessionID string, p *domain.DirectPurchase) error {
	return writeJSON(ctx, s.client, slotKey(sessionID), p, s.ttl)
}

func (s *RedisPurchaseSlot) Take(ctx context.Context, sessionID string) (*domain.DirectPurchase, error) {
	return readJSON[domain.DirectPurchase](s.client.GetDel(ctx, slotKey(sessionID)), ErrSlotEmpty)
}
