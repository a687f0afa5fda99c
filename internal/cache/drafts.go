package cache

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

const DefaultDraftTTL = 2 * time.Hour

var ErrDraftNotFound = errors.New("checkout draft not found")

type DraftStore interface {
	Save(ctx context.Context, order *domain.Order) error
	Load(ctx context.Context, checkoutID string) (*domain.Order, error)
	Delete(ctx context.Context, checkoutID string) error
}

// RedisDrafts keeps the order a checkout page was opened with, keyed by checkout id.
type RedisDrafts struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDrafts(client *redis.Client, ttl time.Duration) *RedisDrafts {
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return &RedisDrafts{client: client, ttl: ttl}
}

func (d *RedisDrafts) Save(ctx context.Context, order *domain.Order) error {
	return writeJSON(ctx, d.client, draftKey(order.CheckoutID), order, d.ttl)
}

func (d *RedisDrafts) Load(ctx context.Context, checkoutID string) (*domain.Order, error) {
	return readJSON[domain.Order](d.client.Get(ctx, draftKey(checkoutID)), ErrDraftNotFound)
}

func (d *RedisDrafts) Delete(ctx context.Context, checkoutID string) error {
	return del(ctx, d.client, draftKey(checkoutID))
}
