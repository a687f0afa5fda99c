package cache

import (
	"context"
	"math/rand"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	cartTTL    = 15 * time.Minute
	cartJitter = 5 // minutes
)

// RedisCache is the read-through copy of session carts. The cart store owns
// invalidation; entries here are never the source of truth.
type RedisCache struct {
	client *redis.Client
	ttl    func() time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
		// carts cached in the same burst expire spread out
		ttl: func() time.Duration { return cartTTL + time.Duration(rand.Intn(cartJitter))*time.Minute },
	}
}

func (r *RedisCache) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return readJSON[domain.Cart](r.client.Get(ctx, cacheKey(sessionID)), ErrCacheMiss)
}

func (r *RedisCache) Set(ctx context.Context, sessionID string, cart *domain.Cart) error {
	return writeJSON(ctx, r.client, cacheKey(sessionID), cart, r.ttl())
}

func (r *RedisCache) Delete(ctx context.Context, sessionID string) error {
	return del(ctx, r.client, cacheKey(sessionID))
}
