package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes of everything the storefront keeps in redis.
const (
	cartPrefix     = "cart:"
	slotPrefix     = "direct_purchase:"
	checkoutPrefix = "checkout:"
)

func cacheKey(sessionID string) string  { return cartPrefix + sessionID }
func slotKey(sessionID string) string   { return slotPrefix + sessionID }
func draftKey(checkoutID string) string { return checkoutPrefix + checkoutID }

func writeJSON(ctx context.Context, client *redis.Client, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}
	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s failed: %w", key, err)
	}
	return nil
}

// readJSON decodes the reply of a GET-like command. A missing key yields miss.
func readJSON[T any](cmd *redis.StringCmd, miss error) (*T, error) {
	data, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, miss
	}
	if err != nil {
		return nil, fmt.Errorf("redis %s failed: %w", cmd.Name(), err)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %v failed: %w", cmd.Args()[1], err)
	}
	return &v, nil
}

func del(ctx context.Context, client *redis.Client, key string) error {
	if err := client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s failed: %w", key, err)
	}
	return nil
}
