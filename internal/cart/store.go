// Package cart is the single writer of every session's cart.
//
// Each mutation reads the persisted line list, changes it, writes the full list
// back, drops the cached copy and then signals subscribers on the session topic.
// The four steps run under a per-session lock, so rapid consecutive mutations
// apply one after another.
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_storefront/internal/broadcast"
	"github.com/fjod/go_storefront/internal/cache"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/fjod/go_storefront/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Store struct {
	repo   repository.CartRepository
	cache  cache.CartCache
	events broadcast.Publisher
	sfg    singleflight.Group // Prevents cache stampede
	locks  *sessionLocks
	log    *zap.Logger
	now    func() time.Time
}

func NewStore(repo repository.CartRepository, cache cache.CartCache, events broadcast.Publisher, log *zap.Logger) *Store {
	return &Store{
		repo:   repo,
		cache:  cache,
		events: events,
		locks:  newSessionLocks(),
		log:    log,
		now:    time.Now,
	}
}

// AddRequest is a product selection with the display fields captured at add time.
type AddRequest struct {
	ProductID string
	Size      string
	Color     string
	UnitPrice decimal.Decimal
	Quantity  int
	Name      string
	PhotoURL  string
	Category  domain.Category
}

func (r AddRequest) Validate() error {
	if r.Size == "" {
		return domain.ErrSizeRequired
	}
	if r.Color == "" {
		return domain.ErrColorRequired
	}
	if r.Quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	return nil
}

func (r AddRequest) LineItem() domain.LineItem {
	return domain.LineItem{
		ProductID: r.ProductID,
		Size:      r.Size,
		Color:     r.Color,
		UnitPrice: r.UnitPrice,
		Quantity:  r.Quantity,
		Name:      r.Name,
		PhotoURL:  r.PhotoURL,
		Category:  r.Category,
	}
}

// Get returns the session's cart; a session without one gets an empty cart.
func (s *Store) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, sessionID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("cache get failed", zap.String("session_id", sessionID), zap.Error(err))
		}

		// a miss is filled under the session lock so a concurrent mutation
		// cannot be followed by a stale cache write
		unlock := s.locks.lock(sessionID)
		defer unlock()

		cart, err = s.load(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, sessionID, cart); err != nil {
			s.log.Warn("cache set failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// Add merges the selection into the line with the same (product, size, colour)
// or appends a new line at the end.
func (s *Store) Add(ctx context.Context, sessionID string, req AddRequest) (*domain.Cart, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	item := req.LineItem()

	return s.mutate(ctx, sessionID, "add", func(c *domain.Cart) error {
		for i := range c.Items {
			if c.Items[i].Key() == item.Key() {
				c.Items[i].Quantity += item.Quantity
				return nil
			}
		}
		c.Items = append(c.Items, item)
		return nil
	})
}

func (s *Store) Increment(ctx context.Context, sessionID string, index int) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, "increment", func(c *domain.Cart) error {
		if !inRange(c, index) {
			return ErrLineNotFound
		}
		c.Items[index].Quantity++
		return nil
	})
}

// Decrement lowers the quantity by one. A line at quantity 1 is removed.
func (s *Store) Decrement(ctx context.Context, sessionID string, index int) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, "decrement", func(c *domain.Cart) error {
		if !inRange(c, index) {
			return ErrLineNotFound
		}
		if c.Items[index].Quantity <= 1 {
			c.Items = removeAt(c.Items, index)
			return nil
		}
		c.Items[index].Quantity--
		return nil
	})
}

func (s *Store) Remove(ctx context.Context, sessionID string, index int) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, "remove", func(c *domain.Cart) error {
		if !inRange(c, index) {
			return ErrLineNotFound
		}
		c.Items = removeAt(c.Items, index)
		return nil
	})
}

// RemovePurchased takes the paid-for quantities out of the cart. Lines added
// or topped up after the checkout snapshot keep whatever exceeds it.
func (s *Store) RemovePurchased(ctx context.Context, sessionID string, purchased []domain.LineItem) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, "remove_purchased", func(c *domain.Cart) error {
		paid := make(map[domain.LineKey]int, len(purchased))
		for _, item := range purchased {
			paid[item.Key()] += item.Quantity
		}
		kept := make([]domain.LineItem, 0, len(c.Items))
		for _, item := range c.Items {
			item.Quantity -= paid[item.Key()]
			if item.Quantity > 0 {
				kept = append(kept, item)
			}
		}
		c.Items = kept
		return nil
	})
}

// Clear empties the cart. It refuses to run unless the user confirmed.
func (s *Store) Clear(ctx context.Context, sessionID string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	return s.Empty(ctx, sessionID)
}

// Empty drops the whole cart without asking.
func (s *Store) Empty(ctx context.Context, sessionID string) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	if err := s.repo.DeleteCart(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		s.log.Error("repo delete cart failed", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	s.invalidate(sessionID)
	s.notify(ctx, sessionID)
	s.log.Info("cart cleared", zap.String("session_id", sessionID))
	return nil
}

func (s *Store) mutate(ctx context.Context, sessionID, op string, apply func(*domain.Cart) error) (*domain.Cart, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()
	log := logger.Session(s.log, sessionID).With(zap.String("op", op))

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := apply(cart); err != nil {
		return nil, err
	}
	cart.UpdatedAt = s.now()

	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		log.Error("repo upsert cart failed", zap.Error(err))
		return nil, err
	}
	s.invalidate(sessionID)
	s.notify(ctx, sessionID)

	log.Debug("cart updated",
		zap.Int("lines", len(cart.Items)),
		zap.Int("count", cart.Count()))
	return cart, nil
}

// load reads the durable copy; mutations never start from the cache.
func (s *Store) load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, sessionID)
	if errors.Is(err, repository.ErrCartNotFound) {
		now := s.now()
		return &domain.Cart{SessionID: sessionID, Items: []domain.LineItem{}, CreatedAt: now, UpdatedAt: now}, nil
	}
	if err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []domain.LineItem{}
	}
	return cart, nil
}

func (s *Store) invalidate(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		s.log.Warn("cache invalidate failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *Store) notify(ctx context.Context, sessionID string) {
	if err := s.events.Publish(ctx, sessionID); err != nil {
		s.log.Warn("cart change broadcast failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func inRange(c *domain.Cart, index int) bool {
	return index >= 0 && index < len(c.Items)
}

func removeAt(items []domain.LineItem, index int) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items)-1)
	out = append(out, items[:index]...)
	return append(out, items[index+1:]...)
}
