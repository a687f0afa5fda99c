package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/pkg/circuitbreaker"
	"go.uber.org/zap"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

// Collection is the external product collection.
type Collection interface {
	Find(ctx context.Context, q Query) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type Result struct {
	Filter   domain.Filter    `json:"filter"`
	Products []domain.Product `json:"products"`
	Empty    bool             `json:"empty"`
	Sequence uint64           `json:"sequence"`
	Stale    bool             `json:"stale"`
}

type Service struct {
	products Collection
	breaker  *circuitbreaker.Breaker[[]domain.Product]
	feeds    *Feeds
	log      *zap.Logger
}

func NewService(products Collection, log *zap.Logger) *Service {
	return &Service{
		products: products,
		breaker:  circuitbreaker.New[[]domain.Product](circuitbreaker.DefaultSettings("product-collection"), log),
		feeds:    NewFeeds(),
		log:      log,
	}
}

func (s *Service) Feeds() *Feeds {
	return s.feeds
}

// Search runs a fresh query for the filter set. No matches is an empty result, not an error.
func (s *Service) Search(ctx context.Context, f domain.Filter) (Result, error) {
	f = f.Normalize()
	products, err := s.Find(ctx, BuildQuery(f))
	if err != nil {
		return Result{Filter: f, Products: []domain.Product{}, Empty: true}, err
	}
	return Result{Filter: f, Products: products, Empty: len(products) == 0}, nil
}

// Browse searches on behalf of a browsing session. A response that resolves after a
// newer one for the same session is discarded and the fresher result returned instead.
func (s *Service) Browse(ctx context.Context, sessionID string, f domain.Filter) (Result, error) {
	feed := s.feeds.For(sessionID)
	seq := feed.Next()

	res, err := s.Search(ctx, f)
	res.Sequence = seq
	if err != nil {
		if latest, ok := feed.Newer(seq); ok {
			return latest, nil
		}
		return res, err
	}

	applied, fresh := feed.Apply(res)
	if !fresh {
		s.log.Debug("discarded stale catalog response",
			zap.String("session_id", sessionID),
			zap.Uint64("sequence", seq),
			zap.Uint64("applied", applied.Sequence))
	}
	return applied, nil
}

func (s *Service) Find(ctx context.Context, q Query) ([]domain.Product, error) {
	products, err := s.breaker.Do(func() ([]domain.Product, error) {
		return s.products.Find(ctx, q)
	}, nil)
	if err != nil {
		s.log.Error("product query failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	found, err := s.breaker.Do(func() ([]domain.Product, error) {
		p, err := s.products.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return []domain.Product{*p}, nil
	}, isNotFound)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProductNotFound
		}
		s.log.Error("product fetch failed", zap.String("product_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return &found[0], nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound)
}
