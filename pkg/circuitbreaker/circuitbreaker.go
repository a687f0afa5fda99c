// Package circuitbreaker wraps sony/gobreaker for calls into external backends.
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

type Settings struct {
	Name             string
	ConsecutiveFails uint32
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
}

func DefaultSettings(name string) Settings {
	return Settings{
		Name:             name,
		ConsecutiveFails: 5,
		OpenTimeout:      10 * time.Second,
		HalfOpenRequests: 1,
	}
}

type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

func New[T any](s Settings, log *zap.Logger) *Breaker[T] {
	st := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](st)}
}

// Do runs fn through the breaker. Rejections are reported as ErrOpen.
// Errors for which ignore returns true are passed through without counting as failures.
func (b *Breaker[T]) Do(fn func() (T, error), ignore func(error) bool) (T, error) {
	var passthrough error
	v, err := b.cb.Execute(func() (T, error) {
		v, err := fn()
		if err != nil && ignore != nil && ignore(err) {
			passthrough = err
			var zero T
			return zero, nil
		}
		return v, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, ErrOpen
	}
	if passthrough != nil {
		var zero T
		return zero, passthrough
	}
	return v, err
}

func (b *Breaker[T]) State() string {
	return b.cb.State().String()
}
