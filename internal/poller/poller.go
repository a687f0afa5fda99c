// Package poller consumes checkout events and empties carts that were paid for.
package poller

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const DefaultGroupID = "storefront-cart-cleaner"

type CartSettler interface {
	RemovePurchased(ctx context.Context, sessionID string, purchased []domain.LineItem) (*domain.Cart, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Poller struct {
	carts   CartSettler
	reader  messageReader
	log     *zap.Logger
	backoff time.Duration
}

func NewPoller(carts CartSettler, log *zap.Logger, topic string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  DefaultGroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{carts: carts, reader: reader, log: log, backoff: time.Second}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Warn("error reading checkout event", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.backoff):
			}
			continue
		}
		p.handle(ctx, m)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Warn("error closing reader", zap.Error(err))
	}
}

// handle takes the paid lines of a cart-sourced checkout out of the cart.
// Direct purchases never touched the cart, so their events are skipped.
func (p *Poller) handle(ctx context.Context, m kafka.Message) {
	if t := eventType(m); t != "" && t != domain.EventCheckoutSubmitted {
		return
	}

	var e domain.CheckoutSubmitted
	if err := json.Unmarshal(m.Value, &e); err != nil {
		p.log.Warn("error parsing checkout event", zap.Error(err))
		return
	}
	if e.SessionID == "" {
		p.log.Warn("checkout event without session", zap.String("checkout_id", e.CheckoutID))
		return
	}
	if e.Source != domain.SourceCart {
		return
	}

	if _, err := p.carts.RemovePurchased(ctx, e.SessionID, e.Items); err != nil {
		p.log.Error("failed to settle cart after checkout",
			zap.String("session_id", e.SessionID),
			zap.String("checkout_id", e.CheckoutID),
			zap.Error(err))
	}
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}
