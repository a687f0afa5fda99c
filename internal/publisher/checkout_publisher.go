package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const DefaultTopic = "checkout-submitted"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// CheckoutPublisher writes checkout events keyed by checkout id, so events of
// one checkout stay ordered within a partition.
type CheckoutPublisher struct {
	writer messageWriter
	log    *zap.Logger
}

func NewCheckoutPublisher(log *zap.Logger, topic string, brokers ...string) *CheckoutPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &CheckoutPublisher{writer: w, log: log}
}

func (p *CheckoutPublisher) PublishCheckout(ctx context.Context, e domain.CheckoutSubmitted) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(e.CheckoutID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(domain.EventCheckoutSubmitted)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish checkout event: %w", err)
	}

	p.log.Debug("checkout event published", zap.String("checkout_id", e.CheckoutID))
	return nil
}

func (p *CheckoutPublisher) Close() error {
	return p.writer.Close()
}
