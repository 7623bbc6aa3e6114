package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"github.com/wekeepgrowing/jobportal-payment/pkg/messaging"
	"go.uber.org/zap"
)

// DefaultChannel carries every applied payment transition
const DefaultChannel = "payments.events"

// PaymentEvent is the JSON message published for each applied transition
type PaymentEvent struct {
	PaymentID   uuid.UUID           `json:"payment_id"`
	Provider    model.ProviderType  `json:"provider"`
	ProviderRef string              `json:"provider_ref"`
	From        model.PaymentStatus `json:"from"`
	To          model.PaymentStatus `json:"to"`
	OccurredAt  time.Time           `json:"occurred_at"`
}

// Publisher fans transitions out to other services. Delivery is best effort:
// the database row is authoritative and a lost message is never retried.
type Publisher struct {
	client  messaging.RedisClient
	channel string
	logger  *zap.Logger
}

func NewPublisher(client messaging.RedisClient, channel string, logger *zap.Logger) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// PublishTransition logs and swallows publish failures
func (p *Publisher) PublishTransition(ctx context.Context, payment *model.Payment, from model.PaymentStatus) {
	event := PaymentEvent{
		PaymentID:  payment.ID,
		Provider:   payment.Provider,
		From:       from,
		To:         payment.Status,
		OccurredAt: time.Now().UTC(),
	}
	if payment.ProviderRef != nil {
		event.ProviderRef = *payment.ProviderRef
	}

	if err := p.client.Publish(ctx, p.channel, event); err != nil {
		p.logger.Warn("Failed to publish payment event",
			zap.String("payment_id", payment.ID.String()),
			zap.String("to", string(payment.Status)),
			zap.Error(err))
		return
	}

	p.logger.Debug("Payment event published",
		zap.String("payment_id", payment.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(payment.Status)))
}

// Stream decodes events from the channel until ctx ends
func (p *Publisher) Stream(ctx context.Context) (<-chan PaymentEvent, error) {
	msgs, err := p.client.Subscribe(ctx, p.channel)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", p.channel, err)
	}

	out := make(chan PaymentEvent)
	go func() {
		defer close(out)
		for msg := range msgs {
			var event PaymentEvent
			if err := msg.Decode(&event); err != nil {
				p.logger.Warn("Skipping undecodable payment event", zap.Error(err))
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
