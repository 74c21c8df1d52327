// Package publisher delivers webhook events over a watermill transport.
// Services publish after their transaction commits; delivery is at-least-once
// and consumers dedupe on the event id.
package publisher

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	wmkafka "github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/billcraft/billcraft/internal/config"
	ierr "github.com/billcraft/billcraft/internal/errors"
	"github.com/billcraft/billcraft/internal/kafka"
	"github.com/billcraft/billcraft/internal/logger"
	"github.com/billcraft/billcraft/internal/types"
)

// WebhookPublisher publishes webhook events for downstream delivery
type WebhookPublisher interface {
	PublishWebhook(ctx context.Context, event *types.WebhookEvent) error
	Close() error
}

type webhookPublisher struct {
	publisher message.Publisher
	topic     string
	enabled   bool
	logger    *logger.Logger
}

// NewWebhookPublisher builds the publisher selected by configuration:
// an in-process gochannel transport by default, Kafka when configured.
func NewWebhookPublisher(cfg *config.Configuration, log *logger.Logger) (WebhookPublisher, error) {
	wmLogger := NewWatermillLogger(log)

	var pub message.Publisher
	var err error
	switch cfg.Webhook.PubSub {
	case "kafka":
		pub, err = wmkafka.NewPublisher(wmkafka.PublisherConfig{
			Brokers:               cfg.Kafka.Brokers,
			Marshaler:             wmkafka.DefaultMarshaler{},
			OverwriteSaramaConfig: kafka.GetSaramaConfig(cfg),
		}, wmLogger)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to create kafka webhook publisher").
				Mark(ierr.ErrSystem)
		}
	default:
		pub = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
	}

	return NewWebhookPublisherWithTransport(cfg, log, pub), nil
}

// NewWebhookPublisherWithTransport wires an explicit transport, used by tests
func NewWebhookPublisherWithTransport(cfg *config.Configuration, log *logger.Logger, pub message.Publisher) WebhookPublisher {
	return &webhookPublisher{
		publisher: pub,
		topic:     cfg.Webhook.Topic,
		enabled:   cfg.Webhook.Enabled,
		logger:    log,
	}
}

func (p *webhookPublisher) PublishWebhook(ctx context.Context, event *types.WebhookEvent) error {
	if !p.enabled {
		p.logger.Debugw("webhook publishing disabled, dropping event",
			"event_id", event.ID,
			"event_name", event.EventName)
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to marshal webhook event").
			Mark(ierr.ErrInternal)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_name", event.EventName)
	msg.Metadata.Set("tenant_id", event.TenantID)
	msg.Metadata.Set("environment_id", event.EnvironmentID)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to publish webhook event").
			WithReportableDetails(map[string]any{
				"event_id":   event.ID,
				"event_name": event.EventName,
			}).
			Mark(ierr.ErrSystem)
	}

	p.logger.Debugw("published webhook event",
		"event_id", event.ID,
		"event_name", event.EventName,
		"topic", p.topic)

	return nil
}

func (p *webhookPublisher) Close() error {
	return p.publisher.Close()
}
