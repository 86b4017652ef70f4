package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// Topics published by the platform
const (
	TopicSubscriptionEvents = "ministry.subscription.events"
	TopicPaymentEvents      = "ministry.payment.events"
)

// Producer publishes billing lifecycle messages. Publishing is best effort:
// callers log failures but never fail the originating request on them.
type Producer interface {
	// PublishSubscriptionEvent sends a subscription lifecycle message, keyed
	// by the Stripe subscription id so events for one subscription stay in
	// one partition.
	PublishSubscriptionEvent(ctx context.Context, eventType string, sub domain.Subscription) error

	// PublishPaymentEvent sends a settlement message keyed by user id.
	PublishPaymentEvent(ctx context.Context, eventType string, payment domain.Payment) error

	// Close closes the underlying writer.
	Close() error
}

type subscriptionMessage struct {
	EventType    string              `json:"event_type"`
	Subscription domain.Subscription `json:"subscription"`
	Timestamp    time.Time           `json:"timestamp"`
}

type paymentMessage struct {
	EventType string         `json:"event_type"`
	Payment   domain.Payment `json:"payment"`
	Timestamp time.Time      `json:"timestamp"`
}

// kafkaProducer implements Producer over segmentio/kafka-go
type kafkaProducer struct {
	writer *kafka.Writer
	log    *logger.Logger
}

// NewProducer creates a Kafka producer for the given brokers
func NewProducer(brokers []string, log *logger.Logger) (Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are not configured")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	log.Infow("Kafka producer initialized", "brokers", brokers)
	return &kafkaProducer{writer: writer, log: log}, nil
}

// PublishSubscriptionEvent sends a subscription lifecycle message
func (k *kafkaProducer) PublishSubscriptionEvent(ctx context.Context, eventType string, sub domain.Subscription) error {
	value, err := json.Marshal(subscriptionMessage{
		EventType:    eventType,
		Subscription: sub,
		Timestamp:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("kafka: failed to marshal subscription message: %w", err)
	}

	return k.write(ctx, kafka.Message{
		Topic: TopicSubscriptionEvents,
		Key:   []byte(sub.StripeSubscriptionID),
		Value: value,
		Time:  time.Now(),
	})
}

// PublishPaymentEvent sends a settlement message
func (k *kafkaProducer) PublishPaymentEvent(ctx context.Context, eventType string, payment domain.Payment) error {
	value, err := json.Marshal(paymentMessage{
		EventType: eventType,
		Payment:   payment,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("kafka: failed to marshal payment message: %w", err)
	}

	return k.write(ctx, kafka.Message{
		Topic: TopicPaymentEvents,
		Key:   []byte(payment.UserID.String()),
		Value: value,
		Time:  time.Now(),
	})
}

func (k *kafkaProducer) write(ctx context.Context, msg kafka.Message) error {
	writeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := k.writer.WriteMessages(writeCtx, msg); err != nil {
		k.log.Errorw("Failed to write Kafka message", "error", err, "topic", msg.Topic)
		return fmt.Errorf("kafka: failed to write message: %w", err)
	}
	return nil
}

// Close closes the underlying writer
func (k *kafkaProducer) Close() error {
	return k.writer.Close()
}

// NoopProducer is used when no brokers are configured
type NoopProducer struct{}

// PublishSubscriptionEvent does nothing
func (NoopProducer) PublishSubscriptionEvent(context.Context, string, domain.Subscription) error {
	return nil
}

// PublishPaymentEvent does nothing
func (NoopProducer) PublishPaymentEvent(context.Context, string, domain.Payment) error {
	return nil
}

// Close does nothing
func (NoopProducer) Close() error { return nil }
