// Package kafka publishes booking notifications and payment events.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/arunvm123/carrental/model"
	"github.com/arunvm123/carrental/service"
)

// MessageWriter is the part of *kafka.Writer the publishers use.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewWriter returns a writer keyed by booking id, so every message for one
// booking lands on the same partition.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// Notifier publishes a NotificationRequest for every booking change.
type Notifier struct {
	writer MessageWriter
	now    func() time.Time
}

var _ service.Notifier = (*Notifier)(nil)

func NewNotifier(writer MessageWriter) *Notifier {
	return &Notifier{writer: writer, now: time.Now}
}

func (n *Notifier) Notify(ctx context.Context, b *model.Booking) error {
	value, err := json.Marshal(b.ToNotificationRequest(n.now()))
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	if err := n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(b.ID),
		Value: value,
	}); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// PaymentPublisher puts gateway outcomes on the payment topic.
type PaymentPublisher struct {
	writer MessageWriter
}

var _ service.PaymentEventPublisher = (*PaymentPublisher)(nil)

func NewPaymentPublisher(writer MessageWriter) *PaymentPublisher {
	return &PaymentPublisher{writer: writer}
}

func (p *PaymentPublisher) PublishPaymentEvent(ctx context.Context, event model.PaymentEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode payment event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.BookingID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}); err != nil {
		return fmt.Errorf("failed to publish payment event: %w", err)
	}
	return nil
}
