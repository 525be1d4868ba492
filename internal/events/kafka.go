package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/logger"
)

const (
	DefaultTopic   = "order-events"
	DefaultGroupID = "catsden-notifier"
)

type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}
	return &KafkaPublisher{writer: w, timeout: 5 * time.Second}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.OrderNumber),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Mailer sends the customer-facing notice for an order event.
type Mailer interface {
	Send(ctx context.Context, event OrderEvent) error
}

// LogMailer writes notices to the log instead of sending mail.
type LogMailer struct {
	Log *slog.Logger
}

func (m LogMailer) Send(ctx context.Context, event OrderEvent) error {
	subject, ok := Subject(event)
	if !ok {
		return nil
	}
	logger.OrDefault(m.Log).InfoContext(ctx, "notification sent",
		"subject", subject,
		"order_number", event.OrderNumber,
		"user_id", event.UserID,
	)
	return nil
}

// Subject returns the notice subject for an event, or false when the event
// does not warrant one.
func Subject(event OrderEvent) (string, bool) {
	switch event.Type {
	case OrderCreated:
		return fmt.Sprintf("We received your order %s", event.OrderNumber), true
	case OrderPaymentUpdated:
		switch event.PaymentStatus {
		case domain.PaymentStatusPaid:
			return fmt.Sprintf("Payment confirmed for order %s", event.OrderNumber), true
		case domain.PaymentStatusFailed:
			return fmt.Sprintf("Payment failed for order %s", event.OrderNumber), true
		case domain.PaymentStatusRefunded:
			return fmt.Sprintf("Refund issued for order %s", event.OrderNumber), true
		}
	case OrderStatusUpdated:
		return fmt.Sprintf("Order %s is now %s", event.OrderNumber, event.Status), true
	}
	return "", false
}

// MessageReader is the part of kafka.Reader the notifier uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Notifier consumes order events and hands them to a Mailer.
type Notifier struct {
	reader     MessageReader
	mailer     Mailer
	log        *slog.Logger
	retryDelay time.Duration
}

func NewKafkaReader(topic, groupID string, brokers ...string) *kafka.Reader {
	if topic == "" {
		topic = DefaultTopic
	}
	if groupID == "" {
		groupID = DefaultGroupID
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
}

func NewNotifier(reader MessageReader, mailer Mailer, log *slog.Logger) *Notifier {
	return &Notifier{reader: reader, mailer: mailer, log: logger.OrDefault(log), retryDelay: time.Second}
}

// Run reads until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		n.handleNext(ctx)
	}
}

func (n *Notifier) Close() {
	if err := n.reader.Close(); err != nil {
		n.log.Error("error closing reader", "error", err)
	}
}

func (n *Notifier) handleNext(ctx context.Context) {
	m, err := n.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		n.log.ErrorContext(ctx, "error reading message", "error", err)
		select {
		case <-ctx.Done():
		case <-time.After(n.retryDelay):
		}
		return
	}

	var event OrderEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		n.log.WarnContext(ctx, "error parsing message", "offset", m.Offset, "error", err)
		return
	}
	if event.OrderNumber == "" {
		n.log.WarnContext(ctx, "event without order number", "offset", m.Offset)
		return
	}

	if err := n.mailer.Send(ctx, event); err != nil {
		n.log.ErrorContext(ctx, "failed to send notification", "order_number", event.OrderNumber, "error", err)
	}
}
