package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fjod/cats-den/internal/domain"
)

type Type string

const (
	OrderCreated        Type = "order.created"
	OrderPaymentUpdated Type = "order.payment_updated"
	OrderStatusUpdated  Type = "order.status_updated"
)

// OrderEvent is published to the order-events topic, keyed by order number so
// that every event of one order lands on the same partition.
type OrderEvent struct {
	ID            string               `json:"id"`
	Type          Type                 `json:"type"`
	OrderNumber   string               `json:"orderNumber"`
	UserID        string               `json:"userId"`
	Status        domain.OrderStatus   `json:"status"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	Total         float64              `json:"total"`
	OccurredAt    time.Time            `json:"occurredAt"`
}

func NewOrderEvent(t Type, order *domain.Order, now time.Time) OrderEvent {
	return OrderEvent{
		ID:            uuid.NewString(),
		Type:          t,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Total:         order.Total,
		OccurredAt:    now.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// NopPublisher drops events. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
