package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/cats-den/internal/cache"
	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/events"
	"github.com/fjod/cats-den/internal/logger"
	"github.com/fjod/cats-den/internal/payment"
	"github.com/fjod/cats-den/internal/repository"
	"github.com/fjod/cats-den/internal/telemetry"
)

// Outcome describes what a webhook delivery did. Every outcome except a
// returned error is acknowledged to the provider.
type Outcome string

const (
	OutcomeApplied     Outcome = "applied"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeStale       Outcome = "stale"
	OutcomeNoOrder     Outcome = "no_order"
	OutcomeUnknownType Outcome = "unknown_type"
	OutcomeError       Outcome = "error"
)

type WebhookDeps struct {
	Orders    repository.OrderRepository
	Deduper   cache.Deduper
	Publisher events.Publisher
	Logger    *slog.Logger
	Metrics   *telemetry.Metrics
}

type WebhookService struct {
	orders    repository.OrderRepository
	dedupe    cache.Deduper
	publisher events.Publisher
	log       *slog.Logger
	metrics   *telemetry.Metrics
	now       func() time.Time
}

func NewWebhookService(d WebhookDeps) *WebhookService {
	s := &WebhookService{
		orders:    d.Orders,
		dedupe:    d.Deduper,
		publisher: d.Publisher,
		log:       logger.OrDefault(d.Logger),
		metrics:   d.Metrics,
		now:       time.Now,
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	return s
}

// paymentUpdateFor maps a provider event to the order change it causes.
func paymentUpdateFor(event *payment.Event) (repository.PaymentUpdate, bool) {
	var u repository.PaymentUpdate
	switch event.Type {
	case payment.EventPaymentSucceeded:
		u.To = domain.PaymentStatusPaid
		u.Status = domain.OrderStatusConfirmed
		u.PaymentIntentID = event.PaymentIntentID()
	case payment.EventPaymentFailed:
		u.To = domain.PaymentStatusFailed
	case payment.EventChargeRefunded:
		u.To = domain.PaymentStatusRefunded
		u.Status = domain.OrderStatusCancelled
	default:
		return u, false
	}
	u.OrderNumber = event.OrderID()
	u.From = u.To.Sources()
	if u.Status != "" {
		u.StatusFrom = u.Status.Sources()
	}
	return u, true
}

// HandlePaymentEvent applies a verified provider event to the order named in
// its metadata. Only that order is touched, and an update is skipped when the
// order has already moved past the states the event can follow. A non-nil
// error means nothing was applied and the provider should redeliver.
func (s *WebhookService) HandlePaymentEvent(ctx context.Context, event *payment.Event) (outcome Outcome, err error) {
	defer func() {
		s.metrics.WebhookEvent(event.Type, string(outcome))
	}()

	update, known := paymentUpdateFor(event)
	if !known {
		s.log.InfoContext(ctx, "ignoring webhook event", "event_id", event.ID, "type", event.Type)
		return OutcomeUnknownType, nil
	}
	if update.OrderNumber == "" {
		s.log.WarnContext(ctx, "webhook event carries no order reference", "event_id", event.ID, "type", event.Type)
		return OutcomeNoOrder, nil
	}

	claimed := false
	if s.dedupe != nil && event.ID != "" {
		first, err := s.dedupe.Claim(ctx, event.ID)
		if err != nil {
			// Status updates are conditional, so a replay without the
			// dedupe store is still harmless.
			s.log.WarnContext(ctx, "webhook dedupe unavailable", "event_id", event.ID, "error", err)
		} else if !first {
			s.log.InfoContext(ctx, "duplicate webhook event", "event_id", event.ID)
			return OutcomeDuplicate, nil
		} else {
			claimed = true
		}
	}

	err = s.orders.UpdatePayment(ctx, update)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrStatusConflict):
		s.log.InfoContext(ctx, "webhook event does not apply to current order state",
			"event_id", event.ID, "type", event.Type, "order_number", update.OrderNumber)
		return OutcomeStale, nil
	case errors.Is(err, repository.ErrOrderNotFound):
		s.log.WarnContext(ctx, "webhook event references unknown order",
			"event_id", event.ID, "order_number", update.OrderNumber)
		return OutcomeNoOrder, nil
	default:
		if claimed {
			if rerr := s.dedupe.Release(context.WithoutCancel(ctx), event.ID); rerr != nil {
				s.log.WarnContext(ctx, "failed to release webhook event", "event_id", event.ID, "error", rerr)
			}
		}
		return OutcomeError, fmt.Errorf("failed to apply payment event: %w", err)
	}

	s.log.InfoContext(ctx, "payment status updated",
		"event_id", event.ID, "order_number", update.OrderNumber, "payment_status", update.To)

	order, err := s.orders.GetOrderByNumber(ctx, update.OrderNumber)
	if err != nil {
		s.log.WarnContext(ctx, "failed to reload order for event", "order_number", update.OrderNumber, "error", err)
		return OutcomeApplied, nil
	}
	if update.Status != "" && order.Status != update.Status {
		s.log.WarnContext(ctx, "payment recorded on an order that cannot follow it",
			"event_id", event.ID, "order_number", order.OrderNumber,
			"status", order.Status, "payment_status", order.PaymentStatus)
	}
	if perr := s.publisher.Publish(ctx, events.NewOrderEvent(events.OrderPaymentUpdated, order, s.now())); perr != nil {
		s.log.WarnContext(ctx, "failed to publish order event",
			"type", events.OrderPaymentUpdated, "order_number", order.OrderNumber, "error", perr)
	}
	return OutcomeApplied, nil
}
