package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fjod/cats-den/internal/catalog"
	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/events"
	"github.com/fjod/cats-den/internal/logger"
	"github.com/fjod/cats-den/internal/payment"
	"github.com/fjod/cats-den/internal/pricing"
	"github.com/fjod/cats-den/internal/repository"
	"github.com/fjod/cats-den/internal/telemetry"
	"github.com/fjod/cats-den/internal/validation"
)

const maxOrderNumberAttempts = 5

// KittenLookup resolves a kitten from the catalog.
type KittenLookup interface {
	KittenByID(ctx context.Context, id string) (*domain.Kitten, error)
}

// CreateOrderRequest is the checkout snapshot submitted by the storefront.
type CreateOrderRequest struct {
	Items           []domain.OrderItem `json:"items" validate:"required,min=1,dive"`
	ShippingAddress domain.Address     `json:"shippingAddress"`
	BillingAddress  *domain.Address    `json:"billingAddress,omitempty" validate:"omitempty"`
	Subtotal        float64            `json:"subtotal" validate:"gte=0"`
	Shipping        float64            `json:"shipping" validate:"gte=0"`
	Tax             float64            `json:"tax" validate:"gte=0"`
	Total           float64            `json:"total" validate:"gte=0"`
	PaymentMethod   string             `json:"paymentMethod,omitempty"`
	Notes           string             `json:"notes,omitempty" validate:"max=1000"`
}

func (r CreateOrderRequest) normalized() CreateOrderRequest {
	items := make([]domain.OrderItem, len(r.Items))
	for i, item := range r.Items {
		item.KittenID = strings.TrimSpace(item.KittenID)
		item.KittenName = strings.TrimSpace(item.KittenName)
		items[i] = item
	}
	r.Items = items
	r.ShippingAddress = trimAddress(r.ShippingAddress)
	if r.BillingAddress != nil {
		billing := trimAddress(*r.BillingAddress)
		r.BillingAddress = &billing
	}
	r.Notes = strings.TrimSpace(r.Notes)
	return r
}

func trimAddress(a domain.Address) domain.Address {
	return domain.Address{
		Name:       strings.TrimSpace(a.Name),
		Street:     strings.TrimSpace(a.Street),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
		Phone:      strings.TrimSpace(a.Phone),
	}
}

func (r CreateOrderRequest) totals() domain.Totals {
	return domain.Totals{Subtotal: r.Subtotal, Shipping: r.Shipping, Tax: r.Tax, Total: r.Total}
}

type OrderDeps struct {
	Orders    repository.OrderRepository
	Publisher events.Publisher
	Payments  payment.Provider
	// Catalog is consulted only when VerifyCatalog is set.
	Catalog       KittenLookup
	VerifyCatalog bool
	Pricing       pricing.Policy
	Currency      string
	Logger        *slog.Logger
	Metrics       *telemetry.Metrics
}

type OrderService struct {
	orders        repository.OrderRepository
	publisher     events.Publisher
	payments      payment.Provider
	catalog       KittenLookup
	verifyCatalog bool
	policy        pricing.Policy
	currency      string
	log           *slog.Logger
	metrics       *telemetry.Metrics

	now    func() time.Time
	digits func() int
}

func NewOrderService(d OrderDeps) *OrderService {
	s := &OrderService{
		orders:        d.Orders,
		publisher:     d.Publisher,
		payments:      d.Payments,
		catalog:       d.Catalog,
		verifyCatalog: d.VerifyCatalog && d.Catalog != nil,
		policy:        d.Pricing,
		currency:      d.Currency,
		log:           logger.OrDefault(d.Logger),
		metrics:       d.Metrics,
		now:           time.Now,
		digits:        func() int { return rand.IntN(10000) },
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.currency == "" {
		s.currency = "usd"
	}
	return s
}

// orderNumber returns CD-YYYYMMDD-NNNN for the current UTC date.
func (s *OrderService) orderNumber() string {
	return fmt.Sprintf("CD-%s-%04d", s.now().UTC().Format("20060102"), s.digits())
}

// CreateOrder validates the snapshot, re-prices it and persists a new
// pending order. Totals are recomputed server side and a client total that
// disagrees is rejected.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (*domain.Order, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	req = req.normalized()
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(req.Items))
	prices := make([]float64, 0, len(req.Items))
	for i, item := range req.Items {
		if _, dup := seen[item.KittenID]; dup {
			return nil, invalid(fmt.Sprintf("items[%d].kittenId", i), "Each kitten can only be ordered once")
		}
		seen[item.KittenID] = struct{}{}
		prices = append(prices, item.Price)
	}

	computed := s.policy.Compute(prices)
	if field := pricing.Mismatch(req.totals(), computed); field != "" {
		return nil, invalid(field, "Order totals do not match the items in your cart")
	}

	if s.verifyCatalog {
		if err := s.verifyItems(ctx, req.Items); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	order := &domain.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Items:           req.Items,
		Totals:          computed,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Notes:           req.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var err error
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		order.OrderNumber = s.orderNumber()
		err = s.orders.CreateOrder(ctx, order)
		if !errors.Is(err, repository.ErrDuplicateOrderNumber) {
			break
		}
		s.log.WarnContext(ctx, "order number collision, retrying",
			"order_number", order.OrderNumber, "attempt", attempt)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.metrics.OrderCreated()
	s.log.InfoContext(ctx, "order created",
		"order_number", order.OrderNumber, "user_id", userID, "total", order.Total)
	s.publish(ctx, events.OrderCreated, order)
	return order, nil
}

func (s *OrderService) verifyItems(ctx context.Context, items []domain.OrderItem) error {
	for i, item := range items {
		kitten, err := s.catalog.KittenByID(ctx, item.KittenID)
		if errors.Is(err, catalog.ErrNotFound) {
			return invalid(fmt.Sprintf("items[%d].kittenId", i), fmt.Sprintf("%s is no longer listed", item.KittenName))
		}
		if err != nil {
			return fmt.Errorf("failed to look up kitten %s: %w", item.KittenID, err)
		}
		if kitten.Availability != domain.AvailabilityAvailable {
			return invalid(fmt.Sprintf("items[%d].kittenId", i), fmt.Sprintf("%s is no longer available", kitten.Name))
		}
		if pricing.Cents(kitten.Price) != pricing.Cents(item.Price) {
			return invalid(fmt.Sprintf("items[%d].price", i), fmt.Sprintf("The price of %s has changed", kitten.Name))
		}
	}
	return nil
}

func (s *OrderService) publish(ctx context.Context, t events.Type, order *domain.Order) {
	if err := s.publisher.Publish(ctx, events.NewOrderEvent(t, order, s.now())); err != nil {
		s.log.WarnContext(ctx, "failed to publish order event",
			"type", t, "order_number", order.OrderNumber, "error", err)
	}
}

// ListOrders returns the caller's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	orders, err := s.orders.ListOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns one of the caller's orders. Orders of other users are
// reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderNumber string) (*domain.Order, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	order, err := s.orders.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

// UpdateStatus moves an order along the fulfillment track. It is an
// administrative operation with no owner check.
func (s *OrderService) UpdateStatus(ctx context.Context, orderNumber string, to domain.OrderStatus) (*domain.Order, error) {
	if !to.Valid() {
		return nil, invalid("status", "Status is invalid")
	}
	order, err := s.orders.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if !order.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrIllegalTransition, order.Status, to)
	}
	if err := s.orders.UpdateOrderStatus(ctx, orderNumber, order.Status, to); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: order changed concurrently", ErrIllegalTransition)
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	order.Status = to
	order.UpdatedAt = s.now().UTC()
	s.publish(ctx, events.OrderStatusUpdated, order)
	return order, nil
}

// CreatePaymentIntent opens a provider intent for an owned order that still
// awaits payment. The intent metadata carries the order number.
func (s *OrderService) CreatePaymentIntent(ctx context.Context, userID, orderNumber string) (*payment.Intent, error) {
	order, err := s.GetOrder(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != domain.PaymentStatusPending && order.PaymentStatus != domain.PaymentStatusFailed {
		return nil, ErrOrderNotPayable
	}
	if order.Status == domain.OrderStatusCancelled {
		return nil, ErrOrderNotPayable
	}

	intent, err := s.payments.CreatePaymentIntent(ctx, payment.CreateIntentParams{
		Amount:  payment.Amount{Amount: pricing.Cents(order.Total), Currency: s.currency},
		OrderID: order.OrderNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	if err := s.orders.SetPaymentIntent(ctx, order.OrderNumber, intent.ID); err != nil {
		return nil, fmt.Errorf("failed to record payment intent: %w", err)
	}
	return intent, nil
}
