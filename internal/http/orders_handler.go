package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/cats-den/internal/auth"
	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/logger"
	"github.com/fjod/cats-den/internal/payment"
	"github.com/fjod/cats-den/internal/service"
)

type OrderAPI interface {
	CreateOrder(ctx context.Context, userID string, req service.CreateOrderRequest) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string) ([]*domain.Order, error)
	GetOrder(ctx context.Context, userID, orderNumber string) (*domain.Order, error)
	CreatePaymentIntent(ctx context.Context, userID, orderNumber string) (*payment.Intent, error)
	UpdateStatus(ctx context.Context, orderNumber string, to domain.OrderStatus) (*domain.Order, error)
}

type OrdersHandler struct {
	orders         OrderAPI
	publishableKey string
	timeout        time.Duration
	log            *slog.Logger
}

func NewOrdersHandler(orders OrderAPI, publishableKey string, timeout time.Duration, log *slog.Logger) *OrdersHandler {
	return &OrdersHandler{
		orders:         orders,
		publishableKey: publishableKey,
		timeout:        timeout,
		log:            logger.OrDefault(log),
	}
}

type CreateOrderResponseDTO struct {
	OrderNumber string `json:"orderNumber"`
	Message     string `json:"message"`
}

type PaymentIntentResponseDTO struct {
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
	PublishableKey  string `json:"publishableKey"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

type UpdateStatusRequestDTO struct {
	Status domain.OrderStatus `json:"status"`
}

// POST /api/orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := auth.UserID(r.Context())
	if userID == "" {
		respondUnauthorized(w)
		return
	}

	var req service.CreateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.CreateOrder(ctx, userID, req)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, CreateOrderResponseDTO{
		OrderNumber: order.OrderNumber,
		Message:     "Order created successfully",
	})
}

// GET /api/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := auth.UserID(r.Context())
	if userID == "" {
		respondUnauthorized(w)
		return
	}

	orders, err := h.orders.ListOrders(ctx, userID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	respondJSON(w, http.StatusOK, orders)
}

// GET /api/orders/{orderNumber}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := auth.UserID(r.Context())
	if userID == "" {
		respondUnauthorized(w)
		return
	}

	order, err := h.orders.GetOrder(ctx, userID, chi.URLParam(r, "orderNumber"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// POST /api/orders/{orderNumber}/payment-intent
func (h *OrdersHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := auth.UserID(r.Context())
	if userID == "" {
		respondUnauthorized(w)
		return
	}

	intent, err := h.orders.CreatePaymentIntent(ctx, userID, chi.URLParam(r, "orderNumber"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, PaymentIntentResponseDTO{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		PublishableKey:  h.publishableKey,
		Amount:          intent.Amount.Amount,
		Currency:        intent.Amount.Currency,
	})
}

// PATCH /api/admin/orders/{orderNumber}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateStatusRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(ctx, chi.URLParam(r, "orderNumber"), req.Status)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}
