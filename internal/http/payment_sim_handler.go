package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/cats-den/internal/logger"
	"github.com/fjod/cats-den/internal/payment"
)

// PaymentSimulator drives intents held by the development payment provider.
type PaymentSimulator interface {
	GetPaymentIntent(ctx context.Context, id string) (*payment.Intent, error)
	CancelPaymentIntent(ctx context.Context, id string) error
	Confirm(ctx context.Context, id string) (*payment.Event, error)
	Refund(ctx context.Context, id string) (*payment.Event, error)
	SignedPayload(event *payment.Event) ([]byte, string, error)
}

// PaymentSimHandler plays the customer and the provider against the mock
// payment backend. Events it produces go through the webhook path, signature
// check included.
type PaymentSimHandler struct {
	sim      PaymentSimulator
	webhooks *WebhookHandler
	timeout  time.Duration
	log      *slog.Logger
}

func NewPaymentSimHandler(sim PaymentSimulator, webhooks *WebhookHandler, timeout time.Duration, log *slog.Logger) *PaymentSimHandler {
	return &PaymentSimHandler{
		sim:      sim,
		webhooks: webhooks,
		timeout:  timeout,
		log:      logger.OrDefault(log),
	}
}

type SimulatedEventDTO struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Outcome string `json:"outcome"`
}

type PaymentSimResponseDTO struct {
	Intent *payment.Intent    `json:"intent"`
	Event  *SimulatedEventDTO `json:"event,omitempty"`
}

// GET /api/admin/payments/{intentId}
func (h *PaymentSimHandler) GetIntent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	intent, err := h.sim.GetPaymentIntent(ctx, chi.URLParam(r, "intentId"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, PaymentSimResponseDTO{Intent: intent})
}

// POST /api/admin/payments/{intentId}/confirm
func (h *PaymentSimHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.emit(w, r, h.sim.Confirm)
}

// POST /api/admin/payments/{intentId}/refund
func (h *PaymentSimHandler) Refund(w http.ResponseWriter, r *http.Request) {
	h.emit(w, r, h.sim.Refund)
}

// POST /api/admin/payments/{intentId}/cancel
func (h *PaymentSimHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "intentId")
	if err := h.sim.CancelPaymentIntent(ctx, id); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	h.GetIntent(w, r)
}

func (h *PaymentSimHandler) emit(w http.ResponseWriter, r *http.Request, act func(context.Context, string) (*payment.Event, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "intentId")
	event, err := act(ctx, id)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	payload, signature, err := h.sim.SignedPayload(event)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	_, outcome, err := h.webhooks.deliver(ctx, payload, signature)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	h.log.InfoContext(ctx, "simulated payment event", "intent_id", id, "type", event.Type, "outcome", outcome)

	intent, err := h.sim.GetPaymentIntent(ctx, id)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, PaymentSimResponseDTO{
		Intent: intent,
		Event:  &SimulatedEventDTO{ID: event.ID, Type: event.Type, Outcome: string(outcome)},
	})
}
