package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/cats-den/internal/catalog"
	"github.com/fjod/cats-den/internal/logger"
	"github.com/fjod/cats-den/internal/payment"
	"github.com/fjod/cats-den/internal/service"
)

const signatureHeader = "Stripe-Signature"

type WebhookVerifier interface {
	VerifyWebhookEvent(payload []byte, signatureHeader string) (*payment.Event, error)
}

type PaymentEventHandler interface {
	HandlePaymentEvent(ctx context.Context, event *payment.Event) (service.Outcome, error)
}

type CatalogInvalidator interface {
	Invalidate(ctx context.Context, model string) error
}

type WebhookHandler struct {
	verifier  WebhookVerifier
	payments  PaymentEventHandler
	catalog   CatalogInvalidator
	cmsSecret string
	timeout   time.Duration
	log       *slog.Logger
}

type WebhookDeps struct {
	Verifier  WebhookVerifier
	Payments  PaymentEventHandler
	Catalog   CatalogInvalidator
	CMSSecret string
	Timeout   time.Duration
	Logger    *slog.Logger
}

func NewWebhookHandler(d WebhookDeps) *WebhookHandler {
	return &WebhookHandler{
		verifier:  d.Verifier,
		payments:  d.Payments,
		catalog:   d.Catalog,
		cmsSecret: d.CMSSecret,
		timeout:   d.Timeout,
		log:       logger.OrDefault(d.Logger),
	}
}

type webhookFailure struct {
	Error string `json:"error"`
}

// POST /api/webhooks/payment
func (h *WebhookHandler) Payment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, webhookFailure{Error: "Webhook handler failed"})
		return
	}

	if _, _, err := h.deliver(ctx, payload, r.Header.Get(signatureHeader)); err != nil {
		if errors.Is(err, errRejectedEvent) {
			respondJSON(w, http.StatusBadRequest, webhookFailure{Error: "Webhook handler failed"})
			return
		}
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

var errRejectedEvent = errors.New("payment event rejected")

// deliver verifies a signed payment event and applies it.
func (h *WebhookHandler) deliver(ctx context.Context, payload []byte, signature string) (*payment.Event, service.Outcome, error) {
	event, err := h.verifier.VerifyWebhookEvent(payload, signature)
	if err != nil {
		h.log.WarnContext(ctx, "payment webhook rejected", "error", err)
		return nil, "", fmt.Errorf("%w: %w", errRejectedEvent, err)
	}

	outcome, err := h.payments.HandlePaymentEvent(ctx, event)
	if err != nil {
		return event, outcome, err
	}

	h.log.DebugContext(ctx, "payment webhook handled", "event_id", event.ID, "outcome", outcome)
	return event, outcome, nil
}

type cmsWebhookPayload struct {
	EventType  string `json:"event_type"`
	EntityType string `json:"entity_type"`
	Entity     struct {
		ID            string `json:"id"`
		Relationships struct {
			ItemType struct {
				Data struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"item_type"`
		} `json:"relationships"`
	} `json:"entity"`
}

// model names the content model a CMS notification touches. An empty
// result invalidates everything.
func (p cmsWebhookPayload) model() string {
	switch p.EntityType {
	case "item":
		return p.Entity.Relationships.ItemType.Data.ID
	case "upload":
		return catalog.ModelUpload
	default:
		return ""
	}
}

type CMSWebhookResponseDTO struct {
	Success     bool   `json:"success"`
	Revalidated bool   `json:"revalidated"`
	Message     string `json:"message"`
}

// POST /api/webhooks/cms
func (h *WebhookHandler) CMS(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	secret := r.Header.Get("X-Webhook-Secret")
	if h.cmsSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.cmsSecret)) != 1 {
		respondJSON(w, http.StatusUnauthorized, webhookFailure{Error: "Invalid secret"})
		return
	}

	var payload cmsWebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondJSON(w, http.StatusBadRequest, webhookFailure{Error: "Failed to process webhook"})
		return
	}

	model := payload.model()
	h.log.InfoContext(ctx, "cms webhook", "event_type", payload.EventType, "entity_type", payload.EntityType, "model", model)

	if err := h.catalog.Invalidate(ctx, model); err != nil {
		h.log.ErrorContext(ctx, "cms cache invalidation failed", "model", model, "error", err)
		respondJSON(w, http.StatusInternalServerError, webhookFailure{Error: "Failed to process webhook"})
		return
	}

	respondJSON(w, http.StatusOK, CMSWebhookResponseDTO{
		Success:     true,
		Revalidated: true,
		Message:     fmt.Sprintf("Processed %s for %s", payload.EventType, payload.EntityType),
	})
}
