// Package payment abstracts the card payment provider behind Provider and
// ships an in-memory MockProvider for development.
package payment

import (
	"context"
	"errors"
)

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventChargeRefunded   = "charge.refunded"
)

var (
	ErrIntentNotFound   = errors.New("payment intent not found")
	ErrNotRefundable    = errors.New("payment intent has not succeeded")
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrSignatureExpired = errors.New("webhook signature timestamp outside tolerance")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
)

type IntentStatus string

const (
	IntentRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentRequiresAction        IntentStatus = "requires_action"
	IntentProcessing            IntentStatus = "processing"
	IntentSucceeded             IntentStatus = "succeeded"
	IntentCanceled              IntentStatus = "canceled"
	IntentFailed                IntentStatus = "failed"
)

// Amount is expressed in minor units (cents).
type Amount struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Customer struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type Intent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"clientSecret"`
	Status       IntentStatus      `json:"status"`
	Amount       Amount            `json:"amount"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type CreateIntentParams struct {
	Amount   Amount
	Customer *Customer
	Metadata map[string]string
	// OrderID is copied into the intent metadata as "orderId".
	OrderID string
}

// Event is a provider webhook notification.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created,omitempty"`
	Data    struct {
		Object EventObject `json:"object"`
	} `json:"data"`
}

type EventObject struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// OrderID returns the order reference carried in the event metadata.
func (e *Event) OrderID() string {
	return e.Data.Object.Metadata["orderId"]
}

// PaymentIntentID returns the intent the event refers to. Charge events name
// it in payment_intent, intent events in id.
func (e *Event) PaymentIntentID() string {
	if e.Data.Object.PaymentIntent != "" {
		return e.Data.Object.PaymentIntent
	}
	return e.Data.Object.ID
}

type Provider interface {
	CreatePaymentIntent(ctx context.Context, params CreateIntentParams) (*Intent, error)
	GetPaymentIntent(ctx context.Context, id string) (*Intent, error)
	CancelPaymentIntent(ctx context.Context, id string) error
	// VerifyWebhookEvent authenticates and decodes a webhook body.
	VerifyWebhookEvent(payload []byte, signatureHeader string) (*Event, error)
	PublicKey() string
}
