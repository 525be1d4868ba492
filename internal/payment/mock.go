package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Outcome decides whether a simulated charge succeeds.
type Outcome interface {
	Succeeds() bool
}

// RandomOutcome approves 95 charges out of 100.
type RandomOutcome struct{}

func (RandomOutcome) Succeeds() bool {
	return rand.Intn(100) < 95
}

// FixedOutcome always returns its own value.
type FixedOutcome bool

func (f FixedOutcome) Succeeds() bool { return bool(f) }

type MockConfig struct {
	// WebhookSecret enables signature checks. Empty accepts unsigned payloads.
	WebhookSecret string
	PublicKey     string
	Tolerance     time.Duration
	Outcome       Outcome
	Now           func() time.Time
}

// MockProvider keeps intents in memory and simulates charges.
type MockProvider struct {
	mu      sync.RWMutex
	intents map[string]*Intent
	cfg     MockConfig
}

func NewMockProvider(cfg MockConfig) *MockProvider {
	if cfg.PublicKey == "" {
		cfg.PublicKey = "pk_test_mock"
	}
	if cfg.Tolerance == 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if cfg.Outcome == nil {
		cfg.Outcome = RandomOutcome{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &MockProvider{intents: make(map[string]*Intent), cfg: cfg}
}

func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

func (p *MockProvider) CreatePaymentIntent(_ context.Context, params CreateIntentParams) (*Intent, error) {
	if params.Amount.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", params.Amount.Amount)
	}
	id := fmt.Sprintf("pi_%d_%s", p.cfg.Now().UnixMilli(), randomToken())

	metadata := make(map[string]string, len(params.Metadata)+1)
	for k, v := range params.Metadata {
		metadata[k] = v
	}
	if params.OrderID != "" {
		metadata["orderId"] = params.OrderID
	}

	intent := &Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + randomToken(),
		Status:       IntentRequiresPaymentMethod,
		Amount:       params.Amount,
		Metadata:     metadata,
	}

	p.mu.Lock()
	p.intents[id] = intent
	p.mu.Unlock()

	out := *intent
	return &out, nil
}

func (p *MockProvider) GetPaymentIntent(_ context.Context, id string) (*Intent, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	intent, ok := p.intents[id]
	if !ok {
		return nil, ErrIntentNotFound
	}
	out := *intent
	return &out, nil
}

func (p *MockProvider) CancelPaymentIntent(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	intent, ok := p.intents[id]
	if !ok {
		return ErrIntentNotFound
	}
	intent.Status = IntentCanceled
	return nil
}

func (p *MockProvider) PublicKey() string {
	return p.cfg.PublicKey
}

// VerifyWebhookEvent checks the signature when a secret is configured and
// decodes the payload. An event without a type is treated as a success.
func (p *MockProvider) VerifyWebhookEvent(payload []byte, signatureHeader string) (*Event, error) {
	if p.cfg.WebhookSecret != "" {
		if err := VerifySignature(p.cfg.WebhookSecret, payload, signatureHeader, p.cfg.Tolerance, p.cfg.Now()); err != nil {
			return nil, err
		}
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if event.Type == "" {
		event.Type = EventPaymentSucceeded
	}
	return &event, nil
}

// Confirm simulates the customer completing payment and returns the webhook
// event the provider would send.
func (p *MockProvider) Confirm(_ context.Context, id string) (*Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	intent, ok := p.intents[id]
	if !ok {
		return nil, ErrIntentNotFound
	}

	eventType := EventPaymentFailed
	intent.Status = IntentFailed
	if p.cfg.Outcome.Succeeds() {
		eventType = EventPaymentSucceeded
		intent.Status = IntentSucceeded
	}
	return p.event(eventType, intent.ID, "", intent.Metadata), nil
}

// Refund simulates a full refund of a succeeded intent.
func (p *MockProvider) Refund(_ context.Context, id string) (*Event, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	intent, ok := p.intents[id]
	if !ok {
		return nil, ErrIntentNotFound
	}
	if intent.Status != IntentSucceeded {
		return nil, fmt.Errorf("%w: status %s", ErrNotRefundable, intent.Status)
	}
	return p.event(EventChargeRefunded, "ch_"+randomToken(), intent.ID, intent.Metadata), nil
}

func (p *MockProvider) event(eventType, objectID, paymentIntent string, metadata map[string]string) *Event {
	e := &Event{
		ID:      "evt_" + randomToken(),
		Type:    eventType,
		Created: p.cfg.Now().Unix(),
	}
	e.Data.Object = EventObject{ID: objectID, PaymentIntent: paymentIntent, Metadata: metadata}
	return e
}

// SignedPayload encodes event and signs it with the configured secret, as the
// provider would deliver it.
func (p *MockProvider) SignedPayload(event *Event) ([]byte, string, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, "", err
	}
	if p.cfg.WebhookSecret == "" {
		return payload, "", nil
	}
	return payload, Sign(p.cfg.WebhookSecret, payload, p.cfg.Now()), nil
}
