package payment

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newMock(secret string, outcome Outcome) *MockProvider {
	return NewMockProvider(MockConfig{
		WebhookSecret: secret,
		Outcome:       outcome,
		Now:           func() time.Time { return fixedNow },
	})
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	header := Sign("whsec", payload, fixedNow)

	tests := []struct {
		name    string
		secret  string
		payload []byte
		header  string
		now     time.Time
		wantErr error
	}{
		{"valid", "whsec", payload, header, fixedNow, nil},
		{"within tolerance", "whsec", payload, header, fixedNow.Add(4 * time.Minute), nil},
		{"missing header", "whsec", payload, "", fixedNow, ErrMissingSignature},
		{"wrong secret", "other", payload, header, fixedNow, ErrInvalidSignature},
		{"tampered payload", "whsec", []byte(`{"id":"evt_2"}`), header, fixedNow, ErrInvalidSignature},
		{"expired", "whsec", payload, header, fixedNow.Add(6 * time.Minute), ErrSignatureExpired},
		{"garbage header", "whsec", payload, "nonsense", fixedNow, ErrInvalidSignature},
		{"bad timestamp", "whsec", payload, "t=abc,v1=00", fixedNow, ErrInvalidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.secret, tt.payload, tt.header, DefaultTolerance, tt.now)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerifySignature_AnyV1Matches(t *testing.T) {
	payload := []byte(`{}`)
	good := Sign("whsec", payload, fixedNow)
	header := "t=" + good[2:12] + ",v1=deadbeef," + good[13:]
	assert.NoError(t, VerifySignature("whsec", payload, header, DefaultTolerance, fixedNow))
}

func TestMockProvider_IntentLifecycle(t *testing.T) {
	p := newMock("", FixedOutcome(true))
	ctx := context.Background()

	intent, err := p.CreatePaymentIntent(ctx, CreateIntentParams{
		Amount:  Amount{Amount: 371400, Currency: "usd"},
		OrderID: "CD-20240315-0042",
	})
	require.NoError(t, err)
	assert.Regexp(t, `^pi_\d+_[0-9a-f]{10}$`, intent.ID)
	assert.Contains(t, intent.ClientSecret, intent.ID+"_secret_")
	assert.Equal(t, IntentRequiresPaymentMethod, intent.Status)
	assert.Equal(t, "CD-20240315-0042", intent.Metadata["orderId"])

	got, err := p.GetPaymentIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.ID, got.ID)

	require.NoError(t, p.CancelPaymentIntent(ctx, intent.ID))
	got, _ = p.GetPaymentIntent(ctx, intent.ID)
	assert.Equal(t, IntentCanceled, got.Status)

	_, err = p.GetPaymentIntent(ctx, "pi_missing")
	assert.ErrorIs(t, err, ErrIntentNotFound)
	assert.ErrorIs(t, p.CancelPaymentIntent(ctx, "pi_missing"), ErrIntentNotFound)

	_, err = p.CreatePaymentIntent(ctx, CreateIntentParams{Amount: Amount{Amount: 0, Currency: "usd"}})
	assert.Error(t, err)
}

func TestMockProvider_ConfirmAndRefund(t *testing.T) {
	ctx := context.Background()

	ok := newMock("whsec", FixedOutcome(true))
	intent, err := ok.CreatePaymentIntent(ctx, CreateIntentParams{Amount: Amount{Amount: 100, Currency: "usd"}, OrderID: "CD-1"})
	require.NoError(t, err)

	event, err := ok.Confirm(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentSucceeded, event.Type)
	assert.Equal(t, "CD-1", event.OrderID())
	assert.Equal(t, intent.ID, event.PaymentIntentID())

	refund, err := ok.Refund(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, EventChargeRefunded, refund.Type)
	assert.Equal(t, intent.ID, refund.PaymentIntentID())

	declined := newMock("", FixedOutcome(false))
	intent, _ = declined.CreatePaymentIntent(ctx, CreateIntentParams{Amount: Amount{Amount: 100, Currency: "usd"}, OrderID: "CD-2"})
	event, err = declined.Confirm(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentFailed, event.Type)

	_, err = declined.Refund(ctx, intent.ID)
	assert.Error(t, err)
}

func TestMockProvider_VerifyWebhookEvent(t *testing.T) {
	ctx := context.Background()
	p := newMock("whsec", FixedOutcome(true))
	intent, _ := p.CreatePaymentIntent(ctx, CreateIntentParams{Amount: Amount{Amount: 100, Currency: "usd"}, OrderID: "CD-1"})
	event, _ := p.Confirm(ctx, intent.ID)

	payload, header, err := p.SignedPayload(event)
	require.NoError(t, err)

	got, err := p.VerifyWebhookEvent(payload, header)
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, "CD-1", got.OrderID())

	_, err = p.VerifyWebhookEvent(payload, "")
	assert.ErrorIs(t, err, ErrMissingSignature)
}

func TestMockProvider_UnsignedMode(t *testing.T) {
	p := newMock("", nil)

	event, err := p.VerifyWebhookEvent([]byte(`{"data":{"object":{"id":"pi_1","metadata":{"orderId":"CD-9"}}}}`), "")
	require.NoError(t, err)
	assert.Equal(t, EventPaymentSucceeded, event.Type)
	assert.Equal(t, "CD-9", event.OrderID())

	_, err = p.VerifyWebhookEvent([]byte(`not json`), "")
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestEvent_JSONShape(t *testing.T) {
	var e Event
	raw := `{"id":"evt_1","type":"charge.refunded","data":{"object":{"id":"ch_1","payment_intent":"pi_1","metadata":{"orderId":"CD-1"}}}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.Equal(t, "pi_1", e.PaymentIntentID())
	assert.Equal(t, "CD-1", e.OrderID())
}
