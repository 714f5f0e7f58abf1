package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"kitchenrent/pkg/logger"
	"kitchenrent/pkg/model"
)

const testWebhookSecret = "whsec_test_secret"

// sign builds a Stripe-Signature header the way the provider does.
func sign(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", at.Unix())))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(eventType string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_123",
		"object": "event",
		"type": %q,
		"data": {"object": {"id": "pi_456", "object": "payment_intent", "metadata": {"reservation_id": "665f1c2e8b3e4a0012345678"}}}
	}`, eventType))
}

func TestParseWebhook(t *testing.T) {
	g := NewStripeGateway("sk_test_x", testWebhookSecret, logger.New(logger.Config{Level: logger.ERROR}))

	tests := []struct {
		name      string
		eventType string
		wantType  model.PaymentOutcomeType
		wantErr   error
	}{
		{"succeeded", "payment_intent.succeeded", model.OutcomeSucceeded, nil},
		{"failed", "payment_intent.payment_failed", model.OutcomeFailed, nil},
		{"unrelated", "customer.created", "", ErrIgnoredEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := eventPayload(tt.eventType)
			outcome, err := g.ParseWebhook(payload, sign(payload, testWebhookSecret, time.Now()))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWebhook returned error: %v", err)
			}
			if outcome.Type != tt.wantType || outcome.EventID != "evt_123" || outcome.ChargeID != "pi_456" {
				t.Errorf("unexpected outcome: %+v", outcome)
			}
			if outcome.ReservationID != "665f1c2e8b3e4a0012345678" {
				t.Errorf("reservation id not taken from metadata: %q", outcome.ReservationID)
			}
		})
	}
}

func TestParseWebhook_RejectsBadSignature(t *testing.T) {
	g := NewStripeGateway("sk_test_x", testWebhookSecret, logger.New(logger.Config{Level: logger.ERROR}))
	payload := eventPayload("payment_intent.succeeded")

	for name, header := range map[string]string{
		"wrong secret": sign(payload, "whsec_other", time.Now()),
		"stale":        sign(payload, testWebhookSecret, time.Now().Add(-time.Hour)),
		"missing":      "",
	} {
		if _, err := g.ParseWebhook(payload, header); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("%s: expected ErrInvalidSignature, got %v", name, err)
		}
	}
}
