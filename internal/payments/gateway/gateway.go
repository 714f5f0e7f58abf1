package gateway

import (
	"context"
	"errors"

	"kitchenrent/pkg/model"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrIgnoredEvent marks webhook events that carry no payment outcome.
	ErrIgnoredEvent = errors.New("event type is not a payment outcome")
)

const MetadataReservationID = "reservation_id"

type ChargeRequest struct {
	ReservationID  string
	CustomerID     string
	Amount         int64
	Currency       string
	IdempotencyKey string
}

type Charge struct {
	ID           string
	ClientSecret string
}

// Gateway is the payment provider seen by the booking core.
type Gateway interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	Refund(ctx context.Context, chargeID string, amount int64) (string, error)
	// ParseWebhook verifies and decodes a provider callback.
	ParseWebhook(payload []byte, signature string) (*model.PaymentOutcome, error)
}
