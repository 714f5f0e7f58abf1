package model

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment correlates one reservation with its gateway charge.
type Payment struct {
	ID            string        `json:"id,omitempty" bson:"_id,omitempty"`
	ReservationID string        `json:"reservation_id" bson:"reservation_id"`
	CustomerID    string        `json:"customer_id" bson:"customer_id"`
	ChargeID      string        `json:"charge_id" bson:"charge_id"`
	ClientSecret  string        `json:"client_secret,omitempty" bson:"client_secret,omitempty"`
	Amount        int64         `json:"amount" bson:"amount"`
	Currency      string        `json:"currency" bson:"currency"`
	Status        PaymentStatus `json:"status" bson:"status"`
	RefundID      string        `json:"refund_id,omitempty" bson:"refund_id,omitempty"`
	RefundAmount  int64         `json:"refund_amount,omitempty" bson:"refund_amount,omitempty"`
	RefundedAt    *time.Time    `json:"refunded_at,omitempty" bson:"refunded_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" bson:"updated_at"`
}

type PaymentIntentRequest struct {
	ReservationID string `json:"reservation_id" validate:"required,mongodb"`
}

type RefundRequest struct {
	Amount *int64 `json:"amount,omitempty" validate:"omitempty,gt=0"`
}

// PaymentOutcome is a gateway result delivered asynchronously.
type PaymentOutcome struct {
	EventID       string             `json:"event_id"`
	Type          PaymentOutcomeType `json:"type"`
	ReservationID string             `json:"reservation_id"`
	ChargeID      string             `json:"charge_id"`
}

type PaymentOutcomeType string

const (
	OutcomeSucceeded PaymentOutcomeType = "payment.succeeded"
	OutcomeFailed    PaymentOutcomeType = "payment.failed"
)
