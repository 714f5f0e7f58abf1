package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"kitchenrent/pkg/logger"
	"kitchenrent/pkg/model"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const (
	eventPaymentSucceeded = "payment_intent.succeeded"
	eventPaymentFailed    = "payment_intent.payment_failed"
)

type StripeGateway struct {
	api           *client.API
	webhookSecret string
	log           *logger.Logger
}

func NewStripeGateway(secretKey, webhookSecret string, log *logger.Logger) *StripeGateway {
	return &StripeGateway{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
		log:           log,
	}
}

func (g *StripeGateway) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataReservationID, req.ReservationID)
	params.AddMetadata("customer_id", req.CustomerID)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	g.log.Info("Payment intent created",
		"reservation_id", req.ReservationID,
		"charge_id", intent.ID,
		"amount", req.Amount,
		"currency", req.Currency,
	)
	return &Charge{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (g *StripeGateway) Refund(ctx context.Context, chargeID string, amount int64) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(chargeID),
		Amount:        stripe.Int64(amount),
	}
	params.Context = ctx
	params.SetIdempotencyKey(fmt.Sprintf("refund:%s:%d", chargeID, amount))

	refund, err := g.api.Refunds.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: refund %s: %w", chargeID, err)
	}
	return refund.ID, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*model.PaymentOutcome, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var outcomeType model.PaymentOutcomeType
	switch event.Type {
	case eventPaymentSucceeded:
		outcomeType = model.OutcomeSucceeded
	case eventPaymentFailed:
		outcomeType = model.OutcomeFailed
	default:
		return nil, fmt.Errorf("%w: %s", ErrIgnoredEvent, event.Type)
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, fmt.Errorf("stripe: decode payment intent: %w", err)
	}

	return &model.PaymentOutcome{
		EventID:       event.ID,
		Type:          outcomeType,
		ReservationID: intent.Metadata[MetadataReservationID],
		ChargeID:      intent.ID,
	}, nil
}
