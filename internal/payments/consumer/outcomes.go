package consumer

import (
	"context"

	apperrors "kitchenrent/pkg/errors"
	"kitchenrent/pkg/kafka"
	"kitchenrent/pkg/logger"
	"kitchenrent/pkg/model"
)

type OutcomeHandler interface {
	HandleOutcome(ctx context.Context, outcome *model.PaymentOutcome) error
}

// NewOutcomeHandler consumes payment outcomes relayed over Kafka and feeds
// them to the same reconciler the webhook uses. Error types steer the
// consumer: transient failures are retried, everything else is parked on
// the DLQ.
func NewOutcomeHandler(reconciler OutcomeHandler, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var outcome model.PaymentOutcome
		if err := msg.DecodeValue(&outcome); err != nil {
			return kafka.NewPermanentError("undecodable payment outcome", err)
		}
		if outcome.EventID == "" {
			outcome.EventID = msg.GetEventID()
		}

		err := reconciler.HandleOutcome(ctx, &outcome)
		if err == nil {
			return nil
		}

		log.Warn("Payment outcome from kafka not applied",
			"event_id", outcome.EventID,
			"type", outcome.Type,
			"reservation_id", outcome.ReservationID,
			"offset", msg.Offset,
			"error", err,
		)
		return classify(err)
	}
}

func classify(err error) error {
	if !apperrors.IsAppError(err) {
		return kafka.NewTransientError("payment outcome processing failed", err)
	}
	switch apperrors.AsAppError(err).Code {
	case apperrors.CodeInvalidInput:
		return kafka.NewPermanentError("malformed payment outcome", err)
	case apperrors.CodeValidation, apperrors.CodeNotFound, apperrors.CodeForbidden:
		return kafka.NewBusinessError("payment outcome rejected", err)
	default:
		return kafka.NewTransientError("payment outcome processing failed", err)
	}
}
