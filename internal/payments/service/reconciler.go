package service

import (
	"context"
	"errors"
	"fmt"

	"kitchenrent/internal/notifications"
	paymentserrors "kitchenrent/internal/payments/errors"
	"kitchenrent/internal/payments/repository"
	"kitchenrent/pkg/cache"
	"kitchenrent/pkg/config"
	apperrors "kitchenrent/pkg/errors"
	"kitchenrent/pkg/model"
)

const reconcilerActor = "payment-reconciler"

// ReservationConfirmer is the engine operation driven by payment success.
type ReservationConfirmer interface {
	ReservationReader
	ConfirmFromPayment(ctx context.Context, id string) (*model.Reservation, bool, error)
}

// Reconciler applies asynchronous payment outcomes to payments and
// reservations. Every path is safe to replay.
type Reconciler struct {
	payments     repository.PaymentRepository
	reservations ReservationConfirmer
	dedupe       cache.Deduplicator
	notifier     EventNotifier
	cfg          *config.Config
}

func NewReconciler(
	payments repository.PaymentRepository,
	reservations ReservationConfirmer,
	dedupe cache.Deduplicator,
	notifier EventNotifier,
	cfg *config.Config,
) *Reconciler {
	return &Reconciler{
		payments:     payments,
		reservations: reservations,
		dedupe:       dedupe,
		notifier:     notifier,
		cfg:          cfg,
	}
}

// HandleOutcome dedupes by event id and dispatches. An event is recorded
// as handled only after its handler succeeds; while it runs, a short lease
// turns concurrent deliveries away with a retryable Conflict. A lease left
// behind by a dead process expires after PaymentEventLease.
func (r *Reconciler) HandleOutcome(ctx context.Context, outcome *model.PaymentOutcome) error {
	if outcome.EventID == "" {
		return apperrors.InvalidInput("Payment outcome is missing event_id")
	}
	if outcome.ReservationID == "" && outcome.ChargeID == "" {
		return apperrors.InvalidInput("Payment outcome carries neither reservation_id nor charge_id")
	}

	doneKey := "payment-event:done:" + outcome.EventID
	leaseKey := "payment-event:lease:" + outcome.EventID

	seen, err := r.dedupe.Seen(ctx, doneKey)
	if err != nil {
		r.cfg.Log.Warn("Payment event ledger unavailable, relying on idempotent handlers", "event_id", outcome.EventID, "error", err)
	}
	if seen {
		r.cfg.Log.Info("Duplicate payment event ignored", "event_id", outcome.EventID, "type", outcome.Type)
		return nil
	}

	leased, err := r.dedupe.Claim(ctx, leaseKey, r.cfg.PaymentEventLease)
	if err != nil {
		leased = true
	}
	if !leased {
		r.cfg.Log.Info("Payment event already in progress", "event_id", outcome.EventID, "type", outcome.Type)
		return apperrors.Conflict("Payment event is already being processed")
	}
	defer func() {
		if forgetErr := r.dedupe.Forget(context.WithoutCancel(ctx), leaseKey); forgetErr != nil {
			r.cfg.Log.Warn("Failed to release payment event lease", "event_id", outcome.EventID, "error", forgetErr)
		}
	}()

	switch outcome.Type {
	case model.OutcomeSucceeded:
		err = r.OnPaymentSucceeded(ctx, outcome)
	case model.OutcomeFailed:
		err = r.OnPaymentFailed(ctx, outcome)
	default:
		err = apperrors.InvalidInput(fmt.Sprintf("Unknown payment outcome type: %s", outcome.Type))
	}
	if err != nil {
		return err
	}

	if markErr := r.dedupe.Mark(context.WithoutCancel(ctx), doneKey, r.cfg.PaymentEventTTL); markErr != nil {
		r.cfg.Log.Warn("Failed to record handled payment event", "event_id", outcome.EventID, "error", markErr)
	}
	return nil
}

// OnPaymentSucceeded confirms the reservation. Confirming one that is
// already confirmed, cancelled or otherwise past pending is a no-op.
func (r *Reconciler) OnPaymentSucceeded(ctx context.Context, outcome *model.PaymentOutcome) error {
	reservationID, err := r.markPayment(ctx, outcome, []model.PaymentStatus{model.PaymentPending, model.PaymentFailed}, model.PaymentSucceeded)
	if err != nil {
		return err
	}

	reservation, changed, err := r.reservations.ConfirmFromPayment(ctx, reservationID)
	if err != nil {
		r.cfg.Log.Error("Failed to confirm reservation from payment", "reservation_id", reservationID, "event_id", outcome.EventID, "error", err)
		return err
	}

	r.cfg.Log.Info("Payment success reconciled",
		"reservation_id", reservationID,
		"charge_id", outcome.ChargeID,
		"status", reservation.Status,
		"changed", changed,
	)
	return nil
}

// OnPaymentFailed never moves the reservation; the customer is told and
// may retry payment.
func (r *Reconciler) OnPaymentFailed(ctx context.Context, outcome *model.PaymentOutcome) error {
	changed := true
	reservationID := outcome.ReservationID

	if outcome.ChargeID != "" {
		payment, moved, err := r.payments.UpdateStatus(ctx, outcome.ChargeID, []model.PaymentStatus{model.PaymentPending}, model.PaymentFailed)
		switch {
		case err == nil:
			changed = moved
			reservationID = payment.ReservationID
		case errors.Is(err, paymentserrors.ErrNotFound):
			r.cfg.Log.Warn("Payment failure for unknown charge", "charge_id", outcome.ChargeID)
		case errors.Is(err, paymentserrors.ErrStaleStatus):
			// A later success or refund already settled this charge.
			r.cfg.Log.Info("Stale payment failure ignored", "charge_id", outcome.ChargeID)
			return nil
		default:
			return apperrors.Internal("Failed to record payment failure", err)
		}
	}
	if !changed {
		return nil
	}
	if reservationID == "" {
		return apperrors.InvalidInput("Cannot resolve reservation for failed payment")
	}

	reservation, err := r.reservations.GetByID(ctx, model.SystemActor(reconcilerActor), reservationID)
	if err != nil {
		return err
	}

	r.cfg.Log.Info("Payment failure reconciled", "reservation_id", reservationID, "charge_id", outcome.ChargeID)
	if r.notifier != nil {
		event := notifications.NewReservationEvent(notifications.PaymentFailed, reservation).With("charge_id", outcome.ChargeID)
		r.notifier.Notify(ctx, event, notifications.AudienceCustomer)
	}
	return nil
}

// markPayment records the outcome on the payment and returns the
// reservation it belongs to.
func (r *Reconciler) markPayment(ctx context.Context, outcome *model.PaymentOutcome, from []model.PaymentStatus, to model.PaymentStatus) (string, error) {
	if outcome.ChargeID == "" {
		return outcome.ReservationID, nil
	}

	payment, _, err := r.payments.UpdateStatus(ctx, outcome.ChargeID, from, to)
	switch {
	case err == nil:
		return payment.ReservationID, nil
	case errors.Is(err, paymentserrors.ErrStaleStatus) && payment != nil:
		r.cfg.Log.Warn("Payment outcome arrived for a settled payment", "charge_id", outcome.ChargeID, "status", payment.Status)
		return payment.ReservationID, nil
	case errors.Is(err, paymentserrors.ErrNotFound):
		if outcome.ReservationID == "" {
			return "", apperrors.NotFound("Payment")
		}
		r.cfg.Log.Warn("Payment outcome for unknown charge", "charge_id", outcome.ChargeID, "reservation_id", outcome.ReservationID)
		return outcome.ReservationID, nil
	default:
		return "", apperrors.Internal("Failed to record payment outcome", err)
	}
}
