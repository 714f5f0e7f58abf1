package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kitchenrent/internal/notifications"
	paymentserrors "kitchenrent/internal/payments/errors"
	"kitchenrent/internal/payments/gateway"
	"kitchenrent/internal/payments/repository"
	"kitchenrent/pkg/config"
	apperrors "kitchenrent/pkg/errors"
	"kitchenrent/pkg/model"

	"github.com/go-playground/validator/v10"
)

type PaymentService interface {
	CreateIntent(ctx context.Context, actor model.Actor, req *model.PaymentIntentRequest) (*model.Payment, error)
	GetByReservation(ctx context.Context, actor model.Actor, reservationID string) (*model.Payment, error)
	Refund(ctx context.Context, actor model.Actor, reservationID string, req *model.RefundRequest) (*model.Payment, error)
}

// ReservationReader is the slice of the reservation engine payments need.
// GetByID applies the engine's access rules for the actor.
type ReservationReader interface {
	GetByID(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error)
}

type EventNotifier interface {
	Notify(ctx context.Context, event notifications.Event, audiences ...notifications.Audience)
}

type paymentService struct {
	repo         repository.PaymentRepository
	reservations ReservationReader
	gateway      gateway.Gateway
	notifier     EventNotifier
	validate     *validator.Validate
	cfg          *config.Config
	now          func() time.Time
}

func NewPaymentService(
	repo repository.PaymentRepository,
	reservations ReservationReader,
	gw gateway.Gateway,
	notifier EventNotifier,
	cfg *config.Config,
) PaymentService {
	return &paymentService{
		repo:         repo,
		reservations: reservations,
		gateway:      gw,
		notifier:     notifier,
		validate:     validator.New(),
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *paymentService) CreateIntent(ctx context.Context, actor model.Actor, req *model.PaymentIntentRequest) (*model.Payment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Validation("Invalid payment intent request", map[string]any{"error": err.Error()})
	}

	reservation, err := s.reservations.GetByID(ctx, actor, req.ReservationID)
	if err != nil {
		return nil, err
	}
	if reservation.Status != model.StatusPending {
		return nil, apperrors.Validation("Only pending reservations can be paid", map[string]any{
			"status": reservation.Status,
		})
	}

	existing, err := s.repo.FindByReservation(ctx, reservation.ID)
	switch {
	case errors.Is(err, paymentserrors.ErrNotFound):
		return s.createPayment(ctx, reservation)
	case err != nil:
		s.cfg.Log.Error("Failed to load payment", "reservation_id", reservation.ID, "error", err)
		return nil, apperrors.Internal("Failed to load payment", err)
	}

	switch existing.Status {
	case model.PaymentPending:
		if existing.Amount == reservation.TotalAmount && existing.Currency == reservation.Currency {
			s.cfg.Log.Info("Reusing pending payment intent", "reservation_id", reservation.ID, "charge_id", existing.ChargeID)
			return existing, nil
		}
		return s.replaceCharge(ctx, reservation, existing)
	case model.PaymentFailed:
		return s.replaceCharge(ctx, reservation, existing)
	default:
		return nil, apperrors.Validation("Reservation has already been paid", map[string]any{
			"payment_status": existing.Status,
		})
	}
}

func (s *paymentService) createPayment(ctx context.Context, reservation *model.Reservation) (*model.Payment, error) {
	charge, err := s.charge(ctx, reservation, "initial")
	if err != nil {
		return nil, err
	}

	payment := &model.Payment{
		ReservationID: reservation.ID,
		CustomerID:    reservation.CustomerID,
		ChargeID:      charge.ID,
		ClientSecret:  charge.ClientSecret,
		Amount:        reservation.TotalAmount,
		Currency:      reservation.Currency,
		Status:        model.PaymentPending,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		if errors.Is(err, paymentserrors.ErrAlreadyExists) {
			// A concurrent request stored its payment first.
			existing, findErr := s.repo.FindByReservation(ctx, reservation.ID)
			if findErr != nil {
				return nil, apperrors.Internal("Failed to load payment", findErr)
			}
			return existing, nil
		}
		s.cfg.Log.Error("Failed to store payment", "reservation_id", reservation.ID, "charge_id", charge.ID, "error", err)
		return nil, apperrors.Internal("Failed to store payment", err)
	}

	s.cfg.Log.Info("Payment intent stored", "reservation_id", reservation.ID, "payment_id", payment.ID, "amount", payment.Amount)
	return payment, nil
}

func (s *paymentService) replaceCharge(ctx context.Context, reservation *model.Reservation, existing *model.Payment) (*model.Payment, error) {
	charge, err := s.charge(ctx, reservation, existing.ChargeID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.ReplaceCharge(ctx, existing.ID, existing.Status, charge.ID, reservation.TotalAmount, reservation.Currency)
	if err != nil {
		if errors.Is(err, paymentserrors.ErrStaleStatus) {
			return nil, apperrors.Conflict("Payment changed concurrently, please retry")
		}
		return nil, apperrors.Internal("Failed to update payment", err)
	}
	updated.ClientSecret = charge.ClientSecret

	s.cfg.Log.Info("Payment intent replaced",
		"reservation_id", reservation.ID,
		"previous_charge_id", existing.ChargeID,
		"charge_id", charge.ID,
	)
	return updated, nil
}

func (s *paymentService) charge(ctx context.Context, reservation *model.Reservation, generation string) (*gateway.Charge, error) {
	charge, err := s.gateway.CreateCharge(ctx, gateway.ChargeRequest{
		ReservationID:  reservation.ID,
		CustomerID:     reservation.CustomerID,
		Amount:         reservation.TotalAmount,
		Currency:       reservation.Currency,
		IdempotencyKey: fmt.Sprintf("intent:%s:%d:%s", reservation.ID, reservation.TotalAmount, generation),
	})
	if err != nil {
		s.cfg.Log.Error("Payment gateway rejected charge", "reservation_id", reservation.ID, "error", err)
		return nil, apperrors.Upstream("Failed to create payment with the payment provider", err)
	}
	return charge, nil
}

func (s *paymentService) GetByReservation(ctx context.Context, actor model.Actor, reservationID string) (*model.Payment, error) {
	if _, err := s.reservations.GetByID(ctx, actor, reservationID); err != nil {
		return nil, err
	}

	payment, err := s.repo.FindByReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, paymentserrors.ErrNotFound) {
			return nil, apperrors.NotFound("Payment")
		}
		return nil, apperrors.Internal("Failed to load payment", err)
	}
	return payment, nil
}

func (s *paymentService) Refund(ctx context.Context, actor model.Actor, reservationID string, req *model.RefundRequest) (*model.Payment, error) {
	if !actor.IsOperator() {
		return nil, apperrors.Forbidden("Only operators may issue refunds")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Validation("Invalid refund request", map[string]any{"error": err.Error()})
	}

	reservation, err := s.reservations.GetByID(ctx, actor, reservationID)
	if err != nil {
		return nil, err
	}
	payment, err := s.GetByReservation(ctx, actor, reservationID)
	if err != nil {
		return nil, err
	}
	if payment.Status != model.PaymentSucceeded {
		return nil, apperrors.Validation("Only succeeded payments can be refunded", map[string]any{
			"payment_status": payment.Status,
		})
	}

	amount := payment.Amount
	if req.Amount != nil {
		amount = *req.Amount
	}
	if amount > payment.Amount {
		return nil, apperrors.Validation("Refund exceeds the charged amount", map[string]any{
			"amount":  amount,
			"charged": payment.Amount,
		})
	}

	refundID, err := s.gateway.Refund(ctx, payment.ChargeID, amount)
	if err != nil {
		s.cfg.Log.Error("Payment gateway rejected refund", "reservation_id", reservationID, "charge_id", payment.ChargeID, "error", err)
		return nil, apperrors.Upstream("Failed to refund with the payment provider", err)
	}

	refunded, err := s.repo.MarkRefunded(ctx, payment.ID, refundID, amount, s.now())
	if err != nil {
		// The provider has already refunded; surface loudly so it is reconciled.
		s.cfg.Log.Error("Refund issued but not recorded", "reservation_id", reservationID, "refund_id", refundID, "error", err)
		if errors.Is(err, paymentserrors.ErrStaleStatus) {
			return nil, apperrors.Conflict("Payment changed while refunding")
		}
		return nil, apperrors.Internal("Failed to record refund", err)
	}

	s.cfg.Log.Info("Payment refunded",
		"reservation_id", reservationID,
		"refund_id", refundID,
		"amount", amount,
		"actor_id", actor.ID,
	)
	if s.notifier != nil {
		event := notifications.NewReservationEvent(notifications.PaymentRefunded, reservation).
			With("refund_id", refundID).
			With("refund_amount", amount)
		s.notifier.Notify(ctx, event, notifications.AudienceCustomer)
	}
	return refunded, nil
}
