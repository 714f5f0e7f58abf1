package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kitchenrent/internal/notifications"
	"kitchenrent/internal/reservations/conflict"
	reservationserrors "kitchenrent/internal/reservations/errors"
	"kitchenrent/internal/reservations/lifecycle"
	"kitchenrent/internal/reservations/pricing"
	"kitchenrent/internal/reservations/repository"
	"kitchenrent/internal/reservations/validator"
	"kitchenrent/pkg/config"
	apperrors "kitchenrent/pkg/errors"
	"kitchenrent/pkg/logger"
	"kitchenrent/pkg/model"
	"kitchenrent/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// maxStaleAttempts bounds how often an operation re-reads a reservation
// whose status moved under it before giving up with a conflict.
const maxStaleAttempts = 3

type ReservationService interface {
	Create(ctx context.Context, actor model.Actor, req *model.ReservationCreate) (*model.Reservation, error)
	GetByID(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error)
	List(ctx context.Context, actor model.Actor, filter *model.ReservationFilter, limit int, offset int64) ([]*model.Reservation, int64, error)
	Update(ctx context.Context, actor model.Actor, id string, patch *model.ReservationUpdate) (*model.Reservation, error)
	Confirm(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error)
	Start(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error)
	Complete(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error)
	Cancel(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error)
	Delete(ctx context.Context, actor model.Actor, id string) error
	CheckAvailability(ctx context.Context, equipmentID, startDate, endDate string) (*model.Availability, error)
	// ConfirmFromPayment confirms a pending reservation on behalf of the
	// payment gateway. Any other status is left alone and reported as
	// unchanged.
	ConfirmFromPayment(ctx context.Context, id string) (*model.Reservation, bool, error)
}

// EventNotifier is satisfied by *notifications.Notifier.
type EventNotifier interface {
	Notify(ctx context.Context, event notifications.Event, audiences ...notifications.Audience)
}

type reservationService struct {
	repo      repository.ReservationRepository
	equipment repository.EquipmentRepository
	detector  *conflict.Detector
	locker    *equipmentLocker
	validator *validator.ReservationValidator
	notifier  EventNotifier
	cfg       *config.Config
	now       func() time.Time
}

// NewReservationService wires the engine. lockRepo may be nil for a single
// replica deployment; the in-process lock still applies.
func NewReservationService(
	repo repository.ReservationRepository,
	lockRepo repository.ReservationLockRepository,
	equipment repository.EquipmentRepository,
	validator *validator.ReservationValidator,
	notifier EventNotifier,
	cfg *config.Config,
) ReservationService {
	return newReservationService(repo, lockRepo, equipment, validator, notifier, cfg)
}

func newReservationService(
	repo repository.ReservationRepository,
	lockRepo repository.ReservationLockRepository,
	equipment repository.EquipmentRepository,
	validator *validator.ReservationValidator,
	notifier EventNotifier,
	cfg *config.Config,
) *reservationService {
	return &reservationService{
		repo:      repo,
		equipment: equipment,
		detector:  conflict.NewDetector(repo),
		locker: &equipmentLocker{
			local:       NewKeyedMutex(),
			store:       lockRepo,
			ttl:         cfg.LockTTL,
			waitTimeout: cfg.LockWaitTimeout,
			log:         cfg.Log,
		},
		validator: validator,
		notifier:  notifier,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *reservationService) Create(ctx context.Context, actor model.Actor, req *model.ReservationCreate) (*model.Reservation, error) {
	req.DeliveryAddress = sanitizer.SanitizeAddress(req.DeliveryAddress)
	req.Notes = sanitizer.SanitizeNotes(req.Notes)

	if err := s.validator.ValidateCreate(req); err != nil {
		s.logFor(ctx, actor, "").Warn("Reservation validation failed", "error", err)
		return nil, apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}

	customerID, err := s.resolveCustomer(actor, req.CustomerID)
	if err != nil {
		return nil, err
	}

	start, end, err := parseWindow(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateCreationWindow(start, end, s.now(), s.cfg.MaxAdvanceBooking); err != nil {
		s.logFor(ctx, actor, "").Warn("Reservation window rejected", "equipment_id", req.EquipmentID, "reason", reservationserrors.Reason(err))
		return nil, windowError(err)
	}

	equipment, err := s.loadEquipment(ctx, req.EquipmentID)
	if err != nil {
		return nil, err
	}
	if !equipment.IsAvailable() {
		return nil, apperrors.Validation("Equipment is not available for rental", map[string]any{
			"equipment_id":     equipment.ID,
			"equipment_status": equipment.Status,
		})
	}

	amount, err := pricing.ComputeAmount(equipment.DailyRate, start, end)
	if err != nil {
		return nil, windowError(err)
	}

	reservation := &model.Reservation{
		CustomerID:      customerID,
		EquipmentID:     req.EquipmentID,
		StartDate:       start,
		EndDate:         end,
		DeliveryAddress: req.DeliveryAddress,
		Status:          model.StatusPending,
		TotalAmount:     amount,
		Currency:        s.currency(equipment),
		Notes:           req.Notes,
	}

	err = s.withEquipmentLock(ctx, reservation.EquipmentID, func() error {
		return s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			if err := s.ensureNoConflict(sessCtx, reservation, ""); err != nil {
				return err
			}
			if err := s.repo.Create(sessCtx, reservation); err != nil {
				return apperrors.Internal("Failed to create reservation", err)
			}
			return nil
		})
	})
	if err != nil {
		logFailure(s.logFor(ctx, actor, ""), "Failed to create reservation", err, "equipment_id", reservation.EquipmentID, "customer_id", customerID)
		return nil, err
	}

	s.logFor(ctx, actor, reservation.ID).Info("Reservation created successfully",
		"equipment_id", reservation.EquipmentID,
		"customer_id", reservation.CustomerID,
		"start_date", reservation.StartDate.Format(model.DateLayout),
		"end_date", reservation.EndDate.Format(model.DateLayout),
		"total_amount", reservation.TotalAmount,
	)
	s.notify(ctx, notifications.ReservationCreated, reservation, notifications.AudienceCustomer, notifications.AudienceOperators)

	return reservation, nil
}

func (s *reservationService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error) {
	reservation, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeAccess(actor, reservation); err != nil {
		return nil, err
	}
	return reservation, nil
}

func (s *reservationService) List(ctx context.Context, actor model.Actor, filter *model.ReservationFilter, limit int, offset int64) ([]*model.Reservation, int64, error) {
	if filter == nil {
		filter = &model.ReservationFilter{}
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, apperrors.Validation("Unknown reservation status", map[string]any{"status": filter.Status})
	}

	switch {
	case actor.IsOperator() || actor.IsSystem():
	case actor.Role == model.RoleCustomer:
		filter.CustomerID = actor.ID
	default:
		return nil, 0, apperrors.Forbidden("Actor is not allowed to list reservations")
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.For(ctx).Error("Failed to count reservations", "error", errCount)
			errCount = apperrors.Internal("Failed to count reservations", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = s.repo.Find(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.For(ctx).Error("Failed to list reservations", "limit", limit, "offset", offset, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve reservations", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return reservations, count, nil
}

func (s *reservationService) Update(ctx context.Context, actor model.Actor, id string, patch *model.ReservationUpdate) (*model.Reservation, error) {
	if patch.DeliveryAddress != nil {
		address := sanitizer.SanitizeAddress(*patch.DeliveryAddress)
		patch.DeliveryAddress = &address
	}
	if patch.Notes != nil {
		notes := sanitizer.SanitizeNotes(*patch.Notes)
		patch.Notes = &notes
	}
	if err := s.validator.ValidateUpdate(patch); err != nil {
		s.logFor(ctx, actor, id).Warn("Reservation update validation failed", "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeAccess(actor, current); err != nil {
		return nil, err
	}

	var updated *model.Reservation
	apply := func() error {
		updated, err = s.applyUpdate(ctx, id, patch)
		return err
	}

	if patch.ChangesWindow() {
		err = s.withEquipmentLock(ctx, current.EquipmentID, apply)
	} else {
		err = apply()
	}
	if err != nil {
		logFailure(s.logFor(ctx, actor, id), "Failed to update reservation", err)
		return nil, err
	}

	s.logFor(ctx, actor, id).Info("Reservation updated successfully", "total_amount", updated.TotalAmount)
	s.notify(ctx, notifications.ReservationUpdated, updated, notifications.AudienceCustomer, notifications.AudienceOperators)

	return updated, nil
}

// applyUpdate merges patch against a fresh snapshot and writes it back only
// if the status it was decided on still holds.
func (s *reservationService) applyUpdate(ctx context.Context, id string, patch *model.ReservationUpdate) (*model.Reservation, error) {
	for attempt := 0; attempt < maxStaleAttempts; attempt++ {
		current, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if !current.Status.In(model.EditableStatuses) {
			return nil, apperrors.Validation("Reservation can no longer be modified", map[string]any{"status": current.Status})
		}
		if patch.ChangesWindow() && !current.Status.In(model.ReschedulableStatuses) {
			return nil, apperrors.Validation("Rental dates can only change while pending or confirmed", map[string]any{"status": current.Status})
		}

		merged, err := s.mergePatch(ctx, current, patch)
		if err != nil {
			return nil, err
		}

		err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			if patch.ChangesWindow() {
				if err := s.ensureNoConflict(sessCtx, merged, merged.ID); err != nil {
					return err
				}
			}
			return s.repo.Update(sessCtx, merged, current.Status)
		})
		switch {
		case err == nil:
			return merged, nil
		case errors.Is(err, reservationserrors.ErrStaleStatus):
			s.logFor(ctx, model.Actor{}, id).Debug("Reservation status moved during update, retrying", "attempt", attempt+1)
			continue
		case errors.Is(err, reservationserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Reservation", id)
		case apperrors.IsAppError(err):
			return nil, err
		default:
			return nil, apperrors.Internal("Failed to update reservation", err)
		}
	}
	return nil, apperrors.Conflict("Reservation was modified concurrently, please retry")
}

// mergePatch builds the candidate record. A partial date patch is completed
// from the stored opposite bound before anything is validated.
func (s *reservationService) mergePatch(ctx context.Context, current *model.Reservation, patch *model.ReservationUpdate) (*model.Reservation, error) {
	merged := *current

	if patch.DeliveryAddress != nil {
		merged.DeliveryAddress = *patch.DeliveryAddress
	}
	if patch.Notes != nil {
		merged.Notes = *patch.Notes
	}
	if !patch.ChangesWindow() {
		return &merged, nil
	}

	startRaw := current.StartDate.Format(model.DateLayout)
	endRaw := current.EndDate.Format(model.DateLayout)
	if patch.StartDate != nil {
		startRaw = *patch.StartDate
	}
	if patch.EndDate != nil {
		endRaw = *patch.EndDate
	}

	start, end, err := parseWindow(startRaw, endRaw)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateMutationWindow(start, end, s.now(), s.cfg.MaxAdvanceBooking); err != nil {
		s.logFor(ctx, model.Actor{}, current.ID).Warn("Reservation window change rejected", "reason", reservationserrors.Reason(err))
		return nil, windowError(err)
	}

	equipment, err := s.loadEquipment(ctx, current.EquipmentID)
	if err != nil {
		return nil, err
	}
	amount, err := pricing.ComputeAmount(equipment.DailyRate, start, end)
	if err != nil {
		return nil, windowError(err)
	}

	merged.StartDate = start
	merged.EndDate = end
	merged.TotalAmount = amount
	merged.Currency = s.currency(equipment)
	return &merged, nil
}

func (s *reservationService) Confirm(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error) {
	return s.transition(ctx, actor, id, lifecycle.ActionConfirm)
}

func (s *reservationService) Start(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error) {
	return s.transition(ctx, actor, id, lifecycle.ActionStart)
}

func (s *reservationService) Complete(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error) {
	return s.transition(ctx, actor, id, lifecycle.ActionComplete)
}

func (s *reservationService) Cancel(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error) {
	return s.transition(ctx, actor, id, lifecycle.ActionCancel)
}

var transitionEvents = map[lifecycle.Action]struct {
	event     notifications.EventType
	audiences []notifications.Audience
}{
	lifecycle.ActionConfirm:  {notifications.ReservationConfirmed, []notifications.Audience{notifications.AudienceCustomer}},
	lifecycle.ActionStart:    {notifications.ReservationStarted, []notifications.Audience{notifications.AudienceCustomer}},
	lifecycle.ActionComplete: {notifications.ReservationCompleted, []notifications.Audience{notifications.AudienceCustomer}},
	lifecycle.ActionCancel:   {notifications.ReservationCancelled, []notifications.Audience{notifications.AudienceCustomer, notifications.AudienceOperators}},
}

func (s *reservationService) transition(ctx context.Context, actor model.Actor, id string, action lifecycle.Action) (*model.Reservation, error) {
	for attempt := 0; attempt < maxStaleAttempts; attempt++ {
		current, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := authorizeTransition(actor, current, action); err != nil {
			s.logFor(ctx, actor, id).Warn("Reservation transition forbidden", "action", action)
			return nil, err
		}

		to, err := lifecycle.Next(current.Status, action)
		if err != nil {
			return nil, apperrors.Validation(fmt.Sprintf("Cannot %s a %s reservation", action, current.Status), map[string]any{
				"status": current.Status,
				"action": action,
			})
		}
		if err := s.checkGuards(actor, current, action); err != nil {
			return nil, err
		}

		updated, err := s.repo.UpdateStatus(ctx, id, current.Status, to)
		if err != nil {
			if errors.Is(err, reservationserrors.ErrStaleStatus) {
				s.logFor(ctx, actor, id).Debug("Reservation status moved, re-evaluating", "action", action, "attempt", attempt+1)
				continue
			}
			return nil, s.mapRepoError(err, id, "Failed to update reservation status")
		}

		s.logFor(ctx, actor, id).Info("Reservation status changed", "from", current.Status, "to", updated.Status)
		ev := transitionEvents[action]
		s.notify(ctx, ev.event, updated, ev.audiences...)

		return updated, nil
	}
	return nil, apperrors.Conflict("Reservation was modified concurrently, please retry")
}

func (s *reservationService) checkGuards(actor model.Actor, r *model.Reservation, action lifecycle.Action) error {
	now := s.now()

	switch action {
	case lifecycle.ActionStart:
		if now.Before(r.StartDate) {
			return apperrors.Validation("Reservation cannot start before its start date", map[string]any{
				"start_date": r.StartDate.Format(model.DateLayout),
			})
		}
	case lifecycle.ActionCancel:
		if actor.IsOperator() || actor.IsSystem() {
			return nil
		}
		if r.StartDate.Sub(now) < s.cfg.CustomerCancelCutoff {
			return apperrors.Validation("Reservation can no longer be cancelled by the customer", map[string]any{
				"reason":         "cancellation_window",
				"cutoff_hours":   s.cfg.CustomerCancelCutoff.Hours(),
				"hours_to_start": r.StartDate.Sub(now).Hours(),
			})
		}
	}
	return nil
}

func (s *reservationService) ConfirmFromPayment(ctx context.Context, id string) (*model.Reservation, bool, error) {
	for attempt := 0; attempt < maxStaleAttempts; attempt++ {
		current, err := s.load(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if !lifecycle.Allowed(current.Status, lifecycle.ActionConfirm) {
			s.logFor(ctx, model.Actor{}, id).Info("Payment confirmation ignored", "status", current.Status)
			return current, false, nil
		}

		updated, err := s.repo.UpdateStatus(ctx, id, current.Status, model.StatusConfirmed)
		if err != nil {
			if errors.Is(err, reservationserrors.ErrStaleStatus) {
				continue
			}
			return nil, false, s.mapRepoError(err, id, "Failed to confirm reservation")
		}

		s.logFor(ctx, model.Actor{}, id).Info("Reservation confirmed by payment")
		s.notify(ctx, notifications.ReservationConfirmed, updated, notifications.AudienceCustomer)
		return updated, true, nil
	}
	return nil, false, apperrors.Conflict("Reservation was modified concurrently, please retry")
}

func (s *reservationService) Delete(ctx context.Context, actor model.Actor, id string) error {
	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorizeAccess(actor, current); err != nil {
		return err
	}
	if !current.Status.In(model.DeletableStatuses) {
		return apperrors.Validation("Only pending or cancelled reservations can be deleted, cancel it first", map[string]any{
			"status": current.Status,
		})
	}

	if err := s.repo.Delete(ctx, id, model.DeletableStatuses); err != nil {
		if errors.Is(err, reservationserrors.ErrStaleStatus) {
			return apperrors.Validation("Reservation status changed and it can no longer be deleted", nil)
		}
		return s.mapRepoError(err, id, "Failed to delete reservation")
	}

	s.logFor(ctx, actor, id).Info("Reservation deleted successfully")
	s.notify(ctx, notifications.ReservationDeleted, current, notifications.AudienceOperators)
	return nil
}

func (s *reservationService) CheckAvailability(ctx context.Context, equipmentID, startDate, endDate string) (*model.Availability, error) {
	start, end, err := parseWindow(startDate, endDate)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateCreationWindow(start, end, s.now(), s.cfg.MaxAdvanceBooking); err != nil {
		return nil, windowError(err)
	}

	availability := &model.Availability{
		EquipmentID: equipmentID,
		StartDate:   start.Format(model.DateLayout),
		EndDate:     end.Format(model.DateLayout),
	}

	equipment, err := s.loadEquipment(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	if !equipment.IsAvailable() {
		return availability, nil
	}

	conflicting, err := s.detector.HasConflict(ctx, equipmentID, start, end, "")
	if err != nil {
		return nil, apperrors.Internal("Failed to check availability", err)
	}
	availability.Available = !conflicting
	return availability, nil
}

// --- Helpers ---

func (s *reservationService) withEquipmentLock(ctx context.Context, equipmentID string, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, equipmentID)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrLockHeld) {
			return apperrors.Conflict("Equipment is busy with another reservation request, please retry")
		}
		return apperrors.Internal("Failed to lock equipment timeline", err)
	}
	defer unlock()
	return fn()
}

func (s *reservationService) ensureNoConflict(ctx context.Context, r *model.Reservation, excludeID string) error {
	conflicting, err := s.detector.HasConflict(ctx, r.EquipmentID, r.StartDate, r.EndDate, excludeID)
	if err != nil {
		return apperrors.Internal("Failed to check existing reservations", err)
	}
	if conflicting {
		return apperrors.Conflict(fmt.Sprintf(
			"Equipment is already reserved between %s and %s",
			r.StartDate.Format(model.DateLayout),
			r.EndDate.Format(model.DateLayout),
		))
	}
	return nil
}

func (s *reservationService) load(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}
	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id, "Failed to retrieve reservation")
	}
	return reservation, nil
}

func (s *reservationService) loadEquipment(ctx context.Context, id string) (*model.Equipment, error) {
	equipment, err := s.equipment.FindByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, reservationserrors.ErrEquipmentNotFound):
			return nil, apperrors.NotFoundWithID("Equipment", id)
		case errors.Is(err, reservationserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid equipment ID format")
		default:
			s.cfg.Log.For(ctx).Error("Equipment lookup failed", "equipment_id", id, "error", err)
			return nil, apperrors.Upstream("Failed to load equipment", err)
		}
	}
	return equipment, nil
}

func (s *reservationService) mapRepoError(err error, id, message string) error {
	switch {
	case errors.Is(err, reservationserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Reservation", id)
	case errors.Is(err, reservationserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid reservation ID format")
	case apperrors.IsAppError(err):
		return err
	default:
		s.cfg.Log.WithReservation(id).Error(message, "error", err)
		return apperrors.Internal(message, err)
	}
}

func (s *reservationService) currency(equipment *model.Equipment) string {
	if equipment.Currency != "" {
		return sanitizer.SanitizeCurrency(equipment.Currency)
	}
	return sanitizer.SanitizeCurrency(s.cfg.DefaultCurrency)
}

func (s *reservationService) notify(ctx context.Context, eventType notifications.EventType, r *model.Reservation, audiences ...notifications.Audience) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, notifications.NewReservationEvent(eventType, r), audiences...)
}

// logFor scopes the request logger to one reservation. Outside a request
// the actor is attached directly.
func (s *reservationService) logFor(ctx context.Context, actor model.Actor, id string) *logger.Logger {
	log := s.cfg.Log.For(ctx)
	if _, scoped := logger.FromContext(ctx); !scoped && actor.ID != "" {
		log = log.WithActor(actor.ID, string(actor.Role))
	}
	if id != "" {
		log = log.WithReservation(id)
	}
	return log
}

func logFailure(log *logger.Logger, msg string, err error, args ...any) {
	args = append(args, "error", err)
	if apperrors.HasCode(err, apperrors.CodeInternal) {
		log.Error(msg, args...)
		return
	}
	log.Warn(msg, args...)
}

func (s *reservationService) resolveCustomer(actor model.Actor, requested string) (string, error) {
	switch {
	case actor.Role == model.RoleCustomer:
		if requested != "" && requested != actor.ID {
			return "", apperrors.Forbidden("Customers can only book for themselves")
		}
		return actor.ID, nil
	case actor.IsOperator() || actor.IsSystem():
		if requested == "" {
			return "", apperrors.Validation("customer_id is required when booking on behalf of a customer", nil)
		}
		return requested, nil
	default:
		return "", apperrors.Forbidden("Actor is not allowed to create reservations")
	}
}

func authorizeAccess(actor model.Actor, r *model.Reservation) error {
	if actor.IsOperator() || actor.IsSystem() {
		return nil
	}
	if actor.Role == model.RoleCustomer && actor.ID != "" && actor.ID == r.CustomerID {
		return nil
	}
	return apperrors.Forbidden("You do not have access to this reservation")
}

func authorizeTransition(actor model.Actor, r *model.Reservation, action lifecycle.Action) error {
	if action == lifecycle.ActionCancel {
		return authorizeAccess(actor, r)
	}
	if actor.IsOperator() || actor.IsSystem() {
		return nil
	}
	return apperrors.Forbidden(fmt.Sprintf("Only operators may %s a reservation", action))
}

func parseWindow(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := model.ParseDate(startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.Validation("Invalid start_date", map[string]any{"error": err.Error()})
	}
	end, err := model.ParseDate(endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.Validation("Invalid end_date", map[string]any{"error": err.Error()})
	}
	return start, end, nil
}

func windowError(err error) error {
	details := map[string]any{"error": err.Error()}
	if reason := reservationserrors.Reason(err); reason != "" {
		details["reason"] = reason
	}
	return apperrors.Validation("Invalid reservation window", details)
}
