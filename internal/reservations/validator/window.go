package validator

import (
	"fmt"
	"time"

	reservationserrors "kitchenrent/internal/reservations/errors"
	"kitchenrent/pkg/model"
)

// DefaultMaxAdvance is how far ahead a reservation may start.
const DefaultMaxAdvance = 365 * 24 * time.Hour

// ValidateCreationWindow checks a window for a new reservation. All values are
// compared at calendar-day granularity in UTC.
func ValidateCreationWindow(start, end, now time.Time, maxAdvance time.Duration) error {
	return validateWindow(start, end, now, maxAdvance)
}

// ValidateMutationWindow re-checks a window being moved on an existing
// reservation. The past-start rule is evaluated against now, not against the
// original creation time, so a window can be pushed forward but never into
// the past.
func ValidateMutationWindow(start, end, now time.Time, maxAdvance time.Duration) error {
	return validateWindow(start, end, now, maxAdvance)
}

func validateWindow(start, end, now time.Time, maxAdvance time.Duration) error {
	if maxAdvance <= 0 {
		maxAdvance = DefaultMaxAdvance
	}

	today := model.TruncateDay(now)
	s := model.TruncateDay(start)
	e := model.TruncateDay(end)

	if s.Before(today) {
		return fmt.Errorf("%w: %s is before %s", reservationserrors.ErrPastStartDate, s.Format(model.DateLayout), today.Format(model.DateLayout))
	}
	if !e.After(s) {
		return reservationserrors.ErrEndBeforeOrEqualStart
	}
	if s.After(today.Add(maxAdvance)) {
		return fmt.Errorf("%w: latest allowed start is %s", reservationserrors.ErrTooFarInFuture, today.Add(maxAdvance).Format(model.DateLayout))
	}

	return nil
}
