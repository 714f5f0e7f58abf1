package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	ErrEquipmentNotFound = errors.New("equipment not found")

	ErrInvalidID = errors.New("invalid ID format")

	// ErrStaleStatus is returned by conditional writes when the stored status
	// no longer matches the status the caller decided on.
	ErrStaleStatus = errors.New("reservation status changed concurrently")

	ErrLockHeld = errors.New("equipment timeline is locked by another request")

	ErrPastStartDate = errors.New("start date is in the past")

	ErrEndBeforeOrEqualStart = errors.New("end date must be after start date")

	ErrTooFarInFuture = errors.New("start date is too far in the future")

	ErrSubMinimumDuration = errors.New("rental must last at least one day")

	ErrNonPositiveRate = errors.New("daily rate must be positive")

	ErrIllegalTransition = errors.New("illegal status transition")
)

// Reason returns the stable machine-readable reason for a window or pricing
// failure, or an empty string for anything else.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrPastStartDate):
		return "past_start_date"
	case errors.Is(err, ErrEndBeforeOrEqualStart):
		return "end_before_or_equal_start"
	case errors.Is(err, ErrTooFarInFuture):
		return "too_far_in_future"
	case errors.Is(err, ErrSubMinimumDuration):
		return "sub_minimum_duration"
	case errors.Is(err, ErrNonPositiveRate):
		return "non_positive_rate"
	}
	return ""
}
