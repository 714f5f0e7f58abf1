// Package pricing derives the rental charge from a daily rate and a window.
package pricing

import (
	"fmt"
	"math"
	"time"

	reservationserrors "kitchenrent/internal/reservations/errors"
)

const day = 24 * time.Hour

// Days returns the number of billable days in [start, end), rounding any
// partial day up.
func Days(start, end time.Time) int64 {
	span := end.Sub(start)
	if span <= 0 {
		return 0
	}
	days := int64(span / day)
	if span%day != 0 {
		days++
	}
	return days
}

// ComputeAmount returns dailyRate multiplied by the billable days. Amounts are
// in the rate's minor currency unit, so no rounding happens here.
func ComputeAmount(dailyRate int64, start, end time.Time) (int64, error) {
	if dailyRate <= 0 {
		return 0, fmt.Errorf("%w: got %d", reservationserrors.ErrNonPositiveRate, dailyRate)
	}

	days := Days(start, end)
	if days < 1 {
		return 0, reservationserrors.ErrSubMinimumDuration
	}
	if days > math.MaxInt64/dailyRate {
		return 0, fmt.Errorf("amount overflows for %d days at rate %d", days, dailyRate)
	}

	return dailyRate * days, nil
}
