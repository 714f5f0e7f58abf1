// Package conflict decides whether a requested window collides with
// reservations already holding the same equipment.
package conflict

import (
	"context"
	"fmt"
	"time"

	reservationserrors "kitchenrent/internal/reservations/errors"
	"kitchenrent/pkg/model"
)

// Overlaps reports whether two closed date ranges share at least one day.
// Touching endpoints count as overlap.
func Overlaps(start, end, otherStart, otherEnd time.Time) bool {
	s, e := model.TruncateDay(start), model.TruncateDay(end)
	os, oe := model.TruncateDay(otherStart), model.TruncateDay(otherEnd)

	startsInside := !os.Before(s) && !os.After(e)
	endsInside := !oe.Before(s) && !oe.After(e)
	covers := !os.After(s) && !oe.Before(e)

	return startsInside || endsInside || covers
}

// Store answers the overlap query against persisted reservations. Only
// blocking statuses are considered and excludeID is skipped.
type Store interface {
	ExistsOverlapping(ctx context.Context, equipmentID string, start, end time.Time, excludeID string) (bool, error)
}

type Detector struct {
	store Store
}

func NewDetector(store Store) *Detector {
	return &Detector{store: store}
}

// HasConflict never reports false when the store could not answer.
func (d *Detector) HasConflict(ctx context.Context, equipmentID string, start, end time.Time, excludeID string) (bool, error) {
	s, e := model.TruncateDay(start), model.TruncateDay(end)
	if !e.After(s) {
		return false, reservationserrors.ErrEndBeforeOrEqualStart
	}

	exists, err := d.store.ExistsOverlapping(ctx, equipmentID, s, e, excludeID)
	if err != nil {
		return false, fmt.Errorf("conflict lookup for equipment %s: %w", equipmentID, err)
	}
	return exists, nil
}
