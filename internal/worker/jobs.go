package worker

import (
	"context"
	"fmt"
	"time"

	"kitchenrent/internal/notifications"
	"kitchenrent/pkg/cache"
	"kitchenrent/pkg/logger"
	"kitchenrent/pkg/model"
)

const (
	pageSize   = 100
	jobTimeout = 5 * time.Minute
)

// ReservationFinder is the read side of the reservation store.
type ReservationFinder interface {
	Find(ctx context.Context, filter *model.ReservationFilter, limit int, offset int64) ([]*model.Reservation, error)
}

type EventNotifier interface {
	Notify(ctx context.Context, event notifications.Event, audiences ...notifications.Audience)
}

// Jobs holds the periodic reservation sweeps. Each alert is claimed in the
// dedupe ledger so overlapping runs or several worker replicas send it once.
type Jobs struct {
	reservations ReservationFinder
	notifier     EventNotifier
	dedupe       cache.Deduplicator
	log          *logger.Logger
	now          func() time.Time
}

func NewJobs(reservations ReservationFinder, notifier EventNotifier, dedupe cache.Deduplicator, log *logger.Logger) *Jobs {
	return &Jobs{
		reservations: reservations,
		notifier:     notifier,
		dedupe:       dedupe,
		log:          log,
		now:          time.Now,
	}
}

// SendStartReminders tells operators about confirmed rentals starting
// tomorrow so delivery can be prepared.
func (j *Jobs) SendStartReminders(ctx context.Context) (int, error) {
	tomorrow := model.TruncateDay(j.now()).AddDate(0, 0, 1)
	filter := &model.ReservationFilter{
		Status:    model.StatusConfirmed,
		StartFrom: &tomorrow,
		StartTo:   &tomorrow,
	}

	return j.sweep(ctx, "start_reminders", filter, func(r *model.Reservation) (string, time.Duration, notifications.Event) {
		key := fmt.Sprintf("starting-soon:%s:%s", r.ID, r.StartDate.Format(model.DateLayout))
		event := notifications.NewReservationEvent(notifications.ReservationStartingSoon, r).
			With("start_date", r.StartDate.Format(model.DateLayout))
		return key, 48 * time.Hour, event
	})
}

// SendOverdueAlerts flags active rentals whose end date has passed. An
// overdue rental is reported at most once per day.
func (j *Jobs) SendOverdueAlerts(ctx context.Context) (int, error) {
	today := model.TruncateDay(j.now())
	yesterday := today.AddDate(0, 0, -1)
	filter := &model.ReservationFilter{
		Status: model.StatusActive,
		EndTo:  &yesterday,
	}

	return j.sweep(ctx, "overdue_alerts", filter, func(r *model.Reservation) (string, time.Duration, notifications.Event) {
		key := fmt.Sprintf("overdue:%s:%s", r.ID, today.Format(model.DateLayout))
		daysOverdue := int(today.Sub(r.EndDate).Hours() / 24)
		event := notifications.NewReservationEvent(notifications.ReservationOverdue, r).
			With("end_date", r.EndDate.Format(model.DateLayout)).
			With("days_overdue", daysOverdue)
		return key, 24 * time.Hour, event
	})
}

type alertFunc func(r *model.Reservation) (key string, ttl time.Duration, event notifications.Event)

func (j *Jobs) sweep(ctx context.Context, job string, filter *model.ReservationFilter, alert alertFunc) (int, error) {
	sent := 0
	for offset := int64(0); ; offset += pageSize {
		page, err := j.reservations.Find(ctx, filter, pageSize, offset)
		if err != nil {
			return sent, fmt.Errorf("%s: failed to load reservations: %w", job, err)
		}

		for _, r := range page {
			key, ttl, event := alert(r)
			claimed, err := j.dedupe.Claim(ctx, key, ttl)
			if err != nil {
				// Without the ledger a duplicate alert beats a missed one.
				j.log.Warn("Dedupe ledger unavailable, sending alert anyway", "job", job, "reservation_id", r.ID, "error", err)
				claimed = true
			}
			if !claimed {
				continue
			}
			j.notifier.Notify(ctx, event, notifications.AudienceOperators)
			sent++
		}

		if len(page) < pageSize {
			return sent, nil
		}
	}
}
