package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"kitchenrent/internal/notifications"
	"kitchenrent/pkg/cache"
	"kitchenrent/pkg/config"
	"kitchenrent/pkg/logger"
	"kitchenrent/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFinder struct {
	reservations []*model.Reservation
	filters      []model.ReservationFilter
	err          error
}

// Find applies status and date bounds like the store does.
func (s *stubFinder) Find(ctx context.Context, filter *model.ReservationFilter, limit int, offset int64) ([]*model.Reservation, error) {
	s.filters = append(s.filters, *filter)
	if s.err != nil {
		return nil, s.err
	}

	var matched []*model.Reservation
	for _, r := range s.reservations {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.StartFrom != nil && r.StartDate.Before(*filter.StartFrom) {
			continue
		}
		if filter.StartTo != nil && r.StartDate.After(*filter.StartTo) {
			continue
		}
		if filter.EndTo != nil && r.EndDate.After(*filter.EndTo) {
			continue
		}
		matched = append(matched, r)
	}

	if offset >= int64(len(matched)) {
		return []*model.Reservation{}, nil
	}
	end := offset + int64(limit)
	if end > int64(len(matched)) {
		end = int64(len(matched))
	}
	return matched[offset:end], nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, event notifications.Event, audiences ...notifications.Audience) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, a := range audiences {
		if a == notifications.AudienceOperators {
			n.events = append(n.events, event)
		}
	}
}

type failingLedger struct{}

func (failingLedger) Claim(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func (failingLedger) Mark(context.Context, string, time.Duration) error {
	return errors.New("redis: connection refused")
}

func (failingLedger) Seen(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func (failingLedger) Forget(context.Context, string) error { return nil }

var today = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func day(offset int) time.Time { return today.AddDate(0, 0, offset) }

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test"})
}

func newTestJobs(finder ReservationFinder, dedupe cache.Deduplicator) (*Jobs, *recordingNotifier) {
	notifier := &recordingNotifier{}
	jobs := NewJobs(finder, notifier, dedupe, testLogger())
	jobs.now = func() time.Time { return today.Add(7 * time.Hour) }
	return jobs, notifier
}

func TestSendStartReminders(t *testing.T) {
	finder := &stubFinder{reservations: []*model.Reservation{
		{ID: "tomorrow", Status: model.StatusConfirmed, StartDate: day(1), EndDate: day(3)},
		{ID: "pending-tomorrow", Status: model.StatusPending, StartDate: day(1), EndDate: day(3)},
		{ID: "next-week", Status: model.StatusConfirmed, StartDate: day(7), EndDate: day(9)},
	}}
	jobs, notifier := newTestJobs(finder, cache.NewMemoryDeduplicator())

	sent, err := jobs.SendStartReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, notifications.ReservationStartingSoon, notifier.events[0].Type)
	assert.Equal(t, "tomorrow", notifier.events[0].ReservationID)

	require.NotEmpty(t, finder.filters)
	assert.Equal(t, day(1), *finder.filters[0].StartFrom)
	assert.Equal(t, day(1), *finder.filters[0].StartTo)

	// A second run the same day is a no-op.
	sent, err = jobs.SendStartReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Len(t, notifier.events, 1)
}

func TestSendOverdueAlerts(t *testing.T) {
	finder := &stubFinder{reservations: []*model.Reservation{
		{ID: "late", Status: model.StatusActive, StartDate: day(-5), EndDate: day(-2)},
		{ID: "ends-today", Status: model.StatusActive, StartDate: day(-3), EndDate: day(0)},
		{ID: "done", Status: model.StatusCompleted, StartDate: day(-5), EndDate: day(-2)},
	}}
	ledger := cache.NewMemoryDeduplicator()
	jobs, notifier := newTestJobs(finder, ledger)

	sent, err := jobs.SendOverdueAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, notifications.ReservationOverdue, notifier.events[0].Type)
	assert.Equal(t, 2, notifier.events[0].Data["days_overdue"])

	sent, err = jobs.SendOverdueAlerts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent, "overdue alert repeats at most once per day")

	jobs.now = func() time.Time { return day(1).Add(time.Hour) }
	sent, err = jobs.SendOverdueAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent, "next day re-alerts the still late rental and the one that ended yesterday")
}

func TestSweep_Paginates(t *testing.T) {
	var reservations []*model.Reservation
	for i := 0; i < pageSize+5; i++ {
		reservations = append(reservations, &model.Reservation{
			ID: fmt.Sprintf("r%d", i), Status: model.StatusConfirmed, StartDate: day(1), EndDate: day(2),
		})
	}
	finder := &stubFinder{reservations: reservations}
	jobs, notifier := newTestJobs(finder, cache.NewMemoryDeduplicator())

	sent, err := jobs.SendStartReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pageSize+5, sent)
	assert.Len(t, notifier.events, pageSize+5)
	assert.Len(t, finder.filters, 2)
}

func TestSweep_LedgerOutageStillAlerts(t *testing.T) {
	finder := &stubFinder{reservations: []*model.Reservation{
		{ID: "tomorrow", Status: model.StatusConfirmed, StartDate: day(1), EndDate: day(3)},
	}}
	jobs, notifier := newTestJobs(finder, failingLedger{})

	sent, err := jobs.SendStartReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Len(t, notifier.events, 1)
}

func TestSweep_StoreFailure(t *testing.T) {
	jobs, notifier := newTestJobs(&stubFinder{err: errors.New("mongo down")}, cache.NewMemoryDeduplicator())

	_, err := jobs.SendOverdueAlerts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overdue_alerts")
	assert.Empty(t, notifier.events)
}

func TestNewScheduler_RejectsBadCron(t *testing.T) {
	jobs, _ := newTestJobs(&stubFinder{}, cache.NewMemoryDeduplicator())
	cfg := &config.Config{
		ReminderCron:     config.DefaultReminderCron,
		OverdueCron:      "not a cron",
		KafkaMetricsCron: config.DefaultKafkaMetricsCron,
		Log:              testLogger(),
	}

	_, err := NewScheduler(cfg, jobs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overdue_alerts")
}

func TestNewScheduler_StartStop(t *testing.T) {
	jobs, _ := newTestJobs(&stubFinder{}, cache.NewMemoryDeduplicator())
	cfg := &config.Config{
		ReminderCron:     config.DefaultReminderCron,
		OverdueCron:      config.DefaultOverdueCron,
		KafkaMetricsCron: config.DefaultKafkaMetricsCron,
		Log:              testLogger(),
	}

	s, err := NewScheduler(cfg, jobs)
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 3)
	s.Start()
	s.Stop()
}
