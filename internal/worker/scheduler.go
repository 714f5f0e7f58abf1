package worker

import (
	"context"
	"fmt"
	"time"

	"kitchenrent/pkg/config"
	"kitchenrent/pkg/kafka/middleware"
	"kitchenrent/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the worker jobs on their cron expressions, in UTC with
// seconds precision.
type Scheduler struct {
	cron *cron.Cron
	jobs *Jobs
	log  *logger.Logger
	ctx  context.Context
	stop context.CancelFunc
}

func NewScheduler(cfg *config.Config, jobs *Jobs) (*Scheduler, error) {
	ctx, stop := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		jobs: jobs,
		log:  cfg.Log,
		ctx:  ctx,
		stop: stop,
	}

	if err := s.register(cfg); err != nil {
		stop()
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) register(cfg *config.Config) error {
	entries := []struct {
		name string
		spec string
		run  func(ctx context.Context) (int, error)
	}{
		{"start_reminders", cfg.ReminderCron, s.jobs.SendStartReminders},
		{"overdue_alerts", cfg.OverdueCron, s.jobs.SendOverdueAlerts},
		{"kafka_metrics", cfg.KafkaMetricsCron, s.logKafkaMetrics},
	}

	for _, e := range entries {
		if _, err := s.cron.AddFunc(e.spec, s.wrap(e.name, e.run)); err != nil {
			return fmt.Errorf("failed to register %s job: %w", e.name, err)
		}
	}
	s.log.Info("Worker jobs registered", "count", len(entries))
	return nil
}

func (s *Scheduler) wrap(name string, run func(ctx context.Context) (int, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
		defer cancel()

		started := time.Now()
		processed, err := run(ctx)
		if err != nil {
			s.log.Error("Worker job failed", "job", name, "processed", processed, "duration", time.Since(started), "error", err)
			return
		}
		s.log.Info("Worker job finished", "job", name, "processed", processed, "duration", time.Since(started))
	}
}

func (s *Scheduler) logKafkaMetrics(context.Context) (int, error) {
	middleware.GetMetrics().LogMetrics(s.log)
	return 0, nil
}

func (s *Scheduler) Start() {
	s.log.Info("Starting cron scheduler")
	s.cron.Start()
}

// Stop cancels in-flight jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.log.Info("Stopping cron scheduler")
	s.stop()
	<-s.cron.Stop().Done()
	s.log.Info("Cron scheduler stopped")
}
