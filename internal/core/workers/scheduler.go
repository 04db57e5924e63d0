package workers

import (
	"context"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	ScheduleDailyStats  = "0 2 * * *"
	ScheduleMaintenance = "30 2 * * *"
	ScheduleMorningFeed = "0 7 * * *"
)

// Scheduler runs named jobs on cron schedules evaluated in UTC.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  *zap.Logger
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		timeout: 30 * time.Minute,
		logger:  logger,
	}
}

func (s *Scheduler) Add(name, spec string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() { s.Run(name, fn) })
	return err
}

// Run executes one job immediately with the scheduler's timeout and bookkeeping.
func (s *Scheduler) Run(name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	metrics.CronRuns.WithLabelValues(name, metrics.Result(err)).Inc()
	if err != nil {
		s.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.logger.Info("scheduled job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and returns a context that is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
