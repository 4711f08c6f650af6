package cmd

import (
	"context"
	"fmt"
	"golang-jobrunner/config"
	"golang-jobrunner/internal/service"
	"golang-jobrunner/internal/status"
	"golang-jobrunner/pkg/logger"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SchedulerTicker drives periodic scheduler passes, either from a cron
// expression or a fixed interval.
type SchedulerTicker struct {
	cfg       config.Scheduler
	log       *logger.Logger
	scheduler service.SchedulerService
}

func NewSchedulerTicker(cfg config.Scheduler, log *logger.Logger, scheduler service.SchedulerService) *SchedulerTicker {
	return &SchedulerTicker{cfg: cfg, log: log, scheduler: scheduler}
}

// Run blocks until ctx is done.
func (t *SchedulerTicker) Run(ctx context.Context) error {
	if t.cfg.PollCron != "" {
		return t.runCron(ctx)
	}
	return t.runInterval(ctx)
}

func (t *SchedulerTicker) runInterval(ctx context.Context) error {
	interval := t.cfg.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	t.log.Info("Scheduler ticker started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.pass(ctx)
	for {
		select {
		case <-ctx.Done():
			t.log.Info("Scheduler ticker stopped")
			return nil
		case <-ticker.C:
			t.pass(ctx)
		}
	}
}

func (t *SchedulerTicker) runCron(ctx context.Context) error {
	c := cron.New(
		cron.WithLogger(cronLogger{log: t.log}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{log: t.log})),
	)
	if _, err := c.AddFunc(t.cfg.PollCron, func() { t.pass(ctx) }); err != nil {
		return fmt.Errorf("invalid scheduler.poll_cron %q: %w", t.cfg.PollCron, err)
	}
	t.log.Info("Scheduler cron started", zap.String("spec", t.cfg.PollCron))
	c.Start()

	<-ctx.Done()
	// waits for a running pass
	<-c.Stop().Done()
	t.log.Info("Scheduler cron stopped")
	return nil
}

func (t *SchedulerTicker) pass(ctx context.Context) {
	collector := status.NewCollector(t.log)
	if err := t.scheduler.Execute(status.NewContext(ctx, collector)); err != nil {
		t.log.ErrorContextWithAlert(ctx, "Scheduler pass failed", zap.Error(err))
	}
}

// cronLogger adapts the zap logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, zap.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
