package cmd

import (
	"context"
	"errors"
	"golang-jobrunner/config"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/status"
	"golang-jobrunner/pkg/logger"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingScheduler struct {
	passes    atomic.Int32
	collector atomic.Bool
	err       error
}

func (s *countingScheduler) EnqueueDue(ctx context.Context) (int, error) { return 0, nil }

func (s *countingScheduler) Execute(ctx context.Context) error {
	s.passes.Add(1)
	if status.FromContext(ctx) != nil {
		s.collector.Store(true)
	}
	return s.err
}

func (s *countingScheduler) GetJobSchedule(ctx context.Context, param model.GetJobParam) ([]model.Job, error) {
	return nil, nil
}

func (s *countingScheduler) RunJobTask(ctx context.Context, jobID uint) (*model.Job, error) {
	return nil, nil
}

func TestSchedulerTickerInterval(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "passes succeed"},
		{name: "pass errors keep the ticker alive", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := &countingScheduler{err: tt.err}
			ticker := NewSchedulerTicker(config.Scheduler{PollInterval: 10 * time.Millisecond}, logger.NewNop(), sched)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- ticker.Run(ctx) }()

			require.Eventually(t, func() bool { return sched.passes.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
			cancel()

			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(2 * time.Second):
				t.Fatal("ticker did not stop")
			}
			assert.True(t, sched.collector.Load())
		})
	}
}

func TestSchedulerTickerCron(t *testing.T) {
	t.Run("invalid expression", func(t *testing.T) {
		ticker := NewSchedulerTicker(config.Scheduler{PollCron: "not a cron"}, logger.NewNop(), &countingScheduler{})
		err := ticker.Run(context.Background())
		assert.ErrorContains(t, err, "poll_cron")
	})

	t.Run("stops on cancel", func(t *testing.T) {
		sched := &countingScheduler{}
		ticker := NewSchedulerTicker(config.Scheduler{PollCron: "@every 1h"}, logger.NewNop(), sched)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.NoError(t, ticker.Run(ctx))
		assert.Zero(t, sched.passes.Load())
	})
}
