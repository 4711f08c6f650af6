package service

import (
	"context"
	"fmt"
	"golang-jobrunner/config"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/recurrence"
	"golang-jobrunner/internal/repository"
	"golang-jobrunner/internal/status"
	"golang-jobrunner/pkg/logger"
	"golang-jobrunner/pkg/metrics"
	"golang-jobrunner/pkg/utils"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

const originScheduler = "Scheduler"

type SchedulerService interface {
	// EnqueueDue prepares a periodic job for every enabled template whose
	// next occurrence has come.
	EnqueueDue(ctx context.Context) (int, error)
	// Execute runs one scheduler pass: process event sources and enqueue due
	// templates, then claim and run every due queue entry.
	Execute(ctx context.Context) error
	GetJobSchedule(ctx context.Context, param model.GetJobParam) ([]model.Job, error)
	RunJobTask(ctx context.Context, jobID uint) (*model.Job, error)
}

type schedulerService struct {
	cfg             *config.Config
	log             *logger.Logger
	clock           utils.Clock
	runTemplateRepo repository.RunTemplateRepository
	scheduleRepo    repository.ScheduleRepository
	queue           Queue
	jobs            JobService
	events          EventService
	metrics         *metrics.Metrics
}

func NewSchedulerService(
	cfg *config.Config,
	log *logger.Logger,
	clock utils.Clock,
	repo *repository.Repository,
	queue Queue,
	jobs JobService,
	events EventService,
	m *metrics.Metrics,
) SchedulerService {
	return &schedulerService{
		cfg:             cfg,
		log:             log,
		clock:           clock,
		runTemplateRepo: repo.RunTemplateRepo,
		scheduleRepo:    repo.ScheduleRepo,
		queue:           queue,
		jobs:            jobs,
		events:          events,
		metrics:         m,
	}
}

func (s *schedulerService) EnqueueDue(ctx context.Context) (int, error) {
	now := s.clock()
	templates, err := s.runTemplateRepo.FindDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to find due run templates: %w", err)
	}

	var errs *multierror.Error
	enqueued := 0
	for _, rt := range templates {
		if !utils.ShouldContinue(ctx, s.log) {
			break
		}
		if _, ok, err := recurrence.Next(rt.Interv, rt.Cron, now); err != nil || !ok {
			reason := "no cron expression"
			if err != nil {
				reason = err.Error()
			}
			status.Report(ctx, s.log, status.Error, originScheduler, "Run template #%d skipped: %s", rt.ID, reason)
			continue
		}
		if _, err := s.jobs.Prepare(ctx, PrepareRequest{
			RunTemplateID: rt.ID,
			ScheduledAt:   now,
			ScheduleType:  model.ScheduleTypePeriodic,
		}); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("run template %d: %w", rt.ID, err))
			continue
		}
		enqueued++
	}
	return enqueued, errs.ErrorOrNil()
}

func (s *schedulerService) Execute(ctx context.Context) error {
	var (
		mu   sync.Mutex
		errs *multierror.Error
	)
	collect := func(err error) {
		mu.Lock()
		errs = multierror.Append(errs, err)
		mu.Unlock()
	}

	if s.events != nil && s.cfg.Events.Enabled {
		if _, err := s.events.Process(ctx); err != nil {
			s.log.ErrorContext(ctx, "Failed to process event sources", logger.ErrorField(err))
			collect(err)
		}
	}

	enqueued, err := s.EnqueueDue(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to enqueue due run templates", logger.ErrorField(err))
		collect(err)
	}

	entries, err := s.queue.GetCurrentJobs(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to read the job queue", logger.ErrorField(err))
		s.metrics.SchedulerPasses.WithLabelValues("error").Inc()
		return err
	}
	s.metrics.QueueDue.Set(float64(len(entries)))

	if len(entries) == 0 {
		s.log.InfoContext(ctx, "No jobs to run", logger.IntField("enqueued", enqueued))
		s.finishPass(errs)
		return errs.ErrorOrNil()
	}
	s.log.InfoContext(ctx, "Start running jobs",
		logger.IntField("job_count", len(entries)),
		logger.IntField("enqueued", enqueued),
		logger.IntField("max_concurrency", s.cfg.Scheduler.MaxConcurrency),
	)

	// Jobs of one run template run in queue order; templates run in
	// parallel up to the concurrency limit.
	groups, order := groupByRunTemplate(entries)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.Scheduler.MaxConcurrency, 1))
	for _, key := range order {
		batch := groups[key]
		g.Go(func() error {
			for _, entry := range batch {
				if !utils.ShouldContinue(gctx, s.log) {
					return nil
				}
				if err := s.runEntry(gctx, entry); err != nil {
					s.log.ErrorContextWithAlert(gctx, "Failed to execute job",
						logger.ErrorField(err),
						logger.UintField("job_id", entry.JobID),
						logger.UintField("schedule_id", entry.ID),
					)
					collect(fmt.Errorf("job %d: %w", entry.JobID, err))
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	s.finishPass(errs)
	return errs.ErrorOrNil()
}

func (s *schedulerService) finishPass(errs *multierror.Error) {
	result := "success"
	if errs.ErrorOrNil() != nil {
		result = "error"
	}
	s.metrics.SchedulerPasses.WithLabelValues(result).Inc()
}

func (s *schedulerService) runEntry(ctx context.Context, entry model.ScheduleEntry) error {
	claimed, err := s.queue.Claim(ctx, entry)
	if err != nil {
		return err
	}
	if !claimed {
		s.log.DebugContext(ctx, "Queue entry claimed by another worker", logger.UintField("schedule_id", entry.ID))
		return nil
	}
	if entry.Job == nil {
		s.log.WarnContext(ctx, "Dropped queue entry without job", logger.UintField("schedule_id", entry.ID))
		return nil
	}

	jobCtx := ctx
	if s.cfg.Scheduler.TimeoutDuration > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, s.cfg.Scheduler.TimeoutDuration)
		defer cancel()
	}

	job, err := s.jobs.Run(jobCtx, entry.JobID)
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "Job execution completed",
		logger.UintField("job_id", job.ID),
		logger.UintField("schedule_id", entry.ID),
		logger.StringField("state", string(job.State)),
	)
	return nil
}

func groupByRunTemplate(entries []model.ScheduleEntry) (map[uint][]model.ScheduleEntry, []uint) {
	groups := make(map[uint][]model.ScheduleEntry)
	var order []uint
	for _, e := range entries {
		var key uint
		if e.Job != nil {
			key = e.Job.RunTemplateID
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}
	return groups, order
}

func (s *schedulerService) GetJobSchedule(ctx context.Context, param model.GetJobParam) ([]model.Job, error) {
	return s.jobs.Get(ctx, param)
}

// RunJobTask runs one job immediately, taking it off the queue first.
func (s *schedulerService) RunJobTask(ctx context.Context, jobID uint) (*model.Job, error) {
	s.log.InfoContext(ctx, "Running job task", logger.UintField("job_id", jobID))
	if err := s.scheduleRepo.DeleteByJob(ctx, jobID); err != nil {
		return nil, fmt.Errorf("failed to dequeue job %d: %w", jobID, err)
	}
	return s.jobs.Run(ctx, jobID)
}
