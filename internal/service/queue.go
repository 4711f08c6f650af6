package service

import (
	"context"
	"errors"
	"fmt"
	"golang-jobrunner/config"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/recurrence"
	"golang-jobrunner/internal/repository"
	"golang-jobrunner/pkg/logger"
	"golang-jobrunner/pkg/utils"
	"time"
)

// Queue is the shared schedule table workers poll for due jobs.
type Queue interface {
	// AddJob queues job once; calling it again for a queued job returns the
	// existing entry id.
	AddJob(ctx context.Context, job *model.Job, rt *model.RunTemplate, when time.Time, opts ...utils.DBOption) (uint, error)
	GetCurrentJobs(ctx context.Context) ([]model.ScheduleEntry, error)
	Claim(ctx context.Context, entry model.ScheduleEntry) (bool, error)
}

type queue struct {
	cfg             *config.Config
	log             *logger.Logger
	clock           utils.Clock
	scheduleRepo    repository.ScheduleRepository
	runTemplateRepo repository.RunTemplateRepository
}

func NewQueue(
	cfg *config.Config,
	log *logger.Logger,
	clock utils.Clock,
	scheduleRepo repository.ScheduleRepository,
	runTemplateRepo repository.RunTemplateRepository,
) Queue {
	return &queue{
		cfg:             cfg,
		log:             log,
		clock:           clock,
		scheduleRepo:    scheduleRepo,
		runTemplateRepo: runTemplateRepo,
	}
}

func (q *queue) AddJob(ctx context.Context, job *model.Job, rt *model.RunTemplate, when time.Time, opts ...utils.DBOption) (uint, error) {
	if job == nil || job.ID == 0 {
		return 0, errors.New("cannot queue an unsaved job")
	}

	purged, err := q.scheduleRepo.PurgeOrphans(ctx, opts...)
	if err != nil {
		return 0, fmt.Errorf("failed to purge orphaned queue entries: %w", err)
	}
	if purged > 0 {
		q.log.DebugContext(ctx, "Purged orphaned queue entries", logger.IntField("count", int(purged)))
	}

	existing, err := q.scheduleRepo.FindByJob(ctx, job.ID, opts...)
	if err != nil {
		return 0, fmt.Errorf("failed to look up queue entry of job %d: %w", job.ID, err)
	}
	if existing != nil {
		return existing.ID, nil
	}

	when = when.UTC()
	if rt != nil {
		if err := q.writeSchedule(ctx, job, rt, when, opts...); err != nil {
			return 0, err
		}
	}

	entry := &model.ScheduleEntry{JobID: job.ID, After: when}
	if err := q.scheduleRepo.Create(ctx, entry, opts...); err != nil {
		if !utils.IsUniqueViolation(err) {
			return 0, fmt.Errorf("failed to queue job %d: %w", job.ID, err)
		}
		// another worker queued it first
		existing, findErr := q.scheduleRepo.FindByJob(ctx, job.ID, opts...)
		if findErr != nil {
			return 0, fmt.Errorf("failed to look up queue entry of job %d: %w", job.ID, findErr)
		}
		if existing == nil {
			return 0, fmt.Errorf("failed to queue job %d: %w", job.ID, err)
		}
		q.log.DebugContext(ctx, "Job already queued by another worker", logger.UintField("job_id", job.ID))
		return existing.ID, nil
	}
	return entry.ID, nil
}

// writeSchedule records when the template was last queued and, for periodic
// jobs, its next occurrence.
func (q *queue) writeSchedule(ctx context.Context, job *model.Job, rt *model.RunTemplate, when time.Time, opts ...utils.DBOption) error {
	columns := map[string]interface{}{"last_schedule": when}
	rt.LastSchedule.Time, rt.LastSchedule.Valid = when, true

	if job.ScheduleType == model.ScheduleTypePeriodic && recurrence.IsPeriodic(rt.Interv) {
		next, ok, err := recurrence.Next(rt.Interv, rt.Cron, when)
		if err != nil {
			return fmt.Errorf("run template %d: %w", rt.ID, err)
		}
		if ok {
			columns["next_schedule"] = next.UTC()
			rt.NextSchedule.Time, rt.NextSchedule.Valid = next.UTC(), true
		}
	}

	if err := q.runTemplateRepo.UpdateColumns(ctx, rt.ID, columns, opts...); err != nil {
		return fmt.Errorf("failed to update schedule of run template %d: %w", rt.ID, err)
	}
	return nil
}

// GetCurrentJobs returns entries whose time has strictly passed, oldest
// first.
func (q *queue) GetCurrentJobs(ctx context.Context) ([]model.ScheduleEntry, error) {
	entries, err := q.scheduleRepo.FindDue(ctx, q.clock(), utils.WithPreload("Job"))
	if err != nil {
		return nil, fmt.Errorf("failed to read due queue entries: %w", err)
	}
	return entries, nil
}

// Claim removes the entry. With atomic claims only the worker that actually
// deleted the row may run the job.
func (q *queue) Claim(ctx context.Context, entry model.ScheduleEntry) (bool, error) {
	if !q.cfg.Scheduler.AtomicClaim {
		if err := q.scheduleRepo.DeleteByJob(ctx, entry.JobID); err != nil {
			return false, fmt.Errorf("failed to dequeue job %d: %w", entry.JobID, err)
		}
		return true, nil
	}
	claimed, err := q.scheduleRepo.Claim(ctx, entry.ID)
	if err != nil {
		return false, fmt.Errorf("failed to claim queue entry %d: %w", entry.ID, err)
	}
	return claimed, nil
}
