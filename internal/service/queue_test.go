package service

import (
	"context"
	"testing"
	"time"

	"golang-jobrunner/config"
	"golang-jobrunner/internal/executor"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/recurrence"
	"golang-jobrunner/internal/repository"
	"golang-jobrunner/pkg/logger"
	"golang-jobrunner/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestQueue_AddJobIsIdempotent(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t, utils.FixedClock(now), executor.NewFake(0, ""))
	fx := seed(t, env.repo, recurrence.Hourly)
	ctx := context.Background()

	job := &model.Job{RunTemplateID: fx.rt.ID, ScheduleType: model.ScheduleTypePeriodic, State: model.JobStatePrepared, ScheduledAt: now}
	require.NoError(t, env.repo.JobRepo.Create(ctx, job))

	first, err := env.svc.Queue.AddJob(ctx, job, fx.rt, now)
	require.NoError(t, err)
	second, err := env.svc.Queue.AddJob(ctx, job, fx.rt, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	count, err := env.repo.ScheduleRepo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	stored, err := env.repo.RunTemplateRepo.FindByID(ctx, fx.rt.ID)
	require.NoError(t, err)
	require.True(t, stored.LastSchedule.Valid)
	require.True(t, stored.NextSchedule.Valid)
	assert.True(t, now.Equal(stored.LastSchedule.Time))
	assert.True(t, now.Add(time.Hour).Equal(stored.NextSchedule.Time))
}

func TestQueue_AddJobLeavesNextScheduleForOneOffJobs(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t, utils.FixedClock(now), executor.NewFake(0, ""))
	fx := seed(t, env.repo, recurrence.Hourly)
	ctx := context.Background()

	job := &model.Job{RunTemplateID: fx.rt.ID, ScheduleType: model.ScheduleTypeManual, State: model.JobStatePrepared, ScheduledAt: now}
	require.NoError(t, env.repo.JobRepo.Create(ctx, job))

	_, err := env.svc.Queue.AddJob(ctx, job, fx.rt, now)
	require.NoError(t, err)

	stored, err := env.repo.RunTemplateRepo.FindByID(ctx, fx.rt.ID)
	require.NoError(t, err)
	assert.True(t, stored.LastSchedule.Valid)
	assert.False(t, stored.NextSchedule.Valid)
}

func TestQueue_AddJobRejectsUnsavedJob(t *testing.T) {
	env := newTestEnv(t, utils.TimeNowUTC, executor.NewFake(0, ""))
	_, err := env.svc.Queue.AddJob(context.Background(), &model.Job{}, nil, time.Now())
	assert.Error(t, err)
}

// racingScheduleRepo simulates another worker inserting the entry between
// the lookup and the insert.
type racingScheduleRepo struct {
	repository.ScheduleRepository
	finds int
	entry *model.ScheduleEntry
}

func (r *racingScheduleRepo) PurgeOrphans(context.Context, ...utils.DBOption) (int64, error) {
	return 0, nil
}

func (r *racingScheduleRepo) FindByJob(context.Context, uint, ...utils.DBOption) (*model.ScheduleEntry, error) {
	r.finds++
	if r.finds == 1 {
		return nil, nil
	}
	return r.entry, nil
}

func (r *racingScheduleRepo) Create(context.Context, *model.ScheduleEntry, ...utils.DBOption) error {
	return gorm.ErrDuplicatedKey
}

func TestQueue_AddJobConcurrentInsertReturnsWinner(t *testing.T) {
	repo := &racingScheduleRepo{entry: &model.ScheduleEntry{ID: 42, JobID: 7}}
	q := NewQueue(&config.Config{}, logger.NewNop(), utils.TimeNowUTC, repo, nil)

	id, err := q.AddJob(context.Background(), &model.Job{ID: 7}, nil, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
	assert.Equal(t, 2, repo.finds)
}

func TestQueue_Claim(t *testing.T) {
	tests := []struct {
		name        string
		atomic      bool
		secondClaim bool
	}{
		{name: "atomic claim wins once", atomic: true, secondClaim: false},
		{name: "plain dequeue always succeeds", atomic: false, secondClaim: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
			env := newTestEnv(t, utils.FixedClock(now), executor.NewFake(0, ""))
			env.cfg.Scheduler.AtomicClaim = tt.atomic
			fx := seed(t, env.repo, recurrence.Disabled)
			ctx := context.Background()

			job := &model.Job{RunTemplateID: fx.rt.ID, State: model.JobStatePrepared, ScheduledAt: now}
			require.NoError(t, env.repo.JobRepo.Create(ctx, job))
			_, err := env.svc.Queue.AddJob(ctx, job, nil, now.Add(-time.Minute))
			require.NoError(t, err)

			due, err := env.svc.Queue.GetCurrentJobs(ctx)
			require.NoError(t, err)
			require.Len(t, due, 1)
			require.NotNil(t, due[0].Job)
			assert.Equal(t, job.ID, due[0].Job.ID)

			claimed, err := env.svc.Queue.Claim(ctx, due[0])
			require.NoError(t, err)
			assert.True(t, claimed)

			claimed, err = env.svc.Queue.Claim(ctx, due[0])
			require.NoError(t, err)
			assert.Equal(t, tt.secondClaim, claimed)

			count, err := env.repo.ScheduleRepo.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}
