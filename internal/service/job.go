package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"golang-jobrunner/config"
	"golang-jobrunner/internal/action"
	"golang-jobrunner/internal/configfield"
	"golang-jobrunner/internal/executor"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/repository"
	"golang-jobrunner/internal/status"
	"golang-jobrunner/pkg/logger"
	"golang-jobrunner/pkg/metrics"
	"golang-jobrunner/pkg/utils"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	originJob = "Job"

	// maxStoredOutput bounds the stdout and stderr kept on the job row. The
	// full output goes to the executor log files.
	maxStoredOutput = 64 * 1024
)

type PrepareRequest struct {
	RunTemplateID uint
	// Env overrides the layered environment for this job only.
	Env          map[string]string
	ScheduledAt  time.Time
	Executor     string
	ScheduleType model.ScheduleType
}

type JobService interface {
	Prepare(ctx context.Context, req PrepareRequest) (*model.Job, error)
	Schedule(ctx context.Context, f action.FollowUp) (*model.Job, error)
	// Run executes a claimed job. A job that fails is not an error; the
	// returned job carries its final state.
	Run(ctx context.Context, jobID uint) (*model.Job, error)
	Get(ctx context.Context, param model.GetJobParam) ([]model.Job, error)
}

type jobService struct {
	cfg          *config.Config
	log          *logger.Logger
	clock        utils.Clock
	jobRepo      repository.JobRepository
	runTemplates RunTemplateService
	queue        Queue
	executors    *executor.Registry
	dispatcher   *action.Dispatcher
	files        FileStore
	metrics      *metrics.Metrics
}

func NewJobService(
	cfg *config.Config,
	log *logger.Logger,
	clock utils.Clock,
	jobRepo repository.JobRepository,
	runTemplates RunTemplateService,
	queue Queue,
	executors *executor.Registry,
	dispatcher *action.Dispatcher,
	files FileStore,
	m *metrics.Metrics,
) JobService {
	return &jobService{
		cfg:          cfg,
		log:          log,
		clock:        clock,
		jobRepo:      jobRepo,
		runTemplates: runTemplates,
		queue:        queue,
		executors:    executors,
		dispatcher:   dispatcher,
		files:        files,
		metrics:      m,
	}
}

// Prepare snapshots the environment of a run template into a new job and
// queues it.
func (s *jobService) Prepare(ctx context.Context, req PrepareRequest) (*model.Job, error) {
	rt, err := s.runTemplates.Get(ctx, req.RunTemplateID)
	if err != nil {
		status.Report(ctx, s.log, status.Error, originJob, "Cannot prepare job: %v", err)
		return nil, err
	}

	env, err := s.runTemplates.GetEnvironment(ctx, rt)
	if err != nil {
		return nil, fmt.Errorf("failed to build environment of run template %d: %w", rt.ID, err)
	}
	if len(req.Env) > 0 {
		env.AddAll(configfield.FromMap("job overrides", req.Env, configfield.JobOverride(0)))
	}
	env.ApplyMacros()

	when := req.ScheduledAt
	if when.IsZero() {
		when = s.clock()
	}
	scheduleType := req.ScheduleType
	if scheduleType == "" {
		scheduleType = model.ScheduleTypeManual
	}

	job := &model.Job{
		UUID:          uuid.NewString(),
		RunTemplateID: rt.ID,
		CompanyID:     rt.CompanyID,
		AppID:         rt.AppID,
		Executor:      s.executorName(req.Executor, rt),
		ScheduleType:  scheduleType,
		State:         model.JobStatePrepared,
		Env:           datatypes.NewJSONType(env.EnvMap()),
		ScheduledAt:   when.UTC(),
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job for run template %d: %w", rt.ID, err)
	}

	// scheduled before the queue row exists, so a worker never sees a
	// queued job that is still prepared
	if err := job.Transition(model.JobStateScheduled); err != nil {
		return nil, err
	}
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to update job %d: %w", job.ID, err)
	}

	if _, err := s.queue.AddJob(ctx, job, rt, when); err != nil {
		job.Stderr = err.Error()
		if tErr := job.Transition(model.JobStateFailed); tErr == nil {
			if uErr := s.jobRepo.Update(ctx, job); uErr != nil {
				s.log.ErrorContext(ctx, "Failed to mark unqueued job failed", logger.ErrorField(uErr), logger.UintField("job_id", job.ID))
			}
		}
		status.Report(ctx, s.log, status.Error, originJob, "Job #%d could not be queued: %v", job.ID, err)
		return nil, err
	}

	s.metrics.JobsPrepared.WithLabelValues(string(scheduleType)).Inc()
	status.Report(ctx, s.log, status.Success, originJob, "Job #%d of run template #%d scheduled at %s", job.ID, rt.ID, utils.PrettyDate(job.ScheduledAt))
	return job, nil
}

func (s *jobService) Schedule(ctx context.Context, f action.FollowUp) (*model.Job, error) {
	return s.Prepare(ctx, PrepareRequest{
		RunTemplateID: f.RunTemplateID,
		Env:           f.Env,
		ScheduledAt:   f.At,
		Executor:      f.Executor,
		ScheduleType:  f.ScheduleType,
	})
}

func (s *jobService) executorName(requested string, rt *model.RunTemplate) string {
	switch {
	case requested != "":
		return requested
	case rt.Executor != "":
		return rt.Executor
	default:
		return s.cfg.Scheduler.DefaultExecutor
	}
}

func (s *jobService) Run(ctx context.Context, jobID uint) (*model.Job, error) {
	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %d: %w", jobID, err)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %d", ErrJobNotFound, jobID)
	}

	rt, err := s.runTemplates.Get(ctx, job.RunTemplateID)
	if err != nil {
		if errors.Is(err, ErrRunTemplateNotFound) {
			return s.complete(ctx, job, nil, executor.ExitCodeLaunchError, "", "", err)
		}
		return nil, err
	}
	if rt.App == nil {
		err := fmt.Errorf("%w: %d (run template #%d)", ErrApplicationNotFound, rt.AppID, rt.ID)
		return s.complete(ctx, job, rt, executor.ExitCodeLaunchError, "", "", err)
	}

	if err := job.Transition(model.JobStateRunning); err != nil {
		return nil, err
	}
	job.StartedAt = sql.NullTime{Time: s.clock(), Valid: true}
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to mark job %d running: %w", job.ID, err)
	}

	s.log.InfoContext(ctx, "Running job",
		logger.UintField("job_id", job.ID),
		logger.UintField("runtemplate_id", rt.ID),
		logger.StringField("executor", job.Executor),
	)

	exec, err := s.executors.Get(job.Executor)
	if err != nil {
		return s.complete(ctx, job, rt, executor.ExitCodeLaunchError, "", "", err)
	}
	if !exec.UsableForApp(rt.App) {
		err := fmt.Errorf("executor %s cannot run application %s", exec.Name(), rt.App.Name)
		return s.complete(ctx, job, rt, executor.ExitCodeLaunchError, "", "", err)
	}

	env := job.Environment()
	if s.files != nil {
		stored, cleanup, err := s.files.Extract(ctx, job)
		if err != nil {
			return s.complete(ctx, job, rt, executor.ExitCodeLaunchError, "", "", err)
		}
		defer cleanup()
		for code, path := range stored.EnvMap() {
			env[code] = path
		}
	}

	if !rt.Prepared && strings.TrimSpace(rt.App.Setup) != "" {
		if err := s.provision(ctx, job, rt, exec, env); err != nil {
			return s.complete(ctx, job, rt, exitCodeOf(exec), exec.Output(), exec.ErrorOutput(), err)
		}
	}

	cmd := executor.Command{
		JobID:      job.ID,
		JobUUID:    job.UUID,
		Executable: rt.App.Executable,
		Params:     configfield.ExpandMap(rt.App.CmdParams, env),
		Env:        env,
		Image:      rt.App.OCIImage,
	}
	job.Command = cmd.Line()

	start := time.Now()
	code, launchErr := exec.Launch(ctx, cmd)
	s.metrics.JobDuration.WithLabelValues(exec.Name()).Observe(time.Since(start).Seconds())

	if err := exec.StoreLogs(ctx); err != nil {
		s.log.WarnContext(ctx, "Failed to store job logs", logger.ErrorField(err), logger.UintField("job_id", job.ID))
	}
	return s.complete(ctx, job, rt, code, exec.Output(), exec.ErrorOutput(), launchErr)
}

// provision runs the application's setup command once per template.
func (s *jobService) provision(ctx context.Context, job *model.Job, rt *model.RunTemplate, exec executor.Executor, env map[string]string) error {
	line := strings.TrimSpace(configfield.ExpandMap(rt.App.Setup, env))
	executable, params, _ := strings.Cut(line, " ")
	status.Report(ctx, s.log, status.Info, originJob, "Provisioning run template #%d: %s", rt.ID, line)

	code, err := exec.Launch(ctx, executor.Command{
		JobID:      job.ID,
		JobUUID:    job.UUID,
		Executable: executable,
		Params:     params,
		Env:        env,
		Image:      rt.App.OCIImage,
	})
	if err != nil {
		return fmt.Errorf("setup command failed: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("setup command exited with code %d", code)
	}
	if err := s.runTemplates.SetProvision(ctx, rt.ID, true); err != nil {
		return err
	}
	rt.Prepared = true
	return nil
}

// complete records the outcome and performs the template's actions.
func (s *jobService) complete(
	ctx context.Context,
	job *model.Job,
	rt *model.RunTemplate,
	code int,
	stdout, stderr string,
	launchErr error,
) (*model.Job, error) {
	if launchErr != nil && code == 0 {
		code = executor.ExitCodeLaunchError
	}

	job.ExitCode = sql.NullInt32{Int32: int32(code), Valid: true}
	job.Stdout = utils.Truncate(stdout, maxStoredOutput)
	job.Stderr = utils.Truncate(stderr, maxStoredOutput)
	job.CompletedAt = sql.NullTime{Time: s.clock(), Valid: true}

	state := model.JobStateFinished
	if launchErr != nil {
		state = model.JobStateFailed
		if job.Stderr == "" {
			job.Stderr = launchErr.Error()
		}
		if errors.Is(launchErr, executor.ErrExecutableNotFound) {
			status.Report(ctx, s.log, status.Warning, originJob, "Job #%d: %v", job.ID, launchErr)
		} else {
			status.Report(ctx, s.log, status.Error, originJob, "Job #%d failed to launch: %v", job.ID, launchErr)
		}
	}
	if err := job.Transition(state); err != nil {
		return nil, err
	}
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to store result of job %d: %w", job.ID, err)
	}

	s.metrics.JobsCompleted.WithLabelValues(job.Executor, string(job.State)).Inc()
	s.log.InfoContext(ctx, "Job completed",
		logger.UintField("job_id", job.ID),
		logger.StringField("state", string(job.State)),
		logger.IntField("exit_code", code),
	)
	if code == 0 {
		status.Report(ctx, s.log, status.Success, originJob, "Job #%d finished", job.ID)
	} else if launchErr == nil {
		status.Report(ctx, s.log, status.Warning, originJob, "Job #%d exited with code %d", job.ID, code)
	}

	if rt != nil && s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, action.Outcome{
			Job:         job,
			RunTemplate: rt,
			ExitCode:    code,
			Stdout:      stdout,
			Stderr:      stderr,
		}, s)
	}
	return job, nil
}

func (s *jobService) Get(ctx context.Context, param model.GetJobParam) ([]model.Job, error) {
	return s.jobRepo.Get(ctx, &param)
}

func exitCodeOf(exec executor.Executor) int {
	if code := exec.ExitCode(); code != 0 {
		return code
	}
	return executor.ExitCodeLaunchError
}
