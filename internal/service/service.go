package service

import (
	"errors"
	"golang-jobrunner/config"
	"golang-jobrunner/internal/action"
	"golang-jobrunner/internal/credtype"
	"golang-jobrunner/internal/executor"
	"golang-jobrunner/internal/repository"
	"golang-jobrunner/pkg/cache"
	"golang-jobrunner/pkg/logger"
	"golang-jobrunner/pkg/metrics"
	"golang-jobrunner/pkg/utils"
	"golang-jobrunner/pkg/zabbix"
)

var (
	ErrRunTemplateNotFound = errors.New("run template not found")
	ErrJobNotFound         = errors.New("job not found")
	ErrApplicationNotFound = errors.New("application not found")
	ErrCredentialNotFound  = errors.New("credential not found")
)

// Registries are the plugin sets the services dispatch into.
type Registries struct {
	Executors   *executor.Registry
	Credentials *credtype.Registry
	Actions     *action.Registry
}

type Service struct {
	Queue              Queue
	CredentialResolver CredentialResolver
	CredentialService  CredentialService
	FileStore          FileStore
	EventService       EventService
	RunTemplateService RunTemplateService
	JobService         JobService
	SchedulerService   SchedulerService
}

// NewService wires the services. zbx may be nil when no Zabbix server is
// configured; actionDeps.State is set to the run template service.
func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	inmemoryCache cache.Cache,
	registries Registries,
	actionDeps *action.Deps,
	zbx zabbix.Sender,
	m *metrics.Metrics,
	clock utils.Clock,
) *Service {
	if clock == nil {
		clock = utils.TimeNowUTC
	}

	credentialResolver := NewCredentialResolver(cfg, log, registries.Credentials, inmemoryCache)
	credentialService := NewCredentialService(log, repo, registries.Credentials, credentialResolver)
	runTemplateService := NewRunTemplateService(cfg, log, clock, repo, credentialResolver, zbx)
	queue := NewQueue(cfg, log, clock, repo.ScheduleRepo, repo.RunTemplateRepo)

	actionDeps.State = runTemplateService
	if actionDeps.Clock == nil {
		actionDeps.Clock = clock
	}
	if actionDeps.Executors == nil {
		actionDeps.Executors = registries.Executors
	}
	dispatcher := action.NewDispatcher(registries.Actions, actionDeps, repo.RunTemplateRepo, m)

	fileStore := NewFileStore(log, cfg.Executor.FileDir, repo.FileStoreRepo)
	jobService := NewJobService(cfg, log, clock, repo.JobRepo, runTemplateService, queue, registries.Executors, dispatcher, fileStore, m)
	eventService := NewEventService(cfg, log, repo.EventRepo, jobService, OpenEventAdapter)
	schedulerService := NewSchedulerService(cfg, log, clock, repo, queue, jobService, eventService, m)

	return &Service{
		Queue:              queue,
		CredentialResolver: credentialResolver,
		CredentialService:  credentialService,
		FileStore:          fileStore,
		EventService:       eventService,
		RunTemplateService: runTemplateService,
		JobService:         jobService,
		SchedulerService:   schedulerService,
	}
}
