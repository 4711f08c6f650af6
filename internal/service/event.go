package service

import (
	"context"
	"errors"
	"fmt"
	"golang-jobrunner/config"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/repository"
	"golang-jobrunner/internal/status"
	"golang-jobrunner/pkg/common"
	"golang-jobrunner/pkg/database"
	"golang-jobrunner/pkg/logger"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cast"
)

const (
	originEventSource = "EventSource"

	changesTable = "changes_cache"

	defaultEventBatch = 100
)

var ErrInvalidEvent = errors.New("invalid event configuration")

// EventAdapterOpener connects to the adapter database of an event source.
type EventAdapterOpener func(src model.EventSource, log *logger.Logger) (*database.DB, error)

type EventService interface {
	// Process reads the pending changes of every enabled source and
	// prepares a job for each matching rule. It returns the number of jobs
	// prepared.
	Process(ctx context.Context) (int, error)
	CreateSource(ctx context.Context, src *model.EventSource) error
	CreateRule(ctx context.Context, rule *model.EventRule) error
}

type eventService struct {
	cfg  *config.Config
	log  *logger.Logger
	repo repository.EventRepository
	jobs JobService
	open EventAdapterOpener
}

func NewEventService(cfg *config.Config, log *logger.Logger, repo repository.EventRepository, jobs JobService, open EventAdapterOpener) EventService {
	return &eventService{cfg: cfg, log: log, repo: repo, jobs: jobs, open: open}
}

// OpenEventAdapter opens mysql, pgsql and sqlite adapters. MySQL is assumed
// when the source names no driver.
func OpenEventAdapter(src model.EventSource, log *logger.Logger) (*database.DB, error) {
	cfg := config.Database{
		Host:     src.DBHost,
		Port:     src.DBPort,
		User:     src.DBUsername,
		Password: src.DBPassword,
		DBName:   src.DBDatabase,
		SSLMode:  "disable",
		LogLevel: "Silent",
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}

	switch strings.ToLower(src.DBConnection) {
	case "sqlite", "sqlite3":
		cfg.Driver = common.DB_DRIVER_SQLITE
		cfg.Path = src.DBDatabase
	case "pgsql", "postgres", "postgresql":
		cfg.Driver = common.DB_DRIVER_POSTGRES
		if cfg.Port == 0 {
			cfg.Port = 5432
		}
	default:
		cfg.Driver = common.DB_DRIVER_MYSQL
		if cfg.Port == 0 {
			cfg.Port = 3306
		}
	}
	return database.NewDB(cfg, log)
}

func (s *eventService) CreateSource(ctx context.Context, src *model.EventSource) error {
	if strings.TrimSpace(src.Name) == "" {
		return fmt.Errorf("%w: event source name is required", ErrInvalidEvent)
	}
	return s.repo.CreateSource(ctx, src)
}

func (s *eventService) CreateRule(ctx context.Context, rule *model.EventRule) error {
	switch rule.Operation {
	case "":
		rule.Operation = model.EventOperationAny
	case model.EventOperationAny, model.EventOperationCreate, model.EventOperationUpdate, model.EventOperationDelete:
	default:
		return fmt.Errorf("%w: unknown event operation %q", ErrInvalidEvent, rule.Operation)
	}
	if rule.EventSourceID == 0 || rule.RunTemplateID == 0 {
		return fmt.Errorf("%w: event rule needs a source and a run template", ErrInvalidEvent)
	}
	return s.repo.CreateRule(ctx, rule)
}

func (s *eventService) Process(ctx context.Context) (int, error) {
	sources, err := s.repo.FindEnabledSources(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load event sources: %w", err)
	}

	var errs *multierror.Error
	prepared := 0
	for _, src := range sources {
		n, err := s.processSource(ctx, src)
		prepared += n
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("event source %d: %w", src.ID, err))
		}
	}
	return prepared, errs.ErrorOrNil()
}

func (s *eventService) processSource(ctx context.Context, src model.EventSource) (int, error) {
	rules, err := s.repo.FindRules(ctx, src.ID)
	if err != nil {
		return 0, err
	}
	// changes stay in the cache until a rule can consume them
	if len(rules) == 0 {
		return 0, nil
	}

	adapter, err := s.open(src, s.log)
	if err != nil {
		status.Report(ctx, s.log, status.Warning, originEventSource, "Event source %s unreachable: %v", src.Name, err)
		return 0, nil
	}
	defer func() {
		if err := adapter.Close(); err != nil {
			s.log.WarnContext(ctx, "Failed to close event adapter", logger.ErrorField(err), logger.UintField("event_source_id", src.ID))
		}
	}()

	batch := s.cfg.Events.BatchSize
	if batch <= 0 {
		batch = defaultEventBatch
	}

	var rows []map[string]interface{}
	err = adapter.WithContext(ctx).
		Table(changesTable).
		Where("inversion > ?", src.LastProcessedID).
		Order("inversion ASC").
		Limit(batch).
		Find(&rows).Error
	if err != nil {
		status.Report(ctx, s.log, status.Warning, originEventSource, "Event source %s has no readable %s: %v", src.Name, changesTable, err)
		return 0, nil
	}

	prepared := 0
	for _, row := range rows {
		change := changeFromRow(row)
		for _, rule := range rules {
			if !rule.Matches(change) {
				continue
			}
			if _, err := s.jobs.Prepare(ctx, PrepareRequest{
				RunTemplateID: rule.RunTemplateID,
				Env:           rule.EnvOverrides(change),
				ScheduleType:  model.ScheduleTypeEvent,
			}); err != nil {
				status.Report(ctx, s.log, status.Error, originEventSource, "Event rule #%d failed for change %d: %v", rule.ID, change.Inversion, err)
				continue
			}
			prepared++
		}

		if err := s.repo.UpdateLastProcessed(ctx, src.ID, change.Inversion); err != nil {
			return prepared, fmt.Errorf("failed to advance to change %d: %w", change.Inversion, err)
		}
		if err := adapter.WithContext(ctx).Exec("DELETE FROM "+changesTable+" WHERE inversion = ?", change.Inversion).Error; err != nil {
			s.log.WarnContext(ctx, "Failed to wipe processed change", logger.ErrorField(err), logger.Field("inversion", change.Inversion))
		}
	}

	if len(rows) > 0 {
		status.Report(ctx, s.log, status.Info, originEventSource, "Event source %s: %d changes, %d jobs prepared", src.Name, len(rows), prepared)
	}
	return prepared, nil
}

func changeFromRow(row map[string]interface{}) model.Change {
	columns := make(map[string]string, len(row))
	for k, v := range row {
		columns[k] = cast.ToString(v)
	}
	return model.Change{
		Inversion: cast.ToInt64(row["inversion"]),
		Evidence:  columns["evidence"],
		Operation: columns["operation"],
		RecordID:  columns["recordid"],
		Columns:   columns,
	}
}
