package service

import (
	"context"
	"fmt"
	"golang-jobrunner/config"
	"golang-jobrunner/internal/configfield"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/recurrence"
	"golang-jobrunner/internal/repository"
	"golang-jobrunner/internal/status"
	"golang-jobrunner/pkg/logger"
	"golang-jobrunner/pkg/utils"
	"golang-jobrunner/pkg/zabbix"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

const originRunTemplate = "RunTemplate"

type RunTemplateService interface {
	// Get loads a run template with its application and company.
	Get(ctx context.Context, id uint) (*model.RunTemplate, error)
	AppEnvironment(ctx context.Context, app *model.Application) (*configfield.Fields, error)
	GetEnvironment(ctx context.Context, rt *model.RunTemplate) (*configfield.Fields, error)
	SetEnvironment(ctx context.Context, id uint, properties map[string]string) (bool, error)
	CheckRequiredFields(ctx context.Context, fields *configfield.Fields, properties map[string]string) bool
	SetState(ctx context.Context, id uint, enabled bool) (bool, error)
	EnvFile(ctx context.Context, id uint) (string, error)
	SetProvision(ctx context.Context, id uint, prepared bool) error
	PerformInit(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
	SetPeriods(ctx context.Context, ids []uint, interv string) (int, error)
	AttachApplication(ctx context.Context, companyID, appID uint) (*model.RunTemplate, error)
}

type runTemplateService struct {
	cfg         *config.Config
	log         *logger.Logger
	clock       utils.Clock
	repo        *repository.Repository
	credentials CredentialResolver
	zabbix      zabbix.Sender
}

func NewRunTemplateService(
	cfg *config.Config,
	log *logger.Logger,
	clock utils.Clock,
	repo *repository.Repository,
	credentials CredentialResolver,
	zbx zabbix.Sender,
) RunTemplateService {
	return &runTemplateService{
		cfg:         cfg,
		log:         log,
		clock:       clock,
		repo:        repo,
		credentials: credentials,
		zabbix:      zbx,
	}
}

func (s *runTemplateService) Get(ctx context.Context, id uint) (*model.RunTemplate, error) {
	rt, err := s.repo.RunTemplateRepo.FindByID(ctx, id, utils.WithPreload("App"), utils.WithPreload("Company"))
	if err != nil {
		return nil, fmt.Errorf("failed to load run template %d: %w", id, err)
	}
	if rt == nil {
		return nil, fmt.Errorf("%w: %d", ErrRunTemplateNotFound, id)
	}
	return rt, nil
}

// AppEnvironment returns the fields an application declares, valued with
// their defaults.
func (s *runTemplateService) AppEnvironment(ctx context.Context, app *model.Application) (*configfield.Fields, error) {
	if app == nil {
		return nil, ErrApplicationNotFound
	}
	declared, err := s.repo.ApplicationRepo.GetFields(ctx, app.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fields of application %d: %w", app.ID, err)
	}

	fields := configfield.New(app.Name).WithSource(configfield.ApplicationDefault(app.Name))
	for _, d := range declared {
		f := configfield.NewField(d.Keyname, configfield.NormalizeType(d.Type), d.Name)
		f.Description = d.Description
		f.Hint = d.Hint
		f.Note = d.Note
		f.DefaultValue = d.Defval
		f.Value = d.Defval
		f.Required = d.Required
		f.Secret = d.Secret
		f.Multiline = d.Multiline
		f.Expiring = d.Expiring
		fields.Add(f)
	}
	return fields, nil
}

// GetEnvironment layers application defaults, stored overrides and bound
// credentials, later layers winning.
func (s *runTemplateService) GetEnvironment(ctx context.Context, rt *model.RunTemplate) (*configfield.Fields, error) {
	if rt == nil {
		return nil, ErrRunTemplateNotFound
	}
	if rt.App == nil {
		loaded, err := s.Get(ctx, rt.ID)
		if err != nil {
			return nil, err
		}
		rt = loaded
	}

	env := configfield.New(fmt.Sprintf("RunTemplate #%d environment", rt.ID))

	appFields, err := s.AppEnvironment(ctx, rt.App)
	if err != nil {
		return nil, err
	}
	env.AddAll(appFields)

	overrides, err := s.overrides(ctx, rt.ID)
	if err != nil {
		return nil, err
	}
	env.AddAll(configfield.FromMap("overrides", overrides, configfield.TenantOverride(rt.ID)))

	env.AddAll(s.legacyCredentialsEnvironment(rt))

	creds, err := s.credentialsEnvironment(ctx, rt)
	if err != nil {
		return nil, err
	}
	env.AddAll(creds)

	return env, nil
}

func (s *runTemplateService) overrides(ctx context.Context, id uint) (map[string]string, error) {
	configs, err := s.repo.RunTemplateRepo.GetConfigs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration of run template %d: %w", id, err)
	}
	values := make(map[string]string, len(configs))
	for _, c := range configs {
		values[c.Name] = c.Value
	}
	return values, nil
}

// legacyCredentialsEnvironment is the slot for per-company credential
// columns. No such columns are stored, so it is always empty.
func (s *runTemplateService) legacyCredentialsEnvironment(rt *model.RunTemplate) *configfield.Fields {
	return configfield.New("legacy credentials")
}

func (s *runTemplateService) credentialsEnvironment(ctx context.Context, rt *model.RunTemplate) (*configfield.Fields, error) {
	bindings, err := s.repo.RunTemplateRepo.GetCredentialBindings(ctx, rt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials of run template %d: %w", rt.ID, err)
	}

	fields := configfield.New("credentials")
	for _, b := range bindings {
		resolved, err := s.credentials.Resolve(ctx, b.Credential)
		if err != nil {
			status.Report(ctx, s.log, status.Error, originRunTemplate, "Credential #%d of run template #%d: %v", b.CredentialsID, rt.ID, err)
			return nil, err
		}
		fields.AddAll(resolved)
	}
	return fields, nil
}

// CheckRequiredFields reports a warning for every required field left empty.
func (s *runTemplateService) CheckRequiredFields(ctx context.Context, fields *configfield.Fields, properties map[string]string) bool {
	ok := true
	for _, f := range fields.All() {
		if f.Required && strings.TrimSpace(properties[f.Code()]) == "" {
			status.Report(ctx, s.log, status.Warning, originRunTemplate, "Required field %s is not set", f.Code())
			ok = false
		}
	}
	return ok
}

// SetEnvironment stores overrides. Nothing is written when a required field
// would end up empty.
func (s *runTemplateService) SetEnvironment(ctx context.Context, id uint, properties map[string]string) (bool, error) {
	rt, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	appFields, err := s.AppEnvironment(ctx, rt.App)
	if err != nil {
		return false, err
	}
	existing, err := s.overrides(ctx, id)
	if err != nil {
		return false, err
	}

	merged := appFields.EnvMap()
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range properties {
		merged[k] = v
	}
	if !s.CheckRequiredFields(ctx, appFields, merged) {
		status.Report(ctx, s.log, status.Warning, originRunTemplate, "Configuration of run template #%d was not saved", id)
		return false, nil
	}

	err = s.repo.UnitOfWork.Run(ctx, func(opts ...utils.DBOption) error {
		for _, k := range utils.SortedKeys(properties) {
			configType := string(configfield.TypeString)
			if f := appFields.Get(k); f != nil {
				configType = string(f.Type)
			}
			err := s.repo.RunTemplateRepo.UpsertConfig(ctx, &model.RunTemplateConfig{
				RunTemplateID: rt.ID,
				AppID:         rt.AppID,
				CompanyID:     rt.CompanyID,
				Name:          k,
				Value:         properties[k],
				ConfigType:    configType,
			}, opts...)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		status.Report(ctx, s.log, status.Error, originRunTemplate, "Saving configuration of run template #%d failed: %v", id, err)
		return false, fmt.Errorf("failed to save configuration of run template %d: %w", id, err)
	}

	status.Report(ctx, s.log, status.Success, originRunTemplate, "Configuration saved: %s", strings.Join(utils.SortedKeys(properties), ", "))
	return true, nil
}

// SetState disables a template by clearing its interval or enables it by
// dropping the custom cron override.
func (s *runTemplateService) SetState(ctx context.Context, id uint, enabled bool) (bool, error) {
	rt, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}

	columns := map[string]interface{}{}
	if enabled {
		columns["cron"] = ""
		rt.Cron = ""
	} else {
		columns["interv"] = recurrence.Disabled
		rt.Interv = recurrence.Disabled
	}
	if err := s.repo.RunTemplateRepo.UpdateColumns(ctx, id, columns); err != nil {
		return false, fmt.Errorf("failed to change state of run template %d: %w", id, err)
	}

	s.log.InfoContext(ctx, "Run template state changed",
		logger.UintField("runtemplate_id", id),
		logger.BoolField("enabled", enabled),
	)

	if s.zabbix != nil {
		if err := s.notifyZabbix(ctx, rt); err != nil {
			status.Report(ctx, s.log, status.Warning, originRunTemplate, "Zabbix notification for run template #%d failed: %v", id, err)
		}
	}
	return true, nil
}

func (s *runTemplateService) notifyZabbix(ctx context.Context, rt *model.RunTemplate) error {
	prefix := fmt.Sprintf("job-[%s-%s-%d", companyCode(rt), appCode(rt), rt.ID)
	now := s.clock().Unix()
	_, err := s.zabbix.Send(ctx,
		zabbix.Metric{Host: s.zabbix.Host(), Key: prefix + "-interval]", Value: rt.Interv, Clock: now},
		zabbix.Metric{Host: s.zabbix.Host(), Key: prefix + "-interval_seconds]", Value: strconv.FormatInt(recurrence.CodeToSeconds(rt.Interv), 10), Clock: now},
	)
	return err
}

// EnvFile renders the environment as a shell-sourceable file.
func (s *runTemplateService) EnvFile(ctx context.Context, id uint) (string, error) {
	rt, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	env, err := s.GetEnvironment(ctx, rt)
	if err != nil {
		return "", err
	}

	companyName := ""
	if rt.Company != nil {
		companyName = rt.Company.Name
	}
	lines := []string{
		fmt.Sprintf("# runtemplate #%d environment %s", rt.ID, rt.Name),
		fmt.Sprintf("# Generated %s for company: %s", s.clock().Format("2006-01-02 15:04:05"), companyName),
		"",
	}
	for _, f := range env.All() {
		lines = append(lines, fmt.Sprintf("%s='%s'", f.Code(), f.EffectiveValue()))
	}
	return strings.Join(lines, "\n") + "\n", nil
}

func (s *runTemplateService) SetProvision(ctx context.Context, id uint, prepared bool) error {
	if err := s.repo.RunTemplateRepo.UpdateColumns(ctx, id, map[string]interface{}{"prepared": prepared}); err != nil {
		return fmt.Errorf("failed to set provision of run template %d: %w", id, err)
	}
	return nil
}

// PerformInit marks a template unprovisioned when its application has a
// setup command, so the next run provisions it first.
func (s *runTemplateService) PerformInit(ctx context.Context, id uint) error {
	rt, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if rt.App == nil || strings.TrimSpace(rt.App.Setup) == "" {
		return nil
	}
	return s.SetProvision(ctx, id, false)
}

// Delete removes a template with everything hanging off it. Job history is
// kept.
func (s *runTemplateService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	err := s.repo.UnitOfWork.Run(ctx, func(opts ...utils.DBOption) error {
		if err := s.repo.RunTemplateRepo.DeleteActionConfigs(ctx, id, opts...); err != nil {
			return err
		}
		if err := s.repo.RunTemplateRepo.DeleteConfigs(ctx, id, opts...); err != nil {
			return err
		}
		if err := s.repo.RunTemplateRepo.DeleteCredentialBindings(ctx, id, opts...); err != nil {
			return err
		}
		if _, err := s.repo.ScheduleRepo.DeleteByRunTemplate(ctx, id, opts...); err != nil {
			return err
		}
		if err := s.repo.FileStoreRepo.DeleteByRunTemplate(ctx, id, opts...); err != nil {
			return err
		}
		if err := s.repo.EventRepo.DeleteRulesByRunTemplate(ctx, id, opts...); err != nil {
			return err
		}
		return s.repo.RunTemplateRepo.Delete(ctx, id, opts...)
	})
	if err != nil {
		return fmt.Errorf("failed to delete run template %d: %w", id, err)
	}
	status.Report(ctx, s.log, status.Success, originRunTemplate, "Run template #%d deleted", id)
	return nil
}

// SetPeriods sets the interval code of many templates.
func (s *runTemplateService) SetPeriods(ctx context.Context, ids []uint, interv string) (int, error) {
	if !recurrence.IsValid(interv) {
		return 0, fmt.Errorf("unknown interval code %q", interv)
	}
	var errs *multierror.Error
	updated := 0
	for _, id := range ids {
		if err := s.repo.RunTemplateRepo.UpdateColumns(ctx, id, map[string]interface{}{"interv": interv}); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("run template %d: %w", id, err))
			continue
		}
		updated++
	}
	return updated, errs.ErrorOrNil()
}

// AttachApplication returns the company's template for the application,
// creating a disabled one when none exists.
func (s *runTemplateService) AttachApplication(ctx context.Context, companyID, appID uint) (*model.RunTemplate, error) {
	app, err := s.repo.ApplicationRepo.FindByID(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to load application %d: %w", appID, err)
	}
	if app == nil {
		return nil, fmt.Errorf("%w: %d", ErrApplicationNotFound, appID)
	}

	rt, err := s.repo.RunTemplateRepo.FindByCompanyAndApp(ctx, companyID, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up run template: %w", err)
	}
	if rt != nil {
		return rt, nil
	}

	rt = &model.RunTemplate{
		Name:      app.Name,
		AppID:     appID,
		CompanyID: companyID,
		Interv:    recurrence.Disabled,
		Prepared:  strings.TrimSpace(app.Setup) == "",
	}
	if err := s.repo.RunTemplateRepo.Create(ctx, rt); err != nil {
		return nil, fmt.Errorf("failed to create run template: %w", err)
	}
	status.Report(ctx, s.log, status.Success, originRunTemplate, "Application %s attached to company #%d as run template #%d", app.Name, companyID, rt.ID)
	return rt, nil
}

func companyCode(rt *model.RunTemplate) string {
	if rt.Company == nil {
		return ""
	}
	return rt.Company.Code
}

func appCode(rt *model.RunTemplate) string {
	if rt.App == nil {
		return ""
	}
	return rt.App.Code
}
