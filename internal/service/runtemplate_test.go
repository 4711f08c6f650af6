package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"golang-jobrunner/internal/configfield"
	"golang-jobrunner/internal/credtype"
	"golang-jobrunner/internal/executor"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/recurrence"
	"golang-jobrunner/internal/status"
	"golang-jobrunner/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func bindCommonCredential(t *testing.T, env *testEnv, fx fixture, values map[string]string) *model.Credential {
	t.Helper()
	ctx := context.Background()

	ct := &model.CredentialType{Name: "Static", Class: credtype.CommonName, CompanyID: fx.company.ID}
	require.NoError(t, env.repo.CredentialRepo.CreateType(ctx, ct))
	cred := &model.Credential{Name: "database", CompanyID: fx.company.ID, CredentialTypeID: ct.ID}
	require.NoError(t, env.repo.CredentialRepo.Create(ctx, cred))
	for _, k := range utils.SortedKeys(values) {
		require.NoError(t, env.repo.CredentialRepo.SetValue(ctx, cred.ID, k, values[k], "string"))
	}
	require.NoError(t, env.repo.RunTemplateRepo.BindCredential(ctx, fx.rt.ID, cred.ID))
	return cred
}

func TestRunTemplateService_GetEnvironmentLayers(t *testing.T) {
	env := newTestEnv(t, utils.TimeNowUTC, executor.NewFake(0, ""))
	fx := seed(t, env.repo, recurrence.Disabled)
	cred := bindCommonCredential(t, env, fx, map[string]string{"DB_HOST": "db.internal", "DB_PASSWORD": "s3cret"})
	ctx := context.Background()

	rt, err := env.svc.RunTemplateService.Get(ctx, fx.rt.ID)
	require.NoError(t, err)
	fields, err := env.svc.RunTemplateService.GetEnvironment(ctx, rt)
	require.NoError(t, err)

	assert.Equal(t, []string{"DB_HOST", "DB_PASSWORD", "DB_USER"}, fields.Codes())

	host := fields.Get("DB_HOST")
	assert.Equal(t, "db.internal", host.Value)
	assert.True(t, host.Required, "merging keeps the declared flags")
	assert.Equal(t, configfield.CredentialType("Static", cred.ID), host.Source)

	user := fields.Get("DB_USER")
	assert.Equal(t, "admin", user.Value)
	assert.Equal(t, configfield.TenantOverride(fx.rt.ID), user.Source)

	assert.Equal(t, map[string]string{
		"DB_HOST":     "db.internal",
		"DB_PASSWORD": "s3cret",
		"DB_USER":     "admin",
	}, fields.EnvMap())
}

func TestRunTemplateService_GetEnvironmentDefaults(t *testing.T) {
	env := newTestEnv(t, utils.TimeNowUTC, executor.NewFake(0, ""))
	fx := seed(t, env.repo, recurrence.Disabled)

	fields, err := env.svc.RunTemplateService.GetEnvironment(context.Background(), fx.rt)
	require.NoError(t, err)

	host := fields.Get("DB_HOST")
	require.NotNil(t, host)
	assert.Equal(t, "localhost", host.Value)
	assert.Equal(t, configfield.ApplicationDefault("Backup"), host.Source)
}

func TestRunTemplateService_GetEnvironmentUnknownCredentialType(t *testing.T) {
	env := newTestEnv(t, utils.TimeNowUTC, executor.NewFake(0, ""))
	fx := seed(t, env.repo, recurrence.Disabled)
	ctx, collector := withCollector()

	ct := &model.CredentialType{Name: "Broken", Class: "NoSuchPlugin"}
	require.NoError(t, env.repo.CredentialRepo.CreateType(ctx, ct))
	cred := &model.Credential{Name: "broken", CredentialTypeID: ct.ID}
	require.NoError(t, env.repo.CredentialRepo.Create(ctx, cred))
	require.NoError(t, env.repo.RunTemplateRepo.BindCredential(ctx, fx.rt.ID, cred.ID))

	_, err := env.svc.RunTemplateService.GetEnvironment(ctx, fx.rt)
	require.ErrorIs(t, err, credtype.ErrUnknownType)
	assert.True(t, collector.HasErrors())
}

func TestRunTemplateService_SetEnvironment(t *testing.T) {
	tests := []struct {
		name       string
		properties map[string]string
		wantSaved  bool
		wantUser   string
	}{
		{
			name:       "clearing a required field is refused",
			properties: map[string]string{"DB_USER": "", "EXTRA": "x"},
			wantSaved:  false,
			wantUser:   "admin",
		},
		{
			name:       "valid values are stored",
			properties: map[string]string{"DB_USER": "backup", "EXTRA": "x"},
			wantSaved:  true,
			wantUser:   "backup",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, utils.TimeNowUTC, executor.NewFake(0, ""))
			fx := seed(t, env.repo, recurrence.Disabled)
			ctx, collector := withCollector()

			saved, err := env.svc.RunTemplateService.SetEnvironment(ctx, fx.rt.ID, tt.properties)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSaved, saved)

			configs, err := env.repo.RunTemplateRepo.GetConfigs(ctx, fx.rt.ID)
			require.NoError(t, err)
			stored := map[string]model.RunTemplateConfig{}
			for _, c := range configs {
				stored[c.Name] = c
			}
			assert.Equal(t, tt.wantUser, stored["DB_USER"].Value)

			if tt.wantSaved {
				require.Contains(t, stored, "EXTRA")
				assert.Equal(t, "string", stored["EXTRA"].ConfigType)
				assert.Len(t, collector.Filter(status.Success), 1)
			} else {
				assert.NotContains(t, stored, "EXTRA")
				assert.NotEmpty(t, collector.Filter(status.Warning))
			}
		})
	}
}

func TestRunTemplateService_SetEnvironmentUnknownTemplate(t *testing.T) {
	env := newTestEnv(t, utils.TimeNowUTC, executor.NewFake(0, ""))
	_, err := env.svc.RunTemplateService.SetEnvironment(context.Background(), 999, map[string]string{"A": "b"})
	assert.ErrorIs(t, err, ErrRunTemplateNotFound)
}

func TestRunTemplateService_SetState(t *testing.T) {
	env := newTestEnv(t, utils.FixedClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)), executor.NewFake(0, ""))
	fx := seed(t, env.repo, recurrence.Custom, func(_ *model.Application, rt *model.RunTemplate) {
		rt.Cron = "*/5 * * * *"
	})
	ctx := context.Background()

	ok, err := env.svc.RunTemplateService.SetState(ctx, fx.rt.ID, false)
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := env.repo.RunTemplateRepo.FindByID(ctx, fx.rt.ID)
	require.NoError(t, err)
	assert.Equal(t, recurrence.Disabled, stored.Interv)
	assert.Equal(t, "*/5 * * * *", stored.Cron)

	prefix := fmt.Sprintf("job-[ACME-BKP-%d", fx.rt.ID)
	sent := env.zabbix.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, prefix+"-interval]", sent[0].Key)
	assert.Equal(t, "n", sent[0].Value)
	assert.Equal(t, prefix+"-interval_seconds]", sent[1].Key)
	assert.Equal(t, "0", sent[1].Value)
	assert.Equal(t, "jobrunner", sent[0].Host)

	ok, err = env.svc.RunTemplateService.SetState(ctx, fx.rt.ID, true)
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err = env.repo.RunTemplateRepo.FindByID(ctx, fx.rt.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Cron)
	assert.Len(t, env.zabbix.Sent(), 4)
}

func TestRunTemplateService_EnvFile(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 15, 0, time.UTC)
	env := newTestEnv(t, utils.FixedClock(now), executor.NewFake(0, ""))
	fx := seed(t, env.repo, recurrence.Daily)

	content, err := env.svc.RunTemplateService.EnvFile(context.Background(), fx.rt.ID)
	require.NoError(t, err)

	want := fmt.Sprintf("# runtemplate #%d environment nightly\n", fx.rt.ID) +
		"# Generated 2024-05-01 12:30:15 for company: Acme\n" +
		"\n" +
		"DB_HOST='localhost'\n" +
		"DB_USER='admin'\n"
	assert.Equal(t, want, content)
}

func TestRunTemplateService_PerformInitAndProvision(t *testing.T) {
	env := newTestEnv(t, utils.TimeNowUTC, executor.NewFake(0, ""))
	fx := seed(t, env.repo, recurrence.Disabled, func(app *model.Application, _ *model.RunTemplate) {
		app.Setup = "backup --init"
	})
	ctx := context.Background()

	require.NoError(t, env.svc.RunTemplateService.PerformInit(ctx, fx.rt.ID))
	stored, err := env.repo.RunTemplateRepo.FindByID(ctx, fx.rt.ID)
	require.NoError(t, err)
	assert.False(t, stored.Prepared)

	require.NoError(t, env.svc.RunTemplateService.SetProvision(ctx, fx.rt.ID, true))
	stored, err = env.repo.RunTemplateRepo.FindByID(ctx, fx.rt.ID)
	require.NoError(t, err)
	assert.True(t, stored.Prepared)
}

func TestRunTemplateService_DeleteCascades(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t, utils.FixedClock(now), executor.NewFake(0, ""))
	fx := seed(t, env.repo, recurrence.Disabled)
	bindCommonCredential(t, env, fx, map[string]string{"TOKEN": "x"})
	ctx := context.Background()

	require.NoError(t, env.repo.RunTemplateRepo.SaveActionConfig(ctx, &model.ActionConfig{
		RunTemplateID: fx.rt.ID, Module: "WebHook", Mode: model.ActionModeSuccess, Options: datatypes.JSONMap{"uri": "http://example.test"},
	}))
	job, err := env.svc.JobService.Prepare(ctx, PrepareRequest{RunTemplateID: fx.rt.ID})
	require.NoError(t, err)

	require.NoError(t, env.svc.RunTemplateService.Delete(ctx, fx.rt.ID))

	stored, err := env.repo.RunTemplateRepo.FindByID(ctx, fx.rt.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	configs, err := env.repo.RunTemplateRepo.GetConfigs(ctx, fx.rt.ID)
	require.NoError(t, err)
	assert.Empty(t, configs)

	bindings, err := env.repo.RunTemplateRepo.GetCredentialBindings(ctx, fx.rt.ID)
	require.NoError(t, err)
	assert.Empty(t, bindings)

	actionCfg, err := env.repo.RunTemplateRepo.GetActionConfig(ctx, fx.rt.ID, "WebHook", model.ActionModeSuccess)
	require.NoError(t, err)
	assert.Nil(t, actionCfg)

	count, err := env.repo.ScheduleRepo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	kept, err := env.repo.JobRepo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept, "job history survives")

	assert.ErrorIs(t, env.svc.RunTemplateService.Delete(ctx, fx.rt.ID), ErrRunTemplateNotFound)
}

func TestRunTemplateService_SetPeriods(t *testing.T) {
	env := newTestEnv(t, utils.TimeNowUTC, executor.NewFake(0, ""))
	fx := seed(t, env.repo, recurrence.Disabled)
	ctx := context.Background()

	updated, err := env.svc.RunTemplateService.SetPeriods(ctx, []uint{fx.rt.ID}, recurrence.Daily)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	stored, err := env.repo.RunTemplateRepo.FindByID(ctx, fx.rt.ID)
	require.NoError(t, err)
	assert.Equal(t, recurrence.Daily, stored.Interv)

	_, err = env.svc.RunTemplateService.SetPeriods(ctx, []uint{fx.rt.ID}, "x")
	assert.Error(t, err)
}

func TestRunTemplateService_AttachApplication(t *testing.T) {
	env := newTestEnv(t, utils.TimeNowUTC, executor.NewFake(0, ""))
	fx := seed(t, env.repo, recurrence.Disabled)
	ctx := context.Background()

	other := &model.Company{Name: "Globex", Code: "GLX"}
	require.NoError(t, env.repo.ApplicationRepo.CreateCompany(ctx, other))

	created, err := env.svc.RunTemplateService.AttachApplication(ctx, other.ID, fx.app.ID)
	require.NoError(t, err)
	assert.NotEqual(t, fx.rt.ID, created.ID)
	assert.Equal(t, recurrence.Disabled, created.Interv)
	assert.True(t, created.Prepared)

	again, err := env.svc.RunTemplateService.AttachApplication(ctx, other.ID, fx.app.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	existing, err := env.svc.RunTemplateService.AttachApplication(ctx, fx.company.ID, fx.app.ID)
	require.NoError(t, err)
	assert.Equal(t, fx.rt.ID, existing.ID)

	_, err = env.svc.RunTemplateService.AttachApplication(ctx, other.ID, 999)
	assert.ErrorIs(t, err, ErrApplicationNotFound)
}
