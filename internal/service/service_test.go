package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang-jobrunner/config"
	"golang-jobrunner/internal/action"
	"golang-jobrunner/internal/credtype"
	"golang-jobrunner/internal/executor"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/repository"
	"golang-jobrunner/internal/status"
	"golang-jobrunner/internal/testutil"
	"golang-jobrunner/pkg/cache"
	"golang-jobrunner/pkg/database"
	"golang-jobrunner/pkg/logger"
	"golang-jobrunner/pkg/metrics"
	"golang-jobrunner/pkg/utils"
	"golang-jobrunner/pkg/zabbix"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type testEnv struct {
	db      *database.DB
	cfg     *config.Config
	repo    *repository.Repository
	svc     *Service
	fake    *executor.Fake
	zabbix  *fakeZabbix
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T, clock utils.Clock, fake *executor.Fake) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	repo := repository.NewRepository(db)
	cfg := &config.Config{
		Scheduler: config.Scheduler{
			MaxConcurrency:  2,
			AtomicClaim:     true,
			DefaultExecutor: executor.FakeName,
		},
		Cache:    config.Cache{CredentialTTL: time.Minute},
		Executor: config.Executor{FileDir: t.TempDir()},
		Events:   config.Events{BatchSize: 10},
	}

	executors := executor.NewRegistry()
	executors.Register(executor.FakeName, func() executor.Executor { return fake })
	executors.Register(executor.NativeName, func() executor.Executor {
		return executor.NewNative(config.Native{Shell: "/bin/sh", Timeout: 10 * time.Second}, "")
	})

	zbx := &fakeZabbix{host: "jobrunner"}
	m := metrics.New()
	svc := NewService(
		cfg,
		logger.NewNop(),
		repo,
		cache.NewCache(time.Minute, time.Minute),
		Registries{
			Executors:   executors,
			Credentials: credtype.NewDefaultRegistry(),
			Actions:     action.NewDefaultRegistry(),
		},
		&action.Deps{Log: logger.NewNop()},
		zbx,
		m,
		clock,
	)

	return &testEnv{db: db, cfg: cfg, repo: repo, svc: svc, fake: fake, zabbix: zbx, metrics: m}
}

type fixture struct {
	company *model.Company
	app     *model.Application
	rt      *model.RunTemplate
}

// seed stores a company, an application with two required fields and a
// run template overriding DB_USER.
func seed(t *testing.T, repo *repository.Repository, interv string, mutate ...func(app *model.Application, rt *model.RunTemplate)) fixture {
	t.Helper()
	ctx := context.Background()

	company := &model.Company{Name: "Acme", Code: "ACME"}
	require.NoError(t, repo.ApplicationRepo.CreateCompany(ctx, company))

	app := &model.Application{
		Name:       "Backup",
		Code:       "BKP",
		Executable: "backup",
		CmdParams:  "--host {DB_HOST} --user {DB_USER}",
	}
	rt := &model.RunTemplate{
		Name:     "nightly",
		Interv:   interv,
		Prepared: true,
		Success:  datatypes.NewJSONType(model.ActionMap{}),
		Fail:     datatypes.NewJSONType(model.ActionMap{}),
	}
	for _, m := range mutate {
		m(app, rt)
	}

	require.NoError(t, repo.ApplicationRepo.Create(ctx, app))
	require.NoError(t, repo.ApplicationRepo.CreateField(ctx, &model.AppConfigField{
		AppID: app.ID, Keyname: "DB_HOST", Type: "string", Name: "Database host", Defval: "localhost", Required: true,
	}))
	require.NoError(t, repo.ApplicationRepo.CreateField(ctx, &model.AppConfigField{
		AppID: app.ID, Keyname: "DB_USER", Type: "string", Name: "Database user", Required: true,
	}))

	rt.AppID = app.ID
	rt.CompanyID = company.ID
	require.NoError(t, repo.RunTemplateRepo.Create(ctx, rt))
	require.NoError(t, repo.RunTemplateRepo.UpsertConfig(ctx, &model.RunTemplateConfig{
		RunTemplateID: rt.ID, AppID: app.ID, CompanyID: company.ID, Name: "DB_USER", Value: "admin", ConfigType: "string",
	}))

	return fixture{company: company, app: app, rt: rt}
}

func withCollector() (context.Context, *status.Collector) {
	collector := status.NewCollector(logger.NewNop())
	return status.NewContext(context.Background(), collector), collector
}

type fakeZabbix struct {
	mu   sync.Mutex
	host string
	sent []zabbix.Metric
}

func (f *fakeZabbix) Send(_ context.Context, metrics ...zabbix.Metric) (*zabbix.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, metrics...)
	return &zabbix.Response{Response: "success"}, nil
}

func (f *fakeZabbix) Host() string {
	return f.host
}

func (f *fakeZabbix) Sent() []zabbix.Metric {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]zabbix.Metric, len(f.sent))
	copy(out, f.sent)
	return out
}
