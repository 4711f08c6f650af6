package cmd

import (
	"context"
	"golang-jobrunner/config"
	"golang-jobrunner/internal/action"
	"golang-jobrunner/internal/credtype"
	"golang-jobrunner/internal/executor"
	"golang-jobrunner/internal/model"
	"golang-jobrunner/internal/repository"
	"golang-jobrunner/internal/service"
	"golang-jobrunner/pkg/cache"
	"golang-jobrunner/pkg/common"
	"golang-jobrunner/pkg/database"
	"golang-jobrunner/pkg/httpclient"
	"golang-jobrunner/pkg/logger"
	"golang-jobrunner/pkg/metrics"
	"golang-jobrunner/pkg/ratelimit"
	"golang-jobrunner/pkg/telegram"
	"golang-jobrunner/pkg/zabbix"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type AppDependency struct {
	db        *database.DB
	cfg       *config.Config
	log       *logger.Logger
	validator *goValidator.Validate
	echo      *echo.Echo
	cache     cache.Cache
	telegram  *telegram.Notifier
	zabbix    zabbix.Sender
	metrics   *metrics.Metrics
	http      httpclient.HTTPClient
	executors *executor.Registry
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	notifier, err := telegram.NewNotifier(&cfg.Telegram, log, "")
	if err != nil {
		log.Error("Failed to create telegram notifier", zap.Error(err))
		return nil, err
	}
	if notifier.Enabled() {
		log = log.WithAlerter(notifier, cfg.Telegram.AlertLevel)
	}

	db, err := database.NewDB(cfg.DB, log)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return nil, err
	}
	if db.Driver() == common.DB_DRIVER_SQLITE {
		if err := db.AutoMigrate(model.All()...); err != nil {
			log.Error("Failed to bootstrap sqlite schema", zap.Error(err))
			_ = db.Close()
			return nil, err
		}
	}

	var zbx zabbix.Sender
	if cfg.Zabbix.Server != "" {
		zbx = zabbix.NewSender(cfg.Zabbix.Server, cfg.Zabbix.Host, cfg.Zabbix.Timeout)
	}

	limiter := ratelimit.NewLimiterStore(rate.Limit(cfg.HTTP.RequestPerSecond), cfg.HTTP.Burst)

	return &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: goValidator.New(),
		db:        db,
		echo:      echo.New(),
		cache:     cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval),
		telegram:  notifier,
		zabbix:    zbx,
		metrics:   metrics.New(),
		http:      httpclient.New("", cfg.HTTP.Timeout, "", httpclient.WithLimiter(limiter)),
		executors: newExecutorRegistry(cfg, log),
	}, nil
}

// newExecutorRegistry registers Native and Fake unconditionally and the
// container executors whose clients can be built from the configuration.
func newExecutorRegistry(cfg *config.Config, log *logger.Logger) *executor.Registry {
	registry := executor.NewRegistry()
	logDir := cfg.Executor.LogDir

	registry.Register(executor.NativeName, func() executor.Executor {
		return executor.NewNative(cfg.Executor.Native, logDir)
	})
	registry.Register(executor.FakeName, func() executor.Executor {
		return executor.NewFake(0, "")
	})

	if dockerClient, err := executor.NewDockerClient(cfg.Executor.Docker); err != nil {
		log.Warn("Docker executor disabled", zap.Error(err))
	} else {
		registry.Register(executor.DockerName, func() executor.Executor {
			return executor.NewDocker(dockerClient, cfg.Executor.Docker, logDir)
		})
	}

	if clientset, err := executor.NewKubernetesClientset(cfg.Executor.Kubernetes); err != nil {
		log.Debug("Kubernetes executor disabled", zap.Error(err))
	} else if k8s, err := executor.NewKubernetes(clientset, cfg.Executor.Kubernetes, cfg.Executor.Docker.DefaultImage, logDir); err != nil {
		log.Warn("Kubernetes executor disabled", zap.Error(err))
	} else {
		registry.Register(executor.KubernetesName, func() executor.Executor {
			return k8s.Fresh()
		})
	}

	if cfg.Executor.CloudRun.ProjectID != "" {
		registry.Register(executor.CloudRunName, func() executor.Executor {
			return executor.NewCloudRun(cfg.Executor.CloudRun, cfg.Executor.Docker.DefaultImage, logDir)
		})
	}

	log.Info("Executors registered", zap.Strings("executors", registry.Names()))
	return registry
}

// Services builds the repository and service layers on top of the
// dependencies.
func (d *AppDependency) Services() *service.Service {
	repo := repository.NewRepository(d.db)

	registries := service.Registries{
		Executors:   d.executors,
		Credentials: credtype.NewDefaultRegistry(),
		Actions:     action.NewDefaultRegistry(),
	}
	actionDeps := &action.Deps{
		Log:        d.log,
		HTTP:       d.http,
		MaxRetries: d.cfg.HTTP.MaxRetries,
		Zabbix:     d.zabbix,
		Notifier:   d.telegram,
		Executors:  d.executors,
	}

	return service.NewService(
		d.cfg,
		d.log,
		repo,
		d.cache,
		registries,
		actionDeps,
		d.zabbix,
		d.metrics,
		nil,
	)
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
