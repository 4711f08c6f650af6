package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log       Logger         `mapstructure:"logger"`
	DB        Database       `mapstructure:"database"`
	API       API            `mapstructure:"api"`
	Scheduler Scheduler      `mapstructure:"scheduler"`
	Executor  Executor       `mapstructure:"executor"`
	Cache     Cache          `mapstructure:"cache"`
	HTTP      HTTPClient     `mapstructure:"http"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
	Zabbix    Zabbix         `mapstructure:"zabbix"`
	Events    Events         `mapstructure:"events"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	// Driver is either "postgres" or "sqlite".
	Driver          string `mapstructure:"driver"`
	Path            string `mapstructure:"path"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type Scheduler struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	PollCron        string        `mapstructure:"poll_cron"`
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	TimeoutDuration time.Duration `mapstructure:"timeout_duration"`
	AtomicClaim     bool          `mapstructure:"atomic_claim"`
	DefaultExecutor string        `mapstructure:"default_executor"`
}

type API struct {
	Port int `mapstructure:"port"`

	// RateLimit is requests per second per client IP; 0 disables it.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

type Executor struct {
	LogDir     string     `mapstructure:"log_dir"`
	// FileDir receives the stored files of a job while it runs.
	FileDir    string     `mapstructure:"file_dir"`
	Native     Native     `mapstructure:"native"`
	Docker     Docker     `mapstructure:"docker"`
	Kubernetes Kubernetes `mapstructure:"kubernetes"`
	CloudRun   CloudRun   `mapstructure:"cloudrun"`
}

type Native struct {
	Shell   string        `mapstructure:"shell"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Docker struct {
	Host         string        `mapstructure:"host"`
	DefaultImage string        `mapstructure:"default_image"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type Kubernetes struct {
	Namespace          string        `mapstructure:"namespace"`
	ServiceAccount     string        `mapstructure:"service_account"`
	Kubeconfig         string        `mapstructure:"kubeconfig"`
	DefaultCPULimit    string        `mapstructure:"default_cpu_limit"`
	DefaultMemoryLimit string        `mapstructure:"default_memory_limit"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

type CloudRun struct {
	ProjectID string        `mapstructure:"project_id"`
	Region    string        `mapstructure:"region"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
	CredentialTTL     time.Duration `mapstructure:"credential_ttl"`
}

type HTTPClient struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetries       uint64        `mapstructure:"max_retries"`
	RequestPerSecond float64       `mapstructure:"request_per_second"`
	Burst            int           `mapstructure:"burst"`
}

type TelegramConfig struct {
	BotToken                  string        `mapstructure:"bot_token"`
	ChatID                    int64         `mapstructure:"chat_id"`
	TimeoutDuration           time.Duration `mapstructure:"timeout_duration"`
	MaxGlobalRequestPerSecond int           `mapstructure:"max_global_request_per_second"`
	AlertLevel                string        `mapstructure:"alert_level"`
}

// Events polls the changes_cache tables of the configured event sources on
// every scheduler pass.
type Events struct {
	Enabled   bool `mapstructure:"enabled"`
	BatchSize int  `mapstructure:"batch_size"`
}

type Zabbix struct {
	Server  string        `mapstructure:"server"`
	Host    string        `mapstructure:"host"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.path", "jobrunner.db")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.rate_limit", 10)
	viper.SetDefault("api.rate_burst", 30)
	viper.SetDefault("scheduler.poll_interval", time.Minute)
	viper.SetDefault("scheduler.max_concurrency", 4)
	viper.SetDefault("scheduler.timeout_duration", 6*time.Hour)
	viper.SetDefault("scheduler.atomic_claim", true)
	viper.SetDefault("scheduler.default_executor", "Native")
	viper.SetDefault("executor.native.shell", "/bin/sh")
	viper.SetDefault("executor.native.timeout", time.Hour)
	viper.SetDefault("executor.docker.timeout", time.Hour)
	viper.SetDefault("executor.kubernetes.namespace", "default")
	viper.SetDefault("executor.kubernetes.default_cpu_limit", "500m")
	viper.SetDefault("executor.kubernetes.default_memory_limit", "256Mi")
	viper.SetDefault("executor.kubernetes.timeout", time.Hour)
	viper.SetDefault("executor.cloudrun.timeout", time.Hour)
	viper.SetDefault("cache.default_expiration", 5*time.Minute)
	viper.SetDefault("cache.cleanup_interval", 10*time.Minute)
	viper.SetDefault("cache.credential_ttl", 5*time.Minute)
	viper.SetDefault("http.timeout", 30*time.Second)
	viper.SetDefault("http.max_retries", 3)
	viper.SetDefault("http.request_per_second", 5)
	viper.SetDefault("http.burst", 10)
	viper.SetDefault("telegram.timeout_duration", 10*time.Second)
	viper.SetDefault("telegram.max_global_request_per_second", 20)
	viper.SetDefault("telegram.alert_level", "error")
	viper.SetDefault("zabbix.timeout", 5*time.Second)
	viper.SetDefault("events.enabled", true)
	viper.SetDefault("events.batch_size", 100)
	viper.SetDefault("executor.file_dir", filepath.Join(os.TempDir(), "jobrunner-files"))
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file loaded:", err)
	}

	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Scheduler.MaxConcurrency <= 0 {
		cfg.Scheduler.MaxConcurrency = 1
	}
	if cfg.Events.BatchSize <= 0 {
		cfg.Events.BatchSize = 100
	}

	return &cfg, nil
}
