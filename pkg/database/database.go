package database

import (
	"fmt"
	"golang-jobrunner/config"
	"golang-jobrunner/pkg/common"
	"golang-jobrunner/pkg/logger"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB is a wrapper around the gorm.DB client that remembers its dialect.
type DB struct {
	*gorm.DB
	log    *logger.Logger
	driver string
}

// NewDB creates a new GORM database connection for the configured driver.
func NewDB(cfg config.Database, log *logger.Logger) (*DB, error) {
	var gormLogLevel gormlogger.LogLevel
	switch cfg.LogLevel {
	case "Silent":
		gormLogLevel = gormlogger.Silent
	case "Error":
		gormLogLevel = gormlogger.Error
	case "Warn":
		gormLogLevel = gormlogger.Warn
	case "Info":
		gormLogLevel = gormlogger.Info
	default:
		gormLogLevel = gormlogger.Warn
	}

	gormConfig := &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormLogLevel),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database using GORM: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err)
	}

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.Driver == common.DB_DRIVER_SQLITE {
		// single writer
		sqlDB.SetMaxOpenConns(1)
	}
	if cfg.ConnMaxLifetime != "" {
		duration, err := time.ParseDuration(cfg.ConnMaxLifetime)
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("invalid connection max lifetime format '%s': %w", cfg.ConnMaxLifetime, err)
		}
		sqlDB.SetConnMaxLifetime(duration)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Driver, err)
	}

	return &DB{DB: db, log: log, driver: normalizeDriver(cfg.Driver)}, nil
}

// Dialector picks the gorm dialector for the configured driver.
func Dialector(cfg config.Database) (gorm.Dialector, error) {
	switch normalizeDriver(cfg.Driver) {
	case common.DB_DRIVER_POSTGRES:
		return postgres.Open(PostgresDSN(cfg)), nil
	case common.DB_DRIVER_SQLITE:
		return sqlite.Open(SQLiteDSN(cfg.Path)), nil
	case common.DB_DRIVER_MYSQL:
		return mysql.Open(MySQLDSN(cfg)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func PostgresDSN(cfg config.Database) string {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.DBName, cfg.Port, cfg.SSLMode)
	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}
	return dsn
}

// PostgresURL is the URL form golang-migrate expects.
func PostgresURL(cfg config.Database) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.SSLMode)
}

// MySQLDSN is only used for event source adapters; the scheduler itself
// never runs on MySQL.
func MySQLDSN(cfg config.Database) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
}

func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
}

func normalizeDriver(driver string) string {
	switch driver {
	case "", "postgres", "postgresql", "pgx":
		return common.DB_DRIVER_POSTGRES
	case "sqlite", "sqlite3":
		return common.DB_DRIVER_SQLITE
	case "mysql", "mariadb":
		return common.DB_DRIVER_MYSQL
	}
	return driver
}

// Driver returns the normalized driver name.
func (d *DB) Driver() string {
	return d.driver
}

// Wrap adapts an already opened gorm connection, used by tests.
func Wrap(db *gorm.DB, driver string, log *logger.Logger) *DB {
	return &DB{DB: db, log: log, driver: normalizeDriver(driver)}
}

// AutoMigrate creates or updates the schema for models. It bootstraps SQLite
// databases; PostgreSQL is migrated with the versioned SQL files.
func (d *DB) AutoMigrate(models ...interface{}) error {
	if err := d.DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to auto-migrate %s schema: %w", d.driver, err)
	}
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.DB != nil {
		sqlDB, err := d.DB.DB()
		d.log.Info("Closing database connection")
		if err != nil {
			return fmt.Errorf("failed to get underlying sql.DB from GORM for closing: %w", err)
		}
		return sqlDB.Close()
	}
	return nil
}
