package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/campus/backend/internal/infrastructure/config"
	applogger "github.com/campus/backend/internal/infrastructure/logger"
	"github.com/campus/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the database connection
type Database struct {
	DB *gorm.DB
}

type dbOptions struct {
	logger        *zap.Logger
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
	tracing       telemetry.DBTracingConfig
}

// Option configures NewDatabase and Open
type Option func(*dbOptions)

// WithLogger routes GORM logs through zap at the given level
func WithLogger(l *zap.Logger, level gormlogger.LogLevel, slowThreshold time.Duration) Option {
	return func(o *dbOptions) {
		o.logger = l
		o.logLevel = level
		o.slowThreshold = slowThreshold
	}
}

// WithTracing registers otelgorm on the connection
func WithTracing(cfg telemetry.DBTracingConfig) Option {
	return func(o *dbOptions) {
		o.tracing = cfg
	}
}

// NewDatabase opens the PostgreSQL connection pool described by cfg and pings it
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	d, err := Open(postgres.Open(cfg.DSN()), opts...)
	if err != nil {
		return nil, err
	}

	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return d, nil
}

// Open wraps any GORM dialector with the ledger's logger and tracing setup.
// Tests use it with the sqlite driver.
func Open(dialector gorm.Dialector, opts ...Option) (*Database, error) {
	o := dbOptions{logLevel: gormlogger.Silent}
	for _, opt := range opts {
		opt(&o)
	}

	gcfg := &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:                func() time.Time { return time.Now().UTC() },
	}
	if o.logger != nil {
		gcfg.Logger = applogger.NewGormLogger(o.logger, o.logLevel, applogger.WithSlowThreshold(o.slowThreshold))
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if o.tracing.Enabled {
		l := o.logger
		if l == nil {
			l = zap.NewNop()
		}
		if err := telemetry.RegisterDBTracing(db, o.tracing, l); err != nil {
			return nil, fmt.Errorf("failed to register database tracing: %w", err)
		}
	}
	return &Database{DB: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
