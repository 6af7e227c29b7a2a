package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Options selects and tunes the relational store. A non-empty URL picks
// PostgreSQL, otherwise SQLitePath is opened.
type Options struct {
	URL             string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SlowQuery       time.Duration
	Logger          *zerolog.Logger
}

// Open connects to the configured store and applies the pool settings.
func Open(opts Options) (*gorm.DB, error) {
	var (
		dialector gorm.Dialector
		driver    string
	)
	switch {
	case opts.URL != "":
		dialector, driver = postgres.Open(opts.URL), "postgres"
	case opts.SQLitePath != "":
		dialector, driver = sqlite.Open(opts.SQLitePath), "sqlite"
	default:
		return nil, fmt.Errorf("either a database url or a sqlite path must be set")
	}

	db, err := gorm.Open(dialector, gormConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access %s pool: %w", driver, err)
	}
	if driver == "sqlite" {
		// sqlite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return db, nil
}

func gormConfig(opts Options) *gorm.Config {
	cfg := &gorm.Config{TranslateError: true}
	if opts.Logger == nil {
		cfg.Logger = gormlogger.Discard
		return cfg
	}

	slow := opts.SlowQuery
	if slow <= 0 {
		slow = 200 * time.Millisecond
	}
	queryLogger := opts.Logger.With().Str("component", "gorm").Logger()
	cfg.Logger = gormlogger.New(&queryLogger, gormlogger.Config{
		SlowThreshold:             slow,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
	})
	return cfg
}
