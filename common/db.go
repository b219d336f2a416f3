package common

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"quiettime/logging"
)

// gormWriter sends gorm's log lines to the application logger.
type gormWriter struct {
	logger logging.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.logger.Warn(context.Background(), strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// gormConfig logs slow queries and errors only. A missing row is a normal
// answer for the date lookups and is not logged.
func gormConfig(logger logging.Logger) *gorm.Config {
	return &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger: gormlogger.New(gormWriter{logger: logger.With("component", "gorm")}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
	}
}

func ConnectDb(dbFile string, logger logging.Logger) (*gorm.DB, error) {
	if dbFile == "" {
		return nil, fmt.Errorf("sqlite db path not set")
	}

	db, err := gorm.Open(sqlite.Open(dbFile), gormConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db %s: %w", dbFile, err)
	}
	logger.Info(context.Background(), "opened sqlite db", "path", dbFile)
	return db, nil
}

// ConnectAnalyticsDb opens the separate analytics database. An empty
// path disables analytics and returns nil.
func ConnectAnalyticsDb(dbFile string, logger logging.Logger) *gorm.DB {
	ctx := context.Background()
	if dbFile == "" {
		logger.Info(ctx, "analytics db not set, analytics will be disabled")
		return nil
	}

	db, err := gorm.Open(sqlite.Open(dbFile), gormConfig(logger))
	if err != nil {
		logger.Error(ctx, "opening analytics sqlite db failed", "path", dbFile, "err", err)
		return nil
	}

	logger.Info(ctx, "opened analytics sqlite db", "path", dbFile)
	return db
}
