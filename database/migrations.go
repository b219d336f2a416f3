package database

import (
	"context"

	"quiettime/logging"
	"quiettime/models"

	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB, logger logging.Logger) error {
	ctx := context.Background()
	logger.Info(ctx, "running database migrations")

	err := db.AutoMigrate(
		&models.Entry{},
	)

	if err != nil {
		logger.Error(ctx, "running migrations failed", "err", err)
		return err
	}

	logger.Info(ctx, "migrations completed")
	return nil
}
