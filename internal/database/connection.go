package database

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

func Connect(dsn string) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	// The database container can take a few seconds to accept connections.
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Warn),
			TranslateError: true,
		})
		if err == nil {
			slog.Info("connected to database")
			return db, nil
		}

		slog.Warn("database connection attempt failed", "attempt", i+1, "error", err)
		time.Sleep(connectBackoff)
	}

	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", connectAttempts, err)
}
