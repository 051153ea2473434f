package db

import (
	"fmt"

	"mint-backend/internal/config"
	"mint-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB connects to the primary postgres store and migrates the schema.
// The service still starts when postgres is unreachable - the ledger falls
// back to the local store - so this returns an error instead of exiting.
func InitDB() error {
	if config.AppConfig == nil || config.AppConfig.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}

	database, err := gorm.Open(postgres.Open(config.AppConfig.Database.DSN), &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	if err := database.AutoMigrate(&models.Order{}); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}

	DB = database
	return nil
}
