package postgres

import (
	"log"

	"github.com/LavaJover/shvark-rebate-service/internal/config"
	"github.com/LavaJover/shvark-rebate-service/internal/infrastructure/postgres/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func MustInitDB(cfg *config.RebateConfig) *gorm.DB {
	dsn := cfg.Database.Dsn
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to init db: %v\n", err.Error())
	}

	return db
}

// AutoMigrate creates the schema from the gorm models. Used when no SQL
// migrations directory is configured and by repository tests.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.CustomerModel{},
		&models.UIDBindingModel{},
		&models.RebateLedgerModel{},
		&models.UnmatchedCommissionModel{},
	)
}
