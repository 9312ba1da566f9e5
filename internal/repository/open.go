package repository

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDealRepository connects to the history database for driver. The caller
// runs Init before use.
func OpenDealRepository(driver, dsn string) (DealRepository, error) {
	switch driver {
	case "sqlite":
		return OpenSQLiteDealRepository(dsn)
	case "postgres":
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			PrepareStmt: true,
			Logger:      logger.Default.LogMode(logger.Warn),
		})
		if err != nil {
			return nil, fmt.Errorf("error connecting to database: %w", err)
		}
		return NewPostgresDealRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
