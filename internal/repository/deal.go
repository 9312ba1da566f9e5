package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"grocery_deals/internal/models"
)

// DealRepository defines the interface for the cumulative deal history.
type DealRepository interface {
	// Init creates the storage schema if it does not exist.
	Init(ctx context.Context) error
	// InsertDeals appends records, ignoring ones already stored for the same
	// date, store and ID. It returns how many were new.
	InsertDeals(ctx context.Context, deals []models.Deal) (int, error)
	CountDeals(ctx context.Context) (int, error)
	// GetLatestDeals returns the records of the most recent capture date.
	GetLatestDeals(ctx context.Context) ([]models.Deal, error)
	Close() error
}

// dealRow is the stored form of a deal. Seq is a database-assigned serial that
// keeps the order deals were inserted in.
type dealRow struct {
	models.Deal `gorm:"embedded"`
	Seq         int64 `gorm:"autoIncrement;not null;index"`
}

func (dealRow) TableName() string { return "deals" }

// PostgresDealRepository implements DealRepository for PostgreSQL using GORM.
type PostgresDealRepository struct {
	db *gorm.DB
}

// NewPostgresDealRepository creates a new instance.
func NewPostgresDealRepository(db *gorm.DB) *PostgresDealRepository {
	return &PostgresDealRepository{
		db: db,
	}
}

// Init handles GORM's automatic table creation/migration.
func (r *PostgresDealRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&dealRow{})
}

// InsertDeals performs a bulk insert that skips rows already present.
func (r *PostgresDealRepository) InsertDeals(ctx context.Context, deals []models.Deal) (int, error) {
	if len(deals) == 0 {
		return 0, nil
	}
	rows := make([]dealRow, len(deals))
	for i, d := range deals {
		rows[i] = dealRow{Deal: d}
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "store"}, {Name: "id"}},
		DoNothing: true,
	}).CreateInBatches(&rows, 100)

	if result.Error != nil {
		return 0, fmt.Errorf("gorm bulk insert failed: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

// CountDeals returns the total number of deals in the table.
func (r *PostgresDealRepository) CountDeals(ctx context.Context) (int, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&dealRow{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("gorm count failed: %w", result.Error)
	}
	return int(count), nil
}

// GetLatestDeals returns the most recent date's records in insertion order.
func (r *PostgresDealRepository) GetLatestDeals(ctx context.Context) ([]models.Deal, error) {
	var rows []dealRow
	if err := latestDealsQuery(r.db.WithContext(ctx)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve deals: %w", err)
	}
	deals := make([]models.Deal, len(rows))
	for i, row := range rows {
		deals[i] = row.Deal
	}
	return deals, nil
}

func latestDealsQuery(db *gorm.DB) *gorm.DB {
	latest := db.Session(&gorm.Session{NewDB: true}).Model(&dealRow{}).Select("MAX(date)")
	return db.Model(&dealRow{}).Where("date = (?)", latest).Order("seq")
}

func (r *PostgresDealRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
