package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"grocery_deals/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS deals (
	date        TEXT NOT NULL,
	store       TEXT NOT NULL,
	product     TEXT NOT NULL,
	price       TEXT NOT NULL DEFAULT '',
	unit        TEXT NOT NULL DEFAULT '',
	promo_text  TEXT NOT NULL DEFAULT '',
	valid_from  TEXT NOT NULL DEFAULT '',
	valid_to    TEXT NOT NULL DEFAULT '',
	url         TEXT NOT NULL DEFAULT '',
	id          TEXT NOT NULL,
	image_url   TEXT NOT NULL DEFAULT '',
	product_url TEXT NOT NULL DEFAULT '',
	seq         INTEGER NOT NULL,
	PRIMARY KEY (date, store, id)
);
CREATE INDEX IF NOT EXISTS idx_deals_date ON deals(date);
`

// SQLiteDealRepository keeps the deal history in a local SQLite file.
type SQLiteDealRepository struct {
	db *sql.DB
}

// OpenSQLiteDealRepository opens or creates the database at path.
// ":memory:" gives a private in-memory database.
func OpenSQLiteDealRepository(path string) (*SQLiteDealRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection, so an in-memory database is shared by every query.
	db.SetMaxOpenConns(1)
	return &SQLiteDealRepository{db: db}, nil
}

func (r *SQLiteDealRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (r *SQLiteDealRepository) InsertDeals(ctx context.Context, deals []models.Deal) (int, error) {
	if len(deals) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM deals`).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to read sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO deals
		(date, store, product, price, unit, promo_text, valid_from, valid_to, url, id, image_url, product_url, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, d := range deals {
		next++
		res, err := stmt.ExecContext(ctx, d.Date, d.Store, d.Product, d.Price, d.Unit, d.PromoText,
			d.ValidFrom, d.ValidTo, d.URL, d.ID, d.ImageURL, d.ProductURL, next)
		if err != nil {
			return 0, fmt.Errorf("failed to insert deal %s: %w", d.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}

func (r *SQLiteDealRepository) CountDeals(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deals`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count deals: %w", err)
	}
	return count, nil
}

// GetLatestDeals returns the most recent date's records in insertion order.
func (r *SQLiteDealRepository) GetLatestDeals(ctx context.Context) ([]models.Deal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT date, store, product, price, unit, promo_text,
		valid_from, valid_to, url, id, image_url, product_url
		FROM deals WHERE date = (SELECT MAX(date) FROM deals) ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve deals: %w", err)
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		var d models.Deal
		if err := rows.Scan(&d.Date, &d.Store, &d.Product, &d.Price, &d.Unit, &d.PromoText,
			&d.ValidFrom, &d.ValidTo, &d.URL, &d.ID, &d.ImageURL, &d.ProductURL); err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

func (r *SQLiteDealRepository) Close() error {
	return r.db.Close()
}
