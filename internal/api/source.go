package api

import (
	"context"
	"sync"

	"grocery_deals/internal/config"
	"grocery_deals/internal/export"
	"grocery_deals/internal/models"
	"grocery_deals/internal/repository"
)

// DealSource provides the most recently captured deals.
type DealSource interface {
	LatestDeals(ctx context.Context) ([]models.Deal, error)
}

// repositorySource serves deals from the history database.
type repositorySource struct {
	repo repository.DealRepository
}

// FromRepository serves the latest date stored in repo.
func FromRepository(repo repository.DealRepository) DealSource {
	return &repositorySource{repo: repo}
}

func (s *repositorySource) LatestDeals(ctx context.Context) ([]models.Deal, error) {
	return s.repo.GetLatestDeals(ctx)
}

// snapshotSource serves the newest CSV snapshot in a data directory.
type snapshotSource struct {
	dir string
}

// FromSnapshots serves the newest daily snapshot below dir.
func FromSnapshots(dir string) DealSource {
	return &snapshotSource{dir: dir}
}

func (s *snapshotSource) LatestDeals(ctx context.Context) ([]models.Deal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := export.LatestSnapshot(s.dir)
	if err != nil || path == "" {
		return nil, err
	}
	return export.ReadDeals(path)
}

// Catalog holds the configured stores and keywords. It is replaced as a whole
// when the configuration reloads.
type Catalog struct {
	mu       sync.RWMutex
	stores   []models.Store
	keywords []string
}

// NewCatalog creates a catalog from cfg.
func NewCatalog(cfg *config.Config) *Catalog {
	c := &Catalog{}
	c.Update(cfg)
	return c
}

// Update swaps in the stores and keywords of cfg.
func (c *Catalog) Update(cfg *config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores = cfg.Stores
	c.keywords = cfg.Keywords
}

// Snapshot returns the current stores and keywords.
func (c *Catalog) Snapshot() ([]models.Store, []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stores, c.keywords
}
