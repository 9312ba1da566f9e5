package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"grocery_deals/internal/models"
	"grocery_deals/internal/parser"
	"grocery_deals/internal/repository"
)

// DefaultWorkers bounds concurrent page visits when no worker count is configured.
const DefaultWorkers = 4

// DealService defines the business logic contract.
type DealService interface {
	// Run visits every URL of every store and returns one group per store, in
	// the order given. It never fails: broken pages become error records.
	Run(ctx context.Context, date string, stores []models.Store) []models.StoreDeals
	// GetStoreDeals is Run for a single store.
	GetStoreDeals(ctx context.Context, date string, store models.Store) []models.Deal
}

// Options tune a DealService.
type Options struct {
	// Workers bounds how many pages are fetched and parsed at once.
	Workers int
	// FetchTimeout bounds each page fetch, retries included. It should exceed
	// the repository's per-attempt timeout or attempts after a timeout never run.
	// Zero leaves it to the repository.
	FetchTimeout time.Duration
}

// dealService is the concrete service implementation.
// It depends on the page repositories (for fetching) and the DealParser
// (for extraction and matching).
type dealService struct {
	Static   repository.PageRepository
	Rendered repository.PageRepository
	Parser   parser.DealParser
	Keywords parser.Keywords
	Opts     Options
	Logger   logrus.FieldLogger
}

// NewDealService creates a new service instance. rendered may be nil, in which
// case stores that ask for rendering are fetched statically.
func NewDealService(static, rendered repository.PageRepository, p parser.DealParser, keywords parser.Keywords, opts Options, logger logrus.FieldLogger) DealService {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &dealService{
		Static:   static,
		Rendered: rendered,
		Parser:   p,
		Keywords: keywords,
		Opts:     opts,
		Logger:   logger,
	}
}

type pageJob struct {
	store    int
	page     int
	storeDef models.Store
	url      string
}

// Run fans the pages of all stores out over a bounded worker pool. Each job
// writes only its own result slot, so the merged order depends on the
// configured URL order alone and "first occurrence wins" is reproducible.
func (s *dealService) Run(ctx context.Context, date string, stores []models.Store) []models.StoreDeals {
	results := make([][][]models.Deal, len(stores))
	var jobs []pageJob
	for i, store := range stores {
		results[i] = make([][]models.Deal, len(store.URLs))
		for j, u := range store.URLs {
			jobs = append(jobs, pageJob{store: i, page: j, storeDef: store, url: u})
		}
	}

	var g errgroup.Group
	g.SetLimit(s.Opts.Workers)
	for _, job := range jobs {
		g.Go(func() error {
			results[job.store][job.page] = s.processPage(ctx, date, job.storeDef, job.url)
			return nil
		})
	}
	// Jobs never return an error; failures are already records.
	_ = g.Wait()

	groups := make([]models.StoreDeals, len(stores))
	for i, store := range stores {
		var merged []models.Deal
		for _, deals := range results[i] {
			merged = append(merged, deals...)
		}
		groups[i] = models.StoreDeals{Store: store.Name, Deals: Dedup(merged)}
		s.Logger.WithFields(logrus.Fields{
			"store": store.Name,
			"pages": len(store.URLs),
			"deals": len(groups[i].Deals),
		}).Info("Store processed")
	}
	return groups
}

// GetStoreDeals runs the pipeline for one store.
func (s *dealService) GetStoreDeals(ctx context.Context, date string, store models.Store) []models.Deal {
	return s.Run(ctx, date, []models.Store{store})[0].Deals
}

// processPage orchestrates fetching, parsing and record building for one URL.
// Any failure is converted into a single error record.
func (s *dealService) processPage(ctx context.Context, date string, store models.Store, pageURL string) []models.Deal {
	log := s.Logger.WithFields(logrus.Fields{"store": store.Name, "url": pageURL})

	deals, err := s.visit(ctx, date, store, pageURL, log)
	if err != nil {
		log.WithError(err).Warn("Page failed, recording error")
		return []models.Deal{ErrorDeal(date, store.Name, pageURL, err)}
	}
	return deals
}

func (s *dealService) visit(ctx context.Context, date string, store models.Store, pageURL string, log logrus.FieldLogger) ([]models.Deal, error) {
	// 1. Fetch HTML content (Repository responsibility)
	htmlReader, err := s.fetch(ctx, store, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	if closer, ok := htmlReader.(io.Closer); ok {
		defer closer.Close()
	}

	// 2. Extract and match (Parser responsibility)
	result, err := s.Parser.ParsePage(ctx, htmlReader, s.Keywords)
	if err != nil {
		return nil, fmt.Errorf("failed to extract deals from %s: %w", pageURL, err)
	}

	// 3. Build canonical records
	deals := BuildDeals(date, store.Name, pageURL, result.Matches)
	log.WithFields(logrus.Fields{
		"strategy":   result.Strategy,
		"candidates": result.Candidates,
		"matches":    len(result.Matches),
	}).Debug("Page extracted")
	return deals, nil
}

func (s *dealService) fetch(ctx context.Context, store models.Store, pageURL string) (io.Reader, error) {
	repo := s.Static
	if store.Render && s.Rendered != nil {
		repo = s.Rendered
	}
	if s.Opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Opts.FetchTimeout)
		defer cancel()
	}
	return repo.Fetch(ctx, pageURL)
}
