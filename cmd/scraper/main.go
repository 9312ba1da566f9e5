package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"grocery_deals/internal/config"
	"grocery_deals/internal/export"
	"grocery_deals/internal/logging"
	"grocery_deals/internal/models"
	"grocery_deals/internal/parser"
	"grocery_deals/internal/report"
	"grocery_deals/internal/repository"
	"grocery_deals/internal/service"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to the YAML config file (default ./config.yaml)",
			EnvVars: []string{"APP_CONFIG"},
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable debug logging",
		},
	}

	app := &cli.App{
		Name:           "scraper",
		Usage:          "capture keyword-matching deals from grocery promo pages",
		DefaultCommand: "run",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "visit every configured page and write CSVs, history and the report",
				Flags: append(flags, &cli.IntFlag{
					Name:  "workers",
					Usage: "pages fetched at once (overrides fetch.workers)",
				}),
				Action: runAction,
			},
			{
				Name:   "check-config",
				Usage:  "load the configuration and report problems without fetching",
				Flags:  flags,
				Action: checkConfigAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) (*config.Config, *logrus.Logger, error) {
	logger := logging.New(os.Getenv(logging.LevelEnv), c.Bool("verbose"))
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, cli.Exit(fmt.Sprintf("failed to load config: %v", err), 2)
	}
	return cfg, logger, nil
}

func runAction(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	if n := c.Int("workers"); n > 0 {
		cfg.Fetch.Workers = n
	}
	if err := cfg.Validate(); errors.Is(err, models.ErrNoStores) {
		logger.Warn("No stores configured, the report will be empty")
	}

	keywords, err := parser.CompileKeywords(cfg.Keywords)
	if err != nil {
		logger.WithError(err).Warn("Some keywords are matched literally")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The run date is captured once so every record of the run agrees.
	startedAt := time.Now()
	date := startedAt.Format("2006-01-02")

	static := repository.NewHTTPPageRepository(repository.HTTPOptions{
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    cfg.Fetch.Timeout,
		Rate:       cfg.Fetch.Rate,
		Burst:      cfg.Fetch.Burst,
		MaxRetries: cfg.Fetch.MaxRetries,
	}, logger)
	var rendered repository.PageRepository
	if needsRendering(cfg.Stores) {
		rendered = repository.NewHeadlessPageRepository(logger)
	}

	dealService := service.NewDealService(static, rendered, parser.NewDealParser(), keywords, service.Options{
		Workers:      cfg.Fetch.Workers,
		FetchTimeout: cfg.Fetch.PageTimeout(),
	}, logger)

	logger.WithFields(logrus.Fields{
		"stores":   len(cfg.Stores),
		"urls":     cfg.URLCount(),
		"keywords": len(keywords),
		"workers":  cfg.Fetch.Workers,
	}).Info("Starting capture run")
	groups := dealService.Run(ctx, date, cfg.Stores)

	var all []models.Deal
	errorCount := 0
	for _, g := range groups {
		for _, d := range g.Deals {
			if d.IsError() {
				errorCount++
			}
		}
		all = append(all, g.Deals...)
	}

	// Outputs: CSV snapshot and history
	writer := export.NewWriter(cfg.Output.DataDir)
	snapshot, err := writer.WriteSnapshot(date, all)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	history, err := writer.AppendHistory(all)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	// Optional database history
	if cfg.Database.Driver != "" {
		saveHistory(ctx, cfg, all, logger)
	}

	// Markdown report
	snapshots, err := export.RecentSnapshots(cfg.Output.DataDir, report.HistoryLimit)
	if err != nil {
		logger.WithError(err).Warn("Could not list snapshots for the report")
	}
	err = report.WriteFile(cfg.Output.Path, report.Report{
		Location:  cfg.Location,
		UpdatedAt: startedAt.UTC(),
		Groups:    groups,
		History:   report.HistoryLinks(cfg.Output.Path, snapshots),
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	logger.WithFields(logrus.Fields{
		"deals":    len(all) - errorCount,
		"errors":   errorCount,
		"duration": time.Since(startedAt).Round(time.Millisecond),
	}).Info("Capture run complete")
	fmt.Printf("[ok] wrote %s, %s and %s\n", snapshot, history, cfg.Output.Path)
	return nil
}

func needsRendering(stores []models.Store) bool {
	for _, s := range stores {
		if s.Render {
			return true
		}
	}
	return false
}

// saveHistory stores the run in the history database. Failures are logged;
// the CSV files already hold the run.
func saveHistory(ctx context.Context, cfg *config.Config, deals []models.Deal, logger logrus.FieldLogger) {
	log := logger.WithField("driver", cfg.Database.Driver)
	dsn, err := cfg.DatabaseDSN()
	if err != nil {
		log.WithError(err).Error("Invalid database configuration")
		return
	}
	repo, err := repository.OpenDealRepository(cfg.Database.Driver, dsn)
	if err != nil {
		log.WithError(err).Error("Could not open history database")
		return
	}
	defer repo.Close()

	if err := repo.Init(ctx); err != nil {
		log.WithError(err).Error("Failed to prepare history database")
		return
	}
	inserted, err := repo.InsertDeals(ctx, deals)
	if err != nil {
		log.WithError(err).Error("Failed to store deals")
		return
	}
	total, err := repo.CountDeals(ctx)
	if err != nil {
		log.WithError(err).Warn("Could not count stored deals")
	}
	log.WithFields(logrus.Fields{"inserted": inserted, "total": total}).Info("History database updated")
}

func checkConfigAction(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}

	_, kwErr := parser.CompileKeywords(cfg.Keywords)

	fmt.Printf("location: %q\n", cfg.Location)
	fmt.Printf("keywords: %d\n", len(cfg.Keywords))
	fmt.Printf("stores:   %d (%d urls)\n", len(cfg.Stores), cfg.URLCount())
	for _, s := range cfg.Stores {
		mode := "static"
		if s.Render {
			mode = "rendered"
		}
		fmt.Printf("  - %s: %d urls, %s\n", s.Name, len(s.URLs), mode)
	}
	if kwErr != nil {
		fmt.Printf("warning: %v\n", kwErr)
	}
	if _, err := cfg.DatabaseDSN(); err != nil {
		fmt.Printf("warning: %v\n", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Warn("Configuration incomplete")
	}
	return nil
}
