package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"grocery_deals/internal/api"
	"grocery_deals/internal/config"
	"grocery_deals/internal/logging"
	"grocery_deals/internal/repository"
)

// initDealSource picks the history database when one is configured and the
// latest CSV snapshot otherwise.
func initDealSource(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (api.DealSource, func()) {
	if cfg.Database.Driver == "" {
		logger.WithField("dir", cfg.Output.DataDir).Info("Serving deals from CSV snapshots")
		return api.FromSnapshots(cfg.Output.DataDir), func() {}
	}

	dsn, err := cfg.DatabaseDSN()
	if err != nil {
		logger.Fatalf("Fatal Error: invalid database configuration: %v", err)
	}
	repo, err := repository.OpenDealRepository(cfg.Database.Driver, dsn)
	if err != nil {
		logger.Fatalf("Fatal Error: Could not connect to the database: %v", err)
	}
	if err := repo.Init(ctx); err != nil {
		logger.Fatalf("Fatal Error: Database migration failed: %v", err)
	}
	count, err := repo.CountDeals(ctx)
	if err != nil {
		logger.Fatalf("Error counting deals: %v", err)
	}
	logger.WithFields(logrus.Fields{"driver": cfg.Database.Driver, "deals": count}).Info("Serving deals from database")
	return api.FromRepository(repo), func() { _ = repo.Close() }
}

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to the YAML config file (default ./config.yaml)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	logger := logging.New(os.Getenv(logging.LevelEnv), *verbose)
	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// The catalog follows config file edits without a restart.
	catalog := &api.Catalog{}
	cfg, err := config.Watch(*configPath, logger, func(next *config.Config) {
		catalog.Update(next)
	})
	if err != nil {
		logger.Fatalf("Fatal Error: could not load configuration: %v", err)
	}
	catalog.Update(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deals, closeSource := initDealSource(ctx, cfg, logger)
	defer closeSource()

	router := api.SetupRouter(api.NewHandler(deals, catalog, logger), logger)
	srv := &http.Server{
		Addr:              ":" + cfg.API.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on http://localhost:%s", cfg.API.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Server shutdown incomplete")
	}
	logger.Info("Server stopped")
}
