// Command cleanup runs one pass of the inactive account policy:
// accounts idle past the threshold are deactivated and, with
// -hard-delete, removed. Intended for cron or manual operation; the
// server also runs this on an interval when cleanup.enabled is set.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	identityapp "github.com/storefront/backend/internal/application/identity"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

func main() {
	var (
		dryRun     bool
		hardDelete bool
		threshold  time.Duration
		logLevel   string
	)

	flag.BoolVar(&dryRun, "dry-run", false, "Preview affected accounts without changing anything")
	flag.BoolVar(&hardDelete, "hard-delete", false, "Delete deactivated accounts instead of keeping them")
	flag.DurationVar(&threshold, "threshold", 0, "Inactivity threshold (default: configured value, 720h)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:  logLevel,
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	cleanupCfg := identityapp.CleanupConfig{
		InactivityThreshold: cfg.Cleanup.InactivityThreshold,
		HardDelete:          cfg.Cleanup.HardDelete || hardDelete,
	}
	if threshold > 0 {
		cleanupCfg.InactivityThreshold = threshold
	}

	userRepo := persistence.NewGormUserRepository(db.DB)
	svc := identityapp.NewCleanupService(userRepo, cleanupCfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if dryRun {
		preview, err := svc.Preview(ctx)
		if err != nil {
			log.Fatal("Cleanup preview failed", zap.Error(err))
		}
		log.Info("Cleanup preview",
			zap.Time("cutoff", preview.Cutoff),
			zap.Int("candidates", preview.Count),
		)
		for _, candidate := range preview.Candidates {
			log.Info("Would deactivate account",
				zap.String("id", candidate.ID.String()),
				zap.String("email", candidate.Email),
			)
		}
		return
	}

	result, err := svc.Run(ctx)
	if err != nil {
		log.Fatal("Cleanup failed", zap.Error(err))
	}
	log.Info("Cleanup finished",
		zap.Time("cutoff", result.Cutoff),
		zap.Int("deactivated", result.Deactivated),
		zap.Int64("deleted", result.Deleted),
	)
}
