package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/mapty/internal/config"
	"github.com/claude/mapty/internal/importer"
	"github.com/claude/mapty/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (empty for defaults)")
	exportPath := flag.String("path", "", "export file or directory of exports (required)")
	dryRun := flag.Bool("dry-run", false, "report counts without writing to storage")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *exportPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: mapty-import -config config.yaml -path /path/to/export.json [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode: nothing will be written to storage")
	}

	backend, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.SQLitePath, cfg.Database.DSN())
	if err != nil {
		log.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer backend.Close()
	log.Info("storage opened", "driver", cfg.Storage.Driver)

	imp := importer.New(storage.NewWorkouts(backend, cfg.Storage.Key), log, *dryRun)
	stats, err := imp.Import(ctx, *exportPath)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"workouts_read", stats.WorkoutsRead,
		"workouts_inserted", stats.WorkoutsInserted,
		"workouts_duplicated", stats.WorkoutsDuplicated,
		"workouts_rejected", stats.WorkoutsRejected,
	)
}
