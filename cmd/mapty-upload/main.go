package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/claude/mapty/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "Mapty server URL (e.g. https://mapty.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("MAPTY_API_KEY"), "API key for the import endpoint")
	exportPath := flag.String("path", "", "export file or directory of exports")
	stateDir := flag.String("state-dir", "", "directory for upload state (default ~/.mapty-upload)")
	dryRun := flag.Bool("dry-run", false, "parse exports but don't send to server")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("mapty-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *exportPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: mapty-upload -server <URL> -path <export file or dir> [-api-key KEY] [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *serverURL == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server is required (or use -dry-run)\n")
		os.Exit(1)
	}

	dir := *stateDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Error("cannot determine home directory", "error", err)
			os.Exit(1)
		}
		dir = filepath.Join(home, ".mapty-upload")
	}

	var state *upload.StateDB
	if !*dryRun {
		var err error
		state, err = upload.OpenStateDB(dir)
		if err != nil {
			log.Error("failed to open state db", "error", err)
			os.Exit(1)
		}
		defer state.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	u := upload.New(upload.NewClient(*serverURL, *apiKey), state, *dryRun, log)
	stats, err := u.Run(ctx, *exportPath)
	printStats(log, stats)
	if err != nil {
		log.Error("upload failed", "error", err)
		os.Exit(1)
	}
	if stats.FilesErrored > 0 {
		os.Exit(1)
	}
}

func printStats(log *slog.Logger, stats *upload.Stats) {
	log.Info("upload stats",
		"files_total", stats.FilesTotal,
		"files_uploaded", stats.FilesUploaded,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"workouts_sent", stats.WorkoutsSent,
		"workouts_inserted", stats.WorkoutsInserted,
		"workouts_duplicated", stats.WorkoutsDuplicated,
		"workouts_rejected", stats.WorkoutsRejected,
	)
}
