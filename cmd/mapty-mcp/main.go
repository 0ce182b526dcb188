package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/mapty/internal/config"
	maptymcp "github.com/claude/mapty/internal/mcp"
	"github.com/claude/mapty/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (empty for defaults)")
	remote := flag.String("remote", "", "read workouts from a running Mapty server instead of local storage")
	apiKey := flag.String("api-key", os.Getenv("MAPTY_API_KEY"), "API key for -remote")
	flag.Parse()

	// stdout carries the protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var ds maptymcp.DataSource
	if *remote != "" {
		ds = maptymcp.NewHTTPClient(*remote, *apiKey)
		log.Info("using remote data source", "server", *remote)
	} else {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Error("reading .env", "error", err)
			os.Exit(1)
		}
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		backend, err := storage.Open(context.Background(), cfg.Storage.Driver, cfg.Storage.SQLitePath, cfg.Database.DSN())
		if err != nil {
			log.Error("failed to open storage", "error", err)
			os.Exit(1)
		}
		defer backend.Close()
		ds = storage.NewWorkouts(backend, cfg.Storage.Key)
		log.Info("using local storage", "driver", cfg.Storage.Driver)
	}

	s := maptymcp.New(ds, Version, log)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
