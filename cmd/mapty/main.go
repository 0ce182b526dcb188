package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"tailscale.com/tsnet"

	mapty "github.com/claude/mapty"
	"github.com/claude/mapty/internal/config"
	"github.com/claude/mapty/internal/screen"
	"github.com/claude/mapty/internal/server"
	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/store"
	"github.com/claude/mapty/internal/tracker"
	"github.com/claude/mapty/internal/view"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (empty for defaults)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: reading .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		os.Exit(1)
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	log.Info("Mapty starting", "version", Version, "storage", cfg.Storage.Driver)

	ctx := context.Background()
	backend, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.SQLitePath, cfg.Database.DSN())
	if err != nil {
		log.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer backend.Close()
	log.Info("storage opened", "driver", cfg.Storage.Driver, "key", cfg.Storage.Key)

	st := store.New()
	scr := screen.New()
	ctrl := tracker.New(st, storage.NewWorkouts(backend, cfg.Storage.Key), view.NewSynchronizer(scr, scr, st), scr, scr, tracker.Options{
		DefaultZoom: cfg.Map.DefaultZoom,
		FocusZoom:   cfg.Map.FocusZoom,
		Tiles:       view.TileLayer{URL: cfg.Map.TileURL, Attribution: cfg.Map.Attribution},
		Logger:      log,
	})
	if err := ctrl.Start(ctx); err != nil {
		log.Error("failed to render workouts", "error", err)
		os.Exit(1)
	}

	srv := server.New(ctrl, scr, st, cfg.Auth.APIKey, log)

	web, err := fs.Sub(mapty.WebFS, "web")
	if err != nil {
		log.Error("failed to load embedded frontend", "error", err)
		os.Exit(1)
	}
	srv.SetFrontend(web)

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
