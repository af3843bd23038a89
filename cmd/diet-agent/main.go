package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"diet-agent/internal/analyzer"
	"diet-agent/internal/config"
	"diet-agent/internal/logger"
	"diet-agent/internal/retention"
	"diet-agent/internal/server"
	"diet-agent/internal/storage"
)

var (
	configDir = flag.String("config-dir", "", "Directory holding config.yml (defaults to the working directory)")
	version   = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("diet-agent version 1.0.0")
		os.Exit(0)
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logg, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logg.Sync()

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		logg.Fatal("open database", "path", cfg.Database.Path, "error", err)
	}
	defer store.Close()

	vision := analyzer.New(cfg.Analyzer.GatewayURL, cfg.Analyzer.APIKey, cfg.Analyzer.Model)
	srv := server.New(cfg, logg, store, vision)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Retention.Enabled {
		go runRetentionLoop(ctx, cfg, logg, store)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		logg.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		logg.Error("server error", "error", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logg.Error("shutdown error", "error", err)
	}
}

// runRetentionLoop purges expired meal history once at startup and then on
// every tick until the context is cancelled.
func runRetentionLoop(ctx context.Context, cfg *config.Config, logg *logger.Logger, store *storage.Store) {
	mgr := retention.New(store, logg, cfg.Retention.ExportDir)

	purge := func() {
		if _, err := mgr.Purge(time.Now().UTC(), cfg.Retention.Months); err != nil {
			logg.Error("retention purge failed", "error", err)
		}
	}
	purge()

	ticker := time.NewTicker(cfg.Retention.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purge()
		}
	}
}
