// Package main provides the main entry point for userdeck
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/userdeck/userdeck/api"
	"github.com/userdeck/userdeck/pkg/bulkdelete"
	"github.com/userdeck/userdeck/pkg/cache"
	"github.com/userdeck/userdeck/pkg/config"
	"github.com/userdeck/userdeck/pkg/console"
	"github.com/userdeck/userdeck/pkg/events"
	"github.com/userdeck/userdeck/pkg/logger"
	"github.com/userdeck/userdeck/pkg/notify"
	"github.com/userdeck/userdeck/pkg/remote"
	"github.com/userdeck/userdeck/pkg/session"
)

// Version information (set by build process)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file")
	logLevel    = flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("userdeck %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "userdeck: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	log := logger.NewConsoleLogger(cfg.LogLevel)
	log.Info("Starting userdeck", map[string]interface{}{
		"version": Version,
		"remote":  cfg.Remote.BaseURL,
	})

	if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	store, err := remote.NewClient(&cfg.Remote, log)
	if err != nil {
		return fmt.Errorf("failed to create remote client: %w", err)
	}

	workingSet := cache.NewWorkingSet(store, cfg.Cache.RefreshInterval, log)
	notifier := notify.NewCenter(log)

	slot, err := session.NewSlot(&cfg.Session, log)
	if err != nil {
		return fmt.Errorf("failed to create session slot: %w", err)
	}
	defer slot.Close()

	publisher, err := events.NewPublisher(&cfg.Events, log)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	defer publisher.Close()

	coordinator := bulkdelete.NewCoordinator(store, workingSet, notifier, slot, publisher, cfg.BulkDelete, log)
	defer coordinator.Close()

	// A pending deletion persisted by a previous run resumes, or commits
	// immediately if its window already elapsed.
	if err := coordinator.Rehydrate(ctx); err != nil {
		log.Warn("Rehydration finished with failures", map[string]interface{}{"error": err.Error()})
	}

	workingSet.StartRefresh(ctx)
	defer workingSet.StopRefresh()

	if *configFile != "" {
		err := cfg.Watch(*configFile, func(fresh *config.Config) {
			log.Info("Configuration reloaded", map[string]interface{}{
				"undo_window": fresh.BulkDelete.UndoWindow,
			})
			coordinator.UpdateConfig(fresh.BulkDelete)
		})
		if err != nil {
			log.Warn("Config watch unavailable", map[string]interface{}{"error": err.Error()})
		}
		defer cfg.StopWatch()
	}

	cons := console.NewConsole(store, workingSet, notifier, coordinator, cfg.StateDir, log)

	server := api.NewServer(cons, cfg, log)
	return server.Start(ctx)
}
