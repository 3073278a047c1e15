package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muxfetch/muxfetch/internal/config"
	"github.com/muxfetch/muxfetch/internal/events"
	"github.com/muxfetch/muxfetch/internal/jobs"
	"github.com/muxfetch/muxfetch/internal/logger"
	"github.com/muxfetch/muxfetch/internal/resolver"
	"github.com/muxfetch/muxfetch/internal/server"
	"github.com/muxfetch/muxfetch/internal/system"
	"github.com/muxfetch/muxfetch/internal/transcode"
	"github.com/muxfetch/muxfetch/internal/utils"
)

func main() {
	// Configuration: env override first, then conventional locations.
	configPath := os.Getenv("MUXFETCH_CONFIG")
	if configPath == "" {
		if _, err := os.Stat("./muxfetch.yaml"); err == nil {
			configPath = "./muxfetch.yaml"
		} else if _, err := os.Stat("/etc/muxfetch/muxfetch.yaml"); err == nil {
			configPath = "/etc/muxfetch/muxfetch.yaml"
		}
	}

	if err := config.Load(configPath); err != nil {
		log.Printf("warning: failed to load configuration from %s: %v", configPath, err)
		log.Printf("using default configuration")
	}
	cfg := config.Get()

	root := logger.New("muxfetch", cfg.Logging.Level)
	logger.SetRoot(root)

	for _, dir := range []string{cfg.Storage.DownloadsDir, cfg.Storage.WorkDir} {
		if err := utils.EnsureDir(dir); err != nil {
			root.Error("failed to create storage directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewEventBus(events.EventBusConfig{
		BufferSize:      cfg.Events.BufferSize,
		MaxRecentEvents: cfg.Events.MaxRecentEvents,
	}, root)
	if err := bus.Start(ctx); err != nil {
		root.Error("failed to start event bus", "error", err)
		os.Exit(1)
	}

	if cfg.Resolver.AutoInstall {
		if err := resolver.EnsureInstalled(ctx); err != nil {
			root.Warn("resolver auto-install failed, relying on PATH", "error", err)
		}
	}
	resolverClient := resolver.NewClient(cfg.Transcoder.FFmpegPath, root)

	merger := transcode.NewRunner(cfg.Transcoder.FFmpegPath, root)
	manager := jobs.NewManager(jobs.ManagerConfig{
		WorkDir:         cfg.Storage.WorkDir,
		DownloadsDir:    cfg.Storage.DownloadsDir,
		MaxConcurrent:   cfg.Jobs.MaxConcurrent,
		ShutdownTimeout: cfg.Jobs.ShutdownTimeout,
	}, resolverClient, merger, bus, root)

	// Disk figures in the status payload describe the artifacts volume.
	monitor := system.NewMonitor(cfg.Storage.DownloadsDir, root)
	monitor.Start(ctx)

	srv := server.New(cfg, server.Dependencies{
		Manager:  manager,
		Resolver: resolverClient,
		EventBus: bus,
		Monitor:  monitor,
	})

	startup := events.NewSystemEvent(events.EventSystemStarted,
		"System Started", "muxfetch is accepting download requests")
	startup.Data = map[string]interface{}{"version": server.Version}
	if err := bus.PublishAsync(startup); err != nil {
		root.Warn("failed to publish startup event", "error", err)
	}

	// Graceful shutdown: drain HTTP first, then cancel running jobs, then
	// stop the bus so late lifecycle events still land in the buffer.
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		root.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			root.Error("HTTP server shutdown error", "error", err)
		}
		if err := manager.Shutdown(); err != nil {
			root.Error("job manager shutdown error", "error", err)
		}

		if err := bus.PublishAsync(events.NewSystemEvent(events.EventSystemStopped,
			"System Stopped", "muxfetch is shutting down")); err != nil {
			root.Warn("failed to publish shutdown event", "error", err)
		}
		if err := bus.Stop(shutdownCtx); err != nil {
			root.Error("event bus shutdown error", "error", err)
		}
		monitor.Stop()

		cancel()
	}()

	root.Info("starting muxfetch",
		"version", server.Version,
		"addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		"downloads_dir", cfg.Storage.DownloadsDir,
		"max_concurrent_jobs", cfg.Jobs.MaxConcurrent)
	if err := srv.Start(); err != nil {
		root.Error("server failed", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	root.Info("shutdown complete")
}
