package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"mcsync/internal/config"
	"mcsync/internal/lock"
	"mcsync/internal/sync"
	"mcsync/internal/util"
	"mcsync/internal/versions"
)

func runSync(ctx context.Context, configPath, identityFile string, verbose bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dataDir := util.DataDir(cfg.StoreDir)
	if err := util.SetupDirectories(cfg.StoreDir, dataDir); err != nil {
		return err
	}

	consoleLevel := slog.LevelInfo
	if verbose {
		consoleLevel = slog.LevelDebug
	}
	logger, logFile, err := util.SetupLogging(util.CycleLogPath(cfg.StoreDir, time.Now()), consoleLevel)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logFile.Close()
	slog.SetDefault(logger)

	releaseLock, err := lock.Acquire(util.LockPath(cfg.StoreDir))
	if err != nil {
		return fmt.Errorf("failed to acquire store lock: %w", err)
	}
	defer func() {
		if err := releaseLock(); err != nil {
			slog.Warn("Failed to release store lock", "error", err)
		}
	}()

	provider, err := buildProvider(ctx, cfg, identityFile)
	if err != nil {
		return err
	}

	m, err := fetchManifest(ctx, provider, cfg.ManifestName())
	if err != nil {
		return err
	}
	slog.Info("Manifest loaded", "game", m.Startup.Game, "paths", len(m.Paths))

	engine := sync.NewEngine(provider, versions.NewResolver(versions.NewMetadata()), dataDir,
		sync.WithWorkers(cfg.Workers()),
		sync.WithRetry(cfg.RetryAttempts(), time.Second),
	)

	report, err := engine.Run(ctx, m)
	if err != nil {
		return err
	}

	if err := report.Write(os.Stdout); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	fmt.Println(report.Summary())

	if !report.Success() {
		return fmt.Errorf("sync incomplete: %d of %d paths failed", report.Failed+report.Skipped, len(report.Outcomes))
	}
	return nil
}
