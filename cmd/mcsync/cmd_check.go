package main

import (
	"context"
	"fmt"
	"os"

	"mcsync/internal/config"
	"mcsync/internal/manifest"
)

// runCheck is the preflight: config, store access, manifest, all verified
// without writing anything locally.
func runCheck(ctx context.Context, configPath, identityFile string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	fmt.Println("config: OK")

	provider, err := buildProvider(ctx, cfg, identityFile)
	if err != nil {
		return fmt.Errorf("provider init: %w", err)
	}
	if err := provider.VerifyCredentials(ctx); err != nil {
		return fmt.Errorf("remote store: %w", err)
	}
	fmt.Printf("remote store (%s): OK\n", cfg.Source)

	m, err := fetchManifest(ctx, provider, cfg.ManifestName())
	if err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	fmt.Printf("manifest %s: OK (game %s, %d paths)\n", cfg.ManifestName(), m.Startup.Game, len(m.Paths))

	fmt.Println("all checks passed")
	return nil
}

func runValidate(manifestPath string) error {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return err
	}
	fmt.Printf("manifest valid: game %s, %d games, %d paths\n", m.Startup.Game, len(m.Games), len(m.Paths))
	return nil
}
