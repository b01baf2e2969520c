package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"mcsync/internal/config"
	"mcsync/internal/versions"
)

// runResolve prints the resolved profile plus the startup passthrough the
// launcher needs for auto-join.
func runResolve(ctx context.Context, configPath, identityFile string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	provider, err := buildProvider(ctx, cfg, identityFile)
	if err != nil {
		return err
	}

	m, err := fetchManifest(ctx, provider, cfg.ManifestName())
	if err != nil {
		return err
	}

	gameType, game := m.ActiveGame()
	profile, err := versions.NewResolver(versions.NewMetadata()).Resolve(ctx, gameType, game)
	if err != nil {
		return err
	}

	out := struct {
		Profile  *versions.GameProfile `json:"profile"`
		ServerIP string                `json:"server_ip"`
		Port     int                   `json:"server_port,omitempty"`
		AutoJoin bool                  `json:"auto_join"`
	}{
		Profile:  profile,
		ServerIP: m.Startup.ServerIP,
		Port:     m.Startup.Port(),
		// auto-join is driven solely by server_ip being set
		AutoJoin: m.Startup.ServerIP != "",
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
