package main

import (
	"context"
	"fmt"

	"mcsync/internal/config"
	"mcsync/internal/creds"
	"mcsync/internal/manifest"
	"mcsync/internal/remote"
)

// buildProvider constructs the remote store client selected by the config.
func buildProvider(ctx context.Context, cfg *config.Config, identityFile string) (remote.Provider, error) {
	switch cfg.Source {
	case "s3":
		return remote.NewS3(ctx, cfg.S3.Bucket, cfg.S3.Region,
			cfg.S3.Prefix, cfg.S3.Endpoint, cfg.RetryAttempts())
	case "github":
		var token string
		if cfg.GitHub.TokenFile != "" {
			var err error
			token, err = creds.LoadToken(cfg.GitHub.TokenFile, identityFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load access token: %w", err)
			}
		}
		return remote.NewGitHub(cfg.GitHub.Owner, cfg.GitHub.Repo, cfg.GitHubBranch(), token), nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

// fetchManifest pulls and validates the remote manifest document. The
// document is parsed fresh every cycle and never cached locally.
func fetchManifest(ctx context.Context, provider remote.Provider, name string) (*manifest.Manifest, error) {
	data, err := remote.FetchBytes(ctx, provider, name)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest %s: %w", name, err)
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return nil, err
	}
	return m, nil
}
