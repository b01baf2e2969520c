package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type S3Source struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Prefix   string `yaml:"prefix"`
	Endpoint string `yaml:"endpoint"`
}

type GitHubSource struct {
	Owner     string `yaml:"owner"`
	Repo      string `yaml:"repo"`
	Branch    string `yaml:"branch"`
	TokenFile string `yaml:"token_file"`
}

// Config is the local client configuration. It selects the remote store the
// manifest and files are pulled from and tunes the sync engine; everything
// the server controls lives in the remote manifest instead.
type Config struct {
	StoreDir     string        `yaml:"store_dir"`
	ManifestPath string        `yaml:"manifest_path"`
	Source       string        `yaml:"source"`
	S3           *S3Source     `yaml:"s3,omitempty"`
	GitHub       *GitHubSource `yaml:"github,omitempty"`
	Sync         struct {
		Workers int `yaml:"workers"`
	} `yaml:"sync,omitempty"`
	Retry struct {
		MaxAttempts int `yaml:"max_attempts"`
	} `yaml:"retry,omitempty"`
}

func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.StoreDir == "" {
		return fmt.Errorf("store_dir is required")
	}
	switch c.Source {
	case "s3":
		if c.S3 == nil {
			return fmt.Errorf("s3 section is required when source is s3")
		}
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket is required")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("s3.region is required")
		}
	case "github":
		if c.GitHub == nil {
			return fmt.Errorf("github section is required when source is github")
		}
		if c.GitHub.Owner == "" {
			return fmt.Errorf("github.owner is required")
		}
		if c.GitHub.Repo == "" {
			return fmt.Errorf("github.repo is required")
		}
	default:
		return fmt.Errorf("source must be s3 or github, got %q", c.Source)
	}
	if c.Sync.Workers < 0 {
		return fmt.Errorf("sync.workers must be non-negative")
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must be non-negative")
	}
	return nil
}

// ManifestName is the manifest document path with its default applied.
func (c *Config) ManifestName() string {
	if c.ManifestPath != "" {
		return c.ManifestPath
	}
	return "config.yaml"
}

func (c *Config) Workers() int {
	if c.Sync.Workers > 0 {
		return c.Sync.Workers
	}
	return 4
}

func (c *Config) RetryAttempts() int {
	if c.Retry.MaxAttempts > 0 {
		return c.Retry.MaxAttempts
	}
	return 3
}

func (c *Config) GitHubBranch() string {
	if c.GitHub != nil && c.GitHub.Branch != "" {
		return c.GitHub.Branch
	}
	return "master"
}
