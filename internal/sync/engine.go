package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"mcsync/internal/manifest"
	"mcsync/internal/remote"
	"mcsync/internal/versions"
)

// Engine drives one sync cycle: resolve the active game profile first, then
// reconcile every declared path rule with bounded concurrency. The cycle is
// stateless between runs; everything it produces lives in the returned
// Report.
type Engine struct {
	provider remote.Provider
	resolver *versions.Resolver
	dataDir  string

	workers       int
	retryAttempts int
	backoffBase   time.Duration
}

type Option func(*Engine)

func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithRetry(attempts int, base time.Duration) Option {
	return func(e *Engine) {
		if attempts > 0 {
			e.retryAttempts = attempts
		}
		if base > 0 {
			e.backoffBase = base
		}
	}
}

func NewEngine(provider remote.Provider, resolver *versions.Resolver, dataDir string, opts ...Option) *Engine {
	e := &Engine{
		provider:      provider,
		resolver:      resolver,
		dataDir:       dataDir,
		workers:       4,
		retryAttempts: 3,
		backoffBase:   time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one cycle against an already-validated manifest. A fatal
// resolution failure aborts before any file I/O; per-rule failures are
// recorded in the report and never stop sibling rules.
func (e *Engine) Run(ctx context.Context, m *manifest.Manifest) (*Report, error) {
	started := time.Now()

	gameType, game := m.ActiveGame()
	profile, err := e.resolveWithRetry(ctx, gameType, game)
	if err != nil {
		return nil, fmt.Errorf("version resolution failed: %w", err)
	}

	reconciler := NewReconciler(e.provider, e.dataDir, e.workers)

	type ruleJob struct {
		remotePath string
		rule       manifest.PathRule
	}
	jobs := make([]ruleJob, 0, len(m.Paths))
	for remotePath, rule := range m.Paths {
		jobs = append(jobs, ruleJob{remotePath: remotePath, rule: rule})
	}

	outcomes := make([]Outcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, job := range jobs {
		g.Go(func() error {
			slog.Info("Reconciling path", "remotePath", job.remotePath, "root", job.rule.Root)
			outcomes[i] = reconciler.Reconcile(gctx, job.remotePath, job.rule)
			return nil
		})
	}
	g.Wait()

	// rule ordering is unspecified; sort only for stable output
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].RemotePath < outcomes[j].RemotePath })

	report := &Report{
		Profile:  profile,
		Outcomes: outcomes,
		Duration: time.Since(started),
	}
	report.summarize()

	slog.Info("Sync cycle finished",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"written", report.FilesWritten,
		"deleted", report.FilesDeleted,
		"duration", report.Duration,
	)
	return report, nil
}

// resolveWithRetry retries transient metadata failures with exponential
// backoff. VersionNotFound is final on the first occurrence.
func (e *Engine) resolveWithRetry(ctx context.Context, gameType manifest.GameType, game manifest.Game) (*versions.GameProfile, error) {
	var lastErr error
	for attempt := 1; attempt <= e.retryAttempts; attempt++ {
		profile, err := e.resolver.Resolve(ctx, gameType, game)
		if err == nil {
			return profile, nil
		}
		lastErr = err
		if !versions.Retryable(err) {
			return nil, err
		}
		if attempt == e.retryAttempts {
			break
		}

		delay := e.backoffBase << (attempt - 1)
		slog.Warn("Version metadata unavailable, retrying",
			"attempt", attempt, "maxAttempts", e.retryAttempts, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}
