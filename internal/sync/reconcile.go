package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	gosync "sync"

	"golang.org/x/sync/errgroup"

	"mcsync/internal/manifest"
	"mcsync/internal/remote"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Per-rule failure kinds. A rule failure never aborts sibling rules.
var (
	ErrPathNotFound        = errors.New("remote path not found")
	ErrMetadataUnavailable = errors.New("remote listing unavailable")
)

type EntryError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Outcome is the result of reconciling one PathRule.
type Outcome struct {
	RemotePath   string       `json:"remote_path"`
	Status       Status       `json:"status"`
	FilesWritten int          `json:"files_written"`
	FilesDeleted int          `json:"files_deleted"`
	Error        string       `json:"error,omitempty"`
	EntryErrors  []EntryError `json:"entry_errors,omitempty"`
}

// Reconciler applies one PathRule to the local game-data directory. Rules
// own disjoint local roots (enforced at manifest validation), so concurrent
// reconcilers never contend for the same paths.
type Reconciler struct {
	provider     remote.Provider
	dataDir      string
	fetchWorkers int
}

func NewReconciler(provider remote.Provider, dataDir string, fetchWorkers int) *Reconciler {
	if fetchWorkers < 1 {
		fetchWorkers = 1
	}
	return &Reconciler{provider: provider, dataDir: dataDir, fetchWorkers: fetchWorkers}
}

func (r *Reconciler) Reconcile(ctx context.Context, remotePath string, rule manifest.PathRule) Outcome {
	outcome := Outcome{RemotePath: remotePath, Status: StatusSucceeded}

	if ctx.Err() != nil {
		outcome.Status = StatusSkipped
		outcome.Error = ctx.Err().Error()
		return outcome
	}

	entries, err := r.provider.List(ctx, remotePath)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Error = classifyListError(err).Error()
		return outcome
	}

	root := path.Clean(strings.ReplaceAll(rule.Root, "\\", "/"))
	localRoot := filepath.Join(r.dataDir, filepath.FromSlash(root))

	keep, dirs := keepSet(entries, root, rule)

	written, entryErrs := r.applyKeepSet(ctx, remotePath, rule, localRoot, keep, dirs)
	outcome.FilesWritten = written
	outcome.EntryErrors = entryErrs

	// A cancellation mid-rule leaves entries silently unsynced; the rule must
	// not report success for work it never did.
	if ctx.Err() != nil {
		outcome.Status = StatusSkipped
		outcome.Error = ctx.Err().Error()
		return outcome
	}

	// Deletions run strictly after all adds/updates, and only when every one
	// of them landed; otherwise data could vanish before its replacement
	// exists.
	if rule.DeleteOthers && len(entryErrs) == 0 {
		deleted, err := r.deleteOthers(localRoot, root, rule, keep, dirs)
		outcome.FilesDeleted = deleted
		if err != nil {
			outcome.EntryErrors = append(outcome.EntryErrors, EntryError{Path: root, Error: err.Error()})
		}
	}

	if len(outcome.EntryErrors) > 0 {
		outcome.Status = StatusFailed
		outcome.Error = fmt.Sprintf("%d entries failed", len(outcome.EntryErrors))
	}
	return outcome
}

// keepSet filters remote entries through the rule's excludes. The keys of
// keep are root-relative file paths; dirs holds explicit remote directories
// that survive exclusion.
func keepSet(entries []remote.Entry, root string, rule manifest.PathRule) (map[string]remote.Entry, []string) {
	keep := make(map[string]remote.Entry, len(entries))
	var dirs []string
	for _, entry := range entries {
		if excluded(root, entry.Path, rule.Exclude) {
			continue
		}
		if entry.IsDir {
			dirs = append(dirs, entry.Path)
			continue
		}
		keep[entry.Path] = entry
	}
	return keep, dirs
}

// excluded matches the root-joined local path of a remote entry against the
// rule's exclude prefixes. Excluded subtrees are neither fetched nor deleted.
func excluded(root, rel string, excludes []string) bool {
	joined := root
	if rel != "" {
		joined = path.Join(root, rel)
	}
	for _, ex := range excludes {
		ex = path.Clean(strings.ReplaceAll(ex, "\\", "/"))
		if joined == ex || strings.HasPrefix(joined, ex+"/") {
			return true
		}
	}
	return false
}

func (r *Reconciler) applyKeepSet(
	ctx context.Context,
	remotePath string,
	rule manifest.PathRule,
	localRoot string,
	keep map[string]remote.Entry,
	dirs []string,
) (int, []EntryError) {
	var mu gosync.Mutex
	var written int
	var entryErrs []EntryError

	for _, dir := range dirs {
		if err := os.MkdirAll(filepath.Join(localRoot, filepath.FromSlash(dir)), 0o755); err != nil {
			entryErrs = append(entryErrs, EntryError{Path: dir, Error: err.Error()})
		}
	}

	rels := make([]string, 0, len(keep))
	for rel := range keep {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.fetchWorkers)
	for _, rel := range rels {
		entry := keep[rel]
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			wrote, err := r.syncEntry(gctx, remotePath, rule, localRoot, rel, entry)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// one bad entry does not stop the rest of the rule
				entryErrs = append(entryErrs, EntryError{Path: rel, Error: err.Error()})
			} else if wrote {
				written++
			}
			return nil
		})
	}
	g.Wait()

	sort.Slice(entryErrs, func(i, j int) bool { return entryErrs[i].Path < entryErrs[j].Path })
	return written, entryErrs
}

// syncEntry brings one local file in line with its remote counterpart.
// Returns whether a write was performed.
func (r *Reconciler) syncEntry(
	ctx context.Context,
	remotePath string,
	rule manifest.PathRule,
	localRoot, rel string,
	entry remote.Entry,
) (bool, error) {
	localPath := localRoot
	fetchPath := remotePath
	if rel != "" {
		localPath = filepath.Join(localRoot, filepath.FromSlash(rel))
		fetchPath = remotePath + "/" + rel
	}

	if _, err := os.Stat(localPath); err == nil {
		if !rule.Overwrite {
			// pre-existing local copies win
			return false, nil
		}
		if entry.Hash != "" {
			localHash, err := r.provider.FileHash(localPath)
			if err == nil && localHash == entry.Hash {
				return false, nil
			}
		}
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat failed: %w", err)
	}

	if err := r.download(ctx, fetchPath, localPath); err != nil {
		return false, err
	}
	slog.Debug("Wrote file", "path", localPath, "size", entry.Size)
	return true, nil
}

// download fetches a remote file into place through a temp file in the same
// directory. An interrupted or cancelled transfer leaves the final path
// untouched.
func (r *Reconciler) download(ctx context.Context, fetchPath, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	body, err := r.provider.Fetch(ctx, fetchPath)
	if err != nil {
		return err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(localPath), ".mcsync-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write failed: %w", err)
	}
	if ctx.Err() != nil {
		os.Remove(tmpName)
		return ctx.Err()
	}
	if err := os.Rename(tmpName, localPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// deleteOthers removes local paths under the rule's root that are neither in
// the keep set nor shielded by an exclude.
func (r *Reconciler) deleteOthers(localRoot, root string, rule manifest.PathRule, keep map[string]remote.Entry, dirs []string) (int, error) {
	if _, err := os.Stat(localRoot); os.IsNotExist(err) {
		return 0, nil
	}

	// directories that must survive: ancestors of keep entries, plus explicit
	// remote directories (which may be empty, e.g. S3 directory markers)
	keepDirs := make(map[string]bool)
	for rel := range keep {
		for d := path.Dir(rel); d != "." && d != "/"; d = path.Dir(d) {
			keepDirs[d] = true
		}
	}
	for _, dir := range dirs {
		keepDirs[dir] = true
		for d := path.Dir(dir); d != "." && d != "/"; d = path.Dir(d) {
			keepDirs[d] = true
		}
	}

	deleted := 0
	err := filepath.WalkDir(localRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == localRoot {
			return nil
		}
		rel := filepath.ToSlash(strings.TrimPrefix(p, localRoot+string(filepath.Separator)))

		if excluded(root, rel, rule.Exclude) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if keepDirs[rel] || anyExcludedUnder(root, rel, rule.Exclude) {
				return nil
			}
			if err := os.RemoveAll(p); err != nil {
				return err
			}
			slog.Debug("Deleted directory", "path", p)
			deleted++
			return filepath.SkipDir
		}
		if _, ok := keep[rel]; ok {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".mcsync-") {
			// stale temp file from an interrupted cycle
			_ = os.Remove(p)
			return nil
		}
		if err := os.Remove(p); err != nil {
			return err
		}
		slog.Debug("Deleted file", "path", p)
		deleted++
		return nil
	})
	if err != nil {
		return deleted, fmt.Errorf("delete pass failed: %w", err)
	}
	return deleted, nil
}

// anyExcludedUnder reports whether an exclude prefix points inside the given
// directory, which must then be kept so the excluded subtree survives.
func anyExcludedUnder(root, rel string, excludes []string) bool {
	joined := path.Join(root, rel)
	for _, ex := range excludes {
		ex = path.Clean(strings.ReplaceAll(ex, "\\", "/"))
		if strings.HasPrefix(ex, joined+"/") {
			return true
		}
	}
	return false
}

func classifyListError(err error) error {
	switch {
	case errors.Is(err, remote.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", ErrPathNotFound, err)
	}
}
