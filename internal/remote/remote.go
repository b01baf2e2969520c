package remote

import (
	"context"
	"errors"
	"io"
)

// Entry describes one remote object under a listed path. Path is relative to
// the listed path; a file listing yields a single entry with an empty Path.
type Entry struct {
	Path  string
	IsDir bool
	Size  int64
	Hash  string
}

// Transient listing/fetch failures are retried by the caller; anything else
// is permanent for the affected rule.
var (
	ErrNotFound    = errors.New("remote path not found")
	ErrUnavailable = errors.New("remote store unavailable")
	ErrDenied      = errors.New("remote access denied")
)

// Provider lists and fetches remote files. Hash values are opaque and
// provider-specific; FileHash computes the same scheme over a local file so
// the two sides are always comparable. An empty Hash disables content
// comparison without affecting correctness.
type Provider interface {
	List(ctx context.Context, remotePath string) ([]Entry, error)
	Fetch(ctx context.Context, remotePath string) (io.ReadCloser, error)
	FileHash(localPath string) (string, error)
	VerifyCredentials(ctx context.Context) error
}

// FetchBytes reads a whole remote file through the provider.
func FetchBytes(ctx context.Context, p Provider, remotePath string) ([]byte, error) {
	rc, err := p.Fetch(ctx, remotePath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
