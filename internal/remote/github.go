package remote

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const githubAPIBase = "https://api.github.com/repos"

// GitHub serves files from a (typically private) repository via the git
// trees API. One recursive tree listing covers the whole cycle; blobs are
// fetched individually. Hashes are git blob sha1, which FileHash reproduces
// over local files.
type GitHub struct {
	client  *http.Client
	baseURL string
	owner   string
	repo    string
	branch  string
	token   string

	mu   sync.Mutex
	tree []treeEntry
}

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	SHA  string `json:"sha"`
	URL  string `json:"url"`
}

func NewGitHub(owner, repo, branch, token string) *GitHub {
	return &GitHub{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: githubAPIBase,
		owner:   owner,
		repo:    repo,
		branch:  branch,
		token:   token,
	}
}

func (g *GitHub) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if g.token != "" {
		req.Header.Set("Authorization", "token "+g.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return resp, nil
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", url, ErrDenied)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUnavailable, url, resp.StatusCode)
	}
}

func (g *GitHub) repoTree(ctx context.Context) ([]treeEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.tree != nil {
		return g.tree, nil
	}

	url := fmt.Sprintf("%s/%s/%s/git/trees/%s?recursive=1", g.baseURL, g.owner, g.repo, g.branch)
	resp, err := g.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Tree      []treeEntry `json:"tree"`
		Truncated bool        `json:"truncated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode repo tree: %v", ErrUnavailable, err)
	}
	if payload.Truncated {
		return nil, fmt.Errorf("%w: repo tree truncated by the API", ErrUnavailable)
	}

	g.tree = payload.Tree
	return g.tree, nil
}

func (g *GitHub) List(ctx context.Context, remotePath string) ([]Entry, error) {
	tree, err := g.repoTree(ctx)
	if err != nil {
		return nil, err
	}

	remotePath = strings.Trim(remotePath, "/")
	var entries []Entry
	for _, te := range tree {
		if te.Path == remotePath && te.Type == "blob" {
			return []Entry{{Path: "", Size: te.Size, Hash: te.SHA}}, nil
		}
		if rel, ok := strings.CutPrefix(te.Path, remotePath+"/"); ok {
			entries = append(entries, Entry{
				Path:  rel,
				IsDir: te.Type == "tree",
				Size:  te.Size,
				Hash:  te.SHA,
			})
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", remotePath, ErrNotFound)
	}
	return entries, nil
}

func (g *GitHub) Fetch(ctx context.Context, remotePath string) (io.ReadCloser, error) {
	tree, err := g.repoTree(ctx)
	if err != nil {
		return nil, err
	}

	remotePath = strings.Trim(remotePath, "/")
	for _, te := range tree {
		if te.Path != remotePath || te.Type != "blob" {
			continue
		}
		resp, err := g.get(ctx, te.URL)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		var blob struct {
			Content  string `json:"content"`
			Encoding string `json:"encoding"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&blob); err != nil {
			return nil, fmt.Errorf("%w: failed to decode blob %s: %v", ErrUnavailable, remotePath, err)
		}
		if blob.Encoding != "base64" {
			return nil, fmt.Errorf("%w: unexpected blob encoding %q", ErrUnavailable, blob.Encoding)
		}
		raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(blob.Content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode blob %s: %v", ErrUnavailable, remotePath, err)
		}
		return io.NopCloser(bytes.NewReader(raw)), nil
	}
	return nil, fmt.Errorf("%s: %w", remotePath, ErrNotFound)
}

// FileHash computes the git blob object id of a local file.
func (g *GitHub) FileHash(localPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(data))
	h.Write(data)
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func (g *GitHub) VerifyCredentials(ctx context.Context) error {
	if _, err := g.repoTree(ctx); err != nil {
		return fmt.Errorf("failed to reach repository %s/%s: %w", g.owner, g.repo, err)
	}
	return nil
}
