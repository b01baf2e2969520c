package remote

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gitBlobSHA(data []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(data))
	h.Write(data)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// githubFixture serves a recursive tree plus blob objects the way the git
// data API does, so the provider can be exercised end to end.
func githubFixture(t *testing.T, files map[string][]byte, dirs []string) *GitHub {
	t.Helper()

	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/example/pack/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		type node struct {
			Path string `json:"path"`
			Type string `json:"type"`
			Size int64  `json:"size"`
			SHA  string `json:"sha"`
			URL  string `json:"url"`
		}
		var tree []node
		for _, d := range dirs {
			tree = append(tree, node{Path: d, Type: "tree"})
		}
		for path, data := range files {
			sha := gitBlobSHA(data)
			tree = append(tree, node{
				Path: path,
				Type: "blob",
				Size: int64(len(data)),
				SHA:  sha,
				URL:  server.URL + "/blobs/" + sha,
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"tree": tree, "truncated": false})
	})
	mux.HandleFunc("/blobs/", func(w http.ResponseWriter, r *http.Request) {
		sha := filepath.Base(r.URL.Path)
		for _, data := range files {
			if gitBlobSHA(data) == sha {
				json.NewEncoder(w).Encode(map[string]string{
					"content":  base64.StdEncoding.EncodeToString(data),
					"encoding": "base64",
				})
				return
			}
		}
		http.NotFound(w, r)
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	g := NewGitHub("example", "pack", "main", "test-token")
	g.baseURL = server.URL
	return g
}

func TestGitHubList(t *testing.T) {
	files := map[string][]byte{
		"mods/a.jar":      []byte("jar-a"),
		"mods/libs/b.jar": []byte("jar-b"),
		"options.txt":     []byte("fov:1.0\n"),
	}
	g := githubFixture(t, files, []string{"mods", "mods/libs"})
	ctx := context.Background()

	t.Run("directory listing is relative and recursive", func(t *testing.T) {
		entries, err := g.List(ctx, "mods")
		require.NoError(t, err)

		byPath := map[string]Entry{}
		for _, e := range entries {
			byPath[e.Path] = e
		}
		require.Len(t, byPath, 3)
		assert.True(t, byPath["libs"].IsDir)
		assert.False(t, byPath["a.jar"].IsDir)
		assert.Equal(t, gitBlobSHA([]byte("jar-a")), byPath["a.jar"].Hash)
		assert.Equal(t, int64(len("jar-b")), byPath["libs/b.jar"].Size)
	})

	t.Run("file listing yields a single rooted entry", func(t *testing.T) {
		entries, err := g.List(ctx, "options.txt")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Empty(t, entries[0].Path)
		assert.Equal(t, gitBlobSHA([]byte("fov:1.0\n")), entries[0].Hash)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := g.List(ctx, "shaderpacks")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGitHubFetch(t *testing.T) {
	files := map[string][]byte{"mods/a.jar": []byte("jar-a")}
	g := githubFixture(t, files, []string{"mods"})
	ctx := context.Background()

	data, err := FetchBytes(ctx, g, "mods/a.jar")
	require.NoError(t, err)
	assert.Equal(t, []byte("jar-a"), data)

	_, err = FetchBytes(ctx, g, "mods/missing.jar")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGitHubFileHash(t *testing.T) {
	data := []byte("hello blob\n")
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	g := NewGitHub("example", "pack", "main", "")
	hash, err := g.FileHash(path)
	require.NoError(t, err)
	assert.Equal(t, gitBlobSHA(data), hash)
}

func TestGitHubStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "not found", status: http.StatusNotFound, wantErr: ErrNotFound},
		{name: "bad token", status: http.StatusUnauthorized, wantErr: ErrDenied},
		{name: "rate limited", status: http.StatusForbidden, wantErr: ErrDenied},
		{name: "server error", status: http.StatusInternalServerError, wantErr: ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(server.Close)

			g := NewGitHub("example", "pack", "main", "tok")
			g.baseURL = server.URL

			_, err := g.List(context.Background(), "mods")
			assert.ErrorIs(t, err, tt.wantErr)

			err = g.VerifyCredentials(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGitHubAuthHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"tree": []any{
			map[string]any{"path": "x", "type": "blob", "size": 1, "sha": "abc"},
		}})
	}))
	t.Cleanup(server.Close)

	g := NewGitHub("example", "pack", "main", "ghp_secret")
	g.baseURL = server.URL

	require.NoError(t, g.VerifyCredentials(context.Background()))
	assert.Equal(t, "token ghp_secret", gotAuth)
}
