package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcsync/internal/manifest"
	"mcsync/internal/versions"
)

const engineManifest = `
startup:
  server_ip: "play.example.net"
  server_port: 25565
  game: vanilla
games:
  vanilla:
    mc_version: ""
paths:
  mods:
    is_dir: true
    root: mods
    overwrite: true
    delete_others: true
  options.txt:
    is_dir: false
    root: options.txt
    overwrite: false
`

func mojangFixture(t *testing.T, handler http.HandlerFunc) *versions.Resolver {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	meta := versions.NewMetadata()
	meta.MojangURL = server.URL
	return versions.NewResolver(meta)
}

func mojangOK(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(`{
		"latest": {"release": "1.21.4", "snapshot": "25w10a"},
		"versions": [{"id": "1.21.4", "type": "release"}]
	}`))
}

func TestEngineRun(t *testing.T) {
	provider := newFakeProvider()
	provider.files["mods/a.jar"] = []byte("jar-a")
	provider.files["mods/b.jar"] = []byte("jar-b")
	provider.files["options.txt"] = []byte("fov:1.0\n")
	dataDir := t.TempDir()

	m, err := manifest.Parse([]byte(engineManifest))
	require.NoError(t, err)

	engine := NewEngine(provider, mojangFixture(t, mojangOK), dataDir, WithWorkers(2))
	report, err := engine.Run(context.Background(), m)
	require.NoError(t, err)

	assert.True(t, report.Success())
	assert.Equal(t, 2, report.Succeeded)
	assert.Zero(t, report.Failed)
	assert.Equal(t, 3, report.FilesWritten)
	assert.Equal(t, "1.21.4", report.Profile.McVersion)
	assert.Equal(t, "2 of 2 paths synced; game version resolved to vanilla 1.21.4", report.Summary())

	// outcomes come back in a stable order regardless of scheduling
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, "mods", report.Outcomes[0].RemotePath)
	assert.Equal(t, "options.txt", report.Outcomes[1].RemotePath)

	assert.Equal(t, "jar-a", readLocal(t, dataDir, "mods/a.jar"))
	assert.Equal(t, "fov:1.0\n", readLocal(t, dataDir, "options.txt"))
}

func TestEngineAbortsOnUnknownVersion(t *testing.T) {
	provider := newFakeProvider()
	provider.files["mods/a.jar"] = []byte("jar-a")
	dataDir := t.TempDir()

	doc := `
startup:
  game: vanilla
games:
  vanilla:
    mc_version: "1.7.10-custom"
paths:
  mods:
    is_dir: true
    root: mods
`
	m, err := manifest.Parse([]byte(doc))
	require.NoError(t, err)

	engine := NewEngine(provider, mojangFixture(t, mojangOK), dataDir)
	_, err = engine.Run(context.Background(), m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version resolution failed")

	// nothing was fetched or written before the abort
	assert.Empty(t, provider.fetchLog())
	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEngineRetriesTransientMetadataFailure(t *testing.T) {
	var hits atomic.Int32
	flaky := func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		mojangOK(w, r)
	}

	provider := newFakeProvider()
	provider.files["options.txt"] = []byte("fov:1.0\n")

	doc := `
startup:
  game: vanilla
games:
  vanilla:
    mc_version: ""
paths:
  options.txt:
    root: options.txt
`
	m, err := manifest.Parse([]byte(doc))
	require.NoError(t, err)

	dataDir := t.TempDir()
	engine := NewEngine(provider, mojangFixture(t, flaky), dataDir, WithRetry(3, time.Millisecond))
	report, err := engine.Run(context.Background(), m)
	require.NoError(t, err)

	assert.EqualValues(t, 3, hits.Load())
	assert.True(t, report.Success())
	assert.FileExists(t, filepath.Join(dataDir, "options.txt"))
}

func TestEngineGivesUpAfterMaxAttempts(t *testing.T) {
	down := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	m, err := manifest.Parse([]byte(engineManifest))
	require.NoError(t, err)

	engine := NewEngine(newFakeProvider(), mojangFixture(t, down), t.TempDir(), WithRetry(2, time.Millisecond))
	_, err = engine.Run(context.Background(), m)
	require.Error(t, err)
	assert.True(t, versions.Retryable(err))
}
