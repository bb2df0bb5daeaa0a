package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// buildArchive returns a zip containing the given entries (name -> contents).
func buildArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer

	writer := zip.NewWriter(&buf)
	for name, contents := range entries {
		f, err := writer.Create(name)
		require.NoError(t, err)

		_, err = f.Write([]byte(contents))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	return buf.Bytes()
}

// serveArchive starts a server returning the archive and counting requests.
func serveArchive(t *testing.T, archive []byte, hits *atomic.Int64) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)

		_, _ = w.Write(archive)
	}))
	t.Cleanup(srv.Close)

	return srv
}

// TestEnsureColdCache provisions from an archive nesting the binary under a
// versioned directory and verifies no transient files are left behind.
func TestEnsureColdCache(t *testing.T) {
	t.Parallel()

	archive := buildArchive(t, map[string]string{
		"ffmpeg-6.1-essentials_build/bin/ffmpeg.exe": "binary-bytes",
		"ffmpeg-6.1-essentials_build/LICENSE":        "license",
	})

	var hits atomic.Int64

	srv := serveArchive(t, archive, &hits)
	cache := t.TempDir()

	path, err := Ensure(context.Background(), "windows", Options{CacheDir: cache, URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cache, "ffmpeg.exe"), path)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "binary-bytes", string(contents))

	// Only the canonical binary remains in the cache.
	entries, err := os.ReadDir(cache)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, int64(1), hits.Load())
}

// TestEnsureCreatesCacheDir provisions into a cache directory that does not
// exist yet, the state of a fresh machine.
func TestEnsureCreatesCacheDir(t *testing.T) {
	t.Parallel()

	archive := buildArchive(t, map[string]string{"ffmpeg-7.0/ffmpeg": "fresh-binary"})

	var hits atomic.Int64

	srv := serveArchive(t, archive, &hits)
	cache := filepath.Join(t.TempDir(), "nested", "cache")

	path, err := Ensure(context.Background(), "darwin", Options{CacheDir: cache, URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cache, "ffmpeg"), path)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "fresh-binary", string(contents))

	// No backup or transient files next to the binary.
	entries, err := os.ReadDir(cache)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

// TestEnsureWarmCacheSkipsNetwork re-runs with the binary present and expects
// zero requests.
func TestEnsureWarmCacheSkipsNetwork(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64

	srv := serveArchive(t, []byte("never fetched"), &hits)
	cache := t.TempDir()

	canonical := filepath.Join(cache, "ffmpeg")
	require.NoError(t, os.WriteFile(canonical, []byte("cached"), 0o755))

	path, err := Ensure(context.Background(), "darwin", Options{CacheDir: cache, URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, canonical, path)
	require.Equal(t, int64(0), hits.Load())
}

// TestEnsureBinaryAtArchiveRoot accepts archives placing the binary at the top level.
func TestEnsureBinaryAtArchiveRoot(t *testing.T) {
	t.Parallel()

	archive := buildArchive(t, map[string]string{"ffmpeg": "root-binary"})

	var hits atomic.Int64

	srv := serveArchive(t, archive, &hits)
	cache := t.TempDir()

	path, err := Ensure(context.Background(), "darwin", Options{CacheDir: cache, URL: srv.URL})
	require.NoError(t, err)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "root-binary", string(contents))
}

// TestEnsureBinaryMissingFromArchive fails with ErrProvisioning and cleans up.
func TestEnsureBinaryMissingFromArchive(t *testing.T) {
	t.Parallel()

	archive := buildArchive(t, map[string]string{"readme.txt": "no binary here"})

	var hits atomic.Int64

	srv := serveArchive(t, archive, &hits)
	cache := t.TempDir()

	_, err := Ensure(context.Background(), "windows", Options{CacheDir: cache, URL: srv.URL})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrProvisioning))

	entries, err := os.ReadDir(cache)
	require.NoError(t, err)
	require.Empty(t, entries)
}

// TestEnsureDownloadFailure maps HTTP errors to ErrProvisioning without leftovers.
func TestEnsureDownloadFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	cache := t.TempDir()

	_, err := Ensure(context.Background(), "windows", Options{CacheDir: cache, URL: srv.URL})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrProvisioning))

	entries, err := os.ReadDir(cache)
	require.NoError(t, err)
	require.Empty(t, entries)
}

// TestEnsureUnsupportedPlatform rejects platforms without an archive source.
func TestEnsureUnsupportedPlatform(t *testing.T) {
	t.Parallel()

	_, err := Ensure(context.Background(), "plan9", Options{CacheDir: t.TempDir()})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrProvisioning))
}
