package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/klauspost/compress/zip"

	"github.com/telemacy/bridge-packager/internal/logger"
)

// ErrProvisioning marks any failure to fetch, extract or place the binary.
// Partial downloads and extraction leftovers are removed before it is returned.
var ErrProvisioning = errors.New("ffmpeg provisioning failed")

const (
	// binaryDirPattern matches the versioned top-level directory inside
	// release archives. The exact version is not known ahead of time, so the
	// extracted tree is searched rather than assuming a fixed path.
	binaryDirPattern = "ffmpeg"

	// DefaultDownloadTimeout bounds the archive download. The original
	// pipeline blocked indefinitely; an explicit bound replaces that.
	DefaultDownloadTimeout = 5 * time.Minute

	binaryFileMode os.FileMode = 0o755
)

// Options configures the provisioner.
type Options struct {
	// CacheDir is where the canonical binary and transient downloads live.
	CacheDir string
	// URL overrides the platform-default release archive URL.
	URL string
	// Client is the HTTP client used for the download. Defaults to a client
	// with DefaultDownloadTimeout.
	Client *http.Client
}

// BinaryName returns the platform filename of the media-processor binary.
func BinaryName(platform string) string {
	if platform == "windows" {
		return "ffmpeg.exe"
	}

	return "ffmpeg"
}

// archiveURL returns the release archive location for a platform.
func archiveURL(platform string) (string, error) {
	switch platform {
	case "windows":
		return "https://www.gyan.dev/ffmpeg/builds/ffmpeg-release-essentials.zip", nil
	case "darwin":
		return "https://evermeet.cx/ffmpeg/getrelease/zip", nil
	default:
		return "", fmt.Errorf("%w: no archive source for platform %q", ErrProvisioning, platform)
	}
}

// Ensure makes the media-processor binary available at its canonical cache
// path and returns that path. When the binary is already cached this is a pure
// file-existence check and performs no network requests. The cached binary is
// not checksummed; re-provisioning requires deleting it from the cache.
func Ensure(ctx context.Context, platform string, opts Options) (string, error) {
	canonical := filepath.Join(opts.CacheDir, BinaryName(platform))
	if _, err := os.Stat(canonical); err == nil {
		logger.InfoKV(ctx, "ffmpeg already provisioned", "path", canonical)
		return canonical, nil
	}

	sourceURL := opts.URL
	if sourceURL == "" {
		var err error
		if sourceURL, err = archiveURL(platform); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create cache dir: %v", ErrProvisioning, err)
	}

	archivePath := filepath.Join(opts.CacheDir, "ffmpeg-download.zip")
	extractDir := filepath.Join(opts.CacheDir, "ffmpeg-extract")

	// Neither the archive nor the extraction tree outlives the call,
	// regardless of outcome.
	defer func() {
		_ = os.Remove(archivePath)
		_ = os.RemoveAll(extractDir)
	}()

	logger.InfoKV(ctx, "Downloading ffmpeg archive", "url", sourceURL)

	if err := download(ctx, opts.Client, sourceURL, archivePath); err != nil {
		return "", err
	}

	logger.Info(ctx, "Extracting ffmpeg archive")

	if err := extractZip(archivePath, extractDir); err != nil {
		return "", err
	}

	found, err := findBinary(extractDir, BinaryName(platform))
	if err != nil {
		return "", err
	}

	if err := place(found, canonical); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "ffmpeg provisioned", "path", canonical)

	return canonical, nil
}

// download fetches the archive to the given path.
func download(ctx context.Context, client *http.Client, sourceURL, dest string) error {
	if client == nil {
		client = &http.Client{Timeout: DefaultDownloadTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrProvisioning, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: download: %v", ErrProvisioning, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: download: %s returned %s", ErrProvisioning, sourceURL, resp.Status)
	}

	out, err := os.Create(filepath.Clean(dest))
	if err != nil {
		return fmt.Errorf("%w: create archive file: %v", ErrProvisioning, err)
	}

	if _, err = io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: write archive: %v", ErrProvisioning, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("%w: close archive: %v", ErrProvisioning, err)
	}

	return nil
}

// extractZip unpacks the archive into dest, refusing entries that would
// escape it.
func extractZip(archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: open archive: %v", ErrProvisioning, err)
	}

	defer func() {
		_ = reader.Close()
	}()

	for _, entry := range reader.File {
		cleanName := filepath.Clean(entry.Name)
		if filepath.IsAbs(cleanName) || strings.HasPrefix(cleanName, "..") {
			continue
		}

		path := filepath.Join(dest, cleanName)

		if entry.FileInfo().IsDir() {
			if err = os.MkdirAll(path, 0o755); err != nil {
				return fmt.Errorf("%w: extract dir: %v", ErrProvisioning, err)
			}

			continue
		}

		if err = extractFile(entry, path); err != nil {
			return err
		}
	}

	return nil
}

func extractFile(entry *zip.File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: extract parent dir: %v", ErrProvisioning, err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("%w: open archive entry: %v", ErrProvisioning, err)
	}

	defer func() {
		_ = src.Close()
	}()

	dst, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, entry.Mode())
	if err != nil {
		return fmt.Errorf("%w: create extracted file: %v", ErrProvisioning, err)
	}

	if _, err = io.Copy(dst, src); err != nil { //nolint:gosec // Trusted release archive.
		_ = dst.Close()
		return fmt.Errorf("%w: extract file: %v", ErrProvisioning, err)
	}

	if err = dst.Close(); err != nil {
		return fmt.Errorf("%w: close extracted file: %v", ErrProvisioning, err)
	}

	return nil
}

// findBinary locates the binary inside the extracted tree. Release archives
// nest it under an unpredictable versioned directory (ffmpeg-<version>-...),
// so the immediate children are searched by name pattern; the archive root
// and a nested bin/ directory are also accepted.
func findBinary(extractDir, binaryName string) (string, error) {
	if path := filepath.Join(extractDir, binaryName); exists(path) {
		return path, nil
	}

	entries, err := os.ReadDir(extractDir)
	if err != nil {
		return "", fmt.Errorf("%w: read extraction dir: %v", ErrProvisioning, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(strings.ToLower(entry.Name()), binaryDirPattern) {
			continue
		}

		child := filepath.Join(extractDir, entry.Name())
		for _, candidate := range []string{
			filepath.Join(child, binaryName),
			filepath.Join(child, "bin", binaryName),
		} {
			if exists(candidate) {
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("%w: %s not found in extracted archive", ErrProvisioning, binaryName)
}

// place moves the extracted binary onto the canonical path atomically,
// rolling back on failure.
func place(src, canonical string) error {
	contents, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("%w: open extracted binary: %v", ErrProvisioning, err)
	}

	defer func() {
		_ = contents.Close()
	}()

	// Apply swaps the new file in by renaming the current one aside, so the
	// target must already exist. Seed an empty file on a cold cache.
	if !exists(canonical) {
		if err = os.WriteFile(canonical, nil, binaryFileMode); err != nil {
			return fmt.Errorf("%w: seed canonical path: %v", ErrProvisioning, err)
		}
	}

	applyOptions := goupdate.Options{
		TargetPath: canonical,
		TargetMode: binaryFileMode,
	}

	if err = goupdate.Apply(contents, applyOptions); err != nil {
		return fmt.Errorf("%w: place binary: %v", ErrProvisioning, err)
	}

	// Apply keeps the displaced file around as a hidden backup; nothing to
	// preserve here.
	oldName := filepath.Join(filepath.Dir(canonical), "."+filepath.Base(canonical)+".old")
	if _, err = os.Stat(oldName); err == nil {
		_ = os.Remove(oldName)
	}

	return nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
