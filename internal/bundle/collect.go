package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/telemacy/bridge-packager/internal/assemble"
	"github.com/telemacy/bridge-packager/internal/logger"
)

var errNoExecutables = errors.New("no assembled executables to collect")

// Bundle is the merged output tree holding both launchers over one shared runtime.
type Bundle struct {
	// Dir is the root of the merged tree.
	Dir string
	// Launchers are the launcher filenames present at the root of Dir.
	Launchers []string
}

// Options configures collection.
type Options struct {
	// Dir is the destination of the merged tree. It is created if absent;
	// files already present under it are kept and never overwritten.
	Dir string
	// Icon is an optional top-level icon resource copied into the tree root.
	Icon string
}

// Collect merges the assembled per-target trees into one bundle. Each target
// contributes its launcher under its own name; runtime files with identical
// relative paths are shared, written once by the first contributing target.
// Sharing the runtime is the point of merging: both executables ship the same
// interpreter and native libraries, and duplicating them would double the
// artifact size.
func Collect(ctx context.Context, executables []*assemble.Executable, opts Options) (*Bundle, error) {
	if len(executables) == 0 {
		return nil, errNoExecutables
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create bundle dir: %w", err)
	}

	merged := &Bundle{Dir: opts.Dir}

	var shared, copied int

	for _, exe := range executables {
		n, s, err := mergeTree(exe.Dir, opts.Dir)
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", exe.Name, err)
		}

		copied += n
		shared += s

		merged.Launchers = append(merged.Launchers, exe.Launcher)
	}

	if opts.Icon != "" {
		dest := filepath.Join(opts.Dir, filepath.Base(opts.Icon))
		if err := copyFile(opts.Icon, dest); err != nil {
			return nil, fmt.Errorf("copy icon: %w", err)
		}
	}

	logger.InfoKV(ctx, "Bundle collected",
		"dir", opts.Dir, "files", copied, "shared", shared)

	return merged, nil
}

// mergeTree copies src into dest, skipping relative paths that already exist.
// Returns the number of files copied and the number deduplicated.
func mergeTree(src, dest string) (copied, shared int, err error) {
	err = filepath.WalkDir(src, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, relErr := filepath.Rel(src, path)
		if relErr != nil {
			return relErr
		}

		targetPath := filepath.Join(dest, rel)
		if entry.IsDir() {
			return os.MkdirAll(targetPath, 0o755)
		}

		if _, statErr := os.Stat(targetPath); statErr == nil {
			shared++
			return nil
		}

		copied++

		return copyFile(path, targetPath)
	})

	return copied, shared, err
}

func copyFile(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(filepath.Clean(dest), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}
