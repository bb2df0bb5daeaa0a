package assemble

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/telemacy/bridge-packager/internal/logger"
	"github.com/telemacy/bridge-packager/internal/target"
	"github.com/telemacy/bridge-packager/internal/toolchain"
)

// ErrConflict marks a build descriptor that excludes one of its own required
// imports. The underlying bundler would silently produce a broken executable,
// so the conflict aborts the build before the bundler is ever invoked.
var ErrConflict = errors.New("excluded package is a required import")

// Error is an assembly failure carrying the bundler diagnostic verbatim.
type Error struct {
	Target string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("assemble %s: %v", e.Target, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Executable is the assembled output tree for one target.
type Executable struct {
	// Name is the target name.
	Name string
	// Dir is the per-target output tree (launcher + packed runtime).
	Dir string
	// Launcher is the launcher filename inside Dir.
	Launcher string
}

// Options configures one assembly run.
type Options struct {
	// AppRoot is the application source root; relative resource paths and the
	// entry point resolve against it, never against the invoking directory.
	AppRoot string
	// Python is the interpreter driving the bundler.
	Python string
	// DistDir receives one subdirectory per assembled target.
	DistDir string
	// WorkDir holds the bundler's intermediate build state.
	WorkDir string
	// Platform is the GOOS-style platform being packaged for.
	Platform string
}

const remediation = "install the bundler into the build interpreter: pip install pyinstaller"

// Build assembles one target with the given exclusion set. On bundler failure
// the returned *Error carries the toolchain diagnostic unmodified.
func Build(ctx context.Context, t target.Target, exclusions []string, opts Options) (*Executable, error) {
	ctx = logger.WithKV(ctx, "target", t.Name)

	if err := checkConflicts(t, exclusions); err != nil {
		return nil, err
	}

	if _, err := toolchain.Lookup(opts.Python, remediation); err != nil {
		return nil, err
	}

	args, err := commandArgs(t, exclusions, opts)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Assembling executable", "entry", t.Entry)

	if _, err = toolchain.Run(ctx, opts.AppRoot, opts.Python, args...); err != nil {
		return nil, &Error{Target: t.Name, Err: err}
	}

	launcher := t.Name + launcherExtension(opts.Platform)
	dir := filepath.Join(opts.DistDir, t.Name)

	if _, err = os.Stat(filepath.Join(dir, launcher)); err != nil {
		return nil, &Error{Target: t.Name, Err: fmt.Errorf("launcher missing after build: %w", err)}
	}

	logger.InfoKV(ctx, "Executable assembled", "dir", dir)

	return &Executable{Name: t.Name, Dir: dir, Launcher: launcher}, nil
}

// checkConflicts enforces the required-import-wins contract: a name may not
// appear in both the hidden-import set and the exclusion set, including as a
// parent package of a hidden import.
func checkConflicts(t target.Target, exclusions []string) error {
	for _, required := range t.HiddenImports {
		for _, excluded := range exclusions {
			if required == excluded || strings.HasPrefix(required, excluded+".") {
				return fmt.Errorf("%w: %s requires %q but excludes %q", ErrConflict, t.Name, required, excluded)
			}
		}
	}

	return nil
}

// commandArgs builds the bundler invocation for a target.
func commandArgs(t target.Target, exclusions []string, opts Options) ([]string, error) {
	args := []string{
		"-m", "PyInstaller",
		"--noconfirm",
		"--clean",
		"--name", t.Name,
		"--distpath", opts.DistDir,
		"--workpath", opts.WorkDir,
		"--specpath", opts.WorkDir,
	}

	if t.Windowed {
		args = append(args, "--noconsole")
	}

	// Icon is optional per platform; a target without one builds without it.
	if icon, ok := t.Icons[opts.Platform]; ok {
		args = append(args, "--icon", resolvePath(opts.AppRoot, icon))
	}

	for _, imported := range t.HiddenImports {
		args = append(args, "--hidden-import", imported)
	}

	for _, excluded := range exclusions {
		args = append(args, "--exclude-module", excluded)
	}

	for _, res := range t.Resources {
		source := resolvePath(opts.AppRoot, res.Source)
		if _, err := os.Stat(source); err != nil {
			return nil, &Error{Target: t.Name, Err: fmt.Errorf("resource %s: %w", res.Source, err)}
		}

		mapping := source + resourceSeparator(opts.Platform) + res.Dest
		if res.Binary {
			args = append(args, "--add-binary", mapping)
		} else {
			args = append(args, "--add-data", mapping)
		}
	}

	return append(args, t.Entry), nil
}

// resolvePath anchors relative paths at the application root so builds do not
// depend on the invoking shell's working directory.
func resolvePath(appRoot, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(appRoot, path)
}

// resourceSeparator is the bundler's source/dest separator, which differs on
// Windows because of drive-letter colons.
func resourceSeparator(platform string) string {
	if platform == "windows" {
		return ";"
	}

	return ":"
}

func launcherExtension(platform string) string {
	if platform == "windows" {
		return ".exe"
	}

	return ""
}
