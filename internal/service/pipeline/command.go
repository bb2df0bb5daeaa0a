package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/telemacy/bridge-packager/internal/appinfo"
	"github.com/telemacy/bridge-packager/internal/assemble"
	"github.com/telemacy/bridge-packager/internal/bundle"
	"github.com/telemacy/bridge-packager/internal/config"
	"github.com/telemacy/bridge-packager/internal/ffmpeg"
	"github.com/telemacy/bridge-packager/internal/installer"
	"github.com/telemacy/bridge-packager/internal/logger"
	"github.com/telemacy/bridge-packager/internal/process"
	"github.com/telemacy/bridge-packager/internal/target"
)

// Options contains inputs for the pipeline entry point.
type Options struct {
	// ConfigPath is an optional path to persist pipeline settings
	// (defaults to bridge-packager.yaml).
	ConfigPath string
	// AppRoot, when set, overrides the settings file and is saved back to it.
	AppRoot string
	// Platform selects the installer packager: "windows" or "darwin".
	Platform string

	// Tool overrides used by tests; empty values select the real tools.
	InstallerTool string
	RichTool      string
	FallbackTool  string
}

// Result reports what a successful run produced.
type Result struct {
	// BundleDir is the merged output tree, always present on success.
	BundleDir string
	// Artifact is the installer path; empty when the installer tool was
	// absent and the stage was skipped with a warning.
	Artifact string
}

var errUnsupportedPlatform = errors.New("unsupported target platform")

// runner holds the state threaded through one pipeline execution.
// It is intentionally unexported; callers use Run.
type runner struct {
	cfg      *config.Config
	platform string
	opts     *Options

	ffmpegPath  string
	executables []*assemble.Executable
	merged      *bundle.Bundle
}

// Run executes the full packaging sequence for one platform: clean,
// provision, assemble both targets, collect, resolve the version and package
// the installer. Every stage must fully complete before the next begins; any
// failure aborts the run except a missing installer tool, which degrades to a
// bundle-only success.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "bridge-packager")

	if opts.Platform != "windows" && opts.Platform != "darwin" {
		return nil, fmt.Errorf("%w: %s", errUnsupportedPlatform, opts.Platform)
	}

	cfg, err := loadSettings(opts)
	if err != nil {
		return nil, err
	}

	r := &runner{cfg: cfg, platform: opts.Platform, opts: opts}

	return r.run(ctx)
}

// Provision runs only the external-binary provisioning stage for the given
// platform, resolving settings the same way Run does. It returns the canonical
// cached binary path.
func Provision(ctx context.Context, platform string, opts *Options) (string, error) {
	ctx = logger.WithName(ctx, "bridge-packager")

	cfg, err := loadSettings(opts)
	if err != nil {
		return "", err
	}

	return provisionBinary(ctx, platform, cfg)
}

// loadSettings loads the settings file, or builds and persists one from the
// provided application root.
func loadSettings(opts *Options) (*config.Config, error) {
	if opts.AppRoot == "" {
		return config.Load(opts.ConfigPath)
	}

	cfg := &config.Config{AppRoot: opts.AppRoot}
	if err := config.Save(opts.ConfigPath, cfg); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}

	return cfg, nil
}

func (r *runner) run(ctx context.Context) (*Result, error) {
	if err := r.clean(ctx); err != nil {
		return nil, err
	}

	if err := r.provision(ctx); err != nil {
		return nil, err
	}

	if err := r.assembleAll(ctx); err != nil {
		return nil, err
	}

	if err := r.collect(ctx); err != nil {
		return nil, err
	}

	return r.packageInstaller(ctx)
}

// clean terminates stale application instances and removes any previous
// output tree, so no run ever observes another run's partial state.
func (r *runner) clean(ctx context.Context) error {
	logger.Info(ctx, "Terminating running application instances")

	if err := process.TerminateByName(ctx, target.ProcessNames()...); err != nil {
		return fmt.Errorf("terminate running instances: %w", err)
	}

	logger.InfoKV(ctx, "Cleaning output tree", "dir", r.cfg.OutputDir)

	if err := os.RemoveAll(r.cfg.OutputDir); err != nil {
		return fmt.Errorf("remove output tree: %w", err)
	}

	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output tree: %w", err)
	}

	return nil
}

func (r *runner) provision(ctx context.Context) error {
	path, err := provisionBinary(ctx, r.platform, r.cfg)
	if err != nil {
		return err
	}

	r.ffmpegPath = path

	return nil
}

// provisionBinary drives the external-binary provisioner with the configured
// settings, bounding the download with the tool timeout.
func provisionBinary(ctx context.Context, platform string, cfg *config.Config) (string, error) {
	return ffmpeg.Ensure(ctx, platform, ffmpeg.Options{
		CacheDir: cfg.CacheDir,
		URL:      cfg.FFmpegURL,
		Client:   &http.Client{Timeout: cfg.ToolTimeout},
	})
}

// toolContext derives a context bounding one external tool invocation with the
// configured timeout.
func (r *runner) toolContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.cfg.ToolTimeout)
}

// assembleAll builds the bridge and then the tracker, strictly sequentially.
func (r *runner) assembleAll(ctx context.Context) error {
	buildOpts := assemble.Options{
		AppRoot:  r.cfg.AppRoot,
		Python:   r.cfg.Python,
		DistDir:  filepath.Join(r.cfg.OutputDir, "build"),
		WorkDir:  filepath.Join(r.cfg.OutputDir, "work"),
		Platform: r.platform,
	}

	for _, t := range []target.Target{target.Bridge(r.ffmpegPath), target.Tracker()} {
		exe, err := r.buildTarget(ctx, t, buildOpts)
		if err != nil {
			return err
		}

		r.executables = append(r.executables, exe)
	}

	return nil
}

func (r *runner) buildTarget(ctx context.Context, t target.Target, opts assemble.Options) (*assemble.Executable, error) {
	buildCtx, cancel := r.toolContext(ctx)
	defer cancel()

	return assemble.Build(buildCtx, t, target.Exclusions(t), opts)
}

func (r *runner) collect(ctx context.Context) error {
	icon := filepath.Join(r.cfg.AppRoot, "favicon.png")
	if _, err := os.Stat(icon); err != nil {
		icon = ""
	}

	merged, err := bundle.Collect(ctx, r.executables, bundle.Options{
		Dir:  filepath.Join(r.cfg.OutputDir, appinfo.BundleName),
		Icon: icon,
	})
	if err != nil {
		return err
	}

	r.merged = merged

	return nil
}

// packageInstaller resolves the release version and drives the platform
// packager. The version is resolved only now: assembly does not embed it, so
// resolution failures cannot waste a completed build earlier in the run.
func (r *runner) packageInstaller(ctx context.Context) (*Result, error) {
	result := &Result{BundleDir: r.merged.Dir}

	versionCtx, cancel := r.toolContext(ctx)
	defer cancel()

	version, err := appinfo.CurrentVersion(versionCtx, r.cfg.Python, r.cfg.AppRoot)
	if err != nil {
		return nil, fmt.Errorf("installer requires a resolved version: %w", err)
	}

	logger.InfoKV(ctx, "Packaging installer", "platform", r.platform, "version", version)

	var artifact string

	switch r.platform {
	case "windows":
		artifact, err = r.packageWindows(ctx, version)
	case "darwin":
		artifact, err = r.packageDarwin(ctx, version)
	}

	if errors.Is(err, installer.ErrInstallerToolMissing) {
		// WrapApp may have relocated the merged tree by now.
		result.BundleDir = r.merged.Dir

		logger.WarnKV(ctx, "Installer tool unavailable, shipping the bare bundle",
			"bundle", result.BundleDir, "error", err)

		return result, nil
	}

	if err != nil {
		return nil, err
	}

	result.BundleDir = r.merged.Dir
	result.Artifact = artifact

	return result, nil
}

func (r *runner) packageWindows(ctx context.Context, version string) (string, error) {
	ctx, cancel := r.toolContext(ctx)
	defer cancel()

	return installer.PackageWindows(ctx, installer.WindowsOptions{
		BundleDir:       r.merged.Dir,
		OutputDir:       r.cfg.OutputDir,
		Version:         version,
		AppName:         appinfo.AppName,
		ArtifactBase:    appinfo.BundleName,
		BridgeLauncher:  target.BridgeName + ".exe",
		TrackerLauncher: target.TrackerName + ".exe",
		Tool:            r.opts.InstallerTool,
	})
}

func (r *runner) packageDarwin(ctx context.Context, version string) (string, error) {
	icon := filepath.Join(r.cfg.AppRoot, "assets", "app.icns")
	if _, err := os.Stat(icon); err != nil {
		icon = ""
	}

	appDir, err := bundle.WrapApp(ctx, r.merged, bundle.AppBundleOptions{
		Name:       appinfo.AppName,
		Identifier: appinfo.BundleIdentifier,
		Version:    version,
		Executable: target.BridgeName,
		Icon:       icon,
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := r.toolContext(ctx)
	defer cancel()

	return installer.PackageDarwin(ctx, installer.DarwinOptions{
		AppDir:       appDir,
		OutputDir:    r.cfg.OutputDir,
		Version:      version,
		VolumeName:   appinfo.AppName,
		ArtifactBase: appinfo.BundleName,
		RichTool:     r.opts.RichTool,
		FallbackTool: r.opts.FallbackTool,
	})
}
