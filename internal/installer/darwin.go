package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/telemacy/bridge-packager/internal/logger"
	"github.com/telemacy/bridge-packager/internal/toolchain"
)

// DarwinOptions configures macOS disk-image assembly.
type DarwinOptions struct {
	// AppDir is the wrapped .app bundle.
	AppDir string
	// OutputDir receives the final disk image.
	OutputDir string
	// Version is embedded in the artifact filename.
	Version string
	// VolumeName is the mounted volume title.
	VolumeName string
	// ArtifactBase is the artifact-safe name used in the filename.
	ArtifactBase string
	// RichTool and FallbackTool override the layout tool and the raw image
	// converter (defaults "create-dmg" and "hdiutil").
	RichTool     string
	FallbackTool string
}

const hdiutilRemediation = "hdiutil ships with macOS; run the macOS driver on a macOS host"

// PackageDarwin produces the distributable disk image. The rich path lays out
// the image window with an /Applications drag target; any rich-path failure
// falls back to a minimal raw conversion so a missing cosmetic tool never
// blocks the release.
func PackageDarwin(ctx context.Context, opts DarwinOptions) (string, error) {
	artifact := filepath.Join(opts.OutputDir,
		fmt.Sprintf("%s-%s.dmg", opts.ArtifactBase, opts.Version))

	err := richImage(ctx, opts, artifact)
	if err == nil {
		return artifact, nil
	}

	logger.WarnKV(ctx, "Rich disk-image layout failed, using minimal fallback", "error", err)

	if err = fallbackImage(ctx, opts, artifact); err != nil {
		return "", err
	}

	return artifact, nil
}

// richImage drives create-dmg: window geometry, icon placement and the
// drag-to-install affordance.
func richImage(ctx context.Context, opts DarwinOptions, artifact string) error {
	tool := opts.RichTool
	if tool == "" {
		tool = "create-dmg"
	}

	toolPath, err := toolchain.Lookup(tool, "brew install create-dmg")
	if err != nil {
		return err
	}

	// A stale artifact makes create-dmg refuse to run.
	_ = os.Remove(artifact)

	appName := filepath.Base(opts.AppDir)

	_, err = toolchain.Run(ctx, opts.OutputDir, toolPath,
		"--volname", opts.VolumeName,
		"--window-pos", "200", "120",
		"--window-size", "600", "400",
		"--icon-size", "100",
		"--icon", appName, "150", "185",
		"--app-drop-link", "450", "185",
		artifact,
		opts.AppDir,
	)
	if err != nil {
		return err
	}

	if _, err = os.Stat(artifact); err != nil {
		return fmt.Errorf("disk image missing after layout: %w", err)
	}

	return nil
}

// fallbackImage performs the minimal raw conversion of the app directory.
// Only a failure here fails the packaging stage.
func fallbackImage(ctx context.Context, opts DarwinOptions, artifact string) error {
	tool := opts.FallbackTool
	if tool == "" {
		tool = "hdiutil"
	}

	toolPath, err := toolchain.Lookup(tool, hdiutilRemediation)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInstallerToolMissing, err)
	}

	_ = os.Remove(artifact)

	_, err = toolchain.Run(ctx, opts.OutputDir, toolPath,
		"create",
		"-volname", opts.VolumeName,
		"-srcfolder", opts.AppDir,
		"-ov",
		"-format", "UDZO",
		artifact,
	)
	if err != nil {
		return fmt.Errorf("assemble disk image: %w", err)
	}

	if _, err = os.Stat(artifact); err != nil {
		return fmt.Errorf("disk image missing after conversion: %w", err)
	}

	logger.InfoKV(ctx, "Disk image assembled via fallback path", "path", artifact)

	return nil
}
