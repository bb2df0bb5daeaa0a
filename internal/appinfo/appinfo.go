package appinfo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/telemacy/bridge-packager/internal/toolchain"
)

const (
	// AppName is the product name of the packaged application.
	AppName = "ScriptCompiler Bridge"

	// BundleName is the artifact-safe name used in output filenames.
	BundleName = "ScriptCompilerBridge"

	// BundleIdentifier is the reverse-DNS identifier used by the macOS app bundle.
	BundleIdentifier = "com.telemacy.scriptcompiler-bridge"

	// versionSnippet evaluates the application's own configuration module,
	// keeping it the single source of truth for the release version.
	versionSnippet = "from bridge.config import BRIDGE_VERSION; print(BRIDGE_VERSION)"
)

// ErrVersionUnresolved marks a failure to evaluate the application's version.
// It aborts the installer stage only; executable assembly does not embed it.
var ErrVersionUnresolved = errors.New("application version could not be resolved")

// versionPattern accepts plain semantic versions like "2.3.0".
var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// CurrentVersion resolves the release version by evaluating the application's
// configuration module with the configured interpreter, run from the app root.
func CurrentVersion(ctx context.Context, python, appRoot string) (string, error) {
	out, err := toolchain.Run(ctx, appRoot, python, "-c", versionSnippet)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVersionUnresolved, err)
	}

	return ParseVersionOutput(string(out))
}

// ParseVersionOutput extracts and validates the version from interpreter output.
// The last non-empty line is used so interpreter warnings on earlier lines are ignored.
func ParseVersionOutput(output string) (string, error) {
	var version string

	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			version = line
		}
	}

	if !versionPattern.MatchString(version) {
		return "", fmt.Errorf("%w: unexpected output %q", ErrVersionUnresolved, output)
	}

	return version, nil
}
