package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrToolMissing marks a required external build tool that is absent from PATH.
// Callers match it with errors.Is to map the failure to a distinct exit code.
var ErrToolMissing = errors.New("required tool not found")

// Lookup resolves a tool on PATH. When absent, the returned error wraps
// ErrToolMissing and carries human-readable remediation instructions.
// The pipeline never attempts to install missing tools itself.
func Lookup(name, remediation string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s (%s)", ErrToolMissing, name, remediation)
	}

	return path, nil
}

// Run executes a tool and returns its captured stdout. On a non-zero exit the
// error message carries the tool's stderr verbatim so diagnostics stay actionable.
func Run(ctx context.Context, dir, tool string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return stdout.Bytes(), fmt.Errorf("%s: %w: %s", tool, err, stderr.String())
		}

		return stdout.Bytes(), fmt.Errorf("%s: %w", tool, err)
	}

	return stdout.Bytes(), nil
}
