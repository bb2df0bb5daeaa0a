package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/telemacy/bridge-packager/internal/config"
	"github.com/telemacy/bridge-packager/internal/logger"
	"github.com/telemacy/bridge-packager/internal/service/pipeline"
	"github.com/telemacy/bridge-packager/internal/toolchain"
	"github.com/telemacy/bridge-packager/internal/version"
)

// Exit codes of the build entry points. A missing prerequisite tool is
// distinguished from ordinary build failures so CI can tell an environment
// problem from a broken build.
const (
	exitFailure     = 1
	exitToolMissing = 2
)

var (
	// configPath to the pipeline settings YAML file.
	configPath string

	// appRoot optionally overrides the application source root from settings.
	appRoot string

	// logLevel sets the logger verbosity.
	logLevel string

	// rootCmd represents the base command of the release packager.
	rootCmd = &cobra.Command{
		Use:   "bridge-packager",
		Short: "Package ScriptCompiler Bridge into a platform distributable",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if lvl, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(lvl)
			}
		},
	}
)

// Execute runs the bridge-packager CLI and exits with a non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, toolchain.ErrToolMissing) {
			os.Exit(exitToolMissing)
		}

		os.Exit(exitFailure)
	}
}

// newPlatformCommand builds one platform driver subcommand.
func newPlatformCommand(use, short, platform string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &pipeline.Options{
				ConfigPath: configPath,
				AppRoot:    appRoot,
				Platform:   platform,
			}

			result, err := pipeline.Run(ctx, options)
			if err != nil {
				return err
			}

			if result.Artifact != "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.Artifact)
			} else {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.BundleDir)
			}

			return nil
		},
	}
}

// provisionCmd exposes the external-binary provisioner on its own, mostly for
// warming CI caches.
var provisionCmd = &cobra.Command{
	Use:   "provision [platform]",
	Short: "Download and cache the ffmpeg binary for a platform",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		platform := runtime.GOOS
		if len(args) > 0 {
			platform = args[0]
		}

		path, err := pipeline.Provision(ctx, platform, &pipeline.Options{
			ConfigPath: configPath,
			AppRoot:    appRoot,
		})
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to pipeline settings file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&appRoot, "app-root", "", "application source root (overrides and updates settings)")

	rootCmd.AddCommand(
		newPlatformCommand("windows", "Build the bundle and the Windows installer", "windows"),
		newPlatformCommand("macos", "Build the bundle and the macOS disk image", "darwin"),
		provisionCmd,
	)
}
