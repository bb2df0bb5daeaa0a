package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the packaging pipeline settings shared by all platform drivers.
type Config struct {
	// AppRoot is the path to the ScriptCompiler Bridge source checkout.
	AppRoot string `yaml:"app_root"`
	// OutputDir is where assembled executables, the merged bundle and the
	// final installer artifact are written. Removed and recreated on every run.
	OutputDir string `yaml:"output_dir"`
	// CacheDir is the local cache for provisioned external binaries (ffmpeg).
	// Unlike OutputDir it survives between runs.
	CacheDir string `yaml:"cache_dir"`
	// Python is the interpreter used to evaluate the application's config
	// module and to drive the bundling toolchain.
	Python string `yaml:"python"`
	// FFmpegURL optionally overrides the platform-default release archive URL.
	FFmpegURL string `yaml:"ffmpeg_url,omitempty"`
	// ToolTimeout bounds every external tool invocation and download.
	ToolTimeout time.Duration `yaml:"tool_timeout"`
}

const (
	// DefaultConfigFilename is the default filename for pipeline settings.
	DefaultConfigFilename = "bridge-packager.yaml"

	// DefaultOutputDirname is the output tree created next to the app root.
	DefaultOutputDirname = "dist"

	// DefaultToolTimeout bounds external tool invocations and the ffmpeg download.
	DefaultToolTimeout = 5 * time.Minute

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// cacheDirname is the per-user cache directory, shared with the
	// application's own settings directory.
	cacheDirname = ".scriptcompiler-bridge"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errAppRootRequired is returned when the application source root is missing.
	errAppRootRequired = errors.New("application source root must be provided")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.AppRoot == "" {
		return errAppRootRequired
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(cfg.AppRoot, DefaultOutputDirname)
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = defaultCacheDir()
	}

	if cfg.Python == "" {
		cfg.Python = defaultPython()
	}

	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = DefaultToolTimeout
	}

	if cfg.FFmpegURL == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(cfg.FFmpegURL); err != nil {
		return fmt.Errorf("invalid ffmpeg archive URI: %w", err)
	}

	return nil
}

// defaultCacheDir places the binary cache under the application's per-user
// settings directory, falling back to a relative directory when the home
// directory cannot be determined.
func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(cacheDirname, "cache")
	}

	return filepath.Join(home, cacheDirname, "cache")
}

func defaultPython() string {
	return "python3"
}
