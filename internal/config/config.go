package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/MeKo-Tech/modelcheck/internal/checker"
	"github.com/MeKo-Tech/modelcheck/internal/discovery"
	"github.com/MeKo-Tech/modelcheck/internal/mirror"
	"github.com/MeKo-Tech/modelcheck/internal/onnx"
	"github.com/MeKo-Tech/modelcheck/internal/runner"
	"gopkg.in/yaml.v3"
)

// Fetch backends.
const (
	BackendLFS  = "lfs"
	BackendS3   = "s3"
	BackendNone = "none"
)

const redacted = "********"

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validBackends  = []string{BackendLFS, BackendS3, BackendNone}
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel:    "info",
		Verbose:     false,
		Root:        ".",
		TestDir:     "",
		Extension:   discovery.DefaultExtension,
		ExcludeDirs: []string{".git"},
		KeepPassed:  false,
		Fetch: FetchConfig{
			Backend:   BackendLFS,
			GitBinary: "git",
			S3: S3Config{
				Region: "us-east-1",
				UseSSL: true,
			},
		},
		Checker: CheckerConfig{
			DataPropagation:   false,
			MaxIRVersion:      onnx.IRVersion,
			CheckCustomDomain: false,
		},
		Runtime: RuntimeConfig{
			Enabled:     false,
			LibraryPath: "",
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if !slices.Contains(validBackends, c.Fetch.Backend) {
		return fmt.Errorf("invalid fetch backend: %s (must be one of: %s)", c.Fetch.Backend, strings.Join(validBackends, ", "))
	}
	if c.Extension == "" {
		return errors.New("extension must not be empty")
	}
	if c.Root == "" {
		return errors.New("root must not be empty")
	}
	if c.Checker.MaxIRVersion < 1 {
		return fmt.Errorf("invalid checker max IR version: %d (must be positive)", c.Checker.MaxIRVersion)
	}
	if c.Fetch.Backend == BackendS3 {
		if c.Fetch.S3.Endpoint == "" {
			return errors.New("fetch.s3.endpoint is required for the s3 backend")
		}
		if c.Fetch.S3.Bucket == "" {
			return errors.New("fetch.s3.bucket is required for the s3 backend")
		}
	}
	return nil
}

// SlogLevel maps the configured log level onto slog. Verbose forces debug.
func (c *Config) SlogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RunnerOptions converts the configuration into runner options.
func (c *Config) RunnerOptions() runner.Options {
	return runner.Options{
		Root:            c.Root,
		TestDir:         c.TestDir,
		Extension:       c.Extension,
		ExcludeDirs:     slices.Clone(c.ExcludeDirs),
		KeepPassed:      c.KeepPassed,
		DataPropagation: c.Checker.DataPropagation,
	}
}

// NewChecker builds a checker from the checker section.
func (c *Config) NewChecker(logger *slog.Logger) *checker.Checker {
	return &checker.Checker{
		MaxIRVersion:      c.Checker.MaxIRVersion,
		DataPropagation:   c.Checker.DataPropagation,
		CheckCustomDomain: c.Checker.CheckCustomDomain,
		Logger:            logger,
	}
}

// MirrorConfig converts the s3 section.
func (c *Config) MirrorConfig() mirror.Config {
	s := c.Fetch.S3
	return mirror.Config{
		Endpoint:  s.Endpoint,
		Region:    s.Region,
		AccessKey: s.AccessKey,
		SecretKey: s.SecretKey,
		Bucket:    s.Bucket,
		Prefix:    s.Prefix,
		UseSSL:    s.UseSSL,
	}
}

// YAML renders the configuration with credentials redacted.
func (c *Config) YAML() ([]byte, error) {
	out := *c
	out.ExcludeDirs = slices.Clone(c.ExcludeDirs)
	if out.Fetch.S3.AccessKey != "" {
		out.Fetch.S3.AccessKey = redacted
	}
	if out.Fetch.S3.SecretKey != "" {
		out.Fetch.S3.SecretKey = redacted
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("error marshaling config: %w", err)
	}
	return data, nil
}
