package config

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/MeKo-Tech/modelcheck/internal/onnx"
)

// TestDefaultConfigIsValid tests that the defaults pass validation.
func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig() invalid: %v", err)
	}
	if cfg.Checker.MaxIRVersion != onnx.IRVersion {
		t.Errorf("Expected max IR version %d, got %d", onnx.IRVersion, cfg.Checker.MaxIRVersion)
	}
}

// TestValidate tests each validation rule.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"bad backend", func(c *Config) { c.Fetch.Backend = "ftp" }, "invalid fetch backend"},
		{"empty extension", func(c *Config) { c.Extension = "" }, "extension must not be empty"},
		{"empty root", func(c *Config) { c.Root = "" }, "root must not be empty"},
		{"bad ir version", func(c *Config) { c.Checker.MaxIRVersion = 0 }, "max IR version"},
		{"s3 without endpoint", func(c *Config) {
			c.Fetch.Backend = BackendS3
			c.Fetch.S3.Bucket = "zoo"
		}, "fetch.s3.endpoint is required"},
		{"s3 without bucket", func(c *Config) {
			c.Fetch.Backend = BackendS3
			c.Fetch.S3.Endpoint = "minio:9000"
		}, "fetch.s3.bucket is required"},
		{"none backend", func(c *Config) { c.Fetch.Backend = BackendNone }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

// TestSlogLevel tests the log level mapping.
func TestSlogLevel(t *testing.T) {
	cfg := DefaultConfig()
	levels := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for name, want := range levels {
		cfg.LogLevel = name
		if got := cfg.SlogLevel(); got != want {
			t.Errorf("SlogLevel(%s) = %v, want %v", name, got, want)
		}
	}

	cfg.LogLevel = "error"
	cfg.Verbose = true
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Error("verbose must force debug")
	}
}

// TestConversions tests the config to component conversions.
func TestConversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TestDir = "text"
	cfg.KeepPassed = true
	cfg.Checker.DataPropagation = true
	cfg.Checker.CheckCustomDomain = true
	cfg.Fetch.S3 = S3Config{Endpoint: "minio:9000", Bucket: "zoo", Prefix: "p", Region: "eu-west-1"}

	opts := cfg.RunnerOptions()
	if opts.TestDir != "text" || !opts.KeepPassed || !opts.DataPropagation || opts.Extension != ".onnx" {
		t.Errorf("Unexpected runner options %+v", opts)
	}
	opts.ExcludeDirs[0] = "changed"
	if cfg.ExcludeDirs[0] != ".git" {
		t.Error("RunnerOptions must copy exclude_dirs")
	}

	c := cfg.NewChecker(slog.Default())
	if !c.CheckCustomDomain || c.MaxIRVersion != onnx.IRVersion {
		t.Errorf("Unexpected checker %+v", c)
	}

	m := cfg.MirrorConfig()
	if m.Endpoint != "minio:9000" || m.Bucket != "zoo" || m.Prefix != "p" || m.Region != "eu-west-1" {
		t.Errorf("Unexpected mirror config %+v", m)
	}
}

// TestYAMLRedactsSecrets tests the rendered configuration.
func TestYAMLRedactsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fetch.S3.AccessKey = "AKIA123"
	cfg.Fetch.S3.SecretKey = "hunter2"

	data, err := cfg.YAML()
	if err != nil {
		t.Fatalf("YAML() unexpected error: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "hunter2") || strings.Contains(out, "AKIA123") {
		t.Error("YAML() leaked credentials")
	}
	if !strings.Contains(out, "secret_key: '********'") && !strings.Contains(out, `secret_key: "********"`) {
		t.Errorf("YAML() missing redacted secret:\n%s", out)
	}
	if !strings.Contains(out, "log_level: info") {
		t.Errorf("YAML() missing log_level:\n%s", out)
	}
	if cfg.Fetch.S3.SecretKey != "hunter2" {
		t.Error("YAML() must not modify the config")
	}
}
