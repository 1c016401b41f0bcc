//nolint:lll
package config

// Config represents the complete configuration for a modelcheck run. It is
// loaded from configuration files, environment variables and command-line
// flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Discovery
	Root        string   `mapstructure:"root" yaml:"root" json:"root"`
	TestDir     string   `mapstructure:"test_dir" yaml:"test_dir" json:"test_dir"`
	Extension   string   `mapstructure:"extension" yaml:"extension" json:"extension"`
	ExcludeDirs []string `mapstructure:"exclude_dirs" yaml:"exclude_dirs" json:"exclude_dirs"`

	// KeepPassed leaves passing model files on disk.
	KeepPassed bool `mapstructure:"keep_passed" yaml:"keep_passed" json:"keep_passed"`

	// Content materialization
	Fetch FetchConfig `mapstructure:"fetch" yaml:"fetch" json:"fetch"`

	// Validation
	Checker CheckerConfig `mapstructure:"checker" yaml:"checker" json:"checker"`

	// ONNX Runtime probe
	Runtime RuntimeConfig `mapstructure:"runtime" yaml:"runtime" json:"runtime"`
}

// FetchConfig selects how model content is materialized.
type FetchConfig struct {
	Backend   string   `mapstructure:"backend" yaml:"backend" json:"backend"`
	GitBinary string   `mapstructure:"git_binary" yaml:"git_binary" json:"git_binary"`
	S3        S3Config `mapstructure:"s3" yaml:"s3" json:"s3"`
}

// S3Config describes the bucket mirroring LFS content.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region" json:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key" json:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key" json:"secret_key"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket" json:"bucket"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl" json:"use_ssl"`
}

// CheckerConfig tunes model validation.
type CheckerConfig struct {
	DataPropagation   bool  `mapstructure:"data_propagation" yaml:"data_propagation" json:"data_propagation"`
	MaxIRVersion      int64 `mapstructure:"max_ir_version" yaml:"max_ir_version" json:"max_ir_version"`
	CheckCustomDomain bool  `mapstructure:"check_custom_domain" yaml:"check_custom_domain" json:"check_custom_domain"`
}

// RuntimeConfig controls the ONNX Runtime load probe.
type RuntimeConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	LibraryPath string `mapstructure:"library_path" yaml:"library_path" json:"library_path"`
}
