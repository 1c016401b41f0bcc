package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "modelcheck"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "MODELCHECK"

	// DotEnvFile is read from the working directory before the environment.
	DotEnvFile = ".env"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader around its own viper instance, so that several
// commands in one process do not share flag bindings.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// Load reads the configuration from the search paths, or from configFile
// when it is set, then validates it.
func (l *Loader) Load(configFile string) (*Config, error) {
	cfg, err := l.LoadWithoutValidation(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithoutValidation reads the configuration without validating it.
func (l *Loader) LoadWithoutValidation(configFile string) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	if err := l.setupEnvironmentVariables(); err != nil {
		return nil, err
	}
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for flag binding.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setupEnvironmentVariables loads .env and configures environment variable
// handling. Variables already set in the environment win over .env.
func (l *Loader) setupEnvironmentVariables() error {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading %s: %w", DotEnvFile, err)
	}
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	return nil
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)
	l.v.SetDefault("root", defaults.Root)
	l.v.SetDefault("test_dir", defaults.TestDir)
	l.v.SetDefault("extension", defaults.Extension)
	l.v.SetDefault("exclude_dirs", defaults.ExcludeDirs)
	l.v.SetDefault("keep_passed", defaults.KeepPassed)

	l.v.SetDefault("fetch.backend", defaults.Fetch.Backend)
	l.v.SetDefault("fetch.git_binary", defaults.Fetch.GitBinary)
	l.v.SetDefault("fetch.s3.endpoint", defaults.Fetch.S3.Endpoint)
	l.v.SetDefault("fetch.s3.region", defaults.Fetch.S3.Region)
	l.v.SetDefault("fetch.s3.access_key", defaults.Fetch.S3.AccessKey)
	l.v.SetDefault("fetch.s3.secret_key", defaults.Fetch.S3.SecretKey)
	l.v.SetDefault("fetch.s3.bucket", defaults.Fetch.S3.Bucket)
	l.v.SetDefault("fetch.s3.prefix", defaults.Fetch.S3.Prefix)
	l.v.SetDefault("fetch.s3.use_ssl", defaults.Fetch.S3.UseSSL)

	l.v.SetDefault("checker.data_propagation", defaults.Checker.DataPropagation)
	l.v.SetDefault("checker.max_ir_version", defaults.Checker.MaxIRVersion)
	l.v.SetDefault("checker.check_custom_domain", defaults.Checker.CheckCustomDomain)

	l.v.SetDefault("runtime.enabled", defaults.Runtime.Enabled)
	l.v.SetDefault("runtime.library_path", defaults.Runtime.LibraryPath)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "modelcheck"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "modelcheck"))
	}

	paths = append(paths, "/etc/modelcheck")
	return paths
}

// LogConfigInfo logs where configuration came from.
func (l *Loader) LogConfigInfo(logger *slog.Logger) {
	logger.Debug("configuration loaded",
		"file", l.GetConfigFileUsed(),
		"search_paths", GetConfigSearchPaths(),
		"env_prefix", EnvPrefix,
	)
}
