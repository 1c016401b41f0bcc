package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MeKo-Tech/modelcheck/internal/config"
	"github.com/MeKo-Tech/modelcheck/internal/lfs"
	"github.com/MeKo-Tech/modelcheck/internal/mirror"
	"github.com/MeKo-Tech/modelcheck/internal/ortcheck"
	"github.com/MeKo-Tech/modelcheck/internal/report"
	"github.com/MeKo-Tech/modelcheck/internal/runner"
	"github.com/MeKo-Tech/modelcheck/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// app holds the state shared by one command tree.
type app struct {
	loader  *config.Loader
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = NewRootCommand()

// NewRootCommand builds a command tree with its own configuration loader.
func NewRootCommand() *cobra.Command {
	a := &app{loader: config.NewLoader()}

	cmd := &cobra.Command{
		Use:   "modelcheck",
		Short: "Validate every ONNX model in a repository",
		Long: `modelcheck walks a model repository, fetches the content of each ONNX file,
runs the structural checker and shape inference on it and deletes the files that
pass so that disk usage stays bounded. Failures are collected and reported at the
end; the exit status is non-zero when any model failed.

Examples:
  modelcheck
  modelcheck --test_dir vision --keep-passed
  modelcheck --backend s3 --config ci.yaml
  modelcheck inspect model.onnx`,
		Args:              cobra.NoArgs,
		Version:           version.String(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.runCheck,
	}
	cmd.SetGlobalNormalizationFunc(normalizeFlagName)

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is search in ., $XDG_CONFIG_HOME/modelcheck, /etc/modelcheck)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.Bool("runtime", false, "also load each model in ONNX Runtime")
	pf.String("runtime-lib", "", "path to the ONNX Runtime shared library")
	pf.Bool("data-propagation", false, "propagate constant shape data during inference")

	f := cmd.Flags()
	f.String("root", ".", "repository root to search")
	f.String("test_dir", "", "only check models below this directory of the root")
	f.String("extension", ".onnx", "file extension of model files")
	f.StringSlice("exclude", []string{".git"}, "directory names to skip")
	f.Bool("keep-passed", false, "keep models that pass instead of deleting them")
	f.String("backend", config.BackendLFS, "content backend (lfs, s3, none)")

	v := a.loader.GetViper()
	_ = v.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = v.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = v.BindPFlag("runtime.enabled", pf.Lookup("runtime"))
	_ = v.BindPFlag("runtime.library_path", pf.Lookup("runtime-lib"))
	_ = v.BindPFlag("checker.data_propagation", pf.Lookup("data-propagation"))
	_ = v.BindPFlag("root", f.Lookup("root"))
	_ = v.BindPFlag("test_dir", f.Lookup("test_dir"))
	_ = v.BindPFlag("extension", f.Lookup("extension"))
	_ = v.BindPFlag("exclude_dirs", f.Lookup("exclude"))
	_ = v.BindPFlag("keep_passed", f.Lookup("keep-passed"))
	_ = v.BindPFlag("fetch.backend", f.Lookup("backend"))

	cmd.AddCommand(
		newInspectCommand(a),
		newConfigCommand(a),
		newRuntimeCommand(a),
		newVersionCommand(),
	)
	return cmd
}

// normalizeFlagName accepts --test-dir for --test_dir.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "test-dir" {
		name = "test_dir"
	}
	return pflag.NormalizedName(name)
}

// Execute runs the root command and exits non-zero on any error. SIGINT and
// SIGTERM stop the run between models.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, runner.ErrModelsFailed) {
			_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

// setup loads the configuration and installs the JSON logger on stderr.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := a.loader.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(a.logger)
	a.loader.LogConfigInfo(a.logger)
	return nil
}

func (a *app) runCheck(cmd *cobra.Command, _ []string) error {
	materializer, err := a.materializer()
	if err != nil {
		return err
	}
	options := []runner.Option{
		runner.WithMaterializer(materializer),
		runner.WithValidator(a.cfg.NewChecker(a.logger)),
		runner.WithReporter(report.New(cmd.OutOrStdout())),
		runner.WithLogger(a.logger),
	}
	if tracker, err := lfs.OpenTracker(a.cfg.Root); err != nil {
		a.logger.Debug("lfs tracking unavailable", "error", err)
	} else {
		options = append(options, runner.WithTracker(tracker))
	}
	if prober := a.prober(); prober != nil {
		defer a.closeProber(prober)
		options = append(options, runner.WithProber(prober))
	}

	_, err = runner.New(a.cfg.RunnerOptions(), options...).Run(cmd.Context())
	return err
}

// materializer selects the content backend.
func (a *app) materializer() (runner.Materializer, error) {
	switch a.cfg.Fetch.Backend {
	case config.BackendS3:
		store, err := mirror.New(a.cfg.MirrorConfig(), a.cfg.Root, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 backend: %w", err)
		}
		return store, nil
	case config.BackendNone:
		return runner.None{}, nil
	default:
		return lfs.NewClient(a.cfg.Root,
			lfs.WithGitBinary(a.cfg.Fetch.GitBinary),
			lfs.WithLogger(a.logger),
		), nil
	}
}

// prober returns nil unless the runtime check is enabled.
func (a *app) prober() *ortcheck.Prober {
	if !a.cfg.Runtime.Enabled {
		return nil
	}
	return ortcheck.New(a.cfg.Runtime.LibraryPath, a.logger)
}

func (a *app) closeProber(p *ortcheck.Prober) {
	if err := p.Close(); err != nil {
		a.logger.Warn("failed to release ONNX Runtime", "error", err)
	}
}
