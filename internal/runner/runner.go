// Package runner drives a validation run: discover model files, materialize
// each one, validate it and report the outcome.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/modelcheck/internal/checker"
	"github.com/MeKo-Tech/modelcheck/internal/discovery"
	"github.com/MeKo-Tech/modelcheck/internal/metrics"
	"github.com/MeKo-Tech/modelcheck/internal/onnx"
	"github.com/MeKo-Tech/modelcheck/internal/report"
	"github.com/MeKo-Tech/modelcheck/internal/shapeinfer"
)

// ErrModelsFailed is returned by Run when at least one model failed.
var ErrModelsFailed = errors.New("models failed validation")

// Materializer fetches file content before validation. Return codes are
// reported, never acted on; err is set only when the call could not be made.
type Materializer interface {
	Install(ctx context.Context) (int, error)
	Pull(ctx context.Context, path string) (int, error)
}

// ModelValidator checks a decoded model.
type ModelValidator interface {
	CheckModel(m *onnx.Model, full bool) error
}

// Prober is an optional second opinion loading the file itself.
type Prober interface {
	Probe(path string, m *onnx.Model) error
}

// Tracker reports whether a path is stored through LFS.
type Tracker interface {
	Root() string
	IsTracked(path string) bool
}

// Reporter renders the console lines of a run.
type Reporter interface {
	Discovered(path string)
	InstallDone(code int)
	PullDone(code int)
	Start(total int)
	Testing(name string)
	Pass(name string)
	Fail(err error)
	TimeUsed(d time.Duration)
	Summary(total, failed int)
}

// None is a Materializer that does nothing.
type None struct{}

func (None) Install(context.Context) (int, error)      { return 0, nil }
func (None) Pull(context.Context, string) (int, error) { return 0, nil }

// Options selects what a run covers.
type Options struct {
	Root        string
	TestDir     string
	Extension   string
	ExcludeDirs []string
	// KeepPassed leaves passing files on disk.
	KeepPassed bool
	// DataPropagation is passed to shape inference of the loaded model.
	DataPropagation bool
}

// Summary is the outcome of a run.
type Summary struct {
	Total  int
	Passed int
	// Failed holds failing paths in the order they were checked.
	Failed []string
}

// Runner holds the collaborators of a run.
type Runner struct {
	opts         Options
	materializer Materializer
	validator    ModelValidator
	prober       Prober
	tracker      Tracker
	reporter     Reporter
	metrics      *metrics.Recorder
	logger       *slog.Logger
	remove       func(string) error
	now          func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithMaterializer sets the content backend. Defaults to None.
func WithMaterializer(m Materializer) Option {
	return func(r *Runner) { r.materializer = m }
}

// WithValidator replaces the default checker.
func WithValidator(v ModelValidator) Option {
	return func(r *Runner) { r.validator = v }
}

// WithProber enables the runtime probe.
func WithProber(p Prober) Option {
	return func(r *Runner) { r.prober = p }
}

// WithTracker enables LFS tracking diagnostics.
func WithTracker(t Tracker) Option {
	return func(r *Runner) { r.tracker = t }
}

// WithReporter replaces the stdout report.
func WithReporter(rep Reporter) Option {
	return func(r *Runner) { r.reporter = rep }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithRemover replaces os.Remove for passed files.
func WithRemover(fn func(string) error) Option {
	return func(r *Runner) { r.remove = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(r *Runner) { r.now = fn }
}

// New returns a runner with defaults for every collaborator not set.
func New(opts Options, options ...Option) *Runner {
	if opts.Root == "" {
		opts.Root = "."
	}
	r := &Runner{
		opts:         opts,
		materializer: None{},
		validator:    checker.New(),
		reporter:     report.New(os.Stdout),
		metrics:      metrics.New(),
		logger:       slog.Default(),
		remove:       os.Remove,
		now:          time.Now,
	}
	for _, o := range options {
		o(r)
	}
	return r
}

// Metrics returns the recorder the run writes to.
func (r *Runner) Metrics() *metrics.Recorder { return r.metrics }

// Run checks every discovered model. Per-model failures are collected; the
// returned error wraps ErrModelsFailed when any model failed. Discovery errors
// and cancellation end the run early.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	models, err := discovery.Find(discovery.Options{
		Root:        r.opts.Root,
		TestDir:     r.opts.TestDir,
		Extension:   r.opts.Extension,
		ExcludeDirs: r.opts.ExcludeDirs,
		OnFound:     r.reporter.Discovered,
		Logger:      r.logger,
	})
	if err != nil {
		return Summary{}, err
	}
	r.logger.Info("models discovered", "count", len(models), "root", r.opts.Root, "test_dir", r.opts.TestDir)
	if r.tracker != nil {
		r.logger.Debug("git work tree", "root", r.tracker.Root())
	}

	code, err := r.materializer.Install(ctx)
	if err != nil {
		r.logger.Warn("install could not run", "error", err)
	}
	r.metrics.Install(code)
	r.reporter.InstallDone(code)

	r.reporter.Start(len(models))
	summary := Summary{Total: len(models)}
	for _, path := range models {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("run interrupted: %w", err)
		}
		if r.checkOne(ctx, path) {
			summary.Passed++
		} else {
			summary.Failed = append(summary.Failed, path)
		}
	}

	r.reporter.Summary(summary.Total, len(summary.Failed))
	r.logSnapshot()
	if len(summary.Failed) > 0 {
		return summary, fmt.Errorf("%w: %d of %d", ErrModelsFailed, len(summary.Failed), summary.Total)
	}
	return summary, nil
}

// checkOne runs the per-model steps and reports whether the model passed.
func (r *Runner) checkOne(ctx context.Context, path string) bool {
	start := r.now()
	name := filepath.Base(path)
	r.reporter.Testing(name)

	r.pull(ctx, path)
	stage, err := r.validate(path)
	elapsed := r.now().Sub(start)
	if err != nil {
		r.logger.Debug("model failed", "path", path, "stage", stage, "error", err)
		r.metrics.Failed(stage, elapsed)
		r.reporter.Fail(err)
	} else {
		r.metrics.Passed(elapsed)
		r.reporter.Pass(name)
	}
	r.reporter.TimeUsed(elapsed)
	return err == nil
}

func (r *Runner) pull(ctx context.Context, path string) {
	if r.tracker != nil {
		r.logger.Debug("lfs tracking", "path", path, "tracked", r.tracker.IsTracked(path))
	}
	rel, err := filepath.Rel(r.opts.Root, path)
	if err != nil {
		rel = path
	}
	code, err := r.materializer.Pull(ctx, rel)
	if err != nil {
		r.logger.Warn("pull could not run", "path", rel, "error", err)
	}
	r.metrics.Pull(code)
	r.reporter.PullDone(code)
}

// validate checks path and deletes it when every step passes. It returns the
// stage that failed.
func (r *Runner) validate(path string) (string, error) {
	if _, stage, err := r.check(path); err != nil {
		return stage, err
	}
	if !r.opts.KeepPassed {
		if err := r.remove(path); err != nil {
			return metrics.StageCleanup, fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return "", nil
}

// Check runs the validation steps on path without materializing or deleting
// it. The decoded model is returned whenever loading succeeded.
func (r *Runner) Check(path string) (*onnx.Model, error) {
	m, _, err := r.check(path)
	return m, err
}

func (r *Runner) check(path string) (*onnx.Model, string, error) {
	model, err := onnx.Load(path)
	if err != nil {
		return nil, metrics.StageLoad, err
	}
	if err := r.checkBoth(model); err != nil {
		return model, metrics.StageCheck, err
	}
	inferred, err := shapeinfer.InferShapes(model, shapeinfer.Options{
		DataPropagation: r.opts.DataPropagation,
		Logger:          r.logger,
	})
	if err != nil {
		return model, metrics.StageInfer, err
	}
	if err := r.checkBoth(inferred); err != nil {
		return model, metrics.StageCheck, err
	}
	if r.prober != nil {
		if err := r.prober.Probe(path, model); err != nil {
			return model, metrics.StageRuntime, err
		}
	}
	return model, "", nil
}

func (r *Runner) checkBoth(m *onnx.Model) error {
	if err := r.validator.CheckModel(m, false); err != nil {
		return err
	}
	return r.validator.CheckModel(m, true)
}

func (r *Runner) logSnapshot() {
	snap, err := r.metrics.Snapshot()
	if err != nil {
		r.logger.Warn("gathering run metrics failed", "error", err)
		return
	}
	r.logger.Info("run finished",
		"passed", snap.Passed,
		"failed", snap.Failed,
		"failed_by_stage", snap.ByStage,
		"seconds", snap.Seconds,
	)
}
