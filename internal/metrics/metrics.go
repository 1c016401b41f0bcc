// Package metrics keeps Prometheus counters for one validation run.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stages a model can fail at.
const (
	StageLoad    = "load"
	StageCheck   = "check"
	StageInfer   = "infer"
	StageRuntime = "runtime"
	StageCleanup = "cleanup"
	StageUnknown = "unknown"
)

const (
	namespace      = "modelcheck"
	durationMetric = "model_check_duration_seconds"

	resultPass  = "pass"
	resultFail  = "fail"
	stepInstall = "install"
	stepPull    = "pull"

	labelResult = "result"
	labelStage  = "stage"
	labelStep   = "step"
	labelCode   = "code"
)

// Recorder owns a private registry so runs and tests do not share state.
type Recorder struct {
	registry *prometheus.Registry

	models      *prometheus.CounterVec
	failures    *prometheus.CounterVec
	materialize *prometheus.CounterVec
	duration    prometheus.Histogram
}

// New registers the run metrics on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		models: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "models_total",
				Help:      "Models checked, by result",
			},
			[]string{labelResult},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_failures_total",
				Help:      "Model failures, by the stage that failed",
			},
			[]string{labelStage},
		),
		materialize: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "materialize_calls_total",
				Help:      "Install and pull calls, by return code",
			},
			[]string{labelStep, labelCode},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      durationMetric,
				Help:      "Wall time spent on one model",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
	}
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Install records the install return code.
func (r *Recorder) Install(code int) {
	r.materialize.WithLabelValues(stepInstall, strconv.Itoa(code)).Inc()
}

// Pull records a pull return code.
func (r *Recorder) Pull(code int) {
	r.materialize.WithLabelValues(stepPull, strconv.Itoa(code)).Inc()
}

// Passed records a passing model.
func (r *Recorder) Passed(d time.Duration) {
	r.models.WithLabelValues(resultPass).Inc()
	r.duration.Observe(d.Seconds())
}

// Failed records a failing model and the stage it failed at.
func (r *Recorder) Failed(stage string, d time.Duration) {
	if stage == "" {
		stage = StageUnknown
	}
	r.models.WithLabelValues(resultFail).Inc()
	r.failures.WithLabelValues(stage).Inc()
	r.duration.Observe(d.Seconds())
}

// Snapshot summarizes the counters.
type Snapshot struct {
	Passed   int
	Failed   int
	ByStage  map[string]int
	Seconds  float64
	Observed int
}

// Snapshot gathers the registry into a plain summary.
func (r *Recorder) Snapshot() (Snapshot, error) {
	s := Snapshot{ByStage: make(map[string]int)}
	families, err := r.registry.Gather()
	if err != nil {
		return s, err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch mf.GetName() {
			case namespace + "_models_total":
				n := int(m.GetCounter().GetValue())
				for _, lp := range m.GetLabel() {
					if lp.GetName() != labelResult {
						continue
					}
					if lp.GetValue() == resultPass {
						s.Passed += n
					} else {
						s.Failed += n
					}
				}
			case namespace + "_model_failures_total":
				for _, lp := range m.GetLabel() {
					if lp.GetName() == labelStage {
						s.ByStage[lp.GetValue()] += int(m.GetCounter().GetValue())
					}
				}
			case namespace + "_" + durationMetric:
				s.Seconds += m.GetHistogram().GetSampleSum()
				s.Observed += int(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return s, nil
}
