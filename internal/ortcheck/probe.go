// Package ortcheck loads models in ONNX Runtime as a second opinion on what
// the in-module checker accepts.
package ortcheck

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/MeKo-Tech/modelcheck/internal/onnx"
	onnxrt "github.com/yalue/onnxruntime_go"
)

// ErrMismatch is returned when the runtime disagrees with the graph about its
// inputs or outputs.
var ErrMismatch = errors.New("runtime signature mismatch")

// Prober initializes the runtime environment on first use.
type Prober struct {
	libraryPath string
	logger      *slog.Logger

	once    sync.Once
	library string
	initErr error
	owned   bool

	// Replaced in tests.
	initEnv    func(libPath string) (bool, error)
	ioInfo     func(path string) ([]onnxrt.InputOutputInfo, []onnxrt.InputOutputInfo, error)
	destroyEnv func() error
}

// New returns a prober. An empty libraryPath searches the usual locations.
func New(libraryPath string, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		libraryPath: libraryPath,
		logger:      logger,
		initEnv:     initEnvironment,
		ioInfo:      onnxrt.GetInputOutputInfo,
		destroyEnv:  onnxrt.DestroyEnvironment,
	}
}

func initEnvironment(libPath string) (bool, error) {
	if onnxrt.IsInitialized() {
		return false, nil
	}
	onnxrt.SetSharedLibraryPath(libPath)
	if err := onnxrt.InitializeEnvironment(); err != nil {
		return false, fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}
	return true, nil
}

func (p *Prober) init() error {
	p.once.Do(func() {
		lib, err := FindLibrary(p.libraryPath)
		if err != nil {
			p.initErr = err
			return
		}
		p.library = lib
		p.logger.Debug("using ONNX Runtime library", "path", lib)
		p.owned, p.initErr = p.initEnv(lib)
	})
	return p.initErr
}

// Init locates the shared library and initializes the environment. It returns
// the library path in use. Probe calls it on first use.
func (p *Prober) Init() (string, error) {
	err := p.init()
	return p.library, err
}

// Probe asks the runtime for the file's input and output signature and
// compares it with what m declares.
func (p *Prober) Probe(path string, m *onnx.Model) error {
	if err := p.init(); err != nil {
		return err
	}
	inputs, outputs, err := p.ioInfo(path)
	if err != nil {
		return fmt.Errorf("onnx runtime could not load %s: %w", path, err)
	}
	if m == nil || m.Graph == nil {
		return nil
	}
	var problems []string
	problems = append(problems, compare("input", m.Graph.RealInputs(), inputs)...)
	problems = append(problems, compare("output", m.Graph.Outputs, outputs)...)
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrMismatch, strings.Join(problems, "; "))
	}
	return nil
}

// Close tears down the environment if this prober created it.
func (p *Prober) Close() error {
	if !p.owned {
		return nil
	}
	p.owned = false
	return p.destroyEnv()
}

func compare(kind string, declared []*onnx.ValueInfo, reported []onnxrt.InputOutputInfo) []string {
	want := make([]string, len(declared))
	for i, vi := range declared {
		want[i] = vi.Name
	}
	got := make([]string, len(reported))
	for i, info := range reported {
		got[i] = info.Name
	}
	if !slices.Equal(want, got) {
		return []string{fmt.Sprintf("graph declares %ss %v, runtime reports %v", kind, want, got)}
	}

	var problems []string
	for i, vi := range declared {
		if msg := compareValue(vi, reported[i]); msg != "" {
			problems = append(problems, fmt.Sprintf("%s %q: %s", kind, vi.Name, msg))
		}
	}
	return problems
}

// compareValue checks a tensor's element type and any fixed dimensions.
func compareValue(vi *onnx.ValueInfo, info onnxrt.InputOutputInfo) string {
	if vi.Type == nil || vi.Type.Tensor == nil || info.OrtValueType != onnxrt.ONNXTypeTensor {
		return ""
	}
	tt := vi.Type.Tensor
	if tt.ElemType != onnx.Undefined && int64(tt.ElemType) != int64(info.DataType) {
		return fmt.Sprintf("element type %s, runtime reports %d", tt.ElemType, info.DataType)
	}
	if tt.Shape == nil {
		return ""
	}
	if len(tt.Shape.Dims) != len(info.Dimensions) {
		return fmt.Sprintf("rank %d, runtime reports %d", len(tt.Shape.Dims), len(info.Dimensions))
	}
	for i, d := range tt.Shape.Dims {
		if d.Known() && info.Dimensions[i] >= 0 && d.Value != info.Dimensions[i] {
			return fmt.Sprintf("dimension %d is %d, runtime reports %d", i, d.Value, info.Dimensions[i])
		}
	}
	return ""
}
