// Package opset is a registry of ONNX operator schemas. A schema describes
// the arity and attributes of one operator version and may carry a shape
// inference function and a data propagation function.
package opset

import (
	"slices"
	"sync"

	"github.com/MeKo-Tech/modelcheck/internal/onnx"
)

// Unbounded marks a variadic input or output count.
const Unbounded = -1

// AttrSpec declares one attribute an operator accepts.
type AttrSpec struct {
	Name     string
	Type     onnx.AttributeType
	Required bool
}

// Schema describes one version of an operator.
type Schema struct {
	Name         string
	Domain       string
	SinceVersion int64

	MinInputs  int
	MaxInputs  int
	MinOutputs int
	MaxOutputs int

	Attributes []AttrSpec
	// AnyAttributes disables attribute name checking.
	AnyAttributes bool

	Infer     func(Context) error
	Propagate func(Context)
}

// Attr returns the declaration of the named attribute.
func (s *Schema) Attr(name string) (AttrSpec, bool) {
	for _, a := range s.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return AttrSpec{}, false
}

// Context is what inference and propagation functions see of a node.
type Context interface {
	OpType() string
	NodeName() string
	OpsetVersion() int64
	NumInputs() int
	NumOutputs() int
	// HasInput reports whether input i is present and non-empty.
	HasInput(i int) bool
	// InputType returns the known type of input i, or nil.
	InputType(i int) *onnx.Type
	// InputConstant returns the constant value of input i, or nil.
	InputConstant(i int) *onnx.Tensor
	// InputData returns the propagated values of an integer input i, or nil.
	InputData(i int) *onnx.Shape
	Attribute(name string) *onnx.Attribute
	SetOutputType(i int, t *onnx.Type)
	SetOutputData(i int, s *onnx.Shape)
}

type registryKey struct {
	domain string
	name   string
}

var (
	mu       sync.RWMutex
	registry = map[registryKey][]*Schema{}
)

// Register adds s to the registry, replacing any schema of the same name,
// domain and since version.
func Register(s *Schema) {
	mu.Lock()
	defer mu.Unlock()
	key := registryKey{domain: onnx.NormalizeDomain(s.Domain), name: s.Name}
	list := registry[key]
	for i, existing := range list {
		if existing.SinceVersion == s.SinceVersion {
			list[i] = s
			return
		}
	}
	list = append(list, s)
	slices.SortFunc(list, func(a, b *Schema) int {
		switch {
		case a.SinceVersion < b.SinceVersion:
			return -1
		case a.SinceVersion > b.SinceVersion:
			return 1
		default:
			return 0
		}
	})
	registry[key] = list
}

// Lookup returns the newest schema of the operator whose since version is
// not above version, or nil.
func Lookup(domain, name string, version int64) *Schema {
	catalogueOnce.Do(registerCatalogue)
	mu.RLock()
	defer mu.RUnlock()
	list := registry[registryKey{domain: onnx.NormalizeDomain(domain), name: name}]
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].SinceVersion <= version {
			return list[i]
		}
	}
	return nil
}

// IsStandardDomain reports whether operators in domain must be registered.
func IsStandardDomain(domain string) bool {
	switch onnx.NormalizeDomain(domain) {
	case onnx.DomainDefault, onnx.DomainML, onnx.DomainTraining:
		return true
	default:
		return false
	}
}

func register(schemas ...*Schema) {
	for _, s := range schemas {
		Register(s)
	}
}

// op builds a schema with fixed arity bounds.
func op(name string, since int64, minIn, maxIn, minOut, maxOut int, attrs ...AttrSpec) *Schema {
	return &Schema{
		Name:         name,
		SinceVersion: since,
		MinInputs:    minIn,
		MaxInputs:    maxIn,
		MinOutputs:   minOut,
		MaxOutputs:   maxOut,
		Attributes:   attrs,
	}
}

func (s *Schema) infer(fn func(Context) error) *Schema {
	s.Infer = fn
	return s
}

func (s *Schema) propagate(fn func(Context)) *Schema {
	s.Propagate = fn
	return s
}

func attr(name string, typ onnx.AttributeType) AttrSpec {
	return AttrSpec{Name: name, Type: typ}
}

func required(name string, typ onnx.AttributeType) AttrSpec {
	return AttrSpec{Name: name, Type: typ, Required: true}
}
