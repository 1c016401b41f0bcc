// Package checker validates ONNX models against the structural rules of the
// format and, in full mode, against strict shape inference.
package checker

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/modelcheck/internal/onnx"
	"github.com/MeKo-Tech/modelcheck/internal/opset"
	"github.com/MeKo-Tech/modelcheck/internal/shapeinfer"
)

// Checker holds validation settings.
type Checker struct {
	// MaxIRVersion is the newest IR version accepted.
	MaxIRVersion int64
	// DataPropagation enables data propagation during full checks.
	DataPropagation bool
	// CheckCustomDomain requires schemas for operators outside the
	// standard domains too.
	CheckCustomDomain bool
	Logger            *slog.Logger
}

// New returns a checker with default settings.
func New() *Checker {
	return &Checker{
		MaxIRVersion: onnx.IRVersion,
		Logger:       slog.Default(),
	}
}

// CheckModel validates m with default settings.
func CheckModel(m *onnx.Model, full bool) error {
	return New().CheckModel(m, full)
}

// CheckModel validates m. With full set, strict shape inference must also
// succeed.
func (c *Checker) CheckModel(m *onnx.Model, full bool) error {
	if m == nil {
		return &ValidationError{Msg: "model is nil"}
	}
	root := &scope{label: "model"}
	if err := c.checkModel(root, m); err != nil {
		return err
	}
	if !full {
		return nil
	}
	_, err := shapeinfer.InferShapes(m, shapeinfer.Options{
		Strict:          true,
		DataPropagation: c.DataPropagation,
		Logger:          c.logger(),
	})
	if err != nil {
		return &ValidationError{Context: root.String(), Msg: err.Error(), Err: err}
	}
	return nil
}

func (c *Checker) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// modelContext carries model-wide facts into graph checks.
type modelContext struct {
	irVersion int64
	opsets    map[string]int64
}

func (c *Checker) checkModel(s *scope, m *onnx.Model) error {
	if m.IRVersion == 0 {
		return s.fail("The model does not have an ir_version set properly.")
	}
	maxIR := c.MaxIRVersion
	if maxIR == 0 {
		maxIR = onnx.IRVersion
	}
	if m.IRVersion > maxIR {
		return s.fail("Your model ir_version %d is higher than the checker's (%d).", m.IRVersion, maxIR)
	}

	opsets := make(map[string]int64, len(m.OpsetImports))
	seen := map[string]bool{}
	for _, imp := range m.OpsetImports {
		if seen[imp.Domain] {
			return s.fail("ModelProto has duplicate domain name in opset_import: %s", imp.Domain)
		}
		seen[imp.Domain] = true
		domain := onnx.NormalizeDomain(imp.Domain)
		if _, dup := opsets[domain]; dup {
			return s.fail("ModelProto has duplicate domain name in opset_import: %s", "ai.onnx")
		}
		opsets[domain] = imp.Version
	}
	if m.IRVersion >= 3 && len(m.OpsetImports) == 0 {
		return s.fail("model with IR version >= 3 must specify opset_import for ONNX")
	}
	if m.IRVersion < 3 && len(m.OpsetImports) == 0 {
		opsets[onnx.DomainDefault] = 1
	}

	keys := map[string]bool{}
	for _, e := range m.MetadataProps {
		if keys[e.Key] {
			return s.fail("Your model has duplicate keys in metadata_props.")
		}
		keys[e.Key] = true
	}

	if m.Graph == nil {
		return s.fail("Field 'graph' of 'model' is required but missing.")
	}
	mc := &modelContext{irVersion: m.IRVersion, opsets: opsets}
	return c.checkGraph(s, mc, m.Graph, nil)
}

func (c *Checker) checkGraph(parent *scope, mc *modelContext, g *onnx.Graph, outer map[string]bool) error {
	s := parent.child("graph %s", g.Name)
	if g.Name == "" {
		return s.fail("Field 'name' of 'graph' is required to be non-empty.")
	}

	for _, vi := range g.Inputs {
		if err := checkValueInfo(s.child("input %s", vi.Name), vi); err != nil {
			return err
		}
	}
	for _, vi := range g.Outputs {
		if err := checkValueInfo(s.child("output %s", vi.Name), vi); err != nil {
			return err
		}
	}

	// Names visible to nodes of this graph.
	visible := make(map[string]bool, len(outer)+len(g.Inputs)+len(g.Initializers))
	for name := range outer {
		visible[name] = true
	}
	// Names produced inside this graph, for the SSA rule.
	local := map[string]bool{}
	inputs := map[string]bool{}
	for _, vi := range g.Inputs {
		if local[vi.Name] {
			return s.fail("Graph must be in single static assignment (SSA) form, however '%s' has been used as graph input names multiple times.", vi.Name)
		}
		local[vi.Name] = true
		inputs[vi.Name] = true
		visible[vi.Name] = true
	}

	inits := map[string]bool{}
	for i, t := range g.Initializers {
		ts := s.child("initializer %d (%s)", i, t.Name)
		if t.Name == "" {
			return ts.fail("Tensor initializers must have a non-empty name")
		}
		if err := checkTensor(ts, t); err != nil {
			return err
		}
		if inits[t.Name] {
			return ts.fail("%s initializer name is not unique", t.Name)
		}
		inits[t.Name] = true
		if mc.irVersion < 4 && !inputs[t.Name] {
			return ts.fail("%s in initializer but not in graph input", t.Name)
		}
		visible[t.Name] = true
	}
	for _, name := range g.SparseInitializerNames {
		if inits[name] {
			return s.fail("%s initializer name is not unique across initializers and sparse_initializers", name)
		}
		inits[name] = true
		visible[name] = true
	}

	for i, n := range g.Nodes {
		ns := s.child("node %d (%s)", i, n.OpType)
		for _, in := range n.Inputs {
			if in != "" && !visible[in] {
				return ns.fail("Nodes in a graph must be topologically sorted, however input '%s' of node: \nname: %s OpType: %s\n is not output of any previous nodes.", in, n.Name, n.OpType)
			}
		}
		if err := c.checkNode(ns, mc, n, visible); err != nil {
			return err
		}
		for _, out := range n.Outputs {
			if out == "" {
				continue
			}
			if local[out] || inits[out] {
				return ns.fail("Graph must be in single static assignment (SSA) form, however '%s' has been used as output names multiple times.", out)
			}
			local[out] = true
			visible[out] = true
		}
	}

	for _, vi := range g.Outputs {
		if !visible[vi.Name] {
			return s.fail("Graph output '%s' is not an output of any node in graph.", vi.Name)
		}
	}
	return nil
}

func checkValueInfo(s *scope, vi *onnx.ValueInfo) error {
	if vi.Name == "" {
		return s.fail("Field 'name' of 'value_info' is required to be non-empty.")
	}
	if vi.Type == nil {
		return s.fail("Field 'type' of 'value_info' is required but missing.")
	}
	if vi.Type.Case() == "none" {
		return s.fail("Unrecognized type value case (value_info name: %s)", vi.Name)
	}
	return checkType(s, vi.Type)
}

func checkType(s *scope, t *onnx.Type) error {
	switch {
	case t.Tensor != nil:
		if t.Tensor.ElemType == onnx.Undefined {
			return s.fail("Field 'elem_type' of 'type' is required but missing.")
		}
	case t.SparseTensor != nil:
		if t.SparseTensor.ElemType == onnx.Undefined {
			return s.fail("Field 'elem_type' of 'type' is required but missing.")
		}
	case t.Sequence != nil:
		return checkType(s, t.Sequence)
	case t.Optional != nil:
		return checkType(s, t.Optional)
	case t.Map != nil:
		if t.Map.KeyType == onnx.Undefined {
			return s.fail("Field 'key_type' of 'map_type' is required but missing.")
		}
		if t.Map.ValueType == nil {
			return s.fail("Field 'value_type' of 'map_type' is required but missing.")
		}
		return checkType(s, t.Map.ValueType)
	default:
		return s.fail("Unrecognized type value case")
	}
	return nil
}

func (c *Checker) checkNode(s *scope, mc *modelContext, n *onnx.Node, visible map[string]bool) error {
	if n.OpType == "" {
		return s.fail("Field 'op_type' of 'node' is required to be non-empty.")
	}
	if len(n.Inputs) == 0 && len(n.Outputs) == 0 {
		return s.fail("NodeProto (name: %s, type: %s) has zero input and zero output.", n.Name, n.OpType)
	}

	for _, a := range n.Attributes {
		if err := c.checkAttribute(s.child("attribute %s", a.Name), mc, a, visible); err != nil {
			return err
		}
	}

	domain := onnx.NormalizeDomain(n.Domain)
	version, ok := mc.opsets[domain]
	if !ok {
		return s.fail("No opset import for domain '%s'", n.Domain)
	}
	if !opset.IsStandardDomain(domain) && !c.CheckCustomDomain {
		return nil
	}

	schema := opset.Lookup(domain, n.OpType, version)
	if schema == nil {
		if domain == onnx.DomainDefault {
			return s.fail("No Op registered for %s with domain_version of %d", n.OpType, version)
		}
		return s.fail("No Op registered for %s with domain %s and domain_version of %d", n.OpType, n.Domain, version)
	}
	return verifyNode(s, schema, n)
}

func verifyNode(s *scope, schema *opset.Schema, n *onnx.Node) error {
	name := n.Name
	if name == "" {
		name = n.OpType
	}
	if !inRange(len(n.Inputs), schema.MinInputs, schema.MaxInputs) {
		return s.fail("Node (%s) has input size %d not in range [min=%d, max=%s].",
			name, len(n.Inputs), schema.MinInputs, bound(schema.MaxInputs))
	}
	if !inRange(len(n.Outputs), schema.MinOutputs, schema.MaxOutputs) {
		return s.fail("Node (%s) has output size %d not in range [min=%d, max=%s].",
			name, len(n.Outputs), schema.MinOutputs, bound(schema.MaxOutputs))
	}
	if schema.AnyAttributes {
		return nil
	}
	present := map[string]bool{}
	for _, a := range n.Attributes {
		present[a.Name] = true
		spec, ok := schema.Attr(a.Name)
		if !ok {
			return s.fail("Unrecognized attribute: %s for operator %s", a.Name, n.OpType)
		}
		if a.RefAttrName == "" && a.Type != spec.Type {
			return s.fail("Mismatched attribute type in '%s : %s'", name, a.Name)
		}
	}
	for _, spec := range schema.Attributes {
		if spec.Required && !present[spec.Name] {
			return s.fail("Required attribute '%s' is missing.", spec.Name)
		}
	}
	return nil
}

func inRange(n, lo, hi int) bool {
	return n >= lo && (hi == opset.Unbounded || n <= hi)
}

func bound(v int) string {
	if v == opset.Unbounded {
		return "2147483647"
	}
	return fmt.Sprint(v)
}

func (c *Checker) checkAttribute(s *scope, mc *modelContext, a *onnx.Attribute, visible map[string]bool) error {
	if a.Name == "" {
		return s.fail("Field 'name' of 'attr' is required to be non-empty.")
	}
	if a.RefAttrName != "" {
		return s.fail("Attribute (name: %s) refers to '%s' outside a function body.", a.Name, a.RefAttrName)
	}
	if mc.irVersion >= 2 && a.Type == onnx.AttrUndefined {
		return s.fail("Field 'type' of 'attr' is required but missing.")
	}
	fields := a.ValueFields()
	if len(fields) > 1 {
		return s.fail("Attribute (name: %s) should not contain more than one value field.", a.Name)
	}
	if len(fields) == 1 && a.Type != onnx.AttrUndefined && !sameAttrKind(fields[0], a.Type) {
		return s.fail("type field and data field mismatch in attribute %s.", a.Name)
	}

	if a.T != nil {
		if err := checkTensor(s, a.T); err != nil {
			return err
		}
	}
	for _, t := range a.Tensors {
		if err := checkTensor(s, t); err != nil {
			return err
		}
	}
	if a.G != nil {
		if err := c.checkGraph(s, mc, a.G, visible); err != nil {
			return err
		}
	}
	for _, g := range a.Graphs {
		if err := c.checkGraph(s, mc, g, visible); err != nil {
			return err
		}
	}
	return nil
}

// sameAttrKind matches a populated field against a declared type. Sparse
// tensors and type protos are only counted, so singular and repeated forms
// are indistinguishable.
func sameAttrKind(field, declared onnx.AttributeType) bool {
	switch declared {
	case onnx.AttrSparseTensors:
		declared = onnx.AttrSparseTensor
	case onnx.AttrTypeProtos:
		declared = onnx.AttrTypeProto
	}
	return field == declared
}

// IsValidationError reports whether err came from a checker rule.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}
