// Package shapeinfer propagates tensor types and shapes through an ONNX
// graph using the operator schemas of package opset.
package shapeinfer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/modelcheck/internal/onnx"
	"github.com/MeKo-Tech/modelcheck/internal/opset"
)

// ErrInference is wrapped by every error InferShapes returns.
var ErrInference = errors.New("shape inference failed")

// Options controls InferShapes.
type Options struct {
	// Strict returns the first node error instead of skipping the node.
	Strict bool
	// DataPropagation tracks the values of shape-like integer tensors.
	DataPropagation bool
	Logger          *slog.Logger
}

// InferShapes returns a copy of m with inferred types recorded in the graph's
// value_info and outputs. m is not modified.
func InferShapes(m *onnx.Model, opts Options) (*onnx.Model, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	out := m.Clone()
	if out.Graph == nil {
		return out, nil
	}
	opsets := make(map[string]int64, len(out.OpsetImports))
	for _, imp := range out.OpsetImports {
		opsets[onnx.NormalizeDomain(imp.Domain)] = imp.Version
	}
	inf := &inferencer{opts: opts, opsets: opsets, irVersion: out.IRVersion}
	if err := inf.graph(out.Graph, nil); err != nil {
		return nil, err
	}
	return out, nil
}

type inferencer struct {
	opts      Options
	opsets    map[string]int64
	irVersion int64
}

// graph infers g in place. outer holds types visible from enclosing graphs.
func (inf *inferencer) graph(g *onnx.Graph, outer map[string]*onnx.Type) error {
	types := make(map[string]*onnx.Type, len(outer)+len(g.Inputs)+len(g.Initializers))
	for name, t := range outer {
		types[name] = t
	}
	constants := map[string]*onnx.Tensor{}
	data := map[string]*onnx.Shape{}
	declared := map[string]*onnx.Type{}
	defined := map[string]bool{}

	for _, vi := range g.Inputs {
		if vi.Type != nil {
			types[vi.Name] = vi.Type
		}
		defined[vi.Name] = true
	}
	for _, t := range g.Initializers {
		if _, ok := types[t.Name]; !ok || !defined[t.Name] {
			types[t.Name] = t.Type()
		}
		if !defined[t.Name] && inf.irVersion >= 4 {
			constants[t.Name] = t
		}
		defined[t.Name] = true
	}
	for _, vi := range g.ValueInfo {
		if vi.Type != nil {
			declared[vi.Name] = vi.Type
		}
	}
	for _, vi := range g.Outputs {
		if vi.Type != nil && declared[vi.Name] == nil {
			declared[vi.Name] = vi.Type
		}
	}

	inferred := map[string]*onnx.Type{}
	var order []string
	for i, node := range g.Nodes {
		if err := inf.node(i, node, types, declared, constants, data, inferred, &order); err != nil {
			if inf.opts.Strict {
				return err
			}
			inf.opts.Logger.Debug("skipping node after inference error", "node", node.Name, "op_type", node.OpType, "error", err)
		}
		for _, a := range node.Attributes {
			for _, sub := range subgraphs(a) {
				if err := inf.graph(sub, types); err != nil {
					return err
				}
			}
		}
	}

	inf.record(g, inferred, order, defined)
	return nil
}

func subgraphs(a *onnx.Attribute) []*onnx.Graph {
	var out []*onnx.Graph
	if a.G != nil {
		out = append(out, a.G)
	}
	return append(out, a.Graphs...)
}

func (inf *inferencer) node(
	idx int,
	node *onnx.Node,
	types, declared map[string]*onnx.Type,
	constants map[string]*onnx.Tensor,
	data map[string]*onnx.Shape,
	inferred map[string]*onnx.Type,
	order *[]string,
) error {
	version, ok := inf.opsets[onnx.NormalizeDomain(node.Domain)]
	if !ok {
		return nil
	}
	schema := opset.Lookup(node.Domain, node.OpType, version)
	if schema == nil || schema.Infer == nil {
		return nil
	}
	ctx := &nodeContext{
		node:      node,
		version:   version,
		types:     types,
		constants: constants,
		data:      data,
		outTypes:  make([]*onnx.Type, len(node.Outputs)),
		outData:   make([]*onnx.Shape, len(node.Outputs)),
	}
	if err := schema.Infer(ctx); err != nil {
		return nodeError(node, idx, err)
	}
	for i, name := range node.Outputs {
		t := ctx.outTypes[i]
		if name == "" || t == nil {
			continue
		}
		merged, err := mergeType(t, declared[name])
		if err != nil {
			return nodeError(node, idx, err)
		}
		if _, seen := inferred[name]; !seen {
			*order = append(*order, name)
		}
		types[name] = merged
		inferred[name] = merged
	}
	if node.OpType == "Constant" && onnx.NormalizeDomain(node.Domain) == onnx.DomainDefault && len(node.Outputs) == 1 {
		if a := node.Attribute("value"); a != nil && a.T != nil {
			constants[node.Outputs[0]] = a.T
		}
	}
	if inf.opts.DataPropagation && schema.Propagate != nil {
		schema.Propagate(ctx)
		for i, name := range node.Outputs {
			if name != "" && ctx.outData[i] != nil {
				data[name] = ctx.outData[i]
			}
		}
	}
	return nil
}

func nodeError(node *onnx.Node, idx int, err error) error {
	name := node.Name
	if name == "" {
		name = fmt.Sprintf("#%d", idx)
	}
	var ie *opset.InferenceError
	if errors.As(err, &ie) {
		return fmt.Errorf("%w: [%s] (op_type:%s, node name: %s): %s", ErrInference, ie.Kind, node.OpType, name, ie.Msg)
	}
	return fmt.Errorf("%w: (op_type:%s, node name: %s): %v", ErrInference, node.OpType, name, err)
}

// record writes inferred types of intermediate values into value_info and
// refines graph outputs.
func (inf *inferencer) record(g *onnx.Graph, inferred map[string]*onnx.Type, order []string, defined map[string]bool) {
	outputs := map[string]*onnx.ValueInfo{}
	for _, vi := range g.Outputs {
		outputs[vi.Name] = vi
	}
	existing := map[string]*onnx.ValueInfo{}
	for _, vi := range g.ValueInfo {
		existing[vi.Name] = vi
	}
	for _, name := range order {
		t := inferred[name]
		if defined[name] || !complete(t) {
			continue
		}
		if vi, ok := outputs[name]; ok {
			vi.Type = t.Clone()
			continue
		}
		if vi, ok := existing[name]; ok {
			vi.Type = t.Clone()
			continue
		}
		vi := &onnx.ValueInfo{Name: name, Type: t.Clone()}
		g.ValueInfo = append(g.ValueInfo, vi)
		existing[name] = vi
	}
}

// complete reports whether t is worth recording: a tensor needs its element
// type.
func complete(t *onnx.Type) bool {
	switch {
	case t == nil:
		return false
	case t.Tensor != nil:
		return t.Tensor.ElemType != onnx.Undefined
	case t.SparseTensor != nil:
		return t.SparseTensor.ElemType != onnx.Undefined
	case t.Sequence != nil:
		return complete(t.Sequence)
	case t.Optional != nil:
		return complete(t.Optional)
	default:
		return t.Map != nil
	}
}
