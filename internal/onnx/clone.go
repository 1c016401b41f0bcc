package onnx

import "slices"

// Clone returns a deep copy of m.
func (m *Model) Clone() *Model {
	if m == nil {
		return nil
	}
	out := *m
	out.OpsetImports = slices.Clone(m.OpsetImports)
	out.MetadataProps = slices.Clone(m.MetadataProps)
	out.Graph = m.Graph.Clone()
	return &out
}

// Clone returns a deep copy of g.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	out := *g
	out.Nodes = make([]*Node, len(g.Nodes))
	for i, n := range g.Nodes {
		out.Nodes[i] = n.Clone()
	}
	out.Initializers = cloneTensors(g.Initializers)
	out.SparseInitializerNames = slices.Clone(g.SparseInitializerNames)
	out.Inputs = cloneValueInfos(g.Inputs)
	out.Outputs = cloneValueInfos(g.Outputs)
	out.ValueInfo = cloneValueInfos(g.ValueInfo)
	return &out
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Inputs = slices.Clone(n.Inputs)
	out.Outputs = slices.Clone(n.Outputs)
	out.Attributes = make([]*Attribute, len(n.Attributes))
	for i, a := range n.Attributes {
		out.Attributes[i] = a.Clone()
	}
	return &out
}

// Clone returns a deep copy of a.
func (a *Attribute) Clone() *Attribute {
	if a == nil {
		return nil
	}
	out := *a
	out.S = slices.Clone(a.S)
	out.T = a.T.Clone()
	out.G = a.G.Clone()
	out.Floats = slices.Clone(a.Floats)
	out.Ints = slices.Clone(a.Ints)
	out.Strings = cloneByteSlices(a.Strings)
	out.Tensors = cloneTensors(a.Tensors)
	if a.Graphs != nil {
		out.Graphs = make([]*Graph, len(a.Graphs))
		for i, g := range a.Graphs {
			out.Graphs[i] = g.Clone()
		}
	}
	return &out
}

// Clone returns a deep copy of t.
func (t *Tensor) Clone() *Tensor {
	if t == nil {
		return nil
	}
	out := *t
	out.Dims = slices.Clone(t.Dims)
	out.RawData = slices.Clone(t.RawData)
	out.FloatData = slices.Clone(t.FloatData)
	out.Int32Data = slices.Clone(t.Int32Data)
	out.StringData = cloneByteSlices(t.StringData)
	out.Int64Data = slices.Clone(t.Int64Data)
	out.DoubleData = slices.Clone(t.DoubleData)
	out.Uint64Data = slices.Clone(t.Uint64Data)
	out.ExternalData = slices.Clone(t.ExternalData)
	return &out
}

// Clone returns a deep copy of vi.
func (vi *ValueInfo) Clone() *ValueInfo {
	if vi == nil {
		return nil
	}
	out := *vi
	out.Type = vi.Type.Clone()
	return &out
}

// Clone returns a deep copy of t.
func (t *Type) Clone() *Type {
	if t == nil {
		return nil
	}
	out := *t
	out.Tensor = t.Tensor.clone()
	out.SparseTensor = t.SparseTensor.clone()
	out.Sequence = t.Sequence.Clone()
	out.Optional = t.Optional.Clone()
	if t.Map != nil {
		out.Map = &MapType{KeyType: t.Map.KeyType, ValueType: t.Map.ValueType.Clone()}
	}
	return &out
}

func (tt *TensorType) clone() *TensorType {
	if tt == nil {
		return nil
	}
	out := *tt
	out.Shape = tt.Shape.Clone()
	return &out
}

// Clone returns a deep copy of s.
func (s *Shape) Clone() *Shape {
	if s == nil {
		return nil
	}
	return &Shape{Dims: append([]Dim{}, s.Dims...)}
}

func cloneTensors(in []*Tensor) []*Tensor {
	if in == nil {
		return nil
	}
	out := make([]*Tensor, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}

func cloneValueInfos(in []*ValueInfo) []*ValueInfo {
	if in == nil {
		return nil
	}
	out := make([]*ValueInfo, len(in))
	for i, vi := range in {
		out[i] = vi.Clone()
	}
	return out
}

func cloneByteSlices(in [][]byte) [][]byte {
	if in == nil {
		return nil
	}
	out := make([][]byte, len(in))
	for i, b := range in {
		out[i] = slices.Clone(b)
	}
	return out
}
