package onnx

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Marshal serializes m as a ModelProto.
func Marshal(m *Model) []byte {
	var b []byte
	if m.IRVersion != 0 {
		b = appendVarint(b, 1, uint64(m.IRVersion))
	}
	b = appendString(b, 2, m.ProducerName)
	b = appendString(b, 3, m.ProducerVersion)
	b = appendString(b, 4, m.Domain)
	if m.ModelVersion != 0 {
		b = appendVarint(b, 5, uint64(m.ModelVersion))
	}
	b = appendString(b, 6, m.DocString)
	if m.Graph != nil {
		b = appendMessage(b, 7, encodeGraph(m.Graph))
	}
	for _, op := range m.OpsetImports {
		var sub []byte
		sub = appendString(sub, 1, op.Domain)
		sub = appendVarint(sub, 2, uint64(op.Version))
		b = appendMessage(b, 8, sub)
	}
	for _, e := range m.MetadataProps {
		b = appendMessage(b, 14, encodeEntry(e))
	}
	return b
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// appendBytes always emits the field, even when v is empty.
func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	return appendBytes(b, num, msg)
}

func appendPackedVarints(b []byte, num protowire.Number, n int, at func(int) uint64) []byte {
	if n == 0 {
		return b
	}
	var packed []byte
	for i := range n {
		packed = protowire.AppendVarint(packed, at(i))
	}
	return appendBytes(b, num, packed)
}

func encodeEntry(e StringEntry) []byte {
	var b []byte
	b = appendString(b, 1, e.Key)
	return appendString(b, 2, e.Value)
}

func encodeGraph(g *Graph) []byte {
	var b []byte
	for _, n := range g.Nodes {
		b = appendMessage(b, 1, encodeNode(n))
	}
	b = appendString(b, 2, g.Name)
	for _, t := range g.Initializers {
		b = appendMessage(b, 5, encodeTensor(t))
	}
	b = appendString(b, 10, g.DocString)
	for _, vi := range g.Inputs {
		b = appendMessage(b, 11, encodeValueInfo(vi))
	}
	for _, vi := range g.Outputs {
		b = appendMessage(b, 12, encodeValueInfo(vi))
	}
	for _, vi := range g.ValueInfo {
		b = appendMessage(b, 13, encodeValueInfo(vi))
	}
	for _, name := range g.SparseInitializerNames {
		values := encodeTensor(&Tensor{Name: name})
		b = appendMessage(b, 15, appendMessage(nil, 1, values))
	}
	return b
}

func encodeNode(n *Node) []byte {
	var b []byte
	for _, in := range n.Inputs {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, in)
	}
	for _, out := range n.Outputs {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, out)
	}
	b = appendString(b, 3, n.Name)
	b = appendString(b, 4, n.OpType)
	for _, a := range n.Attributes {
		b = appendMessage(b, 5, encodeAttribute(a))
	}
	b = appendString(b, 6, n.DocString)
	return appendString(b, 7, n.Domain)
}

func encodeAttribute(a *Attribute) []byte {
	var b []byte
	b = appendString(b, 1, a.Name)
	if a.HasF {
		b = protowire.AppendTag(b, 2, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(a.F))
	}
	if a.HasI {
		b = appendVarint(b, 3, uint64(a.I))
	}
	if a.HasS {
		b = appendBytes(b, 4, a.S)
	}
	if a.T != nil {
		b = appendMessage(b, 5, encodeTensor(a.T))
	}
	if a.G != nil {
		b = appendMessage(b, 6, encodeGraph(a.G))
	}
	for _, f := range a.Floats {
		b = protowire.AppendTag(b, 7, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(f))
	}
	for _, i := range a.Ints {
		b = appendVarint(b, 8, uint64(i))
	}
	for _, s := range a.Strings {
		b = appendBytes(b, 9, s)
	}
	for _, t := range a.Tensors {
		b = appendMessage(b, 10, encodeTensor(t))
	}
	for _, g := range a.Graphs {
		b = appendMessage(b, 11, encodeGraph(g))
	}
	b = appendString(b, 13, a.DocString)
	if a.Type != AttrUndefined {
		b = appendVarint(b, 20, uint64(a.Type))
	}
	return appendString(b, 21, a.RefAttrName)
}

func encodeValueInfo(vi *ValueInfo) []byte {
	var b []byte
	b = appendString(b, 1, vi.Name)
	if vi.Type != nil {
		b = appendMessage(b, 2, encodeType(vi.Type))
	}
	return appendString(b, 3, vi.DocString)
}

func encodeType(t *Type) []byte {
	var b []byte
	switch {
	case t.Tensor != nil:
		b = appendMessage(b, 1, encodeTensorType(t.Tensor))
	case t.Sequence != nil:
		b = appendMessage(b, 4, appendMessage(nil, 1, encodeType(t.Sequence)))
	case t.Map != nil:
		var sub []byte
		sub = appendVarint(sub, 1, uint64(t.Map.KeyType))
		if t.Map.ValueType != nil {
			sub = appendMessage(sub, 2, encodeType(t.Map.ValueType))
		}
		b = appendMessage(b, 5, sub)
	case t.SparseTensor != nil:
		b = appendMessage(b, 8, encodeTensorType(t.SparseTensor))
	case t.Optional != nil:
		b = appendMessage(b, 9, appendMessage(nil, 1, encodeType(t.Optional)))
	}
	return appendString(b, 6, t.Denotation)
}

func encodeTensorType(tt *TensorType) []byte {
	var b []byte
	if tt.ElemType != Undefined {
		b = appendVarint(b, 1, uint64(tt.ElemType))
	}
	if tt.Shape != nil {
		var shape []byte
		for _, d := range tt.Shape.Dims {
			var dim []byte
			switch {
			case d.HasValue:
				dim = appendVarint(dim, 1, uint64(d.Value))
			case d.Param != "":
				dim = appendString(dim, 2, d.Param)
			}
			dim = appendString(dim, 3, d.Denotation)
			shape = appendMessage(shape, 1, dim)
		}
		b = appendMessage(b, 2, shape)
	}
	return b
}

func encodeTensor(t *Tensor) []byte {
	var b []byte
	for _, d := range t.Dims {
		b = appendVarint(b, 1, uint64(d))
	}
	if t.DataType != Undefined {
		b = appendVarint(b, 2, uint64(t.DataType))
	}
	if len(t.FloatData) > 0 {
		packed := make([]byte, 0, 4*len(t.FloatData))
		for _, f := range t.FloatData {
			packed = protowire.AppendFixed32(packed, math.Float32bits(f))
		}
		b = appendBytes(b, 4, packed)
	}
	b = appendPackedVarints(b, 5, len(t.Int32Data), func(i int) uint64 { return uint64(int64(t.Int32Data[i])) })
	for _, s := range t.StringData {
		b = appendBytes(b, 6, s)
	}
	b = appendPackedVarints(b, 7, len(t.Int64Data), func(i int) uint64 { return uint64(t.Int64Data[i]) })
	b = appendString(b, 8, t.Name)
	if t.HasRawData {
		b = appendBytes(b, 9, t.RawData)
	}
	if len(t.DoubleData) > 0 {
		packed := make([]byte, 0, 8*len(t.DoubleData))
		for _, f := range t.DoubleData {
			packed = protowire.AppendFixed64(packed, math.Float64bits(f))
		}
		b = appendBytes(b, 10, packed)
	}
	b = appendPackedVarints(b, 11, len(t.Uint64Data), func(i int) uint64 { return t.Uint64Data[i] })
	b = appendString(b, 12, t.DocString)
	for _, e := range t.ExternalData {
		b = appendMessage(b, 13, encodeEntry(e))
	}
	if t.DataLocation != LocationDefault {
		b = appendVarint(b, 14, uint64(t.DataLocation))
	}
	return b
}
