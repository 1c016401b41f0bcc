package onnx

import (
	"encoding/binary"
	"math"
)

// MakeNode builds a node in the default domain.
func MakeNode(opType string, inputs, outputs []string, attrs ...*Attribute) *Node {
	return &Node{
		OpType:     opType,
		Inputs:     inputs,
		Outputs:    outputs,
		Attributes: attrs,
	}
}

// MakeTensorValueInfo builds a value info of tensor type. A nil dims slice
// leaves the rank unknown.
func MakeTensorValueInfo(name string, elem DataType, dims []Dim) *ValueInfo {
	return &ValueInfo{Name: name, Type: NewTensorType(elem, dims)}
}

// MakeModel wraps g in a model importing the default domain at opset.
func MakeModel(g *Graph, opset int64) *Model {
	return &Model{
		IRVersion:    8,
		ProducerName: "modelcheck",
		OpsetImports: []OperatorSetID{{Domain: DomainDefault, Version: opset}},
		Graph:        g,
	}
}

// Int64Tensor builds an INT64 tensor stored in int64_data.
func Int64Tensor(name string, dims []int64, values ...int64) *Tensor {
	return &Tensor{Name: name, Dims: dims, DataType: Int64, Int64Data: values}
}

// FloatTensor builds a FLOAT tensor stored in raw_data.
func FloatTensor(name string, dims []int64, values ...float32) *Tensor {
	raw := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	return &Tensor{Name: name, Dims: dims, DataType: Float, RawData: raw, HasRawData: true}
}

// IntValues decodes the values of an integer tensor. It reports false for
// non-integer element types, external data, or inconsistent payloads.
func (t *Tensor) IntValues() ([]int64, bool) {
	if t == nil || t.DataLocation == LocationExternal {
		return nil, false
	}
	n := t.NumElements()
	switch t.DataType {
	case Int64:
		if t.HasRawData {
			if int64(len(t.RawData)) != 8*n {
				return nil, false
			}
			out := make([]int64, n)
			for i := range out {
				out[i] = int64(binary.LittleEndian.Uint64(t.RawData[8*i:]))
			}
			return out, true
		}
		if int64(len(t.Int64Data)) != n {
			return nil, false
		}
		return append([]int64{}, t.Int64Data...), true
	case Int32:
		if t.HasRawData {
			if int64(len(t.RawData)) != 4*n {
				return nil, false
			}
			out := make([]int64, n)
			for i := range out {
				out[i] = int64(int32(binary.LittleEndian.Uint32(t.RawData[4*i:])))
			}
			return out, true
		}
		if int64(len(t.Int32Data)) != n {
			return nil, false
		}
		out := make([]int64, n)
		for i, v := range t.Int32Data {
			out[i] = int64(v)
		}
		return out, true
	default:
		return nil, false
	}
}
