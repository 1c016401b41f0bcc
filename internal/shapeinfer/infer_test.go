package shapeinfer

import (
	"errors"
	"testing"

	"github.com/MeKo-Tech/modelcheck/internal/onnx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valueInfo(g *onnx.Graph, name string) *onnx.ValueInfo {
	for _, vi := range g.ValueInfo {
		if vi.Name == name {
			return vi
		}
	}
	return nil
}

func reluChain(outputDims []onnx.Dim) *onnx.Model {
	g := &onnx.Graph{
		Name: "chain",
		Nodes: []*onnx.Node{
			onnx.MakeNode("Relu", []string{"x"}, []string{"r"}),
			onnx.MakeNode("Add", []string{"r", "bias"}, []string{"y"}),
		},
		Initializers: []*onnx.Tensor{onnx.FloatTensor("bias", []int64{4}, 1, 2, 3, 4)},
		Inputs:       []*onnx.ValueInfo{onnx.MakeTensorValueInfo("x", onnx.Float, onnx.Dims(3, 4))},
		Outputs:      []*onnx.ValueInfo{onnx.MakeTensorValueInfo("y", onnx.Float, outputDims)},
	}
	return onnx.MakeModel(g, 13)
}

func TestInferShapes_RecordsIntermediates(t *testing.T) {
	m := reluChain(nil)

	out, err := InferShapes(m, Options{Strict: true})
	require.NoError(t, err)

	vi := valueInfo(out.Graph, "r")
	require.NotNil(t, vi)
	assert.Equal(t, "tensor(float)[3,4]", vi.Type.String())
	assert.Equal(t, "tensor(float)[3,4]", out.Graph.Outputs[0].Type.String())
}

func TestInferShapes_DoesNotMutateInput(t *testing.T) {
	m := reluChain(nil)

	_, err := InferShapes(m, Options{})
	require.NoError(t, err)
	assert.Empty(t, m.Graph.ValueInfo)
	assert.Nil(t, m.Graph.Outputs[0].Type.Tensor.Shape)
}

func TestInferShapes_ConflictingDeclaredOutput(t *testing.T) {
	m := reluChain(onnx.Dims(3, 5))

	_, err := InferShapes(m, Options{Strict: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInference))
	assert.Contains(t, err.Error(), "[ShapeInferenceError]")
	assert.Contains(t, err.Error(), "Inferred shape and existing shape differ in dimension 1: (4) vs (5)")

	out, err := InferShapes(m, Options{})
	require.NoError(t, err)
	assert.Equal(t, "tensor(float)[3,5]", out.Graph.Outputs[0].Type.String())
}

func TestInferShapes_ElemTypeConflict(t *testing.T) {
	m := reluChain(nil)
	m.Graph.Outputs[0] = onnx.MakeTensorValueInfo("y", onnx.Int64, nil)

	_, err := InferShapes(m, Options{Strict: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Inferred elem type differs from existing elem type: (1) vs (7)")
}

func TestInferShapes_RankConflict(t *testing.T) {
	m := reluChain(onnx.Dims(12))

	_, err := InferShapes(m, Options{Strict: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "differ in rank: (2) vs (1)")
}

func TestInferShapes_NodeErrorNamesNode(t *testing.T) {
	g := &onnx.Graph{
		Name: "bad",
		Nodes: []*onnx.Node{
			{OpType: "MatMul", Name: "mm", Inputs: []string{"a", "b"}, Outputs: []string{"c"}},
		},
		Inputs: []*onnx.ValueInfo{
			onnx.MakeTensorValueInfo("a", onnx.Float, onnx.Dims(2, 3)),
			onnx.MakeTensorValueInfo("b", onnx.Float, onnx.Dims(4, 5)),
		},
		Outputs: []*onnx.ValueInfo{onnx.MakeTensorValueInfo("c", onnx.Float, nil)},
	}
	m := onnx.MakeModel(g, 13)

	_, err := InferShapes(m, Options{Strict: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(op_type:MatMul, node name: mm)")

	_, err = InferShapes(m, Options{})
	require.NoError(t, err)
}

// reshapeByShape builds Reshape(x, Concat(Slice(Shape(x), [0], [1]), [-1])).
func reshapeByShape() *onnx.Model {
	g := &onnx.Graph{
		Name: "dynamic_reshape",
		Nodes: []*onnx.Node{
			onnx.MakeNode("Shape", []string{"x"}, []string{"shape"}),
			onnx.MakeNode("Slice", []string{"shape", "starts", "ends"}, []string{"batch"}),
			onnx.MakeNode("Concat", []string{"batch", "minus_one"}, []string{"target"}, onnx.AttrIntValue("axis", 0)),
			onnx.MakeNode("Reshape", []string{"x", "target"}, []string{"y"}),
		},
		Initializers: []*onnx.Tensor{
			onnx.Int64Tensor("starts", []int64{1}, 0),
			onnx.Int64Tensor("ends", []int64{1}, 1),
			onnx.Int64Tensor("minus_one", []int64{1}, -1),
		},
		Inputs:  []*onnx.ValueInfo{onnx.MakeTensorValueInfo("x", onnx.Float, onnx.Dims(2, 3, 4))},
		Outputs: []*onnx.ValueInfo{onnx.MakeTensorValueInfo("y", onnx.Float, nil)},
	}
	return onnx.MakeModel(g, 13)
}

func TestInferShapes_DataPropagation(t *testing.T) {
	out, err := InferShapes(reshapeByShape(), Options{Strict: true, DataPropagation: true})
	require.NoError(t, err)
	assert.Equal(t, "tensor(float)[2,12]", out.Graph.Outputs[0].Type.String())

	target := valueInfo(out.Graph, "target")
	require.NotNil(t, target)
	assert.Equal(t, "tensor(int64)[2]", target.Type.String())
}

func TestInferShapes_WithoutDataPropagation(t *testing.T) {
	out, err := InferShapes(reshapeByShape(), Options{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, "tensor(float)[?,?]", out.Graph.Outputs[0].Type.String())
}

func TestInferShapes_ConstantNodeFeedsShapeInput(t *testing.T) {
	g := &onnx.Graph{
		Name: "constant_shape",
		Nodes: []*onnx.Node{
			onnx.MakeNode("Constant", nil, []string{"shape"},
				onnx.AttrTensorValue("value", onnx.Int64Tensor("", []int64{2}, 4, 6))),
			onnx.MakeNode("Reshape", []string{"x", "shape"}, []string{"y"}),
		},
		Inputs:  []*onnx.ValueInfo{onnx.MakeTensorValueInfo("x", onnx.Float, onnx.Dims(2, 3, 4))},
		Outputs: []*onnx.ValueInfo{onnx.MakeTensorValueInfo("y", onnx.Float, nil)},
	}

	out, err := InferShapes(onnx.MakeModel(g, 13), Options{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, "tensor(float)[4,6]", out.Graph.Outputs[0].Type.String())
}

func TestInferShapes_SkipsCustomDomain(t *testing.T) {
	g := &onnx.Graph{
		Name: "custom",
		Nodes: []*onnx.Node{
			{OpType: "FusedThing", Domain: "com.example", Inputs: []string{"x"}, Outputs: []string{"y"}},
		},
		Inputs:  []*onnx.ValueInfo{onnx.MakeTensorValueInfo("x", onnx.Float, onnx.Dims(1))},
		Outputs: []*onnx.ValueInfo{onnx.MakeTensorValueInfo("y", onnx.Float, nil)},
	}
	m := onnx.MakeModel(g, 13)
	m.OpsetImports = append(m.OpsetImports, onnx.OperatorSetID{Domain: "com.example", Version: 1})

	out, err := InferShapes(m, Options{Strict: true})
	require.NoError(t, err)
	assert.Empty(t, out.Graph.ValueInfo)
}

func TestInferShapes_NoGraph(t *testing.T) {
	out, err := InferShapes(&onnx.Model{IRVersion: 8}, Options{Strict: true})
	require.NoError(t, err)
	assert.Nil(t, out.Graph)
}
