package testutil

import (
	"fmt"
	"testing"

	"github.com/MeKo-Tech/modelcheck/internal/onnx"
)

// ValidModel returns y = Relu(x) + w with fully declared shapes.
func ValidModel() *onnx.Model {
	g := &onnx.Graph{
		Name: "main",
		Nodes: []*onnx.Node{
			onnx.MakeNode("Relu", []string{"x"}, []string{"r"}),
			onnx.MakeNode("Add", []string{"r", "w"}, []string{"y"}),
		},
		Initializers: []*onnx.Tensor{onnx.FloatTensor("w", []int64{4}, 1, 2, 3, 4)},
		Inputs:       []*onnx.ValueInfo{onnx.MakeTensorValueInfo("x", onnx.Float, onnx.Dims(1, 4))},
		Outputs:      []*onnx.ValueInfo{onnx.MakeTensorValueInfo("y", onnx.Float, onnx.Dims(1, 4))},
	}
	return onnx.MakeModel(g, 13)
}

// ConflictingShapeModel declares an output shape that shape inference
// contradicts. The structural check accepts it; the full check does not.
func ConflictingShapeModel() *onnx.Model {
	m := ValidModel()
	m.Graph.Outputs[0] = onnx.MakeTensorValueInfo("y", onnx.Float, onnx.Dims(1, 5))
	return m
}

// UnknownOpModel uses an operator no schema exists for.
func UnknownOpModel() *onnx.Model {
	m := ValidModel()
	m.Graph.Nodes[0] = onnx.MakeNode("Frobnicate", []string{"x"}, []string{"r"})
	return m
}

// LFSPointer returns pointer file content for a blob of size bytes.
func LFSPointer(size int) []byte {
	return fmt.Appendf(nil,
		"version https://git-lfs.github.com/spec/v1\n"+
			"oid sha256:4d7a214614ab2935c943f9e0ff69d22eadbb8f32b1258daaa5e2ca24d17e2393\n"+
			"size %d\n", size)
}

// WriteModel encodes m to root/rel.
func WriteModel(t *testing.T, root, rel string, m *onnx.Model) string {
	t.Helper()
	return WriteFile(t, root, rel, onnx.Marshal(m))
}

// WriteTruncatedModel writes the first half of a valid model's encoding.
func WriteTruncatedModel(t *testing.T, root, rel string) string {
	t.Helper()
	data := onnx.Marshal(ValidModel())
	return WriteFile(t, root, rel, data[:len(data)/2])
}

// WriteLFSPointer writes an un-fetched pointer file to root/rel.
func WriteLFSPointer(t *testing.T, root, rel string) string {
	t.Helper()
	return WriteFile(t, root, rel, LFSPointer(12345))
}
