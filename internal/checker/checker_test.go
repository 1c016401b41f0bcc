package checker

import (
	"errors"
	"testing"

	"github.com/MeKo-Tech/modelcheck/internal/onnx"
	"github.com/MeKo-Tech/modelcheck/internal/shapeinfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validModel() *onnx.Model {
	g := &onnx.Graph{
		Name: "main",
		Nodes: []*onnx.Node{
			onnx.MakeNode("MatMul", []string{"x", "w"}, []string{"h"}),
			onnx.MakeNode("Relu", []string{"h"}, []string{"y"}),
		},
		Initializers: []*onnx.Tensor{onnx.FloatTensor("w", []int64{2, 2}, 1, 0, 0, 1)},
		Inputs:       []*onnx.ValueInfo{onnx.MakeTensorValueInfo("x", onnx.Float, []onnx.Dim{onnx.DimParam("N"), onnx.DimValue(2)})},
		Outputs:      []*onnx.ValueInfo{onnx.MakeTensorValueInfo("y", onnx.Float, nil)},
	}
	return onnx.MakeModel(g, 13)
}

func requireViolation(t *testing.T, err error, contains string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation), "error should wrap ErrValidation: %v", err)
	assert.Contains(t, err.Error(), contains)
}

func TestCheckModel_Valid(t *testing.T) {
	m := validModel()
	require.NoError(t, CheckModel(m, false))
	require.NoError(t, CheckModel(m, true))
}

func TestCheckModel_NewestIRAndOpset(t *testing.T) {
	for _, version := range []int64{23, 24} {
		m := validModel()
		g := m.Graph
		g.Nodes[1].Outputs = []string{"r"}
		g.Nodes = append(g.Nodes, onnx.MakeNode("Cast", []string{"r"}, []string{"y"},
			onnx.AttrIntValue("to", int64(onnx.Float))))
		m.IRVersion = onnx.IRVersion
		m.OpsetImports[0].Version = version

		require.NoError(t, CheckModel(m, false), "opset %d", version)
		require.NoError(t, CheckModel(m, true), "opset %d", version)
	}
}

func TestCheckModel_InferredModelStillValid(t *testing.T) {
	inferred, err := shapeinfer.InferShapes(validModel(), shapeinfer.Options{})
	require.NoError(t, err)
	require.NoError(t, CheckModel(inferred, false))
	require.NoError(t, CheckModel(inferred, true))
}

func TestCheckModel_ModelRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *onnx.Model)
		message string
	}{
		{"missing ir_version", func(m *onnx.Model) { m.IRVersion = 0 }, "does not have an ir_version"},
		{"ir_version too new", func(m *onnx.Model) { m.IRVersion = 99 }, "higher than the checker's (11)"},
		{"no opset import", func(m *onnx.Model) { m.OpsetImports = nil }, "must specify opset_import"},
		{"duplicate default domain", func(m *onnx.Model) {
			m.OpsetImports = append(m.OpsetImports, onnx.OperatorSetID{Domain: "ai.onnx", Version: 13})
		}, "duplicate domain name"},
		{"duplicate metadata key", func(m *onnx.Model) {
			m.MetadataProps = []onnx.StringEntry{{Key: "a", Value: "1"}, {Key: "a", Value: "2"}}
		}, "duplicate keys in metadata_props"},
		{"missing graph", func(m *onnx.Model) { m.Graph = nil }, "Field 'graph' of 'model' is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validModel()
			tt.mutate(m)
			requireViolation(t, CheckModel(m, false), tt.message)
		})
	}
}

func TestCheckModel_GraphRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(g *onnx.Graph)
		message string
	}{
		{"empty graph name", func(g *onnx.Graph) { g.Name = "" }, "Field 'name' of 'graph'"},
		{"input without type", func(g *onnx.Graph) { g.Inputs[0].Type = nil }, "Field 'type' of 'value_info'"},
		{"output elem type unset", func(g *onnx.Graph) {
			g.Outputs[0] = onnx.MakeTensorValueInfo("y", onnx.Undefined, nil)
		}, "Field 'elem_type' of 'type'"},
		{"duplicate initializer", func(g *onnx.Graph) {
			g.Initializers = append(g.Initializers, onnx.FloatTensor("w", []int64{1}, 1))
		}, "w initializer name is not unique"},
		{"nodes out of order", func(g *onnx.Graph) {
			g.Nodes[0], g.Nodes[1] = g.Nodes[1], g.Nodes[0]
		}, "topologically sorted, however input 'h'"},
		{"output produced twice", func(g *onnx.Graph) {
			g.Nodes = append(g.Nodes, onnx.MakeNode("Relu", []string{"x"}, []string{"h"}))
		}, "single static assignment"},
		{"dangling graph output", func(g *onnx.Graph) {
			g.Outputs = append(g.Outputs, onnx.MakeTensorValueInfo("z", onnx.Float, nil))
		}, "Graph output 'z' is not an output of any node"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validModel()
			tt.mutate(m.Graph)
			requireViolation(t, CheckModel(m, false), tt.message)
		})
	}
}

func TestCheckModel_InitializerMustBeInputBeforeIR4(t *testing.T) {
	m := validModel()
	m.IRVersion = 3
	requireViolation(t, CheckModel(m, false), "w in initializer but not in graph input")

	m.Graph.Inputs = append(m.Graph.Inputs, onnx.MakeTensorValueInfo("w", onnx.Float, onnx.Dims(2, 2)))
	require.NoError(t, CheckModel(m, false))
}

func TestCheckModel_NodeRules(t *testing.T) {
	tests := []struct {
		name    string
		node    *onnx.Node
		message string
	}{
		{"empty op_type", &onnx.Node{Inputs: []string{"x"}, Outputs: []string{"z"}}, "Field 'op_type' of 'node'"},
		{"no inputs or outputs", &onnx.Node{OpType: "Relu"}, "has zero input and zero output"},
		{"unregistered op", onnx.MakeNode("Frobnicate", []string{"x"}, []string{"z"}), "No Op registered for Frobnicate with domain_version of 13"},
		{"domain not imported", &onnx.Node{OpType: "Foo", Domain: "com.example", Inputs: []string{"x"}, Outputs: []string{"z"}}, "No opset import for domain 'com.example'"},
		{"too many inputs", onnx.MakeNode("Relu", []string{"x", "x"}, []string{"z"}), "has input size 2 not in range [min=1, max=1]"},
		{"unknown attribute", onnx.MakeNode("Relu", []string{"x"}, []string{"z"}, onnx.AttrIntValue("alpha", 1)), "Unrecognized attribute: alpha for operator Relu"},
		{"attribute type mismatch", onnx.MakeNode("Flatten", []string{"x"}, []string{"z"}, onnx.AttrFloatValue("axis", 1)), "Mismatched attribute type"},
		{"missing required attribute", onnx.MakeNode("Cast", []string{"x"}, []string{"z"}), "Required attribute 'to' is missing."},
		{"attribute with two values", onnx.MakeNode("Flatten", []string{"x"}, []string{"z"},
			&onnx.Attribute{Name: "axis", Type: onnx.AttrInt, I: 1, HasI: true, F: 1, HasF: true}), "more than one value field"},
		{"attribute type unset", onnx.MakeNode("Flatten", []string{"x"}, []string{"z"},
			&onnx.Attribute{Name: "axis", I: 1, HasI: true}), "Field 'type' of 'attr'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validModel()
			m.Graph.Nodes = append(m.Graph.Nodes, tt.node)
			requireViolation(t, CheckModel(m, false), tt.message)
		})
	}
}

func TestCheckModel_CustomDomainSkippedByDefault(t *testing.T) {
	m := validModel()
	m.OpsetImports = append(m.OpsetImports, onnx.OperatorSetID{Domain: "com.example", Version: 1})
	m.Graph.Nodes = append(m.Graph.Nodes, &onnx.Node{
		OpType: "Fused", Domain: "com.example", Inputs: []string{"y"}, Outputs: []string{"z"},
	})
	require.NoError(t, CheckModel(m, false))

	c := New()
	c.CheckCustomDomain = true
	requireViolation(t, c.CheckModel(m, false), "No Op registered for Fused with domain com.example")
}

func TestCheckModel_TensorRules(t *testing.T) {
	tests := []struct {
		name    string
		tensor  *onnx.Tensor
		message string
	}{
		{"no data type", &onnx.Tensor{Name: "bad", Dims: []int64{1}, FloatData: []float32{1}}, "Field 'data_type' of 'tensor'"},
		{"no data", &onnx.Tensor{Name: "bad", Dims: []int64{2}, DataType: onnx.Float}, "one and only one value field"},
		{"two data fields", &onnx.Tensor{Name: "bad", Dims: []int64{1}, DataType: onnx.Float, FloatData: []float32{1}, RawData: []byte{0, 0, 0, 0}, HasRawData: true}, "one and only one value field"},
		{"wrong field", &onnx.Tensor{Name: "bad", Dims: []int64{1}, DataType: onnx.Float, Int64Data: []int64{1}}, "should be stored in field 'float_data' instead of 'int64_data'"},
		{"string in raw", &onnx.Tensor{Name: "bad", Dims: []int64{1}, DataType: onnx.String, RawData: []byte("a"), HasRawData: true}, "should not be stored in raw_data"},
		{"short raw data", &onnx.Tensor{Name: "bad", Dims: []int64{2}, DataType: onnx.Float, RawData: []byte{0, 0, 0, 0}, HasRawData: true}, "4 bytes of raw_data but 8 are needed"},
		{"count mismatch", &onnx.Tensor{Name: "bad", Dims: []int64{3}, DataType: onnx.Int64, Int64Data: []int64{1, 2}}, "holds 2 values in int64_data but 3 are needed"},
		{"empty with data", &onnx.Tensor{Name: "bad", Dims: []int64{0}, DataType: onnx.Int64, Int64Data: []int64{1}}, "is 0-element but contains data"},
		{"external without location", &onnx.Tensor{Name: "bad", Dims: []int64{1}, DataType: onnx.Float, DataLocation: onnx.LocationExternal}, "stored externally but doesn't have a location"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validModel()
			m.Graph.Initializers = append(m.Graph.Initializers, tt.tensor)
			requireViolation(t, CheckModel(m, false), tt.message)
		})
	}
}

func TestCheckModel_ExternalTensorWithLocation(t *testing.T) {
	m := validModel()
	m.Graph.Initializers[0] = &onnx.Tensor{
		Name: "w", Dims: []int64{2, 2}, DataType: onnx.Float,
		DataLocation: onnx.LocationExternal,
		ExternalData: []onnx.StringEntry{{Key: "location", Value: "weights.bin"}},
	}
	require.NoError(t, CheckModel(m, false))
}

func TestCheckModel_SubgraphSeesOuterScope(t *testing.T) {
	branch := func(name string) *onnx.Graph {
		return &onnx.Graph{
			Name:    name,
			Nodes:   []*onnx.Node{onnx.MakeNode("Identity", []string{"y"}, []string{name + "_out"})},
			Outputs: []*onnx.ValueInfo{onnx.MakeTensorValueInfo(name+"_out", onnx.Float, nil)},
		}
	}
	m := validModel()
	m.Graph.Inputs = append(m.Graph.Inputs, onnx.MakeTensorValueInfo("cond", onnx.Bool, []onnx.Dim{}))
	m.Graph.Nodes = append(m.Graph.Nodes, onnx.MakeNode("If", []string{"cond"}, []string{"z"},
		onnx.AttrGraphValue("then_branch", branch("then")),
		onnx.AttrGraphValue("else_branch", branch("else")),
	))
	require.NoError(t, CheckModel(m, false))

	bad := branch("then")
	bad.Nodes[0].Inputs[0] = "missing"
	m.Graph.Nodes[len(m.Graph.Nodes)-1].Attributes[0].G = bad
	requireViolation(t, CheckModel(m, false), "input 'missing'")
}

func TestCheckModel_FullRejectsInferenceConflict(t *testing.T) {
	m := validModel()
	m.Graph.Outputs[0] = onnx.MakeTensorValueInfo("y", onnx.Float, onnx.Dims(1, 3))

	require.NoError(t, CheckModel(m, false))

	err := CheckModel(m, true)
	requireViolation(t, err, "Inferred shape and existing shape differ in dimension 1: (2) vs (3)")
	assert.True(t, errors.Is(err, shapeinfer.ErrInference))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "model", ve.Context)
}

func TestValidationError_Context(t *testing.T) {
	m := validModel()
	m.Graph.Nodes[1].OpType = "Frobnicate"

	err := CheckModel(m, false)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "model / graph main / node 1 (Frobnicate)", ve.Context)
	assert.True(t, IsValidationError(err))
}
