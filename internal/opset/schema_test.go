package opset

import (
	"errors"
	"testing"

	"github.com/MeKo-Tech/modelcheck/internal/onnx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCtx is a Context over literal inputs.
type fakeCtx struct {
	opType    string
	version   int64
	inputs    []*onnx.Type
	consts    map[int]*onnx.Tensor
	data      map[int]*onnx.Shape
	attrs     []*onnx.Attribute
	outputs   []*onnx.Type
	outData   []*onnx.Shape
	numOutput int
}

func newCtx(opType string, version int64, inputs ...*onnx.Type) *fakeCtx {
	return &fakeCtx{
		opType:    opType,
		version:   version,
		inputs:    inputs,
		consts:    map[int]*onnx.Tensor{},
		data:      map[int]*onnx.Shape{},
		numOutput: 1,
	}
}

func (c *fakeCtx) withAttrs(attrs ...*onnx.Attribute) *fakeCtx {
	c.attrs = append(c.attrs, attrs...)
	return c
}

func (c *fakeCtx) withConst(i int, t *onnx.Tensor) *fakeCtx {
	c.consts[i] = t
	return c
}

func (c *fakeCtx) withData(i int, s *onnx.Shape) *fakeCtx {
	c.data[i] = s
	return c
}

func (c *fakeCtx) OpType() string      { return c.opType }
func (c *fakeCtx) NodeName() string    { return "n0" }
func (c *fakeCtx) OpsetVersion() int64 { return c.version }
func (c *fakeCtx) NumInputs() int      { return len(c.inputs) }
func (c *fakeCtx) NumOutputs() int     { return c.numOutput }

func (c *fakeCtx) HasInput(i int) bool {
	return i < len(c.inputs) && (c.inputs[i] != nil || c.consts[i] != nil || c.data[i] != nil)
}

func (c *fakeCtx) InputType(i int) *onnx.Type {
	if i >= len(c.inputs) {
		return nil
	}
	return c.inputs[i]
}

func (c *fakeCtx) InputConstant(i int) *onnx.Tensor { return c.consts[i] }
func (c *fakeCtx) InputData(i int) *onnx.Shape      { return c.data[i] }

func (c *fakeCtx) Attribute(name string) *onnx.Attribute {
	for _, a := range c.attrs {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func (c *fakeCtx) SetOutputType(i int, t *onnx.Type) {
	for len(c.outputs) <= i {
		c.outputs = append(c.outputs, nil)
	}
	c.outputs[i] = t
}

func (c *fakeCtx) SetOutputData(i int, s *onnx.Shape) {
	for len(c.outData) <= i {
		c.outData = append(c.outData, nil)
	}
	c.outData[i] = s
}

func (c *fakeCtx) output(t *testing.T, i int) *onnx.Type {
	t.Helper()
	require.Greater(t, len(c.outputs), i, "output %d not set", i)
	return c.outputs[i]
}

func float(dims ...int64) *onnx.Type {
	return onnx.NewTensorType(onnx.Float, onnx.Dims(dims...))
}

func int64T(dims ...int64) *onnx.Type {
	return onnx.NewTensorType(onnx.Int64, onnx.Dims(dims...))
}

func run(t *testing.T, ctx *fakeCtx) error {
	t.Helper()
	s := Lookup("", ctx.opType, ctx.version)
	require.NotNil(t, s, "no schema for %s v%d", ctx.opType, ctx.version)
	require.NotNil(t, s.Infer)
	return s.Infer(ctx)
}

func TestLookup_PicksNewestSinceVersion(t *testing.T) {
	s := Lookup("", "Reshape", 12)
	require.NotNil(t, s)
	assert.Equal(t, int64(5), s.SinceVersion)

	s = Lookup("ai.onnx", "Reshape", 4)
	require.NotNil(t, s)
	assert.Equal(t, int64(1), s.SinceVersion)
}

func TestLookup_UnknownOperator(t *testing.T) {
	assert.Nil(t, Lookup("", "NoSuchOp", 17))
}

func TestLookup_BeforeIntroduction(t *testing.T) {
	assert.Nil(t, Lookup("", "Gelu", 17))
	assert.NotNil(t, Lookup("", "Gelu", 20))
}

func TestLookup_CatalogueIsPermissive(t *testing.T) {
	s := Lookup("", "TopK", 11)
	require.NotNil(t, s)
	assert.True(t, s.AnyAttributes)
	assert.Equal(t, Unbounded, s.MaxInputs)

	ml := Lookup(onnx.DomainML, "ZipMap", 1)
	require.NotNil(t, ml)
}

func TestRegister_ReplacesSameVersion(t *testing.T) {
	Register(&Schema{Name: "CustomTestOp", Domain: "test.domain", SinceVersion: 1, MaxInputs: 1})
	Register(&Schema{Name: "CustomTestOp", Domain: "test.domain", SinceVersion: 1, MaxInputs: 2})
	s := Lookup("test.domain", "CustomTestOp", 3)
	require.NotNil(t, s)
	assert.Equal(t, 2, s.MaxInputs)
}

func TestIsStandardDomain(t *testing.T) {
	assert.True(t, IsStandardDomain(""))
	assert.True(t, IsStandardDomain("ai.onnx"))
	assert.True(t, IsStandardDomain(onnx.DomainML))
	assert.False(t, IsStandardDomain("com.microsoft"))
}

func TestBroadcastShapes(t *testing.T) {
	out, err := broadcastShapes(onnx.NewShape(2, 1, 4), onnx.NewShape(3, 1))
	require.NoError(t, err)
	assert.Equal(t, "[2,3,4]", out.String())

	_, err = broadcastShapes(onnx.NewShape(2, 3), onnx.NewShape(4))
	require.Error(t, err)

	sym := &onnx.Shape{Dims: []onnx.Dim{onnx.DimParam("N"), onnx.DimValue(1)}}
	out, err = broadcastShapes(sym, onnx.NewShape(5))
	require.NoError(t, err)
	assert.Equal(t, "[N,5]", out.String())
}

func TestAddInfer_Broadcast(t *testing.T) {
	ctx := newCtx("Add", 14, float(2, 3), float(3))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[2,3]", ctx.output(t, 0).String())
}

func TestAddInfer_MismatchedElemType(t *testing.T) {
	ctx := newCtx("Add", 14, float(2), int64T(2))
	err := run(t, ctx)
	require.Error(t, err)

	var ie *InferenceError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, TypeInferenceError, ie.Kind)
	assert.Contains(t, err.Error(), "bound to different types")
}

func TestEqualInfer_ProducesBool(t *testing.T) {
	ctx := newCtx("Equal", 13, float(4), float(4))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, onnx.Bool, ctx.output(t, 0).Tensor.ElemType)
}

func TestCastInfer(t *testing.T) {
	ctx := newCtx("Cast", 13, float(2, 2)).withAttrs(onnx.AttrIntValue("to", int64(onnx.Int32)))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(int32)[2,2]", ctx.output(t, 0).String())
}

func TestMatMulInfer(t *testing.T) {
	tests := []struct {
		name string
		a, b *onnx.Type
		want string
	}{
		{"matrix", float(2, 3), float(3, 4), "tensor(float)[2,4]"},
		{"batched", float(5, 2, 3), float(3, 4), "tensor(float)[5,2,4]"},
		{"vector left", float(3), float(3, 4), "tensor(float)[4]"},
		{"vector right", float(2, 3), float(3), "tensor(float)[2]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newCtx("MatMul", 13, tt.a, tt.b)
			require.NoError(t, run(t, ctx))
			assert.Equal(t, tt.want, ctx.output(t, 0).String())
		})
	}
}

func TestMatMulInfer_IncompatibleInner(t *testing.T) {
	err := run(t, newCtx("MatMul", 13, float(2, 3), float(4, 5)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incompatible dimensions")
}

func TestGemmInfer_Transposed(t *testing.T) {
	ctx := newCtx("Gemm", 13, float(3, 2), float(4, 3), float(4)).
		withAttrs(onnx.AttrIntValue("transA", 1), onnx.AttrIntValue("transB", 1))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[2,4]", ctx.output(t, 0).String())
}

func TestConvInfer(t *testing.T) {
	ctx := newCtx("Conv", 11, float(1, 3, 32, 32), float(8, 3, 3, 3)).
		withAttrs(onnx.AttrIntsValue("pads", 1, 1, 1, 1), onnx.AttrIntsValue("strides", 2, 2))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[1,8,16,16]", ctx.output(t, 0).String())
}

func TestConvInfer_ChannelMismatch(t *testing.T) {
	err := run(t, newCtx("Conv", 11, float(1, 4, 8, 8), float(8, 3, 3, 3)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel dimension")
}

func TestMaxPoolInfer_CeilMode(t *testing.T) {
	ctx := newCtx("MaxPool", 12, float(1, 1, 5, 5)).withAttrs(
		onnx.AttrIntsValue("kernel_shape", 2, 2),
		onnx.AttrIntsValue("strides", 2, 2),
		onnx.AttrIntValue("ceil_mode", 1),
	)
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[1,1,3,3]", ctx.output(t, 0).String())
}

func TestGlobalAveragePoolInfer(t *testing.T) {
	ctx := newCtx("GlobalAveragePool", 1, float(2, 16, 7, 7))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[2,16,1,1]", ctx.output(t, 0).String())
}

func TestFlattenInfer(t *testing.T) {
	ctx := newCtx("Flatten", 13, float(2, 3, 4)).withAttrs(onnx.AttrIntValue("axis", 2))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[6,4]", ctx.output(t, 0).String())
}

func TestFlattenInfer_KeepsSymbolicBatch(t *testing.T) {
	x := onnx.NewTensorType(onnx.Float, []onnx.Dim{onnx.DimParam("N"), onnx.DimValue(64), onnx.DimValue(1), onnx.DimValue(1)})
	ctx := newCtx("Flatten", 13, x).withAttrs(onnx.AttrIntValue("axis", 1))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[N,64]", ctx.output(t, 0).String())

	y := onnx.NewTensorType(onnx.Float, []onnx.Dim{onnx.DimParam("N"), onnx.DimParam("C"), onnx.DimValue(4)})
	ctx = newCtx("Flatten", 13, y).withAttrs(onnx.AttrIntValue("axis", 2))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[?,4]", ctx.output(t, 0).String())
}

func TestReshapeInfer_ConstantShape(t *testing.T) {
	ctx := newCtx("Reshape", 13, float(2, 3, 4), int64T(2)).
		withConst(1, onnx.Int64Tensor("shape", []int64{2}, 0, -1))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[2,12]", ctx.output(t, 0).String())
}

func TestReshapeInfer_MultipleNegativeOne(t *testing.T) {
	ctx := newCtx("Reshape", 13, float(2, 3, 4), int64T(2)).
		withConst(1, onnx.Int64Tensor("shape", []int64{2}, -1, -1))
	require.Error(t, run(t, ctx))
}

func TestReshapeInfer_PropagatedData(t *testing.T) {
	data := &onnx.Shape{Dims: []onnx.Dim{onnx.DimParam("N"), onnx.DimValue(-1)}}
	ctx := newCtx("Reshape", 13, float(2, 3, 4), int64T(2)).withData(1, data)
	require.NoError(t, run(t, ctx))
	out := ctx.output(t, 0).Tensor.Shape
	require.Equal(t, 2, out.Rank())
	assert.Equal(t, "N", out.Dims[0].Param)
}

func TestReshapeInfer_UnknownTargetLength(t *testing.T) {
	ctx := newCtx("Reshape", 13, float(2, 3, 4), int64T(3))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, 3, ctx.output(t, 0).Tensor.Shape.Rank())
}

func TestTransposeInfer(t *testing.T) {
	ctx := newCtx("Transpose", 13, float(2, 3, 4)).withAttrs(onnx.AttrIntsValue("perm", 2, 0, 1))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[4,2,3]", ctx.output(t, 0).String())

	ctx = newCtx("Transpose", 13, float(2, 3, 4))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[4,3,2]", ctx.output(t, 0).String())
}

func TestConcatInfer(t *testing.T) {
	ctx := newCtx("Concat", 13, float(2, 3), float(2, 5)).withAttrs(onnx.AttrIntValue("axis", -1))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[2,8]", ctx.output(t, 0).String())

	err := run(t, newCtx("Concat", 13, float(2, 3), float(3, 3)).withAttrs(onnx.AttrIntValue("axis", 1)))
	require.Error(t, err)
}

func TestShapeInfer_StartEnd(t *testing.T) {
	ctx := newCtx("Shape", 15, float(2, 3, 4, 5)).withAttrs(onnx.AttrIntValue("start", 1), onnx.AttrIntValue("end", -1))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(int64)[2]", ctx.output(t, 0).String())
}

func TestGatherInfer(t *testing.T) {
	ctx := newCtx("Gather", 13, float(5, 4, 3), int64T(2, 2)).withAttrs(onnx.AttrIntValue("axis", 1))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[5,2,2,3]", ctx.output(t, 0).String())
}

func TestSqueezeUnsqueezeInfer(t *testing.T) {
	ctx := newCtx("Squeeze", 11, float(1, 3, 1)).withAttrs(onnx.AttrIntsValue("axes", 0))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[3,1]", ctx.output(t, 0).String())

	ctx = newCtx("Squeeze", 13, float(1, 3, 1))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[3]", ctx.output(t, 0).String())

	ctx = newCtx("Unsqueeze", 13, float(3), int64T(2)).withConst(1, onnx.Int64Tensor("axes", []int64{2}, 0, -1))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[1,3,1]", ctx.output(t, 0).String())

	err := run(t, newCtx("Squeeze", 11, float(2, 3)).withAttrs(onnx.AttrIntsValue("axes", 0)))
	require.Error(t, err)
}

func TestSliceInfer(t *testing.T) {
	ctx := newCtx("Slice", 13, float(10, 8), int64T(1), int64T(1), int64T(1), int64T(1)).
		withConst(1, onnx.Int64Tensor("starts", []int64{1}, -3)).
		withConst(2, onnx.Int64Tensor("ends", []int64{1}, 100)).
		withConst(3, onnx.Int64Tensor("axes", []int64{1}, 0)).
		withConst(4, onnx.Int64Tensor("steps", []int64{1}, 1))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[3,8]", ctx.output(t, 0).String())
}

func TestSliceLen(t *testing.T) {
	assert.Equal(t, int64(5), sliceLen(10, 0, 10, 2))
	assert.Equal(t, int64(10), sliceLen(10, -1, -100, -1))
	assert.Equal(t, int64(0), sliceLen(10, 5, 2, 1))
}

func TestReduceInfer(t *testing.T) {
	ctx := newCtx("ReduceMean", 13, float(2, 3, 4)).withAttrs(onnx.AttrIntsValue("axes", 1))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[2,1,4]", ctx.output(t, 0).String())

	ctx = newCtx("ReduceSum", 13, float(2, 3, 4), int64T(1)).
		withConst(1, onnx.Int64Tensor("axes", []int64{1}, -1)).
		withAttrs(onnx.AttrIntValue("keepdims", 0))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[2,3]", ctx.output(t, 0).String())
}

func TestPadInfer(t *testing.T) {
	ctx := newCtx("Pad", 13, float(2, 3), int64T(4)).withConst(1, onnx.Int64Tensor("pads", []int64{4}, 0, 1, 0, 2))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[2,6]", ctx.output(t, 0).String())
}

func TestConstantInfer(t *testing.T) {
	ctx := newCtx("Constant", 13).withAttrs(onnx.AttrIntsValue("value_ints", 1, 2, 3))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(int64)[3]", ctx.output(t, 0).String())

	err := run(t, newCtx("Constant", 13))
	require.Error(t, err)
}

func TestExpandInfer(t *testing.T) {
	ctx := newCtx("Expand", 13, float(3, 1), int64T(3)).withConst(1, onnx.Int64Tensor("shape", []int64{3}, 2, 1, 6))
	require.NoError(t, run(t, ctx))
	assert.Equal(t, "tensor(float)[2,3,6]", ctx.output(t, 0).String())
}
