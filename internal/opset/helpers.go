package opset

import (
	"fmt"

	"github.com/MeKo-Tech/modelcheck/internal/onnx"
)

// tensorInput returns the tensor type of input i, or nil when the input is
// absent, untyped, or not a tensor.
func tensorInput(ctx Context, i int) *onnx.TensorType {
	if !ctx.HasInput(i) {
		return nil
	}
	t := ctx.InputType(i)
	if t == nil {
		return nil
	}
	return t.Tensor
}

// inputShape returns the shape of tensor input i, or nil if its rank is unknown.
func inputShape(ctx Context, i int) *onnx.Shape {
	tt := tensorInput(ctx, i)
	if tt == nil {
		return nil
	}
	return tt.Shape
}

func inputElem(ctx Context, i int) onnx.DataType {
	tt := tensorInput(ctx, i)
	if tt == nil {
		return onnx.Undefined
	}
	return tt.ElemType
}

// setOutput records a tensor output. A nil shape leaves the rank unknown.
func setOutput(ctx Context, i int, elem onnx.DataType, shape *onnx.Shape) {
	if i >= ctx.NumOutputs() {
		return
	}
	tt := &onnx.TensorType{ElemType: elem}
	if shape != nil {
		tt.Shape = shape.Clone()
	}
	ctx.SetOutputType(i, &onnx.Type{Tensor: tt})
}

// unknownShape returns a shape of the given rank with unknown dimensions.
func unknownShape(rank int) *onnx.Shape {
	return &onnx.Shape{Dims: make([]onnx.Dim, rank)}
}

// sameElemType checks that every present tensor input in idx has the same
// element type and returns it.
func sameElemType(ctx Context, idx ...int) (onnx.DataType, error) {
	elem := onnx.Undefined
	for _, i := range idx {
		e := inputElem(ctx, i)
		if e == onnx.Undefined {
			continue
		}
		if elem != onnx.Undefined && e != elem {
			return elem, typeErr("Type parameter (T) of Optype (%s) bound to different types (tensor(%s) and tensor(%s)) in node (%s).",
				ctx.OpType(), elem, e, ctx.NodeName())
		}
		elem = e
	}
	return elem, nil
}

func attrInt(ctx Context, name string, def int64) int64 {
	if a := ctx.Attribute(name); a != nil && a.HasI {
		return a.I
	}
	return def
}

func attrInts(ctx Context, name string) ([]int64, bool) {
	a := ctx.Attribute(name)
	if a == nil {
		return nil, false
	}
	return a.Ints, true
}

func attrString(ctx Context, name, def string) string {
	if a := ctx.Attribute(name); a != nil && a.HasS {
		return string(a.S)
	}
	return def
}

// constInts returns the integer values of input i when known, either as a
// constant or as fully known propagated data.
func constInts(ctx Context, i int) ([]int64, bool) {
	if !ctx.HasInput(i) {
		return nil, false
	}
	if t := ctx.InputConstant(i); t != nil {
		return t.IntValues()
	}
	if data := ctx.InputData(i); data != nil {
		return data.Values()
	}
	return nil, false
}

// normalizeAxis maps a possibly negative axis into [0, rank).
func normalizeAxis(axis int64, rank int, what string) (int, error) {
	r := int64(rank)
	if axis < -r || axis >= r {
		return 0, shapeErr("%s %d is out of range [-%d, %d]", what, axis, r, r-1)
	}
	if axis < 0 {
		axis += r
	}
	return int(axis), nil
}

// mergeDim unifies two dimensions that must describe the same extent.
func mergeDim(a, b onnx.Dim) (onnx.Dim, error) {
	switch {
	case a.HasValue && b.HasValue:
		if a.Value != b.Value {
			return a, shapeErr("Can't merge shape info. Both inferred and declared dimension have values but they differ. Inferred value: %d Declared value: %d", a.Value, b.Value)
		}
		return a, nil
	case a.HasValue:
		return a, nil
	case b.HasValue:
		return b, nil
	case a.Param != "":
		return a, nil
	default:
		return b, nil
	}
}

// broadcastShapes applies multidirectional (numpy style) broadcasting.
func broadcastShapes(shapes ...*onnx.Shape) (*onnx.Shape, error) {
	rank := 0
	for _, s := range shapes {
		rank = max(rank, s.Rank())
	}
	out := &onnx.Shape{Dims: make([]onnx.Dim, rank)}
	for i := range rank {
		var (
			known       int64 = -1
			numSymbolic int
			symbolic    onnx.Dim
			mixed       bool
		)
		for _, s := range shapes {
			offset := rank - s.Rank()
			if i < offset {
				continue
			}
			d := s.Dims[i-offset]
			switch {
			case d.HasValue && d.Value != 1:
				if known != -1 && known != d.Value {
					return nil, shapeErr("Incompatible dimensions")
				}
				known = d.Value
			case d.HasValue:
			default:
				if numSymbolic > 0 && (d.Param == "" || d.Param != symbolic.Param) {
					mixed = true
				}
				numSymbolic++
				symbolic = d
			}
		}
		switch {
		case known != -1:
			out.Dims[i] = onnx.DimValue(known)
		case numSymbolic == 0:
			out.Dims[i] = onnx.DimValue(1)
		case !mixed:
			out.Dims[i] = symbolic
		}
	}
	return out, nil
}

// product multiplies dims[from:to] when all are known.
func product(dims []onnx.Dim, from, to int) (int64, bool) {
	p := int64(1)
	for _, d := range dims[from:to] {
		if !d.HasValue {
			return 0, false
		}
		p *= d.Value
	}
	return p, true
}

// dimProduct multiplies dims[from:to]. A single symbolic dim times known 1s
// keeps its name; any other unknown factor gives an unknown dim.
func dimProduct(dims []onnx.Dim, from, to int) onnx.Dim {
	out := onnx.DimValue(1)
	for _, d := range dims[from:to] {
		switch {
		case out.HasValue && d.HasValue:
			out.Value *= d.Value
		case d.HasValue && d.Value == 1:
		case out.HasValue && out.Value == 1:
			out = d
		default:
			return onnx.Dim{}
		}
	}
	return out
}

func dimOrUnknown(v int64, ok bool) onnx.Dim {
	if !ok {
		return onnx.Dim{}
	}
	return onnx.DimValue(v)
}

func formatInts(v []int64) string {
	return fmt.Sprint(v)
}

// passthrough copies the type of input 0 to output 0.
func passthrough(ctx Context) error {
	if t := ctx.InputType(0); t != nil && ctx.HasInput(0) {
		ctx.SetOutputType(0, t.Clone())
	}
	return nil
}

// passData forwards the propagated values of input 0 to output 0.
func passData(ctx Context) {
	if data := ctx.InputData(0); data != nil {
		ctx.SetOutputData(0, data.Clone())
	}
}
