package onnx

import (
	"strconv"
	"strings"
)

// Type mirrors TypeProto. Exactly one of the value cases should be set.
type Type struct {
	Tensor       *TensorType
	Sequence     *Type
	Map          *MapType
	Optional     *Type
	SparseTensor *TensorType
	Denotation   string
}

// TensorType mirrors TypeProto.Tensor. A nil Shape means the rank is unknown.
type TensorType struct {
	ElemType DataType
	Shape    *Shape
}

// MapType mirrors TypeProto.Map.
type MapType struct {
	KeyType   DataType
	ValueType *Type
}

// Shape mirrors TensorShapeProto.
type Shape struct {
	Dims []Dim
}

// Dim mirrors TensorShapeProto.Dimension. A Dim with neither a value nor a
// param is unknown.
type Dim struct {
	Value      int64
	HasValue   bool
	Param      string
	Denotation string
}

// DimValue returns a known dimension.
func DimValue(v int64) Dim { return Dim{Value: v, HasValue: true} }

// DimParam returns a symbolic dimension.
func DimParam(p string) Dim { return Dim{Param: p} }

// Dims builds known dimensions from values.
func Dims(values ...int64) []Dim {
	dims := make([]Dim, len(values))
	for i, v := range values {
		dims[i] = DimValue(v)
	}
	return dims
}

// Known reports whether the dimension has a concrete value.
func (d Dim) Known() bool { return d.HasValue }

// Symbolic reports whether the dimension is a named parameter.
func (d Dim) Symbolic() bool { return !d.HasValue && d.Param != "" }

func (d Dim) String() string {
	switch {
	case d.HasValue:
		return strconv.FormatInt(d.Value, 10)
	case d.Param != "":
		return d.Param
	default:
		return "?"
	}
}

// NewShape returns a shape of known dimensions.
func NewShape(values ...int64) *Shape {
	return &Shape{Dims: Dims(values...)}
}

// Rank returns the number of dimensions.
func (s *Shape) Rank() int {
	if s == nil {
		return 0
	}
	return len(s.Dims)
}

// Values returns the dimension values if every dimension is known.
func (s *Shape) Values() ([]int64, bool) {
	if s == nil {
		return nil, false
	}
	out := make([]int64, len(s.Dims))
	for i, d := range s.Dims {
		if !d.HasValue {
			return nil, false
		}
		out[i] = d.Value
	}
	return out, true
}

func (s *Shape) String() string {
	if s == nil {
		return "[?]"
	}
	parts := make([]string, len(s.Dims))
	for i, d := range s.Dims {
		parts[i] = d.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// NewTensorType returns a tensor type with known dimensions. A nil dims
// slice leaves the rank unknown; use an empty slice for scalars.
func NewTensorType(elem DataType, dims []Dim) *Type {
	tt := &TensorType{ElemType: elem}
	if dims != nil {
		tt.Shape = &Shape{Dims: append([]Dim{}, dims...)}
	}
	return &Type{Tensor: tt}
}

// Case names which value case of the TypeProto oneof is set.
func (t *Type) Case() string {
	switch {
	case t == nil:
		return "none"
	case t.Tensor != nil:
		return "tensor_type"
	case t.Sequence != nil:
		return "sequence_type"
	case t.Map != nil:
		return "map_type"
	case t.Optional != nil:
		return "optional_type"
	case t.SparseTensor != nil:
		return "sparse_tensor_type"
	default:
		return "none"
	}
}

func (t *Type) String() string {
	switch {
	case t == nil:
		return "unknown"
	case t.Tensor != nil:
		return "tensor(" + t.Tensor.ElemType.String() + ")" + t.Tensor.Shape.String()
	case t.SparseTensor != nil:
		return "sparse_tensor(" + t.SparseTensor.ElemType.String() + ")" + t.SparseTensor.Shape.String()
	case t.Sequence != nil:
		return "seq(" + t.Sequence.String() + ")"
	case t.Map != nil:
		return "map(" + t.Map.KeyType.String() + "," + t.Map.ValueType.String() + ")"
	case t.Optional != nil:
		return "optional(" + t.Optional.String() + ")"
	default:
		return "unknown"
	}
}
