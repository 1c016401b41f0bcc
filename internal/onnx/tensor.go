package onnx

import "fmt"

// DataType mirrors TensorProto.DataType.
type DataType int32

// Tensor element types.
const (
	Undefined      DataType = 0
	Float          DataType = 1
	Uint8          DataType = 2
	Int8           DataType = 3
	Uint16         DataType = 4
	Int16          DataType = 5
	Int32          DataType = 6
	Int64          DataType = 7
	String         DataType = 8
	Bool           DataType = 9
	Float16        DataType = 10
	Double         DataType = 11
	Uint32         DataType = 12
	Uint64         DataType = 13
	Complex64      DataType = 14
	Complex128     DataType = 15
	BFloat16       DataType = 16
	Float8E4M3FN   DataType = 17
	Float8E4M3FNUZ DataType = 18
	Float8E5M2     DataType = 19
	Float8E5M2FNUZ DataType = 20
	Uint4          DataType = 21
	Int4           DataType = 22
	Float4E2M1     DataType = 23
)

var dataTypeNames = map[DataType]string{
	Undefined:      "undefined",
	Float:          "float",
	Uint8:          "uint8",
	Int8:           "int8",
	Uint16:         "uint16",
	Int16:          "int16",
	Int32:          "int32",
	Int64:          "int64",
	String:         "string",
	Bool:           "bool",
	Float16:        "float16",
	Double:         "double",
	Uint32:         "uint32",
	Uint64:         "uint64",
	Complex64:      "complex64",
	Complex128:     "complex128",
	BFloat16:       "bfloat16",
	Float8E4M3FN:   "float8e4m3fn",
	Float8E4M3FNUZ: "float8e4m3fnuz",
	Float8E5M2:     "float8e5m2",
	Float8E5M2FNUZ: "float8e5m2fnuz",
	Uint4:          "uint4",
	Int4:           "int4",
	Float4E2M1:     "float4e2m1",
}

func (d DataType) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("datatype(%d)", int32(d))
}

// Valid reports whether d is a defined element type.
func (d DataType) Valid() bool {
	_, ok := dataTypeNames[d]
	return ok && d != Undefined
}

// bitWidth returns the number of bits one element occupies in raw_data, or
// 0 for strings and unknown types.
func (d DataType) bitWidth() int {
	switch d {
	case Uint4, Int4, Float4E2M1:
		return 4
	case Uint8, Int8, Bool, Float8E4M3FN, Float8E4M3FNUZ, Float8E5M2, Float8E5M2FNUZ:
		return 8
	case Uint16, Int16, Float16, BFloat16:
		return 16
	case Float, Int32, Uint32:
		return 32
	case Int64, Double, Uint64, Complex64:
		return 64
	case Complex128:
		return 128
	default:
		return 0
	}
}

// RawSize returns the byte length raw_data must have for n elements.
func (d DataType) RawSize(n int64) int64 {
	bits := int64(d.bitWidth())
	return (n*bits + 7) / 8
}

// TensorField names the TensorProto field typed values of d are stored in
// when raw_data is not used.
func (d DataType) TensorField() string {
	switch d {
	case Float, Complex64:
		return "float_data"
	case Int32, Int16, Int8, Uint16, Uint8, Bool, Float16, BFloat16,
		Float8E4M3FN, Float8E4M3FNUZ, Float8E5M2, Float8E5M2FNUZ, Uint4, Int4, Float4E2M1:
		return "int32_data"
	case Int64:
		return "int64_data"
	case String:
		return "string_data"
	case Double, Complex128:
		return "double_data"
	case Uint32, Uint64:
		return "uint64_data"
	default:
		return ""
	}
}

// DataLocation mirrors TensorProto.DataLocation.
type DataLocation int32

// Tensor data locations.
const (
	LocationDefault  DataLocation = 0
	LocationExternal DataLocation = 1
)

// Tensor mirrors TensorProto. HasRawData distinguishes an empty raw_data
// field from an absent one.
type Tensor struct {
	Dims         []int64
	DataType     DataType
	Name         string
	DocString    string
	RawData      []byte
	HasRawData   bool
	FloatData    []float32
	Int32Data    []int32
	StringData   [][]byte
	Int64Data    []int64
	DoubleData   []float64
	Uint64Data   []uint64
	ExternalData []StringEntry
	DataLocation DataLocation
}

// NumElements returns the product of the tensor dimensions.
func (t *Tensor) NumElements() int64 {
	n := int64(1)
	for _, d := range t.Dims {
		n *= d
	}
	return n
}

// ValueFields lists the names of the data fields that carry values.
func (t *Tensor) ValueFields() []string {
	var fields []string
	if t.HasRawData {
		fields = append(fields, "raw_data")
	}
	if len(t.FloatData) > 0 {
		fields = append(fields, "float_data")
	}
	if len(t.Int32Data) > 0 {
		fields = append(fields, "int32_data")
	}
	if len(t.StringData) > 0 {
		fields = append(fields, "string_data")
	}
	if len(t.Int64Data) > 0 {
		fields = append(fields, "int64_data")
	}
	if len(t.DoubleData) > 0 {
		fields = append(fields, "double_data")
	}
	if len(t.Uint64Data) > 0 {
		fields = append(fields, "uint64_data")
	}
	return fields
}

// Type returns the tensor type an initializer of this shape declares.
func (t *Tensor) Type() *Type {
	return NewTensorType(t.DataType, Dims(t.Dims...))
}
