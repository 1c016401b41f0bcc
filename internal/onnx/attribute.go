package onnx

import "fmt"

// AttributeType mirrors AttributeProto.AttributeType.
type AttributeType int32

// Attribute value types.
const (
	AttrUndefined     AttributeType = 0
	AttrFloat         AttributeType = 1
	AttrInt           AttributeType = 2
	AttrString        AttributeType = 3
	AttrTensor        AttributeType = 4
	AttrGraph         AttributeType = 5
	AttrFloats        AttributeType = 6
	AttrInts          AttributeType = 7
	AttrStrings       AttributeType = 8
	AttrTensors       AttributeType = 9
	AttrGraphs        AttributeType = 10
	AttrSparseTensor  AttributeType = 11
	AttrSparseTensors AttributeType = 12
	AttrTypeProto     AttributeType = 13
	AttrTypeProtos    AttributeType = 14
)

var attributeTypeNames = [...]string{
	"UNDEFINED", "FLOAT", "INT", "STRING", "TENSOR", "GRAPH", "FLOATS", "INTS",
	"STRINGS", "TENSORS", "GRAPHS", "SPARSE_TENSOR", "SPARSE_TENSORS",
	"TYPE_PROTO", "TYPE_PROTOS",
}

func (a AttributeType) String() string {
	if a >= 0 && int(a) < len(attributeTypeNames) {
		return attributeTypeNames[a]
	}
	return fmt.Sprintf("ATTRIBUTE_TYPE(%d)", int32(a))
}

// Attribute mirrors AttributeProto. The Has flags record presence of the
// scalar fields; repeated fields are present when non-empty. Sparse tensors
// and type protos are only counted, not decoded.
type Attribute struct {
	Name        string
	RefAttrName string
	DocString   string
	Type        AttributeType

	F    float32
	HasF bool
	I    int64
	HasI bool
	S    []byte
	HasS bool
	T    *Tensor
	G    *Graph

	Floats  []float32
	Ints    []int64
	Strings [][]byte
	Tensors []*Tensor
	Graphs  []*Graph

	// Counts of opaque fields kept only for the one-value-field rule.
	SparseTensorCount int
	TypeProtoCount    int
}

// ValueFields returns the attribute types whose value field is populated.
func (a *Attribute) ValueFields() []AttributeType {
	var set []AttributeType
	if a.HasF {
		set = append(set, AttrFloat)
	}
	if a.HasI {
		set = append(set, AttrInt)
	}
	if a.HasS {
		set = append(set, AttrString)
	}
	if a.T != nil {
		set = append(set, AttrTensor)
	}
	if a.G != nil {
		set = append(set, AttrGraph)
	}
	if len(a.Floats) > 0 {
		set = append(set, AttrFloats)
	}
	if len(a.Ints) > 0 {
		set = append(set, AttrInts)
	}
	if len(a.Strings) > 0 {
		set = append(set, AttrStrings)
	}
	if len(a.Tensors) > 0 {
		set = append(set, AttrTensors)
	}
	if len(a.Graphs) > 0 {
		set = append(set, AttrGraphs)
	}
	if a.SparseTensorCount > 0 {
		set = append(set, AttrSparseTensor)
	}
	if a.TypeProtoCount > 0 {
		set = append(set, AttrTypeProto)
	}
	return set
}

// AttrFloatValue builds a FLOAT attribute.
func AttrFloatValue(name string, v float32) *Attribute {
	return &Attribute{Name: name, Type: AttrFloat, F: v, HasF: true}
}

// AttrIntValue builds an INT attribute.
func AttrIntValue(name string, v int64) *Attribute {
	return &Attribute{Name: name, Type: AttrInt, I: v, HasI: true}
}

// AttrStringValue builds a STRING attribute.
func AttrStringValue(name, v string) *Attribute {
	return &Attribute{Name: name, Type: AttrString, S: []byte(v), HasS: true}
}

// AttrIntsValue builds an INTS attribute.
func AttrIntsValue(name string, v ...int64) *Attribute {
	return &Attribute{Name: name, Type: AttrInts, Ints: v}
}

// AttrFloatsValue builds a FLOATS attribute.
func AttrFloatsValue(name string, v ...float32) *Attribute {
	return &Attribute{Name: name, Type: AttrFloats, Floats: v}
}

// AttrTensorValue builds a TENSOR attribute.
func AttrTensorValue(name string, t *Tensor) *Attribute {
	return &Attribute{Name: name, Type: AttrTensor, T: t}
}

// AttrGraphValue builds a GRAPH attribute.
func AttrGraphValue(name string, g *Graph) *Attribute {
	return &Attribute{Name: name, Type: AttrGraph, G: g}
}
