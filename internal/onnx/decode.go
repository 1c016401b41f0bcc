package onnx

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Sentinel errors returned by Unmarshal and Load.
var (
	// ErrMalformed indicates the bytes are not a well-formed ModelProto.
	ErrMalformed = errors.New("onnx: malformed model")

	// ErrEmptyFile indicates the model file has no content.
	ErrEmptyFile = errors.New("onnx: model file is empty")

	// ErrLFSPointer indicates the file is a Git LFS pointer, not model bytes.
	ErrLFSPointer = errors.New("onnx: file is a Git LFS pointer, content was not fetched")
)

// Unmarshal decodes a serialized ModelProto.
func Unmarshal(b []byte) (*Model, error) {
	m, err := decodeModel(b)
	if err != nil {
		return nil, fmt.Errorf("decode ModelProto: %w", err)
	}
	return m, nil
}

// reader walks the fields of one message.
type reader struct {
	buf []byte
	msg string
}

func newReader(b []byte, msg string) *reader {
	return &reader{buf: b, msg: msg}
}

func (r *reader) more() bool { return len(r.buf) > 0 }

func (r *reader) fail(num protowire.Number, err error) error {
	return fmt.Errorf("%w: %s field %d: %v", ErrMalformed, r.msg, num, err)
}

func (r *reader) tag() (protowire.Number, protowire.Type, error) {
	num, typ, n := protowire.ConsumeTag(r.buf)
	if n < 0 {
		return 0, 0, r.fail(0, protowire.ParseError(n))
	}
	r.buf = r.buf[n:]
	return num, typ, nil
}

func (r *reader) want(num protowire.Number, got, want protowire.Type) error {
	if got != want {
		return r.fail(num, fmt.Errorf("wire type %d, want %d", got, want))
	}
	return nil
}

func (r *reader) skip(num protowire.Number, typ protowire.Type) error {
	n := protowire.ConsumeFieldValue(num, typ, r.buf)
	if n < 0 {
		return r.fail(num, protowire.ParseError(n))
	}
	r.buf = r.buf[n:]
	return nil
}

func (r *reader) varint(num protowire.Number, typ protowire.Type) (uint64, error) {
	if err := r.want(num, typ, protowire.VarintType); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeVarint(r.buf)
	if n < 0 {
		return 0, r.fail(num, protowire.ParseError(n))
	}
	r.buf = r.buf[n:]
	return v, nil
}

func (r *reader) bytes(num protowire.Number, typ protowire.Type) ([]byte, error) {
	if err := r.want(num, typ, protowire.BytesType); err != nil {
		return nil, err
	}
	v, n := protowire.ConsumeBytes(r.buf)
	if n < 0 {
		return nil, r.fail(num, protowire.ParseError(n))
	}
	r.buf = r.buf[n:]
	return v, nil
}

func (r *reader) str(num protowire.Number, typ protowire.Type) (string, error) {
	b, err := r.bytes(num, typ)
	return string(b), err
}

func (r *reader) fixed32(num protowire.Number, typ protowire.Type) (uint32, error) {
	if err := r.want(num, typ, protowire.Fixed32Type); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeFixed32(r.buf)
	if n < 0 {
		return 0, r.fail(num, protowire.ParseError(n))
	}
	r.buf = r.buf[n:]
	return v, nil
}

func (r *reader) fixed64(num protowire.Number, typ protowire.Type) (uint64, error) {
	if err := r.want(num, typ, protowire.Fixed64Type); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeFixed64(r.buf)
	if n < 0 {
		return 0, r.fail(num, protowire.ParseError(n))
	}
	r.buf = r.buf[n:]
	return v, nil
}

// varints reads a repeated varint field in packed or unpacked form.
func (r *reader) varints(num protowire.Number, typ protowire.Type, fn func(uint64)) error {
	if typ == protowire.VarintType {
		v, err := r.varint(num, typ)
		if err == nil {
			fn(v)
		}
		return err
	}
	b, err := r.bytes(num, typ)
	if err != nil {
		return err
	}
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return r.fail(num, protowire.ParseError(n))
		}
		fn(v)
		b = b[n:]
	}
	return nil
}

func (r *reader) fixed32s(num protowire.Number, typ protowire.Type, fn func(uint32)) error {
	if typ == protowire.Fixed32Type {
		v, err := r.fixed32(num, typ)
		if err == nil {
			fn(v)
		}
		return err
	}
	b, err := r.bytes(num, typ)
	if err != nil {
		return err
	}
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return r.fail(num, protowire.ParseError(n))
		}
		fn(v)
		b = b[n:]
	}
	return nil
}

func (r *reader) fixed64s(num protowire.Number, typ protowire.Type, fn func(uint64)) error {
	if typ == protowire.Fixed64Type {
		v, err := r.fixed64(num, typ)
		if err == nil {
			fn(v)
		}
		return err
	}
	b, err := r.bytes(num, typ)
	if err != nil {
		return err
	}
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return r.fail(num, protowire.ParseError(n))
		}
		fn(v)
		b = b[n:]
	}
	return nil
}

func decodeModel(b []byte) (*Model, error) {
	m := &Model{}
	r := newReader(b, "ModelProto")
	for r.more() {
		num, typ, err := r.tag()
		if err != nil {
			return nil, err
		}
		switch num {
		case 1:
			var v uint64
			v, err = r.varint(num, typ)
			m.IRVersion = int64(v)
		case 2:
			m.ProducerName, err = r.str(num, typ)
		case 3:
			m.ProducerVersion, err = r.str(num, typ)
		case 4:
			m.Domain, err = r.str(num, typ)
		case 5:
			var v uint64
			v, err = r.varint(num, typ)
			m.ModelVersion = int64(v)
		case 6:
			m.DocString, err = r.str(num, typ)
		case 7:
			var sub []byte
			if sub, err = r.bytes(num, typ); err == nil {
				m.Graph, err = decodeGraph(sub)
				err = wrapField("graph", err)
			}
		case 8:
			var sub []byte
			if sub, err = r.bytes(num, typ); err == nil {
				var op OperatorSetID
				op, err = decodeOpset(sub)
				m.OpsetImports = append(m.OpsetImports, op)
			}
		case 14:
			var sub []byte
			if sub, err = r.bytes(num, typ); err == nil {
				var e StringEntry
				e, err = decodeEntry(sub)
				m.MetadataProps = append(m.MetadataProps, e)
			}
		default:
			err = r.skip(num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func wrapField(field string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", field, err)
}

func decodeOpset(b []byte) (OperatorSetID, error) {
	var op OperatorSetID
	r := newReader(b, "OperatorSetIdProto")
	for r.more() {
		num, typ, err := r.tag()
		if err != nil {
			return op, err
		}
		switch num {
		case 1:
			op.Domain, err = r.str(num, typ)
		case 2:
			var v uint64
			v, err = r.varint(num, typ)
			op.Version = int64(v)
		default:
			err = r.skip(num, typ)
		}
		if err != nil {
			return op, err
		}
	}
	return op, nil
}

func decodeEntry(b []byte) (StringEntry, error) {
	var e StringEntry
	r := newReader(b, "StringStringEntryProto")
	for r.more() {
		num, typ, err := r.tag()
		if err != nil {
			return e, err
		}
		switch num {
		case 1:
			e.Key, err = r.str(num, typ)
		case 2:
			e.Value, err = r.str(num, typ)
		default:
			err = r.skip(num, typ)
		}
		if err != nil {
			return e, err
		}
	}
	return e, nil
}

func decodeGraph(b []byte) (*Graph, error) {
	g := &Graph{}
	r := newReader(b, "GraphProto")
	for r.more() {
		num, typ, err := r.tag()
		if err != nil {
			return nil, err
		}
		var sub []byte
		switch num {
		case 1:
			if sub, err = r.bytes(num, typ); err == nil {
				var n *Node
				n, err = decodeNode(sub)
				err = wrapField(fmt.Sprintf("node %d", len(g.Nodes)), err)
				g.Nodes = append(g.Nodes, n)
			}
		case 2:
			g.Name, err = r.str(num, typ)
		case 5:
			if sub, err = r.bytes(num, typ); err == nil {
				var t *Tensor
				t, err = decodeTensor(sub)
				err = wrapField("initializer", err)
				g.Initializers = append(g.Initializers, t)
			}
		case 10:
			g.DocString, err = r.str(num, typ)
		case 11, 12, 13:
			if sub, err = r.bytes(num, typ); err == nil {
				var vi *ValueInfo
				vi, err = decodeValueInfo(sub)
				switch num {
				case 11:
					g.Inputs = append(g.Inputs, vi)
				case 12:
					g.Outputs = append(g.Outputs, vi)
				default:
					g.ValueInfo = append(g.ValueInfo, vi)
				}
			}
		case 15:
			if sub, err = r.bytes(num, typ); err == nil {
				var name string
				name, err = decodeSparseTensorName(sub)
				g.SparseInitializerNames = append(g.SparseInitializerNames, name)
			}
		default:
			err = r.skip(num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return g, nil
}

// decodeSparseTensorName returns values.name of a SparseTensorProto.
func decodeSparseTensorName(b []byte) (string, error) {
	r := newReader(b, "SparseTensorProto")
	var name string
	for r.more() {
		num, typ, err := r.tag()
		if err != nil {
			return "", err
		}
		if num == 1 {
			var sub []byte
			if sub, err = r.bytes(num, typ); err == nil {
				var t *Tensor
				if t, err = decodeTensor(sub); err == nil {
					name = t.Name
				}
			}
		} else {
			err = r.skip(num, typ)
		}
		if err != nil {
			return "", err
		}
	}
	return name, nil
}

func decodeNode(b []byte) (*Node, error) {
	n := &Node{}
	r := newReader(b, "NodeProto")
	for r.more() {
		num, typ, err := r.tag()
		if err != nil {
			return nil, err
		}
		switch num {
		case 1:
			var s string
			s, err = r.str(num, typ)
			n.Inputs = append(n.Inputs, s)
		case 2:
			var s string
			s, err = r.str(num, typ)
			n.Outputs = append(n.Outputs, s)
		case 3:
			n.Name, err = r.str(num, typ)
		case 4:
			n.OpType, err = r.str(num, typ)
		case 5:
			var sub []byte
			if sub, err = r.bytes(num, typ); err == nil {
				var a *Attribute
				a, err = decodeAttribute(sub)
				n.Attributes = append(n.Attributes, a)
			}
		case 6:
			n.DocString, err = r.str(num, typ)
		case 7:
			n.Domain, err = r.str(num, typ)
		default:
			err = r.skip(num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return n, nil
}

func decodeAttribute(b []byte) (*Attribute, error) {
	a := &Attribute{}
	r := newReader(b, "AttributeProto")
	for r.more() {
		num, typ, err := r.tag()
		if err != nil {
			return nil, err
		}
		var sub []byte
		switch num {
		case 1:
			a.Name, err = r.str(num, typ)
		case 2:
			var v uint32
			v, err = r.fixed32(num, typ)
			a.F, a.HasF = math.Float32frombits(v), true
		case 3:
			var v uint64
			v, err = r.varint(num, typ)
			a.I, a.HasI = int64(v), true
		case 4:
			a.S, err = r.bytes(num, typ)
			a.S = append([]byte{}, a.S...)
			a.HasS = true
		case 5:
			if sub, err = r.bytes(num, typ); err == nil {
				a.T, err = decodeTensor(sub)
			}
		case 6:
			if sub, err = r.bytes(num, typ); err == nil {
				a.G, err = decodeGraph(sub)
				err = wrapField("attribute "+a.Name, err)
			}
		case 7:
			err = r.fixed32s(num, typ, func(v uint32) { a.Floats = append(a.Floats, math.Float32frombits(v)) })
		case 8:
			err = r.varints(num, typ, func(v uint64) { a.Ints = append(a.Ints, int64(v)) })
		case 9:
			if sub, err = r.bytes(num, typ); err == nil {
				a.Strings = append(a.Strings, append([]byte{}, sub...))
			}
		case 10:
			if sub, err = r.bytes(num, typ); err == nil {
				var t *Tensor
				t, err = decodeTensor(sub)
				a.Tensors = append(a.Tensors, t)
			}
		case 11:
			if sub, err = r.bytes(num, typ); err == nil {
				var g *Graph
				g, err = decodeGraph(sub)
				err = wrapField("attribute "+a.Name, err)
				a.Graphs = append(a.Graphs, g)
			}
		case 13:
			a.DocString, err = r.str(num, typ)
		case 14, 15:
			if _, err = r.bytes(num, typ); err == nil {
				a.TypeProtoCount++
			}
		case 20:
			var v uint64
			v, err = r.varint(num, typ)
			a.Type = AttributeType(int32(v))
		case 21:
			a.RefAttrName, err = r.str(num, typ)
		case 22, 23:
			if _, err = r.bytes(num, typ); err == nil {
				a.SparseTensorCount++
			}
		default:
			err = r.skip(num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func decodeValueInfo(b []byte) (*ValueInfo, error) {
	vi := &ValueInfo{}
	r := newReader(b, "ValueInfoProto")
	for r.more() {
		num, typ, err := r.tag()
		if err != nil {
			return nil, err
		}
		switch num {
		case 1:
			vi.Name, err = r.str(num, typ)
		case 2:
			var sub []byte
			if sub, err = r.bytes(num, typ); err == nil {
				vi.Type, err = decodeType(sub)
			}
		case 3:
			vi.DocString, err = r.str(num, typ)
		default:
			err = r.skip(num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return vi, nil
}

func decodeType(b []byte) (*Type, error) {
	t := &Type{}
	r := newReader(b, "TypeProto")
	for r.more() {
		num, typ, err := r.tag()
		if err != nil {
			return nil, err
		}
		var sub []byte
		switch num {
		case 1:
			if sub, err = r.bytes(num, typ); err == nil {
				t.Tensor, err = decodeTensorType(sub)
			}
		case 4:
			if sub, err = r.bytes(num, typ); err == nil {
				t.Sequence, err = decodeElemType(sub, "TypeProto.Sequence")
			}
		case 5:
			if sub, err = r.bytes(num, typ); err == nil {
				t.Map, err = decodeMapType(sub)
			}
		case 6:
			t.Denotation, err = r.str(num, typ)
		case 8:
			if sub, err = r.bytes(num, typ); err == nil {
				t.SparseTensor, err = decodeTensorType(sub)
			}
		case 9:
			if sub, err = r.bytes(num, typ); err == nil {
				t.Optional, err = decodeElemType(sub, "TypeProto.Optional")
			}
		default:
			err = r.skip(num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

func decodeElemType(b []byte, msg string) (*Type, error) {
	elem := &Type{}
	r := newReader(b, msg)
	for r.more() {
		num, typ, err := r.tag()
		if err != nil {
			return nil, err
		}
		if num == 1 {
			var sub []byte
			if sub, err = r.bytes(num, typ); err == nil {
				elem, err = decodeType(sub)
			}
		} else {
			err = r.skip(num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return elem, nil
}

func decodeMapType(b []byte) (*MapType, error) {
	mt := &MapType{}
	r := newReader(b, "TypeProto.Map")
	for r.more() {
		num, typ, err := r.tag()
		if err != nil {
			return nil, err
		}
		switch num {
		case 1:
			var v uint64
			v, err = r.varint(num, typ)
			mt.KeyType = DataType(int32(v))
		case 2:
			var sub []byte
			if sub, err = r.bytes(num, typ); err == nil {
				mt.ValueType, err = decodeType(sub)
			}
		default:
			err = r.skip(num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return mt, nil
}

func decodeTensorType(b []byte) (*TensorType, error) {
	tt := &TensorType{}
	r := newReader(b, "TypeProto.Tensor")
	for r.more() {
		num, typ, err := r.tag()
		if err != nil {
			return nil, err
		}
		switch num {
		case 1:
			var v uint64
			v, err = r.varint(num, typ)
			tt.ElemType = DataType(int32(v))
		case 2:
			var sub []byte
			if sub, err = r.bytes(num, typ); err == nil {
				tt.Shape, err = decodeShape(sub)
			}
		default:
			err = r.skip(num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return tt, nil
}

func decodeShape(b []byte) (*Shape, error) {
	s := &Shape{Dims: []Dim{}}
	r := newReader(b, "TensorShapeProto")
	for r.more() {
		num, typ, err := r.tag()
		if err != nil {
			return nil, err
		}
		if num == 1 {
			var sub []byte
			if sub, err = r.bytes(num, typ); err == nil {
				var d Dim
				d, err = decodeDim(sub)
				s.Dims = append(s.Dims, d)
			}
		} else {
			err = r.skip(num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func decodeDim(b []byte) (Dim, error) {
	var d Dim
	r := newReader(b, "TensorShapeProto.Dimension")
	for r.more() {
		num, typ, err := r.tag()
		if err != nil {
			return d, err
		}
		switch num {
		case 1:
			var v uint64
			v, err = r.varint(num, typ)
			d.Value, d.HasValue, d.Param = int64(v), true, ""
		case 2:
			d.Param, err = r.str(num, typ)
			d.Value, d.HasValue = 0, false
		case 3:
			d.Denotation, err = r.str(num, typ)
		default:
			err = r.skip(num, typ)
		}
		if err != nil {
			return d, err
		}
	}
	return d, nil
}

func decodeTensor(b []byte) (*Tensor, error) {
	t := &Tensor{}
	r := newReader(b, "TensorProto")
	for r.more() {
		num, typ, err := r.tag()
		if err != nil {
			return nil, err
		}
		switch num {
		case 1:
			err = r.varints(num, typ, func(v uint64) { t.Dims = append(t.Dims, int64(v)) })
		case 2:
			var v uint64
			v, err = r.varint(num, typ)
			t.DataType = DataType(int32(v))
		case 4:
			err = r.fixed32s(num, typ, func(v uint32) { t.FloatData = append(t.FloatData, math.Float32frombits(v)) })
		case 5:
			err = r.varints(num, typ, func(v uint64) { t.Int32Data = append(t.Int32Data, int32(v)) })
		case 6:
			var sub []byte
			if sub, err = r.bytes(num, typ); err == nil {
				t.StringData = append(t.StringData, append([]byte{}, sub...))
			}
		case 7:
			err = r.varints(num, typ, func(v uint64) { t.Int64Data = append(t.Int64Data, int64(v)) })
		case 8:
			t.Name, err = r.str(num, typ)
		case 9:
			var sub []byte
			if sub, err = r.bytes(num, typ); err == nil {
				t.RawData, t.HasRawData = append([]byte{}, sub...), true
			}
		case 10:
			err = r.fixed64s(num, typ, func(v uint64) { t.DoubleData = append(t.DoubleData, math.Float64frombits(v)) })
		case 11:
			err = r.varints(num, typ, func(v uint64) { t.Uint64Data = append(t.Uint64Data, v) })
		case 12:
			t.DocString, err = r.str(num, typ)
		case 13:
			var sub []byte
			if sub, err = r.bytes(num, typ); err == nil {
				var e StringEntry
				e, err = decodeEntry(sub)
				t.ExternalData = append(t.ExternalData, e)
			}
		case 14:
			var v uint64
			v, err = r.varint(num, typ)
			t.DataLocation = DataLocation(int32(v))
		default:
			err = r.skip(num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}
