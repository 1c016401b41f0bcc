package checker

import "github.com/MeKo-Tech/modelcheck/internal/onnx"

func checkTensor(s *scope, t *onnx.Tensor) error {
	if t.DataType == onnx.Undefined {
		return s.fail("Field 'data_type' of 'tensor' is required but missing.")
	}
	if !t.DataType.Valid() {
		return s.fail("Unrecognized data_type (tensor name: %s): %d", t.Name, int32(t.DataType))
	}
	for _, d := range t.Dims {
		if d < 0 {
			return s.fail("Tensor (name: %s) has negative dimension %d", t.Name, d)
		}
	}

	fields := t.ValueFields()
	if t.DataLocation == onnx.LocationExternal {
		if len(fields) > 0 {
			return s.fail("Data of TensorProto ( tensor name: %s) is stored externally and should not have data field. %s", t.Name, fields[0])
		}
		for _, e := range t.ExternalData {
			if e.Key == "location" && e.Value != "" {
				return nil
			}
		}
		return s.fail("TensorProto ( tensor name: %s) is stored externally but doesn't have a location.", t.Name)
	}

	n := t.NumElements()
	if n == 0 {
		if len(fields) > 0 && !(len(fields) == 1 && fields[0] == "raw_data" && len(t.RawData) == 0) {
			return s.fail("TensorProto (tensor name: %s) is 0-element but contains data!", t.Name)
		}
		return nil
	}
	if len(fields) != 1 {
		return s.fail("TensorProto (tensor name: %s) should contain one and only one value field.", t.Name)
	}

	field := fields[0]
	if field == "raw_data" {
		if t.DataType == onnx.String {
			return s.fail("STRING data (tensor name: %s) should not be stored in raw_data field", t.Name)
		}
		if want := t.DataType.RawSize(n); int64(len(t.RawData)) != want {
			return s.fail("TensorProto (tensor name: %s) has %d bytes of raw_data but %d are needed for %d elements of %s",
				t.Name, len(t.RawData), want, n, t.DataType)
		}
		return nil
	}
	if want := t.DataType.TensorField(); field != want {
		return s.fail("values of data_type '%d' should be stored in field '%s' instead of '%s'", int32(t.DataType), want, field)
	}
	if got, want := typedCount(t, field), typedWant(t.DataType, n); got != want {
		return s.fail("TensorProto (tensor name: %s) holds %d values in %s but %d are needed for %d elements",
			t.Name, got, field, want, n)
	}
	return nil
}

func typedCount(t *onnx.Tensor, field string) int64 {
	switch field {
	case "float_data":
		return int64(len(t.FloatData))
	case "int32_data":
		return int64(len(t.Int32Data))
	case "string_data":
		return int64(len(t.StringData))
	case "int64_data":
		return int64(len(t.Int64Data))
	case "double_data":
		return int64(len(t.DoubleData))
	case "uint64_data":
		return int64(len(t.Uint64Data))
	default:
		return 0
	}
}

// typedWant returns how many typed values n elements occupy.
func typedWant(d onnx.DataType, n int64) int64 {
	switch d {
	case onnx.Complex64, onnx.Complex128:
		return 2 * n
	case onnx.Uint4, onnx.Int4, onnx.Float4E2M1:
		return (n + 1) / 2
	default:
		return n
	}
}
