package shapeinfer

import (
	"fmt"

	"github.com/MeKo-Tech/modelcheck/internal/onnx"
	"github.com/MeKo-Tech/modelcheck/internal/opset"
)

// mergeType combines an inferred type with a declared one. Declared
// information wins where the inferred type is silent; conflicts are errors.
func mergeType(inferred, existing *onnx.Type) (*onnx.Type, error) {
	if existing == nil {
		return inferred, nil
	}
	if inferred == nil {
		return existing, nil
	}
	if inferred.Case() != existing.Case() && existing.Case() != "none" {
		return nil, &opset.InferenceError{
			Kind: opset.TypeInferenceError,
			Msg:  fmt.Sprintf("type case mismatch. existing=%s inferred=%s", existing.Case(), inferred.Case()),
		}
	}
	out := existing.Clone()
	switch {
	case inferred.Tensor != nil:
		tt, err := mergeTensor(inferred.Tensor, existing.Tensor)
		if err != nil {
			return nil, err
		}
		out.Tensor = tt
	case inferred.SparseTensor != nil:
		tt, err := mergeTensor(inferred.SparseTensor, existing.SparseTensor)
		if err != nil {
			return nil, err
		}
		out.SparseTensor = tt
	case inferred.Sequence != nil:
		elem, err := mergeType(inferred.Sequence, existing.Sequence)
		if err != nil {
			return nil, err
		}
		out.Sequence = elem
	case inferred.Optional != nil:
		elem, err := mergeType(inferred.Optional, existing.Optional)
		if err != nil {
			return nil, err
		}
		out.Optional = elem
	case inferred.Map != nil && existing.Map == nil:
		out.Map = inferred.Map
	}
	return out, nil
}

func mergeTensor(inferred, existing *onnx.TensorType) (*onnx.TensorType, error) {
	if existing == nil {
		return inferred, nil
	}
	out := &onnx.TensorType{ElemType: existing.ElemType, Shape: existing.Shape.Clone()}
	switch {
	case existing.ElemType == onnx.Undefined:
		out.ElemType = inferred.ElemType
	case inferred.ElemType != onnx.Undefined && inferred.ElemType != existing.ElemType:
		return nil, &opset.InferenceError{
			Kind: opset.TypeInferenceError,
			Msg:  fmt.Sprintf("Inferred elem type differs from existing elem type: (%d) vs (%d)", int32(inferred.ElemType), int32(existing.ElemType)),
		}
	}
	if inferred.Shape == nil {
		return out, nil
	}
	if existing.Shape == nil {
		out.Shape = inferred.Shape.Clone()
		return out, nil
	}
	if inferred.Shape.Rank() != existing.Shape.Rank() {
		return nil, &opset.InferenceError{
			Kind: opset.ShapeInferenceError,
			Msg:  fmt.Sprintf("Inferred shape and existing shape differ in rank: (%d) vs (%d)", inferred.Shape.Rank(), existing.Shape.Rank()),
		}
	}
	for i, d := range inferred.Shape.Dims {
		e := existing.Shape.Dims[i]
		switch {
		case d.HasValue && e.HasValue && d.Value != e.Value:
			return nil, &opset.InferenceError{
				Kind: opset.ShapeInferenceError,
				Msg:  fmt.Sprintf("Inferred shape and existing shape differ in dimension %d: (%d) vs (%d)", i, d.Value, e.Value),
			}
		case d.HasValue && !e.HasValue:
			out.Shape.Dims[i] = onnx.Dim{Value: d.Value, HasValue: true, Denotation: e.Denotation}
		case !e.HasValue && e.Param == "" && d.Param != "":
			out.Shape.Dims[i] = d
		}
	}
	return out, nil
}
