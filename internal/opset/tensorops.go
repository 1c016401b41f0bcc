package opset

import (
	"slices"

	"github.com/MeKo-Tech/modelcheck/internal/onnx"
)

func init() {
	register(op("Reshape", 1, 1, 1, 1, 1, attr("shape", onnx.AttrInts), consumedInputs).infer(reshapeInfer))
	for _, since := range []int64{5, 13} {
		register(op("Reshape", since, 2, 2, 1, 1).infer(reshapeInfer))
	}
	for _, since := range []int64{14, 19, 21, 23} {
		register(op("Reshape", since, 2, 2, 1, 1, attr("allowzero", onnx.AttrInt)).infer(reshapeInfer))
	}

	for _, since := range []int64{1, 13, 21, 23} {
		register(op("Transpose", since, 1, 1, 1, 1, attr("perm", onnx.AttrInts)).infer(transposeInfer))
	}

	register(
		op("Concat", 1, 1, Unbounded, 1, 1, attr("axis", onnx.AttrInt)).infer(concatInfer),
		op("Concat", 4, 1, Unbounded, 1, 1, required("axis", onnx.AttrInt)).infer(concatInfer).propagate(concatData),
		op("Concat", 11, 1, Unbounded, 1, 1, required("axis", onnx.AttrInt)).infer(concatInfer).propagate(concatData),
		op("Concat", 13, 1, Unbounded, 1, 1, required("axis", onnx.AttrInt)).infer(concatInfer).propagate(concatData),
	)

	register(
		op("Shape", 1, 1, 1, 1, 1).infer(shapeInfer).propagate(shapeData),
		op("Shape", 13, 1, 1, 1, 1).infer(shapeInfer).propagate(shapeData),
	)
	for _, since := range []int64{15, 19, 21, 23} {
		register(op("Shape", since, 1, 1, 1, 1, attr("start", onnx.AttrInt), attr("end", onnx.AttrInt)).infer(shapeInfer).propagate(shapeData))
	}
	for _, since := range []int64{1, 13, 19, 21, 23} {
		register(op("Size", since, 1, 1, 1, 1).infer(sizeInfer).propagate(sizeData))
	}

	for _, since := range []int64{1, 11, 13} {
		register(op("Gather", since, 2, 2, 1, 1, attr("axis", onnx.AttrInt)).infer(gatherInfer).propagate(gatherData))
	}

	register(
		op("Squeeze", 1, 1, 1, 1, 1, attr("axes", onnx.AttrInts)).infer(squeezeInfer).propagate(passData),
		op("Squeeze", 11, 1, 1, 1, 1, attr("axes", onnx.AttrInts)).infer(squeezeInfer).propagate(passData),
		op("Unsqueeze", 1, 1, 1, 1, 1, required("axes", onnx.AttrInts)).infer(unsqueezeInfer).propagate(passData),
		op("Unsqueeze", 11, 1, 1, 1, 1, required("axes", onnx.AttrInts)).infer(unsqueezeInfer).propagate(passData),
	)
	for _, since := range []int64{13, 21, 23} {
		register(
			op("Squeeze", since, 1, 2, 1, 1).infer(squeezeInfer).propagate(passData),
			op("Unsqueeze", since, 2, 2, 1, 1).infer(unsqueezeInfer).propagate(passData),
		)
	}

	register(
		op("Slice", 1, 1, 1, 1, 1, attr("axes", onnx.AttrInts), required("starts", onnx.AttrInts), required("ends", onnx.AttrInts)).infer(sliceInfer).propagate(sliceData),
		op("Slice", 10, 3, 5, 1, 1).infer(sliceInfer).propagate(sliceData),
		op("Slice", 11, 3, 5, 1, 1).infer(sliceInfer).propagate(sliceData),
		op("Slice", 13, 3, 5, 1, 1).infer(sliceInfer).propagate(sliceData),
	)

	register(
		op("Constant", 1, 0, 0, 1, 1, required("value", onnx.AttrTensor)).infer(constantInfer).propagate(constantData),
		op("Constant", 9, 0, 0, 1, 1, required("value", onnx.AttrTensor)).infer(constantInfer).propagate(constantData),
		op("Constant", 11, 0, 0, 1, 1, attr("value", onnx.AttrTensor), attr("sparse_value", onnx.AttrSparseTensor)).infer(constantInfer).propagate(constantData),
	)
	constantAttrs := []AttrSpec{
		attr("value", onnx.AttrTensor), attr("sparse_value", onnx.AttrSparseTensor),
		attr("value_float", onnx.AttrFloat), attr("value_floats", onnx.AttrFloats),
		attr("value_int", onnx.AttrInt), attr("value_ints", onnx.AttrInts),
		attr("value_string", onnx.AttrString), attr("value_strings", onnx.AttrStrings),
	}
	for _, since := range []int64{12, 13, 19, 21, 23} {
		register(op("Constant", since, 0, 0, 1, 1, constantAttrs...).infer(constantInfer).propagate(constantData))
	}
	for _, since := range []int64{9, 20, 21, 23} {
		register(op("ConstantOfShape", since, 1, 1, 1, 1, attr("value", onnx.AttrTensor)).infer(constantOfShapeInfer))
	}
	for _, since := range []int64{8, 13} {
		register(op("Expand", since, 2, 2, 1, 1).infer(expandInfer))
	}

	register(
		op("Pad", 1, 1, 1, 1, 1, required("paddings", onnx.AttrInts), attr("mode", onnx.AttrString), attr("value", onnx.AttrFloat)).infer(padInfer),
		op("Pad", 2, 1, 1, 1, 1, required("pads", onnx.AttrInts), attr("mode", onnx.AttrString), attr("value", onnx.AttrFloat)).infer(padInfer),
		op("Pad", 11, 2, 3, 1, 1, attr("mode", onnx.AttrString)).infer(padInfer),
		op("Pad", 13, 2, 3, 1, 1, attr("mode", onnx.AttrString)).infer(padInfer),
	)
	for _, since := range []int64{18, 19, 21, 23} {
		register(op("Pad", since, 2, 4, 1, 1, attr("mode", onnx.AttrString)).infer(padInfer))
	}

	reduceAttrs := []AttrSpec{attr("axes", onnx.AttrInts), attr("keepdims", onnx.AttrInt)}
	reduceInputAttrs := []AttrSpec{attr("keepdims", onnx.AttrInt), attr("noop_with_empty_axes", onnx.AttrInt)}
	for _, name := range []string{
		"ReduceSum", "ReduceMean", "ReduceMax", "ReduceMin", "ReduceProd",
		"ReduceL1", "ReduceL2", "ReduceLogSum", "ReduceLogSumExp", "ReduceSumSquare",
	} {
		register(
			op(name, 1, 1, 1, 1, 1, reduceAttrs...).infer(reduceInfer),
			op(name, 11, 1, 1, 1, 1, reduceAttrs...).infer(reduceInfer),
		)
		if name == "ReduceSum" {
			register(op(name, 13, 1, 2, 1, 1, reduceInputAttrs...).infer(reduceInfer))
			continue
		}
		register(
			op(name, 13, 1, 1, 1, 1, reduceAttrs...).infer(reduceInfer),
			op(name, 18, 1, 2, 1, 1, reduceInputAttrs...).infer(reduceInfer),
		)
	}
	register(
		op("ReduceMax", 20, 1, 2, 1, 1, reduceInputAttrs...).infer(reduceInfer),
		op("ReduceMin", 20, 1, 2, 1, 1, reduceInputAttrs...).infer(reduceInfer),
	)

	for _, name := range []string{"ArgMax", "ArgMin"} {
		register(
			op(name, 1, 1, 1, 1, 1, attr("axis", onnx.AttrInt), attr("keepdims", onnx.AttrInt)).infer(argInfer),
			op(name, 11, 1, 1, 1, 1, attr("axis", onnx.AttrInt), attr("keepdims", onnx.AttrInt)).infer(argInfer),
			op(name, 12, 1, 1, 1, 1, attr("axis", onnx.AttrInt), attr("keepdims", onnx.AttrInt), attr("select_last_index", onnx.AttrInt)).infer(argInfer),
			op(name, 13, 1, 1, 1, 1, attr("axis", onnx.AttrInt), attr("keepdims", onnx.AttrInt), attr("select_last_index", onnx.AttrInt)).infer(argInfer),
		)
	}
}

// targetShape reads a shape-valued input as dims. Constants and propagated
// data give values; a rank-1 input of known length gives unknown dims.
func targetShape(ctx Context, i int) ([]onnx.Dim, bool) {
	if v, ok := constInts(ctx, i); ok {
		return onnx.Dims(v...), true
	}
	if data := ctx.InputData(i); data != nil {
		return append([]onnx.Dim{}, data.Dims...), true
	}
	if s := inputShape(ctx, i); s != nil && s.Rank() == 1 && s.Dims[0].HasValue {
		return make([]onnx.Dim, s.Dims[0].Value), true
	}
	return nil, false
}

func reshapeInfer(ctx Context) error {
	elem := inputElem(ctx, 0)
	if elem == onnx.Undefined {
		return nil
	}
	var target []onnx.Dim
	if ctx.OpsetVersion() < 5 {
		v, ok := attrInts(ctx, "shape")
		if !ok {
			setOutput(ctx, 0, elem, nil)
			return nil
		}
		target = onnx.Dims(v...)
	} else {
		t, ok := targetShape(ctx, 1)
		if !ok {
			setOutput(ctx, 0, elem, nil)
			return nil
		}
		target = t
	}
	in := inputShape(ctx, 0)
	allowZero := attrInt(ctx, "allowzero", 0) != 0
	out := &onnx.Shape{Dims: make([]onnx.Dim, len(target))}
	negative := -1
	known := int64(1)
	for i, d := range target {
		switch {
		case !d.HasValue:
			out.Dims[i] = d
			known = -1
		case d.Value == -1:
			if negative != -1 {
				return shapeErr("Target shape may not have multiple -1 dimensions.")
			}
			negative = i
		case d.Value < -1:
			return shapeErr("Invalid dimension value: %d", d.Value)
		case d.Value == 0 && !allowZero:
			if in == nil {
				known = -1
				continue
			}
			if i >= in.Rank() {
				return shapeErr("Invalid position of 0.")
			}
			out.Dims[i] = in.Dims[i]
			if in.Dims[i].HasValue && known != -1 {
				known *= in.Dims[i].Value
			} else {
				known = -1
			}
		default:
			out.Dims[i] = d
			if known != -1 {
				known *= d.Value
			}
		}
	}
	if negative != -1 && in != nil && known > 0 {
		if total, ok := product(in.Dims, 0, in.Rank()); ok {
			if total%known != 0 {
				return shapeErr("Dimension could not be inferred: incompatible shapes")
			}
			out.Dims[negative] = onnx.DimValue(total / known)
		}
	}
	setOutput(ctx, 0, elem, out)
	return nil
}

func transposeInfer(ctx Context) error {
	elem := inputElem(ctx, 0)
	in := inputShape(ctx, 0)
	if elem == onnx.Undefined || in == nil {
		return passthrough(ctx)
	}
	r := in.Rank()
	perm, ok := attrInts(ctx, "perm")
	if !ok {
		perm = make([]int64, r)
		for i := range perm {
			perm[i] = int64(r - 1 - i)
		}
	}
	if len(perm) != r {
		return shapeErr("Number of elements in attribute perm must equal the input rank: %d vs %d", len(perm), r)
	}
	seen := make([]bool, r)
	out := &onnx.Shape{Dims: make([]onnx.Dim, r)}
	for i, p := range perm {
		axis, err := normalizeAxis(p, r, "perm value")
		if err != nil {
			return err
		}
		if seen[axis] {
			return shapeErr("Attribute perm %s contains duplicate axis %d", formatInts(perm), p)
		}
		seen[axis] = true
		out.Dims[i] = in.Dims[axis]
	}
	setOutput(ctx, 0, elem, out)
	return nil
}

func concatInfer(ctx Context) error {
	idx := make([]int, ctx.NumInputs())
	for i := range idx {
		idx[i] = i
	}
	elem, err := sameElemType(ctx, idx...)
	if err != nil || elem == onnx.Undefined {
		return err
	}
	var shapes []*onnx.Shape
	for _, i := range idx {
		s := inputShape(ctx, i)
		if s == nil {
			setOutput(ctx, 0, elem, nil)
			return nil
		}
		shapes = append(shapes, s)
	}
	r := shapes[0].Rank()
	if r == 0 {
		return shapeErr("Rank must be greater than 0")
	}
	axis, err := normalizeAxis(attrInt(ctx, "axis", 1), r, "axis")
	if err != nil {
		return err
	}
	out := shapes[0].Clone()
	sum, sumKnown := int64(0), true
	for n, s := range shapes {
		if s.Rank() != r {
			return shapeErr("All inputs to Concat must have same rank. Input 0 has rank %d != input %d rank %d", r, n, s.Rank())
		}
		for j, d := range s.Dims {
			if j == axis {
				if d.HasValue {
					sum += d.Value
				} else {
					sumKnown = false
				}
				continue
			}
			merged, err := mergeDim(out.Dims[j], d)
			if err != nil {
				return err
			}
			out.Dims[j] = merged
		}
	}
	out.Dims[axis] = dimOrUnknown(sum, sumKnown)
	setOutput(ctx, 0, elem, out)
	return nil
}

// shapeRange returns the [start, end) window of a rank r shape selected by
// the start and end attributes.
func shapeRange(ctx Context, r int) (int, int) {
	clamp := func(v int64) int {
		if v < 0 {
			v += int64(r)
		}
		return int(min(max(v, 0), int64(r)))
	}
	start := clamp(attrInt(ctx, "start", 0))
	end := clamp(attrInt(ctx, "end", int64(r)))
	return start, max(start, end)
}

func shapeInfer(ctx Context) error {
	in := inputShape(ctx, 0)
	if tensorInput(ctx, 0) == nil || in == nil {
		setOutput(ctx, 0, onnx.Int64, unknownShape(1))
		return nil
	}
	start, end := shapeRange(ctx, in.Rank())
	setOutput(ctx, 0, onnx.Int64, onnx.NewShape(int64(end-start)))
	return nil
}

func sizeInfer(ctx Context) error {
	setOutput(ctx, 0, onnx.Int64, &onnx.Shape{})
	return nil
}

func gatherInfer(ctx Context) error {
	elem := inputElem(ctx, 0)
	if elem == onnx.Undefined {
		return nil
	}
	if idx := inputElem(ctx, 1); idx != onnx.Undefined && idx != onnx.Int32 && idx != onnx.Int64 {
		return typeErr("Indices of Gather must be int32 or int64, got tensor(%s)", idx)
	}
	data, indices := inputShape(ctx, 0), inputShape(ctx, 1)
	if data == nil || indices == nil {
		setOutput(ctx, 0, elem, nil)
		return nil
	}
	if data.Rank() < 1 {
		return shapeErr("data tensor must have rank >= 1")
	}
	axis, err := normalizeAxis(attrInt(ctx, "axis", 0), data.Rank(), "axis")
	if err != nil {
		return err
	}
	out := &onnx.Shape{}
	out.Dims = append(out.Dims, data.Dims[:axis]...)
	out.Dims = append(out.Dims, indices.Dims...)
	out.Dims = append(out.Dims, data.Dims[axis+1:]...)
	setOutput(ctx, 0, elem, out)
	return nil
}

// axesOf reads axes from the attribute before opset 13 and from input i
// afterwards. present is false when axes are given but not known.
func axesOf(ctx Context, i int) (axes []int64, given, present bool) {
	since := int64(18)
	switch ctx.OpType() {
	case "Squeeze", "Unsqueeze", "ReduceSum":
		since = 13
	}
	if ctx.OpsetVersion() < since {
		v, ok := attrInts(ctx, "axes")
		return v, ok, true
	}
	if !ctx.HasInput(i) {
		return nil, false, true
	}
	v, ok := constInts(ctx, i)
	return v, true, ok
}

func squeezeInfer(ctx Context) error {
	elem := inputElem(ctx, 0)
	in := inputShape(ctx, 0)
	if elem == onnx.Undefined {
		return nil
	}
	axes, given, present := axesOf(ctx, 1)
	if in == nil || !present {
		setOutput(ctx, 0, elem, nil)
		return nil
	}
	drop := make([]bool, in.Rank())
	if !given {
		for i, d := range in.Dims {
			if !d.HasValue {
				setOutput(ctx, 0, elem, nil)
				return nil
			}
			drop[i] = d.Value == 1
		}
	}
	for _, a := range axes {
		axis, err := normalizeAxis(a, in.Rank(), "axis")
		if err != nil {
			return err
		}
		if d := in.Dims[axis]; d.HasValue && d.Value != 1 {
			return shapeErr("Dimension of input %d must be 1 instead of %d", axis, d.Value)
		}
		drop[axis] = true
	}
	out := &onnx.Shape{Dims: []onnx.Dim{}}
	for i, d := range in.Dims {
		if !drop[i] {
			out.Dims = append(out.Dims, d)
		}
	}
	setOutput(ctx, 0, elem, out)
	return nil
}

func unsqueezeInfer(ctx Context) error {
	elem := inputElem(ctx, 0)
	in := inputShape(ctx, 0)
	if elem == onnx.Undefined {
		return nil
	}
	axes, _, present := axesOf(ctx, 1)
	if in == nil || !present {
		setOutput(ctx, 0, elem, nil)
		return nil
	}
	r := in.Rank() + len(axes)
	insert := make([]bool, r)
	for _, a := range axes {
		axis, err := normalizeAxis(a, r, "axis")
		if err != nil {
			return err
		}
		if insert[axis] {
			return shapeErr("'axes' attribute must not contain any duplicates")
		}
		insert[axis] = true
	}
	out := &onnx.Shape{Dims: make([]onnx.Dim, 0, r)}
	next := 0
	for i := range r {
		if insert[i] {
			out.Dims = append(out.Dims, onnx.DimValue(1))
			continue
		}
		out.Dims = append(out.Dims, in.Dims[next])
		next++
	}
	setOutput(ctx, 0, elem, out)
	return nil
}

// sliceArgs holds resolved Slice parameters. ok is false when any of them
// is not a known constant.
type sliceArgs struct {
	starts, ends, axes, steps []int64
	ok                        bool
}

func readSliceArgs(ctx Context, rank int) (sliceArgs, error) {
	var a sliceArgs
	if ctx.OpsetVersion() < 10 {
		a.starts, _ = attrInts(ctx, "starts")
		a.ends, _ = attrInts(ctx, "ends")
		a.axes, _ = attrInts(ctx, "axes")
	} else {
		var okS, okE bool
		a.starts, okS = constInts(ctx, 1)
		a.ends, okE = constInts(ctx, 2)
		if !okS || !okE {
			return a, nil
		}
		if ctx.HasInput(3) {
			axes, ok := constInts(ctx, 3)
			if !ok {
				return a, nil
			}
			a.axes = axes
		}
		if ctx.HasInput(4) {
			steps, ok := constInts(ctx, 4)
			if !ok {
				return a, nil
			}
			a.steps = steps
		}
	}
	if len(a.starts) != len(a.ends) {
		return a, shapeErr("Incorrect or missing input value for starts and ends")
	}
	if a.axes == nil {
		a.axes = make([]int64, len(a.starts))
		for i := range a.axes {
			a.axes[i] = int64(i)
		}
	}
	if a.steps == nil {
		a.steps = ones(len(a.starts))
	}
	if len(a.axes) != len(a.starts) || len(a.steps) != len(a.starts) {
		return a, shapeErr("starts, ends, axes and steps must have the same length")
	}
	for i, axis := range a.axes {
		n, err := normalizeAxis(axis, rank, "axis")
		if err != nil {
			return a, err
		}
		a.axes[i] = int64(n)
		if a.steps[i] == 0 {
			return a, shapeErr("'step' cannot be 0")
		}
	}
	a.ok = true
	return a, nil
}

// sliceLen returns the number of elements selected from an axis of length n.
func sliceLen(n, start, end, step int64) int64 {
	norm := func(v, lo, hi int64) int64 {
		if v < 0 {
			v += n
		}
		return min(max(v, lo), hi)
	}
	var count int64
	if step > 0 {
		s, e := norm(start, 0, n), norm(end, 0, n)
		count = (e - s + step - 1) / step
	} else {
		s, e := norm(start, 0, n-1), norm(end, -1, n-1)
		count = (s - e - step - 1) / -step
	}
	return max(count, 0)
}

func sliceInfer(ctx Context) error {
	elem := inputElem(ctx, 0)
	in := inputShape(ctx, 0)
	if elem == onnx.Undefined {
		return nil
	}
	if in == nil {
		setOutput(ctx, 0, elem, nil)
		return nil
	}
	args, err := readSliceArgs(ctx, in.Rank())
	if err != nil {
		return err
	}
	if !args.ok {
		setOutput(ctx, 0, elem, unknownShape(in.Rank()))
		return nil
	}
	out := in.Clone()
	for i, axis := range args.axes {
		d := in.Dims[axis]
		if !d.HasValue {
			out.Dims[axis] = onnx.Dim{}
			continue
		}
		out.Dims[axis] = onnx.DimValue(sliceLen(d.Value, args.starts[i], args.ends[i], args.steps[i]))
	}
	setOutput(ctx, 0, elem, out)
	return nil
}

// constantValue returns the tensor a Constant node produces, or nil for
// sparse values.
func constantValue(ctx Context) (*onnx.Tensor, error) {
	var set []string
	for _, name := range []string{"value", "sparse_value", "value_float", "value_floats", "value_int", "value_ints", "value_string", "value_strings"} {
		if ctx.Attribute(name) != nil {
			set = append(set, name)
		}
	}
	if len(set) != 1 {
		return nil, shapeErr("One and only one of the attributes 'value', 'value_*' or 'sparse_value' must be specified for a Constant node.")
	}
	a := ctx.Attribute(set[0])
	switch set[0] {
	case "value":
		return a.T, nil
	case "value_float":
		return &onnx.Tensor{DataType: onnx.Float, FloatData: []float32{a.F}}, nil
	case "value_floats":
		return &onnx.Tensor{DataType: onnx.Float, Dims: []int64{int64(len(a.Floats))}, FloatData: a.Floats}, nil
	case "value_int":
		return &onnx.Tensor{DataType: onnx.Int64, Int64Data: []int64{a.I}}, nil
	case "value_ints":
		return &onnx.Tensor{DataType: onnx.Int64, Dims: []int64{int64(len(a.Ints))}, Int64Data: a.Ints}, nil
	case "value_string":
		return &onnx.Tensor{DataType: onnx.String, StringData: [][]byte{a.S}}, nil
	case "value_strings":
		return &onnx.Tensor{DataType: onnx.String, Dims: []int64{int64(len(a.Strings))}, StringData: a.Strings}, nil
	default:
		return nil, nil
	}
}

func constantInfer(ctx Context) error {
	t, err := constantValue(ctx)
	if err != nil || t == nil {
		return err
	}
	setOutput(ctx, 0, t.DataType, onnx.NewShape(t.Dims...))
	return nil
}

func constantOfShapeInfer(ctx Context) error {
	elem := onnx.Float
	if a := ctx.Attribute("value"); a != nil && a.T != nil {
		if a.T.NumElements() != 1 {
			return shapeErr("ConstantOfShape value must be a one-element tensor")
		}
		elem = a.T.DataType
	}
	if in := inputElem(ctx, 0); in != onnx.Undefined && in != onnx.Int64 {
		return typeErr("ConstantOfShape input must be tensor(int64), got tensor(%s)", in)
	}
	dims, ok := targetShape(ctx, 0)
	if !ok {
		setOutput(ctx, 0, elem, nil)
		return nil
	}
	for _, d := range dims {
		if d.HasValue && d.Value < 0 {
			return shapeErr("Invalid shape value: %d", d.Value)
		}
	}
	setOutput(ctx, 0, elem, &onnx.Shape{Dims: dims})
	return nil
}

func expandInfer(ctx Context) error {
	elem := inputElem(ctx, 0)
	if elem == onnx.Undefined {
		return nil
	}
	dims, ok := targetShape(ctx, 1)
	in := inputShape(ctx, 0)
	if !ok || in == nil {
		setOutput(ctx, 0, elem, nil)
		return nil
	}
	out, err := broadcastShapes(in, &onnx.Shape{Dims: dims})
	if err != nil {
		return err
	}
	setOutput(ctx, 0, elem, out)
	return nil
}

func padInfer(ctx Context) error {
	elem := inputElem(ctx, 0)
	in := inputShape(ctx, 0)
	if elem == onnx.Undefined {
		return nil
	}
	if in == nil {
		setOutput(ctx, 0, elem, nil)
		return nil
	}
	r := in.Rank()
	var (
		pads []int64
		ok   bool
	)
	switch {
	case ctx.OpsetVersion() < 2:
		pads, ok = attrInts(ctx, "paddings")
	case ctx.OpsetVersion() < 11:
		pads, ok = attrInts(ctx, "pads")
	default:
		pads, ok = constInts(ctx, 1)
	}
	if !ok {
		setOutput(ctx, 0, elem, unknownShape(r))
		return nil
	}
	axes := make([]int, r)
	for i := range axes {
		axes[i] = i
	}
	if ctx.OpsetVersion() >= 18 && ctx.HasInput(3) {
		v, known := constInts(ctx, 3)
		if !known {
			setOutput(ctx, 0, elem, unknownShape(r))
			return nil
		}
		axes = axes[:0]
		for _, a := range v {
			axis, err := normalizeAxis(a, r, "axis")
			if err != nil {
				return err
			}
			axes = append(axes, axis)
		}
	}
	if len(pads) != 2*len(axes) {
		return shapeErr("Pads has incorrect number of values. Expected 2 * %d values. Got %d values.", len(axes), len(pads))
	}
	out := in.Clone()
	for i, axis := range axes {
		d := in.Dims[axis]
		if d.HasValue {
			out.Dims[axis] = onnx.DimValue(d.Value + pads[i] + pads[i+len(axes)])
		} else {
			out.Dims[axis] = onnx.Dim{}
		}
	}
	setOutput(ctx, 0, elem, out)
	return nil
}

func reduceInfer(ctx Context) error {
	elem := inputElem(ctx, 0)
	in := inputShape(ctx, 0)
	if elem == onnx.Undefined {
		return nil
	}
	keep := attrInt(ctx, "keepdims", 1) != 0
	axes, _, present := axesOf(ctx, 1)
	if in == nil || !present {
		if keep && in != nil {
			setOutput(ctx, 0, elem, unknownShape(in.Rank()))
			return nil
		}
		setOutput(ctx, 0, elem, nil)
		return nil
	}
	if len(axes) == 0 && attrInt(ctx, "noop_with_empty_axes", 0) != 0 {
		return passthrough(ctx)
	}
	r := in.Rank()
	reduced := make([]bool, r)
	if len(axes) == 0 {
		for i := range reduced {
			reduced[i] = true
		}
	}
	for _, a := range axes {
		axis, err := normalizeAxis(a, r, "axis")
		if err != nil {
			return err
		}
		reduced[axis] = true
	}
	out := &onnx.Shape{Dims: []onnx.Dim{}}
	for i, d := range in.Dims {
		switch {
		case !reduced[i]:
			out.Dims = append(out.Dims, d)
		case keep:
			out.Dims = append(out.Dims, onnx.DimValue(1))
		}
	}
	setOutput(ctx, 0, elem, out)
	return nil
}

func argInfer(ctx Context) error {
	in := inputShape(ctx, 0)
	if tensorInput(ctx, 0) == nil {
		return nil
	}
	if in == nil {
		setOutput(ctx, 0, onnx.Int64, nil)
		return nil
	}
	axis, err := normalizeAxis(attrInt(ctx, "axis", 0), in.Rank(), "axis")
	if err != nil {
		return err
	}
	out := in.Clone()
	if attrInt(ctx, "keepdims", 1) != 0 {
		out.Dims[axis] = onnx.DimValue(1)
	} else {
		out.Dims = slices.Delete(out.Dims, axis, axis+1)
	}
	setOutput(ctx, 0, onnx.Int64, out)
	return nil
}
