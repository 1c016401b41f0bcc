package opset

import "github.com/MeKo-Tech/modelcheck/internal/onnx"

// Data propagation tracks the values of small integer tensors, usually
// computed from Shape, so that shape-valued inputs of Reshape, Expand and
// similar operators can be resolved. Values are carried as *onnx.Shape so a
// symbolic dimension survives the trip.

func shapeData(ctx Context) {
	in := inputShape(ctx, 0)
	if in == nil {
		return
	}
	start, end := shapeRange(ctx, in.Rank())
	ctx.SetOutputData(0, &onnx.Shape{Dims: append([]onnx.Dim{}, in.Dims[start:end]...)})
}

func sizeData(ctx Context) {
	if data := ctx.InputData(0); data != nil {
		ctx.SetOutputData(0, onnx.NewShape(int64(data.Rank())))
		return
	}
	if in := inputShape(ctx, 0); in != nil {
		if n, ok := product(in.Dims, 0, in.Rank()); ok {
			ctx.SetOutputData(0, onnx.NewShape(n))
		}
	}
}

// arith returns the propagator for Add, Sub or Mul. A single-element operand
// is broadcast over the other one; symbolic values stop propagation.
func arith(name string) func(Context) {
	var fn func(a, b int64) int64
	switch name {
	case "Add":
		fn = func(a, b int64) int64 { return a + b }
	case "Sub":
		fn = func(a, b int64) int64 { return a - b }
	case "Mul":
		fn = func(a, b int64) int64 { return a * b }
	default:
		return nil
	}
	return func(ctx Context) {
		a, b := ctx.InputData(0), ctx.InputData(1)
		if a == nil || b == nil {
			return
		}
		av, okA := a.Values()
		bv, okB := b.Values()
		if !okA || !okB {
			return
		}
		n := max(len(av), len(bv))
		if (len(av) != n && len(av) != 1) || (len(bv) != n && len(bv) != 1) {
			return
		}
		out := make([]int64, n)
		for i := range out {
			out[i] = fn(av[min(i, len(av)-1)], bv[min(i, len(bv)-1)])
		}
		ctx.SetOutputData(0, onnx.NewShape(out...))
	}
}

// dataAxisIsZero reports whether the axis attribute selects the first axis
// of one-dimensional propagated data.
func dataAxisIsZero(ctx Context, def int64) bool {
	axis := attrInt(ctx, "axis", def)
	return axis == 0 || axis == -1
}

func concatData(ctx Context) {
	if ctx.Attribute("axis") == nil || !dataAxisIsZero(ctx, 0) {
		return
	}
	out := &onnx.Shape{}
	for i := range ctx.NumInputs() {
		data := ctx.InputData(i)
		if data == nil {
			return
		}
		out.Dims = append(out.Dims, data.Dims...)
	}
	if out.Rank() > 0 {
		ctx.SetOutputData(0, out)
	}
}

func gatherData(ctx Context) {
	if !dataAxisIsZero(ctx, 0) {
		return
	}
	data, indices := ctx.InputData(0), ctx.InputData(1)
	if data == nil || indices == nil {
		return
	}
	out := &onnx.Shape{}
	for _, d := range indices.Dims {
		if !d.HasValue {
			return
		}
		i := d.Value
		if i < 0 {
			i += int64(data.Rank())
		}
		if i < 0 || i >= int64(data.Rank()) {
			return
		}
		out.Dims = append(out.Dims, data.Dims[i])
	}
	if out.Rank() > 0 {
		ctx.SetOutputData(0, out)
	}
}

func sliceData(ctx Context) {
	data := ctx.InputData(0)
	if data == nil || ctx.OpsetVersion() < 10 {
		return
	}
	args, err := readSliceArgs(ctx, 1)
	if err != nil || !args.ok || len(args.starts) != 1 || args.axes[0] != 0 {
		return
	}
	n := int64(data.Rank())
	start, end, step := args.starts[0], args.ends[0], args.steps[0]
	count := sliceLen(n, start, end, step)
	if start < 0 {
		start += n
	}
	if step > 0 {
		start = min(max(start, 0), n)
	} else {
		start = min(max(start, 0), n-1)
	}
	out := &onnx.Shape{}
	for i := range count {
		out.Dims = append(out.Dims, data.Dims[start+i*step])
	}
	if out.Rank() > 0 {
		ctx.SetOutputData(0, out)
	}
}

func constantData(ctx Context) {
	t, err := constantValue(ctx)
	if err != nil || t == nil || len(t.Dims) > 1 {
		return
	}
	if v, ok := t.IntValues(); ok {
		ctx.SetOutputData(0, onnx.NewShape(v...))
	}
}
