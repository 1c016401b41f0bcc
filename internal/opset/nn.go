package opset

import "github.com/MeKo-Tech/modelcheck/internal/onnx"

func init() {
	for _, since := range []int64{1, 9, 13} {
		register(op("MatMul", since, 2, 2, 1, 1).infer(matMulInfer))
	}

	gemmAttrs := []AttrSpec{
		attr("alpha", onnx.AttrFloat), attr("beta", onnx.AttrFloat),
		attr("transA", onnx.AttrInt), attr("transB", onnx.AttrInt),
	}
	register(
		op("Gemm", 1, 3, 3, 1, 1, append(gemmAttrs, attr("broadcast", onnx.AttrInt))...).infer(gemmInfer),
		op("Gemm", 6, 3, 3, 1, 1, append(gemmAttrs, attr("broadcast", onnx.AttrInt))...).infer(gemmInfer),
		op("Gemm", 7, 3, 3, 1, 1, gemmAttrs...).infer(gemmInfer),
		op("Gemm", 9, 3, 3, 1, 1, gemmAttrs...).infer(gemmInfer),
		op("Gemm", 11, 2, 3, 1, 1, gemmAttrs...).infer(gemmInfer),
		op("Gemm", 13, 2, 3, 1, 1, gemmAttrs...).infer(gemmInfer),
	)

	convAttrs := []AttrSpec{
		attr("auto_pad", onnx.AttrString), attr("dilations", onnx.AttrInts),
		attr("group", onnx.AttrInt), attr("kernel_shape", onnx.AttrInts),
		attr("pads", onnx.AttrInts), attr("strides", onnx.AttrInts),
	}
	convTransposeAttrs := append([]AttrSpec{
		attr("output_padding", onnx.AttrInts), attr("output_shape", onnx.AttrInts),
	}, convAttrs...)
	for _, since := range []int64{1, 11, 22} {
		register(
			op("Conv", since, 2, 3, 1, 1, convAttrs...).infer(convInfer),
			op("ConvTranspose", since, 2, 3, 1, 1, convTransposeAttrs...).infer(sameRankInfer),
		)
	}

	poolAttrs := []AttrSpec{
		attr("auto_pad", onnx.AttrString), required("kernel_shape", onnx.AttrInts),
		attr("pads", onnx.AttrInts), attr("strides", onnx.AttrInts),
	}
	withPool := func(extra ...AttrSpec) []AttrSpec {
		return append(append([]AttrSpec{}, poolAttrs...), extra...)
	}
	ceilMode := attr("ceil_mode", onnx.AttrInt)
	dilations := attr("dilations", onnx.AttrInts)
	storageOrder := attr("storage_order", onnx.AttrInt)
	countPad := attr("count_include_pad", onnx.AttrInt)
	register(
		op("MaxPool", 1, 1, 1, 1, 1, withPool()...).infer(poolInfer),
		op("MaxPool", 8, 1, 1, 1, 2, withPool(storageOrder)...).infer(poolInfer),
		op("MaxPool", 10, 1, 1, 1, 2, withPool(storageOrder, dilations, ceilMode)...).infer(poolInfer),
		op("MaxPool", 11, 1, 1, 1, 2, withPool(storageOrder, dilations, ceilMode)...).infer(poolInfer),
		op("MaxPool", 12, 1, 1, 1, 2, withPool(storageOrder, dilations, ceilMode)...).infer(poolInfer),
		op("MaxPool", 22, 1, 1, 1, 2, withPool(storageOrder, dilations, ceilMode)...).infer(poolInfer),
		op("AveragePool", 1, 1, 1, 1, 1, withPool()...).infer(poolInfer),
		op("AveragePool", 7, 1, 1, 1, 1, withPool(countPad)...).infer(poolInfer),
		op("AveragePool", 10, 1, 1, 1, 1, withPool(countPad, ceilMode)...).infer(poolInfer),
		op("AveragePool", 11, 1, 1, 1, 1, withPool(countPad, ceilMode)...).infer(poolInfer),
		op("AveragePool", 19, 1, 1, 1, 1, withPool(countPad, ceilMode, dilations)...).infer(poolInfer),
		op("AveragePool", 22, 1, 1, 1, 1, withPool(countPad, ceilMode, dilations)...).infer(poolInfer),
		op("LpPool", 1, 1, 1, 1, 1, withPool(attr("p", onnx.AttrFloat))...).infer(poolInfer),
		op("LpPool", 2, 1, 1, 1, 1, withPool(attr("p", onnx.AttrInt))...).infer(poolInfer),
		op("LpPool", 11, 1, 1, 1, 1, withPool(attr("p", onnx.AttrInt))...).infer(poolInfer),
		op("LpPool", 18, 1, 1, 1, 1, withPool(attr("p", onnx.AttrInt), ceilMode, dilations)...).infer(poolInfer),
		op("LpPool", 22, 1, 1, 1, 1, withPool(attr("p", onnx.AttrInt), ceilMode, dilations)...).infer(poolInfer),
	)
	for _, name := range []string{"GlobalAveragePool", "GlobalMaxPool"} {
		register(
			op(name, 1, 1, 1, 1, 1).infer(globalPoolInfer),
			op(name, 22, 1, 1, 1, 1).infer(globalPoolInfer),
		)
	}
	register(
		op("GlobalLpPool", 1, 1, 1, 1, 1, attr("p", onnx.AttrFloat)).infer(globalPoolInfer),
		op("GlobalLpPool", 2, 1, 1, 1, 1, attr("p", onnx.AttrInt)).infer(globalPoolInfer),
		op("GlobalLpPool", 22, 1, 1, 1, 1, attr("p", onnx.AttrInt)).infer(globalPoolInfer),
	)

	epsilon := attr("epsilon", onnx.AttrFloat)
	momentum := attr("momentum", onnx.AttrFloat)
	register(
		op("BatchNormalization", 1, 5, 5, 1, 5, epsilon, momentum, attr("is_test", onnx.AttrInt), attr("spatial", onnx.AttrInt), required("consumed_inputs", onnx.AttrInts)).infer(passthrough),
		op("BatchNormalization", 6, 5, 5, 1, 5, epsilon, momentum, attr("is_test", onnx.AttrInt), attr("spatial", onnx.AttrInt)).infer(passthrough),
		op("BatchNormalization", 7, 5, 5, 1, 5, epsilon, momentum, attr("spatial", onnx.AttrInt)).infer(passthrough),
		op("BatchNormalization", 9, 5, 5, 1, 5, epsilon, momentum).infer(passthrough),
		op("BatchNormalization", 14, 5, 5, 1, 3, epsilon, momentum, attr("training_mode", onnx.AttrInt)).infer(passthrough),
		op("BatchNormalization", 15, 5, 5, 1, 3, epsilon, momentum, attr("training_mode", onnx.AttrInt)).infer(passthrough),
		op("InstanceNormalization", 1, 3, 3, 1, 1, epsilon, consumedInputs).infer(passthrough),
		op("InstanceNormalization", 6, 3, 3, 1, 1, epsilon).infer(passthrough),
		op("InstanceNormalization", 22, 3, 3, 1, 1, epsilon).infer(passthrough),
		op("LayerNormalization", 17, 2, 3, 1, 3, attr("axis", onnx.AttrInt), epsilon, attr("stash_type", onnx.AttrInt)).infer(layerNormInfer),
		op("LRN", 1, 1, 1, 1, 1, attr("alpha", onnx.AttrFloat), attr("beta", onnx.AttrFloat), attr("bias", onnx.AttrFloat), required("size", onnx.AttrInt)).infer(passthrough),
		op("LRN", 13, 1, 1, 1, 1, attr("alpha", onnx.AttrFloat), attr("beta", onnx.AttrFloat), attr("bias", onnx.AttrFloat), required("size", onnx.AttrInt)).infer(passthrough),
	)
	for _, since := range []int64{1, 9, 11, 13, 21, 23} {
		register(op("Flatten", since, 1, 1, 1, 1, attr("axis", onnx.AttrInt)).infer(flattenInfer))
	}
}

func matMulInfer(ctx Context) error {
	elem, err := sameElemType(ctx, 0, 1)
	if err != nil || elem == onnx.Undefined {
		return err
	}
	a, b := inputShape(ctx, 0), inputShape(ctx, 1)
	if a == nil || b == nil {
		setOutput(ctx, 0, elem, nil)
		return nil
	}
	if a.Rank() == 0 || b.Rank() == 0 {
		return shapeErr("Input tensors of wrong rank (0).")
	}
	ad, bd := a.Dims, b.Dims
	if len(ad) == 1 {
		ad = append([]onnx.Dim{onnx.DimValue(1)}, ad...)
	}
	if len(bd) == 1 {
		bd = append(append([]onnx.Dim{}, bd...), onnx.DimValue(1))
	}
	k1, k2 := ad[len(ad)-1], bd[len(bd)-2]
	if k1.HasValue && k2.HasValue && k1.Value != k2.Value {
		return shapeErr("Incompatible dimensions for matrix multiplication")
	}
	batch, err := broadcastShapes(&onnx.Shape{Dims: ad[:len(ad)-2]}, &onnx.Shape{Dims: bd[:len(bd)-2]})
	if err != nil {
		return err
	}
	out := batch.Dims
	if a.Rank() > 1 {
		out = append(out, ad[len(ad)-2])
	}
	if b.Rank() > 1 {
		out = append(out, bd[len(bd)-1])
	}
	setOutput(ctx, 0, elem, &onnx.Shape{Dims: out})
	return nil
}

func gemmInfer(ctx Context) error {
	elem, err := sameElemType(ctx, 0, 1, 2)
	if err != nil || elem == onnx.Undefined {
		return err
	}
	a, b := inputShape(ctx, 0), inputShape(ctx, 1)
	if a == nil || b == nil {
		setOutput(ctx, 0, elem, unknownShape(2))
		return nil
	}
	if a.Rank() != 2 {
		return shapeErr("First input does not have rank 2")
	}
	if b.Rank() != 2 {
		return shapeErr("Second input does not have rank 2")
	}
	transA, transB := attrInt(ctx, "transA", 0) != 0, attrInt(ctx, "transB", 0) != 0
	pick := func(s *onnx.Shape, trans bool, i int) onnx.Dim {
		if trans {
			return s.Dims[1-i]
		}
		return s.Dims[i]
	}
	ka, kb := pick(a, transA, 1), pick(b, transB, 0)
	if ka.HasValue && kb.HasValue && ka.Value != kb.Value {
		return shapeErr("Incompatible dimensions for matrix multiplication")
	}
	setOutput(ctx, 0, elem, &onnx.Shape{Dims: []onnx.Dim{pick(a, transA, 0), pick(b, transB, 1)}})
	return nil
}

// spatialParams resolves kernel, strides, dilations and pads for n spatial
// axes.
type spatialParams struct {
	kernel, strides, dilations, pads []int64
	autoPad                          string
	ceil                             bool
}

func readSpatial(ctx Context, n int, kernel []int64) (spatialParams, error) {
	p := spatialParams{
		kernel:    kernel,
		strides:   ones(n),
		dilations: ones(n),
		pads:      make([]int64, 2*n),
		autoPad:   attrString(ctx, "auto_pad", "NOTSET"),
		ceil:      attrInt(ctx, "ceil_mode", 0) != 0,
	}
	if len(p.kernel) != n {
		return p, shapeErr("Attribute kernel_shape has incorrect size")
	}
	if v, ok := attrInts(ctx, "strides"); ok {
		if len(v) != n {
			return p, shapeErr("Attribute strides has incorrect size")
		}
		p.strides = v
	}
	if v, ok := attrInts(ctx, "dilations"); ok {
		if len(v) != n {
			return p, shapeErr("Attribute dilations has incorrect size")
		}
		p.dilations = v
	}
	if v, ok := attrInts(ctx, "pads"); ok {
		if len(v) != 2*n {
			return p, shapeErr("Attribute pads has incorrect size")
		}
		p.pads = v
	}
	return p, nil
}

func (p spatialParams) outDim(i int, in onnx.Dim) onnx.Dim {
	if !in.HasValue || p.strides[i] <= 0 {
		return onnx.Dim{}
	}
	effective := (p.kernel[i]-1)*p.dilations[i] + 1
	switch p.autoPad {
	case "SAME_UPPER", "SAME_LOWER":
		return onnx.DimValue((in.Value + p.strides[i] - 1) / p.strides[i])
	case "VALID":
		return onnx.DimValue((in.Value-effective)/p.strides[i] + 1)
	}
	span := in.Value + p.pads[i] + p.pads[i+len(p.kernel)] - effective
	if p.ceil {
		return onnx.DimValue((span+p.strides[i]-1)/p.strides[i] + 1)
	}
	return onnx.DimValue(span/p.strides[i] + 1)
}

func ones(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func convInfer(ctx Context) error {
	elem, err := sameElemType(ctx, 0, 1)
	if err != nil || elem == onnx.Undefined {
		return err
	}
	x, w := inputShape(ctx, 0), inputShape(ctx, 1)
	if x == nil || w == nil {
		setOutput(ctx, 0, elem, nil)
		return nil
	}
	if x.Rank() < 2 {
		return shapeErr("Input tensor must have at least 2 dimensions")
	}
	if w.Rank() != x.Rank() {
		return shapeErr("Weight tensor rank %d does not match input rank %d", w.Rank(), x.Rank())
	}
	group := attrInt(ctx, "group", 1)
	c, wc := x.Dims[1], w.Dims[1]
	if c.HasValue && wc.HasValue && c.Value != wc.Value*group {
		return shapeErr("The input tensor channel dimension (%d) is not equal to the weight channel dimension (%d) times the group (%d)", c.Value, wc.Value, group)
	}
	n := x.Rank() - 2
	kernel, ok := attrInts(ctx, "kernel_shape")
	if !ok {
		kv, known := (&onnx.Shape{Dims: w.Dims[2:]}).Values()
		if !known {
			out := unknownShape(x.Rank())
			out.Dims[0], out.Dims[1] = x.Dims[0], w.Dims[0]
			setOutput(ctx, 0, elem, out)
			return nil
		}
		kernel = kv
	}
	p, err := readSpatial(ctx, n, kernel)
	if err != nil {
		return err
	}
	out := &onnx.Shape{Dims: []onnx.Dim{x.Dims[0], w.Dims[0]}}
	for i := range n {
		out.Dims = append(out.Dims, p.outDim(i, x.Dims[i+2]))
	}
	setOutput(ctx, 0, elem, out)
	return nil
}

func poolInfer(ctx Context) error {
	elem := inputElem(ctx, 0)
	if elem == onnx.Undefined {
		return nil
	}
	x := inputShape(ctx, 0)
	if x == nil {
		setOutput(ctx, 0, elem, nil)
		return nil
	}
	if x.Rank() < 2 {
		return shapeErr("Input tensor must have at least 2 dimensions")
	}
	kernel, _ := attrInts(ctx, "kernel_shape")
	p, err := readSpatial(ctx, x.Rank()-2, kernel)
	if err != nil {
		return err
	}
	out := &onnx.Shape{Dims: []onnx.Dim{x.Dims[0], x.Dims[1]}}
	for i := range x.Rank() - 2 {
		out.Dims = append(out.Dims, p.outDim(i, x.Dims[i+2]))
	}
	setOutput(ctx, 0, elem, out)
	setOutput(ctx, 1, onnx.Int64, out)
	return nil
}

func globalPoolInfer(ctx Context) error {
	elem := inputElem(ctx, 0)
	x := inputShape(ctx, 0)
	if elem == onnx.Undefined || x == nil {
		return passthrough(ctx)
	}
	if x.Rank() < 2 {
		return shapeErr("Input tensor must have at least 2 dimensions")
	}
	out := &onnx.Shape{Dims: []onnx.Dim{x.Dims[0], x.Dims[1]}}
	for range x.Rank() - 2 {
		out.Dims = append(out.Dims, onnx.DimValue(1))
	}
	setOutput(ctx, 0, elem, out)
	return nil
}

func sameRankInfer(ctx Context) error {
	elem := inputElem(ctx, 0)
	if elem == onnx.Undefined {
		return nil
	}
	x := inputShape(ctx, 0)
	if x == nil {
		setOutput(ctx, 0, elem, nil)
		return nil
	}
	out := unknownShape(x.Rank())
	if x.Rank() > 0 {
		out.Dims[0] = x.Dims[0]
	}
	setOutput(ctx, 0, elem, out)
	return nil
}

func layerNormInfer(ctx Context) error {
	if err := passthrough(ctx); err != nil {
		return err
	}
	x := inputShape(ctx, 0)
	if x == nil || ctx.NumOutputs() < 2 {
		return nil
	}
	axis, err := normalizeAxis(attrInt(ctx, "axis", -1), x.Rank(), "axis")
	if err != nil {
		return err
	}
	stash := &onnx.Shape{Dims: append([]onnx.Dim{}, x.Dims[:axis]...)}
	for range x.Rank() - axis {
		stash.Dims = append(stash.Dims, onnx.DimValue(1))
	}
	stashType := onnx.DataType(attrInt(ctx, "stash_type", int64(onnx.Float)))
	setOutput(ctx, 1, stashType, stash)
	setOutput(ctx, 2, stashType, stash)
	return nil
}

func flattenInfer(ctx Context) error {
	elem := inputElem(ctx, 0)
	if elem == onnx.Undefined {
		return nil
	}
	x := inputShape(ctx, 0)
	if x == nil {
		setOutput(ctx, 0, elem, unknownShape(2))
		return nil
	}
	r := int64(x.Rank())
	axis := attrInt(ctx, "axis", 1)
	if axis < -r || axis > r {
		return shapeErr("Invalid value(%d) for attribute 'axis'", axis)
	}
	if axis < 0 {
		axis += r
	}
	setOutput(ctx, 0, elem, &onnx.Shape{Dims: []onnx.Dim{
		dimProduct(x.Dims, 0, int(axis)),
		dimProduct(x.Dims, int(axis), int(r)),
	}})
	return nil
}
