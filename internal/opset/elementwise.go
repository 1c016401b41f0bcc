package opset

import "github.com/MeKo-Tech/modelcheck/internal/onnx"

var consumedInputs = attr("consumed_inputs", onnx.AttrInts)

func init() {
	// Unary maths with the legacy consumed_inputs attribute before opset 6.
	for _, name := range []string{"Abs", "Neg", "Floor", "Ceil", "Reciprocal", "Sqrt", "Relu", "Exp", "Log", "Tanh", "Sigmoid"} {
		register(
			unary(name, 1, consumedInputs),
			unary(name, 6),
			unary(name, 13),
		)
	}
	for _, u := range []struct {
		name   string
		since  []int64
		output onnx.DataType
	}{
		{"Sin", []int64{7}, 0}, {"Cos", []int64{7}, 0}, {"Tan", []int64{7}, 0},
		{"Asin", []int64{7}, 0}, {"Acos", []int64{7}, 0}, {"Atan", []int64{7}, 0},
		{"Sinh", []int64{9}, 0}, {"Cosh", []int64{9}, 0}, {"Asinh", []int64{9}, 0},
		{"Acosh", []int64{9}, 0}, {"Atanh", []int64{9}, 0},
		{"Erf", []int64{9, 13}, 0}, {"Sign", []int64{9, 13}, 0},
		{"Round", []int64{11}, 0}, {"Softplus", []int64{1}, 0}, {"Softsign", []int64{1}, 0},
		{"HardSwish", []int64{14}, 0}, {"Mish", []int64{18}, 0},
		{"Not", []int64{1}, 0}, {"BitwiseNot", []int64{18}, 0},
		{"IsNaN", []int64{9, 13, 20}, onnx.Bool},
	} {
		for _, since := range u.since {
			s := unary(u.name, since)
			if u.output != onnx.Undefined {
				s.Infer = outputElem(u.output)
			}
			register(s)
		}
	}
	register(
		op("IsInf", 10, 1, 1, 1, 1, attr("detect_negative", onnx.AttrInt), attr("detect_positive", onnx.AttrInt)).infer(outputElem(onnx.Bool)),
		op("IsInf", 20, 1, 1, 1, 1, attr("detect_negative", onnx.AttrInt), attr("detect_positive", onnx.AttrInt)).infer(outputElem(onnx.Bool)),
	)

	// Activations with attributes.
	register(
		unary("LeakyRelu", 1, attr("alpha", onnx.AttrFloat), consumedInputs),
		unary("LeakyRelu", 6, attr("alpha", onnx.AttrFloat)),
		unary("LeakyRelu", 16, attr("alpha", onnx.AttrFloat)),
		unary("Elu", 1, attr("alpha", onnx.AttrFloat), consumedInputs),
		unary("Elu", 6, attr("alpha", onnx.AttrFloat)),
		unary("Selu", 1, attr("alpha", onnx.AttrFloat), attr("gamma", onnx.AttrFloat), consumedInputs),
		unary("Selu", 6, attr("alpha", onnx.AttrFloat), attr("gamma", onnx.AttrFloat)),
		unary("HardSigmoid", 1, attr("alpha", onnx.AttrFloat), attr("beta", onnx.AttrFloat), consumedInputs),
		unary("HardSigmoid", 6, attr("alpha", onnx.AttrFloat), attr("beta", onnx.AttrFloat)),
		unary("ThresholdedRelu", 10, attr("alpha", onnx.AttrFloat)),
		unary("Celu", 12, attr("alpha", onnx.AttrFloat)),
		unary("Shrink", 9, attr("bias", onnx.AttrFloat), attr("lambd", onnx.AttrFloat)),
		unary("Gelu", 20, attr("approximate", onnx.AttrString)),
	)
	for _, name := range []string{"Softmax", "LogSoftmax", "Hardmax"} {
		for _, since := range []int64{1, 11, 13} {
			register(unary(name, since, attr("axis", onnx.AttrInt)).infer(axisChecked))
		}
	}

	// Binary arithmetic. Before opset 7 broadcasting was opt-in through the
	// broadcast and axis attributes.
	legacyBroadcast := []AttrSpec{attr("broadcast", onnx.AttrInt), attr("axis", onnx.AttrInt)}
	for _, name := range []string{"Add", "Sub", "Mul", "Div"} {
		register(
			op(name, 1, 2, 2, 1, 1, append(legacyBroadcast, consumedInputs)...).infer(legacyBinary),
			op(name, 6, 2, 2, 1, 1, legacyBroadcast...).infer(legacyBinary),
			op(name, 7, 2, 2, 1, 1).infer(binary).propagate(arith(name)),
			op(name, 13, 2, 2, 1, 1).infer(binary).propagate(arith(name)),
			op(name, 14, 2, 2, 1, 1).infer(binary).propagate(arith(name)),
		)
	}
	register(
		op("Pow", 1, 2, 2, 1, 1, legacyBroadcast...).infer(legacyBinary),
		op("Pow", 7, 2, 2, 1, 1).infer(binary),
		op("Pow", 12, 2, 2, 1, 1).infer(powInfer),
		op("Pow", 13, 2, 2, 1, 1).infer(powInfer),
		op("Pow", 15, 2, 2, 1, 1).infer(powInfer),
		op("Mod", 10, 2, 2, 1, 1, attr("fmod", onnx.AttrInt)).infer(binary),
		op("Mod", 13, 2, 2, 1, 1, attr("fmod", onnx.AttrInt)).infer(binary),
		op("BitShift", 11, 2, 2, 1, 1, required("direction", onnx.AttrString)).infer(binary),
		op("PRelu", 1, 2, 2, 1, 1, consumedInputs).infer(passthrough),
		op("PRelu", 6, 2, 2, 1, 1).infer(passthrough),
		op("PRelu", 7, 2, 2, 1, 1).infer(unidirectional),
		op("PRelu", 9, 2, 2, 1, 1).infer(unidirectional),
		op("PRelu", 16, 2, 2, 1, 1).infer(unidirectional),
	)
	for _, name := range []string{"BitwiseAnd", "BitwiseOr", "BitwiseXor"} {
		register(op(name, 18, 2, 2, 1, 1).infer(binary))
	}

	// Logical and relational operators produce bool.
	for _, name := range []string{"And", "Or", "Xor", "Equal", "Greater", "Less"} {
		register(
			op(name, 1, 2, 2, 1, 1, legacyBroadcast...).infer(legacyRelational),
			op(name, 7, 2, 2, 1, 1).infer(relational),
		)
	}
	for _, name := range []string{"Equal", "Greater", "Less"} {
		register(op(name, 9, 2, 2, 1, 1).infer(relational), op(name, 13, 2, 2, 1, 1).infer(relational))
	}
	register(
		op("Equal", 11, 2, 2, 1, 1).infer(relational),
		op("Equal", 19, 2, 2, 1, 1).infer(relational),
		op("GreaterOrEqual", 12, 2, 2, 1, 1).infer(relational),
		op("GreaterOrEqual", 16, 2, 2, 1, 1).infer(relational),
		op("LessOrEqual", 12, 2, 2, 1, 1).infer(relational),
		op("LessOrEqual", 16, 2, 2, 1, 1).infer(relational),
	)

	// Variadic element-wise operators.
	for _, name := range []string{"Sum", "Max", "Min", "Mean"} {
		register(
			op(name, 1, 1, Unbounded, 1, 1, consumedInputs).infer(passthrough),
			op(name, 6, 1, Unbounded, 1, 1).infer(passthrough),
			op(name, 8, 1, Unbounded, 1, 1).infer(variadic),
			op(name, 13, 1, Unbounded, 1, 1).infer(variadic),
		)
	}
	register(
		op("Max", 12, 1, Unbounded, 1, 1).infer(variadic),
		op("Min", 12, 1, Unbounded, 1, 1).infer(variadic),
		op("Where", 9, 3, 3, 1, 1).infer(whereInfer),
		op("Where", 16, 3, 3, 1, 1).infer(whereInfer),
	)

	// Casting and identity.
	castAttrs := []AttrSpec{required("to", onnx.AttrInt)}
	register(
		op("Cast", 1, 1, 1, 1, 1, required("to", onnx.AttrString)).infer(passthrough),
		op("Cast", 6, 1, 1, 1, 1, castAttrs...).infer(castInfer).propagate(passData),
		op("Cast", 9, 1, 1, 1, 1, castAttrs...).infer(castInfer).propagate(passData),
		op("Cast", 13, 1, 1, 1, 1, castAttrs...).infer(castInfer).propagate(passData),
		op("Cast", 19, 1, 1, 1, 1, append(castAttrs, attr("saturate", onnx.AttrInt))...).infer(castInfer).propagate(passData),
		op("Cast", 21, 1, 1, 1, 1, append(castAttrs, attr("saturate", onnx.AttrInt))...).infer(castInfer).propagate(passData),
		op("Cast", 23, 1, 1, 1, 1, append(castAttrs, attr("saturate", onnx.AttrInt))...).infer(castInfer).propagate(passData),
		op("Cast", 24, 1, 1, 1, 1, append(castAttrs, attr("saturate", onnx.AttrInt), attr("round_mode", onnx.AttrString))...).infer(castInfer).propagate(passData),
		op("CastLike", 15, 2, 2, 1, 1).infer(castLikeInfer),
		op("CastLike", 19, 2, 2, 1, 1, attr("saturate", onnx.AttrInt)).infer(castLikeInfer),
		op("CastLike", 21, 2, 2, 1, 1, attr("saturate", onnx.AttrInt)).infer(castLikeInfer),
	)
	for _, since := range []int64{1, 13, 14, 16, 19, 21} {
		register(op("Identity", since, 1, 1, 1, 1).infer(passthrough).propagate(passData))
	}

	// Dropout and Clip.
	register(
		op("Dropout", 1, 1, 1, 1, 2, attr("is_test", onnx.AttrInt), attr("ratio", onnx.AttrFloat), consumedInputs).infer(dropoutInfer),
		op("Dropout", 6, 1, 1, 1, 2, attr("is_test", onnx.AttrInt), attr("ratio", onnx.AttrFloat)).infer(dropoutInfer),
		op("Dropout", 7, 1, 1, 1, 2, attr("ratio", onnx.AttrFloat)).infer(dropoutInfer),
		op("Dropout", 10, 1, 1, 1, 2, attr("ratio", onnx.AttrFloat)).infer(dropoutInfer),
		op("Dropout", 12, 1, 3, 1, 2, attr("seed", onnx.AttrInt)).infer(dropoutInfer),
		op("Dropout", 13, 1, 3, 1, 2, attr("seed", onnx.AttrInt)).infer(dropoutInfer),
		op("Clip", 1, 1, 1, 1, 1, attr("max", onnx.AttrFloat), attr("min", onnx.AttrFloat), consumedInputs).infer(passthrough),
		op("Clip", 6, 1, 1, 1, 1, attr("max", onnx.AttrFloat), attr("min", onnx.AttrFloat)).infer(passthrough),
		op("Clip", 11, 1, 3, 1, 1).infer(passthrough),
		op("Clip", 12, 1, 3, 1, 1).infer(passthrough),
		op("Clip", 13, 1, 3, 1, 1).infer(passthrough),
	)
}

func unary(name string, since int64, attrs ...AttrSpec) *Schema {
	return op(name, since, 1, 1, 1, 1, attrs...).infer(passthrough)
}

// outputElem keeps the input shape and forces the output element type.
func outputElem(elem onnx.DataType) func(Context) error {
	return func(ctx Context) error {
		if tensorInput(ctx, 0) == nil {
			return nil
		}
		setOutput(ctx, 0, elem, inputShape(ctx, 0))
		return nil
	}
}

func axisChecked(ctx Context) error {
	shape := inputShape(ctx, 0)
	if shape == nil {
		return passthrough(ctx)
	}
	def := int64(-1)
	if ctx.OpsetVersion() < 13 {
		def = 1
	}
	if shape.Rank() > 0 {
		if _, err := normalizeAxis(attrInt(ctx, "axis", def), shape.Rank(), "axis"); err != nil {
			return err
		}
	}
	return passthrough(ctx)
}

func binary(ctx Context) error {
	elem, err := sameElemType(ctx, 0, 1)
	if err != nil {
		return err
	}
	return broadcastInfer(ctx, elem, 0, 1)
}

func relational(ctx Context) error {
	if _, err := sameElemType(ctx, 0, 1); err != nil {
		return err
	}
	return broadcastInfer(ctx, onnx.Bool, 0, 1)
}

func powInfer(ctx Context) error {
	return broadcastInfer(ctx, inputElem(ctx, 0), 0, 1)
}

func variadic(ctx Context) error {
	idx := make([]int, ctx.NumInputs())
	for i := range idx {
		idx[i] = i
	}
	elem, err := sameElemType(ctx, idx...)
	if err != nil {
		return err
	}
	return broadcastInfer(ctx, elem, idx...)
}

func whereInfer(ctx Context) error {
	elem, err := sameElemType(ctx, 1, 2)
	if err != nil {
		return err
	}
	return broadcastInfer(ctx, elem, 0, 1, 2)
}

// broadcastInfer sets output 0 to the multidirectional broadcast of the
// listed inputs. The shape stays unknown if any input rank is unknown.
func broadcastInfer(ctx Context, elem onnx.DataType, idx ...int) error {
	if elem == onnx.Undefined {
		return nil
	}
	shapes := make([]*onnx.Shape, 0, len(idx))
	for _, i := range idx {
		s := inputShape(ctx, i)
		if s == nil {
			setOutput(ctx, 0, elem, nil)
			return nil
		}
		shapes = append(shapes, s)
	}
	out, err := broadcastShapes(shapes...)
	if err != nil {
		return err
	}
	setOutput(ctx, 0, elem, out)
	return nil
}

func unidirectional(ctx Context) error {
	if _, err := sameElemType(ctx, 0, 1); err != nil {
		return err
	}
	x, slope := inputShape(ctx, 0), inputShape(ctx, 1)
	if x != nil && slope != nil {
		if slope.Rank() > x.Rank() {
			return shapeErr("Slope rank %d exceeds input rank %d", slope.Rank(), x.Rank())
		}
		if _, err := broadcastShapes(x, slope); err != nil {
			return err
		}
	}
	return passthrough(ctx)
}

func legacyBinary(ctx Context) error {
	elem, err := sameElemType(ctx, 0, 1)
	if err != nil {
		return err
	}
	return legacyBroadcastInfer(ctx, elem)
}

func legacyRelational(ctx Context) error {
	if _, err := sameElemType(ctx, 0, 1); err != nil {
		return err
	}
	return legacyBroadcastInfer(ctx, onnx.Bool)
}

// legacyBroadcastInfer gives output 0 the shape of input A. Without the
// broadcast flag both inputs must have equal ranks.
func legacyBroadcastInfer(ctx Context, elem onnx.DataType) error {
	if elem == onnx.Undefined {
		return nil
	}
	a, b := inputShape(ctx, 0), inputShape(ctx, 1)
	if attrInt(ctx, "broadcast", 0) == 0 && a != nil && b != nil && a.Rank() != b.Rank() {
		return shapeErr("Input shapes differ in rank (%d vs %d) and broadcast is not enabled", a.Rank(), b.Rank())
	}
	setOutput(ctx, 0, elem, a)
	return nil
}

func castInfer(ctx Context) error {
	to := onnx.DataType(attrInt(ctx, "to", 0))
	if !to.Valid() || to == onnx.Undefined {
		return typeErr("Cast target type %d is not a valid tensor element type", to)
	}
	if tensorInput(ctx, 0) == nil {
		setOutput(ctx, 0, to, nil)
		return nil
	}
	setOutput(ctx, 0, to, inputShape(ctx, 0))
	return nil
}

func castLikeInfer(ctx Context) error {
	elem := inputElem(ctx, 1)
	if elem == onnx.Undefined || tensorInput(ctx, 0) == nil {
		return nil
	}
	setOutput(ctx, 0, elem, inputShape(ctx, 0))
	return nil
}

func dropoutInfer(ctx Context) error {
	if err := passthrough(ctx); err != nil {
		return err
	}
	if ctx.NumOutputs() < 2 || tensorInput(ctx, 0) == nil {
		return nil
	}
	mask := inputElem(ctx, 0)
	if ctx.OpsetVersion() >= 10 {
		mask = onnx.Bool
	}
	setOutput(ctx, 1, mask, inputShape(ctx, 0))
	return nil
}
