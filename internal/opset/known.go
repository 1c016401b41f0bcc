package opset

import (
	"sync"

	"github.com/MeKo-Tech/modelcheck/internal/onnx"
)

// Operators without a detailed schema are still known to the registry so
// the checker accepts them. They take any attributes and any arity and
// infer nothing.
var catalogue = map[string][]string{
	onnx.DomainDefault: {
		"Acos", "Acosh", "Add", "AffineGrid", "And", "ArgMax", "ArgMin", "Asin", "Asinh",
		"Atan", "Atanh", "Attention", "AveragePool", "BatchNormalization", "Bernoulli",
		"BitShift", "BitwiseAnd", "BitwiseNot", "BitwiseOr", "BitwiseXor", "BlackmanWindow",
		"Cast", "CastLike", "Ceil", "Celu", "CenterCropPad", "Clip", "Col2Im", "Compress",
		"Concat", "ConcatFromSequence", "Constant", "ConstantOfShape", "Conv", "ConvInteger",
		"ConvTranspose", "Cos", "Cosh", "CumSum", "DFT", "DeformConv", "DepthToSpace",
		"DequantizeLinear", "Det", "Div", "Dropout", "DynamicQuantizeLinear", "Einsum", "Elu",
		"Equal", "Erf", "Exp", "Expand", "EyeLike", "Flatten", "Floor", "GRU", "Gather",
		"GatherElements", "GatherND", "Gelu", "Gemm", "GlobalAveragePool", "GlobalLpPool",
		"GlobalMaxPool", "Greater", "GreaterOrEqual", "GridSample", "GroupNormalization",
		"HammingWindow", "HannWindow", "HardSigmoid", "HardSwish", "Hardmax", "Identity", "If",
		"ImageDecoder", "InstanceNormalization", "IsInf", "IsNaN", "LRN", "LSTM",
		"LayerNormalization", "LeakyRelu", "Less", "LessOrEqual", "Log", "LogSoftmax", "Loop",
		"LpNormalization", "LpPool", "MatMul", "MatMulInteger", "Max", "MaxPool", "MaxRoiPool",
		"MaxUnpool", "Mean", "MeanVarianceNormalization", "MelWeightMatrix", "Min", "Mish",
		"Mod", "Mul", "Multinomial", "Neg", "NegativeLogLikelihoodLoss", "NonMaxSuppression",
		"NonZero", "Not", "OneHot", "Optional", "OptionalGetElement", "OptionalHasElement", "Or",
		"PRelu", "Pad", "Pow", "QLinearConv", "QLinearMatMul", "QuantizeLinear", "RMSNormalization",
		"RNN", "RandomNormal", "RandomNormalLike", "RandomUniform", "RandomUniformLike", "Range",
		"Reciprocal", "ReduceL1", "ReduceL2", "ReduceLogSum", "ReduceLogSumExp", "ReduceMax",
		"ReduceMean", "ReduceMin", "ReduceProd", "ReduceSum", "ReduceSumSquare", "RegexFullMatch",
		"Relu", "Reshape", "Resize", "ReverseSequence", "RoiAlign", "RotaryEmbedding", "Round",
		"STFT", "Scan", "Scatter", "ScatterElements", "ScatterND", "Selu", "SequenceAt",
		"SequenceConstruct", "SequenceEmpty", "SequenceErase", "SequenceInsert", "SequenceLength",
		"SequenceMap", "Shape", "Shrink", "Sigmoid", "Sign", "Sin", "Sinh", "Size", "Slice",
		"Softmax", "SoftmaxCrossEntropyLoss", "Softplus", "Softsign", "SpaceToDepth", "Split",
		"SplitToSequence", "Sqrt", "Squeeze", "StringConcat", "StringNormalizer", "StringSplit",
		"Sub", "Sum", "Swish", "Tan", "Tanh", "TensorScatter", "TfIdfVectorizer", "ThresholdedRelu",
		"Tile", "TopK", "Transpose", "Trilu", "Unique", "Unsqueeze", "Upsample", "Where", "Xor",
		// Removed from the standard but still found in old models.
		"ATen", "Affine", "ConstantFill", "Crop", "DynamicSlice", "GRUUnit", "GivenTensorFill",
		"ImageScaler", "ParametricSoftplus", "Scale", "ScaledTanh",
	},
	onnx.DomainML: {
		"ArrayFeatureExtractor", "Binarizer", "CastMap", "CategoryMapper", "DictVectorizer",
		"FeatureVectorizer", "Imputer", "LabelEncoder", "LinearClassifier", "LinearRegressor",
		"Normalizer", "OneHotEncoder", "SVMClassifier", "SVMRegressor", "Scaler",
		"TreeEnsemble", "TreeEnsembleClassifier", "TreeEnsembleRegressor", "ZipMap",
	},
	onnx.DomainTraining: {
		"Adagrad", "Adam", "Gradient", "Momentum",
	},
}

var catalogueOnce sync.Once

// registerCatalogue adds permissive schemas for catalogued operators that
// have no detailed schema. It runs on first lookup so every detailed
// schema is already registered.
func registerCatalogue() {
	for domain, names := range catalogue {
		for _, name := range names {
			mu.RLock()
			_, detailed := registry[registryKey{domain: domain, name: name}]
			mu.RUnlock()
			if detailed {
				continue
			}
			Register(&Schema{
				Name:          name,
				Domain:        domain,
				SinceVersion:  1,
				MinInputs:     0,
				MaxInputs:     Unbounded,
				MinOutputs:    0,
				MaxOutputs:    Unbounded,
				AnyAttributes: true,
			})
		}
	}
}
