package opset

import "fmt"

// Error kinds reported by inference functions.
const (
	ShapeInferenceError = "ShapeInferenceError"
	TypeInferenceError  = "TypeInferenceError"
)

// InferenceError is returned by inference functions.
type InferenceError struct {
	Kind string
	Msg  string
}

func (e *InferenceError) Error() string {
	return "[" + e.Kind + "] " + e.Msg
}

func shapeErr(format string, args ...any) error {
	return &InferenceError{Kind: ShapeInferenceError, Msg: fmt.Sprintf(format, args...)}
}

func typeErr(format string, args ...any) error {
	return &InferenceError{Kind: TypeInferenceError, Msg: fmt.Sprintf(format, args...)}
}
