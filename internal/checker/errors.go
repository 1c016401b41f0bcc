package checker

import (
	"errors"
	"fmt"
)

// ErrValidation is wrapped by every error the checker returns.
var ErrValidation = errors.New("model validation failed")

// ValidationError reports a rule violation and where it happened.
type ValidationError struct {
	// Context locates the violation, e.g. "graph main / node 3 (Conv)".
	Context string
	Msg     string
	// Err is the underlying cause, if any.
	Err error
}

func (e *ValidationError) Error() string {
	if e.Context == "" {
		return e.Msg
	}
	return e.Msg + " ==> Context: " + e.Context
}

// Unwrap exposes ErrValidation and the cause to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrValidation, e.Err}
	}
	return []error{ErrValidation}
}

// scope names the location being checked.
type scope struct {
	parent *scope
	label  string
}

func (s *scope) child(format string, args ...any) *scope {
	return &scope{parent: s, label: fmt.Sprintf(format, args...)}
}

func (s *scope) String() string {
	if s == nil {
		return ""
	}
	if s.parent == nil || s.parent.label == "" {
		return s.label
	}
	return s.parent.String() + " / " + s.label
}

func (s *scope) fail(format string, args ...any) error {
	return &ValidationError{Context: s.String(), Msg: fmt.Sprintf(format, args...)}
}
