package shapeinfer

import "github.com/MeKo-Tech/modelcheck/internal/onnx"

// nodeContext implements opset.Context for one node.
type nodeContext struct {
	node      *onnx.Node
	version   int64
	types     map[string]*onnx.Type
	constants map[string]*onnx.Tensor
	data      map[string]*onnx.Shape
	outTypes  []*onnx.Type
	outData   []*onnx.Shape
}

func (c *nodeContext) OpType() string      { return c.node.OpType }
func (c *nodeContext) NodeName() string    { return c.node.Name }
func (c *nodeContext) OpsetVersion() int64 { return c.version }
func (c *nodeContext) NumInputs() int      { return len(c.node.Inputs) }
func (c *nodeContext) NumOutputs() int     { return len(c.node.Outputs) }

func (c *nodeContext) input(i int) string {
	if i < 0 || i >= len(c.node.Inputs) {
		return ""
	}
	return c.node.Inputs[i]
}

func (c *nodeContext) HasInput(i int) bool {
	return c.input(i) != ""
}

func (c *nodeContext) InputType(i int) *onnx.Type {
	name := c.input(i)
	if name == "" {
		return nil
	}
	return c.types[name]
}

func (c *nodeContext) InputConstant(i int) *onnx.Tensor {
	name := c.input(i)
	if name == "" {
		return nil
	}
	return c.constants[name]
}

// InputData returns propagated values, falling back to the values of a
// constant integer tensor of rank zero or one.
func (c *nodeContext) InputData(i int) *onnx.Shape {
	name := c.input(i)
	if name == "" {
		return nil
	}
	if d, ok := c.data[name]; ok {
		return d
	}
	t := c.constants[name]
	if t == nil || len(t.Dims) > 1 {
		return nil
	}
	if v, ok := t.IntValues(); ok {
		return onnx.NewShape(v...)
	}
	return nil
}

func (c *nodeContext) Attribute(name string) *onnx.Attribute {
	return c.node.Attribute(name)
}

func (c *nodeContext) SetOutputType(i int, t *onnx.Type) {
	if i >= 0 && i < len(c.outTypes) {
		c.outTypes[i] = t
	}
}

func (c *nodeContext) SetOutputData(i int, s *onnx.Shape) {
	if i >= 0 && i < len(c.outData) {
		c.outData[i] = s
	}
}
