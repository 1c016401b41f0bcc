// Package onnx holds an in-memory form of the ONNX ModelProto and a wire
// codec for it. Only the fields the checker and shape inference read are
// kept; unknown fields are skipped when decoding.
package onnx

// IRVersion is the newest IR version this package understands.
const IRVersion int64 = 11

// Well-known operator set domains.
const (
	DomainDefault  = ""
	DomainAIONNX   = "ai.onnx"
	DomainML       = "ai.onnx.ml"
	DomainTraining = "ai.onnx.preview.training"
)

// Model mirrors ModelProto.
type Model struct {
	IRVersion       int64
	OpsetImports    []OperatorSetID
	ProducerName    string
	ProducerVersion string
	Domain          string
	ModelVersion    int64
	DocString       string
	Graph           *Graph
	MetadataProps   []StringEntry
}

// OperatorSetID mirrors OperatorSetIdProto.
type OperatorSetID struct {
	Domain  string
	Version int64
}

// StringEntry mirrors StringStringEntryProto.
type StringEntry struct {
	Key   string
	Value string
}

// Graph mirrors GraphProto. Sparse initializers are kept by name only.
type Graph struct {
	Name                   string
	Nodes                  []*Node
	Initializers           []*Tensor
	SparseInitializerNames []string
	DocString              string
	Inputs                 []*ValueInfo
	Outputs                []*ValueInfo
	ValueInfo              []*ValueInfo
}

// Node mirrors NodeProto.
type Node struct {
	Inputs     []string
	Outputs    []string
	Name       string
	OpType     string
	Domain     string
	Attributes []*Attribute
	DocString  string
}

// Attribute returns the attribute with the given name, or nil.
func (n *Node) Attribute(name string) *Attribute {
	for _, a := range n.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// ValueInfo mirrors ValueInfoProto.
type ValueInfo struct {
	Name      string
	Type      *Type
	DocString string
}

// OpsetVersion returns the imported version for domain. The default domain
// may be imported as either "" or "ai.onnx".
func (m *Model) OpsetVersion(domain string) (int64, bool) {
	want := NormalizeDomain(domain)
	for _, op := range m.OpsetImports {
		if NormalizeDomain(op.Domain) == want {
			return op.Version, true
		}
	}
	return 0, false
}

// NormalizeDomain maps "ai.onnx" onto the default domain.
func NormalizeDomain(domain string) string {
	if domain == DomainAIONNX {
		return DomainDefault
	}
	return domain
}

// InitializerNames returns the set of initializer names in g.
func (g *Graph) InitializerNames() map[string]bool {
	names := make(map[string]bool, len(g.Initializers))
	for _, t := range g.Initializers {
		names[t.Name] = true
	}
	return names
}

// RealInputs returns graph inputs that are not also initializers.
func (g *Graph) RealInputs() []*ValueInfo {
	inits := g.InitializerNames()
	var out []*ValueInfo
	for _, vi := range g.Inputs {
		if !inits[vi.Name] {
			out = append(out, vi)
		}
	}
	return out
}
