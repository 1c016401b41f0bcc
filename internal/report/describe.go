package report

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/modelcheck/internal/onnx"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Describe prints a summary of m: header fields, opset imports, graph
// signature and an operator histogram.
func (p *Printer) Describe(name string, m *onnx.Model) {
	p.println(p.headerStyle.Render(name))
	p.println(fmt.Sprintf("  ir_version: %d", m.IRVersion))
	if m.ProducerName != "" {
		p.println(fmt.Sprintf("  producer:   %s %s", m.ProducerName, m.ProducerVersion))
	}
	opsets := make([]string, len(m.OpsetImports))
	for i, op := range m.OpsetImports {
		domain := op.Domain
		if domain == "" {
			domain = onnx.DomainAIONNX
		}
		opsets[i] = domain + " v" + strconv.FormatInt(op.Version, 10)
	}
	p.println("  opsets:     " + strings.Join(opsets, ", "))

	g := m.Graph
	if g == nil {
		p.println(p.dimStyle.Render("  (no graph)"))
		return
	}
	p.println(fmt.Sprintf("  graph:      %s (%d nodes, %d initializers)", g.Name, len(g.Nodes), len(g.Initializers)))
	p.println(p.signature(g))

	if hist := opHistogram(g); hist != "" {
		p.println("  ops:        " + hist)
	}
}

func (p *Printer) signature(g *onnx.Graph) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.dimStyle).
		Headers("kind", "name", "type")
	for _, vi := range g.RealInputs() {
		t.Row("input", vi.Name, vi.Type.String())
	}
	for _, vi := range g.Outputs {
		t.Row("output", vi.Name, vi.Type.String())
	}
	return t.String()
}

// opHistogram lists op types by descending count, then name.
func opHistogram(g *onnx.Graph) string {
	counts := make(map[string]int)
	for _, n := range g.Nodes {
		key := n.OpType
		if n.Domain != "" && n.Domain != onnx.DomainAIONNX {
			key = n.Domain + "." + n.OpType
		}
		counts[key]++
	}
	names := slices.SortedFunc(maps.Keys(counts), func(a, b string) int {
		return cmp.Or(cmp.Compare(counts[b], counts[a]), cmp.Compare(a, b))
	})
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s×%d", n, counts[n])
	}
	return strings.Join(parts, " ")
}
