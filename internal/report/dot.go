package report

import (
	"fmt"
	"strings"

	"github.com/excikin/excikin/internal/model"
)

// Node fill colors by role.
const (
	colorReactant = "slategray1"
	colorProduct  = "lavender"
	colorDefault  = "lightyellow"
)

// MechanismDOT renders the reaction network as a Graphviz digraph. Nodes
// use the display label; transition-state paths appear as their two-step
// expansion so the drawing shows the barrier state between its endpoints.
// The output is deterministic for a given graph.
func MechanismDOT(g *model.Graph, title string) string {
	reg := g.Registry()

	var b strings.Builder
	b.WriteString("digraph mechanism {\n")
	fmt.Fprintf(&b, "\tlabel=%q;\n", title)
	b.WriteString("\tlabelloc=t;\n")
	b.WriteString("\tnode [shape=box, style=filled, fontname=\"Arial\"];\n")
	b.WriteString("\tedge [fontname=\"Arial\"];\n\n")

	for i, s := range reg.States() {
		fmt.Fprintf(&b, "\tn%d [label=%q, fillcolor=%q];\n", i, s.Label, roleColor(s.Role))
	}
	b.WriteString("\n")

	seen := make(map[model.Edge]bool)
	for _, e := range g.DisplayEdges() {
		if seen[e] {
			continue
		}
		seen[e] = true
		fmt.Fprintf(&b, "\tn%d -> n%d;\n", e.Init, e.Final)
	}
	b.WriteString("}\n")
	return b.String()
}

func roleColor(r model.Role) string {
	switch r {
	case model.RoleReactant:
		return colorReactant
	case model.RoleProduct:
		return colorProduct
	default:
		return colorDefault
	}
}
