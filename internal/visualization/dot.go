package visualization

import (
	"fmt"
	"math"
	"strings"

	"github.com/nvandessel/iac/internal/network"
)

// activationColor maps an activation to an HSV fill color: green for
// positive, red for negative, saturation growing with the magnitude.
func activationColor(a float64) string {
	hue := 0.333
	if a < 0 {
		hue = 0.0
	}
	sat := math.Min(math.Abs(a), 1)
	return fmt.Sprintf("%.3f %.3f 1.000", hue, sat)
}

// RenderDOT produces a Graphviz DOT representation of the network with each
// node filled by its activation. Blocks are drawn as clusters, excitatory
// links as undirected solid edges, and the inhibition ring as dashed arrows.
func RenderDOT(net *network.Network, acts map[string]float64) string {
	var b strings.Builder
	b.WriteString("digraph iac {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	for i, block := range net.Blocks {
		b.WriteString(fmt.Sprintf("  subgraph cluster_%d {\n", i))
		b.WriteString(fmt.Sprintf("    label=%q;\n", block.Name))
		for _, id := range block.Members {
			a, ok := acts[id]
			if !ok {
				b.WriteString(fmt.Sprintf("    %q [fillcolor=\"lightgray\"];\n", id))
				continue
			}
			b.WriteString(fmt.Sprintf("    %q [label=%q, fillcolor=%q];\n",
				id, fmt.Sprintf("%s\n%.3f", id, a), activationColor(a)))
		}
		b.WriteString("  }\n")
	}
	b.WriteString("\n")

	// Excitation is symmetric; draw each pair once.
	seen := make(map[string]bool)
	for _, id := range net.Nodes {
		for _, other := range net.Excitation[id] {
			key := edgeKey(id, other)
			if seen[key] {
				continue
			}
			seen[key] = true
			b.WriteString(fmt.Sprintf("  %q -> %q [dir=none];\n", id, other))
		}
	}

	for _, id := range net.Nodes {
		next, ok := net.Inhibition[id]
		if !ok || next == id {
			continue
		}
		b.WriteString(fmt.Sprintf("  %q -> %q [style=dashed, color=\"gray50\", constraint=false];\n", id, next))
	}

	b.WriteString("}\n")
	return b.String()
}

func edgeKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
