package graph

import (
	"fmt"
	"io"
	"strings"
)

// Visualizer provides methods to visualize the dependency graph
type Visualizer struct {
	graph *DependencyGraph
}

// NewVisualizer creates a new graph visualizer
func NewVisualizer(graph *DependencyGraph) *Visualizer {
	return &Visualizer{graph: graph}
}

// WriteDOT writes the graph in Graphviz DOT format
func (v *Visualizer) WriteDOT(w io.Writer) error {
	var b strings.Builder

	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	nodes := v.graph.Nodes()
	nodeIDs := make(map[NodeKey]string, len(nodes))
	for i, node := range nodes {
		nodeID := fmt.Sprintf("n%d", i)
		nodeIDs[node.Key] = nodeID

		fmt.Fprintf(&b, "  %s [label=%q, fillcolor=%q, style=filled];\n",
			nodeID, v.formatNodeLabel(node), v.getNodeColor(node))
	}

	for _, node := range nodes {
		for _, e := range node.Edges {
			style := ""
			if e.Deferred || e.Optional {
				style = " [style=dashed]"
			}
			fmt.Fprintf(&b, "  %s -> %s%s;\n", nodeIDs[node.Key], nodeIDs[e.To], style)
		}
	}

	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteText writes a text representation of the graph, grouped by depth.
func (v *Visualizer) WriteText(w io.Writer) error {
	var b strings.Builder

	b.WriteString("Dependency Graph:\n")
	b.WriteString("=================\n\n")

	v.graph.CalculateDepths()

	depthGroups := make(map[int][]*Node)
	maxDepth := 0
	for _, node := range v.graph.Nodes() {
		depthGroups[node.Depth] = append(depthGroups[node.Depth], node)
		if node.Depth > maxDepth {
			maxDepth = node.Depth
		}
	}

	for depth := 0; depth <= maxDepth; depth++ {
		nodes, exists := depthGroups[depth]
		if !exists {
			continue
		}

		fmt.Fprintf(&b, "Level %d:\n", depth)
		b.WriteString("--------\n")
		for _, node := range nodes {
			v.writeNodeDetails(&b, node, "  ")
		}
		b.WriteString("\n")
	}

	if cycleNodes, exists := depthGroups[-1]; exists {
		b.WriteString("Nodes in Cycles:\n")
		b.WriteString("----------------\n")
		for _, node := range cycleNodes {
			v.writeNodeDetails(&b, node, "  ")
		}
		b.WriteString("\n")
	}

	v.writeStatistics(&b)

	_, err := io.WriteString(w, b.String())
	return err
}

func (v *Visualizer) formatNodeLabel(node *Node) string {
	label := node.Key.String()
	if node.Label != "" {
		label += "\n" + node.Label
	}
	if node.Registrations > 1 {
		label += fmt.Sprintf("\n(%d registrations)", node.Registrations)
	}
	return label
}

func (v *Visualizer) getNodeColor(node *Node) string {
	switch {
	case node.Registrations == 0:
		return "lightcoral" // not registered
	case len(node.Edges) == 0:
		return "lightgreen" // leaf
	default:
		return "lightblue"
	}
}

func (v *Visualizer) writeNodeDetails(b *strings.Builder, node *Node, indent string) {
	fmt.Fprintf(b, "%s%s", indent, node.Key)
	if node.Label != "" {
		fmt.Fprintf(b, " %s", node.Label)
	}
	if node.Registrations == 0 {
		b.WriteString(" (unregistered)")
	}
	b.WriteString("\n")

	for _, e := range node.Edges {
		var flags []string
		if e.Many {
			flags = append(flags, "many")
		}
		if e.Deferred {
			flags = append(flags, "deferred")
		}
		if e.Optional {
			flags = append(flags, "optional")
		}

		fmt.Fprintf(b, "%s  → %s", indent, e.To)
		if len(flags) > 0 {
			fmt.Fprintf(b, " (%s)", strings.Join(flags, ", "))
		}
		b.WriteString("\n")
	}
}

func (v *Visualizer) writeStatistics(b *strings.Builder) {
	edges, registered := 0, 0
	for _, node := range v.graph.nodes {
		edges += len(node.Edges)
		if node.Registrations > 0 {
			registered++
		}
	}

	b.WriteString("Statistics:\n")
	b.WriteString("-----------\n")
	fmt.Fprintf(b, "  Nodes: %d (%d registered)\n", len(v.graph.nodes), registered)
	fmt.Fprintf(b, "  Edges: %d\n", edges)
	fmt.Fprintf(b, "  Missing: %d\n", len(v.graph.Missing()))
}
