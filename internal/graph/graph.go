package graph

import (
	"fmt"
	"reflect"
	"sort"
)

// NodeKey uniquely identifies a node in the graph
type NodeKey struct {
	Type reflect.Type
	Key  any // contract key, nil for the default contract
}

func (k NodeKey) String() string {
	if k.Key == nil {
		return fmt.Sprint(k.Type)
	}
	return fmt.Sprintf("%v[%v]", k.Type, k.Key)
}

// Edge is one dependency of a node.
type Edge struct {
	To NodeKey

	// Deferred edges are resolved after construction and cannot form a
	// construction cycle.
	Deferred bool

	// Optional edges tolerate a missing dependency.
	Optional bool

	// Many edges resolve every registration and tolerate none.
	Many bool
}

// Node represents a service in the dependency graph
type Node struct {
	Key NodeKey

	// Registrations is the number of registrations under Key. It is zero
	// for nodes only known as a dependency.
	Registrations int
	Label         string

	Edges []Edge

	// Depth is the longest chain of eager dependencies below the node. It is
	// -1 for nodes on a cycle or depending on one.
	Depth int
}

// DependencyGraph is a snapshot of registrations and their dependencies.
// It is built once and then only read; it is not safe for concurrent mutation.
type DependencyGraph struct {
	nodes map[NodeKey]*Node
}

// New creates a new empty dependency graph
func New() *DependencyGraph {
	return &DependencyGraph{nodes: make(map[NodeKey]*Node)}
}

// Add records one registration under key with its dependency edges.
// Registering the same key again merges the edges.
func (g *DependencyGraph) Add(key NodeKey, label string, edges []Edge) {
	node := g.node(key)
	node.Registrations++
	if node.Label == "" {
		node.Label = label
	}
	node.Edges = append(node.Edges, edges...)

	for _, e := range edges {
		g.node(e.To)
	}
}

func (g *DependencyGraph) node(key NodeKey) *Node {
	n, ok := g.nodes[key]
	if !ok {
		n = &Node{Key: key}
		g.nodes[key] = n
	}
	return n
}

// Node returns the node for key, or nil.
func (g *DependencyGraph) Node(key NodeKey) *Node {
	return g.nodes[key]
}

// Size returns the number of nodes.
func (g *DependencyGraph) Size() int {
	return len(g.nodes)
}

// Nodes returns every node ordered by name, for stable output.
func (g *DependencyGraph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Key.String() < nodes[j].Key.String()
	})
	return nodes
}

// Missing returns the required dependencies that have no registration, as
// pairs of (dependent, dependency).
func (g *DependencyGraph) Missing() [][2]NodeKey {
	var missing [][2]NodeKey
	for _, n := range g.Nodes() {
		if n.Registrations == 0 {
			continue
		}
		for _, e := range n.Edges {
			if e.Optional || e.Many {
				continue
			}
			if dep := g.nodes[e.To]; dep == nil || dep.Registrations == 0 {
				missing = append(missing, [2]NodeKey{n.Key, e.To})
			}
		}
	}
	return missing
}

// DetectCycles returns the first eager cycle found, outermost node first
// and ending with the node that closes the cycle. It returns nil when the
// eager edges form a DAG.
func (g *DependencyGraph) DetectCycles() []NodeKey {
	const (
		unvisited = iota
		visiting
		visited
	)

	state := make(map[NodeKey]int, len(g.nodes))
	var stack []NodeKey
	var cycle []NodeKey

	var visit func(key NodeKey) bool
	visit = func(key NodeKey) bool {
		state[key] = visiting
		stack = append(stack, key)

		for _, e := range g.nodes[key].Edges {
			if e.Deferred {
				continue
			}
			switch state[e.To] {
			case visiting:
				for i, k := range stack {
					if k == e.To {
						cycle = append(append([]NodeKey(nil), stack[i:]...), e.To)
						return true
					}
				}
			case unvisited:
				if visit(e.To) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[key] = visited
		return false
	}

	for _, n := range g.Nodes() {
		if state[n.Key] == unvisited && visit(n.Key) {
			return cycle
		}
	}
	return nil
}

// CalculateDepths sets the Depth of every node.
func (g *DependencyGraph) CalculateDepths() {
	done := make(map[NodeKey]bool, len(g.nodes))
	onPath := make(map[NodeKey]bool)

	var depth func(n *Node) int
	depth = func(n *Node) int {
		if done[n.Key] {
			return n.Depth
		}
		if onPath[n.Key] {
			return -1
		}
		onPath[n.Key] = true

		d := 0
		for _, e := range n.Edges {
			if e.Deferred {
				continue
			}
			child := depth(g.nodes[e.To])
			if child < 0 {
				d = -1
				break
			}
			if child+1 > d {
				d = child + 1
			}
		}

		delete(onPath, n.Key)
		n.Depth = d
		done[n.Key] = true
		return d
	}

	for _, n := range g.Nodes() {
		depth(n)
	}
}

// Dependents returns the keys of nodes with an edge to key.
func (g *DependencyGraph) Dependents(key NodeKey) []NodeKey {
	var dependents []NodeKey
	for _, n := range g.Nodes() {
		for _, e := range n.Edges {
			if e.To == key {
				dependents = append(dependents, n.Key)
				break
			}
		}
	}
	return dependents
}
