package ioc

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/junioryono/ioc/internal/graph"
)

// GraphFormat selects the output of WriteGraph.
type GraphFormat int

const (
	// GraphText writes services grouped by dependency depth.
	GraphText GraphFormat = iota

	// GraphDOT writes Graphviz DOT.
	GraphDOT
)

// dependencyGraph snapshots the registrations and the dependencies their
// constructors declare.
func (c *Container) dependencyGraph() *graph.DependencyGraph {
	g := graph.New()
	registered := make(map[ServiceKey]bool)

	for _, key := range c.reg.keys() {
		registered[key] = true
		for _, f := range c.reg.snapshot(key.Type, key.Key) {
			edges := make([]graph.Edge, 0, len(f.deps))
			for _, d := range f.deps {
				edges = append(edges, graph.Edge{
					To:       graph.NodeKey{Type: d.Type, Key: d.Key},
					Deferred: d.Deferred,
					Optional: d.Optional,
					Many:     d.Many,
				})
			}
			g.Add(graph.NodeKey{Type: key.Type, Key: key.Key}, f.String(), edges)
		}
	}

	// Instantiations served by open registrations count as registered.
	for _, n := range g.Nodes() {
		key := ServiceKey{Type: n.Key.Type, Key: n.Key.Key}
		if n.Registrations > 0 || registered[key] || n.Key.Type == nil {
			continue
		}
		for _, f := range c.reg.snapshot(key.Type, key.Key) {
			g.Add(n.Key, f.String(), nil)
		}
	}

	return g
}

// Verify checks the registered constructors without invoking them. It
// reports required dependencies that have no registration and dependency
// cycles that construction would run into. Dependencies resolved after
// construction, such as *Lazy[T] and func() T, cannot form a cycle.
func (c *Container) Verify() error {
	g := c.dependencyGraph()

	var errs []error
	for _, pair := range g.Missing() {
		errs = append(errs, ValidationError{
			ServiceType: pair[0].Type,
			Cause:       fmt.Errorf("depends on %s: %w", graphKeyString(pair[1]), ErrServiceNotFound),
		})
	}

	if cycle := g.DetectCycles(); cycle != nil {
		path := make([]reflect.Type, len(cycle))
		for i, k := range cycle {
			path[i] = k.Type
		}
		errs = append(errs, CircularDependencyError{Path: path})
	}

	return errors.Join(errs...)
}

// WriteGraph writes the dependency graph of the current registrations.
func (c *Container) WriteGraph(w io.Writer, format GraphFormat) error {
	v := graph.NewVisualizer(c.dependencyGraph())
	if format == GraphDOT {
		return v.WriteDOT(w)
	}
	return v.WriteText(w)
}

func graphKeyString(k graph.NodeKey) string {
	return ServiceKey{Type: k.Type, Key: k.Key}.String()
}
