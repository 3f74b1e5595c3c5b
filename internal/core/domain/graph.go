package domain

import (
	"sort"
	"strings"

	"github.com/toastbuild/toast/internal/fielderr"
)

// Graph is the whole-toastfile dependency graph: every declared task and
// its declared dependency edges, by name. Edges are names, not pointers,
// so the structure can never contain an ownership cycle and traversal
// order is trivially reproducible (spec Design Note "Cyclic / shared
// references").
type Graph struct {
	names map[string][]string // task name -> dependency names, as declared
}

// NewGraph builds a Graph from every task in tf, failing if any
// dependency name does not resolve to a task in the same toastfile.
func NewGraph(tf *Toastfile) (*Graph, error) {
	g := &Graph{names: make(map[string][]string, len(tf.Tasks))}
	for name, task := range tf.Tasks {
		g.names[name] = task.Dependencies
	}
	for name, deps := range g.names {
		for _, dep := range deps {
			if _, ok := g.names[dep]; !ok {
				return nil, fielderr.With(
					fielderr.With(ErrMissingDependency, "task_name", name),
					"dependency", dep,
				)
			}
		}
	}
	return g, nil
}

// Validate checks the whole graph for cycles using a three-color
// (unvisited/visiting/visited) depth-first search, visiting every task's
// dependencies and then every task itself in lexicographic order so
// that, for a fixed toastfile, the same cycle (if any) is always reported
// first (spec testable property 3).
func (g *Graph) Validate() error {
	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	color := make(map[string]int, len(g.names))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		color[name] = visiting
		path = append(path, name)

		deps := append([]string(nil), g.names[name]...)
		sort.Strings(deps)
		for _, dep := range deps {
			switch color[dep] {
			case visiting:
				return g.cycleError(path, dep)
			case unvisited:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		color[name] = visited
		path = path[:len(path)-1]
		return nil
	}

	for _, name := range g.SortedNames() {
		if color[name] == unvisited {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Graph) cycleError(path []string, closingDep string) error {
	start := 0
	for i, n := range path {
		if n == closingDep {
			start = i
			break
		}
	}
	cycle := append(append([]string(nil), path[start:]...), closingDep)
	return fielderr.With(ErrCycleDetected, "cycle", strings.Join(cycle, " -> "))
}

// SortedNames returns every task name in lexicographic order.
func (g *Graph) SortedNames() []string {
	names := make([]string, 0, len(g.names))
	for name := range g.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dependencies returns the declared dependency names of name, unsorted
// (callers that need determinism sort them themselves, as the scheduler
// does).
func (g *Graph) Dependencies(name string) []string {
	return g.names[name]
}

// Has reports whether name is a task in this graph.
func (g *Graph) Has(name string) bool {
	_, ok := g.names[name]
	return ok
}
