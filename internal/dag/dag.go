// SPDX-License-Identifier: MPL-2.0

// Package dag orders named nodes so that every node comes after the nodes it
// depends on. It is used to order compose services by depends_on.
package dag

import (
	"fmt"
	"slices"
	"strings"
)

type (
	// CycleError reports a dependency cycle. Cycle starts and ends with the
	// same node.
	CycleError struct {
		Cycle []string
	}

	// Graph is a dependency graph keyed by node name.
	Graph struct {
		order []string
		deps  map[string][]string
	}

	visitState uint8
)

const (
	unvisited visitState = iota
	visiting
	visited
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{deps: make(map[string][]string)}
}

// AddNode adds name. Adding an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	if _, ok := g.deps[name]; ok {
		return
	}
	g.deps[name] = nil
	g.order = append(g.order, name)
}

// DependOn records that node must come after dep. Both are added if missing.
func (g *Graph) DependOn(node, dep string) {
	g.AddNode(node)
	g.AddNode(dep)
	if !slices.Contains(g.deps[node], dep) {
		g.deps[node] = append(g.deps[node], dep)
	}
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// Sort returns every node after its dependencies. Independent nodes keep
// the order in which they were added.
func (g *Graph) Sort() ([]string, error) {
	if len(g.order) == 0 {
		return nil, nil
	}

	state := make(map[string]visitState, len(g.order))
	sorted := make([]string, 0, len(g.order))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visited:
			return nil
		case visiting:
			start := slices.Index(path, name)
			cycle := append(slices.Clone(path[start:]), name)
			return &CycleError{Cycle: cycle}
		}

		state[name] = visiting
		path = append(path, name)
		for _, dep := range g.deps[name] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[name] = visited
		sorted = append(sorted, name)
		return nil
	}

	for _, name := range g.order {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return sorted, nil
}
