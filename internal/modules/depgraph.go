package modules

import (
	"fmt"
	"sort"

	"github.com/blend65/b65c/internal/diagnostic"
)

// DependencyGraph tracks import edges between registered modules. Nodes
// are created for every registered module, even one with no imports, so
// it still appears in the topological order.
type DependencyGraph struct {
	nodes        map[string]bool
	order        []string // node creation order, for deterministic fallback iteration
	dependencies map[string][]string
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes:        make(map[string]bool),
		dependencies: make(map[string][]string),
	}
}

// AddNode registers a module as a graph node, even if it has no edges.
func (g *DependencyGraph) AddNode(name string) {
	if g.nodes[name] {
		return
	}
	g.nodes[name] = true
	g.order = append(g.order, name)
}

// AddEdge records that from imports to.
func (g *DependencyGraph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.dependencies[from] = append(g.dependencies[from], to)
}

// BuildFromRegistry scans every module's import declarations and adds
// one edge per import, validating that the target module is registered.
// Wildcard imports are accepted here; per-identifier validation happens
// during cross-module resolution.
func BuildFromRegistry(reg *Registry, sink *diagnostic.Sink) *DependencyGraph {
	g := NewDependencyGraph()
	for _, m := range reg.All() {
		g.AddNode(m.Name)
		for _, d := range m.Program.Declarations {
			imp, ok := unwrapImport(d)
			if !ok {
				continue
			}
			if !reg.Has(imp.ModulePath) {
				sink.Emit(diagnostic.Error, diagnostic.ImportModuleNotFound,
					fmt.Sprintf("module %q imports unknown module %q", m.Name, imp.ModulePath), imp.Span())
				continue
			}
			g.AddEdge(m.Name, imp.ModulePath)
		}
	}
	return g
}

// DetectCycles finds import cycles via DFS with a recursion stack. Each
// edge back into a module still on the stack yields one cycle, deduped by
// rotation, so a graph with any cycle reports at least one. Modules the
// DFS has already finished are not entered again, so when simple cycles
// share modules not all of them are listed. Each cycle is returned as an
// ordered chain of module names in which each imports the next and the
// last imports the first; the first element is not repeated at the end.
func (g *DependencyGraph) DetectCycles() [][]string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var path []string
	var cycles [][]string
	seen := make(map[string]bool) // dedupes cycles found from multiple start nodes

	var dfs func(node string)
	dfs = func(node string) {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)

		for _, dep := range g.dependencies[node] {
			if onStack[dep] {
				cycle := extractCycle(path, dep)
				key := canonicalCycleKey(cycle)
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
				continue
			}
			if !visited[dep] {
				dfs(dep)
			}
		}

		path = path[:len(path)-1]
		onStack[node] = false
	}

	for _, name := range sortedNames(g.nodes) {
		if !visited[name] {
			dfs(name)
		}
	}
	return cycles
}

func extractCycle(path []string, closeAt string) []string {
	start := 0
	for i, n := range path {
		if n == closeAt {
			start = i
			break
		}
	}
	cycle := make([]string, len(path)-start)
	copy(cycle, path[start:])
	return cycle
}

// canonicalCycleKey rotates cycle to start at its lexicographically
// smallest element, so the same cycle found from different start nodes
// dedupes to one entry.
func canonicalCycleKey(cycle []string) string {
	minIdx := 0
	for i, n := range cycle {
		if n < cycle[minIdx] {
			minIdx = i
		}
	}
	key := ""
	for i := range cycle {
		key += cycle[(minIdx+i)%len(cycle)] + ">"
	}
	return key
}

// TopologicalOrder runs Kahn's algorithm over the reversed edge set (a
// module with zero imports has no prerequisites and sorts first; a
// module that imports it becomes ready only once every import it names
// has already been placed), breaking ties lexicographically by module
// name for determinism (spec §5). Returns (order, true) on success, with
// every imported module preceding its importer, or (nil, false) if the
// graph contains a cycle.
func (g *DependencyGraph) TopologicalOrder() ([]string, bool) {
	remaining := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string) // to -> modules that import it
	for name := range g.nodes {
		remaining[name] = len(g.dependencies[name])
	}
	for from, deps := range g.dependencies {
		for _, to := range deps {
			dependents[to] = append(dependents[to], from)
		}
	}

	ready := make([]string, 0)
	for name, count := range remaining {
		if count == 0 {
			ready = append(ready, name)
		}
	}

	var order []string
	for len(ready) > 0 {
		sort.Strings(ready)
		current := ready[0]
		ready = ready[1:]
		order = append(order, current)

		for _, dependent := range dependents[current] {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, false
	}
	return order, true
}

func sortedNames(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
