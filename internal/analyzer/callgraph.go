package analyzer

// UnresolvedCallee is passed to CallGraph.AddCall when a call's target
// could not be resolved to a known function; AddCall registers the
// caller node but adds no edge, so unresolved calls never introduce
// spurious graph edges.
const UnresolvedCallee = ""

// CallGraph is built incrementally during type checking (spec §4.7):
// every resolved call expression adds one source → callee edge, keyed
// by function name.
type CallGraph struct {
	nodes   []string
	nodeSet map[string]bool

	calleesOf map[string][]string
	callersOf map[string][]string
	edgeSeen  map[[2]string]bool
}

// NewCallGraph creates an empty call graph.
func NewCallGraph() *CallGraph {
	return &CallGraph{
		nodeSet:   make(map[string]bool),
		calleesOf: make(map[string][]string),
		callersOf: make(map[string][]string),
		edgeSeen:  make(map[[2]string]bool),
	}
}

func (g *CallGraph) ensure(name string) {
	if name == "" || g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddCall records that caller invokes callee. callee == UnresolvedCallee
// registers caller as a node without adding an edge.
func (g *CallGraph) AddCall(caller, callee string) {
	g.ensure(caller)
	if callee == UnresolvedCallee {
		return
	}
	g.ensure(callee)

	key := [2]string{caller, callee}
	if g.edgeSeen[key] {
		return
	}
	g.edgeSeen[key] = true
	g.calleesOf[caller] = append(g.calleesOf[caller], callee)
	g.callersOf[callee] = append(g.callersOf[callee], caller)
}

// Callees returns the distinct functions name calls directly, in the
// order first observed.
func (g *CallGraph) Callees(name string) []string {
	return append([]string(nil), g.calleesOf[name]...)
}

// Callers returns the distinct functions that call name directly, in
// the order first observed.
func (g *CallGraph) Callers(name string) []string {
	return append([]string(nil), g.callersOf[name]...)
}

// Leaves returns every known function with zero outgoing calls, in
// node-registration order.
func (g *CallGraph) Leaves() []string {
	var out []string
	for _, n := range g.nodes {
		if len(g.calleesOf[n]) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// ReachableFrom returns every function transitively callable from name,
// via depth-first traversal. name itself is included only when it lies
// on a call cycle (it calls itself directly or through other functions).
func (g *CallGraph) ReachableFrom(name string) []string {
	visited := make(map[string]bool)
	var order []string
	var dfs func(string)
	dfs = func(n string) {
		for _, callee := range g.calleesOf[n] {
			if !visited[callee] {
				visited[callee] = true
				order = append(order, callee)
				dfs(callee)
			}
		}
	}
	dfs(name)
	return order
}
