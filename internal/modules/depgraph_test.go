package modules

import (
	"reflect"
	"testing"
)

func TestTopologicalOrderDependenciesFirst(t *testing.T) {
	g := NewDependencyGraph()
	g.AddEdge("Game.Main", "Game.Sprites")
	g.AddEdge("Game.Sprites", "Game.Palette")
	g.AddNode("Game.Palette")

	order, ok := g.TopologicalOrder()
	if !ok {
		t.Fatal("expected a valid topological order")
	}
	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	if pos["Game.Palette"] > pos["Game.Sprites"] || pos["Game.Sprites"] > pos["Game.Main"] {
		t.Errorf("order = %v, want Palette before Sprites before Main", order)
	}
}

func TestTopologicalOrderBreaksTiesLexicographically(t *testing.T) {
	g := NewDependencyGraph()
	g.AddNode("Zebra")
	g.AddNode("Alpha")
	g.AddNode("Mango")

	order, ok := g.TopologicalOrder()
	if !ok {
		t.Fatal("expected a valid topological order")
	}
	want := []string{"Alpha", "Mango", "Zebra"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

// Scenario D: circular import.
func TestDetectCyclesFindsSimpleCycle(t *testing.T) {
	g := NewDependencyGraph()
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")

	cycles := g.DetectCycles()
	if len(cycles) != 1 {
		t.Fatalf("cycles = %v, want exactly one", cycles)
	}
	if _, ok := g.TopologicalOrder(); ok {
		t.Error("expected TopologicalOrder to fail on a cyclic graph")
	}
}

func TestDetectCyclesAcyclicGraphHasNone(t *testing.T) {
	g := NewDependencyGraph()
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")

	if cycles := g.DetectCycles(); len(cycles) != 0 {
		t.Errorf("cycles = %v, want none", cycles)
	}
}

func TestDetectCyclesThreeModuleCycle(t *testing.T) {
	g := NewDependencyGraph()
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", "A")

	cycles := g.DetectCycles()
	if len(cycles) != 1 || len(cycles[0]) != 3 {
		t.Fatalf("cycles = %v, want one 3-element cycle", cycles)
	}
}
