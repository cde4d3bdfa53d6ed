// Package modules coordinates multi-module Blend65 analysis: a module
// registry, an import dependency graph with cycle detection and
// topological ordering, a global symbol table for cross-module
// resolution, and the orchestrator that runs the per-module pipeline in
// dependency order (spec §4.9/§4.10).
//
// This package is grounded in the teacher's module-dependency-graph
// design (AddModule/AddDependency/DetectCycles/TopologicalSort), adapted
// from a versioned file-loading module system to Blend65's simpler
// dotted-name, no-file-I/O, no-versioning module model.
package modules

import (
	"fmt"

	"github.com/blend65/b65c/internal/ast"
	"github.com/blend65/b65c/internal/diagnostic"
)

// Module is one analyzed unit: its dotted name and its AST.
type Module struct {
	Name    string
	Program *ast.Program
}

// Registry holds every module known to one multi-module analysis run.
type Registry struct {
	modules map[string]*Module
	order   []string // registration order, for deterministic iteration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*Module)}
}

// Register adds a module. A second registration of the same name emits
// a DuplicateModule diagnostic to sink and leaves the first registration
// in place.
func (r *Registry) Register(name string, program *ast.Program, sink *diagnostic.Sink) {
	if _, exists := r.modules[name]; exists {
		span := program.Span()
		sink.Emit(diagnostic.Error, diagnostic.DuplicateModule,
			fmt.Sprintf("module %q already registered", name), span)
		return
	}
	r.modules[name] = &Module{Name: name, Program: program}
	r.order = append(r.order, name)
}

// Get returns the named module, or (nil, false) if it isn't registered.
func (r *Registry) Get(name string) (*Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// All returns every registered module in registration order.
func (r *Registry) All() []*Module {
	out := make([]*Module, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.modules[name])
	}
	return out
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.modules[name]
	return ok
}
