package modules

import (
	"fmt"

	"github.com/blend65/b65c/internal/diagnostic"
	"github.com/blend65/b65c/internal/resolver"
)

type globalKey struct {
	module string
	name   string
}

// GlobalSymbolTable is the union of every analyzed module's exported
// symbols, keyed by (module, name). The orchestrator populates it
// incrementally in topological order so each module's cross-module
// resolution sees only already-analyzed dependencies.
type GlobalSymbolTable struct {
	symbols map[globalKey]*resolver.Symbol
}

// NewGlobalSymbolTable creates an empty global table.
func NewGlobalSymbolTable() *GlobalSymbolTable {
	return &GlobalSymbolTable{symbols: make(map[globalKey]*resolver.Symbol)}
}

// RegisterModule adds every module-scope symbol of a finished module's
// symbol table to the global table, exported or not. Keeping the
// unexported ones too (rather than just the teacher's export-only view)
// lets ResolveCrossModuleImports tell "not declared at all" apart from
// "declared but not exported" (spec §4.10).
func (g *GlobalSymbolTable) RegisterModule(moduleName string, table *resolver.SymbolTable) {
	root := table.Scope(table.RootScope())
	for _, name := range root.Order {
		sym := root.Symbols[name]
		g.symbols[globalKey{module: moduleName, name: sym.Name}] = sym
	}
}

// LookupInModule returns the exported symbol of the given name declared
// in module, or (nil, false) if no such exported symbol exists (either
// the module has not been analyzed yet, the name isn't declared, or it
// is declared but not exported).
func (g *GlobalSymbolTable) LookupInModule(module, name string) (*resolver.Symbol, bool) {
	sym, ok := g.lookupAny(module, name)
	if !ok || !sym.Exported {
		return nil, false
	}
	return sym, true
}

// lookupAny returns the symbol of the given name declared in module
// regardless of its Exported flag, distinguishing "not declared" from
// "declared but not exported" for callers that need to report the
// difference (ResolveCrossModuleImports).
func (g *GlobalSymbolTable) lookupAny(module, name string) (*resolver.Symbol, bool) {
	sym, ok := g.symbols[globalKey{module: module, name: name}]
	return sym, ok
}

// ResolveCrossModuleImports runs between Pass 1 and Pass 2 for one
// module: for each named import, look up the target in the global
// table and copy its resolved type onto the local imported symbol so
// downstream passes treat it as fully typed. Wildcard imports are left
// to the unused-import pass; this spec does not require materializing
// the full set of wildcard-imported names.
func (g *GlobalSymbolTable) ResolveCrossModuleImports(table *resolver.SymbolTable, sink *diagnostic.Sink) {
	root := table.Scope(table.RootScope())
	for _, name := range root.Order {
		sym := root.Symbols[name]
		if sym.Kind != resolver.SymbolImported {
			continue
		}
		target, ok := g.lookupAny(sym.SourceModule, sym.Name)
		if !ok {
			sink.Emit(diagnostic.Error, diagnostic.ImportSymbolNotFound,
				fmt.Sprintf("module %q has no exported symbol %q", sym.SourceModule, sym.Name), sym.DeclSpan)
			continue
		}
		if !target.Exported {
			sink.Emit(diagnostic.Error, diagnostic.ImportNotExported,
				fmt.Sprintf("%q in module %q is not exported", sym.Name, sym.SourceModule), sym.DeclSpan)
			continue
		}
		sym.Type = target.Type
	}
}

// DetectUnusedImports runs at module end (always, per spec §4.10): any
// imported symbol never marked used emits a hint-level diagnostic.
func DetectUnusedImports(table *resolver.SymbolTable, sink *diagnostic.Sink) {
	root := table.Scope(table.RootScope())
	for _, name := range root.Order {
		sym := root.Symbols[name]
		if sym.Kind == resolver.SymbolImported && !sym.Used {
			sink.Emit(diagnostic.Hint, diagnostic.UnusedImport,
				fmt.Sprintf("imported symbol %q is never used", sym.Name), sym.DeclSpan)
		}
	}
}
