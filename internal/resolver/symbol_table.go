// Package resolver owns the scope tree and symbol table shared by every
// pass of the Blend65 semantic-analysis pipeline, plus the Pass 1
// symbol-table-builder that populates it from an AST.
package resolver

import (
	"fmt"

	"github.com/blend65/b65c/internal/ast"
	"github.com/blend65/b65c/internal/position"
	"github.com/blend65/b65c/internal/types"
)

// SymbolKind distinguishes the kinds of named entities the builder pass
// declares.
type SymbolKind int

const (
	SymbolVariable SymbolKind = iota
	SymbolConstant
	SymbolFunction
	SymbolParameter
	SymbolTypeAlias
	SymbolEnum
	SymbolEnumMember
	SymbolImported
	SymbolMemoryMap
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolVariable:
		return "variable"
	case SymbolConstant:
		return "constant"
	case SymbolFunction:
		return "function"
	case SymbolParameter:
		return "parameter"
	case SymbolTypeAlias:
		return "type-alias"
	case SymbolEnum:
		return "enum"
	case SymbolEnumMember:
		return "enum-member"
	case SymbolImported:
		return "imported"
	case SymbolMemoryMap:
		return "memory-map"
	default:
		return "unknown"
	}
}

// Symbol is one named entity declared somewhere in a scope tree.
type Symbol struct {
	Name     string
	Kind     SymbolKind
	Type     *types.Type // nil until the type-resolver pass (Pass 2) runs; imported symbols start as unknown
	DeclSpan position.Span
	ScopeID  ScopeID

	Exported bool
	Used     bool

	// Storage is meaningful for SymbolVariable only.
	Storage ast.StorageClass

	// SourceModule is the dotted module name an imported symbol came
	// from. Empty for every other kind.
	SourceModule string

	// Wildcard marks an import declaration that imports every exported
	// name from SourceModule; it produces no individual Symbol of its
	// own and is recorded on the importing scope instead (see
	// Scope.WildcardImports).
	Wildcard bool
}

// ScopeID uniquely identifies a scope within one symbol table.
type ScopeID uint64

// ScopeKind is the lexical-scope kind, per the scope-creation rules of
// spec §4.3.
type ScopeKind int

const (
	ScopeModule ScopeKind = iota
	ScopeFunction
	ScopeLoop
	ScopeBlock
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeModule:
		return "module"
	case ScopeFunction:
		return "function"
	case ScopeLoop:
		return "loop"
	case ScopeBlock:
		return "block"
	default:
		return "unknown"
	}
}

// Scope is one lexical scope: a symbol map plus a link to its parent.
// Scopes form a tree rooted at the table's module scope; ParentID is nil
// only for the root.
type Scope struct {
	ID       ScopeID
	Kind     ScopeKind
	ParentID *ScopeID
	Span     position.Span
	Depth    int

	Symbols map[string]*Symbol
	// Order records symbol names in declaration order; Go maps don't
	// preserve iteration order, and spec §5 requires every iteration
	// over declarations/symbols to use insertion order for determinism.
	Order    []string
	Children []ScopeID

	// WildcardImports records the dotted module names wildcard-imported
	// into this scope, for resolution in Pass 1's cross-module follow-up
	// (§4.9/§4.10).
	WildcardImports []string
}

// DuplicateDeclarationError reports that name was already declared in
// the current scope.
type DuplicateDeclarationError struct {
	Name     string
	Previous position.Span
	Attempt  position.Span
}

func (e *DuplicateDeclarationError) Error() string {
	return fmt.Sprintf("%q already declared at %s", e.Name, e.Previous)
}

// SymbolTable owns the scope tree produced by the builder pass and
// exposes chained lookup to every later pass.
type SymbolTable struct {
	ModuleName string

	scopes       map[ScopeID]*Scope
	rootScopeID  ScopeID
	currentScope ScopeID
	scopeCounter ScopeID
}

// NewSymbolTable creates a table with a freshly created module scope as
// both its root and its current scope.
func NewSymbolTable() *SymbolTable {
	st := &SymbolTable{
		scopes: make(map[ScopeID]*Scope),
	}
	st.rootScopeID = st.createScope(ScopeModule, nil, position.Span{})
	st.currentScope = st.rootScopeID
	return st
}

func (st *SymbolTable) createScope(kind ScopeKind, parentID *ScopeID, span position.Span) ScopeID {
	st.scopeCounter++
	id := st.scopeCounter

	scope := &Scope{
		ID:       id,
		Kind:     kind,
		ParentID: parentID,
		Span:     span,
		Symbols:  make(map[string]*Symbol),
	}
	if parentID != nil {
		if parent, ok := st.scopes[*parentID]; ok {
			scope.Depth = parent.Depth + 1
			parent.Children = append(parent.Children, id)
		}
	}

	st.scopes[id] = scope
	return id
}

// EnterScope creates a new child scope of the current scope, makes it
// current, and returns its ID so the caller can ExitScope back to
// exactly this point.
func (st *SymbolTable) EnterScope(kind ScopeKind, span position.Span) ScopeID {
	parent := st.currentScope
	id := st.createScope(kind, &parent, span)
	st.currentScope = id
	return id
}

// EnterExistingScope makes id the current scope directly, without
// creating a new one. Later passes (type resolver, type checker,
// control-flow analyzer) use this to re-enter exactly the scopes Pass 1
// created, keyed by the Builder's FunctionScopes/LoopScopes/BranchScopes
// maps, rather than rebuilding the scope tree themselves. ExitScope still
// walks back up via the scope's real parent link afterward.
func (st *SymbolTable) EnterExistingScope(id ScopeID) {
	st.currentScope = id
}

// ExitScope returns to the parent of the current scope. It is a no-op at
// the root scope.
func (st *SymbolTable) ExitScope() {
	scope := st.scopes[st.currentScope]
	if scope.ParentID == nil {
		return
	}
	st.currentScope = *scope.ParentID
}

// CurrentScope returns the ID of the scope currently being populated.
func (st *SymbolTable) CurrentScope() ScopeID {
	return st.currentScope
}

// RootScope returns the module-level root scope ID.
func (st *SymbolTable) RootScope() ScopeID {
	return st.rootScopeID
}

// Scope returns the scope for id, or nil if id is unknown.
func (st *SymbolTable) Scope(id ScopeID) *Scope {
	return st.scopes[id]
}

// Declare inserts symbol into the current scope. It fails with
// *DuplicateDeclarationError (and does not modify the scope) if a symbol
// of the same name is already declared there; shadowing a symbol from an
// ancestor scope is always permitted.
func (st *SymbolTable) Declare(symbol *Symbol) error {
	scope := st.scopes[st.currentScope]
	if existing, ok := scope.Symbols[symbol.Name]; ok {
		return &DuplicateDeclarationError{
			Name:     symbol.Name,
			Previous: existing.DeclSpan,
			Attempt:  symbol.DeclSpan,
		}
	}

	symbol.ScopeID = st.currentScope
	scope.Symbols[symbol.Name] = symbol
	scope.Order = append(scope.Order, symbol.Name)
	return nil
}

// Lookup searches for name starting in the current scope and walking up
// through ancestors.
func (st *SymbolTable) Lookup(name string) (*Symbol, bool) {
	id := st.currentScope
	for {
		scope := st.scopes[id]
		if sym, ok := scope.Symbols[name]; ok {
			return sym, true
		}
		if scope.ParentID == nil {
			return nil, false
		}
		id = *scope.ParentID
	}
}

// LookupInCurrent searches only the current scope, without walking to
// ancestors.
func (st *SymbolTable) LookupInCurrent(name string) (*Symbol, bool) {
	scope := st.scopes[st.currentScope]
	sym, ok := scope.Symbols[name]
	return sym, ok
}

// LookupInScope searches a specific scope by ID, without walking to
// ancestors. Used by later passes that hold onto a function's scope ID
// (e.g. the control-flow analyzer resolving a break/continue target).
func (st *SymbolTable) LookupInScope(id ScopeID, name string) (*Symbol, bool) {
	scope, ok := st.scopes[id]
	if !ok {
		return nil, false
	}
	sym, ok := scope.Symbols[name]
	return sym, ok
}

// ExportedSymbols returns every symbol in the module (root) scope marked
// Exported, for the global symbol table (§4.10) to collect.
func (st *SymbolTable) ExportedSymbols() []*Symbol {
	var out []*Symbol
	root := st.scopes[st.rootScopeID]
	for _, name := range root.Order {
		if sym := root.Symbols[name]; sym.Exported {
			out = append(out, sym)
		}
	}
	return out
}

// FunctionSymbols returns every function symbol declared at module
// scope, for call-graph and hardware-analysis seeding.
func (st *SymbolTable) FunctionSymbols() []*Symbol {
	var out []*Symbol
	root := st.scopes[st.rootScopeID]
	for _, name := range root.Order {
		if sym := root.Symbols[name]; sym.Kind == SymbolFunction {
			out = append(out, sym)
		}
	}
	return out
}

// TotalSymbolCount counts every declared symbol across every scope.
func (st *SymbolTable) TotalSymbolCount() int {
	total := 0
	for _, scope := range st.scopes {
		total += len(scope.Symbols)
	}
	return total
}

// ScopeCount returns the number of scopes created so far.
func (st *SymbolTable) ScopeCount() int {
	return len(st.scopes)
}

// IsInsideLoop reports whether the scope chain from the current scope to
// the root passes through a loop scope before hitting the enclosing
// function scope (used to validate break/continue).
func (st *SymbolTable) IsInsideLoop() bool {
	id := st.currentScope
	for {
		scope := st.scopes[id]
		if scope.Kind == ScopeLoop {
			return true
		}
		if scope.ParentID == nil {
			return false
		}
		id = *scope.ParentID
	}
}

func (s *Symbol) String() string {
	exported := ""
	if s.Exported {
		exported = ", exported"
	}
	return fmt.Sprintf("Symbol{%s, kind=%s%s}", s.Name, s.Kind, exported)
}

func (s *Scope) String() string {
	return fmt.Sprintf("Scope{kind=%s, symbols=%d, depth=%d}", s.Kind, len(s.Symbols), s.Depth)
}
