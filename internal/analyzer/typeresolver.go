// Package analyzer implements Passes 2, 4, and 5 of the Blend65
// semantic-analysis pipeline: type resolution, type checking (with its
// incrementally-built call graph), and control-flow analysis. Every pass
// here consumes the scope tree Pass 1's resolver.Builder already built,
// re-entering its recorded scopes rather than rebuilding them.
package analyzer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blend65/b65c/internal/ast"
	"github.com/blend65/b65c/internal/diagnostic"
	"github.com/blend65/b65c/internal/position"
	"github.com/blend65/b65c/internal/resolver"
	"github.com/blend65/b65c/internal/types"
)

// TypeResolver is Pass 2: it resolves every type-annotation string and
// array-length expression into a types.Type and attaches the result to
// the matching symbol, re-entering the exact scopes Builder created.
type TypeResolver struct {
	Table   *resolver.SymbolTable
	Sink    *diagnostic.Sink
	Builder *resolver.Builder

	Resolved int
	Failed   int
}

// NewTypeResolver builds a resolver sharing b's table and scope records.
func NewTypeResolver(b *resolver.Builder) *TypeResolver {
	return &TypeResolver{Table: b.Table, Sink: b.Sink, Builder: b}
}

// Resolve runs Pass 2 over prog. Type aliases, enums, and memory maps are
// resolved in a first sweep so that later annotations referencing an
// alias by name see its resolved type; functions and variables (and
// their nested local declarations) are resolved in a second sweep.
func (r *TypeResolver) Resolve(prog *ast.Program) {
	for _, d := range prog.Declarations {
		switch decl := unwrap(d).(type) {
		case *ast.TypeAliasDecl:
			r.resolveTypeAlias(decl)
		case *ast.EnumDecl:
			r.resolveEnum(decl)
		case *ast.MemoryMapDecl:
			r.resolveMemoryMap(decl)
		}
	}
	for _, d := range prog.Declarations {
		switch decl := unwrap(d).(type) {
		case *ast.FunctionDecl:
			r.resolveFunction(decl)
		case *ast.VariableDecl:
			r.resolveVariable(decl)
		}
	}
}

func unwrap(d ast.Decl) ast.Decl {
	if wrapper, ok := d.(*ast.ExportDecl); ok {
		return wrapper.Wrapped
	}
	return d
}

func (r *TypeResolver) resolveTypeAlias(n *ast.TypeAliasDecl) {
	sym, ok := r.Table.LookupInScope(r.Table.RootScope(), n.Name)
	if !ok {
		return
	}
	sym.Type = r.resolveAnnotation(n.Aliased, n.Span())
}

// resolveEnum gives the enum name and every member the byte type: spec's
// type-kind lattice has no dedicated enum kind, and an enum's underlying
// representation on this target is always a single byte.
func (r *TypeResolver) resolveEnum(n *ast.EnumDecl) {
	if sym, ok := r.Table.LookupInScope(r.Table.RootScope(), n.Name); ok {
		sym.Type = types.ByteType()
		r.Resolved++
	}
	for _, m := range n.Members {
		if sym, ok := r.Table.LookupInScope(r.Table.RootScope(), m.Name); ok {
			sym.Type = types.ByteType()
			r.Resolved++
		}
	}
}

// resolveMemoryMap gives the declaration's own symbol the word type: it
// denotes a fixed 16-bit address, whether referenced directly (the
// simple/range forms) or as the base of a struct-shaped map. Per-field
// metadata is read straight off the AST by the hardware analyses rather
// than declared as separate symbols.
func (r *TypeResolver) resolveMemoryMap(n *ast.MemoryMapDecl) {
	if sym, ok := r.Table.LookupInScope(r.Table.RootScope(), n.Name); ok {
		sym.Type = types.WordType()
		r.Resolved++
	}
}

func (r *TypeResolver) resolveFunction(n *ast.FunctionDecl) {
	sym, ok := r.Table.LookupInScope(r.Table.RootScope(), n.Name)
	if !ok {
		return
	}

	scopeID, ok := r.Builder.FunctionScopes[n]
	if !ok {
		return
	}
	r.Table.EnterExistingScope(scopeID)

	params := make([]*types.Type, len(n.Parameters))
	for i, p := range n.Parameters {
		pt := r.resolveAnnotation(p.TypeAnnotation, p.Span())
		params[i] = pt
		if psym, ok := r.Table.LookupInCurrent(p.Name); ok {
			psym.Type = pt
		}
	}

	var ret *types.Type
	if n.ReturnType != nil {
		ret = r.resolveAnnotation(*n.ReturnType, n.Span())
	}
	sym.Type = types.FunctionOf(params, ret)

	if n.Body != nil {
		r.resolveStmts(n.Body)
	}
	r.Table.ExitScope()
}

func (r *TypeResolver) resolveVariable(n *ast.VariableDecl) {
	sym, ok := r.Table.LookupInCurrent(n.Name)
	if !ok {
		return
	}
	if n.TypeAnnotation != nil {
		sym.Type = r.resolveAnnotation(*n.TypeAnnotation, n.Span())
	}
	// A nil annotation is resolved later, by the type checker, from Init.
}

func (r *TypeResolver) resolveStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		r.resolveStmt(s)
	}
}

func (r *TypeResolver) resolveStmt(s ast.Stmt) {
	switch stmt := s.(type) {
	case *ast.DeclStmt:
		switch inner := stmt.Decl.(type) {
		case *ast.VariableDecl:
			r.resolveVariable(inner)
		case *ast.TypeAliasDecl:
			r.resolveTypeAlias(inner)
		}
	case *ast.BlockStmt:
		r.resolveStmts(stmt.Statements)
	case *ast.IfStmt:
		if id, ok := r.Builder.BranchScopes[resolver.BranchKey{Owner: stmt, Index: 0}]; ok {
			r.Table.EnterExistingScope(id)
			r.resolveStmts(stmt.Then)
			r.Table.ExitScope()
		}
		if stmt.Else != nil {
			if id, ok := r.Builder.BranchScopes[resolver.BranchKey{Owner: stmt, Index: 1}]; ok {
				r.Table.EnterExistingScope(id)
				r.resolveStmts(stmt.Else)
				r.Table.ExitScope()
			}
		}
	case *ast.WhileStmt:
		r.enterLoop(stmt, stmt.Body)
	case *ast.ForStmt:
		r.enterLoop(stmt, stmt.Body)
	case *ast.DoWhileStmt:
		r.enterLoop(stmt, stmt.Body)
	case *ast.SwitchStmt:
		for i, c := range stmt.Cases {
			if id, ok := r.Builder.BranchScopes[resolver.BranchKey{Owner: stmt, Index: i}]; ok {
				r.Table.EnterExistingScope(id)
				r.resolveStmts(c.Body)
				r.Table.ExitScope()
			}
		}
	}
}

func (r *TypeResolver) enterLoop(owner ast.Stmt, body []ast.Stmt) {
	id, ok := r.Builder.LoopScopes[owner]
	if !ok {
		return
	}
	r.Table.EnterExistingScope(id)
	r.resolveStmts(body)
	r.Table.ExitScope()
}

// resolveAnnotation resolves one type-annotation string, emitting an
// UnknownType diagnostic and returning the unknown type on failure so
// downstream passes keep going without a cascade.
func (r *TypeResolver) resolveAnnotation(raw string, span position.Span) *types.Type {
	t, ok := r.resolveTypeName(raw)
	if !ok {
		r.Failed++
		r.Sink.Emit(diagnostic.Error, diagnostic.UnknownType,
			fmt.Sprintf("unknown type %q", raw), span)
		return types.UnknownType()
	}
	r.Resolved++
	return t
}

// resolveTypeName resolves a bare type name or an array annotation
// (`T[n]` / `T[]`, arbitrarily nested) into a types.Type.
func (r *TypeResolver) resolveTypeName(raw string) (*types.Type, bool) {
	raw = strings.TrimSpace(raw)
	if strings.HasSuffix(raw, "]") {
		open := strings.LastIndex(raw, "[")
		if open < 0 {
			return nil, false
		}
		element, ok := r.resolveTypeName(raw[:open])
		if !ok {
			return nil, false
		}
		inner := strings.TrimSpace(raw[open+1 : len(raw)-1])
		if inner == "" {
			return types.ArrayOf(element, types.Unsized), true
		}
		count, err := strconv.Atoi(inner)
		if err != nil || count < 0 {
			return nil, false
		}
		return types.ArrayOf(element, count), true
	}

	if t, ok := types.Builtin(raw); ok {
		return t, true
	}
	if sym, ok := r.Table.LookupInScope(r.Table.RootScope(), raw); ok && sym.Kind == resolver.SymbolTypeAlias && sym.Type != nil {
		return sym.Type, true
	}
	return nil, false
}
