package resolver

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/blend65/b65c/internal/ast"
	"github.com/blend65/b65c/internal/diagnostic"
	"github.com/blend65/b65c/internal/types"
)

// BranchKey identifies one branch body of a conditional or switch
// statement: Index is 0 for an if-statement's then-branch and 1 for its
// else-branch, or the case index for a switch statement.
type BranchKey struct {
	Owner ast.Stmt
	Index int
}

// Builder is the Pass 1 symbol-table-builder: it walks a program once,
// builds the scope tree, declares every named entity, and emits
// duplicate-declaration diagnostics. Scope IDs it creates for function
// bodies, loop bodies, and branch bodies are recorded so later passes
// can re-enter the same scopes without rebuilding them.
type Builder struct {
	Table *SymbolTable
	Sink  *diagnostic.Sink

	FunctionScopes map[*ast.FunctionDecl]ScopeID
	LoopScopes     map[ast.Stmt]ScopeID
	BranchScopes   map[BranchKey]ScopeID
}

// NewBuilder creates a builder writing diagnostics to sink.
func NewBuilder(sink *diagnostic.Sink) *Builder {
	return &Builder{
		Table:          NewSymbolTable(),
		Sink:           sink,
		FunctionScopes: make(map[*ast.FunctionDecl]ScopeID),
		LoopScopes:     make(map[ast.Stmt]ScopeID),
		BranchScopes:   make(map[BranchKey]ScopeID),
	}
}

// Build runs Pass 1 over prog, populating Table and emitting any
// duplicate-declaration diagnostics to Sink.
func (b *Builder) Build(prog *ast.Program) {
	if prog.ModuleDecl != nil {
		b.Table.ModuleName = prog.ModuleDecl.Name
	}
	log.WithFields(log.Fields{
		"module":       b.Table.ModuleName,
		"declarations": len(prog.Declarations),
	}).Trace("pass 1: building symbol table")
	for _, decl := range prog.Declarations {
		b.declareTop(decl)
	}
	log.WithField("module", b.Table.ModuleName).
		WithField("errors", b.Sink.HasErrors()).
		Debug("pass 1 complete")
}

func (b *Builder) declareTop(d ast.Decl) {
	exported := false
	if wrapper, ok := d.(*ast.ExportDecl); ok {
		exported = true
		d = wrapper.Wrapped
	}

	switch decl := d.(type) {
	case *ast.ImportDecl:
		b.declareImport(decl)
	case *ast.FunctionDecl:
		b.declareFunction(decl, decl.Exported || exported)
	case *ast.VariableDecl:
		b.declareVariable(decl, decl.Exported || exported)
	case *ast.TypeAliasDecl:
		b.declareTypeAlias(decl, decl.Exported || exported)
	case *ast.EnumDecl:
		b.declareEnum(decl, decl.Exported || exported)
	case *ast.MemoryMapDecl:
		b.declareMemoryMap(decl, decl.Exported || exported)
	}
}

// reportDuplicate emits a DuplicateDeclaration diagnostic if err is a
// *DuplicateDeclarationError, at the attempted declaration's span.
func (b *Builder) reportDuplicate(err error) {
	dup, ok := err.(*DuplicateDeclarationError)
	if !ok {
		return
	}
	b.Sink.Emit(diagnostic.Error, diagnostic.DuplicateDeclaration,
		fmt.Sprintf("duplicate declaration of %q", dup.Name), dup.Attempt)
}

func (b *Builder) declareImport(n *ast.ImportDecl) {
	if n.Wildcard {
		root := b.Table.Scope(b.Table.RootScope())
		root.WildcardImports = append(root.WildcardImports, n.ModulePath)
		return
	}
	for _, name := range n.Identifiers {
		sym := &Symbol{
			Name:         name,
			Kind:         SymbolImported,
			Type:         types.UnknownType(),
			DeclSpan:     n.Span(),
			SourceModule: n.ModulePath,
		}
		if err := b.Table.Declare(sym); err != nil {
			b.reportDuplicate(err)
		}
	}
}

func (b *Builder) declareFunction(n *ast.FunctionDecl, exported bool) {
	sym := &Symbol{
		Name:     n.Name,
		Kind:     SymbolFunction,
		DeclSpan: n.Span(),
		Exported: exported,
	}
	if err := b.Table.Declare(sym); err != nil {
		b.reportDuplicate(err)
	}

	scopeID := b.Table.EnterScope(ScopeFunction, n.Span())
	b.FunctionScopes[n] = scopeID

	for _, p := range n.Parameters {
		psym := &Symbol{
			Name:     p.Name,
			Kind:     SymbolParameter,
			DeclSpan: p.Span(),
		}
		if err := b.Table.Declare(psym); err != nil {
			b.reportDuplicate(err)
		}
	}

	if n.Body != nil {
		b.declareStmts(n.Body)
	}

	b.Table.ExitScope()
}

func (b *Builder) declareVariable(n *ast.VariableDecl, exported bool) {
	kind := SymbolVariable
	if n.Constant {
		kind = SymbolConstant
	}
	sym := &Symbol{
		Name:     n.Name,
		Kind:     kind,
		DeclSpan: n.Span(),
		Exported: exported,
		Storage:  n.Storage,
	}
	if err := b.Table.Declare(sym); err != nil {
		b.reportDuplicate(err)
	}
}

func (b *Builder) declareTypeAlias(n *ast.TypeAliasDecl, exported bool) {
	sym := &Symbol{
		Name:     n.Name,
		Kind:     SymbolTypeAlias,
		DeclSpan: n.Span(),
		Exported: exported,
	}
	if err := b.Table.Declare(sym); err != nil {
		b.reportDuplicate(err)
	}
}

func (b *Builder) declareEnum(n *ast.EnumDecl, exported bool) {
	sym := &Symbol{
		Name:     n.Name,
		Kind:     SymbolEnum,
		DeclSpan: n.Span(),
		Exported: exported,
	}
	if err := b.Table.Declare(sym); err != nil {
		b.reportDuplicate(err)
	}

	for _, m := range n.Members {
		msym := &Symbol{
			Name:     m.Name,
			Kind:     SymbolEnumMember,
			DeclSpan: m.Span(),
			Exported: exported,
		}
		if err := b.Table.Declare(msym); err != nil {
			b.reportDuplicate(err)
		}
	}
}

func (b *Builder) declareMemoryMap(n *ast.MemoryMapDecl, exported bool) {
	sym := &Symbol{
		Name:     n.Name,
		Kind:     SymbolMemoryMap,
		DeclSpan: n.Span(),
		Exported: exported,
	}
	if err := b.Table.Declare(sym); err != nil {
		b.reportDuplicate(err)
	}
}

// declareStmts processes a statement list in the current scope, without
// creating a new scope for the list itself (the caller already entered
// the scope this list lives in).
func (b *Builder) declareStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		b.declareStmt(s)
	}
}

func (b *Builder) declareStmt(s ast.Stmt) {
	switch stmt := s.(type) {
	case *ast.DeclStmt:
		switch inner := stmt.Decl.(type) {
		case *ast.VariableDecl:
			b.declareVariable(inner, false)
		case *ast.TypeAliasDecl:
			b.declareTypeAlias(inner, false)
		}
	case *ast.BlockStmt:
		b.declareStmts(stmt.Statements)
	case *ast.IfStmt:
		thenID := b.Table.EnterScope(ScopeBlock, stmt.Span())
		b.BranchScopes[BranchKey{Owner: stmt, Index: 0}] = thenID
		b.declareStmts(stmt.Then)
		b.Table.ExitScope()

		if stmt.Else != nil {
			elseID := b.Table.EnterScope(ScopeBlock, stmt.Span())
			b.BranchScopes[BranchKey{Owner: stmt, Index: 1}] = elseID
			b.declareStmts(stmt.Else)
			b.Table.ExitScope()
		}
	case *ast.WhileStmt:
		loopID := b.Table.EnterScope(ScopeLoop, stmt.Span())
		b.LoopScopes[stmt] = loopID
		b.declareStmts(stmt.Body)
		b.Table.ExitScope()
	case *ast.ForStmt:
		loopID := b.Table.EnterScope(ScopeLoop, stmt.Span())
		b.LoopScopes[stmt] = loopID
		loopVar := &Symbol{Name: stmt.Var, Kind: SymbolVariable, DeclSpan: stmt.Span()}
		if err := b.Table.Declare(loopVar); err != nil {
			b.reportDuplicate(err)
		}
		b.declareStmts(stmt.Body)
		b.Table.ExitScope()
	case *ast.DoWhileStmt:
		loopID := b.Table.EnterScope(ScopeLoop, stmt.Span())
		b.LoopScopes[stmt] = loopID
		b.declareStmts(stmt.Body)
		b.Table.ExitScope()
	case *ast.SwitchStmt:
		for i, c := range stmt.Cases {
			caseID := b.Table.EnterScope(ScopeBlock, c.Span())
			b.BranchScopes[BranchKey{Owner: stmt, Index: i}] = caseID
			b.declareStmts(c.Body)
			b.Table.ExitScope()
		}
	}
}
