// Package ast defines the Blend65 abstract syntax tree: the closed family
// of node kinds produced by the (externally supplied) parser and consumed
// by every pass of the semantic-analysis pipeline.
//
// Every node carries a source Span. The family is closed by design (spec
// §3/§9): new node kinds are never added by a downstream pass, so passes
// may exhaustively type-switch without a default-unknown case escaping
// analysis.
package ast

import "github.com/blend65/b65c/internal/position"

// Node is implemented by every AST node.
type Node interface {
	Span() position.Span
}

// Decl is implemented by every top-level declaration node.
type Decl interface {
	Node
	declNode()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// ---------------------------------------------------------------------
// Program structure
// ---------------------------------------------------------------------

// Program is the AST root: one module declaration plus an ordered list of
// top-level declarations.
type Program struct {
	ModuleDecl   *ModuleDecl
	Declarations []Decl
	SpanInfo     position.Span
}

func (p *Program) Span() position.Span { return p.SpanInfo }

// ModuleDecl names the module a program belongs to. Explicit is false
// when the parser synthesized the declaration because the source omitted
// a `module` statement.
type ModuleDecl struct {
	Name     string // dotted module name, e.g. "Game.Sprites"
	Explicit bool
	SpanInfo position.Span
}

func (m *ModuleDecl) Span() position.Span { return m.SpanInfo }

// ImportDecl imports one or more identifiers from another module, or
// every exported name when Wildcard is set (Identifiers is then empty).
type ImportDecl struct {
	Identifiers []string
	ModulePath  string
	Wildcard    bool
	SpanInfo    position.Span
}

func (i *ImportDecl) Span() position.Span { return i.SpanInfo }
func (i *ImportDecl) declNode()           {}

// ExportDecl marks a wrapped declaration as exported. The symbol-table
// builder (Pass 1) unwraps it and sets the Exported flag on the produced
// symbol rather than keeping this wrapper in the scope tree.
type ExportDecl struct {
	Wrapped  Decl
	SpanInfo position.Span
}

func (e *ExportDecl) Span() position.Span { return e.SpanInfo }
func (e *ExportDecl) declNode()           {}

// ---------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------

// StorageClass selects where a variable lives.
type StorageClass int

const (
	StorageNone StorageClass = iota
	StorageZeroPage
	StorageRAM
	StorageData
	StorageMap
)

func (s StorageClass) String() string {
	switch s {
	case StorageZeroPage:
		return "zero-page"
	case StorageRAM:
		return "ram"
	case StorageData:
		return "data"
	case StorageMap:
		return "map"
	default:
		return "none"
	}
}

// Param is one function parameter: a name, a type-annotation string (the
// type resolver turns this into a types.Type in Pass 2), and its span.
type Param struct {
	Name           string
	TypeAnnotation string
	SpanInfo       position.Span
}

func (p *Param) Span() position.Span { return p.SpanInfo }

// FunctionDecl declares a function. ReturnType is nil for a void
// function. Body is nil for a stub (no implementation, e.g. a KERNAL
// import shim) - stub functions still get a symbol and a (empty) scope
// worth of parameter symbols, per spec §4.4.
type FunctionDecl struct {
	Name       string
	Parameters []*Param
	ReturnType *string
	Body       []Stmt
	Exported   bool
	Callback   bool
	Stub       bool
	SpanInfo   position.Span
}

func (f *FunctionDecl) Span() position.Span { return f.SpanInfo }
func (f *FunctionDecl) declNode()           {}

// VariableDecl declares a variable or constant (Constant distinguishes
// `let` from `const`). TypeAnnotation is nil when the type must be
// inferred from Init.
type VariableDecl struct {
	Name           string
	TypeAnnotation *string
	Init           Expr
	Storage        StorageClass
	Constant       bool
	Exported       bool
	// Address is the explicit placement address for a StorageZeroPage or
	// StorageRAM declaration (`@zp($00)`, `@ram($C000)`), or nil when the
	// hardware analyzer should assign one.
	Address  *int64
	SpanInfo position.Span
}

func (v *VariableDecl) Span() position.Span { return v.SpanInfo }
func (v *VariableDecl) declNode()           {}

// TypeAliasDecl declares `type Name = AliasedType;`.
type TypeAliasDecl struct {
	Name     string
	Aliased  string
	Exported bool
	SpanInfo position.Span
}

func (t *TypeAliasDecl) Span() position.Span { return t.SpanInfo }
func (t *TypeAliasDecl) declNode()           {}

// EnumMember is one member of an enum, with an optional explicit value.
type EnumMember struct {
	Name     string
	Value    *int64
	SpanInfo position.Span
}

func (e *EnumMember) Span() position.Span { return e.SpanInfo }

// EnumDecl declares an enum and its ordered members.
type EnumDecl struct {
	Name     string
	Members  []*EnumMember
	Exported bool
	SpanInfo position.Span
}

func (e *EnumDecl) Span() position.Span { return e.SpanInfo }
func (e *EnumDecl) declNode()           {}

// MemoryMapKind distinguishes the four memory-map declaration shapes
// (spec §3).
type MemoryMapKind int

const (
	MemoryMapSimple MemoryMapKind = iota
	MemoryMapRange
	MemoryMapSequentialStruct
	MemoryMapExplicitStruct
)

// MemoryMapField is one field of a struct-shaped memory-map declaration.
// Address is nil for sequential-struct fields (laid out one after the
// other from Base) and set for explicit-struct fields.
type MemoryMapField struct {
	Name           string
	TypeAnnotation string
	Address        *int64
	SpanInfo       position.Span
}

func (f *MemoryMapField) Span() position.Span { return f.SpanInfo }

// MemoryMapDecl binds a name to a fixed address, an address range, or a
// struct of fields laid out at fixed addresses.
type MemoryMapDecl struct {
	Name     string
	Kind     MemoryMapKind
	Address  int64 // MemoryMapSimple, or Base for the struct kinds
	End      int64 // MemoryMapRange only
	Fields   []*MemoryMapField
	Exported bool
	SpanInfo position.Span
}

func (m *MemoryMapDecl) Span() position.Span { return m.SpanInfo }
func (m *MemoryMapDecl) declNode()           {}

// ---------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------

// BlockStmt is an ordered sequence of statements sharing one scope.
type BlockStmt struct {
	Statements []Stmt
	SpanInfo   position.Span
}

func (b *BlockStmt) Span() position.Span { return b.SpanInfo }
func (b *BlockStmt) stmtNode()           {}

// DeclStmt wraps a VariableDecl or TypeAliasDecl for use as a statement,
// e.g. a local `let`/`const`/`type` appearing inside a function body.
type DeclStmt struct {
	Decl     Decl
	SpanInfo position.Span
}

func (d *DeclStmt) Span() position.Span { return d.SpanInfo }
func (d *DeclStmt) stmtNode()           {}

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	X        Expr
	SpanInfo position.Span
}

func (e *ExprStmt) Span() position.Span { return e.SpanInfo }
func (e *ExprStmt) stmtNode()           {}

// ReturnStmt returns from the enclosing function. Value is nil for a bare
// `return;`.
type ReturnStmt struct {
	Value    Expr
	SpanInfo position.Span
}

func (r *ReturnStmt) Span() position.Span { return r.SpanInfo }
func (r *ReturnStmt) stmtNode()           {}

// IfStmt is a conditional with an optional else branch.
type IfStmt struct {
	Cond     Expr
	Then     []Stmt
	Else     []Stmt // nil when there is no else branch
	SpanInfo position.Span
}

func (i *IfStmt) Span() position.Span { return i.SpanInfo }
func (i *IfStmt) stmtNode()           {}

// WhileStmt is a pre-tested loop.
type WhileStmt struct {
	Cond     Expr
	Body     []Stmt
	SpanInfo position.Span
}

func (w *WhileStmt) Span() position.Span { return w.SpanInfo }
func (w *WhileStmt) stmtNode()           {}

// ForStmt is a counted loop: `for Var = Start to End [step Step] { Body }`.
type ForStmt struct {
	Var      string
	Start    Expr
	End      Expr
	Step     Expr // nil when no step clause is present (implicit 1)
	Body     []Stmt
	SpanInfo position.Span
}

func (f *ForStmt) Span() position.Span { return f.SpanInfo }
func (f *ForStmt) stmtNode()           {}

// DoWhileStmt is a post-tested loop.
type DoWhileStmt struct {
	Body     []Stmt
	Cond     Expr
	SpanInfo position.Span
}

func (d *DoWhileStmt) Span() position.Span { return d.SpanInfo }
func (d *DoWhileStmt) stmtNode()           {}

// SwitchCase is one arm of a SwitchStmt. Default is true for the (at most
// one) default arm, in which case Match is nil.
type SwitchCase struct {
	Match    Expr
	Body     []Stmt
	Default  bool
	SpanInfo position.Span
}

func (c *SwitchCase) Span() position.Span { return c.SpanInfo }

// SwitchStmt is a switch/match statement over Value. Per spec's Open
// Question resolution, cases never fall through: each case body behaves
// as if terminated by an implicit break.
type SwitchStmt struct {
	Value    Expr
	Cases    []*SwitchCase
	SpanInfo position.Span
}

func (s *SwitchStmt) Span() position.Span { return s.SpanInfo }
func (s *SwitchStmt) stmtNode()           {}

// BreakStmt exits the nearest enclosing loop or switch.
type BreakStmt struct {
	SpanInfo position.Span
}

func (b *BreakStmt) Span() position.Span { return b.SpanInfo }
func (b *BreakStmt) stmtNode()           {}

// ContinueStmt jumps to the next iteration of the nearest enclosing loop.
type ContinueStmt struct {
	SpanInfo position.Span
}

func (c *ContinueStmt) Span() position.Span { return c.SpanInfo }
func (c *ContinueStmt) stmtNode()           {}

// ---------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------

// LiteralKind distinguishes the three literal value kinds.
type LiteralKind int

const (
	LiteralInt LiteralKind = iota
	LiteralString
	LiteralBool
)

// Literal is an integer, string, or boolean literal. Radix records the
// original radix hint ($/0x = 16, %/0b = 2, otherwise 10) for integer
// literals; it does not affect typing, only how code generation would
// re-render the literal.
type Literal struct {
	Kind        LiteralKind
	IntValue    int64
	StringValue string
	BoolValue   bool
	Radix       int
	SpanInfo    position.Span
}

func (l *Literal) Span() position.Span { return l.SpanInfo }
func (l *Literal) exprNode()           {}

// Identifier references a named entity.
type Identifier struct {
	Name     string
	SpanInfo position.Span
}

func (i *Identifier) Span() position.Span { return i.SpanInfo }
func (i *Identifier) exprNode()           {}

// BinaryExpr is a binary operator application.
type BinaryExpr struct {
	Op       string
	Left     Expr
	Right    Expr
	SpanInfo position.Span
}

func (b *BinaryExpr) Span() position.Span { return b.SpanInfo }
func (b *BinaryExpr) exprNode()           {}

// UnaryExpr is a prefix unary operator application (`-`, `~`, `!`, `@`).
type UnaryExpr struct {
	Op       string
	Operand  Expr
	SpanInfo position.Span
}

func (u *UnaryExpr) Span() position.Span { return u.SpanInfo }
func (u *UnaryExpr) exprNode()           {}

// TernaryExpr is `Cond ? Then : Else`.
type TernaryExpr struct {
	Cond     Expr
	Then     Expr
	Else     Expr
	SpanInfo position.Span
}

func (t *TernaryExpr) Span() position.Span { return t.SpanInfo }
func (t *TernaryExpr) exprNode()           {}

// AssignmentExpr is `Target Op Value`, where Op is "=" for a plain
// assignment or a compound operator such as "+=".
type AssignmentExpr struct {
	Target   Expr
	Op       string
	Value    Expr
	SpanInfo position.Span
}

func (a *AssignmentExpr) Span() position.Span { return a.SpanInfo }
func (a *AssignmentExpr) exprNode()           {}

// CallExpr calls Callee with an ordered argument list.
type CallExpr struct {
	Callee   Expr
	Args     []Expr
	SpanInfo position.Span
}

func (c *CallExpr) Span() position.Span { return c.SpanInfo }
func (c *CallExpr) exprNode()           {}

// IndexExpr is `Object[Index]`.
type IndexExpr struct {
	Object   Expr
	Index    Expr
	SpanInfo position.Span
}

func (i *IndexExpr) Span() position.Span { return i.SpanInfo }
func (i *IndexExpr) exprNode()           {}

// MemberExpr is `Object.Property`.
type MemberExpr struct {
	Object   Expr
	Property string
	SpanInfo position.Span
}

func (m *MemberExpr) Span() position.Span { return m.SpanInfo }
func (m *MemberExpr) exprNode()           {}

// ArrayLiteralExpr is `[e0, e1, ...]`.
type ArrayLiteralExpr struct {
	Elements []Expr
	SpanInfo position.Span
}

func (a *ArrayLiteralExpr) Span() position.Span { return a.SpanInfo }
func (a *ArrayLiteralExpr) exprNode()           {}
