package analyzer

import (
	"fmt"

	"github.com/blend65/b65c/internal/ast"
	"github.com/blend65/b65c/internal/diagnostic"
	"github.com/blend65/b65c/internal/resolver"
	"github.com/blend65/b65c/internal/types"
)

// TypeChecker is Pass 4: it infers the type of every expression, checks
// assignability/operator/call/index/condition rules, and grows a
// CallGraph as it resolves call expressions.
type TypeChecker struct {
	Table    *resolver.SymbolTable
	Sink     *diagnostic.Sink
	Builder  *resolver.Builder
	Resolver *TypeResolver
	Calls    *CallGraph

	memoryMaps map[string]*ast.MemoryMapDecl

	currentFunctionName string
	currentReturn       *types.Type // nil means the enclosing function is void
}

// NewTypeChecker builds a checker sharing b's table and scope records.
// r is the already-run type resolver, reused here to resolve memory-map
// field annotations on demand.
func NewTypeChecker(b *resolver.Builder, r *TypeResolver) *TypeChecker {
	return &TypeChecker{
		Table:      b.Table,
		Sink:       b.Sink,
		Builder:    b,
		Resolver:   r,
		Calls:      NewCallGraph(),
		memoryMaps: make(map[string]*ast.MemoryMapDecl),
	}
}

// Check runs Pass 4 over prog.
func (c *TypeChecker) Check(prog *ast.Program) {
	for _, d := range prog.Declarations {
		if mm, ok := unwrap(d).(*ast.MemoryMapDecl); ok {
			c.memoryMaps[mm.Name] = mm
		}
	}
	for _, d := range prog.Declarations {
		switch decl := unwrap(d).(type) {
		case *ast.FunctionDecl:
			c.checkFunction(decl)
		case *ast.VariableDecl:
			c.currentFunctionName = "<module>"
			c.checkTopLevelVariable(decl)
		}
	}
}

func (c *TypeChecker) emit(code diagnostic.Code, msg string, span ast.Node) {
	c.Sink.Emit(diagnostic.Error, code, msg, span.Span())
}

func (c *TypeChecker) checkFunction(n *ast.FunctionDecl) {
	sym, ok := c.Table.LookupInScope(c.Table.RootScope(), n.Name)
	if !ok || sym.Type == nil || sym.Type.Kind != types.Function {
		return
	}
	if n.Body == nil {
		return
	}

	scopeID, ok := c.Builder.FunctionScopes[n]
	if !ok {
		return
	}
	c.Table.EnterExistingScope(scopeID)

	prevName, prevReturn := c.currentFunctionName, c.currentReturn
	c.currentFunctionName = n.Name
	c.currentReturn = sym.Type.Return

	c.checkStmts(n.Body)

	c.currentFunctionName, c.currentReturn = prevName, prevReturn
	c.Table.ExitScope()
}

func (c *TypeChecker) checkTopLevelVariable(n *ast.VariableDecl) {
	c.checkVariable(n)
}

func (c *TypeChecker) checkVariable(n *ast.VariableDecl) {
	sym, ok := c.Table.LookupInCurrent(n.Name)
	if !ok {
		return
	}
	if n.Init == nil {
		return
	}
	initType := c.exprType(n.Init)
	if sym.Type == nil {
		sym.Type = initType
		return
	}
	if sym.Type.Kind != types.Unknown && initType.Kind != types.Unknown && !types.CanAssign(initType, sym.Type) {
		c.emit(diagnostic.TypeMismatch, fmt.Sprintf("cannot assign %s to %s %q", initType, sym.Type, n.Name), n)
	}
}

func (c *TypeChecker) checkStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		c.checkStmt(s)
	}
}

func (c *TypeChecker) checkStmt(s ast.Stmt) {
	switch stmt := s.(type) {
	case *ast.DeclStmt:
		if v, ok := stmt.Decl.(*ast.VariableDecl); ok {
			c.checkVariable(v)
		}
	case *ast.BlockStmt:
		c.checkStmts(stmt.Statements)
	case *ast.ExprStmt:
		c.exprType(stmt.X)
	case *ast.ReturnStmt:
		c.checkReturn(stmt)
	case *ast.IfStmt:
		c.checkCondition(stmt.Cond)
		if id, ok := c.Builder.BranchScopes[resolver.BranchKey{Owner: stmt, Index: 0}]; ok {
			c.Table.EnterExistingScope(id)
			c.checkStmts(stmt.Then)
			c.Table.ExitScope()
		}
		if stmt.Else != nil {
			if id, ok := c.Builder.BranchScopes[resolver.BranchKey{Owner: stmt, Index: 1}]; ok {
				c.Table.EnterExistingScope(id)
				c.checkStmts(stmt.Else)
				c.Table.ExitScope()
			}
		}
	case *ast.WhileStmt:
		c.checkCondition(stmt.Cond)
		c.enterLoopAndCheck(stmt, stmt.Body)
	case *ast.DoWhileStmt:
		c.enterLoopAndCheck(stmt, stmt.Body)
		c.checkCondition(stmt.Cond)
	case *ast.ForStmt:
		c.checkForHeader(stmt)
		c.enterLoopAndCheck(stmt, stmt.Body)
	case *ast.SwitchStmt:
		c.checkSwitch(stmt)
	case *ast.BreakStmt:
		if !c.Table.IsInsideLoop() {
			c.emit(diagnostic.BreakOutsideLoop, "break outside a loop", stmt)
		}
	case *ast.ContinueStmt:
		if !c.Table.IsInsideLoop() {
			c.emit(diagnostic.ContinueOutsideLoop, "continue outside a loop", stmt)
		}
	}
}

func (c *TypeChecker) enterLoopAndCheck(owner ast.Stmt, body []ast.Stmt) {
	id, ok := c.Builder.LoopScopes[owner]
	if !ok {
		return
	}
	c.Table.EnterExistingScope(id)
	c.checkStmts(body)
	c.Table.ExitScope()
}

func (c *TypeChecker) checkCondition(e ast.Expr) {
	t := c.exprType(e)
	if t.Kind != types.Unknown && !boolLike(t) {
		c.emit(diagnostic.TypeMismatch, fmt.Sprintf("condition must be boolean or byte, got %s", t), e)
	}
}

func (c *TypeChecker) checkReturn(n *ast.ReturnStmt) {
	if c.currentReturn == nil {
		if n.Value != nil {
			c.exprType(n.Value)
			c.emit(diagnostic.InvalidReturn, "void function must not return a value", n)
		}
		return
	}
	if n.Value == nil {
		c.emit(diagnostic.MissingReturnValue, "missing return value", n)
		return
	}
	vt := c.exprType(n.Value)
	if vt.Kind != types.Unknown && c.currentReturn.Kind != types.Unknown && !types.CanAssign(vt, c.currentReturn) {
		c.emit(diagnostic.TypeMismatch, fmt.Sprintf("cannot return %s as %s", vt, c.currentReturn), n)
	}
}

func (c *TypeChecker) checkForHeader(n *ast.ForStmt) {
	start := c.exprType(n.Start)
	end := c.exprType(n.End)
	if start.Kind != types.Unknown && !types.IsNumeric(start) {
		c.emit(diagnostic.TypeMismatch, "for-loop start must be numeric", n.Start)
	}
	if end.Kind != types.Unknown && !types.IsNumeric(end) {
		c.emit(diagnostic.TypeMismatch, "for-loop end must be numeric", n.End)
	}
	if n.Step != nil {
		if step := c.exprType(n.Step); step.Kind != types.Unknown && !types.IsNumeric(step) {
			c.emit(diagnostic.TypeMismatch, "for-loop step must be numeric", n.Step)
		}
	}

	loopType := types.ByteType()
	if start.Kind == types.Word || end.Kind == types.Word {
		loopType = types.WordType()
	}
	if id, ok := c.Builder.LoopScopes[n]; ok {
		if sym, ok := c.Table.LookupInScope(id, n.Var); ok {
			sym.Type = loopType
		}
	}
}

func (c *TypeChecker) checkSwitch(n *ast.SwitchStmt) {
	valueType := c.exprType(n.Value)
	if valueType.Kind != types.Unknown && !types.IsNumeric(valueType) {
		c.emit(diagnostic.TypeMismatch, fmt.Sprintf("switch value must be numeric or enum, got %s", valueType), n)
	}
	for i, cs := range n.Cases {
		if !cs.Default && cs.Match != nil {
			matchType := c.exprType(cs.Match)
			if valueType.Kind != types.Unknown && matchType.Kind != types.Unknown && !types.CanAssign(matchType, valueType) {
				c.emit(diagnostic.TypeMismatch, fmt.Sprintf("case value %s not assignable from %s", matchType, valueType), cs)
			}
		}
		if id, ok := c.Builder.BranchScopes[resolver.BranchKey{Owner: n, Index: i}]; ok {
			c.Table.EnterExistingScope(id)
			c.checkStmts(cs.Body)
			c.Table.ExitScope()
		}
	}
}

// exprType infers e's type, recording diagnostics and call-graph edges
// along the way. Every expression returns some type; unknown is used for
// recovery so a single failure never cascades into unrelated errors.
func (c *TypeChecker) exprType(e ast.Expr) *types.Type {
	switch expr := e.(type) {
	case *ast.Literal:
		return c.literalType(expr)
	case *ast.Identifier:
		return c.identifierType(expr)
	case *ast.BinaryExpr:
		return c.binaryType(expr)
	case *ast.UnaryExpr:
		return c.unaryType(expr)
	case *ast.TernaryExpr:
		return c.ternaryType(expr)
	case *ast.AssignmentExpr:
		return c.assignmentType(expr)
	case *ast.CallExpr:
		return c.callType(expr)
	case *ast.IndexExpr:
		return c.indexType(expr)
	case *ast.MemberExpr:
		return c.memberType(expr)
	case *ast.ArrayLiteralExpr:
		return c.arrayLiteralType(expr)
	default:
		return types.UnknownType()
	}
}

func (c *TypeChecker) literalType(n *ast.Literal) *types.Type {
	switch n.Kind {
	case ast.LiteralInt:
		if n.IntValue >= 0 && n.IntValue <= 255 {
			return types.ByteType()
		}
		return types.WordType()
	case ast.LiteralString:
		return types.StringType()
	case ast.LiteralBool:
		return types.BooleanType()
	default:
		return types.UnknownType()
	}
}

func (c *TypeChecker) identifierType(n *ast.Identifier) *types.Type {
	sym, ok := c.Table.Lookup(n.Name)
	if !ok {
		c.emit(diagnostic.UndefinedIdentifier, fmt.Sprintf("undefined identifier %q", n.Name), n)
		return types.UnknownType()
	}
	sym.Used = true
	if sym.Type == nil {
		return types.UnknownType()
	}
	return sym.Type
}

func (c *TypeChecker) binaryType(n *ast.BinaryExpr) *types.Type {
	lhs := c.exprType(n.Left)
	rhs := c.exprType(n.Right)
	result := types.BinaryOpType(lhs, rhs, n.Op)
	if result.Kind == types.Unknown && lhs.Kind != types.Unknown && rhs.Kind != types.Unknown {
		c.emit(diagnostic.TypeMismatch, fmt.Sprintf("operator %q not valid for %s and %s", n.Op, lhs, rhs), n)
	}
	return result
}

func (c *TypeChecker) unaryType(n *ast.UnaryExpr) *types.Type {
	operand := c.exprType(n.Operand)
	result := types.UnaryOpType(operand, n.Op)
	if result.Kind == types.Unknown && operand.Kind != types.Unknown {
		c.emit(diagnostic.TypeMismatch, fmt.Sprintf("operator %q not valid for %s", n.Op, operand), n)
	}
	return result
}

func (c *TypeChecker) ternaryType(n *ast.TernaryExpr) *types.Type {
	cond := c.exprType(n.Cond)
	if cond.Kind != types.Unknown && !boolLike(cond) {
		c.emit(diagnostic.TypeMismatch, fmt.Sprintf("ternary condition must be boolean or byte, got %s", cond), n.Cond)
	}
	thenType := c.exprType(n.Then)
	elseType := c.exprType(n.Else)
	common := commonType(thenType, elseType)
	if common == nil {
		c.emit(diagnostic.TypeMismatch, fmt.Sprintf("ternary branches have incompatible types %s and %s", thenType, elseType), n)
		return types.UnknownType()
	}
	return common
}

func (c *TypeChecker) assignmentType(n *ast.AssignmentExpr) *types.Type {
	if !isLvalue(n.Target) {
		c.emit(diagnostic.NonLvalueAssignment, "assignment target is not an lvalue", n.Target)
		c.exprType(n.Value)
		return types.UnknownType()
	}

	targetType := c.exprType(n.Target)
	var valueType *types.Type
	if n.Op == "=" {
		valueType = c.exprType(n.Value)
	} else {
		op := compoundOperator(n.Op)
		rhs := c.exprType(n.Value)
		valueType = types.BinaryOpType(targetType, rhs, op)
	}

	if targetType.Kind != types.Unknown && valueType.Kind != types.Unknown && !types.CanAssign(valueType, targetType) {
		c.emit(diagnostic.TypeMismatch, fmt.Sprintf("cannot assign %s to %s", valueType, targetType), n)
	}
	return targetType
}

func (c *TypeChecker) callType(n *ast.CallExpr) *types.Type {
	name, ok := calleeName(n.Callee)
	if !ok {
		for _, a := range n.Args {
			c.exprType(a)
		}
		return types.UnknownType()
	}

	sym, ok := c.Table.Lookup(name)
	if !ok || sym.Kind != resolver.SymbolFunction {
		c.emit(diagnostic.UndefinedIdentifier, fmt.Sprintf("call to undefined function %q", name), n.Callee)
		for _, a := range n.Args {
			c.exprType(a)
		}
		c.Calls.AddCall(c.currentFunctionName, UnresolvedCallee)
		return types.UnknownType()
	}
	sym.Used = true
	c.Calls.AddCall(c.currentFunctionName, name)

	if sym.Type == nil || sym.Type.Kind != types.Function {
		for _, a := range n.Args {
			c.exprType(a)
		}
		return types.UnknownType()
	}

	if len(n.Args) != len(sym.Type.Params) {
		c.emit(diagnostic.ArityMismatch,
			fmt.Sprintf("%q expects %d argument(s), got %d", name, len(sym.Type.Params), len(n.Args)), n)
	}
	for i, arg := range n.Args {
		argType := c.exprType(arg)
		if i >= len(sym.Type.Params) {
			continue
		}
		paramType := sym.Type.Params[i]
		if argType.Kind != types.Unknown && paramType.Kind != types.Unknown && !types.CanAssign(argType, paramType) {
			c.emit(diagnostic.TypeMismatch,
				fmt.Sprintf("argument %d: cannot assign %s to %s", i+1, argType, paramType), arg)
		}
	}

	if sym.Type.Return == nil {
		return types.VoidType()
	}
	return sym.Type.Return
}

func (c *TypeChecker) indexType(n *ast.IndexExpr) *types.Type {
	objectType := c.exprType(n.Object)
	indexType := c.exprType(n.Index)
	if indexType.Kind != types.Unknown && !types.IsNumeric(indexType) {
		c.emit(diagnostic.TypeMismatch, fmt.Sprintf("index must be numeric, got %s", indexType), n.Index)
	}

	switch objectType.Kind {
	case types.Array:
		return objectType.Element
	case types.Word:
		// Indexing a word-sized address reads a single byte at that address.
		return types.ByteType()
	case types.Unknown:
		return types.UnknownType()
	default:
		c.emit(diagnostic.TypeMismatch, fmt.Sprintf("cannot index %s", objectType), n.Object)
		return types.UnknownType()
	}
}

// memberType resolves `Object.Property`. Only the memory-map case has
// prescribed semantics (spec §4.6); any other member access is recorded
// but left unknown.
func (c *TypeChecker) memberType(n *ast.MemberExpr) *types.Type {
	ident, ok := n.Object.(*ast.Identifier)
	if !ok {
		c.exprType(n.Object)
		return types.UnknownType()
	}
	if sym, ok := c.Table.Lookup(ident.Name); ok {
		sym.Used = true
	}

	mm, ok := c.memoryMaps[ident.Name]
	if !ok {
		return types.UnknownType()
	}
	for _, f := range mm.Fields {
		if f.Name == n.Property {
			if c.Resolver != nil {
				if t, ok := c.Resolver.resolveTypeName(f.TypeAnnotation); ok {
					return t
				}
			}
			return types.UnknownType()
		}
	}
	return types.UnknownType()
}

func (c *TypeChecker) arrayLiteralType(n *ast.ArrayLiteralExpr) *types.Type {
	if len(n.Elements) == 0 {
		return types.ArrayOf(types.UnknownType(), 0)
	}
	var elem *types.Type
	for _, el := range n.Elements {
		t := c.exprType(el)
		if elem == nil {
			elem = t
			continue
		}
		common := commonType(elem, t)
		if common == nil {
			c.emit(diagnostic.TypeMismatch, fmt.Sprintf("array literal mixes incompatible types %s and %s", elem, t), el)
			common = types.UnknownType()
		}
		elem = common
	}
	return types.ArrayOf(elem, len(n.Elements))
}

func isLvalue(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Identifier, *ast.IndexExpr, *ast.MemberExpr:
		return true
	default:
		return false
	}
}

func boolLike(t *types.Type) bool {
	return t.Kind == types.Boolean || t.Kind == types.Byte
}

func commonType(a, b *types.Type) *types.Type {
	if a.Kind == types.Unknown {
		return b
	}
	if b.Kind == types.Unknown {
		return a
	}
	if types.Equal(a, b) {
		return a
	}
	if types.IsNumeric(a) && types.IsNumeric(b) {
		if a.Kind == types.Word || b.Kind == types.Word {
			return types.WordType()
		}
		return types.ByteType()
	}
	if boolLike(a) && boolLike(b) {
		return types.ByteType()
	}
	return nil
}

func compoundOperator(op string) string {
	if len(op) > 1 && op[len(op)-1] == '=' {
		return op[:len(op)-1]
	}
	return op
}

func calleeName(e ast.Expr) (string, bool) {
	ident, ok := e.(*ast.Identifier)
	if !ok {
		return "", false
	}
	return ident.Name, true
}
