package hwanalysis

import "github.com/blend65/b65c/internal/ast"

// unwrap extracts the wrapped declaration from an ExportDecl, or returns
// d unchanged if it isn't one. Shared by every hwanalysis pass that
// iterates a program's top-level declarations.
func unwrap(d ast.Decl) ast.Decl {
	if e, ok := d.(*ast.ExportDecl); ok {
		return e.Wrapped
	}
	return d
}

// collectFunctionStats walks one function body twice: once to find the
// deepest loop nesting it reaches, once to record every reference to a
// tracked zero-page variable along with the context (loop depth,
// arithmetic operand, index, indirect-pointer target) it was found in.
func collectFunctionStats(fn *ast.FunctionDecl, names map[string]bool, stats map[string]*varStats) {
	if fn.Body == nil {
		return
	}
	funcMaxDepth := maxLoopDepth(fn.Body, 0)
	w := &walker{names: names, stats: stats, funcMaxDepth: funcMaxDepth}
	w.walkStmts(fn.Body, 0)
}

func maxLoopDepth(stmts []ast.Stmt, depth int) int {
	best := depth
	for _, s := range stmts {
		switch st := s.(type) {
		case *ast.BlockStmt:
			best = maxInt(best, maxLoopDepth(st.Statements, depth))
		case *ast.WhileStmt:
			best = maxInt(best, maxLoopDepth(st.Body, depth+1))
		case *ast.ForStmt:
			best = maxInt(best, maxLoopDepth(st.Body, depth+1))
		case *ast.DoWhileStmt:
			best = maxInt(best, maxLoopDepth(st.Body, depth+1))
		case *ast.IfStmt:
			best = maxInt(best, maxLoopDepth(st.Then, depth))
			if st.Else != nil {
				best = maxInt(best, maxLoopDepth(st.Else, depth))
			}
		case *ast.SwitchStmt:
			for _, c := range st.Cases {
				best = maxInt(best, maxLoopDepth(c.Body, depth))
			}
		}
	}
	return best
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// walker carries the per-function walk state: the set of tracked
// variable names, the stats map being filled in, the function's deepest
// loop nesting (for hot-path classification), and the stack of active
// for-loop frames (for loop-counter / stride classification).
type walker struct {
	names        map[string]bool
	stats        map[string]*varStats
	funcMaxDepth int
	forStack     []forFrame
}

func (w *walker) walkStmts(stmts []ast.Stmt, depth int) {
	for _, s := range stmts {
		w.walkStmt(s, depth)
	}
}

func (w *walker) walkStmt(s ast.Stmt, depth int) {
	switch st := s.(type) {
	case *ast.BlockStmt:
		w.walkStmts(st.Statements, depth)
	case *ast.DeclStmt:
		if v, ok := st.Decl.(*ast.VariableDecl); ok && v.Init != nil {
			w.walkExpr(v.Init, depth, false, false)
		}
	case *ast.ExprStmt:
		w.walkExpr(st.X, depth, false, false)
	case *ast.ReturnStmt:
		if st.Value != nil {
			w.walkExpr(st.Value, depth, false, false)
		}
	case *ast.IfStmt:
		w.walkExpr(st.Cond, depth, false, false)
		w.walkStmts(st.Then, depth)
		if st.Else != nil {
			w.walkStmts(st.Else, depth)
		}
	case *ast.WhileStmt:
		w.walkExpr(st.Cond, depth, false, false)
		w.walkStmts(st.Body, depth+1)
	case *ast.ForStmt:
		w.walkExpr(st.Start, depth, true, false)
		w.walkExpr(st.End, depth, true, false)
		unitStep := true
		if st.Step != nil {
			w.walkExpr(st.Step, depth, true, false)
			if lit, ok := st.Step.(*ast.Literal); ok && lit.Kind == ast.LiteralInt {
				unitStep = lit.IntValue == 1 || lit.IntValue == -1
			} else {
				unitStep = false
			}
		}
		if w.names[st.Var] {
			s := w.stats[st.Var]
			if depth+1 == 1 {
				s.loopCounterOuter = true
			} else {
				s.loopCounterInner = true
			}
			s.loopCounterUnitStep = unitStep
		}
		w.forStack = append(w.forStack, forFrame{varName: st.Var, unitStep: unitStep, depth: depth + 1})
		w.walkStmts(st.Body, depth+1)
		w.forStack = w.forStack[:len(w.forStack)-1]
	case *ast.DoWhileStmt:
		w.walkStmts(st.Body, depth+1)
		w.walkExpr(st.Cond, depth+1, false, false)
	case *ast.SwitchStmt:
		w.walkExpr(st.Value, depth, false, false)
		for _, c := range st.Cases {
			w.walkStmts(c.Body, depth)
		}
	}
}

func (w *walker) walkExpr(e ast.Expr, depth int, arithmetic, index bool) {
	if e == nil {
		return
	}
	switch ex := e.(type) {
	case *ast.Identifier:
		w.record(ex.Name, depth, arithmetic, index)
	case *ast.BinaryExpr:
		isArith := isArithmeticOp(ex.Op)
		w.walkExpr(ex.Left, depth, isArith, index)
		w.walkExpr(ex.Right, depth, isArith, index)
	case *ast.UnaryExpr:
		if ex.Op == "@" {
			if id, ok := ex.Operand.(*ast.Identifier); ok && w.names[id.Name] {
				w.stats[id.Name].indirectPointer = true
			}
		}
		w.walkExpr(ex.Operand, depth, arithmetic, index)
	case *ast.TernaryExpr:
		w.walkExpr(ex.Cond, depth, false, false)
		w.walkExpr(ex.Then, depth, arithmetic, index)
		w.walkExpr(ex.Else, depth, arithmetic, index)
	case *ast.AssignmentExpr:
		w.walkExpr(ex.Target, depth, false, false)
		w.walkExpr(ex.Value, depth, isArithmeticOp(ex.Op), false)
	case *ast.CallExpr:
		w.walkExpr(ex.Callee, depth, false, false)
		for _, a := range ex.Args {
			w.walkExpr(a, depth, false, false)
		}
	case *ast.IndexExpr:
		w.walkExpr(ex.Object, depth, false, false)
		w.walkExpr(ex.Index, depth, false, true)
	case *ast.MemberExpr:
		w.walkExpr(ex.Object, depth, false, false)
	case *ast.ArrayLiteralExpr:
		for _, el := range ex.Elements {
			w.walkExpr(el, depth, false, false)
		}
	}
}

func (w *walker) record(name string, depth int, arithmetic, index bool) {
	if !w.names[name] {
		return
	}
	s := w.stats[name]
	s.refCount++
	if depth > s.maxLoopDepth {
		s.maxLoopDepth = depth
	}
	if depth > 0 && depth == w.funcMaxDepth {
		s.hotPathRefs++
	}
	if arithmetic {
		s.arithmeticRefs++
	}
	if index {
		s.usedAsIndex = true
	}
	for _, frame := range w.forStack {
		if frame.varName != name {
			continue
		}
		if frame.depth == 1 {
			s.loopCounterOuter = true
		} else {
			s.loopCounterInner = true
		}
		s.loopCounterUnitStep = frame.unitStep
	}
}

func isArithmeticOp(op string) bool {
	switch op {
	case "+", "-", "*", "/", "%", "+=", "-=", "*=", "/=", "%=":
		return true
	default:
		return false
	}
}
