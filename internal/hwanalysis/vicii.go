package hwanalysis

import (
	"fmt"

	"github.com/blend65/b65c/internal/ast"
	"github.com/blend65/b65c/internal/diagnostic"
)

// Per-construct cycle-estimate constants (spec §4.13: "a table of
// per-instruction cycle estimates"). Since codegen is out of scope, these
// approximate typical 6502 instruction sequences a construct of this
// shape compiles to, rather than modeling real opcodes.
const (
	cycleAssignment = 4
	cycleBinaryOp   = 2
	cycleCall       = 6
	cycleReturn     = 6
	cycleBranch     = 3
	cycleLoopSetup  = 5 // index init / bounds load
	cycleLoopStep   = 5 // increment + compare + branch back

	// RasterLineBudget is the number of cycles available in one raster
	// line on both PAL and NTSC (spec §4.13).
	RasterLineBudget = 63

	// DefaultBadLineStall is the canonical VIC-II bad-line DMA steal.
	DefaultBadLineStall = 40

	// SpriteDMACyclesPerSprite is the approximate per-sprite DMA steal
	// when a sprite's data is fetched on a given line.
	SpriteDMACyclesPerSprite = 2
)

// LoopCycleEstimate is the cost of one loop construct: its per-iteration
// cost, and (when the iteration count is statically known) the total.
type LoopCycleEstimate struct {
	Depth               int
	PerIterationCycles  int
	IterationCountKnown bool
	IterationCount      int
	TotalCycles         int
}

// CycleEstimate is the VIC-II timing analyzer's output for one function.
type CycleEstimate struct {
	FunctionName string
	TotalCycles  int
	Loops        []LoopCycleEstimate
}

// VICIIAnalyzer estimates per-function and per-loop cycle costs and
// checks user-declared raster-interrupt handlers against the raster-line
// budget.
type VICIIAnalyzer struct {
	Sink         *diagnostic.Sink
	BadLineStall int
	SpriteCount  int
}

// NewVICIIAnalyzer creates an analyzer with the canonical bad-line stall
// and no sprite DMA penalty; callers adjust SpriteCount for scenes that
// use hardware sprites.
func NewVICIIAnalyzer(sink *diagnostic.Sink) *VICIIAnalyzer {
	return &VICIIAnalyzer{Sink: sink, BadLineStall: DefaultBadLineStall}
}

// Budget returns the cycles available in a raster line after bad-line
// and sprite DMA penalties.
func (v *VICIIAnalyzer) Budget() int {
	budget := RasterLineBudget - v.BadLineStall - v.SpriteCount*SpriteDMACyclesPerSprite
	if budget < 0 {
		return 0
	}
	return budget
}

// Analyze estimates every function's cycle cost and, for each name in
// rasterHandlers, emits RASTER_LINE_OVERRUN when its estimate exceeds the
// raster-line budget.
func (v *VICIIAnalyzer) Analyze(prog *ast.Program, rasterHandlers []string) []CycleEstimate {
	handlerSet := make(map[string]bool, len(rasterHandlers))
	for _, h := range rasterHandlers {
		handlerSet[h] = true
	}

	var estimates []CycleEstimate
	for _, d := range prog.Declarations {
		fn, ok := unwrap(d).(*ast.FunctionDecl)
		if !ok || fn.Body == nil {
			continue
		}
		var loops []LoopCycleEstimate
		total := estimateStmts(fn.Body, 0, &loops)
		estimates = append(estimates, CycleEstimate{FunctionName: fn.Name, TotalCycles: total, Loops: loops})

		if handlerSet[fn.Name] {
			budget := v.Budget()
			if total > budget {
				v.Sink.Emit(diagnostic.Warning, diagnostic.RasterLineOverrun,
					fmt.Sprintf("raster handler %q estimated at %d cycles, exceeds the %d-cycle raster-line budget",
						fn.Name, total, budget), fn.Span())
			}
		}
	}
	return estimates
}

func estimateStmts(stmts []ast.Stmt, depth int, loops *[]LoopCycleEstimate) int {
	total := 0
	for _, s := range stmts {
		total += estimateStmt(s, depth, loops)
	}
	return total
}

func estimateStmt(s ast.Stmt, depth int, loops *[]LoopCycleEstimate) int {
	switch st := s.(type) {
	case *ast.BlockStmt:
		return estimateStmts(st.Statements, depth, loops)
	case *ast.DeclStmt:
		if v, ok := st.Decl.(*ast.VariableDecl); ok {
			cost := cycleAssignment
			if v.Init != nil {
				cost += estimateExpr(v.Init)
			}
			return cost
		}
		return 0
	case *ast.ExprStmt:
		return estimateExpr(st.X)
	case *ast.ReturnStmt:
		cost := cycleReturn
		if st.Value != nil {
			cost += estimateExpr(st.Value)
		}
		return cost
	case *ast.IfStmt:
		cost := estimateExpr(st.Cond) + cycleBranch
		thenCost := estimateStmts(st.Then, depth, loops)
		elseCost := 0
		if st.Else != nil {
			elseCost = estimateStmts(st.Else, depth, loops)
		}
		return cost + maxInt(thenCost, elseCost)
	case *ast.WhileStmt:
		return estimateLoop(estimateExpr(st.Cond)+cycleLoopStep, st.Body, depth, 0, false, loops)
	case *ast.ForStmt:
		perIter := cycleLoopStep
		count, known := staticIterationCount(st)
		return estimateLoop(perIter, st.Body, depth, count, known, loops)
	case *ast.DoWhileStmt:
		return estimateLoop(estimateExpr(st.Cond)+cycleLoopStep, st.Body, depth, 0, false, loops)
	case *ast.SwitchStmt:
		cost := estimateExpr(st.Value) + cycleBranch
		worst := 0
		for _, c := range st.Cases {
			worst = maxInt(worst, estimateStmts(c.Body, depth, loops))
		}
		return cost + worst
	case *ast.BreakStmt, *ast.ContinueStmt:
		return cycleBranch
	default:
		return 0
	}
}

func estimateLoop(perIterOverhead int, body []ast.Stmt, depth, count int, known bool, loops *[]LoopCycleEstimate) int {
	var nested []LoopCycleEstimate
	bodyCost := estimateStmts(body, depth+1, &nested)
	perIteration := cycleLoopSetup + perIterOverhead + bodyCost

	estimate := LoopCycleEstimate{Depth: depth + 1, PerIterationCycles: perIteration, IterationCountKnown: known, IterationCount: count}
	total := perIteration
	if known {
		total = perIteration * count
	}
	estimate.TotalCycles = total
	*loops = append(*loops, estimate)
	*loops = append(*loops, nested...)
	return total
}

// staticIterationCount returns the loop's trip count when Start, End,
// and Step are all integer literals.
func staticIterationCount(f *ast.ForStmt) (int, bool) {
	start, ok := f.Start.(*ast.Literal)
	if !ok || start.Kind != ast.LiteralInt {
		return 0, false
	}
	end, ok := f.End.(*ast.Literal)
	if !ok || end.Kind != ast.LiteralInt {
		return 0, false
	}
	step := int64(1)
	if f.Step != nil {
		lit, ok := f.Step.(*ast.Literal)
		if !ok || lit.Kind != ast.LiteralInt || lit.IntValue == 0 {
			return 0, false
		}
		step = lit.IntValue
	}
	span := end.IntValue - start.IntValue
	if step > 0 && span < 0 {
		return 0, true
	}
	if step < 0 && span > 0 {
		return 0, true
	}
	count := span/step + 1
	if count < 0 {
		count = 0
	}
	return int(count), true
}

func estimateExpr(e ast.Expr) int {
	if e == nil {
		return 0
	}
	switch ex := e.(type) {
	case *ast.Literal, *ast.Identifier:
		return 2
	case *ast.BinaryExpr:
		return cycleBinaryOp + estimateExpr(ex.Left) + estimateExpr(ex.Right)
	case *ast.UnaryExpr:
		return cycleBinaryOp + estimateExpr(ex.Operand)
	case *ast.TernaryExpr:
		return cycleBranch + estimateExpr(ex.Cond) + maxInt(estimateExpr(ex.Then), estimateExpr(ex.Else))
	case *ast.AssignmentExpr:
		return cycleAssignment + estimateExpr(ex.Value)
	case *ast.CallExpr:
		cost := cycleCall
		for _, a := range ex.Args {
			cost += estimateExpr(a)
		}
		return cost
	case *ast.IndexExpr:
		return cycleBinaryOp + estimateExpr(ex.Object) + estimateExpr(ex.Index)
	case *ast.MemberExpr:
		return cycleBinaryOp + estimateExpr(ex.Object)
	case *ast.ArrayLiteralExpr:
		cost := 0
		for _, el := range ex.Elements {
			cost += estimateExpr(el)
		}
		return cost
	default:
		return 0
	}
}
