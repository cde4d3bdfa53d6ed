// Package hwanalysis implements the three 6502/C64 hardware-specific
// analyses that run as Pass 6, once Passes 1 and 2 have completed
// cleanly for a module: zero-page allocation, SID conflict detection,
// and VIC-II raster-timing estimation, plus the cross-module memory
// layout builder that runs after every module is analyzed.
//
// Bookkeeping style (offset tracking, overlap detection via sorted
// ranges) is grounded in the teacher's internal/layout package; the
// domain model itself (byte-addressed zero page, SID voices, VIC-II
// raster lines) has no teacher analog and is new.
package hwanalysis

import (
	"fmt"

	"github.com/blend65/b65c/internal/ast"
	"github.com/blend65/b65c/internal/diagnostic"
	"github.com/blend65/b65c/internal/resolver"
)

// C64 zero-page layout (spec §4.11).
const (
	ZPConfigPortsStart = 0x00
	ZPConfigPortsEnd   = 0x01
	ZPSafeStart        = 0x02
	ZPSafeEnd          = 0x8F
	ZPKernalStart      = 0x90
	ZPKernalEnd        = 0xFF

	ZPSafeCapacity = ZPSafeEnd - ZPSafeStart + 1
)

// AccessPattern classifies how a zero-page variable is referenced across
// a module.
type AccessPattern int

const (
	Single AccessPattern = iota
	Sequential
	Strided
	Random
	HotPath
)

func (p AccessPattern) String() string {
	switch p {
	case Single:
		return "single"
	case Sequential:
		return "sequential"
	case Strided:
		return "strided"
	case HotPath:
		return "hot-path"
	default:
		return "random"
	}
}

// Register is a 6502 register a variable may prefer to be held in.
type Register int

const (
	RegNone Register = iota
	RegA
	RegX
	RegY
)

func (r Register) String() string {
	switch r {
	case RegA:
		return "A"
	case RegX:
		return "X"
	case RegY:
		return "Y"
	default:
		return "none"
	}
}

// VarAllocation is the hardware analyzer's output for one zero-page
// variable.
type VarAllocation struct {
	Name      string
	Address   int64
	Size      int
	Priority  int
	Pattern   AccessPattern
	Register  Register
	Rationale string
	Decl      *ast.VariableDecl
}

// varStats accumulates the raw reference data a walk over one module's
// function bodies produces for a single zero-page variable, before it is
// turned into a priority score / access pattern / register preference.
type varStats struct {
	refCount       int
	maxLoopDepth   int
	hotPathRefs    int
	arithmeticRefs int

	usedAsIndex         bool
	indirectPointer     bool
	loopCounterOuter    bool
	loopCounterInner    bool
	loopCounterUnitStep bool
}

// forFrame is one active for-loop on the walker's context stack.
type forFrame struct {
	varName  string
	unitStep bool
	depth    int
}

// ZeroPageAnalyzer computes allocations, priority scores, access
// patterns, and register preferences for every module-scope variable
// declared with zero-page storage.
type ZeroPageAnalyzer struct {
	Table *resolver.SymbolTable
	Sink  *diagnostic.Sink
}

// NewZeroPageAnalyzer creates an analyzer over an already Pass-1/Pass-2
// clean module.
func NewZeroPageAnalyzer(table *resolver.SymbolTable, sink *diagnostic.Sink) *ZeroPageAnalyzer {
	return &ZeroPageAnalyzer{Table: table, Sink: sink}
}

// Analyze scans prog's top-level declarations for zero-page variables,
// assigns (or validates an explicit) address for each, scores them, and
// returns one VarAllocation per variable in declaration order.
func (z *ZeroPageAnalyzer) Analyze(prog *ast.Program) []VarAllocation {
	var decls []*ast.VariableDecl
	for _, d := range prog.Declarations {
		d = unwrap(d)
		if v, ok := d.(*ast.VariableDecl); ok && v.Storage == ast.StorageZeroPage {
			decls = append(decls, v)
		}
	}
	if len(decls) == 0 {
		return nil
	}

	stats := make(map[string]*varStats, len(decls))
	names := make(map[string]bool, len(decls))
	for _, d := range decls {
		stats[d.Name] = &varStats{}
		names[d.Name] = true
	}

	for _, d := range prog.Declarations {
		d = unwrap(d)
		if fn, ok := d.(*ast.FunctionDecl); ok {
			collectFunctionStats(fn, names, stats)
		}
	}

	allocations := make([]VarAllocation, 0, len(decls))
	cursor := int64(ZPSafeStart)
	for _, d := range decls {
		size := z.variableSize(d)
		addr := cursor
		if d.Address != nil {
			addr = *d.Address
		} else {
			cursor += int64(size)
		}

		z.validatePlacement(d, addr, size)

		s := stats[d.Name]
		alloc := VarAllocation{
			Name:    d.Name,
			Address: addr,
			Size:    size,
			Pattern: classifyAccessPattern(s),
			Decl:    d,
		}
		alloc.Register, alloc.Rationale = registerPreference(s)
		alloc.Priority = priorityScore(s, size)
		allocations = append(allocations, alloc)
	}
	return allocations
}

func (z *ZeroPageAnalyzer) variableSize(d *ast.VariableDecl) int {
	sym, ok := z.Table.LookupInScope(z.Table.RootScope(), d.Name)
	if !ok || sym.Type == nil {
		return 1
	}
	if size := sym.Type.Size(); size > 0 {
		return size
	}
	return 1
}

// validatePlacement emits RESERVED_ZERO_PAGE when the allocation's start
// address is itself reserved, or ZERO_PAGE_ALLOCATION_INTO_RESERVED when
// a safe-range start nonetheless spills past $8F (spec §4.11).
func (z *ZeroPageAnalyzer) validatePlacement(d *ast.VariableDecl, addr int64, size int) {
	if addr < ZPSafeStart || addr > ZPSafeEnd {
		z.Sink.Emit(diagnostic.Error, diagnostic.ReservedZeroPage,
			fmt.Sprintf("%q placed at reserved zero-page address $%02X", d.Name, addr), d.Span())
		return
	}
	end := addr + int64(size) - 1
	if end > ZPSafeEnd {
		z.Sink.Emit(diagnostic.Error, diagnostic.ZeroPageAllocationIntoReserved,
			fmt.Sprintf("%q at $%02X..$%02X spills past the safe zero-page range ($%02X..$%02X)",
				d.Name, addr, end, ZPSafeStart, ZPSafeEnd), d.Span())
	}
}

func priorityScore(s *varStats, size int) int {
	freq := min(30, s.refCount*5)
	loopDepth := min(25, s.maxLoopDepth*10)
	hotPath := 0
	if s.hotPathRefs > 0 {
		hotPath = 20
	}
	sizeBonus := 0
	switch size {
	case 1:
		sizeBonus = 10
	case 2:
		sizeBonus = 5
	}
	arith := 0
	if s.refCount > 0 {
		arith = (10 * s.arithmeticRefs) / s.refCount
	}
	indexBonus := 0
	if s.usedAsIndex || s.loopCounterOuter || s.loopCounterInner {
		indexBonus = 5
	}
	total := freq + loopDepth + hotPath + sizeBonus + arith + indexBonus
	return min(100, max(0, total))
}

func classifyAccessPattern(s *varStats) AccessPattern {
	// A loop counter is referenced on every iteration by construction,
	// even when its body never mentions it by name, so this check runs
	// before the low-reference-count Single case.
	if s.loopCounterOuter || s.loopCounterInner {
		if s.loopCounterUnitStep {
			return Sequential
		}
		return Strided
	}
	if s.refCount <= 1 {
		return Single
	}
	if s.hotPathRefs > 0 {
		return HotPath
	}
	return Random
}

// registerPreference applies the decision cascade of spec §4.11.
func registerPreference(s *varStats) (Register, string) {
	switch {
	case s.indirectPointer:
		return RegY, "used as an indirect pointer target, required for (zp),Y addressing"
	case s.usedAsIndex:
		return RegX, "used as an array index"
	case s.loopCounterOuter:
		return RegX, "outer-loop counter"
	case s.loopCounterInner:
		return RegY, "inner-loop counter, paired with an outer X counter"
	case s.refCount > 0 && (10*s.arithmeticRefs)/s.refCount >= 5:
		return RegA, "high arithmetic intensity favors the accumulator"
	default:
		return RegNone, "no strong register preference"
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
