package hwanalysis

import (
	"fmt"
	"sort"

	"github.com/blend65/b65c/internal/ast"
	"github.com/blend65/b65c/internal/diagnostic"
	"github.com/blend65/b65c/internal/position"
	"github.com/blend65/b65c/internal/types"
)

// addrRange is a closed [Start, End] byte range belonging to one module.
type addrRange struct {
	module string
	name   string
	start  int64
	end    int64
}

// MemoryLayout is the cross-module view assembled once every module's
// zero-page allocations and memory-map declarations are known (spec
// §4.14). It runs after per-module analysis, not as one of its passes,
// since overlap can only be seen once every module's ranges are in hand.
type MemoryLayout struct {
	Sink *diagnostic.Sink

	zeroPage  []addrRange
	memoryMap []addrRange
}

// NewMemoryLayout creates a layout builder emitting to sink.
func NewMemoryLayout(sink *diagnostic.Sink) *MemoryLayout {
	return &MemoryLayout{Sink: sink}
}

// AddZeroPage folds one module's zero-page allocations into the layout.
func (l *MemoryLayout) AddZeroPage(module string, allocations []VarAllocation) {
	for _, a := range allocations {
		l.zeroPage = append(l.zeroPage, addrRange{
			module: module, name: a.Name,
			start: a.Address, end: a.Address + int64(a.Size) - 1,
		})
	}
}

// AddMemoryMap folds one module's memory-map declarations into the
// layout.
func (l *MemoryLayout) AddMemoryMap(module string, prog *ast.Program) {
	for _, d := range prog.Declarations {
		mm, ok := unwrap(d).(*ast.MemoryMapDecl)
		if !ok {
			continue
		}
		start, end := memoryMapExtent(mm)
		l.memoryMap = append(l.memoryMap, addrRange{module: module, name: mm.Name, start: start, end: end})
	}
}

// memoryMapExtent returns the absolute [start, end] byte range a
// declaration occupies, sizing struct fields from their type annotation.
func memoryMapExtent(mm *ast.MemoryMapDecl) (int64, int64) {
	if mm.Kind == ast.MemoryMapRange {
		return mm.Address, mm.End
	}
	if len(mm.Fields) == 0 {
		return mm.Address, mm.Address
	}
	cursor := mm.Address
	end := mm.Address
	for _, f := range mm.Fields {
		addr := cursor
		if f.Address != nil {
			addr = *f.Address
		}
		size := fieldSize(f.TypeAnnotation)
		fieldEnd := addr + int64(size) - 1
		if fieldEnd > end {
			end = fieldEnd
		}
		cursor = addr + int64(size)
	}
	return mm.Address, end
}

func fieldSize(annotation string) int {
	if t, ok := types.Builtin(annotation); ok {
		if size := t.Size(); size > 0 {
			return size
		}
	}
	return 1
}

// Check runs the cross-module overlap and overflow checks, emitting any
// findings to Sink.
func (l *MemoryLayout) Check() {
	l.checkZeroPageOverflow()
	l.checkOverlaps(l.memoryMap, diagnostic.MemoryMapOverlap, "memory-map declaration")
	l.checkZeroPageMapOverlap()
}

func (l *MemoryLayout) checkZeroPageOverflow() {
	total := 0
	for _, r := range l.zeroPage {
		total += int(r.end-r.start) + 1
	}
	if total > ZPSafeCapacity {
		l.Sink.Emit(diagnostic.Error, diagnostic.ZeroPageOverflow,
			fmt.Sprintf("zero-page allocations across all modules total %d bytes, exceeds the %d-byte safe range",
				total, ZPSafeCapacity), position.Span{})
	}
}

// checkOverlaps reports every pairwise overlap within ranges, in
// deterministic (start, module, name) order, under code.
func (l *MemoryLayout) checkOverlaps(ranges []addrRange, code diagnostic.Code, label string) {
	sorted := make([]addrRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].start != sorted[j].start {
			return sorted[i].start < sorted[j].start
		}
		if sorted[i].module != sorted[j].module {
			return sorted[i].module < sorted[j].module
		}
		return sorted[i].name < sorted[j].name
	})
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			a, b := sorted[i], sorted[j]
			if b.start > a.end {
				break
			}
			if a.module == b.module && a.name == b.name {
				continue
			}
			l.Sink.Emit(diagnostic.Error, code,
				fmt.Sprintf("%s %s.%s ($%04X..$%04X) overlaps %s.%s ($%04X..$%04X)",
					label, a.module, a.name, a.start, a.end, b.module, b.name, b.start, b.end),
				position.Span{})
		}
	}
}

func (l *MemoryLayout) checkZeroPageMapOverlap() {
	byPosition := func(rs []addrRange) []addrRange {
		out := make([]addrRange, len(rs))
		copy(out, rs)
		sort.Slice(out, func(i, j int) bool {
			if out[i].start != out[j].start {
				return out[i].start < out[j].start
			}
			if out[i].module != out[j].module {
				return out[i].module < out[j].module
			}
			return out[i].name < out[j].name
		})
		return out
	}
	sortedZP := byPosition(l.zeroPage)

	for _, mm := range byPosition(l.memoryMap) {
		for _, zp := range sortedZP {
			if zp.start > mm.end || mm.start > zp.end {
				continue
			}
			l.Sink.Emit(diagnostic.Error, diagnostic.ZeroPageMapOverlap,
				fmt.Sprintf("zero-page variable %s.%s ($%02X..$%02X) overlaps memory-map declaration %s.%s ($%04X..$%04X)",
					zp.module, zp.name, zp.start, zp.end, mm.module, mm.name, mm.start, mm.end),
				position.Span{})
		}
	}
}
