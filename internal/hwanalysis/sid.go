package hwanalysis

import (
	"fmt"
	"sort"

	"github.com/blend65/b65c/internal/ast"
	"github.com/blend65/b65c/internal/diagnostic"
	"github.com/blend65/b65c/internal/position"
)

// SID register layout (spec §4.12): three seven-register voices, then
// filter, then volume/mode.
const (
	SIDBase          = 0xD400
	SIDVoiceSize     = 7
	SIDVoiceCount    = 3
	SIDControlOffset = 4 // offset within a voice group

	SIDFilterCutoffLo = 0xD415
	SIDFilterCutoffHi = 0xD416
	SIDFilterResMode  = 0xD417
	SIDVolumeMode     = 0xD418
)

// Dialect selects the target TV system's raster/IRQ cadence.
type Dialect int

const (
	PAL Dialect = iota
	NTSC
)

// MusicIRQHz returns the conventional player-interrupt frequency for a
// music-player classification (spec §4.12).
func (d Dialect) MusicIRQHz() int {
	if d == NTSC {
		return 60
	}
	return 50
}

// SoundEffectIRQHz is the lower cadence recommended when fewer than all
// three voices are driven; sound effects don't need a full-frame update.
const SoundEffectIRQHz = 20

// SIDWrite records one function writing one absolute SID register
// address, discovered through a memory-map member assignment.
type SIDWrite struct {
	Function string
	Address  int64
	Field    string
}

// SIDClassification is the IRQ-timing recommendation of spec §4.12.
type SIDClassification int

const (
	NoSIDUsage SIDClassification = iota
	SoundEffect
	MusicPlayer
)

// SIDAnalyzer detects cross-function SID register write conflicts and
// classifies the module's overall SID usage.
type SIDAnalyzer struct {
	Sink    *diagnostic.Sink
	Dialect Dialect
}

// NewSIDAnalyzer creates an analyzer emitting to sink, targeting dialect
// for its IRQ-frequency recommendation.
func NewSIDAnalyzer(sink *diagnostic.Sink, dialect Dialect) *SIDAnalyzer {
	return &SIDAnalyzer{Sink: sink, Dialect: dialect}
}

// Analyze finds every SID-mapped memory-map declaration in prog, records
// every function's writes to it, emits voice/filter/volume conflict
// diagnostics, and returns the module's SID usage classification plus
// its recommended IRQ frequency.
func (s *SIDAnalyzer) Analyze(prog *ast.Program) (SIDClassification, int) {
	registerOf := sidRegisterFields(prog)
	if len(registerOf) == 0 {
		return NoSIDUsage, 0
	}

	var writes []SIDWrite
	for _, d := range prog.Declarations {
		if fn, ok := unwrap(d).(*ast.FunctionDecl); ok {
			writes = append(writes, collectSIDWrites(fn, registerOf)...)
		}
	}
	if len(writes) == 0 {
		return NoSIDUsage, 0
	}

	s.reportVoiceConflicts(writes)
	s.reportFilterConflicts(writes)
	s.reportVolumeConflicts(writes)

	voicesUsed := map[int]bool{}
	for _, w := range writes {
		if v, ok := voiceIndex(w.Address); ok {
			voicesUsed[v] = true
		}
	}
	if len(voicesUsed) == SIDVoiceCount {
		return MusicPlayer, s.Dialect.MusicIRQHz()
	}
	return SoundEffect, SoundEffectIRQHz
}

// sidRegisterFields maps every (mapName, fieldName) pair whose resolved
// absolute address falls in the SID range to that address, by scanning
// the module's memory-map declarations. Sequential-struct fields without
// an explicit address are assigned one byte each, in field order,
// starting at the map's base address.
func sidRegisterFields(prog *ast.Program) map[string]map[string]int64 {
	out := make(map[string]map[string]int64)
	for _, d := range prog.Declarations {
		mm, ok := unwrap(d).(*ast.MemoryMapDecl)
		if !ok {
			continue
		}
		fields := make(map[string]int64, len(mm.Fields))
		cursor := mm.Address
		for _, f := range mm.Fields {
			addr := cursor
			if f.Address != nil {
				addr = *f.Address
			}
			if isSIDAddress(addr) {
				fields[f.Name] = addr
			}
			cursor = addr + 1
		}
		if len(fields) > 0 {
			out[mm.Name] = fields
		}
	}
	return out
}

func isSIDAddress(addr int64) bool {
	return addr >= SIDBase && addr <= SIDVolumeMode
}

func voiceIndex(addr int64) (int, bool) {
	if addr < SIDBase {
		return 0, false
	}
	offset := addr - SIDBase
	voice := int(offset / SIDVoiceSize)
	if voice < 0 || voice >= SIDVoiceCount {
		return 0, false
	}
	return voice, true
}

// collectSIDWrites walks fn's body for assignments whose target is a
// member access into a SID-mapped declaration.
func collectSIDWrites(fn *ast.FunctionDecl, registerOf map[string]map[string]int64) []SIDWrite {
	var out []SIDWrite
	var visit func(stmts []ast.Stmt)
	var visitExpr func(e ast.Expr)
	visitExpr = func(e ast.Expr) {
		assign, ok := e.(*ast.AssignmentExpr)
		if !ok {
			return
		}
		member, ok := assign.Target.(*ast.MemberExpr)
		if !ok {
			return
		}
		ident, ok := member.Object.(*ast.Identifier)
		if !ok {
			return
		}
		fields, ok := registerOf[ident.Name]
		if !ok {
			return
		}
		addr, ok := fields[member.Property]
		if !ok {
			return
		}
		out = append(out, SIDWrite{Function: fn.Name, Address: addr, Field: member.Property})
	}
	visit = func(stmts []ast.Stmt) {
		for _, s := range stmts {
			switch st := s.(type) {
			case *ast.BlockStmt:
				visit(st.Statements)
			case *ast.ExprStmt:
				visitExpr(st.X)
			case *ast.IfStmt:
				visit(st.Then)
				visit(st.Else)
			case *ast.WhileStmt:
				visit(st.Body)
			case *ast.ForStmt:
				visit(st.Body)
			case *ast.DoWhileStmt:
				visit(st.Body)
			case *ast.SwitchStmt:
				for _, c := range st.Cases {
					visit(c.Body)
				}
			}
		}
	}
	visit(fn.Body)
	return out
}

func (s *SIDAnalyzer) reportVoiceConflicts(writes []SIDWrite) {
	byRegister := make(map[int64]map[string]bool)
	for _, w := range writes {
		if _, ok := voiceIndex(w.Address); !ok {
			continue
		}
		if byRegister[w.Address] == nil {
			byRegister[w.Address] = make(map[string]bool)
		}
		byRegister[w.Address][w.Function] = true
	}
	for _, addr := range sortedInt64Keys(byRegister) {
		fns := sortedFunctionNames(byRegister[addr])
		if len(fns) < 2 {
			continue
		}
		voice, _ := voiceIndex(addr)
		isControl := (addr-SIDBase)%SIDVoiceSize == SIDControlOffset
		severity := diagnostic.Warning
		if isControl {
			severity = diagnostic.Error
		}
		s.Sink.Emit(severity, diagnostic.SIDVoiceConflict,
			fmt.Sprintf("voice %d register $%04X written by multiple functions: %v", voice, addr, fns),
			position.Span{})
	}
}

func (s *SIDAnalyzer) reportFilterConflicts(writes []SIDWrite) {
	byRegister := make(map[int64]map[string]bool)
	for _, w := range writes {
		if w.Address < SIDFilterCutoffLo || w.Address > SIDFilterResMode {
			continue
		}
		if byRegister[w.Address] == nil {
			byRegister[w.Address] = make(map[string]bool)
		}
		byRegister[w.Address][w.Function] = true
	}
	for _, addr := range sortedInt64Keys(byRegister) {
		fns := sortedFunctionNames(byRegister[addr])
		if len(fns) < 2 {
			continue
		}
		kind := "cutoff"
		if addr == SIDFilterResMode {
			kind = "resonance/routing"
		}
		s.Sink.Emit(diagnostic.Warning, diagnostic.SIDFilterConflict,
			fmt.Sprintf("filter %s register $%04X written by multiple functions: %v", kind, addr, fns),
			position.Span{})
	}
}

func (s *SIDAnalyzer) reportVolumeConflicts(writes []SIDWrite) {
	writers := make(map[string]bool)
	for _, w := range writes {
		if w.Address == SIDVolumeMode {
			writers[w.Function] = true
		}
	}
	fns := sortedFunctionNames(writers)
	if len(fns) < 2 {
		return
	}
	s.Sink.Emit(diagnostic.Warning, diagnostic.SIDVolumeConflict,
		fmt.Sprintf("volume/mode register $D418 written by multiple functions: %v", fns),
		position.Span{})
}

func sortedInt64Keys(m map[int64]map[string]bool) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedFunctionNames(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
