// Package diagnostic provides the single append-only diagnostic sink
// shared by every pass of the Blend65 semantic-analysis pipeline.
//
// The teacher codebase shipped two near-identical packages for this
// concern (internal/diagnostic and internal/diagnostics); this package
// consolidates them into the one sink the spec describes, with a closed,
// stable code enum in place of an open string code.
package diagnostic

import "github.com/blend65/b65c/internal/position"

// Severity is the gating level of a Diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
	Info
	Hint
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Hint:
		return "hint"
	default:
		return "unknown"
	}
}

// Code is the stable, closed diagnostic-code enum forming the external
// interface described in spec §6.
type Code int

const (
	CodeUnspecified Code = iota

	// Symbol table / type-checker diagnostics (Passes 1, 2, 4).
	DuplicateDeclaration
	UnknownType
	TypeMismatch
	UndefinedIdentifier
	InvalidReturn
	MissingReturnValue
	BreakOutsideLoop
	ContinueOutsideLoop
	ArityMismatch
	NonLvalueAssignment

	// Control-flow diagnostics (Pass 5).
	DeadCode
	MissingReturn

	// Multi-module diagnostics (§4.9, §4.10).
	DuplicateModule
	CircularImport
	ImportModuleNotFound
	ImportSymbolNotFound
	ImportNotExported
	UnusedImport

	// Hardware-analysis diagnostics (§4.11-§4.14).
	ReservedZeroPage
	ZeroPageAllocationIntoReserved
	ZeroPageOverflow
	MemoryMapOverlap
	ZeroPageMapOverlap
	SIDVoiceConflict
	SIDFilterConflict
	SIDVolumeConflict
	RasterLineOverrun
)

var codeNames = map[Code]string{
	DuplicateDeclaration:           "DUPLICATE_DECLARATION",
	UnknownType:                    "UNKNOWN_TYPE",
	TypeMismatch:                   "TYPE_MISMATCH",
	UndefinedIdentifier:            "UNDEFINED_IDENTIFIER",
	InvalidReturn:                  "INVALID_RETURN",
	MissingReturnValue:             "MISSING_RETURN_VALUE",
	BreakOutsideLoop:               "BREAK_OUTSIDE_LOOP",
	ContinueOutsideLoop:            "CONTINUE_OUTSIDE_LOOP",
	ArityMismatch:                  "ARITY_MISMATCH",
	NonLvalueAssignment:            "NON_LVALUE_ASSIGNMENT",
	DeadCode:                       "DEAD_CODE",
	MissingReturn:                  "MISSING_RETURN",
	DuplicateModule:                "DUPLICATE_MODULE",
	CircularImport:                 "CIRCULAR_IMPORT",
	ImportModuleNotFound:           "IMPORT_MODULE_NOT_FOUND",
	ImportSymbolNotFound:           "IMPORT_SYMBOL_NOT_FOUND",
	ImportNotExported:              "IMPORT_NOT_EXPORTED",
	UnusedImport:                   "UNUSED_IMPORT",
	ReservedZeroPage:               "RESERVED_ZERO_PAGE",
	ZeroPageAllocationIntoReserved: "ZERO_PAGE_ALLOCATION_INTO_RESERVED",
	ZeroPageOverflow:               "ZERO_PAGE_OVERFLOW",
	MemoryMapOverlap:               "MEMORY_MAP_OVERLAP",
	ZeroPageMapOverlap:             "ZERO_PAGE_MAP_OVERLAP",
	SIDVoiceConflict:               "SID_VOICE_CONFLICT",
	SIDFilterConflict:              "SID_FILTER_CONFLICT",
	SIDVolumeConflict:              "SID_VOLUME_CONFLICT",
	RasterLineOverrun:              "RASTER_LINE_OVERRUN",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNSPECIFIED"
}

// Diagnostic is a single structured record emitted by a pass.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Span     position.Span
}

// Sink is the append-only diagnostic log shared by all passes of one
// module's analysis. Order matches emission order; passes may emit the
// same diagnostic more than once and duplicates are never suppressed.
type Sink struct {
	entries []Diagnostic
}

// NewSink creates an empty diagnostic sink.
func NewSink() *Sink {
	return &Sink{}
}

// Emit appends a diagnostic to the sink.
func (s *Sink) Emit(severity Severity, code Code, message string, span position.Span) {
	s.entries = append(s.entries, Diagnostic{
		Severity: severity,
		Code:     code,
		Message:  message,
		Span:     span,
	})
}

// All returns every diagnostic in emission order.
func (s *Sink) All() []Diagnostic {
	return s.entries
}

// ErrorsOnly returns only the error-severity diagnostics, in emission order.
func (s *Sink) ErrorsOnly() []Diagnostic {
	var out []Diagnostic
	for _, d := range s.entries {
		if d.Severity == Error {
			out = append(out, d)
		}
	}
	return out
}

// HasErrors reports whether any error-severity diagnostic was emitted.
func (s *Sink) HasErrors() bool {
	for _, d := range s.entries {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// CountsBySeverity tallies diagnostics per severity level.
func (s *Sink) CountsBySeverity() map[Severity]int {
	counts := make(map[Severity]int, 4)
	for _, d := range s.entries {
		counts[d.Severity]++
	}
	return counts
}

// Merge appends another sink's entries in order, preserving the
// caller's chosen ordering across sinks (used by the concurrent
// hardware-analysis runner, §4.15, to keep emission order deterministic
// regardless of goroutine completion order).
func (s *Sink) Merge(other *Sink) {
	s.entries = append(s.entries, other.entries...)
}
