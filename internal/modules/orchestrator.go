package modules

import (
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/blend65/b65c/internal/analyzer"
	"github.com/blend65/b65c/internal/ast"
	"github.com/blend65/b65c/internal/diagnostic"
	"github.com/blend65/b65c/internal/hwanalysis"
	"github.com/blend65/b65c/internal/position"
	"github.com/blend65/b65c/internal/resolver"
)

// ModuleResult holds every pass's output for one analyzed module. A
// later field is nil when its pass didn't run because an earlier,
// required pass reported errors.
type ModuleResult struct {
	Name string

	Builder      *resolver.Builder
	TypeResolver *analyzer.TypeResolver
	TypeChecker  *analyzer.TypeChecker
	CFG          *analyzer.CFGAnalyzer

	ZeroPage       []hwanalysis.VarAllocation
	SID            hwanalysis.SIDClassification
	SIDHz          int
	RasterHandlers []string
	Cycles         []hwanalysis.CycleEstimate

	Sink *diagnostic.Sink
}

// Orchestrator coordinates multi-module analysis: it owns the registry,
// the import dependency graph, and the global symbol table, and drives
// the per-module pass pipeline in topological order (spec §4.9/§4.10,
// §5).
type Orchestrator struct {
	Registry    *Registry
	Graph       *DependencyGraph
	GlobalTable *GlobalSymbolTable

	// Dialect selects the PAL/NTSC IRQ cadence the SID analyzer
	// recommends. Zero value is PAL.
	Dialect hwanalysis.Dialect

	// RasterHandlers names, per module, the functions the VIC-II
	// analyzer should check against the raster-line budget. The AST
	// carries no "this is an interrupt handler" marker, so callers
	// designate them here.
	RasterHandlers map[string][]string

	// Layout is the cross-module memory layout assembled during the
	// aggregate phase of Run (spec §4.14): every module's zero-page
	// allocations and memory-map declarations folded together and
	// checked for overflow and overlap. Nil until Run reaches its
	// aggregate phase; it stays nil when Run stops early on a missing
	// import target or an import cycle.
	Layout *hwanalysis.MemoryLayout
}

// NewOrchestrator creates an orchestrator with an empty registry and
// global symbol table.
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		Registry:    NewRegistry(),
		GlobalTable: NewGlobalSymbolTable(),
	}
}

// Register adds a module's AST under name. Diagnostics from a duplicate
// registration are written to sink.
func (o *Orchestrator) Register(name string, prog *ast.Program, sink *diagnostic.Sink) {
	o.Registry.Register(name, prog, sink)
}

// Run analyzes every registered module in dependency order, returning
// per-module results plus the orchestrator-level diagnostics (missing
// import targets, circular imports, cross-module memory-layout checks).
// Duplicate-module diagnostics go to the sink passed to Register instead.
// A missing import target or an import cycle is fail-fast: no per-module
// analysis runs and results is nil.
func (o *Orchestrator) Run() (map[string]*ModuleResult, *diagnostic.Sink) {
	log.Info("orchestrator phase: discover")
	sink := diagnostic.NewSink()
	o.Graph = BuildFromRegistry(o.Registry, sink)
	if sink.HasErrors() {
		return nil, sink
	}

	if cycles := o.Graph.DetectCycles(); len(cycles) > 0 {
		for _, cycle := range cycles {
			sink.Emit(diagnostic.Error, diagnostic.CircularImport, formatCycle(cycle), position.Span{})
		}
		return nil, sink
	}

	order, ok := o.Graph.TopologicalOrder()
	if !ok {
		sink.Emit(diagnostic.Error, diagnostic.CircularImport, "import graph could not be topologically ordered", position.Span{})
		return nil, sink
	}

	log.WithField("order", order).Info("orchestrator phase: analyze")
	results := make(map[string]*ModuleResult, len(order))
	for _, name := range order {
		mod, ok := o.Registry.Get(name)
		if !ok {
			continue
		}
		results[name] = o.analyzeModule(mod)
	}
	log.Info("orchestrator phase: aggregate")
	o.Layout = o.assembleMemoryLayout(results, sink)
	return results, sink
}

// assembleMemoryLayout folds every analyzed module's zero-page
// allocations and memory-map declarations into one cross-module
// MemoryLayout and checks it for overflow and overlap (spec §4.14,
// §6 "global memory layout", testable property #7). Diagnostics are
// emitted directly to sink so they surface alongside the orchestrator's
// own discover-phase diagnostics.
func (o *Orchestrator) assembleMemoryLayout(results map[string]*ModuleResult, sink *diagnostic.Sink) *hwanalysis.MemoryLayout {
	layout := hwanalysis.NewMemoryLayout(sink)
	for name, result := range results {
		if result == nil {
			continue
		}
		layout.AddZeroPage(name, result.ZeroPage)
		if mod, ok := o.Registry.Get(name); ok {
			layout.AddMemoryMap(name, mod.Program)
		}
	}
	layout.Check()
	return layout
}

func (o *Orchestrator) analyzeModule(mod *Module) *ModuleResult {
	moduleLog := log.WithField("module", mod.Name)
	moduleSink := diagnostic.NewSink()
	result := &ModuleResult{Name: mod.Name, Sink: moduleSink}

	b := resolver.NewBuilder(moduleSink)
	b.Build(mod.Program)
	result.Builder = b
	pass1Clean := !moduleSink.HasErrors()
	if !pass1Clean {
		moduleLog.Warn("skipping passes 2-6: pass 1 reported errors")
	}

	if pass1Clean {
		o.GlobalTable.ResolveCrossModuleImports(b.Table, moduleSink)

		tr := analyzer.NewTypeResolver(b)
		tr.Resolve(mod.Program)
		result.TypeResolver = tr

		if !moduleSink.HasErrors() {
			tc := analyzer.NewTypeChecker(b, tr)
			tc.Check(mod.Program)
			result.TypeChecker = tc
		}

		cfg := analyzer.NewCFGAnalyzer(b)
		cfg.Analyze(mod.Program)
		result.CFG = cfg

		if !moduleSink.HasErrors() {
			o.runHardwareAnalyses(mod, b, result, moduleSink)
		}
	}

	DetectUnusedImports(b.Table, moduleSink)
	o.GlobalTable.RegisterModule(mod.Name, b.Table)
	moduleLog.WithFields(log.Fields{
		"pass1Clean":  pass1Clean,
		"diagnostics": len(moduleSink.All()),
	}).Debug("module analysis complete")
	return result
}

// runHardwareAnalyses runs the zero-page, SID, and VIC-II passes
// concurrently, each against its own sink, and merges their diagnostics
// into moduleSink in a fixed order (zero-page, SID, VIC-II) so emission
// order stays deterministic regardless of goroutine scheduling.
func (o *Orchestrator) runHardwareAnalyses(mod *Module, b *resolver.Builder, result *ModuleResult, moduleSink *diagnostic.Sink) {
	zpSink := diagnostic.NewSink()
	sidSink := diagnostic.NewSink()
	viciiSink := diagnostic.NewSink()

	var g errgroup.Group
	g.Go(func() error {
		result.ZeroPage = hwanalysis.NewZeroPageAnalyzer(b.Table, zpSink).Analyze(mod.Program)
		return nil
	})
	g.Go(func() error {
		result.SID, result.SIDHz = hwanalysis.NewSIDAnalyzer(sidSink, o.Dialect).Analyze(mod.Program)
		return nil
	})
	g.Go(func() error {
		result.RasterHandlers = o.RasterHandlers[mod.Name]
		result.Cycles = hwanalysis.NewVICIIAnalyzer(viciiSink).Analyze(mod.Program, result.RasterHandlers)
		return nil
	})
	_ = g.Wait() // each goroutine above always returns nil

	moduleSink.Merge(zpSink)
	moduleSink.Merge(sidSink)
	moduleSink.Merge(viciiSink)
}

func formatCycle(cycle []string) string {
	return "circular import: " + strings.Join(cycle, " -> ") + " -> " + cycle[0]
}
