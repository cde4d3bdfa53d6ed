package modules

import (
	"testing"

	"github.com/blend65/b65c/internal/ast"
	"github.com/blend65/b65c/internal/diagnostic"
	"github.com/blend65/b65c/internal/position"
)

func testSpan() position.Span {
	return position.Span{
		Start: position.Position{Filename: "t.b65", Line: 1, Column: 1, Offset: 0},
		End:   position.Position{Filename: "t.b65", Line: 1, Column: 2, Offset: 1},
	}
}

// Scenario D: circular import between two modules must fail fast and
// run no per-module analysis.
func TestOrchestratorCircularImportFailsFast(t *testing.T) {
	regSink := diagnostic.NewSink()
	o := NewOrchestrator()

	progA := &ast.Program{
		ModuleDecl:   &ast.ModuleDecl{Name: "Game.A", Explicit: true, SpanInfo: testSpan()},
		Declarations: []ast.Decl{&ast.ImportDecl{ModulePath: "Game.B", Identifiers: []string{"thing"}, SpanInfo: testSpan()}},
		SpanInfo:     testSpan(),
	}
	progB := &ast.Program{
		ModuleDecl:   &ast.ModuleDecl{Name: "Game.B", Explicit: true, SpanInfo: testSpan()},
		Declarations: []ast.Decl{&ast.ImportDecl{ModulePath: "Game.A", Identifiers: []string{"other"}, SpanInfo: testSpan()}},
		SpanInfo:     testSpan(),
	}
	o.Register("Game.A", progA, regSink)
	o.Register("Game.B", progB, regSink)

	results, sink := o.Run()
	if results != nil {
		t.Fatal("expected nil results when the import graph is circular")
	}
	errs := sink.ErrorsOnly()
	if len(errs) != 1 || errs[0].Code != diagnostic.CircularImport {
		t.Fatalf("errors = %+v, want one CircularImport", errs)
	}
}

func TestOrchestratorImportModuleNotFound(t *testing.T) {
	regSink := diagnostic.NewSink()
	o := NewOrchestrator()
	prog := &ast.Program{
		ModuleDecl:   &ast.ModuleDecl{Name: "Game.Main", Explicit: true, SpanInfo: testSpan()},
		Declarations: []ast.Decl{&ast.ImportDecl{ModulePath: "Game.Missing", Identifiers: []string{"x"}, SpanInfo: testSpan()}},
		SpanInfo:     testSpan(),
	}
	o.Register("Game.Main", prog, regSink)

	_, sink := o.Run()
	errs := sink.ErrorsOnly()
	if len(errs) != 1 || errs[0].Code != diagnostic.ImportModuleNotFound {
		t.Fatalf("errors = %+v, want one ImportModuleNotFound", errs)
	}
}

// Scenario F: an imported symbol that is never referenced gets a
// hint-level unused-import diagnostic.
func TestOrchestratorUnusedImportHint(t *testing.T) {
	regSink := diagnostic.NewSink()
	o := NewOrchestrator()

	palette := &ast.Program{
		ModuleDecl: &ast.ModuleDecl{Name: "Game.Palette", Explicit: true, SpanInfo: testSpan()},
		Declarations: []ast.Decl{
			&ast.ExportDecl{Wrapped: &ast.FunctionDecl{
				Name:       "set_border",
				Parameters: []*ast.Param{{Name: "c", TypeAnnotation: "byte", SpanInfo: testSpan()}},
				SpanInfo:   testSpan(),
			}, SpanInfo: testSpan()},
		},
		SpanInfo: testSpan(),
	}
	main := &ast.Program{
		ModuleDecl: &ast.ModuleDecl{Name: "Game.Main", Explicit: true, SpanInfo: testSpan()},
		Declarations: []ast.Decl{
			&ast.ImportDecl{ModulePath: "Game.Palette", Identifiers: []string{"set_border"}, SpanInfo: testSpan()},
			&ast.FunctionDecl{Name: "main", SpanInfo: testSpan()},
		},
		SpanInfo: testSpan(),
	}
	o.Register("Game.Palette", palette, regSink)
	o.Register("Game.Main", main, regSink)

	results, _ := o.Run()
	if results == nil {
		t.Fatal("expected results for an acyclic import graph")
	}
	mainResult := results["Game.Main"]
	if mainResult == nil {
		t.Fatal("expected a result for Game.Main")
	}

	var hints []diagnostic.Diagnostic
	for _, d := range mainResult.Sink.All() {
		if d.Severity == diagnostic.Hint {
			hints = append(hints, d)
		}
	}
	if len(hints) != 1 || hints[0].Code != diagnostic.UnusedImport {
		t.Fatalf("hints = %+v, want one UnusedImport", hints)
	}
}

// Testable property #7: the orchestrator assembles a cross-module memory
// layout after the per-module loop and reports overlaps that no single
// module's own analysis could see.
func TestOrchestratorGlobalMemoryLayoutDetectsCrossModuleOverlap(t *testing.T) {
	regSink := diagnostic.NewSink()
	o := NewOrchestrator()

	video := &ast.Program{
		ModuleDecl: &ast.ModuleDecl{Name: "Game.Video", Explicit: true, SpanInfo: testSpan()},
		Declarations: []ast.Decl{
			&ast.MemoryMapDecl{Name: "vic", Kind: ast.MemoryMapSimple, Address: 0xD000, SpanInfo: testSpan()},
		},
		SpanInfo: testSpan(),
	}
	sprites := &ast.Program{
		ModuleDecl: &ast.ModuleDecl{Name: "Game.Sprites", Explicit: true, SpanInfo: testSpan()},
		Declarations: []ast.Decl{
			&ast.MemoryMapDecl{Name: "sprite_ptrs", Kind: ast.MemoryMapRange, Address: 0xCFF0, End: 0xD010, SpanInfo: testSpan()},
		},
		SpanInfo: testSpan(),
	}
	o.Register("Game.Video", video, regSink)
	o.Register("Game.Sprites", sprites, regSink)

	_, sink := o.Run()

	if o.Layout == nil {
		t.Fatal("expected Run to assemble a global memory layout")
	}
	found := false
	for _, d := range sink.All() {
		if d.Code == diagnostic.MemoryMapOverlap {
			found = true
		}
	}
	if !found {
		t.Fatalf("diagnostics = %+v, want a MEMORY_MAP_OVERLAP from the cross-module layout check", sink.All())
	}
}

func TestOrchestratorCrossModuleImportTypedAfterDependencyAnalyzed(t *testing.T) {
	regSink := diagnostic.NewSink()
	o := NewOrchestrator()

	palette := &ast.Program{
		ModuleDecl: &ast.ModuleDecl{Name: "Game.Palette", Explicit: true, SpanInfo: testSpan()},
		Declarations: []ast.Decl{
			&ast.ExportDecl{Wrapped: &ast.FunctionDecl{
				Name:       "set_border",
				Parameters: []*ast.Param{{Name: "c", TypeAnnotation: "byte", SpanInfo: testSpan()}},
				SpanInfo:   testSpan(),
			}, SpanInfo: testSpan()},
		},
		SpanInfo: testSpan(),
	}
	main := &ast.Program{
		ModuleDecl: &ast.ModuleDecl{Name: "Game.Main", Explicit: true, SpanInfo: testSpan()},
		Declarations: []ast.Decl{
			&ast.ImportDecl{ModulePath: "Game.Palette", Identifiers: []string{"set_border"}, SpanInfo: testSpan()},
			&ast.FunctionDecl{
				Name: "main",
				Body: []ast.Stmt{
					&ast.ExprStmt{X: &ast.CallExpr{
						Callee:   &ast.Identifier{Name: "set_border", SpanInfo: testSpan()},
						Args:     []ast.Expr{&ast.Literal{Kind: ast.LiteralInt, IntValue: 0, SpanInfo: testSpan()}},
						SpanInfo: testSpan(),
					}, SpanInfo: testSpan()},
				},
				SpanInfo: testSpan(),
			},
		},
		SpanInfo: testSpan(),
	}
	o.Register("Game.Palette", palette, regSink)
	o.Register("Game.Main", main, regSink)

	results, sink := o.Run()
	if sink.HasErrors() {
		t.Fatalf("unexpected orchestrator diagnostics: %+v", sink.All())
	}
	mainResult := results["Game.Main"]
	if mainResult.Sink.HasErrors() {
		t.Fatalf("unexpected Game.Main diagnostics: %+v", mainResult.Sink.All())
	}
}
