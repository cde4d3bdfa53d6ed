package analyzer

import (
	"testing"

	"github.com/blend65/b65c/internal/ast"
	"github.com/blend65/b65c/internal/diagnostic"
	"github.com/blend65/b65c/internal/resolver"
)

func buildCFG(t *testing.T, prog *ast.Program) (*CFGAnalyzer, *diagnostic.Sink) {
	t.Helper()
	sink := diagnostic.NewSink()
	b := resolver.NewBuilder(sink)
	b.Build(prog)
	a := NewCFGAnalyzer(b)
	a.Analyze(prog)
	return a, sink
}

// Scenario E: dead code after a return statement.
func TestCFGDeadCodeAfterReturn(t *testing.T) {
	fn := &ast.FunctionDecl{
		Name: "f",
		Body: []ast.Stmt{
			&ast.ReturnStmt{SpanInfo: sp()},
			&ast.ExprStmt{X: ident("ghost"), SpanInfo: sp()},
		},
		SpanInfo: sp(),
	}
	prog := &ast.Program{Declarations: []ast.Decl{fn}, SpanInfo: sp()}

	_, sink := buildCFG(t, prog)
	warnings := filterBySeverity(sink, diagnostic.Warning)
	if len(warnings) != 1 || warnings[0].Code != diagnostic.DeadCode {
		t.Fatalf("warnings = %+v, want one DeadCode", warnings)
	}
}

func TestCFGOnlyFirstUnreachableStatementReported(t *testing.T) {
	fn := &ast.FunctionDecl{
		Name: "f",
		Body: []ast.Stmt{
			&ast.ReturnStmt{SpanInfo: sp()},
			&ast.ExprStmt{X: ident("a"), SpanInfo: sp()},
			&ast.ExprStmt{X: ident("b"), SpanInfo: sp()},
		},
		SpanInfo: sp(),
	}
	prog := &ast.Program{Declarations: []ast.Decl{fn}, SpanInfo: sp()}

	_, sink := buildCFG(t, prog)
	warnings := filterBySeverity(sink, diagnostic.Warning)
	if len(warnings) != 1 {
		t.Fatalf("warnings = %+v, want exactly one dead-code warning for the whole unreachable run", warnings)
	}
}

func TestCFGMissingReturnWarnsWhenFunctionFallsThrough(t *testing.T) {
	fn := &ast.FunctionDecl{
		Name:       "f",
		ReturnType: strPtr("byte"),
		Body:       []ast.Stmt{&ast.ExprStmt{X: intLit(1), SpanInfo: sp()}},
		SpanInfo:   sp(),
	}
	prog := &ast.Program{Declarations: []ast.Decl{fn}, SpanInfo: sp()}

	_, sink := buildCFG(t, prog)
	warnings := filterBySeverity(sink, diagnostic.Warning)
	if len(warnings) != 1 || warnings[0].Code != diagnostic.MissingReturn {
		t.Fatalf("warnings = %+v, want one MissingReturn", warnings)
	}
}

func TestCFGNoMissingReturnWhenEveryPathReturns(t *testing.T) {
	ifStmt := &ast.IfStmt{
		Cond:     &ast.Literal{Kind: ast.LiteralBool, BoolValue: true, SpanInfo: sp()},
		Then:     []ast.Stmt{&ast.ReturnStmt{Value: intLit(1), SpanInfo: sp()}},
		Else:     []ast.Stmt{&ast.ReturnStmt{Value: intLit(2), SpanInfo: sp()}},
		SpanInfo: sp(),
	}
	fn := &ast.FunctionDecl{Name: "f", ReturnType: strPtr("byte"), Body: []ast.Stmt{ifStmt}, SpanInfo: sp()}
	prog := &ast.Program{Declarations: []ast.Decl{fn}, SpanInfo: sp()}

	_, sink := buildCFG(t, prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", sink.All())
	}
	for _, d := range sink.All() {
		if d.Code == diagnostic.MissingReturn {
			t.Errorf("unexpected MissingReturn when both if/else branches return")
		}
	}
}

func TestCFGIfWithoutElseAlwaysFallsThrough(t *testing.T) {
	ifStmt := &ast.IfStmt{
		Cond:     &ast.Literal{Kind: ast.LiteralBool, BoolValue: true, SpanInfo: sp()},
		Then:     []ast.Stmt{&ast.ReturnStmt{Value: intLit(1), SpanInfo: sp()}},
		SpanInfo: sp(),
	}
	fn := &ast.FunctionDecl{Name: "f", ReturnType: strPtr("byte"), Body: []ast.Stmt{ifStmt}, SpanInfo: sp()}
	prog := &ast.Program{Declarations: []ast.Decl{fn}, SpanInfo: sp()}

	_, sink := buildCFG(t, prog)
	warnings := filterBySeverity(sink, diagnostic.Warning)
	if len(warnings) != 1 || warnings[0].Code != diagnostic.MissingReturn {
		t.Fatalf("warnings = %+v, want one MissingReturn (the false branch falls through)", warnings)
	}
}

func TestCFGSwitchWithDefaultCoveringAllCasesHasNoMissingReturn(t *testing.T) {
	sw := &ast.SwitchStmt{
		Value: ident("x"),
		Cases: []*ast.SwitchCase{
			{Match: intLit(1), Body: []ast.Stmt{&ast.ReturnStmt{Value: intLit(1), SpanInfo: sp()}}, SpanInfo: sp()},
			{Default: true, Body: []ast.Stmt{&ast.ReturnStmt{Value: intLit(0), SpanInfo: sp()}}, SpanInfo: sp()},
		},
		SpanInfo: sp(),
	}
	fn := &ast.FunctionDecl{
		Name:       "f",
		ReturnType: strPtr("byte"),
		Parameters: []*ast.Param{{Name: "x", TypeAnnotation: "byte", SpanInfo: sp()}},
		Body:       []ast.Stmt{sw},
		SpanInfo:   sp(),
	}
	prog := &ast.Program{Declarations: []ast.Decl{fn}, SpanInfo: sp()}

	_, sink := buildCFG(t, prog)
	for _, d := range sink.All() {
		if d.Code == diagnostic.MissingReturn {
			t.Errorf("unexpected MissingReturn for a switch with a returning default covering all cases")
		}
	}
}

func filterBySeverity(sink *diagnostic.Sink, sev diagnostic.Severity) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for _, d := range sink.All() {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}
