package analyzer

import (
	"testing"

	"github.com/blend65/b65c/internal/ast"
	"github.com/blend65/b65c/internal/diagnostic"
	"github.com/blend65/b65c/internal/position"
	"github.com/blend65/b65c/internal/resolver"
	"github.com/blend65/b65c/internal/types"
)

func sp() position.Span {
	return position.Span{
		Start: position.Position{Filename: "t.b65", Line: 1, Column: 1, Offset: 0},
		End:   position.Position{Filename: "t.b65", Line: 1, Column: 2, Offset: 1},
	}
}

func strPtr(s string) *string { return &s }

func buildAndResolve(t *testing.T, prog *ast.Program) (*resolver.Builder, *TypeResolver, *diagnostic.Sink) {
	t.Helper()
	sink := diagnostic.NewSink()
	b := resolver.NewBuilder(sink)
	b.Build(prog)
	r := NewTypeResolver(b)
	r.Resolve(prog)
	return b, r, sink
}

func TestTypeResolverResolvesFunctionSignature(t *testing.T) {
	fn := &ast.FunctionDecl{
		Name: "add",
		Parameters: []*ast.Param{
			{Name: "a", TypeAnnotation: "byte", SpanInfo: sp()},
			{Name: "b", TypeAnnotation: "word", SpanInfo: sp()},
		},
		ReturnType: strPtr("word"),
		SpanInfo:   sp(),
	}
	prog := &ast.Program{Declarations: []ast.Decl{fn}, SpanInfo: sp()}

	b, _, sink := buildAndResolve(t, prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", sink.All())
	}

	sym, _ := b.Table.LookupInScope(b.Table.RootScope(), "add")
	if sym.Type == nil || sym.Type.Kind != types.Function {
		t.Fatalf("expected function type, got %v", sym.Type)
	}
	if len(sym.Type.Params) != 2 || sym.Type.Params[0].Kind != types.Byte || sym.Type.Params[1].Kind != types.Word {
		t.Errorf("unexpected param types: %+v", sym.Type.Params)
	}
	if sym.Type.Return == nil || sym.Type.Return.Kind != types.Word {
		t.Errorf("unexpected return type: %v", sym.Type.Return)
	}

	fnScope := b.FunctionScopes[fn]
	aSym, _ := b.Table.LookupInScope(fnScope, "a")
	if aSym.Type.Kind != types.Byte {
		t.Errorf("param 'a' type = %v, want byte", aSym.Type)
	}
}

func TestTypeResolverVoidFunctionHasNilReturn(t *testing.T) {
	fn := &ast.FunctionDecl{Name: "tick", SpanInfo: sp()}
	prog := &ast.Program{Declarations: []ast.Decl{fn}, SpanInfo: sp()}

	b, _, sink := buildAndResolve(t, prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", sink.All())
	}
	sym, _ := b.Table.LookupInScope(b.Table.RootScope(), "tick")
	if sym.Type.Return != nil {
		t.Errorf("expected nil return type for void function, got %v", sym.Type.Return)
	}
}

func TestTypeResolverUnknownTypeEmitsDiagnostic(t *testing.T) {
	fn := &ast.FunctionDecl{
		Name:       "f",
		Parameters: []*ast.Param{{Name: "x", TypeAnnotation: "Sprite", SpanInfo: sp()}},
		SpanInfo:   sp(),
	}
	prog := &ast.Program{Declarations: []ast.Decl{fn}, SpanInfo: sp()}

	b, r, sink := buildAndResolve(t, prog)
	if !sink.HasErrors() {
		t.Fatal("expected an unknown-type diagnostic")
	}
	errs := sink.ErrorsOnly()
	if len(errs) != 1 || errs[0].Code != diagnostic.UnknownType {
		t.Errorf("errors = %+v, want one UnknownType", errs)
	}
	if r.Failed != 1 {
		t.Errorf("Failed = %d, want 1", r.Failed)
	}

	fnScope := b.FunctionScopes[fn]
	xSym, _ := b.Table.LookupInScope(fnScope, "x")
	if xSym.Type.Kind != types.Unknown {
		t.Errorf("expected unknown type for unresolved annotation, got %v", xSym.Type)
	}
}

func TestTypeResolverNestedArrayAnnotation(t *testing.T) {
	v := &ast.VariableDecl{Name: "grid", TypeAnnotation: strPtr("byte[4][8]"), SpanInfo: sp()}
	prog := &ast.Program{Declarations: []ast.Decl{v}, SpanInfo: sp()}

	b, _, sink := buildAndResolve(t, prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", sink.All())
	}
	sym, _ := b.Table.LookupInScope(b.Table.RootScope(), "grid")
	if sym.Type.Kind != types.Array || sym.Type.Count != 8 {
		t.Fatalf("outer array = %+v, want array[8]", sym.Type)
	}
	if sym.Type.Element.Kind != types.Array || sym.Type.Element.Count != 4 {
		t.Fatalf("inner array = %+v, want array[4]", sym.Type.Element)
	}
	if sym.Type.Element.Element.Kind != types.Byte {
		t.Fatalf("element type = %v, want byte", sym.Type.Element.Element)
	}
}

func TestTypeResolverUnsizedArrayAnnotation(t *testing.T) {
	v := &ast.VariableDecl{Name: "buf", TypeAnnotation: strPtr("byte[]"), SpanInfo: sp()}
	prog := &ast.Program{Declarations: []ast.Decl{v}, SpanInfo: sp()}

	b, _, sink := buildAndResolve(t, prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", sink.All())
	}
	sym, _ := b.Table.LookupInScope(b.Table.RootScope(), "buf")
	if sym.Type.Kind != types.Array || sym.Type.Count != types.Unsized {
		t.Fatalf("buf type = %+v, want unsized array", sym.Type)
	}
}

func TestTypeResolverTypeAliasResolvedBeforeUse(t *testing.T) {
	alias := &ast.TypeAliasDecl{Name: "SpriteIndex", Aliased: "byte", SpanInfo: sp()}
	v := &ast.VariableDecl{Name: "which", TypeAnnotation: strPtr("SpriteIndex"), SpanInfo: sp()}
	prog := &ast.Program{Declarations: []ast.Decl{v, alias}, SpanInfo: sp()}

	b, _, sink := buildAndResolve(t, prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", sink.All())
	}
	sym, _ := b.Table.LookupInScope(b.Table.RootScope(), "which")
	if sym.Type.Kind != types.Byte {
		t.Errorf("which type = %v, want byte (via alias)", sym.Type)
	}
}

func TestTypeResolverEnumMembersGetByteType(t *testing.T) {
	one := int64(1)
	enum := &ast.EnumDecl{
		Name: "Direction",
		Members: []*ast.EnumMember{
			{Name: "Up", SpanInfo: sp()},
			{Name: "Down", Value: &one, SpanInfo: sp()},
		},
		SpanInfo: sp(),
	}
	prog := &ast.Program{Declarations: []ast.Decl{enum}, SpanInfo: sp()}

	b, _, sink := buildAndResolve(t, prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", sink.All())
	}
	dirSym, _ := b.Table.LookupInScope(b.Table.RootScope(), "Direction")
	upSym, _ := b.Table.LookupInScope(b.Table.RootScope(), "Up")
	if dirSym.Type.Kind != types.Byte || upSym.Type.Kind != types.Byte {
		t.Errorf("enum/member types = %v / %v, want byte/byte", dirSym.Type, upSym.Type)
	}
}

func TestTypeResolverMemoryMapGetsWordType(t *testing.T) {
	mm := &ast.MemoryMapDecl{Name: "VIC", Kind: ast.MemoryMapSimple, Address: 0xD000, SpanInfo: sp()}
	prog := &ast.Program{Declarations: []ast.Decl{mm}, SpanInfo: sp()}

	b, _, sink := buildAndResolve(t, prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", sink.All())
	}
	sym, _ := b.Table.LookupInScope(b.Table.RootScope(), "VIC")
	if sym.Type.Kind != types.Word {
		t.Errorf("VIC type = %v, want word", sym.Type)
	}
}

func TestTypeResolverLocalVariableInsideFunctionBody(t *testing.T) {
	local := &ast.VariableDecl{Name: "total", TypeAnnotation: strPtr("word"), SpanInfo: sp()}
	fn := &ast.FunctionDecl{
		Name:     "sum",
		Body:     []ast.Stmt{&ast.DeclStmt{Decl: local, SpanInfo: sp()}},
		SpanInfo: sp(),
	}
	prog := &ast.Program{Declarations: []ast.Decl{fn}, SpanInfo: sp()}

	b, _, sink := buildAndResolve(t, prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", sink.All())
	}
	fnScope := b.FunctionScopes[fn]
	sym, ok := b.Table.LookupInScope(fnScope, "total")
	if !ok || sym.Type.Kind != types.Word {
		t.Fatalf("expected local 'total' resolved to word, got %+v ok=%v", sym, ok)
	}
}
