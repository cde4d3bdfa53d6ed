package hwanalysis

import (
	"testing"

	"github.com/blend65/b65c/internal/ast"
	"github.com/blend65/b65c/internal/diagnostic"
)

func alloc(name string, addr int64, size int) VarAllocation {
	return VarAllocation{Name: name, Address: addr, Size: size}
}

func TestMemoryLayoutZeroPageOverflowAcrossModules(t *testing.T) {
	sink := diagnostic.NewSink()
	layout := NewMemoryLayout(sink)

	// Two modules each claim more than half the safe range, overflowing
	// the shared budget even though neither overlaps the other.
	half := ZPSafeCapacity/2 + 1
	layout.AddZeroPage("Game.Player", []VarAllocation{alloc("px", ZPSafeStart, half)})
	layout.AddZeroPage("Game.Enemy", []VarAllocation{alloc("ex", int64(ZPSafeStart+half), half)})
	layout.Check()

	errs := sink.ErrorsOnly()
	found := false
	for _, e := range errs {
		if e.Code == diagnostic.ZeroPageOverflow {
			found = true
		}
	}
	if !found {
		t.Fatalf("errors = %+v, want a ZERO_PAGE_OVERFLOW", errs)
	}
}

func TestMemoryLayoutNoOverflowWithinCapacity(t *testing.T) {
	sink := diagnostic.NewSink()
	layout := NewMemoryLayout(sink)
	layout.AddZeroPage("Game.Player", []VarAllocation{alloc("px", ZPSafeStart, 4)})
	layout.Check()
	if sink.HasErrors() {
		t.Fatalf("expected no errors, got %+v", sink.ErrorsOnly())
	}
}

func TestMemoryLayoutOverlappingMemoryMapDeclarations(t *testing.T) {
	sink := diagnostic.NewSink()
	layout := NewMemoryLayout(sink)

	vicProg := &ast.Program{Declarations: []ast.Decl{
		&ast.MemoryMapDecl{Name: "vic", Kind: ast.MemoryMapSimple, Address: 0xD000, SpanInfo: sp()},
	}, SpanInfo: sp()}
	spriteProg := &ast.Program{Declarations: []ast.Decl{
		&ast.MemoryMapDecl{
			Name: "sprite_ptrs", Kind: ast.MemoryMapRange, Address: 0xCFF0, End: 0xD010, SpanInfo: sp(),
		},
	}, SpanInfo: sp()}

	layout.AddMemoryMap("Game.Video", vicProg)
	layout.AddMemoryMap("Game.Sprites", spriteProg)
	layout.Check()

	errs := sink.ErrorsOnly()
	found := false
	for _, e := range errs {
		if e.Code == diagnostic.MemoryMapOverlap {
			found = true
		}
	}
	if !found {
		t.Fatalf("errors = %+v, want a MEMORY_MAP_OVERLAP", errs)
	}
}

func TestMemoryLayoutDistinctMemoryMapsDoNotOverlap(t *testing.T) {
	sink := diagnostic.NewSink()
	layout := NewMemoryLayout(sink)

	vicProg := &ast.Program{Declarations: []ast.Decl{
		&ast.MemoryMapDecl{Name: "vic", Kind: ast.MemoryMapSimple, Address: 0xD000, SpanInfo: sp()},
	}, SpanInfo: sp()}
	sidProg := &ast.Program{Declarations: []ast.Decl{
		&ast.MemoryMapDecl{Name: "sid", Kind: ast.MemoryMapSimple, Address: 0xD400, SpanInfo: sp()},
	}, SpanInfo: sp()}

	layout.AddMemoryMap("Game.Video", vicProg)
	layout.AddMemoryMap("Game.Sound", sidProg)
	layout.Check()

	if sink.HasErrors() {
		t.Fatalf("expected no errors, got %+v", sink.ErrorsOnly())
	}
}

func TestMemoryLayoutZeroPageMapOverlap(t *testing.T) {
	sink := diagnostic.NewSink()
	layout := NewMemoryLayout(sink)

	// A zero-page allocation colliding with a memory-map declaration that
	// (unusually) claims a zero-page address.
	layout.AddZeroPage("Game.Player", []VarAllocation{alloc("px", 0x20, 2)})
	mapProg := &ast.Program{Declarations: []ast.Decl{
		&ast.MemoryMapDecl{Name: "custom_io", Kind: ast.MemoryMapSimple, Address: 0x21, SpanInfo: sp()},
	}, SpanInfo: sp()}
	layout.AddMemoryMap("Game.Hardware", mapProg)
	layout.Check()

	errs := sink.ErrorsOnly()
	found := false
	for _, e := range errs {
		if e.Code == diagnostic.ZeroPageMapOverlap {
			found = true
		}
	}
	if !found {
		t.Fatalf("errors = %+v, want a ZERO_PAGE_MAP_OVERLAP", errs)
	}
}
