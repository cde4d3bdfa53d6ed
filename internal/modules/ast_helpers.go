package modules

import "github.com/blend65/b65c/internal/ast"

// unwrapImport extracts an *ast.ImportDecl from a top-level declaration,
// unwrapping an export wrapper if present (imports are never themselves
// exported, but the parser's grammar does not prevent it syntactically).
func unwrapImport(d ast.Decl) (*ast.ImportDecl, bool) {
	if wrapper, ok := d.(*ast.ExportDecl); ok {
		d = wrapper.Wrapped
	}
	imp, ok := d.(*ast.ImportDecl)
	return imp, ok
}
