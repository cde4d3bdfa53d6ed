// Command b65c-analyze demonstrates the Blend65 semantic-analysis core
// end to end: it registers a small in-memory fixture module with the
// multi-module orchestrator, runs every pass, and prints the resulting
// diagnostics. It reads no source files — lexing and parsing are outside
// this core, so the fixture is built directly with the ast package's
// node types, the way the test suites do.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blend65/b65c/internal/ast"
	"github.com/blend65/b65c/internal/diagnostic"
	"github.com/blend65/b65c/internal/hwanalysis"
	"github.com/blend65/b65c/internal/modules"
	"github.com/blend65/b65c/internal/position"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	dialectFlag       string
	rasterHandlerFlag []string
	verboseFlag       bool
)

var rootCmd = &cobra.Command{
	Use:   "b65c-analyze",
	Short: "Run the Blend65 semantic-analysis pipeline over a built-in fixture module.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if verboseFlag {
			log.SetLevel(log.DebugLevel)
		}

		dialect := hwanalysis.PAL
		if dialectFlag == "ntsc" {
			dialect = hwanalysis.NTSC
		} else if dialectFlag != "" && dialectFlag != "pal" {
			return fmt.Errorf("unknown dialect %q, want \"pal\" or \"ntsc\"", dialectFlag)
		}

		orch := modules.NewOrchestrator()
		orch.Dialect = dialect
		orch.RasterHandlers = map[string][]string{
			"Demo.Player": rasterHandlerFlag,
		}

		regSink := diagnostic.NewSink()
		orch.Register("Demo.Player", fixtureProgram(), regSink)

		results, topSink := orch.Run()
		printDiagnostics("Demo.Player (orchestrator)", topSink.All())

		for name, result := range results {
			printDiagnostics(name, result.Sink.All())
			if result.ZeroPage != nil {
				fmt.Printf("  zero-page allocations:\n")
				for _, a := range result.ZeroPage {
					fmt.Printf("    %-12s $%02X size=%d priority=%-3d pattern=%-9s register=%s (%s)\n",
						a.Name, a.Address, a.Size, a.Priority, a.Pattern, a.Register, a.Rationale)
				}
			}
			if result.SID != hwanalysis.NoSIDUsage {
				kind := "sound effect"
				if result.SID == hwanalysis.MusicPlayer {
					kind = "music player"
				}
				fmt.Printf("  SID usage: %s, recommended IRQ rate %d Hz\n", kind, result.SIDHz)
			}
			for _, c := range result.Cycles {
				fmt.Printf("  %s: %d cycles estimated\n", c.FunctionName, c.TotalCycles)
			}
			if result.CFG != nil {
				for fn, cfg := range result.CFG.Functions {
					fmt.Printf("  cfg %s: %d blocks, entry=%d, exits=%v\n", fn, len(cfg.Blocks), cfg.Entry, cfg.Exits)
				}
			}
		}
		if orch.Layout != nil {
			fmt.Printf("global memory layout assembled from %d module(s)\n", len(results))
		}

		if topSinkHasErrors(topSink, results) {
			return fmt.Errorf("analysis reported errors")
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&dialectFlag, "dialect", "pal", `target TV system, "pal" or "ntsc"`)
	rootCmd.Flags().StringSliceVar(&rasterHandlerFlag, "raster-handler", nil,
		"function name to check against the raster-line budget (repeatable)")
	rootCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug-level trace logging")
}

func printDiagnostics(label string, diags []diagnostic.Diagnostic) {
	if len(diags) == 0 {
		fmt.Printf("%s: no diagnostics\n", label)
		return
	}
	fmt.Printf("%s:\n", label)
	for _, d := range diags {
		if d.Span.IsValid() {
			fmt.Printf("  [%s] %s: %s (%s)\n", d.Severity, d.Code, d.Message, d.Span)
		} else {
			fmt.Printf("  [%s] %s: %s\n", d.Severity, d.Code, d.Message)
		}
	}
}

func topSinkHasErrors(topSink *diagnostic.Sink, results map[string]*modules.ModuleResult) bool {
	if topSink.HasErrors() {
		return true
	}
	for _, r := range results {
		if r.Sink.HasErrors() {
			return true
		}
	}
	return false
}

// fixtureProgram builds a small module exercising every hardware
// analysis: two zero-page byte variables (one updated inside a for
// loop, one in the raster handler), a SID voice memory
// map driven by two functions (a conflict), and a raster-interrupt
// handler candidate.
func fixtureProgram() *ast.Program {
	sp := position.Span{}

	playerX := &ast.VariableDecl{Name: "player_x", TypeAnnotation: strPtr("byte"), Storage: ast.StorageZeroPage, SpanInfo: sp}
	frameCount := &ast.VariableDecl{Name: "frame_count", TypeAnnotation: strPtr("byte"), Storage: ast.StorageZeroPage, SpanInfo: sp}

	sid := &ast.MemoryMapDecl{
		Name: "sid", Kind: ast.MemoryMapSequentialStruct, Address: hwanalysis.SIDBase,
		Fields: []*ast.MemoryMapField{
			{Name: "voice1_freq_lo", TypeAnnotation: "byte", SpanInfo: sp},
			{Name: "voice1_freq_hi", TypeAnnotation: "byte", SpanInfo: sp},
			{Name: "voice1_pw_lo", TypeAnnotation: "byte", SpanInfo: sp},
			{Name: "voice1_pw_hi", TypeAnnotation: "byte", SpanInfo: sp},
			{Name: "voice1_control", TypeAnnotation: "byte", SpanInfo: sp},
			{Name: "voice1_ad", TypeAnnotation: "byte", SpanInfo: sp},
			{Name: "voice1_sr", TypeAnnotation: "byte", SpanInfo: sp},
		},
		SpanInfo: sp,
	}

	moveFn := &ast.FunctionDecl{
		Name: "move_player",
		Body: []ast.Stmt{
			&ast.ForStmt{
				Var:   "i",
				Start: &ast.Literal{Kind: ast.LiteralInt, IntValue: 0, SpanInfo: sp},
				End:   &ast.Literal{Kind: ast.LiteralInt, IntValue: 7, SpanInfo: sp},
				Body: []ast.Stmt{
					&ast.ExprStmt{SpanInfo: sp, X: &ast.AssignmentExpr{
						Target: &ast.Identifier{Name: "player_x", SpanInfo: sp},
						Op:     "+=",
						Value:  &ast.Literal{Kind: ast.LiteralInt, IntValue: 1, SpanInfo: sp},
						SpanInfo: sp,
					}},
				},
				SpanInfo: sp,
			},
		},
		SpanInfo: sp,
	}

	rasterFn := &ast.FunctionDecl{
		Name: "raster_irq",
		Body: []ast.Stmt{
			&ast.ExprStmt{SpanInfo: sp, X: &ast.AssignmentExpr{
				Target: &ast.MemberExpr{Object: &ast.Identifier{Name: "sid", SpanInfo: sp}, Property: "voice1_control", SpanInfo: sp},
				Op:     "=",
				Value:  &ast.Literal{Kind: ast.LiteralInt, IntValue: 0x21, SpanInfo: sp},
				SpanInfo: sp,
			}},
			&ast.ExprStmt{SpanInfo: sp, X: &ast.AssignmentExpr{
				Target: &ast.Identifier{Name: "frame_count", SpanInfo: sp},
				Op:     "+=",
				Value:  &ast.Literal{Kind: ast.LiteralInt, IntValue: 1, SpanInfo: sp},
				SpanInfo: sp,
			}},
		},
		SpanInfo: sp,
	}

	conflictingFn := &ast.FunctionDecl{
		Name: "stop_sound",
		Body: []ast.Stmt{
			&ast.ExprStmt{SpanInfo: sp, X: &ast.AssignmentExpr{
				Target: &ast.MemberExpr{Object: &ast.Identifier{Name: "sid", SpanInfo: sp}, Property: "voice1_control", SpanInfo: sp},
				Op:     "=",
				Value:  &ast.Literal{Kind: ast.LiteralInt, IntValue: 0, SpanInfo: sp},
				SpanInfo: sp,
			}},
		},
		SpanInfo: sp,
	}

	return &ast.Program{
		ModuleDecl: &ast.ModuleDecl{Name: "Demo.Player", Explicit: true, SpanInfo: sp},
		Declarations: []ast.Decl{
			playerX, frameCount, sid, moveFn, rasterFn, conflictingFn,
		},
		SpanInfo: sp,
	}
}

func strPtr(s string) *string { return &s }
