// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/uet-master/hepha/internal/callgraph"
	"github.com/uet-master/hepha/internal/config"
	"github.com/uet-master/hepha/internal/diagnostics"
	"github.com/uet-master/hepha/internal/env"
	"github.com/uet-master/hepha/internal/fixpoint"
	"github.com/uet-master/hepha/internal/ir"
	"github.com/uet-master/hepha/internal/lang/parser"
	"github.com/uet-master/hepha/internal/lang/semantic"
	"github.com/uet-master/hepha/internal/path"
	"github.com/uet-master/hepha/internal/probes"
	"github.com/uet-master/hepha/internal/summary"
	"github.com/uet-master/hepha/internal/transfer"
)

func main() {
	cfg := config.Default()

	diagFlag := flag.String("diag", string(config.DiagDefault), "diagnostic level: default, verify, library, paranoid")
	flag.DurationVar(&cfg.BodyAnalysisTimeout, "body-analysis-timeout", cfg.BodyAnalysisTimeout, "per-function analysis budget")
	flag.DurationVar(&cfg.CrateAnalysisTimeout, "crate-analysis-timeout", cfg.CrateAnalysisTimeout, "whole-contract analysis budget")
	flag.StringVar(&cfg.ConstantTime, "constant-time", "", "flag values of this tagged type that leak into a timing-observable operation")
	flag.StringVar(&cfg.SingleFunc, "single-func", "", "restrict analysis to one function by name")
	flag.BoolVar(&cfg.PrintIR, "print-ir", false, "dump the built IR before analysis")
	flag.BoolVar(&cfg.PrintAST, "print-ast", false, "dump the parsed AST before analysis")
	flag.Parse()
	cfg.Diag = config.DiagLevel(*diagFlag)

	args := flag.Args()
	if len(args) < 1 {
		fmt.Println("Usage: hepha [flags] <file.ka>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(args[0], cfg); err != nil {
		color.Red("error: %s", err)
		os.Exit(1)
	}
}

func run(srcPath string, cfg config.Options) error {
	source, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", srcPath, err)
	}

	contract, parseErrors, scanErrors := parser.ParseSource(srcPath, string(source))
	if len(scanErrors) > 0 || len(parseErrors) > 0 {
		for _, se := range scanErrors {
			color.Red("scan error: %s", se.Message)
		}
		for _, pe := range parseErrors {
			color.Red("parse error: %s", pe.Message)
		}
		return fmt.Errorf("%s: %d scan error(s), %d parse error(s)", srcPath, len(scanErrors), len(parseErrors))
	}

	if cfg.PrintAST {
		fmt.Println(contract.String())
	}

	analyzer := semantic.NewAnalyzer()
	if semErrors := analyzer.Analyze(contract); len(semErrors) > 0 {
		reporter := diagnostics.NewErrorReporter(srcPath, string(source))
		for _, ce := range analyzer.GetErrors() {
			fmt.Println(reporter.FormatError(ce))
		}
		return fmt.Errorf("%s: %d semantic error(s)", srcPath, len(semErrors))
	}

	program := ir.BuildProgram(contract, analyzer.GetContext())

	if cfg.PrintIR {
		fmt.Println(ir.PrintProgram(program))
	}

	buf := diagnostics.NewBuffer(srcPath)
	if err := analyzeProgram(srcPath, program, cfg, buf); err != nil {
		return err
	}

	findings := buf.All()
	if cfg.Diag != config.DiagParanoid {
		findings = buf.Cancel()
	}
	for _, f := range findings {
		fmt.Println(diagnostics.Render(f))
	}

	color.Green("analyzed %s (%d function(s), %d finding(s))", srcPath, len(program.Functions), len(findings))
	return nil
}

// analyzeProgram runs the fixed-point transfer over every function (or
// just --single-func's), building the static call graph first so callees
// are summarized before their callers reach a call site that targets
// them (spec §4.F's call-summary strategy).
func analyzeProgram(srcPath string, program *ir.Program, cfg config.Options, buf *diagnostics.Buffer) error {
	balance := probes.InferBalanceVariable(program.Storage)
	summaries := summary.NewStore()

	graph := callgraph.Build(program.Functions)
	order := callgraph.PostOrder(graph, callgraph.Roots(graph))
	seen := make(map[string]bool, len(order))
	for _, n := range order {
		seen[n.Func.Name] = true
	}
	for _, fn := range program.Functions {
		if !seen[fn.Name] {
			order = append(order, &callgraph.Node{Func: fn})
		}
	}

	start := time.Now()
	for _, node := range order {
		if cfg.CrateAnalysisTimeout > 0 && time.Since(start) > cfg.CrateAnalysisTimeout {
			break
		}
		fn := node.Func
		if cfg.SingleFunc != "" && fn.Name != cfg.SingleFunc {
			continue
		}
		if err := analyzeFunction(srcPath, fn, cfg, summaries, balance, buf); err != nil {
			return fmt.Errorf("function %s: %w", fn.Name, err)
		}
	}
	return nil
}

func analyzeFunction(srcPath string, fn *ir.Function, cfg config.Options, summaries *summary.Store, balance path.Path, buf *diagnostics.Buffer) error {
	if fn.Entry == nil {
		return nil
	}
	if !summaries.Enter(fn.DefID) {
		// Already on the stack: mutual/self recursion. Skip summarizing
		// this call site rather than deadlock; callers fall back to an
		// UninterpretedCall for it.
		return nil
	}
	defer summaries.Leave(fn.DefID)

	state := transfer.NewState(cfg)
	state.Summaries = summaries

	fn.ComputeDominators()
	result, err := fixpoint.Run(fn, state.Seed(fn), state.Step, cfg)
	if err != nil {
		return err
	}

	out := make(map[string]env.Environment, len(fn.Blocks))
	for _, b := range fn.Blocks {
		if e, ok := result.Out[b]; ok {
			out[b.Label] = e
		}
	}

	st := probes.NewBodyState(fn, srcPath, out)
	st.BalanceVariable = balance

	for _, p := range probes.All(st, cfg.ConstantTime) {
		if p.Check() {
			buf.StructSpanWarn(p.Span(), findingMessage(p), provenanceFor(fn)...)
		}
	}

	if sm, ok := buildSummary(fn, result); ok {
		summaries.Put(fn.DefID, sm)
	}
	return nil
}

// provenanceFor attaches no call-chain provenance for a finding found
// directly in fn's own body (depth 0); call-summary-driven findings one
// hop away get their provenance recorded where the call is instantiated.
func provenanceFor(fn *ir.Function) []diagnostics.Provenance { return nil }

// buildSummary looks for fn's return terminator and reads its operand's
// converged value out of that block's exit environment, the way the
// transfer engine would if it re-analyzed fn's body inline — giving
// call sites a real ResultValue to substitute instead of an opaque call.
func buildSummary(fn *ir.Function, result *fixpoint.Result) (summary.Summary, bool) {
	for _, b := range fn.Blocks {
		ret, ok := b.Terminator.(*ir.ReturnTerminator)
		if !ok || ret.Value == nil {
			continue
		}
		out, ok := result.Out[b]
		if !ok {
			continue
		}
		rv, ok := out.Get(path.Local{Index: ret.Value.ID, Type: ret.Value.Type})
		if !ok {
			continue
		}
		return summary.Summary{DefID: fn.DefID, ResultValue: rv, ResultPath: path.Result{}, ExitEnv: out}, true
	}
	return summary.Summary{}, false
}

func findingMessage(p probes.Probe) string {
	switch p.(type) {
	case *probes.ReentrancyProbe:
		return "reentrancy: state write follows an external value transfer"
	case *probes.TimeManipulationProbe:
		return "time manipulation: block timestamp flows into a guard"
	case *probes.BadRandomnessProbe:
		return "bad randomness: weak entropy source flows into a guard or modulus"
	case *probes.NumericalPrecisionProbe:
		return "numerical precision: division result is multiplied before use"
	case *probes.OverflowProbe:
		return "arithmetic overflow: checked operation is statically known to overflow"
	case *probes.ConstantTimeProbe:
		return "constant time: tagged value leaks into a timing-observable operation"
	default:
		return "finding"
	}
}
