// Package repl SPDX-License-Identifier: Apache-2.0
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/uet-master/hepha/internal/callgraph"
	"github.com/uet-master/hepha/internal/config"
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

const PROMPT = ">> "

// Start reads whole contracts from r, one paragraph at a time (ended by
// a blank line or EOF), and writes the built IR plus any probe findings
// for every function to out — a REPL over the same pipeline cmd/hepha
// drives, for poking at a snippet without writing it to a file first.
func Start(out io.Writer, r io.Reader) {
	scanner := bufio.NewScanner(r)
	cfg := config.Default()

	var buf strings.Builder
	flush := func() {
		source := buf.String()
		buf.Reset()
		if strings.TrimSpace(source) == "" {
			return
		}
		evalContract(out, source, cfg)
	}

	for {
		fmt.Fprint(out, PROMPT)
		if !scanner.Scan() {
			flush()
			return
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
}

func evalContract(out io.Writer, source string, cfg config.Options) {
	contract, parseErrors, scanErrors := parser.ParseSource("repl", source)
	for _, se := range scanErrors {
		fmt.Fprintf(out, "scan error: %s\n", se.Message)
	}
	for _, pe := range parseErrors {
		fmt.Fprintf(out, "parse error: %s\n", pe.Message)
	}
	if len(scanErrors) > 0 || len(parseErrors) > 0 {
		return
	}

	analyzer := semantic.NewAnalyzer()
	if semErrors := analyzer.Analyze(contract); len(semErrors) > 0 {
		for _, se := range semErrors {
			fmt.Fprintf(out, "semantic error: %s\n", se.Message)
		}
		return
	}

	program := ir.BuildProgram(contract, analyzer.GetContext())
	fmt.Fprintln(out, ir.PrintProgram(program))

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
	for _, node := range order {
		evalFunction(out, node.Func, cfg, summaries, balance)
	}
}

func evalFunction(out io.Writer, fn *ir.Function, cfg config.Options, summaries *summary.Store, balance path.Path) {
	if fn.Entry == nil || !summaries.Enter(fn.DefID) {
		return
	}
	defer summaries.Leave(fn.DefID)

	state := transfer.NewState(cfg)
	state.Summaries = summaries
	fn.ComputeDominators()
	result, err := fixpoint.Run(fn, state.Seed(fn), state.Step, cfg)
	if err != nil {
		fmt.Fprintf(out, "%s: %s\n", fn.Name, err)
		return
	}

	st := probes.NewBodyState(fn, "repl", labeledOut(fn, result))
	st.BalanceVariable = balance
	for _, p := range probes.All(st, cfg.ConstantTime) {
		if p.Check() {
			fmt.Fprintf(out, "%s: %s\n", fn.Name, p.Span())
		}
	}
}

func labeledOut(fn *ir.Function, result *fixpoint.Result) map[string]env.Environment {
	out := make(map[string]env.Environment, len(fn.Blocks))
	for _, b := range fn.Blocks {
		if e, ok := result.Out[b]; ok {
			out[b.Label] = e
		}
	}
	return out
}
