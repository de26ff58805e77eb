package ir

// This file provides the main entry point for the IR system.
// The IR is built in Static Single Assignment (SSA) form, then run through
// the simplification pipeline (optimizations.go) before any probe or
// transfer-engine pass ever sees it.

import (
	"github.com/uet-master/hepha/internal/lang/ast"
	"github.com/uet-master/hepha/internal/lang/semantic"
)

// BuildProgram is the main entry point for converting AST to IR.
func BuildProgram(contract *ast.Contract, context *semantic.ContextRegistry) *Program {
	builder := NewBuilder(context)
	program := builder.Build(contract)

	pipeline := NewOptimizationPipeline()
	pipeline.Run(program)

	return program
}

// PrintProgram returns a pretty-printed representation of the IR
func PrintProgram(program *Program) string {
	return Print(program)
}
