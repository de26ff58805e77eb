package diagnostics

import (
	"fmt"

	"github.com/uet-master/hepha/internal/lang/ast"
)

// Span names the source range a probe finding points at — a start/end
// pair rather than CompilerError's single Position+Length, since a
// finding like reentrancy spans from the external call site to the
// state write that follows it (spec §7).
type Span struct {
	Start ast.Position
	End   ast.Position
	File  string
}

func (s Span) String() string {
	if s.End == (ast.Position{}) || s.End == s.Start {
		return fmt.Sprintf("%s:%d:%d", s.File, s.Start.Line, s.Start.Column)
	}
	return fmt.Sprintf("%s:%d:%d-%d:%d", s.File, s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
}

// Provenance records the call-chain a warning was raised through when its
// defining span is several calls deep from the function currently being
// checked — kept so a diagnostic can say "via foo() called from bar()"
// without materializing the whole stack up front.
type Provenance struct {
	FunctionName string
	Span         Span
}

// Finding is one buffered probe warning awaiting Cancel filtering and
// emission.
type Finding struct {
	Message    string
	Span       Span
	Provenance []Provenance
	// Depth is how many calls deep the finding's root cause sits relative
	// to the function under analysis; depth 0 means it was found directly
	// in the function's own body.
	Depth int
	// Generated marks a finding whose span lands on a desugared/generated
	// AST node (this front end has no derive-macro equivalent, so this is
	// the "compiler-generated code" bucket from spec §7).
	Generated bool
}

// Buffer accumulates probe warnings across one fixed-point run and
// applies the noise-suppression policy from spec §7 before they are
// rendered, mirroring ErrorReporter's formatting but at Warning severity
// with provenance chains instead of a single position.
type Buffer struct {
	filename string
	findings []Finding
}

// NewBuffer returns an empty warning buffer for one source file.
func NewBuffer(filename string) *Buffer {
	return &Buffer{filename: filename}
}

// StructSpanWarn appends a warning with a structured span and optional
// call-chain provenance (spec §6/§7's StructSpanWarn).
func (b *Buffer) StructSpanWarn(span Span, message string, provenance ...Provenance) {
	b.findings = append(b.findings, Finding{Message: message, Span: span, Provenance: provenance, Depth: len(provenance)})
}

// Cancel drops findings that the default diagnostic policy considers
// noise: those on generated/desugared nodes, and those whose provenance
// chain is deeper than one call — returns the survivors without mutating
// the buffer, so callers in --diag paranoid mode can skip the filter
// entirely and render everything.
func (b *Buffer) Cancel() []Finding {
	kept := make([]Finding, 0, len(b.findings))
	for _, f := range b.findings {
		if f.Generated {
			continue
		}
		if f.Depth > 1 {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// All returns every buffered finding, unfiltered (used by --diag
// paranoid).
func (b *Buffer) All() []Finding {
	return append([]Finding(nil), b.findings...)
}

// Render formats a finding the way ErrorReporter formats a CompilerError,
// but at Warning level and without a source-line excerpt (a probe finding
// may span multiple basic blocks, so there is no single line to quote).
func Render(f Finding) string {
	msg := fmt.Sprintf("warning: %s\n  --> %s", f.Message, f.Span)
	for _, p := range f.Provenance {
		msg += fmt.Sprintf("\n  note: via %s at %s", p.FunctionName, p.Span)
	}
	return msg
}
