package lsp

import (
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/uet-master/hepha/internal/diagnostics"
	"github.com/uet-master/hepha/internal/lang/parser"
)

// ConvertParseErrors transforms parser errors into LSP diagnostics for IDE display.
// These provide immediate feedback about syntax issues like missing brackets,
// semicolons, commas in struct declarations, and other parsing problems.
func ConvertParseErrors(parseErrors []parser.ParseError) []protocol.Diagnostic {
	var diagnostics []protocol.Diagnostic

	for _, parseErr := range parseErrors {
		diagnostic := protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{
					Line:      uint32(parseErr.Position.Line - 1),   // Convert to 0-based indexing
					Character: uint32(parseErr.Position.Column - 1), // Convert to 0-based indexing
				},
				End: protocol.Position{
					Line:      uint32(parseErr.Position.Line - 1),
					Character: uint32(parseErr.Position.Column + 5), // Rough span for visibility
				},
			},
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString("hepha-parser"),
			Message:  parseErr.Message,
		}
		diagnostics = append(diagnostics, diagnostic)
	}

	return diagnostics
}

// ConvertScanErrors transforms scanner errors into LSP diagnostics for IDE display.
// These handle tokenization issues like invalid characters, unterminated strings, etc.
func ConvertScanErrors(scanErrors []parser.ScanError) []protocol.Diagnostic {
	var diagnostics []protocol.Diagnostic

	for _, scanErr := range scanErrors {
		// Use the Length field if available, otherwise default span
		endChar := uint32(scanErr.Position.Column - 1 + scanErr.Length)
		if scanErr.Length == 0 {
			endChar = uint32(scanErr.Position.Column + 3) // Default small span
		}

		diagnostic := protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{
					Line:      uint32(scanErr.Position.Line - 1),   // Convert to 0-based indexing
					Character: uint32(scanErr.Position.Column - 1), // Convert to 0-based indexing
				},
				End: protocol.Position{
					Line:      uint32(scanErr.Position.Line - 1),
					Character: endChar,
				},
			},
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString("hepha-scanner"),
			Message:  scanErr.Message,
		}
		diagnostics = append(diagnostics, diagnostic)
	}

	return diagnostics
}

// ConvertCompilerErrors transforms semantic-analysis errors into LSP
// diagnostics, the way ConvertParseErrors does for the scan/parse stage.
func ConvertCompilerErrors(errs []diagnostics.CompilerError) []protocol.Diagnostic {
	var result []protocol.Diagnostic
	for _, ce := range errs {
		result = append(result, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{
					Line:      uint32(ce.Position.Line - 1),
					Character: uint32(ce.Position.Column - 1),
				},
				End: protocol.Position{
					Line:      uint32(ce.Position.Line - 1),
					Character: uint32(ce.Position.Column - 1 + maxInt(ce.Length, 1)),
				},
			},
			Severity: ptrSeverity(severityFor(ce.Level)),
			Source:   ptrString("hepha-semantic"),
			Message:  ce.Message,
		})
	}
	return result
}

// ConvertFindings transforms probe findings (reentrancy, time manipulation,
// bad randomness, numerical precision, overflow, constant-time) into LSP
// diagnostics at Warning severity, mirroring how cmd/hepha renders them
// to the terminal via diagnostics.Render.
func ConvertFindings(findings []diagnostics.Finding) []protocol.Diagnostic {
	var result []protocol.Diagnostic
	for _, f := range findings {
		result = append(result, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{
					Line:      uint32(f.Span.Start.Line - 1),
					Character: uint32(f.Span.Start.Column - 1),
				},
				End: protocol.Position{
					Line:      uint32(endLine(f.Span) - 1),
					Character: uint32(endColumn(f.Span)),
				},
			},
			Severity: ptrSeverity(protocol.DiagnosticSeverityWarning),
			Source:   ptrString("hepha-analysis"),
			Message:  f.Message,
		})
	}
	return result
}

func endLine(s diagnostics.Span) int {
	if s.End == (s.Start) {
		return s.Start.Line
	}
	return s.End.Line
}

func endColumn(s diagnostics.Span) int {
	if s.End == (s.Start) {
		return s.Start.Column - 1 + 5
	}
	return s.End.Column
}

func severityFor(level diagnostics.ErrorLevel) protocol.DiagnosticSeverity {
	switch level {
	case diagnostics.Warning:
		return protocol.DiagnosticSeverityWarning
	case diagnostics.Note, diagnostics.Help:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityError
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}
