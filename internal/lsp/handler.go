package lsp

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/uet-master/hepha/internal/callgraph"
	"github.com/uet-master/hepha/internal/config"
	"github.com/uet-master/hepha/internal/diagnostics"
	"github.com/uet-master/hepha/internal/env"
	"github.com/uet-master/hepha/internal/fixpoint"
	"github.com/uet-master/hepha/internal/ir"
	"github.com/uet-master/hepha/internal/lang/ast"
	"github.com/uet-master/hepha/internal/lang/parser"
	"github.com/uet-master/hepha/internal/lang/semantic"
	"github.com/uet-master/hepha/internal/probes"
	"github.com/uet-master/hepha/internal/summary"
	"github.com/uet-master/hepha/internal/transfer"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Define the set of supported semantic token types (as required by the LSP spec)
var SemanticTokenTypes = []string{
	"namespace",
	"type",
	"typeParameter",
	"function",
	"variable",
	"parameter",
	"property",
	"keyword",
	"number",
	"operator",
	"modifier",
}

// Define the set of supported semantic token modifiers (for extra tagging like declaration, readonly, etc.)
var SemanticTokenModifiers = []string{
	"declaration",
	"definition",
	"readonly",
	"static",
	"deprecated",
	"abstract",
}

// HephaHandler implements the LSP server handlers for the Kanso contract
// language, pushing whole-program diagnostics (parse, semantic, and the
// probe findings cmd/hepha reports) as the editor opens and edits files.
type HephaHandler struct {
	mu      sync.RWMutex
	content map[string]string
	asts    map[string]*ast.Contract
	cfg     config.Options
}

// NewHephaHandler creates and returns a new HephaHandler instance
func NewHephaHandler() *HephaHandler {
	return &HephaHandler{
		content: make(map[string]string),
		asts:    make(map[string]*ast.Contract),
		cfg:     config.Default(),
	}
}

// Initialize responds to the LSP client's initialize request and advertises the server's capabilities
func (h *HephaHandler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Println("LSP Initialize called")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true), // notify on open/close events
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			CompletionProvider: &protocol.CompletionOptions{
				ResolveProvider: ptrBool(false), // no additional detail resolution yet
			},
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true), // support full-document semantic token requests
			},
		},
	}, nil
}

// Initialized is called after the client receives the server's capabilities and completes initialization
func (h *HephaHandler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Println("Hepha LSP Initialized")
	return nil
}

// Shutdown handles the LSP shutdown request
func (h *HephaHandler) Shutdown(ctx *glsp.Context) error {
	log.Println("Hepha LSP Shutdown")
	return nil
}

// SetTrace handles the client's $/setTrace notification; trace verbosity
// has no effect on this server's own logging, so it's a no-op.
func (h *HephaHandler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// TextDocumentDidOpen handles file open notifications from the editor
func (h *HephaHandler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	log.Printf("Opened file: %s\n", params.TextDocument.URI)

	diags, err := h.updateAST(params.TextDocument.URI)
	if err != nil {
		return fmt.Errorf("failed to update AST: %w", err)
	}

	sendDiagnosticNotification(ctx, params.TextDocument.URI, diags)

	return nil
}

// TextDocumentDidClose handles file close notifications from the editor
func (h *HephaHandler) TextDocumentDidClose(context *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	log.Printf("Closed file: %s\n", params.TextDocument.URI)

	rawURI := params.TextDocument.URI

	path, err := uriToPath(rawURI)
	if err != nil {
		return fmt.Errorf("failed to convert URI %s: %w", rawURI, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.content, path)
	delete(h.asts, path)

	return nil
}

// TextDocumentDidChange handles file change notifications from the editor
func (h *HephaHandler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	log.Printf("Changed file: %s\n", params.TextDocument.URI)

	diags, err := h.updateAST(params.TextDocument.URI)
	if err != nil {
		return fmt.Errorf("failed to update AST: %w", err)
	}

	sendDiagnosticNotification(ctx, params.TextDocument.URI, diags)

	return nil
}

// TextDocumentCompletion handles completion requests (currently returns empty list)
func (h *HephaHandler) TextDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (interface{}, error) {
	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        []protocol.CompletionItem{},
	}, nil
}

// TextDocumentSemanticTokensFull handles semantic token requests for the entire document
func (h *HephaHandler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	log.Println("TextDocumentSemanticTokensFull called for:", params.TextDocument.URI)

	rawURI := params.TextDocument.URI

	path, err := uriToPath(rawURI)
	if err != nil {
		return nil, fmt.Errorf("failed to convert URI %s: %w", rawURI, err)
	}

	contract, err := h.getOrUpdateAST(ctx, path, rawURI)
	if err != nil {
		return nil, err
	}

	// Walk the AST and collect semantic tokens
	tokens := collectSemanticTokens(contract)

	var data []uint32
	var prevLine, prevStart uint32

	// Encode tokens into LSP wire format (using delta-line, delta-start compression)
	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		var deltaStart uint32
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		} else {
			deltaStart = token.StartChar
		}

		// Append the encoded semantic token entry
		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))

		prevLine = token.Line
		prevStart = token.StartChar
	}

	return &protocol.SemanticTokens{
		Data: data,
	}, nil
}

func (h *HephaHandler) getOrUpdateAST(ctx *glsp.Context, path string, rawURI protocol.DocumentUri) (*ast.Contract, error) {
	h.mu.RLock()
	contract, ok := h.asts[path]
	h.mu.RUnlock()

	if !ok {
		diags, err := h.updateAST(rawURI)
		if err != nil {
			return nil, err
		}

		h.mu.RLock()
		contract = h.asts[path]
		h.mu.RUnlock()

		sendDiagnosticNotification(ctx, rawURI, diags)
	}

	return contract, nil
}

// updateAST re-parses, re-analyzes, and re-checks the document at rawURI,
// running the same parse -> semantic -> IR -> fixpoint -> probes pipeline
// cmd/hepha drives for a batch run, and caches the resulting AST for
// semantic-token requests. It stops at the first stage that reports
// anything and returns that stage's diagnostics (scan and parse errors,
// then semantic errors); only when both pass does it return the probe
// findings. A failure inside the fixed point is returned as an error
// with no diagnostics.
func (h *HephaHandler) updateAST(rawURI protocol.DocumentUri) ([]protocol.Diagnostic, error) {
	path, err := uriToPath(rawURI)
	if err != nil {
		return nil, fmt.Errorf("failed to convert URI %s: %w", rawURI, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	contract, parseErrors, scanErrors := parser.ParseSource(path, string(content))
	if len(scanErrors) > 0 || len(parseErrors) > 0 {
		diags := append(ConvertScanErrors(scanErrors), ConvertParseErrors(parseErrors)...)
		return diags, nil
	}

	h.mu.Lock()
	h.content[path] = string(content)
	h.asts[path] = contract
	h.mu.Unlock()

	analyzer := semantic.NewAnalyzer()
	if semErrors := analyzer.Analyze(contract); len(semErrors) > 0 {
		return ConvertCompilerErrors(analyzer.GetErrors()), nil
	}

	program := ir.BuildProgram(contract, analyzer.GetContext())
	findings, err := h.checkProgram(path, program)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", path, err)
	}

	return ConvertFindings(findings), nil
}

// checkProgram runs the abstract-interpretation probes over every function
// in program, reusing the call-summary ordering cmd/hepha uses so a
// function's callees are checked (and summarized) before it is.
func (h *HephaHandler) checkProgram(srcPath string, program *ir.Program) ([]diagnostics.Finding, error) {
	buf := diagnostics.NewBuffer(srcPath)
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
		fn := node.Func
		if fn.Entry == nil || !summaries.Enter(fn.DefID) {
			continue
		}

		state := transfer.NewState(h.cfg)
		state.Summaries = summaries
		fn.ComputeDominators()
		result, err := fixpoint.Run(fn, state.Seed(fn), state.Step, h.cfg)
		if err != nil {
			summaries.Leave(fn.DefID)
			return nil, err
		}

		st := probes.NewBodyState(fn, srcPath, blockOut(fn, result))
		st.BalanceVariable = balance
		for _, p := range probes.All(st, h.cfg.ConstantTime) {
			if p.Check() {
				buf.StructSpanWarn(p.Span(), probeMessage(p))
			}
		}

		summaries.Leave(fn.DefID)
	}

	if h.cfg.Diag == config.DiagParanoid {
		return buf.All(), nil
	}
	return buf.Cancel(), nil
}

// blockOut converts the fixpoint result's block-pointer-keyed exit
// environments into the block-label-keyed map probes.NewBodyState expects.
func blockOut(fn *ir.Function, result *fixpoint.Result) map[string]env.Environment {
	out := make(map[string]env.Environment, len(fn.Blocks))
	for _, b := range fn.Blocks {
		if e, ok := result.Out[b]; ok {
			out[b.Label] = e
		}
	}
	return out
}

func probeMessage(p probes.Probe) string {
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

// Convert URI to platform-local file path
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path

	// On Windows, remove leading slash (e.g., /C:/...) -> C:/...
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}

	// Normalize to platform-specific separators
	return filepath.FromSlash(path), nil
}

func sendDiagnosticNotification(ctx *glsp.Context, uri protocol.URI, diags []protocol.Diagnostic) {
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}

	diagnosticsJSON, err := json.MarshalIndent(diags, "", "  ")
	if err != nil {
		fmt.Println("Failed to marshal diagnostics:", err)
		return
	}

	log.Println("Sending diagnostics:", string(diagnosticsJSON))

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
