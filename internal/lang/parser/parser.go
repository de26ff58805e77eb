package parser

import "github.com/uet-master/hepha/internal/lang/ast"

// ParseError represents a syntax error produced while parsing a token stream.
type ParseError struct {
	Message  string
	Position Position
}

// Parser turns a token stream produced by Scanner into an *ast.Contract,
// recovering from malformed items by synchronizing to the next statement
// boundary so a single mistake doesn't abort the whole parse.
type Parser struct {
	tokens   []Token
	current  int
	errors   []ParseError
	filename string
}

func NewParser(filename string, tokens []Token) *Parser {
	return &Parser{
		tokens:   tokens,
		filename: filename,
	}
}

// ParseContract parses a full "contract Name { ... }" declaration, which is
// the only top-level construct a source file may contain.
func (p *Parser) ParseContract() *ast.Contract {
	var leading []ast.ContractItem
	for p.check(COMMENT) || p.check(DOC_COMMENT) || p.check(BLOCK_COMMENT) {
		leading = append(leading, p.parseComment())
	}

	start := p.consume(CONTRACT, "expected 'contract' keyword")
	name, ok := p.consumeIdent("expected contract name")
	if !ok {
		return nil
	}

	p.consume(LEFT_BRACE, "expected '{' to start contract body")

	var items []ast.ContractItem
	for !p.check(RIGHT_BRACE) && !p.isAtEnd() {
		item := p.parseContractItem()
		if item != nil {
			items = append(items, item)
		}
	}

	end := p.consume(RIGHT_BRACE, "expected '}' to close contract body")

	return &ast.Contract{
		Pos:             p.makePos(start),
		EndPos:          p.makeEndPos(end),
		LeadingComments: leading,
		Name:            name,
		Items:           items,
	}
}

// parseContractItem parses one top-level declaration: a use statement, a
// struct (optionally preceded by a doc comment and an attribute such as
// #[storage] or #[event], in either order), or a function (optionally preceded by an
// attribute such as #[create] and the "ext" modifier).
func (p *Parser) parseContractItem() ast.ContractItem {
	if p.check(COMMENT) || p.check(BLOCK_COMMENT) {
		return p.parseComment()
	}

	var doc *ast.DocComment
	if p.check(DOC_COMMENT) {
		doc = p.parseDocComment()
	}

	var attr *ast.Attribute
	if p.check(POUND) {
		attr = p.parseAttribute()
	}
	if doc == nil && p.check(DOC_COMMENT) {
		doc = p.parseDocComment()
	}

	switch {
	case p.check(USE):
		return p.parseUse()
	case p.check(STRUCT):
		return p.parseStructWithDoc(attr, doc)
	case p.check(EXT):
		p.advance()
		return p.parseFunction(attr, true)
	case p.check(FN):
		return p.parseFunction(attr, false)
	default:
		p.errorAtCurrent("expected 'use', 'struct', 'ext fn', or 'fn' item")
		p.synchronize()
		return nil
	}
}

func (p *Parser) parseAttribute() *ast.Attribute {
	start := p.consume(POUND, "expected '#' to start attribute")
	p.consume(LEFT_BRACKET, "expected '[' after '#'")
	name, _ := p.consumeIdent("expected attribute name")
	end := p.consume(RIGHT_BRACKET, "expected ']' to close attribute")

	return &ast.Attribute{
		Pos:    p.makePos(start),
		EndPos: p.makeEndPos(end),
		Name:   name.Value,
	}
}

func (p *Parser) parseDocComment() *ast.DocComment {
	tok := p.advance()
	return &ast.DocComment{
		Pos:    p.makePos(tok),
		EndPos: p.makeEndPos(tok),
		Text:   tok.Lexeme,
	}
}

func (p *Parser) parseComment() *ast.Comment {
	tok := p.advance()
	return &ast.Comment{
		Pos:    p.makePos(tok),
		EndPos: p.makeEndPos(tok),
		Text:   tok.Lexeme,
	}
}

// parseVariableType parses a type reference, including generics such as
// "Slots<Address, U256>". It is the entry point used by struct fields,
// function parameters, and return types.
func (p *Parser) parseVariableType() *ast.VariableType {
	return p.parseType()
}
