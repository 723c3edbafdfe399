// Package parser builds internal/ast trees from internal/lexer token
// streams, via recursive descent. Adapted from smog's pkg/parser: same
// two-token lookahead shape and the same unary > binary > keyword
// precedence climb spec.md section 4.5 assumes of its compiler, but
// generalized to emit ast.MethodBody (for compiling one method) and
// ast.ClassDefinition (for the kernel loader's `.st` sources) rather
// than smog's single flat Program/Method pair.
package parser

import (
	"fmt"
	"strconv"

	"github.com/kristofer/stbootstrap/internal/ast"
	"github.com/kristofer/stbootstrap/internal/lexer"
)

// Parser holds a two-token lookahead window over one lexer and
// accumulates errors rather than aborting at the first one, so a single
// bad method doesn't block reporting others found in the same pass.
type Parser struct {
	l       *lexer.Lexer
	cur     lexer.Token
	peek    lexer.Token
	errors  []string
}

// New prepares a Parser over src, primed with the first two tokens.
func New(src string) *Parser {
	p := &Parser{l: lexer.New(src)}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.l.Next()
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

// Errors returns every syntax error accumulated so far.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) expect(k lexer.Kind, what string) bool {
	if p.cur.Kind != k {
		p.errorf("line %d: expected %s, got %q", p.cur.Line, what, p.cur.Literal)
		return false
	}
	p.advance()
	return true
}

// ParseMethodBody parses one method's source: `selector-pattern
// [| temps |] [<primitive: 'name'>] statements`, where selector-pattern
// is unary (`foo`), binary (`+ arg`), or keyword (`at: a put: b`).
func ParseMethodBody(src string) (*ast.MethodBody, error) {
	p := New(src)
	m := p.parseSelectorPattern()
	p.parseTemps(&m.Temps)
	p.parsePrimitivePragma(m)
	m.Statements = p.parseStatements(lexer.EOF)
	if len(p.errors) > 0 {
		return nil, fmt.Errorf("parser: %v", p.errors)
	}
	return m, nil
}

// ParseProgram parses a flat sequence of top-level statements. The REPL
// and `smalltalk run` do not use it: they parse their input as a method
// body (asDoitBody in cmd/smalltalk, then ParseMethodBody).
func ParseProgram(src string) (*ast.Program, error) {
	p := New(src)
	prog := &ast.Program{Statements: p.parseStatements(lexer.EOF)}
	if len(p.errors) > 0 {
		return nil, fmt.Errorf("parser: %v", p.errors)
	}
	return prog, nil
}

// ParseClassDefinition parses one kernel source section:
//
//	ClassName extend [
//	    selector-pattern statements !
//	    selector-pattern statements !
//	]
//
// Each method body is terminated by `!` rather than relying on the
// caller to know where one selector pattern's statements end and the
// next method's pattern begins. `ClassName class extend [ ... ]` installs
// the methods on the class side (its metaclass) instead.
func ParseClassDefinition(src string) (*ast.ClassDefinition, error) {
	p := New(src)
	if p.cur.Kind != lexer.Identifier {
		return nil, fmt.Errorf("parser: expected a class name, got %q", p.cur.Literal)
	}
	def := &ast.ClassDefinition{ClassName: p.cur.Literal}
	p.advance()
	if p.cur.Kind == lexer.Identifier && p.cur.Literal == "class" {
		def.ClassSide = true
		p.advance()
	}
	if p.cur.Kind != lexer.Identifier || p.cur.Literal != "extend" {
		return nil, fmt.Errorf("parser: expected 'extend', got %q", p.cur.Literal)
	}
	p.advance()
	if !p.expect(lexer.LBracket, "'['") {
		return nil, fmt.Errorf("parser: %v", p.errors)
	}
	for p.cur.Kind != lexer.RBracket && p.cur.Kind != lexer.EOF {
		m := p.parseSelectorPattern()
		p.parseTemps(&m.Temps)
		p.parsePrimitivePragma(m)
		m.Statements = p.parseStatements(lexer.Bang)
		p.expect(lexer.Bang, "'!' terminating method body")
		def.Methods = append(def.Methods, m)
	}
	p.expect(lexer.RBracket, "']'")
	if len(p.errors) > 0 {
		return nil, fmt.Errorf("parser: %v", p.errors)
	}
	return def, nil
}

func (p *Parser) parseSelectorPattern() *ast.MethodBody {
	m := &ast.MethodBody{}
	switch {
	case p.cur.Kind == lexer.KeywordPart:
		var sel string
		for p.cur.Kind == lexer.KeywordPart {
			sel += p.cur.Literal
			p.advance()
			m.Arguments = append(m.Arguments, p.cur.Literal)
			p.advance() // argument identifier
		}
		m.Selector = sel
	case p.cur.Kind == lexer.BinarySelector:
		m.Selector = p.cur.Literal
		p.advance()
		m.Arguments = append(m.Arguments, p.cur.Literal)
		p.advance()
	case p.cur.Kind == lexer.Identifier:
		m.Selector = p.cur.Literal
		p.advance()
	default:
		p.errorf("line %d: expected a method selector pattern, got %q", p.cur.Line, p.cur.Literal)
	}
	return m
}

// parseTemps consumes an optional `| a b c |` temporary declaration.
func (p *Parser) parseTemps(into *[]string) {
	if p.cur.Kind != lexer.Pipe {
		return
	}
	p.advance()
	for p.cur.Kind == lexer.Identifier {
		*into = append(*into, p.cur.Literal)
		p.advance()
	}
	p.expect(lexer.Pipe, "'|' closing temporary declaration")
}

// parsePrimitivePragma consumes an optional `<primitive: 'name'>` pragma,
// written with angle brackets lexed as a binary selector pair (`<` and
// `>`) bracketing a keyword part — spec.md section 6 names the primitive
// by numeric id, resolved from this name by internal/primitive's table.
func (p *Parser) parsePrimitivePragma(m *ast.MethodBody) {
	if p.cur.Kind != lexer.BinarySelector || p.cur.Literal != "<" {
		return
	}
	p.advance()
	if p.cur.Kind == lexer.KeywordPart && p.cur.Literal == "primitive:" {
		p.advance()
		if p.cur.Kind == lexer.String {
			m.Primitive = p.cur.Literal
			p.advance()
		}
	}
	if p.cur.Kind == lexer.BinarySelector && p.cur.Literal == ">" {
		p.advance()
	} else {
		p.errorf("line %d: expected '>' closing pragma", p.cur.Line)
	}
}

func (p *Parser) parseStatements(end lexer.Kind) []ast.Statement {
	var stmts []ast.Statement
	for p.cur.Kind != end && p.cur.Kind != lexer.EOF {
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		if p.cur.Kind == lexer.Period {
			p.advance()
		} else {
			break
		}
	}
	return stmts
}

func (p *Parser) parseStatement() ast.Statement {
	if p.cur.Kind == lexer.Caret {
		p.advance()
		val := p.parseExpression()
		return &ast.ReturnStatement{Value: val}
	}
	if p.cur.Kind == lexer.Identifier && p.peek.Kind == lexer.Assign {
		name := p.cur.Literal
		p.advance()
		p.advance()
		val := p.parseExpression()
		return &ast.Assignment{Name: name, Value: val}
	}
	expr := p.parseExpression()
	if expr == nil {
		return nil
	}
	return &ast.ExpressionStatement{Expr: expr}
}

// parseExpression is the entry point for anything that produces a value:
// an assignment (`name := expr`) or else a keyword-message expression,
// since keyword sends bind loosest (spec.md section 4.5's unary > binary
// > keyword precedence).
func (p *Parser) parseExpression() ast.Expression {
	if p.cur.Kind == lexer.Identifier && p.peek.Kind == lexer.Assign {
		name := p.cur.Literal
		p.advance()
		p.advance()
		return &ast.Assignment{Name: name, Value: p.parseExpression()}
	}
	return p.parseKeywordMessage()
}

func (p *Parser) parseKeywordMessage() ast.Expression {
	recv := p.parseBinaryMessage()
	if p.cur.Kind != lexer.KeywordPart {
		return recv
	}
	var sel string
	var args []ast.Expression
	for p.cur.Kind == lexer.KeywordPart {
		sel += p.cur.Literal
		p.advance()
		args = append(args, p.parseBinaryMessage())
	}
	return &ast.MessageSend{Kind: ast.KeywordMessage, Receiver: recv, Selector: sel, Args: args}
}

func (p *Parser) parseBinaryMessage() ast.Expression {
	recv := p.parseUnaryMessage()
	for p.cur.Kind == lexer.BinarySelector {
		sel := p.cur.Literal
		p.advance()
		arg := p.parseUnaryMessage()
		recv = &ast.MessageSend{Kind: ast.BinaryMessage, Receiver: recv, Selector: sel, Args: []ast.Expression{arg}}
	}
	return recv
}

func (p *Parser) parseUnaryMessage() ast.Expression {
	recv := p.parsePrimary()
	for p.cur.Kind == lexer.Identifier {
		sel := p.cur.Literal
		p.advance()
		recv = &ast.MessageSend{Kind: ast.UnaryMessage, Receiver: recv, Selector: sel}
	}
	return recv
}

func (p *Parser) parsePrimary() ast.Expression {
	switch p.cur.Kind {
	case lexer.KwSelf:
		p.advance()
		return ast.SelfExpr{}
	case lexer.KwNil:
		p.advance()
		return ast.NilExpr{}
	case lexer.KwTrue:
		p.advance()
		return ast.TrueExpr{}
	case lexer.KwFalse:
		p.advance()
		return ast.FalseExpr{}
	case lexer.Integer:
		n, err := strconv.ParseInt(p.cur.Literal, 10, 64)
		if err != nil {
			p.errorf("line %d: bad integer literal %q", p.cur.Line, p.cur.Literal)
		}
		p.advance()
		return ast.IntegerLiteral{Value: n}
	case lexer.String:
		lit := p.cur.Literal
		p.advance()
		return ast.StringLiteral{Value: lit}
	case lexer.Identifier:
		name := p.cur.Literal
		p.advance()
		return &ast.Identifier{Name: name}
	case lexer.LParen:
		p.advance()
		inner := p.parseExpression()
		p.expect(lexer.RParen, "')'")
		return inner
	case lexer.LBracket:
		return p.parseBlock()
	default:
		p.errorf("line %d: unexpected token %q in expression", p.cur.Line, p.cur.Literal)
		p.advance()
		return nil
	}
}

// parseBlock parses `[:a :b | | temps | statements]`. A parameter list, if
// present, is a run of BlockParam tokens terminated by a `|`; the optional
// temporary declaration follows as its own `| ... |`.
func (p *Parser) parseBlock() ast.Expression {
	p.expect(lexer.LBracket, "'['")
	b := &ast.BlockLiteral{}
	if p.cur.Kind == lexer.BlockParam {
		for p.cur.Kind == lexer.BlockParam {
			b.Parameters = append(b.Parameters, p.cur.Literal)
			p.advance()
		}
		p.expect(lexer.Pipe, "'|' closing block parameter list")
	}
	p.parseTemps(&b.Temps)
	b.Statements = p.parseStatements(lexer.RBracket)
	p.expect(lexer.RBracket, "']'")
	return *b
}
