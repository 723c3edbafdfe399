package parser

import (
	"testing"

	"github.com/kristofer/stbootstrap/internal/ast"
)

func TestParseMethodBodyUnarySelector(t *testing.T) {
	m, err := ParseMethodBody("isEmpty\n\t^self size = 0")
	if err != nil {
		t.Fatalf("ParseMethodBody: %v", err)
	}
	if m.Selector != "isEmpty" || len(m.Arguments) != 0 {
		t.Fatalf("got selector %q args %v", m.Selector, m.Arguments)
	}
	if len(m.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(m.Statements))
	}
	ret, ok := m.Statements[0].(*ast.ReturnStatement)
	if !ok {
		t.Fatalf("expected ReturnStatement, got %T", m.Statements[0])
	}
	send, ok := ret.Value.(*ast.MessageSend)
	if !ok || send.Selector != "=" || send.Kind != ast.BinaryMessage {
		t.Fatalf("expected binary send '=', got %+v", ret.Value)
	}
}

func TestParseMethodBodyKeywordSelectorAndTemps(t *testing.T) {
	src := "at: key put: value\n\t| idx |\n\tidx := self findSlot: key.\n\t^value"
	m, err := ParseMethodBody(src)
	if err != nil {
		t.Fatalf("ParseMethodBody: %v", err)
	}
	if m.Selector != "at:put:" {
		t.Fatalf("selector = %q, want at:put:", m.Selector)
	}
	if len(m.Arguments) != 2 || m.Arguments[0] != "key" || m.Arguments[1] != "value" {
		t.Fatalf("arguments = %v", m.Arguments)
	}
	if len(m.Temps) != 1 || m.Temps[0] != "idx" {
		t.Fatalf("temps = %v", m.Temps)
	}
	if len(m.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(m.Statements))
	}
	assign, ok := m.Statements[0].(*ast.Assignment)
	if !ok || assign.Name != "idx" {
		t.Fatalf("expected assignment to idx, got %+v", m.Statements[0])
	}
	keywordSend, ok := assign.Value.(*ast.MessageSend)
	if !ok || keywordSend.Selector != "findSlot:" || keywordSend.Kind != ast.KeywordMessage {
		t.Fatalf("expected keyword send findSlot:, got %+v", assign.Value)
	}
}

func TestParseMethodBodyPrimitivePragma(t *testing.T) {
	m, err := ParseMethodBody("basicSize\n\t<primitive: 'basicSize'>\n\t^0")
	if err != nil {
		t.Fatalf("ParseMethodBody: %v", err)
	}
	if m.Primitive != "basicSize" {
		t.Fatalf("primitive = %q, want basicSize", m.Primitive)
	}
}

func TestPrecedenceUnaryBeforeBinaryBeforeKeyword(t *testing.T) {
	m, err := ParseMethodBody("test\n\t^self size + 1 max: 10")
	if err != nil {
		t.Fatalf("ParseMethodBody: %v", err)
	}
	ret := m.Statements[0].(*ast.ReturnStatement)
	top, ok := ret.Value.(*ast.MessageSend)
	if !ok || top.Kind != ast.KeywordMessage || top.Selector != "max:" {
		t.Fatalf("outermost send should be keyword max:, got %+v", ret.Value)
	}
	binary, ok := top.Receiver.(*ast.MessageSend)
	if !ok || binary.Kind != ast.BinaryMessage || binary.Selector != "+" {
		t.Fatalf("receiver of max: should be binary '+', got %+v", top.Receiver)
	}
	unary, ok := binary.Receiver.(*ast.MessageSend)
	if !ok || unary.Kind != ast.UnaryMessage || unary.Selector != "size" {
		t.Fatalf("receiver of '+' should be unary 'size', got %+v", binary.Receiver)
	}
}

func TestParseBlockLiteralWithParams(t *testing.T) {
	m, err := ParseMethodBody("test\n\t^[:a :b | a + b] value: 1 value: 2")
	if err != nil {
		t.Fatalf("ParseMethodBody: %v", err)
	}
	ret := m.Statements[0].(*ast.ReturnStatement)
	send := ret.Value.(*ast.MessageSend)
	block, ok := send.Receiver.(ast.BlockLiteral)
	if !ok {
		t.Fatalf("expected block literal receiver, got %T", send.Receiver)
	}
	if len(block.Parameters) != 2 || block.Parameters[0] != "a" || block.Parameters[1] != "b" {
		t.Fatalf("block parameters = %v", block.Parameters)
	}
}

func TestParseClassDefinitionMultipleMethods(t *testing.T) {
	src := "Counter extend [\n" +
		"increment\n\t^self\n!\n" +
		"decrement\n\t^self\n!\n" +
		"]"
	def, err := ParseClassDefinition(src)
	if err != nil {
		t.Fatalf("ParseClassDefinition: %v", err)
	}
	if def.ClassName != "Counter" {
		t.Fatalf("class name = %q", def.ClassName)
	}
	if len(def.Methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(def.Methods))
	}
	if def.Methods[0].Selector != "increment" || def.Methods[1].Selector != "decrement" {
		t.Fatalf("method selectors = %q, %q", def.Methods[0].Selector, def.Methods[1].Selector)
	}
}

func TestParseProgramMultipleStatements(t *testing.T) {
	prog, err := ParseProgram("x := 1. y := 2. x + y")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if len(prog.Statements) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(prog.Statements))
	}
}
