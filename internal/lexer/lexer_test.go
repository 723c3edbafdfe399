package lexer

import "testing"

func collect(src string) []Token {
	l := New(src)
	var toks []Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks
		}
	}
}

func TestAssignmentAndPeriod(t *testing.T) {
	toks := collect("x := 5.")
	want := []Kind{Identifier, Assign, Integer, Period, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: kind = %v, want %v (%q)", i, toks[i].Kind, k, toks[i].Literal)
		}
	}
	if toks[0].Literal != "x" || toks[2].Literal != "5" {
		t.Errorf("unexpected literals: %+v", toks)
	}
}

func TestKeywordMessageSplitsIntoParts(t *testing.T) {
	toks := collect("dict at: 1 put: 2")
	var kinds []Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	want := []Kind{Identifier, KeywordPart, Integer, KeywordPart, Integer, EOF}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want kinds %v", kinds, want)
	}
	if toks[1].Literal != "at:" || toks[3].Literal != "put:" {
		t.Errorf("keyword literals wrong: %q / %q", toks[1].Literal, toks[3].Literal)
	}
}

func TestBinarySelectorAndComment(t *testing.T) {
	toks := collect(`3 + 4 "adds them"`)
	if toks[1].Kind != BinarySelector || toks[1].Literal != "+" {
		t.Fatalf("expected binary selector '+', got %+v", toks[1])
	}
	if toks[len(toks)-1].Kind != EOF {
		t.Error("comment was not fully skipped")
	}
}

func TestBlockWithParams(t *testing.T) {
	toks := collect("[:a :b | a + b]")
	want := []Kind{LBracket, BlockParam, BlockParam, Pipe, Identifier, BinarySelector, Identifier, RBracket, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens %+v, want %d", len(toks), toks, len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
	if toks[1].Literal != "a" || toks[2].Literal != "b" {
		t.Errorf("block param literals wrong: %+v", toks[1:3])
	}
}

func TestStringAndReservedWords(t *testing.T) {
	toks := collect(`'hello' self nil true false`)
	want := []Kind{String, KwSelf, KwNil, KwTrue, KwFalse, EOF}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
	if toks[0].Literal != "hello" {
		t.Errorf("string literal = %q, want %q", toks[0].Literal, "hello")
	}
}

func TestLineAndColumnTracking(t *testing.T) {
	toks := collect("x\n  y")
	if toks[0].Line != 1 || toks[0].Column != 1 {
		t.Errorf("first token position = %d:%d, want 1:1", toks[0].Line, toks[0].Column)
	}
	if toks[1].Line != 2 || toks[1].Column != 3 {
		t.Errorf("second token position = %d:%d, want 2:3", toks[1].Line, toks[1].Column)
	}
}
