package compiler

import (
	"testing"

	"github.com/kristofer/stbootstrap/internal/bootstrap"
	"github.com/kristofer/stbootstrap/internal/bytecode"
	"github.com/kristofer/stbootstrap/internal/object"
	"github.com/kristofer/stbootstrap/internal/parser"
)

func TestCompileTrivialMethodRoundTrip(t *testing.T) {
	env, err := bootstrap.Build(nil)
	if err != nil {
		t.Fatalf("bootstrap.Build: %v", err)
	}
	body, err := parser.ParseMethodBody("yourself\n\t^self")
	if err != nil {
		t.Fatalf("ParseMethodBody: %v", err)
	}
	class := env.Classes["Object"]
	methodRef, err := CompileMethod(env, class, body)
	if err != nil {
		t.Fatalf("CompileMethod: %v", err)
	}

	code := env.Object.CodeBytes(methodRef)
	instrs, err := bytecode.Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(instrs) != 2 || instrs[0].Op != bytecode.PushSelf || instrs[1].Op != bytecode.ReturnMethodStackTop {
		t.Fatalf("^self should compile to [PUSH_SELF, RETURN_METHOD_STACK_TOP], got %+v", instrs)
	}

	header := env.Object.CodeHeader(methodRef)
	if header.NumArgs != 0 || header.NumTemps != 0 {
		t.Errorf("header = %+v, want zero args/temps", header)
	}

	dict := env.Object.ClassMethodDictionary(class)
	sym := env.Symbols.FindOrAdd("yourself")
	installed, ok := env.Object.MethodDictAt(dict, sym)
	if !ok || installed != methodRef {
		t.Fatal("method was not installed under its selector")
	}
}

func TestCompileImplicitSelfReturnAppended(t *testing.T) {
	env, err := bootstrap.Build(nil)
	if err != nil {
		t.Fatalf("bootstrap.Build: %v", err)
	}
	body, err := parser.ParseMethodBody("noop\n\t1 + 2")
	if err != nil {
		t.Fatalf("ParseMethodBody: %v", err)
	}
	methodRef, err := CompileMethod(env, env.Classes["Object"], body)
	if err != nil {
		t.Fatalf("CompileMethod: %v", err)
	}
	instrs, err := bytecode.Decode(env.Object.CodeBytes(methodRef))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	last := instrs[len(instrs)-1]
	secondLast := instrs[len(instrs)-2]
	if secondLast.Op != bytecode.PushSelf || last.Op != bytecode.ReturnMethodStackTop {
		t.Fatalf("expected trailing PUSH_SELF, RETURN_METHOD_STACK_TOP, got %+v, %+v", secondLast, last)
	}
	// The standalone expression statement "1 + 2" must still be popped,
	// since its value is discarded (the method's value comes from the
	// appended self-return, not from the last statement).
	popFound := false
	for _, inst := range instrs {
		if inst.Op == bytecode.PopStackTop {
			popFound = true
		}
	}
	if !popFound {
		t.Error("non-return statement should emit POP_STACK_TOP even when last in a method body")
	}
}

func TestCompileKeywordMethodWithTempsAndAssignment(t *testing.T) {
	env, err := bootstrap.Build(nil)
	if err != nil {
		t.Fatalf("bootstrap.Build: %v", err)
	}
	src := "max: a and: b\n\t| result |\n\tresult := a.\n\t^result"
	body, err := parser.ParseMethodBody(src)
	if err != nil {
		t.Fatalf("ParseMethodBody: %v", err)
	}
	methodRef, err := CompileMethod(env, env.Classes["Object"], body)
	if err != nil {
		t.Fatalf("CompileMethod: %v", err)
	}
	header := env.Object.CodeHeader(methodRef)
	if header.NumArgs != 2 {
		t.Errorf("numArgs = %d, want 2", header.NumArgs)
	}
	if header.NumTemps != 1 {
		t.Errorf("numTemps = %d, want 1", header.NumTemps)
	}
	instrs, err := bytecode.Decode(env.Object.CodeBytes(methodRef))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	sawStoreTemp := false
	for _, inst := range instrs {
		if inst.Op == bytecode.StoreTemporaryVar {
			sawStoreTemp = true
		}
	}
	if !sawStoreTemp {
		t.Error("assignment to a local temp should emit STORE_TEMPORARY_VARIABLE")
	}
}

func TestCompileBlockLiteralAsClosureConstant(t *testing.T) {
	env, err := bootstrap.Build(nil)
	if err != nil {
		t.Fatalf("bootstrap.Build: %v", err)
	}
	body, err := parser.ParseMethodBody("test\n\t^[:x | x + 1]")
	if err != nil {
		t.Fatalf("ParseMethodBody: %v", err)
	}
	methodRef, err := CompileMethod(env, env.Classes["Object"], body)
	if err != nil {
		t.Fatalf("CompileMethod: %v", err)
	}
	lit, err := env.Object.CodeLiteralAt(methodRef, 0)
	if err != nil {
		t.Fatalf("CodeLiteralAt: %v", err)
	}
	if !lit.IsRef() {
		t.Fatal("block literal should compile to an object reference (a BlockClosure)")
	}
	obj, err := env.Mem.Get(lit.Ref())
	if err != nil {
		t.Fatal(err)
	}
	if obj.Kind() != object.KindBlockClosure {
		t.Errorf("literal kind = %v, want BlockClosure", obj.Kind())
	}
	blockRef := env.Object.ClosureBlock(lit.Ref())
	blockHeader := env.Object.CodeHeader(blockRef)
	if blockHeader.NumArgs != 1 {
		t.Errorf("block numArgs = %d, want 1", blockHeader.NumArgs)
	}
}
