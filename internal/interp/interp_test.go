package interp

import (
	"errors"
	"testing"

	"github.com/kristofer/stbootstrap/internal/bootstrap"
	"github.com/kristofer/stbootstrap/internal/compiler"
	"github.com/kristofer/stbootstrap/internal/object"
	"github.com/kristofer/stbootstrap/internal/parser"
)

func mustCompile(t *testing.T, env *bootstrap.Environment, class object.ObjectRef, src string) object.ObjectRef {
	t.Helper()
	body, err := parser.ParseMethodBody(src)
	if err != nil {
		t.Fatalf("ParseMethodBody(%q): %v", src, err)
	}
	ref, err := compiler.CompileMethod(env, class, body)
	if err != nil {
		t.Fatalf("CompileMethod(%q): %v", src, err)
	}
	return ref
}

func TestSendReturnsSelf(t *testing.T) {
	env, err := bootstrap.Build(nil)
	if err != nil {
		t.Fatalf("bootstrap.Build: %v", err)
	}
	mustCompile(t, env, env.Classes["Object"], "yourself\n\t^self")

	recv := env.Object.NewString(env.Classes["Object"], "instance")
	it := New(env, nil)
	result, err := it.Send(object.Ref(recv), "yourself", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !result.IsRef() || result.Ref() != recv {
		t.Fatalf("yourself should return the receiver, got %+v", result)
	}
}

func TestSendWithKeywordArgumentsAndTemp(t *testing.T) {
	env, err := bootstrap.Build(nil)
	if err != nil {
		t.Fatalf("bootstrap.Build: %v", err)
	}
	mustCompile(t, env, env.Classes["Object"], "pick: a or: b\n\t| chosen |\n\tchosen := a.\n\t^chosen")

	recv := env.Object.NewString(env.Classes["Object"], "instance")
	it := New(env, nil)
	result, err := it.Send(object.Ref(recv), "pick:or:", []object.Value{object.Int(7), object.Int(9)})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !result.IsInt() || result.Int() != 7 {
		t.Fatalf("expected 7, got %+v", result)
	}
}

func TestSendMismatchedArityIsFatal(t *testing.T) {
	env, err := bootstrap.Build(nil)
	if err != nil {
		t.Fatalf("bootstrap.Build: %v", err)
	}
	mustCompile(t, env, env.Classes["Object"], "needsOne: a\n\t^a")

	recv := env.Object.NewString(env.Classes["Object"], "instance")
	it := New(env, nil)
	_, err = it.Send(object.Ref(recv), "needsOne:", nil)
	if err == nil {
		t.Fatal("expected a fatal arity-mismatch error")
	}
	var fe *FatalError
	if !asFatal(err, &fe) {
		t.Fatalf("expected *FatalError, got %T: %v", err, err)
	}
	if fe.Kind != KindArityMismatch {
		t.Fatalf("expected KindArityMismatch, got %v", fe.Kind)
	}
	if !errors.Is(err, ErrArityMismatch) {
		t.Fatalf("expected errors.Is(err, ErrArityMismatch) to hold, got %v", err)
	}
}

func TestDoesNotUnderstandFallsBackToHandler(t *testing.T) {
	env, err := bootstrap.Build(nil)
	if err != nil {
		t.Fatalf("bootstrap.Build: %v", err)
	}
	mustCompile(t, env, env.Classes["Object"], "doesNotUnderstand: aMessage\n\t^42")

	recv := env.Object.NewString(env.Classes["Object"], "instance")
	it := New(env, nil)
	result, err := it.Send(object.Ref(recv), "totallyUnknownSelector", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !result.IsInt() || result.Int() != 42 {
		t.Fatalf("expected doesNotUnderstand: fallback to return 42, got %+v", result)
	}
}

func TestUnhandledDoesNotUnderstandIsFatal(t *testing.T) {
	env, err := bootstrap.Build(nil)
	if err != nil {
		t.Fatalf("bootstrap.Build: %v", err)
	}
	recv := env.Object.NewString(env.Classes["Object"], "instance")
	it := New(env, nil)
	_, err = it.Send(object.Ref(recv), "noSuchSelector", nil)
	if err == nil {
		t.Fatal("expected a fatal doesNotUnderstand error")
	}
	if !errors.Is(err, ErrNameResolution) {
		t.Fatalf("expected errors.Is(err, ErrNameResolution) to hold, got %v", err)
	}
}

func asFatal(err error, out **FatalError) bool {
	fe, ok := err.(*FatalError)
	if ok {
		*out = fe
	}
	return ok
}
