package primitive

import (
	"testing"

	"github.com/kristofer/stbootstrap/internal/bootstrap"
	"github.com/kristofer/stbootstrap/internal/compiler"
	"github.com/kristofer/stbootstrap/internal/interp"
	"github.com/kristofer/stbootstrap/internal/object"
	"github.com/kristofer/stbootstrap/internal/parser"
)

func newEnvWithPrims(t *testing.T) (*bootstrap.Environment, *interp.Interp) {
	t.Helper()
	env, err := bootstrap.Build(nil)
	if err != nil {
		t.Fatalf("bootstrap.Build: %v", err)
	}
	prims := Register(env)
	return env, interp.New(env, prims)
}

func compileWithPragma(t *testing.T, env *bootstrap.Environment, class object.ObjectRef, src string) {
	t.Helper()
	body, err := parser.ParseMethodBody(src)
	if err != nil {
		t.Fatalf("ParseMethodBody(%q): %v", src, err)
	}
	if _, err := compiler.CompileMethod(env, class, body); err != nil {
		t.Fatalf("CompileMethod(%q): %v", src, err)
	}
}

func TestSmallIntegerAddUsesPrimitive(t *testing.T) {
	env, it := newEnvWithPrims(t)
	compileWithPragma(t, env, env.Classes["SmallInteger"], "+ other\n\t<primitive: 'SmallInt_add'>\n\t^self")

	result, err := it.Send(object.Int(3), "+", []object.Value{object.Int(4)})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !result.IsInt() || result.Int() != 7 {
		t.Fatalf("expected 7, got %+v", result)
	}
}

func TestSmallIntegerAddFallsThroughOnTypeMismatch(t *testing.T) {
	env, it := newEnvWithPrims(t)
	compileWithPragma(t, env, env.Classes["SmallInteger"], "+ other\n\t<primitive: 'SmallInt_add'>\n\t^self")

	recv := env.Object.NewString(env.Classes["SmallInteger"], "not an int receiver path")
	result, err := it.Send(object.Int(3), "+", []object.Value{object.Ref(recv)})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	// The primitive declines (arg is not a SmallInteger), so the method's
	// own body runs: ^self.
	if !result.IsInt() || result.Int() != 3 {
		t.Fatalf("expected fallthrough to ^self (3), got %+v", result)
	}
}

func TestBehaviorNewAllocatesFixedShapeInstance(t *testing.T) {
	env, it := newEnvWithPrims(t)
	compileWithPragma(t, env, env.Metaclasses["Object"], "new\n\t<primitive: 'Behavior_new'>\n\t^self")

	result, err := it.Send(object.Ref(env.Classes["Object"]), "new", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !result.IsRef() {
		t.Fatalf("expected a new instance ref, got %+v", result)
	}
}

func TestBlockValueActivatesClosure(t *testing.T) {
	env, it := newEnvWithPrims(t)
	compileWithPragma(t, env, env.Classes["BlockClosure"], "value\n\t<primitive: 'BlockClosure_value'>\n\t^self")
	compileWithPragma(t, env, env.Classes["SmallInteger"], "+ other\n\t<primitive: 'SmallInt_add'>\n\t^self")
	compileWithPragma(t, env, env.Classes["Object"], "answer\n\t^[3 + 4] value")

	recv := env.Object.NewString(env.Classes["Object"], "instance")
	result, err := it.Send(object.Ref(recv), "answer", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !result.IsInt() || result.Int() != 7 {
		t.Fatalf("expected block value 7, got %+v", result)
	}
}
