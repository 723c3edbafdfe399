package kernel

import (
	"testing"

	"github.com/kristofer/stbootstrap/internal/bootstrap"
	"github.com/kristofer/stbootstrap/internal/interp"
	"github.com/kristofer/stbootstrap/internal/object"
	"github.com/kristofer/stbootstrap/internal/primitive"
)

func TestLoadInstallsArithmeticAndClassSideNew(t *testing.T) {
	env, err := bootstrap.Build(nil)
	if err != nil {
		t.Fatalf("bootstrap.Build: %v", err)
	}
	prims := primitive.Register(env)
	if err := Load(env); err != nil {
		t.Fatalf("Load: %v", err)
	}
	it := interp.New(env, prims)

	sum, err := it.Send(object.Int(3), "+", []object.Value{object.Int(4)})
	if err != nil {
		t.Fatalf("Send +: %v", err)
	}
	if !sum.IsInt() || sum.Int() != 7 {
		t.Fatalf("expected 7, got %+v", sum)
	}

	instance, err := it.Send(object.Ref(env.Classes["Object"]), "new", nil)
	if err != nil {
		t.Fatalf("Send new: %v", err)
	}
	if !instance.IsRef() {
		t.Fatalf("expected a new instance ref, got %+v", instance)
	}

	size, err := it.Send(object.Ref(env.Object.NewArray(env.Classes["Array"], 3)), "size", nil)
	if err != nil {
		t.Fatalf("Send size: %v", err)
	}
	if !size.IsInt() || size.Int() != 3 {
		t.Fatalf("expected array size 3, got %+v", size)
	}
}

func TestLoadClassSideExtendTargetsMetaclass(t *testing.T) {
	env, err := bootstrap.Build(nil)
	if err != nil {
		t.Fatalf("bootstrap.Build: %v", err)
	}
	if err := Load(env); err != nil {
		t.Fatalf("Load: %v", err)
	}
	dict := env.Object.MetaclassMethodDictionary(env.Metaclasses["Object"])
	sel, ok := env.Symbols.Find("new")
	if !ok {
		t.Fatal("selector #new was never interned")
	}
	if _, found := env.Object.MethodDictAt(dict, sel); !found {
		t.Fatal("expected #new installed on Object's metaclass, not found")
	}
}
