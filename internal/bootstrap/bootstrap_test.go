package bootstrap

import (
	"testing"

	"github.com/kristofer/stbootstrap/internal/memory"
)

func TestBuildSucceeds(t *testing.T) {
	env, err := Build(nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(env.Classes) != len(schedule) {
		t.Fatalf("expected %d classes, got %d", len(schedule), len(env.Classes))
	}
}

func TestMetaclassInstanceClassRoundTrip(t *testing.T) {
	env, err := Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	for name, classRef := range env.Classes {
		mc, err := env.Mem.ClassOf(classRef)
		if err != nil {
			t.Fatalf("%s: ClassOf: %v", name, err)
		}
		if env.Object.MetaclassInstanceClass(mc) != classRef {
			t.Errorf("%s: metaclass.instanceClass != class", name)
		}
	}
}

func TestObjectIsRootWithNilSuperclass(t *testing.T) {
	env, err := Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	obj := env.Classes["Object"]
	if env.Object.ClassSuperclass(obj) != memory.NilRef {
		t.Error("Object.superclass must be nil")
	}
	objMC, _ := env.Mem.ClassOf(obj)
	classClass := env.Classes["Class"]
	if env.Object.MetaclassSuperclass(objMC) != classClass {
		t.Error("Object's metaclass superclass must be the Class class")
	}
}

func TestSingletonClassesWired(t *testing.T) {
	env, err := Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	cases := map[memory.ObjectRef]string{
		memory.NilRef:   "UndefinedObject",
		memory.FalseRef: "False",
		memory.TrueRef:  "True",
	}
	for ref, className := range cases {
		class, err := env.Mem.ClassOf(ref)
		if err != nil {
			t.Fatal(err)
		}
		if class != env.Classes[className] {
			t.Errorf("singleton %d expected class %s, got ref %d (want %d)", ref, className, class, env.Classes[className])
		}
	}
}

func TestSubclassesArraySizedExactly(t *testing.T) {
	env, err := Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	objectRef := env.Classes["Object"]
	subArr := env.Object.ClassSubClasses(objectRef)
	// Object is the direct superclass of Behavior, Magnitude, Boolean,
	// UndefinedObject, Collection, Namespace, Association, SymLink,
	// Context, CompiledCode, MethodInfo, BlockClosure in the schedule.
	want := 12
	if got := env.Object.ArraySize(subArr); got != want {
		t.Errorf("Object subClasses size = %d, want %d", got, want)
	}
}

func TestSymbolTableReachableAsGlobal(t *testing.T) {
	env, err := Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	sym := env.Symbols.FindOrAdd("SymbolTable")
	v, ok := env.Object.BindingAt(env.Object.NamespaceBindings(env.Smalltalk), sym)
	if !ok {
		t.Fatal("SymbolTable not bound in root namespace")
	}
	_ = v
}
