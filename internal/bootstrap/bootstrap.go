// Package bootstrap builds the metacircular class lattice: classes are
// objects, each class has exactly one metaclass, and nil/false/true are
// instances of classes that exist inside the same object memory they
// describe. Implements spec.md section 4.4's three-pass construction over
// a fixed class schedule (schedule.go).
package bootstrap

import (
	"fmt"

	"github.com/kristofer/stbootstrap/internal/memory"
	"github.com/kristofer/stbootstrap/internal/object"
	"github.com/kristofer/stbootstrap/internal/symbol"
	"go.uber.org/zap"
)

const instanceSpecFixedBit = 1 // bit 0 of instanceSpec: 1 = fixed, 0 = indexable
const instanceSpecShift = 1    // numInstVars packed above the fixed bit

// Environment is the single threaded-through value holding every piece of
// global mutable state this design has: the object memory, the class
// cache slots, the root namespace, and the symbol table. Per DESIGN
// NOTES section 9, this replaces what would otherwise be package-level
// globals.
type Environment struct {
	Mem    *memory.Store
	Object *object.Model
	Log    *zap.SugaredLogger

	Symbols *symbol.Table

	Smalltalk   object.ObjectRef // the root Namespace
	VMPrimitives object.ObjectRef // BindingDictionary: #VMpr_<name> -> primId

	// Class cache slots, one per schedule row that bootstrap code or the
	// compiler/interpreter needs to refer to directly by name rather than
	// by a namespace lookup.
	Classes map[string]object.ObjectRef
	// Metaclasses, keyed by the class's name.
	Metaclasses map[string]object.ObjectRef

	// classNumInstVars remembers each class's cumulative instance
	// variable count (superVars+localVars), needed by pass 1 to compute
	// its subclasses' superVars.
	classNumInstVars map[string]int
	// subclassCount accumulates how many schedule rows name each class as
	// their superclass, so pass 3 can size the subClasses array exactly.
	subclassCount map[string]int
}

// Build runs all three passes and returns the finished Environment.
func Build(log *zap.SugaredLogger) (*Environment, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	mem := memory.New(log)
	env := &Environment{
		Mem:              mem,
		Object:           object.New(mem),
		Log:              log,
		Classes:          make(map[string]object.ObjectRef),
		Metaclasses:      make(map[string]object.ObjectRef),
		classNumInstVars: make(map[string]int),
		subclassCount:    make(map[string]int),
	}

	if err := env.pass1(); err != nil {
		return nil, fmt.Errorf("bootstrap pass 1: %w", err)
	}
	log.Debugw("bootstrap pass 1 complete", "classes", len(env.Classes))

	if err := env.pass2(); err != nil {
		return nil, fmt.Errorf("bootstrap pass 2: %w", err)
	}
	log.Debugw("bootstrap pass 2 complete")

	if err := env.pass3(); err != nil {
		return nil, fmt.Errorf("bootstrap pass 3: %w", err)
	}
	log.Debugw("bootstrap pass 3 complete", "metaclasses", len(env.Metaclasses))

	return env, nil
}

// pass1 walks the schedule in order, creating a bare Class object per row
// with its instanceSpec computed from the superclass's cumulative
// instance-variable count, and tallies each row's subclass count on its
// superclass.
func (env *Environment) pass1() error {
	for _, row := range schedule {
		var superRef object.ObjectRef = memory.NilRef
		superVars := 0
		if row.super != "" {
			ref, ok := env.Classes[row.super]
			if !ok {
				return fmt.Errorf("schedule row %q names unknown superclass %q", row.name, row.super)
			}
			superRef = ref
			superVars = env.classNumInstVars[row.super]
			env.subclassCount[row.super]++
		}

		// Class objects are allocated with a placeholder metaclass ref
		// (nil); pass 3 patches Class field once metaclasses exist.
		classRef := env.Object.NewClass(memory.NilRef)
		if err := env.Object.SetClassSuperclass(classRef, superRef); err != nil {
			return err
		}
		localVars := len(row.instanceVarNames)
		numInstVars := superVars + localVars
		spec := int64(numInstVars) << instanceSpecShift
		if row.isFixed {
			spec |= instanceSpecFixedBit
		}
		if err := env.Object.SetClassInstanceSpec(classRef, spec); err != nil {
			return err
		}

		env.Classes[row.name] = classRef
		env.classNumInstVars[row.name] = numInstVars
	}
	return nil
}

// pass2 associates primitive-covered classes with their runtime Class
// object (a no-op bookkeeping step in this design, since Classes already
// maps by name) and patches the three singletons' Class fields now that
// their classes exist. Store.New already allocated nil/false/true at
// their reserved identities before pass 1 ran, satisfying spec.md's
// ordering requirement ("only after nil exists may later objects use it
// as their default slot value") — every Slots entry pass 1 wrote defaults
// to Nil, which was already a valid reference.
func (env *Environment) pass2() error {
	singletons := map[object.ObjectRef]string{
		memory.NilRef:   "UndefinedObject",
		memory.FalseRef: "False",
		memory.TrueRef:  "True",
	}
	for ref, className := range singletons {
		class, ok := env.Classes[className]
		if !ok {
			return fmt.Errorf("singleton class %q missing from schedule", className)
		}
		if err := env.Mem.SetClass(ref, class); err != nil {
			return err
		}
	}
	return nil
}

// pass3 creates every class's metaclass, wires the metaclass superclass
// chain (closing the lattice at Object class's superclass = Class),
// allocates exactly-sized subClasses arrays, and populates
// instanceVariables/classVariables/sharedPools/environment/name.
func (env *Environment) pass3() error {
	classClass := env.Classes["Class"]
	metaclassClass := env.Classes["Metaclass"]

	arrayClass := env.Classes["Array"]
	symLinkClass := env.Classes["SymLink"]
	symbolClass := env.Classes["Symbol"]
	bindingDictClass := env.Classes["BindingDictionary"]
	namespaceClass := env.Classes["Namespace"]

	env.Symbols = symbol.New(env.Object, arrayClass, symLinkClass, symbolClass, 64)

	smalltalkBindings := env.Object.NewBindingDictionary(bindingDictClass, memory.NilRef, 64)
	env.Smalltalk = env.Object.NewNamespace(namespaceClass, smalltalkBindings, memory.NilRef)
	// The namespace's own BindingDictionary needs env set to itself once
	// it exists; BindingDictEnvironment already points at memory.NilRef
	// from NewBindingDictionary's call above — patch it now.
	env.Mem.SlotSet(smalltalkBindings, 1, object.Ref(env.Smalltalk))

	// Metaclass objects, one per class, created before any of them are
	// wired to each other so superclass.metaclass lookups during this
	// same pass always resolve.
	for _, row := range schedule {
		classRef := env.Classes[row.name]
		mcRef := env.Object.NewMetaclass(metaclassClass)
		env.Object.SetMetaclassInstanceClass(mcRef, classRef)
		env.Metaclasses[row.name] = mcRef
		env.Mem.SetClass(classRef, mcRef)
	}

	for _, row := range schedule {
		classRef := env.Classes[row.name]
		mcRef := env.Metaclasses[row.name]

		if row.super == "" {
			// Object's metaclass superclass is the Class class itself,
			// closing the lattice (spec.md section 4.4's invariant).
			env.Object.SetMetaclassSuperclass(mcRef, classClass)
		} else {
			superMC := env.Metaclasses[row.super]
			env.Object.SetMetaclassSuperclass(mcRef, superMC)
		}
		env.Object.SetMetaclassMethodDictionary(mcRef, env.Object.NewMethodDictionary(memory.NilRef, 8))

		// Method dictionary for the class side (instance methods).
		env.Object.SetClassMethodDictionary(classRef, env.Object.NewMethodDictionary(memory.NilRef, 8))

		// subClasses: exactly-sized Array of this class's direct
		// subclasses, filled by a second schedule walk (pass 3 step 3).
		n := env.subclassCount[row.name]
		subArr := env.Object.NewArray(arrayClass, n)
		env.Object.SetClassSubClasses(classRef, subArr)

		// instanceVariables: Array of Symbols naming this class's own
		// (not inherited) instance variables, in declaration order.
		ivArr := env.Object.NewArray(arrayClass, len(row.instanceVarNames))
		for i, name := range row.instanceVarNames {
			sym := env.Symbols.FindOrAdd(name)
			env.Object.ArrayAtPut(ivArr, i, object.Ref(sym))
		}
		env.Object.SetClassInstanceVariables(classRef, ivArr)

		// classVariables: BindingDictionary, empty unless the schedule
		// names any (none currently do; present for forward-compat with
		// kernel modules that add class-side state).
		cvDict := env.Object.NewBindingDictionary(bindingDictClass, env.Smalltalk, 4)
		env.Object.SetClassVariables(classRef, cvDict)

		poolArr := env.Object.NewArray(arrayClass, len(row.sharedPoolNames))
		env.Object.SetClassSharedPools(classRef, poolArr)

		env.Object.SetClassEnvironment(classRef, env.Smalltalk)

		nameSym := env.Symbols.FindOrAdd(row.name)
		env.Object.SetClassName(classRef, nameSym)
		env.Object.BindingAtPut(smalltalkBindings, nameSym, object.Ref(classRef), bindingDictClass)
	}

	// Second walk: fill each class's subClasses array now that every
	// class object exists.
	filled := make(map[string]int)
	for _, row := range schedule {
		if row.super == "" {
			continue
		}
		subArr := env.Object.ClassSubClasses(env.Classes[row.super])
		idx := filled[row.super]
		env.Object.ArrayAtPut(subArr, idx, object.Ref(env.Classes[row.name]))
		filled[row.super] = idx + 1
	}

	// SymbolTable is reachable as a global inside the root namespace
	// (spec.md section 4.2): bind the table's bucket Array directly under
	// that name.
	symbolTableSym := env.Symbols.FindOrAdd("SymbolTable")
	env.Object.BindingAtPut(smalltalkBindings, symbolTableSym, object.Ref(env.Symbols.Buckets()), bindingDictClass)

	env.VMPrimitives = env.Object.NewBindingDictionary(bindingDictClass, env.Smalltalk, 64)
	vmPrimSym := env.Symbols.FindOrAdd("VMPrimitives")
	env.Object.BindingAtPut(smalltalkBindings, vmPrimSym, object.Ref(env.VMPrimitives), bindingDictClass)

	return nil
}

// RegisterPrimitive binds name (without the "VMpr_" prefix the registry
// uses for its own bookkeeping) to primID in VMPrimitives, so the
// compiler can resolve a `<primitive: 'name'>` pragma to a numeric id at
// compile time.
func (env *Environment) RegisterPrimitive(name string, primID int) {
	sym := env.Symbols.FindOrAdd("VMpr_" + name)
	bindingDictClass := env.Classes["BindingDictionary"]
	env.Object.BindingAtPut(env.VMPrimitives, sym, object.Int(int64(primID)), bindingDictClass)
}

// PrimitiveID resolves a pragma name to its registered primitive id, or
// 0 ("no primitive") if name was never registered.
func (env *Environment) PrimitiveID(name string) int {
	sym, ok := env.Symbols.Find("VMpr_" + name)
	if !ok {
		return 0
	}
	binding, ok := env.Object.BindingAt(env.VMPrimitives, sym)
	if !ok {
		return 0
	}
	return int(env.Object.AssocValue(binding).Int())
}

// ClassOfValue resolves the class of any Value, immediate or heap: a
// SmallInteger's class is not stored per-instance (there is no instance
// to store it on), so this is the one place that special-cases the
// immediate representation before falling back to memory.Store.ClassOf.
func (env *Environment) ClassOfValue(v object.Value) (object.ObjectRef, error) {
	if v.IsInt() {
		class, ok := env.Classes["SmallInteger"]
		if !ok {
			return memory.NilRef, fmt.Errorf("bootstrap: SmallInteger class missing from schedule")
		}
		return class, nil
	}
	return env.Mem.ClassOf(v.Ref())
}

// LookupMethod walks the superclass chain starting at class, returning
// the first CompiledMethod found for selector and the class that defines
// it — spec.md section 5's method lookup.
func (env *Environment) LookupMethod(class, selector object.ObjectRef) (method, definingClass object.ObjectRef, found bool) {
	for c := class; c != memory.NilRef; c = env.Object.SuperclassOf(c) {
		dict := env.Object.MethodDictionaryOf(c)
		if m, ok := env.Object.MethodDictAt(dict, selector); ok {
			return m, c, true
		}
	}
	return memory.NilRef, memory.NilRef, false
}
