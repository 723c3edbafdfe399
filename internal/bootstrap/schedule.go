package bootstrap

// classSpec is one row of the fixed class schedule spec.md section 4.4
// takes as bootstrap input: class name, superclass name,
// has-primitive-cover, isFixed flag, instance-var names, class-var names,
// shared-pool names. name/super are resolved by name against the schedule
// itself and against Environment.Classes.
type classSpec struct {
	name             string
	super            string // "" only for the root (Object)
	hasPrimitiveCover bool
	isFixed          bool
	instanceVarNames []string
	classVarNames    []string
	sharedPoolNames  []string
}

// schedule is intentionally small: enough of the Smalltalk kernel
// hierarchy to exercise every invariant spec.md section 8 names (class/
// metaclass closure, SmallInteger class cache, dictionary family growth)
// without trying to reproduce a full kernel image. Rows are listed
// superclass-before-subclass, which pass 1 relies on ("locate the
// already-constructed superclass via cache").
var schedule = []classSpec{
	{name: "Object"},
	{name: "Behavior", super: "Object"},
	{name: "ClassDescription", super: "Behavior"},
	{name: "Class", super: "ClassDescription", isFixed: true,
		instanceVarNames: []string{
			"superclass", "methodDictionary", "instanceSpec", "subClasses",
			"instanceVariables", "name", "comment", "category",
			"environment", "classVariables", "sharedPools", "pragmaHandlers",
		}},
	{name: "Metaclass", super: "ClassDescription", isFixed: true,
		instanceVarNames: []string{
			"superclass", "methodDictionary", "instanceSpec", "subClasses",
			"instanceVariables", "instanceClass",
		}},
	{name: "Magnitude", super: "Object"},
	{name: "Number", super: "Magnitude"},
	{name: "Integer", super: "Number"},
	{name: "SmallInteger", super: "Integer", hasPrimitiveCover: true, isFixed: true},
	{name: "Boolean", super: "Object"},
	{name: "True", super: "Boolean", hasPrimitiveCover: true, isFixed: true},
	{name: "False", super: "Boolean", hasPrimitiveCover: true, isFixed: true},
	{name: "UndefinedObject", super: "Object", hasPrimitiveCover: true, isFixed: true},
	{name: "Collection", super: "Object"},
	{name: "SequenceableCollection", super: "Collection"},
	{name: "ArrayedCollection", super: "SequenceableCollection"},
	{name: "Array", super: "ArrayedCollection", hasPrimitiveCover: true},
	{name: "String", super: "ArrayedCollection", hasPrimitiveCover: true},
	{name: "Symbol", super: "String", hasPrimitiveCover: true},
	{name: "HashedCollection", super: "Collection"},
	{name: "Dictionary", super: "HashedCollection", hasPrimitiveCover: true, isFixed: true,
		instanceVarNames: []string{"tally"}},
	{name: "BindingDictionary", super: "Dictionary", hasPrimitiveCover: true, isFixed: true,
		instanceVarNames: []string{"environment"}},
	{name: "MethodDictionary", super: "HashedCollection", hasPrimitiveCover: true, isFixed: true,
		instanceVarNames: []string{"tally", "mutex"}},
	{name: "Namespace", super: "Object", hasPrimitiveCover: true, isFixed: true,
		instanceVarNames: []string{"bindings", "name", "subspaces", "sharedPools"}},
	{name: "Association", super: "Object", hasPrimitiveCover: true, isFixed: true,
		instanceVarNames: []string{"key", "value"}},
	{name: "VariableBinding", super: "Association", hasPrimitiveCover: true, isFixed: true,
		instanceVarNames: []string{"environment"}},
	{name: "SymLink", super: "Object", hasPrimitiveCover: true, isFixed: true,
		instanceVarNames: []string{"nextLink", "symbol"}},
	{name: "Context", super: "Object", hasPrimitiveCover: true,
		instanceVarNames: []string{"parent", "nativeIP", "ip", "sp", "receiver", "method", "flagsOrOuter"}},
	{name: "MethodContext", super: "Context", hasPrimitiveCover: true},
	{name: "BlockContext", super: "Context", hasPrimitiveCover: true},
	{name: "CompiledCode", super: "Object"},
	{name: "CompiledMethod", super: "CompiledCode", hasPrimitiveCover: true, isFixed: true,
		instanceVarNames: []string{"literals", "header", "info"}},
	{name: "CompiledBlock", super: "CompiledCode", hasPrimitiveCover: true, isFixed: true,
		instanceVarNames: []string{"literals", "header", "info"}},
	{name: "MethodInfo", super: "Object", hasPrimitiveCover: true, isFixed: true,
		instanceVarNames: []string{"sourceCode", "category", "class", "selector", "debugInfo"}},
	{name: "BlockClosure", super: "Object", hasPrimitiveCover: true, isFixed: true,
		instanceVarNames: []string{"outerContext", "block", "receiver"}},
}
