// Package primitive implements the fixed-id primitive handlers
// spec.md section 6 anticipates via a CompiledMethod's primId header
// field, plus the supplemented handlers original_source/'s object
// protocol and BlockClosure evaluation need.
//
// Adapted from smog's pkg/vm primitive dispatch (a selector-keyed switch
// inside VM.send) — generalized to this design's numeric-primId scheme,
// since a CompiledMethod here carries a primId rather than a selector
// string at the call site. Registration goes through
// bootstrap.Environment.RegisterPrimitive, which binds a human-readable
// name ("VMpr_"+name) to the id in VMPrimitives so a kernel source
// method's <primitive: 'name'> pragma resolves to the same id the
// registry is keyed by.
package primitive

import (
	"fmt"

	"github.com/kristofer/stbootstrap/internal/bootstrap"
	"github.com/kristofer/stbootstrap/internal/interp"
	"github.com/kristofer/stbootstrap/internal/object"
)

// Fixed primitive ids. Numbered in a single flat space per spec.md
// section 6 ("primId: 0..511"); grouped here by protocol for
// readability, not because the numbering itself is meaningful.
const (
	PrimSmallIntAdd = 1 + iota
	PrimSmallIntSub
	PrimSmallIntMul
	PrimSmallIntDiv
	PrimSmallIntMod
	PrimSmallIntLess
	PrimSmallIntGreater
	PrimSmallIntLessEq
	PrimSmallIntGreaterEq
	PrimSmallIntEqual
	PrimObjectIdentityEqual
	PrimObjectClass
	PrimObjectBasicSize
	PrimObjectHash
	PrimObjectPrintString
	PrimObjectDisplayNl
	PrimBehaviorNew
	PrimBehaviorBasicNew
	PrimBehaviorBasicNewColon
	PrimArrayAt
	PrimArrayAtPut
	PrimArraySize
	PrimStringSize
	PrimBlockValue
	PrimBlockValueColon
	PrimBlockValueColonColon
)

// Register installs every primitive this package implements into env's
// VMPrimitives binding table (so the compiler can resolve
// <primitive: 'name'> pragmas) and returns the primId -> handler map
// interp.New needs to actually run them.
func Register(env *bootstrap.Environment) map[int]interp.Primitive {
	names := map[string]int{
		"SmallInt_add":              PrimSmallIntAdd,
		"SmallInt_sub":              PrimSmallIntSub,
		"SmallInt_mul":              PrimSmallIntMul,
		"SmallInt_div":              PrimSmallIntDiv,
		"SmallInt_mod":              PrimSmallIntMod,
		"SmallInt_less":             PrimSmallIntLess,
		"SmallInt_greater":          PrimSmallIntGreater,
		"SmallInt_lessEq":           PrimSmallIntLessEq,
		"SmallInt_greaterEq":        PrimSmallIntGreaterEq,
		"SmallInt_equal":            PrimSmallIntEqual,
		"Object_identityEqual":      PrimObjectIdentityEqual,
		"Object_class":              PrimObjectClass,
		"Object_basicSize":          PrimObjectBasicSize,
		"Object_hash":               PrimObjectHash,
		"Object_printString":        PrimObjectPrintString,
		"Object_displayNl":          PrimObjectDisplayNl,
		"Behavior_new":              PrimBehaviorNew,
		"Behavior_basicNew":         PrimBehaviorBasicNew,
		"Behavior_basicNew:":        PrimBehaviorBasicNewColon,
		"Array_at:":                 PrimArrayAt,
		"Array_at:put:":             PrimArrayAtPut,
		"Array_size":                PrimArraySize,
		"String_size":               PrimStringSize,
		"BlockClosure_value":        PrimBlockValue,
		"BlockClosure_value:":       PrimBlockValueColon,
		"BlockClosure_value:value:": PrimBlockValueColonColon,
	}
	for name, id := range names {
		env.RegisterPrimitive(name, id)
	}

	return map[int]interp.Primitive{
		PrimSmallIntAdd:       smallIntBinOp(func(a, b int64) int64 { return a + b }),
		PrimSmallIntSub:       smallIntBinOp(func(a, b int64) int64 { return a - b }),
		PrimSmallIntMul:       smallIntBinOp(func(a, b int64) int64 { return a * b }),
		PrimSmallIntDiv:       smallIntDivOp,
		PrimSmallIntMod:       smallIntModOp,
		PrimSmallIntLess:      smallIntCompareOp(func(a, b int64) bool { return a < b }),
		PrimSmallIntGreater:   smallIntCompareOp(func(a, b int64) bool { return a > b }),
		PrimSmallIntLessEq:    smallIntCompareOp(func(a, b int64) bool { return a <= b }),
		PrimSmallIntGreaterEq: smallIntCompareOp(func(a, b int64) bool { return a >= b }),
		PrimSmallIntEqual:     smallIntCompareOp(func(a, b int64) bool { return a == b }),

		PrimObjectIdentityEqual: objectIdentityEqual,
		PrimObjectClass:         objectClass,
		PrimObjectBasicSize:     objectBasicSize,
		PrimObjectHash:          objectHash,
		PrimObjectPrintString:   objectPrintString,
		PrimObjectDisplayNl:     objectDisplayNl,

		PrimBehaviorNew:           behaviorNew,
		PrimBehaviorBasicNew:      behaviorBasicNew,
		PrimBehaviorBasicNewColon: behaviorBasicNewColon,

		PrimArrayAt:    arrayAt,
		PrimArrayAtPut: arrayAtPut,
		PrimArraySize:  arraySize,
		PrimStringSize: stringSize,

		PrimBlockValue:           blockValue,
		PrimBlockValueColon:      blockValue,
		PrimBlockValueColonColon: blockValue,
	}
}

func smallIntBinOp(op func(a, b int64) int64) interp.Primitive {
	return func(it *interp.Interp, receiver object.Value, args []object.Value) (object.Value, interp.Outcome, error) {
		if !receiver.IsInt() || len(args) != 1 || !args[0].IsInt() {
			return object.Value{}, interp.PrimFallThrough, nil
		}
		return object.Int(op(receiver.Int(), args[0].Int())), interp.PrimPushResult, nil
	}
}

func smallIntCompareOp(op func(a, b int64) bool) interp.Primitive {
	return func(it *interp.Interp, receiver object.Value, args []object.Value) (object.Value, interp.Outcome, error) {
		if !receiver.IsInt() || len(args) != 1 || !args[0].IsInt() {
			return object.Value{}, interp.PrimFallThrough, nil
		}
		if op(receiver.Int(), args[0].Int()) {
			return object.True, interp.PrimPushResult, nil
		}
		return object.False, interp.PrimPushResult, nil
	}
}

func smallIntDivOp(it *interp.Interp, receiver object.Value, args []object.Value) (object.Value, interp.Outcome, error) {
	if !receiver.IsInt() || len(args) != 1 || !args[0].IsInt() || args[0].Int() == 0 {
		return object.Value{}, interp.PrimFallThrough, nil
	}
	return object.Int(receiver.Int() / args[0].Int()), interp.PrimPushResult, nil
}

func smallIntModOp(it *interp.Interp, receiver object.Value, args []object.Value) (object.Value, interp.Outcome, error) {
	if !receiver.IsInt() || len(args) != 1 || !args[0].IsInt() || args[0].Int() == 0 {
		return object.Value{}, interp.PrimFallThrough, nil
	}
	return object.Int(receiver.Int() % args[0].Int()), interp.PrimPushResult, nil
}

// objectIdentityEqual implements ==, spec.md's pointer-identity
// comparison: two immediates compare by value, two refs by handle, and
// an immediate never equals a ref.
func objectIdentityEqual(it *interp.Interp, receiver object.Value, args []object.Value) (object.Value, interp.Outcome, error) {
	if len(args) != 1 {
		return object.Value{}, interp.PrimFallThrough, nil
	}
	other := args[0]
	equal := receiver.IsInt() == other.IsInt()
	if equal {
		if receiver.IsInt() {
			equal = receiver.Int() == other.Int()
		} else {
			equal = receiver.Ref() == other.Ref()
		}
	}
	if equal {
		return object.True, interp.PrimPushResult, nil
	}
	return object.False, interp.PrimPushResult, nil
}

func objectClass(it *interp.Interp, receiver object.Value, args []object.Value) (object.Value, interp.Outcome, error) {
	class, err := it.Env().ClassOfValue(receiver)
	if err != nil {
		return object.Value{}, interp.PrimFallThrough, nil
	}
	return object.Ref(class), interp.PrimPushResult, nil
}

// objectBasicSize reports the object's indexable slot count: 0 for
// immediates and fixed-shape objects, len(Slots)/len(Bytes) otherwise.
func objectBasicSize(it *interp.Interp, receiver object.Value, args []object.Value) (object.Value, interp.Outcome, error) {
	if receiver.IsInt() {
		return object.Int(0), interp.PrimPushResult, nil
	}
	obj, err := it.Env().Mem.Get(receiver.Ref())
	if err != nil {
		return object.Value{}, interp.PrimFallThrough, nil
	}
	switch obj.Kind() {
	case object.KindString, object.KindSymbol:
		return object.Int(int64(len(obj.Bytes))), interp.PrimPushResult, nil
	case object.KindClass, object.KindMetaclass:
		return object.Int(0), interp.PrimPushResult, nil
	}
	if class, err := it.Env().ClassOfValue(receiver); err == nil && it.Env().Object.ClassInstanceSpec(class)&1 != 0 {
		return object.Int(0), interp.PrimPushResult, nil
	}
	return object.Int(int64(len(obj.Slots))), interp.PrimPushResult, nil
}

// objectHash implements the spec's object-identity hash: SmallIntegers
// hash to themselves, everything else to memory.Store's identity hash
// (spec.md's "hash is stable for the object's lifetime, not across a
// Store rebuild" caveat applies here, same as for Dictionary).
func objectHash(it *interp.Interp, receiver object.Value, args []object.Value) (object.Value, interp.Outcome, error) {
	if receiver.IsInt() {
		return object.Int(receiver.Int()), interp.PrimPushResult, nil
	}
	return object.Int(int64(it.Env().Mem.HashOf(receiver.Ref()))), interp.PrimPushResult, nil
}

// objectPrintString is the supplemented minimal #printString: good
// enough to exercise doesNotUnderstand:/displayNl without a full
// printOn: stream protocol.
func objectPrintString(it *interp.Interp, receiver object.Value, args []object.Value) (object.Value, interp.Outcome, error) {
	s := printableString(it, receiver)
	strClass := it.Env().Classes["String"]
	return object.Ref(it.Env().Object.NewString(strClass, s)), interp.PrimPushResult, nil
}

func objectDisplayNl(it *interp.Interp, receiver object.Value, args []object.Value) (object.Value, interp.Outcome, error) {
	fmt.Println(printableString(it, receiver))
	return receiver, interp.PrimPushResult, nil
}

func printableString(it *interp.Interp, v object.Value) string {
	if v.IsInt() {
		return fmt.Sprintf("%d", v.Int())
	}
	if v == object.Nil {
		return "nil"
	}
	if v == object.True {
		return "true"
	}
	if v == object.False {
		return "false"
	}
	if obj, err := it.Env().Mem.Get(v.Ref()); err == nil && (obj.Kind() == object.KindString || obj.Kind() == object.KindSymbol) {
		return string(obj.Bytes)
	}
	class, err := it.Env().ClassOfValue(v)
	if err != nil {
		return "a ?"
	}
	name, _ := it.Env().Object.StringValue(it.Env().Object.ClassName(class))
	return "a " + name
}

// behaviorNew/basicNew/basicNew: implement the spec's class-side
// instantiation protocol: a fixed-shape instance gets exactly its
// class's instance-variable count as slots; basicNew: additionally
// takes an indexable size for Array-like classes.
func behaviorNew(it *interp.Interp, receiver object.Value, args []object.Value) (object.Value, interp.Outcome, error) {
	return allocateInstance(it, receiver, 0)
}

func behaviorBasicNew(it *interp.Interp, receiver object.Value, args []object.Value) (object.Value, interp.Outcome, error) {
	return allocateInstance(it, receiver, 0)
}

func behaviorBasicNewColon(it *interp.Interp, receiver object.Value, args []object.Value) (object.Value, interp.Outcome, error) {
	if len(args) != 1 || !args[0].IsInt() {
		return object.Value{}, interp.PrimFallThrough, nil
	}
	return allocateInstance(it, receiver, int(args[0].Int()))
}

func allocateInstance(it *interp.Interp, receiver object.Value, extra int) (object.Value, interp.Outcome, error) {
	if !receiver.IsRef() {
		return object.Value{}, interp.PrimFallThrough, nil
	}
	classRef := receiver.Ref()
	spec := it.Env().Object.ClassInstanceSpec(classRef)
	numInstVars := int(spec >> 1)
	ref := it.Env().Object.NewArray(classRef, numInstVars+extra)
	for i := 0; i < numInstVars+extra; i++ {
		it.Env().Object.ArrayAtPut(ref, i, object.Nil)
	}
	return object.Ref(ref), interp.PrimPushResult, nil
}

func arrayAt(it *interp.Interp, receiver object.Value, args []object.Value) (object.Value, interp.Outcome, error) {
	if !receiver.IsRef() || len(args) != 1 || !args[0].IsInt() {
		return object.Value{}, interp.PrimFallThrough, nil
	}
	v, err := it.Env().Object.ArrayAt(receiver.Ref(), int(args[0].Int())-1)
	if err != nil {
		return object.Value{}, interp.PrimFallThrough, nil
	}
	return v, interp.PrimPushResult, nil
}

func arrayAtPut(it *interp.Interp, receiver object.Value, args []object.Value) (object.Value, interp.Outcome, error) {
	if !receiver.IsRef() || len(args) != 2 || !args[0].IsInt() {
		return object.Value{}, interp.PrimFallThrough, nil
	}
	if err := it.Env().Object.ArrayAtPut(receiver.Ref(), int(args[0].Int())-1, args[1]); err != nil {
		return object.Value{}, interp.PrimFallThrough, nil
	}
	return args[1], interp.PrimPushResult, nil
}

func arraySize(it *interp.Interp, receiver object.Value, args []object.Value) (object.Value, interp.Outcome, error) {
	if !receiver.IsRef() {
		return object.Value{}, interp.PrimFallThrough, nil
	}
	return object.Int(int64(it.Env().Object.ArraySize(receiver.Ref()))), interp.PrimPushResult, nil
}

func stringSize(it *interp.Interp, receiver object.Value, args []object.Value) (object.Value, interp.Outcome, error) {
	if !receiver.IsRef() {
		return object.Value{}, interp.PrimFallThrough, nil
	}
	s, err := it.Env().Object.StringValue(receiver.Ref())
	if err != nil {
		return object.Value{}, interp.PrimFallThrough, nil
	}
	return object.Int(int64(len(s))), interp.PrimPushResult, nil
}

// blockValue implements BlockClosure>>value / value: / value:value: —
// the one family of primitives that does not return a value itself but
// retargets the interpreter's current context to the block's own
// CompiledBlock (PrimActivated), per spec.md section 5's closure
// activation note.
func blockValue(it *interp.Interp, receiver object.Value, args []object.Value) (object.Value, interp.Outcome, error) {
	if !receiver.IsRef() {
		return object.Value{}, interp.PrimFallThrough, nil
	}
	if err := it.ActivateBlockFromCaller(receiver.Ref(), args); err != nil {
		return object.Value{}, interp.PrimFallThrough, nil
	}
	return object.Value{}, interp.PrimActivated, nil
}
