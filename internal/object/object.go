// Package object implements the core object model: the fixed-layout
// object variants spec.md section 3 enumerates, expressed as typed views
// over a memory.Store entry rather than one Go struct per concept. This is
// the generalization of smog's pkg/bytecode.ClassDefinition /
// pkg/vm.Instance (one ad-hoc struct per shape) into a single uniform
// representation that the object memory can own without special-casing
// any of them.
package object

import (
	"errors"
	"fmt"

	"github.com/kristofer/stbootstrap/internal/memory"
)

// Re-export the variant kinds under names that read naturally at the call
// sites of this package; Kind itself is owned by memory because
// memory.Object.Kind() must return it.
const (
	KindSingleton         = memory.KindSingleton
	KindClass             = memory.KindClass
	KindMetaclass         = memory.KindMetaclass
	KindArray             = memory.KindArray
	KindString            = memory.KindString
	KindSymbol            = memory.KindSymbol
	KindSymLink           = memory.KindSymLink
	KindAssociation       = memory.KindAssociation
	KindVariableBinding   = memory.KindVariableBinding
	KindDictionary        = memory.KindDictionary
	KindBindingDictionary = memory.KindBindingDictionary
	KindMethodDictionary  = memory.KindMethodDictionary
	KindNamespace         = memory.KindNamespace
	KindMethodContext     = memory.KindMethodContext
	KindBlockContext      = memory.KindBlockContext
	KindCompiledMethod    = memory.KindCompiledMethod
	KindCompiledBlock     = memory.KindCompiledBlock
	KindMethodInfo        = memory.KindMethodInfo
	KindBlockClosure      = memory.KindBlockClosure
	KindBoxedValue        = memory.KindBoxedValue
)

// Value and ObjectRef are the same types memory exposes; re-exported here
// so compiler/interp/bootstrap code only needs to import object, not
// memory, for everyday value handling.
type (
	Value     = memory.Value
	ObjectRef = memory.ObjectRef
)

var (
	Nil  = memory.Nil
	Int  = memory.Int
	Ref  = memory.Ref
	True = memory.Ref(memory.TrueRef)
	// False duplicates the name of the Go builtin-shadowing boolean,
	// kept as a Value constructor like True for symmetry.
	False = memory.Ref(memory.FalseRef)
)

// Class fixed-slot layout. Matches spec.md's Class entity table exactly;
// order fixes the slot indices other packages (bootstrap, compiler) use.
const (
	ClassSlotSuperclass = iota
	ClassSlotMethodDictionary
	ClassSlotInstanceSpec
	ClassSlotSubClasses
	ClassSlotInstanceVariables
	ClassSlotName
	ClassSlotComment
	ClassSlotCategory
	ClassSlotEnvironment
	ClassSlotClassVariables
	ClassSlotSharedPools
	ClassSlotPragmaHandlers
	classNumSlots
)

// Metaclass fixed-slot layout.
const (
	MetaclassSlotSuperclass = iota
	MetaclassSlotMethodDictionary
	MetaclassSlotInstanceSpec
	MetaclassSlotSubClasses
	MetaclassSlotInstanceVariables
	MetaclassSlotInstanceClass
	metaclassNumSlots
)

// Association/VariableBinding fixed-slot layout.
const (
	AssocSlotKey = iota
	AssocSlotValue
	assocNumSlots

	BindingSlotKey = AssocSlotKey
	BindingSlotValue = AssocSlotValue
	BindingSlotEnvironment = assocNumSlots
	bindingNumSlots        = assocNumSlots + 1
)

// Context fixed prefix, per spec.md section 3/6: slots 0..6 are parent,
// native_ip, ip, sp, receiver, method, (flags|outerContext); locals follow.
const (
	CtxSlotParent = iota
	CtxSlotNativeIP
	CtxSlotIP
	CtxSlotSP
	CtxSlotReceiver
	CtxSlotMethod
	CtxSlotFlagsOrOuter
	CtxFixedPrefix // number of fixed slots before locals/stack begin
)

// CompiledMethod/CompiledBlock fixed-slot layout. The bytecode itself
// lives in the object's Bytes buffer; Slots hold the literal table plus
// the packed header and (for methods) a MethodInfo back-reference.
const (
	CodeSlotLiterals = iota
	CodeSlotHeader
	CodeSlotInfo // MethodInfo ref; unused (nil) for CompiledBlock
	codeNumSlots
)

// BlockClosure fixed-slot layout.
const (
	ClosureSlotOuterContext = iota
	ClosureSlotBlock
	ClosureSlotReceiver
	closureNumSlots
)

// MethodInfo fixed-slot layout.
const (
	InfoSlotSourceCode = iota
	InfoSlotCategory
	InfoSlotClass
	InfoSlotSelector
	InfoSlotDebugInfo
	infoNumSlots
)

// Model wraps a memory.Store with the constructors and accessors for every
// core variant. It is the seam between "uniform slotted memory" and
// "Smalltalk object semantics": every package above object talks to the
// image through a *Model, not a *memory.Store directly.
type Model struct {
	Mem *memory.Store
}

// New wraps an existing object memory.
func New(mem *memory.Store) *Model { return &Model{Mem: mem} }

// ErrStructuralOverflow is spec.md section 7's "structural overflow" fatal
// kind: a dictionary's linear probe exhausted every slot without finding
// an empty or matching one, which indicates growDictIfNeeded (or one of
// its Binding/MethodDictionary siblings) failed to grow in time.
// internal/interp wraps this as a *Fault so callers can errors.Is against
// it regardless of which dictionary variant raised it.
var ErrStructuralOverflow = errors.New("object: dictionary probe exhausted: structural overflow")

func (m *Model) errf(format string, args ...interface{}) error {
	return fmt.Errorf("object: "+format, args...)
}

// --- Class ---

// NewClass allocates a Class object. Callers fill in slots afterward
// (bootstrap assigns them across its three passes); this only reserves
// the shape.
func (m *Model) NewClass(metaclassOfClasses ObjectRef) ObjectRef {
	return m.Mem.Allocate(metaclassOfClasses, KindClass, classNumSlots)
}

func (m *Model) ClassSuperclass(c ObjectRef) ObjectRef { return m.slotRef(c, ClassSlotSuperclass) }
func (m *Model) SetClassSuperclass(c ObjectRef, sup ObjectRef) error {
	return m.Mem.SlotSet(c, ClassSlotSuperclass, Ref(sup))
}
func (m *Model) ClassMethodDictionary(c ObjectRef) ObjectRef {
	return m.slotRef(c, ClassSlotMethodDictionary)
}
func (m *Model) SetClassMethodDictionary(c ObjectRef, d ObjectRef) error {
	return m.Mem.SlotSet(c, ClassSlotMethodDictionary, Ref(d))
}
func (m *Model) ClassInstanceSpec(c ObjectRef) int64 {
	v, _ := m.Mem.SlotGet(c, ClassSlotInstanceSpec)
	return v.Int()
}
func (m *Model) SetClassInstanceSpec(c ObjectRef, spec int64) error {
	return m.Mem.SlotSet(c, ClassSlotInstanceSpec, Int(spec))
}
func (m *Model) ClassSubClasses(c ObjectRef) ObjectRef { return m.slotRef(c, ClassSlotSubClasses) }
func (m *Model) SetClassSubClasses(c ObjectRef, arr ObjectRef) error {
	return m.Mem.SlotSet(c, ClassSlotSubClasses, Ref(arr))
}
func (m *Model) ClassName(c ObjectRef) ObjectRef { return m.slotRef(c, ClassSlotName) }
func (m *Model) SetClassName(c ObjectRef, sym ObjectRef) error {
	return m.Mem.SlotSet(c, ClassSlotName, Ref(sym))
}
func (m *Model) ClassEnvironment(c ObjectRef) ObjectRef { return m.slotRef(c, ClassSlotEnvironment) }
func (m *Model) SetClassEnvironment(c ObjectRef, ns ObjectRef) error {
	return m.Mem.SlotSet(c, ClassSlotEnvironment, Ref(ns))
}
func (m *Model) SetClassInstanceVariables(c ObjectRef, arr ObjectRef) error {
	return m.Mem.SlotSet(c, ClassSlotInstanceVariables, Ref(arr))
}
func (m *Model) SetClassVariables(c ObjectRef, dict ObjectRef) error {
	return m.Mem.SlotSet(c, ClassSlotClassVariables, Ref(dict))
}
func (m *Model) SetClassSharedPools(c ObjectRef, arr ObjectRef) error {
	return m.Mem.SlotSet(c, ClassSlotSharedPools, Ref(arr))
}

// --- Metaclass ---

func (m *Model) NewMetaclass(classOfClass ObjectRef) ObjectRef {
	return m.Mem.Allocate(classOfClass, KindMetaclass, metaclassNumSlots)
}
func (m *Model) MetaclassSuperclass(mc ObjectRef) ObjectRef {
	return m.slotRef(mc, MetaclassSlotSuperclass)
}
func (m *Model) SetMetaclassSuperclass(mc, sup ObjectRef) error {
	return m.Mem.SlotSet(mc, MetaclassSlotSuperclass, Ref(sup))
}
func (m *Model) MetaclassInstanceClass(mc ObjectRef) ObjectRef {
	return m.slotRef(mc, MetaclassSlotInstanceClass)
}
func (m *Model) SetMetaclassInstanceClass(mc, class ObjectRef) error {
	return m.Mem.SlotSet(mc, MetaclassSlotInstanceClass, Ref(class))
}
func (m *Model) SetMetaclassMethodDictionary(mc, d ObjectRef) error {
	return m.Mem.SlotSet(mc, MetaclassSlotMethodDictionary, Ref(d))
}
func (m *Model) MetaclassMethodDictionary(mc ObjectRef) ObjectRef {
	return m.slotRef(mc, MetaclassSlotMethodDictionary)
}

// --- Array ---

func (m *Model) NewArray(class ObjectRef, size int) ObjectRef {
	return m.Mem.Allocate(class, KindArray, size)
}
func (m *Model) ArraySize(a ObjectRef) int {
	obj, err := m.Mem.Get(a)
	if err != nil {
		return 0
	}
	return len(obj.Slots)
}
func (m *Model) ArrayAt(a ObjectRef, i int) (Value, error) { return m.Mem.SlotGet(a, i) }
func (m *Model) ArrayAtPut(a ObjectRef, i int, v Value) error {
	return m.Mem.SlotSet(a, i, v)
}

// --- String / Symbol ---

func (m *Model) NewString(class ObjectRef, s string) ObjectRef {
	return m.Mem.AllocateBytes(class, KindString, []byte(s))
}
func (m *Model) NewSymbol(class ObjectRef, s string) ObjectRef {
	return m.Mem.AllocateBytes(class, KindSymbol, []byte(s))
}
func (m *Model) StringValue(ref ObjectRef) (string, error) {
	obj, err := m.Mem.Get(ref)
	if err != nil {
		return "", err
	}
	return string(obj.Bytes), nil
}

// --- SymLink ---

const (
	SymLinkSlotNext = iota
	SymLinkSlotSymbol
	symLinkNumSlots
)

func (m *Model) NewSymLink(class, next, symbol ObjectRef) ObjectRef {
	ref := m.Mem.Allocate(class, KindSymLink, symLinkNumSlots)
	m.Mem.SlotSet(ref, SymLinkSlotNext, Ref(next))
	m.Mem.SlotSet(ref, SymLinkSlotSymbol, Ref(symbol))
	return ref
}
func (m *Model) SymLinkNext(l ObjectRef) ObjectRef   { return m.slotRef(l, SymLinkSlotNext) }
func (m *Model) SymLinkSymbol(l ObjectRef) ObjectRef { return m.slotRef(l, SymLinkSlotSymbol) }

// --- Association / VariableBinding ---

func (m *Model) NewAssociation(class, key, value ObjectRef) ObjectRef {
	ref := m.Mem.Allocate(class, KindAssociation, assocNumSlots)
	m.Mem.SlotSet(ref, AssocSlotKey, Ref(key))
	m.Mem.SlotSet(ref, AssocSlotValue, Ref(value))
	return ref
}
func (m *Model) NewVariableBinding(class, key, value, env ObjectRef) ObjectRef {
	ref := m.Mem.Allocate(class, KindVariableBinding, bindingNumSlots)
	m.Mem.SlotSet(ref, BindingSlotKey, Ref(key))
	m.Mem.SlotSet(ref, BindingSlotValue, Ref(value))
	m.Mem.SlotSet(ref, BindingSlotEnvironment, Ref(env))
	return ref
}
func (m *Model) AssocKey(a ObjectRef) ObjectRef   { return m.slotRef(a, AssocSlotKey) }
func (m *Model) AssocValue(a ObjectRef) Value {
	v, _ := m.Mem.SlotGet(a, AssocSlotValue)
	return v
}
func (m *Model) SetAssocValue(a ObjectRef, v Value) error {
	return m.Mem.SlotSet(a, AssocSlotValue, v)
}

// --- MethodInfo ---

func (m *Model) NewMethodInfo(class ObjectRef) ObjectRef {
	return m.Mem.Allocate(class, KindMethodInfo, infoNumSlots)
}
func (m *Model) SetMethodInfoSource(info ObjectRef, src string, strClass ObjectRef) error {
	return m.Mem.SlotSet(info, InfoSlotSourceCode, Ref(m.NewString(strClass, src)))
}
func (m *Model) SetMethodInfoSelector(info, sel ObjectRef) error {
	return m.Mem.SlotSet(info, InfoSlotSelector, Ref(sel))
}
func (m *Model) SetMethodInfoClass(info, class ObjectRef) error {
	return m.Mem.SlotSet(info, InfoSlotClass, Ref(class))
}
func (m *Model) MethodInfoClass(info ObjectRef) ObjectRef { return m.slotRef(info, InfoSlotClass) }
func (m *Model) MethodInfoSelector(info ObjectRef) ObjectRef {
	return m.slotRef(info, InfoSlotSelector)
}

// --- BlockClosure ---

func (m *Model) NewBlockClosure(class, outerCtx, block ObjectRef, receiver Value) ObjectRef {
	ref := m.Mem.Allocate(class, KindBlockClosure, closureNumSlots)
	m.Mem.SlotSet(ref, ClosureSlotOuterContext, Ref(outerCtx))
	m.Mem.SlotSet(ref, ClosureSlotBlock, Ref(block))
	m.Mem.SlotSet(ref, ClosureSlotReceiver, receiver)
	return ref
}
func (m *Model) ClosureBlock(c ObjectRef) ObjectRef { return m.slotRef(c, ClosureSlotBlock) }

// ClosureReceiver returns the closure's captured receiver as a full
// Value (see Context.CtxReceiver: a receiver can be a SmallInteger).
func (m *Model) ClosureReceiver(c ObjectRef) Value {
	v, _ := m.Mem.SlotGet(c, ClosureSlotReceiver)
	return v
}
func (m *Model) SetClosureReceiver(c ObjectRef, v Value) error {
	return m.Mem.SlotSet(c, ClosureSlotReceiver, v)
}
func (m *Model) ClosureOuterContext(c ObjectRef) ObjectRef {
	return m.slotRef(c, ClosureSlotOuterContext)
}

// --- helpers ---

// SuperclassOf and MethodDictionaryOf dispatch on whether ref is a Class
// or a Metaclass, since method lookup (bootstrap.LookupMethod) walks the
// same chain for both — a class-side send resolves against the
// receiver's metaclass chain exactly as an instance-side send resolves
// against the receiver's class chain.
func (m *Model) SuperclassOf(ref ObjectRef) ObjectRef {
	obj, err := m.Mem.Get(ref)
	if err != nil {
		return memory.NilRef
	}
	if obj.Kind() == KindMetaclass {
		return m.MetaclassSuperclass(ref)
	}
	return m.ClassSuperclass(ref)
}

func (m *Model) MethodDictionaryOf(ref ObjectRef) ObjectRef {
	obj, err := m.Mem.Get(ref)
	if err != nil {
		return memory.NilRef
	}
	if obj.Kind() == KindMetaclass {
		return m.MetaclassMethodDictionary(ref)
	}
	return m.ClassMethodDictionary(ref)
}

func (m *Model) slotRef(ref ObjectRef, idx int) ObjectRef {
	v, err := m.Mem.SlotGet(ref, idx)
	if err != nil || v.IsInt() {
		return memory.NilRef
	}
	return v.Ref()
}
