package object

import "github.com/kristofer/stbootstrap/internal/memory"

// Context layout, per spec.md section 6: the fixed 7-slot prefix
// (CtxFixedPrefix, defined in object.go) followed by numArgs+numTemps
// locals, followed by the evaluation stack. sp indexes the last pushed
// slot relative to the whole Slots vector (not relative to the locals
// area), matching spec.md's "sp indexes last pushed slot".
//
// A context is allocated with enough slots for the fixed prefix, the
// locals, and depth additional stack slots (the compiler computes depth
// as the method's maximum simultaneous stack usage).
func (m *Model) NewContext(class ObjectRef, kind memory.Kind, parent, method ObjectRef, receiver Value, numArgs, numTemps, depth int, flagsOrOuter ObjectRef) ObjectRef {
	total := CtxFixedPrefix + numArgs + numTemps + depth
	ref := m.Mem.Allocate(class, kind, total)
	m.Mem.SlotSet(ref, CtxSlotParent, Ref(parent))
	m.Mem.SlotSet(ref, CtxSlotNativeIP, Int(0))
	m.Mem.SlotSet(ref, CtxSlotIP, Int(0))
	m.Mem.SlotSet(ref, CtxSlotSP, Int(int64(CtxFixedPrefix+numArgs+numTemps-1)))
	m.Mem.SlotSet(ref, CtxSlotReceiver, receiver)
	m.Mem.SlotSet(ref, CtxSlotMethod, Ref(method))
	m.Mem.SlotSet(ref, CtxSlotFlagsOrOuter, Ref(flagsOrOuter))
	return ref
}

func (m *Model) CtxParent(c ObjectRef) ObjectRef   { return m.slotRef(c, CtxSlotParent) }
func (m *Model) SetCtxParent(c, p ObjectRef) error { return m.Mem.SlotSet(c, CtxSlotParent, Ref(p)) }

func (m *Model) CtxIP(c ObjectRef) int {
	v, _ := m.Mem.SlotGet(c, CtxSlotIP)
	return int(v.Int())
}
func (m *Model) SetCtxIP(c ObjectRef, ip int) error {
	return m.Mem.SlotSet(c, CtxSlotIP, Int(int64(ip)))
}

func (m *Model) CtxSP(c ObjectRef) int {
	v, _ := m.Mem.SlotGet(c, CtxSlotSP)
	return int(v.Int())
}
func (m *Model) SetCtxSP(c ObjectRef, sp int) error {
	return m.Mem.SlotSet(c, CtxSlotSP, Int(int64(sp)))
}

// CtxReceiver returns the activation's receiver as a full Value — a
// receiver can be a SmallInteger just as easily as a heap object, so
// this does not narrow to ObjectRef the way most other slot accessors
// do.
func (m *Model) CtxReceiver(c ObjectRef) Value {
	v, _ := m.Mem.SlotGet(c, CtxSlotReceiver)
	return v
}
func (m *Model) CtxMethod(c ObjectRef) ObjectRef { return m.slotRef(c, CtxSlotMethod) }

// CtxLocal/CtxSetLocal address the arg/temp area, which begins right after
// the fixed prefix (spec.md: "PUSH_TEMPORARY_VARIABLE n: push stack[7+n]").
func (m *Model) CtxLocal(c ObjectRef, n int) (Value, error) {
	return m.Mem.SlotGet(c, CtxFixedPrefix+n)
}
func (m *Model) CtxSetLocal(c ObjectRef, n int, v Value) error {
	return m.Mem.SlotSet(c, CtxFixedPrefix+n, v)
}

// CtxPush/CtxPop implement the evaluation stack riding above the fixed
// prefix and locals, addressed through SP.
func (m *Model) CtxPush(c ObjectRef, v Value) error {
	sp := m.CtxSP(c)
	newSP := sp + 1
	obj, err := m.Mem.Get(c)
	if err != nil {
		return err
	}
	if newSP >= len(obj.Slots) {
		if err := m.Mem.Resize(c, newSP+8); err != nil {
			return err
		}
	}
	if err := m.Mem.SlotSet(c, newSP, v); err != nil {
		return err
	}
	return m.SetCtxSP(c, newSP)
}

func (m *Model) CtxPop(c ObjectRef) (Value, error) {
	sp := m.CtxSP(c)
	if sp < CtxFixedPrefix {
		return Value{}, m.errf("stack underflow in context %d", c)
	}
	v, err := m.Mem.SlotGet(c, sp)
	if err != nil {
		return Value{}, err
	}
	m.SetCtxSP(c, sp-1)
	return v, nil
}

func (m *Model) CtxTop(c ObjectRef) (Value, error) {
	sp := m.CtxSP(c)
	return m.Mem.SlotGet(c, sp)
}

// --- Namespace ---

// Namespace fixed-slot layout: tally + env (as a BindingDictionary's own
// prefix) plus name, subspaces, sharedPools. The binding storage itself is
// delegated to a BindingDictionary object referenced from SlotBindings, so
// Namespace behaves like "a rooted binding dictionary" (spec.md) without
// duplicating the probe logic.
const (
	NamespaceSlotBindings = iota
	NamespaceSlotName
	NamespaceSlotSubspaces
	NamespaceSlotSharedPools
	namespaceNumSlots
)

func (m *Model) NewNamespace(class, bindingDict, name ObjectRef) ObjectRef {
	ref := m.Mem.Allocate(class, KindNamespace, namespaceNumSlots)
	m.Mem.SlotSet(ref, NamespaceSlotBindings, Ref(bindingDict))
	m.Mem.SlotSet(ref, NamespaceSlotName, Ref(name))
	return ref
}

func (m *Model) NamespaceBindings(ns ObjectRef) ObjectRef {
	return m.slotRef(ns, NamespaceSlotBindings)
}
