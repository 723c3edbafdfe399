// Package memory implements the object memory: the single arena that owns
// every heap object in the running environment and hands out stable,
// monotonically allocated identities for them.
//
// This is a generalization of smog's flat, fixed-size VM storage
// (pkg/vm/vm.go's stack/locals slices) from a handful of typed arrays into
// one growable arena of uniform slotted objects, addressed by a compact
// handle (ObjectRef) instead of a Go pointer. Handles give us identity for
// free (the handle value *is* the identity) and sidestep the reference
// cycles that classes, metaclasses, and method dictionaries form with each
// other: a cyclic graph of handles needs no special collector, because the
// arena (not the objects) owns the memory.
package memory

import (
	"fmt"

	"go.uber.org/zap"
)

// ObjectRef is a stable handle into the object memory. It never changes for
// the lifetime of the object it names, and it doubles as that object's
// identity (spec.md section 4.1's identity_of is the identity function on
// ObjectRef).
type ObjectRef uint32

// Reserved identities. The three singletons are always present at fixed,
// well-known slots so that the rest of the system can test against them
// without a map lookup.
const (
	NilRef   ObjectRef = 0
	FalseRef ObjectRef = 1
	TrueRef  ObjectRef = 2

	firstFreeRef ObjectRef = 3
)

// Kind tags the variant an Object represents. The core object model
// (internal/object) assigns one of these to every object it builds;
// memory itself never interprets Kind, it only stores it.
type Kind uint8

// The full variant set the core object model (spec.md section 3's entity
// table) needs. Defined here, alongside Object, because Object.kind must
// be one of these; internal/object re-exports them under its own names.
const (
	KindSingleton Kind = iota // nil, false, true
	KindClass
	KindMetaclass
	KindArray
	KindString
	KindSymbol
	KindSymLink
	KindAssociation
	KindVariableBinding
	KindDictionary
	KindBindingDictionary
	KindMethodDictionary
	KindNamespace
	KindMethodContext
	KindBlockContext
	KindCompiledMethod
	KindCompiledBlock
	KindMethodInfo
	KindBlockClosure
	KindBoxedValue // internal: boxes an immediate Value as a Dictionary key
)

// Object is the single fixed-layout representation every heap value
// shares: a class reference, a flags word, an ordered slot vector, and
// (for indexable/byte-bearing variants) an adjunct byte buffer. Strings,
// Symbols, and CompiledMethod/CompiledBlock bytecode arrays live in Bytes;
// everything else lives in Slots.
type Object struct {
	Class ObjectRef
	Flags uint32
	Slots []Value
	Bytes []byte
	kind  Kind
}

// Kind returns the variant tag this object was allocated with.
func (o *Object) Kind() Kind { return o.kind }

// Value is the tagged sum spec.md section 3 describes: either a small
// integer carried inline, or a handle into the object memory. Kept as a
// small value type (not interface{}) so dispatch on "is this an int or a
// ref" is a field check, not a type assertion — see DESIGN NOTES section 9
// ("dynamic dispatch / duck typing... tagged union with explicit variants").
type Value struct {
	isInt bool
	i     int64
	ref   ObjectRef
}

// Int wraps a small integer as a Value.
func Int(n int64) Value { return Value{isInt: true, i: n} }

// Ref wraps an object handle as a Value.
func Ref(r ObjectRef) Value { return Value{ref: r} }

// Nil is the Value form of the nil singleton.
var Nil = Ref(NilRef)

// IsInt reports whether v carries an immediate integer.
func (v Value) IsInt() bool { return v.isInt }

// IsRef reports whether v carries an object handle.
func (v Value) IsRef() bool { return !v.isInt }

// Int returns the immediate integer payload. Only meaningful if IsInt.
func (v Value) Int() int64 { return v.i }

// Ref returns the object handle payload. Only meaningful if IsRef.
func (v Value) Ref() ObjectRef { return v.ref }

// Equal reports identity equality: the relation SEND's "==" primitive and
// dictionary identity-probing both rely on.
func (v Value) Equal(o Value) bool {
	if v.isInt != o.isInt {
		return false
	}
	if v.isInt {
		return v.i == o.i
	}
	return v.ref == o.ref
}

// Store is the object memory. It owns every Object, assigns identities from
// a linear free-identity generator seeded above the three reserved
// singleton identities, and frees idempotently.
//
// Growth is delegated to a Slab. On every platform the backing storage is
// a plain Go slice (sliceSlab); slab_unix.go and slab_other.go only pick
// its initial capacity (the OS page size, or 4096).
type Store struct {
	slab  Slab
	free  []ObjectRef // idempotent free list; LIFO reuse pool
	freed map[ObjectRef]bool
	next  ObjectRef
	log   *zap.SugaredLogger
}

// New creates an object memory with the three singletons pre-allocated at
// their reserved identities.
func New(log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Store{
		slab:  newSlab(64),
		freed: make(map[ObjectRef]bool),
		next:  firstFreeRef,
		log:   log,
	}
	// nil/false/true are allocated directly, bypassing Allocate, because
	// Allocate's class argument would otherwise need a class object that
	// doesn't exist yet this early in bootstrap.
	for _, r := range []ObjectRef{NilRef, FalseRef, TrueRef} {
		s.slab.put(r, &Object{kind: KindSingleton})
	}
	log.Debugw("object memory initialized", "singletons", 3)
	return s
}

// Allocate creates a fixed- or variable-slot object of the given class and
// kind, with numSlots Value slots all initialized to nil.
func (s *Store) Allocate(class ObjectRef, kind Kind, numSlots int) ObjectRef {
	ref := s.nextIdentity()
	obj := &Object{Class: class, kind: kind, Slots: make([]Value, numSlots)}
	for i := range obj.Slots {
		obj.Slots[i] = Nil
	}
	s.slab.put(ref, obj)
	return ref
}

// AllocateBytes creates a byte-indexable object (String, Symbol, or a
// CompiledMethod/CompiledBlock's bytecode buffer) holding a copy of data.
func (s *Store) AllocateBytes(class ObjectRef, kind Kind, data []byte) ObjectRef {
	ref := s.nextIdentity()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.slab.put(ref, &Object{Class: class, kind: kind, Bytes: buf})
	return ref
}

// nextIdentity draws from the free list first (idempotent reuse), then
// advances the linear generator. Step is fixed at 1; a randomised stride
// is equally valid per spec.md section 4.1 but a linear generator keeps
// identities easy to read in traces.
func (s *Store) nextIdentity() ObjectRef {
	for len(s.free) > 0 {
		r := s.free[len(s.free)-1]
		s.free = s.free[:len(s.free)-1]
		if s.freed[r] {
			delete(s.freed, r)
			return r
		}
	}
	r := s.next
	s.next++
	return r
}

// Get returns the object named by ref, or an error if ref was never
// allocated or has since been freed.
func (s *Store) Get(ref ObjectRef) (*Object, error) {
	if s.freed[ref] {
		return nil, fmt.Errorf("memory: reference %d is freed", ref)
	}
	obj := s.slab.get(ref)
	if obj == nil {
		return nil, fmt.Errorf("memory: reference %d was never allocated", ref)
	}
	return obj, nil
}

// SlotGet reads Slots[idx] of the object named by ref.
func (s *Store) SlotGet(ref ObjectRef, idx int) (Value, error) {
	obj, err := s.Get(ref)
	if err != nil {
		return Value{}, err
	}
	if idx < 0 || idx >= len(obj.Slots) {
		return Value{}, fmt.Errorf("memory: slot index %d out of bounds (%d slots)", idx, len(obj.Slots))
	}
	return obj.Slots[idx], nil
}

// SlotSet writes Slots[idx] of the object named by ref.
func (s *Store) SlotSet(ref ObjectRef, idx int, v Value) error {
	obj, err := s.Get(ref)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(obj.Slots) {
		return fmt.Errorf("memory: slot index %d out of bounds (%d slots)", idx, len(obj.Slots))
	}
	obj.Slots[idx] = v
	return nil
}

// Resize grows or shrinks the slot vector of an indexable object in place,
// padding new slots with nil. Used by Array/String growth and by the
// dictionary family's rehash-on-grow.
func (s *Store) Resize(ref ObjectRef, newSlotCount int) error {
	obj, err := s.Get(ref)
	if err != nil {
		return err
	}
	if newSlotCount <= len(obj.Slots) {
		obj.Slots = obj.Slots[:newSlotCount]
		return nil
	}
	grown := make([]Value, newSlotCount)
	copy(grown, obj.Slots)
	for i := len(obj.Slots); i < newSlotCount; i++ {
		grown[i] = Nil
	}
	obj.Slots = grown
	return nil
}

// SetClass patches an object's class reference. Used by bootstrap pass 2
// to retroactively assign the three singletons' classes once those
// classes exist, and by pass 3 to assign every class's own Class field to
// its freshly built metaclass.
func (s *Store) SetClass(ref ObjectRef, class ObjectRef) error {
	obj, err := s.Get(ref)
	if err != nil {
		return err
	}
	obj.Class = class
	return nil
}

// ClassOf returns an object's class reference.
func (s *Store) ClassOf(ref ObjectRef) (ObjectRef, error) {
	obj, err := s.Get(ref)
	if err != nil {
		return NilRef, err
	}
	return obj.Class, nil
}

// IdentityOf is the identity function: for this design the handle already
// is the identity, so IdentityOf(ref) == ref. Exposed as a method to match
// spec.md's exposed operation and to give future implementations (e.g. one
// where identity is a separate stamped field) a seam to diverge from
// handle equality.
func (s *Store) IdentityOf(ref ObjectRef) uint32 { return uint32(ref) }

// HashOf derives a hash from an object's identity by scrambling it with a
// multiplicative constant (Fibonacci hashing), so that dictionaries keyed
// by object identity don't cluster on the low bits of sequentially
// allocated references.
func (s *Store) HashOf(ref ObjectRef) uint32 {
	x := uint32(ref)
	x *= 2654435761 // Knuth's multiplicative hash constant
	return x
}

// Free releases an identity back to the free pool. Freeing an
// already-freed or never-allocated reference is a no-op, matching
// spec.md's "freeing is idempotent" invariant.
func (s *Store) Free(ref ObjectRef) {
	if ref == NilRef || ref == FalseRef || ref == TrueRef {
		return // singletons are never freed
	}
	if s.freed[ref] {
		return
	}
	s.freed[ref] = true
	s.slab.delete(ref)
	s.free = append(s.free, ref)
}
