// Package symbol implements symbol interning: a fixed-size array of
// SymLink chains, indexed by an FNV-like accumulator over character
// codes, per spec.md section 4.2.
package symbol

import (
	"github.com/kristofer/stbootstrap/internal/memory"
	"github.com/kristofer/stbootstrap/internal/object"
)

// Hand-rolled rather than hash/fnv or an imported hasher: the bucket
// index needs the raw accumulator value (for &(size-1) masking) before
// any finalization a general-purpose hash package would apply, and the
// spec names the exact algorithm shape ("FNV-like accumulator"). See
// DESIGN.md for why this stays stdlib-free code without reaching for a
// library.
const (
	fnvOffsetBasis uint32 = 2166136261
	fnvPrime       uint32 = 16777619
)

func hashName(name string) uint32 {
	h := fnvOffsetBasis
	for _, r := range name {
		h ^= uint32(r)
		h *= fnvPrime
	}
	return h
}

// Table is the interned symbol table: bucketCount SymLink chain heads,
// each a singly-linked chain of SymLink objects terminating in nil.
type Table struct {
	mdl          *object.Model
	class        object.ObjectRef // Symbol class, for new symbols
	symLinkClass object.ObjectRef
	bucketCount  int
	buckets      object.ObjectRef // Array of bucketCount SymLink chain heads
}

// New builds an empty symbol table with the given (power-of-two) bucket
// count, wired into the object memory through mdl.
func New(mdl *object.Model, arrayClass, symLinkClass, symbolClass object.ObjectRef, bucketCount int) *Table {
	buckets := mdl.NewArray(arrayClass, bucketCount)
	for i := 0; i < bucketCount; i++ {
		mdl.ArrayAtPut(buckets, i, object.Nil)
	}
	return &Table{
		mdl:          mdl,
		class:        symbolClass,
		symLinkClass: symLinkClass,
		bucketCount:  bucketCount,
		buckets:      buckets,
	}
}

// Buckets returns the backing bucket Array, so it can be bound as the
// SymbolTable global in the root namespace.
func (t *Table) Buckets() object.ObjectRef { return t.buckets }

func (t *Table) bucketIndex(name string) int {
	return int(hashName(name)) & (t.bucketCount - 1)
}

// Find returns the canonical Symbol for name, or (NilRef, false) if it has
// not been interned yet.
func (t *Table) Find(name string) (object.ObjectRef, bool) {
	idx := t.bucketIndex(name)
	head, _ := t.mdl.ArrayAt(t.buckets, idx)
	link := head.Ref()
	for link != memory.NilRef {
		sym := t.mdl.SymLinkSymbol(link)
		s, _ := t.mdl.StringValue(sym)
		if s == name {
			return sym, true
		}
		link = t.mdl.SymLinkNext(link)
	}
	return memory.NilRef, false
}

// Add interns name unconditionally, prepending a fresh SymLink even if an
// equal Symbol already exists (callers needing canonical form should use
// FindOrAdd).
func (t *Table) Add(name string) object.ObjectRef {
	idx := t.bucketIndex(name)
	head, _ := t.mdl.ArrayAt(t.buckets, idx)
	sym := t.mdl.NewSymbol(t.class, name)
	link := t.mdl.NewSymLink(t.symLinkClass, head.Ref(), sym)
	t.mdl.ArrayAtPut(t.buckets, idx, object.Ref(link))
	return sym
}

// FindOrAdd returns the canonical Symbol for name, interning it on first
// use. Two calls with the same name always return the same (identity-
// equal) Symbol — spec.md section 8's symbol-interning invariant.
func (t *Table) FindOrAdd(name string) object.ObjectRef {
	if sym, ok := t.Find(name); ok {
		return sym
	}
	return t.Add(name)
}
