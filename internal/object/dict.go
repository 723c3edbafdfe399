package object

import "github.com/kristofer/stbootstrap/internal/memory"

// Dictionary family, per spec.md section 4.3: three variants sharing open
// addressing, linear probing, and growth at load factor > 0.4, differing
// only in prefix width, slot width per bucket, and key-comparison policy.
// The shared probe in dictIndex/growIfNeeded drives all three, matching
// spec.md's "the same dict_index algorithm must drive both insertion and
// lookup."

const loadFactorNumerator, loadFactorDenominator = 2, 5 // 0.4 = 2/5

// --- Dictionary: prefix = [tally]; bucket width = 1 (Association ref) ---

const dictPrefixWidth = 1

func (m *Model) NewDictionary(class ObjectRef, initialCapacity int) ObjectRef {
	cap := nextPow2(initialCapacity)
	ref := m.Mem.Allocate(class, KindDictionary, dictPrefixWidth+cap)
	m.Mem.SlotSet(ref, 0, Int(0))
	return ref
}

func (m *Model) dictTally(d ObjectRef) int {
	v, _ := m.Mem.SlotGet(d, 0)
	return int(v.Int())
}
func (m *Model) setDictTally(d ObjectRef, n int) { m.Mem.SlotSet(d, 0, Int(int64(n))) }

func (m *Model) dictCapacity(d ObjectRef, prefix int) int {
	obj, err := m.Mem.Get(d)
	if err != nil {
		return 0
	}
	return len(obj.Slots) - prefix
}

// DictAt looks up key (by Value equality, spec's "key-equal") in a
// Dictionary, returning its Association's value or (Nil, false).
func (m *Model) DictAt(d ObjectRef, key Value, assocClass, strClass ObjectRef) (Value, bool) {
	cap := m.dictCapacity(d, dictPrefixWidth)
	if cap == 0 {
		return Nil, false
	}
	start := int(m.hashValue(key) & uint32(cap-1))
	for i := 0; i < cap; i++ {
		idx := (start + i) % cap
		slot, _ := m.Mem.SlotGet(d, dictPrefixWidth+idx)
		if slot.Equal(Nil) {
			return Nil, false
		}
		assocKey := m.AssocKey(slot.Ref())
		if m.assocKeyEquals(assocKey, key) {
			return m.AssocValue(slot.Ref()), true
		}
	}
	return Nil, false
}

// DictAtPut inserts or updates key -> value, growing the table first if
// the post-insert load factor would exceed 0.4.
func (m *Model) DictAtPut(d ObjectRef, key Value, value Value, assocClass, strClass ObjectRef) error {
	if _, found := m.DictAt(d, key, assocClass, strClass); !found {
		m.growDictIfNeeded(d, assocClass, strClass)
	}
	cap := m.dictCapacity(d, dictPrefixWidth)
	if cap == 0 {
		return m.errf("dictionary has zero capacity")
	}
	start := int(m.hashValue(key) & uint32(cap-1))
	for i := 0; i < cap; i++ {
		idx := (start + i) % cap
		slot, _ := m.Mem.SlotGet(d, dictPrefixWidth+idx)
		if slot.Equal(Nil) {
			keyRef := m.valueToKeyRef(key, strClass)
			assoc := m.NewAssociation(assocClass, keyRef, memory.NilRef)
			m.SetAssocValue(assoc, value)
			m.Mem.SlotSet(d, dictPrefixWidth+idx, Ref(assoc))
			m.setDictTally(d, m.dictTally(d)+1)
			return nil
		}
		if m.assocKeyEquals(m.AssocKey(slot.Ref()), key) {
			m.SetAssocValue(slot.Ref(), value)
			return nil
		}
	}
	return ErrStructuralOverflow
}

func (m *Model) growDictIfNeeded(d ObjectRef, assocClass, strClass ObjectRef) {
	cap := m.dictCapacity(d, dictPrefixWidth)
	tally := m.dictTally(d)
	if (tally+1)*loadFactorDenominator <= loadFactorNumerator*cap {
		return
	}
	newCap := cap * 2
	if newCap == 0 {
		newCap = 8
	}
	old := m.collectDictAssocs(d)
	m.Mem.Resize(d, dictPrefixWidth+newCap)
	for i := 0; i < newCap; i++ {
		m.Mem.SlotSet(d, dictPrefixWidth+i, Nil)
	}
	m.setDictTally(d, 0)
	for _, a := range old {
		k := m.keyRefToValue(m.AssocKey(a))
		m.DictAtPut(d, k, m.AssocValue(a), assocClass, strClass)
	}
}

func (m *Model) collectDictAssocs(d ObjectRef) []ObjectRef {
	cap := m.dictCapacity(d, dictPrefixWidth)
	out := make([]ObjectRef, 0, m.dictTally(d))
	for i := 0; i < cap; i++ {
		slot, _ := m.Mem.SlotGet(d, dictPrefixWidth+i)
		if !slot.Equal(Nil) {
			out = append(out, slot.Ref())
		}
	}
	return out
}

// --- BindingDictionary: prefix = [tally, environment]; bucket = VariableBinding ref ---

const bindingPrefixWidth = 2

func (m *Model) NewBindingDictionary(class, environment ObjectRef, initialCapacity int) ObjectRef {
	cap := nextPow2(initialCapacity)
	ref := m.Mem.Allocate(class, KindBindingDictionary, bindingPrefixWidth+cap)
	m.Mem.SlotSet(ref, 0, Int(0))
	m.Mem.SlotSet(ref, 1, Ref(environment))
	return ref
}

func (m *Model) BindingDictEnvironment(d ObjectRef) ObjectRef { return m.slotRef(d, 1) }

// BindingAt looks up a global/class-variable Symbol name, returning the
// VariableBinding object (not its value) so callers can dereference or
// rebind in place.
func (m *Model) BindingAt(d ObjectRef, symbolKey ObjectRef) (ObjectRef, bool) {
	cap := m.dictCapacity(d, bindingPrefixWidth)
	if cap == 0 {
		return memory.NilRef, false
	}
	start := int(m.hashRef(symbolKey) & uint32(cap-1))
	for i := 0; i < cap; i++ {
		idx := (start + i) % cap
		slot, _ := m.Mem.SlotGet(d, bindingPrefixWidth+idx)
		if slot.Equal(Nil) {
			return memory.NilRef, false
		}
		if m.AssocKey(slot.Ref()) == symbolKey {
			return slot.Ref(), true
		}
	}
	return memory.NilRef, false
}

// BindingAtPut installs (or updates) the VariableBinding for symbolKey.
func (m *Model) BindingAtPut(d ObjectRef, symbolKey ObjectRef, value Value, bindingClass ObjectRef) error {
	if _, found := m.BindingAt(d, symbolKey); !found {
		m.growBindingIfNeeded(d, bindingClass)
	}
	cap := m.dictCapacity(d, bindingPrefixWidth)
	if cap == 0 {
		return m.errf("binding dictionary has zero capacity")
	}
	start := int(m.hashRef(symbolKey) & uint32(cap-1))
	for i := 0; i < cap; i++ {
		idx := (start + i) % cap
		slot, _ := m.Mem.SlotGet(d, bindingPrefixWidth+idx)
		if slot.Equal(Nil) {
			env := m.BindingDictEnvironment(d)
			binding := m.NewVariableBinding(bindingClass, symbolKey, memory.NilRef, env)
			m.SetAssocValue(binding, value)
			m.Mem.SlotSet(d, bindingPrefixWidth+idx, Ref(binding))
			m.setTallyAt(d, 0, m.tallyAt(d, 0)+1)
			return nil
		}
		if m.AssocKey(slot.Ref()) == symbolKey {
			m.SetAssocValue(slot.Ref(), value)
			return nil
		}
	}
	return ErrStructuralOverflow
}

func (m *Model) growBindingIfNeeded(d, bindingClass ObjectRef) {
	cap := m.dictCapacity(d, bindingPrefixWidth)
	tally := m.tallyAt(d, 0)
	if (tally+1)*loadFactorDenominator <= loadFactorNumerator*cap {
		return
	}
	newCap := cap * 2
	if newCap == 0 {
		newCap = 8
	}
	old := make([]ObjectRef, 0, tally)
	for i := 0; i < cap; i++ {
		slot, _ := m.Mem.SlotGet(d, bindingPrefixWidth+i)
		if !slot.Equal(Nil) {
			old = append(old, slot.Ref())
		}
	}
	m.Mem.Resize(d, bindingPrefixWidth+newCap)
	for i := 0; i < newCap; i++ {
		m.Mem.SlotSet(d, bindingPrefixWidth+i, Nil)
	}
	m.setTallyAt(d, 0, 0)
	for _, b := range old {
		m.BindingAtPut(d, m.AssocKey(b), m.AssocValue(b), bindingClass)
	}
}

// --- MethodDictionary: prefix = [tally, mutex]; flat (key,value) pairs, step 2, identity keys ---

const methodDictPrefixWidth = 2

func (m *Model) NewMethodDictionary(class ObjectRef, initialCapacity int) ObjectRef {
	buckets := nextPow2(initialCapacity)
	ref := m.Mem.Allocate(class, KindMethodDictionary, methodDictPrefixWidth+buckets*2)
	m.Mem.SlotSet(ref, 0, Int(0))
	m.Mem.SlotSet(ref, 1, Nil) // mutex: reserved, unused per spec.md section 5
	return ref
}

func (m *Model) methodDictBucketCount(d ObjectRef) int {
	obj, err := m.Mem.Get(d)
	if err != nil {
		return 0
	}
	return (len(obj.Slots) - methodDictPrefixWidth) / 2
}

// MethodDictAt looks up selector (an interned Symbol, compared by
// identity) and returns its CompiledMethod.
func (m *Model) MethodDictAt(d ObjectRef, selector ObjectRef) (ObjectRef, bool) {
	n := m.methodDictBucketCount(d)
	if n == 0 {
		return memory.NilRef, false
	}
	start := int(m.hashRef(selector) & uint32(n-1))
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		base := methodDictPrefixWidth + idx*2
		keySlot, _ := m.Mem.SlotGet(d, base)
		if keySlot.Equal(Nil) {
			return memory.NilRef, false
		}
		if keySlot.Ref() == selector {
			valSlot, _ := m.Mem.SlotGet(d, base+1)
			return valSlot.Ref(), true
		}
	}
	return memory.NilRef, false
}

// MethodDictAtPut installs selector -> method.
func (m *Model) MethodDictAtPut(d ObjectRef, selector, method ObjectRef) error {
	if _, found := m.MethodDictAt(d, selector); !found {
		m.growMethodDictIfNeeded(d)
	}
	n := m.methodDictBucketCount(d)
	if n == 0 {
		return m.errf("method dictionary has zero capacity")
	}
	start := int(m.hashRef(selector) & uint32(n-1))
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		base := methodDictPrefixWidth + idx*2
		keySlot, _ := m.Mem.SlotGet(d, base)
		if keySlot.Equal(Nil) {
			m.Mem.SlotSet(d, base, Ref(selector))
			m.Mem.SlotSet(d, base+1, Ref(method))
			m.setTallyAt(d, 0, m.tallyAt(d, 0)+1)
			return nil
		}
		if keySlot.Ref() == selector {
			m.Mem.SlotSet(d, base+1, Ref(method))
			return nil
		}
	}
	return ErrStructuralOverflow
}

func (m *Model) growMethodDictIfNeeded(d ObjectRef) {
	n := m.methodDictBucketCount(d)
	tally := m.tallyAt(d, 0)
	if (tally+1)*loadFactorDenominator <= loadFactorNumerator*n {
		return
	}
	newN := n * 2
	if newN == 0 {
		newN = 8
	}
	type pair struct{ k, v ObjectRef }
	old := make([]pair, 0, tally)
	for i := 0; i < n; i++ {
		base := methodDictPrefixWidth + i*2
		keySlot, _ := m.Mem.SlotGet(d, base)
		if !keySlot.Equal(Nil) {
			valSlot, _ := m.Mem.SlotGet(d, base+1)
			old = append(old, pair{keySlot.Ref(), valSlot.Ref()})
		}
	}
	m.Mem.Resize(d, methodDictPrefixWidth+newN*2)
	for i := 0; i < newN; i++ {
		m.Mem.SlotSet(d, methodDictPrefixWidth+i*2, Nil)
		m.Mem.SlotSet(d, methodDictPrefixWidth+i*2+1, Nil)
	}
	m.setTallyAt(d, 0, 0)
	for _, p := range old {
		m.MethodDictAtPut(d, p.k, p.v)
	}
}

// --- shared helpers ---

func (m *Model) tallyAt(d ObjectRef, slot int) int {
	v, _ := m.Mem.SlotGet(d, slot)
	return int(v.Int())
}
func (m *Model) setTallyAt(d ObjectRef, slot int, n int) { m.Mem.SlotSet(d, slot, Int(int64(n))) }

// Tally returns the element count of any of the three dictionary variants
// (all keep it at slot 0).
func (m *Model) Tally(d ObjectRef) int { return m.tallyAt(d, 0) }

func (m *Model) hashValue(v Value) uint32 {
	if v.IsInt() {
		x := uint64(v.Int())
		x *= 2654435761
		return uint32(x)
	}
	return m.Mem.HashOf(v.Ref())
}

func (m *Model) hashRef(ref ObjectRef) uint32 { return m.Mem.HashOf(ref) }

func (m *Model) assocKeyEquals(assocKeyRef ObjectRef, key Value) bool {
	return m.keyRefToValue(assocKeyRef).Equal(key)
}

// valueToKeyRef/keyRefToValue let Dictionary store arbitrary Values
// (including immediates) as Association keys, which are themselves
// object-memory references: an immediate key is boxed into a one-slot
// Array-like cell class so AssocKey's ObjectRef-typed slot can still name
// it. Heap keys are stored directly.
func (m *Model) valueToKeyRef(v Value, strClass ObjectRef) ObjectRef {
	if v.IsRef() {
		return v.Ref()
	}
	box := m.Mem.Allocate(strClass, KindBoxedValue, 1)
	m.Mem.SlotSet(box, 0, v)
	return box
}

func (m *Model) keyRefToValue(ref ObjectRef) Value {
	obj, err := m.Mem.Get(ref)
	if err != nil || obj.Kind() != KindBoxedValue {
		return Ref(ref)
	}
	return obj.Slots[0]
}

func nextPow2(n int) int {
	if n < 1 {
		n = 1
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
