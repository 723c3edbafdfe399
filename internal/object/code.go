package object

import "github.com/kristofer/stbootstrap/internal/memory"

// Method header packing, per spec.md section 6:
//   bits 0..4:   numArgs   (0..31)
//   bits 5..10:  depth     (0..63)
//   bits 11..16: numTemps  (0..63)
//   bits 17..25: primId    (0..511, 0 = none)
const (
	headerNumArgsBits  = 5
	headerDepthBits    = 6
	headerNumTempsBits = 6
	headerPrimIDBits   = 9

	headerNumArgsShift  = 0
	headerDepthShift    = headerNumArgsShift + headerNumArgsBits
	headerNumTempsShift = headerDepthShift + headerDepthBits
	headerPrimIDShift   = headerNumTempsShift + headerNumTempsBits

	headerNumArgsMask  = (1 << headerNumArgsBits) - 1
	headerDepthMask    = (1 << headerDepthBits) - 1
	headerNumTempsMask = (1 << headerNumTempsBits) - 1
	headerPrimIDMask   = (1 << headerPrimIDBits) - 1
)

// Header is the decoded form of a CompiledMethod/CompiledBlock's packed
// header word.
type Header struct {
	NumArgs  int
	Depth    int
	NumTemps int
	PrimID   int
}

// Pack encodes a Header into the single machine word spec.md section 6
// describes.
func (h Header) Pack() int64 {
	return int64(h.NumArgs&headerNumArgsMask)<<headerNumArgsShift |
		int64(h.Depth&headerDepthMask)<<headerDepthShift |
		int64(h.NumTemps&headerNumTempsMask)<<headerNumTempsShift |
		int64(h.PrimID&headerPrimIDMask)<<headerPrimIDShift
}

// UnpackHeader decodes a packed header word back into its fields.
func UnpackHeader(word int64) Header {
	return Header{
		NumArgs:  int(word>>headerNumArgsShift) & headerNumArgsMask,
		Depth:    int(word>>headerDepthShift) & headerDepthMask,
		NumTemps: int(word>>headerNumTempsShift) & headerNumTempsMask,
		PrimID:   int(word>>headerPrimIDShift) & headerPrimIDMask,
	}
}

// NewCompiledMethod allocates a CompiledMethod: bytecode in Bytes, literal
// array + header + MethodInfo reference in Slots.
func (m *Model) NewCompiledMethod(class ObjectRef, code []byte, literals []Value, header Header, info ObjectRef) ObjectRef {
	ref := m.Mem.AllocateBytes(class, KindCompiledMethod, code)
	m.Mem.Resize(ref, codeNumSlots)
	m.SetCodeLiterals(ref, literals)
	m.Mem.SlotSet(ref, CodeSlotHeader, Int(header.Pack()))
	m.Mem.SlotSet(ref, CodeSlotInfo, Ref(info))
	return ref
}

// NewCompiledBlock is identical in shape to NewCompiledMethod but tags the
// object as a block and has no MethodInfo (blocks are not independently
// named/installed).
func (m *Model) NewCompiledBlock(class ObjectRef, code []byte, literals []Value, header Header) ObjectRef {
	ref := m.Mem.AllocateBytes(class, KindCompiledBlock, code)
	m.Mem.Resize(ref, codeNumSlots)
	m.SetCodeLiterals(ref, literals)
	m.Mem.SlotSet(ref, CodeSlotHeader, Int(header.Pack()))
	return ref
}

// CodeBytes returns the raw bytecode buffer of a CompiledMethod/Block.
func (m *Model) CodeBytes(ref ObjectRef) []byte {
	obj, err := m.Mem.Get(ref)
	if err != nil {
		return nil
	}
	return obj.Bytes
}

// CodeHeader decodes the packed header word.
func (m *Model) CodeHeader(ref ObjectRef) Header {
	v, _ := m.Mem.SlotGet(ref, CodeSlotHeader)
	return UnpackHeader(v.Int())
}

// CodeLiteralAt returns literals[idx] for a CompiledMethod/Block. The
// literal array itself is stored as a literals-array object reference in
// CodeSlotLiterals; this indirection lets the array be resized
// independently of the fixed code-object slot prefix.
func (m *Model) CodeLiteralAt(ref ObjectRef, idx int) (Value, error) {
	litsRef := m.slotRef(ref, CodeSlotLiterals)
	return m.Mem.SlotGet(litsRef, idx)
}

// SetCodeLiterals stores a fresh literal array, allocating the backing
// Array object.
func (m *Model) SetCodeLiterals(ref ObjectRef, literals []Value) {
	arr := m.Mem.Allocate(memory.NilRef, KindArray, len(literals))
	for i, v := range literals {
		m.Mem.SlotSet(arr, i, v)
	}
	m.Mem.SlotSet(ref, CodeSlotLiterals, Ref(arr))
}
