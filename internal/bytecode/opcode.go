// Package bytecode defines the instruction format the compiler emits and
// the interpreter executes: two-byte instructions (one opcode byte, one
// operand byte), laid out over the numbered opcode space the bootstrap
// spec carves out (arithmetic specials 0..15, selector specials 16..26,
// send variants 28..31, push/store/jumps 32..55, PUSH_SELF at 56).
//
// Adapted from smog's pkg/bytecode, which used an 8-opcode iota enum and
// an int-sized Operand; this generalizes to the full numbered space so
// an instruction's byte value round-trips exactly, and narrows Operand
// to a single byte per the two-byte-instruction invariant.
package bytecode

import "fmt"

// Op is one instruction's opcode byte.
type Op byte

// The opcode subset this core implements. Values match the numbered
// ranges the design assigns them; gaps are reserved for opcodes this
// core does not implement (RETURN_CONTEXT_STACK_TOP, jumps, the
// arithmetic/selector "special" fast paths) — executing any opcode not
// in this list is a fatal "unknown bytecode" error, never a silent
// no-op.
const (
	PushLitConstant     Op = 32
	PushLitVariable     Op = 33
	PushTemporaryVar    Op = 34
	StoreTemporaryVar   Op = 35
	StoreLitVariable    Op = 36
	PopStackTop         Op = 37
	Send                Op = 28
	ReturnMethodStackTop Op = 41
	ReturnContextStackTop Op = 42 // reserved: no handler, see DESIGN.md
	PushSelf            Op = 56
)

var names = map[Op]string{
	PushLitConstant:       "PUSH_LIT_CONSTANT",
	PushLitVariable:       "PUSH_LIT_VARIABLE",
	PushTemporaryVar:      "PUSH_TEMPORARY_VARIABLE",
	StoreTemporaryVar:     "STORE_TEMPORARY_VARIABLE",
	StoreLitVariable:      "STORE_LIT_VARIABLE",
	PopStackTop:           "POP_STACK_TOP",
	Send:                  "SEND",
	ReturnMethodStackTop:  "RETURN_METHOD_STACK_TOP",
	ReturnContextStackTop: "RETURN_CONTEXT_STACK_TOP",
	PushSelf:              "PUSH_SELF",
}

func (op Op) String() string {
	if n, ok := names[op]; ok {
		return n
	}
	return fmt.Sprintf("UNKNOWN(%d)", byte(op))
}

// Implemented reports whether the interpreter has a handler for op.
func (op Op) Implemented() bool {
	switch op {
	case PushLitConstant, PushLitVariable, PushTemporaryVar, StoreTemporaryVar,
		StoreLitVariable, PopStackTop, Send, ReturnMethodStackTop, PushSelf:
		return true
	default:
		return false
	}
}

// Instruction is one two-byte unit: an opcode and its operand byte.
type Instruction struct {
	Op      Op
	Operand byte
}

// Code is a compiled method or block's bytecode stream plus its literal
// table, mirroring spec.md section 4.5's "Compiler emits bytecode +
// literal array".
type Code struct {
	Instructions []Instruction
	Literals     []interface{}
}

// Assemble flattens Instructions into the raw two-byte-per-instruction
// buffer a CompiledMethod/CompiledBlock stores in its Bytes field.
func (c *Code) Assemble() []byte {
	out := make([]byte, 0, len(c.Instructions)*2)
	for _, inst := range c.Instructions {
		out = append(out, byte(inst.Op), inst.Operand)
	}
	return out
}

// Decode unpacks a raw bytecode buffer back into Instructions. Per
// spec.md's opcode-length-uniformity invariant every instruction is
// exactly two bytes; a buffer whose length is odd is malformed.
func Decode(raw []byte) ([]Instruction, error) {
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("bytecode: buffer length %d is not a multiple of 2", len(raw))
	}
	out := make([]Instruction, 0, len(raw)/2)
	for i := 0; i < len(raw); i += 2 {
		out = append(out, Instruction{Op: Op(raw[i]), Operand: raw[i+1]})
	}
	return out, nil
}

// Disassemble renders Code as one line per instruction, in the style
// smog's bytecode.String() produced for its own 8-opcode set — useful
// for `smalltalk disassemble` and for the round-trip test in spec.md's
// acceptance checklist ("a method whose body is exactly ^self compiles
// to [PUSH_SELF 0, RETURN_METHOD_STACK_TOP 0]").
func (c *Code) Disassemble() string {
	out := ""
	for i, inst := range c.Instructions {
		out += fmt.Sprintf("%3d: %-26s %d\n", i, inst.Op, inst.Operand)
	}
	return out
}
