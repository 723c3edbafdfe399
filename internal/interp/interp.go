// Package interp implements the bytecode interpreter: the single
// current_context activation chain, spec.md section 5's dispatch loop,
// and message-send/method-lookup protocol.
//
// Adapted from smog's pkg/vm.VM (a flat stack + locals + globals trio
// with a Go-level call stack of StackFrames) — generalized to the
// design's single activation-record chain addressed through
// internal/object's Context accessors, since that is what lets
// RETURN_METHOD_STACK_TOP be "pop from here, push to parent, retarget
// current_context" rather than an ad-hoc Go-slice pop.
package interp

import (
	"fmt"

	"github.com/kristofer/stbootstrap/internal/bootstrap"
	"github.com/kristofer/stbootstrap/internal/bytecode"
	"github.com/kristofer/stbootstrap/internal/memory"
	"github.com/kristofer/stbootstrap/internal/object"
	"go.uber.org/zap"
)

// Outcome tells Interp how a primitive handler disposed of its call.
type Outcome int

const (
	// PrimPushResult means the primitive ran to completion: push its
	// returned value onto the caller's stack and do not activate a
	// method frame.
	PrimPushResult Outcome = iota
	// PrimFallThrough means the primitive declined (classic Smalltalk
	// "primitive failure"): fall through to the method's own bytecode
	// body, which runs as if no primitive were attached.
	PrimFallThrough
	// PrimActivated means the primitive itself changed the interpreter's
	// current context (e.g. BlockClosure>>value activating the block's
	// own CompiledBlock) — the caller does nothing further.
	PrimActivated
)

// Primitive is one entry in the primitive registry: given the receiver
// and already-evaluated arguments, it returns a value plus how it
// disposed of the call.
type Primitive func(it *Interp, receiver object.Value, args []object.Value) (object.Value, Outcome, error)

// Interp holds the one piece of state spec.md's execution model names:
// current_context. Everything else (classes, memory, symbols) lives in
// the shared bootstrap.Environment.
type Interp struct {
	env   *bootstrap.Environment
	prims map[int]Primitive
	cur   object.ObjectRef
	log   *zap.SugaredLogger

	// StepHook, if set, is called before each instruction dispatches —
	// cmd/smalltalk's --step flag wires this to a human-readable trace
	// of (context, op, operand) rather than a full interactive debugger.
	StepHook func(ctx object.ObjectRef, op bytecode.Op, operand byte)
}

// New wires an interpreter to env's object memory and a primitive
// registry (internal/primitive builds one; callers needing none of the
// supplemented primitives may pass an empty map, though doesNotUnderstand
// and ordinary method dispatch work regardless).
func New(env *bootstrap.Environment, prims map[int]Primitive) *Interp {
	if prims == nil {
		prims = make(map[int]Primitive)
	}
	return &Interp{env: env, prims: prims, log: env.Log}
}

// Send is the entry point spec.md section 5 describes: seed a root
// context, perform one send, then run the dispatch loop until control
// returns to that root — the return value is whatever ends up on the
// root context's stack.
func (it *Interp) Send(receiver object.Value, selector string, args []object.Value) (object.Value, error) {
	root := it.newRootContext()
	it.cur = root
	selSym := it.env.Symbols.FindOrAdd(selector)
	if err := it.performSend(root, receiver, selSym, args); err != nil {
		return object.Value{}, err
	}
	for it.cur != root {
		if err := it.step(); err != nil {
			return object.Value{}, err
		}
	}
	return it.env.Object.CtxTop(root)
}

func (it *Interp) newRootContext() object.ObjectRef {
	ctxClass := it.env.Classes["MethodContext"]
	return it.env.Object.NewContext(ctxClass, object.KindMethodContext, memory.NilRef, memory.NilRef, object.Nil, 0, 0, 4, memory.NilRef)
}

// step executes exactly one instruction at the current context's ip,
// advancing ip before dispatch so that a SEND's caller resumes at the
// following instruction once its callee returns (spec.md section 5:
// "the caller's ip is advanced past the SEND before activation").
func (it *Interp) step() error {
	ctx := it.cur
	method := it.env.Object.CtxMethod(ctx)
	code := it.env.Object.CodeBytes(method)
	ip := it.env.Object.CtxIP(ctx)
	if ip+1 >= len(code) {
		return it.fatalf(ctx, KindContextFault, "instruction pointer %d out of bounds (%d bytes)", ip, len(code))
	}
	op := bytecode.Op(code[ip])
	operand := code[ip+1]
	it.env.Object.SetCtxIP(ctx, ip+2)
	if it.StepHook != nil {
		it.StepHook(ctx, op, operand)
	}

	switch op {
	case bytecode.PushSelf:
		return it.env.Object.CtxPush(ctx, it.env.Object.CtxReceiver(ctx))

	case bytecode.PushLitConstant:
		lit, err := it.env.Object.CodeLiteralAt(method, int(operand))
		if err != nil {
			return it.fatalf(ctx, KindContextFault, "literal %d: %v", operand, err)
		}
		// A BlockClosure literal captures the context active at the
		// moment it is pushed, since nothing in this opcode set
		// allocates a fresh closure per activation (see DESIGN.md).
		if lit.IsRef() {
			if obj, err := it.env.Mem.Get(lit.Ref()); err == nil && obj.Kind() == object.KindBlockClosure {
				it.env.Object.SetClosureReceiver(lit.Ref(), it.env.Object.CtxReceiver(ctx))
				it.env.Mem.SlotSet(lit.Ref(), object.ClosureSlotOuterContext, object.Ref(ctx))
			}
		}
		return it.env.Object.CtxPush(ctx, lit)

	case bytecode.PushLitVariable:
		sym, err := it.env.Object.CodeLiteralAt(method, int(operand))
		if err != nil {
			return it.fatalf(ctx, KindContextFault, "literal %d: %v", operand, err)
		}
		val, err := it.loadGlobal(sym.Ref())
		if err != nil {
			return it.fatalf(ctx, KindNameResolution, "%v", err)
		}
		return it.env.Object.CtxPush(ctx, val)

	case bytecode.PushTemporaryVar:
		v, err := it.env.Object.CtxLocal(ctx, int(operand))
		if err != nil {
			return it.fatalf(ctx, KindContextFault, "temp %d: %v", operand, err)
		}
		return it.env.Object.CtxPush(ctx, v)

	case bytecode.StoreTemporaryVar:
		v, err := it.env.Object.CtxTop(ctx)
		if err != nil {
			return it.fatalf(ctx, KindContextFault, "%v", err)
		}
		return it.env.Object.CtxSetLocal(ctx, int(operand), v)

	case bytecode.StoreLitVariable:
		sym, err := it.env.Object.CodeLiteralAt(method, int(operand))
		if err != nil {
			return it.fatalf(ctx, KindContextFault, "literal %d: %v", operand, err)
		}
		v, err := it.env.Object.CtxTop(ctx)
		if err != nil {
			return it.fatalf(ctx, KindContextFault, "%v", err)
		}
		if err := it.storeGlobal(sym.Ref(), v); err != nil {
			return it.fatalf(ctx, KindStructuralOverflow, "store global: %v", err)
		}
		return nil

	case bytecode.PopStackTop:
		_, err := it.env.Object.CtxPop(ctx)
		return err

	case bytecode.Send:
		return it.dispatchSend(ctx, int(operand))

	case bytecode.ReturnMethodStackTop:
		return it.doReturn(ctx)

	default:
		return it.fatalf(ctx, KindUnknownOpcode, "unknown bytecode %v", op)
	}
}

// dispatchSend implements SEND n: pop n args, the selector, and the
// receiver off ctx's stack (in that order), then perform the send.
func (it *Interp) dispatchSend(ctx object.ObjectRef, n int) error {
	args := make([]object.Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := it.env.Object.CtxPop(ctx)
		if err != nil {
			return it.fatalf(ctx, KindContextFault, "send: popping argument %d: %v", i, err)
		}
		args[i] = v
	}
	selVal, err := it.env.Object.CtxPop(ctx)
	if err != nil || !selVal.IsRef() {
		return it.fatalf(ctx, KindContextFault, "send: missing selector on stack")
	}
	recv, err := it.env.Object.CtxPop(ctx)
	if err != nil {
		return it.fatalf(ctx, KindContextFault, "send: missing receiver on stack")
	}
	return it.performSend(ctx, recv, selVal.Ref(), args)
}

// performSend resolves selector against receiver's class and activates
// the result: either a primitive (pushing its result on caller and
// returning immediately) or a new MethodContext running the method's
// bytecode body.
func (it *Interp) performSend(caller object.ObjectRef, receiver object.Value, selector object.ObjectRef, args []object.Value) error {
	class, err := it.env.ClassOfValue(receiver)
	if err != nil {
		return it.fatalf(caller, KindContextFault, "%v", err)
	}
	method, _, found := it.env.LookupMethod(class, selector)
	if !found {
		return it.sendDoesNotUnderstand(caller, receiver, class, selector, args)
	}
	return it.activate(caller, receiver, method, args)
}

func (it *Interp) sendDoesNotUnderstand(caller object.ObjectRef, receiver object.Value, class, selector object.ObjectRef, args []object.Value) error {
	dnuSym := it.env.Symbols.FindOrAdd("doesNotUnderstand:")
	dnuMethod, _, found := it.env.LookupMethod(class, dnuSym)
	if !found {
		sel, _ := it.env.Object.StringValue(selector)
		return it.fatalf(caller, KindNameResolution, "does not understand #%s", sel)
	}
	arrClass := it.env.Classes["Array"]
	msg := it.env.Object.NewArray(arrClass, 1+len(args))
	it.env.Object.ArrayAtPut(msg, 0, object.Ref(selector))
	for i, a := range args {
		it.env.Object.ArrayAtPut(msg, i+1, a)
	}
	return it.activate(caller, receiver, dnuMethod, []object.Value{object.Ref(msg)})
}

// activate runs one method: primitives are tried first when the header
// names one, classic-Smalltalk style (a primitive may "fail" and fall
// through to its own bytecode body rather than erroring the send).
func (it *Interp) activate(caller object.ObjectRef, receiver object.Value, method object.ObjectRef, args []object.Value) error {
	header := it.env.Object.CodeHeader(method)
	if header.NumArgs != len(args) {
		return it.fatalf(caller, KindArityMismatch, "method expects %d args, got %d", header.NumArgs, len(args))
	}

	if header.PrimID > 0 {
		if prim, ok := it.prims[header.PrimID]; ok {
			result, outcome, err := prim(it, receiver, args)
			if err != nil {
				return it.fatalf(caller, KindContextFault, "primitive %d: %v", header.PrimID, err)
			}
			switch outcome {
			case PrimPushResult:
				return it.env.Object.CtxPush(caller, result)
			case PrimActivated:
				return nil
			case PrimFallThrough:
				// fall through to normal bytecode activation below
			}
		}
	}

	ctxClass := it.env.Classes["MethodContext"]
	newCtx := it.env.Object.NewContext(ctxClass, object.KindMethodContext, caller, method, receiver, header.NumArgs, header.NumTemps, header.Depth, memory.NilRef)
	for i, a := range args {
		if err := it.env.Object.CtxSetLocal(newCtx, i, a); err != nil {
			return err
		}
	}
	it.cur = newCtx
	return nil
}

// doReturn implements RETURN_METHOD_STACK_TOP: pop ctx's top value, push
// it onto the parent, and retarget current_context to the parent.
func (it *Interp) doReturn(ctx object.ObjectRef) error {
	v, err := it.env.Object.CtxPop(ctx)
	if err != nil {
		return it.fatalf(ctx, KindContextFault, "return: %v", err)
	}
	parent := it.env.Object.CtxParent(ctx)
	if parent == memory.NilRef {
		return it.fatalf(ctx, KindContextFault, "return: root context has no parent")
	}
	if err := it.env.Object.CtxPush(parent, v); err != nil {
		return err
	}
	it.cur = parent
	return nil
}

// Env exposes the shared bootstrap.Environment to primitive handlers
// (internal/primitive), which need class lookups, the object model, and
// the symbol table but have no other way to reach them from inside a
// Primitive func's narrow (receiver, args) signature.
func (it *Interp) Env() *bootstrap.Environment { return it.env }

// ActivateBlockFromCaller runs closure as a new BlockContext whose
// parent is the context currently sending the value/value: message —
// at the point a Primitive func runs, it.cur is still that sender
// context, since activate only retargets it.cur after the primitive
// returns control.
func (it *Interp) ActivateBlockFromCaller(closure object.ObjectRef, args []object.Value) error {
	return it.ActivateBlock(it.cur, closure, args)
}

// ActivateBlock runs a BlockClosure's CompiledBlock as a new BlockContext
// whose parent is caller, used by the "value"/"value:" family of
// primitives (internal/primitive).
func (it *Interp) ActivateBlock(caller, closure object.ObjectRef, args []object.Value) error {
	block := it.env.Object.ClosureBlock(closure)
	header := it.env.Object.CodeHeader(block)
	if header.NumArgs != len(args) {
		return it.fatalf(caller, KindArityMismatch, "block expects %d args, got %d", header.NumArgs, len(args))
	}
	ctxClass := it.env.Classes["BlockContext"]
	receiver := it.env.Object.ClosureReceiver(closure)
	newCtx := it.env.Object.NewContext(ctxClass, object.KindBlockContext, caller, block, receiver, header.NumArgs, header.NumTemps, header.Depth, it.env.Object.ClosureOuterContext(closure))
	for i, a := range args {
		if err := it.env.Object.CtxSetLocal(newCtx, i, a); err != nil {
			return err
		}
	}
	it.cur = newCtx
	return nil
}

func (it *Interp) loadGlobal(sym object.ObjectRef) (object.Value, error) {
	bindings := it.env.Object.NamespaceBindings(it.env.Smalltalk)
	binding, ok := it.env.Object.BindingAt(bindings, sym)
	if !ok {
		name, _ := it.env.Object.StringValue(sym)
		return object.Value{}, fmt.Errorf("unbound variable %q", name)
	}
	return it.env.Object.AssocValue(binding), nil
}

func (it *Interp) storeGlobal(sym object.ObjectRef, v object.Value) error {
	bindings := it.env.Object.NamespaceBindings(it.env.Smalltalk)
	bindingDictClass := it.env.Classes["BindingDictionary"]
	return it.env.Object.BindingAtPut(bindings, sym, v, bindingDictClass)
}

// fatalf builds a *Fault whose Err wraps kind's sentinel, so any later
// errors.Is(returnedErr, interp.ErrArityMismatch) (etc.) call succeeds
// regardless of which call site raised it.
func (it *Interp) fatalf(ctx object.ObjectRef, kind Kind, format string, args ...interface{}) error {
	detail := fmt.Errorf(format, args...)
	err := fmt.Errorf("%w: %v", sentinelFor(kind), detail)
	it.log.Errorw("interpreter fatal error", "context", ctx, "kind", kind.String(), "error", err)
	return &Fault{Kind: kind, Context: ctx, Err: err}
}
