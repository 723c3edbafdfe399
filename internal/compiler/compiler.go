// Package compiler implements spec.md section 4.5's compiler/assembler:
// it walks an internal/ast.MethodBody and emits bytecode, a literal
// table, and a packed method header, installing the result into a
// class's method dictionary.
//
// Adapted from smog's pkg/compiler, which carried a flat
// instructions/constants pair with no notion of method header, depth
// tracking, or nested block compilation; this generalizes that shape to
// the full compile rules spec.md names (local/temp slot assignment,
// on-demand literal table, per-statement emission rules, block closures
// as literals).
package compiler

import (
	"fmt"

	"github.com/kristofer/stbootstrap/internal/ast"
	"github.com/kristofer/stbootstrap/internal/bootstrap"
	"github.com/kristofer/stbootstrap/internal/bytecode"
	"github.com/kristofer/stbootstrap/internal/object"
)

// unit holds one method or block's in-progress emission state. Nested
// blocks get their own unit, saved and restored around compilation per
// spec.md section 4.5 step 6 ("save the current emit context").
type unit struct {
	env      *bootstrap.Environment
	locals   map[string]int // arg/temp name -> slot index within this unit
	numArgs  int
	literals []object.Value
	instr    []bytecode.Instruction
	depth    int
	maxDepth int
	isBlock  bool
}

func newUnit(env *bootstrap.Environment, args, temps []string, isBlock bool) *unit {
	u := &unit{env: env, locals: make(map[string]int), numArgs: len(args), isBlock: isBlock}
	for i, name := range args {
		u.locals[name] = i
	}
	for i, name := range temps {
		u.locals[name] = len(args) + i
	}
	return u
}

func (u *unit) emit(op bytecode.Op, operand byte, delta int) {
	u.instr = append(u.instr, bytecode.Instruction{Op: op, Operand: operand})
	u.depth += delta
	if u.depth > u.maxDepth {
		u.maxDepth = u.depth
	}
}

func (u *unit) addLiteral(v object.Value) byte {
	for i, lv := range u.literals {
		if lv.Equal(v) {
			return byte(i)
		}
	}
	u.literals = append(u.literals, v)
	return byte(len(u.literals) - 1)
}

// CompileMethod compiles one method body for class and installs the
// resulting CompiledMethod into the class's MethodDictionary under its
// selector, returning the installed method's reference.
func CompileMethod(env *bootstrap.Environment, class object.ObjectRef, body *ast.MethodBody) (object.ObjectRef, error) {
	u := newUnit(env, body.Arguments, body.Temps, false)
	explicitReturn, err := u.compileStatements(body.Statements, false)
	if err != nil {
		return object.Nil.Ref(), err
	}
	if !explicitReturn {
		u.emit(bytecode.PushSelf, 0, 1)
		u.emit(bytecode.ReturnMethodStackTop, 0, -1)
	}

	primID := 0
	if body.Primitive != "" {
		primID = env.PrimitiveID(body.Primitive)
	}
	header := object.Header{
		NumArgs:  len(body.Arguments),
		NumTemps: len(body.Temps),
		Depth:    u.maxDepth,
		PrimID:   primID,
	}

	selectorSym := env.Symbols.FindOrAdd(body.Selector)
	info := env.Object.NewMethodInfo(env.Classes["MethodInfo"])
	env.Object.SetMethodInfoSelector(info, selectorSym)
	env.Object.SetMethodInfoClass(info, class)

	code := &bytecode.Code{Instructions: u.instr, Literals: toInterfaceSlice(u.literals)}
	methodRef := env.Object.NewCompiledMethod(class, code.Assemble(), u.literals, header, info)

	dict := env.Object.MethodDictionaryOf(class)
	if err := env.Object.MethodDictAtPut(dict, selectorSym, methodRef); err != nil {
		return object.Nil.Ref(), fmt.Errorf("compiler: installing %s: %w", body.Selector, err)
	}
	return methodRef, nil
}

func toInterfaceSlice(vs []object.Value) []interface{} {
	out := make([]interface{}, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

// compileStatements emits one statement sequence. keepLast controls
// whether a trailing non-return statement's value is left on the stack
// (block bodies, whose value is their last expression) or popped (method
// bodies, whose value is always produced by an explicit or implicit
// return). It reports whether the sequence ended in an explicit return,
// so CompileMethod knows whether to append the implicit self-return.
func (u *unit) compileStatements(stmts []ast.Statement, keepLast bool) (explicitReturn bool, err error) {
	for i, stmt := range stmts {
		isLast := i == len(stmts)-1
		switch s := stmt.(type) {
		case *ast.ReturnStatement:
			if err := u.compileExpr(s.Value); err != nil {
				return false, err
			}
			u.emit(bytecode.ReturnMethodStackTop, 0, -1)
			if isLast {
				explicitReturn = true
			}
		case *ast.Assignment:
			if err := u.compileAssignment(s); err != nil {
				return false, err
			}
			if !(keepLast && isLast) {
				u.emit(bytecode.PopStackTop, 0, -1)
			}
		case *ast.ExpressionStatement:
			if err := u.compileExpr(s.Expr); err != nil {
				return false, err
			}
			if !(keepLast && isLast) {
				u.emit(bytecode.PopStackTop, 0, -1)
			}
		default:
			return false, fmt.Errorf("compiler: unsupported statement %T", stmt)
		}
	}
	return explicitReturn, nil
}

var reservedAssignTargets = map[string]bool{"self": true, "nil": true, "true": true, "false": true}

func (u *unit) compileAssignment(a *ast.Assignment) error {
	if reservedAssignTargets[a.Name] {
		return fmt.Errorf("compiler: cannot assign to reserved word %q", a.Name)
	}
	if err := u.compileExpr(a.Value); err != nil {
		return err
	}
	if idx, ok := u.locals[a.Name]; ok {
		u.emit(bytecode.StoreTemporaryVar, byte(idx), 0)
		return nil
	}
	sym := u.env.Symbols.FindOrAdd(a.Name)
	idx := u.addLiteral(object.Ref(sym))
	u.emit(bytecode.StoreLitVariable, idx, 0)
	return nil
}

func (u *unit) compileExpr(expr ast.Expression) error {
	switch e := expr.(type) {
	case ast.SelfExpr:
		u.emit(bytecode.PushSelf, 0, 1)
	case ast.NilExpr:
		u.emit(bytecode.PushLitConstant, u.addLiteral(object.Nil), 1)
	case ast.TrueExpr:
		u.emit(bytecode.PushLitConstant, u.addLiteral(object.True), 1)
	case ast.FalseExpr:
		u.emit(bytecode.PushLitConstant, u.addLiteral(object.False), 1)
	case ast.IntegerLiteral:
		u.emit(bytecode.PushLitConstant, u.addLiteral(object.Int(e.Value)), 1)
	case ast.StringLiteral:
		strClass := u.env.Classes["String"]
		strRef := u.env.Object.NewString(strClass, e.Value)
		u.emit(bytecode.PushLitConstant, u.addLiteral(object.Ref(strRef)), 1)
	case *ast.Identifier:
		if idx, ok := u.locals[e.Name]; ok {
			u.emit(bytecode.PushTemporaryVar, byte(idx), 1)
			return nil
		}
		sym := u.env.Symbols.FindOrAdd(e.Name)
		u.emit(bytecode.PushLitVariable, u.addLiteral(object.Ref(sym)), 1)
	case *ast.Assignment:
		return u.compileAssignment(e)
	case ast.BlockLiteral:
		return u.compileBlock(e)
	case *ast.MessageSend:
		return u.compileSend(e)
	default:
		return fmt.Errorf("compiler: unsupported expression %T", expr)
	}
	return nil
}

func (u *unit) compileSend(send *ast.MessageSend) error {
	if err := u.compileExpr(send.Receiver); err != nil {
		return err
	}
	selectorSym := u.env.Symbols.FindOrAdd(send.Selector)
	u.emit(bytecode.PushLitConstant, u.addLiteral(object.Ref(selectorSym)), 1)
	for _, arg := range send.Args {
		if err := u.compileExpr(arg); err != nil {
			return err
		}
	}
	n := len(send.Args)
	// SEND pops n args, the selector, and the receiver, then pushes one
	// result: net depth change is -(n+2)+1.
	u.emit(bytecode.Send, byte(n), -(n + 1))
	return nil
}

// compileBlock compiles a nested block into its own CompiledBlock, wraps
// it in a BlockClosure, and loads that closure as a literal constant in
// the enclosing unit — spec.md section 4.5 step 6.
func (u *unit) compileBlock(b ast.BlockLiteral) error {
	inner := newUnit(u.env, b.Parameters, b.Temps, true)
	explicitReturn, err := inner.compileStatements(b.Statements, true)
	if err != nil {
		return err
	}
	// A block answers its last value to the context that activated it.
	// RETURN_CONTEXT_STACK_TOP has no handler, so RETURN_METHOD_STACK_TOP
	// (which returns to the parent context) ends the block's code.
	if !explicitReturn {
		if len(b.Statements) == 0 {
			inner.emit(bytecode.PushLitConstant, inner.addLiteral(object.Nil), 1)
		}
		inner.emit(bytecode.ReturnMethodStackTop, 0, -1)
	}
	header := object.Header{NumArgs: len(b.Parameters), NumTemps: len(b.Temps), Depth: inner.maxDepth}
	code := &bytecode.Code{Instructions: inner.instr}
	blockClass := u.env.Classes["CompiledBlock"]
	blockRef := u.env.Object.NewCompiledBlock(blockClass, code.Assemble(), inner.literals, header)

	closureClass := u.env.Classes["BlockClosure"]
	closureRef := u.env.Object.NewBlockClosure(closureClass, object.Nil.Ref(), blockRef, object.Nil)
	u.emit(bytecode.PushLitConstant, u.addLiteral(object.Ref(closureRef)), 1)
	return nil
}
