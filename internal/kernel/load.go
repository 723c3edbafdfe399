// Package kernel loads the handful of Smalltalk-source method
// definitions this core ships (object.st, smallinteger.st, array.st,
// string.st, blockclosure.st, behavior.st) through the same
// lexer -> parser -> compiler path an interactively-typed method
// definition would use, rather than writing their CompiledMethod bytes
// directly into the bootstrap schedule.
//
// Grounded on pyst's system.py, which boots a short list of ".st"-like
// source snippets after building its object table (see SPEC_FULL.md's
// SUPPLEMENTED FEATURES item 4); smog has no equivalent stage since its
// classes are Go structs, not bootstrap-time Smalltalk objects.
package kernel

import (
	"embed"
	"fmt"
	"sort"

	"github.com/kristofer/stbootstrap/internal/ast"
	"github.com/kristofer/stbootstrap/internal/bootstrap"
	"github.com/kristofer/stbootstrap/internal/compiler"
	"github.com/kristofer/stbootstrap/internal/object"
	"github.com/kristofer/stbootstrap/internal/parser"
)

//go:embed *.st
var sources embed.FS

// Load parses and compiles every embedded .st module, installing each
// method on its class (or, for a `ClassName class extend [...]`
// section, its metaclass). Modules are processed in a fixed
// lexicographic order so behavior.st's class-side `new` is always
// available before anything the REPL or tests might construct with it.
func Load(env *bootstrap.Environment) error {
	entries, err := sources.ReadDir(".")
	if err != nil {
		return fmt.Errorf("kernel: reading embedded sources: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		src, err := sources.ReadFile(name)
		if err != nil {
			return fmt.Errorf("kernel: reading %s: %w", name, err)
		}
		if err := loadModule(env, name, string(src)); err != nil {
			return fmt.Errorf("kernel: %s: %w", name, err)
		}
	}
	return nil
}

func loadModule(env *bootstrap.Environment, name, src string) error {
	def, err := parser.ParseClassDefinition(src)
	if err != nil {
		return err
	}
	target, ok := lookupTarget(env, def)
	if !ok {
		return fmt.Errorf("class %q not found in bootstrap schedule", def.ClassName)
	}
	for _, method := range def.Methods {
		if _, err := compiler.CompileMethod(env, target, method); err != nil {
			return fmt.Errorf("compiling %s>>%s: %w", def.ClassName, method.Selector, err)
		}
	}
	return nil
}

// lookupTarget resolves a parsed ClassDefinition to the Class (instance
// side) or Metaclass (class side, `ClassName class extend [...]`) to
// install its methods on.
func lookupTarget(env *bootstrap.Environment, def *ast.ClassDefinition) (object.ObjectRef, bool) {
	if def.ClassSide {
		ref, ok := env.Metaclasses[def.ClassName]
		return ref, ok
	}
	ref, ok := env.Classes[def.ClassName]
	return ref, ok
}
