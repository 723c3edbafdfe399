// Command smalltalk drives the bootstrap/compiler/interpreter stack
// built in internal/: it boots the class lattice, loads the kernel
// source modules, and runs a program file or an interactive REPL.
//
// Adapted from smog's cmd/smog (an os.Args-switch dispatcher over
// run/repl/compile/disassemble) onto github.com/spf13/cobra subcommands,
// grounded on saferwall-pe's cmd/pedumper.go (the one example repo in
// the pack that already wires cobra: a rootCmd with PersistentFlags
// plus one cobra.Command per subcommand).
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/kristofer/stbootstrap/internal/bootstrap"
	"github.com/kristofer/stbootstrap/internal/bytecode"
	"github.com/kristofer/stbootstrap/internal/compiler"
	"github.com/kristofer/stbootstrap/internal/interp"
	"github.com/kristofer/stbootstrap/internal/kernel"
	"github.com/kristofer/stbootstrap/internal/object"
	"github.com/kristofer/stbootstrap/internal/parser"
	"github.com/kristofer/stbootstrap/internal/primitive"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose bool
	step    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "smalltalk",
		Short: "A Smalltalk-80-style bootstrap core",
		Long:  "Boots a metacircular class lattice, a bytecode interpreter, and a handful of kernel-source methods over it.",
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&step, "step", false, "trace every bytecode instruction to stderr")

	rootCmd.AddCommand(
		newRunCmd(),
		newReplCmd(),
		newCompileCmd(),
		newDisassembleCmd(),
		newBootstrapCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *zap.SugaredLogger {
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return zap.NewNop().Sugar()
		}
		return l.Sugar()
	}
	return zap.NewNop().Sugar()
}

// boot builds the environment, loads the kernel modules, and wires an
// interpreter with the primitive registry — every subcommand but
// "bootstrap" and "disassemble" needs exactly this.
func boot() (*bootstrap.Environment, *interp.Interp, error) {
	log := newLogger()
	env, err := bootstrap.Build(log)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: %w", err)
	}
	prims := primitive.Register(env)
	if err := kernel.Load(env); err != nil {
		return nil, nil, fmt.Errorf("kernel: %w", err)
	}
	it := interp.New(env, prims)
	if step {
		it.StepHook = func(ctx object.ObjectRef, op bytecode.Op, operand byte) {
			fmt.Fprintf(os.Stderr, "step: ctx=%d %-26s %d\n", ctx, op, operand)
		}
	}
	return env, it, nil
}

func newBootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Build the class lattice and report its size",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := bootstrap.Build(newLogger())
			if err != nil {
				return err
			}
			fmt.Printf("classes: %d\nmetaclasses: %d\n", len(env.Classes), len(env.Metaclasses))
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [file]",
		Short: "Run a Smalltalk source file as a top-level doit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			env, it, err := boot()
			if err != nil {
				return err
			}
			result, err := evalDoit(env, it, string(src))
			if err != nil {
				return err
			}
			fmt.Println(displayString(env, it, result))
			return nil
		},
	}
}

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive read-eval-print loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, it, err := boot()
			if err != nil {
				return err
			}
			runREPL(env, it)
			return nil
		},
	}
}

func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile [class] [file]",
		Short: "Compile a kernel-style method-body file and install it on class",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			className, filename := args[0], args[1]
			src, err := os.ReadFile(filename)
			if err != nil {
				return err
			}
			env, _, err := boot()
			if err != nil {
				return err
			}
			class, ok := env.Classes[className]
			if !ok {
				return fmt.Errorf("unknown class %q", className)
			}
			body, err := parser.ParseMethodBody(string(src))
			if err != nil {
				return err
			}
			method, err := compiler.CompileMethod(env, class, body)
			if err != nil {
				return err
			}
			fmt.Printf("installed %s>>%s\n", className, body.Selector)
			fmt.Print(disassembleMethod(env, method))
			return nil
		},
	}
}

func newDisassembleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disassemble [class] [file]",
		Short: "Compile a method body into a throwaway environment and print its bytecode",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			className, filename := args[0], args[1]
			src, err := os.ReadFile(filename)
			if err != nil {
				return err
			}
			env, err := bootstrap.Build(newLogger())
			if err != nil {
				return err
			}
			class, ok := env.Classes[className]
			if !ok {
				return fmt.Errorf("unknown class %q", className)
			}
			body, err := parser.ParseMethodBody(string(src))
			if err != nil {
				return err
			}
			method, err := compiler.CompileMethod(env, class, body)
			if err != nil {
				return err
			}
			fmt.Print(disassembleMethod(env, method))
			return nil
		},
	}
}

// evalDoit compiles src as an ad-hoc zero-argument method ("doit") on
// Object and sends it to a fresh instance, the classic Smalltalk
// REPL/batch-runner trick for running bare top-level statements through
// a compiler that otherwise only knows how to compile method bodies.
func evalDoit(env *bootstrap.Environment, it *interp.Interp, src string) (object.Value, error) {
	body, err := parser.ParseMethodBody(asDoitBody(src))
	if err != nil {
		return object.Value{}, err
	}
	class := env.Classes["Object"]
	if _, err := compiler.CompileMethod(env, class, body); err != nil {
		return object.Value{}, err
	}
	receiver, err := it.Send(object.Ref(class), "new", nil)
	if err != nil {
		return object.Value{}, fmt.Errorf("allocating doit receiver: %w", err)
	}
	return it.Send(receiver, "doit", nil)
}

// asDoitBody wraps a REPL/file expression as a "doit" selector pattern.
// A line already ending in an explicit `^` return, or containing
// multiple `.`-separated statements, is used as-is; a bare expression is
// given an implicit `^` so its value (not self) comes back.
func asDoitBody(src string) string {
	trimmed := strings.TrimSpace(src)
	if strings.HasPrefix(trimmed, "^") || strings.Contains(trimmed, ".") {
		return "doit\n\t" + trimmed
	}
	return "doit\n\t^ " + trimmed
}

// disassembleMethod decodes a compiled method's raw bytecode back into
// instructions and renders it the way bytecode.Code.Disassemble does,
// without needing the literal slice CompileMethod already consumed.
func disassembleMethod(env *bootstrap.Environment, method object.ObjectRef) string {
	instrs, err := bytecode.Decode(env.Object.CodeBytes(method))
	if err != nil {
		return fmt.Sprintf("decode error: %v\n", err)
	}
	code := &bytecode.Code{Instructions: instrs}
	return code.Disassemble()
}

func displayString(env *bootstrap.Environment, it *interp.Interp, v object.Value) string {
	result, err := it.Send(v, "printString", nil)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	if !result.IsRef() {
		return fmt.Sprintf("%+v", result)
	}
	s, err := env.Object.StringValue(result.Ref())
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return s
}

func runREPL(env *bootstrap.Environment, it *interp.Interp) {
	fmt.Println("smalltalk — type an expression, blank line to exit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("st> ")
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			return
		}
		result, err := evalDoit(env, it, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(displayString(env, it, result))
	}
}
