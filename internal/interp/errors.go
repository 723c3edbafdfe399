package interp

import (
	"errors"
	"fmt"

	"github.com/kristofer/stbootstrap/internal/object"
)

// Kind distinguishes spec.md section 7's fatal-error categories so a
// caller can branch on errors.Is/errors.As instead of matching message
// text. Syntax/compile errors are a separate, non-fatal category (the
// compiler aborts only the failing unit; see internal/compiler) and are
// not part of this interpreter-level hierarchy.
type Kind int

const (
	// KindContextFault covers stack/context bookkeeping that spec.md's
	// execution model implies is fatal (an exhausted evaluation stack, an
	// instruction pointer past the method's code, a return with no
	// parent context) without giving it its own heading in section 7 —
	// unlike the four kinds below, which the spec names explicitly.
	KindContextFault Kind = iota
	KindNameResolution
	KindArityMismatch
	KindStructuralOverflow
	KindUnknownOpcode
)

func (k Kind) String() string {
	switch k {
	case KindNameResolution:
		return "name resolution error"
	case KindArityMismatch:
		return "arity mismatch"
	case KindStructuralOverflow:
		return "structural overflow"
	case KindUnknownOpcode:
		return "unknown opcode"
	default:
		return "context fault"
	}
}

// Sentinel errors for each Kind, so a caller can errors.Is(err,
// interp.ErrArityMismatch) instead of matching message text.
// ErrStructuralOverflow is re-exported from internal/object, the package
// that actually detects a dictionary probe exhausting every slot, so
// callers never need to import both packages to test for it.
var (
	ErrContextFault       = errors.New("context fault")
	ErrNameResolution     = errors.New("name resolution error")
	ErrArityMismatch      = errors.New("arity mismatch")
	ErrStructuralOverflow = object.ErrStructuralOverflow
	ErrUnknownOpcode      = errors.New("unknown opcode")
)

func sentinelFor(kind Kind) error {
	switch kind {
	case KindNameResolution:
		return ErrNameResolution
	case KindArityMismatch:
		return ErrArityMismatch
	case KindStructuralOverflow:
		return ErrStructuralOverflow
	case KindUnknownOpcode:
		return ErrUnknownOpcode
	default:
		return ErrContextFault
	}
}

// Fault is spec.md section 7's fatal-error category: stack underflow,
// unknown opcode, arity mismatch, unbound variable/doesNotUnderstand, or
// a dictionary probe exhausted. Per spec.md, "cancellation is not
// defined; a fatal error terminates the process after emitting a
// diagnostic" — this type carries enough for a caller (cmd/smalltalk) to
// do exactly that. Err always wraps one of the sentinels above, so
// errors.Is(err, interp.ErrArityMismatch) (etc.) works directly against a
// returned *Fault without needing the Kind field at all; Kind is there
// for callers that would rather switch on it.
type Fault struct {
	Kind    Kind
	Context object.ObjectRef
	Err     error
}

func (e *Fault) Error() string {
	return fmt.Sprintf("fatal: %s: %v (context %d)", e.Kind, e.Err, e.Context)
}

func (e *Fault) Unwrap() error { return e.Err }

// FatalError is the name spec.md's own prose uses ("a fatal error
// terminates the process"); Fault is the concrete type carrying that
// behavior and both names refer to the same struct.
type FatalError = Fault
