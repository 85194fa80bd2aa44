// Package jerrors defines the error taxonomy shared by every writer
// package. It generalizes classloader.go's single cfe() ("class format
// error") helper -- which wraps a message with the caller's file and
// line via runtime.Caller -- into a small typed-error family carrying
// the structured context section 7 calls for (class, method,
// descriptor, bytecode offset) instead of only a source location.
package jerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind discriminates the error taxonomy of section 7.
type Kind int

const (
	// InvalidArgument: out-of-range opcode, unsupported API version for a
	// requested feature, misuse of a constant kind.
	InvalidArgument Kind = iota
	// InvalidState: visit events out of the prescribed order, or
	// get_offset() on an unresolved label.
	InvalidState
	// ClassFormatTooLarge: more than 65535 constants, a method body longer
	// than 65535 bytes, or a UTF-8 string exceeding 65535 bytes.
	ClassFormatTooLarge
	// MethodTooLarge is a ClassFormatTooLarge specialization that always
	// carries the owning class, method name, and descriptor.
	MethodTooLarge
	// UnsupportedFeature: a feature not supported at the declared class
	// file version (e.g. invokedynamic before v51, CONSTANT_Dynamic
	// before v55).
	UnsupportedFeature
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case InvalidState:
		return "InvalidState"
	case ClassFormatTooLarge:
		return "ClassFormatTooLarge"
	case MethodTooLarge:
		return "MethodTooLarge"
	case UnsupportedFeature:
		return "UnsupportedFeature"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by every jbasm package.
// Once any writer method returns an Error the owning writer must be
// discarded -- see section 5, "Failure containment".
type Error struct {
	Kind       Kind
	Message    string
	Class      string // owning class's internal name, if known
	Method     string // owning method name, if known
	Descriptor string // owning method/field descriptor, if known
	Offset     int    // bytecode offset, -1 if not applicable
	file       string
	line       int
	cause      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Class != "" {
		msg += " class=" + e.Class
	}
	if e.Method != "" {
		msg += " method=" + e.Method + e.Descriptor
	}
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" offset=%d", e.Offset)
	}
	if e.file != "" {
		msg += fmt.Sprintf(" (%s:%d)", e.file, e.line)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind Kind, msg string) *Error {
	e := &Error{Kind: kind, Message: msg, Offset: -1}
	if pc, _, _, ok := runtime.Caller(2); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			e.file, e.line = fn.FileLine(pc)
		}
	}
	return e
}

// New builds a bare error of the given kind. Use the With* methods to
// attach context before returning it to the caller.
func New(kind Kind, format string, args ...any) *Error {
	return newError(kind, fmt.Sprintf(format, args...))
}

// Wrap builds an error of the given kind that also unwraps to cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	e := newError(kind, fmt.Sprintf(format, args...))
	e.cause = cause
	return e
}

// WithClass returns e annotated with the owning class's internal name.
func (e *Error) WithClass(name string) *Error { e.Class = name; return e }

// WithMethod returns e annotated with the owning method's name and descriptor.
func (e *Error) WithMethod(name, descriptor string) *Error {
	e.Method = name
	e.Descriptor = descriptor
	return e
}

// WithOffset returns e annotated with a bytecode offset.
func (e *Error) WithOffset(offset int) *Error { e.Offset = offset; return e }

// KindOf reports the Kind of err when err is, or wraps, an *Error.
// errors.Is(err, jerrors.InvalidState) does not work since Kind isn't an
// error, so callers use KindOf(err) == InvalidState, or the convenience
// Is* predicates below.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func IsInvalidArgument(err error) bool { k, ok := KindOf(err); return ok && k == InvalidArgument }
func IsInvalidState(err error) bool    { k, ok := KindOf(err); return ok && k == InvalidState }
func IsTooLarge(err error) bool {
	k, ok := KindOf(err)
	return ok && (k == ClassFormatTooLarge || k == MethodTooLarge)
}
func IsUnsupportedFeature(err error) bool { k, ok := KindOf(err); return ok && k == UnsupportedFeature }
