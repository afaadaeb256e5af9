package tserr

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/cottand/tsolve/solver/types"
)

// enableDebugErrorPrinting makes errors include the frame that created them when printed
const enableDebugErrorPrinting bool = false
const enableDebugFullStacktrace bool = false

type ErrCode int

const (
	None ErrCode = iota
	ConstraintViolationCode
	WrongArgumentCountCode
	UnresolvedInferenceVariableCode
	RecursionLimitExceededCode
	InternalInconsistencyCode
)

// SolverError is the common interface of every error the solver reports.
// None of them abort a query: they describe how a result was degraded.
type SolverError interface {
	Error() string
	Code() ErrCode

	withStack([]byte) SolverError
	getStack() []byte
}

func FormatWithCode(e SolverError) string {
	if enableDebugErrorPrinting && e.getStack() != nil {
		stack := string(e.getStack())
		if !enableDebugFullStacktrace {
			if lines := strings.Split(stack, "\n"); len(lines) > 6 {
				stack = lines[6]
			}
		}
		return fmt.Sprintf("%s:(TS%03d) %s", stack, e.Code(), e.Error())
	}
	return fmt.Sprintf("(TS%03d) %s", e.Code(), e.Error())
}

func New[E SolverError](err E) SolverError {
	return err.withStack(debug.Stack())
}

// ConstraintViolation is reported when a type argument does not satisfy the
// constraint of its parameter.
type ConstraintViolation struct {
	Param, Constraint, Arg types.TypeId
	// rendered forms, filled in by the reporter
	ParamName, ConstraintText, ArgText string

	stack []byte
}

func (e ConstraintViolation) Error() string {
	return fmt.Sprintf("type '%s' does not satisfy the constraint '%s' of type parameter '%s'", e.ArgText, e.ConstraintText, e.ParamName)
}
func (e ConstraintViolation) Code() ErrCode    { return ConstraintViolationCode }
func (e ConstraintViolation) getStack() []byte { return e.stack }
func (e ConstraintViolation) withStack(stack []byte) SolverError {
	e.stack = stack
	return e
}

type WrongArgumentCount struct {
	Generic     types.TypeId
	GenericName string
	Min, Max    int
	Got         int

	stack []byte
}

func (e WrongArgumentCount) Error() string {
	if e.Min == e.Max {
		return fmt.Sprintf("generic type '%s' requires %d type argument(s), got %d", e.GenericName, e.Min, e.Got)
	}
	return fmt.Sprintf("generic type '%s' requires between %d and %d type arguments, got %d", e.GenericName, e.Min, e.Max, e.Got)
}
func (e WrongArgumentCount) Code() ErrCode    { return WrongArgumentCountCode }
func (e WrongArgumentCount) getStack() []byte { return e.stack }
func (e WrongArgumentCount) withStack(stack []byte) SolverError {
	e.stack = stack
	return e
}

// UnresolvedInferenceVariable is reported when no candidate was found for a
// type parameter. The parameter degrades to its default, constraint or unknown.
type UnresolvedInferenceVariable struct {
	Param     types.TypeId
	ParamName string
	Fallback  types.TypeId

	stack []byte
}

func (e UnresolvedInferenceVariable) Error() string {
	return fmt.Sprintf("could not infer type parameter '%s'", e.ParamName)
}
func (e UnresolvedInferenceVariable) Code() ErrCode    { return UnresolvedInferenceVariableCode }
func (e UnresolvedInferenceVariable) getStack() []byte { return e.stack }
func (e UnresolvedInferenceVariable) withStack(stack []byte) SolverError {
	e.stack = stack
	return e
}

// RecursionLimitExceeded is reported when a query ran out of fuel or depth.
type RecursionLimitExceeded struct {
	Site  string
	Fuel  int
	Depth int

	stack []byte
}

func (e RecursionLimitExceeded) Error() string {
	return fmt.Sprintf("recursion limit exceeded in %s (fuel %d, depth %d)", e.Site, e.Fuel, e.Depth)
}
func (e RecursionLimitExceeded) Code() ErrCode    { return RecursionLimitExceededCode }
func (e RecursionLimitExceeded) getStack() []byte { return e.stack }
func (e RecursionLimitExceeded) withStack(stack []byte) SolverError {
	e.stack = stack
	return e
}

// InternalInconsistency is a programming error such as a corrupt handle.
type InternalInconsistency struct {
	Message string

	stack []byte
}

func (e InternalInconsistency) Error() string {
	return "internal inconsistency: " + e.Message
}
func (e InternalInconsistency) Code() ErrCode    { return InternalInconsistencyCode }
func (e InternalInconsistency) getStack() []byte { return e.stack }
func (e InternalInconsistency) withStack(stack []byte) SolverError {
	e.stack = stack
	return e
}
