package ember

import "fmt"

// LocatedError is an error tied to a position in the compiled source.
type LocatedError interface {
	error
	Location() Location
	Message() string
}

func locatedString(loc Location, msg string) string {
	return fmt.Sprintf("%s: %s", loc, msg)
}

type UndefinedError struct {
	Loc  Location
	What string
	Name string
}

func (e *UndefinedError) Location() Location { return e.Loc }
func (e *UndefinedError) Message() string {
	return fmt.Sprintf("undefined %s: %s", e.What, e.Name)
}
func (e *UndefinedError) Error() string { return locatedString(e.Loc, e.Message()) }

type RedefinitionError struct {
	Loc  Location
	What string
	Name string
}

func (e *RedefinitionError) Location() Location { return e.Loc }
func (e *RedefinitionError) Message() string {
	return fmt.Sprintf("redefinition of %s %s", e.What, e.Name)
}
func (e *RedefinitionError) Error() string { return locatedString(e.Loc, e.Message()) }

// UndefinedOperationError is an operator applied to operand types it does not
// support, such as adding two pointers.
type UndefinedOperationError struct {
	Loc   Location
	Op    BinaryOp
	Type1 Type
	Type2 Type
}

func (e *UndefinedOperationError) Location() Location { return e.Loc }
func (e *UndefinedOperationError) Message() string {
	return fmt.Sprintf("undefined operation: '%s' %s '%s'", e.Type1, e.Op, e.Type2)
}
func (e *UndefinedOperationError) Error() string { return locatedString(e.Loc, e.Message()) }

type CastError struct {
	Loc  Location
	From Type
	To   Type
}

func (e *CastError) Location() Location { return e.Loc }
func (e *CastError) Message() string {
	return fmt.Sprintf("cannot convert '%s' to '%s'", e.From, e.To)
}
func (e *CastError) Error() string { return locatedString(e.Loc, e.Message()) }

// SemanticError covers the remaining user errors: misuse of void, bad
// dereferences, non-constant global initializers and so on.
type SemanticError struct {
	Loc Location
	Msg string
}

func semanticErrorf(loc Location, format string, args ...interface{}) *SemanticError {
	return &SemanticError{Loc: loc, Msg: fmt.Sprintf(format, args...)}
}

func (e *SemanticError) Location() Location { return e.Loc }
func (e *SemanticError) Message() string    { return e.Msg }
func (e *SemanticError) Error() string      { return locatedString(e.Loc, e.Msg) }

// InternalError signals a bug in the compiler rather than in the program.
// It is always fatal.
type InternalError struct {
	Loc Location
	Msg string
}

func internalErrorf(loc Location, format string, args ...interface{}) *InternalError {
	return &InternalError{Loc: loc, Msg: fmt.Sprintf(format, args...)}
}

func (e *InternalError) Location() Location { return e.Loc }
func (e *InternalError) Message() string    { return "internal compiler error: " + e.Msg }
func (e *InternalError) Error() string      { return locatedString(e.Loc, e.Message()) }
