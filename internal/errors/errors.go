// Package errors defines the diagnostic types shared by every compiler
// phase: lexer, parser, semantic analyzer, CFG builder and SSA emitter.
package errors

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Category identifies which compiler phase raised a diagnostic.
type Category string

const (
	LexError      Category = "LexError"
	SyntaxError   Category = "SyntaxError"
	TypeError     Category = "TypeError"
	ResolutionError Category = "ResolutionError"
	SemanticError Category = "SemanticError"
	CodegenError  Category = "CodegenError"
)

// SourceLocation is a file/line/column triple.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

func (l SourceLocation) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// StackFrame is a single frame of a diagnostic call-stack trail, used when
// a semantic error is reported in the context of a function call chain
// (e.g. a type mismatch surfaced while resolving an argument list).
type StackFrame struct {
	Function string
	File     string
	Line     int
	Column   int
}

// FasterBASICError is a user-facing diagnostic: a category, a message, a
// source location, an optional source line for caret-pointer rendering and
// an optional call-stack trail.
type FasterBASICError struct {
	Category  Category
	Message   string
	Location  SourceLocation
	CallStack []StackFrame
	Source    string
	Hint      string
}

func (e *FasterBASICError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s: %s\n", e.Category, e.Message))

	if e.Location.File != "" {
		sb.WriteString(fmt.Sprintf("  at %s:%d:%d\n", e.Location.File, e.Location.Line, e.Location.Column))

		if e.Source != "" {
			prefix := fmt.Sprintf("  %d | ", e.Location.Line)
			sb.WriteString(fmt.Sprintf("\n%s%s\n", prefix, e.Source))
			sb.WriteString(strings.Repeat(" ", len(prefix)))
			if e.Location.Column > 0 {
				sb.WriteString(strings.Repeat(" ", e.Location.Column-1))
			}
			sb.WriteString("^\n")
		}
	}

	if e.Hint != "" {
		sb.WriteString(fmt.Sprintf("\nhint: %s\n", e.Hint))
	}

	if len(e.CallStack) > 0 {
		sb.WriteString("\nCall Stack:\n")
		for _, frame := range e.CallStack {
			if frame.Function != "" {
				sb.WriteString(fmt.Sprintf("  at %s (%s:%d:%d)\n", frame.Function, frame.File, frame.Line, frame.Column))
			} else {
				sb.WriteString(fmt.Sprintf("  at %s:%d:%d\n", frame.File, frame.Line, frame.Column))
			}
		}
	}

	return sb.String()
}

func newError(cat Category, message, file string, line, col int) *FasterBASICError {
	return &FasterBASICError{
		Category: cat,
		Message:  message,
		Location: SourceLocation{File: file, Line: line, Column: col},
	}
}

func NewLexError(message, file string, line, col int) *FasterBASICError {
	return newError(LexError, message, file, line, col)
}

func NewSyntaxError(message, file string, line, col int) *FasterBASICError {
	return newError(SyntaxError, message, file, line, col)
}

func NewTypeError(message, file string, line, col int) *FasterBASICError {
	return newError(TypeError, message, file, line, col)
}

func NewResolutionError(message, file string, line, col int) *FasterBASICError {
	return newError(ResolutionError, message, file, line, col)
}

func NewSemanticError(message, file string, line, col int) *FasterBASICError {
	return newError(SemanticError, message, file, line, col)
}

func NewCodegenError(message, file string, line, col int) *FasterBASICError {
	return newError(CodegenError, message, file, line, col)
}

func (e *FasterBASICError) WithSource(source string) *FasterBASICError {
	e.Source = source
	return e
}

func (e *FasterBASICError) WithHint(hint string) *FasterBASICError {
	e.Hint = hint
	return e
}

func (e *FasterBASICError) WithStack(stack []StackFrame) *FasterBASICError {
	e.CallStack = stack
	return e
}

func (e *FasterBASICError) AddStackFrame(function, file string, line, column int) *FasterBASICError {
	e.CallStack = append(e.CallStack, StackFrame{Function: function, File: file, Line: line, Column: column})
	return e
}

// Bag accumulates diagnostics across a compiler phase so reporting can
// continue past the first error (spec'd fail-together behavior), while
// still letting the driver check HasErrors before proceeding to the next
// phase.
type Bag struct {
	items []*FasterBASICError
}

func (b *Bag) Add(err *FasterBASICError) {
	b.items = append(b.items, err)
}

func (b *Bag) HasErrors() bool {
	return len(b.items) > 0
}

func (b *Bag) Errors() []*FasterBASICError {
	return b.items
}

func (b *Bag) String() string {
	var sb strings.Builder
	for _, e := range b.items {
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// WrapInternal marks err as an internal compiler bug (a violated invariant
// in the CFG builder or SSA emitter, not a user source error) with a Go
// stack trace attached, per the fail-fast-on-internal-invariant rule:
// these are never added to a Bag, they propagate as panics recovered at
// the phase boundary.
func WrapInternal(err error, message string) error {
	return pkgerrors.Wrap(err, message)
}

// Internal constructs a fresh internal-compiler-bug error with a stack
// trace, for use with panic() at an invariant check.
func Internal(message string) error {
	return pkgerrors.New(message)
}
