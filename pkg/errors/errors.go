package errors

import (
	"fmt"
	"io"
	"strings"
)

// CadenceError is implemented by every error the engine reports to Go callers.
type CadenceError interface {
	error
	Kind() string // "Syntax", "Uncaught", "Invariant"
	// Message returns the message without location decoration.
	Message() string
	Unwrap() error
}

// SyntaxError is produced by the lexer and parser.
type SyntaxError struct {
	Position
	Msg   string
	Cause error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("Syntax Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *SyntaxError) Pos() Position   { return e.Position }
func (e *SyntaxError) Kind() string    { return "Syntax" }
func (e *SyntaxError) Message() string { return e.Msg }
func (e *SyntaxError) Unwrap() error   { return e.Cause }

// UncaughtError carries a thrown language value out of the engine. Detail is
// the host rendering of the value (for error objects, "Name: message").
type UncaughtError struct {
	Detail string
	Value  any
}

func (e *UncaughtError) Error() string   { return "Uncaught " + e.Detail }
func (e *UncaughtError) Kind() string    { return "Uncaught" }
func (e *UncaughtError) Message() string { return e.Detail }
func (e *UncaughtError) Unwrap() error   { return nil }

// InvariantError signals an engine defect: an assertion about internal state
// that does not hold. It is raised with panic and recovered at job boundaries;
// language code can never observe it.
type InvariantError struct {
	Msg   string
	Cause error
}

func (e *InvariantError) Error() string   { return "engine invariant violated: " + e.Msg }
func (e *InvariantError) Kind() string    { return "Invariant" }
func (e *InvariantError) Message() string { return e.Msg }
func (e *InvariantError) Unwrap() error   { return e.Cause }

// Invariantf builds an InvariantError from a format string.
func Invariantf(format string, args ...any) *InvariantError {
	return &InvariantError{Msg: fmt.Sprintf(format, args...)}
}

// DisplayErrors writes errors to w with the offending source line and a
// caret under the reported column when position information is available.
func DisplayErrors(w io.Writer, errs []CadenceError) {
	for _, err := range errs {
		se, ok := err.(*SyntaxError)
		if !ok || se.Source == nil {
			fmt.Fprintf(w, "%s Error: %s\n", err.Kind(), err.Message())
			continue
		}
		line := se.Source.Line(se.Line)
		if line == "" {
			fmt.Fprintf(w, "%s\n", se.Error())
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", se.Source.DisplayPath(), se.Error())
		fmt.Fprintf(w, "  %s\n", strings.TrimRight(line, "\t "))
		col := se.Column - 1
		if col < 0 {
			col = 0
		}
		fmt.Fprintf(w, "  %s^\n\n", strings.Repeat(" ", col))
	}
}
