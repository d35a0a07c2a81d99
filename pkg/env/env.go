// Package env implements the environment records the evaluator resolves
// identifiers against. Every operation that can fail returns a Go error;
// the evaluator turns a *BindingError into a ReferenceError or TypeError
// throw completion.
package env

import (
	"errors"
	"fmt"

	"github.com/nooga/cadence/pkg/value"
)

var (
	ErrNotDefined         = errors.New("is not defined")
	ErrUninitialized      = errors.New("cannot access before initialization")
	ErrConstAssignment    = errors.New("assignment to constant variable")
	ErrAlreadyDeclared    = errors.New("has already been declared")
	ErrNotConfigurable    = errors.New("cannot redefine non-configurable global")
	ErrThisUninitialized  = errors.New("this is not initialized")
	ErrNoThisBinding      = errors.New("environment has no this binding")
	ErrAlreadyInitialized = errors.New("binding is already initialized")
)

// BindingError reports a failed binding operation on Name.
type BindingError struct {
	Name string
	Err  error
}

func (e *BindingError) Error() string {
	switch e.Err {
	case ErrNotDefined, ErrAlreadyDeclared:
		return fmt.Sprintf("%s %s", e.Name, e.Err)
	case ErrUninitialized:
		return fmt.Sprintf("cannot access '%s' before initialization", e.Name)
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Name)
}

func (e *BindingError) Unwrap() error { return e.Err }

// IsReferenceError reports whether err should surface as a ReferenceError
// rather than a TypeError.
func IsReferenceError(err error) bool {
	return errors.Is(err, ErrNotDefined) || errors.Is(err, ErrUninitialized) || errors.Is(err, ErrThisUninitialized)
}

func bindingError(name string, err error) error {
	return &BindingError{Name: name, Err: err}
}

// Environment is the abstract scope contract. Implementations may call
// into language code (object environment records run accessors), so reads
// and writes report abrupt completions through ThrowError.
type Environment interface {
	HasBinding(name string) (bool, error)
	CreateMutableBinding(name string, deletable bool) error
	CreateImmutableBinding(name string, strict bool) error
	InitializeBinding(name string, v value.Value) error
	SetMutableBinding(name string, v value.Value, strict bool) error
	GetBindingValue(name string, strict bool) (value.Value, error)
	DeleteBinding(name string) (bool, error)
	HasThisBinding() bool
	WithBaseObject() value.Value
	Outer() Environment
}

// ThrowError carries an abrupt completion raised by language code running
// inside an environment operation, such as a global accessor.
type ThrowError struct {
	Completion value.Completion
}

func (e *ThrowError) Error() string { return "exception in binding accessor" }

// GetIdentifierReference walks env and its outers for name. It returns the
// environment holding the binding, or nil for an unresolvable reference.
func GetIdentifierReference(e Environment, name string) (Environment, error) {
	for ; e != nil; e = e.Outer() {
		ok, err := e.HasBinding(name)
		if err != nil {
			return nil, err
		}
		if ok {
			return e, nil
		}
	}
	return nil, nil
}

// GetThisEnvironment returns the nearest environment with a this binding.
func GetThisEnvironment(e Environment) Environment {
	for ; e != nil; e = e.Outer() {
		if e.HasThisBinding() {
			return e
		}
	}
	return nil
}
