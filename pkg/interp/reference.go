package interp

import (
	"github.com/nooga/cadence/pkg/env"
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// Reference is the result of evaluating an identifier or a property
// access. A property reference has a Base; a resolved identifier has an
// Env; a reference with neither is unresolvable.
type Reference struct {
	Base value.Value
	Env  env.Environment
	Name value.PropertyKey
}

func (ref *Reference) IsPropertyReference() bool { return ref.Base != nil }

func (ref *Reference) IsUnresolvable() bool { return ref.Base == nil && ref.Env == nil }

// GetReferencedName returns the property key or identifier name of ref.
func GetReferencedName(ref *Reference) value.PropertyKey {
	return ref.Name
}

// GetValue reads through ref. Unresolvable references throw a
// ReferenceError.
func GetValue(r *runtime.Realm, ref *Reference) value.Completion {
	switch {
	case ref.IsUnresolvable():
		return r.ThrowReferenceError("%s is not defined", ref.Name)
	case ref.IsPropertyReference():
		return runtime.GetV(r, ref.Base, ref.Name)
	}
	v, err := ref.Env.GetBindingValue(ref.Name.Name, true)
	if err != nil {
		return r.ThrowBindingError(err)
	}
	return value.NormalCompletion(v)
}

// PutValue writes v through ref with strict-mode semantics: writes to
// unresolvable names and failed property writes throw.
func PutValue(r *runtime.Realm, ref *Reference, v value.Value) value.Completion {
	switch {
	case ref.IsUnresolvable():
		return r.ThrowReferenceError("%s is not defined", ref.Name)
	case ref.IsPropertyReference():
		return runtime.SetV(r, ref.Base, ref.Name, v)
	}
	if err := ref.Env.SetMutableBinding(ref.Name.Name, v, true); err != nil {
		return r.ThrowBindingError(err)
	}
	return value.Empty
}

// InitializeReferencedBinding initializes the binding ref resolved to.
func InitializeReferencedBinding(r *runtime.Realm, ref *Reference, v value.Value) value.Completion {
	value.Assert(ref.Env != nil, "initializing a non-binding reference %s", ref.Name)
	if err := ref.Env.InitializeBinding(ref.Name.Name, v); err != nil {
		return r.ThrowBindingError(err)
	}
	return value.Empty
}

// resolveBinding looks name up starting at scope, or at the running
// lexical environment when scope is nil.
func (f *frame) resolveBinding(name string, scope env.Environment) (*Reference, value.Completion) {
	if scope == nil {
		scope = f.env()
	}
	found, err := env.GetIdentifierReference(scope, name)
	if err != nil {
		return nil, f.realm.ThrowBindingError(err)
	}
	return &Reference{Env: found, Name: value.StringKey(name)}, value.Empty
}

type thisProvider interface {
	GetThisBinding() (value.Value, error)
}

// resolveThisBinding returns the this value of the nearest non-arrow scope.
func (f *frame) resolveThisBinding() value.Completion {
	e := env.GetThisEnvironment(f.env())
	tp, ok := e.(thisProvider)
	value.Assert(ok, "this environment %T has no this binding", e)
	v, err := tp.GetThisBinding()
	if err != nil {
		return f.realm.ThrowBindingError(err)
	}
	return value.NormalCompletion(v)
}
