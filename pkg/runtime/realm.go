package runtime

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/nooga/cadence/pkg/env"
	"github.com/nooga/cadence/pkg/errors"
	"github.com/nooga/cadence/pkg/value"
)

// Realm is an isolated set of intrinsics with its own global object and
// global environment.
type Realm struct {
	ID           uuid.UUID
	Agent        *Agent
	Intrinsics   map[string]*value.Object
	GlobalObject *value.Object
	GlobalEnv    *env.Global
}

// NewRealm creates an empty realm. The builtins package populates the
// intrinsics and the global object.
func NewRealm(agent *Agent) *Realm {
	return &Realm{
		ID:         uuid.New(),
		Agent:      agent,
		Intrinsics: make(map[string]*value.Object),
	}
}

// Intrinsic looks up a well-known intrinsic such as "%Promise%". A missing
// intrinsic is an engine defect.
func (r *Realm) Intrinsic(name string) *value.Object {
	obj, ok := r.Intrinsics[name]
	if !ok {
		panic(errors.Invariantf("realm has no intrinsic %s", name))
	}
	return obj
}

func (r *Realm) SetIntrinsic(name string, obj *value.Object) {
	r.Intrinsics[name] = obj
}

// SetGlobalObject installs the global object and creates the global
// environment over it.
func (r *Realm) SetGlobalObject(global *value.Object) {
	r.GlobalObject = global
	r.GlobalEnv = env.NewGlobal(global, global)
}

// NewError creates an error object of the given constructor name (for
// example "TypeError") with a message.
func (r *Realm) NewError(kind, message string) *value.Object {
	obj := value.NewObject(r.Intrinsic("%" + kind + ".prototype%"))
	obj.Class = "Error"
	obj.SetMethod(value.StringKey("message"), value.String(message))
	return obj
}

// Throw builds a throw completion carrying a new error object.
func (r *Realm) Throw(kind, format string, args ...any) value.Completion {
	return value.ThrowCompletion(r.NewError(kind, fmt.Sprintf(format, args...)))
}

func (r *Realm) ThrowTypeError(format string, args ...any) value.Completion {
	return r.Throw("TypeError", format, args...)
}

func (r *Realm) ThrowReferenceError(format string, args ...any) value.Completion {
	return r.Throw("ReferenceError", format, args...)
}

func (r *Realm) ThrowRangeError(format string, args ...any) value.Completion {
	return r.Throw("RangeError", format, args...)
}

// ThrowBindingError converts an environment error into a throw completion.
func (r *Realm) ThrowBindingError(err error) value.Completion {
	if te, ok := err.(*env.ThrowError); ok {
		return te.Completion
	}
	if env.IsReferenceError(err) {
		return r.ThrowReferenceError("%s", err.Error())
	}
	return r.ThrowTypeError("%s", err.Error())
}
