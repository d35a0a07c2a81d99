package builtins

import (
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// nativeErrors are the NativeError constructors, each inheriting from Error.
var nativeErrors = []string{"TypeError", "ReferenceError", "RangeError", "SyntaxError", "EvalError", "URIError"}

// ErrorInitializer implements Error and the NativeError constructors
type ErrorInitializer struct{}

func (e *ErrorInitializer) Name() string {
	return "Error"
}

func (e *ErrorInitializer) Priority() int {
	return PriorityError
}

func (e *ErrorInitializer) InitRuntime(ctx *RuntimeContext) error {
	r := ctx.Realm

	errorProto := value.NewObject(ctx.ObjectPrototype)
	errorProto.SetMethod(value.StringKey("name"), value.String("Error"))
	errorProto.SetMethod(value.StringKey("message"), value.String(""))
	ctx.Method(errorProto, "toString", 0, func(this value.Value, _ []value.Value) value.Completion {
		obj, c := thisObject(r, this, "Error.prototype.toString")
		if c.IsAbrupt() {
			return c
		}
		return errorToString(r, obj)
	})
	r.SetIntrinsic("%Error.prototype%", errorProto)
	errorCtor := e.makeConstructor(ctx, "Error", errorProto)
	errorCtor.SetPrototype(ctx.FunctionPrototype)

	for _, name := range nativeErrors {
		proto := value.NewObject(errorProto)
		proto.SetMethod(value.StringKey("name"), value.String(name))
		proto.SetMethod(value.StringKey("message"), value.String(""))
		r.SetIntrinsic("%"+name+".prototype%", proto)
		ctor := e.makeConstructor(ctx, name, proto)
		ctor.SetPrototype(errorCtor)
	}
	return nil
}

func (e *ErrorInitializer) makeConstructor(ctx *RuntimeContext, name string, proto *value.Object) *value.Object {
	r := ctx.Realm
	intrinsic := "%" + name + ".prototype%"
	var ctor *value.Object
	construct := func(args []value.Value, newTarget *value.Object) value.Completion {
		obj, c := runtime.OrdinaryCreateFromConstructor(r, newTarget, intrinsic)
		if c.IsAbrupt() {
			return c
		}
		obj.Class = "Error"
		if msg := runtime.Arg(args, 0); !value.IsUndefined(msg) {
			s, c := runtime.ToString(r, msg)
			if c.IsAbrupt() {
				return c
			}
			obj.SetMethod(value.StringKey("message"), value.String(s))
		}
		if opts, ok := runtime.Arg(args, 1).(*value.Object); ok && opts.HasProperty(value.StringKey("cause")) {
			cause := opts.Get(value.StringKey("cause"), opts)
			if cause.IsAbrupt() {
				return cause
			}
			obj.SetMethod(value.StringKey("cause"), cause.ValueOrUndefined())
		}
		return value.NormalCompletion(obj)
	}
	ctor = ctx.Constructor(name, 1, proto,
		func(_ value.Value, args []value.Value) value.Completion {
			return construct(args, ctor)
		},
		construct)
	r.SetIntrinsic("%"+name+"%", ctor)
	ctx.DefineGlobal(name, ctor)
	return ctor
}

func errorToString(r *runtime.Realm, obj *value.Object) value.Completion {
	read := func(key, fallback string) (string, value.Completion) {
		c := obj.Get(value.StringKey(key), obj)
		if c.IsAbrupt() {
			return "", c
		}
		if value.IsUndefined(c.ValueOrUndefined()) {
			return fallback, value.Empty
		}
		return runtime.ToString(r, c.Value)
	}
	name, c := read("name", "Error")
	if c.IsAbrupt() {
		return c
	}
	msg, c := read("message", "")
	if c.IsAbrupt() {
		return c
	}
	switch {
	case name == "":
		return value.NormalCompletion(value.String(msg))
	case msg == "":
		return value.NormalCompletion(value.String(name))
	}
	return value.NormalCompletion(value.String(name + ": " + msg))
}
