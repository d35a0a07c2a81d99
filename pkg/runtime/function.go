package runtime

import "github.com/nooga/cadence/pkg/value"

// CreateBuiltinFunction wraps a Go function as a callable object of the
// realm, with its length and name properties set.
func CreateBuiltinFunction(r *Realm, name string, length int, fn value.NativeFunction) *value.Object {
	f := value.NewObject(r.Intrinsic("%Function.prototype%"))
	f.Class = "Function"
	f.CallFn = fn
	SetFunctionLength(f, length)
	SetFunctionName(f, value.StringKey(name), "")
	return f
}

// CreateBuiltinConstructor is CreateBuiltinFunction with a [[Construct]]
// behavior.
func CreateBuiltinConstructor(r *Realm, name string, length int, call value.NativeFunction, construct value.NativeConstructor) *value.Object {
	f := CreateBuiltinFunction(r, name, length, call)
	f.ConstructFn = construct
	return f
}

// SetFunctionName defines the name property; prefix is "get", "set" or "".
func SetFunctionName(f *value.Object, key value.PropertyKey, prefix string) {
	name := key.FunctionName()
	if prefix != "" {
		name = prefix + " " + name
	}
	f.DefineOwnProperty(value.StringKey("name"), value.Property{Value: value.String(name), Configurable: true})
}

// SetFunctionLength defines the length property.
func SetFunctionLength(f *value.Object, length int) {
	f.DefineOwnProperty(value.StringKey("length"), value.Property{Value: value.Number(length), Configurable: true})
}

// Arg returns args[i] or undefined.
func Arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Undefined
}
