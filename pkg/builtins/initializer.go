package builtins

import (
	"io"

	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// BuiltinInitializer is implemented by each builtin module
type BuiltinInitializer interface {
	// Name returns the module name (e.g., "Array", "String", "Promise")
	Name() string

	// Priority returns initialization order (lower = earlier)
	Priority() int

	// InitRuntime creates the intrinsics and globals of the module
	InitRuntime(ctx *RuntimeContext) error
}

// RuntimeContext provides everything needed for runtime initialization
type RuntimeContext struct {
	Realm  *runtime.Realm
	Global *value.Object

	// Host streams for console
	Stdout io.Writer
	Stderr io.Writer

	// Get built-in prototypes (set as initializers run)
	ObjectPrototype   *value.Object
	FunctionPrototype *value.Object
}

// DefineGlobal installs a writable, configurable, non-enumerable global.
func (ctx *RuntimeContext) DefineGlobal(name string, v value.Value) {
	ctx.Global.SetMethod(value.StringKey(name), v)
}

// Function creates a builtin function of the realm.
func (ctx *RuntimeContext) Function(name string, length int, fn value.NativeFunction) *value.Object {
	return runtime.CreateBuiltinFunction(ctx.Realm, name, length, fn)
}

// Method installs a builtin function as a non-enumerable method of obj.
func (ctx *RuntimeContext) Method(obj *value.Object, name string, length int, fn value.NativeFunction) *value.Object {
	f := ctx.Function(name, length, fn)
	obj.SetMethod(value.StringKey(name), f)
	return f
}

// SymbolMethod installs a method under a well-known symbol; its name is
// "[Symbol.xxx]".
func (ctx *RuntimeContext) SymbolMethod(obj *value.Object, sym *value.Symbol, length int, fn value.NativeFunction) *value.Object {
	key := value.SymbolKey(sym)
	f := ctx.Function("", length, fn)
	runtime.SetFunctionName(f, key, "")
	obj.SetMethod(key, f)
	return f
}

// Getter installs a configurable accessor with only a getter.
func (ctx *RuntimeContext) Getter(obj *value.Object, key value.PropertyKey, fn value.NativeFunction) {
	g := ctx.Function("", 0, fn)
	runtime.SetFunctionName(g, key, "get")
	obj.DefineOwnProperty(key, value.Property{Accessor: true, Get: g, Configurable: true})
}

// Constant installs a non-writable, non-enumerable, non-configurable value.
func Constant(obj *value.Object, name string, v value.Value) {
	obj.DefineOwnProperty(value.StringKey(name), value.Property{Value: v})
}

// Constructor creates a constructor function wired to proto through
// "prototype" and "constructor".
func (ctx *RuntimeContext) Constructor(name string, length int, proto *value.Object, call value.NativeFunction, construct value.NativeConstructor) *value.Object {
	if call == nil {
		call = func(value.Value, []value.Value) value.Completion {
			return ctx.Realm.ThrowTypeError("Class constructor %s cannot be invoked without 'new'", name)
		}
	}
	c := runtime.CreateBuiltinConstructor(ctx.Realm, name, length, call, construct)
	c.DefineOwnProperty(value.StringKey("prototype"), value.Property{Value: proto})
	proto.SetMethod(value.StringKey("constructor"), c)
	return c
}

// thisObject returns this as an object or throws a TypeError naming method.
func thisObject(r *runtime.Realm, this value.Value, method string) (*value.Object, value.Completion) {
	obj, ok := this.(*value.Object)
	if !ok {
		return nil, r.ThrowTypeError("%s called on non-object", method)
	}
	return obj, value.Empty
}

// Priority constants for initialization order
const (
	PriorityObject         = 0 // Object must be first (base prototype)
	PriorityFunction       = 1 // Function second (inherits from Object)
	PriorityError          = 2 // Errors before anything can throw
	PriorityIterator       = 3 // Iterator prototypes (needed for iterables)
	PriorityArray          = 4
	PriorityGenerator      = 5
	PriorityPromise        = 6
	PriorityAsyncGenerator = 7 // needs %Promise%
	PriorityString         = 10
	PriorityNumber         = 11
	PriorityBoolean        = 12
	PrioritySymbol         = 13
	PriorityRegExp         = 14
	PriorityMath           = 100
	PriorityConsole        = 102
	PriorityGlobals        = 200
	PriorityHost           = 300 // host modules such as process
)
