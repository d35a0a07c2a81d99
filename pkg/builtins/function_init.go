package builtins

import (
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// FunctionKind distinguishes the four kinds of source function.
type FunctionKind uint8

const (
	KindNormal FunctionKind = iota
	KindGenerator
	KindAsync
	KindAsyncGenerator
)

func (k FunctionKind) String() string {
	switch k {
	case KindGenerator:
		return "GeneratorFunction"
	case KindAsync:
		return "AsyncFunction"
	case KindAsyncGenerator:
		return "AsyncGeneratorFunction"
	}
	return "Function"
}

// ScriptFunction is implemented by the Internal slot of functions defined in
// source text.
type ScriptFunction interface {
	SourceText() string
	Kind() FunctionKind
}

// boundFunction is the Internal slot of Function.prototype.bind results.
type boundFunction struct {
	target    *value.Object
	boundThis value.Value
	boundArgs []value.Value
}

// FunctionInitializer implements the Function builtin
type FunctionInitializer struct{}

func (f *FunctionInitializer) Name() string {
	return "Function"
}

func (f *FunctionInitializer) Priority() int {
	return PriorityFunction // Must be after Object but before others
}

func (f *FunctionInitializer) InitRuntime(ctx *RuntimeContext) error {
	r := ctx.Realm
	proto := ctx.FunctionPrototype
	proto.CallFn = func(value.Value, []value.Value) value.Completion {
		return value.NormalCompletion(value.Undefined)
	}
	runtime.SetFunctionLength(proto, 0)
	runtime.SetFunctionName(proto, value.StringKey(""), "")

	ctx.Method(proto, "call", 1, func(this value.Value, args []value.Value) value.Completion {
		if !value.IsCallable(this) {
			return r.ThrowTypeError("Function.prototype.call called on %s", runtime.Describe(this))
		}
		var rest []value.Value
		if len(args) > 1 {
			rest = args[1:]
		}
		return runtime.Call(r, this, runtime.Arg(args, 0), rest)
	})
	ctx.Method(proto, "apply", 2, func(this value.Value, args []value.Value) value.Completion {
		if !value.IsCallable(this) {
			return r.ThrowTypeError("Function.prototype.apply called on %s", runtime.Describe(this))
		}
		argArray := runtime.Arg(args, 1)
		if value.IsNullish(argArray) {
			return runtime.Call(r, this, runtime.Arg(args, 0), nil)
		}
		list, c := CreateListFromArrayLike(r, argArray)
		if c.IsAbrupt() {
			return c
		}
		return runtime.Call(r, this, runtime.Arg(args, 0), list)
	})
	ctx.Method(proto, "bind", 1, func(this value.Value, args []value.Value) value.Completion {
		target, ok := this.(*value.Object)
		if !ok || target.CallFn == nil {
			return r.ThrowTypeError("Bind must be called on a function")
		}
		var boundArgs []value.Value
		if len(args) > 1 {
			boundArgs = append(boundArgs, args[1:]...)
		}
		return bindFunction(r, target, runtime.Arg(args, 0), boundArgs)
	})
	ctx.Method(proto, "toString", 0, func(this value.Value, _ []value.Value) value.Completion {
		fn, ok := this.(*value.Object)
		if !ok || fn.CallFn == nil {
			return r.ThrowTypeError("Function.prototype.toString requires that 'this' be a Function")
		}
		if sf, ok := fn.Internal.(ScriptFunction); ok {
			return value.NormalCompletion(value.String(sf.SourceText()))
		}
		return value.NormalCompletion(value.String("function " + functionName(fn) + "() { [native code] }"))
	})
	hasInstance := ctx.SymbolMethod(proto, value.SymbolHasInstance, 1, func(this value.Value, args []value.Value) value.Completion {
		ok, c := runtime.OrdinaryHasInstance(r, this, runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.Bool(ok))
	})
	proto.DefineOwnProperty(value.SymbolKey(value.SymbolHasInstance), value.Property{Value: hasInstance})

	ctor := ctx.Constructor("Function", 1, proto,
		func(value.Value, []value.Value) value.Completion {
			return r.Throw("EvalError", "Code generation from strings disallowed for this context")
		},
		func([]value.Value, *value.Object) value.Completion {
			return r.Throw("EvalError", "Code generation from strings disallowed for this context")
		})
	r.SetIntrinsic("%Function%", ctor)
	ctx.DefineGlobal("Function", ctor)
	return nil
}

func bindFunction(r *runtime.Realm, target *value.Object, boundThis value.Value, boundArgs []value.Value) value.Completion {
	bf := &boundFunction{target: target, boundThis: boundThis, boundArgs: boundArgs}
	join := func(args []value.Value) []value.Value {
		all := make([]value.Value, 0, len(bf.boundArgs)+len(args))
		all = append(all, bf.boundArgs...)
		return append(all, args...)
	}
	bound := value.NewObject(target.Prototype())
	bound.Class = "Function"
	bound.Internal = bf
	bound.CallFn = func(_ value.Value, args []value.Value) value.Completion {
		return runtime.Call(r, target, bf.boundThis, join(args))
	}
	if target.ConstructFn != nil {
		bound.ConstructFn = func(args []value.Value, newTarget *value.Object) value.Completion {
			if newTarget == bound {
				newTarget = target
			}
			return runtime.Construct(r, target, join(args), newTarget)
		}
	}

	length := 0
	if target.HasOwnProperty(value.StringKey("length")) {
		c := target.Get(value.StringKey("length"), target)
		if c.IsAbrupt() {
			return c
		}
		if n, ok := c.Value.(value.Number); ok {
			length = max(0, int(value.ToIntegerOrInfinity(float64(n)))-len(boundArgs))
		}
	}
	runtime.SetFunctionLength(bound, length)
	c := target.Get(value.StringKey("name"), target)
	if c.IsAbrupt() {
		return c
	}
	name, _ := c.Value.(value.String)
	runtime.SetFunctionName(bound, value.StringKey(string(name)), "bound")
	return value.NormalCompletion(bound)
}

// CreateListFromArrayLike reads obj[0 .. length-1].
func CreateListFromArrayLike(r *runtime.Realm, v value.Value) ([]value.Value, value.Completion) {
	obj, ok := v.(*value.Object)
	if !ok {
		return nil, r.ThrowTypeError("CreateListFromArrayLike called on non-object")
	}
	n, c := lengthOfArrayLike(r, obj)
	if c.IsAbrupt() {
		return nil, c
	}
	list := make([]value.Value, 0, n)
	for i := 0; i < n; i++ {
		c := obj.Get(value.IndexKey(i), obj)
		if c.IsAbrupt() {
			return nil, c
		}
		list = append(list, c.ValueOrUndefined())
	}
	return list, value.Empty
}

func lengthOfArrayLike(r *runtime.Realm, obj *value.Object) (int, value.Completion) {
	c := obj.Get(value.StringKey("length"), obj)
	if c.IsAbrupt() {
		return 0, c
	}
	n, c := runtime.ToNumber(r, c.ValueOrUndefined())
	if c.IsAbrupt() {
		return 0, c
	}
	n = value.ToIntegerOrInfinity(n)
	if n <= 0 {
		return 0, value.Empty
	}
	if n > 1<<53-1 {
		n = 1<<53 - 1
	}
	return int(n), value.Empty
}

// functionName reads an own data "name" without running user code.
func functionName(fn *value.Object) string {
	if p := fn.GetOwnProperty(value.StringKey("name")); p != nil && !p.Accessor {
		if s, ok := p.Value.(value.String); ok {
			return string(s)
		}
	}
	return ""
}
