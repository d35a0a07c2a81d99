package builtins

import (
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// ObjectInitializer implements the Object builtin
type ObjectInitializer struct{}

func (o *ObjectInitializer) Name() string {
	return "Object"
}

func (o *ObjectInitializer) Priority() int {
	return PriorityObject // Must be first (base prototype)
}

func (o *ObjectInitializer) InitRuntime(ctx *RuntimeContext) error {
	r := ctx.Realm
	proto := ctx.ObjectPrototype

	ctx.Method(proto, "hasOwnProperty", 1, func(this value.Value, args []value.Value) value.Completion {
		key, c := runtime.ToPropertyKey(r, runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		obj, c := runtime.ToObject(r, this)
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.Bool(obj.HasOwnProperty(key)))
	})
	ctx.Method(proto, "isPrototypeOf", 1, func(this value.Value, args []value.Value) value.Completion {
		v, ok := runtime.Arg(args, 0).(*value.Object)
		if !ok {
			return value.NormalCompletion(value.False)
		}
		obj, c := runtime.ToObject(r, this)
		if c.IsAbrupt() {
			return c
		}
		for p := v.Prototype(); p != nil; p = p.Prototype() {
			if p == obj {
				return value.NormalCompletion(value.True)
			}
		}
		return value.NormalCompletion(value.False)
	})
	ctx.Method(proto, "propertyIsEnumerable", 1, func(this value.Value, args []value.Value) value.Completion {
		key, c := runtime.ToPropertyKey(r, runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		obj, c := runtime.ToObject(r, this)
		if c.IsAbrupt() {
			return c
		}
		p := obj.GetOwnProperty(key)
		return value.NormalCompletion(value.Bool(p != nil && p.Enumerable))
	})
	ctx.Method(proto, "toString", 0, func(this value.Value, _ []value.Value) value.Completion {
		return objectToString(r, this)
	})
	ctx.Method(proto, "toLocaleString", 0, func(this value.Value, _ []value.Value) value.Completion {
		return runtime.Invoke(r, this, value.StringKey("toString"), nil)
	})
	ctx.Method(proto, "valueOf", 0, func(this value.Value, _ []value.Value) value.Completion {
		obj, c := runtime.ToObject(r, this)
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(obj)
	})

	ctor := ctx.Constructor("Object", 1, proto,
		func(_ value.Value, args []value.Value) value.Completion {
			return objectConstruct(r, runtime.Arg(args, 0))
		},
		func(args []value.Value, newTarget *value.Object) value.Completion {
			if newTarget != r.Intrinsic("%Object%") {
				obj, c := runtime.OrdinaryCreateFromConstructor(r, newTarget, "%Object.prototype%")
				if c.IsAbrupt() {
					return c
				}
				return value.NormalCompletion(obj)
			}
			return objectConstruct(r, runtime.Arg(args, 0))
		})
	r.SetIntrinsic("%Object%", ctor)

	ctx.Method(ctor, "getPrototypeOf", 1, func(_ value.Value, args []value.Value) value.Completion {
		obj, c := runtime.ToObject(r, runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		if p := obj.Prototype(); p != nil {
			return value.NormalCompletion(p)
		}
		return value.NormalCompletion(value.Null)
	})
	ctx.Method(ctor, "setPrototypeOf", 2, func(_ value.Value, args []value.Value) value.Completion {
		target := runtime.Arg(args, 0)
		proto, c := protoArg(r, runtime.Arg(args, 1))
		if c.IsAbrupt() {
			return c
		}
		if value.IsNullish(target) {
			return r.ThrowTypeError("Object.setPrototypeOf called on null or undefined")
		}
		obj, ok := target.(*value.Object)
		if !ok {
			return value.NormalCompletion(target)
		}
		if !obj.SetPrototype(proto) {
			return r.ThrowTypeError("Cyclic __proto__ value or non-extensible object")
		}
		return value.NormalCompletion(obj)
	})
	ctx.Method(ctor, "create", 2, func(_ value.Value, args []value.Value) value.Completion {
		proto, c := protoArg(r, runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		obj := value.NewObject(proto)
		if props := runtime.Arg(args, 1); !value.IsUndefined(props) {
			if c := defineProperties(r, obj, props); c.IsAbrupt() {
				return c
			}
		}
		return value.NormalCompletion(obj)
	})
	ctx.Method(ctor, "defineProperty", 3, func(_ value.Value, args []value.Value) value.Completion {
		obj, ok := runtime.Arg(args, 0).(*value.Object)
		if !ok {
			return r.ThrowTypeError("Object.defineProperty called on non-object")
		}
		key, c := runtime.ToPropertyKey(r, runtime.Arg(args, 1))
		if c.IsAbrupt() {
			return c
		}
		desc, c := toPropertyDescriptor(r, obj.GetOwnProperty(key), runtime.Arg(args, 2))
		if c.IsAbrupt() {
			return c
		}
		if !obj.DefineOwnProperty(key, desc) {
			return r.ThrowTypeError("Cannot redefine property: %s", key)
		}
		return value.NormalCompletion(obj)
	})
	ctx.Method(ctor, "defineProperties", 2, func(_ value.Value, args []value.Value) value.Completion {
		obj, ok := runtime.Arg(args, 0).(*value.Object)
		if !ok {
			return r.ThrowTypeError("Object.defineProperties called on non-object")
		}
		if c := defineProperties(r, obj, runtime.Arg(args, 1)); c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(obj)
	})
	ctx.Method(ctor, "getOwnPropertyNames", 1, func(_ value.Value, args []value.Value) value.Completion {
		return ownKeys(r, runtime.Arg(args, 0), false, keysOnly)
	})
	ctx.Method(ctor, "keys", 1, func(_ value.Value, args []value.Value) value.Completion {
		return ownKeys(r, runtime.Arg(args, 0), true, keysOnly)
	})
	ctx.Method(ctor, "values", 1, func(_ value.Value, args []value.Value) value.Completion {
		return ownKeys(r, runtime.Arg(args, 0), true, valuesOnly)
	})
	ctx.Method(ctor, "entries", 1, func(_ value.Value, args []value.Value) value.Completion {
		return ownKeys(r, runtime.Arg(args, 0), true, keyValuePairs)
	})
	ctx.Method(ctor, "assign", 2, func(_ value.Value, args []value.Value) value.Completion {
		target, c := runtime.ToObject(r, runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		for _, src := range args[min(1, len(args)):] {
			if value.IsNullish(src) {
				continue
			}
			from, c := runtime.ToObject(r, src)
			if c.IsAbrupt() {
				return c
			}
			for _, key := range from.OwnPropertyKeys() {
				p := from.GetOwnProperty(key)
				if p == nil || !p.Enumerable {
					continue
				}
				v := from.Get(key, from)
				if v.IsAbrupt() {
					return v
				}
				if c := runtime.Set(r, target, key, v.ValueOrUndefined(), true); c.IsAbrupt() {
					return c
				}
			}
		}
		return value.NormalCompletion(target)
	})
	ctx.Method(ctor, "preventExtensions", 1, func(_ value.Value, args []value.Value) value.Completion {
		if obj, ok := runtime.Arg(args, 0).(*value.Object); ok {
			obj.PreventExtensions()
		}
		return value.NormalCompletion(runtime.Arg(args, 0))
	})
	ctx.Method(ctor, "isExtensible", 1, func(_ value.Value, args []value.Value) value.Completion {
		obj, ok := runtime.Arg(args, 0).(*value.Object)
		return value.NormalCompletion(value.Bool(ok && obj.Extensible()))
	})
	ctx.Method(ctor, "freeze", 1, func(_ value.Value, args []value.Value) value.Completion {
		obj, ok := runtime.Arg(args, 0).(*value.Object)
		if !ok {
			return value.NormalCompletion(runtime.Arg(args, 0))
		}
		obj.PreventExtensions()
		for _, key := range obj.OwnPropertyKeys() {
			p := obj.GetOwnProperty(key)
			p.Configurable = false
			if !p.Accessor {
				p.Writable = false
			}
			obj.DefineOwnProperty(key, *p)
		}
		return value.NormalCompletion(obj)
	})
	ctx.Method(ctor, "is", 2, func(_ value.Value, args []value.Value) value.Completion {
		return value.NormalCompletion(value.Bool(value.SameValue(runtime.Arg(args, 0), runtime.Arg(args, 1))))
	})

	ctx.DefineGlobal("Object", ctor)
	return nil
}

func objectConstruct(r *runtime.Realm, v value.Value) value.Completion {
	if value.IsNullish(v) {
		return value.NormalCompletion(value.NewObject(r.Intrinsic("%Object.prototype%")))
	}
	obj, c := runtime.ToObject(r, v)
	if c.IsAbrupt() {
		return c
	}
	return value.NormalCompletion(obj)
}

func protoArg(r *runtime.Realm, v value.Value) (*value.Object, value.Completion) {
	switch p := v.(type) {
	case *value.Object:
		return p, value.Empty
	case value.NullType:
		return nil, value.Empty
	}
	return nil, r.ThrowTypeError("Object prototype may only be an Object or null: %s", runtime.Describe(v))
}

// objectToString renders "[object Tag]", honoring @@toStringTag.
func objectToString(r *runtime.Realm, this value.Value) value.Completion {
	switch this.(type) {
	case value.UndefinedType:
		return value.NormalCompletion(value.String("[object Undefined]"))
	case value.NullType:
		return value.NormalCompletion(value.String("[object Null]"))
	}
	obj, c := runtime.ToObject(r, this)
	if c.IsAbrupt() {
		return c
	}
	builtinTag := "Object"
	switch {
	case obj.IsArray():
		builtinTag = "Array"
	case obj.CallFn != nil:
		builtinTag = "Function"
	case obj.Class == "Error" || obj.Class == "Boolean" || obj.Class == "Number" || obj.Class == "String" || obj.Class == "RegExp":
		builtinTag = obj.Class
	}
	tag := obj.Get(value.SymbolKey(value.SymbolToStringTag), obj)
	if tag.IsAbrupt() {
		return tag
	}
	if s, ok := tag.Value.(value.String); ok {
		builtinTag = string(s)
	}
	return value.NormalCompletion(value.String("[object " + builtinTag + "]"))
}

type keysKind uint8

const (
	keysOnly keysKind = iota
	valuesOnly
	keyValuePairs
)

func ownKeys(r *runtime.Realm, v value.Value, enumerableOnly bool, kind keysKind) value.Completion {
	obj, c := runtime.ToObject(r, v)
	if c.IsAbrupt() {
		return c
	}
	var out []value.Value
	for _, key := range obj.OwnPropertyKeys() {
		if key.IsSymbol() {
			continue
		}
		p := obj.GetOwnProperty(key)
		if p == nil || (enumerableOnly && !p.Enumerable) {
			continue
		}
		if kind == keysOnly {
			out = append(out, value.String(key.Name))
			continue
		}
		got := obj.Get(key, obj)
		if got.IsAbrupt() {
			return got
		}
		if kind == valuesOnly {
			out = append(out, got.ValueOrUndefined())
			continue
		}
		out = append(out, runtime.CreateArrayFromList(r, []value.Value{value.String(key.Name), got.ValueOrUndefined()}))
	}
	return value.NormalCompletion(runtime.CreateArrayFromList(r, out))
}

func defineProperties(r *runtime.Realm, obj *value.Object, props value.Value) value.Completion {
	src, c := runtime.ToObject(r, props)
	if c.IsAbrupt() {
		return c
	}
	for _, key := range src.OwnPropertyKeys() {
		p := src.GetOwnProperty(key)
		if p == nil || !p.Enumerable {
			continue
		}
		descObj := src.Get(key, src)
		if descObj.IsAbrupt() {
			return descObj
		}
		desc, c := toPropertyDescriptor(r, obj.GetOwnProperty(key), descObj.ValueOrUndefined())
		if c.IsAbrupt() {
			return c
		}
		if !obj.DefineOwnProperty(key, desc) {
			return r.ThrowTypeError("Cannot redefine property: %s", key)
		}
	}
	return value.Empty
}

// toPropertyDescriptor reads a descriptor object. Absent fields keep the
// current property's attributes, or default to false for a new property.
func toPropertyDescriptor(r *runtime.Realm, current *value.Property, v value.Value) (value.Property, value.Completion) {
	obj, ok := v.(*value.Object)
	if !ok {
		return value.Property{}, r.ThrowTypeError("Property description must be an object: %s", runtime.Describe(v))
	}
	var desc value.Property
	if current != nil {
		desc = *current
	} else {
		desc.Value = value.Undefined
	}
	field := func(name string) (value.Value, bool, value.Completion) {
		key := value.StringKey(name)
		if !obj.HasProperty(key) {
			return nil, false, value.Empty
		}
		c := obj.Get(key, obj)
		if c.IsAbrupt() {
			return nil, false, c
		}
		return c.ValueOrUndefined(), true, value.Empty
	}
	for _, name := range []string{"enumerable", "configurable", "writable"} {
		fv, ok, c := field(name)
		if c.IsAbrupt() {
			return desc, c
		}
		if !ok {
			continue
		}
		b := value.ToBoolean(fv)
		switch name {
		case "enumerable":
			desc.Enumerable = b
		case "configurable":
			desc.Configurable = b
		case "writable":
			desc.Writable = b
		}
	}
	fv, hasValue, c := field("value")
	if c.IsAbrupt() {
		return desc, c
	}
	if hasValue {
		desc.Value = fv
	}
	if desc.Accessor && (hasValue || obj.HasProperty(value.StringKey("writable"))) {
		desc.Accessor = false
		desc.Get, desc.Set = nil, nil
		if !hasValue {
			desc.Value = value.Undefined
		}
	}
	getter, hasGet, c := field("get")
	if c.IsAbrupt() {
		return desc, c
	}
	setter, hasSet, c := field("set")
	if c.IsAbrupt() {
		return desc, c
	}
	if hasGet || hasSet {
		if hasValue || obj.HasProperty(value.StringKey("writable")) {
			return desc, r.ThrowTypeError("Invalid property descriptor. Cannot both specify accessors and a value or writable attribute")
		}
		if hasGet && !value.IsUndefined(getter) && !value.IsCallable(getter) {
			return desc, r.ThrowTypeError("Getter must be a function: %s", runtime.Describe(getter))
		}
		if hasSet && !value.IsUndefined(setter) && !value.IsCallable(setter) {
			return desc, r.ThrowTypeError("Setter must be a function: %s", runtime.Describe(setter))
		}
		if current == nil || !current.Accessor {
			desc.Get, desc.Set = value.Undefined, value.Undefined
			desc.Value, desc.Writable = nil, false
		}
		desc.Accessor = true
		if hasGet {
			desc.Get = getter
		}
		if hasSet {
			desc.Set = setter
		}
	}
	return desc, value.Empty
}
