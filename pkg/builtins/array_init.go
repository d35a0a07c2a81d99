package builtins

import (
	"math"
	"strings"

	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// ArrayInitializer implements the Array builtin
type ArrayInitializer struct{}

func (a *ArrayInitializer) Name() string {
	return "Array"
}

func (a *ArrayInitializer) Priority() int {
	return PriorityArray
}

// arrayThis converts this and reads its length, the preamble of every
// generic array method.
func arrayThis(r *runtime.Realm, this value.Value) (*value.Object, int, value.Completion) {
	obj, c := runtime.ToObject(r, this)
	if c.IsAbrupt() {
		return nil, 0, c
	}
	n, c := lengthOfArrayLike(r, obj)
	return obj, n, c
}

func setLength(r *runtime.Realm, obj *value.Object, n int) value.Completion {
	return runtime.Set(r, obj, value.StringKey("length"), value.Number(n), true)
}

// relativeIndex clamps a relative start/end argument against length n.
func relativeIndex(r *runtime.Realm, v value.Value, n, dflt int) (int, value.Completion) {
	if value.IsUndefined(v) {
		return dflt, value.Empty
	}
	f, c := runtime.ToNumber(r, v)
	if c.IsAbrupt() {
		return 0, c
	}
	f = value.ToIntegerOrInfinity(f)
	if f < 0 {
		return int(math.Max(float64(n)+f, 0)), value.Empty
	}
	return int(math.Min(f, float64(n))), value.Empty
}

// callbackArg validates the callback of an iteration method.
func callbackArg(r *runtime.Realm, args []value.Value) (value.Value, value.Completion) {
	fn := runtime.Arg(args, 0)
	if !value.IsCallable(fn) {
		return nil, r.ThrowTypeError("%s is not a function", runtime.Describe(fn))
	}
	return fn, value.Empty
}

// forEachIndex calls visit for each present index below n, stopping on
// abrupt completions or when visit reports stop.
func forEachIndex(obj *value.Object, n int, visit func(i int, v value.Value) (stop bool, c value.Completion)) value.Completion {
	for i := 0; i < n; i++ {
		key := value.IndexKey(i)
		if !obj.HasProperty(key) {
			continue
		}
		got := obj.Get(key, obj)
		if got.IsAbrupt() {
			return got
		}
		stop, c := visit(i, got.ValueOrUndefined())
		if c.IsAbrupt() || stop {
			return c
		}
	}
	return value.Empty
}

func (a *ArrayInitializer) InitRuntime(ctx *RuntimeContext) error {
	r := ctx.Realm
	proto := value.NewArray(ctx.ObjectPrototype, nil)
	r.SetIntrinsic("%Array.prototype%", proto)

	construct := func(args []value.Value, newTarget *value.Object) value.Completion {
		p, c := runtime.GetPrototypeFromConstructor(r, newTarget, "%Array.prototype%")
		if c.IsAbrupt() {
			return c
		}
		if len(args) == 1 {
			if n, ok := args[0].(value.Number); ok {
				if float64(n) != float64(value.ToUint32(float64(n))) {
					return r.ThrowRangeError("Invalid array length")
				}
				arr := value.NewArray(p, nil)
				arr.DefineOwnProperty(value.StringKey("length"), value.Property{Value: n, Writable: true})
				return value.NormalCompletion(arr)
			}
		}
		return value.NormalCompletion(value.NewArray(p, args))
	}
	var ctor *value.Object
	ctor = ctx.Constructor("Array", 1, proto,
		func(_ value.Value, args []value.Value) value.Completion { return construct(args, ctor) },
		construct)
	r.SetIntrinsic("%Array%", ctor)
	ctx.Getter(ctor, value.SymbolKey(value.SymbolSpecies), func(this value.Value, _ []value.Value) value.Completion {
		return value.NormalCompletion(this)
	})

	ctx.Method(ctor, "isArray", 1, func(_ value.Value, args []value.Value) value.Completion {
		obj, ok := runtime.Arg(args, 0).(*value.Object)
		return value.NormalCompletion(value.Bool(ok && obj.IsArray()))
	})
	ctx.Method(ctor, "of", 0, func(_ value.Value, args []value.Value) value.Completion {
		return value.NormalCompletion(runtime.CreateArrayFromList(r, args))
	})
	ctx.Method(ctor, "from", 1, func(_ value.Value, args []value.Value) value.Completion {
		items := runtime.Arg(args, 0)
		mapFn := runtime.Arg(args, 1)
		if !value.IsUndefined(mapFn) && !value.IsCallable(mapFn) {
			return r.ThrowTypeError("%s is not a function", runtime.Describe(mapFn))
		}
		method, c := runtime.GetMethod(r, items, value.SymbolKey(value.SymbolIterator))
		if c.IsAbrupt() {
			return c
		}
		var list []value.Value
		if !value.IsUndefined(method) {
			rec, c := runtime.GetIteratorFromMethod(r, items, method)
			if c.IsAbrupt() {
				return c
			}
			for {
				v, done, c := runtime.IteratorStepValue(r, rec)
				if c.IsAbrupt() {
					return c
				}
				if done {
					break
				}
				if !value.IsUndefined(mapFn) {
					m := runtime.Call(r, mapFn, runtime.Arg(args, 2), []value.Value{v, value.Number(len(list))})
					if m.IsAbrupt() {
						return runtime.IteratorClose(r, rec, m)
					}
					v = m.ValueOrUndefined()
				}
				list = append(list, v)
			}
			return value.NormalCompletion(runtime.CreateArrayFromList(r, list))
		}
		obj, c := runtime.ToObject(r, items)
		if c.IsAbrupt() {
			return c
		}
		list, c = CreateListFromArrayLike(r, obj)
		if c.IsAbrupt() {
			return c
		}
		if !value.IsUndefined(mapFn) {
			for i, v := range list {
				m := runtime.Call(r, mapFn, runtime.Arg(args, 2), []value.Value{v, value.Number(i)})
				if m.IsAbrupt() {
					return m
				}
				list[i] = m.ValueOrUndefined()
			}
		}
		return value.NormalCompletion(runtime.CreateArrayFromList(r, list))
	})

	ctx.Method(proto, "push", 1, func(this value.Value, args []value.Value) value.Completion {
		obj, n, c := arrayThis(r, this)
		if c.IsAbrupt() {
			return c
		}
		for _, v := range args {
			if c := runtime.Set(r, obj, value.IndexKey(n), v, true); c.IsAbrupt() {
				return c
			}
			n++
		}
		if c := setLength(r, obj, n); c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.Number(n))
	})
	ctx.Method(proto, "pop", 0, func(this value.Value, _ []value.Value) value.Completion {
		obj, n, c := arrayThis(r, this)
		if c.IsAbrupt() {
			return c
		}
		if n == 0 {
			if c := setLength(r, obj, 0); c.IsAbrupt() {
				return c
			}
			return value.NormalCompletion(value.Undefined)
		}
		key := value.IndexKey(n - 1)
		got := obj.Get(key, obj)
		if got.IsAbrupt() {
			return got
		}
		if c := runtime.DeletePropertyOrThrow(r, obj, key); c.IsAbrupt() {
			return c
		}
		if c := setLength(r, obj, n-1); c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(got.ValueOrUndefined())
	})
	ctx.Method(proto, "shift", 0, func(this value.Value, _ []value.Value) value.Completion {
		obj, n, c := arrayThis(r, this)
		if c.IsAbrupt() {
			return c
		}
		if n == 0 {
			if c := setLength(r, obj, 0); c.IsAbrupt() {
				return c
			}
			return value.NormalCompletion(value.Undefined)
		}
		first := obj.Get(value.IndexKey(0), obj)
		if first.IsAbrupt() {
			return first
		}
		if c := moveElements(r, obj, 1, 0, n-1); c.IsAbrupt() {
			return c
		}
		if c := runtime.DeletePropertyOrThrow(r, obj, value.IndexKey(n-1)); c.IsAbrupt() {
			return c
		}
		if c := setLength(r, obj, n-1); c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(first.ValueOrUndefined())
	})
	ctx.Method(proto, "unshift", 1, func(this value.Value, args []value.Value) value.Completion {
		obj, n, c := arrayThis(r, this)
		if c.IsAbrupt() {
			return c
		}
		if len(args) > 0 {
			if c := moveElements(r, obj, 0, len(args), n); c.IsAbrupt() {
				return c
			}
			for i, v := range args {
				if c := runtime.Set(r, obj, value.IndexKey(i), v, true); c.IsAbrupt() {
					return c
				}
			}
		}
		if c := setLength(r, obj, n+len(args)); c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.Number(n + len(args)))
	})
	ctx.Method(proto, "slice", 2, func(this value.Value, args []value.Value) value.Completion {
		obj, n, c := arrayThis(r, this)
		if c.IsAbrupt() {
			return c
		}
		start, c := relativeIndex(r, runtime.Arg(args, 0), n, 0)
		if c.IsAbrupt() {
			return c
		}
		end, c := relativeIndex(r, runtime.Arg(args, 1), n, n)
		if c.IsAbrupt() {
			return c
		}
		out := value.NewArray(proto, nil)
		for i := start; i < end; i++ {
			key := value.IndexKey(i)
			if !obj.HasProperty(key) {
				continue
			}
			got := obj.Get(key, obj)
			if got.IsAbrupt() {
				return got
			}
			out.CreateDataProperty(value.IndexKey(i-start), got.ValueOrUndefined())
		}
		if c := setLength(r, out, max(end-start, 0)); c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(out)
	})
	ctx.Method(proto, "splice", 2, func(this value.Value, args []value.Value) value.Completion {
		obj, n, c := arrayThis(r, this)
		if c.IsAbrupt() {
			return c
		}
		start, c := relativeIndex(r, runtime.Arg(args, 0), n, 0)
		if c.IsAbrupt() {
			return c
		}
		deleteCount := 0
		switch {
		case len(args) == 1:
			deleteCount = n - start
		case len(args) > 1:
			dc, c := runtime.ToNumber(r, args[1])
			if c.IsAbrupt() {
				return c
			}
			deleteCount = int(math.Min(math.Max(value.ToIntegerOrInfinity(dc), 0), float64(n-start)))
		}
		var items []value.Value
		if len(args) > 2 {
			items = args[2:]
		}
		removed := make([]value.Value, 0, deleteCount)
		for i := 0; i < deleteCount; i++ {
			got := obj.Get(value.IndexKey(start+i), obj)
			if got.IsAbrupt() {
				return got
			}
			removed = append(removed, got.ValueOrUndefined())
		}
		if c := moveElements(r, obj, start+deleteCount, start+len(items), n-start-deleteCount); c.IsAbrupt() {
			return c
		}
		for i, v := range items {
			if c := runtime.Set(r, obj, value.IndexKey(start+i), v, true); c.IsAbrupt() {
				return c
			}
		}
		newLen := n - deleteCount + len(items)
		for i := n - 1; i >= newLen; i-- {
			if c := runtime.DeletePropertyOrThrow(r, obj, value.IndexKey(i)); c.IsAbrupt() {
				return c
			}
		}
		if c := setLength(r, obj, newLen); c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(runtime.CreateArrayFromList(r, removed))
	})
	ctx.Method(proto, "concat", 1, func(this value.Value, args []value.Value) value.Completion {
		obj, c := runtime.ToObject(r, this)
		if c.IsAbrupt() {
			return c
		}
		var out []value.Value
		for _, item := range append([]value.Value{obj}, args...) {
			if arr, ok := item.(*value.Object); ok && arr.IsArray() {
				list, c := CreateListFromArrayLike(r, arr)
				if c.IsAbrupt() {
					return c
				}
				out = append(out, list...)
				continue
			}
			out = append(out, item)
		}
		return value.NormalCompletion(runtime.CreateArrayFromList(r, out))
	})
	join := func(this value.Value, sepArg value.Value) value.Completion {
		obj, n, c := arrayThis(r, this)
		if c.IsAbrupt() {
			return c
		}
		sep := ","
		if !value.IsUndefined(sepArg) {
			s, c := runtime.ToString(r, sepArg)
			if c.IsAbrupt() {
				return c
			}
			sep = s
		}
		parts := make([]string, n)
		for i := 0; i < n; i++ {
			got := obj.Get(value.IndexKey(i), obj)
			if got.IsAbrupt() {
				return got
			}
			if v := got.ValueOrUndefined(); !value.IsNullish(v) {
				s, c := runtime.ToString(r, v)
				if c.IsAbrupt() {
					return c
				}
				parts[i] = s
			}
		}
		return value.NormalCompletion(value.String(strings.Join(parts, sep)))
	}
	ctx.Method(proto, "join", 1, func(this value.Value, args []value.Value) value.Completion {
		return join(this, runtime.Arg(args, 0))
	})
	ctx.Method(proto, "toString", 0, func(this value.Value, _ []value.Value) value.Completion {
		return join(this, value.Undefined)
	})
	search := func(fromEnd bool, sameValueZero bool) value.NativeFunction {
		return func(this value.Value, args []value.Value) value.Completion {
			obj, n, c := arrayThis(r, this)
			if c.IsAbrupt() {
				return c
			}
			target := runtime.Arg(args, 0)
			start, c := relativeIndex(r, runtime.Arg(args, 1), n, 0)
			if c.IsAbrupt() {
				return c
			}
			step, i, stop := 1, start, n
			if fromEnd {
				last := n - 1
				if len(args) > 1 {
					f, c := runtime.ToNumber(r, args[1])
					if c.IsAbrupt() {
						return c
					}
					f = value.ToIntegerOrInfinity(f)
					if f < 0 {
						last = n + int(math.Max(f, -float64(n)-1))
					} else {
						last = int(math.Min(f, float64(n-1)))
					}
				}
				step, i, stop = -1, last, -1
			}
			for ; i != stop && i >= 0 && i < n; i += step {
				key := value.IndexKey(i)
				if !sameValueZero && !obj.HasProperty(key) {
					continue
				}
				got := obj.Get(key, obj)
				if got.IsAbrupt() {
					return got
				}
				v := got.ValueOrUndefined()
				if (sameValueZero && value.SameValueZero(v, target)) || (!sameValueZero && value.IsStrictlyEqual(v, target)) {
					if sameValueZero {
						return value.NormalCompletion(value.True)
					}
					return value.NormalCompletion(value.Number(i))
				}
			}
			if sameValueZero {
				return value.NormalCompletion(value.False)
			}
			return value.NormalCompletion(value.Number(-1))
		}
	}
	ctx.Method(proto, "indexOf", 1, search(false, false))
	ctx.Method(proto, "lastIndexOf", 1, search(true, false))
	ctx.Method(proto, "includes", 1, search(false, true))

	find := func(fromEnd, wantIndex bool) value.NativeFunction {
		return func(this value.Value, args []value.Value) value.Completion {
			obj, n, c := arrayThis(r, this)
			if c.IsAbrupt() {
				return c
			}
			fn, c := callbackArg(r, args)
			if c.IsAbrupt() {
				return c
			}
			for k := 0; k < n; k++ {
				i := k
				if fromEnd {
					i = n - 1 - k
				}
				got := obj.Get(value.IndexKey(i), obj)
				if got.IsAbrupt() {
					return got
				}
				v := got.ValueOrUndefined()
				res := runtime.Call(r, fn, runtime.Arg(args, 1), []value.Value{v, value.Number(i), obj})
				if res.IsAbrupt() {
					return res
				}
				if value.ToBoolean(res.ValueOrUndefined()) {
					if wantIndex {
						return value.NormalCompletion(value.Number(i))
					}
					return value.NormalCompletion(v)
				}
			}
			if wantIndex {
				return value.NormalCompletion(value.Number(-1))
			}
			return value.NormalCompletion(value.Undefined)
		}
	}
	ctx.Method(proto, "find", 1, find(false, false))
	ctx.Method(proto, "findIndex", 1, find(false, true))
	ctx.Method(proto, "findLast", 1, find(true, false))
	ctx.Method(proto, "findLastIndex", 1, find(true, true))

	ctx.Method(proto, "forEach", 1, func(this value.Value, args []value.Value) value.Completion {
		obj, n, c := arrayThis(r, this)
		if c.IsAbrupt() {
			return c
		}
		fn, c := callbackArg(r, args)
		if c.IsAbrupt() {
			return c
		}
		c = forEachIndex(obj, n, func(i int, v value.Value) (bool, value.Completion) {
			return false, runtime.Call(r, fn, runtime.Arg(args, 1), []value.Value{v, value.Number(i), obj})
		})
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.Undefined)
	})
	ctx.Method(proto, "map", 1, func(this value.Value, args []value.Value) value.Completion {
		obj, n, c := arrayThis(r, this)
		if c.IsAbrupt() {
			return c
		}
		fn, c := callbackArg(r, args)
		if c.IsAbrupt() {
			return c
		}
		out := value.NewArray(proto, nil)
		if c := setLength(r, out, n); c.IsAbrupt() {
			return c
		}
		c = forEachIndex(obj, n, func(i int, v value.Value) (bool, value.Completion) {
			res := runtime.Call(r, fn, runtime.Arg(args, 1), []value.Value{v, value.Number(i), obj})
			if res.IsAbrupt() {
				return true, res
			}
			out.CreateDataProperty(value.IndexKey(i), res.ValueOrUndefined())
			return false, value.Empty
		})
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(out)
	})
	ctx.Method(proto, "filter", 1, func(this value.Value, args []value.Value) value.Completion {
		obj, n, c := arrayThis(r, this)
		if c.IsAbrupt() {
			return c
		}
		fn, c := callbackArg(r, args)
		if c.IsAbrupt() {
			return c
		}
		var kept []value.Value
		c = forEachIndex(obj, n, func(i int, v value.Value) (bool, value.Completion) {
			res := runtime.Call(r, fn, runtime.Arg(args, 1), []value.Value{v, value.Number(i), obj})
			if res.IsAbrupt() {
				return true, res
			}
			if value.ToBoolean(res.ValueOrUndefined()) {
				kept = append(kept, v)
			}
			return false, value.Empty
		})
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(runtime.CreateArrayFromList(r, kept))
	})
	test := func(every bool) value.NativeFunction {
		return func(this value.Value, args []value.Value) value.Completion {
			obj, n, c := arrayThis(r, this)
			if c.IsAbrupt() {
				return c
			}
			fn, c := callbackArg(r, args)
			if c.IsAbrupt() {
				return c
			}
			result := every
			c = forEachIndex(obj, n, func(i int, v value.Value) (bool, value.Completion) {
				res := runtime.Call(r, fn, runtime.Arg(args, 1), []value.Value{v, value.Number(i), obj})
				if res.IsAbrupt() {
					return true, res
				}
				if value.ToBoolean(res.ValueOrUndefined()) != every {
					result = !every
					return true, value.Empty
				}
				return false, value.Empty
			})
			if c.IsAbrupt() {
				return c
			}
			return value.NormalCompletion(value.Bool(result))
		}
	}
	ctx.Method(proto, "some", 1, test(false))
	ctx.Method(proto, "every", 1, test(true))
	reduce := func(fromEnd bool) value.NativeFunction {
		return func(this value.Value, args []value.Value) value.Completion {
			obj, n, c := arrayThis(r, this)
			if c.IsAbrupt() {
				return c
			}
			fn, c := callbackArg(r, args)
			if c.IsAbrupt() {
				return c
			}
			var acc value.Value
			if len(args) > 1 {
				acc = args[1]
			}
			for k := 0; k < n; k++ {
				i := k
				if fromEnd {
					i = n - 1 - k
				}
				key := value.IndexKey(i)
				if !obj.HasProperty(key) {
					continue
				}
				got := obj.Get(key, obj)
				if got.IsAbrupt() {
					return got
				}
				if acc == nil {
					acc = got.ValueOrUndefined()
					continue
				}
				res := runtime.Call(r, fn, value.Undefined, []value.Value{acc, got.ValueOrUndefined(), value.Number(i), obj})
				if res.IsAbrupt() {
					return res
				}
				acc = res.ValueOrUndefined()
			}
			if acc == nil {
				return r.ThrowTypeError("Reduce of empty array with no initial value")
			}
			return value.NormalCompletion(acc)
		}
	}
	ctx.Method(proto, "reduce", 1, reduce(false))
	ctx.Method(proto, "reduceRight", 1, reduce(true))
	ctx.Method(proto, "reverse", 0, func(this value.Value, _ []value.Value) value.Completion {
		obj, n, c := arrayThis(r, this)
		if c.IsAbrupt() {
			return c
		}
		list, c := CreateListFromArrayLike(r, obj)
		if c.IsAbrupt() {
			return c
		}
		for i := range list {
			if c := runtime.Set(r, obj, value.IndexKey(n-1-i), list[i], true); c.IsAbrupt() {
				return c
			}
		}
		return value.NormalCompletion(obj)
	})
	ctx.Method(proto, "fill", 1, func(this value.Value, args []value.Value) value.Completion {
		obj, n, c := arrayThis(r, this)
		if c.IsAbrupt() {
			return c
		}
		start, c := relativeIndex(r, runtime.Arg(args, 1), n, 0)
		if c.IsAbrupt() {
			return c
		}
		end, c := relativeIndex(r, runtime.Arg(args, 2), n, n)
		if c.IsAbrupt() {
			return c
		}
		for i := start; i < end; i++ {
			if c := runtime.Set(r, obj, value.IndexKey(i), runtime.Arg(args, 0), true); c.IsAbrupt() {
				return c
			}
		}
		return value.NormalCompletion(obj)
	})
	ctx.Method(proto, "at", 1, func(this value.Value, args []value.Value) value.Completion {
		obj, n, c := arrayThis(r, this)
		if c.IsAbrupt() {
			return c
		}
		f, c := runtime.ToNumber(r, runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		i := int(value.ToIntegerOrInfinity(f))
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return value.NormalCompletion(value.Undefined)
		}
		return obj.Get(value.IndexKey(i), obj)
	})
	ctx.Method(proto, "sort", 1, func(this value.Value, args []value.Value) value.Completion {
		cmp := runtime.Arg(args, 0)
		if !value.IsUndefined(cmp) && !value.IsCallable(cmp) {
			return r.ThrowTypeError("The comparison function must be either a function or undefined")
		}
		obj, n, c := arrayThis(r, this)
		if c.IsAbrupt() {
			return c
		}
		var items []value.Value
		holes := 0
		for i := 0; i < n; i++ {
			key := value.IndexKey(i)
			if !obj.HasProperty(key) {
				holes++
				continue
			}
			got := obj.Get(key, obj)
			if got.IsAbrupt() {
				return got
			}
			items = append(items, got.ValueOrUndefined())
		}
		sorted, c := mergeSort(items, func(x, y value.Value) (bool, value.Completion) {
			return sortLess(r, cmp, x, y)
		})
		if c.IsAbrupt() {
			return c
		}
		for i, v := range sorted {
			if c := runtime.Set(r, obj, value.IndexKey(i), v, true); c.IsAbrupt() {
				return c
			}
		}
		for i := len(sorted); i < n; i++ {
			if c := runtime.DeletePropertyOrThrow(r, obj, value.IndexKey(i)); c.IsAbrupt() {
				return c
			}
		}
		return value.NormalCompletion(obj)
	})

	iter := func(kind keysKind) value.NativeFunction {
		return func(this value.Value, _ []value.Value) value.Completion {
			obj, c := runtime.ToObject(r, this)
			if c.IsAbrupt() {
				return c
			}
			return value.NormalCompletion(createArrayIterator(r, obj, kind))
		}
	}
	ctx.Method(proto, "keys", 0, iter(keysOnly))
	ctx.Method(proto, "entries", 0, iter(keyValuePairs))
	values := ctx.Method(proto, "values", 0, iter(valuesOnly))
	proto.SetMethod(value.SymbolKey(value.SymbolIterator), values)
	r.SetIntrinsic("%Array.prototype.values%", values)

	ctx.DefineGlobal("Array", ctor)
	return nil
}

// moveElements copies count elements from index from to index to,
// preserving holes, in the order that never overwrites unread elements.
func moveElements(r *runtime.Realm, obj *value.Object, from, to, count int) value.Completion {
	move := func(k int) value.Completion {
		src, dst := value.IndexKey(from+k), value.IndexKey(to+k)
		if !obj.HasProperty(src) {
			return runtime.DeletePropertyOrThrow(r, obj, dst)
		}
		got := obj.Get(src, obj)
		if got.IsAbrupt() {
			return got
		}
		return runtime.Set(r, obj, dst, got.ValueOrUndefined(), true)
	}
	if from > to {
		for k := 0; k < count; k++ {
			if c := move(k); c.IsAbrupt() {
				return c
			}
		}
		return value.Empty
	}
	for k := count - 1; k >= 0; k-- {
		if c := move(k); c.IsAbrupt() {
			return c
		}
	}
	return value.Empty
}

// sortLess orders undefined last and otherwise uses the comparator or
// string comparison.
func sortLess(r *runtime.Realm, cmp, x, y value.Value) (bool, value.Completion) {
	switch {
	case value.IsUndefined(x):
		return false, value.Empty
	case value.IsUndefined(y):
		return true, value.Empty
	}
	if !value.IsUndefined(cmp) {
		c := runtime.Call(r, cmp, value.Undefined, []value.Value{x, y})
		if c.IsAbrupt() {
			return false, c
		}
		f, c := runtime.ToNumber(r, c.ValueOrUndefined())
		if c.IsAbrupt() {
			return false, c
		}
		return f < 0, value.Empty
	}
	xs, c := runtime.ToString(r, x)
	if c.IsAbrupt() {
		return false, c
	}
	ys, c := runtime.ToString(r, y)
	if c.IsAbrupt() {
		return false, c
	}
	lt, _ := runtime.IsLessThan(r, value.String(xs), value.String(ys), true)
	return lt == value.True, value.Empty
}

// mergeSort is a stable sort whose comparator may complete abruptly.
func mergeSort(items []value.Value, less func(x, y value.Value) (bool, value.Completion)) ([]value.Value, value.Completion) {
	if len(items) < 2 {
		return items, value.Empty
	}
	mid := len(items) / 2
	left, c := mergeSort(items[:mid], less)
	if c.IsAbrupt() {
		return nil, c
	}
	right, c := mergeSort(items[mid:], less)
	if c.IsAbrupt() {
		return nil, c
	}
	out := make([]value.Value, 0, len(items))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		rightFirst, c := less(right[j], left[i])
		if c.IsAbrupt() {
			return nil, c
		}
		if rightFirst {
			out = append(out, right[j])
			j++
		} else {
			out = append(out, left[i])
			i++
		}
	}
	out = append(out, left[i:]...)
	return append(out, right[j:]...), value.Empty
}
