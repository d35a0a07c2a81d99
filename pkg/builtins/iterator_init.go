package builtins

import (
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// arrayIterator is the Internal slot of %ArrayIteratorPrototype% objects.
type arrayIterator struct {
	target *value.Object
	index  int
	kind   keysKind
	done   bool
}

// IteratorInitializer creates %IteratorPrototype%, %AsyncIteratorPrototype%,
// the array iterator and the async-from-sync iterator prototypes.
type IteratorInitializer struct{}

func (i *IteratorInitializer) Name() string {
	return "Iterator"
}

func (i *IteratorInitializer) Priority() int {
	return PriorityIterator
}

func (i *IteratorInitializer) InitRuntime(ctx *RuntimeContext) error {
	r := ctx.Realm

	iterProto := value.NewObject(ctx.ObjectPrototype)
	ctx.SymbolMethod(iterProto, value.SymbolIterator, 0, func(this value.Value, _ []value.Value) value.Completion {
		return value.NormalCompletion(this)
	})
	r.SetIntrinsic("%IteratorPrototype%", iterProto)

	asyncIterProto := value.NewObject(ctx.ObjectPrototype)
	ctx.SymbolMethod(asyncIterProto, value.SymbolAsyncIterator, 0, func(this value.Value, _ []value.Value) value.Completion {
		return value.NormalCompletion(this)
	})
	r.SetIntrinsic("%AsyncIteratorPrototype%", asyncIterProto)

	arrayIterProto := value.NewObject(iterProto)
	ctx.Method(arrayIterProto, "next", 0, func(this value.Value, _ []value.Value) value.Completion {
		obj, ok := this.(*value.Object)
		var it *arrayIterator
		if ok {
			it, ok = obj.Internal.(*arrayIterator)
		}
		if !ok {
			return r.ThrowTypeError("next method called on incompatible receiver %s", runtime.Describe(this))
		}
		return it.next(r)
	})
	arrayIterProto.DefineOwnProperty(value.SymbolKey(value.SymbolToStringTag), value.Property{Value: value.String("Array Iterator"), Configurable: true})
	r.SetIntrinsic("%ArrayIteratorPrototype%", arrayIterProto)

	initAsyncFromSyncIteratorPrototype(ctx, asyncIterProto)
	return nil
}

// createArrayIterator returns an iterator over the keys, values or entries
// of an array-like object.
func createArrayIterator(r *runtime.Realm, target *value.Object, kind keysKind) *value.Object {
	it := value.NewObject(r.Intrinsic("%ArrayIteratorPrototype%"))
	it.Internal = &arrayIterator{target: target, kind: kind}
	return it
}

func (it *arrayIterator) next(r *runtime.Realm) value.Completion {
	if it.done {
		return value.NormalCompletion(runtime.CreateIterResultObject(r, value.Undefined, true))
	}
	n, c := lengthOfArrayLike(r, it.target)
	if c.IsAbrupt() {
		return c
	}
	if it.index >= n {
		it.done = true
		return value.NormalCompletion(runtime.CreateIterResultObject(r, value.Undefined, true))
	}
	idx := it.index
	it.index++
	if it.kind == keysOnly {
		return value.NormalCompletion(runtime.CreateIterResultObject(r, value.Number(idx), false))
	}
	got := it.target.Get(value.IndexKey(idx), it.target)
	if got.IsAbrupt() {
		return got
	}
	v := got.ValueOrUndefined()
	if it.kind == keyValuePairs {
		v = runtime.CreateArrayFromList(r, []value.Value{value.Number(idx), v})
	}
	return value.NormalCompletion(runtime.CreateIterResultObject(r, v, false))
}
