package builtins

import (
	"github.com/nooga/cadence/pkg/promise"
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// asyncFromSync is the Internal slot of async-from-sync iterator objects.
type asyncFromSync struct {
	sync *runtime.IteratorRecord
}

// GetAsyncIterator returns obj[@@asyncIterator](), falling back to wrapping
// its sync iterator.
func GetAsyncIterator(r *runtime.Realm, obj value.Value) (*runtime.IteratorRecord, value.Completion) {
	method, c := runtime.GetMethod(r, obj, value.SymbolKey(value.SymbolAsyncIterator))
	if c.IsAbrupt() {
		return nil, c
	}
	if !value.IsUndefined(method) {
		return runtime.GetIteratorFromMethod(r, obj, method)
	}
	syncMethod, c := runtime.GetMethod(r, obj, value.SymbolKey(value.SymbolIterator))
	if c.IsAbrupt() {
		return nil, c
	}
	if value.IsUndefined(syncMethod) {
		return nil, r.ThrowTypeError("%s is not async iterable", runtime.Describe(obj))
	}
	syncRec, c := runtime.GetIteratorFromMethod(r, obj, syncMethod)
	if c.IsAbrupt() {
		return nil, c
	}
	return CreateAsyncFromSyncIterator(r, syncRec), value.Empty
}

// CreateAsyncFromSyncIterator adapts a sync iterator so each step returns a
// promise, awaiting the values it produces.
func CreateAsyncFromSyncIterator(r *runtime.Realm, syncRec *runtime.IteratorRecord) *runtime.IteratorRecord {
	proto := r.Intrinsic("%AsyncFromSyncIteratorPrototype%")
	obj := value.NewObject(proto)
	obj.Internal = &asyncFromSync{sync: syncRec}
	next := proto.Get(value.StringKey("next"), proto)
	return &runtime.IteratorRecord{Iterator: obj, NextMethod: next.ValueOrUndefined()}
}

func initAsyncFromSyncIteratorPrototype(ctx *RuntimeContext, asyncIterProto *value.Object) {
	r := ctx.Realm
	proto := value.NewObject(asyncIterProto)

	// Each method settles a fresh capability; abrupt steps reject it rather
	// than throwing.
	step := func(this value.Value, body func(rec *runtime.IteratorRecord, capability *promise.Capability) value.Completion) value.Completion {
		capability := promise.NewIntrinsicCapability(r)
		obj, _ := this.(*value.Object)
		var state *asyncFromSync
		if obj != nil {
			state, _ = obj.Internal.(*asyncFromSync)
		}
		value.Assert(state != nil, "async-from-sync method called on foreign receiver")
		c := body(state.sync, capability)
		if c.IsAbrupt() {
			return rejectCapability(r, capability, c)
		}
		return c
	}

	ctx.Method(proto, "next", 1, func(this value.Value, args []value.Value) value.Completion {
		return step(this, func(rec *runtime.IteratorRecord, capability *promise.Capability) value.Completion {
			var arg value.Value
			if len(args) > 0 {
				arg = args[0]
			}
			result, c := runtime.IteratorNext(r, rec, arg)
			if c.IsAbrupt() {
				return c
			}
			return asyncFromSyncContinuation(r, result, capability, rec, true)
		})
	})
	ctx.Method(proto, "return", 1, func(this value.Value, args []value.Value) value.Completion {
		return step(this, func(rec *runtime.IteratorRecord, capability *promise.Capability) value.Completion {
			ret, c := runtime.GetMethod(r, rec.Iterator, value.StringKey("return"))
			if c.IsAbrupt() {
				return c
			}
			if value.IsUndefined(ret) {
				done := runtime.CreateIterResultObject(r, runtime.Arg(args, 0), true)
				if c := runtime.Call(r, capability.Resolve, value.Undefined, []value.Value{done}); c.IsAbrupt() {
					return c
				}
				return value.NormalCompletion(capability.Promise)
			}
			var callArgs []value.Value
			if len(args) > 0 {
				callArgs = args[:1]
			}
			c = runtime.Call(r, ret, rec.Iterator, callArgs)
			if c.IsAbrupt() {
				return c
			}
			result, ok := c.Value.(*value.Object)
			if !ok {
				return r.ThrowTypeError("iterator.return() returned a non-object value")
			}
			return asyncFromSyncContinuation(r, result, capability, rec, false)
		})
	})
	ctx.Method(proto, "throw", 1, func(this value.Value, args []value.Value) value.Completion {
		return step(this, func(rec *runtime.IteratorRecord, capability *promise.Capability) value.Completion {
			throw, c := runtime.GetMethod(r, rec.Iterator, value.StringKey("throw"))
			if c.IsAbrupt() {
				return c
			}
			if value.IsUndefined(throw) {
				rec.Done = true
				if c := runtime.IteratorClose(r, rec, value.Empty); c.IsAbrupt() {
					return c
				}
				return r.ThrowTypeError("The iterator does not provide a 'throw' method")
			}
			c = runtime.Call(r, throw, rec.Iterator, []value.Value{runtime.Arg(args, 0)})
			if c.IsAbrupt() {
				return c
			}
			result, ok := c.Value.(*value.Object)
			if !ok {
				return r.ThrowTypeError("iterator.throw() returned a non-object value")
			}
			return asyncFromSyncContinuation(r, result, capability, rec, true)
		})
	})
	r.SetIntrinsic("%AsyncFromSyncIteratorPrototype%", proto)
}

func rejectCapability(r *runtime.Realm, capability *promise.Capability, c value.Completion) value.Completion {
	if res := runtime.Call(r, capability.Reject, value.Undefined, []value.Value{c.ValueOrUndefined()}); res.IsAbrupt() {
		return res
	}
	return value.NormalCompletion(capability.Promise)
}

// asyncFromSyncContinuation awaits the value of a sync step result and
// resolves capability with an unwrapped iterator result. When the value
// rejects and closeOnRejection is set, the sync iterator is closed.
func asyncFromSyncContinuation(r *runtime.Realm, result *value.Object, capability *promise.Capability, rec *runtime.IteratorRecord, closeOnRejection bool) value.Completion {
	done, c := runtime.IteratorComplete(result)
	if c.IsAbrupt() {
		return c
	}
	c = runtime.IteratorValue(result)
	if c.IsAbrupt() {
		return c
	}
	wrapper, c := promise.PromiseResolve(r, r.Intrinsic("%Promise%"), c.ValueOrUndefined())
	if c.IsAbrupt() {
		if !done && closeOnRejection {
			c = runtime.IteratorClose(r, rec, c)
		}
		return c
	}
	onFulfilled := runtime.CreateBuiltinFunction(r, "", 1, func(_ value.Value, args []value.Value) value.Completion {
		return value.NormalCompletion(runtime.CreateIterResultObject(r, runtime.Arg(args, 0), done))
	})
	var onRejected value.Value = value.Undefined
	if !done && closeOnRejection {
		onRejected = runtime.CreateBuiltinFunction(r, "", 1, func(_ value.Value, args []value.Value) value.Completion {
			return runtime.IteratorClose(r, rec, value.ThrowCompletion(runtime.Arg(args, 0)))
		})
	}
	promise.PerformPromiseThen(r, wrapper, onFulfilled, onRejected, capability)
	return value.NormalCompletion(capability.Promise)
}
