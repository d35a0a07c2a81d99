package promise

import (
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

func promiseConstructor(r *runtime.Realm) *value.Object {
	return r.Intrinsic("%Promise%")
}

// Then implements Promise.prototype.then. The derived promise is built by
// the species constructor of this.
func Then(r *runtime.Realm, this, onFulfilled, onRejected value.Value) value.Completion {
	p, ok := this.(*value.Object)
	if !ok || !IsPromise(p) {
		return r.ThrowTypeError("Method Promise.prototype.then called on incompatible receiver %s", runtime.Describe(this))
	}
	c, res := runtime.SpeciesConstructor(r, p, promiseConstructor(r))
	if res.IsAbrupt() {
		return res
	}
	capability, res := NewPromiseCapability(r, c)
	if res.IsAbrupt() {
		return res
	}
	return value.NormalCompletion(PerformPromiseThen(r, p, onFulfilled, onRejected, capability))
}

// Catch implements Promise.prototype.catch by invoking this.then, so
// subclasses and thenables with a custom then are honored.
func Catch(r *runtime.Realm, this, onRejected value.Value) value.Completion {
	return runtime.Invoke(r, this, value.StringKey("then"), []value.Value{value.Undefined, onRejected})
}

// finallyClosure carries the state shared by the two handlers that
// Promise.prototype.finally installs.
type finallyClosure struct {
	constructor *value.Object
	onFinally   value.Value
}

// settle calls onFinally, waits for its result through the constructor,
// then replays the original outcome via tail.
func (fc *finallyClosure) settle(r *runtime.Realm, tail *value.Object) value.Completion {
	result := runtime.Call(r, fc.onFinally, value.Undefined, nil)
	if result.IsAbrupt() {
		return result
	}
	p, res := PromiseResolve(r, fc.constructor, result.ValueOrUndefined())
	if res.IsAbrupt() {
		return res
	}
	return runtime.Invoke(r, p, value.StringKey("then"), []value.Value{tail})
}

func (fc *finallyClosure) thenFinally(r *runtime.Realm) *value.Object {
	return runtime.CreateBuiltinFunction(r, "", 1, func(_ value.Value, args []value.Value) value.Completion {
		v := runtime.Arg(args, 0)
		valueThunk := runtime.CreateBuiltinFunction(r, "", 0, func(value.Value, []value.Value) value.Completion {
			return value.NormalCompletion(v)
		})
		return fc.settle(r, valueThunk)
	})
}

func (fc *finallyClosure) catchFinally(r *runtime.Realm) *value.Object {
	return runtime.CreateBuiltinFunction(r, "", 1, func(_ value.Value, args []value.Value) value.Completion {
		reason := runtime.Arg(args, 0)
		thrower := runtime.CreateBuiltinFunction(r, "", 0, func(value.Value, []value.Value) value.Completion {
			return value.ThrowCompletion(reason)
		})
		return fc.settle(r, thrower)
	})
}

// Finally implements Promise.prototype.finally. A non-callable onFinally is
// passed straight through to then.
func Finally(r *runtime.Realm, this, onFinally value.Value) value.Completion {
	p, ok := this.(*value.Object)
	if !ok {
		return r.ThrowTypeError("Method Promise.prototype.finally called on incompatible receiver %s", runtime.Describe(this))
	}
	c, res := runtime.SpeciesConstructor(r, p, promiseConstructor(r))
	if res.IsAbrupt() {
		return res
	}
	var thenFinally, catchFinally value.Value = onFinally, onFinally
	if value.IsCallable(onFinally) {
		fc := &finallyClosure{constructor: c, onFinally: onFinally}
		thenFinally = fc.thenFinally(r)
		catchFinally = fc.catchFinally(r)
	}
	return runtime.Invoke(r, p, value.StringKey("then"), []value.Value{thenFinally, catchFinally})
}

// Await resolves v to a promise of the realm and registers the two
// continuations on it. Exactly one continuation runs, from a later job.
// The returned completion is abrupt only when resolving v fails.
func Await(r *runtime.Realm, v value.Value, onFulfilled, onRejected func(value.Value)) value.Completion {
	p, res := PromiseResolve(r, promiseConstructor(r), v)
	if res.IsAbrupt() {
		return res
	}
	fulfilled := runtime.CreateBuiltinFunction(r, "", 1, func(_ value.Value, args []value.Value) value.Completion {
		onFulfilled(runtime.Arg(args, 0))
		return value.NormalCompletion(value.Undefined)
	})
	rejected := runtime.CreateBuiltinFunction(r, "", 1, func(_ value.Value, args []value.Value) value.Completion {
		onRejected(runtime.Arg(args, 0))
		return value.NormalCompletion(value.Undefined)
	})
	PerformPromiseThen(r, p, fulfilled, rejected, nil)
	return value.Empty
}

// NewIntrinsicCapability is NewPromiseCapability over the realm's own
// %Promise%, which cannot fail.
func NewIntrinsicCapability(r *runtime.Realm) *Capability {
	capability, res := NewPromiseCapability(r, promiseConstructor(r))
	value.Assert(!res.IsAbrupt(), "%%Promise%% capability creation failed")
	return capability
}
