package promise

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

type rejection struct {
	promise *value.Object
	op      runtime.RejectionOperation
}

type harness struct {
	r          *runtime.Realm
	rejections []rejection
}

// newHarness builds a realm holding just a Promise constructor with then,
// catch and finally, which is all the engine needs.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{}
	agent := runtime.NewAgent(runtime.WithHooks(runtime.Hooks{
		OnUnhandledRejection: func(p *value.Object, op runtime.RejectionOperation) {
			h.rejections = append(h.rejections, rejection{p, op})
		},
	}))
	r := runtime.NewRealm(agent)
	objProto := value.NewObject(nil)
	r.SetIntrinsic("%Object.prototype%", objProto)
	r.SetIntrinsic("%Function.prototype%", value.NewObject(objProto))
	r.SetIntrinsic("%Array.prototype%", value.NewObject(objProto))
	r.SetIntrinsic("%TypeError.prototype%", value.NewObject(objProto))
	r.SetGlobalObject(value.NewObject(objProto))

	proto := value.NewObject(objProto)
	ctor := runtime.CreateBuiltinConstructor(r, "Promise", 1,
		func(value.Value, []value.Value) value.Completion {
			return Construct(r, value.Undefined, nil)
		},
		func(args []value.Value, newTarget *value.Object) value.Completion {
			return Construct(r, runtime.Arg(args, 0), newTarget)
		})
	ctor.SetMethod(value.StringKey("prototype"), proto)
	proto.SetMethod(value.StringKey("constructor"), ctor)
	proto.SetMethod(value.StringKey("then"), runtime.CreateBuiltinFunction(r, "then", 2, func(this value.Value, args []value.Value) value.Completion {
		return Then(r, this, runtime.Arg(args, 0), runtime.Arg(args, 1))
	}))
	proto.SetMethod(value.StringKey("catch"), runtime.CreateBuiltinFunction(r, "catch", 1, func(this value.Value, args []value.Value) value.Completion {
		return Catch(r, this, runtime.Arg(args, 0))
	}))
	proto.SetMethod(value.StringKey("finally"), runtime.CreateBuiltinFunction(r, "finally", 1, func(this value.Value, args []value.Value) value.Completion {
		return Finally(r, this, runtime.Arg(args, 0))
	}))
	r.SetIntrinsic("%Promise%", ctor)
	r.SetIntrinsic("%Promise.prototype%", proto)
	h.r = r
	return h
}

func (h *harness) fn(f func(args []value.Value) value.Completion) *value.Object {
	return runtime.CreateBuiltinFunction(h.r, "", 1, func(_ value.Value, args []value.Value) value.Completion {
		return f(args)
	})
}

func (h *harness) recorder(log *[]string, tag string) *value.Object {
	return h.fn(func(args []value.Value) value.Completion {
		*log = append(*log, tag+":"+runtime.Describe(runtime.Arg(args, 0)))
		return value.NormalCompletion(runtime.Arg(args, 0))
	})
}

func (h *harness) capability(t *testing.T) *Capability {
	t.Helper()
	return NewIntrinsicCapability(h.r)
}

func (h *harness) resolved(t *testing.T, v value.Value) *value.Object {
	t.Helper()
	c := Resolve(h.r, h.r.Intrinsic("%Promise%"), v)
	require.False(t, c.IsAbrupt())
	return c.Value.(*value.Object)
}

func (h *harness) call(t *testing.T, f, this value.Value, args ...value.Value) value.Value {
	t.Helper()
	c := runtime.Call(h.r, f, this, args)
	require.False(t, c.IsAbrupt(), "unexpected abrupt completion %v", c.Kind)
	return c.ValueOrUndefined()
}

func (h *harness) drain(t *testing.T) {
	t.Helper()
	require.NoError(t, h.r.Agent.RunJobs(context.Background()))
}

func (h *harness) then(t *testing.T, p value.Value, onF, onR value.Value) *value.Object {
	t.Helper()
	c := Then(h.r, p, onF, onR)
	require.False(t, c.IsAbrupt())
	return c.Value.(*value.Object)
}

func TestSettlementIsFinal(t *testing.T) {
	h := newHarness(t)
	capability := h.capability(t)
	h.call(t, capability.Resolve, value.Undefined, value.Number(1))
	h.call(t, capability.Resolve, value.Undefined, value.Number(2))
	h.call(t, capability.Reject, value.Undefined, value.String("e"))

	s, ok := GetSlots(capability.Promise)
	require.True(t, ok)
	assert.Equal(t, Fulfilled, s.State)
	assert.Equal(t, value.Number(1), s.Result)
	assert.Empty(t, h.rejections)
}

func TestReactionsRunInRegistrationOrderAfterCurrentJob(t *testing.T) {
	h := newHarness(t)
	capability := h.capability(t)
	var log []string
	h.then(t, capability.Promise, h.recorder(&log, "a"), value.Undefined)
	h.then(t, capability.Promise, h.recorder(&log, "b"), value.Undefined)
	h.then(t, capability.Promise, h.recorder(&log, "c"), value.Undefined)

	h.call(t, capability.Resolve, value.Undefined, value.Number(7))
	assert.Empty(t, log)
	assert.Equal(t, 3, h.r.Agent.Pending())

	h.drain(t)
	assert.Equal(t, []string{"a:7", "b:7", "c:7"}, log)
}

func TestThenOnSettledPromiseIsAsynchronous(t *testing.T) {
	h := newHarness(t)
	p := h.resolved(t, value.Number(1))
	var log []string
	h.then(t, p, h.recorder(&log, "f"), value.Undefined)
	assert.Empty(t, log)
	h.drain(t)
	assert.Equal(t, []string{"f:1"}, log)
}

func TestChainedThenObservesTransformedValue(t *testing.T) {
	h := newHarness(t)
	p := h.resolved(t, value.Number(1))
	var log []string
	plusOne := h.fn(func(args []value.Value) value.Completion {
		log = append(log, "plusOne")
		return value.NormalCompletion(args[0].(value.Number) + 1)
	})
	p2 := h.then(t, p, plusOne, value.Undefined)
	h.then(t, p2, h.recorder(&log, "record"), value.Undefined)
	assert.Empty(t, log)

	// One job per link: the second handler cannot run in the first turn.
	job := 0
	h.r.Agent.Hooks.OnJob = func(*runtime.Job) { job++ }
	h.drain(t)
	assert.Equal(t, []string{"plusOne", "record:2"}, log)
	assert.Equal(t, 2, job)
}

func TestTwoRejectHandlersReceiveReasonInOrder(t *testing.T) {
	h := newHarness(t)
	capability := h.capability(t)
	var log []string
	h.then(t, capability.Promise, value.Undefined, h.recorder(&log, "r1"))
	h.then(t, capability.Promise, value.Undefined, h.recorder(&log, "r2"))
	h.call(t, capability.Reject, value.Undefined, value.String("e"))
	h.drain(t)
	assert.Equal(t, []string{`r1:"e"`, `r2:"e"`}, log)
	assert.Empty(t, h.rejections)
}

func TestThrowingHandlerRejectsDerivedPromise(t *testing.T) {
	h := newHarness(t)
	p := h.resolved(t, value.Number(1))
	boom := h.fn(func([]value.Value) value.Completion {
		return value.ThrowCompletion(value.String("boom"))
	})
	derived := h.then(t, p, boom, value.Undefined)
	var log []string
	h.then(t, derived, value.Undefined, h.recorder(&log, "caught"))
	h.drain(t)
	assert.Equal(t, []string{`caught:"boom"`}, log)
}

func TestMissingHandlersPassThrough(t *testing.T) {
	h := newHarness(t)
	capability := h.capability(t)
	var log []string
	mid := h.then(t, capability.Promise, value.Undefined, value.Undefined)
	h.then(t, mid, value.Undefined, h.recorder(&log, "end"))
	h.call(t, capability.Reject, value.Undefined, value.Number(3))
	h.drain(t)
	assert.Equal(t, []string{"end:3"}, log)
}

func TestResolveWithThenableAdoptsState(t *testing.T) {
	h := newHarness(t)
	capability := h.capability(t)
	thenable := value.NewObject(nil)
	var thenCalls int
	thenable.SetMethod(value.StringKey("then"), h.fn(func(args []value.Value) value.Completion {
		thenCalls++
		return runtime.Call(h.r, args[0], value.Undefined, []value.Value{value.String("adopted")})
	}))
	h.call(t, capability.Resolve, value.Undefined, thenable)
	assert.Equal(t, 0, thenCalls, "thenable then must be called from a job")

	var log []string
	h.then(t, capability.Promise, h.recorder(&log, "v"), value.Undefined)
	h.drain(t)
	assert.Equal(t, 1, thenCalls)
	assert.Equal(t, []string{`v:"adopted"`}, log)
}

func TestSelfResolutionRejectsWithTypeError(t *testing.T) {
	h := newHarness(t)
	capability := h.capability(t)
	h.call(t, capability.Resolve, value.Undefined, capability.Promise)
	s, _ := GetSlots(capability.Promise)
	require.Equal(t, Rejected, s.State)
	errObj := s.Result.(*value.Object)
	assert.Same(t, h.r.Intrinsic("%TypeError.prototype%"), errObj.Prototype())
}

func TestRejectionTrackerPhases(t *testing.T) {
	h := newHarness(t)
	capability := h.capability(t)
	h.call(t, capability.Reject, value.Undefined, value.String("e"))
	require.Len(t, h.rejections, 1)
	assert.Equal(t, runtime.RejectionReject, h.rejections[0].op)
	assert.Same(t, capability.Promise, h.rejections[0].promise)

	h.drain(t)
	h.then(t, capability.Promise, value.Undefined, h.fn(func([]value.Value) value.Completion {
		return value.NormalCompletion(value.Undefined)
	}))
	require.Len(t, h.rejections, 2)
	assert.Equal(t, runtime.RejectionHandled, h.rejections[1].op)

	h.then(t, capability.Promise, value.Undefined, value.Undefined)
	assert.Len(t, h.rejections, 2, "already handled promises are not reported again")
}

func TestThenRequiresPromiseReceiver(t *testing.T) {
	h := newHarness(t)
	c := Then(h.r, value.NewObject(nil), value.Undefined, value.Undefined)
	assert.True(t, c.IsThrow())
	assert.Equal(t, 0, h.r.Agent.Pending())
}

func TestThenWithNonConstructorSpeciesThrowsSynchronously(t *testing.T) {
	h := newHarness(t)
	p := h.resolved(t, value.Number(1))
	ctor := value.NewObject(nil)
	ctor.CreateDataProperty(value.SymbolKey(value.SymbolSpecies), value.Number(1))
	p.CreateDataProperty(value.StringKey("constructor"), ctor)
	c := Then(h.r, p, value.Undefined, value.Undefined)
	assert.True(t, c.IsThrow())
}

func TestThenUsesSpeciesConstructor(t *testing.T) {
	h := newHarness(t)
	p := h.resolved(t, value.Number(1))
	var constructed int
	promiseCtor := h.r.Intrinsic("%Promise%")
	species := runtime.CreateBuiltinConstructor(h.r, "Sub", 1, nil, func(args []value.Value, _ *value.Object) value.Completion {
		constructed++
		return runtime.Construct(h.r, promiseCtor, args, nil)
	})
	ctor := value.NewObject(nil)
	ctor.CreateDataProperty(value.SymbolKey(value.SymbolSpecies), species)
	p.CreateDataProperty(value.StringKey("constructor"), ctor)

	h.then(t, p, value.Undefined, value.Undefined)
	assert.Equal(t, 1, constructed)
}

func TestFinallyPreservesOutcome(t *testing.T) {
	h := newHarness(t)
	var log []string
	cb := h.fn(func(args []value.Value) value.Completion {
		log = append(log, "cb", "argc:"+value.NumberToString(float64(len(args))))
		return value.NormalCompletion(value.String("ignored"))
	})

	fulfilled := h.resolved(t, value.Number(5))
	c := Finally(h.r, fulfilled, cb)
	require.False(t, c.IsAbrupt())
	h.then(t, c.Value, h.recorder(&log, "value"), value.Undefined)

	rejected := h.capability(t)
	h.call(t, rejected.Reject, value.Undefined, value.String("why"))
	c = Finally(h.r, rejected.Promise, cb)
	require.False(t, c.IsAbrupt())
	h.then(t, c.Value, value.Undefined, h.recorder(&log, "reason"))

	h.drain(t)
	assert.Equal(t, []string{"cb", "argc:0", "cb", "argc:0", "value:5", `reason:"why"`}, log)
}

func TestFinallyCallbackFailureWins(t *testing.T) {
	h := newHarness(t)
	var log []string
	throws := h.fn(func([]value.Value) value.Completion {
		return value.ThrowCompletion(value.String("thrown"))
	})
	c := Finally(h.r, h.resolved(t, value.Number(1)), throws)
	require.False(t, c.IsAbrupt())
	h.then(t, c.Value, value.Undefined, h.recorder(&log, "a"))

	rejecting := h.fn(func([]value.Value) value.Completion {
		return Reject(h.r, h.r.Intrinsic("%Promise%"), value.String("late"))
	})
	c = Finally(h.r, h.resolved(t, value.Number(2)), rejecting)
	require.False(t, c.IsAbrupt())
	h.then(t, c.Value, value.Undefined, h.recorder(&log, "b"))

	h.drain(t)
	assert.Equal(t, []string{`a:"thrown"`, `b:"late"`}, log)
}

func TestFinallyWithNonCallablePassesThrough(t *testing.T) {
	h := newHarness(t)
	var log []string
	c := Finally(h.r, h.resolved(t, value.Number(9)), value.Number(1))
	require.False(t, c.IsAbrupt())
	h.then(t, c.Value, h.recorder(&log, "v"), value.Undefined)
	h.drain(t)
	assert.Equal(t, []string{"v:9"}, log)
}

func TestCatchInvokesThen(t *testing.T) {
	h := newHarness(t)
	var seen []value.Value
	thenable := value.NewObject(nil)
	thenable.SetMethod(value.StringKey("then"), h.fn(func(args []value.Value) value.Completion {
		seen = args
		return value.NormalCompletion(value.Undefined)
	}))
	handler := h.fn(func([]value.Value) value.Completion { return value.Empty })
	c := Catch(h.r, thenable, handler)
	require.False(t, c.IsAbrupt())
	assert.Equal(t, []value.Value{value.Undefined, handler}, seen)
}

func TestAwaitResumesOnNextTurnWithSameValue(t *testing.T) {
	h := newHarness(t)
	var got value.Value
	c := Await(h.r, value.Number(42), func(v value.Value) { got = v }, func(value.Value) {
		t.Fatal("unexpected rejection")
	})
	require.False(t, c.IsAbrupt())
	assert.Nil(t, got)
	h.drain(t)
	assert.Equal(t, value.Number(42), got)
}

func TestAwaitRejectedPromise(t *testing.T) {
	h := newHarness(t)
	capability := h.capability(t)
	h.call(t, capability.Reject, value.Undefined, value.String("no"))
	var got value.Value
	Await(h.r, capability.Promise, func(value.Value) { t.Fatal("unexpected fulfillment") }, func(v value.Value) { got = v })
	h.drain(t)
	assert.Equal(t, value.String("no"), got)
	require.Len(t, h.rejections, 2)
	assert.Equal(t, runtime.RejectionHandled, h.rejections[1].op)
}

func TestConstructorRequiresNewAndCallableExecutor(t *testing.T) {
	h := newHarness(t)
	assert.True(t, runtime.Call(h.r, h.r.Intrinsic("%Promise%"), value.Undefined, nil).IsThrow())
	assert.True(t, runtime.Construct(h.r, h.r.Intrinsic("%Promise%"), []value.Value{value.Number(1)}, nil).IsThrow())

	throwing := h.fn(func([]value.Value) value.Completion {
		return value.ThrowCompletion(value.String("exec"))
	})
	c := runtime.Construct(h.r, h.r.Intrinsic("%Promise%"), []value.Value{throwing}, nil)
	require.False(t, c.IsAbrupt())
	s, _ := GetSlots(c.Value)
	assert.Equal(t, Rejected, s.State)
	assert.Equal(t, value.String("exec"), s.Result)
}

func TestPromiseResolveReturnsSamePromise(t *testing.T) {
	h := newHarness(t)
	p := h.resolved(t, value.Number(1))
	again := h.resolved(t, p)
	assert.Same(t, p, again)
}
