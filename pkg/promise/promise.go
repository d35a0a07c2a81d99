// Package promise is the promise state machine: capabilities, reaction
// records, resolving functions, reaction jobs, and the then/catch/finally
// operations. Every settlement hands work to the agent's PromiseJobs queue;
// no reaction ever runs synchronously.
package promise

import (
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// State of a promise. The only transitions are Pending to Fulfilled and
// Pending to Rejected.
type State uint8

const (
	Pending State = iota
	Fulfilled
	Rejected
)

func (s State) String() string {
	switch s {
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	}
	return "pending"
}

// Slots are the internal slots of a promise object, kept in Object.Internal.
// Reaction lists are non-empty only while the promise is pending.
type Slots struct {
	State            State
	Result           value.Value
	FulfillReactions []*Reaction
	RejectReactions  []*Reaction
	IsHandled        bool
}

// ReactionType selects which settlement a reaction handles.
type ReactionType uint8

const (
	FulfillReaction ReactionType = iota
	RejectReaction
)

// Capability bundles a promise with its resolve and reject functions.
type Capability struct {
	Promise *value.Object
	Resolve value.Value
	Reject  value.Value
}

// Reaction is consumed exactly once, either at settlement or immediately
// when registered on an already settled promise. A nil Capability is used
// by internal callers (await) that only need the side effect; a nil Handler
// passes the argument through.
type Reaction struct {
	Capability *Capability
	Type       ReactionType
	Handler    value.Value
}

// GetSlots returns the promise slots of v.
func GetSlots(v value.Value) (*Slots, bool) {
	obj, ok := v.(*value.Object)
	if !ok {
		return nil, false
	}
	s, ok := obj.Internal.(*Slots)
	return s, ok
}

// IsPromise reports whether v is a promise object.
func IsPromise(v value.Value) bool {
	_, ok := GetSlots(v)
	return ok
}

func mustSlots(p *value.Object) *Slots {
	s, ok := p.Internal.(*Slots)
	value.Assert(ok, "object is not a promise")
	return s
}

// CreateResolvingFunctions returns the resolve/reject pair for p. Both
// share one "already resolved" latch so only the first call has effect.
func CreateResolvingFunctions(r *runtime.Realm, p *value.Object) (resolve, reject *value.Object) {
	alreadyResolved := false

	resolve = runtime.CreateBuiltinFunction(r, "", 1, func(_ value.Value, args []value.Value) value.Completion {
		if alreadyResolved {
			return value.NormalCompletion(value.Undefined)
		}
		alreadyResolved = true
		resolution := runtime.Arg(args, 0)
		if value.SameValue(resolution, p) {
			RejectPromise(r, p, r.NewError("TypeError", "Chaining cycle detected for promise"))
			return value.NormalCompletion(value.Undefined)
		}
		thenable, ok := resolution.(*value.Object)
		if !ok {
			FulfillPromise(r, p, resolution)
			return value.NormalCompletion(value.Undefined)
		}
		then := thenable.Get(value.StringKey("then"), thenable)
		if then.IsAbrupt() {
			RejectPromise(r, p, then.ValueOrUndefined())
			return value.NormalCompletion(value.Undefined)
		}
		if !value.IsCallable(then.Value) {
			FulfillPromise(r, p, resolution)
			return value.NormalCompletion(value.Undefined)
		}
		r.Agent.EnqueueJob(runtime.PromiseJobs, NewPromiseResolveThenableJob(r, p, thenable, then.Value))
		return value.NormalCompletion(value.Undefined)
	})

	reject = runtime.CreateBuiltinFunction(r, "", 1, func(_ value.Value, args []value.Value) value.Completion {
		if alreadyResolved {
			return value.NormalCompletion(value.Undefined)
		}
		alreadyResolved = true
		RejectPromise(r, p, runtime.Arg(args, 0))
		return value.NormalCompletion(value.Undefined)
	})
	return resolve, reject
}

// FulfillPromise settles a pending promise with v and schedules its
// fulfill reactions.
func FulfillPromise(r *runtime.Realm, p *value.Object, v value.Value) {
	s := mustSlots(p)
	value.Assert(s.State == Pending, "fulfilling a promise that is not pending")
	reactions := s.FulfillReactions
	s.Result = v
	s.FulfillReactions = nil
	s.RejectReactions = nil
	s.State = Fulfilled
	TriggerPromiseReactions(r, reactions, v)
}

// RejectPromise settles a pending promise with reason, reports it to the
// rejection tracker when no handler is attached, and schedules its reject
// reactions.
func RejectPromise(r *runtime.Realm, p *value.Object, reason value.Value) {
	s := mustSlots(p)
	value.Assert(s.State == Pending, "rejecting a promise that is not pending")
	reactions := s.RejectReactions
	s.Result = reason
	s.FulfillReactions = nil
	s.RejectReactions = nil
	s.State = Rejected
	if !s.IsHandled {
		r.Agent.ReportRejection(p, runtime.RejectionReject)
	}
	TriggerPromiseReactions(r, reactions, reason)
}

// TriggerPromiseReactions enqueues one job per reaction, in registration
// order.
func TriggerPromiseReactions(r *runtime.Realm, reactions []*Reaction, argument value.Value) {
	for _, reaction := range reactions {
		r.Agent.EnqueueJob(runtime.PromiseJobs, NewPromiseReactionJob(r, reaction, argument))
	}
}

// NewPromiseReactionJob builds the job that runs a reaction's handler and
// settles the reaction's capability with the outcome.
func NewPromiseReactionJob(r *runtime.Realm, reaction *Reaction, argument value.Value) runtime.JobFunc {
	return func([]value.Value) value.Completion {
		var result value.Completion
		switch {
		case reaction.Handler != nil:
			result = runtime.Call(r, reaction.Handler, value.Undefined, []value.Value{argument})
		case reaction.Type == FulfillReaction:
			result = value.NormalCompletion(argument)
		default:
			result = value.ThrowCompletion(argument)
		}
		if reaction.Capability == nil {
			value.Assert(!result.IsAbrupt(), "reaction without capability completed abruptly")
			return value.Empty
		}
		if result.IsAbrupt() {
			return runtime.Call(r, reaction.Capability.Reject, value.Undefined, []value.Value{result.ValueOrUndefined()})
		}
		return runtime.Call(r, reaction.Capability.Resolve, value.Undefined, []value.Value{result.ValueOrUndefined()})
	}
}

// NewPromiseResolveThenableJob builds the job that adopts the state of a
// thenable by calling its then method with fresh resolving functions.
func NewPromiseResolveThenableJob(r *runtime.Realm, p *value.Object, thenable *value.Object, then value.Value) runtime.JobFunc {
	return func([]value.Value) value.Completion {
		resolve, reject := CreateResolvingFunctions(r, p)
		c := runtime.Call(r, then, thenable, []value.Value{resolve, reject})
		if c.IsAbrupt() {
			return runtime.Call(r, reject, value.Undefined, []value.Value{c.ValueOrUndefined()})
		}
		return c
	}
}

// NewPromiseCapability constructs a promise through C and captures the
// resolve and reject functions its executor receives.
func NewPromiseCapability(r *runtime.Realm, c value.Value) (*Capability, value.Completion) {
	if !value.IsConstructor(c) {
		return nil, r.ThrowTypeError("%s is not a constructor", runtime.Describe(c))
	}
	capability := &Capability{Resolve: value.Undefined, Reject: value.Undefined}
	executor := runtime.CreateBuiltinFunction(r, "", 2, func(_ value.Value, args []value.Value) value.Completion {
		if !value.IsUndefined(capability.Resolve) {
			return r.ThrowTypeError("Promise executor has already been invoked with non-undefined arguments")
		}
		if !value.IsUndefined(capability.Reject) {
			return r.ThrowTypeError("Promise executor has already been invoked with non-undefined arguments")
		}
		capability.Resolve = runtime.Arg(args, 0)
		capability.Reject = runtime.Arg(args, 1)
		return value.NormalCompletion(value.Undefined)
	})
	res := runtime.Construct(r, c, []value.Value{executor}, nil)
	if res.IsAbrupt() {
		return nil, res
	}
	if !value.IsCallable(capability.Resolve) {
		return nil, r.ThrowTypeError("Promise resolve function is not callable")
	}
	if !value.IsCallable(capability.Reject) {
		return nil, r.ThrowTypeError("Promise reject function is not callable")
	}
	promise, ok := res.Value.(*value.Object)
	value.Assert(ok, "constructor returned a non-object")
	capability.Promise = promise
	return capability, value.Empty
}

// PerformPromiseThen registers a fulfill/reject reaction pair on p, or
// enqueues the matching reaction immediately when p is already settled.
// It returns the capability's promise, or undefined without a capability.
func PerformPromiseThen(r *runtime.Realm, p *value.Object, onFulfilled, onRejected value.Value, capability *Capability) value.Value {
	s := mustSlots(p)
	if !value.IsCallable(onFulfilled) {
		onFulfilled = nil
	}
	if !value.IsCallable(onRejected) {
		onRejected = nil
	}
	fulfill := &Reaction{Capability: capability, Type: FulfillReaction, Handler: onFulfilled}
	reject := &Reaction{Capability: capability, Type: RejectReaction, Handler: onRejected}

	switch s.State {
	case Pending:
		s.FulfillReactions = append(s.FulfillReactions, fulfill)
		s.RejectReactions = append(s.RejectReactions, reject)
	case Fulfilled:
		r.Agent.EnqueueJob(runtime.PromiseJobs, NewPromiseReactionJob(r, fulfill, s.Result))
	case Rejected:
		if !s.IsHandled {
			r.Agent.ReportRejection(p, runtime.RejectionHandled)
		}
		r.Agent.EnqueueJob(runtime.PromiseJobs, NewPromiseReactionJob(r, reject, s.Result))
	}
	s.IsHandled = true

	if capability == nil {
		return value.Undefined
	}
	return capability.Promise
}

// PromiseResolve returns x when it is a promise made by C, otherwise a new
// promise from C resolved with x.
func PromiseResolve(r *runtime.Realm, c *value.Object, x value.Value) (*value.Object, value.Completion) {
	if IsPromise(x) {
		xObj := x.(*value.Object)
		ctor := xObj.Get(value.StringKey("constructor"), xObj)
		if ctor.IsAbrupt() {
			return nil, ctor
		}
		if value.SameValue(ctor.ValueOrUndefined(), c) {
			return xObj, value.Empty
		}
	}
	capability, res := NewPromiseCapability(r, c)
	if res.IsAbrupt() {
		return nil, res
	}
	if res := runtime.Call(r, capability.Resolve, value.Undefined, []value.Value{x}); res.IsAbrupt() {
		return nil, res
	}
	return capability.Promise, value.Empty
}

// Create allocates a pending promise with the given prototype.
func Create(proto *value.Object) *value.Object {
	p := value.NewObject(proto)
	p.Class = "Promise"
	p.Internal = &Slots{State: Pending}
	return p
}

// Construct implements `new Promise(executor)`.
func Construct(r *runtime.Realm, executor value.Value, newTarget *value.Object) value.Completion {
	if newTarget == nil {
		return r.ThrowTypeError("Promise constructor cannot be invoked without 'new'")
	}
	if !value.IsCallable(executor) {
		return r.ThrowTypeError("Promise resolver %s is not a function", runtime.Describe(executor))
	}
	proto, c := runtime.GetPrototypeFromConstructor(r, newTarget, "%Promise.prototype%")
	if c.IsAbrupt() {
		return c
	}
	p := Create(proto)
	resolve, reject := CreateResolvingFunctions(r, p)
	c = runtime.Call(r, executor, value.Undefined, []value.Value{resolve, reject})
	if c.IsAbrupt() {
		if res := runtime.Call(r, reject, value.Undefined, []value.Value{c.ValueOrUndefined()}); res.IsAbrupt() {
			return res
		}
	}
	return value.NormalCompletion(p)
}

// Reject implements Promise.reject with C as this.
func Reject(r *runtime.Realm, c value.Value, reason value.Value) value.Completion {
	capability, res := NewPromiseCapability(r, c)
	if res.IsAbrupt() {
		return res
	}
	if res := runtime.Call(r, capability.Reject, value.Undefined, []value.Value{reason}); res.IsAbrupt() {
		return res
	}
	return value.NormalCompletion(capability.Promise)
}

// Resolve implements Promise.resolve with C as this.
func Resolve(r *runtime.Realm, c value.Value, x value.Value) value.Completion {
	ctor, ok := c.(*value.Object)
	if !ok {
		return r.ThrowTypeError("PromiseResolve called on non-object")
	}
	p, res := PromiseResolve(r, ctor, x)
	if res.IsAbrupt() {
		return res
	}
	return value.NormalCompletion(p)
}
