package interp

import (
	"github.com/nooga/cadence/pkg/builtins"
	"github.com/nooga/cadence/pkg/promise"
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

type asyncGenState uint8

const (
	agSuspendedStart asyncGenState = iota
	agSuspendedYield
	agExecuting
	agAwaitingReturn
	agCompleted
)

func (s asyncGenState) String() string {
	switch s {
	case agSuspendedStart:
		return "suspended-start"
	case agSuspendedYield:
		return "suspended-yield"
	case agExecuting:
		return "executing"
	case agAwaitingReturn:
		return "awaiting-return"
	}
	return "completed"
}

// asyncGenRequest is one queued next, return or throw call.
type asyncGenRequest struct {
	completion value.Completion
	capability *promise.Capability
}

// asyncGenerator is the Internal slot of async generator objects. Requests
// queue up while the body runs and are settled in order.
type asyncGenerator struct {
	frame *frame
	state asyncGenState
	queue []*asyncGenRequest
}

var _ builtins.AsyncGenerator = (*asyncGenerator)(nil)

func (f *frame) startAsyncGenerator(args []value.Value) value.Completion {
	if c := f.functionDeclarationInstantiation(args); c.IsAbrupt() {
		return c
	}
	obj, c := runtime.OrdinaryCreateFromConstructor(f.realm, f.fn.object, "%AsyncGeneratorPrototype%")
	if c.IsAbrupt() {
		return c
	}
	g := &asyncGenerator{frame: f, state: agSuspendedStart}
	obj.Internal = g
	f.ec.Generator = g
	f.asyncGen = g
	f.co = newCoroutine(f.in.ctx, func(*coroutine) value.Completion { return f.functionBody() })
	f.resumeAwait = func(c value.Completion) { g.handle(f.resumeWith(c)) }
	return value.ReturnCompletion(obj)
}

// Enqueue records a request and starts or resumes the body when it is
// suspended.
func (g *asyncGenerator) Enqueue(kind value.CompletionKind, v value.Value, capability *promise.Capability) {
	r := g.frame.realm
	req := &asyncGenRequest{completion: value.Completion{Kind: kind, Value: v}, capability: capability}
	switch kind {
	case value.Normal:
		if g.state == agCompleted {
			value.MustNormal(runtime.Call(r, capability.Resolve, value.Undefined,
				[]value.Value{runtime.CreateIterResultObject(r, value.Undefined, true)}))
			return
		}
		g.queue = append(g.queue, req)
		if g.state == agSuspendedStart || g.state == agSuspendedYield {
			g.resume(req.completion)
		}
	case value.Return:
		g.queue = append(g.queue, req)
		switch g.state {
		case agSuspendedStart, agCompleted:
			g.state = agAwaitingReturn
			g.awaitReturn()
		case agSuspendedYield:
			g.resume(req.completion)
		}
	case value.Throw:
		if g.state == agSuspendedStart {
			g.state = agCompleted
		}
		if g.state == agCompleted {
			value.MustNormal(runtime.Call(r, capability.Reject, value.Undefined, []value.Value{v}))
			return
		}
		g.queue = append(g.queue, req)
		if g.state == agSuspendedYield {
			g.resume(req.completion)
		}
	}
}

func (g *asyncGenerator) resume(c value.Completion) {
	g.state = agExecuting
	g.handle(g.frame.resumeWith(c))
}

// handle inspects the step the body stopped at. Only a finished body needs
// work here; yields settle their request from inside the body.
func (g *asyncGenerator) handle(s step) {
	if s.kind != stepDone {
		return
	}
	g.state = agCompleted
	res := s.completion
	switch res.Kind {
	case value.Normal:
		res = value.NormalCompletion(value.Undefined)
	case value.Return:
		res = value.NormalCompletion(res.Value)
	}
	g.completeStep(res, true)
	g.drainQueue()
}

// completeStep settles the oldest request with c.
func (g *asyncGenerator) completeStep(c value.Completion, done bool) {
	value.Assert(len(g.queue) > 0, "async generator step without a pending request")
	r := g.frame.realm
	next := g.queue[0]
	g.queue = g.queue[1:]
	if c.Kind == value.Throw {
		value.MustNormal(runtime.Call(r, next.capability.Reject, value.Undefined, []value.Value{c.Value}))
		return
	}
	res := runtime.CreateIterResultObject(r, c.ValueOrUndefined(), done)
	value.MustNormal(runtime.Call(r, next.capability.Resolve, value.Undefined, []value.Value{res}))
}

// drainQueue settles the requests left after the body completed.
func (g *asyncGenerator) drainQueue() {
	value.Assert(g.state == agCompleted, "draining an async generator in state %s", g.state)
	for len(g.queue) > 0 {
		c := g.queue[0].completion
		switch c.Kind {
		case value.Return:
			g.state = agAwaitingReturn
			g.awaitReturn()
			return
		case value.Normal:
			c = value.NormalCompletion(value.Undefined)
		}
		g.completeStep(c, true)
	}
}

// awaitReturn awaits the value of a return request made while the body is
// not running.
func (g *asyncGenerator) awaitReturn() {
	r := g.frame.realm
	settle := func(c value.Completion) {
		g.state = agCompleted
		g.completeStep(c, true)
		g.drainQueue()
	}
	c := promise.Await(r, g.queue[0].completion.Value,
		func(v value.Value) { settle(value.NormalCompletion(v)) },
		func(reason value.Value) { settle(value.ThrowCompletion(reason)) })
	if c.IsAbrupt() {
		settle(c)
	}
}

// yield settles the current request with v and waits for the next one. A
// queued request resumes the body without suspending.
func (g *asyncGenerator) yield(f *frame, v value.Value) value.Completion {
	g.completeStep(value.NormalCompletion(v), false)
	var resumption value.Completion
	if len(g.queue) > 0 {
		resumption = g.queue[0].completion
	} else {
		g.state = agSuspendedYield
		resumption = f.co.suspend(stepYield, nil, false)
	}
	if resumption.Kind != value.Return {
		return resumption
	}
	ac := f.await(resumption.Value)
	if ac.IsAbrupt() {
		return ac
	}
	return value.ReturnCompletion(ac.Value)
}
