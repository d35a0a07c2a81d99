package interp

import (
	"github.com/nooga/cadence/pkg/builtins"
	"github.com/nooga/cadence/pkg/parser"
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

type generatorState uint8

const (
	genSuspendedStart generatorState = iota
	genSuspendedYield
	genExecuting
	genCompleted
)

// generator is the Internal slot of generator objects.
type generator struct {
	frame *frame
	state generatorState
}

var _ builtins.Generator = (*generator)(nil)

func (f *frame) startGenerator(args []value.Value) value.Completion {
	if c := f.functionDeclarationInstantiation(args); c.IsAbrupt() {
		return c
	}
	obj, c := runtime.OrdinaryCreateFromConstructor(f.realm, f.fn.object, "%GeneratorPrototype%")
	if c.IsAbrupt() {
		return c
	}
	gen := &generator{frame: f, state: genSuspendedStart}
	obj.Internal = gen
	f.ec.Generator = gen
	f.co = newCoroutine(f.in.ctx, func(*coroutine) value.Completion { return f.functionBody() })
	return value.ReturnCompletion(obj)
}

// Resume delivers a next, return or throw request and runs the body to its
// next yield or to completion.
func (g *generator) Resume(kind value.CompletionKind, v value.Value) value.Completion {
	r := g.frame.realm
	switch g.state {
	case genExecuting:
		return r.ThrowTypeError("Generator is already running")
	case genSuspendedStart:
		if kind != value.Normal {
			g.state = genCompleted
		}
	}
	if g.state == genCompleted {
		switch kind {
		case value.Throw:
			return value.ThrowCompletion(v)
		case value.Return:
			return value.NormalCompletion(runtime.CreateIterResultObject(r, v, true))
		}
		return value.NormalCompletion(runtime.CreateIterResultObject(r, value.Undefined, true))
	}

	g.state = genExecuting
	s := g.frame.resumeWith(value.Completion{Kind: kind, Value: v})
	if s.kind == stepYield {
		g.state = genSuspendedYield
		if s.raw {
			return value.NormalCompletion(s.value)
		}
		return value.NormalCompletion(runtime.CreateIterResultObject(r, s.value, false))
	}
	g.state = genCompleted
	res := s.completion
	switch res.Kind {
	case value.Throw:
		return res
	case value.Return:
		return value.NormalCompletion(runtime.CreateIterResultObject(r, res.Value, true))
	}
	return value.NormalCompletion(runtime.CreateIterResultObject(r, value.Undefined, true))
}

// yieldStar delegates to an inner iterator, forwarding next, throw and
// return requests until it is done.
func (f *frame) yieldStar(arg parser.Expression) value.Completion {
	r := f.realm
	vc := f.evaluate(arg)
	if vc.IsAbrupt() {
		return vc
	}
	async := f.asyncGen != nil
	var (
		rec *runtime.IteratorRecord
		c   value.Completion
	)
	if async {
		rec, c = builtins.GetAsyncIterator(r, vc.Value)
	} else {
		rec, c = runtime.GetIterator(r, vc.Value)
	}
	if c.IsAbrupt() {
		return c
	}

	received := value.NormalCompletion(value.Undefined)
	for {
		var inner value.Completion
		switch received.Kind {
		case value.Normal:
			inner = runtime.Call(r, rec.NextMethod, rec.Iterator, []value.Value{received.Value})
		case value.Throw:
			throw, c := runtime.GetMethod(r, rec.Iterator, value.StringKey("throw"))
			if c.IsAbrupt() {
				return c
			}
			if value.IsUndefined(throw) {
				var closed value.Completion
				if async {
					closed = f.asyncIteratorClose(rec, value.Empty)
				} else {
					closed = runtime.IteratorClose(r, rec, value.Empty)
				}
				if closed.IsAbrupt() {
					return closed
				}
				return r.ThrowTypeError("The iterator does not provide a 'throw' method")
			}
			inner = runtime.Call(r, throw, rec.Iterator, []value.Value{received.Value})
		case value.Return:
			ret, c := runtime.GetMethod(r, rec.Iterator, value.StringKey("return"))
			if c.IsAbrupt() {
				return c
			}
			if value.IsUndefined(ret) {
				v := received.Value
				if async {
					ac := f.await(v)
					if ac.IsAbrupt() {
						return ac
					}
					v = ac.Value
				}
				return value.ReturnCompletion(v)
			}
			inner = runtime.Call(r, ret, rec.Iterator, []value.Value{received.Value})
		}
		if inner.IsAbrupt() {
			return inner
		}
		if async {
			if inner = f.await(inner.Value); inner.IsAbrupt() {
				return inner
			}
		}
		res, ok := inner.Value.(*value.Object)
		if !ok {
			return r.ThrowTypeError("Iterator result %s is not an object", runtime.Describe(inner.Value))
		}
		done, c := runtime.IteratorComplete(res)
		if c.IsAbrupt() {
			return c
		}
		if done {
			vc := runtime.IteratorValue(res)
			if vc.IsAbrupt() {
				return vc
			}
			if received.Kind == value.Return {
				return value.ReturnCompletion(vc.Value)
			}
			return value.NormalCompletion(vc.Value)
		}
		if async {
			vc := runtime.IteratorValue(res)
			if vc.IsAbrupt() {
				return vc
			}
			received = f.asyncGen.yield(f, vc.Value)
		} else {
			received = f.co.suspend(stepYield, res, true)
		}
	}
}
