package builtins

import (
	"github.com/nooga/cadence/pkg/promise"
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// PromiseInitializer implements the Promise builtin. Combinators such as
// Promise.all are not provided.
type PromiseInitializer struct{}

func (p *PromiseInitializer) Name() string {
	return "Promise"
}

func (p *PromiseInitializer) Priority() int {
	return PriorityPromise
}

func (p *PromiseInitializer) InitRuntime(ctx *RuntimeContext) error {
	r := ctx.Realm

	proto := value.NewObject(ctx.ObjectPrototype)
	r.SetIntrinsic("%Promise.prototype%", proto)

	ctx.Method(proto, "then", 2, func(this value.Value, args []value.Value) value.Completion {
		return promise.Then(r, this, runtime.Arg(args, 0), runtime.Arg(args, 1))
	})
	ctx.Method(proto, "catch", 1, func(this value.Value, args []value.Value) value.Completion {
		return promise.Catch(r, this, runtime.Arg(args, 0))
	})
	ctx.Method(proto, "finally", 1, func(this value.Value, args []value.Value) value.Completion {
		return promise.Finally(r, this, runtime.Arg(args, 0))
	})
	tag(proto, "Promise")

	ctor := ctx.Constructor("Promise", 1, proto,
		func(value.Value, []value.Value) value.Completion {
			return promise.Construct(r, value.Undefined, nil)
		},
		func(args []value.Value, newTarget *value.Object) value.Completion {
			return promise.Construct(r, runtime.Arg(args, 0), newTarget)
		})
	r.SetIntrinsic("%Promise%", ctor)

	ctx.Method(ctor, "resolve", 1, func(this value.Value, args []value.Value) value.Completion {
		return promise.Resolve(r, this, runtime.Arg(args, 0))
	})
	ctx.Method(ctor, "reject", 1, func(this value.Value, args []value.Value) value.Completion {
		return promise.Reject(r, this, runtime.Arg(args, 0))
	})
	ctx.Getter(ctor, value.SymbolKey(value.SymbolSpecies), func(this value.Value, _ []value.Value) value.Completion {
		return value.NormalCompletion(this)
	})

	ctx.DefineGlobal("Promise", ctor)
	return nil
}
