package builtins

import (
	"github.com/nooga/cadence/pkg/promise"
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// Generator is implemented by the Internal slot of generator objects. Resume
// delivers a next (Normal), return (Return) or throw (Throw) request.
type Generator interface {
	Resume(kind value.CompletionKind, v value.Value) value.Completion
}

// AsyncGenerator is implemented by the Internal slot of async generator
// objects. Enqueue records a request settled through capability.
type AsyncGenerator interface {
	Enqueue(kind value.CompletionKind, v value.Value, capability *promise.Capability)
}

func tag(obj *value.Object, name string) {
	obj.DefineOwnProperty(value.SymbolKey(value.SymbolToStringTag), value.Property{Value: value.String(name), Configurable: true})
}

// linkFunctionPrototype wires fnProto.prototype and instanceProto.constructor
// the way %GeneratorFunction.prototype% and %GeneratorPrototype% are linked.
func linkFunctionPrototype(fnProto, instanceProto *value.Object) {
	fnProto.DefineOwnProperty(value.StringKey("prototype"), value.Property{Value: instanceProto, Configurable: true})
	instanceProto.DefineOwnProperty(value.StringKey("constructor"), value.Property{Value: fnProto, Configurable: true})
}

// GeneratorInitializer creates the generator and async function intrinsics
type GeneratorInitializer struct{}

func (g *GeneratorInitializer) Name() string {
	return "Generator"
}

func (g *GeneratorInitializer) Priority() int {
	return PriorityGenerator
}

func (g *GeneratorInitializer) InitRuntime(ctx *RuntimeContext) error {
	r := ctx.Realm

	genFnProto := value.NewObject(ctx.FunctionPrototype)
	tag(genFnProto, "GeneratorFunction")
	genProto := value.NewObject(r.Intrinsic("%IteratorPrototype%"))
	tag(genProto, "Generator")
	linkFunctionPrototype(genFnProto, genProto)

	resume := func(kind value.CompletionKind, method string) value.NativeFunction {
		return func(this value.Value, args []value.Value) value.Completion {
			obj, ok := this.(*value.Object)
			var gen Generator
			if ok {
				gen, ok = obj.Internal.(Generator)
			}
			if !ok {
				return r.ThrowTypeError("%s method called on incompatible receiver %s", method, runtime.Describe(this))
			}
			return gen.Resume(kind, runtime.Arg(args, 0))
		}
	}
	ctx.Method(genProto, "next", 1, resume(value.Normal, "next"))
	ctx.Method(genProto, "return", 1, resume(value.Return, "return"))
	ctx.Method(genProto, "throw", 1, resume(value.Throw, "throw"))

	r.SetIntrinsic("%GeneratorFunction.prototype%", genFnProto)
	r.SetIntrinsic("%GeneratorPrototype%", genProto)

	asyncFnProto := value.NewObject(ctx.FunctionPrototype)
	tag(asyncFnProto, "AsyncFunction")
	r.SetIntrinsic("%AsyncFunction.prototype%", asyncFnProto)
	return nil
}

// AsyncGeneratorInitializer creates the async generator intrinsics
type AsyncGeneratorInitializer struct{}

func (g *AsyncGeneratorInitializer) Name() string {
	return "AsyncGenerator"
}

func (g *AsyncGeneratorInitializer) Priority() int {
	return PriorityAsyncGenerator
}

func (g *AsyncGeneratorInitializer) InitRuntime(ctx *RuntimeContext) error {
	r := ctx.Realm

	fnProto := value.NewObject(ctx.FunctionPrototype)
	tag(fnProto, "AsyncGeneratorFunction")
	proto := value.NewObject(r.Intrinsic("%AsyncIteratorPrototype%"))
	tag(proto, "AsyncGenerator")
	linkFunctionPrototype(fnProto, proto)

	// An invalid receiver rejects the returned promise instead of throwing.
	enqueue := func(kind value.CompletionKind, method string) value.NativeFunction {
		return func(this value.Value, args []value.Value) value.Completion {
			capability := promise.NewIntrinsicCapability(r)
			obj, ok := this.(*value.Object)
			var gen AsyncGenerator
			if ok {
				gen, ok = obj.Internal.(AsyncGenerator)
			}
			if !ok {
				err := r.NewError("TypeError", method+" method called on incompatible receiver "+runtime.Describe(this))
				return rejectCapability(r, capability, value.ThrowCompletion(err))
			}
			gen.Enqueue(kind, runtime.Arg(args, 0), capability)
			return value.NormalCompletion(capability.Promise)
		}
	}
	ctx.Method(proto, "next", 1, enqueue(value.Normal, "next"))
	ctx.Method(proto, "return", 1, enqueue(value.Return, "return"))
	ctx.Method(proto, "throw", 1, enqueue(value.Throw, "throw"))

	r.SetIntrinsic("%AsyncGeneratorFunction.prototype%", fnProto)
	r.SetIntrinsic("%AsyncGeneratorPrototype%", proto)
	return nil
}
