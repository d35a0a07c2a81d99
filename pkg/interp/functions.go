package interp

import (
	"github.com/google/uuid"

	"github.com/nooga/cadence/pkg/builtins"
	"github.com/nooga/cadence/pkg/env"
	"github.com/nooga/cadence/pkg/parser"
	"github.com/nooga/cadence/pkg/promise"
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// scriptFunction is the Internal slot of functions defined in source text.
type scriptFunction struct {
	in     *Interpreter
	realm  *runtime.Realm
	node   *parser.FunctionLiteral
	scope  env.Environment
	kind   builtins.FunctionKind
	object *value.Object
}

func (fn *scriptFunction) SourceText() string         { return fn.node.Source }
func (fn *scriptFunction) Kind() builtins.FunctionKind { return fn.kind }

func functionKind(n *parser.FunctionLiteral) builtins.FunctionKind {
	switch {
	case n.IsAsync && n.IsGenerator:
		return builtins.KindAsyncGenerator
	case n.IsGenerator:
		return builtins.KindGenerator
	case n.IsAsync:
		return builtins.KindAsync
	}
	return builtins.KindNormal
}

var functionPrototypes = map[builtins.FunctionKind]string{
	builtins.KindNormal:         "%Function.prototype%",
	builtins.KindGenerator:      "%GeneratorFunction.prototype%",
	builtins.KindAsync:          "%AsyncFunction.prototype%",
	builtins.KindAsyncGenerator: "%AsyncGeneratorFunction.prototype%",
}

// expectedArgumentCount counts the parameters before the first default.
func expectedArgumentCount(n *parser.FunctionLiteral) int {
	for i, p := range n.Params {
		if p.Default != nil {
			return i
		}
	}
	return len(n.Params)
}

// makeFunction creates a function object closing over scope, with its
// length, name and, where the kind calls for one, prototype properties.
func (f *frame) makeFunction(n *parser.FunctionLiteral, scope env.Environment, name value.PropertyKey, prefix string) *value.Object {
	r := f.realm
	kind := functionKind(n)
	obj := value.NewObject(r.Intrinsic(functionPrototypes[kind]))
	obj.Class = "Function"
	sf := &scriptFunction{in: f.in, realm: r, node: n, scope: scope, kind: kind, object: obj}
	obj.Internal = sf
	obj.CallFn = sf.call
	runtime.SetFunctionLength(obj, expectedArgumentCount(n))
	runtime.SetFunctionName(obj, name, prefix)

	switch {
	case kind == builtins.KindGenerator:
		proto := value.NewObject(r.Intrinsic("%GeneratorPrototype%"))
		obj.DefineOwnProperty(value.StringKey("prototype"), value.Property{Value: proto, Writable: true})
	case kind == builtins.KindAsyncGenerator:
		proto := value.NewObject(r.Intrinsic("%AsyncGeneratorPrototype%"))
		obj.DefineOwnProperty(value.StringKey("prototype"), value.Property{Value: proto, Writable: true})
	case kind == builtins.KindNormal && !n.IsArrow && !n.IsMethod:
		obj.ConstructFn = sf.construct
		proto := value.NewObject(r.Intrinsic("%Object.prototype%"))
		proto.SetMethod(value.StringKey("constructor"), obj)
		obj.DefineOwnProperty(value.StringKey("prototype"), value.Property{Value: proto, Writable: true})
	}
	return obj
}

func (f *frame) instantiateFunctionObject(n *parser.FunctionLiteral, scope env.Environment) *value.Object {
	return f.makeFunction(n, scope, value.StringKey(n.Name.Name), "")
}

// functionExpression evaluates a function or arrow expression. A named
// function expression binds its own name in an intermediate scope.
func (f *frame) functionExpression(n *parser.FunctionLiteral, name *value.PropertyKey) *value.Object {
	if n.Name != nil && !n.IsArrow {
		funcEnv := env.NewDeclarative(f.env())
		funcEnv.CreateImmutableBinding(n.Name.Name, false)
		closure := f.makeFunction(n, funcEnv, value.StringKey(n.Name.Name), "")
		funcEnv.InitializeBinding(n.Name.Name, closure)
		return closure
	}
	key := value.StringKey("")
	if name != nil {
		key = *name
	}
	return f.makeFunction(n, f.env(), key, "")
}

// namedEvaluation evaluates an anonymous function definition, giving it
// name.
func (f *frame) namedEvaluation(e parser.Expression, name value.PropertyKey) *value.Object {
	return f.functionExpression(unparen(e).(*parser.FunctionLiteral), &name)
}

func (fn *scriptFunction) call(this value.Value, args []value.Value) value.Completion {
	return fn.invoke(this, args, nil)
}

func (fn *scriptFunction) construct(args []value.Value, newTarget *value.Object) value.Completion {
	if newTarget == nil {
		newTarget = fn.object
	}
	thisArg, c := runtime.OrdinaryCreateFromConstructor(fn.realm, newTarget, "%Object.prototype%")
	if c.IsAbrupt() {
		return c
	}
	res := fn.invoke(thisArg, args, newTarget)
	if res.IsAbrupt() {
		return res
	}
	if obj, ok := res.Value.(*value.Object); ok {
		return value.NormalCompletion(obj)
	}
	return value.NormalCompletion(thisArg)
}

// invoke runs one activation of fn. Generators and async functions return
// their generator object or promise without running to completion.
func (fn *scriptFunction) invoke(this value.Value, args []value.Value, newTarget *value.Object) value.Completion {
	r := fn.realm
	agent := r.Agent
	if agent.StackDepth() >= fn.in.maxCallDepth {
		return r.ThrowRangeError("Maximum call stack size exceeded")
	}
	var nt value.Value = value.Undefined
	if newTarget != nil {
		nt = newTarget
	}
	localEnv := env.NewFunction(fn.scope, fn.object, fn.node.IsArrow, nt)
	if !fn.node.IsArrow {
		localEnv.BindThisValue(this)
	}
	ec := &runtime.ExecutionContext{
		ID:                  uuid.New(),
		Realm:               r,
		Function:            fn.object,
		LexicalEnvironment:  localEnv,
		VariableEnvironment: localEnv,
		Async:               fn.kind == builtins.KindAsync || fn.kind == builtins.KindAsyncGenerator,
	}
	f := &frame{in: fn.in, realm: r, ec: ec, fn: fn}

	agent.PushContext(ec)
	var res value.Completion
	switch fn.kind {
	case builtins.KindGenerator:
		res = f.startGenerator(args)
	case builtins.KindAsync:
		res = f.startAsync(args)
	case builtins.KindAsyncGenerator:
		res = f.startAsyncGenerator(args)
	default:
		if res = f.functionDeclarationInstantiation(args); !res.IsAbrupt() {
			res = f.functionBody()
		}
	}
	agent.PopContext(ec)

	switch res.Kind {
	case value.Return:
		return value.NormalCompletion(res.Value)
	case value.Throw:
		return res
	}
	return value.NormalCompletion(value.Undefined)
}

// functionBody evaluates the statements of a function, or the expression
// of a concise arrow as an implicit return.
func (f *frame) functionBody() value.Completion {
	n := f.fn.node
	if n.ExprBody != nil {
		c := f.evaluate(n.ExprBody)
		if c.IsAbrupt() {
			return c
		}
		return value.ReturnCompletion(c.Value)
	}
	return f.statementList(n.Body)
}

// startAsync runs an async function body up to its first await and
// returns its promise. The rest of the body continues from promise jobs.
func (f *frame) startAsync(args []value.Value) value.Completion {
	r := f.realm
	capability := promise.NewIntrinsicCapability(r)
	if c := f.functionDeclarationInstantiation(args); c.IsAbrupt() {
		value.MustNormal(runtime.Call(r, capability.Reject, value.Undefined, []value.Value{c.Value}))
		return value.ReturnCompletion(capability.Promise)
	}
	f.co = newCoroutine(f.in.ctx, func(*coroutine) value.Completion { return f.functionBody() })
	f.resumeAwait = func(c value.Completion) {
		settleAsync(r, f.resumeWith(c), capability)
	}
	settleAsync(r, f.co.Resume(value.Empty), capability)
	return value.ReturnCompletion(capability.Promise)
}

// settleAsync resolves or rejects an async function's promise once its
// body has finished.
func settleAsync(r *runtime.Realm, s step, capability *promise.Capability) {
	if s.kind != stepDone {
		return
	}
	res := s.completion
	switch res.Kind {
	case value.Throw:
		value.MustNormal(runtime.Call(r, capability.Reject, value.Undefined, []value.Value{res.Value}))
	case value.Return:
		value.MustNormal(runtime.Call(r, capability.Resolve, value.Undefined, []value.Value{res.Value}))
	default:
		value.MustNormal(runtime.Call(r, capability.Resolve, value.Undefined, []value.Value{value.Undefined}))
	}
}
