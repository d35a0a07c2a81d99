// Package interp is the tree-walking evaluator. Every evaluation rule
// returns a value.Completion; generator and async activations run on
// coroutines so await and yield can suspend at any expression depth.
package interp

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nooga/cadence/pkg/builtins"
	"github.com/nooga/cadence/pkg/env"
	"github.com/nooga/cadence/pkg/parser"
	"github.com/nooga/cadence/pkg/promise"
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// DefaultMaxCallDepth bounds nested calls before a RangeError is thrown.
const DefaultMaxCallDepth = 2000

// Interpreter evaluates scripts against one realm.
type Interpreter struct {
	realm        *runtime.Realm
	logger       *slog.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	maxCallDepth int
	thrower      *value.Object
}

// Option configures an Interpreter.
type Option func(*Interpreter)

func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithMaxCallDepth sets the call depth at which calls throw a RangeError.
func WithMaxCallDepth(n int) Option {
	return func(in *Interpreter) {
		if n > 0 {
			in.maxCallDepth = n
		}
	}
}

// WithContext ties suspended coroutines to ctx: cancelling it releases
// them, as Close does.
func WithContext(ctx context.Context) Option {
	return func(in *Interpreter) { in.ctx = ctx }
}

// New creates an interpreter for realm.
func New(realm *runtime.Realm, opts ...Option) *Interpreter {
	in := &Interpreter{
		realm:        realm,
		logger:       realm.Agent.Logger(),
		ctx:          context.Background(),
		maxCallDepth: DefaultMaxCallDepth,
	}
	for _, opt := range opts {
		opt(in)
	}
	in.ctx, in.cancel = context.WithCancel(in.ctx)
	return in
}

func (in *Interpreter) Realm() *runtime.Realm { return in.realm }

// Close releases the goroutines of generators and async functions that
// are still suspended. Resuming one of them afterwards is an error.
func (in *Interpreter) Close() {
	in.cancel()
}

// RunScript performs ScriptEvaluation of prog in the realm's global
// environment and returns its completion value.
func (in *Interpreter) RunScript(prog *parser.Program) value.Completion {
	r := in.realm
	ec := &runtime.ExecutionContext{
		ID:                  uuid.New(),
		Realm:               r,
		LexicalEnvironment:  r.GlobalEnv,
		VariableEnvironment: r.GlobalEnv,
	}
	r.Agent.PushContext(ec)
	f := &frame{in: in, realm: r, ec: ec}
	c := f.globalDeclarationInstantiation(prog.Body)
	if !c.IsAbrupt() {
		c = f.statementList(prog.Body)
		if c.Kind == value.Normal && c.Value == nil {
			c = value.NormalCompletion(value.Undefined)
		}
	}
	r.Agent.PopContext(ec)
	in.logger.Debug("script evaluated", "realm", r.ID, "completion", c.Kind.String())
	return c
}

// EvaluateString parses and runs src. Syntax errors are returned as Go
// errors; everything else is in the completion.
func (in *Interpreter) EvaluateString(src string) (value.Completion, error) {
	prog, err := parser.ParseString(src)
	if err != nil {
		return value.Completion{}, err
	}
	return in.RunScript(prog), nil
}

// frame is the evaluator state of one activation: a script, a function
// call, or a generator or async body running on a coroutine.
type frame struct {
	in    *Interpreter
	realm *runtime.Realm
	ec    *runtime.ExecutionContext
	fn    *scriptFunction

	// co is nil for activations that cannot suspend.
	co *coroutine
	// resumeAwait continues the activation once an awaited promise settles.
	resumeAwait func(c value.Completion)
	asyncGen    *asyncGenerator
}

func (f *frame) env() env.Environment { return f.ec.LexicalEnvironment }

func (f *frame) setEnv(e env.Environment) { f.ec.LexicalEnvironment = e }

func (f *frame) kind() builtins.FunctionKind {
	if f.fn == nil {
		return builtins.KindNormal
	}
	return f.fn.kind
}

// resumeWith pushes the frame's context and resumes its coroutine with c.
func (f *frame) resumeWith(c value.Completion) step {
	agent := f.realm.Agent
	agent.PushContext(f.ec)
	s := f.co.Resume(c)
	agent.PopContext(f.ec)
	return s
}

// await suspends the activation until v settles. It returns the fulfilled
// value as a normal completion or the rejection reason as a throw.
func (f *frame) await(v value.Value) value.Completion {
	value.Assert(f.co != nil && f.resumeAwait != nil, "await outside an async activation")
	c := promise.Await(f.realm, v,
		func(res value.Value) { f.resumeAwait(value.NormalCompletion(res)) },
		func(reason value.Value) { f.resumeAwait(value.ThrowCompletion(reason)) })
	if c.IsAbrupt() {
		return c
	}
	return f.co.suspend(stepAwait, nil, false)
}

// yield suspends a generator body. Async generators await the operand and
// hand it to the request queue.
func (f *frame) yield(v value.Value) value.Completion {
	value.Assert(f.co != nil, "yield outside a generator")
	if f.asyncGen != nil {
		c := f.await(v)
		if c.IsAbrupt() {
			return c
		}
		return f.asyncGen.yield(f, c.Value)
	}
	return f.co.suspend(stepYield, v, false)
}
