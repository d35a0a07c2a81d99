// Package runtime holds the agent (execution-context stack, job queues and
// host hooks), realm records, and the abstract operations that need a realm
// to raise errors.
package runtime

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/nooga/cadence/pkg/env"
	"github.com/nooga/cadence/pkg/errors"
	"github.com/nooga/cadence/pkg/value"
)

// ExecutionContext is one frame of the agent's context stack.
type ExecutionContext struct {
	ID                  uuid.UUID
	Realm               *Realm
	Function            *value.Object
	LexicalEnvironment  env.Environment
	VariableEnvironment env.Environment
	// Generator holds the evaluator state of a generator or async activation.
	Generator any
	Async     bool
}

// RejectionOperation is the phase reported by OnUnhandledRejection.
type RejectionOperation string

const (
	RejectionReject  RejectionOperation = "reject"
	RejectionHandled RejectionOperation = "handler"
)

// Hooks are the host's view into the agent.
type Hooks struct {
	// OnUnhandledRejection fires with "reject" when a promise is rejected with
	// no reject reactions, and with "handler" when a handler is attached to
	// such a promise later.
	OnUnhandledRejection func(promise *value.Object, op RejectionOperation)
	// OnUncaughtException fires when a job completes with a throw.
	OnUncaughtException func(v value.Value)
	// OnJob fires before each job runs.
	OnJob func(job *Job)
}

// Agent owns the execution-context stack and the job queues. One agent may
// host several realms.
type Agent struct {
	mu     sync.Mutex
	queues map[string][]*Job
	order  []string
	next   int

	stack   []*ExecutionContext
	jobsRun int

	Hooks   Hooks
	MaxJobs int
	logger  *slog.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithQueues adds named job queues in round-robin order.
func WithQueues(names ...string) Option {
	return func(a *Agent) {
		for _, n := range names {
			a.addQueue(n)
		}
	}
}

func WithMaxJobs(n int) Option { return func(a *Agent) { a.MaxJobs = n } }

func WithHooks(h Hooks) Option { return func(a *Agent) { a.Hooks = h } }

func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAgent creates an agent with the PromiseJobs and ScriptJobs queues.
func NewAgent(opts ...Option) *Agent {
	a := &Agent{
		queues: make(map[string][]*Job),
		logger: slog.Default(),
	}
	a.addQueue(PromiseJobs)
	a.addQueue(ScriptJobs)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) addQueue(name string) {
	if _, ok := a.queues[name]; ok {
		return
	}
	a.queues[name] = nil
	a.order = append(a.order, name)
}

func (a *Agent) Logger() *slog.Logger { return a.logger }

// PushContext makes ctx the running execution context.
func (a *Agent) PushContext(ctx *ExecutionContext) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stack = append(a.stack, ctx)
}

// PopContext removes ctx, which must be the running execution context.
func (a *Agent) PopContext(ctx *ExecutionContext) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.stack)
	if n == 0 || a.stack[n-1] != ctx {
		panic(errors.Invariantf("popped execution context is not the running context"))
	}
	a.stack[n-1] = nil
	a.stack = a.stack[:n-1]
}

// RunningContext returns the top of the context stack, or nil.
func (a *Agent) RunningContext() *ExecutionContext {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runningContextLocked()
}

func (a *Agent) runningContextLocked() *ExecutionContext {
	if len(a.stack) == 0 {
		return nil
	}
	return a.stack[len(a.stack)-1]
}

// CurrentRealm returns the realm of the running context.
func (a *Agent) CurrentRealm() *Realm {
	if ctx := a.RunningContext(); ctx != nil {
		return ctx.Realm
	}
	return nil
}

// StackDepth reports the number of execution contexts on the stack.
func (a *Agent) StackDepth() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.stack)
}

// ReportRejection forwards a rejection-tracking event to the host.
func (a *Agent) ReportRejection(promise *value.Object, op RejectionOperation) {
	a.logger.Debug("rejection tracker", "operation", string(op))
	if a.Hooks.OnUnhandledRejection != nil {
		a.Hooks.OnUnhandledRejection(promise, op)
	}
}
