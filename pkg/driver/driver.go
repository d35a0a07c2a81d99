// Package driver hosts script runs: it owns the agent, realm and
// interpreter of a session and drives the job queues until they drain.
package driver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/nooga/cadence/pkg/builtins"
	"github.com/nooga/cadence/pkg/errors"
	"github.com/nooga/cadence/pkg/interp"
	"github.com/nooga/cadence/pkg/parser"
	"github.com/nooga/cadence/pkg/promise"
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/source"
	"github.com/nooga/cadence/pkg/value"
)

// Engine is a persistent session. Bindings made by one run stay visible to
// the next, as with consecutive script tags.
type Engine struct {
	cfg    Config
	agent  *runtime.Agent
	realm  *runtime.Realm
	interp *interp.Interpreter
	logger *slog.Logger

	stdout io.Writer
	stderr io.Writer
	trace  io.Writer
	argv   []string

	jobSeq     int
	uncaught   []value.Value
	rejections []*value.Object
}

// Option configures an Engine.
type Option func(*Engine)

func WithStdout(w io.Writer) Option { return func(e *Engine) { e.stdout = w } }

func WithStderr(w io.Writer) Option { return func(e *Engine) { e.stderr = w } }

// WithLogger replaces the text handler built from Config.LogLevel.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithTrace writes a "-- job N Queue" line to w before each job runs.
func WithTrace(w io.Writer) Option { return func(e *Engine) { e.trace = w } }

// WithArgs sets process.argv.
func WithArgs(argv []string) Option { return func(e *Engine) { e.argv = argv } }

// Result describes a finished run.
type Result struct {
	// Value is the completion value of the script itself.
	Value value.Value
	// JobsRun counts the jobs of this run, the script job included.
	JobsRun int
	// ExitCode is process.exitCode when the script set it.
	ExitCode int
}

// New creates an engine from cfg.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg, stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		level, _ := cfg.Level()
		e.logger = slog.New(slog.NewTextHandler(e.stderr, &slog.HandlerOptions{Level: level}))
	}

	e.agent = runtime.NewAgent(
		runtime.WithQueues(cfg.Queues...),
		runtime.WithMaxJobs(cfg.MaxJobs),
		runtime.WithLogger(e.logger),
		runtime.WithHooks(runtime.Hooks{
			OnJob:                e.onJob,
			OnUncaughtException:  e.onUncaught,
			OnUnhandledRejection: e.onRejection,
		}),
	)
	realm, err := builtins.NewRealm(e.agent, builtins.Options{
		Stdout:       e.stdout,
		Stderr:       e.stderr,
		Initializers: []builtins.BuiltinInitializer{NewProcessInitializer(e.argv, e.stdout, e.stderr)},
	})
	if err != nil {
		return nil, fmt.Errorf("creating realm: %w", err)
	}
	e.realm = realm
	e.interp = interp.New(realm,
		interp.WithLogger(e.logger),
		interp.WithMaxCallDepth(cfg.MaxCallDepth),
	)
	return e, nil
}

func (e *Engine) Realm() *runtime.Realm { return e.realm }

func (e *Engine) Agent() *runtime.Agent { return e.agent }

// Close releases suspended generators and async functions.
func (e *Engine) Close() {
	e.interp.Close()
}

func (e *Engine) onJob(job *runtime.Job) {
	e.jobSeq++
	if e.trace != nil {
		fmt.Fprintf(e.trace, "-- job %d %s\n", e.jobSeq, job.Queue)
	}
	if e.cfg.TraceJobs {
		e.logger.Info("job", "seq", e.jobSeq, "queue", job.Queue, "id", job.ID)
	}
}

func (e *Engine) onUncaught(v value.Value) {
	e.logger.Debug("uncaught exception", "error", builtins.ErrorSummary(v))
	e.uncaught = append(e.uncaught, v)
}

func (e *Engine) onRejection(p *value.Object, op runtime.RejectionOperation) {
	switch op {
	case runtime.RejectionReject:
		e.rejections = append(e.rejections, p)
	case runtime.RejectionHandled:
		e.rejections = slices.DeleteFunc(e.rejections, func(q *value.Object) bool { return q == p })
	}
}

// RunString runs inline source text.
func (e *Engine) RunString(ctx context.Context, code string) (*Result, error) {
	return e.Run(ctx, source.NewEvalSource(code))
}

// RunFile reads and runs a script file.
func (e *Engine) RunFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return e.Run(ctx, source.FromFile(path, string(data)))
}

// Run parses src, enqueues its evaluation as a ScriptJobs job and runs jobs
// until every queue is empty. A syntax error is returned as
// *errors.SyntaxError before anything runs; an uncaught throw from any job
// as *errors.UncaughtError after the queues drain.
func (e *Engine) Run(ctx context.Context, src *source.SourceFile) (*Result, error) {
	prog, errs := parser.NewParser(src).ParseProgram()
	if len(errs) > 0 {
		return nil, errs[0]
	}

	completion := value.NormalCompletion(value.Undefined)
	e.agent.EnqueueJob(runtime.ScriptJobs, func([]value.Value) value.Completion {
		completion = e.interp.RunScript(prog)
		return completion
	})
	before := e.agent.JobsRun()
	e.logger.Debug("run started", "source", src.DisplayPath())
	err := e.agent.RunJobs(ctx)

	res := &Result{JobsRun: e.agent.JobsRun() - before}
	if !completion.IsAbrupt() {
		res.Value = completion.ValueOrUndefined()
	}
	if code, ok := exitCode(e.realm); ok {
		res.ExitCode = code
	}
	e.logger.Debug("run finished", "source", src.DisplayPath(), "jobs", res.JobsRun)
	if err != nil {
		return res, fmt.Errorf("running %s: %w", src.DisplayPath(), err)
	}
	if len(e.uncaught) > 0 {
		v := e.uncaught[0]
		e.uncaught = nil
		return res, &errors.UncaughtError{Detail: builtins.ErrorSummary(v), Value: v}
	}
	return res, e.reportRejections()
}

// reportRejections handles the promises still rejected without a handler
// according to Config.UnhandledRejections.
func (e *Engine) reportRejections() error {
	pending := e.rejections
	e.rejections = nil
	for _, p := range pending {
		slots, ok := promise.GetSlots(p)
		value.Assert(ok, "rejection tracked for a non-promise")
		summary := builtins.ErrorSummary(slots.Result)
		switch e.cfg.UnhandledRejections {
		case RejectionsStrict:
			return &errors.UncaughtError{Detail: "(in promise) " + summary, Value: slots.Result}
		case RejectionsWarn:
			e.logger.Debug("unhandled promise rejection", "reason", summary)
			fmt.Fprintf(e.stderr, "Uncaught (in promise) %s\n", summary)
		}
	}
	return nil
}
