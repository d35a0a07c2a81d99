package driver

import (
	"io"
	"os"
	goruntime "runtime"
	"strings"

	"github.com/nooga/cadence/pkg/builtins"
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// ProcessInitializer installs the host's process global: argv, env, the
// output streams, nextTick and exitCode. It is not part of the language.
type ProcessInitializer struct {
	argv   []string
	stdout io.Writer
	stderr io.Writer
}

// NewProcessInitializer creates a ProcessInitializer with the given argv.
func NewProcessInitializer(argv []string, stdout, stderr io.Writer) *ProcessInitializer {
	return &ProcessInitializer{argv: argv, stdout: stdout, stderr: stderr}
}

func (p *ProcessInitializer) Name() string {
	return "process"
}

func (p *ProcessInitializer) Priority() int {
	return builtins.PriorityHost
}

func (p *ProcessInitializer) InitRuntime(ctx *builtins.RuntimeContext) error {
	r := ctx.Realm

	argv := make([]value.Value, len(p.argv))
	for i, a := range p.argv {
		argv[i] = value.String(a)
	}

	envObj := value.NewObject(ctx.ObjectPrototype)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			envObj.CreateDataProperty(value.StringKey(k), value.String(v))
		}
	}

	stream := func(w io.Writer) *value.Object {
		obj := value.NewObject(ctx.ObjectPrototype)
		ctx.Method(obj, "write", 1, func(_ value.Value, args []value.Value) value.Completion {
			s, c := runtime.ToString(r, runtime.Arg(args, 0))
			if c.IsAbrupt() {
				return c
			}
			io.WriteString(w, s)
			return value.NormalCompletion(value.True)
		})
		return obj
	}

	process := value.NewObject(ctx.ObjectPrototype)
	process.CreateDataProperty(value.StringKey("argv"), runtime.CreateArrayFromList(r, argv))
	process.CreateDataProperty(value.StringKey("platform"), value.String(goruntime.GOOS))
	process.CreateDataProperty(value.StringKey("pid"), value.Number(os.Getpid()))
	process.CreateDataProperty(value.StringKey("env"), envObj)
	process.CreateDataProperty(value.StringKey("stdout"), stream(p.stdout))
	process.CreateDataProperty(value.StringKey("stderr"), stream(p.stderr))
	process.CreateDataProperty(value.StringKey("exitCode"), value.Undefined)

	ctx.Method(process, "cwd", 0, func(value.Value, []value.Value) value.Completion {
		cwd, err := os.Getwd()
		if err != nil {
			return value.NormalCompletion(value.String(""))
		}
		return value.NormalCompletion(value.String(cwd))
	})

	// nextTick(fn, ...args) runs fn as a ScriptJobs job.
	ctx.Method(process, "nextTick", 1, func(_ value.Value, args []value.Value) value.Completion {
		fn := runtime.Arg(args, 0)
		if !value.IsCallable(fn) {
			return r.ThrowTypeError("The \"callback\" argument must be of type function")
		}
		var rest []value.Value
		if len(args) > 1 {
			rest = append(rest, args[1:]...)
		}
		r.Agent.EnqueueJob(runtime.ScriptJobs, func(jobArgs []value.Value) value.Completion {
			c := runtime.Call(r, fn, value.Undefined, jobArgs)
			if c.IsAbrupt() {
				return c
			}
			return value.NormalCompletion(value.Undefined)
		}, rest...)
		return value.NormalCompletion(value.Undefined)
	})

	ctx.DefineGlobal("process", process)
	return nil
}

// exitCode reads process.exitCode as set by the script; ok is false when
// it was left unset.
func exitCode(r *runtime.Realm) (code int, ok bool) {
	pc := r.GlobalObject.Get(value.StringKey("process"), r.GlobalObject)
	process, isObj := pc.Value.(*value.Object)
	if pc.IsAbrupt() || !isObj {
		return 0, false
	}
	ec := process.Get(value.StringKey("exitCode"), process)
	n, isNum := ec.Value.(value.Number)
	if ec.IsAbrupt() || !isNum {
		return 0, false
	}
	return int(n), true
}
