package builtins

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// GetStandardInitializers returns all built-in initializers sorted by priority
func GetStandardInitializers() []BuiltinInitializer {
	initializers := []BuiltinInitializer{
		&ObjectInitializer{},
		&FunctionInitializer{},
		&ErrorInitializer{},
		&IteratorInitializer{},
		&ArrayInitializer{},
		&GeneratorInitializer{},
		&PromiseInitializer{},
		&AsyncGeneratorInitializer{},
		&StringInitializer{},
		&NumberInitializer{},
		&BooleanInitializer{},
		&SymbolInitializer{},
		&RegExpInitializer{},
		&MathInitializer{},
		&ConsoleInitializer{},
		&GlobalsInitializer{},
	}

	// Sort by priority (lower numbers first)
	sort.SliceStable(initializers, func(i, j int) bool {
		return initializers[i].Priority() < initializers[j].Priority()
	})
	return initializers
}

// Options configure NewRealm.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	// Initializers are host modules run after the standard ones, in
	// priority order.
	Initializers []BuiltinInitializer
}

// NewRealm creates a realm on agent and runs every standard initializer
// against it.
func NewRealm(agent *runtime.Agent, opts Options) (*runtime.Realm, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	r := runtime.NewRealm(agent)

	objectProto := value.NewObject(nil)
	r.SetIntrinsic("%Object.prototype%", objectProto)
	functionProto := value.NewObject(objectProto)
	functionProto.Class = "Function"
	r.SetIntrinsic("%Function.prototype%", functionProto)

	global := value.NewObject(objectProto)
	r.SetGlobalObject(global)

	ctx := &RuntimeContext{
		Realm:             r,
		Global:            global,
		Stdout:            opts.Stdout,
		Stderr:            opts.Stderr,
		ObjectPrototype:   objectProto,
		FunctionPrototype: functionProto,
	}
	inits := GetStandardInitializers()
	if len(opts.Initializers) > 0 {
		inits = append(inits, opts.Initializers...)
		sort.SliceStable(inits, func(i, j int) bool {
			return inits[i].Priority() < inits[j].Priority()
		})
	}
	for _, init := range inits {
		if err := init.InitRuntime(ctx); err != nil {
			return nil, fmt.Errorf("initializing %s: %w", init.Name(), err)
		}
	}
	agent.Logger().Debug("realm ready", "realm", r.ID, "globals", len(global.OwnPropertyKeys()))
	return r, nil
}
