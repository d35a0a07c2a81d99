package builtins

import (
	"sync"

	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// symbolRegistry backs Symbol.for and Symbol.keyFor.
type symbolRegistry struct {
	mu      sync.RWMutex
	symbols map[string]*value.Symbol
}

func (reg *symbolRegistry) get(key string) *value.Symbol {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if sym, ok := reg.symbols[key]; ok {
		return sym
	}
	sym := value.NewSymbol(key)
	reg.symbols[key] = sym
	return sym
}

func (reg *symbolRegistry) keyFor(sym *value.Symbol) (string, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	for key, registered := range reg.symbols {
		if registered == sym {
			return key, true
		}
	}
	return "", false
}

// thisSymbolValue unwraps a symbol primitive or Symbol wrapper.
func thisSymbolValue(r *runtime.Realm, this value.Value, method string) (*value.Symbol, value.Completion) {
	switch t := this.(type) {
	case *value.Symbol:
		return t, value.Empty
	case *value.Object:
		if sym, ok := t.Internal.(*value.Symbol); ok {
			return sym, value.Empty
		}
	}
	return nil, r.ThrowTypeError("Symbol.prototype.%s requires that 'this' be a Symbol", method)
}

type SymbolInitializer struct{}

func (s *SymbolInitializer) Name() string {
	return "Symbol"
}

func (s *SymbolInitializer) Priority() int {
	return PrioritySymbol
}

func (s *SymbolInitializer) InitRuntime(ctx *RuntimeContext) error {
	r := ctx.Realm
	registry := &symbolRegistry{symbols: make(map[string]*value.Symbol)}

	proto := value.NewObject(ctx.ObjectPrototype)
	r.SetIntrinsic("%Symbol.prototype%", proto)

	ctor := ctx.Constructor("Symbol", 0, proto,
		func(_ value.Value, args []value.Value) value.Completion {
			desc := runtime.Arg(args, 0)
			if value.IsUndefined(desc) {
				return value.NormalCompletion(&value.Symbol{})
			}
			str, c := runtime.ToString(r, desc)
			if c.IsAbrupt() {
				return c
			}
			return value.NormalCompletion(value.NewSymbol(str))
		},
		func([]value.Value, *value.Object) value.Completion {
			return r.ThrowTypeError("Symbol is not a constructor")
		})
	r.SetIntrinsic("%Symbol%", ctor)

	for _, wk := range []struct {
		name string
		sym  *value.Symbol
	}{
		{"iterator", value.SymbolIterator},
		{"asyncIterator", value.SymbolAsyncIterator},
		{"species", value.SymbolSpecies},
		{"toPrimitive", value.SymbolToPrimitive},
		{"toStringTag", value.SymbolToStringTag},
		{"hasInstance", value.SymbolHasInstance},
	} {
		Constant(ctor, wk.name, wk.sym)
	}

	ctx.Method(ctor, "for", 1, func(_ value.Value, args []value.Value) value.Completion {
		key, c := runtime.ToString(r, runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(registry.get(key))
	})
	ctx.Method(ctor, "keyFor", 1, func(_ value.Value, args []value.Value) value.Completion {
		sym, ok := runtime.Arg(args, 0).(*value.Symbol)
		if !ok {
			return r.ThrowTypeError("%s is not a symbol", runtime.Describe(runtime.Arg(args, 0)))
		}
		if key, ok := registry.keyFor(sym); ok {
			return value.NormalCompletion(value.String(key))
		}
		return value.NormalCompletion(value.Undefined)
	})

	ctx.Method(proto, "toString", 0, func(this value.Value, _ []value.Value) value.Completion {
		sym, c := thisSymbolValue(r, this, "toString")
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.String(sym.String()))
	})
	ctx.Method(proto, "valueOf", 0, func(this value.Value, _ []value.Value) value.Completion {
		sym, c := thisSymbolValue(r, this, "valueOf")
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(sym)
	})
	ctx.Getter(proto, value.StringKey("description"), func(this value.Value, _ []value.Value) value.Completion {
		sym, c := thisSymbolValue(r, this, "description")
		if c.IsAbrupt() {
			return c
		}
		if !sym.HasDescription {
			return value.NormalCompletion(value.Undefined)
		}
		return value.NormalCompletion(value.String(sym.Description))
	})
	primitive := ctx.Function("[Symbol.toPrimitive]", 1, func(this value.Value, _ []value.Value) value.Completion {
		sym, c := thisSymbolValue(r, this, "[Symbol.toPrimitive]")
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(sym)
	})
	proto.DefineOwnProperty(value.SymbolKey(value.SymbolToPrimitive), value.Property{Value: primitive, Configurable: true})
	tag(proto, "Symbol")

	ctx.DefineGlobal("Symbol", ctor)
	return nil
}
