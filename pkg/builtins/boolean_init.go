package builtins

import (
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

type BooleanInitializer struct{}

func (b *BooleanInitializer) Name() string {
	return "Boolean"
}

func (b *BooleanInitializer) Priority() int {
	return PriorityBoolean
}

func (b *BooleanInitializer) InitRuntime(ctx *RuntimeContext) error {
	r := ctx.Realm
	proto := value.NewObject(ctx.ObjectPrototype)
	proto.Class = "Boolean"
	proto.Internal = value.False
	r.SetIntrinsic("%Boolean.prototype%", proto)

	ctor := ctx.Constructor("Boolean", 1, proto,
		func(_ value.Value, args []value.Value) value.Completion {
			return value.NormalCompletion(value.Bool(value.ToBoolean(runtime.Arg(args, 0))))
		},
		func(args []value.Value, newTarget *value.Object) value.Completion {
			b := value.Bool(value.ToBoolean(runtime.Arg(args, 0)))
			obj, c := runtime.OrdinaryCreateFromConstructor(r, newTarget, "%Boolean.prototype%")
			if c.IsAbrupt() {
				return c
			}
			obj.Class = "Boolean"
			obj.Internal = b
			return value.NormalCompletion(obj)
		})
	r.SetIntrinsic("%Boolean%", ctor)

	thisBooleanValue := func(this value.Value, method string) (value.Value, value.Completion) {
		switch t := this.(type) {
		case value.Boolean:
			return t, value.Empty
		case *value.Object:
			if b, ok := t.Internal.(value.Boolean); ok && t.Class == "Boolean" {
				return b, value.Empty
			}
		}
		return nil, r.ThrowTypeError("Boolean.prototype.%s requires that 'this' be a Boolean", method)
	}
	ctx.Method(proto, "toString", 0, func(this value.Value, _ []value.Value) value.Completion {
		b, c := thisBooleanValue(this, "toString")
		if c.IsAbrupt() {
			return c
		}
		if b == value.True {
			return value.NormalCompletion(value.String("true"))
		}
		return value.NormalCompletion(value.String("false"))
	})
	ctx.Method(proto, "valueOf", 0, func(this value.Value, _ []value.Value) value.Completion {
		b, c := thisBooleanValue(this, "valueOf")
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(b)
	})

	ctx.DefineGlobal("Boolean", ctor)
	return nil
}
