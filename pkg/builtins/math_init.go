package builtins

import (
	"math"
	"math/rand"

	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

type MathInitializer struct{}

func (m *MathInitializer) Name() string {
	return "Math"
}

func (m *MathInitializer) Priority() int {
	return PriorityMath
}

// jsRound rounds half up toward +Infinity, keeping -0 for inputs in
// [-0.5, -0].
func jsRound(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f == math.Trunc(f) {
		return f
	}
	if f < 0 && f >= -0.5 {
		return math.Copysign(0, -1)
	}
	return math.Floor(f + 0.5)
}

func sign(f float64) float64 {
	switch {
	case math.IsNaN(f) || f == 0:
		return f
	case f > 0:
		return 1
	}
	return -1
}

func (m *MathInitializer) InitRuntime(ctx *RuntimeContext) error {
	r := ctx.Realm
	mathObj := value.NewObject(ctx.ObjectPrototype)
	tag(mathObj, "Math")

	for name, v := range map[string]float64{
		"PI": math.Pi, "E": math.E, "LN2": math.Ln2, "LN10": math.Ln10,
		"LOG2E": math.Log2E, "LOG10E": math.Log10E, "SQRT2": math.Sqrt2, "SQRT1_2": math.Sqrt2 / 2,
	} {
		Constant(mathObj, name, value.Number(v))
	}

	unary := []struct {
		name string
		fn   func(float64) float64
	}{
		{"abs", math.Abs}, {"floor", math.Floor}, {"ceil", math.Ceil}, {"round", jsRound},
		{"trunc", math.Trunc}, {"sign", sign}, {"sqrt", math.Sqrt}, {"cbrt", math.Cbrt},
		{"exp", math.Exp}, {"expm1", math.Expm1}, {"log", math.Log}, {"log2", math.Log2},
		{"log10", math.Log10}, {"log1p", math.Log1p}, {"sin", math.Sin}, {"cos", math.Cos},
		{"tan", math.Tan}, {"asin", math.Asin}, {"acos", math.Acos}, {"atan", math.Atan},
		{"sinh", math.Sinh}, {"cosh", math.Cosh}, {"tanh", math.Tanh},
		{"fround", func(f float64) float64 { return float64(float32(f)) }},
	}
	for _, u := range unary {
		fn := u.fn
		ctx.Method(mathObj, u.name, 1, func(_ value.Value, args []value.Value) value.Completion {
			f, c := runtime.ToNumber(r, runtime.Arg(args, 0))
			if c.IsAbrupt() {
				return c
			}
			return value.NormalCompletion(value.Number(fn(f)))
		})
	}

	numbers := func(args []value.Value) ([]float64, value.Completion) {
		out := make([]float64, len(args))
		for i, a := range args {
			f, c := runtime.ToNumber(r, a)
			if c.IsAbrupt() {
				return nil, c
			}
			out[i] = f
		}
		return out, value.Empty
	}
	ctx.Method(mathObj, "pow", 2, func(_ value.Value, args []value.Value) value.Completion {
		fs, c := numbers([]value.Value{runtime.Arg(args, 0), runtime.Arg(args, 1)})
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.Number(runtime.Exponentiate(fs[0], fs[1])))
	})
	ctx.Method(mathObj, "atan2", 2, func(_ value.Value, args []value.Value) value.Completion {
		fs, c := numbers([]value.Value{runtime.Arg(args, 0), runtime.Arg(args, 1)})
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.Number(math.Atan2(fs[0], fs[1])))
	})
	ctx.Method(mathObj, "hypot", 2, func(_ value.Value, args []value.Value) value.Completion {
		fs, c := numbers(args)
		if c.IsAbrupt() {
			return c
		}
		var sum float64
		for _, f := range fs {
			if math.IsInf(f, 0) {
				return value.NormalCompletion(value.Number(math.Inf(1)))
			}
			sum += f * f
		}
		return value.NormalCompletion(value.Number(math.Sqrt(sum)))
	})
	extreme := func(name string, start float64, better func(a, b float64) bool) {
		ctx.Method(mathObj, name, 2, func(_ value.Value, args []value.Value) value.Completion {
			fs, c := numbers(args)
			if c.IsAbrupt() {
				return c
			}
			result := start
			for _, f := range fs {
				if math.IsNaN(f) {
					return value.NormalCompletion(value.NaN)
				}
				if better(f, result) {
					result = f
				}
			}
			return value.NormalCompletion(value.Number(result))
		})
	}
	// -0 is considered smaller than +0.
	extreme("max", math.Inf(-1), func(a, b float64) bool {
		return a > b || (a == 0 && b == 0 && !math.Signbit(a) && math.Signbit(b))
	})
	extreme("min", math.Inf(1), func(a, b float64) bool {
		return a < b || (a == 0 && b == 0 && math.Signbit(a) && !math.Signbit(b))
	})
	ctx.Method(mathObj, "random", 0, func(value.Value, []value.Value) value.Completion {
		return value.NormalCompletion(value.Number(rand.Float64()))
	})

	ctx.DefineGlobal("Math", mathObj)
	return nil
}
