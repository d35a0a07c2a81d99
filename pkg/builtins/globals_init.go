package builtins

import (
	"math"
	"strconv"
	"strings"

	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// GlobalsInitializer installs the value properties and functions of the
// global object.
type GlobalsInitializer struct{}

func (g *GlobalsInitializer) Name() string {
	return "globals"
}

func (g *GlobalsInitializer) Priority() int {
	return PriorityGlobals
}

// parseIntString implements parseInt over an already converted string.
func parseIntString(s string, radix int32) float64 {
	s = strings.TrimLeftFunc(s, value.IsStrWhiteSpace)
	sign := 1.0
	if s != "" && (s[0] == '-' || s[0] == '+') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}
	stripPrefix := true
	if radix != 0 {
		if radix < 2 || radix > 36 {
			return math.NaN()
		}
		stripPrefix = radix == 16
	} else {
		radix = 10
	}
	if stripPrefix && len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
		radix = 16
	}
	end := 0
	for end < len(s) {
		d := digitValue(s[end])
		if d < 0 || d >= int(radix) {
			break
		}
		end++
	}
	if end == 0 {
		return math.NaN()
	}
	digits := s[:end]
	if radix == 10 {
		// Decimal digits round the way number literals do.
		f, _ := strconv.ParseFloat(digits, 64)
		return sign * f
	}
	var f float64
	for i := 0; i < len(digits); i++ {
		f = f*float64(radix) + float64(digitValue(digits[i]))
	}
	return sign * f
}

func digitValue(ch byte) int {
	switch {
	case ch >= '0' && ch <= '9':
		return int(ch - '0')
	case ch >= 'a' && ch <= 'z':
		return int(ch-'a') + 10
	case ch >= 'A' && ch <= 'Z':
		return int(ch-'A') + 10
	}
	return -1
}

// parseFloatString returns the value of the longest prefix of s that is a
// StrDecimalLiteral.
func parseFloatString(s string) float64 {
	s = strings.TrimLeftFunc(s, value.IsStrWhiteSpace)
	rest := s
	sign := ""
	if rest != "" && (rest[0] == '-' || rest[0] == '+') {
		sign, rest = rest[:1], rest[1:]
	}
	if strings.HasPrefix(rest, "Infinity") {
		if sign == "-" {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	i := 0
	digits := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
		digits++
	}
	if i < len(rest) && rest[i] == '.' {
		i++
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
			digits++
		}
	}
	if digits == 0 {
		return math.NaN()
	}
	if i < len(rest) && (rest[i] == 'e' || rest[i] == 'E') {
		j := i + 1
		if j < len(rest) && (rest[j] == '+' || rest[j] == '-') {
			j++
		}
		k := j
		for k < len(rest) && rest[k] >= '0' && rest[k] <= '9' {
			k++
		}
		if k > j {
			i = k
		}
	}
	f, err := strconv.ParseFloat(sign+rest[:i], 64)
	if err != nil && !math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}

func (g *GlobalsInitializer) InitRuntime(ctx *RuntimeContext) error {
	r := ctx.Realm
	global := ctx.Global

	ctx.DefineGlobal("globalThis", global)
	Constant(global, "Infinity", value.Number(math.Inf(1)))
	Constant(global, "NaN", value.NaN)
	Constant(global, "undefined", value.Undefined)

	parseInt := ctx.Function("parseInt", 2, func(_ value.Value, args []value.Value) value.Completion {
		s, c := runtime.ToString(r, runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		radix, c := runtime.ToNumber(r, runtime.Arg(args, 1))
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.Number(parseIntString(s, value.ToInt32(radix))))
	})
	parseFloat := ctx.Function("parseFloat", 1, func(_ value.Value, args []value.Value) value.Completion {
		s, c := runtime.ToString(r, runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.Number(parseFloatString(s)))
	})
	ctx.DefineGlobal("parseInt", parseInt)
	ctx.DefineGlobal("parseFloat", parseFloat)
	// Number.parseInt and Number.parseFloat are the same function objects.
	num := r.Intrinsic("%Number%")
	num.SetMethod(value.StringKey("parseInt"), parseInt)
	num.SetMethod(value.StringKey("parseFloat"), parseFloat)

	numberTest := func(name string, fn func(float64) bool) {
		ctx.DefineGlobal(name, ctx.Function(name, 1, func(_ value.Value, args []value.Value) value.Completion {
			f, c := runtime.ToNumber(r, runtime.Arg(args, 0))
			if c.IsAbrupt() {
				return c
			}
			return value.NormalCompletion(value.Bool(fn(f)))
		}))
	}
	numberTest("isNaN", math.IsNaN)
	numberTest("isFinite", func(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) })

	ctx.DefineGlobal("queueMicrotask", ctx.Function("queueMicrotask", 1, func(_ value.Value, args []value.Value) value.Completion {
		callback := runtime.Arg(args, 0)
		if !value.IsCallable(callback) {
			return r.ThrowTypeError("The \"callback\" argument must be of type function. Received %s", runtime.Describe(callback))
		}
		r.Agent.EnqueueJob(runtime.PromiseJobs, func([]value.Value) value.Completion {
			c := runtime.Call(r, callback, value.Undefined, nil)
			if c.IsAbrupt() {
				return c
			}
			return value.Empty
		})
		return value.NormalCompletion(value.Undefined)
	}))
	return nil
}
