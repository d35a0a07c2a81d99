package builtins

import (
	"math"
	"strconv"
	"strings"

	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// formatExponent removes leading zeros from the exponent part,
// e.g. "1e+02" -> "1e+2", "1.5e-09" -> "1.5e-9"
func formatExponent(s string) string {
	eIdx := strings.IndexByte(s, 'e')
	if eIdx < 0 || eIdx >= len(s)-1 {
		return s
	}
	mantissa := s[:eIdx+1]
	expPart := s[eIdx+1:]
	sign := ""
	if expPart[0] == '+' || expPart[0] == '-' {
		sign = string(expPart[0])
		expPart = expPart[1:]
	}
	i := 0
	for i < len(expPart)-1 && expPart[i] == '0' {
		i++
	}
	return mantissa + sign + expPart[i:]
}

// formatToPrecision formats num with precision significant digits,
// switching to exponential notation when the exponent is below -6 or at
// least precision.
func formatToPrecision(num float64, precision int) string {
	if num == 0 {
		if precision == 1 {
			return "0"
		}
		return "0." + strings.Repeat("0", precision-1)
	}
	// Rounding can bump the exponent (9.99 -> 1.0e+1), so read it back
	// from the rounded exponential form.
	sci := strconv.FormatFloat(num, 'e', precision-1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -6 || exp >= precision {
		return formatExponent(sci)
	}
	return strconv.FormatFloat(num, 'f', max(precision-exp-1, 0), 64)
}

// formatRadix renders a finite number in base radix with up to 52
// fractional digits.
func formatRadix(f float64, radix int) string {
	neg := f < 0
	f = math.Abs(f)
	intPart := math.Floor(f)
	frac := f - intPart

	var digits []byte
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	if intPart == 0 {
		digits = append(digits, '0')
	}
	for intPart >= 1 {
		d := math.Mod(intPart, float64(radix))
		digits = append(digits, alphabet[int(d)])
		intPart = math.Floor(intPart / float64(radix))
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	if frac > 0 {
		digits = append(digits, '.')
		for n := 0; frac > 0 && n < 52; n++ {
			frac *= float64(radix)
			d := math.Floor(frac)
			digits = append(digits, alphabet[int(d)])
			frac -= d
		}
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

// thisNumberValue unwraps a number primitive or Number wrapper.
func thisNumberValue(r *runtime.Realm, this value.Value, method string) (float64, value.Completion) {
	switch t := this.(type) {
	case value.Number:
		return float64(t), value.Empty
	case *value.Object:
		if n, ok := t.Internal.(value.Number); ok && t.Class == "Number" {
			return float64(n), value.Empty
		}
	}
	return 0, r.ThrowTypeError("Number.prototype.%s requires that 'this' be a Number", method)
}

func nonFinite(f float64) (string, bool) {
	switch {
	case math.IsNaN(f):
		return "NaN", true
	case math.IsInf(f, 1):
		return "Infinity", true
	case math.IsInf(f, -1):
		return "-Infinity", true
	}
	return "", false
}

type NumberInitializer struct{}

func (n *NumberInitializer) Name() string {
	return "Number"
}

func (n *NumberInitializer) Priority() int {
	return PriorityNumber
}

func (n *NumberInitializer) InitRuntime(ctx *RuntimeContext) error {
	r := ctx.Realm
	proto := value.NewObject(ctx.ObjectPrototype)
	proto.Class = "Number"
	proto.Internal = value.Number(0)
	r.SetIntrinsic("%Number.prototype%", proto)

	toNum := func(args []value.Value) (float64, value.Completion) {
		if len(args) == 0 {
			return 0, value.Empty
		}
		return runtime.ToNumber(r, args[0])
	}
	ctor := ctx.Constructor("Number", 1, proto,
		func(_ value.Value, args []value.Value) value.Completion {
			f, c := toNum(args)
			if c.IsAbrupt() {
				return c
			}
			return value.NormalCompletion(value.Number(f))
		},
		func(args []value.Value, newTarget *value.Object) value.Completion {
			f, c := toNum(args)
			if c.IsAbrupt() {
				return c
			}
			obj, c := runtime.OrdinaryCreateFromConstructor(r, newTarget, "%Number.prototype%")
			if c.IsAbrupt() {
				return c
			}
			obj.Class = "Number"
			obj.Internal = value.Number(f)
			return value.NormalCompletion(obj)
		})
	r.SetIntrinsic("%Number%", ctor)

	Constant(ctor, "MAX_VALUE", value.Number(math.MaxFloat64))
	Constant(ctor, "MIN_VALUE", value.Number(math.SmallestNonzeroFloat64))
	Constant(ctor, "NaN", value.NaN)
	Constant(ctor, "POSITIVE_INFINITY", value.Number(math.Inf(1)))
	Constant(ctor, "NEGATIVE_INFINITY", value.Number(math.Inf(-1)))
	Constant(ctor, "MAX_SAFE_INTEGER", value.Number(1<<53-1))
	Constant(ctor, "MIN_SAFE_INTEGER", value.Number(-(1<<53 - 1)))
	Constant(ctor, "EPSILON", value.Number(math.Nextafter(1, 2)-1))

	// The static predicates never coerce their argument.
	predicate := func(name string, fn func(f float64) bool) {
		ctx.Method(ctor, name, 1, func(_ value.Value, args []value.Value) value.Completion {
			f, ok := runtime.Arg(args, 0).(value.Number)
			return value.NormalCompletion(value.Bool(ok && fn(float64(f))))
		})
	}
	isInteger := func(f float64) bool { return !math.IsInf(f, 0) && math.Trunc(f) == f }
	predicate("isNaN", math.IsNaN)
	predicate("isFinite", func(f float64) bool { return !math.IsInf(f, 0) && !math.IsNaN(f) })
	predicate("isInteger", isInteger)
	predicate("isSafeInteger", func(f float64) bool { return isInteger(f) && math.Abs(f) <= 1<<53-1 })

	ctx.Method(proto, "valueOf", 0, func(this value.Value, _ []value.Value) value.Completion {
		f, c := thisNumberValue(r, this, "valueOf")
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.Number(f))
	})
	ctx.Method(proto, "toString", 1, func(this value.Value, args []value.Value) value.Completion {
		f, c := thisNumberValue(r, this, "toString")
		if c.IsAbrupt() {
			return c
		}
		radix := 10.0
		if a := runtime.Arg(args, 0); !value.IsUndefined(a) {
			radix, c = runtime.ToNumber(r, a)
			if c.IsAbrupt() {
				return c
			}
			radix = value.ToIntegerOrInfinity(radix)
		}
		if radix < 2 || radix > 36 {
			return r.ThrowRangeError("toString() radix must be between 2 and 36")
		}
		if s, ok := nonFinite(f); ok || radix == 10 {
			if !ok {
				s = value.NumberToString(f)
			}
			return value.NormalCompletion(value.String(s))
		}
		return value.NormalCompletion(value.String(formatRadix(f, int(radix))))
	})
	ctx.Method(proto, "toLocaleString", 0, func(this value.Value, _ []value.Value) value.Completion {
		f, c := thisNumberValue(r, this, "toLocaleString")
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.String(value.NumberToString(f)))
	})

	digitsArg := func(v value.Value) (float64, value.Completion) {
		d, c := runtime.ToNumber(r, v)
		if c.IsAbrupt() {
			return 0, c
		}
		return value.ToIntegerOrInfinity(d), value.Empty
	}
	checkDigits := func(d, lo float64, method string) value.Completion {
		if d < lo || d > 100 {
			return r.ThrowRangeError("%s() digits argument must be between %d and 100", method, int(lo))
		}
		return value.Empty
	}
	ctx.Method(proto, "toFixed", 1, func(this value.Value, args []value.Value) value.Completion {
		f, c := thisNumberValue(r, this, "toFixed")
		if c.IsAbrupt() {
			return c
		}
		d, c := digitsArg(runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		if c := checkDigits(d, 0, "toFixed"); c.IsAbrupt() {
			return c
		}
		if s, ok := nonFinite(f); ok {
			return value.NormalCompletion(value.String(s))
		}
		if math.Abs(f) >= 1e21 {
			return value.NormalCompletion(value.String(value.NumberToString(f)))
		}
		return value.NormalCompletion(value.String(strconv.FormatFloat(f+0, 'f', int(d), 64)))
	})
	ctx.Method(proto, "toExponential", 1, func(this value.Value, args []value.Value) value.Completion {
		f, c := thisNumberValue(r, this, "toExponential")
		if c.IsAbrupt() {
			return c
		}
		fd := runtime.Arg(args, 0)
		d, c := digitsArg(fd)
		if c.IsAbrupt() {
			return c
		}
		if s, ok := nonFinite(f); ok {
			return value.NormalCompletion(value.String(s))
		}
		if c := checkDigits(d, 0, "toExponential"); c.IsAbrupt() {
			return c
		}
		prec := int(d)
		if value.IsUndefined(fd) {
			prec = -1
		}
		return value.NormalCompletion(value.String(formatExponent(strconv.FormatFloat(f+0, 'e', prec, 64))))
	})
	ctx.Method(proto, "toPrecision", 1, func(this value.Value, args []value.Value) value.Completion {
		f, c := thisNumberValue(r, this, "toPrecision")
		if c.IsAbrupt() {
			return c
		}
		p := runtime.Arg(args, 0)
		if value.IsUndefined(p) {
			return value.NormalCompletion(value.String(value.NumberToString(f)))
		}
		d, c := digitsArg(p)
		if c.IsAbrupt() {
			return c
		}
		if s, ok := nonFinite(f); ok {
			return value.NormalCompletion(value.String(s))
		}
		if c := checkDigits(d, 1, "toPrecision"); c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.String(formatToPrecision(f+0, int(d))))
	})

	ctx.DefineGlobal("Number", ctor)
	return nil
}
