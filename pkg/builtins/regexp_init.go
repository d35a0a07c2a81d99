package builtins

import (
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// regExp is the Internal slot of RegExp objects. Matching runs on runes;
// lastIndex and reported indices are UTF-16 offsets.
type regExp struct {
	source string
	flags  string
	re     *regexp2.Regexp
}

func (x *regExp) has(flag byte) bool { return strings.IndexByte(x.flags, flag) >= 0 }

// RegExpInitializer implements the RegExp builtin on top of regexp2 in
// ECMAScript mode.
type RegExpInitializer struct{}

func (x *RegExpInitializer) Name() string {
	return "RegExp"
}

func (x *RegExpInitializer) Priority() int {
	return PriorityRegExp
}

func (x *RegExpInitializer) InitRuntime(ctx *RuntimeContext) error {
	r := ctx.Realm
	proto := value.NewObject(ctx.ObjectPrototype)
	r.SetIntrinsic("%RegExp.prototype%", proto)

	construct := func(args []value.Value, newTarget *value.Object) value.Completion {
		pattern, flags := runtime.Arg(args, 0), runtime.Arg(args, 1)
		var source string
		if obj, ok := pattern.(*value.Object); ok {
			if rx, ok := obj.Internal.(*regExp); ok {
				source = rx.source
				if value.IsUndefined(flags) {
					flags = value.String(rx.flags)
				}
			}
		}
		if source == "" && !value.IsUndefined(pattern) {
			s, c := runtime.ToString(r, pattern)
			if c.IsAbrupt() {
				return c
			}
			source = s
		}
		flagStr := ""
		if !value.IsUndefined(flags) {
			s, c := runtime.ToString(r, flags)
			if c.IsAbrupt() {
				return c
			}
			flagStr = s
		}
		proto, c := runtime.GetPrototypeFromConstructor(r, newTarget, "%RegExp.prototype%")
		if c.IsAbrupt() {
			return c
		}
		return regExpCreate(r, proto, source, flagStr)
	}
	var ctor *value.Object
	ctor = ctx.Constructor("RegExp", 2, proto,
		func(_ value.Value, args []value.Value) value.Completion { return construct(args, ctor) },
		construct)
	r.SetIntrinsic("%RegExp%", ctor)

	thisRegExp := func(this value.Value, method string) (*value.Object, *regExp, value.Completion) {
		obj, ok := this.(*value.Object)
		if ok {
			if rx, ok := obj.Internal.(*regExp); ok {
				return obj, rx, value.Empty
			}
		}
		return nil, nil, r.ThrowTypeError("RegExp.prototype.%s requires that 'this' be a RegExp object", method)
	}
	ctx.Method(proto, "exec", 1, func(this value.Value, args []value.Value) value.Completion {
		obj, rx, c := thisRegExp(this, "exec")
		if c.IsAbrupt() {
			return c
		}
		s, c := runtime.ToString(r, runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		return regExpExec(r, obj, rx, s)
	})
	ctx.Method(proto, "test", 1, func(this value.Value, args []value.Value) value.Completion {
		obj, rx, c := thisRegExp(this, "test")
		if c.IsAbrupt() {
			return c
		}
		s, c := runtime.ToString(r, runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		c = regExpExec(r, obj, rx, s)
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.Bool(!value.IsNull(c.Value)))
	})
	ctx.Method(proto, "toString", 0, func(this value.Value, _ []value.Value) value.Completion {
		_, rx, c := thisRegExp(this, "toString")
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.String("/" + rx.source + "/" + rx.flags))
	})
	ctx.Getter(proto, value.StringKey("source"), func(this value.Value, _ []value.Value) value.Completion {
		_, rx, c := thisRegExp(this, "source")
		if c.IsAbrupt() {
			return c
		}
		if rx.source == "" {
			return value.NormalCompletion(value.String("(?:)"))
		}
		return value.NormalCompletion(value.String(rx.source))
	})
	ctx.Getter(proto, value.StringKey("flags"), func(this value.Value, _ []value.Value) value.Completion {
		_, rx, c := thisRegExp(this, "flags")
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.String(rx.flags))
	})
	for _, f := range []struct {
		name string
		flag byte
	}{{"dotAll", 's'}, {"global", 'g'}, {"ignoreCase", 'i'}, {"multiline", 'm'}, {"sticky", 'y'}, {"unicode", 'u'}} {
		name, flag := f.name, f.flag
		ctx.Getter(proto, value.StringKey(name), func(this value.Value, _ []value.Value) value.Completion {
			_, rx, c := thisRegExp(this, name)
			if c.IsAbrupt() {
				return c
			}
			return value.NormalCompletion(value.Bool(rx.has(flag)))
		})
	}

	ctx.DefineGlobal("RegExp", ctor)
	return nil
}

// CreateRegExp builds a RegExp object from literal source and flags.
func CreateRegExp(r *runtime.Realm, source, flags string) value.Completion {
	return regExpCreate(r, r.Intrinsic("%RegExp.prototype%"), source, flags)
}

func regExpCreate(r *runtime.Realm, proto *value.Object, source, flags string) value.Completion {
	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	for i := 0; i < len(flags); i++ {
		f := flags[i]
		if !strings.ContainsRune("gimsuy", rune(f)) || strings.IndexByte(flags[i+1:], f) >= 0 {
			return r.Throw("SyntaxError", "Invalid regular expression flags '%s'", flags)
		}
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		}
	}
	re, err := regexp2.Compile(source, opts)
	if err != nil {
		return r.Throw("SyntaxError", "Invalid regular expression: /%s/%s: %s", source, flags, err)
	}
	obj := value.NewObject(proto)
	obj.Class = "RegExp"
	obj.Internal = &regExp{source: source, flags: flags, re: re}
	obj.DefineOwnProperty(value.StringKey("lastIndex"), value.Property{Value: value.Number(0), Writable: true})
	return value.NormalCompletion(obj)
}

// runeToUnit converts a rune offset into a UTF-16 offset.
func runeToUnit(runes []rune, i int) int {
	n := 0
	for _, ch := range runes[:i] {
		n++
		if ch > 0xFFFF {
			n++
		}
	}
	return n
}

// unitToRune converts a UTF-16 offset into a rune offset, rounding up
// inside a surrogate pair.
func unitToRune(runes []rune, u int) int {
	n := 0
	for i, ch := range runes {
		if n >= u {
			return i
		}
		n++
		if ch > 0xFFFF {
			n++
		}
	}
	return len(runes)
}

// regExpExec implements RegExpBuiltinExec: it honors and updates
// lastIndex for global and sticky expressions and returns null or a match
// array with index, input and groups.
func regExpExec(r *runtime.Realm, obj *value.Object, rx *regExp, s string) value.Completion {
	global, sticky := rx.has('g'), rx.has('y')
	lastIndex := 0
	if global || sticky {
		c := obj.Get(value.StringKey("lastIndex"), obj)
		if c.IsAbrupt() {
			return c
		}
		f, c := runtime.ToNumber(r, c.ValueOrUndefined())
		if c.IsAbrupt() {
			return c
		}
		lastIndex = int(min(max(value.ToIntegerOrInfinity(f), 0), 1<<53))
	}
	runes := []rune(s)
	fail := func() value.Completion {
		if global || sticky {
			if c := runtime.Set(r, obj, value.StringKey("lastIndex"), value.Number(0), true); c.IsAbrupt() {
				return c
			}
		}
		return value.NormalCompletion(value.Null)
	}
	if lastIndex > len(runtime.StringUnits(s)) {
		return fail()
	}
	start := unitToRune(runes, lastIndex)
	m, err := rx.re.FindRunesMatchStartingAt(runes, start)
	if err != nil {
		return r.Throw("RangeError", "regular expression failed: %s", err)
	}
	if m == nil || (sticky && m.Index != start) {
		return fail()
	}
	end := runeToUnit(runes, m.Index+m.Length)
	if global || sticky {
		if c := runtime.Set(r, obj, value.StringKey("lastIndex"), value.Number(end), true); c.IsAbrupt() {
			return c
		}
	}
	return value.NormalCompletion(matchArray(r, m, runes, s))
}

func matchArray(r *runtime.Realm, m *regexp2.Match, runes []rune, input string) *value.Object {
	var elems []value.Value
	var named *value.Object
	for _, g := range m.Groups() {
		var v value.Value = value.Undefined
		if len(g.Captures) > 0 {
			v = value.String(g.String())
		}
		elems = append(elems, v)
		if g.Name != "" && (g.Name[0] < '0' || g.Name[0] > '9') {
			if named == nil {
				named = value.NewObject(nil)
			}
			named.CreateDataProperty(value.StringKey(g.Name), v)
		}
	}
	arr := runtime.CreateArrayFromList(r, elems)
	arr.CreateDataProperty(value.StringKey("index"), value.Number(runeToUnit(runes, m.Index)))
	arr.CreateDataProperty(value.StringKey("input"), value.String(input))
	if named != nil {
		arr.CreateDataProperty(value.StringKey("groups"), named)
	} else {
		arr.CreateDataProperty(value.StringKey("groups"), value.Undefined)
	}
	return arr
}

// asRegExp returns the RegExp slot of v, if any.
func asRegExp(v value.Value) (*value.Object, *regExp, bool) {
	obj, ok := v.(*value.Object)
	if !ok {
		return nil, nil, false
	}
	rx, ok := obj.Internal.(*regExp)
	return obj, rx, ok
}
