package builtins

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf16"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// stringIterator is the Internal slot of %StringIteratorPrototype% objects.
type stringIterator struct {
	runes []rune
	pos   int
}

// fromUnits decodes UTF-16 code units; unpaired surrogates become U+FFFD.
func fromUnits(units []uint16) string {
	return string(utf16.Decode(units))
}

func unitSlice(s string, start, end int) string {
	units := runtime.StringUnits(s)
	if start >= end {
		return ""
	}
	return fromUnits(units[start:end])
}

type StringInitializer struct{}

func (s *StringInitializer) Name() string {
	return "String"
}

func (s *StringInitializer) Priority() int {
	return PriorityString
}

// thisString implements RequireObjectCoercible(this) followed by ToString.
func thisString(r *runtime.Realm, this value.Value, method string) (string, value.Completion) {
	if value.IsNullish(this) {
		return "", r.ThrowTypeError("String.prototype.%s called on null or undefined", method)
	}
	return runtime.ToString(r, this)
}

// thisStringValue unwraps a string primitive or String wrapper.
func thisStringValue(r *runtime.Realm, this value.Value, method string) value.Completion {
	switch t := this.(type) {
	case value.String:
		return value.NormalCompletion(t)
	case *value.Object:
		if s, ok := t.Internal.(value.String); ok && t.Class == "String" {
			return value.NormalCompletion(s)
		}
	}
	return r.ThrowTypeError("String.prototype.%s requires that 'this' be a String", method)
}

func (s *StringInitializer) InitRuntime(ctx *RuntimeContext) error {
	r := ctx.Realm
	proto := value.NewObject(ctx.ObjectPrototype)
	proto.Class = "String"
	proto.Internal = value.String("")
	proto.DefineOwnProperty(value.StringKey("length"), value.Property{Value: value.Number(0)})
	r.SetIntrinsic("%String.prototype%", proto)

	toStr := func(args []value.Value) value.Completion {
		if len(args) == 0 {
			return value.NormalCompletion(value.String(""))
		}
		if sym, ok := args[0].(*value.Symbol); ok {
			return value.NormalCompletion(value.String(sym.String()))
		}
		str, c := runtime.ToString(r, args[0])
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.String(str))
	}
	ctor := ctx.Constructor("String", 1, proto,
		func(_ value.Value, args []value.Value) value.Completion { return toStr(args) },
		func(args []value.Value, newTarget *value.Object) value.Completion {
			c := toStr(args)
			if c.IsAbrupt() {
				return c
			}
			p, c2 := runtime.GetPrototypeFromConstructor(r, newTarget, "%String.prototype%")
			if c2.IsAbrupt() {
				return c2
			}
			wrapper, _ := runtime.ToObject(r, c.Value)
			wrapper.SetPrototype(p)
			units := runtime.StringUnits(string(c.Value.(value.String)))
			wrapper.DefineOwnProperty(value.StringKey("length"), value.Property{Value: value.Number(len(units))})
			return value.NormalCompletion(wrapper)
		})
	r.SetIntrinsic("%String%", ctor)

	ctx.Method(ctor, "fromCharCode", 1, func(_ value.Value, args []value.Value) value.Completion {
		units := make([]uint16, len(args))
		for i, a := range args {
			f, c := runtime.ToNumber(r, a)
			if c.IsAbrupt() {
				return c
			}
			units[i] = uint16(value.ToUint32(f))
		}
		return value.NormalCompletion(value.String(fromUnits(units)))
	})
	ctx.Method(ctor, "fromCodePoint", 1, func(_ value.Value, args []value.Value) value.Completion {
		var b strings.Builder
		for _, a := range args {
			f, c := runtime.ToNumber(r, a)
			if c.IsAbrupt() {
				return c
			}
			if f != math.Trunc(f) || f < 0 || f > 0x10FFFF {
				return r.ThrowRangeError("Invalid code point %s", value.NumberToString(f))
			}
			b.WriteRune(rune(f))
		}
		return value.NormalCompletion(value.String(b.String()))
	})

	ctx.Method(proto, "toString", 0, func(this value.Value, _ []value.Value) value.Completion {
		return thisStringValue(r, this, "toString")
	})
	ctx.Method(proto, "valueOf", 0, func(this value.Value, _ []value.Value) value.Completion {
		return thisStringValue(r, this, "valueOf")
	})

	// method wraps a String.prototype method body receiving the coerced
	// this string.
	method := func(name string, length int, fn func(str string, args []value.Value) value.Completion) {
		ctx.Method(proto, name, length, func(this value.Value, args []value.Value) value.Completion {
			str, c := thisString(r, this, name)
			if c.IsAbrupt() {
				return c
			}
			return fn(str, args)
		})
	}
	intArg := func(v value.Value) (float64, value.Completion) {
		f, c := runtime.ToNumber(r, v)
		if c.IsAbrupt() {
			return 0, c
		}
		return value.ToIntegerOrInfinity(f), value.Empty
	}
	strArg := func(v value.Value) (string, value.Completion) {
		return runtime.ToString(r, v)
	}

	method("charAt", 1, func(str string, args []value.Value) value.Completion {
		pos, c := intArg(runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		units := runtime.StringUnits(str)
		if pos < 0 || pos >= float64(len(units)) {
			return value.NormalCompletion(value.String(""))
		}
		return value.NormalCompletion(value.String(fromUnits(units[int(pos) : int(pos)+1])))
	})
	method("charCodeAt", 1, func(str string, args []value.Value) value.Completion {
		pos, c := intArg(runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		units := runtime.StringUnits(str)
		if pos < 0 || pos >= float64(len(units)) {
			return value.NormalCompletion(value.NaN)
		}
		return value.NormalCompletion(value.Number(units[int(pos)]))
	})
	method("codePointAt", 1, func(str string, args []value.Value) value.Completion {
		pos, c := intArg(runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		units := runtime.StringUnits(str)
		if pos < 0 || pos >= float64(len(units)) {
			return value.NormalCompletion(value.Undefined)
		}
		i := int(pos)
		if utf16.IsSurrogate(rune(units[i])) && i+1 < len(units) {
			if cp := utf16.DecodeRune(rune(units[i]), rune(units[i+1])); cp != unicode.ReplacementChar {
				return value.NormalCompletion(value.Number(cp))
			}
		}
		return value.NormalCompletion(value.Number(units[i]))
	})
	method("at", 1, func(str string, args []value.Value) value.Completion {
		pos, c := intArg(runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		units := runtime.StringUnits(str)
		if pos < 0 {
			pos += float64(len(units))
		}
		if pos < 0 || pos >= float64(len(units)) {
			return value.NormalCompletion(value.Undefined)
		}
		return value.NormalCompletion(value.String(fromUnits(units[int(pos) : int(pos)+1])))
	})
	method("indexOf", 1, func(str string, args []value.Value) value.Completion {
		search, c := strArg(runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		pos, c := intArg(runtime.Arg(args, 1))
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.Number(unitIndexOf(runtime.StringUnits(str), runtime.StringUnits(search), pos)))
	})
	method("lastIndexOf", 1, func(str string, args []value.Value) value.Completion {
		search, c := strArg(runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		units, needle := runtime.StringUnits(str), runtime.StringUnits(search)
		from := float64(len(units))
		if n, c := runtime.ToNumber(r, runtime.Arg(args, 1)); c.IsAbrupt() {
			return c
		} else if !math.IsNaN(n) {
			from = value.ToIntegerOrInfinity(n)
		}
		start := int(math.Min(math.Max(from, 0), float64(len(units)-len(needle))))
		for i := start; i >= 0; i-- {
			if unitsHavePrefix(units[i:], needle) {
				return value.NormalCompletion(value.Number(i))
			}
		}
		return value.NormalCompletion(value.Number(-1))
	})
	method("includes", 1, func(str string, args []value.Value) value.Completion {
		if _, _, ok := asRegExp(runtime.Arg(args, 0)); ok {
			return r.ThrowTypeError("First argument to String.prototype.includes must not be a regular expression")
		}
		search, c := strArg(runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		pos, c := intArg(runtime.Arg(args, 1))
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.Bool(unitIndexOf(runtime.StringUnits(str), runtime.StringUnits(search), pos) >= 0))
	})
	edge := func(name string, atEnd bool) {
		method(name, 1, func(str string, args []value.Value) value.Completion {
			if _, _, ok := asRegExp(runtime.Arg(args, 0)); ok {
				return r.ThrowTypeError("First argument to String.prototype.%s must not be a regular expression", name)
			}
			search, c := strArg(runtime.Arg(args, 0))
			if c.IsAbrupt() {
				return c
			}
			units, needle := runtime.StringUnits(str), runtime.StringUnits(search)
			var pos float64
			if atEnd {
				pos = float64(len(units))
			}
			if p := runtime.Arg(args, 1); !value.IsUndefined(p) {
				pos, c = intArg(p)
				if c.IsAbrupt() {
					return c
				}
			}
			pos = math.Min(math.Max(pos, 0), float64(len(units)))
			if atEnd {
				start := int(pos) - len(needle)
				return value.NormalCompletion(value.Bool(start >= 0 && unitsHavePrefix(units[start:int(pos)], needle)))
			}
			return value.NormalCompletion(value.Bool(unitsHavePrefix(units[int(pos):], needle)))
		})
	}
	edge("startsWith", false)
	edge("endsWith", true)
	method("slice", 2, func(str string, args []value.Value) value.Completion {
		n := len(runtime.StringUnits(str))
		start, c := relativeIndex(r, runtime.Arg(args, 0), n, 0)
		if c.IsAbrupt() {
			return c
		}
		end, c := relativeIndex(r, runtime.Arg(args, 1), n, n)
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.String(unitSlice(str, start, end)))
	})
	method("substring", 2, func(str string, args []value.Value) value.Completion {
		n := float64(len(runtime.StringUnits(str)))
		start, c := intArg(runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		end := n
		if e := runtime.Arg(args, 1); !value.IsUndefined(e) {
			end, c = intArg(e)
			if c.IsAbrupt() {
				return c
			}
		}
		start, end = math.Min(math.Max(start, 0), n), math.Min(math.Max(end, 0), n)
		if start > end {
			start, end = end, start
		}
		return value.NormalCompletion(value.String(unitSlice(str, int(start), int(end))))
	})
	upper := cases.Upper(language.Und)
	lower := cases.Lower(language.Und)
	method("toUpperCase", 0, func(str string, _ []value.Value) value.Completion {
		return value.NormalCompletion(value.String(upper.String(str)))
	})
	method("toLowerCase", 0, func(str string, _ []value.Value) value.Completion {
		return value.NormalCompletion(value.String(lower.String(str)))
	})
	method("normalize", 0, func(str string, args []value.Value) value.Completion {
		form := "NFC"
		if f := runtime.Arg(args, 0); !value.IsUndefined(f) {
			s, c := strArg(f)
			if c.IsAbrupt() {
				return c
			}
			form = s
		}
		forms := map[string]norm.Form{"NFC": norm.NFC, "NFD": norm.NFD, "NFKC": norm.NFKC, "NFKD": norm.NFKD}
		f, ok := forms[form]
		if !ok {
			return r.ThrowRangeError("The normalization form should be one of NFC, NFD, NFKC, NFKD.")
		}
		return value.NormalCompletion(value.String(f.String(str)))
	})
	method("trim", 0, func(str string, _ []value.Value) value.Completion {
		return value.NormalCompletion(value.String(strings.TrimFunc(str, value.IsStrWhiteSpace)))
	})
	method("trimStart", 0, func(str string, _ []value.Value) value.Completion {
		return value.NormalCompletion(value.String(strings.TrimLeftFunc(str, value.IsStrWhiteSpace)))
	})
	method("trimEnd", 0, func(str string, _ []value.Value) value.Completion {
		return value.NormalCompletion(value.String(strings.TrimRightFunc(str, value.IsStrWhiteSpace)))
	})
	method("repeat", 1, func(str string, args []value.Value) value.Completion {
		n, c := intArg(runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		if n < 0 || math.IsInf(n, 1) {
			return r.ThrowRangeError("Invalid count value: %s", value.NumberToString(n))
		}
		if str == "" || n == 0 {
			return value.NormalCompletion(value.String(""))
		}
		if float64(len(str))*n > 1<<29 {
			return r.ThrowRangeError("Invalid string length")
		}
		return value.NormalCompletion(value.String(strings.Repeat(str, int(n))))
	})
	pad := func(name string, atStart bool) {
		method(name, 2, func(str string, args []value.Value) value.Completion {
			maxLen, c := intArg(runtime.Arg(args, 0))
			if c.IsAbrupt() {
				return c
			}
			filler := " "
			if f := runtime.Arg(args, 1); !value.IsUndefined(f) {
				filler, c = strArg(f)
				if c.IsAbrupt() {
					return c
				}
			}
			units, fill := runtime.StringUnits(str), runtime.StringUnits(filler)
			if maxLen <= float64(len(units)) || len(fill) == 0 {
				return value.NormalCompletion(value.String(str))
			}
			if maxLen > 1<<29 {
				return r.ThrowRangeError("Invalid string length")
			}
			need := int(maxLen) - len(units)
			padding := make([]uint16, 0, need)
			for len(padding) < need {
				padding = append(padding, fill[:min(len(fill), need-len(padding))]...)
			}
			if atStart {
				return value.NormalCompletion(value.String(fromUnits(append(padding, units...))))
			}
			return value.NormalCompletion(value.String(fromUnits(append(units, padding...))))
		})
	}
	pad("padStart", true)
	pad("padEnd", false)
	method("concat", 1, func(str string, args []value.Value) value.Completion {
		var b strings.Builder
		b.WriteString(str)
		for _, a := range args {
			s, c := strArg(a)
			if c.IsAbrupt() {
				return c
			}
			b.WriteString(s)
		}
		return value.NormalCompletion(value.String(b.String()))
	})
	method("split", 2, func(str string, args []value.Value) value.Completion {
		limit := uint32(math.MaxUint32)
		if l := runtime.Arg(args, 1); !value.IsUndefined(l) {
			f, c := runtime.ToNumber(r, l)
			if c.IsAbrupt() {
				return c
			}
			limit = value.ToUint32(f)
		}
		sepArg := runtime.Arg(args, 0)
		if _, rx, ok := asRegExp(sepArg); ok {
			return regExpSplit(r, rx, str, limit)
		}
		var parts []value.Value
		if value.IsUndefined(sepArg) {
			parts = []value.Value{value.String(str)}
		} else {
			sep, c := strArg(sepArg)
			if c.IsAbrupt() {
				return c
			}
			if sep == "" {
				for _, u := range runtime.StringUnits(str) {
					parts = append(parts, value.String(fromUnits([]uint16{u})))
				}
			} else {
				for _, p := range strings.Split(str, sep) {
					parts = append(parts, value.String(p))
				}
			}
		}
		if uint32(len(parts)) > limit {
			parts = parts[:limit]
		}
		return value.NormalCompletion(runtime.CreateArrayFromList(r, parts))
	})
	replace := func(name string, all bool) {
		method(name, 2, func(str string, args []value.Value) value.Completion {
			pattern, replacement := runtime.Arg(args, 0), runtime.Arg(args, 1)
			if rxObj, rx, ok := asRegExp(pattern); ok {
				if all && !rx.has('g') {
					return r.ThrowTypeError("replaceAll must be called with a global RegExp")
				}
				return regExpReplace(r, rxObj, rx, str, replacement)
			}
			search, c := strArg(pattern)
			if c.IsAbrupt() {
				return c
			}
			if !value.IsCallable(replacement) {
				s, c := strArg(replacement)
				if c.IsAbrupt() {
					return c
				}
				replacement = value.String(s)
			}
			units, needle := runtime.StringUnits(str), runtime.StringUnits(search)
			var positions []int
			for from := 0; from <= len(units); {
				pos := unitIndexOf(units, needle, float64(from))
				if pos < 0 {
					break
				}
				positions = append(positions, pos)
				if !all {
					break
				}
				from = pos + max(len(needle), 1)
			}
			var out []uint16
			last := 0
			for _, pos := range positions {
				out = append(out, units[last:pos]...)
				rep, c := substitution(r, replacement, str, search, pos, []value.Value{}, nil)
				if c.IsAbrupt() {
					return c
				}
				out = append(out, runtime.StringUnits(rep)...)
				last = pos + len(needle)
			}
			out = append(out, units[last:]...)
			return value.NormalCompletion(value.String(fromUnits(out)))
		})
	}
	replace("replace", false)
	replace("replaceAll", true)
	method("match", 1, func(str string, args []value.Value) value.Completion {
		pattern := runtime.Arg(args, 0)
		rxObj, rx, ok := asRegExp(pattern)
		if !ok {
			var src string
			if !value.IsUndefined(pattern) {
				s, c := strArg(pattern)
				if c.IsAbrupt() {
					return c
				}
				src = s
			}
			c := CreateRegExp(r, src, "")
			if c.IsAbrupt() {
				return c
			}
			rxObj, rx, _ = asRegExp(c.Value)
		}
		if !rx.has('g') {
			return regExpExec(r, rxObj, rx, str)
		}
		if c := runtime.Set(r, rxObj, value.StringKey("lastIndex"), value.Number(0), true); c.IsAbrupt() {
			return c
		}
		var matches []value.Value
		for {
			c := regExpExec(r, rxObj, rx, str)
			if c.IsAbrupt() {
				return c
			}
			m, ok := c.Value.(*value.Object)
			if !ok {
				break
			}
			got := m.Get(value.IndexKey(0), m)
			matches = append(matches, got.ValueOrUndefined())
			if got.ValueOrUndefined() == value.String("") {
				li := rxObj.Get(value.StringKey("lastIndex"), rxObj)
				n, _ := li.ValueOrUndefined().(value.Number)
				runtime.Set(r, rxObj, value.StringKey("lastIndex"), n+1, true)
			}
		}
		if matches == nil {
			return value.NormalCompletion(value.Null)
		}
		return value.NormalCompletion(runtime.CreateArrayFromList(r, matches))
	})
	method("localeCompare", 1, func(str string, args []value.Value) value.Completion {
		that, c := strArg(runtime.Arg(args, 0))
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.Number(strings.Compare(norm.NFC.String(str), norm.NFC.String(that))))
	})

	iterProto := value.NewObject(r.Intrinsic("%IteratorPrototype%"))
	ctx.Method(iterProto, "next", 0, func(this value.Value, _ []value.Value) value.Completion {
		obj, ok := this.(*value.Object)
		var it *stringIterator
		if ok {
			it, ok = obj.Internal.(*stringIterator)
		}
		if !ok {
			return r.ThrowTypeError("next method called on incompatible receiver %s", runtime.Describe(this))
		}
		if it.pos >= len(it.runes) {
			return value.NormalCompletion(runtime.CreateIterResultObject(r, value.Undefined, true))
		}
		ch := it.runes[it.pos]
		it.pos++
		return value.NormalCompletion(runtime.CreateIterResultObject(r, value.String(string(ch)), false))
	})
	tag(iterProto, "String Iterator")
	r.SetIntrinsic("%StringIteratorPrototype%", iterProto)
	ctx.SymbolMethod(proto, value.SymbolIterator, 0, func(this value.Value, _ []value.Value) value.Completion {
		str, c := thisString(r, this, "[Symbol.iterator]")
		if c.IsAbrupt() {
			return c
		}
		it := value.NewObject(iterProto)
		it.Internal = &stringIterator{runes: []rune(str)}
		return value.NormalCompletion(it)
	})

	ctx.DefineGlobal("String", ctor)
	return nil
}

func unitsHavePrefix(units, prefix []uint16) bool {
	if len(prefix) > len(units) {
		return false
	}
	for i, u := range prefix {
		if units[i] != u {
			return false
		}
	}
	return true
}

// unitIndexOf finds needle in units at or after from (clamped).
func unitIndexOf(units, needle []uint16, from float64) int {
	start := int(math.Min(math.Max(from, 0), float64(len(units))))
	for i := start; i+len(needle) <= len(units); i++ {
		if unitsHavePrefix(units[i:], needle) {
			return i
		}
	}
	return -1
}

// substitution computes one replacement: a replacer function is called
// with the match, captures, position and string; a template string expands
// $$, $&, $`, $', $n and $<name>.
func substitution(r *runtime.Realm, replacement value.Value, str, matched string, pos int, captures []value.Value, groups *value.Object) (string, value.Completion) {
	if value.IsCallable(replacement) {
		args := []value.Value{value.String(matched)}
		args = append(args, captures...)
		args = append(args, value.Number(pos), value.String(str))
		if groups != nil {
			args = append(args, groups)
		}
		c := runtime.Call(r, replacement, value.Undefined, args)
		if c.IsAbrupt() {
			return "", c
		}
		return runtime.ToString(r, c.ValueOrUndefined())
	}
	tmpl := string(replacement.(value.String))
	units := runtime.StringUnits(str)
	end := pos + len(runtime.StringUnits(matched))
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		ch := tmpl[i]
		if ch != '$' || i+1 >= len(tmpl) {
			b.WriteByte(ch)
			continue
		}
		next := tmpl[i+1]
		switch {
		case next == '$':
			b.WriteByte('$')
			i++
		case next == '&':
			b.WriteString(matched)
			i++
		case next == '`':
			b.WriteString(fromUnits(units[:pos]))
			i++
		case next == '\'':
			if end < len(units) {
				b.WriteString(fromUnits(units[end:]))
			}
			i++
		case next >= '0' && next <= '9':
			n := int(next - '0')
			width := 1
			if i+2 < len(tmpl) && tmpl[i+2] >= '0' && tmpl[i+2] <= '9' {
				if two := n*10 + int(tmpl[i+2]-'0'); two >= 1 && two <= len(captures) {
					n, width = two, 2
				}
			}
			if n < 1 || n > len(captures) {
				b.WriteByte(ch)
				continue
			}
			if s, ok := captures[n-1].(value.String); ok {
				b.WriteString(string(s))
			}
			i += width
		case next == '<' && groups != nil:
			close := strings.IndexByte(tmpl[i+2:], '>')
			if close < 0 {
				b.WriteByte(ch)
				continue
			}
			name := tmpl[i+2 : i+2+close]
			g := groups.Get(value.StringKey(name), groups)
			if s, ok := g.ValueOrUndefined().(value.String); ok {
				b.WriteString(string(s))
			}
			i += close + 2
		default:
			b.WriteByte(ch)
		}
	}
	return b.String(), value.Empty
}

// regExpReplace runs exec once, or repeatedly for global expressions, and
// splices the substitutions into str.
func regExpReplace(r *runtime.Realm, obj *value.Object, rx *regExp, str string, replacement value.Value) value.Completion {
	if !value.IsCallable(replacement) {
		s, c := runtime.ToString(r, replacement)
		if c.IsAbrupt() {
			return c
		}
		replacement = value.String(s)
	}
	global := rx.has('g')
	if global {
		if c := runtime.Set(r, obj, value.StringKey("lastIndex"), value.Number(0), true); c.IsAbrupt() {
			return c
		}
	}
	var results []*value.Object
	for {
		c := regExpExec(r, obj, rx, str)
		if c.IsAbrupt() {
			return c
		}
		m, ok := c.Value.(*value.Object)
		if !ok {
			break
		}
		results = append(results, m)
		if !global {
			break
		}
		if first := m.Get(value.IndexKey(0), m); first.ValueOrUndefined() == value.String("") {
			li := obj.Get(value.StringKey("lastIndex"), obj)
			n, _ := li.ValueOrUndefined().(value.Number)
			runtime.Set(r, obj, value.StringKey("lastIndex"), n+1, true)
		}
	}
	units := runtime.StringUnits(str)
	var out []uint16
	next := 0
	for _, m := range results {
		list, c := CreateListFromArrayLike(r, m)
		if c.IsAbrupt() {
			return c
		}
		matched, _ := list[0].(value.String)
		idx := m.Get(value.StringKey("index"), m)
		pos := int(idx.ValueOrUndefined().(value.Number))
		groups, _ := m.Get(value.StringKey("groups"), m).ValueOrUndefined().(*value.Object)
		rep, c := substitution(r, replacement, str, string(matched), pos, list[1:], groups)
		if c.IsAbrupt() {
			return c
		}
		if pos >= next {
			out = append(out, units[next:pos]...)
			out = append(out, runtime.StringUnits(rep)...)
			next = pos + len(runtime.StringUnits(string(matched)))
		}
	}
	if next < len(units) {
		out = append(out, units[next:]...)
	}
	return value.NormalCompletion(value.String(fromUnits(out)))
}

// regExpSplit splits str around matches of rx, including captures.
func regExpSplit(r *runtime.Realm, rx *regExp, str string, limit uint32) value.Completion {
	var parts []value.Value
	done := func() value.Completion {
		return value.NormalCompletion(runtime.CreateArrayFromList(r, parts))
	}
	if limit == 0 {
		return done()
	}
	runes := []rune(str)
	if len(runes) == 0 {
		m, err := rx.re.FindRunesMatchStartingAt(runes, 0)
		if err != nil {
			return r.ThrowRangeError("regular expression failed: %s", err)
		}
		if m == nil {
			parts = append(parts, value.String(str))
		}
		return done()
	}
	p, q := 0, 0
	for q < len(runes) {
		m, err := rx.re.FindRunesMatchStartingAt(runes, q)
		if err != nil {
			return r.ThrowRangeError("regular expression failed: %s", err)
		}
		if m == nil || m.Index >= len(runes) {
			break
		}
		e := m.Index + m.Length
		if e == p {
			q = m.Index + 1
			continue
		}
		parts = append(parts, value.String(string(runes[p:m.Index])))
		if uint32(len(parts)) >= limit {
			return done()
		}
		for _, g := range m.Groups()[1:] {
			var v value.Value = value.Undefined
			if len(g.Captures) > 0 {
				v = value.String(g.String())
			}
			parts = append(parts, v)
			if uint32(len(parts)) >= limit {
				return done()
			}
		}
		p, q = e, e
	}
	parts = append(parts, value.String(string(runes[p:])))
	return done()
}
