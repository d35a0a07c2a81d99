package builtins

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

type testRealm struct {
	r      *runtime.Realm
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newTestRealm(t *testing.T) *testRealm {
	t.Helper()
	tr := &testRealm{}
	r, err := NewRealm(runtime.NewAgent(), Options{Stdout: &tr.stdout, Stderr: &tr.stderr})
	require.NoError(t, err)
	tr.r = r
	return tr
}

// lookup resolves a dotted path such as "String.prototype.slice" from the
// global object.
func (tr *testRealm) lookup(t *testing.T, path string) value.Value {
	t.Helper()
	var v value.Value = tr.r.GlobalObject
	for _, name := range strings.Split(path, ".") {
		c := runtime.GetV(tr.r, v, value.StringKey(name))
		require.False(t, c.IsAbrupt(), "reading %s", name)
		v = c.ValueOrUndefined()
	}
	return v
}

func (tr *testRealm) callC(t *testing.T, path string, this value.Value, args ...value.Value) value.Completion {
	t.Helper()
	return runtime.Call(tr.r, tr.lookup(t, path), this, args)
}

func (tr *testRealm) call(t *testing.T, path string, this value.Value, args ...value.Value) value.Value {
	t.Helper()
	c := tr.callC(t, path, this, args...)
	require.False(t, c.IsAbrupt(), "%s threw %s", path, Inspect(c.Value))
	return c.ValueOrUndefined()
}

// throws calls path and returns the summary of the thrown error.
func (tr *testRealm) throws(t *testing.T, path string, this value.Value, args ...value.Value) string {
	t.Helper()
	c := tr.callC(t, path, this, args...)
	require.True(t, c.IsThrow(), "%s did not throw", path)
	return ErrorSummary(c.Value)
}

func (tr *testRealm) list(t *testing.T, v value.Value) []value.Value {
	t.Helper()
	items, c := CreateListFromArrayLike(tr.r, v)
	require.False(t, c.IsAbrupt())
	return items
}

func (tr *testRealm) object(t *testing.T, kv ...any) *value.Object {
	t.Helper()
	obj := value.NewObject(tr.r.Intrinsic("%Object.prototype%"))
	for i := 0; i < len(kv); i += 2 {
		obj.CreateDataProperty(value.StringKey(kv[i].(string)), kv[i+1].(value.Value))
	}
	return obj
}

func (tr *testRealm) regexp(t *testing.T, source, flags string) *value.Object {
	t.Helper()
	c := CreateRegExp(tr.r, source, flags)
	require.False(t, c.IsAbrupt())
	return c.Value.(*value.Object)
}

func strs(vs ...string) []value.Value {
	out := make([]value.Value, len(vs))
	for i, s := range vs {
		out[i] = value.String(s)
	}
	return out
}

func s(v string) value.Value  { return value.String(v) }
func n(v float64) value.Value { return value.Number(v) }

func TestStandardInitializersAreOrdered(t *testing.T) {
	inits := GetStandardInitializers()
	for i := 1; i < len(inits); i++ {
		assert.LessOrEqual(t, inits[i-1].Priority(), inits[i].Priority(), "%s before %s", inits[i-1].Name(), inits[i].Name())
	}
	assert.Equal(t, "Object", inits[0].Name())
}

func TestStringMethods(t *testing.T) {
	tr := newTestRealm(t)
	cases := []struct {
		method string
		this   string
		args   []value.Value
		want   value.Value
	}{
		{"slice", "hello", []value.Value{n(1), n(-1)}, s("ell")},
		{"substring", "hello", []value.Value{n(3), n(1)}, s("el")},
		{"padStart", "5", []value.Value{n(3), s("0")}, s("005")},
		{"padEnd", "ab", []value.Value{n(5), s("xy")}, s("abxyx")},
		{"at", "abc", []value.Value{n(-1)}, s("c")},
		{"charAt", "abc", []value.Value{n(5)}, s("")},
		{"indexOf", "hello", []value.Value{s("l")}, n(2)},
		{"lastIndexOf", "hello", []value.Value{s("l")}, n(3)},
		{"includes", "hello", []value.Value{s("ell")}, value.True},
		{"startsWith", "hello", []value.Value{s("llo"), n(2)}, value.True},
		{"endsWith", "hello", []value.Value{s("ll"), n(4)}, value.True},
		{"repeat", "ab", []value.Value{n(3)}, s("ababab")},
		{"trim", "  x \n", nil, s("x")},
		{"trimStart", "  x ", nil, s("x ")},
		{"toUpperCase", "abc", nil, s("ABC")},
		{"toLowerCase", "ÀB", nil, s("àb")},
		{"concat", "a", []value.Value{s("b"), n(1)}, s("ab1")},
		{"replace", "x-y-z", []value.Value{s("-"), s("+")}, s("x+y-z")},
		{"replaceAll", "x-y-z", []value.Value{s("-"), s("+")}, s("x+y+z")},
		{"replaceAll", "abc", []value.Value{s(""), s("-")}, s("-a-b-c-")},
		{"replace", "abc", []value.Value{s("b"), s("[$&$`$']")}, s("a[bac]c")},
		{"normalize", "e\u0301", nil, s("\u00e9")},
		{"normalize", "\u00e9", []value.Value{s("NFD")}, s("e\u0301")},
		{"codePointAt", "😀", []value.Value{n(0)}, n(0x1F600)},
		{"charCodeAt", "😀", []value.Value{n(0)}, n(0xD83D)},
	}
	for _, tc := range cases {
		t.Run(tc.method, func(t *testing.T) {
			got := tr.call(t, "String.prototype."+tc.method, s(tc.this), tc.args...)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStringErrors(t *testing.T) {
	tr := newTestRealm(t)
	assert.Equal(t, "RangeError: Invalid count value: -1", tr.throws(t, "String.prototype.repeat", s("a"), n(-1)))
	assert.Contains(t, tr.throws(t, "String.prototype.normalize", s("a"), s("NFX")), "RangeError")
	assert.Contains(t, tr.throws(t, "String.prototype.trim", value.Undefined), "TypeError")
	assert.Contains(t, tr.throws(t, "String.prototype.includes", s("a"), tr.regexp(t, "a", "")), "TypeError")
}

func TestStringSplit(t *testing.T) {
	tr := newTestRealm(t)
	split := func(this string, args ...value.Value) []value.Value {
		return tr.list(t, tr.call(t, "String.prototype.split", s(this), args...))
	}
	assert.Equal(t, strs("a", "b", "", "c"), split("a,b,,c", s(",")))
	assert.Equal(t, strs("a", "b"), split("a,b,c", s(","), n(2)))
	assert.Equal(t, strs("a", "b", "c"), split("abc", s("")))
	assert.Equal(t, strs("abc"), split("abc"))
	assert.Equal(t, strs("a", ",", "b"), split("a,b", tr.regexp(t, "(,)", "")))
	assert.Equal(t, strs("a", "b", "c"), split("a1b22c", tr.regexp(t, `\d+`, "")))
	assert.Equal(t, strs("a", "b"), split("ab", tr.regexp(t, "", "")))
}

func TestStringRegExpReplaceAndMatch(t *testing.T) {
	tr := newTestRealm(t)
	got := tr.call(t, "String.prototype.replace", s("me@host"), tr.regexp(t, `(\w+)@(\w+)`, ""), s("$2 at $1"))
	assert.Equal(t, s("host at me"), got)

	got = tr.call(t, "String.prototype.replace", s("a1b2"), tr.regexp(t, `\d`, "g"), s("#"))
	assert.Equal(t, s("a#b#"), got)

	var seen []value.Value
	replacer := runtime.CreateBuiltinFunction(tr.r, "replacer", 0, func(_ value.Value, args []value.Value) value.Completion {
		seen = append(seen, args...)
		return value.NormalCompletion(s("<" + string(args[1].(value.String)) + ">"))
	})
	got = tr.call(t, "String.prototype.replace", s("xay"), tr.regexp(t, "(a)", ""), replacer)
	assert.Equal(t, s("x<a>y"), got)
	assert.Equal(t, []value.Value{s("a"), s("a"), n(1), s("xay")}, seen)

	assert.Contains(t, tr.throws(t, "String.prototype.replaceAll", s("a"), tr.regexp(t, "a", ""), s("b")), "TypeError")

	matches := tr.call(t, "String.prototype.match", s("a1b22"), tr.regexp(t, `\d+`, "g"))
	assert.Equal(t, strs("1", "22"), tr.list(t, matches))
	assert.Equal(t, value.Null, tr.call(t, "String.prototype.match", s("abc"), tr.regexp(t, `\d`, "g")))
}

func TestStringIteratorYieldsCodePoints(t *testing.T) {
	tr := newTestRealm(t)
	items, c := runtime.IterableToList(tr.r, s("a😀b"))
	require.False(t, c.IsAbrupt())
	assert.Equal(t, strs("a", "😀", "b"), items)
}

func TestStringConstructor(t *testing.T) {
	tr := newTestRealm(t)
	assert.Equal(t, s("Symbol(x)"), tr.call(t, "String", value.Undefined, value.NewSymbol("x")))
	assert.Equal(t, s(""), tr.call(t, "String", value.Undefined))
	assert.Equal(t, s("AB"), tr.call(t, "String.fromCharCode", value.Undefined, n(65), n(66)))
	assert.Equal(t, s("😀"), tr.call(t, "String.fromCodePoint", value.Undefined, n(0x1F600)))
	assert.Contains(t, tr.throws(t, "String.fromCodePoint", value.Undefined, n(-1)), "RangeError")

	c := runtime.Construct(tr.r, tr.lookup(t, "String"), []value.Value{s("ab")}, nil)
	require.False(t, c.IsAbrupt())
	wrapper := c.Value.(*value.Object)
	assert.Equal(t, "[String: 'ab']", Inspect(wrapper))
	assert.Equal(t, s("ab"), tr.call(t, "String.prototype.valueOf", wrapper))
}

func TestNumberFormatting(t *testing.T) {
	tr := newTestRealm(t)
	cases := []struct {
		method string
		this   float64
		arg    value.Value
		want   string
	}{
		{"toString", 255, n(16), "ff"},
		{"toString", 0.5, n(2), "0.1"},
		{"toString", -255, n(36), "-73"},
		{"toString", 1e21, value.Undefined, "1e+21"},
		{"toFixed", 3.14159, n(2), "3.14"},
		{"toFixed", 1e21, n(2), "1e+21"},
		{"toFixed", 2, value.Undefined, "2"},
		{"toPrecision", 123.456, n(4), "123.5"},
		{"toPrecision", 0.000123, n(2), "0.00012"},
		{"toPrecision", 123456, n(2), "1.2e+5"},
		{"toPrecision", 9.99, n(2), "10"},
		{"toExponential", 12345, n(2), "1.23e+4"},
		{"toExponential", 0, value.Undefined, "0e+0"},
	}
	for _, tc := range cases {
		t.Run(tc.method+"/"+tc.want, func(t *testing.T) {
			assert.Equal(t, s(tc.want), tr.call(t, "Number.prototype."+tc.method, n(tc.this), tc.arg))
		})
	}
	assert.Contains(t, tr.throws(t, "Number.prototype.toString", n(1), n(1)), "RangeError")
	assert.Contains(t, tr.throws(t, "Number.prototype.toFixed", n(1), n(101)), "RangeError")
	assert.Contains(t, tr.throws(t, "Number.prototype.valueOf", s("1")), "TypeError")
}

func TestNumberStatics(t *testing.T) {
	tr := newTestRealm(t)
	assert.Equal(t, value.True, tr.call(t, "Number.isInteger", value.Undefined, n(5)))
	assert.Equal(t, value.False, tr.call(t, "Number.isInteger", value.Undefined, s("5")))
	assert.Equal(t, value.False, tr.call(t, "Number.isSafeInteger", value.Undefined, n(1<<53)))
	assert.Equal(t, value.False, tr.call(t, "Number.isNaN", value.Undefined, s("x")))
	assert.Equal(t, value.True, tr.call(t, "isNaN", value.Undefined, s("x")))
	assert.Equal(t, tr.lookup(t, "parseInt"), tr.lookup(t, "Number.parseInt"))
	assert.Equal(t, n(9007199254740991), tr.lookup(t, "Number.MAX_SAFE_INTEGER"))
}

func TestParseIntAndParseFloat(t *testing.T) {
	cases := []struct {
		in    string
		radix int32
		want  float64
	}{
		{"  0x1F", 0, 31},
		{"08", 0, 8},
		{"12px", 0, 12},
		{"-42", 0, -42},
		{"z", 36, 35},
		{"0x10", 16, 16},
		{"0x10", 10, 0},
		{"101", 2, 5},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseIntString(tc.in, tc.radix), "parseInt(%q, %d)", tc.in, tc.radix)
	}
	assert.True(t, math.IsNaN(parseIntString("", 0)))
	assert.True(t, math.IsNaN(parseIntString("1", 37)))

	assert.Equal(t, 3.14, parseFloatString("3.14abc"))
	assert.Equal(t, 5.0, parseFloatString(".5e1"))
	assert.Equal(t, 1.0, parseFloatString("1e"))
	assert.Equal(t, math.Inf(-1), parseFloatString(" -Infinityx"))
	assert.True(t, math.IsNaN(parseFloatString("e5")))
	assert.True(t, math.IsNaN(parseFloatString(".")))
}

func TestMath(t *testing.T) {
	tr := newTestRealm(t)
	assert.Equal(t, n(math.Inf(-1)), tr.call(t, "Math.max", value.Undefined))
	assert.True(t, math.IsNaN(float64(tr.call(t, "Math.max", value.Undefined, n(1), value.NaN).(value.Number))))
	assert.Equal(t, n(3), tr.call(t, "Math.round", value.Undefined, n(2.5)))
	assert.Equal(t, n(-2), tr.call(t, "Math.round", value.Undefined, n(-2.5)))
	negZero := tr.call(t, "Math.round", value.Undefined, n(-0.4)).(value.Number)
	assert.True(t, math.Signbit(float64(negZero)))
	assert.True(t, math.IsNaN(float64(tr.call(t, "Math.pow", value.Undefined, n(1), n(math.Inf(1))).(value.Number))))
	assert.Equal(t, n(5), tr.call(t, "Math.hypot", value.Undefined, n(3), n(4)))
	assert.True(t, math.Signbit(float64(tr.call(t, "Math.min", value.Undefined, n(0), n(math.Copysign(0, -1))).(value.Number))))
	assert.Equal(t, "Object [Math] {}", Inspect(tr.lookup(t, "Math")))
}

func TestSymbols(t *testing.T) {
	tr := newTestRealm(t)
	a := tr.call(t, "Symbol.for", value.Undefined, s("app"))
	b := tr.call(t, "Symbol.for", value.Undefined, s("app"))
	assert.Same(t, a, b)
	assert.Equal(t, s("app"), tr.call(t, "Symbol.keyFor", value.Undefined, a))
	assert.Equal(t, value.Undefined, tr.call(t, "Symbol.keyFor", value.Undefined, value.NewSymbol("app")))

	anon := tr.call(t, "Symbol", value.Undefined)
	assert.Equal(t, s("Symbol()"), tr.call(t, "Symbol.prototype.toString", anon))
	desc := tr.callC(t, "Symbol.prototype.toString", value.Undefined)
	assert.True(t, desc.IsThrow())
	assert.Same(t, value.SymbolIterator, tr.lookup(t, "Symbol.iterator"))

	c := runtime.Construct(tr.r, tr.lookup(t, "Symbol"), nil, nil)
	assert.True(t, c.IsThrow())
}

func TestBoolean(t *testing.T) {
	tr := newTestRealm(t)
	assert.Equal(t, value.False, tr.call(t, "Boolean", value.Undefined, s("")))
	assert.Equal(t, s("true"), tr.call(t, "Boolean.prototype.toString", value.True))
	c := runtime.Construct(tr.r, tr.lookup(t, "Boolean"), []value.Value{value.False}, nil)
	require.False(t, c.IsAbrupt())
	assert.Equal(t, "[Boolean: false]", Inspect(c.Value))
	assert.True(t, value.ToBoolean(c.Value))
}

func TestRegExpExecTracksLastIndexInUTF16(t *testing.T) {
	tr := newTestRealm(t)
	rx := tr.regexp(t, "a", "g")
	m := tr.call(t, "RegExp.prototype.exec", rx, s("😀a a"))
	mobj := m.(*value.Object)
	assert.Equal(t, n(2), value.MustNormal(mobj.Get(value.StringKey("index"), mobj)))
	assert.Equal(t, n(3), value.MustNormal(rx.Get(value.StringKey("lastIndex"), rx)))

	m = tr.call(t, "RegExp.prototype.exec", rx, s("😀a a"))
	mobj = m.(*value.Object)
	assert.Equal(t, n(4), value.MustNormal(mobj.Get(value.StringKey("index"), mobj)))

	assert.Equal(t, value.Null, tr.call(t, "RegExp.prototype.exec", rx, s("😀a a")))
	assert.Equal(t, n(0), value.MustNormal(rx.Get(value.StringKey("lastIndex"), rx)))
}

func TestRegExpNamedGroupsAndFlags(t *testing.T) {
	tr := newTestRealm(t)
	rx := tr.regexp(t, `(?<year>\d{4})-(?<month>\d{2})`, "")
	m := tr.call(t, "RegExp.prototype.exec", rx, s("on 2024-05")).(*value.Object)
	groups := value.MustNormal(m.Get(value.StringKey("groups"), m)).(*value.Object)
	assert.Equal(t, s("2024"), value.MustNormal(groups.Get(value.StringKey("year"), groups)))
	assert.Equal(t, s("/(?<year>\\d{4})-(?<month>\\d{2})/"), tr.call(t, "RegExp.prototype.toString", rx))

	sticky := tr.regexp(t, "b", "y")
	assert.Equal(t, value.False, tr.call(t, "RegExp.prototype.test", sticky, s("ab")))

	c := CreateRegExp(tr.r, "a", "gg")
	require.True(t, c.IsThrow())
	assert.Equal(t, "SyntaxError: Invalid regular expression flags 'gg'", ErrorSummary(c.Value))

	flags := tr.call(t, "RegExp", value.Undefined, s("x"), s("im"))
	assert.Equal(t, value.True, value.MustNormal(runtime.GetV(tr.r, flags, value.StringKey("ignoreCase"))))
	assert.Equal(t, value.False, value.MustNormal(runtime.GetV(tr.r, flags, value.StringKey("global"))))
}

func TestRegExpCompileFlags(t *testing.T) {
	tr := newTestRealm(t)
	test := func(rx *value.Object, input string) value.Value {
		return tr.call(t, "RegExp.prototype.test", rx, s(input))
	}
	assert.Equal(t, value.True, test(tr.regexp(t, "abc", "i"), "xABCx"))
	assert.Equal(t, value.False, test(tr.regexp(t, "abc", ""), "xABCx"))
	assert.Equal(t, value.True, test(tr.regexp(t, "^b$", "m"), "a\nb\nc"))
	assert.Equal(t, value.False, test(tr.regexp(t, "^b$", ""), "a\nb\nc"))
	assert.Equal(t, value.True, test(tr.regexp(t, "a.b", "s"), "a\nb"))
	assert.Equal(t, value.False, test(tr.regexp(t, "a.b", ""), "a\nb"))
	assert.Equal(t, value.True, test(tr.regexp(t, "^A.B$", "ims"), "x\na\nb"))
}

func TestArrayMethods(t *testing.T) {
	tr := newTestRealm(t)
	arr := func(vs ...value.Value) *value.Object { return runtime.CreateArrayFromList(tr.r, vs) }

	sorted := tr.call(t, "Array.prototype.sort", arr(n(10), n(9), n(1)))
	assert.Equal(t, []value.Value{n(1), n(10), n(9)}, tr.list(t, sorted))

	a := arr(n(1), n(2), n(3), n(4))
	removed := tr.call(t, "Array.prototype.splice", a, n(1), n(2), s("x"))
	assert.Equal(t, []value.Value{n(2), n(3)}, tr.list(t, removed))
	assert.Equal(t, []value.Value{n(1), s("x"), n(4)}, tr.list(t, a))

	assert.Equal(t, s("1-x-4"), tr.call(t, "Array.prototype.join", a, s("-")))
	assert.Equal(t, value.True, tr.call(t, "Array.prototype.includes", arr(value.NaN), value.NaN))
	assert.Equal(t, n(-1), tr.call(t, "Array.prototype.indexOf", arr(value.NaN), value.NaN))
	assert.Equal(t, value.True, tr.call(t, "Array.isArray", value.Undefined, a))
	assert.Contains(t, tr.throws(t, "Array.prototype.reduce", arr(), tr.lookup(t, "Math.max")), "TypeError")
}

func TestObjectKeysOrder(t *testing.T) {
	tr := newTestRealm(t)
	obj := tr.object(t, "b", n(1), "2", n(1), "a", n(1), "1", n(1))
	keys := tr.call(t, "Object.keys", value.Undefined, obj)
	assert.Equal(t, strs("1", "2", "b", "a"), tr.list(t, keys))

	frozen := tr.call(t, "Object.freeze", value.Undefined, tr.object(t, "x", n(1))).(*value.Object)
	c := runtime.Set(tr.r, frozen, value.StringKey("x"), n(2), true)
	assert.True(t, c.IsThrow())
}

func TestFunctionBind(t *testing.T) {
	tr := newTestRealm(t)
	var gotThis value.Value
	var gotArgs []value.Value
	f := runtime.CreateBuiltinFunction(tr.r, "f", 2, func(this value.Value, args []value.Value) value.Completion {
		gotThis, gotArgs = this, args
		return value.NormalCompletion(value.Undefined)
	})
	bound := tr.call(t, "Function.prototype.bind", f, s("self"), n(1))
	assert.Equal(t, "[Function: bound f]", Inspect(bound))
	length := value.MustNormal(runtime.GetV(tr.r, bound, value.StringKey("length")))
	assert.Equal(t, n(1), length)

	c := runtime.Call(tr.r, bound, value.Undefined, []value.Value{n(2)})
	require.False(t, c.IsAbrupt())
	assert.Equal(t, s("self"), gotThis)
	assert.Equal(t, []value.Value{n(1), n(2)}, gotArgs)
}

func TestErrorConstructors(t *testing.T) {
	tr := newTestRealm(t)
	opts := tr.object(t, "cause", s("root"))
	c := runtime.Construct(tr.r, tr.lookup(t, "TypeError"), []value.Value{s("bad"), opts}, nil)
	require.False(t, c.IsAbrupt())
	e := c.Value.(*value.Object)
	assert.Equal(t, s("root"), value.MustNormal(e.Get(value.StringKey("cause"), e)))
	assert.Equal(t, s("TypeError: bad"), tr.call(t, "Error.prototype.toString", e))
	assert.Equal(t, "TypeError: bad", ErrorSummary(e))
	assert.Equal(t, "[TypeError: bad]", Inspect(e))
	assert.Contains(t, tr.throws(t, "Function", value.Undefined, s("return 1")), "EvalError")
}

func TestInspect(t *testing.T) {
	tr := newTestRealm(t)
	arr := func(vs ...value.Value) *value.Object { return runtime.CreateArrayFromList(tr.r, vs) }

	circular := tr.object(t)
	circular.CreateDataProperty(value.StringKey("self"), circular)

	sparse := arr(n(1))
	sparse.CreateDataProperty(value.IndexKey(3), n(4))

	cases := []struct {
		name string
		in   value.Value
		want string
	}{
		{"string", s("hi"), "hi"},
		{"negative zero", n(math.Copysign(0, -1)), "-0"},
		{"symbol", value.NewSymbol("x"), "Symbol(x)"},
		{"nested arrays", arr(n(1), s("a"), arr(n(2), arr(n(3), arr(n(4))))), "[ 1, 'a', [ 2, [ 3, [Array] ] ] ]"},
		{"empty array", arr(), "[]"},
		{"object", tr.object(t, "a", n(1), "b-c", s("x")), "{ a: 1, 'b-c': 'x' }"},
		{"empty object", tr.object(t), "{}"},
		{"null prototype", value.NewObject(nil), "[Object: null prototype] {}"},
		{"circular", circular, "{ self: [Circular] }"},
		{"quotes", arr(s("it's")), `[ "it's" ]`},
		{"holes", sparse, "[ 1, <2 empty items>, 4 ]"},
		{"function", tr.lookup(t, "parseInt"), "[Function: parseInt]"},
		{"regexp", tr.regexp(t, "a+", "g"), "/a+/g"},
		{"fulfilled promise", tr.call(t, "Promise.resolve", tr.lookup(t, "Promise"), n(1)), "Promise { 1 }"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Inspect(tc.in))
		})
	}
}

func TestConsoleFormatting(t *testing.T) {
	tr := newTestRealm(t)
	tr.call(t, "console.log", value.Undefined, s("%s is %d%%"), s("x"), n(42), tr.object(t, "a", n(1)))
	tr.call(t, "console.group", value.Undefined, s("outer"))
	tr.call(t, "console.log", value.Undefined, s("inner"))
	tr.call(t, "console.groupEnd", value.Undefined)
	tr.call(t, "console.count", value.Undefined)
	tr.call(t, "console.count", value.Undefined)
	tr.call(t, "console.error", value.Undefined, s("oops"))

	assert.Equal(t, "x is 42% { a: 1 }\nouter\n  inner\ndefault: 1\ndefault: 2\n", tr.stdout.String())
	assert.Equal(t, "oops\n", tr.stderr.String())
}

func TestPromiseJobsRunInOrder(t *testing.T) {
	tr := newTestRealm(t)
	log := tr.lookup(t, "console.log")
	p := tr.call(t, "Promise.resolve", tr.lookup(t, "Promise"), s("then"))
	tr.call(t, "queueMicrotask", value.Undefined, runtime.CreateBuiltinFunction(tr.r, "", 0, func(value.Value, []value.Value) value.Completion {
		return runtime.Call(tr.r, log, value.Undefined, strs("microtask"))
	}))
	tr.call(t, "Promise.prototype.then", p, log)
	assert.Empty(t, tr.stdout.String())

	require.NoError(t, tr.r.Agent.RunJobs(context.Background()))
	assert.Equal(t, "microtask\nthen\n", tr.stdout.String())
	assert.Contains(t, tr.throws(t, "queueMicrotask", value.Undefined, n(1)), "TypeError")
}
