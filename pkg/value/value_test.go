package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nooga/cadence/pkg/errors"
)

func TestNumberToString(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1, "1"},
		{-42, "-42"},
		{1.5, "1.5"},
		{0.1, "0.1"},
		{0.000001, "0.000001"},
		{1e-7, "1e-7"},
		{1.5e-7, "1.5e-7"},
		{123456789012345680000, "123456789012345680000"},
		{1e21, "1e+21"},
		{1.25e22, "1.25e+22"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, NumberToString(tt.in))
		})
	}
}

func TestStringToNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"  12  ", 12},
		{"0x1F", 31},
		{"0b101", 5},
		{"0o17", 15},
		{"1e3", 1000},
		{".5", 0.5},
		{"-Infinity", math.Inf(-1)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StringToNumber(tt.in), "input %q", tt.in)
	}
	for _, bad := range []string{"abc", "1_000", "0x", "12px", "inf", "0x1p3"} {
		assert.True(t, math.IsNaN(StringToNumber(bad)), "input %q", bad)
	}
}

func TestEqualityAlgorithms(t *testing.T) {
	negZero := Number(math.Copysign(0, -1))
	assert.False(t, SameValue(Number(0), negZero))
	assert.True(t, SameValueZero(Number(0), negZero))
	assert.True(t, IsStrictlyEqual(Number(0), negZero))

	assert.True(t, SameValue(NaN, NaN))
	assert.False(t, IsStrictlyEqual(NaN, NaN))

	s := NewSymbol("a")
	assert.True(t, SameValue(s, s))
	assert.False(t, SameValue(s, NewSymbol("a")))
	assert.False(t, IsStrictlyEqual(String("1"), Number(1)))
}

func TestToInt32(t *testing.T) {
	assert.Equal(t, int32(-1), ToInt32(4294967295))
	assert.Equal(t, uint32(4294967295), ToUint32(-1))
	assert.Equal(t, int32(0), ToInt32(math.NaN()))
	assert.Equal(t, int32(-2147483648), ToInt32(2147483648))
}

func TestCompletionCombinators(t *testing.T) {
	assert.False(t, Empty.IsAbrupt())
	assert.True(t, Empty.IsEmpty())
	assert.Equal(t, Undefined, Empty.ValueOrUndefined())

	br := BreakCompletion("outer")
	assert.True(t, br.IsAbrupt())
	assert.Equal(t, "outer", br.Target)
	assert.Equal(t, Number(3), UpdateEmpty(br, Number(3)).Value)

	thr := ThrowCompletion(String("boom"))
	assert.Equal(t, String("boom"), UpdateEmpty(thr, Number(3)).Value)

	assert.Equal(t, Number(1), MustNormal(NormalCompletion(Number(1))))
}

func TestMustNormalPanicsWithInvariantError(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		inv, ok := r.(*errors.InvariantError)
		require.True(t, ok, "panic value %T", r)
		assert.Contains(t, inv.Message(), "throw")
	}()
	MustNormal(ThrowCompletion(String("x")))
}

func TestOrdinaryObjectProperties(t *testing.T) {
	proto := NewObject(nil)
	proto.CreateDataProperty(StringKey("inherited"), Number(1))
	obj := NewObject(proto)

	assert.Equal(t, Number(1), MustNormal(obj.Get(StringKey("inherited"), obj)))
	assert.True(t, obj.HasProperty(StringKey("inherited")))
	assert.False(t, obj.HasOwnProperty(StringKey("inherited")))

	// Set on a receiver creates an own property and leaves the prototype alone.
	assert.Equal(t, True, MustNormal(obj.Set(StringKey("inherited"), Number(2), obj)))
	assert.Equal(t, Number(2), MustNormal(obj.Get(StringKey("inherited"), obj)))
	assert.Equal(t, Number(1), MustNormal(proto.Get(StringKey("inherited"), proto)))

	obj.DefineOwnProperty(StringKey("fixed"), Property{Value: Number(7)})
	assert.Equal(t, False, MustNormal(obj.Set(StringKey("fixed"), Number(8), obj)))
	assert.False(t, obj.Delete(StringKey("fixed")))
	assert.False(t, obj.DefineOwnProperty(StringKey("fixed"), DataProperty(Number(9))))
}

func TestOwnPropertyKeysOrder(t *testing.T) {
	obj := NewObject(nil)
	sym := NewSymbol("s")
	obj.CreateDataProperty(StringKey("b"), Undefined)
	obj.CreateDataProperty(SymbolKey(sym), Undefined)
	obj.CreateDataProperty(StringKey("10"), Undefined)
	obj.CreateDataProperty(StringKey("a"), Undefined)
	obj.CreateDataProperty(StringKey("2"), Undefined)

	keys := obj.OwnPropertyKeys()
	require.Len(t, keys, 5)
	assert.Equal(t, []PropertyKey{
		StringKey("2"), StringKey("10"), StringKey("b"), StringKey("a"), SymbolKey(sym),
	}, keys)
}

func TestAccessorProperties(t *testing.T) {
	obj := NewObject(nil)
	var stored Value = Number(0)
	getter := NewObject(nil)
	getter.CallFn = func(this Value, args []Value) Completion { return NormalCompletion(stored) }
	setter := NewObject(nil)
	setter.CallFn = func(this Value, args []Value) Completion {
		stored = args[0]
		return Empty
	}
	obj.DefineOwnProperty(StringKey("x"), Property{Accessor: true, Get: getter, Set: setter, Configurable: true})

	assert.Equal(t, True, MustNormal(obj.Set(StringKey("x"), Number(5), obj)))
	assert.Equal(t, Number(5), MustNormal(obj.Get(StringKey("x"), obj)))

	thrower := NewObject(nil)
	thrower.CallFn = func(this Value, args []Value) Completion { return ThrowCompletion(String("no")) }
	obj.DefineOwnProperty(StringKey("y"), Property{Accessor: true, Get: thrower})
	c := obj.Get(StringKey("y"), obj)
	assert.True(t, c.IsThrow())
	assert.Equal(t, String("no"), c.Value)
}

func TestArrayLength(t *testing.T) {
	arr := NewArray(nil, []Value{Number(1), Number(2), Number(3)})
	assert.Equal(t, 3, arr.Length())

	arr.CreateDataProperty(IndexKey(9), Number(10))
	assert.Equal(t, 10, arr.Length())

	MustNormal(arr.Set(StringKey("length"), Number(2), arr))
	assert.Equal(t, 2, arr.Length())
	assert.False(t, arr.HasOwnProperty(IndexKey(2)))
	assert.False(t, arr.HasOwnProperty(IndexKey(9)))
	assert.True(t, arr.HasOwnProperty(IndexKey(1)))
}

func TestSetPrototypeRejectsCycles(t *testing.T) {
	a := NewObject(nil)
	b := NewObject(a)
	assert.False(t, a.SetPrototype(b))
	assert.True(t, a.SetPrototype(nil))

	a.PreventExtensions()
	assert.False(t, a.SetPrototype(NewObject(nil)))
	assert.False(t, a.CreateDataProperty(StringKey("z"), Null))
}

func TestTypeOfAndToBoolean(t *testing.T) {
	fn := NewObject(nil)
	fn.CallFn = func(Value, []Value) Completion { return Empty }
	assert.Equal(t, "function", TypeOf(fn))
	assert.Equal(t, "object", TypeOf(Null))
	assert.Equal(t, "undefined", TypeOf(Undefined))
	assert.Equal(t, "symbol", TypeOf(NewSymbol("q")))

	assert.False(t, ToBoolean(NaN))
	assert.False(t, ToBoolean(String("")))
	assert.True(t, ToBoolean(NewObject(nil)))
}
