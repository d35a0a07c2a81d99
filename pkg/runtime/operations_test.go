package runtime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nooga/cadence/pkg/value"
)

// bareRealm wires only the intrinsics the abstract operations consult.
func bareRealm(t *testing.T) *Realm {
	t.Helper()
	r := NewRealm(NewAgent())
	objProto := value.NewObject(nil)
	r.SetIntrinsic("%Object.prototype%", objProto)
	r.SetIntrinsic("%Function.prototype%", value.NewObject(objProto))
	r.SetIntrinsic("%Array.prototype%", value.NewObject(objProto))
	for _, name := range []string{"String", "Number", "Boolean", "Symbol", "Error", "TypeError", "ReferenceError", "RangeError"} {
		r.SetIntrinsic("%"+name+".prototype%", value.NewObject(objProto))
	}
	r.SetGlobalObject(value.NewObject(objProto))
	return r
}

func method(r *Realm, fn func(this value.Value, args []value.Value) value.Completion) *value.Object {
	return CreateBuiltinFunction(r, "m", 0, fn)
}

func TestToPrimitiveOrder(t *testing.T) {
	r := bareRealm(t)
	var calls []string
	obj := value.NewObject(r.Intrinsic("%Object.prototype%"))
	obj.SetMethod(value.StringKey("valueOf"), method(r, func(value.Value, []value.Value) value.Completion {
		calls = append(calls, "valueOf")
		return value.NormalCompletion(value.Number(42))
	}))
	obj.SetMethod(value.StringKey("toString"), method(r, func(value.Value, []value.Value) value.Completion {
		calls = append(calls, "toString")
		return value.NormalCompletion(value.String("str"))
	}))

	n, c := ToNumber(r, obj)
	require.False(t, c.IsAbrupt())
	assert.Equal(t, 42.0, n)

	s, c := ToString(r, obj)
	require.False(t, c.IsAbrupt())
	assert.Equal(t, "str", s)
	assert.Equal(t, []string{"valueOf", "toString"}, calls)
}

func TestToPrimitiveUsesToPrimitiveSymbol(t *testing.T) {
	r := bareRealm(t)
	obj := value.NewObject(nil)
	var hint value.Value
	obj.SetMethod(value.SymbolKey(value.SymbolToPrimitive), method(r, func(_ value.Value, args []value.Value) value.Completion {
		hint = args[0]
		return value.NormalCompletion(value.Number(7))
	}))
	v, c := ToPrimitive(r, obj, "default")
	require.False(t, c.IsAbrupt())
	assert.Equal(t, value.Number(7), v)
	assert.Equal(t, value.String("default"), hint)
}

func TestConversionsThrowTypeErrors(t *testing.T) {
	r := bareRealm(t)
	_, c := ToString(r, value.NewSymbol("s"))
	require.True(t, c.IsThrow())
	errObj := c.Value.(*value.Object)
	assert.Same(t, r.Intrinsic("%TypeError.prototype%"), errObj.Prototype())

	_, c = ToObject(r, value.Undefined)
	assert.True(t, c.IsThrow())

	c = Call(r, value.Number(1), value.Undefined, nil)
	require.True(t, c.IsThrow())
	msg := c.Value.(*value.Object).GetOwnProperty(value.StringKey("message"))
	assert.Equal(t, value.String("1 is not a function"), msg.Value)
}

func TestGetVOnStrings(t *testing.T) {
	r := bareRealm(t)
	c := GetV(r, value.String("héllo"), value.StringKey("length"))
	assert.Equal(t, value.Number(5), c.Value)
	c = GetV(r, value.String("abc"), value.StringKey("1"))
	assert.Equal(t, value.String("b"), c.Value)
	c = GetV(r, value.Null, value.StringKey("x"))
	assert.True(t, c.IsThrow())
}

func TestLooseEquality(t *testing.T) {
	r := bareRealm(t)
	cases := []struct {
		x, y value.Value
		want bool
	}{
		{value.Null, value.Undefined, true},
		{value.Number(1), value.String("1"), true},
		{value.True, value.Number(1), true},
		{value.String(""), value.Number(0), true},
		{value.Null, value.Number(0), false},
		{value.NaN, value.NaN, false},
	}
	for _, tc := range cases {
		got, c := IsLooselyEqual(r, tc.x, tc.y)
		require.False(t, c.IsAbrupt())
		assert.Equal(t, tc.want, got, "%v == %v", tc.x, tc.y)
	}
}

func TestIsLessThan(t *testing.T) {
	r := bareRealm(t)
	v, _ := IsLessThan(r, value.String("a"), value.String("b"), true)
	assert.Equal(t, value.True, v)
	v, _ = IsLessThan(r, value.Number(2), value.String("10"), true)
	assert.Equal(t, value.True, v)
	v, _ = IsLessThan(r, value.Number(math.NaN()), value.Number(1), true)
	assert.Equal(t, value.Undefined, v)
}

func TestSpeciesConstructor(t *testing.T) {
	r := bareRealm(t)
	def := CreateBuiltinConstructor(r, "Default", 0, nil, func([]value.Value, *value.Object) value.Completion { return value.Empty })
	obj := value.NewObject(nil)

	got, c := SpeciesConstructor(r, obj, def)
	require.False(t, c.IsAbrupt())
	assert.Same(t, def, got)

	ctor := value.NewObject(nil)
	obj.CreateDataProperty(value.StringKey("constructor"), ctor)
	species := CreateBuiltinConstructor(r, "Species", 0, nil, func([]value.Value, *value.Object) value.Completion { return value.Empty })
	ctor.CreateDataProperty(value.SymbolKey(value.SymbolSpecies), species)
	got, c = SpeciesConstructor(r, obj, def)
	require.False(t, c.IsAbrupt())
	assert.Same(t, species, got)

	ctor.CreateDataProperty(value.SymbolKey(value.SymbolSpecies), value.Number(1))
	_, c = SpeciesConstructor(r, obj, def)
	assert.True(t, c.IsThrow())
}

func TestIteratorCloseKeepsOriginalThrow(t *testing.T) {
	r := bareRealm(t)
	it := value.NewObject(nil)
	it.SetMethod(value.StringKey("return"), method(r, func(value.Value, []value.Value) value.Completion {
		return value.ThrowCompletion(value.String("from return"))
	}))
	rec := &IteratorRecord{Iterator: it}

	c := IteratorClose(r, rec, value.ThrowCompletion(value.String("original")))
	assert.Equal(t, value.String("original"), c.Value)

	c = IteratorClose(r, rec, value.Empty)
	assert.Equal(t, value.String("from return"), c.Value)
}

func TestIterableToListOverCustomIterator(t *testing.T) {
	r := bareRealm(t)
	n := 0
	it := value.NewObject(nil)
	it.SetMethod(value.StringKey("next"), method(r, func(value.Value, []value.Value) value.Completion {
		n++
		return value.NormalCompletion(CreateIterResultObject(r, value.Number(n), n > 3))
	}))
	iterable := value.NewObject(nil)
	iterable.SetMethod(value.SymbolKey(value.SymbolIterator), method(r, func(value.Value, []value.Value) value.Completion {
		return value.NormalCompletion(it)
	}))
	list, c := IterableToList(r, iterable)
	require.False(t, c.IsAbrupt())
	assert.Equal(t, []value.Value{value.Number(1), value.Number(2), value.Number(3)}, list)
}
