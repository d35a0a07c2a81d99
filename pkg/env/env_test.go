package env

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nooga/cadence/pkg/value"
)

func TestDeclarativeTemporalDeadZone(t *testing.T) {
	d := NewDeclarative(nil)
	require.NoError(t, d.CreateMutableBinding("x", false))

	_, err := d.GetBindingValue("x", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUninitialized))
	assert.True(t, IsReferenceError(err))
	assert.Equal(t, "cannot access 'x' before initialization", err.Error())

	err = d.SetMutableBinding("x", value.Number(1), true)
	assert.True(t, errors.Is(err, ErrUninitialized))

	require.NoError(t, d.InitializeBinding("x", value.Number(1)))
	v, err := d.GetBindingValue("x", true)
	require.NoError(t, err)
	assert.Equal(t, value.Number(1), v)
}

func TestDeclarativeConstAssignment(t *testing.T) {
	d := NewDeclarative(nil)
	require.NoError(t, d.CreateImmutableBinding("c", true))
	require.NoError(t, d.InitializeBinding("c", value.String("a")))

	err := d.SetMutableBinding("c", value.String("b"), true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConstAssignment))
	assert.False(t, IsReferenceError(err))

	var be *BindingError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "c", be.Name)
}

func TestDeclarativeRedeclaration(t *testing.T) {
	d := NewDeclarative(nil)
	require.NoError(t, d.CreateMutableBinding("x", false))
	err := d.CreateMutableBinding("x", false)
	assert.True(t, errors.Is(err, ErrAlreadyDeclared))
	assert.Equal(t, "x has already been declared", err.Error())
}

func TestIdentifierResolutionWalksOuterScopes(t *testing.T) {
	outer := NewDeclarative(nil)
	require.NoError(t, outer.CreateMutableBinding("a", false))
	inner := NewDeclarative(outer)

	found, err := GetIdentifierReference(inner, "a")
	require.NoError(t, err)
	assert.Same(t, outer, found)

	found, err = GetIdentifierReference(inner, "missing")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestFunctionThisBinding(t *testing.T) {
	fn := NewFunction(nil, nil, false, nil)
	_, err := fn.GetThisBinding()
	assert.True(t, IsReferenceError(err))

	require.NoError(t, fn.BindThisValue(value.Number(3)))
	this, err := fn.GetThisBinding()
	require.NoError(t, err)
	assert.Equal(t, value.Number(3), this)
	assert.Error(t, fn.BindThisValue(value.Number(4)))

	arrow := NewFunction(fn, nil, true, nil)
	assert.False(t, arrow.HasThisBinding())
	assert.Same(t, fn, GetThisEnvironment(arrow))
}

func TestGlobalRecords(t *testing.T) {
	global := value.NewObject(nil)
	global.CreateDataProperty(value.StringKey("existing"), value.Number(1))
	g := NewGlobal(global, global)

	ok, err := g.HasBinding("existing")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, g.CreateGlobalVarBinding("v", false))
	assert.True(t, g.HasVarDeclaration("v"))
	assert.True(t, global.HasOwnProperty(value.StringKey("v")))

	require.NoError(t, g.CreateMutableBinding("l", false))
	assert.True(t, g.HasLexicalDeclaration("l"))
	assert.False(t, global.HasOwnProperty(value.StringKey("l")))

	err = g.SetMutableBinding("undeclared", value.Null, true)
	assert.True(t, errors.Is(err, ErrNotDefined))

	global.DefineOwnProperty(value.StringKey("ro"), value.Property{Value: value.Number(1)})
	err = g.SetMutableBinding("ro", value.Number(2), true)
	assert.True(t, errors.Is(err, ErrReadOnly))
	assert.True(t, g.HasRestrictedGlobalProperty("ro"))
}

func TestGlobalAccessorThrowsThroughThrowError(t *testing.T) {
	global := value.NewObject(nil)
	getter := value.NewObject(nil)
	getter.CallFn = func(value.Value, []value.Value) value.Completion {
		return value.ThrowCompletion(value.String("boom"))
	}
	global.DefineOwnProperty(value.StringKey("trap"), value.Property{Accessor: true, Get: getter, Configurable: true})
	g := NewGlobal(global, global)

	_, err := g.GetBindingValue("trap", true)
	var te *ThrowError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, value.String("boom"), te.Completion.Value)
}
