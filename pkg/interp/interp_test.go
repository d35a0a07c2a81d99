package interp_test

import (
	"context"
	goruntime "runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nooga/cadence/pkg/builtins"
	"github.com/nooga/cadence/pkg/interp"
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

func newInterpreter(t *testing.T, opts ...interp.Option) *interp.Interpreter {
	t.Helper()
	realm, err := builtins.NewRealm(runtime.NewAgent(), builtins.Options{})
	require.NoError(t, err)
	in := interp.New(realm, opts...)
	t.Cleanup(in.Close)
	return in
}

func eval(t *testing.T, in *interp.Interpreter, src string) value.Completion {
	t.Helper()
	c, err := in.EvaluateString(src)
	require.NoError(t, err)
	return c
}

func TestScriptCompletionValues(t *testing.T) {
	in := newInterpreter(t)
	tests := []struct {
		src  string
		want string
	}{
		{"1; 2;", "2"},
		{"3; var a = 1;", "3"},
		{"4; if (false) 5;", "undefined"},
		{"6; do { 7; break; } while (true);", "7"},
		{"8; try { 9; } finally { 10; }", "9"},
		{"l: { 11; break l; }", "11"},
		{"switch (1) { case 1: 12; }", "12"},
		{"", "undefined"},
	}
	for _, tt := range tests {
		c := eval(t, in, tt.src)
		require.False(t, c.IsAbrupt(), tt.src)
		assert.Equal(t, tt.want, builtins.Inspect(c.Value), tt.src)
	}
}

func TestGlobalLexicalConflictAcrossScripts(t *testing.T) {
	in := newInterpreter(t)
	require.False(t, eval(t, in, "let y = 1;").IsAbrupt())

	c := eval(t, in, "var y;")
	require.True(t, c.IsThrow())
	assert.Equal(t, "SyntaxError: Identifier 'y' has already been declared", builtins.ErrorSummary(c.Value))

	// Bindings from the first script stay visible.
	assert.Equal(t, "1", builtins.Inspect(eval(t, in, "y;").Value))
}

func TestMaxCallDepth(t *testing.T) {
	in := newInterpreter(t, interp.WithMaxCallDepth(16))
	c := eval(t, in, "function down(n) { return n === 0 ? 'bottom' : down(n - 1); } down(8);")
	require.False(t, c.IsAbrupt())
	assert.Equal(t, "bottom", builtins.Inspect(c.Value))

	c = eval(t, in, "down(32);")
	require.True(t, c.IsThrow())
	assert.Equal(t, "RangeError: Maximum call stack size exceeded", builtins.ErrorSummary(c.Value))
}

func TestGeneratorResumeFromGo(t *testing.T) {
	in := newInterpreter(t)
	c := eval(t, in, "function* g() { const x = yield 1; return x * 2; } g();")
	require.False(t, c.IsAbrupt())
	obj, ok := c.Value.(*value.Object)
	require.True(t, ok)
	gen, ok := obj.Internal.(builtins.Generator)
	require.True(t, ok)

	first := gen.Resume(value.Normal, value.Undefined)
	require.False(t, first.IsAbrupt())
	assert.Equal(t, "{ value: 1, done: false }", builtins.Inspect(first.Value))

	second := gen.Resume(value.Normal, value.Number(21))
	assert.Equal(t, "{ value: 42, done: true }", builtins.Inspect(second.Value))

	thrown := gen.Resume(value.Throw, value.String("late"))
	require.True(t, thrown.IsThrow())
	assert.Equal(t, value.String("late"), thrown.Value)
}

func TestCloseReleasesSuspendedCoroutines(t *testing.T) {
	realm, err := builtins.NewRealm(runtime.NewAgent(), builtins.Options{})
	require.NoError(t, err)
	in := interp.New(realm)

	before := goruntime.NumGoroutine()
	c, err := in.EvaluateString(`
		function* forever() { for (;;) yield 1; }
		const gens = [];
		for (let i = 0; i < 20; i++) { const g = forever(); g.next(); gens.push(g); }
		gens.length;
	`)
	require.NoError(t, err)
	require.False(t, c.IsAbrupt())
	assert.Equal(t, "20", builtins.Inspect(c.Value))
	assert.GreaterOrEqual(t, goruntime.NumGoroutine(), before+20)

	in.Close()
	require.Eventually(t, func() bool {
		return goruntime.NumGoroutine() <= before
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAsyncFunctionSettlesThroughJobs(t *testing.T) {
	agent := runtime.NewAgent()
	realm, err := builtins.NewRealm(agent, builtins.Options{})
	require.NoError(t, err)
	in := interp.New(realm)
	defer in.Close()

	c, err := in.EvaluateString("async function f(x) { return (await x) + 1; } f(Promise.resolve(1));")
	require.NoError(t, err)
	require.False(t, c.IsAbrupt())
	assert.Equal(t, "Promise { <pending> }", builtins.Inspect(c.Value))
	assert.Positive(t, agent.Pending())

	require.NoError(t, agent.RunJobs(context.Background()))
	assert.Equal(t, "Promise { 2 }", builtins.Inspect(c.Value))
	assert.Zero(t, agent.Pending())
}

func TestThrowInReactionRejectsDerivedPromise(t *testing.T) {
	var uncaught []string
	agent := runtime.NewAgent(runtime.WithHooks(runtime.Hooks{
		OnUncaughtException: func(v value.Value) { uncaught = append(uncaught, builtins.ErrorSummary(v)) },
	}))
	realm, err := builtins.NewRealm(agent, builtins.Options{})
	require.NoError(t, err)
	in := interp.New(realm)
	defer in.Close()

	_, err = in.EvaluateString(`Promise.resolve().then(() => { throw new TypeError("late"); });`)
	require.NoError(t, err)
	require.NoError(t, agent.RunJobs(context.Background()))
	// The reaction job rejects its derived promise instead of throwing.
	assert.Empty(t, uncaught)
}

func TestReferencesThroughGo(t *testing.T) {
	in := newInterpreter(t)
	r := in.Realm()
	obj := value.NewObject(r.Intrinsic("%Object.prototype%"))

	ref := &interp.Reference{Base: obj, Name: value.StringKey("k")}
	require.True(t, ref.IsPropertyReference())
	require.False(t, interp.PutValue(r, ref, value.Number(7)).IsAbrupt())
	got := interp.GetValue(r, ref)
	require.False(t, got.IsAbrupt())
	assert.Equal(t, value.Number(7), got.Value)
	assert.Equal(t, value.StringKey("k"), interp.GetReferencedName(ref))

	missing := &interp.Reference{Name: value.StringKey("nowhere")}
	require.True(t, missing.IsUnresolvable())
	c := interp.GetValue(r, missing)
	require.True(t, c.IsThrow())
	assert.Equal(t, "ReferenceError: nowhere is not defined", builtins.ErrorSummary(c.Value))
	assert.True(t, interp.PutValue(r, missing, value.Undefined).IsThrow())

	nullBase := &interp.Reference{Base: value.Null, Name: value.StringKey("x")}
	assert.True(t, interp.GetValue(r, nullBase).IsThrow())
}
