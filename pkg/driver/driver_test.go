package driver_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nooga/cadence/pkg/builtins"
	"github.com/nooga/cadence/pkg/driver"
	"github.com/nooga/cadence/pkg/errors"
	"github.com/nooga/cadence/pkg/runtime"
)

type session struct {
	engine *driver.Engine
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newSession(t *testing.T, cfg driver.Config, opts ...driver.Option) *session {
	t.Helper()
	s := &session{out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	opts = append([]driver.Option{driver.WithStdout(s.out), driver.WithStderr(s.errOut)}, opts...)
	e, err := driver.New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	s.engine = e
	return s
}

// TestJobTraces runs each script under testdata/traces with job markers
// interleaved into stdout and compares the result to its golden file.
func TestJobTraces(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "traces", "*.js"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		name := strings.TrimSuffix(filepath.Base(path), ".js")
		t.Run(name, func(t *testing.T) {
			var trace bytes.Buffer
			s := newSession(t, driver.DefaultConfig(), driver.WithStdout(&trace), driver.WithTrace(&trace))
			_, err := s.engine.RunFile(context.Background(), path)
			require.NoError(t, err)

			g := goldie.New(t,
				goldie.WithFixtureDir("testdata/golden"),
				goldie.WithNameSuffix(".golden"),
			)
			g.Assert(t, name, trace.Bytes())
		})
	}
}

func TestRunReturnsScriptValueAndJobCount(t *testing.T) {
	s := newSession(t, driver.DefaultConfig())
	res, err := s.engine.RunString(context.Background(), "Promise.resolve(1).then(x => x); 40 + 2;")
	require.NoError(t, err)
	assert.Equal(t, "42", builtins.Inspect(res.Value))
	assert.Equal(t, 2, res.JobsRun)
	assert.Zero(t, s.engine.Agent().Pending())
}

func TestBindingsPersistAcrossRuns(t *testing.T) {
	s := newSession(t, driver.DefaultConfig())
	_, err := s.engine.RunString(context.Background(), "let counter = 1; function bump() { return ++counter; }")
	require.NoError(t, err)
	res, err := s.engine.RunString(context.Background(), "bump(); bump();")
	require.NoError(t, err)
	assert.Equal(t, "3", builtins.Inspect(res.Value))
}

func TestSyntaxErrorIsReturnedBeforeRunning(t *testing.T) {
	s := newSession(t, driver.DefaultConfig())
	res, err := s.engine.RunString(context.Background(), "console.log('never');\nif (;")
	require.Error(t, err)
	assert.Nil(t, res)

	var se *errors.SyntaxError
	require.True(t, stderrors.As(err, &se))
	assert.Equal(t, 2, se.Line)
	assert.Empty(t, s.out.String())
	assert.Zero(t, s.engine.Agent().JobsRun())
}

func TestUncaughtThrowBecomesUncaughtError(t *testing.T) {
	s := newSession(t, driver.DefaultConfig())
	_, err := s.engine.RunString(context.Background(), `
		Promise.resolve().then(() => console.log("still runs"));
		throw new RangeError("out of range");
	`)
	var ue *errors.UncaughtError
	require.True(t, stderrors.As(err, &ue))
	assert.Equal(t, "RangeError: out of range", ue.Detail)
	assert.Equal(t, "Uncaught RangeError: out of range", err.Error())
	// Jobs enqueued before the throw still run.
	assert.Equal(t, "still runs\n", s.out.String())
}

func TestUnhandledRejectionModes(t *testing.T) {
	const src = `Promise.reject(new TypeError("nobody listens")); "done";`

	t.Run("warn", func(t *testing.T) {
		s := newSession(t, driver.DefaultConfig())
		res, err := s.engine.RunString(context.Background(), src)
		require.NoError(t, err)
		assert.Equal(t, "done", builtins.Inspect(res.Value))
		assert.Contains(t, s.errOut.String(), "Uncaught (in promise) TypeError: nobody listens\n")
	})

	t.Run("strict", func(t *testing.T) {
		cfg := driver.DefaultConfig()
		cfg.UnhandledRejections = driver.RejectionsStrict
		s := newSession(t, cfg)
		_, err := s.engine.RunString(context.Background(), src)
		var ue *errors.UncaughtError
		require.True(t, stderrors.As(err, &ue))
		assert.Equal(t, "(in promise) TypeError: nobody listens", ue.Detail)
	})

	t.Run("ignore", func(t *testing.T) {
		cfg := driver.DefaultConfig()
		cfg.UnhandledRejections = driver.RejectionsIgnore
		s := newSession(t, cfg)
		_, err := s.engine.RunString(context.Background(), src)
		require.NoError(t, err)
		assert.Empty(t, s.errOut.String())
	})

	t.Run("handled later in a job", func(t *testing.T) {
		cfg := driver.DefaultConfig()
		cfg.UnhandledRejections = driver.RejectionsStrict
		s := newSession(t, cfg)
		_, err := s.engine.RunString(context.Background(), `
			const p = Promise.reject(new Error("late"));
			Promise.resolve().then(() => p.catch(() => {}));
		`)
		require.NoError(t, err)
	})
}

func TestMaxJobsStopsRunawayScripts(t *testing.T) {
	cfg := driver.DefaultConfig()
	cfg.MaxJobs = 50
	s := newSession(t, cfg)
	_, err := s.engine.RunString(context.Background(), "function spin() { Promise.resolve().then(spin); } spin();")
	require.Error(t, err)
	assert.ErrorIs(t, err, runtime.ErrJobLimit)
}

func TestRunHonorsContextCancellation(t *testing.T) {
	s := newSession(t, driver.DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.engine.RunString(ctx, "1;")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessGlobal(t *testing.T) {
	s := newSession(t, driver.DefaultConfig(), driver.WithArgs([]string{"cadence", "script.js", "--flag"}))
	res, err := s.engine.RunString(context.Background(), `
		process.stdout.write("no newline");
		process.exitCode = 3;
		process.argv.length;
	`)
	require.NoError(t, err)
	assert.Equal(t, "3", builtins.Inspect(res.Value))
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "no newline", s.out.String())

	_, err = s.engine.RunString(context.Background(), "process.nextTick(42);")
	var ue *errors.UncaughtError
	require.True(t, stderrors.As(err, &ue))
	assert.Contains(t, ue.Detail, "TypeError")
}

func TestTraceJobsLogsEachJob(t *testing.T) {
	cfg := driver.DefaultConfig()
	cfg.TraceJobs = true
	cfg.LogLevel = "info"
	s := newSession(t, cfg)
	_, err := s.engine.RunString(context.Background(), "Promise.resolve().then(() => {});")
	require.NoError(t, err)
	logs := s.errOut.String()
	assert.Equal(t, 2, strings.Count(logs, "msg=job"))
	assert.Contains(t, logs, "queue=ScriptJobs")
	assert.Contains(t, logs, "queue=PromiseJobs")
}

func TestRunFileMissing(t *testing.T) {
	s := newSession(t, driver.DefaultConfig())
	_, err := s.engine.RunFile(context.Background(), filepath.Join(t.TempDir(), "missing.js"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
