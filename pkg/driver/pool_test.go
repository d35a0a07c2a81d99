package driver_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nooga/cadence/pkg/driver"
	"github.com/nooga/cadence/pkg/errors"
)

func writeScripts(t *testing.T, scripts ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(scripts))
	for i, src := range scripts {
		paths[i] = filepath.Join(dir, fmt.Sprintf("script%d.js", i))
		require.NoError(t, os.WriteFile(paths[i], []byte(src), 0o644))
	}
	return paths
}

func TestRunBatchKeepsInputOrder(t *testing.T) {
	var scripts []string
	for i := 0; i < 8; i++ {
		scripts = append(scripts, fmt.Sprintf(`
			var shared = %d;
			Promise.resolve(shared).then(v => console.log("script", v));
		`, i))
	}
	paths := writeScripts(t, scripts...)

	results, err := driver.RunBatch(context.Background(), driver.DefaultConfig(), paths, 3, nil)
	require.NoError(t, err)
	require.Len(t, results, len(paths))
	for i, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, paths[i], res.Path)
		assert.NoError(t, res.Err)
		// Each script ran in its own engine, so no run saw another's binding.
		assert.Equal(t, fmt.Sprintf("script %d\n", i), string(res.Stdout))
		assert.Equal(t, 2, res.Result.JobsRun)
	}
}

func TestRunBatchReportsFailuresPerScript(t *testing.T) {
	paths := writeScripts(t,
		`console.log("fine");`,
		`throw new Error("bad script");`,
		`if (;`,
	)
	paths = append(paths, filepath.Join(t.TempDir(), "missing.js"))

	results, err := driver.RunBatch(context.Background(), driver.DefaultConfig(), paths, 2, nil)
	require.NoError(t, err)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "fine\n", string(results[0].Stdout))

	var ue *errors.UncaughtError
	require.True(t, stderrors.As(results[1].Err, &ue))
	assert.Equal(t, "Error: bad script", ue.Detail)

	var se *errors.SyntaxError
	assert.True(t, stderrors.As(results[2].Err, &se))

	assert.ErrorIs(t, results[3].Err, os.ErrNotExist)
}

func TestPoolStats(t *testing.T) {
	paths := writeScripts(t, `1;`, `throw 1;`, `2;`)
	pool := driver.NewPool(driver.DefaultConfig(), 2, nil)
	require.NoError(t, pool.Start(context.Background()))

	go func() {
		for i, p := range paths {
			assert.NoError(t, pool.Submit(p, i))
		}
		assert.NoError(t, pool.Shutdown(context.Background()))
	}()

	seen := 0
	for res := range pool.Results() {
		assert.Less(t, res.WorkerID, 2)
		seen++
	}
	assert.Equal(t, 3, seen)

	stats := pool.Stats()
	assert.Equal(t, 2, stats.WorkerCount)
	assert.Equal(t, 3, stats.TotalJobs)
	assert.Equal(t, 2, stats.CompletedJobs)
	assert.Equal(t, 1, stats.FailedJobs)
	assert.Zero(t, stats.ActiveJobs)
}

func TestPoolSubmitRacingShutdown(t *testing.T) {
	paths := writeScripts(t, `1;`)
	pool := driver.NewPool(driver.DefaultConfig(), 2, nil)
	require.NoError(t, pool.Start(context.Background()))

	var accepted atomic.Int32
	var submitters sync.WaitGroup
	for g := 0; g < 4; g++ {
		submitters.Add(1)
		go func() {
			defer submitters.Done()
			for i := 0; i < 25; i++ {
				err := pool.Submit(paths[0], i)
				if err != nil {
					assert.EqualError(t, err, "pool stopped")
					return
				}
				accepted.Add(1)
			}
		}()
	}
	go func() {
		assert.NoError(t, pool.Shutdown(context.Background()))
	}()

	seen := 0
	for range pool.Results() {
		seen++
	}
	submitters.Wait()

	assert.Equal(t, int(accepted.Load()), seen)
	stats := pool.Stats()
	assert.Equal(t, seen, stats.TotalJobs)
	assert.Zero(t, stats.ActiveJobs)
}

func TestPoolLifecycleErrors(t *testing.T) {
	pool := driver.NewPool(driver.DefaultConfig(), 1, nil)
	assert.EqualError(t, pool.Submit("x.js", 0), "pool not started")
	assert.EqualError(t, pool.Shutdown(context.Background()), "pool not started")

	require.NoError(t, pool.Start(context.Background()))
	assert.EqualError(t, pool.Start(context.Background()), "pool already started")

	require.NoError(t, pool.Shutdown(context.Background()))
	assert.EqualError(t, pool.Submit("x.js", 0), "pool stopped")
	assert.EqualError(t, pool.Shutdown(context.Background()), "pool already stopped")
}

func TestPoolRejectsInvalidConfig(t *testing.T) {
	cfg := driver.DefaultConfig()
	cfg.MaxJobs = -5
	pool := driver.NewPool(cfg, 1, nil)
	err := pool.Start(context.Background())
	assert.True(t, driver.IsConfigError(err))
}
