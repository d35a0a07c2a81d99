package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/nooga/cadence/pkg/errors"
	"github.com/nooga/cadence/pkg/value"
)

func recordJob(log *[]string, name string) JobFunc {
	return func([]value.Value) value.Completion {
		*log = append(*log, name)
		return value.Empty
	}
}

func TestJobQueueIsFIFO(t *testing.T) {
	a := NewAgent()
	var log []string
	for _, n := range []string{"a", "b", "c"} {
		a.EnqueueJob(PromiseJobs, recordJob(&log, n))
	}
	assert.Equal(t, 3, a.Pending())
	require.NoError(t, a.RunJobs(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, log)
	assert.Equal(t, 0, a.Pending())
}

func TestJobsEnqueuedByJobsRunAfterCurrentJob(t *testing.T) {
	a := NewAgent()
	var log []string
	a.EnqueueJob(PromiseJobs, func([]value.Value) value.Completion {
		log = append(log, "first:start")
		a.EnqueueJob(PromiseJobs, recordJob(&log, "nested"))
		log = append(log, "first:end")
		return value.Empty
	})
	a.EnqueueJob(PromiseJobs, recordJob(&log, "second"))
	require.NoError(t, a.RunJobs(context.Background()))
	assert.Equal(t, []string{"first:start", "first:end", "second", "nested"}, log)
}

func TestRunJobsRoundRobinAcrossQueues(t *testing.T) {
	a := NewAgent(WithQueues("Timers"))
	var log []string
	a.EnqueueJob(PromiseJobs, recordJob(&log, "p1"))
	a.EnqueueJob(PromiseJobs, recordJob(&log, "p2"))
	a.EnqueueJob("Timers", recordJob(&log, "t1"))
	a.EnqueueJob("Timers", recordJob(&log, "t2"))
	require.NoError(t, a.RunJobs(context.Background()))
	assert.Equal(t, []string{"p1", "t1", "p2", "t2"}, log)
}

func TestEnqueueUnknownQueuePanics(t *testing.T) {
	a := NewAgent()
	assert.PanicsWithError(t, `engine invariant violated: unknown job queue "Nope"`, func() {
		a.EnqueueJob("Nope", recordJob(new([]string), "x"))
	})
}

func TestUncaughtThrowIsReportedAndLoopContinues(t *testing.T) {
	var uncaught []value.Value
	a := NewAgent(WithHooks(Hooks{OnUncaughtException: func(v value.Value) {
		uncaught = append(uncaught, v)
	}}))
	var log []string
	a.EnqueueJob(ScriptJobs, func([]value.Value) value.Completion {
		return value.ThrowCompletion(value.String("boom"))
	})
	a.EnqueueJob(ScriptJobs, recordJob(&log, "after"))
	require.NoError(t, a.RunJobs(context.Background()))
	assert.Equal(t, []value.Value{value.String("boom")}, uncaught)
	assert.Equal(t, []string{"after"}, log)
}

func TestInvariantViolationAbortsJob(t *testing.T) {
	a := NewAgent()
	a.EnqueueJob(PromiseJobs, func([]value.Value) value.Completion {
		value.Assert(false, "promise must be pending")
		return value.Empty
	})
	err := a.RunJobs(context.Background())
	var inv *cerrors.InvariantError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, "promise must be pending", inv.Message())
	assert.Equal(t, 0, a.StackDepth())
}

func TestMaxJobsStopsRunawayLoops(t *testing.T) {
	a := NewAgent(WithMaxJobs(10))
	var loop JobFunc
	loop = func([]value.Value) value.Completion {
		a.EnqueueJob(PromiseJobs, loop)
		return value.Empty
	}
	a.EnqueueJob(PromiseJobs, loop)
	err := a.RunJobs(context.Background())
	assert.True(t, errors.Is(err, ErrJobLimit))
	assert.Equal(t, 10, a.JobsRun())
}

func TestJobLimitLeavesRemainingJobsQueued(t *testing.T) {
	a := NewAgent(WithMaxJobs(1))
	var log []string
	a.EnqueueJob(PromiseJobs, recordJob(&log, "a"))
	a.EnqueueJob(PromiseJobs, recordJob(&log, "b"))

	err := a.RunJobs(context.Background())
	require.ErrorIs(t, err, ErrJobLimit)
	assert.Equal(t, []string{"a"}, log)
	assert.Equal(t, 1, a.Pending())

	// The limit applies to each call, so the next call picks up "b".
	require.NoError(t, a.RunJobs(context.Background()))
	assert.Equal(t, []string{"a", "b"}, log)
	assert.Zero(t, a.Pending())
	assert.Equal(t, 2, a.JobsRun())
}

func TestJobLimitNotReportedWhenQueueDrainsExactly(t *testing.T) {
	a := NewAgent(WithMaxJobs(2))
	var log []string
	a.EnqueueJob(PromiseJobs, recordJob(&log, "a"))
	a.EnqueueJob(PromiseJobs, recordJob(&log, "b"))
	require.NoError(t, a.RunJobs(context.Background()))
	assert.Equal(t, []string{"a", "b"}, log)
}

func TestStackDepthReadableWhileJobsRun(t *testing.T) {
	a := NewAgent()
	for i := 0; i < 200; i++ {
		a.EnqueueJob(PromiseJobs, func([]value.Value) value.Completion { return value.Empty })
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			assert.LessOrEqual(t, a.StackDepth(), 1)
		}
	}()
	require.NoError(t, a.RunJobs(context.Background()))
	<-done
	assert.Zero(t, a.StackDepth())
}

func TestJobRunsUnderEnqueueTimeRealm(t *testing.T) {
	a := NewAgent()
	realm := NewRealm(a)
	caller := &ExecutionContext{Realm: realm}
	a.PushContext(caller)
	var seen *Realm
	a.EnqueueJob(PromiseJobs, func([]value.Value) value.Completion {
		seen = a.CurrentRealm()
		return value.Empty
	}, value.Number(1))
	a.PopContext(caller)

	require.NoError(t, a.RunJobs(context.Background()))
	assert.Same(t, realm, seen)
	assert.Nil(t, a.RunningContext())
}

func TestRunJobsHonorsContextCancellation(t *testing.T) {
	a := NewAgent()
	var log []string
	a.EnqueueJob(PromiseJobs, recordJob(&log, "never"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, a.RunJobs(ctx), context.Canceled)
	assert.Empty(t, log)
}

func TestJobArgumentsArePassedThrough(t *testing.T) {
	a := NewAgent()
	var got []value.Value
	a.EnqueueJob(PromiseJobs, func(args []value.Value) value.Completion {
		got = args
		return value.Empty
	}, value.Number(1), value.String("x"))
	require.NoError(t, a.RunJobs(context.Background()))
	assert.Equal(t, []value.Value{value.Number(1), value.String("x")}, got)
}
