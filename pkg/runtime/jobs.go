package runtime

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nooga/cadence/pkg/errors"
	"github.com/nooga/cadence/pkg/value"
)

// Queue names known to every agent.
const (
	PromiseJobs = "PromiseJobs"
	ScriptJobs  = "ScriptJobs"
)

// ErrJobLimit is returned by RunJobs when MaxJobs jobs have run in one call
// and more are queued.
var ErrJobLimit = stderrors.New("job limit exceeded")

// JobFunc is the deferred action of a job.
type JobFunc func(args []value.Value) value.Completion

// Job is an immutable deferred action bound to the execution context that
// was running when it was enqueued.
type Job struct {
	ID      uuid.UUID
	Queue   string
	Fn      JobFunc
	Args    []value.Value
	Context *ExecutionContext
}

// EnqueueJob appends a job to the named queue. Enqueueing to a queue the
// agent was not configured with is an engine defect.
func (a *Agent) EnqueueJob(queue string, fn JobFunc, args ...value.Value) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.queues[queue]; !ok {
		panic(errors.Invariantf("unknown job queue %q", queue))
	}
	job := &Job{
		ID:      uuid.New(),
		Queue:   queue,
		Fn:      fn,
		Args:    args,
		Context: a.runningContextLocked(),
	}
	a.queues[queue] = append(a.queues[queue], job)
	a.logger.Debug("job enqueued", "queue", queue, "job", job.ID, "pending", a.pendingLocked())
}

// Pending reports the number of queued jobs across all queues.
func (a *Agent) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pendingLocked()
}

func (a *Agent) pendingLocked() int {
	n := 0
	for _, q := range a.queues {
		n += len(q)
	}
	return n
}

// dequeue picks the next job round-robin over the configured queues so no
// non-empty queue waits behind another indefinitely.
func (a *Agent) dequeue() *Job {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := 0; i < len(a.order); i++ {
		name := a.order[(a.next+i)%len(a.order)]
		q := a.queues[name]
		if len(q) == 0 {
			continue
		}
		job := q[0]
		q[0] = nil
		a.queues[name] = q[1:]
		a.next = (a.next + i + 1) % len(a.order)
		return job
	}
	return nil
}

// RunJobs drains the job queues, running one job to completion at a time.
// An uncaught throw inside a job goes to Hooks.OnUncaughtException and does
// not stop the loop. RunJobs returns when every queue is empty, when ctx is
// done, when MaxJobs jobs have run in this call, or when a job hits an
// engine invariant violation. Jobs not yet run stay queued.
func (a *Agent) RunJobs(ctx context.Context) error {
	ran := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if a.MaxJobs > 0 && ran >= a.MaxJobs && a.Pending() > 0 {
			return fmt.Errorf("after %d jobs: %w", ran, ErrJobLimit)
		}
		job := a.dequeue()
		if job == nil {
			return nil
		}
		ran++
		a.jobsRun++
		if err := a.runJob(job); err != nil {
			return err
		}
	}
}

// JobsRun reports how many jobs this agent has run over its lifetime.
func (a *Agent) JobsRun() int { return a.jobsRun }

func (a *Agent) runJob(job *Job) (err error) {
	jobCtx := &ExecutionContext{ID: uuid.New()}
	if job.Context != nil {
		jobCtx.Realm = job.Context.Realm
		jobCtx.Function = job.Context.Function
	}
	depth := a.StackDepth()
	a.PushContext(jobCtx)
	defer func() {
		a.mu.Lock()
		clear(a.stack[depth:])
		a.stack = a.stack[:depth]
		a.mu.Unlock()
		if r := recover(); r != nil {
			inv, ok := r.(*errors.InvariantError)
			if !ok {
				panic(r)
			}
			a.logger.Error("job aborted", "queue", job.Queue, "job", job.ID, "err", inv)
			err = inv
		}
	}()

	if a.Hooks.OnJob != nil {
		a.Hooks.OnJob(job)
	}
	a.logger.Debug("job run", "queue", job.Queue, "job", job.ID)
	c := job.Fn(job.Args)
	if c.IsThrow() {
		a.ReportUncaught(c.Value)
	}
	return nil
}

// ReportUncaught hands an uncaught thrown value to the host hook.
func (a *Agent) ReportUncaught(v value.Value) {
	a.logger.Debug("uncaught exception", "value", v)
	if a.Hooks.OnUncaughtException != nil {
		a.Hooks.OnUncaughtException(v)
	}
}
