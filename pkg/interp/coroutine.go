package interp

import (
	"context"
	stderrors "errors"

	"github.com/nooga/cadence/pkg/errors"
	"github.com/nooga/cadence/pkg/value"
)

// errCancelled unwinds a suspended coroutine whose interpreter was closed.
var errCancelled = stderrors.New("coroutine cancelled")

type stepKind uint8

const (
	stepYield stepKind = iota
	stepAwait
	stepDone
)

func (k stepKind) String() string {
	switch k {
	case stepYield:
		return "yield"
	case stepAwait:
		return "await"
	}
	return "done"
}

// step is what a coroutine hands back to its owner when it suspends or
// finishes.
type step struct {
	kind  stepKind
	value value.Value
	// raw marks a yield* step whose value is already an iterator result.
	raw        bool
	completion value.Completion
	panicked   any
}

// coroutine runs one generator or async activation on its own goroutine.
// Control moves over unbuffered channels, so either the owner or the
// coroutine runs, never both.
type coroutine struct {
	ctx      context.Context
	body     func(co *coroutine) value.Completion
	resume   chan value.Completion
	steps    chan step
	started  bool
	finished bool
}

func newCoroutine(ctx context.Context, body func(co *coroutine) value.Completion) *coroutine {
	return &coroutine{
		ctx:    ctx,
		body:   body,
		resume: make(chan value.Completion),
		steps:  make(chan step),
	}
}

// Resume runs the coroutine until its next suspension. The first call
// starts the body and ignores c. A panic inside the body is re-raised on
// the owner's goroutine.
func (co *coroutine) Resume(c value.Completion) step {
	if co.finished {
		panic(errors.Invariantf("resumed a finished coroutine"))
	}
	if !co.started {
		co.started = true
		go co.run()
	} else {
		co.resume <- c
	}
	s := <-co.steps
	if s.panicked != nil {
		panic(s.panicked)
	}
	return s
}

func (co *coroutine) run() {
	defer func() {
		if p := recover(); p != nil {
			if p == errCancelled {
				return
			}
			co.finished = true
			co.steps <- step{kind: stepDone, panicked: p}
		}
	}()
	c := co.body(co)
	co.finished = true
	co.steps <- step{kind: stepDone, completion: c}
}

// suspend hands a step to the owner and blocks until the next Resume.
func (co *coroutine) suspend(kind stepKind, v value.Value, raw bool) value.Completion {
	co.steps <- step{kind: kind, value: v, raw: raw}
	select {
	case c := <-co.resume:
		return c
	case <-co.ctx.Done():
		panic(errCancelled)
	}
}
