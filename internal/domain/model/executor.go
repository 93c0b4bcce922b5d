// Package model holds the single authoritative copy of the client state.
//
// Every write is applied on one goroutine, the Executor. Callers on other
// goroutines hand their writes off with Post (fire-and-forget) or PostWait
// (bounded wait). Observers are always invoked on the Executor goroutine and
// must not call PostWait themselves.
package model

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-remote/internal/bus"
)

// Executor applies model writes one at a time, in submission order.
type Executor struct {
	tasks *bus.Queue[func()]
}

// NewExecutor creates an executor. Call Run to start applying writes.
func NewExecutor() *Executor {
	return &Executor{
		tasks: bus.NewQueue[func()](),
	}
}

// Run applies submitted writes until ctx is done.
func (e *Executor) Run(ctx context.Context) error {
	for {
		task, err := e.tasks.Pop(ctx)
		if err != nil {
			return err
		}
		e.apply(task)
	}
}

func (e *Executor) apply(task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Model write panicked")
		}
	}()
	task()
}

// Post schedules fn without waiting for it.
func (e *Executor) Post(fn func()) {
	e.tasks.Push(fn)
}

// PostWait schedules fn and waits at most timeout for it to complete. It
// returns false when completion could not be confirmed in time; fn may still
// run later.
func (e *Executor) PostWait(timeout time.Duration, fn func()) bool {
	done := make(chan struct{})
	e.tasks.Push(func() {
		defer close(done)
		fn()
	})

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		log.Warn().Dur("timeout", timeout).Msg("Model write not confirmed in time")
		return false
	}
}

// Flush waits until every write submitted before the call has been applied.
func (e *Executor) Flush(timeout time.Duration) bool {
	return e.PostWait(timeout, func() {})
}
