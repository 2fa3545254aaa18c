// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"
)

// ErrSchedulerStopped is returned by calls made after the scheduler loop exited.
var ErrSchedulerStopped = errors.New("scheduler stopped")

const taskBacklog = 256

// eventLoop runs posted tasks one at a time on a single goroutine. Every
// piece of scheduler state is only touched from inside a task, so tasks
// never interleave partway through a mutation.
type eventLoop struct {
	tasks   chan func()
	stopped chan struct{}
}

func newEventLoop() *eventLoop {
	return &eventLoop{
		tasks:   make(chan func(), taskBacklog),
		stopped: make(chan struct{}),
	}
}

// post queues task for the loop. It returns false once the loop has stopped.
// Must not be called from inside a task.
func (l *eventLoop) post(task func()) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}
	select {
	case l.tasks <- task:
		return true
	case <-l.stopped:
		return false
	}
}

// call runs task on the loop and waits for it to finish.
func (l *eventLoop) call(ctx context.Context, task func()) error {
	done := make(chan struct{})
	wrapped := func() {
		task()
		close(done)
	}
	select {
	case l.tasks <- wrapped:
	case <-l.stopped:
		return ErrSchedulerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-l.stopped:
		return ErrSchedulerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run executes tasks until ctx is done. Tasks still queued are dropped.
func (l *eventLoop) run(ctx context.Context) {
	defer close(l.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-l.tasks:
			task()
		}
	}
}
