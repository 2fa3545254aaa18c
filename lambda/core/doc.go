// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package core schedules function invocations and drives each one through its
lifecycle.

# Event loop

A Scheduler owns a single event loop goroutine. Admission, state transitions,
counters and history are only mutated inside loop tasks. Supervisor events,
output chunks, timers and memory samples are posted into the loop, so no two
invocations ever interleave partway through an update.

# Lifecycle

	queued -> initializing -> running -> done
	                       \          \-> killed - timeout
	                        \          \-> killed - maxed memory
	                         \-> error (spawn failure)

An invocation is initializing from dispatch until its child sends the first
control message. The baseline memory sample is then taken, the invoke message
is sent, the timeout is armed and the memory poll starts. Whatever claims the
terminal status first wins; exiting on its own resolves to done whatever the
exit code. Bookkeeping for the slot happens once the process has exited.

# Admission

Invocations initializing or running count against MaxConcurrency. Excess
invocations wait in one global FIFO and are dispatched as slots free up.
*/
package core
