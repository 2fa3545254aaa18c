// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package core

// admissionQueue is the single global FIFO of invocations waiting for a slot.
type admissionQueue struct {
	pending []*invocationRun
}

func (q *admissionQueue) push(run *invocationRun) {
	q.pending = append(q.pending, run)
}

func (q *admissionQueue) pop() (*invocationRun, bool) {
	if len(q.pending) == 0 {
		return nil, false
	}
	run := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return run, true
}

func (q *admissionQueue) len() int {
	return len(q.pending)
}
