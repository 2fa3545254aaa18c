// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

// Package sampler reads the current virtual memory size of a process.
//
// Figures are in KiB, the unit reported by ps(1) for vsize. Callers convert
// them to whole kilo-units for display.
package sampler

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoSample is returned when the figure could not be read, typically
// because the process has already exited.
var ErrNoSample = errors.New("no memory sample")

const (
	KindPS      = "ps"
	KindProcess = "process"
)

// Sampler queries the virtual memory size of pid.
type Sampler interface {
	Sample(ctx context.Context, pid int) (int64, error)
}

// Func adapts a plain function to the Sampler interface.
type Func func(ctx context.Context, pid int) (int64, error)

func (f Func) Sample(ctx context.Context, pid int) (int64, error) {
	return f(ctx, pid)
}

// New returns the sampler registered under kind.
func New(kind string) (Sampler, error) {
	switch kind {
	case "", KindPS:
		return NewPS(), nil
	case KindProcess:
		return NewProcess(), nil
	}
	return nil, fmt.Errorf("unknown sampler kind %q", kind)
}
