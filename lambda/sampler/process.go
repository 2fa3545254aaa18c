// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package sampler

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/process"
)

// Process samples memory in-process through gopsutil, without forking a
// helper per query.
type Process struct{}

func NewProcess() *Process {
	return &Process{}
}

func (s *Process) Sample(ctx context.Context, pid int) (int64, error) {
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNoSample, err)
	}
	info, err := proc.MemoryInfoWithContext(ctx)
	if err != nil || info == nil {
		return 0, fmt.Errorf("%w: %v", ErrNoSample, err)
	}
	return int64(info.VMS / 1024), nil
}
