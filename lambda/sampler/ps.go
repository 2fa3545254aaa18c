// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package sampler

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// PS samples memory by running a short-lived ps(1) per query.
type PS struct {
	path string
}

func NewPS() *PS {
	return &PS{path: "ps"}
}

func (s *PS) Sample(ctx context.Context, pid int) (int64, error) {
	// ps exits non-zero for unknown pids, the empty output is what matters
	out, _ := exec.CommandContext(ctx, s.path, "-p"+strconv.Itoa(pid), "-o", "vsize=").Output()
	return parseVsize(out)
}

func parseVsize(out []byte) (int64, error) {
	value, err := strconv.ParseInt(string(bytes.TrimSpace(out)), 10, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%w: unparseable ps output %q", ErrNoSample, out)
	}
	return value, nil
}
