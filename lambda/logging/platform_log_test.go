// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlatformLogStartEnd(t *testing.T) {
	var buf bytes.Buffer
	var tailLogBuf bytes.Buffer
	logger := NewPlatformLogger(&buf, &tailLogBuf)

	logger.LogStart("abc", "echo")
	logger.LogEnd("abc")
	require.Equal(t, "START RequestId: abc Function: echo\nEND RequestId: abc\n", buf.String())
	require.Equal(t, buf.String(), tailLogBuf.String())
}

func TestPlatformLogReport(t *testing.T) {
	var buf bytes.Buffer
	logger := NewPlatformLogger(&buf, &bytes.Buffer{})

	initDuration, duration, maxMemory := int64(12), int64(340), int64(5)
	logger.LogReport(Report{
		RequestID:    "abc",
		InitDuration: &initDuration,
		Duration:     &duration,
		MemorySize:   128,
		MaxMemory:    &maxMemory,
		Status:       "done",
	})
	require.Equal(t, "REPORT RequestId: abc\tInit Duration: 12 ms\tDuration: 340 ms\tMemory Size: 128 MB\tMax Memory Used: 5 MB\tStatus: done\n", buf.String())
}

func TestPlatformLogReportWithoutFigures(t *testing.T) {
	var buf bytes.Buffer
	logger := NewPlatformLogger(&buf, &bytes.Buffer{})

	logger.LogReport(Report{RequestID: "abc", MemorySize: 128, Status: "error"})
	require.Equal(t, "REPORT RequestId: abc\tMemory Size: 128 MB\tStatus: error\n", buf.String())
}
