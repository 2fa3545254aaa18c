// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package sampler

import (
	"context"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVsize(t *testing.T) {
	value, err := parseVsize([]byte("  123456\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(123456), value)

	_, err = parseVsize([]byte(""))
	assert.ErrorIs(t, err, ErrNoSample)

	_, err = parseVsize([]byte("VSZ"))
	assert.ErrorIs(t, err, ErrNoSample)
}

func TestPSSamplesSelf(t *testing.T) {
	if _, err := exec.LookPath("ps"); err != nil {
		t.Skip("ps not available")
	}
	value, err := NewPS().Sample(context.Background(), os.Getpid())
	require.NoError(t, err)
	assert.Greater(t, value, int64(0))
}

func TestPSExitedProcess(t *testing.T) {
	if _, err := exec.LookPath("ps"); err != nil {
		t.Skip("ps not available")
	}
	cmd := exec.Command("/bin/sh", "-c", "exit 0")
	require.NoError(t, cmd.Run())

	_, err := NewPS().Sample(context.Background(), cmd.Process.Pid)
	assert.ErrorIs(t, err, ErrNoSample)
}

func TestProcessSamplesSelf(t *testing.T) {
	value, err := NewProcess().Sample(context.Background(), os.Getpid())
	require.NoError(t, err)
	assert.Greater(t, value, int64(0))
}

func TestNew(t *testing.T) {
	s, err := New(KindPS)
	require.NoError(t, err)
	assert.IsType(t, &PS{}, s)

	s, err = New(KindProcess)
	require.NoError(t, err)
	assert.IsType(t, &Process{}, s)

	_, err = New("cgroup")
	assert.Error(t, err)
}
