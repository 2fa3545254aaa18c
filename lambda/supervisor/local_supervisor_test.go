// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/devlambda/devlambda/lambda/supervisor/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func nextEvent(t *testing.T, events <-chan model.Event) model.Event {
	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timed out waiting for supervisor event")
	}
	return model.Event{}
}

func awaitTermination(t *testing.T, events <-chan model.Event) model.ProcessTermination {
	for {
		ev := nextEvent(t, events)
		if term := ev.Event.ProcessTerminated(); term != nil {
			return *term
		}
	}
}

func TestExec(t *testing.T) {
	supv := NewLocalSupervisor()
	pid, err := supv.Exec(context.Background(), &model.ExecRequest{
		Name: "agent",
		Path: "/bin/sh",
	})

	assert.NoError(t, err)
	assert.Greater(t, pid, 0)
}

func TestInvalidExec(t *testing.T) {
	supv := NewLocalSupervisor()
	_, err := supv.Exec(context.Background(), &model.ExecRequest{
		Name: "agent",
		Path: "/bin/none",
	})

	require.Error(t, err)
}

func TestEventsReportExitStatus(t *testing.T) {
	supv := NewLocalSupervisor()
	_, err := supv.Exec(context.Background(), &model.ExecRequest{
		Name: "agent",
		Path: "/bin/sh",
		Args: []string{"-c", "exit 3"},
	})
	require.NoError(t, err)

	term := awaitTermination(t, supv.Events())
	assert.Equal(t, "agent", *term.Name)
	require.NotNil(t, term.Exited())
	assert.EqualValues(t, 3, *term.ExitStatus)
	assert.False(t, term.Success())
	assert.Equal(t, "exit status 3", term.String())
}

func TestStdinAndOutputStreams(t *testing.T) {
	supv := NewLocalSupervisor()
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	_, err := supv.Exec(context.Background(), &model.ExecRequest{
		Name:         "agent",
		Path:         "/bin/sh",
		Stdin:        strings.NewReader("echo out\necho err >&2\n"),
		StdoutWriter: stdout,
		StderrWriter: stderr,
	})
	require.NoError(t, err)

	term := awaitTermination(t, supv.Events())
	assert.True(t, term.Success())
	// output is fully copied before the termination event
	assert.Equal(t, "out\n", stdout.String())
	assert.Equal(t, "err\n", stderr.String())
}

func TestControlChannelRoundTrip(t *testing.T) {
	supv := NewLocalSupervisor()
	stdout := &syncBuffer{}
	script := `printf '"ready"\n' >&3
read -r line <&3
echo "got $line"
`
	_, err := supv.Exec(context.Background(), &model.ExecRequest{
		Name:           "agent",
		Path:           "/bin/sh",
		Stdin:          strings.NewReader(script),
		StdoutWriter:   stdout,
		ControlChannel: true,
	})
	require.NoError(t, err)

	ev := nextEvent(t, supv.Events())
	assert.JSONEq(t, `"ready"`, string(ev.Event.ControlMessage()))
	assert.Nil(t, ev.Event.ProcessTerminated())

	err = supv.Send(context.Background(), &model.SendRequest{
		Name:     "agent",
		Message:  map[string]string{"hello": "world"},
		Deadline: time.Now().Add(time.Second),
	})
	require.NoError(t, err)

	term := awaitTermination(t, supv.Events())
	assert.True(t, term.Success())
	assert.Equal(t, "got {\"hello\":\"world\"}\n", stdout.String())
}

func TestSendWithoutControlChannel(t *testing.T) {
	supv := NewLocalSupervisor()
	_, err := supv.Exec(context.Background(), &model.ExecRequest{
		Name: "agent",
		Path: "/bin/sh",
		Args: []string{"-c", "sleep 10"},
	})
	require.NoError(t, err)
	defer supv.Stop(context.Background(), &model.StopRequest{Deadline: time.Now().Add(time.Second)})

	err = supv.Send(context.Background(), &model.SendRequest{Name: "agent", Message: "x"})
	var supvError *model.SupervisorError
	require.True(t, errors.As(err, &supvError))
	assert.Equal(t, model.InvalidState, supvError.Kind)
}

func TestKill(t *testing.T) {
	supv := NewLocalSupervisor()
	_, err := supv.Exec(context.Background(), &model.ExecRequest{
		Name: "agent",
		Path: "/bin/sh",
		Args: []string{"-c", "sleep 10"},
	})
	require.NoError(t, err)
	err = supv.Kill(context.Background(), &model.KillRequest{
		Name:     "agent",
		Deadline: time.Now().Add(time.Second),
	})
	require.NoError(t, err)

	term := awaitTermination(t, supv.Events())
	require.Nil(t, term.Exited())
	require.NotNil(t, term.Signaled())
	assert.EqualValues(t, syscall.SIGKILL, *term.Signo)
}

func TestKillReachesProcessGroup(t *testing.T) {
	supv := NewLocalSupervisor()
	stdout := &syncBuffer{}
	// the background sleep would keep stdout open if it survived the kill
	_, err := supv.Exec(context.Background(), &model.ExecRequest{
		Name:         "agent",
		Path:         "/bin/sh",
		Args:         []string{"-c", "sleep 10 & wait"},
		StdoutWriter: stdout,
	})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	err = supv.Kill(context.Background(), &model.KillRequest{
		Name:     "agent",
		Deadline: time.Now().Add(2 * time.Second),
	})
	require.NoError(t, err)
	awaitTermination(t, supv.Events())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestKillExited(t *testing.T) {
	supv := NewLocalSupervisor()
	_, err := supv.Exec(context.Background(), &model.ExecRequest{
		Name: "agent",
		Path: "/bin/sh",
	})
	require.NoError(t, err)
	awaitTermination(t, supv.Events())

	err = supv.Kill(context.Background(), &model.KillRequest{
		Name:     "agent",
		Deadline: time.Now().Add(time.Second),
	})
	var supvError *model.SupervisorError
	require.True(t, errors.As(err, &supvError), "exited processes are forgotten")
	assert.Equal(t, model.NoSuchEntity, supvError.Kind)
}

func TestKillUnknown(t *testing.T) {
	supv := NewLocalSupervisor()
	err := supv.Kill(context.Background(), &model.KillRequest{
		Name:     "unknown",
		Deadline: time.Now().Add(time.Second),
	})
	require.Error(t, err)
	var supvError *model.SupervisorError
	assert.True(t, errors.As(err, &supvError))
	assert.Equal(t, supvError.Kind, model.NoSuchEntity)
}

func TestStop(t *testing.T) {
	supv := NewLocalSupervisor()
	for _, name := range []string{"agent-0", "agent-1", "agent-2"} {
		_, err := supv.Exec(context.Background(), &model.ExecRequest{
			Name: name,
			Path: "/bin/sh",
			Args: []string{"-c", "sleep 10"},
		})
		require.NoError(t, err)
	}

	err := supv.Stop(context.Background(), &model.StopRequest{
		Deadline: time.Now().Add(time.Second),
	})
	require.NoError(t, err)

	expected := map[string]struct{}{
		"agent-0": {},
		"agent-1": {},
		"agent-2": {},
	}
	for len(expected) > 0 {
		term := awaitTermination(t, supv.Events())
		_, ok := expected[*term.Name]
		assert.True(t, ok)
		delete(expected, *term.Name)
	}
}
