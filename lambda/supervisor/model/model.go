// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"syscall"
	"time"
)

// ControlChannelFD is the descriptor number the control socket is mapped to
// inside the child.
const ControlChannelFD = 3

type ProcessSupervisor interface {
	Exec(context.Context, *ExecRequest) (int, error)
	Send(context.Context, *SendRequest) error
	Kill(context.Context, *KillRequest) error
	Stop(context.Context, *StopRequest) error
	Events() <-chan Event
}

type ExecRequest struct {
	// Identifier that Supervisor will assign to the spawned process.
	// It is the caller's responsibility to generate a unique name.
	Name string `json:"name"`
	// Path of the executable, looked up in PATH when it has no separator
	Path string   `json:"path"`
	Args []string `json:"args,omitempty"`
	// If nil, the supervisor's working directory
	Cwd *string `json:"cwd,omitempty"`
	// If nil, the supervisor's environment
	Env          *map[string]string `json:"env,omitempty"`
	Stdin        io.Reader          `json:"-"`
	StdoutWriter io.Writer          `json:"-"`
	StderrWriter io.Writer          `json:"-"`
	// ControlChannel attaches a bidirectional unix socket to the child as
	// ControlChannelFD. Lines the child writes are delivered as message events.
	ControlChannel bool `json:"control_channel"`
}

// Write one JSON encoded line to a process' control channel.
type SendRequest struct {
	Name     string      `json:"name"`
	Message  interface{} `json:"message"`
	Deadline time.Time   `json:"deadline"`
}

// Force terminate a process group (SIGKILL)
// Block until process is exited or timeout
// Deadline needs to be in the future
type KillRequest struct {
	Name     string    `json:"name"`
	Deadline time.Time `json:"deadline"`
}

// Kill every process still running.
type StopRequest struct {
	Deadline time.Time `json:"deadline"`
}

type Event struct {
	Time  uint64    `json:"timestamp_millis"`
	Event EventData `json:"event"`
}

// EventData is a union type. Use ProcessTerminated() or ControlMessage()
// to access the correct case.
type EventData struct {
	Name       *string         `json:"name"`
	Signo      *int32          `json:"signo"`
	ExitStatus *int32          `json:"exit_status"`
	Message    json.RawMessage `json:"message,omitempty"`
}

// Returns a ProcessTermination struct that describe the process
// which terminated. Use Signaled() or Exited() to check whether
// the process terminated because of a signal or exited on its own
func (d EventData) ProcessTerminated() *ProcessTermination {
	if d.Signo != nil || d.ExitStatus != nil {
		return &ProcessTermination{
			Name:       d.Name,
			Signo:      d.Signo,
			ExitStatus: d.ExitStatus,
		}
	}
	return nil
}

// returns nil unless the child wrote a line on its control channel
func (d EventData) ControlMessage() json.RawMessage {
	return d.Message
}

// Event signalling that a process exited
type ProcessTermination struct {
	Name       *string
	Signo      *int32
	ExitStatus *int32
}

// If not nil, the process was terminated by an unhandled signal.
// The returned value is the number of the signal that terminated the process
func (t ProcessTermination) Signaled() *int32 {
	return t.Signo
}

// It not nil, the process exited (as opposed to killed by a signal).
// The returned value is the exit_status returned by the process
func (t ProcessTermination) Exited() *int32 {
	return t.ExitStatus
}

func (t ProcessTermination) Success() bool {
	return t.ExitStatus != nil && *t.ExitStatus == 0
}

// String matches the format of exec.ExitError.Error()
func (t ProcessTermination) String() string {
	if t.ExitStatus != nil {
		return fmt.Sprintf("exit status %d", *t.ExitStatus)
	}
	sig := syscall.Signal(*t.Signo)
	return fmt.Sprintf("signal: %s", sig.String())
}

type ErrorKind string

const (
	// operation on an unknown process
	NoSuchEntity ErrorKind = "no_such_entity"
	// operation not allowed in the current state (e.g., send on a process without control channel)
	InvalidState ErrorKind = "invalid_state"
	// Serialization issue in the communication with the child
	Serde ErrorKind = "serde"
)

type SupervisorError struct {
	Kind    ErrorKind `json:"error_kind"`
	Message *string   `json:"message"`
}

func (e *SupervisorError) Error() string {
	if e.Message != nil {
		return string(e.Kind) + ": " + *e.Message
	}
	return string(e.Kind)
}
