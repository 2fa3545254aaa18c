// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package interop

import (
	"encoding/json"
	"time"

	"github.com/devlambda/devlambda/lambda/metering"
	"github.com/google/uuid"
)

// Status of an invocation. Terminal statuses never change again.
type Status string

const (
	StatusQueued          Status = "queued"
	StatusInitializing    Status = "initializing"
	StatusRunning         Status = "running"
	StatusDone            Status = "done"
	StatusError           Status = "error"
	StatusKilledTimeout   Status = "killed - timeout"
	StatusKilledMaxMemory Status = "killed - maxed memory"
)

// Terminal reports whether s ends the lifecycle.
func (s Status) Terminal() bool {
	switch s {
	case StatusDone, StatusError, StatusKilledTimeout, StatusKilledMaxMemory:
		return true
	}
	return false
}

// Line is one chunk the child wrote to stdout or stderr.
type Line struct {
	Time time.Time
	Text string
}

func (l Line) String() string {
	return metering.FormatTime(l.Time) + ": " + l.Text
}

// Invocation is one execution of a function against one event.
//
// The scheduler mutates an Invocation in place for the lifetime of its child
// process and the history holds the very same pointer, so a projection taken
// mid-flight shows partial progress. Fields must only be touched from the
// scheduler's event loop.
type Invocation struct {
	ID       string
	Function string
	Event    json.RawMessage
	Status   Status

	QueuedAt         time.Time
	InitStartedAt    time.Time
	RunningStartedAt time.Time
	CompletedAt      time.Time
	UpdatedAt        time.Time

	Output []Line
	Errors []Line

	// BaselineMemory is the raw sample taken at handshake.
	BaselineMemory int64
	// PeakMemory is the highest raw sample seen while running.
	PeakMemory int64
	// MaxMemory is PeakMemory above the baseline, in kilo-units.
	MaxMemory      int64
	memoryMeasured bool

	InitMemory   int64
	InitDuration time.Duration
	Duration     time.Duration
}

// NewInvocation returns a queued invocation with a fresh request id.
func NewInvocation(function string, event json.RawMessage, now time.Time) *Invocation {
	return &Invocation{
		ID:        uuid.New().String(),
		Function:  function,
		Event:     event,
		Status:    StatusQueued,
		QueuedAt:  now,
		UpdatedAt: now,
	}
}

func (inv *Invocation) AppendOutput(now time.Time, text string) {
	inv.UpdatedAt = now
	inv.Output = append(inv.Output, Line{Time: now, Text: text})
}

func (inv *Invocation) AppendError(now time.Time, text string) {
	inv.UpdatedAt = now
	inv.Errors = append(inv.Errors, Line{Time: now, Text: text})
}

// SetStatus moves the invocation to status at now.
func (inv *Invocation) SetStatus(now time.Time, status Status) {
	inv.UpdatedAt = now
	inv.Status = status
}

// RecordSample folds a raw memory sample into the peak. Samples below the
// current peak are ignored. Returns false when the sample was ignored.
func (inv *Invocation) RecordSample(raw int64) bool {
	if raw < inv.PeakMemory {
		return false
	}
	inv.PeakMemory = raw
	inv.MaxMemory = metering.KiloUnits(raw - inv.BaselineMemory)
	inv.memoryMeasured = true
	return true
}

// MemoryMeasured reports whether at least one sample was recorded while running.
func (inv *Invocation) MemoryMeasured() bool {
	return inv.memoryMeasured
}

// Initialized reports whether the handshake completed.
func (inv *Invocation) Initialized() bool {
	return !inv.RunningStartedAt.IsZero()
}

// HasDuration reports whether Duration is meaningful.
func (inv *Invocation) HasDuration() bool {
	return inv.Status.Terminal() && inv.Initialized()
}

// InvocationView is the externally visible projection of an invocation.
type InvocationView struct {
	ID             string             `json:"id"`
	Function       string             `json:"function"`
	Status         Status             `json:"status"`
	Error          []string           `json:"error,omitempty"`
	Output         []string           `json:"output,omitempty"`
	Queued         string             `json:"queued,omitempty"`
	Started        string             `json:"started,omitempty"`
	Updated        string             `json:"updated,omitempty"`
	Completed      string             `json:"completed,omitempty"`
	Duration       *int64             `json:"duration,omitempty"`
	MaxMemory      *int64             `json:"maxMemory,omitempty"`
	Initialization InitializationView `json:"initialization"`
}

type InitializationView struct {
	Started  string `json:"started,omitempty"`
	Memory   *int64 `json:"memory,omitempty"`
	Duration *int64 `json:"duration,omitempty"`
}

// View copies the visible fields. Baseline memory and raw samples stay internal.
func (inv *Invocation) View() InvocationView {
	view := InvocationView{
		ID:        inv.ID,
		Function:  inv.Function,
		Status:    inv.Status,
		Error:     lines(inv.Errors),
		Output:    lines(inv.Output),
		Queued:    metering.FormatTime(inv.QueuedAt),
		Started:   metering.FormatTime(inv.InitStartedAt),
		Updated:   metering.FormatTime(inv.UpdatedAt),
		Completed: metering.FormatTime(inv.CompletedAt),
		Initialization: InitializationView{
			Started: metering.FormatTime(inv.InitStartedAt),
		},
	}
	if inv.HasDuration() {
		view.Duration = int64Ptr(inv.Duration.Milliseconds())
	}
	if inv.memoryMeasured {
		view.MaxMemory = int64Ptr(inv.MaxMemory)
	}
	if inv.Initialized() {
		view.Initialization.Memory = int64Ptr(inv.InitMemory)
		view.Initialization.Duration = int64Ptr(inv.InitDuration.Milliseconds())
	}
	return view
}

func lines(in []Line) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, line := range in {
		out[i] = line.String()
	}
	return out
}

func int64Ptr(v int64) *int64 {
	return &v
}
