// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/devlambda/devlambda/lambda/function"
	"github.com/devlambda/devlambda/lambda/interop"
	"github.com/devlambda/devlambda/lambda/logging"
	"github.com/devlambda/devlambda/lambda/metering"
	"github.com/devlambda/devlambda/lambda/supervisor/model"

	log "github.com/sirupsen/logrus"
)

// invocationRun drives one invocation and its child process. All methods
// run on the scheduler loop.
type invocationRun struct {
	s   *Scheduler
	def function.Definition
	inv *interop.Invocation
	pid int

	ready    bool
	sampling bool
	closed   bool

	timeout     *time.Timer
	stopPolling chan struct{}
	// done is closed once the invocation is closed
	done chan struct{}
}

func newInvocationRun(s *Scheduler, def function.Definition, inv *interop.Invocation) *invocationRun {
	return &invocationRun{
		s:    s,
		def:  def,
		inv:  inv,
		done: make(chan struct{}),
	}
}

func (r *invocationRun) logger() *log.Entry {
	return log.WithFields(log.Fields{"function": r.def.Name, "requestId": r.inv.ID})
}

func (s *Scheduler) dispatch(run *invocationRun) {
	now := time.Now()
	inv := run.inv
	inv.InitStartedAt = now
	inv.SetStatus(now, interop.StatusInitializing)
	s.history.Record(run.def.Name, inv)
	s.metrics.Dispatched(run.def.Name)
	s.runs[inv.ID] = run
	s.platformLogger.LogStart(inv.ID, run.def.Name)

	var args []string
	path := ""
	if len(s.runtime.Cmd) > 0 {
		path, args = s.runtime.Cmd[0], s.runtime.Cmd[1:]
	}
	cwd := run.def.Dir
	env := s.runtime.Env()
	pid, err := s.supervisor.Exec(s.ctx, &model.ExecRequest{
		Name:           inv.ID,
		Path:           path,
		Args:           args,
		Cwd:            &cwd,
		Env:            &env,
		Stdin:          strings.NewReader(s.runtime.Script),
		StdoutWriter:   &chunkWriter{run: run, stderr: false},
		StderrWriter:   &chunkWriter{run: run, stderr: true},
		ControlChannel: true,
	})
	if err != nil {
		run.logger().WithError(err).Warn("Failed to spawn invocation")
		run.onSpawnError(err)
		return
	}
	run.pid = pid
	run.logger().WithField("pid", pid).Debug("Invocation dispatched")
}

func (r *invocationRun) onSpawnError(err error) {
	if r.closed {
		return
	}
	now := time.Now()
	r.inv.AppendError(now, err.Error())
	r.inv.SetStatus(now, interop.StatusError)
	r.s.metrics.Errored(r.def.Name)
	r.close()
}

// onMessage handles a control message. Only the first one matters: it is the
// child's ready signal.
func (r *invocationRun) onMessage(message json.RawMessage) {
	if r.closed || r.ready {
		return
	}
	r.ready = true
	r.logger().WithField("message", string(message)).Debug("Invocation ready")

	pid, ctx := r.pid, r.s.ctx
	go func() {
		raw, err := r.s.sampler.Sample(ctx, pid)
		r.s.loop.post(func() { r.onBaseline(raw, err) })
	}()
}

func (r *invocationRun) onBaseline(raw int64, err error) {
	if r.closed {
		return
	}
	if err != nil {
		raw = 0
	}
	now := time.Now()
	inv := r.inv
	inv.BaselineMemory = raw
	inv.RunningStartedAt = now
	inv.InitDuration = now.Sub(inv.InitStartedAt)
	inv.InitMemory = metering.KiloUnits(raw)
	r.s.metrics.Initialized(r.def.Name, float64(inv.InitDuration.Milliseconds()), float64(inv.InitMemory))
	inv.SetStatus(now, interop.StatusRunning)

	err = r.s.supervisor.Send(r.s.ctx, &model.SendRequest{
		Name: inv.ID,
		Message: interop.InvokeMessage{
			Name:       r.def.Name,
			ModulePart: r.def.ModulePart(),
			ExportPart: r.def.ExportPart(),
			Event:      inv.Event,
		},
		Deadline: now.Add(r.s.cfg.SendTimeout),
	})
	if err != nil {
		// the exit event closes the invocation
		r.logger().WithError(err).Warn("Failed to send invoke message")
	}

	loop := r.s.loop
	r.timeout = time.AfterFunc(time.Duration(r.def.Timeout)*time.Second, func() {
		loop.post(r.onTimeout)
	})
	r.stopPolling = make(chan struct{})
	go r.poll(r.stopPolling)
}

func (r *invocationRun) poll(stop <-chan struct{}) {
	ticker := time.NewTicker(r.s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-r.s.loop.stopped:
			return
		case <-ticker.C:
			if !r.s.loop.post(r.onTick) {
				return
			}
		}
	}
}

func (r *invocationRun) onTick() {
	if r.closed || r.sampling || r.inv.Status != interop.StatusRunning {
		return
	}
	r.sampling = true
	pid, ctx := r.pid, r.s.ctx
	go func() {
		raw, err := r.s.sampler.Sample(ctx, pid)
		r.s.loop.post(func() { r.onSample(raw, err) })
	}()
}

func (r *invocationRun) onSample(raw int64, err error) {
	r.sampling = false
	if r.closed || r.inv.Status != interop.StatusRunning || err != nil {
		return
	}
	if !r.inv.RecordSample(raw) {
		return
	}
	if r.inv.MaxMemory > int64(r.def.MaxMemory) {
		r.logger().WithField("maxMemory", r.inv.MaxMemory).Info("Invocation exceeded its memory limit")
		r.s.metrics.KilledMaxMemory(r.def.Name)
		r.kill(interop.StatusKilledMaxMemory)
	}
}

func (r *invocationRun) onTimeout() {
	if r.closed || r.inv.Status != interop.StatusRunning {
		return
	}
	r.logger().WithField("timeout", r.def.Timeout).Info("Invocation timed out")
	r.s.metrics.KilledTimeout(r.def.Name)
	r.kill(interop.StatusKilledTimeout)
}

// kill claims the terminal status and kills the process group. The
// invocation closes when the exit event arrives.
func (r *invocationRun) kill(status interop.Status) {
	r.inv.SetStatus(time.Now(), status)
	r.stopTimers()

	name := r.inv.ID
	deadline := time.Now().Add(r.s.cfg.KillTimeout)
	ctx, supervisor, logger := r.s.ctx, r.s.supervisor, r.logger()
	go func() {
		err := supervisor.Kill(ctx, &model.KillRequest{Name: name, Deadline: deadline})
		if err != nil {
			// already gone, the exit event is on its way
			logger.WithError(err).Debug("Kill failed")
		}
	}()
}

// onExit ends the lifecycle. Exiting while initializing or running resolves
// to done whatever the exit status.
func (r *invocationRun) onExit(termination model.ProcessTermination) {
	if r.closed {
		return
	}
	r.logger().WithField("termination", termination.String()).Debug("Invocation process exited")
	switch r.inv.Status {
	case interop.StatusInitializing, interop.StatusRunning:
		r.inv.SetStatus(time.Now(), interop.StatusDone)
		r.s.metrics.Done(r.def.Name)
	}
	r.close()
}

func (r *invocationRun) stopTimers() {
	if r.timeout != nil {
		r.timeout.Stop()
	}
	if r.stopPolling != nil {
		close(r.stopPolling)
		r.stopPolling = nil
	}
}

func (r *invocationRun) close() {
	r.closed = true
	r.stopTimers()

	now := time.Now()
	inv := r.inv
	inv.CompletedAt = now
	inv.UpdatedAt = now
	if inv.Initialized() {
		inv.Duration = now.Sub(inv.RunningStartedAt)
	}

	var duration, maxMemory float64
	if inv.HasDuration() {
		duration = float64(inv.Duration.Milliseconds())
	}
	if inv.MemoryMeasured() {
		maxMemory = float64(inv.MaxMemory)
	}
	r.s.metrics.Closed(r.def.Name, inv.Initialized(), duration, maxMemory)
	delete(r.s.runs, inv.ID)

	r.report()
	close(r.done)
	r.s.drain()
}

func (r *invocationRun) report() {
	view := r.inv.View()
	r.s.platformLogger.LogEnd(r.inv.ID)
	r.s.platformLogger.LogReport(logging.Report{
		RequestID:    r.inv.ID,
		InitDuration: view.Initialization.Duration,
		Duration:     view.Duration,
		MemorySize:   r.def.MaxMemory,
		MaxMemory:    view.MaxMemory,
		Status:       string(r.inv.Status),
	})
}

// chunkWriter captures one output stream of a child. Each Write becomes one
// timestamped chunk on the invocation.
type chunkWriter struct {
	run    *invocationRun
	stderr bool
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	text := string(p)
	run := w.run
	if run.s.tailLog != nil {
		run.s.tailLog.WriteChunk(run.def.Name, run.inv.ID, p)
	}
	run.s.loop.post(func() {
		if run.closed {
			return
		}
		if w.stderr {
			run.inv.AppendError(time.Now(), text)
		} else {
			run.inv.AppendOutput(time.Now(), text)
		}
	})
	return len(p), nil
}
