// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/devlambda/devlambda/lambda/bootstrap"
	"github.com/devlambda/devlambda/lambda/function"
	"github.com/devlambda/devlambda/lambda/history"
	"github.com/devlambda/devlambda/lambda/interop"
	"github.com/devlambda/devlambda/lambda/logging"
	"github.com/devlambda/devlambda/lambda/metrics"
	"github.com/devlambda/devlambda/lambda/sampler"
	"github.com/devlambda/devlambda/lambda/supervisor/model"

	log "github.com/sirupsen/logrus"
)

// FunctionStatus is the history and metrics of one function.
type FunctionStatus struct {
	History []interop.InvocationView `json:"history"`
	Metrics metrics.Metrics          `json:"metrics"`
}

// Overview is the status of several functions plus the global metrics.
type Overview struct {
	Functions map[string]FunctionStatus
	Global    metrics.Metrics
}

type Option func(*Scheduler)

// WithPlatformLogger sets the sink of START, END and REPORT lines.
func WithPlatformLogger(logger logging.PlatformLogger) Option {
	return func(s *Scheduler) {
		s.platformLogger = logger
	}
}

// WithTailLog echoes every output chunk of every child to w.
func WithTailLog(w *logging.TailLogWriter) Option {
	return func(s *Scheduler) {
		s.tailLog = w
	}
}

// Scheduler admits invocations under the concurrency cap and supervises
// their child processes. Run must be called for anything to progress.
type Scheduler struct {
	cfg            Config
	supervisor     model.ProcessSupervisor
	sampler        sampler.Sampler
	runtime        bootstrap.Runtime
	platformLogger logging.PlatformLogger
	tailLog        *logging.TailLogWriter

	loop *eventLoop
	// ctx is the context Run was given; read only from the loop and from
	// goroutines it spawns.
	ctx context.Context

	// owned by the loop
	metrics  *metrics.Aggregator
	history  *history.Store
	queue    admissionQueue
	runs     map[string]*invocationRun
	draining bool
}

func NewScheduler(cfg Config, supervisor model.ProcessSupervisor, memorySampler sampler.Sampler, runtime bootstrap.Runtime, opts ...Option) *Scheduler {
	cfg = cfg.withDefaults()
	s := &Scheduler{
		cfg:            cfg,
		supervisor:     supervisor,
		sampler:        memorySampler,
		runtime:        runtime,
		platformLogger: logging.NewDiscardPlatformLogger(),
		loop:           newEventLoop(),
		ctx:            context.Background(),
		metrics:        metrics.NewAggregator(),
		history:        history.NewStore(cfg.MaxHistory),
		runs:           make(map[string]*invocationRun),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxConcurrency returns the effective concurrency cap.
func (s *Scheduler) MaxConcurrency() int {
	return s.cfg.MaxConcurrency
}

// Run processes events until ctx is done, then kills every child still alive.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	go s.forwardEvents(ctx)
	s.loop.run(ctx)

	log.Debug("Scheduler loop stopped, killing remaining processes")
	deadline := time.Now().Add(s.cfg.KillTimeout)
	stopCtx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()
	return s.supervisor.Stop(stopCtx, &model.StopRequest{Deadline: deadline})
}

func (s *Scheduler) forwardEvents(ctx context.Context) {
	events := s.supervisor.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if !s.loop.post(func() { s.handleEvent(event) }) {
				return
			}
		}
	}
}

func (s *Scheduler) handleEvent(event model.Event) {
	data := event.Event
	if data.Name == nil {
		return
	}
	run, ok := s.runs[*data.Name]
	if !ok {
		return
	}
	if termination := data.ProcessTerminated(); termination != nil {
		run.onExit(*termination)
		return
	}
	if message := data.ControlMessage(); message != nil {
		run.onMessage(message)
	}
}

// InvokeAsync admits or queues an invocation and returns as soon as the
// admission decision is made.
func (s *Scheduler) InvokeAsync(ctx context.Context, def function.Definition, event json.RawMessage) (interop.InvocationView, error) {
	var view interop.InvocationView
	err := s.loop.call(ctx, func() {
		run := s.submit(def, event)
		view = run.inv.View()
	})
	return view, err
}

// InvokeSync admits or queues an invocation and waits for it to close.
// Cancelling ctx stops the wait, not the invocation.
func (s *Scheduler) InvokeSync(ctx context.Context, def function.Definition, event json.RawMessage) (interop.InvocationView, error) {
	var run *invocationRun
	if err := s.loop.call(ctx, func() { run = s.submit(def, event) }); err != nil {
		return interop.InvocationView{}, err
	}

	select {
	case <-run.done:
	case <-s.loop.stopped:
		return interop.InvocationView{}, ErrSchedulerStopped
	case <-ctx.Done():
		return interop.InvocationView{}, ctx.Err()
	}

	var view interop.InvocationView
	err := s.loop.call(ctx, func() { view = run.inv.View() })
	return view, err
}

// History returns the recent invocations of name, newest first.
func (s *Scheduler) History(ctx context.Context, name string) ([]interop.InvocationView, error) {
	var views []interop.InvocationView
	err := s.loop.call(ctx, func() { views = s.history.Projection(name) })
	return views, err
}

// Metrics returns the metrics of name.
func (s *Scheduler) Metrics(ctx context.Context, name string) (metrics.Metrics, error) {
	var m metrics.Metrics
	err := s.loop.call(ctx, func() { m = s.metrics.Function(name) })
	return m, err
}

// GlobalMetrics returns the metrics summed over every function.
func (s *Scheduler) GlobalMetrics(ctx context.Context) (metrics.Metrics, error) {
	var m metrics.Metrics
	err := s.loop.call(ctx, func() { m = s.metrics.Global() })
	return m, err
}

// Status returns the history and metrics of name, read in a single turn.
func (s *Scheduler) Status(ctx context.Context, name string) (FunctionStatus, error) {
	var status FunctionStatus
	err := s.loop.call(ctx, func() { status = s.status(name) })
	return status, err
}

// Overview returns the status of every name and the global metrics, read in a single turn.
func (s *Scheduler) Overview(ctx context.Context, names []string) (Overview, error) {
	overview := Overview{Functions: make(map[string]FunctionStatus, len(names))}
	err := s.loop.call(ctx, func() {
		for _, name := range names {
			overview.Functions[name] = s.status(name)
		}
		overview.Global = s.metrics.Global()
	})
	return overview, err
}

func (s *Scheduler) status(name string) FunctionStatus {
	return FunctionStatus{
		History: s.history.Projection(name),
		Metrics: s.metrics.Function(name),
	}
}

func (s *Scheduler) submit(def function.Definition, event json.RawMessage) *invocationRun {
	run := newInvocationRun(s, def, interop.NewInvocation(def.Name, event, time.Now()))
	if s.queue.len() == 0 && s.metrics.Global().Active() < s.cfg.MaxConcurrency {
		s.dispatch(run)
		return run
	}
	s.queue.push(run)
	s.metrics.Queued(def.Name)
	log.WithFields(log.Fields{"function": def.Name, "requestId": run.inv.ID, "queued": s.queue.len()}).Debug("Invocation queued")
	return run
}

// drain dispatches queued invocations while slots are free. A dispatch that
// fails to spawn closes synchronously and re-enters drain, hence the guard.
func (s *Scheduler) drain() {
	if s.draining {
		return
	}
	s.draining = true
	defer func() { s.draining = false }()

	for s.queue.len() > 0 && s.metrics.Global().Active() < s.cfg.MaxConcurrency {
		run, _ := s.queue.pop()
		s.metrics.Dequeued(run.def.Name)
		s.dispatch(run)
	}
}
