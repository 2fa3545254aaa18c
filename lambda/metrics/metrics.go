// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

// Package metrics keeps per-function and global invocation counters and
// running averages.
//
// Every update applies to the function's accumulator and to the global one
// in the same call, so the two views never diverge. An Aggregator is not
// safe for concurrent use; it is owned by the scheduler's event loop.
package metrics

import "github.com/devlambda/devlambda/lambda/metering"

type KilledCounts struct {
	Timeout   int `json:"timeout"`
	MaxMemory int `json:"maxMemory"`
}

type Counts struct {
	Total        int          `json:"total"`
	Initializing int          `json:"initializing"`
	Running      int          `json:"running"`
	Done         int          `json:"done"`
	Error        int          `json:"error"`
	Queued       int          `json:"queued"`
	Killed       KilledCounts `json:"killed"`
}

type InitializationAverages struct {
	AverageDuration float64 `json:"averageDuration"`
	AverageMemory   float64 `json:"averageMemory"`
}

type Metrics struct {
	Counts           Counts                 `json:"counts"`
	AverageDuration  float64                `json:"averageDuration"`
	AverageMaxMemory float64                `json:"averageMaxMemory"`
	Initialization   InitializationAverages `json:"initialization"`
}

// Active is the number of dispatched invocations not yet terminal.
func (m Metrics) Active() int {
	return m.Counts.Initializing + m.Counts.Running
}

type Aggregator struct {
	functions map[string]*Metrics
	global    Metrics
}

func NewAggregator() *Aggregator {
	return &Aggregator{functions: make(map[string]*Metrics)}
}

func (a *Aggregator) apply(name string, update func(m *Metrics)) {
	m, ok := a.functions[name]
	if !ok {
		m = &Metrics{}
		a.functions[name] = m
	}
	update(m)
	update(&a.global)
}

// Queued counts an invocation waiting for admission.
func (a *Aggregator) Queued(name string) {
	a.apply(name, func(m *Metrics) { m.Counts.Queued++ })
}

// Dequeued reverts Queued once the invocation leaves the queue.
func (a *Aggregator) Dequeued(name string) {
	a.apply(name, func(m *Metrics) { m.Counts.Queued-- })
}

// Dispatched counts a spawned invocation, now initializing.
func (a *Aggregator) Dispatched(name string) {
	a.apply(name, func(m *Metrics) {
		m.Counts.Total++
		m.Counts.Initializing++
	})
}

// Initialized moves an invocation from initializing to running and folds
// its initialization cost into the averages.
func (a *Aggregator) Initialized(name string, durationMs, memory float64) {
	a.apply(name, func(m *Metrics) {
		m.Counts.Initializing--
		m.Counts.Running++
		m.Initialization.AverageDuration = metering.IncrementalMean(m.Initialization.AverageDuration, durationMs, m.Counts.Total)
		m.Initialization.AverageMemory = metering.IncrementalMean(m.Initialization.AverageMemory, memory, m.Counts.Total)
	})
}

func (a *Aggregator) KilledTimeout(name string) {
	a.apply(name, func(m *Metrics) { m.Counts.Killed.Timeout++ })
}

func (a *Aggregator) KilledMaxMemory(name string) {
	a.apply(name, func(m *Metrics) { m.Counts.Killed.MaxMemory++ })
}

func (a *Aggregator) Errored(name string) {
	a.apply(name, func(m *Metrics) { m.Counts.Error++ })
}

func (a *Aggregator) Done(name string) {
	a.apply(name, func(m *Metrics) { m.Counts.Done++ })
}

// Closed releases the invocation's active slot and folds its duration and
// peak memory into the averages. The divisor is the total count at the time
// of closing and a missing figure is passed as zero, which pulls the
// averages down.
func (a *Aggregator) Closed(name string, initialized bool, durationMs, maxMemory float64) {
	a.apply(name, func(m *Metrics) {
		if initialized {
			m.Counts.Running--
		} else {
			m.Counts.Initializing--
		}
		m.AverageDuration = metering.IncrementalMean(m.AverageDuration, durationMs, m.Counts.Total)
		m.AverageMaxMemory = metering.IncrementalMean(m.AverageMaxMemory, maxMemory, m.Counts.Total)
	})
}

// Function returns a copy of name's metrics; the zero value when it was never invoked.
func (a *Aggregator) Function(name string) Metrics {
	if m, ok := a.functions[name]; ok {
		return *m
	}
	return Metrics{}
}

// Global returns a copy of the global metrics.
func (a *Aggregator) Global() Metrics {
	return a.global
}
