// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"time"

	"github.com/devlambda/devlambda/lambda/history"
)

const (
	DefaultMaxConcurrency = 1
	DefaultPollInterval   = 100 * time.Millisecond
	DefaultKillTimeout    = 5 * time.Second
	DefaultSendTimeout    = time.Second
)

// Config holds the scheduler settings. Zero values select the defaults.
type Config struct {
	// MaxConcurrency caps the invocations initializing or running at once.
	MaxConcurrency int
	// MaxHistory is the number of invocations kept per function.
	MaxHistory int
	// PollInterval is the period of the memory poll of a running invocation.
	PollInterval time.Duration
	// KillTimeout bounds how long a kill waits for the process group to exit.
	KillTimeout time.Duration
	// SendTimeout bounds the write of the invoke message to the child.
	SendTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = history.DefaultCapacity
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.KillTimeout <= 0 {
		c.KillTimeout = DefaultKillTimeout
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = DefaultSendTimeout
	}
	return c
}
