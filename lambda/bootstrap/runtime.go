// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

// Package bootstrap describes how an invocation's child process is started:
// the interpreter command, the program fed on its standard input and the
// environment that attaches the control channel.
package bootstrap

import (
	_ "embed"
	"os"
	"strconv"
	"strings"

	"github.com/devlambda/devlambda/lambda/supervisor/model"
)

//go:embed bootstrap.js
var nodeBootstrap string

// Runtime is the child process recipe shared by every invocation.
type Runtime struct {
	// Cmd is the interpreter and its arguments. It must read its program from stdin.
	Cmd []string
	// Script is written to the child's stdin, which is then closed.
	Script string
	// ExtraEnv is added on top of the daemon's own environment.
	ExtraEnv map[string]string
}

// NewNodeRuntime runs handlers with node, using node's IPC channel on the
// control descriptor. An empty nodePath means "node" from PATH.
func NewNodeRuntime(nodePath string) Runtime {
	if nodePath == "" {
		nodePath = "node"
	}
	return Runtime{
		Cmd:    []string{nodePath},
		Script: nodeBootstrap,
		ExtraEnv: map[string]string{
			"NODE_CHANNEL_FD":                 strconv.Itoa(model.ControlChannelFD),
			"NODE_CHANNEL_SERIALIZATION_MODE": "json",
		},
	}
}

// Env returns the environment of a child process.
func (r Runtime) Env() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		// Split on the first "=" so values may contain "="
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			env[parts[0]] = parts[1]
		}
	}
	for key, value := range r.ExtraEnv {
		env[key] = value
	}
	return env
}
