// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package bootstrap

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeRuntime(t *testing.T) {
	rt := NewNodeRuntime("")
	assert.Equal(t, []string{"node"}, rt.Cmd)
	assert.Contains(t, rt.Script, "process.send(process.pid + ' ready')")
	assert.Contains(t, rt.Script, "message.modulePart + '.js'")
	assert.Contains(t, rt.Script, "lambda[message.exportPart](message.event, context)")

	rt = NewNodeRuntime("/usr/local/bin/node")
	assert.Equal(t, []string{"/usr/local/bin/node"}, rt.Cmd)
}

func TestEnvInheritsAndOverrides(t *testing.T) {
	t.Setenv("DEVLAMBDA_TEST_VAR", "a=b")
	t.Setenv("NODE_CHANNEL_FD", "9")

	env := NewNodeRuntime("").Env()
	assert.Equal(t, "a=b", env["DEVLAMBDA_TEST_VAR"])
	assert.Equal(t, "3", env["NODE_CHANNEL_FD"])
	assert.Equal(t, "json", env["NODE_CHANNEL_SERIALIZATION_MODE"])
	assert.Equal(t, os.Getenv("PATH"), env["PATH"])
}
