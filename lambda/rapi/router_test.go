// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package rapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/devlambda/devlambda/lambda/bootstrap"
	"github.com/devlambda/devlambda/lambda/core"
	"github.com/devlambda/devlambda/lambda/function"
	"github.com/devlambda/devlambda/lambda/interop"
	"github.com/devlambda/devlambda/lambda/rapi/model"
	"github.com/devlambda/devlambda/lambda/sampler"
	"github.com/devlambda/devlambda/lambda/supervisor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shBootstrap = `printf '"%s ready"\n' "$$" >&3
read -r message <&3
echo "$message"
`

func newTestAPI(t *testing.T) http.Handler {
	baseDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(baseDir, "echo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(baseDir, "echo", "config.json"), []byte(`{"timeout": 5}`), 0o644))
	registry := function.NewRegistry(baseDir, function.Defaults{Handler: "index.handler", MaxMemory: 128, Timeout: 3})
	require.NoError(t, registry.Reload())

	memorySampler := sampler.Func(func(ctx context.Context, pid int) (int64, error) { return 2000, nil })
	runtime := bootstrap.Runtime{Cmd: []string{"/bin/sh"}, Script: shBootstrap}
	scheduler := core.NewScheduler(core.Config{}, supervisor.NewLocalSupervisor(), memorySampler, runtime)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		scheduler.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})

	return NewRouter(scheduler, registry)
}

func TestRouterSyncInvokeAndStatus(t *testing.T) {
	router := newTestAPI(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sync/echo", bytes.NewReader([]byte(`{"n":1}`))))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var invoked model.FunctionStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &invoked))
	require.NotNil(t, invoked.Invocation)
	assert.Equal(t, interop.StatusDone, invoked.Invocation.Status)
	require.NotEmpty(t, invoked.Invocation.Output)
	assert.Contains(t, invoked.Invocation.Output[0], `"event":{"n":1}`)
	assert.Equal(t, 5, invoked.Config.Timeout)
	assert.Equal(t, 1, invoked.Metrics.Counts.Done)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/echo", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status model.FunctionStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Len(t, status.History, 1)
	assert.Equal(t, invoked.Invocation.ID, status.History[0].ID)
	assert.Nil(t, status.Invocation)
}

func TestRouterOverview(t *testing.T) {
	router := newTestAPI(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "echo")
	assert.Contains(t, resp, "metrics")
	assert.JSONEq(t, "1", string(resp["maxConcurrency"]))
}

func TestRouterUnknownFunction(t *testing.T) {
	router := newTestAPI(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerListenOnDynamicPort(t *testing.T) {
	server := NewServer("127.0.0.1", 0, http.NotFoundHandler())
	require.NoError(t, server.Listen())
	assert.True(t, server.IsListening())
	assert.NotZero(t, server.Port())

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- server.Serve(ctx) }()

	resp, err := http.Get(server.URL("/anything"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	cancel()
	assert.NoError(t, <-served)
}
