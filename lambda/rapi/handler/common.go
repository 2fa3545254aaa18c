// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/devlambda/devlambda/lambda/core"
	"github.com/devlambda/devlambda/lambda/function"
	"github.com/devlambda/devlambda/lambda/interop"
	"github.com/devlambda/devlambda/lambda/rapi/model"
	"github.com/devlambda/devlambda/lambda/rapi/rendering"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	log "github.com/sirupsen/logrus"
)

// MaxPayloadSize is the largest accepted event body.
const MaxPayloadSize = 6 * 1024 * 1024

// Scheduler is the part of core.Scheduler the API needs.
type Scheduler interface {
	InvokeAsync(ctx context.Context, def function.Definition, event json.RawMessage) (interop.InvocationView, error)
	InvokeSync(ctx context.Context, def function.Definition, event json.RawMessage) (interop.InvocationView, error)
	Status(ctx context.Context, name string) (core.FunctionStatus, error)
	Overview(ctx context.Context, names []string) (core.Overview, error)
	MaxConcurrency() int
}

// Registry resolves function names to their definitions.
type Registry interface {
	Get(name string) (function.Definition, error)
	Names() []string
}

var errEntityTooLarge = errors.New("request entity too large")

// readEvent decodes the request body as one JSON value. An empty body is
// the empty object.
func readEvent(writer http.ResponseWriter, request *http.Request) (json.RawMessage, error) {
	body := http.MaxBytesReader(writer, request.Body, MaxPayloadSize)
	var event json.RawMessage
	err := render.DecodeJSON(body, &event)
	var maxBytesErr *http.MaxBytesError
	switch {
	case err == nil:
		return event, nil
	case errors.Is(err, io.EOF):
		return json.RawMessage(`{}`), nil
	case errors.As(err, &maxBytesErr):
		return nil, errEntityTooLarge
	}
	return nil, err
}

// lookup resolves the {name} URL parameter, rendering 404 when unknown.
func lookup(registry Registry, writer http.ResponseWriter, request *http.Request) (function.Definition, bool) {
	name := chi.URLParam(request, "name")
	def, err := registry.Get(name)
	if err != nil {
		log.WithField("function", name).Debug(err)
		rendering.RenderFunctionNotFound(writer, request, name)
		return function.Definition{}, false
	}
	return def, true
}

func statusResponse(def function.Definition, status core.FunctionStatus) model.FunctionStatusResponse {
	history := status.History
	if history == nil {
		history = []interop.InvocationView{}
	}
	return model.FunctionStatusResponse{
		History: history,
		Metrics: status.Metrics,
		Config:  def,
	}
}

// renderSchedulerError maps a failed scheduler call to a response.
func renderSchedulerError(writer http.ResponseWriter, request *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrSchedulerStopped):
		rendering.RenderServiceUnavailable(writer, request)
	case errors.Is(err, context.Canceled):
		// client went away
		log.WithError(err).Debug("Request cancelled")
	default:
		log.WithError(err).Error("Scheduler call failed")
		rendering.RenderInternalServerError(writer, request)
	}
}

func renderResponse(writer http.ResponseWriter, request *http.Request, v interface{}) {
	if err := rendering.RenderJSON(http.StatusOK, writer, request, v); err != nil {
		log.WithError(err).Warn("Error while rendering response")
	}
}
