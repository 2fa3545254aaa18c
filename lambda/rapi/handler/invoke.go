// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"errors"
	"net/http"

	"github.com/devlambda/devlambda/lambda/interop"
	"github.com/devlambda/devlambda/lambda/rapi/rendering"

	log "github.com/sirupsen/logrus"
)

type invokeHandler struct {
	scheduler Scheduler
	registry  Registry
	sync      bool
}

func (h *invokeHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	def, ok := lookup(h.registry, writer, request)
	if !ok {
		return
	}

	event, err := readEvent(writer, request)
	if errors.Is(err, errEntityTooLarge) {
		rendering.RenderRequestEntityTooLarge(writer, request, MaxPayloadSize)
		return
	}
	if err != nil {
		rendering.RenderInvalidRequest(writer, request, "Could not parse request body into json: %s", err)
		return
	}

	ctx := request.Context()
	var view interop.InvocationView
	if h.sync {
		view, err = h.scheduler.InvokeSync(ctx, def, event)
	} else {
		view, err = h.scheduler.InvokeAsync(ctx, def, event)
	}
	if err != nil {
		renderSchedulerError(writer, request, err)
		return
	}
	log.WithFields(log.Fields{"function": def.Name, "requestId": view.ID, "status": view.Status}).Debug("Invoke accepted")

	status, err := h.scheduler.Status(ctx, def.Name)
	if err != nil {
		renderSchedulerError(writer, request, err)
		return
	}
	response := statusResponse(def, status)
	response.Invocation = &view
	renderResponse(writer, request, response)
}

// NewInvokeHandler returns a new instance of http handler
// for serving POST /{name}. It responds once the invocation is dispatched
// or queued.
func NewInvokeHandler(scheduler Scheduler, registry Registry) http.Handler {
	return &invokeHandler{scheduler: scheduler, registry: registry}
}

// NewInvokeSyncHandler returns a new instance of http handler
// for serving POST /sync/{name}. It responds once the invocation is closed.
func NewInvokeSyncHandler(scheduler Scheduler, registry Registry) http.Handler {
	return &invokeHandler{scheduler: scheduler, registry: registry, sync: true}
}
