// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"net/http"
)

type statusHandler struct {
	scheduler Scheduler
	registry  Registry
}

func (h *statusHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	def, ok := lookup(h.registry, writer, request)
	if !ok {
		return
	}
	status, err := h.scheduler.Status(request.Context(), def.Name)
	if err != nil {
		renderSchedulerError(writer, request, err)
		return
	}
	renderResponse(writer, request, statusResponse(def, status))
}

// NewStatusHandler returns a new instance of http handler
// for serving GET /{name}.
func NewStatusHandler(scheduler Scheduler, registry Registry) http.Handler {
	return &statusHandler{scheduler: scheduler, registry: registry}
}
