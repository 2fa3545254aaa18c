// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"net/http"

	"github.com/devlambda/devlambda/lambda/rapi/model"

	log "github.com/sirupsen/logrus"
)

type overviewHandler struct {
	scheduler Scheduler
	registry  Registry
}

func (h *overviewHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	names := h.registry.Names()
	overview, err := h.scheduler.Overview(request.Context(), names)
	if err != nil {
		renderSchedulerError(writer, request, err)
		return
	}

	response := model.OverviewResponse{
		Functions:      make(map[string]model.FunctionStatusResponse, len(names)),
		Metrics:        overview.Global,
		MaxConcurrency: h.scheduler.MaxConcurrency(),
	}
	for _, name := range names {
		def, err := h.registry.Get(name)
		if err != nil {
			// dropped by a concurrent reload
			log.WithField("function", name).Debug(err)
			continue
		}
		response.Functions[name] = statusResponse(def, overview.Functions[name])
	}
	renderResponse(writer, request, response)
}

// NewOverviewHandler returns a new instance of http handler
// for serving GET /.
func NewOverviewHandler(scheduler Scheduler, registry Registry) http.Handler {
	return &overviewHandler{scheduler: scheduler, registry: registry}
}
