// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package rapi

import (
	"net/http"

	"github.com/devlambda/devlambda/lambda/rapi/handler"
	"github.com/devlambda/devlambda/lambda/rapi/middleware"

	"github.com/go-chi/chi"
	chimiddleware "github.com/go-chi/chi/middleware"
)

// NewRouter returns a new instance of chi router serving the function
// status and invoke API.
func NewRouter(scheduler handler.Scheduler, registry handler.Registry) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.AccessLogMiddleware())
	router.Use(chimiddleware.Recoverer)

	router.Get("/", handler.NewOverviewHandler(scheduler, registry).ServeHTTP)
	router.Get("/{name}", handler.NewStatusHandler(scheduler, registry).ServeHTTP)
	router.Post("/{name}", handler.NewInvokeHandler(scheduler, registry).ServeHTTP)
	router.Post("/sync/{name}", handler.NewInvokeSyncHandler(scheduler, registry).ServeHTTP)

	return router
}
