// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package rendering

import (
	"fmt"
	"net/http"

	"github.com/devlambda/devlambda/lambda/rapi/model"

	"github.com/go-chi/render"
	log "github.com/sirupsen/logrus"
)

func renderError(w http.ResponseWriter, r *http.Request, status int, errorType, format string, args ...interface{}) {
	if err := RenderJSON(status, w, r, &model.ErrorResponse{
		ErrorType:    errorType,
		ErrorMessage: fmt.Sprintf(format, args...),
	}); err != nil {
		log.WithError(err).Warn("Error while rendering response")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// RenderFunctionNotFound renders an unknown function name error response
func RenderFunctionNotFound(w http.ResponseWriter, r *http.Request, name string) {
	renderError(w, r, http.StatusNotFound, ErrorTypeFunctionNotFound, "Function not found: %s", name)
}

// RenderInvalidRequest renders a malformed request error response
func RenderInvalidRequest(w http.ResponseWriter, r *http.Request, format string, args ...interface{}) {
	renderError(w, r, http.StatusBadRequest, ErrorTypeInvalidRequest, format, args...)
}

// RenderRequestEntityTooLarge method for rendering error response
func RenderRequestEntityTooLarge(w http.ResponseWriter, r *http.Request, limit int64) {
	renderError(w, r, http.StatusRequestEntityTooLarge, ErrorTypeRequestEntityTooLarge,
		"Exceeded maximum allowed payload size (%d bytes).", limit)
}

// RenderServiceUnavailable renders an error response for calls made while shutting down
func RenderServiceUnavailable(w http.ResponseWriter, r *http.Request) {
	renderError(w, r, http.StatusServiceUnavailable, ErrorTypeServiceUnavailable, "Service is shutting down")
}

// RenderInternalServerError method for rendering error response
func RenderInternalServerError(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, &model.ErrorResponse{
		ErrorMessage: "Internal Server Error",
		ErrorType:    ErrorTypeInternalServerError,
	})
}
