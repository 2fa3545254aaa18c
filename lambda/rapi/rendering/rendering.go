// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package rendering

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
)

const (
	// ErrorTypeInternalServerError error type for internal server error
	ErrorTypeInternalServerError = "InternalServerError"
	// ErrorTypeRequestEntityTooLarge error type for payload too large
	ErrorTypeRequestEntityTooLarge = "RequestEntityTooLarge"
	// ErrorTypeFunctionNotFound error type for unknown function names
	ErrorTypeFunctionNotFound = "Function.NotFound"
	// ErrorTypeInvalidRequest error type for malformed requests
	ErrorTypeInvalidRequest = "Client.InvalidRequest"
	// ErrorTypeServiceUnavailable error type for calls during shutdown
	ErrorTypeServiceUnavailable = "ServiceUnavailable"
)

// RenderJSON writes v as tab-indented JSON with the given status code.
func RenderJSON(status int, w http.ResponseWriter, r *http.Request, v interface{}) error {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(true)
	enc.SetIndent("", "\t")
	if err := enc.Encode(v); err != nil {
		return err
	}

	render.Status(r, status)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}
