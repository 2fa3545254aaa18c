// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package model

// ErrorResponse is a standard error response,
// providing information about the error.
type ErrorResponse struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorType    string `json:"errorType"`
}
