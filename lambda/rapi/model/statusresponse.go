// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"encoding/json"

	"github.com/devlambda/devlambda/lambda/function"
	"github.com/devlambda/devlambda/lambda/interop"
	"github.com/devlambda/devlambda/lambda/metrics"
)

// FunctionStatusResponse is the status view of one function. Invocation is
// only set in responses to an invoke.
type FunctionStatusResponse struct {
	History    []interop.InvocationView `json:"history"`
	Metrics    metrics.Metrics          `json:"metrics"`
	Config     function.Definition      `json:"config"`
	Invocation *interop.InvocationView  `json:"invocation,omitempty"`
}

// OverviewResponse is keyed by function name, next to the global metrics and
// the concurrency cap.
type OverviewResponse struct {
	Functions      map[string]FunctionStatusResponse
	Metrics        metrics.Metrics
	MaxConcurrency int
}

func (o OverviewResponse) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(o.Functions)+2)
	for name, status := range o.Functions {
		flat[name] = status
	}
	flat["metrics"] = o.Metrics
	flat["maxConcurrency"] = o.MaxConcurrency
	return json.Marshal(flat)
}
