// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package interop

import "encoding/json"

// InvokeMessage is sent to the child on its control channel once it
// reported ready.
type InvokeMessage struct {
	Name       string          `json:"name"`
	ModulePart string          `json:"modulePart"`
	ExportPart string          `json:"exportPart"`
	Event      json.RawMessage `json:"event"`
}
