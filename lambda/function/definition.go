// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package function

import "strings"

// Definition is an immutable, loaded function configuration.
type Definition struct {
	Name    string `json:"name"`
	Dir     string `json:"dirPath"`
	Handler string `json:"handler"`
	// MaxMemory is the memory ceiling in MB.
	MaxMemory int `json:"maxMemory"`
	// Timeout is the run time ceiling in seconds.
	Timeout int `json:"timeout"`
}

// ModulePart is the first dot-separated segment of the handler.
func (d Definition) ModulePart() string {
	module, _ := SplitHandler(d.Handler)
	return module
}

// ExportPart is the second dot-separated segment of the handler.
func (d Definition) ExportPart() string {
	_, export := SplitHandler(d.Handler)
	return export
}

// SplitHandler splits "<module>.<export>[.rest]" into module and export.
// Segments after the second one are dropped, so "index.handler.extra"
// yields ("index", "handler"). A handler without a dot has an empty export.
func SplitHandler(handler string) (module, export string) {
	parts := strings.Split(handler, ".")
	module = parts[0]
	if len(parts) > 1 {
		export = parts[1]
	}
	return module, export
}
