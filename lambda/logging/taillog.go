// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"io"
	"sync"
)

// TailLogWriter echoes function output to the provided io.Writer when enabled.
type TailLogWriter struct {
	mu      sync.Mutex
	out     io.Writer
	enabled bool
}

// Enable enables log writer.
func (lw *TailLogWriter) Enable() {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.enabled = true
}

// Writer wraps the basic io.Write method
func (lw *TailLogWriter) Write(p []byte) (n int, err error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if lw.enabled {
		return lw.out.Write(p)
	}
	// Else returns a successful write so that MultiWriter won't stop
	return len(p), nil
}

// WriteChunk writes one output chunk of an invocation, prefixed with its
// function and request id.
func (lw *TailLogWriter) WriteChunk(function, requestID string, chunk []byte) {
	line := make([]byte, 0, len(function)+len(requestID)+len(chunk)+4)
	line = append(line, function...)
	line = append(line, ' ')
	line = append(line, requestID...)
	line = append(line, ": "...)
	line = append(line, chunk...)
	if len(chunk) == 0 || chunk[len(chunk)-1] != '\n' {
		line = append(line, '\n')
	}
	lw.Write(line)
}

// NewTailLogWriter returns a new tail log writer, output is discarded until it is enabled.
func NewTailLogWriter(w io.Writer) *TailLogWriter {
	return &TailLogWriter{
		out:     w,
		enabled: false,
	}
}
