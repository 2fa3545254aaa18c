// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"fmt"
	"io"
	"log"
)

// PlatformLogger prints the per-invocation platform lines.
type PlatformLogger interface {
	LogStart(requestID, function string)
	LogEnd(requestID string)
	LogReport(report Report)
}

// Report carries the figures of a REPORT line. Nil figures were never measured.
type Report struct {
	RequestID    string
	InitDuration *int64
	Duration     *int64
	MemorySize   int
	MaxMemory    *int64
	Status       string
}

// FormattedPlatformLogger formats and logs platform lines
type FormattedPlatformLogger struct {
	logger *log.Logger
}

// NewPlatformLogger is a logger for logging Platform log lines
func NewPlatformLogger(output, tailLogWriter io.Writer) *FormattedPlatformLogger {
	prefix, flags := "", 0
	return &FormattedPlatformLogger{
		logger: log.New(io.MultiWriter(output, tailLogWriter), prefix, flags),
	}
}

func (l *FormattedPlatformLogger) LogStart(requestID, function string) {
	l.logger.Printf("START RequestId: %s Function: %s\n", requestID, function)
}

func (l *FormattedPlatformLogger) LogEnd(requestID string) {
	l.logger.Printf("END RequestId: %s\n", requestID)
}

func (l *FormattedPlatformLogger) LogReport(r Report) {
	line := "REPORT RequestId: " + r.RequestID + "\t"
	if r.InitDuration != nil {
		line += fmt.Sprintf("Init Duration: %d ms\t", *r.InitDuration)
	}
	if r.Duration != nil {
		line += fmt.Sprintf("Duration: %d ms\t", *r.Duration)
	}
	line += fmt.Sprintf("Memory Size: %d MB\t", r.MemorySize)
	if r.MaxMemory != nil {
		line += fmt.Sprintf("Max Memory Used: %d MB\t", *r.MaxMemory)
	}
	line += "Status: " + r.Status
	l.logger.Println(line)
}

type discardPlatformLogger struct{}

func (discardPlatformLogger) LogStart(string, string) {}
func (discardPlatformLogger) LogEnd(string)           {}
func (discardPlatformLogger) LogReport(Report)        {}

// NewDiscardPlatformLogger returns a PlatformLogger that prints nothing.
func NewDiscardPlatformLogger() PlatformLogger {
	return discardPlatformLogger{}
}
