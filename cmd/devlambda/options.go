// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/devlambda/devlambda/lambda/core"
	"github.com/devlambda/devlambda/lambda/function"
	"github.com/devlambda/devlambda/lambda/history"

	"github.com/jessevdk/go-flags"
)

const (
	defaultBaseDir   = "./lambdas"
	defaultHandler   = "index.handler"
	defaultMaxMemory = 128
	defaultTimeout   = 3
	defaultPort      = 8080
)

type options struct {
	BaseDir        string `long:"base-dir" env:"LAMBDADEV_BASE_DIR" default:"./lambdas" description:"directory holding one subdirectory per function"`
	Handler        string `long:"handler" env:"LAMBDADEV_DEFAULT_HANDLER" default:"index.handler" description:"handler of functions whose config sets none"`
	MaxMemory      int    `long:"max-memory" env:"LAMBDADEV_DEFAULT_MAX_MEMORY" default:"128" description:"memory ceiling in MB of functions whose config sets none"`
	Timeout        int    `long:"timeout" env:"LAMBDADEV_DEFAULT_TIMEOUT" default:"3" description:"timeout in seconds of functions whose config sets none"`
	MaxConcurrency int    `long:"max-concurrency" env:"LAMBDADEV_MAX_CONCURRENCY" default:"1" description:"invocations allowed to initialize or run at once"`
	MaxHistory     int    `long:"max-history" env:"LAMBDADEV_MAX_HISTORY" default:"10" description:"invocations kept per function"`
	Host           string `long:"host" env:"LAMBDADEV_HOST" default:"0.0.0.0" description:"address the API listens on"`
	Port           int    `long:"port" env:"LAMBDADEV_PORT" default:"8080" description:"port the API listens on"`
	LogLevel       string `long:"log-level" env:"LAMBDADEV_LOG_LEVEL" default:"info" description:"log level"`
	LogFormat      string `long:"log-format" env:"LAMBDADEV_LOG_FORMAT" default:"text" choice:"text" choice:"json" description:"log format"`
	Node           string `long:"node" env:"LAMBDADEV_NODE" default:"node" description:"node interpreter running the handlers"`
	Sampler        string `long:"sampler" env:"LAMBDADEV_SAMPLER" default:"ps" choice:"ps" choice:"process" description:"how process memory is read"`
	EchoOutput     bool   `long:"echo-output" env:"LAMBDADEV_ECHO_OUTPUT" description:"echo function output to stdout"`

	Args struct {
		BaseDir string `positional-arg-name:"base-dir"`
	} `positional-args:"yes"`
}

func parseOptions(args []string) (options, error) {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return opts, err
	}
	return opts.normalize(), nil
}

// normalize applies the positional base directory and replaces
// non-positive numbers with the defaults.
func (o options) normalize() options {
	if o.Args.BaseDir != "" {
		o.BaseDir = o.Args.BaseDir
	}
	if o.BaseDir == "" {
		o.BaseDir = defaultBaseDir
	}
	if o.Handler == "" {
		o.Handler = defaultHandler
	}
	if o.MaxMemory <= 0 {
		o.MaxMemory = defaultMaxMemory
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = core.DefaultMaxConcurrency
	}
	if o.MaxHistory <= 0 {
		o.MaxHistory = history.DefaultCapacity
	}
	if o.Port <= 0 {
		o.Port = defaultPort
	}
	return o
}

func (o options) functionDefaults() function.Defaults {
	return function.Defaults{
		Handler:   o.Handler,
		MaxMemory: o.MaxMemory,
		Timeout:   o.Timeout,
	}
}

func (o options) schedulerConfig() core.Config {
	return core.Config{
		MaxConcurrency: o.MaxConcurrency,
		MaxHistory:     o.MaxHistory,
	}
}
