// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/devlambda/devlambda/lambda/bootstrap"
	"github.com/devlambda/devlambda/lambda/core"
	"github.com/devlambda/devlambda/lambda/function"
	"github.com/devlambda/devlambda/lambda/logging"
	"github.com/devlambda/devlambda/lambda/rapi"
	"github.com/devlambda/devlambda/lambda/sampler"
	"github.com/devlambda/devlambda/lambda/supervisor"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	logging.SetLogLevel(opts.LogLevel)
	if err := logging.SetFormat(opts.LogFormat); err != nil {
		log.WithError(err).Fatal("Failed to set log format")
	}

	if err := run(opts); err != nil {
		log.WithError(err).Fatal("devlambda exited")
	}
}

func run(opts options) error {
	registry := function.NewRegistry(opts.BaseDir, opts.functionDefaults())
	if err := registry.Reload(); err != nil {
		return err
	}
	log.WithFields(log.Fields{"baseDir": registry.BaseDir(), "functions": registry.Names()}).Info("Loaded function definitions")
	logDefinitions(registry)

	memorySampler, err := sampler.New(opts.Sampler)
	if err != nil {
		return err
	}

	tailLog := logging.NewTailLogWriter(os.Stdout)
	if opts.EchoOutput {
		tailLog.Enable()
	}

	scheduler := core.NewScheduler(
		opts.schedulerConfig(),
		supervisor.NewLocalSupervisor(),
		memorySampler,
		bootstrap.NewNodeRuntime(opts.Node),
		core.WithPlatformLogger(logging.NewPlatformLogger(os.Stdout, io.Discard)),
		core.WithTailLog(tailLog),
	)

	server := rapi.NewServer(opts.Host, opts.Port, rapi.NewRouter(scheduler, registry))
	if err := server.Listen(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(ctx)
	})
	g.Go(func() error {
		return server.Serve(ctx)
	})
	g.Go(func() error {
		reloadOnHangup(ctx, registry)
		return nil
	})

	err = g.Wait()
	log.Info("devlambda stopped")
	return err
}

// reloadOnHangup rescans the function directory on every SIGHUP.
func reloadOnHangup(ctx context.Context, registry *function.Registry) {
	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hangup:
			if err := registry.Reload(); err != nil {
				log.WithError(err).Error("Failed to reload function definitions")
				continue
			}
			log.WithField("functions", registry.Names()).Info("Reloaded function definitions")
			logDefinitions(registry)
		}
	}
}

func logDefinitions(registry *function.Registry) {
	for _, def := range registry.List() {
		log.WithFields(log.Fields{
			"handler":   def.Handler,
			"maxMemory": def.MaxMemory,
			"timeout":   def.Timeout,
		}).Debugf("Function %s", def.Name)
	}
}
