// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

// warble-node is the Warble monitoring node. On start it loads its
// configuration, establishes its key pair and application ID, measures
// its clock against the configured time authority, and prepares its
// calling card for the master.
//
// With --test it runs self-checks instead and prints a checklist. It exits
// 0 once the checks have run, whatever their outcome.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/warble-foundation/warble/lib/bootstrap"
	"github.com/warble-foundation/warble/lib/config"
	"github.com/warble-foundation/warble/lib/process"
	"github.com/warble-foundation/warble/lib/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		process.Exit(err, bootstrap.Explain)
	}
}

// diagnose is a variable so tests can supply a report.
var diagnose = bootstrap.Diagnose

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		configPath  string
		logFormat   string
		testMode    bool
		showVersion bool
	)

	flags := pflag.NewFlagSet("warble-node", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&configPath, "config", "", "configuration file (default: $"+config.EnvironmentVariable+", then conf/node.yaml beside the binary)")
	flags.StringVar(&logFormat, "log-format", "auto", "log format: auto, text or json")
	flags.BoolVar(&testMode, "test", false, "run self-checks and exit")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &process.ExitError{Code: 2}
	}
	if flags.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", flags.Args())
		flags.PrintDefaults()
		return &process.ExitError{Code: 2}
	}

	if showVersion {
		fmt.Fprintf(stdout, "warble-node %s\n", version.Full())
		return nil
	}

	logger, err := newLogger(logFormat, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return &process.ExitError{Code: 2}
	}

	options := bootstrap.Options{
		ConfigPath: configPath,
		Version:    version.Short(),
		Logger:     logger,
	}

	if testMode {
		report, err := diagnose(ctx, options)
		if err != nil {
			return err
		}
		printChecklist(stdout, report)
		if !report.OK() {
			logger.Warn("diagnostics completed with failed checks")
		}
		return nil
	}

	node, err := bootstrap.Run(ctx, options)
	if err != nil {
		return err
	}
	logger.Info("node bootstrapped",
		"appid", node.AppID,
		"fingerprint", node.Key.Fingerprint,
		"first_boot", node.FirstBoot,
		"time_synced", node.TimeSynced,
		"offset_seconds", node.Calibration.Seconds(),
	)
	return nil
}
