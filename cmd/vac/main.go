// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/GlobalSushrut/connector-oss/cmd/vac/cli"
	"github.com/GlobalSushrut/connector-oss/cmd/vac/commands"
	"github.com/GlobalSushrut/connector-oss/lib/process"
)

func main() {
	// Verification failures print their own report and return an
	// ExitError; process.Exit prints nothing more for those.
	process.Exit(run())
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	level := slog.LevelInfo
	if os.Getenv("VAC_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := cli.NewCommandLogger(os.Stderr, level)
	return commands.Root(commands.DefaultEnv()).Execute(ctx, os.Args[1:], logger)
}
