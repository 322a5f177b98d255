// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/pflag"

	"github.com/GlobalSushrut/connector-oss/cmd/vac/cli"
)

type runParams struct {
	configParams
	Interval time.Duration `json:"-" flag:"interval" desc:"commit interval (default: log.heartbeat_interval)"`
}

func runCommand(env *Env) *cli.Command {
	var params runParams
	return &cli.Command{
		Name:    "run",
		Summary: "Commit on a fixed interval until interrupted",
		Description: `Open the log and commit the pending set every interval until the
process receives SIGINT or SIGTERM. With log.allow_empty_blocks set,
every tick produces a block even when nothing is pending, so the
chain doubles as a liveness heartbeat.`,
		Usage: "vac run [--interval 30s] [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("run", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			l, cfg, err := env.openLedger(ctx, params.configParams, logger)
			if err != nil {
				return err
			}
			defer l.Close()

			interval := params.Interval
			if interval == 0 {
				interval, err = cfg.HeartbeatInterval()
				if err != nil {
					return err
				}
			}
			if interval <= 0 {
				return fmt.Errorf("no commit interval: pass --interval or set log.heartbeat_interval")
			}
			return l.Run(ctx, interval)
		},
	}
}
