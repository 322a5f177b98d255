// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/pflag"

	"github.com/GlobalSushrut/connector-oss/cmd/vac/cli"
	"github.com/GlobalSushrut/connector-oss/lib/address"
	"github.com/GlobalSushrut/connector-oss/lib/chain"
	"github.com/GlobalSushrut/connector-oss/lib/watchdog"
)

type verifyParams struct {
	configParams
	cli.JSONOutput
	MaxAge time.Duration `json:"-" flag:"max-age" desc:"also fail unless the recorded head was committed within this long"`
}

type verifyResult struct {
	Valid    bool   `json:"valid"`
	Blocks   uint64 `json:"blocks"`
	Records  uint64 `json:"records"`
	RootHash string `json:"root_hash,omitempty"`
	Error    string `json:"error,omitempty"`
}

func verifyCommand(env *Env) *cli.Command {
	var params verifyParams
	return &cli.Command{
		Name:    "verify",
		Summary: "Re-verify the whole chain",
		Description: `Replay the stored chain and check every block: numbering, hash
links, block hashes, signatures, and that each record's bytes still
match its CID and tree leaf. The store must also still hold the head
recorded in log.watchdog_file. Exits 1 on the first violation.

With --max-age, the head recorded in log.watchdog_file must also be
younger than the given duration, which tells a stalled heartbeat log
from a live one.`,
		Usage: "vac verify [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("verify", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			l, cfg, err := env.openLedger(ctx, params.configParams, logger)
			if err != nil {
				if integrityFailure(err) {
					return reportVerification(env, &params.JSONOutput, verifyResult{Error: err.Error()})
				}
				return err
			}
			defer l.Close()

			result := verifyResult{Valid: true, Blocks: l.Log().Height()}
			root, size := l.Log().Root()
			result.Records = size
			result.RootHash = root.String()
			if err := l.Verify(); err != nil {
				if !integrityFailure(err) {
					return err
				}
				result = verifyResult{Blocks: result.Blocks, Records: size, Error: err.Error()}
			}
			if result.Valid && params.MaxAge > 0 {
				if cfg.Log.WatchdogFile == "" || cfg.Storage.Backend == "memory" {
					return fmt.Errorf("--max-age needs a persistent store and log.watchdog_file")
				}
				if stale, err := staleHead(cfg.Log.WatchdogFile, params.MaxAge, env.Clock.Now()); err != nil {
					return err
				} else if stale != "" {
					result = verifyResult{Blocks: result.Blocks, Records: size, RootHash: result.RootHash, Error: stale}
				}
			}
			return reportVerification(env, &params.JSONOutput, result)
		},
	}
}

// staleHead describes why the head recorded at path is older than
// maxAge, or returns "" when it is fresh.
func staleHead(path string, maxAge time.Duration, now time.Time) (string, error) {
	state, fresh, err := watchdog.Check(path, maxAge, now)
	switch {
	case err != nil:
		return "", err
	case fresh:
		return "", nil
	case state.Timestamp.IsZero():
		return "no head recorded in " + path, nil
	default:
		return fmt.Sprintf("head is stale: block %d committed %s ago, limit %s",
			state.BlockNo, now.Sub(state.Timestamp).Round(time.Second), maxAge), nil
	}
}

func integrityFailure(err error) bool {
	return errors.Is(err, chain.ErrChainIntegrityViolation) ||
		errors.Is(err, address.ErrIntegrityMismatch) ||
		errors.Is(err, watchdog.ErrRollback) ||
		errors.Is(err, watchdog.ErrForked)
}

func reportVerification(env *Env, output *cli.JSONOutput, result verifyResult) error {
	if done, err := output.EmitJSON(env.Stdout, result); done {
		if err == nil && !result.Valid {
			return &cli.ExitError{Code: 1}
		}
		return err
	}
	if !result.Valid {
		fmt.Fprintf(env.Stdout, "FAILED: %s\n", result.Error)
		return &cli.ExitError{Code: 1}
	}
	fmt.Fprintf(env.Stdout, "OK: %d blocks, %d records, root %s\n", result.Blocks, result.Records, result.RootHash)
	return nil
}
