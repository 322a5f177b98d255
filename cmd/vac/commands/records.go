// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"github.com/GlobalSushrut/connector-oss/cmd/vac/cli"
	"github.com/GlobalSushrut/connector-oss/lib/canonical"
	"github.com/GlobalSushrut/connector-oss/lib/ledger"
	"github.com/GlobalSushrut/connector-oss/lib/record"
	"github.com/GlobalSushrut/connector-oss/lib/signing"
)

type appendParams struct {
	configParams
	cli.JSONOutput
	SignKey       string `json:"-" flag:"sign-key" desc:"sign each record with this submitter key file"`
	PassphraseEnv string `json:"-" flag:"passphrase-env" desc:"environment variable holding the submitter key passphrase"`
	NoCommit      bool   `json:"-" flag:"no-commit" desc:"leave the records pending (they are lost when the command exits unless auto_commit is set)"`
}

func appendCommand(env *Env) *cli.Command {
	var params appendParams
	return &cli.Command{
		Name:    "append",
		Summary: "Append records and commit them as one block",
		Description: `Append one or more records to the log and commit them as one block.

Each argument is a JSON (or JSONC, with comments and trailing commas)
file holding one record, or "-" for stdin. The "kind" member selects
the variant: "event", "claim", or "action". A record without a
"timestamp" is stamped with the current time.

A record already in the log is reported as a duplicate and not
appended again.`,
		Usage: "vac append <record.json>... [flags]",
		Examples: []cli.Example{
			{
				Description: "Record an observation, then a claim citing it",
				Command:     "vac append observation.json && vac append claim.json",
			},
			{
				Description: "Append from stdin with a submitter signature",
				Command:     "cat event.json | vac append --sign-key submitter.key -",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("append", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) == 0 {
				return fmt.Errorf("at least one record file is required")
			}
			records := make([]record.Record, len(args))
			for i, path := range args {
				r, err := readRecord(env, path)
				if err != nil {
					return err
				}
				records[i] = r
			}

			var submitter *signing.KeyPair
			if params.SignKey != "" {
				var passphrase []byte
				if value, ok := os.LookupEnv(params.PassphraseEnv); ok && params.PassphraseEnv != "" {
					passphrase = []byte(value)
				}
				key, err := env.loadKeyFile(params.SignKey, passphrase)
				if err != nil {
					return err
				}
				defer key.Close()
				submitter = key
			}

			l, _, err := env.openLedger(ctx, params.configParams, logger)
			if err != nil {
				return err
			}
			defer l.Close()

			results := make([]*ledger.SubmitResult, 0, len(records))
			for i, r := range records {
				submission := ledger.Submission{Record: r}
				if submitter != nil {
					data, err := canonical.Encode(r)
					if err != nil {
						return fmt.Errorf("%s: %w", args[i], err)
					}
					if submission.Signature, err = signing.Sign(data, submitter); err != nil {
						return err
					}
				}
				result, err := l.Submit(ctx, submission)
				if err != nil {
					return fmt.Errorf("%s: %w", args[i], err)
				}
				results = append(results, result)
			}

			if !params.NoCommit && l.Log().Pending() > 0 {
				if _, err := l.Commit(ctx); err != nil {
					return err
				}
				for _, result := range results {
					if receipt, ok := l.Receipt(result.CID); ok {
						result.Receipt = receipt
						if result.Status == ledger.StatusPending {
							result.Status = ledger.StatusCommitted
						}
					}
				}
			}

			if done, err := params.EmitJSON(env.Stdout, results); done {
				return err
			}
			for _, result := range results {
				fmt.Fprintf(env.Stdout, "%s\t%s", result.CID, result.Status)
				if result.Receipt != nil {
					fmt.Fprintf(env.Stdout, "\tblock %d\tleaf %d", result.Receipt.BlockNo, result.Receipt.LeafIndex)
				}
				fmt.Fprintln(env.Stdout)
			}
			return nil
		},
	}
}

// readRecord parses a record file. Comments and trailing commas are
// allowed; a missing timestamp is filled from the clock.
func readRecord(env *Env, path string) (record.Record, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(env.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading record: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.UseNumber()
	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%s: parsing record: %w", path, err)
	}
	if _, ok := fields["timestamp"]; !ok {
		fields["timestamp"] = canonical.Time(env.Clock.Now())
	}
	normalized, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r, err := canonical.Decode(normalized)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

type commitParams struct {
	configParams
	cli.JSONOutput
}

func commitCommand(env *Env) *cli.Command {
	var params commitParams
	return &cli.Command{
		Name:    "commit",
		Summary: "Commit a block",
		Description: `Commit a block from the pending set.

Records appended by earlier invocations are already committed, so on
its own this commits an empty heartbeat block when the log allows
empty blocks (log.allow_empty_blocks) and does nothing otherwise.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("commit", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			l, _, err := env.openLedger(ctx, params.configParams, logger)
			if err != nil {
				return err
			}
			defer l.Close()

			block, err := l.Commit(ctx)
			if err != nil {
				return err
			}
			if block == nil {
				if done, err := params.EmitJSON(env.Stdout, map[string]any{"committed": false}); done {
					return err
				}
				fmt.Fprintln(env.Stdout, "nothing to commit")
				return nil
			}
			view := newBlockView(block)
			if done, err := params.EmitJSON(env.Stdout, view); done {
				return err
			}
			fmt.Fprintf(env.Stdout, "committed block %d (%d records) %s\n", block.Number, len(block.Records), block.Hash)
			return nil
		},
	}
}
