// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/GlobalSushrut/connector-oss/cmd/vac/cli"
	"github.com/GlobalSushrut/connector-oss/lib/version"
)

// Root builds the vac command tree.
func Root(env *Env) *cli.Command {
	return &cli.Command{
		Name: "vac",
		Description: `vac: verifiable attestation log.

Append events, claims, and action envelopes to a content-addressed,
hash-linked, optionally signed log, and answer inclusion, consistency,
and provenance queries against it.

Configuration is read from the file named by $VAC_CONFIG or --config.`,
		Output: env.Stderr,
		Subcommands: []*cli.Command{
			keysCommand(env),
			appendCommand(env),
			commitCommand(env),
			runCommand(env),
			verifyCommand(env),
			blocksCommand(env),
			rootCommand(env),
			proofCommand(env),
			consistencyCommand(env),
			treeHeadCommand(env),
			verifyProofCommand(env),
			latestCommand(env),
			historyCommand(env),
			provenanceCommand(env),
			versionCommand(env),
		},
		Examples: []cli.Example{
			{
				Description: "Create a signing key for the log",
				Command:     "vac keys generate --out ~/.cache/vac/signing.key",
			},
			{
				Description: "Append a record and commit it",
				Command:     "vac append observation.json",
			},
			{
				Description: "Check the whole chain",
				Command:     "vac verify",
			},
			{
				Description: "Show where a claim came from",
				Command:     "vac provenance bagaaiera...",
			},
		},
	}
}

type versionParams struct {
	Full bool `json:"-" flag:"full" desc:"also print the digest of the running binary"`
}

func versionCommand(env *Env) *cli.Command {
	var params versionParams
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("version", &params)
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if !params.Full {
				fmt.Fprintf(env.Stdout, "vac %s\n", version.Info())
				return nil
			}
			fmt.Fprintf(env.Stdout, "vac %s\n", version.Full())
			digest, path, err := version.ExecutableDigest()
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Stdout, "  Binary: %s\n  SHA-256: %s\n", path, digest)
			return nil
		},
	}
}
