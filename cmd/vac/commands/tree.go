// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/GlobalSushrut/connector-oss/cmd/vac/cli"
	"github.com/GlobalSushrut/connector-oss/lib/ledger"
	"github.com/GlobalSushrut/connector-oss/lib/merkle"
)

// treeParams selects the tree a query is addressed to.
type treeParams struct {
	configParams
	cli.JSONOutput
	TreeID string `json:"tree_id" flag:"tree,t" desc:"tree ID (default: the configured log ID)"`
}

// openTree opens the ledger and resolves the tree ID.
func (e *Env) openTree(ctx context.Context, params treeParams, logger *slog.Logger) (*ledger.Ledger, string, error) {
	l, cfg, err := e.openLedger(ctx, params.configParams, logger)
	if err != nil {
		return nil, "", err
	}
	treeID := params.TreeID
	if treeID == "" {
		treeID = cfg.Log.ID
	}
	return l, treeID, nil
}

func rootCommand(env *Env) *cli.Command {
	var params treeParams
	return &cli.Command{
		Name:    "root",
		Summary: "Print the committed Merkle root",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("root", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			l, treeID, err := env.openTree(ctx, params, logger)
			if err != nil {
				return err
			}
			defer l.Close()

			info, err := l.Root(treeID)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.Stdout, info); done {
				return err
			}
			fmt.Fprintf(env.Stdout, "%s\t%d\n", info.RootHash, info.TreeSize)
			return nil
		},
	}
}

func proofCommand(env *Env) *cli.Command {
	var params treeParams
	return &cli.Command{
		Name:    "proof",
		Summary: "Print the inclusion proof of a leaf",
		Usage:   "vac proof <leaf-index> [flags]",
		Examples: []cli.Example{
			{
				Description: "Save a proof and check it offline",
				Command:     "vac proof 17 --json > proof.json && vac verify-proof proof.json",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("proof", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: vac proof <leaf-index>")
			}
			index, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("leaf index: %w", err)
			}
			l, treeID, err := env.openTree(ctx, params, logger)
			if err != nil {
				return err
			}
			defer l.Close()

			info, err := l.Proof(treeID, index)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.Stdout, info); done {
				return err
			}
			fmt.Fprintf(env.Stdout, "leaf %d of %d: %s\nroot: %s\n", info.LeafIndex, info.TreeSize, info.LeafHash, info.RootHash)
			for _, node := range info.Nodes {
				fmt.Fprintf(env.Stdout, "  %-5s %s\n", node.Position, node.Hash)
			}
			return nil
		},
	}
}

func consistencyCommand(env *Env) *cli.Command {
	var params treeParams
	return &cli.Command{
		Name:    "consistency",
		Summary: "Print the consistency proof between two tree sizes",
		Usage:   "vac consistency <first-size> <second-size> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("consistency", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: vac consistency <first-size> <second-size>")
			}
			first, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("first size: %w", err)
			}
			second, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("second size: %w", err)
			}
			l, treeID, err := env.openTree(ctx, params, logger)
			if err != nil {
				return err
			}
			defer l.Close()

			info, err := l.Consistency(treeID, first, second)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.Stdout, info); done {
				return err
			}
			fmt.Fprintf(env.Stdout, "%d: %s\n%d: %s\n", info.FirstSize, info.FirstRoot, info.SecondSize, info.SecondRoot)
			for _, node := range info.Nodes {
				fmt.Fprintf(env.Stdout, "  %s\n", node)
			}
			return nil
		},
	}
}

func treeHeadCommand(env *Env) *cli.Command {
	var params treeParams
	return &cli.Command{
		Name:    "tree-head",
		Summary: "Print the signed tree head",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("tree-head", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			l, treeID, err := env.openTree(ctx, params, logger)
			if err != nil {
				return err
			}
			defer l.Close()

			head, err := l.TreeHead(treeID)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.Stdout, head); done {
				return err
			}
			fmt.Fprintf(env.Stdout, "tree %s size %d root %s\n", head.TreeID, head.TreeSize, head.RootHash)
			if head.Signature == "" {
				fmt.Fprintln(env.Stdout, "unsigned")
			} else {
				fmt.Fprintf(env.Stdout, "signed by %s\n", head.KeyID)
			}
			return nil
		},
	}
}

type verifyProofParams struct {
	cli.JSONOutput
	Root string `json:"root" flag:"root" desc:"check against this root instead of the one in the proof"`
}

// verifyProofResult is the outcome of an offline proof check.
type verifyProofResult struct {
	Valid     bool   `json:"valid"`
	LeafIndex uint64 `json:"leaf_index"`
	LeafHash  string `json:"leaf_hash"`
	RootHash  string `json:"root_hash"`
}

func verifyProofCommand(env *Env) *cli.Command {
	var params verifyProofParams
	return &cli.Command{
		Name:    "verify-proof",
		Summary: "Check an inclusion proof offline",
		Description: `Check an inclusion proof produced by "vac proof --json" without
access to the log. The proof is read from the named file or stdin.
Exits 1 when the proof does not verify.`,
		Usage: "vac verify-proof [<proof.json>|-] [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("verify-proof", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			var source io.Reader = env.Stdin
			if len(args) > 1 {
				return fmt.Errorf("usage: vac verify-proof [<proof.json>|-]")
			}
			if len(args) == 1 && args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer file.Close()
				source = file
			}
			var proof ledger.ProofInfo
			if err := json.NewDecoder(source).Decode(&proof); err != nil {
				return fmt.Errorf("parsing proof: %w", err)
			}

			root := proof.RootHash
			if params.Root != "" {
				root = params.Root
			}
			result := verifyProofResult{
				Valid:     merkle.VerifyHex(proof.LeafHash, proof.Nodes, root),
				LeafIndex: proof.LeafIndex,
				LeafHash:  proof.LeafHash,
				RootHash:  root,
			}
			if done, err := params.EmitJSON(env.Stdout, result); done {
				if err == nil && !result.Valid {
					return &cli.ExitError{Code: 1}
				}
				return err
			}
			if !result.Valid {
				fmt.Fprintf(env.Stdout, "INVALID: leaf %s is not included under root %s\n", proof.LeafHash, root)
				return &cli.ExitError{Code: 1}
			}
			fmt.Fprintf(env.Stdout, "valid: leaf %d is included under root %s\n", proof.LeafIndex, root)
			return nil
		},
	}
}
