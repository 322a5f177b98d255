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
	"github.com/GlobalSushrut/connector-oss/lib/claims"
	"github.com/GlobalSushrut/connector-oss/lib/merkle"
	"github.com/GlobalSushrut/connector-oss/lib/record"
)

// claimView is the JSON form of an indexed claim.
type claimView struct {
	CID       record.CID   `json:"cid"`
	Claim     record.Claim `json:"claim"`
	BlockNo   uint64       `json:"block_no"`
	LeafIndex uint64       `json:"leaf_index"`
}

func newClaimView(item claims.Item) claimView {
	return claimView{CID: item.CID, Claim: item.Claim, BlockNo: item.BlockNo, LeafIndex: item.LeafIndex}
}

func printClaim(env *Env, item claims.Item) {
	claim := item.Claim
	fmt.Fprintf(env.Stdout, "%s\t%s %s = %v (confidence %g)\t%s\tblock %d\n",
		item.CID, claim.Subject, claim.Predicate, claim.Value, claim.Confidence,
		claim.Timestamp.Format(time.RFC3339), item.BlockNo)
}

type slotParams struct {
	configParams
	cli.JSONOutput
}

func slotArgs(name string, args []string) (string, string, error) {
	if len(args) != 2 {
		return "", "", fmt.Errorf("usage: vac %s <subject> <predicate>", name)
	}
	return args[0], args[1], nil
}

func latestCommand(env *Env) *cli.Command {
	var params slotParams
	return &cli.Command{
		Name:    "latest",
		Summary: "Print the current claim on a subject and predicate",
		Description: `Print the current committed claim on (subject, predicate): the one
with the latest timestamp, preferring a superseding claim on a tie.
Exits 1 when there is none.`,
		Usage: "vac latest <subject> <predicate> [flags]",
		Examples: []cli.Example{
			{Command: "vac latest patient:1042 allergy"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("latest", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			subject, predicate, err := slotArgs("latest", args)
			if err != nil {
				return err
			}
			l, _, err := env.openLedger(ctx, params.configParams, logger)
			if err != nil {
				return err
			}
			defer l.Close()

			item, ok := l.Claims().Latest(subject, predicate)
			if !ok {
				if done, err := params.EmitJSON(env.Stdout, nil); done {
					if err != nil {
						return err
					}
					return &cli.ExitError{Code: 1}
				}
				fmt.Fprintf(env.Stdout, "no claims on %s %s\n", subject, predicate)
				return &cli.ExitError{Code: 1}
			}
			if done, err := params.EmitJSON(env.Stdout, newClaimView(item)); done {
				return err
			}
			printClaim(env, item)
			return nil
		},
	}
}

func historyCommand(env *Env) *cli.Command {
	var params slotParams
	return &cli.Command{
		Name:    "history",
		Summary: "List every claim on a subject and predicate",
		Usage:   "vac history <subject> <predicate> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("history", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			subject, predicate, err := slotArgs("history", args)
			if err != nil {
				return err
			}
			l, _, err := env.openLedger(ctx, params.configParams, logger)
			if err != nil {
				return err
			}
			defer l.Close()

			history := l.Claims().History(subject, predicate)
			views := make([]claimView, len(history))
			for i, item := range history {
				views[i] = newClaimView(item)
			}
			if done, err := params.EmitJSON(env.Stdout, views); done {
				return err
			}
			for _, item := range history {
				printClaim(env, item)
			}
			return nil
		},
	}
}

// provenanceView is the JSON form of a provenance bundle.
type provenanceView struct {
	CID            record.CID         `json:"cid"`
	Claim          record.Claim       `json:"claim"`
	Canonical      string             `json:"canonical"`
	Evidence       []evidenceView     `json:"evidence"`
	Block          blockView          `json:"block"`
	LeafIndex      uint64             `json:"leaf_index"`
	TreeSize       uint64             `json:"tree_size"`
	RootHash       string             `json:"root_hash"`
	Proof          []merkle.ProofNode `json:"proof"`
	SupersededBy   []record.CID       `json:"superseded_by"`
	ClaimCIDValid  bool               `json:"claim_cid_valid"`
	BlockSigned    bool               `json:"block_signed"`
	SignatureValid bool               `json:"signature_valid"`
	ProofValid     bool               `json:"proof_valid"`
}

type evidenceView struct {
	CID       record.CID  `json:"cid"`
	Kind      record.Kind `json:"kind"`
	BlockNo   uint64      `json:"block_no"`
	LeafIndex uint64      `json:"leaf_index"`
}

func newProvenanceView(bundle *claims.Bundle) provenanceView {
	view := provenanceView{
		CID:            bundle.CID,
		Claim:          bundle.Claim,
		Canonical:      string(bundle.Canonical),
		Block:          newBlockView(bundle.Block),
		LeafIndex:      bundle.LeafIndex,
		SupersededBy:   bundle.SupersededBy,
		ClaimCIDValid:  bundle.ClaimCIDValid,
		BlockSigned:    bundle.BlockSigned,
		SignatureValid: bundle.SignatureValid,
	}
	for _, evidence := range bundle.Evidence {
		view.Evidence = append(view.Evidence, evidenceView{
			CID:       evidence.CID,
			Kind:      evidence.Record.Kind(),
			BlockNo:   evidence.BlockNo,
			LeafIndex: evidence.LeafIndex,
		})
	}
	if bundle.Proof != nil {
		view.TreeSize = bundle.Proof.TreeSize
		view.RootHash = bundle.Proof.Root.String()
		view.Proof = bundle.Proof.Nodes()
		view.ProofValid = merkle.Verify(merkle.HashLeaf(bundle.Canonical), bundle.Proof.Steps, bundle.Proof.Root)
	}
	return view
}

type provenanceParams struct {
	configParams
	cli.JSONOutput
}

func provenanceCommand(env *Env) *cli.Command {
	var params provenanceParams
	return &cli.Command{
		Name:    "provenance",
		Summary: "Print the provenance bundle of a committed claim",
		Description: `Print everything needed to check a claim independently: its canonical
bytes, the evidence it cites, the committing block and its signature
status, an inclusion proof against the current root, and the claims
that supersede it. Exits 1 when the claim fails its integrity check.`,
		Usage: "vac provenance <claim-cid> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("provenance", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: vac provenance <claim-cid>")
			}
			cid, err := address.Parse(args[0])
			if err != nil {
				return err
			}
			l, _, err := env.openLedger(ctx, params.configParams, logger)
			if err != nil {
				return err
			}
			defer l.Close()

			bundle, err := l.Provenance(cid)
			mismatch := errors.Is(err, address.ErrIntegrityMismatch)
			if err != nil && !mismatch {
				return err
			}
			return printProvenance(env, &params.JSONOutput, bundle, mismatch)
		},
	}
}

func printProvenance(env *Env, output *cli.JSONOutput, bundle *claims.Bundle, mismatch bool) error {
	view := newProvenanceView(bundle)
	if done, err := output.EmitJSON(env.Stdout, view); done {
		if err == nil && mismatch {
			return &cli.ExitError{Code: 1}
		}
		return err
	}

	claim := bundle.Claim
	fmt.Fprintf(env.Stdout, "claim      %s\n", view.CID)
	fmt.Fprintf(env.Stdout, "           %s %s = %v (confidence %g)\n", claim.Subject, claim.Predicate, claim.Value, claim.Confidence)
	fmt.Fprintf(env.Stdout, "integrity  %s\n", verdict(view.ClaimCIDValid))
	fmt.Fprintf(env.Stdout, "block      %d %s\n", view.Block.BlockNo, view.Block.BlockHash)
	switch {
	case !view.BlockSigned:
		fmt.Fprintln(env.Stdout, "signature  unsigned")
	default:
		fmt.Fprintf(env.Stdout, "signature  %s by %s\n", verdict(view.SignatureValid), view.Block.KeyID)
	}
	fmt.Fprintf(env.Stdout, "inclusion  %s (leaf %d of %d, root %s)\n", verdict(view.ProofValid), view.LeafIndex, view.TreeSize, view.RootHash)
	for _, evidence := range view.Evidence {
		fmt.Fprintf(env.Stdout, "evidence   %s (%s, block %d)\n", evidence.CID, evidence.Kind, evidence.BlockNo)
	}
	for _, successor := range view.SupersededBy {
		fmt.Fprintf(env.Stdout, "superseded by %s\n", successor)
	}
	if mismatch {
		return &cli.ExitError{Code: 1}
	}
	return nil
}

func verdict(ok bool) string {
	if ok {
		return "valid"
	}
	return "INVALID"
}
