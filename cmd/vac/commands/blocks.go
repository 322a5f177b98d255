// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/GlobalSushrut/connector-oss/cmd/vac/cli"
	"github.com/GlobalSushrut/connector-oss/lib/chain"
	"github.com/GlobalSushrut/connector-oss/lib/codec"
	"github.com/GlobalSushrut/connector-oss/lib/record"
)

// blockView is the JSON form of a committed block.
type blockView struct {
	BlockNo   uint64       `json:"block_no"`
	PrevHash  string       `json:"prev_hash"`
	Timestamp time.Time    `json:"timestamp"`
	Records   []record.CID `json:"record_cids"`
	BlockHash string       `json:"block_hash"`
	Signature string       `json:"signature,omitempty"`
	KeyID     string       `json:"key_id,omitempty"`
	Mode      string       `json:"mode"`
	TreeSize  uint64       `json:"tree_size,omitempty"`
	TreeRoot  string       `json:"tree_root,omitempty"`

	// Raw is the stored CBOR row in diagnostic notation, set by --raw.
	Raw string `json:"raw,omitempty"`
}

func newBlockView(block *chain.Block) blockView {
	view := blockView{
		BlockNo:   block.Number,
		PrevHash:  block.PrevHash.String(),
		Timestamp: block.Timestamp,
		Records:   block.Records,
		BlockHash: block.Hash.String(),
		Mode:      block.Mode.String(),
	}
	if block.Signed() {
		view.Signature = block.Signature.Hex()
		view.KeyID = block.Signature.KeyID
	}
	if block.Mode == chain.ModeMerkle {
		view.TreeSize = block.TreeSize
		view.TreeRoot = block.TreeRoot.String()
	}
	return view
}

type blocksParams struct {
	configParams
	cli.JSONOutput
	From  uint64 `json:"from" flag:"from" desc:"first block number"`
	Limit int    `json:"limit" flag:"limit,n" desc:"maximum number of blocks (0 for all)"`
	Raw   bool   `json:"raw" flag:"raw" desc:"show each block as stored, in CBOR diagnostic notation"`
}

func blocksCommand(env *Env) *cli.Command {
	var params blocksParams
	return &cli.Command{
		Name:    "blocks",
		Summary: "List committed blocks",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("blocks", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			l, _, err := env.openLedger(ctx, params.configParams, logger)
			if err != nil {
				return err
			}
			defer l.Close()

			var views []blockView
			for _, block := range l.Log().Blocks() {
				if block.Number < params.From {
					continue
				}
				if params.Limit > 0 && len(views) == params.Limit {
					break
				}
				view := newBlockView(block)
				if params.Raw {
					if view.Raw, err = rawBlock(block); err != nil {
						return err
					}
				}
				views = append(views, view)
			}

			if done, err := params.EmitJSON(env.Stdout, views); done {
				return err
			}
			if params.Raw {
				for _, view := range views {
					fmt.Fprintf(env.Stdout, "block %d: %s\n", view.BlockNo, view.Raw)
				}
				return nil
			}
			tw := tabwriter.NewWriter(env.Stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "BLOCK\tTIME\tRECORDS\tSIGNED\tHASH")
			for _, view := range views {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%t\t%s\n",
					view.BlockNo, view.Timestamp.Format(time.RFC3339), len(view.Records), view.Signature != "", view.BlockHash)
			}
			return tw.Flush()
		},
	}
}

// rawBlock renders the stored encoding of block.
func rawBlock(block *chain.Block) (string, error) {
	data, err := codec.Marshal(block.Stored())
	if err != nil {
		return "", fmt.Errorf("encoding block %d: %w", block.Number, err)
	}
	return codec.Diagnose(data)
}
