// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/GlobalSushrut/connector-oss/lib/address"
	"github.com/GlobalSushrut/connector-oss/lib/blockstore"
	"github.com/GlobalSushrut/connector-oss/lib/canonical"
	"github.com/GlobalSushrut/connector-oss/lib/merkle"
	"github.com/GlobalSushrut/connector-oss/lib/record"
	"github.com/GlobalSushrut/connector-oss/lib/signing"
)

// Open returns a log over cfg.Store, replaying and verifying every
// stored block. A store whose chain fails verification, or whose rows
// fail their checksums, is refused with a *ChainIntegrityError; the
// caller keeps ownership of the store in that case. A signed log also
// requires every stored block to carry its signer's signature.
func Open(ctx context.Context, cfg Config) (*Log, error) {
	l, err := newLog(cfg)
	if err != nil {
		return nil, err
	}

	storedBlocks, storedEntries, err := l.store.Load(ctx)
	var corruption *blockstore.CorruptionError
	if errors.As(err, &corruption) {
		err = &ChainIntegrityError{
			BlockNo: corruption.BlockNo,
			Reason:  fmt.Sprintf("%s row %s: %s", corruption.Table, corruption.Key, corruption.Reason),
			Err:     corruption,
		}
		l.metrics.IntegrityFailure(l.id, "store")
		l.logger.Error("refusing to open log", "error", err)
		return nil, fmt.Errorf("chain: open %s: %w", l.id, err)
	}
	if err != nil {
		return nil, fmt.Errorf("chain: open %s: loading store: %w", l.id, err)
	}
	if err := l.replay(storedBlocks, storedEntries); err != nil {
		l.metrics.IntegrityFailure(l.id, "chain")
		l.logger.Error("refusing to open log", "error", err)
		return nil, fmt.Errorf("chain: open %s: %w", l.id, err)
	}

	root, size := l.Root()
	l.metrics.SetTreeSize(l.id, size)
	l.logger.Info("log opened",
		"mode", l.mode.String(),
		"block_count", l.Height(),
		"tree_size", size,
		"root", root,
		"signed", l.signer != nil,
	)
	return l, nil
}

func (l *Log) replay(storedBlocks []blockstore.Block, storedEntries []blockstore.Entry) error {
	blocks := make([]Block, len(storedBlocks))
	for i, stored := range storedBlocks {
		block, err := fromStoredBlock(stored)
		if err != nil {
			return violation(stored.Number, "%v", err)
		}
		blocks[i] = block
	}
	if err := VerifyBlocks(blocks, l.PublicKey()); err != nil {
		return err
	}
	for i := range blocks {
		if blocks[i].Mode != l.mode {
			return fmt.Errorf("block %d was committed in %s mode, log is configured for %s", blocks[i].Number, blocks[i].Mode, l.mode)
		}
	}

	snap := &snapshot{
		blocks:  make([]*Block, len(blocks)),
		entries: make([]*Entry, 0, len(storedEntries)),
	}
	next := 0
	for i := range blocks {
		block := &blocks[i]
		snap.blocks[i] = block
		for _, cid := range block.Records {
			if next >= len(storedEntries) {
				return violation(block.Number, "record %s is missing from the store", cid.Short())
			}
			entry, err := l.replayEntry(block, cid, uint64(next), storedEntries[next])
			if err != nil {
				return err
			}
			snap.entries = append(snap.entries, entry)
			l.tree.Append(entry.LeafHash)
			l.committed.Store(entry.CID, entry)
			if l.hook != nil {
				l.hook.Accepted(*entry)
			}
			next++
		}
		if block.Mode == ModeMerkle {
			if root := l.tree.Root(); root != block.TreeRoot {
				return violation(block.Number, "tree_root %s, replayed %s", block.TreeRoot, root)
			}
		}
	}
	if next != len(storedEntries) {
		return violation(uint64(len(blocks)), "%d stored records are not listed by any block", len(storedEntries)-next)
	}
	l.current.Store(snap)
	return nil
}

func (l *Log) replayEntry(block *Block, cid record.CID, leaf uint64, stored blockstore.Entry) (*Entry, error) {
	if stored.LeafIndex != leaf || stored.BlockNo != block.Number {
		return nil, violation(block.Number, "record %s stored at leaf %d of block %d, want leaf %d", cid.Short(), stored.LeafIndex, stored.BlockNo, leaf)
	}
	if record.CID(stored.CID) != cid {
		return nil, violation(block.Number, "leaf %d holds %s, block lists %s", leaf, record.CID(stored.CID).Short(), cid.Short())
	}
	if computed := address.FromCanonical(stored.Canonical); computed != cid {
		return nil, violation(block.Number, "record %s: %v: canonical bytes hash to %s", cid.Short(), address.ErrIntegrityMismatch, computed.Short())
	}
	decoded, err := canonical.Decode(stored.Canonical)
	if err != nil {
		return nil, violation(block.Number, "record %s: %v", cid.Short(), err)
	}
	if string(decoded.Kind()) != stored.Kind {
		return nil, violation(block.Number, "record %s: stored kind %q, canonical kind %q", cid.Short(), stored.Kind, decoded.Kind())
	}
	return &Entry{
		CID:       cid,
		Record:    decoded,
		Canonical: stored.Canonical,
		LeafHash:  merkle.HashLeaf(stored.Canonical),
		LeafIndex: leaf,
		BlockNo:   block.Number,
	}, nil
}

func fromStoredBlock(stored blockstore.Block) (Block, error) {
	block := Block{
		Number:    stored.Number,
		Timestamp: stored.Timestamp.UTC(),
		Records:   make([]record.CID, len(stored.Records)),
		Mode:      Mode(stored.Mode),
		TreeSize:  stored.TreeSize,
	}
	var err error
	if block.PrevHash, err = hashFromBytes("prev_hash", stored.PrevHash); err != nil {
		return Block{}, err
	}
	if block.Hash, err = hashFromBytes("block_hash", stored.Hash); err != nil {
		return Block{}, err
	}
	if block.Mode == ModeMerkle {
		if block.TreeRoot, err = hashFromBytes("tree_root", stored.TreeRoot); err != nil {
			return Block{}, err
		}
	}
	for i, cid := range stored.Records {
		block.Records[i] = record.CID(cid)
	}
	if len(stored.Signature) > 0 || stored.KeyID != "" {
		block.Signature = signing.Signature{
			Value: append([]byte(nil), stored.Signature...),
			KeyID: stored.KeyID,
		}
	}
	return block, nil
}

func hashFromBytes(field string, data []byte) (merkle.Hash, error) {
	var hash merkle.Hash
	if len(data) != len(hash) {
		return hash, fmt.Errorf("%s is %d bytes, want %d", field, len(data), len(hash))
	}
	copy(hash[:], data)
	return hash, nil
}
