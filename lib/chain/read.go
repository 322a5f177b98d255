// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package chain

import (
	"fmt"

	"github.com/GlobalSushrut/connector-oss/lib/address"
	"github.com/GlobalSushrut/connector-oss/lib/merkle"
	"github.com/GlobalSushrut/connector-oss/lib/record"
)

// Height returns the number of committed blocks.
func (l *Log) Height() uint64 {
	return uint64(len(l.current.Load().blocks))
}

// Size returns the number of committed records, which is the size of
// the committed Merkle tree.
func (l *Log) Size() uint64 {
	return l.current.Load().size()
}

// Block returns committed block number.
func (l *Log) Block(number uint64) (*Block, bool) {
	blocks := l.current.Load().blocks
	if number >= uint64(len(blocks)) {
		return nil, false
	}
	return blocks[number], true
}

// Blocks returns every committed block in order.
func (l *Log) Blocks() []*Block {
	blocks := l.current.Load().blocks
	return append([]*Block(nil), blocks...)
}

// Head returns the most recently committed block.
func (l *Log) Head() (*Block, bool) {
	blocks := l.current.Load().blocks
	if len(blocks) == 0 {
		return nil, false
	}
	return blocks[len(blocks)-1], true
}

// Lookup returns the committed entry for cid.
func (l *Log) Lookup(cid record.CID) (Entry, bool) {
	snap := l.current.Load()
	value, ok := l.committed.Load(cid)
	if !ok {
		return Entry{}, false
	}
	entry := value.(*Entry)
	if entry.LeafIndex >= snap.size() {
		return Entry{}, false
	}
	return *entry, true
}

// Record returns the committed record for cid.
func (l *Log) Record(cid record.CID) (record.Record, bool) {
	entry, ok := l.Lookup(cid)
	if !ok {
		return nil, false
	}
	return entry.Record, true
}

// EntryAt returns the committed entry at leaf index.
func (l *Log) EntryAt(index uint64) (Entry, error) {
	snap := l.current.Load()
	if index >= snap.size() {
		return Entry{}, fmt.Errorf("chain: %w: leaf %d of %d", merkle.ErrIndexOutOfRange, index, snap.size())
	}
	return *snap.entries[index], nil
}

// Root returns the committed Merkle root and the tree size it covers.
func (l *Log) Root() (merkle.Hash, uint64) {
	size := l.current.Load().size()
	root, _ := l.tree.RootAt(size)
	return root, size
}

// RootAt returns the root of the committed tree when it held size
// leaves.
func (l *Log) RootAt(size uint64) (merkle.Hash, error) {
	if current := l.current.Load().size(); size > current {
		return merkle.Hash{}, fmt.Errorf("chain: root: %w: tree size %d of %d", merkle.ErrIndexOutOfRange, size, current)
	}
	return l.tree.RootAt(size)
}

// Proof returns the inclusion proof for a committed leaf against the
// current committed tree.
func (l *Log) Proof(leafIndex uint64) (*merkle.InclusionProof, error) {
	size := l.current.Load().size()
	proof, err := l.tree.ProveAt(leafIndex, size)
	if err != nil {
		return nil, fmt.Errorf("chain: proof: %w", err)
	}
	return proof, nil
}

// ProofAt returns the inclusion proof for a committed leaf in the tree
// of the given size.
func (l *Log) ProofAt(leafIndex, treeSize uint64) (*merkle.InclusionProof, error) {
	if size := l.current.Load().size(); treeSize > size {
		return nil, fmt.Errorf("chain: proof: %w: tree size %d of %d", merkle.ErrIndexOutOfRange, treeSize, size)
	}
	proof, err := l.tree.ProveAt(leafIndex, treeSize)
	if err != nil {
		return nil, fmt.Errorf("chain: proof: %w", err)
	}
	return proof, nil
}

// Consistency returns the proof that the committed tree of size first
// is a prefix of the committed tree of size second.
func (l *Log) Consistency(first, second uint64) ([]merkle.Hash, error) {
	if size := l.current.Load().size(); second > size {
		return nil, fmt.Errorf("chain: consistency: %w: tree size %d of %d", merkle.ErrIndexOutOfRange, second, size)
	}
	proof, err := l.tree.ProveConsistency(first, second)
	if err != nil {
		return nil, fmt.Errorf("chain: consistency: %w", err)
	}
	return proof, nil
}

// VerifyChain re-verifies the whole committed log: every block as
// VerifyBlocks does, every record's CID and leaf hash against its
// canonical bytes, block membership, and in Merkle mode each block's
// tree root. A signed log requires every block to be signed by its
// own signer.
func (l *Log) VerifyChain() error {
	snap := l.current.Load()
	blocks := make([]Block, len(snap.blocks))
	for i, block := range snap.blocks {
		blocks[i] = *block
	}
	err := VerifyBlocks(blocks, l.PublicKey())
	if err == nil {
		err = l.verifyContents(snap)
	}
	if err != nil {
		l.metrics.IntegrityFailure(l.id, "chain")
		l.logger.Error("chain verification failed", "error", err)
		return err
	}
	return nil
}

func (l *Log) verifyContents(snap *snapshot) error {
	var leaf uint64
	for _, block := range snap.blocks {
		for _, cid := range block.Records {
			if leaf >= snap.size() {
				return violation(block.Number, "record %s has no entry", cid.Short())
			}
			entry := snap.entries[leaf]
			if entry.CID != cid {
				return violation(block.Number, "leaf %d holds %s, block lists %s", leaf, entry.CID.Short(), cid.Short())
			}
			if address.FromCanonical(entry.Canonical) != cid {
				return violation(block.Number, "record %s: canonical bytes do not match CID", cid.Short())
			}
			if merkle.HashLeaf(entry.Canonical) != entry.LeafHash {
				return violation(block.Number, "record %s: leaf hash mismatch", cid.Short())
			}
			leaf++
		}
		if block.Mode == ModeMerkle {
			root, err := l.tree.RootAt(block.TreeSize)
			if err != nil {
				return violation(block.Number, "tree_size %d exceeds tree", block.TreeSize)
			}
			if root != block.TreeRoot {
				return violation(block.Number, "tree_root %s, recomputed %s", block.TreeRoot, root)
			}
		}
	}
	if leaf != snap.size() {
		return violation(uint64(len(snap.blocks)), "%d records not covered by any block", snap.size()-leaf)
	}
	return nil
}
