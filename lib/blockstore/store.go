// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package blockstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConflict means an append does not extend the stored chain:
	// the block number is not next, or a record CID is already stored.
	ErrConflict = errors.New("blockstore: conflicting append")

	// ErrCorrupt matches every *CorruptionError.
	ErrCorrupt = errors.New("blockstore: stored data is corrupt")
)

// CorruptionError locates a row that failed verification on load.
type CorruptionError struct {
	// Table is "blocks" or "records".
	Table string

	// Key is the block number or record CID of the row.
	Key string

	// BlockNo is the block the row belongs to.
	BlockNo uint64

	Reason string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("blockstore: %s row %s is corrupt: %s", e.Table, e.Key, e.Reason)
}

// Is reports whether target is ErrCorrupt.
func (e *CorruptionError) Is(target error) bool { return target == ErrCorrupt }

// Block is the persisted form of a committed block.
type Block struct {
	Number    uint64    `cbor:"block_no"`
	PrevHash  []byte    `cbor:"prev_hash"`
	Timestamp time.Time `cbor:"timestamp"`
	Records   []string  `cbor:"record_cids"`
	Hash      []byte    `cbor:"block_hash"`
	Signature []byte    `cbor:"signature,omitempty"`
	KeyID     string    `cbor:"key_id,omitempty"`
	Mode      uint8     `cbor:"mode"`
	TreeSize  uint64    `cbor:"tree_size,omitempty"`
	TreeRoot  []byte    `cbor:"tree_root,omitempty"`
}

// Entry is a committed record: its CID, kind tag, canonical bytes, and
// where it landed.
type Entry struct {
	CID       string
	Kind      string
	Canonical []byte
	BlockNo   uint64
	LeafIndex uint64
}

// Store persists blocks. Implementations are safe for concurrent use.
type Store interface {
	// Append durably stores block and its entries, or nothing.
	Append(ctx context.Context, block Block, entries []Entry) error

	// Load returns every stored block in block order and every entry
	// in leaf order.
	Load(ctx context.Context) ([]Block, []Entry, error)

	// Close releases the store.
	Close() error
}

func cloneBlock(block Block) Block {
	clone := block
	clone.PrevHash = append([]byte(nil), block.PrevHash...)
	clone.Records = append([]string(nil), block.Records...)
	clone.Hash = append([]byte(nil), block.Hash...)
	if block.Signature != nil {
		clone.Signature = append([]byte(nil), block.Signature...)
	}
	if block.TreeRoot != nil {
		clone.TreeRoot = append([]byte(nil), block.TreeRoot...)
	}
	return clone
}

func cloneEntry(entry Entry) Entry {
	clone := entry
	clone.Canonical = append([]byte(nil), entry.Canonical...)
	return clone
}
