// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package chain

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/GlobalSushrut/connector-oss/lib/address"
	"github.com/GlobalSushrut/connector-oss/lib/blockstore"
	"github.com/GlobalSushrut/connector-oss/lib/canonical"
	"github.com/GlobalSushrut/connector-oss/lib/clock"
	"github.com/GlobalSushrut/connector-oss/lib/merkle"
	"github.com/GlobalSushrut/connector-oss/lib/metrics"
	"github.com/GlobalSushrut/connector-oss/lib/record"
	"github.com/GlobalSushrut/connector-oss/lib/signing"
)

// ErrDuplicateRecord is returned by Append for a record whose CID is
// already committed or pending. Append returns the existing CID
// alongside it, so callers may treat it as success.
var ErrDuplicateRecord = errors.New("duplicate record")

// DefaultID names a log when Config.ID is empty.
const DefaultID = "default"

// Resolver looks up records visible to a pending append: every
// committed record and every record pending ahead of it.
type Resolver interface {
	Resolve(cid record.CID) (Entry, bool)
}

// Hook lets an index follow the log. Both methods run under the log's
// write lock and must not call back into the Log's write methods.
type Hook interface {
	// Validate runs before a record joins the pending set. A non-nil
	// error rejects the record and is returned from Append unchanged.
	Validate(r record.Record, cid record.CID, resolver Resolver) error

	// Accepted runs after a record joined the pending set, and for
	// every record replayed by Open, in log order.
	Accepted(entry Entry)
}

// Config holds the parameters for Open.
type Config struct {
	// ID names the log in metrics, logs, and tree queries.
	ID string

	// Mode defaults to ModeMerkle. It must match the mode of any
	// blocks already in Store.
	Mode Mode

	// AllowEmpty makes Commit produce a block even when nothing is
	// pending. Used for heartbeat blocks.
	AllowEmpty bool

	// Store persists blocks. Nil uses an in-memory store.
	Store blockstore.Store

	// Signer signs block hashes. Nil leaves blocks unsigned.
	Signer *signing.KeyPair

	Hook    Hook
	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Log is an append-only, hash-chained log of records.
type Log struct {
	id         string
	mode       Mode
	allowEmpty bool
	store      blockstore.Store
	signer     *signing.KeyPair
	hook       Hook
	clock      clock.Clock
	logger     *slog.Logger
	metrics    *metrics.Metrics

	// mu serializes Append and Commit. It guards pending and
	// pendingIndex.
	mu           sync.Mutex
	pending      []*Entry
	pendingIndex map[record.CID]*Entry

	// tree holds every committed leaf. Leaves are appended only after
	// the block that carries them is durable.
	tree *merkle.Tree

	// committed maps CID to *Entry for committed records. Entries are
	// stored before the snapshot that covers them is published;
	// readers ignore entries beyond their snapshot.
	committed sync.Map

	current atomic.Pointer[snapshot]
}

// snapshot is the published committed state. Its slices share backing
// arrays with later snapshots but are never written below their
// length.
type snapshot struct {
	blocks  []*Block
	entries []*Entry
}

func (s *snapshot) size() uint64 { return uint64(len(s.entries)) }

func newLog(cfg Config) (*Log, error) {
	mode := cfg.Mode
	if mode == 0 {
		mode = ModeMerkle
	}
	if mode != ModeMerkle && mode != ModeList {
		return nil, fmt.Errorf("chain: unknown mode %d", uint8(mode))
	}
	id := cfg.ID
	if id == "" {
		id = DefaultID
	}
	store := cfg.Store
	if store == nil {
		store = blockstore.NewMemory()
	}
	logClock := cfg.Clock
	if logClock == nil {
		logClock = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	l := &Log{
		id:           id,
		mode:         mode,
		allowEmpty:   cfg.AllowEmpty,
		store:        store,
		signer:       cfg.Signer,
		hook:         cfg.Hook,
		clock:        logClock,
		logger:       logger.With("log", id),
		metrics:      cfg.Metrics,
		pendingIndex: make(map[record.CID]*Entry),
		tree:         merkle.NewTree(),
	}
	l.current.Store(&snapshot{})
	return l, nil
}

// ID returns the log's identifier.
func (l *Log) ID() string { return l.id }

// Mode returns the mode new blocks are committed in.
func (l *Log) Mode() Mode { return l.mode }

// PublicKey returns the signer's public key, or nil for an unsigned
// log.
func (l *Log) PublicKey() ed25519.PublicKey {
	if l.signer == nil {
		return nil
	}
	return l.signer.Public()
}

// Append adds r to the pending set and returns its CID. If the record
// is already committed or pending, Append returns its CID and an error
// matching ErrDuplicateRecord, and nothing changes.
func (l *Log) Append(r record.Record) (record.CID, error) {
	if err := record.Validate(r); err != nil {
		return "", fmt.Errorf("chain: append: %w", err)
	}
	cid, canonicalBytes, err := address.Compute(r)
	if err != nil {
		return "", fmt.Errorf("chain: append: %w", err)
	}
	// The stored record is rebuilt from its canonical bytes so it shares
	// no slices or maps with the caller's value.
	normalized, err := canonical.Decode(canonicalBytes)
	if err != nil {
		return "", fmt.Errorf("chain: append: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.pendingIndex[cid]; ok {
		l.metrics.DuplicateRecord(l.id)
		return cid, fmt.Errorf("chain: append %s: %w (pending)", cid.Short(), ErrDuplicateRecord)
	}
	if _, ok := l.committed.Load(cid); ok {
		l.metrics.DuplicateRecord(l.id)
		return cid, fmt.Errorf("chain: append %s: %w (committed)", cid.Short(), ErrDuplicateRecord)
	}

	if l.hook != nil {
		if err := l.hook.Validate(normalized, cid, resolver{l}); err != nil {
			return "", err
		}
	}

	entry := &Entry{
		CID:       cid,
		Record:    normalized,
		Canonical: canonicalBytes,
		LeafHash:  merkle.HashLeaf(canonicalBytes),
		LeafIndex: l.current.Load().size() + uint64(len(l.pending)),
	}
	l.pending = append(l.pending, entry)
	l.pendingIndex[cid] = entry
	if l.hook != nil {
		l.hook.Accepted(*entry)
	}
	l.metrics.RecordAppended(l.id, string(normalized.Kind()))
	l.logger.Debug("record appended",
		"cid", cid,
		"kind", normalized.Kind(),
		"leaf_index", entry.LeafIndex,
	)
	return cid, nil
}

// Pending returns the number of records waiting for a commit.
func (l *Log) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// IsPending reports whether cid is in the pending set.
func (l *Log) IsPending(cid record.CID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.pendingIndex[cid]
	return ok
}

// Commit turns the pending set into the next block. With nothing
// pending it returns (nil, nil) unless the log allows empty blocks.
//
// The block is persisted before it is published. If persistence or
// signing fails, the pending set is kept as it was and no state
// changes.
func (l *Log) Commit(ctx context.Context) (*Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 && !l.allowEmpty {
		return nil, nil
	}
	start := l.clock.Now()
	previous := l.current.Load()

	block := &Block{
		Number:    uint64(len(previous.blocks)),
		PrevHash:  GenesisHash,
		Timestamp: start.UTC(),
		Records:   make([]record.CID, len(l.pending)),
		Mode:      l.mode,
	}
	if head := len(previous.blocks); head > 0 {
		block.PrevHash = previous.blocks[head-1].Hash
	}
	leaves := make([]merkle.Hash, len(l.pending))
	for i, entry := range l.pending {
		block.Records[i] = entry.CID
		leaves[i] = entry.LeafHash
	}
	if l.mode == ModeMerkle {
		block.TreeSize = previous.size() + uint64(len(leaves))
		block.TreeRoot = l.tree.RootExtended(leaves)
	}
	block.Hash = block.ComputeHash()

	if l.signer != nil {
		signature, err := signing.Sign(block.Hash[:], l.signer)
		if err != nil {
			return nil, fmt.Errorf("chain: commit block %d: %w", block.Number, err)
		}
		block.Signature = signature
	}

	stored := make([]blockstore.Entry, len(l.pending))
	for i, entry := range l.pending {
		stored[i] = toStoredEntry(entry, block.Number)
	}
	if err := l.store.Append(ctx, toStoredBlock(block), stored); err != nil {
		l.logger.Error("block persistence failed",
			"block_no", block.Number,
			"record_count", len(block.Records),
			"error", err,
		)
		return nil, fmt.Errorf("chain: commit block %d: persisting: %w", block.Number, err)
	}

	for i, entry := range l.pending {
		entry.BlockNo = block.Number
		l.tree.Append(leaves[i])
		l.committed.Store(entry.CID, entry)
	}
	l.current.Store(&snapshot{
		blocks:  append(previous.blocks, block),
		entries: append(previous.entries, l.pending...),
	})
	l.pending = nil
	l.pendingIndex = make(map[record.CID]*Entry)

	treeSize := previous.size() + uint64(len(leaves))
	l.metrics.BlockCommitted(l.id, l.clock.Now().Sub(start), treeSize)
	l.logger.Info("block committed",
		"block_no", block.Number,
		"record_count", len(block.Records),
		"tree_size", treeSize,
		"block_hash", block.Hash,
		"signed", block.Signed(),
	)
	return block, nil
}

// Close closes the underlying store.
func (l *Log) Close() error {
	return l.store.Close()
}

type resolver struct{ log *Log }

// Resolve is called with the write lock held.
func (r resolver) Resolve(cid record.CID) (Entry, bool) {
	if entry, ok := r.log.pendingIndex[cid]; ok {
		return *entry, true
	}
	if value, ok := r.log.committed.Load(cid); ok {
		return *value.(*Entry), true
	}
	return Entry{}, false
}

// Stored returns the form of b written to the block store.
func (b *Block) Stored() blockstore.Block { return toStoredBlock(b) }

func toStoredBlock(block *Block) blockstore.Block {
	stored := blockstore.Block{
		Number:    block.Number,
		PrevHash:  append([]byte(nil), block.PrevHash[:]...),
		Timestamp: block.Timestamp,
		Records:   make([]string, len(block.Records)),
		Hash:      append([]byte(nil), block.Hash[:]...),
		Mode:      uint8(block.Mode),
	}
	for i, cid := range block.Records {
		stored.Records[i] = string(cid)
	}
	if block.Signed() {
		stored.Signature = append([]byte(nil), block.Signature.Value...)
		stored.KeyID = block.Signature.KeyID
	}
	if block.Mode == ModeMerkle {
		stored.TreeSize = block.TreeSize
		stored.TreeRoot = append([]byte(nil), block.TreeRoot[:]...)
	}
	return stored
}

func toStoredEntry(entry *Entry, blockNo uint64) blockstore.Entry {
	return blockstore.Entry{
		CID:       string(entry.CID),
		Kind:      string(entry.Record.Kind()),
		Canonical: entry.Canonical,
		BlockNo:   blockNo,
		LeafIndex: entry.LeafIndex,
	}
}
