// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package blockstore

import (
	"context"
	"fmt"
	"sync"
)

// Memory is a Store that keeps everything in process memory. Values
// are copied in and out, so callers cannot alias stored state.
type Memory struct {
	mu      sync.Mutex
	blocks  []Block
	entries []Entry
	cids    map[string]struct{}
	closed  bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{cids: make(map[string]struct{})}
}

func (m *Memory) Append(ctx context.Context, block Block, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("blockstore: memory store is closed")
	}
	if block.Number != uint64(len(m.blocks)) {
		return fmt.Errorf("%w: block %d, next is %d", ErrConflict, block.Number, len(m.blocks))
	}
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if _, ok := m.cids[entry.CID]; ok {
			return fmt.Errorf("%w: record %s already stored", ErrConflict, entry.CID)
		}
		if _, ok := seen[entry.CID]; ok {
			return fmt.Errorf("%w: record %s repeated in block", ErrConflict, entry.CID)
		}
		seen[entry.CID] = struct{}{}
	}

	m.blocks = append(m.blocks, cloneBlock(block))
	for _, entry := range entries {
		m.entries = append(m.entries, cloneEntry(entry))
		m.cids[entry.CID] = struct{}{}
	}
	return nil
}

func (m *Memory) Load(ctx context.Context) ([]Block, []Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	blocks := make([]Block, len(m.blocks))
	for i, block := range m.blocks {
		blocks[i] = cloneBlock(block)
	}
	entries := make([]Entry, len(m.entries))
	for i, entry := range m.entries {
		entries[i] = cloneEntry(entry)
	}
	return blocks, entries, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
