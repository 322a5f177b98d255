// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package merkle

import (
	"fmt"
	"sync"
)

// Tree is an append-only sequence of leaf hashes. It keeps every
// completed power-of-two subtree, so roots and proofs for any size up
// to the current one cost O(log² n) hashing.
//
// Safe for concurrent use: Append takes the write lock, every other
// method a read lock.
type Tree struct {
	mu sync.RWMutex

	// levels[0] holds the leaves; levels[k][i] is the root of the
	// complete subtree over leaves [i·2^k, (i+1)·2^k).
	levels [][]Hash
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{levels: [][]Hash{nil}}
}

// Append adds a leaf hash and returns its index.
func (t *Tree) Append(leaf Hash) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	index := uint64(len(t.levels[0]))
	t.levels[0] = append(t.levels[0], leaf)
	for level := 0; len(t.levels[level])%2 == 0; level++ {
		nodes := t.levels[level]
		parent := HashInternal(nodes[len(nodes)-2], nodes[len(nodes)-1])
		if len(t.levels) == level+1 {
			t.levels = append(t.levels, nil)
		}
		t.levels[level+1] = append(t.levels[level+1], parent)
	}
	return index
}

// Size returns the number of leaves.
func (t *Tree) Size() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint64(len(t.levels[0]))
}

// Leaf returns the leaf hash at index.
func (t *Tree) Leaf(index uint64) (Hash, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if index >= uint64(len(t.levels[0])) {
		return Hash{}, fmt.Errorf("%w: leaf %d of %d", ErrIndexOutOfRange, index, len(t.levels[0]))
	}
	return t.levels[0][index], nil
}

// Root returns the root over every leaf appended so far.
func (t *Tree) Root() Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rootLocked(uint64(len(t.levels[0])))
}

// RootAt returns the root the tree had when it held size leaves.
func (t *Tree) RootAt(size uint64) (Hash, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if size > uint64(len(t.levels[0])) {
		return Hash{}, fmt.Errorf("%w: size %d of %d", ErrIndexOutOfRange, size, len(t.levels[0]))
	}
	return t.rootLocked(size), nil
}

// Prove returns the inclusion proof for index against the current
// size.
func (t *Tree) Prove(index uint64) (*InclusionProof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.proveLocked(index, uint64(len(t.levels[0])))
}

// ProveAt returns the inclusion proof for index in the tree of the
// given size. Proofs for a fixed size stay valid however far the tree
// grows afterwards.
func (t *Tree) ProveAt(index, size uint64) (*InclusionProof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if size > uint64(len(t.levels[0])) {
		return nil, fmt.Errorf("%w: size %d of %d", ErrIndexOutOfRange, size, len(t.levels[0]))
	}
	return t.proveLocked(index, size)
}

// ProveConsistency returns the proof that the tree of size first is a
// prefix of the tree of size second.
func (t *Tree) ProveConsistency(first, second uint64) ([]Hash, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if second > uint64(len(t.levels[0])) {
		return nil, fmt.Errorf("%w: size %d of %d", ErrIndexOutOfRange, second, len(t.levels[0]))
	}
	return consistency(t, first, second)
}

// RootExtended returns the root the tree would have after appending
// leaves, without appending them. The log uses it to hash a block
// before the block is durable.
func (t *Tree) RootExtended(leaves []Hash) Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	size := uint64(len(t.levels[0]) + len(leaves))
	if size == 0 {
		return EmptyRoot
	}
	return subtree(extendedNodes{tree: t, extra: leaves}, 0, size)
}

func (t *Tree) rootLocked(size uint64) Hash {
	if size == 0 {
		return EmptyRoot
	}
	return subtree(t, 0, size)
}

func (t *Tree) proveLocked(index, size uint64) (*InclusionProof, error) {
	if index >= size {
		return nil, fmt.Errorf("%w: leaf %d of %d", ErrIndexOutOfRange, index, size)
	}
	return &InclusionProof{
		LeafIndex: index,
		TreeSize:  size,
		Leaf:      t.levels[0][index],
		Root:      subtree(t, 0, size),
		Steps:     path(t, index, 0, size),
	}, nil
}

func (t *Tree) leaf(index uint64) Hash { return t.levels[0][index] }

func (t *Tree) complete(level uint, index uint64) (Hash, bool) {
	if int(level) >= len(t.levels) || index >= uint64(len(t.levels[level])) {
		return Hash{}, false
	}
	return t.levels[level][index], true
}

// extendedNodes is a tree followed by leaves not yet appended to it.
// Every cached subtree lies inside the tree's own leaves, so the cache
// stays valid for the longer sequence.
type extendedNodes struct {
	tree  *Tree
	extra []Hash
}

func (e extendedNodes) leaf(index uint64) Hash {
	stored := uint64(len(e.tree.levels[0]))
	if index < stored {
		return e.tree.levels[0][index]
	}
	return e.extra[index-stored]
}

func (e extendedNodes) complete(level uint, index uint64) (Hash, bool) {
	return e.tree.complete(level, index)
}
