// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// Hash is a 32-byte SHA-256 digest: a leaf hash, an internal node, or
// a root.
type Hash [32]byte

// String returns the lowercase hex form of the hash.
func (h Hash) String() string { return FormatHash(h) }

// IsZero reports whether every byte of h is zero.
func (h Hash) IsZero() bool { return h == Hash{} }

// Domain prefixes.
const (
	leafPrefix     = 0x00
	internalPrefix = 0x01
)

// EmptyRoot is the root of a tree with no leaves: SHA-256 of the empty
// string.
var EmptyRoot = Hash(sha256.Sum256(nil))

// ErrIndexOutOfRange is returned for a leaf index or tree size beyond
// the leaves available.
var ErrIndexOutOfRange = errors.New("merkle: index out of range")

// HashLeaf returns the leaf-domain hash of data.
func HashLeaf(data []byte) Hash {
	hasher := sha256.New()
	hasher.Write([]byte{leafPrefix})
	hasher.Write(data)
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}

// HashInternal returns the internal-domain hash of two child nodes.
func HashInternal(left, right Hash) Hash {
	var combined [1 + 2*sha256.Size]byte
	combined[0] = internalPrefix
	copy(combined[1:33], left[:])
	copy(combined[33:], right[:])
	return sha256.Sum256(combined[:])
}

// FormatHash returns the hex form used in receipts, proofs, and CLI
// output.
func FormatHash(hash Hash) string {
	return hex.EncodeToString(hash[:])
}

// ParseHash parses a 64-character hex string.
func ParseHash(hexString string) (Hash, error) {
	var hash Hash
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return hash, fmt.Errorf("parsing merkle hash: %w", err)
	}
	if len(decoded) != len(hash) {
		return hash, fmt.Errorf("merkle hash is %d bytes, want %d", len(decoded), len(hash))
	}
	copy(hash[:], decoded)
	return hash, nil
}

// Root returns the root over leaf hashes, or EmptyRoot when there are
// none.
func Root(leaves []Hash) Hash {
	if len(leaves) == 0 {
		return EmptyRoot
	}
	return subtree(sliceNodes(leaves), 0, uint64(len(leaves)))
}

// Prove returns the inclusion proof for leaves[index] in the tree over
// all of leaves.
func Prove(index uint64, leaves []Hash) (*InclusionProof, error) {
	size := uint64(len(leaves))
	if index >= size {
		return nil, fmt.Errorf("%w: leaf %d of %d", ErrIndexOutOfRange, index, size)
	}
	nodes := sliceNodes(leaves)
	return &InclusionProof{
		LeafIndex: index,
		TreeSize:  size,
		Leaf:      leaves[index],
		Root:      subtree(nodes, 0, size),
		Steps:     path(nodes, index, 0, size),
	}, nil
}

// nodeSource yields the root of any RFC 9162 subtree [lo, hi) of a
// leaf sequence. The slice form recomputes; Tree reads its cache.
type nodeSource interface {
	leaf(index uint64) Hash
	complete(level uint, index uint64) (Hash, bool)
}

type sliceNodes []Hash

func (s sliceNodes) leaf(index uint64) Hash { return s[index] }

func (sliceNodes) complete(uint, uint64) (Hash, bool) { return Hash{}, false }

// subtree returns the hash of leaves [lo, hi). Callers guarantee
// lo < hi and that lo is aligned to the split points of the recursion,
// which holds for every range the RFC 9162 decomposition produces.
func subtree(nodes nodeSource, lo, hi uint64) Hash {
	n := hi - lo
	if n == 1 {
		return nodes.leaf(lo)
	}
	if n&(n-1) == 0 && lo%n == 0 {
		if hash, ok := nodes.complete(log2(n), lo/n); ok {
			return hash
		}
	}
	k := splitPoint(n)
	return HashInternal(subtree(nodes, lo, lo+k), subtree(nodes, lo+k, hi))
}

// path returns the inclusion steps for leaf index within [lo, hi),
// ordered from the leaf upward.
func path(nodes nodeSource, index, lo, hi uint64) []Step {
	n := hi - lo
	if n <= 1 {
		return nil
	}
	k := splitPoint(n)
	if index < lo+k {
		steps := path(nodes, index, lo, lo+k)
		return append(steps, Step{Sibling: subtree(nodes, lo+k, hi), Position: Right})
	}
	steps := path(nodes, index, lo+k, hi)
	return append(steps, Step{Sibling: subtree(nodes, lo, lo+k), Position: Left})
}

// splitPoint returns the largest power of two strictly less than n,
// for n >= 2.
func splitPoint(n uint64) uint64 {
	k := uint64(1)
	for k<<1 < n {
		k <<= 1
	}
	return k
}

// log2 returns the exponent of a power of two.
func log2(n uint64) uint {
	var level uint
	for n > 1 {
		n >>= 1
		level++
	}
	return level
}
