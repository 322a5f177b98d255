// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package chain

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/GlobalSushrut/connector-oss/lib/signing"
)

// ErrChainIntegrityViolation matches every *ChainIntegrityError.
var ErrChainIntegrityViolation = errors.New("chain integrity violation")

// ChainIntegrityError reports the first block at which verification
// failed. Nothing at or after BlockNo can be trusted.
type ChainIntegrityError struct {
	BlockNo uint64
	Reason  string

	// Err is the storage error behind the violation, if any.
	Err error
}

func (e *ChainIntegrityError) Error() string {
	return fmt.Sprintf("chain integrity violation at block %d: %s", e.BlockNo, e.Reason)
}

// Is reports whether target is ErrChainIntegrityViolation.
func (e *ChainIntegrityError) Is(target error) bool { return target == ErrChainIntegrityViolation }

func (e *ChainIntegrityError) Unwrap() error { return e.Err }

func violation(number uint64, format string, args ...any) error {
	return &ChainIntegrityError{BlockNo: number, Reason: fmt.Sprintf(format, args...)}
}

// VerifyBlocks checks a block sequence starting at block 0: numbering,
// linkage, each block hash, tree size continuity in Merkle mode, and
// every signature present against the key named in its key ID.
//
// When public is non-nil every block must also be signed by public.
// Tree roots are not checked here because they need the leaves;
// Log.VerifyChain checks them.
func VerifyBlocks(blocks []Block, public ed25519.PublicKey) error {
	prev := GenesisHash
	var treeSize uint64
	var expectedID string
	if public != nil {
		expectedID = signing.KeyID(public)
	}

	for i := range blocks {
		block := &blocks[i]
		number := uint64(i)
		if block.Number != number {
			return violation(number, "block is numbered %d", block.Number)
		}
		if block.Mode != ModeMerkle && block.Mode != ModeList {
			return violation(number, "unknown mode %d", uint8(block.Mode))
		}
		if block.PrevHash != prev {
			return violation(number, "prev_hash %s does not match previous block hash %s", block.PrevHash, prev)
		}
		if computed := block.ComputeHash(); computed != block.Hash {
			return violation(number, "stored block hash %s, recomputed %s", block.Hash, computed)
		}
		treeSize += uint64(len(block.Records))
		if block.Mode == ModeMerkle && block.TreeSize != treeSize {
			return violation(number, "tree_size %d, want %d", block.TreeSize, treeSize)
		}

		if block.Signed() {
			if !signing.VerifySelf(block.Hash[:], block.Signature) {
				return violation(number, "invalid signature by %s", block.Signature.KeyID)
			}
		}
		if public != nil {
			if !block.Signed() {
				return violation(number, "block is unsigned")
			}
			if block.Signature.KeyID != expectedID || !signing.Verify(block.Hash[:], block.Signature, public) {
				return violation(number, "block is not signed by %s", expectedID)
			}
		}
		prev = block.Hash
	}
	return nil
}
