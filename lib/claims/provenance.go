// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package claims

import (
	"fmt"

	"github.com/GlobalSushrut/connector-oss/lib/address"
	"github.com/GlobalSushrut/connector-oss/lib/chain"
	"github.com/GlobalSushrut/connector-oss/lib/merkle"
	"github.com/GlobalSushrut/connector-oss/lib/record"
	"github.com/GlobalSushrut/connector-oss/lib/signing"
)

// Bundle is everything needed to check a claim independently: the
// claim, the records it cites, the block that committed it, and an
// inclusion proof for its leaf.
type Bundle struct {
	CID       record.CID
	Claim     record.Claim
	Canonical []byte
	Evidence  []chain.Entry
	Block     *chain.Block
	LeafIndex uint64
	Proof     *merkle.InclusionProof

	SupersededBy []record.CID

	// ClaimCIDValid reports that the claim's fields and its stored
	// canonical bytes both hash to CID.
	ClaimCIDValid bool

	// BlockSigned reports that the committing block carries a
	// signature; SignatureValid that the block hash recomputes and
	// the signature verifies over it.
	BlockSigned    bool
	SignatureValid bool
}

// Provenance assembles the bundle for a committed claim.
//
// If the claim does not recompute to cid, the bundle is returned
// together with an error matching address.ErrIntegrityMismatch so it
// can be inspected.
func (s *Store) Provenance(cid record.CID) (*Bundle, error) {
	entry, ok := s.log.Lookup(cid)
	if !ok {
		if s.log.IsPending(cid) {
			return nil, fmt.Errorf("%w: %s", ErrNotCommitted, cid)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, cid)
	}
	claim, ok := entry.Record.(record.Claim)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a %s record", ErrNotClaim, cid, entry.Record.Kind())
	}
	block, ok := s.log.Block(entry.BlockNo)
	if !ok {
		return nil, fmt.Errorf("claims: provenance %s: committing block %d missing", cid.Short(), entry.BlockNo)
	}

	bundle := &Bundle{
		CID:         cid,
		Claim:       claim,
		Canonical:   entry.Canonical,
		Block:       block,
		LeafIndex:   entry.LeafIndex,
		BlockSigned: block.Signed(),
	}
	for _, successor := range s.SupersededBy(cid) {
		bundle.SupersededBy = append(bundle.SupersededBy, successor.CID)
	}

	recomputed, _, err := address.Compute(claim)
	bundle.ClaimCIDValid = err == nil && recomputed == cid && address.FromCanonical(entry.Canonical) == cid

	if bundle.BlockSigned && block.ComputeHash() == block.Hash {
		if public := s.log.PublicKey(); public != nil && block.Signature.KeyID == signing.KeyID(public) {
			bundle.SignatureValid = signing.Verify(block.Hash[:], block.Signature, public)
		} else {
			bundle.SignatureValid = signing.VerifySelf(block.Hash[:], block.Signature)
		}
	}

	proof, err := s.log.ProofAt(entry.LeafIndex, s.log.Size())
	if err != nil {
		return nil, fmt.Errorf("claims: provenance %s: %w", cid.Short(), err)
	}
	bundle.Proof = proof

	for _, evidenceCID := range claim.Evidence {
		evidence, ok := s.log.Lookup(evidenceCID)
		if !ok {
			return bundle, fmt.Errorf("claims: provenance %s: %w: %s", cid.Short(), ErrEvidenceUnresolved, evidenceCID)
		}
		bundle.Evidence = append(bundle.Evidence, evidence)
	}

	if !bundle.ClaimCIDValid {
		return bundle, fmt.Errorf("claims: provenance %s: %w", cid.Short(), address.ErrIntegrityMismatch)
	}
	return bundle, nil
}
