// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/GlobalSushrut/connector-oss/lib/canonical"
	"github.com/GlobalSushrut/connector-oss/lib/merkle"
	"github.com/GlobalSushrut/connector-oss/lib/signing"
)

// RootInfo is the answer to a root query.
type RootInfo struct {
	TreeID   string `json:"tree_id"`
	RootHash string `json:"root_hash"`
	TreeSize uint64 `json:"tree_size"`
}

// ProofInfo is the answer to an inclusion proof query. Nodes is the
// wire form accepted by merkle.VerifyHex.
type ProofInfo struct {
	TreeID    string             `json:"tree_id"`
	LeafIndex uint64             `json:"leaf_index"`
	LeafHash  string             `json:"leaf_hash"`
	TreeSize  uint64             `json:"tree_size"`
	RootHash  string             `json:"root_hash"`
	Nodes     []merkle.ProofNode `json:"proof"`
}

// ConsistencyInfo is the answer to a consistency query.
type ConsistencyInfo struct {
	TreeID     string   `json:"tree_id"`
	FirstSize  uint64   `json:"first_size"`
	SecondSize uint64   `json:"second_size"`
	FirstRoot  string   `json:"first_root"`
	SecondRoot string   `json:"second_root"`
	Nodes      []string `json:"proof"`
}

// SignedTreeHead commits to the tree at a size. Signature and KeyID
// are empty for an unsigned ledger.
type SignedTreeHead struct {
	TreeID    string    `json:"tree_id"`
	TreeSize  uint64    `json:"tree_size"`
	RootHash  string    `json:"root_hash"`
	Timestamp time.Time `json:"timestamp"`
	Signature string    `json:"signature,omitempty"`
	KeyID     string    `json:"key_id,omitempty"`
}

// SigningInput returns the canonical bytes a tree head signature is
// computed over: the JCS encoding of its tree ID, size, root, and
// timestamp.
func (h *SignedTreeHead) SigningInput() ([]byte, error) {
	return canonical.EncodeValue(map[string]any{
		"tree_id":   h.TreeID,
		"tree_size": h.TreeSize,
		"root_hash": h.RootHash,
		"timestamp": canonical.Time(h.Timestamp),
	})
}

// VerifyTreeHead reports whether head carries a valid signature by
// public.
func VerifyTreeHead(head *SignedTreeHead, public ed25519.PublicKey) bool {
	if head == nil || head.Signature == "" {
		return false
	}
	signature, err := signing.ParseSignature(head.Signature, head.KeyID)
	if err != nil {
		return false
	}
	input, err := head.SigningInput()
	if err != nil {
		return false
	}
	return signing.Verify(input, signature, public)
}

func (l *Ledger) checkTree(treeID string) error {
	if treeID != l.log.ID() {
		return fmt.Errorf("%w: %q", ErrUnknownTree, treeID)
	}
	return nil
}

// Root returns the committed root of treeID.
func (l *Ledger) Root(treeID string) (*RootInfo, error) {
	if err := l.checkTree(treeID); err != nil {
		return nil, err
	}
	root, size := l.log.Root()
	return &RootInfo{TreeID: treeID, RootHash: root.String(), TreeSize: size}, nil
}

// Proof returns the inclusion proof of leafIndex in the committed tree
// of treeID.
func (l *Ledger) Proof(treeID string, leafIndex uint64) (*ProofInfo, error) {
	if err := l.checkTree(treeID); err != nil {
		return nil, err
	}
	proof, err := l.log.Proof(leafIndex)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	return &ProofInfo{
		TreeID:    treeID,
		LeafIndex: proof.LeafIndex,
		LeafHash:  proof.Leaf.String(),
		TreeSize:  proof.TreeSize,
		RootHash:  proof.Root.String(),
		Nodes:     proof.Nodes(),
	}, nil
}

// Consistency returns the proof that the tree of size first is a
// prefix of the tree of size second.
func (l *Ledger) Consistency(treeID string, first, second uint64) (*ConsistencyInfo, error) {
	if err := l.checkTree(treeID); err != nil {
		return nil, err
	}
	proof, err := l.log.Consistency(first, second)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	firstRoot, err := l.log.RootAt(first)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	secondRoot, err := l.log.RootAt(second)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	nodes := make([]string, len(proof))
	for i, hash := range proof {
		nodes[i] = hash.String()
	}
	return &ConsistencyInfo{
		TreeID:     treeID,
		FirstSize:  first,
		SecondSize: second,
		FirstRoot:  firstRoot.String(),
		SecondRoot: secondRoot.String(),
		Nodes:      nodes,
	}, nil
}

// TreeHead returns the current tree head of treeID, signed when the
// ledger has a signer.
func (l *Ledger) TreeHead(treeID string) (*SignedTreeHead, error) {
	if err := l.checkTree(treeID); err != nil {
		return nil, err
	}
	root, size := l.log.Root()
	head := &SignedTreeHead{
		TreeID:    treeID,
		TreeSize:  size,
		RootHash:  root.String(),
		Timestamp: l.clock.Now().UTC(),
	}
	if l.signer == nil {
		return head, nil
	}
	input, err := head.SigningInput()
	if err != nil {
		return nil, fmt.Errorf("ledger: tree head: %w", err)
	}
	signature, err := signing.Sign(input, l.signer)
	if err != nil {
		return nil, fmt.Errorf("ledger: tree head: %w", err)
	}
	head.Signature = signature.Hex()
	head.KeyID = signature.KeyID
	return head, nil
}
