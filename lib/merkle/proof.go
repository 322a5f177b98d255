// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package merkle

import (
	"fmt"
)

// Position names the side on which a proof step's sibling sits
// relative to the running hash.
type Position string

const (
	Left  Position = "left"
	Right Position = "right"
)

// ParsePosition accepts exactly "left" or "right".
func ParsePosition(s string) (Position, error) {
	switch Position(s) {
	case Left, Right:
		return Position(s), nil
	default:
		return "", fmt.Errorf("merkle: unknown proof position %q", s)
	}
}

// Step is one level of an inclusion proof.
type Step struct {
	Sibling  Hash
	Position Position
}

// ProofNode is the wire form of a Step: {"hash": hex, "position":
// "left"|"right"}.
type ProofNode struct {
	Hash     string   `json:"hash"`
	Position Position `json:"position"`
}

// InclusionProof proves that Leaf sits at LeafIndex in the tree of
// TreeSize leaves whose root is Root.
type InclusionProof struct {
	LeafIndex uint64
	TreeSize  uint64
	Leaf      Hash
	Root      Hash
	Steps     []Step
}

// Nodes returns the wire form of the proof's steps.
func (p *InclusionProof) Nodes() []ProofNode {
	nodes := make([]ProofNode, len(p.Steps))
	for i, step := range p.Steps {
		nodes[i] = ProofNode{Hash: FormatHash(step.Sibling), Position: step.Position}
	}
	return nodes
}

// ParseNodes converts wire-form proof nodes into steps.
func ParseNodes(nodes []ProofNode) ([]Step, error) {
	steps := make([]Step, len(nodes))
	for i, node := range nodes {
		sibling, err := ParseHash(node.Hash)
		if err != nil {
			return nil, fmt.Errorf("proof step %d: %w", i, err)
		}
		position, err := ParsePosition(string(node.Position))
		if err != nil {
			return nil, fmt.Errorf("proof step %d: %w", i, err)
		}
		steps[i] = Step{Sibling: sibling, Position: position}
	}
	return steps, nil
}

// Verify recomputes the root from leaf and steps and compares it with
// root. It performs no I/O and never fails; an unknown position makes
// the proof invalid.
func Verify(leaf Hash, steps []Step, root Hash) bool {
	current := leaf
	for _, step := range steps {
		switch step.Position {
		case Right:
			current = HashInternal(current, step.Sibling)
		case Left:
			current = HashInternal(step.Sibling, current)
		default:
			return false
		}
	}
	return current == root
}

// VerifyHex is Verify over the wire form. Malformed hex, wrong hash
// lengths, or unknown positions return false.
func VerifyHex(leafHex string, proof []ProofNode, rootHex string) bool {
	leaf, err := ParseHash(leafHex)
	if err != nil {
		return false
	}
	root, err := ParseHash(rootHex)
	if err != nil {
		return false
	}
	steps, err := ParseNodes(proof)
	if err != nil {
		return false
	}
	return Verify(leaf, steps, root)
}
