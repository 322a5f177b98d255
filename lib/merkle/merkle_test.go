// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package merkle

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"testing/quick"
)

func testLeaves(count int) []Hash {
	leaves := make([]Hash, count)
	for i := range leaves {
		leaves[i] = HashLeaf([]byte(fmt.Sprintf("record-%d", i)))
	}
	return leaves
}

func TestHashDomainsDiffer(t *testing.T) {
	var left, right Hash
	copy(left[:], strings.Repeat("a", 32))
	copy(right[:], strings.Repeat("b", 32))

	concatenated := append(left[:], right[:]...)
	if HashLeaf(concatenated) == HashInternal(left, right) {
		t.Fatal("leaf and internal hashes of the same bytes collide")
	}

	want := sha256.Sum256(append([]byte{0x00}, []byte("x")...))
	if HashLeaf([]byte("x")) != Hash(want) {
		t.Errorf("HashLeaf does not prefix 0x00")
	}

	internalInput := append([]byte{0x01}, concatenated...)
	if HashInternal(left, right) != Hash(sha256.Sum256(internalInput)) {
		t.Errorf("HashInternal does not prefix 0x01")
	}
}

func TestRootSmallTrees(t *testing.T) {
	leaves := testLeaves(7)
	a, b, c, d, e, f, g := leaves[0], leaves[1], leaves[2], leaves[3], leaves[4], leaves[5], leaves[6]

	tests := []struct {
		count int
		want  Hash
	}{
		{0, EmptyRoot},
		{1, a},
		{2, HashInternal(a, b)},
		// The third leaf is promoted, not duplicated.
		{3, HashInternal(HashInternal(a, b), c)},
		{5, HashInternal(HashInternal(HashInternal(a, b), HashInternal(c, d)), e)},
		{7, HashInternal(
			HashInternal(HashInternal(a, b), HashInternal(c, d)),
			HashInternal(HashInternal(e, f), g),
		)},
	}
	for _, test := range tests {
		if got := Root(leaves[:test.count]); got != test.want {
			t.Errorf("Root of %d leaves = %s, want %s", test.count, got, test.want)
		}
	}
}

func TestProveSevenLeaves(t *testing.T) {
	leaves := testLeaves(7)
	root := Root(leaves)

	for index := range leaves {
		proof, err := Prove(uint64(index), leaves)
		if err != nil {
			t.Fatalf("Prove(%d): %v", index, err)
		}
		if proof.Root != root {
			t.Fatalf("Prove(%d) root = %s, want %s", index, proof.Root, root)
		}
		if !Verify(leaves[index], proof.Steps, root) {
			t.Errorf("leaf %d: valid proof rejected", index)
		}

		for step := range proof.Steps {
			mutated := append([]Step(nil), proof.Steps...)
			mutated[step].Sibling[0] ^= 0x01
			if Verify(leaves[index], mutated, root) {
				t.Errorf("leaf %d: proof with mutated step %d accepted", index, step)
			}
		}
	}
}

func TestProofPositionConvention(t *testing.T) {
	leaves := testLeaves(3)
	a, b, c := leaves[0], leaves[1], leaves[2]

	proof, err := Prove(0, leaves)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	want := []Step{
		{Sibling: b, Position: Right},
		{Sibling: c, Position: Right},
	}
	if fmt.Sprint(proof.Steps) != fmt.Sprint(want) {
		t.Errorf("proof for leaf 0 = %v, want %v", proof.Steps, want)
	}

	// Leaf 2 is promoted past the first level, so its proof is a
	// single step.
	proof, err = Prove(2, leaves)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	want = []Step{{Sibling: HashInternal(a, b), Position: Left}}
	if fmt.Sprint(proof.Steps) != fmt.Sprint(want) {
		t.Errorf("proof for leaf 2 = %v, want %v", proof.Steps, want)
	}
}

func TestProveAllSizes(t *testing.T) {
	for size := 1; size <= 17; size++ {
		leaves := testLeaves(size)
		root := Root(leaves)
		for index := 0; index < size; index++ {
			proof, err := Prove(uint64(index), leaves)
			if err != nil {
				t.Fatalf("size %d: Prove(%d): %v", size, index, err)
			}
			if !Verify(leaves[index], proof.Steps, root) {
				t.Errorf("size %d: leaf %d: valid proof rejected", size, index)
			}
			other := leaves[(index+1)%size]
			if size > 1 && Verify(other, proof.Steps, root) {
				t.Errorf("size %d: proof for leaf %d accepted leaf %d", size, index, (index+1)%size)
			}
		}
	}
}

func TestProveOutOfRange(t *testing.T) {
	if _, err := Prove(3, testLeaves(3)); err == nil {
		t.Fatal("Prove past the end succeeded")
	}
	if _, err := Prove(0, nil); err == nil {
		t.Fatal("Prove on empty tree succeeded")
	}
}

func TestVerifyHex(t *testing.T) {
	leaves := testLeaves(6)
	proof, err := Prove(4, leaves)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	leafHex := FormatHash(leaves[4])
	rootHex := FormatHash(Root(leaves))
	nodes := proof.Nodes()

	if !VerifyHex(leafHex, nodes, rootHex) {
		t.Fatal("valid hex proof rejected")
	}
	if !VerifyHex(strings.ToUpper(leafHex), nodes, rootHex) {
		t.Error("uppercase hex leaf rejected")
	}

	flipped := append([]ProofNode(nil), nodes...)
	if flipped[0].Position == Left {
		flipped[0].Position = Right
	} else {
		flipped[0].Position = Left
	}

	malformed := []struct {
		name  string
		leaf  string
		nodes []ProofNode
		root  string
	}{
		{"short leaf", leafHex[:62], nodes, rootHex},
		{"non-hex root", strings.Repeat("zz", 32), nodes, rootHex},
		{"empty root", leafHex, nodes, ""},
		{"bad position", leafHex, []ProofNode{{Hash: nodes[0].Hash, Position: "up"}}, rootHex},
		{"capitalized position", leafHex, []ProofNode{{Hash: nodes[0].Hash, Position: "Left"}}, rootHex},
		{"bad node hash", leafHex, []ProofNode{{Hash: "00", Position: Left}}, rootHex},
		{"flipped position", leafHex, flipped, rootHex},
		{"missing step", leafHex, nodes[1:], rootHex},
		{"nil proof", leafHex, nil, rootHex},
	}
	for _, test := range malformed {
		if VerifyHex(test.leaf, test.nodes, test.root) {
			t.Errorf("%s: accepted", test.name)
		}
	}
}

func TestVerifyHexNeverPanics(t *testing.T) {
	property := func(leaf string, hashes []string, positions []string, root string) bool {
		nodes := make([]ProofNode, len(hashes))
		for i := range hashes {
			nodes[i].Hash = hashes[i]
			if i < len(positions) {
				nodes[i].Position = Position(positions[i])
			}
		}
		VerifyHex(leaf, nodes, root)
		return true
	}
	if err := quick.Check(property, nil); err != nil {
		t.Fatal(err)
	}
}

func TestProofNodeWireForm(t *testing.T) {
	proof, err := Prove(1, testLeaves(2))
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	encoded, err := json.Marshal(proof.Nodes())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := fmt.Sprintf(`[{"hash":"%s","position":"left"}]`, FormatHash(testLeaves(1)[0]))
	if string(encoded) != want {
		t.Errorf("wire form = %s, want %s", encoded, want)
	}
}

func TestTreeMatchesSliceFunctions(t *testing.T) {
	leaves := testLeaves(33)
	tree := NewTree()
	for i, leaf := range leaves {
		if index := tree.Append(leaf); index != uint64(i) {
			t.Fatalf("Append returned %d, want %d", index, i)
		}
		size := uint64(i + 1)
		if tree.Size() != size {
			t.Fatalf("Size = %d, want %d", tree.Size(), size)
		}
		if tree.Root() != Root(leaves[:size]) {
			t.Fatalf("size %d: tree root differs from Root", size)
		}
	}

	for size := uint64(1); size <= uint64(len(leaves)); size++ {
		root, err := tree.RootAt(size)
		if err != nil {
			t.Fatalf("RootAt(%d): %v", size, err)
		}
		if root != Root(leaves[:size]) {
			t.Errorf("RootAt(%d) differs from Root", size)
		}
		for index := uint64(0); index < size; index++ {
			proof, err := tree.ProveAt(index, size)
			if err != nil {
				t.Fatalf("ProveAt(%d, %d): %v", index, size, err)
			}
			want, _ := Prove(index, leaves[:size])
			if fmt.Sprint(proof.Steps) != fmt.Sprint(want.Steps) {
				t.Fatalf("ProveAt(%d, %d) differs from Prove", index, size)
			}
			if !Verify(leaves[index], proof.Steps, root) {
				t.Fatalf("ProveAt(%d, %d) does not verify", index, size)
			}
		}
	}

	if root, _ := tree.RootAt(0); root != EmptyRoot {
		t.Errorf("RootAt(0) = %s, want empty root", root)
	}
	if _, err := tree.RootAt(34); err == nil {
		t.Error("RootAt past the end succeeded")
	}
	if _, err := tree.Leaf(33); err == nil {
		t.Error("Leaf past the end succeeded")
	}
	if leaf, _ := tree.Leaf(7); leaf != leaves[7] {
		t.Error("Leaf(7) returned the wrong hash")
	}
}

func TestTreeRootExtended(t *testing.T) {
	leaves := testLeaves(21)
	tree := NewTree()
	if tree.RootExtended(nil) != EmptyRoot {
		t.Error("empty tree extended by nothing is not EmptyRoot")
	}
	for stored := 0; stored <= len(leaves); stored++ {
		for extra := 0; stored+extra <= len(leaves); extra++ {
			got := tree.RootExtended(leaves[stored : stored+extra])
			if stored+extra == 0 {
				continue
			}
			if got != Root(leaves[:stored+extra]) {
				t.Fatalf("RootExtended with %d stored and %d extra leaves differs from Root", stored, extra)
			}
		}
		if stored < len(leaves) {
			tree.Append(leaves[stored])
		}
	}
	if tree.Size() != uint64(len(leaves)) {
		t.Errorf("RootExtended changed the tree: size %d", tree.Size())
	}
}

func TestTreeConcurrentReaders(t *testing.T) {
	tree := NewTree()
	leaves := testLeaves(64)

	var wait sync.WaitGroup
	for reader := 0; reader < 4; reader++ {
		wait.Add(1)
		go func() {
			defer wait.Done()
			for i := 0; i < 200; i++ {
				size := tree.Size()
				if size == 0 {
					continue
				}
				proof, err := tree.ProveAt(size-1, size)
				if err != nil {
					t.Errorf("ProveAt: %v", err)
					return
				}
				if !Verify(proof.Leaf, proof.Steps, proof.Root) {
					t.Errorf("proof at size %d does not verify", size)
					return
				}
			}
		}()
	}
	for _, leaf := range leaves {
		tree.Append(leaf)
	}
	wait.Wait()
}

func TestConsistencyAllSizes(t *testing.T) {
	leaves := testLeaves(16)
	tree := NewTree()
	for _, leaf := range leaves {
		tree.Append(leaf)
	}

	for second := uint64(1); second <= 16; second++ {
		secondRoot := Root(leaves[:second])
		for first := uint64(1); first <= second; first++ {
			firstRoot := Root(leaves[:first])
			proof, err := ProveConsistency(first, leaves[:second])
			if err != nil {
				t.Fatalf("ProveConsistency(%d, %d): %v", first, second, err)
			}
			fromTree, err := tree.ProveConsistency(first, second)
			if err != nil {
				t.Fatalf("Tree.ProveConsistency(%d, %d): %v", first, second, err)
			}
			if fmt.Sprint(proof) != fmt.Sprint(fromTree) {
				t.Fatalf("(%d, %d): tree and slice proofs differ", first, second)
			}
			if !VerifyConsistency(first, second, firstRoot, secondRoot, proof) {
				t.Errorf("(%d, %d): valid consistency proof rejected", first, second)
			}
			if first == second {
				continue
			}

			for i := range proof {
				mutated := append([]Hash(nil), proof...)
				mutated[i][31] ^= 0x80
				if VerifyConsistency(first, second, firstRoot, secondRoot, mutated) {
					t.Errorf("(%d, %d): mutated element %d accepted", first, second, i)
				}
			}
			wrongFirst := firstRoot
			wrongFirst[0] ^= 0x01
			if VerifyConsistency(first, second, wrongFirst, secondRoot, proof) {
				t.Errorf("(%d, %d): wrong first root accepted", first, second)
			}
		}
	}
}

func TestConsistencyInvalidSizes(t *testing.T) {
	leaves := testLeaves(4)
	if _, err := ProveConsistency(0, leaves); err == nil {
		t.Error("ProveConsistency from size 0 succeeded")
	}
	if _, err := ProveConsistency(5, leaves); err == nil {
		t.Error("ProveConsistency past the end succeeded")
	}
	if VerifyConsistency(3, 2, Hash{}, Hash{}, nil) {
		t.Error("VerifyConsistency with first > second succeeded")
	}
}

func TestParseHash(t *testing.T) {
	leaf := HashLeaf([]byte("x"))
	parsed, err := ParseHash(FormatHash(leaf))
	if err != nil || parsed != leaf {
		t.Fatalf("ParseHash(FormatHash) = %s, %v", parsed, err)
	}
	if _, err := ParseHash("abcd"); err == nil {
		t.Error("short hash accepted")
	}
}
