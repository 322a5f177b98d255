// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package merkle

import (
	"fmt"
)

// ProveConsistency returns the RFC 9162 consistency proof between the
// tree over leaves[:first] and the tree over all of leaves.
func ProveConsistency(first uint64, leaves []Hash) ([]Hash, error) {
	return consistency(sliceNodes(leaves), first, uint64(len(leaves)))
}

func consistency(nodes nodeSource, first, second uint64) ([]Hash, error) {
	if first == 0 || first > second {
		return nil, fmt.Errorf("%w: consistency between sizes %d and %d", ErrIndexOutOfRange, first, second)
	}
	if first == second {
		return nil, nil
	}
	return subproof(nodes, first, 0, second, true), nil
}

// subproof is SUBPROOF(m, D[lo:hi], b) from RFC 9162 section 2.1.4.1.
func subproof(nodes nodeSource, m, lo, hi uint64, whole bool) []Hash {
	n := hi - lo
	if m == n {
		if whole {
			return nil
		}
		return []Hash{subtree(nodes, lo, hi)}
	}
	k := splitPoint(n)
	if m <= k {
		proof := subproof(nodes, m, lo, lo+k, whole)
		return append(proof, subtree(nodes, lo+k, hi))
	}
	proof := subproof(nodes, m-k, lo+k, hi, false)
	return append(proof, subtree(nodes, lo, lo+k))
}

// VerifyConsistency checks that firstRoot over first leaves and
// secondRoot over second leaves describe the same log prefix, per
// RFC 9162 section 2.1.4.2.
func VerifyConsistency(first, second uint64, firstRoot, secondRoot Hash, proof []Hash) bool {
	if first == 0 || first > second {
		return false
	}
	if first == second {
		return len(proof) == 0 && firstRoot == secondRoot
	}
	if first&(first-1) == 0 {
		proof = append([]Hash{firstRoot}, proof...)
	}
	if len(proof) == 0 {
		return false
	}

	fn, sn := first-1, second-1
	for fn&1 == 1 {
		fn >>= 1
		sn >>= 1
	}

	fr, sr := proof[0], proof[0]
	for _, c := range proof[1:] {
		if sn == 0 {
			return false
		}
		if fn&1 == 1 || fn == sn {
			fr = HashInternal(c, fr)
			sr = HashInternal(c, sr)
			for fn&1 == 0 && fn != 0 {
				fn >>= 1
				sn >>= 1
			}
		} else {
			sr = HashInternal(sr, c)
		}
		fn >>= 1
		sn >>= 1
	}
	return fr == firstRoot && sr == secondRoot && sn == 0
}
