// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package merkle implements the binary hash tree that commits the log's
// records, and the inclusion and consistency proofs computed from it.
//
// Hashing uses two domains so that a leaf can never be presented as an
// internal node or the reverse:
//
//	leaf:     SHA-256(0x00 || canonical record bytes)
//	internal: SHA-256(0x01 || left || right)
//
// Leaves are paired left to right, level by level. When a level has an
// odd number of nodes the last node is promoted to the next level
// unchanged; it is never duplicated. The resulting shape is the one
// RFC 9162 defines recursively (split at the largest power of two
// below the size), which is what makes consistency proofs between two
// tree sizes possible.
//
// An inclusion proof is the list of sibling hashes from the leaf up to
// the root. Each step carries the side of the sibling relative to the
// running hash:
//
//	right: next = internal(current, sibling)
//	left:  next = internal(sibling, current)
//
// A level at which the running node was promoted contributes no step.
//
// [VerifyHex] is the entry point other languages implement
// identically: it takes hex strings and lowercase position names, and
// returns false for any malformed input instead of an error.
//
// [Tree] is the incremental form used by the log: an append-only leaf
// sequence that caches completed subtrees, answers roots and proofs for
// any earlier size, and allows concurrent readers alongside one writer.
package merkle
