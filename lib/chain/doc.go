// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package chain implements the append-only attestation log: a pending
// set of records and a sequence of hash-chained blocks that commit
// them.
//
// [Log.Append] canonicalizes a record, derives its CID, and adds it to
// the pending set. [Log.Commit] takes the whole pending set, links a
// new block to the previous block hash, appends the records' leaf
// hashes to the log's Merkle tree, optionally signs the block hash,
// persists the block through a [blockstore.Store], and only then
// publishes it. A block is either fully visible or not visible at all.
//
// The block hash is SHA-256 over a fixed binary framing of the block's
// fields:
//
//	"vac.block.v1" || mode || be64(block_no) || prev_hash[32] ||
//	be16(len(ts)) || ts || be32(n) || (be16(len(cid)) || cid)*n
//
// followed in Merkle mode by be64(tree_size) || tree_root[32], so a
// Merkle-mode block attests to the entire log prefix and not only to
// its own records. Block 0 links to 32 zero bytes.
//
// Append and Commit are serialized by one mutex. Readers never take
// it: committed state is an immutable snapshot swapped in atomically,
// and proofs are computed against the snapshot's tree size.
//
// [Open] replays a store, rebuilds the tree and lookup tables, and
// refuses to open a log whose stored chain does not verify.
package chain
