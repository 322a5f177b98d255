// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package blockstore persists committed blocks and the canonical bytes
// of the records they contain.
//
// [Store] is the only storage surface the log depends on. A block and
// its entries are written atomically by [Store.Append]; either all of
// them become durable or none do, and a block whose number is not the
// next in sequence is refused with [ErrConflict]. [Store.Load] returns
// everything in order for replay when a log is opened.
//
// Two backends implement it:
//
//   - [Memory], for tests and ephemeral logs.
//   - [SQLite], built on lib/sqlitepool. Blocks are stored as
//     deterministic CBOR (lib/codec). Record bytes are compressed with
//     lz4 or zstd when that makes them smaller. Every row carries a
//     BLAKE3 keyed checksum over its decoded content, verified on
//     load, so a corrupted or hand-edited row surfaces as
//     [ErrCorrupt] instead of being replayed.
//
// The store does not interpret blocks. Hash linkage, Merkle roots, and
// signatures are recomputed and checked by lib/chain after loading;
// the checksum here only catches storage-level damage early with a
// precise location.
package blockstore
