// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package address derives content identifiers for records.
//
// A record's CID is a CIDv1 over its canonical bytes (lib/canonical)
// with multicodec json (0x0200) and a sha2-256 multihash, rendered in
// lowercase base32. Every CID therefore begins with the same prefix,
// "bagaaiera", followed by the encoded digest. Two records share a CID
// exactly when they share canonical bytes; a single-field difference,
// including the record kind, yields a different CID.
//
// [Parse] accepts only this exact shape. CIDs with other codecs, hash
// functions, versions, or multibase encodings are rejected rather than
// normalized, so a CID string round-trips byte for byte.
package address
