// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the storage serialization for blocks and records:
// CBOR (RFC 8949) with Core Deterministic Encoding (sorted map keys,
// shortest integer forms, no indefinite lengths), so equal values
// always produce equal bytes.
//
// CBOR is a storage format only. Nothing in the log hashes or signs
// CBOR; the hashed forms are the canonical JSON of lib/canonical and
// the block framing of lib/chain. That keeps every persisted row
// re-verifiable from its decoded fields regardless of how the encoder
// evolves.
//
// Timestamps encode as RFC 3339 text with nanoseconds so that stored
// rows are legible in diagnostic notation ([Diagnose]). Values decoded
// into any use map[string]any for maps, matching encoding/json, and a
// repeated map key fails the decode.
package codec
