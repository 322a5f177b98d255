// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package canonical produces the one byte representation of a record
// that every hash, CID, and signature in the log is computed over.
//
// The format is the JSON Canonicalization Scheme (RFC 8785): object
// members sorted by UTF-16 code unit, no insignificant whitespace,
// ES6 number serialization, minimal string escaping. The Python and
// Rust SDKs produce the same bytes for the same record, which is what
// lets a signature made by one be verified by another.
//
// Encoding rules on top of RFC 8785:
//
//   - Every record carries a "kind" member ("event", "claim",
//     "action") so that two variants with coincidentally identical
//     fields never share bytes.
//   - Absent optional fields are omitted. There is no null sentinel
//     for absence; an explicit null inside an opaque value is kept.
//   - Timestamps are RFC 3339 strings in UTC with nanosecond precision
//     and trailing zeros removed.
//   - Integers outside ±2^53 are rejected because they cannot survive
//     the float64 number model of RFC 8785 unchanged.
//   - Strings and map keys must be valid UTF-8.
//
// Failures are reported as *EncodingError and match [ErrEncoding]
// under errors.Is. They indicate a caller bug and are never retried.
//
// This package is the only encoder. Signers, verifiers, the content
// addresser, and the claim store all call [Encode]; nothing else in
// the tree serializes a record for hashing.
package canonical
