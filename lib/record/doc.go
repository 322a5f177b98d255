// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package record defines the closed set of record variants that the
// attestation log accepts: [Event], [Claim], and [ActionEnvelope].
//
// [Record] has an unexported method, so no type outside this package
// can satisfy it. Every consumer that needs to look inside a record
// (the canonical encoder in particular) switches over exactly these
// three types and rejects anything else.
//
// Records refer to each other only by [CID], never by pointer. A Claim
// names its evidence and the claim it supersedes by CID; resolution
// goes through the log's lookup table.
//
// The package has no dependencies beyond the standard library. The
// canonical encoding lives in lib/canonical and CID derivation in
// lib/address.
package record
