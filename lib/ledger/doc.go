// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger is the submission and query boundary of an
// attestation log. It wraps a [claims.Store] (and through it a
// [chain.Log]) with:
//
//   - Submit, which verifies an optional submitter signature against
//     the trusted keys, appends the record, and optionally commits it
//     at once and returns a receipt;
//   - root, inclusion proof, consistency proof, and signed tree head
//     queries addressed by tree ID (the log ID);
//   - Run, a periodic commit loop driven by the injected clock, which
//     in heartbeat mode commits empty blocks for liveness.
//
// Integrity failures found through the ledger are logged at Error level
// and counted before they are returned.
package ledger
