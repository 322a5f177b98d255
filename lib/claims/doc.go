// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package claims indexes the claims in an attestation log by subject
// and predicate, validates their evidence and supersession links as
// they are appended, and assembles provenance bundles.
//
// A Store owns its [chain.Log] and installs itself as the log's hook,
// so every append is checked under the log's write lock and every
// accepted or replayed claim is indexed in log order. Supersession
// never removes anything: a superseded claim stays in the log and in
// [Store.History], and [Store.Latest] picks the winner at read time.
package claims
