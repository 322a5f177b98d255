// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Vac is the command-line front end to a verifiable attestation log.
// It provides subcommands for key management (keys), writing (append,
// commit, run), chain verification (verify, blocks), Merkle queries
// (root, proof, consistency, tree-head, verify-proof), and claim
// lookups (latest, history, provenance).
//
// Set VAC_DEBUG to any value for debug-level logs.
package main
