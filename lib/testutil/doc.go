// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so tests of background loops (the ledger's commit loop
// driven by a fake clock) never block forever and never call
// time.After themselves. They are the only place tests use a real
// wall-clock timeout.
//
// [WriteFile] writes fixture files (configs, records, proofs) into a
// test's temp directory.
//
// All helpers fail the test with t.Fatalf rather than returning errors.
package testutil
