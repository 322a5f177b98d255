// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package watchdog records the head of a log, its latest block number
// and hash, in a small state file outside the block store.
//
// The file is rewritten atomically after every commit (temporary file,
// fsync, rename, fsync of the parent directory). It serves two readers:
//
//   - The next process to open the log calls [State.CheckLog]. A store
//     that no longer holds the recorded block was truncated
//     ([ErrRollback]); one that holds a different block at that height
//     was rewritten ([ErrForked]). Neither is visible from the chain
//     alone, since a shortened chain still verifies.
//   - A liveness monitor (vac verify --max-age) calls [Check] with the
//     heartbeat interval to tell whether a heartbeat-mode log is still
//     committing.
package watchdog
