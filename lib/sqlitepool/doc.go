// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens SQLite databases for the log's durable
// block store.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool with fixed defaults
// and versioned schema migrations. Callers [Pool.Take] a connection,
// use it from one goroutine, and [Pool.Put] it back; writes go through
// [Pool.Write], which wraps the work in an IMMEDIATE transaction so
// that a failed write leaves nothing behind.
//
// # Pragmas
//
// Every connection is initialized with:
//
//   - journal_mode=WAL: readers do not block the writer.
//   - synchronous=FULL: a committed block survives power loss. The
//     log is the system of record, so the per-commit fsync is paid.
//   - busy_timeout=5000: wait for the write lock instead of failing.
//   - foreign_keys=ON: record rows reference their block.
//   - temp_store=MEMORY.
//
// # Migrations
//
// [Config.Migrations] is an ordered list of SQL scripts. Open applies
// every script beyond the database's PRAGMA user_version in a single
// transaction and advances user_version to the number applied, so
// reopening an up-to-date database is a no-op and a database written
// by a newer schema is refused.
package sqlitepool
