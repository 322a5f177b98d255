// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds signing key material outside the Go heap.
//
// A [Buffer] is an anonymous mmap region excluded from core dumps
// (MADV_DONTDUMP) and, where the process is permitted, locked into RAM
// with mlock. Containers and unprivileged users frequently run with
// RLIMIT_MEMLOCK at or near zero, so a failed mlock is recorded
// ([Buffer.Locked] returns false) rather than treated as fatal. Close
// zeroes the region before unmapping it.
//
// [ReadFile] loads a passphrase or key file directly into a Buffer
// and zeroes the heap copy.
//
// Depends on golang.org/x/sys/unix. Imported by lib/signing.
package secret
