// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports which build of vac is running.
//
// Release builds stamp [Commit], [Modified], and [BuildTime] with
// -ldflags -X. Builds without stamps report the VCS revision the go
// tool embedded, or "unknown" for test binaries and builds outside a
// checkout.
//
// [ExecutableDigest] reports the SHA-256 of the running binary so an
// operator can tie a log's blocks to the exact build that wrote them.
package version
