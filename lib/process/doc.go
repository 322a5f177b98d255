// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the binary entrypoint's exit handling: the one
// place raw output to stderr happens after the structured logger is
// gone. main hands the error from run to [Exit].
package process
