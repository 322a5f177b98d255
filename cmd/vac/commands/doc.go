// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the vac command tree.
//
// Every command that touches a log loads the YAML configuration named
// by --config or VAC_CONFIG, opens the configured block store, replays
// and verifies the chain, runs, and closes. Nothing is kept between
// invocations except what the store holds, so "vac append" commits the
// records it appended before it exits.
package commands
