// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the injectable time source for the log.
//
// Record, block, and tree-head timestamps and the heartbeat ticker all
// come from a [Clock] passed in through configuration structs rather
// than from the time package. Production code uses [Real]; tests use
// [Fake], whose time moves only when Advance is called:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go ledger.RunHeartbeat(ctx, time.Minute)
//	c.WaitForTimers(1)       // the heartbeat ticker is registered
//	c.Advance(time.Minute)   // exactly one tick is delivered
//
// WaitForTimers closes the race between a goroutine registering its
// ticker and the test advancing the clock.
package clock
