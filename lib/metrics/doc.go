// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics holds the Prometheus instruments for the attestation
// log. Instruments are registered on a caller-supplied registry, and
// every method is a no-op on a nil *Metrics so components can run
// without instrumentation.
package metrics
