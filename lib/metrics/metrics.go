// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the append log and ledger.
type Metrics struct {
	// Records accepted into the pending set, by log and record kind.
	RecordsAppended *prometheus.CounterVec

	// Submissions rejected as already present.
	DuplicateRecords *prometheus.CounterVec

	BlocksCommitted *prometheus.CounterVec

	// Wall time from taking the pending set to publishing the block,
	// persistence included.
	CommitDuration *prometheus.HistogramVec

	// Chain or record verification failures, by kind ("chain",
	// "record", "signature").
	IntegrityFailures *prometheus.CounterVec

	TreeSize *prometheus.GaugeVec
}

// New registers every instrument on registerer. A nil registerer uses
// the Prometheus default registry.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)
	return &Metrics{
		RecordsAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vac_records_appended_total",
			Help: "Records accepted into a log's pending set",
		}, []string{"log", "kind"}),

		DuplicateRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vac_duplicate_records_total",
			Help: "Appends rejected because the record was already in the log",
		}, []string{"log"}),

		BlocksCommitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vac_blocks_committed_total",
			Help: "Blocks committed, including empty heartbeat blocks",
		}, []string{"log"}),

		CommitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vac_commit_duration_seconds",
			Help:    "Duration of block commits including persistence",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}, []string{"log"}),

		IntegrityFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vac_integrity_failures_total",
			Help: "Detected chain, record, or signature integrity failures",
		}, []string{"log", "kind"}),

		TreeSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vac_tree_size",
			Help: "Number of leaves committed to a log's Merkle tree",
		}, []string{"log"}),
	}
}

// RecordAppended counts one record accepted by log.
func (m *Metrics) RecordAppended(log, kind string) {
	if m != nil {
		m.RecordsAppended.WithLabelValues(log, kind).Inc()
	}
}

// DuplicateRecord counts one rejected duplicate.
func (m *Metrics) DuplicateRecord(log string) {
	if m != nil {
		m.DuplicateRecords.WithLabelValues(log).Inc()
	}
}

// BlockCommitted records a commit, its duration, and the tree size
// after it.
func (m *Metrics) BlockCommitted(log string, d time.Duration, treeSize uint64) {
	if m != nil {
		m.BlocksCommitted.WithLabelValues(log).Inc()
		m.CommitDuration.WithLabelValues(log).Observe(d.Seconds())
		m.TreeSize.WithLabelValues(log).Set(float64(treeSize))
	}
}

// SetTreeSize sets the tree size gauge, used after replaying a store.
func (m *Metrics) SetTreeSize(log string, treeSize uint64) {
	if m != nil {
		m.TreeSize.WithLabelValues(log).Set(float64(treeSize))
	}
}

// IntegrityFailure counts one detected integrity failure.
func (m *Metrics) IntegrityFailure(log, kind string) {
	if m != nil {
		m.IntegrityFailures.WithLabelValues(log, kind).Inc()
	}
}
