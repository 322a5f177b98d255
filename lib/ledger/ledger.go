// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/GlobalSushrut/connector-oss/lib/address"
	"github.com/GlobalSushrut/connector-oss/lib/blockstore"
	"github.com/GlobalSushrut/connector-oss/lib/chain"
	"github.com/GlobalSushrut/connector-oss/lib/claims"
	"github.com/GlobalSushrut/connector-oss/lib/clock"
	"github.com/GlobalSushrut/connector-oss/lib/merkle"
	"github.com/GlobalSushrut/connector-oss/lib/metrics"
	"github.com/GlobalSushrut/connector-oss/lib/record"
	"github.com/GlobalSushrut/connector-oss/lib/signing"
)

var (
	// ErrUnknownTree means a query named a tree this ledger does not
	// serve.
	ErrUnknownTree = errors.New("ledger: unknown tree")

	// ErrSignatureRejected means a submission's signature names an
	// untrusted key or does not verify.
	ErrSignatureRejected = errors.New("ledger: submission signature rejected")
)

// Config holds the parameters for Open.
type Config struct {
	// ID is the log ID and the only tree ID the ledger answers for.
	ID         string
	Mode       chain.Mode
	AllowEmpty bool
	Store      blockstore.Store

	// Signer signs blocks and tree heads. Nil runs unsigned.
	Signer *signing.KeyPair

	// AutoCommit commits every accepted submission before Submit
	// returns.
	AutoCommit bool

	// TrustedKeys verifies submitter signatures. A signed submission
	// whose key is not here is rejected.
	TrustedKeys signing.Keyring

	// Committed, when set, is called after every block this ledger
	// commits, with the write lock released.
	Committed func(*chain.Block)

	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Ledger serves one attestation log.
type Ledger struct {
	claims      *claims.Store
	log         *chain.Log
	signer      *signing.KeyPair
	autoCommit  bool
	committed   func(*chain.Block)
	trustedKeys signing.Keyring
	clock       clock.Clock
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Open opens the log described by cfg.
func Open(ctx context.Context, cfg Config) (*Ledger, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ledgerClock := cfg.Clock
	if ledgerClock == nil {
		ledgerClock = clock.Real()
	}
	store, err := claims.Open(ctx, chain.Config{
		ID:         cfg.ID,
		Mode:       cfg.Mode,
		AllowEmpty: cfg.AllowEmpty,
		Store:      cfg.Store,
		Signer:     cfg.Signer,
		Clock:      ledgerClock,
		Logger:     logger,
		Metrics:    cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	return &Ledger{
		claims:      store,
		log:         store.Log(),
		signer:      cfg.Signer,
		autoCommit:  cfg.AutoCommit,
		committed:   cfg.Committed,
		trustedKeys: cfg.TrustedKeys,
		clock:       ledgerClock,
		logger:      logger.With("log", store.Log().ID()),
		metrics:     cfg.Metrics,
	}, nil
}

// Log returns the underlying append log.
func (l *Ledger) Log() *chain.Log { return l.log }

// Claims returns the claim index.
func (l *Ledger) Claims() *claims.Store { return l.claims }

// Close closes the log and its store.
func (l *Ledger) Close() error { return l.claims.Close() }

// Submission is a record offered to the ledger, optionally signed by
// its submitter over the record's canonical bytes.
type Submission struct {
	Record    record.Record
	Signature signing.Signature
}

// Status is the outcome of a submission.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCommitted Status = "committed"
	StatusDuplicate Status = "duplicate"
)

// Receipt locates a committed record.
type Receipt struct {
	BlockNo   uint64 `json:"block_no"`
	BlockHash string `json:"block_hash"`
	LeafIndex uint64 `json:"leaf_index"`
	TreeSize  uint64 `json:"tree_size"`
	Root      string `json:"root"`
}

// SubmitResult is returned by Submit. Receipt is set once the record
// is committed, including for a duplicate of a committed record.
type SubmitResult struct {
	ID       uuid.UUID  `json:"id"`
	CID      record.CID `json:"cid"`
	LeafHash string     `json:"leaf_hash"`
	Status   Status     `json:"status"`
	Receipt  *Receipt   `json:"receipt,omitempty"`
}

// Submit verifies and appends a record. A record already in the log is
// not an error: the result has StatusDuplicate and the existing CID.
func (l *Ledger) Submit(ctx context.Context, submission Submission) (*SubmitResult, error) {
	_, canonicalBytes, err := address.Compute(submission.Record)
	if err != nil {
		return nil, fmt.Errorf("ledger: submit: %w", err)
	}
	if err := l.verifySubmission(submission.Signature, canonicalBytes); err != nil {
		return nil, err
	}

	cid, err := l.log.Append(submission.Record)
	duplicate := errors.Is(err, chain.ErrDuplicateRecord)
	if err != nil && !duplicate {
		return nil, fmt.Errorf("ledger: submit: %w", err)
	}

	result := &SubmitResult{
		ID:       uuid.New(),
		CID:      cid,
		LeafHash: merkle.HashLeaf(canonicalBytes).String(),
		Status:   StatusPending,
	}
	if duplicate {
		result.Status = StatusDuplicate
	} else if l.autoCommit {
		if _, err := l.commit(ctx); err != nil {
			l.logger.Error("auto-commit failed", "cid", cid, "error", err)
			return nil, fmt.Errorf("ledger: submit: %w", err)
		}
	}

	if receipt, ok := l.receipt(cid); ok {
		result.Receipt = receipt
		if !duplicate {
			result.Status = StatusCommitted
		}
	}
	l.logger.Debug("submission accepted", "id", result.ID, "cid", cid, "status", result.Status)
	return result, nil
}

func (l *Ledger) verifySubmission(signature signing.Signature, canonicalBytes []byte) error {
	if signature.IsZero() {
		return nil
	}
	public, ok := l.trustedKeys.Lookup(signature.KeyID)
	if !ok {
		return fmt.Errorf("%w: key %s is not trusted", ErrSignatureRejected, signature.KeyID)
	}
	if !signing.Verify(canonicalBytes, signature, public) {
		l.metrics.IntegrityFailure(l.log.ID(), "signature")
		return fmt.Errorf("%w: signature by %s does not verify", ErrSignatureRejected, signature.KeyID)
	}
	return nil
}

// Receipt returns the receipt of a committed record.
func (l *Ledger) Receipt(cid record.CID) (*Receipt, bool) {
	return l.receipt(cid)
}

func (l *Ledger) receipt(cid record.CID) (*Receipt, bool) {
	entry, ok := l.log.Lookup(cid)
	if !ok {
		return nil, false
	}
	block, ok := l.log.Block(entry.BlockNo)
	if !ok {
		return nil, false
	}
	// The receipt refers to the tree as of the block's last leaf.
	size := entry.LeafIndex - indexInBlock(block, cid) + uint64(len(block.Records))
	root, err := l.log.RootAt(size)
	if err != nil {
		return nil, false
	}
	return &Receipt{
		BlockNo:   block.Number,
		BlockHash: block.Hash.String(),
		LeafIndex: entry.LeafIndex,
		TreeSize:  size,
		Root:      root.String(),
	}, true
}

func indexInBlock(block *chain.Block, cid record.CID) uint64 {
	for i, listed := range block.Records {
		if listed == cid {
			return uint64(i)
		}
	}
	return 0
}

// Commit commits the pending set.
func (l *Ledger) Commit(ctx context.Context) (*chain.Block, error) {
	return l.commit(ctx)
}

func (l *Ledger) commit(ctx context.Context) (*chain.Block, error) {
	block, err := l.log.Commit(ctx)
	if err == nil && block != nil && l.committed != nil {
		l.committed(block)
	}
	return block, err
}

// Verify re-verifies the whole chain.
func (l *Ledger) Verify() error {
	return l.log.VerifyChain()
}

// Provenance returns the provenance bundle of a committed claim.
// Integrity mismatches are logged and counted before being returned.
func (l *Ledger) Provenance(cid record.CID) (*claims.Bundle, error) {
	bundle, err := l.claims.Provenance(cid)
	if errors.Is(err, address.ErrIntegrityMismatch) {
		l.metrics.IntegrityFailure(l.log.ID(), "record")
		l.logger.Error("claim failed integrity check", "cid", cid, "error", err)
	}
	return bundle, err
}

// Run commits the pending set every interval until ctx is done. In
// heartbeat mode (AllowEmpty) every tick produces a block. Commit
// failures are logged and the loop continues; the pending set is kept
// for the next tick.
func (l *Ledger) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("ledger: commit interval must be positive, got %s", interval)
	}
	ticker := l.clock.NewTicker(interval)
	defer ticker.Stop()
	l.logger.Info("commit loop started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("commit loop stopped")
			return nil
		case <-ticker.C:
			if _, err := l.commit(ctx); err != nil {
				l.logger.Error("periodic commit failed", "error", err)
			}
		}
	}
}
