// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package claims

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/GlobalSushrut/connector-oss/lib/chain"
	"github.com/GlobalSushrut/connector-oss/lib/record"
)

var (
	// ErrNotFound means no record with the CID is in the log.
	ErrNotFound = errors.New("claims: record not found")

	// ErrNotCommitted means the record is pending.
	ErrNotCommitted = errors.New("claims: record not committed")

	// ErrNotClaim means the CID names a record that is not a claim.
	ErrNotClaim = errors.New("claims: record is not a claim")

	// ErrEvidenceUnresolved means a claim cites evidence that is not
	// in the log.
	ErrEvidenceUnresolved = errors.New("claims: evidence does not resolve")

	// ErrInvalidSupersession means a claim supersedes something other
	// than an earlier claim on the same subject and predicate.
	ErrInvalidSupersession = errors.New("claims: invalid supersession")
)

// Item is an indexed claim.
type Item struct {
	CID   record.CID
	Claim record.Claim

	// BlockNo and LeafIndex locate the committing block and leaf.
	BlockNo   uint64
	LeafIndex uint64
}

type slot struct {
	subject   string
	predicate string
}

// Store is a supersession-aware claim index over a log.
type Store struct {
	log *chain.Log

	mu sync.RWMutex
	// bySlot lists claim CIDs in append order, pending ones included.
	bySlot       map[slot][]record.CID
	supersededBy map[record.CID][]record.CID
}

// Open opens a log with cfg and indexes it. cfg.Hook must be nil; the
// store installs itself.
func Open(ctx context.Context, cfg chain.Config) (*Store, error) {
	if cfg.Hook != nil {
		return nil, fmt.Errorf("claims: log config already has a hook")
	}
	s := &Store{
		bySlot:       make(map[slot][]record.CID),
		supersededBy: make(map[record.CID][]record.CID),
	}
	cfg.Hook = s
	log, err := chain.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.log = log
	return s, nil
}

// Log returns the underlying log.
func (s *Store) Log() *chain.Log { return s.log }

// Close closes the underlying log.
func (s *Store) Close() error { return s.log.Close() }

// Validate implements chain.Hook. Events and actions pass unchanged.
func (s *Store) Validate(r record.Record, cid record.CID, resolver chain.Resolver) error {
	claim, ok := r.(record.Claim)
	if !ok {
		return nil
	}
	for _, evidence := range claim.Evidence {
		if _, ok := resolver.Resolve(evidence); !ok {
			return fmt.Errorf("%w: claim %s cites %s", ErrEvidenceUnresolved, cid.Short(), evidence)
		}
	}
	if claim.Supersedes == "" {
		return nil
	}
	prior, ok := resolver.Resolve(claim.Supersedes)
	if !ok {
		return fmt.Errorf("%w: claim %s supersedes unknown record %s", ErrInvalidSupersession, cid.Short(), claim.Supersedes)
	}
	priorClaim, ok := prior.Record.(record.Claim)
	if !ok {
		return fmt.Errorf("%w: claim %s supersedes %s record %s", ErrInvalidSupersession, cid.Short(), prior.Record.Kind(), claim.Supersedes)
	}
	if priorClaim.Subject != claim.Subject || priorClaim.Predicate != claim.Predicate {
		return fmt.Errorf("%w: claim %s on (%s, %s) supersedes claim on (%s, %s)", ErrInvalidSupersession,
			cid.Short(), claim.Subject, claim.Predicate, priorClaim.Subject, priorClaim.Predicate)
	}
	return nil
}

// Accepted implements chain.Hook.
func (s *Store) Accepted(entry chain.Entry) {
	claim, ok := entry.Record.(record.Claim)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := slot{claim.Subject, claim.Predicate}
	s.bySlot[key] = append(s.bySlot[key], entry.CID)
	if claim.Supersedes != "" {
		s.supersededBy[claim.Supersedes] = append(s.supersededBy[claim.Supersedes], entry.CID)
	}
}

// History returns every committed claim on (subject, predicate),
// oldest first by log position.
func (s *Store) History(subject, predicate string) []Item {
	s.mu.RLock()
	cids := append([]record.CID(nil), s.bySlot[slot{subject, predicate}]...)
	s.mu.RUnlock()

	items := make([]Item, 0, len(cids))
	for _, cid := range cids {
		if item, ok := s.committed(cid); ok {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].LeafIndex < items[j].LeafIndex })
	return items
}

// Latest returns the current committed claim on (subject, predicate):
// the greatest timestamp, preferring a superseding claim on a tie, and
// then the greater CID so the choice is deterministic.
func (s *Store) Latest(subject, predicate string) (Item, bool) {
	history := s.History(subject, predicate)
	if len(history) == 0 {
		return Item{}, false
	}
	best := history[0]
	for _, candidate := range history[1:] {
		if newer(candidate, best) {
			best = candidate
		}
	}
	return best, true
}

func newer(a, b Item) bool {
	if !a.Claim.Timestamp.Equal(b.Claim.Timestamp) {
		return a.Claim.Timestamp.After(b.Claim.Timestamp)
	}
	aSupersedes, bSupersedes := a.Claim.Supersedes != "", b.Claim.Supersedes != ""
	if aSupersedes != bSupersedes {
		return aSupersedes
	}
	return a.CID > b.CID
}

// SupersededBy returns the committed claims that name cid in their
// supersedes field, in log order.
func (s *Store) SupersededBy(cid record.CID) []Item {
	s.mu.RLock()
	cids := append([]record.CID(nil), s.supersededBy[cid]...)
	s.mu.RUnlock()

	items := make([]Item, 0, len(cids))
	for _, successor := range cids {
		if item, ok := s.committed(successor); ok {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].LeafIndex < items[j].LeafIndex })
	return items
}

// committed returns the index entry for cid if the log has committed
// it.
func (s *Store) committed(cid record.CID) (Item, bool) {
	entry, ok := s.log.Lookup(cid)
	if !ok {
		return Item{}, false
	}
	claim, ok := entry.Record.(record.Claim)
	if !ok {
		return Item{}, false
	}
	return Item{CID: cid, Claim: claim, BlockNo: entry.BlockNo, LeafIndex: entry.LeafIndex}, true
}
