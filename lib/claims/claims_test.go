// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package claims

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GlobalSushrut/connector-oss/lib/address"
	"github.com/GlobalSushrut/connector-oss/lib/blockstore"
	"github.com/GlobalSushrut/connector-oss/lib/chain"
	"github.com/GlobalSushrut/connector-oss/lib/clock"
	"github.com/GlobalSushrut/connector-oss/lib/merkle"
	"github.com/GlobalSushrut/connector-oss/lib/record"
	"github.com/GlobalSushrut/connector-oss/lib/signing"
)

var t1 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func openStore(t *testing.T, cfg chain.Config) *Store {
	t.Helper()
	if cfg.Clock == nil {
		cfg.Clock = clock.Fake(t1)
	}
	store, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store
}

func appendRecord(t *testing.T, s *Store, r record.Record) record.CID {
	t.Helper()
	cid, err := s.Log().Append(r)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	return cid
}

func commit(t *testing.T, s *Store) *chain.Block {
	t.Helper()
	block, err := s.Log().Commit(context.Background())
	if err != nil || block == nil {
		t.Fatalf("Commit = %v, %v", block, err)
	}
	return block
}

func reportEvent(content string) record.Event {
	return record.Event{
		Content:   content,
		Source:    record.Source{Kind: record.SourceUser, Principal: "patient:1"},
		Timestamp: t1,
	}
}

func allergy(value string, at time.Time, evidence record.CID, supersedes record.CID) record.Claim {
	return record.Claim{
		Subject:    "patient:1",
		Predicate:  "allergy",
		Value:      value,
		Confidence: 0.9,
		Evidence:   []record.CID{evidence},
		Supersedes: supersedes,
		Timestamp:  at,
	}
}

func TestSupersessionRetrieval(t *testing.T) {
	key, err := signing.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	defer key.Close()
	s := openStore(t, chain.Config{Signer: key})

	report := appendRecord(t, s, reportEvent("I am allergic to penicillin"))
	first := appendRecord(t, s, allergy("penicillin", t1, report, ""))
	commit(t, s)

	retraction := appendRecord(t, s, reportEvent("allergy test came back negative"))
	second := appendRecord(t, s, allergy("none", t1.Add(time.Hour), retraction, first))
	commit(t, s)

	latest, ok := s.Latest("patient:1", "allergy")
	if !ok {
		t.Fatal("Latest found nothing")
	}
	if latest.CID != second || latest.Claim.Value != "none" {
		t.Errorf("Latest = %s (%v), want %s (none)", latest.CID, latest.Claim.Value, second)
	}

	for _, cid := range []record.CID{first, second} {
		bundle, err := s.Provenance(cid)
		if err != nil {
			t.Fatalf("Provenance(%s): %v", cid, err)
		}
		if !bundle.ClaimCIDValid {
			t.Errorf("Provenance(%s): ClaimCIDValid = false", cid)
		}
		if !bundle.BlockSigned || !bundle.SignatureValid {
			t.Errorf("Provenance(%s): signed %v, valid %v", cid, bundle.BlockSigned, bundle.SignatureValid)
		}
		if len(bundle.Evidence) != 1 {
			t.Errorf("Provenance(%s): %d evidence records", cid, len(bundle.Evidence))
		}
		root, _ := s.Log().Root()
		if !merkle.Verify(merkle.HashLeaf(bundle.Canonical), bundle.Proof.Steps, root) {
			t.Errorf("Provenance(%s): inclusion proof does not verify", cid)
		}
	}

	bundle, _ := s.Provenance(first)
	if len(bundle.SupersededBy) != 1 || bundle.SupersededBy[0] != second {
		t.Errorf("first claim SupersededBy = %v, want [%s]", bundle.SupersededBy, second)
	}
	if bundle.Block.Number != 0 || bundle.Evidence[0].CID != report {
		t.Errorf("first claim bundle: block %d, evidence %s", bundle.Block.Number, bundle.Evidence[0].CID)
	}

	history := s.History("patient:1", "allergy")
	if len(history) != 2 || history[0].CID != first || history[1].CID != second {
		t.Errorf("History = %v", history)
	}
	if successors := s.SupersededBy(first); len(successors) != 1 || successors[0].CID != second {
		t.Errorf("SupersededBy = %v", successors)
	}
}

func TestLatestTieBreaks(t *testing.T) {
	s := openStore(t, chain.Config{})
	report := appendRecord(t, s, reportEvent("report"))
	commit(t, s)

	// Equal timestamps: the superseding claim wins regardless of order.
	restated := appendRecord(t, s, allergy("penicillin", t1, report, ""))
	commit(t, s)
	decision := appendRecord(t, s, allergy("none", t1, report, restated))
	again := appendRecord(t, s, allergy("latex", t1, report, ""))
	commit(t, s)

	latest, _ := s.Latest("patient:1", "allergy")
	if latest.CID != decision {
		t.Errorf("Latest = %s, want the superseding claim %s (other %s)", latest.CID, decision, again)
	}

	// Equal timestamps and neither supersedes: the greater CID wins.
	other := openStore(t, chain.Config{})
	evidence := appendRecord(t, other, reportEvent("report"))
	a := appendRecord(t, other, allergy("a", t1, evidence, ""))
	b := appendRecord(t, other, allergy("b", t1, evidence, ""))
	commit(t, other)
	want := a
	if b > a {
		want = b
	}
	if latest, _ := other.Latest("patient:1", "allergy"); latest.CID != want {
		t.Errorf("Latest = %s, want %s", latest.CID, want)
	}
}

func TestLatestIgnoresPending(t *testing.T) {
	s := openStore(t, chain.Config{})
	report := appendRecord(t, s, reportEvent("report"))
	first := appendRecord(t, s, allergy("penicillin", t1, report, ""))
	if _, ok := s.Latest("patient:1", "allergy"); ok {
		t.Error("Latest returned a pending claim")
	}
	commit(t, s)
	appendRecord(t, s, allergy("none", t1.Add(time.Minute), report, first))

	latest, ok := s.Latest("patient:1", "allergy")
	if !ok || latest.CID != first {
		t.Errorf("Latest = %s, %v, want committed claim %s", latest.CID, ok, first)
	}
	if _, ok := s.Latest("patient:2", "allergy"); ok {
		t.Error("Latest found a claim for an unknown subject")
	}
}

func TestEvidenceValidation(t *testing.T) {
	s := openStore(t, chain.Config{})

	_, err := s.Log().Append(allergy("penicillin", t1, "bagaaieramissing", ""))
	if !errors.Is(err, ErrEvidenceUnresolved) {
		t.Errorf("missing evidence: %v, want ErrEvidenceUnresolved", err)
	}

	// Evidence pending earlier in the same batch resolves.
	report := appendRecord(t, s, reportEvent("report"))
	appendRecord(t, s, allergy("penicillin", t1, report, ""))
	if s.Log().Pending() != 2 {
		t.Errorf("Pending = %d, want 2", s.Log().Pending())
	}
}

func TestSupersessionValidation(t *testing.T) {
	s := openStore(t, chain.Config{})
	report := appendRecord(t, s, reportEvent("report"))
	claim := appendRecord(t, s, allergy("penicillin", t1, report, ""))
	diagnosis := appendRecord(t, s, record.Claim{
		Subject:    "patient:1",
		Predicate:  "diagnosis",
		Value:      "dermatitis",
		Confidence: 0.6,
		Evidence:   []record.CID{report},
		Timestamp:  t1,
	})
	commit(t, s)

	tests := []struct {
		name       string
		supersedes record.CID
	}{
		{"unknown", "bagaaieranothing"},
		{"event", report},
		{"other predicate", diagnosis},
	}
	for _, test := range tests {
		_, err := s.Log().Append(allergy("none", t1.Add(time.Hour), report, test.supersedes))
		if !errors.Is(err, ErrInvalidSupersession) {
			t.Errorf("%s: %v, want ErrInvalidSupersession", test.name, err)
		}
	}
	if _, err := s.Log().Append(allergy("none", t1.Add(time.Hour), report, claim)); err != nil {
		t.Errorf("valid supersession rejected: %v", err)
	}
}

func TestProvenanceErrors(t *testing.T) {
	s := openStore(t, chain.Config{})
	report := appendRecord(t, s, reportEvent("report"))
	commit(t, s)
	pending := appendRecord(t, s, allergy("penicillin", t1, report, ""))

	if _, err := s.Provenance("bagaaieraunknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown: %v, want ErrNotFound", err)
	}
	if _, err := s.Provenance(pending); !errors.Is(err, ErrNotCommitted) {
		t.Errorf("pending: %v, want ErrNotCommitted", err)
	}
	if _, err := s.Provenance(report); !errors.Is(err, ErrNotClaim) {
		t.Errorf("event: %v, want ErrNotClaim", err)
	}

	commit(t, s)
	bundle, err := s.Provenance(pending)
	if err != nil {
		t.Fatalf("Provenance after commit: %v", err)
	}
	if bundle.BlockSigned || bundle.SignatureValid {
		t.Error("unsigned log produced a signed bundle")
	}
}

// TestProvenanceDetectsNonCanonicalBytes stores claim bytes that hash
// to their CID but are not the canonical encoding of the claim they
// decode to.
func TestProvenanceDetectsNonCanonicalBytes(t *testing.T) {
	ctx := context.Background()
	report := reportEvent("report")
	reportCID, reportBytes, err := address.Compute(report)
	if err != nil {
		t.Fatal(err)
	}
	_, claimBytes, err := address.Compute(allergy("penicillin", t1, reportCID, ""))
	if err != nil {
		t.Fatal(err)
	}
	spaced := append([]byte("{ "), bytes.TrimPrefix(claimBytes, []byte("{"))...)
	spacedCID := address.FromCanonical(spaced)

	leaves := []merkle.Hash{merkle.HashLeaf(reportBytes), merkle.HashLeaf(spaced)}
	block := chain.Block{
		Number:    0,
		Timestamp: t1,
		Records:   []record.CID{reportCID, spacedCID},
		Mode:      chain.ModeMerkle,
		TreeSize:  2,
		TreeRoot:  merkle.Root(leaves),
	}
	block.Hash = block.ComputeHash()

	store := blockstore.NewMemory()
	err = store.Append(ctx, blockstore.Block{
		Number:    0,
		PrevHash:  make([]byte, 32),
		Timestamp: t1,
		Records:   []string{string(reportCID), string(spacedCID)},
		Hash:      block.Hash[:],
		Mode:      uint8(chain.ModeMerkle),
		TreeSize:  2,
		TreeRoot:  block.TreeRoot[:],
	}, []blockstore.Entry{
		{CID: string(reportCID), Kind: "event", Canonical: reportBytes, BlockNo: 0, LeafIndex: 0},
		{CID: string(spacedCID), Kind: "claim", Canonical: spaced, BlockNo: 0, LeafIndex: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	s := openStore(t, chain.Config{Store: store})
	bundle, err := s.Provenance(spacedCID)
	if !errors.Is(err, address.ErrIntegrityMismatch) {
		t.Fatalf("Provenance = %v, want ErrIntegrityMismatch", err)
	}
	if bundle == nil || bundle.ClaimCIDValid {
		t.Errorf("bundle = %+v, want one with ClaimCIDValid false", bundle)
	}
}

func TestIndexRebuiltOnReopen(t *testing.T) {
	store := blockstore.NewMemory()
	s := openStore(t, chain.Config{Store: store})
	report := appendRecord(t, s, reportEvent("report"))
	first := appendRecord(t, s, allergy("penicillin", t1, report, ""))
	commit(t, s)
	second := appendRecord(t, s, allergy("none", t1.Add(time.Hour), report, first))
	commit(t, s)

	reopened := openStore(t, chain.Config{Store: store})
	latest, ok := reopened.Latest("patient:1", "allergy")
	if !ok || latest.CID != second {
		t.Errorf("Latest after reopen = %s, %v, want %s", latest.CID, ok, second)
	}
	if successors := reopened.SupersededBy(first); len(successors) != 1 {
		t.Errorf("SupersededBy after reopen = %v", successors)
	}
}

type noopHook struct{}

func (noopHook) Validate(record.Record, record.CID, chain.Resolver) error { return nil }
func (noopHook) Accepted(chain.Entry)                                    {}

func TestOpenRejectsExistingHook(t *testing.T) {
	if _, err := Open(context.Background(), chain.Config{Hook: noopHook{}}); err == nil {
		t.Error("Open accepted a config with a hook")
	}
}
