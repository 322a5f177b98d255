// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"fmt"
	"time"
)

// CID is the content identifier of a record: a CIDv1 string derived
// from the record's canonical bytes. Callers never choose a CID; it is
// computed by lib/address.
type CID string

// String returns the CID string.
func (c CID) String() string { return string(c) }

// Short returns an abbreviated CID for log output.
func (c CID) Short() string {
	if len(c) <= 20 {
		return string(c)
	}
	return string(c[:20]) + "…"
}

// Kind tags a record variant. The tag is part of every record's
// canonical form.
type Kind string

const (
	KindEvent  Kind = "event"
	KindClaim  Kind = "claim"
	KindAction Kind = "action"
)

// ParseKind validates a kind tag.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindEvent, KindClaim, KindAction:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown record kind %q", s)
	}
}

// Record is implemented by Event, Claim, and ActionEnvelope only.
type Record interface {
	// Kind returns the variant tag.
	Kind() Kind

	// Time returns the record's logical timestamp.
	Time() time.Time

	sealed()
}

// SourceKind identifies who produced an event.
type SourceKind string

const (
	SourceUser   SourceKind = "user"
	SourceAgent  SourceKind = "agent"
	SourceTool   SourceKind = "tool"
	SourceSystem SourceKind = "system"
)

// Source is the provenance of an Event: the kind of actor and the
// principal that spoke.
type Source struct {
	Kind      SourceKind `json:"kind"`
	Principal string     `json:"principal"`
}

// Event is free-form content with a provenance source. Immutable once
// created.
type Event struct {
	Content   string    `json:"content"`
	Source    Source    `json:"source"`
	Entities  []string  `json:"entities,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (Event) Kind() Kind        { return KindEvent }
func (e Event) Time() time.Time { return e.Timestamp }
func (Event) sealed()           {}

// Claim asserts (Subject, Predicate) -> Value with a confidence score,
// citing Evidence by CID. Supersedes, when set, names a prior claim on
// the same subject and predicate that this claim logically replaces;
// the prior claim stays in the log.
type Claim struct {
	Subject    string    `json:"subject"`
	Predicate  string    `json:"predicate"`
	Value      any       `json:"value"`
	Confidence float64   `json:"confidence"`
	Evidence   []CID     `json:"evidence_cids"`
	Supersedes CID       `json:"supersedes,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (Claim) Kind() Kind        { return KindClaim }
func (c Claim) Time() time.Time { return c.Timestamp }
func (Claim) sealed()           {}

// Slot is one opaque slot of an action envelope. Its contents are
// hashed and signed but not interpreted here.
type Slot map[string]any

// ActionEnvelope is the seven-slot action request. Only the fields
// needed to hash and sign it are modeled.
type ActionEnvelope struct {
	VakyaID    string    `json:"vakya_id"`
	Karta      Slot      `json:"v1_karta"`
	Karma      Slot      `json:"v2_karma"`
	Kriya      Slot      `json:"v3_kriya"`
	Karana     Slot      `json:"v4_karana,omitempty"`
	Sampradana Slot      `json:"v5_sampradana,omitempty"`
	Apadana    Slot      `json:"v6_apadana,omitempty"`
	Adhikarana Slot      `json:"v7_adhikarana"`
	BodyType   string    `json:"body_type,omitempty"`
	Body       any       `json:"body,omitempty"`
	Meta       Slot      `json:"meta,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (ActionEnvelope) Kind() Kind        { return KindAction }
func (a ActionEnvelope) Time() time.Time { return a.Timestamp }
func (ActionEnvelope) sealed()           {}

// Normalize returns the value form of r, dereferencing pointer
// variants. A nil record or nil pointer is an error.
func Normalize(r Record) (Record, error) {
	switch v := r.(type) {
	case Event, Claim, ActionEnvelope:
		return v, nil
	case *Event:
		if v == nil {
			return nil, fmt.Errorf("nil event")
		}
		return *v, nil
	case *Claim:
		if v == nil {
			return nil, fmt.Errorf("nil claim")
		}
		return *v, nil
	case *ActionEnvelope:
		if v == nil {
			return nil, fmt.Errorf("nil action envelope")
		}
		return *v, nil
	case nil:
		return nil, fmt.Errorf("nil record")
	default:
		return nil, fmt.Errorf("unrecognized record type %T", r)
	}
}

// Validate checks the structural invariants of a record that do not
// need the log: required fields and value ranges. Cross-record checks
// (evidence resolution, supersession) belong to lib/claims.
func Validate(r Record) error {
	r, err := Normalize(r)
	if err != nil {
		return err
	}
	switch v := r.(type) {
	case Event:
		if v.Source.Principal == "" {
			return fmt.Errorf("event: source principal is required")
		}
		if v.Source.Kind == "" {
			return fmt.Errorf("event: source kind is required")
		}
	case Claim:
		if v.Subject == "" || v.Predicate == "" {
			return fmt.Errorf("claim: subject and predicate are required")
		}
		if v.Confidence < 0 || v.Confidence > 1 {
			return fmt.Errorf("claim: confidence %v outside [0, 1]", v.Confidence)
		}
		if v.Value == nil {
			return fmt.Errorf("claim: value is required")
		}
		if len(v.Evidence) == 0 {
			return fmt.Errorf("claim: at least one evidence CID is required")
		}
		for _, evidence := range v.Evidence {
			if evidence == "" {
				return fmt.Errorf("claim: empty evidence CID")
			}
		}
	case ActionEnvelope:
		if v.VakyaID == "" {
			return fmt.Errorf("action: vakya_id is required")
		}
	}
	if r.Time().IsZero() {
		return fmt.Errorf("%s: timestamp is required", r.Kind())
	}
	if err := CheckTime(r.Time()); err != nil {
		return fmt.Errorf("%s: %w", r.Kind(), err)
	}
	return nil
}

// CheckTime rejects timestamps whose UTC year falls outside 0000-9999,
// the range an RFC 3339 timestamp can carry.
func CheckTime(t time.Time) error {
	if year := t.UTC().Year(); year < 0 || year > 9999 {
		return fmt.Errorf("timestamp %s is outside years 0000-9999", t.UTC().Format(time.RFC3339Nano))
	}
	return nil
}
