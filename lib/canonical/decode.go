// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/GlobalSushrut/connector-oss/lib/record"
)

// Decode parses the canonical bytes of a record back into its variant.
// For bytes produced by [Encode], encoding the result again yields the
// same bytes. Unknown members are rejected.
func Decode(data []byte) (record.Record, error) {
	var header struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, &EncodingError{Err: fmt.Errorf("decoding record: %w", err)}
	}
	kind, err := record.ParseKind(header.Kind)
	if err != nil {
		return nil, &EncodingError{Path: "kind", Err: err}
	}

	switch kind {
	case record.KindEvent:
		var view eventView
		if err := strictUnmarshal(data, &view); err != nil {
			return nil, err
		}
		timestamp, err := ParseTime(view.Timestamp)
		if err != nil {
			return nil, &EncodingError{Path: "timestamp", Err: err}
		}
		return record.Event{
			Content:   view.Content,
			Source:    view.Source,
			Entities:  view.Entities,
			Timestamp: timestamp,
		}, nil
	case record.KindClaim:
		var view claimView
		if err := strictUnmarshal(data, &view); err != nil {
			return nil, err
		}
		timestamp, err := ParseTime(view.Timestamp)
		if err != nil {
			return nil, &EncodingError{Path: "timestamp", Err: err}
		}
		return record.Claim{
			Subject:    view.Subject,
			Predicate:  view.Predicate,
			Value:      view.Value,
			Confidence: view.Confidence,
			Evidence:   view.Evidence,
			Supersedes: view.Supersedes,
			Timestamp:  timestamp,
		}, nil
	default:
		var view actionView
		if err := strictUnmarshal(data, &view); err != nil {
			return nil, err
		}
		timestamp, err := ParseTime(view.Timestamp)
		if err != nil {
			return nil, &EncodingError{Path: "timestamp", Err: err}
		}
		return record.ActionEnvelope{
			VakyaID:    view.VakyaID,
			Karta:      view.Karta,
			Karma:      view.Karma,
			Kriya:      view.Kriya,
			Karana:     view.Karana,
			Sampradana: view.Sampradana,
			Apadana:    view.Apadana,
			Adhikarana: view.Adhikarana,
			BodyType:   view.BodyType,
			Body:       view.Body,
			Meta:       view.Meta,
			Timestamp:  timestamp,
		}, nil
	}
}

func strictUnmarshal(data []byte, view any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(view); err != nil {
		return &EncodingError{Err: fmt.Errorf("decoding record: %w", err)}
	}
	if decoder.More() {
		return &EncodingError{Err: fmt.Errorf("decoding record: trailing data")}
	}
	return nil
}
