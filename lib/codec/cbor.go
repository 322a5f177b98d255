// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Both modes are fixed for the life of the process; options that fail
// to build are a programming error.
var (
	encoder = mustEncMode()
	decoder = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	options := cbor.CoreDetEncOptions()
	options.Time = cbor.TimeRFC3339Nano
	mode, err := options.EncMode()
	if err != nil {
		panic("codec: building CBOR encoder: " + err.Error())
	}
	return mode
}

func mustDecMode() cbor.DecMode {
	mode, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeFor[map[string]any](),
		// A stored row with a repeated key has been tampered with or
		// was not written by Marshal.
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("codec: building CBOR decoder: " + err.Error())
	}
	return mode
}

// Marshal returns the deterministic encoding of v.
func Marshal(v any) ([]byte, error) { return encoder.Marshal(v) }

// Unmarshal decodes data into v, rejecting duplicate map keys.
func Unmarshal(data []byte, v any) error { return decoder.Unmarshal(data, v) }

// Diagnose renders data in RFC 8949 diagnostic notation.
func Diagnose(data []byte) (string, error) { return cbor.Diagnose(data) }
