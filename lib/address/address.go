// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"

	"github.com/GlobalSushrut/connector-oss/lib/canonical"
	"github.com/GlobalSushrut/connector-oss/lib/record"
)

// CodecJSON is the multicodec code for plain JSON.
const CodecJSON = 0x0200

// Prefix is the fixed leading text of every CID this package emits.
const Prefix = "bagaaiera"

// ErrIntegrityMismatch means bytes recomputed from a record do not
// match the CID they were stored under.
var ErrIntegrityMismatch = errors.New("content address mismatch")

// Compute canonicalizes r and returns its CID together with the
// canonical bytes the CID was derived from.
func Compute(r record.Record) (record.CID, []byte, error) {
	data, err := canonical.Encode(r)
	if err != nil {
		return "", nil, err
	}
	return FromCanonical(data), data, nil
}

// FromCanonical returns the CID of already-canonical bytes.
func FromCanonical(data []byte) record.CID {
	hash, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		// sha2-256 is always registered in go-multihash.
		panic(fmt.Sprintf("address: sha2-256 multihash: %v", err))
	}
	return record.CID(cid.NewCidV1(CodecJSON, hash).String())
}

// Parse validates a CID string and returns it typed.
func Parse(s string) (record.CID, error) {
	if _, err := decode(s); err != nil {
		return "", err
	}
	return record.CID(s), nil
}

// Digest returns the sha2-256 digest embedded in a CID.
func Digest(c record.CID) ([32]byte, error) {
	digest, err := decode(string(c))
	if err != nil {
		return [32]byte{}, err
	}
	return digest, nil
}

// Verify recomputes the CID of r and compares it with expected.
func Verify(r record.Record, expected record.CID) error {
	actual, _, err := Compute(r)
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("%w: stored under %s, recomputed %s", ErrIntegrityMismatch, expected.Short(), actual.Short())
	}
	return nil
}

func decode(s string) ([32]byte, error) {
	var digest [32]byte
	parsed, err := cid.Decode(s)
	if err != nil {
		return digest, fmt.Errorf("parsing CID %q: %w", s, err)
	}
	if parsed.Version() != 1 {
		return digest, fmt.Errorf("CID %q: version %d, want 1", s, parsed.Version())
	}
	if parsed.Type() != CodecJSON {
		return digest, fmt.Errorf("CID %q: codec 0x%x, want json (0x%x)", s, parsed.Type(), CodecJSON)
	}
	// Reject other multibase encodings of the same CID.
	if parsed.String() != s {
		return digest, fmt.Errorf("CID %q is not in canonical base32 form", s)
	}
	decoded, err := mh.Decode(parsed.Hash())
	if err != nil {
		return digest, fmt.Errorf("CID %q: %w", s, err)
	}
	if decoded.Code != mh.SHA2_256 || len(decoded.Digest) != len(digest) {
		return digest, fmt.Errorf("CID %q: multihash 0x%x/%d, want sha2-256", s, decoded.Code, len(decoded.Digest))
	}
	copy(digest[:], decoded.Digest)
	return digest, nil
}
